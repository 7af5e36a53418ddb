package services

import (
	"errors"
	"sort"
	"strings"

	"github.com/go-sql-driver/mysql"
	"gorm.io/gorm"
)

var (
	ErrNotFound            = errors.New("record not found")
	ErrValidation          = errors.New("validation failed")
	ErrConflict            = errors.New("conflict")
	ErrForbidden           = errors.New("forbidden")
	ErrInvalidCredentials  = errors.New("invalid email or password")
	ErrAccountDisabled     = errors.New("account is disabled")
	ErrStepLocked          = errors.New("complete the earlier steps first")
	ErrNotEditable         = errors.New("record can no longer be edited")
	ErrIncomplete          = errors.New("not every step is complete")
	ErrInvalidTransition   = errors.New("status change not allowed")
	ErrAlreadyCheckedIn    = errors.New("already checked in at this site")
	ErrNotCheckedIn        = errors.New("not checked in")
	ErrHealthCheckRequired = errors.New("health questionnaire is due")
	ErrInvalidQRPayload    = errors.New("QR code not recognised")
	ErrSiteInactive        = errors.New("site is not active")
	ErrAlreadySigned       = errors.New("already signed")
	ErrUnsupportedFile     = errors.New("unsupported file type")
	ErrFileTooLarge        = errors.New("file too large")
)

// ValidationError carries per-field messages. It matches ErrValidation with errors.Is.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// fieldErrors collects validation messages while a request is checked.
type fieldErrors map[string]string

func (f fieldErrors) add(field, msg string) {
	if _, exists := f[field]; !exists {
		f[field] = msg
	}
}

func (f fieldErrors) err() error {
	if len(f) == 0 {
		return nil
	}
	return &ValidationError{Fields: f}
}

func invalid(field, msg string) error {
	return &ValidationError{Fields: map[string]string{field: msg}}
}

// notFound maps gorm.ErrRecordNotFound to ErrNotFound.
func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

// isDuplicateKey reports a MySQL unique index violation.
func isDuplicateKey(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == 1062
}
