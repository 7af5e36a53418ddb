package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"sitesafe-api/config"
	"sitesafe-api/models"
	"sitesafe-api/storage"
	"sitesafe-api/utils"

	"gorm.io/gorm"
)

// RequiredPolicies must be held by every active subcontractor.
var RequiredPolicies = []string{models.PolicyPublicLiability, models.PolicyEmployersLiability}

var allPolicies = []string{
	models.PolicyPublicLiability,
	models.PolicyEmployersLiability,
	models.PolicyProfessionalIndemnity,
}

// InsuranceStatus is the per-policy classification plus the overall verdict.
type InsuranceStatus struct {
	Overall  string                        `json:"overall"`
	Policies map[string]utils.ExpiryResult `json:"policies"`
}

// InsuranceStatusOf classifies every policy. Only required policies count
// towards Overall; an optional policy that is held but expired still does.
func InsuranceStatusOf(sub *models.Subcontractor, now time.Time, warnDays int) InsuranceStatus {
	st := InsuranceStatus{Policies: make(map[string]utils.ExpiryResult, len(allPolicies))}
	var counted []string
	for _, p := range allPolicies {
		res := utils.ClassifyExpiry(sub.PolicyExpiry(p), now, warnDays)
		st.Policies[p] = res
		if containsString(RequiredPolicies, p) || res.Status != utils.ExpiryMissing {
			counted = append(counted, res.Status)
		}
	}
	st.Overall = utils.WorstExpiry(counted...)
	return st
}

// SubcontractorView is a subcontractor with its insurance status resolved.
type SubcontractorView struct {
	models.Subcontractor
	Insurance InsuranceStatus `json:"insurance"`
}

type SubcontractorFilter struct {
	Query           string
	Trade           string
	InsuranceStatus string
	IncludeInactive bool
	Page            Page
}

type SubcontractorInput struct {
	CompanyName   string `json:"company_name"`
	ContactName   string `json:"contact_name"`
	Email         string `json:"email"`
	Phone         string `json:"phone"`
	Trade         string `json:"trade"`
	Address       string `json:"address"`
	Postcode      string `json:"postcode"`
	CompanyNumber string `json:"company_number"`
	Notes         string `json:"notes"`
	IsActive      *bool  `json:"is_active"`
}

func (in *SubcontractorInput) normalize() error {
	in.CompanyName = trimmed(in.CompanyName)
	in.ContactName = trimmed(in.ContactName)
	in.Email = strings.ToLower(trimmed(in.Email))
	in.Trade = trimmed(in.Trade)
	in.Postcode = strings.ToUpper(trimmed(in.Postcode))

	errs := fieldErrors{}
	if in.CompanyName == "" {
		errs.add("company_name", "Company name is required")
	}
	if in.Email != "" && !utils.ValidateEmail(in.Email) {
		errs.add("email", "Invalid e-mail address")
	}
	if in.Phone != "" {
		if !utils.ValidatePhone(in.Phone) {
			errs.add("phone", "Phone number must contain 10 to 13 digits")
		}
		in.Phone = utils.NormalizePhone(in.Phone)
	}
	if in.Postcode != "" && !utils.ValidatePostcode(in.Postcode) {
		errs.add("postcode", "Invalid postcode")
	}
	return errs.err()
}

type SubcontractorService struct {
	db       *gorm.DB
	files    *FileService
	settings *SettingsService
}

func NewSubcontractorService(db *gorm.DB, store storage.Store) *SubcontractorService {
	if db == nil {
		db = config.DB
	}
	return &SubcontractorService{
		db:       db,
		files:    NewFileService(db, store),
		settings: NewSettingsService(db, store),
	}
}

func (s *SubcontractorService) warnDays() int {
	cs, err := s.settings.Get()
	if err != nil || cs.InsuranceWarningDays <= 0 {
		return models.DefaultCompanySettings().InsuranceWarningDays
	}
	return cs.InsuranceWarningDays
}

func (s *SubcontractorService) view(sub models.Subcontractor, now time.Time, warn int) SubcontractorView {
	return SubcontractorView{Subcontractor: sub, Insurance: InsuranceStatusOf(&sub, now, warn)}
}

func (s *SubcontractorService) List(f SubcontractorFilter, now time.Time) ([]SubcontractorView, int64, error) {
	q := notDeleted(s.db.Model(&models.Subcontractor{}))
	if !f.IncludeInactive {
		q = q.Where("is_active = ?", true)
	}
	if strings.TrimSpace(f.Query) != "" {
		like := likePattern(f.Query)
		q = q.Where("(company_name LIKE ? OR contact_name LIKE ? OR trade LIKE ?)", like, like, like)
	}
	if f.Trade != "" {
		q = q.Where("trade = ?", f.Trade)
	}
	q = q.Order("company_name")
	warn := s.warnDays()

	// insurance status is derived, so that filter pages in memory
	if f.InsuranceStatus != "" {
		var rows []models.Subcontractor
		if err := q.Find(&rows).Error; err != nil {
			return nil, 0, err
		}
		var matched []SubcontractorView
		for _, r := range rows {
			v := s.view(r, now, warn)
			if v.Insurance.Overall == f.InsuranceStatus {
				matched = append(matched, v)
			}
		}
		return pageSlice(matched, f.Page), int64(len(matched)), nil
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var rows []models.Subcontractor
	if err := f.Page.apply(q).Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	out := make([]SubcontractorView, 0, len(rows))
	for _, r := range rows {
		out = append(out, s.view(r, now, warn))
	}
	return out, total, nil
}

func (s *SubcontractorService) find(id int) (*models.Subcontractor, error) {
	var sub models.Subcontractor
	if err := notDeleted(s.db).Where("subcontractor_id = ?", id).First(&sub).Error; err != nil {
		return nil, notFound(err)
	}
	return &sub, nil
}

func (s *SubcontractorService) Get(id int, now time.Time) (*SubcontractorView, error) {
	sub, err := s.find(id)
	if err != nil {
		return nil, err
	}
	docs, err := s.Documents(id)
	if err != nil {
		return nil, err
	}
	sub.Documents = docs
	v := s.view(*sub, now, s.warnDays())
	return &v, nil
}

func (s *SubcontractorService) Create(in SubcontractorInput, userID int) (*models.Subcontractor, error) {
	if err := in.normalize(); err != nil {
		return nil, err
	}
	sub := &models.Subcontractor{CreatedBy: userID, IsActive: true}
	applySubcontractorInput(sub, in)
	if err := s.db.Create(sub).Error; err != nil {
		return nil, fmt.Errorf("create subcontractor: %w", err)
	}
	return sub, nil
}

func (s *SubcontractorService) Update(id int, in SubcontractorInput) (*models.Subcontractor, error) {
	if err := in.normalize(); err != nil {
		return nil, err
	}
	sub, err := s.find(id)
	if err != nil {
		return nil, err
	}
	applySubcontractorInput(sub, in)
	if err := s.db.Save(sub).Error; err != nil {
		return nil, fmt.Errorf("update subcontractor: %w", err)
	}
	return sub, nil
}

func applySubcontractorInput(sub *models.Subcontractor, in SubcontractorInput) {
	sub.CompanyName = in.CompanyName
	sub.ContactName = in.ContactName
	sub.Email = in.Email
	sub.Phone = in.Phone
	sub.Trade = in.Trade
	sub.Address = trimmed(in.Address)
	sub.Postcode = in.Postcode
	sub.CompanyNumber = trimmed(in.CompanyNumber)
	sub.Notes = trimmed(in.Notes)
	if in.IsActive != nil {
		sub.IsActive = *in.IsActive
	}
}

func (s *SubcontractorService) Delete(id int) error {
	res := notDeleted(s.db.Model(&models.Subcontractor{})).
		Where("subcontractor_id = ?", id).
		Update("delete_at", time.Now())
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SubcontractorService) Documents(id int) ([]models.SubcontractorDocument, error) {
	var docs []models.SubcontractorDocument
	err := notDeleted(s.db).
		Preload("File").
		Where("subcontractor_id = ?", id).
		Order("create_at DESC").
		Find(&docs).Error
	return docs, err
}

// AddDocument stores a certificate. Insurance certificates with an expiry
// date also move the matching expiry column on the subcontractor.
func (s *SubcontractorService) AddDocument(ctx context.Context, id int, docType string, expiresAt *time.Time, up Upload) (*models.SubcontractorDocument, error) {
	if !models.ValidSubcontractorDocumentType(docType) {
		return nil, invalid("document_type", "Unknown document type")
	}
	if _, err := s.find(id); err != nil {
		return nil, err
	}

	up.Bucket = storage.BucketCertificates
	file, err := s.files.Save(ctx, up, CertificateTypes...)
	if err != nil {
		return nil, err
	}

	doc := &models.SubcontractorDocument{
		SubcontractorID: id,
		DocumentType:    docType,
		FileID:          file.FileID,
		ExpiresAt:       expiresAt,
		UploadedBy:      up.UploadedBy,
		File:            *file,
	}
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("File").Create(doc).Error; err != nil {
			return err
		}
		if col, ok := models.PolicyColumn(docType); ok && expiresAt != nil {
			return tx.Model(&models.Subcontractor{}).
				Where("subcontractor_id = ?", id).
				Update(col, *expiresAt).Error
		}
		return nil
	})
	if err != nil {
		_ = s.files.Remove(ctx, file.FileID)
		return nil, fmt.Errorf("save subcontractor document: %w", err)
	}
	return doc, nil
}

// Register lists every active subcontractor for the compliance register.
func (s *SubcontractorService) Register(now time.Time) ([]SubcontractorView, error) {
	var rows []models.Subcontractor
	if err := notDeleted(s.db).Where("is_active = ?", true).Order("company_name").Find(&rows).Error; err != nil {
		return nil, err
	}
	warn := s.warnDays()
	out := make([]SubcontractorView, 0, len(rows))
	for _, r := range rows {
		out = append(out, s.view(r, now, warn))
	}
	return out, nil
}
