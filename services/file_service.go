package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"strings"
	"time"

	"sitesafe-api/config"
	"sitesafe-api/models"
	"sitesafe-api/storage"

	"github.com/gabriel-vasile/mimetype"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Accepted mime types per upload kind.
var (
	ImageTypes       = []string{"image/png", "image/jpeg"}
	SignageTypes     = []string{"image/png", "image/jpeg", "image/svg+xml", "application/pdf"}
	CertificateTypes = []string{"application/pdf", "image/png", "image/jpeg"}
)

// Upload is a file received from a client.
type Upload struct {
	Bucket       string
	OriginalName string
	MimeType     string
	Size         int64
	Body         io.Reader
	UploadedBy   int
}

type FileService struct {
	db       *gorm.DB
	store    storage.Store
	maxBytes int64
}

func NewFileService(db *gorm.DB, store storage.Store) *FileService {
	if db == nil {
		db = config.DB
	}
	return &FileService{db: db, store: store, maxBytes: config.Current.MaxUploadBytes()}
}

// DetectMimeType normalises a declared content type, falling back to the
// file extension when the client sent nothing useful.
func DetectMimeType(declared, name string) string {
	mt, _, err := mime.ParseMediaType(strings.TrimSpace(declared))
	if err != nil || mt == "" || mt == "application/octet-stream" {
		mt, _, _ = mime.ParseMediaType(mime.TypeByExtension(strings.ToLower(filepath.Ext(name))))
	}
	if mt == "image/jpg" {
		mt = "image/jpeg"
	}
	return strings.ToLower(mt)
}

// sniffLen is how much of an upload is read to detect its content type.
const sniffLen = 3072

// Save checks type and size, writes the object and records the file row.
// The declared type must agree with the leading bytes of the body.
func (s *FileService) Save(ctx context.Context, up Upload, allowed ...string) (*models.FileUpload, error) {
	mt := DetectMimeType(up.MimeType, up.OriginalName)
	if len(allowed) > 0 && !containsString(allowed, mt) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFile, mt)
	}
	if s.maxBytes > 0 && up.Size > s.maxBytes {
		return nil, ErrFileTooLarge
	}

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(up.Body, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	head = head[:n]
	if len(allowed) > 0 {
		if sniffed := mimetype.Detect(head); !sniffed.Is(mt) {
			log.WithFields(log.Fields{"declared": mt, "detected": sniffed.String()}).Warn("upload content does not match its type")
			return nil, fmt.Errorf("%w: content is %s", ErrUnsupportedFile, sniffed.String())
		}
	}

	key := storage.NewKey(up.Bucket, up.OriginalName)
	body := io.MultiReader(bytes.NewReader(head), up.Body)
	if s.maxBytes > 0 {
		body = io.LimitReader(body, s.maxBytes+1)
	}
	obj, err := s.store.Put(ctx, key, body)
	if err != nil {
		return nil, fmt.Errorf("store %s: %w", up.Bucket, err)
	}
	if s.maxBytes > 0 && obj.Size > s.maxBytes {
		_ = s.store.Delete(ctx, key)
		return nil, ErrFileTooLarge
	}

	file := &models.FileUpload{
		OriginalName: filepath.Base(up.OriginalName),
		ObjectKey:    obj.Key,
		Bucket:       up.Bucket,
		FileSize:     obj.Size,
		MimeType:     mt,
		FileHash:     obj.SHA256,
		UploadedBy:   up.UploadedBy,
	}
	if err := s.db.Create(file).Error; err != nil {
		_ = s.store.Delete(ctx, key)
		return nil, fmt.Errorf("record upload: %w", err)
	}
	return file, nil
}

func (s *FileService) Get(id int) (*models.FileUpload, error) {
	var f models.FileUpload
	if err := notDeleted(s.db).Where("file_id = ?", id).First(&f).Error; err != nil {
		return nil, notFound(err)
	}
	return &f, nil
}

func (s *FileService) Open(ctx context.Context, f *models.FileUpload) (io.ReadCloser, error) {
	rc, err := s.store.Open(ctx, f.ObjectKey)
	if err == storage.ErrObjectNotFound {
		return nil, ErrNotFound
	}
	return rc, err
}

// Remove soft deletes the file row and drops the stored object.
func (s *FileService) Remove(ctx context.Context, id int) error {
	f, err := s.Get(id)
	if err != nil {
		return err
	}
	if err := s.db.Model(&models.FileUpload{}).
		Where("file_id = ?", id).
		Update("delete_at", time.Now()).Error; err != nil {
		return err
	}
	if err := s.store.Delete(ctx, f.ObjectKey); err != nil {
		log.WithError(err).WithField("key", f.ObjectKey).Warn("failed to delete stored object")
	}
	return nil
}

func containsString(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
