package services

import (
	"context"
	"fmt"
	"io"
	"time"

	"sitesafe-api/config"
	"sitesafe-api/models"
	"sitesafe-api/storage"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SignageInput struct {
	Title       string  `json:"title" form:"title"`
	Category    string  `json:"category" form:"category"`
	Description string  `json:"description" form:"description"`
	Size        string  `json:"size" form:"size"`
	SiteID      *string `json:"site_id" form:"site_id"`
}

type SignageService struct {
	db    *gorm.DB
	files *FileService
}

func NewSignageService(db *gorm.DB, store storage.Store) *SignageService {
	if db == nil {
		db = config.DB
	}
	return &SignageService{db: db, files: NewFileService(db, store)}
}

func (s *SignageService) validate(in *SignageInput) error {
	in.Title = trimmed(in.Title)
	in.Description = trimmed(in.Description)
	if in.SiteID != nil && trimmed(*in.SiteID) == "" {
		in.SiteID = nil
	}

	errs := fieldErrors{}
	if in.Title == "" {
		errs.add("title", "Title is required")
	}
	if !models.ValidSignageCategory(in.Category) {
		errs.add("category", "Unknown category")
	}
	if in.Size == "" {
		in.Size = "A4"
	}
	if !models.ValidSignageSize(in.Size) {
		errs.add("size", "Unknown size")
	}
	if in.SiteID != nil {
		if _, err := NewSiteService(s.db).Get(*in.SiteID); err != nil {
			errs.add("site_id", "Unknown site")
		}
	}
	return errs.err()
}

func (s *SignageService) List(category, siteID string, page Page) ([]models.Signage, int64, error) {
	q := notDeleted(s.db.Model(&models.Signage{}))
	if category != "" {
		q = q.Where("category = ?", category)
	}
	if siteID != "" {
		q = q.Where("site_id = ?", siteID)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var rows []models.Signage
	if err := page.apply(q.Preload("File").Order("category, title")).Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

func (s *SignageService) Get(id int) (*models.Signage, error) {
	var sign models.Signage
	if err := notDeleted(s.db).Preload("File").Where("signage_id = ?", id).First(&sign).Error; err != nil {
		return nil, notFound(err)
	}
	return &sign, nil
}

// Create stores the artwork and its metadata.
func (s *SignageService) Create(ctx context.Context, in SignageInput, up Upload) (*models.Signage, error) {
	if err := s.validate(&in); err != nil {
		return nil, err
	}
	up.Bucket = storage.BucketSignage
	file, err := s.files.Save(ctx, up, SignageTypes...)
	if err != nil {
		return nil, err
	}
	sign := &models.Signage{
		Title:       in.Title,
		Category:    in.Category,
		Description: in.Description,
		Size:        in.Size,
		SiteID:      in.SiteID,
		FileID:      file.FileID,
		CreatedBy:   up.UploadedBy,
	}
	if err := s.db.Omit(clause.Associations).Create(sign).Error; err != nil {
		_ = s.files.Remove(ctx, file.FileID)
		return nil, fmt.Errorf("create signage: %w", err)
	}
	sign.File = *file
	return sign, nil
}

func (s *SignageService) Update(id int, in SignageInput) (*models.Signage, error) {
	if err := s.validate(&in); err != nil {
		return nil, err
	}
	sign, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	sign.Title = in.Title
	sign.Category = in.Category
	sign.Description = in.Description
	sign.Size = in.Size
	sign.SiteID = in.SiteID
	if err := s.db.Omit(clause.Associations).Save(sign).Error; err != nil {
		return nil, fmt.Errorf("update signage: %w", err)
	}
	return sign, nil
}

// ReplaceArtwork swaps the file behind a sign and drops the old object.
func (s *SignageService) ReplaceArtwork(ctx context.Context, id int, up Upload) (*models.Signage, error) {
	sign, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	up.Bucket = storage.BucketSignage
	file, err := s.files.Save(ctx, up, SignageTypes...)
	if err != nil {
		return nil, err
	}
	if err := s.db.Model(&models.Signage{}).Where("signage_id = ?", id).Update("file_id", file.FileID).Error; err != nil {
		_ = s.files.Remove(ctx, file.FileID)
		return nil, err
	}
	old := sign.FileID
	sign.FileID = file.FileID
	sign.File = *file
	_ = s.files.Remove(ctx, old)
	return sign, nil
}

// Delete soft deletes the sign and removes its artwork object.
func (s *SignageService) Delete(ctx context.Context, id int) error {
	sign, err := s.Get(id)
	if err != nil {
		return err
	}
	if err := s.db.Model(&models.Signage{}).Where("signage_id = ?", id).Update("delete_at", time.Now()).Error; err != nil {
		return err
	}
	return s.files.Remove(ctx, sign.FileID)
}

// Open streams the artwork of a sign.
func (s *SignageService) Open(ctx context.Context, id int) (*models.Signage, io.ReadCloser, error) {
	sign, err := s.Get(id)
	if err != nil {
		return nil, nil, err
	}
	rc, err := s.files.Open(ctx, &sign.File)
	if err != nil {
		return nil, nil, err
	}
	return sign, rc, nil
}
