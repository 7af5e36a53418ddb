package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"sitesafe-api/config"
	"sitesafe-api/models"
	"sitesafe-api/storage"
	"sitesafe-api/utils"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	settingsCacheMu sync.RWMutex
	settingsCache   *settingsCacheEntry
	settingsTTL     = 5 * time.Minute
)

type settingsCacheEntry struct {
	settings  models.CompanySettings
	fetchedAt time.Time
}

// ClearSettingsCache invalidates the in-memory company settings.
func ClearSettingsCache() {
	settingsCacheMu.Lock()
	defer settingsCacheMu.Unlock()
	settingsCache = nil
}

func storeSettingsCache(s models.CompanySettings) {
	settingsCacheMu.Lock()
	defer settingsCacheMu.Unlock()
	settingsCache = &settingsCacheEntry{settings: s, fetchedAt: time.Now()}
}

type SettingsService struct {
	db    *gorm.DB
	files *FileService
}

func NewSettingsService(db *gorm.DB, store storage.Store) *SettingsService {
	if db == nil {
		db = config.DB
	}
	return &SettingsService{db: db, files: NewFileService(db, store)}
}

// Get returns the company settings, falling back to defaults when the row
// has not been saved yet.
func (s *SettingsService) Get() (models.CompanySettings, error) {
	settingsCacheMu.RLock()
	cached := settingsCache
	settingsCacheMu.RUnlock()
	if cached != nil && time.Since(cached.fetchedAt) < settingsTTL {
		return cached.settings, nil
	}

	var row models.CompanySettings
	err := s.db.Where("settings_id = ?", models.CompanySettingsID).First(&row).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		row = models.DefaultCompanySettings()
	case err != nil:
		return models.CompanySettings{}, fmt.Errorf("load company settings: %w", err)
	}

	storeSettingsCache(row)
	return row, nil
}

// SettingsInput is the editable part of CompanySettings.
type SettingsInput struct {
	CompanyName          string `json:"company_name"`
	Address              string `json:"address"`
	Phone                string `json:"phone"`
	Email                string `json:"email"`
	HealthIntervalDays   int    `json:"health_interval_days"`
	HealthDueSoonDays    int    `json:"health_due_soon_days"`
	InsuranceWarningDays int    `json:"insurance_warning_days"`
	ReviewWarningDays    int    `json:"review_warning_days"`
	CSCSWarningDays      int    `json:"cscs_warning_days"`
	RequireHealthCheck   bool   `json:"require_health_check"`
	ReminderRecipients   string `json:"reminder_recipients"`
}

func (in SettingsInput) validate() error {
	errs := fieldErrors{}
	if strings.TrimSpace(in.CompanyName) == "" {
		errs.add("company_name", "Company name is required")
	}
	if e := strings.TrimSpace(in.Email); e != "" && !utils.ValidateEmail(e) {
		errs.add("email", "Invalid e-mail address")
	}
	if p := strings.TrimSpace(in.Phone); p != "" && !utils.ValidatePhone(p) {
		errs.add("phone", "Invalid phone number")
	}
	days := map[string]int{
		"health_interval_days":   in.HealthIntervalDays,
		"health_due_soon_days":   in.HealthDueSoonDays,
		"insurance_warning_days": in.InsuranceWarningDays,
		"review_warning_days":    in.ReviewWarningDays,
		"cscs_warning_days":      in.CSCSWarningDays,
	}
	for field, v := range days {
		if v <= 0 {
			errs.add(field, "Must be a positive number of days")
		}
	}
	if in.HealthDueSoonDays >= in.HealthIntervalDays && in.HealthIntervalDays > 0 {
		errs.add("health_due_soon_days", "Must be shorter than the questionnaire interval")
	}
	for _, r := range (models.CompanySettings{ReminderRecipients: in.ReminderRecipients}).Recipients() {
		if !utils.ValidateEmail(r) {
			errs.add("reminder_recipients", "Invalid e-mail address: "+r)
		}
	}
	return errs.err()
}

// Update validates and saves the settings row.
func (s *SettingsService) Update(in SettingsInput, userID int) (models.CompanySettings, error) {
	if err := in.validate(); err != nil {
		return models.CompanySettings{}, err
	}
	current, err := s.Get()
	if err != nil {
		return models.CompanySettings{}, err
	}

	current.SettingsID = models.CompanySettingsID
	current.CompanyName = trimmed(in.CompanyName)
	current.Address = trimmed(in.Address)
	current.Phone = utils.NormalizePhone(in.Phone)
	current.Email = strings.ToLower(trimmed(in.Email))
	current.HealthIntervalDays = in.HealthIntervalDays
	current.HealthDueSoonDays = in.HealthDueSoonDays
	current.InsuranceWarningDays = in.InsuranceWarningDays
	current.ReviewWarningDays = in.ReviewWarningDays
	current.CSCSWarningDays = in.CSCSWarningDays
	current.RequireHealthCheck = in.RequireHealthCheck
	current.ReminderRecipients = strings.Join(models.CompanySettings{ReminderRecipients: in.ReminderRecipients}.Recipients(), ",")
	current.UpdatedBy = &userID

	if err := s.save(&current); err != nil {
		return models.CompanySettings{}, err
	}
	return current, nil
}

// SetLogo stores a new company logo and points the settings row at it.
func (s *SettingsService) SetLogo(ctx context.Context, up Upload, userID int) (models.CompanySettings, error) {
	up.Bucket = storage.BucketBranding
	up.UploadedBy = userID
	file, err := s.files.Save(ctx, up, ImageTypes...)
	if err != nil {
		return models.CompanySettings{}, err
	}

	current, err := s.Get()
	if err != nil {
		return models.CompanySettings{}, err
	}
	previous := current.LogoFileID
	current.LogoFileID = &file.FileID
	current.UpdatedBy = &userID
	if err := s.save(&current); err != nil {
		return models.CompanySettings{}, err
	}
	if previous != nil {
		_ = s.files.Remove(ctx, *previous)
	}
	return current, nil
}

// Logo returns the logo bytes, or nil when no logo is set.
func (s *SettingsService) Logo(ctx context.Context) ([]byte, string, error) {
	current, err := s.Get()
	if err != nil || current.LogoFileID == nil {
		return nil, "", err
	}
	file, err := s.files.Get(*current.LogoFileID)
	if err != nil {
		return nil, "", err
	}
	if !file.IsImage() {
		return nil, "", nil
	}
	rc, err := s.files.Open(ctx, file)
	if err != nil {
		return nil, "", err
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	return data, file.MimeType, err
}

func (s *SettingsService) save(row *models.CompanySettings) error {
	if err := s.db.Clauses(clause.OnConflict{UpdateAll: true}).Create(row).Error; err != nil {
		return fmt.Errorf("save company settings: %w", err)
	}
	storeSettingsCache(*row)
	return nil
}
