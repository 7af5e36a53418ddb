package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"sitesafe-api/config"
	"sitesafe-api/models"
	"sitesafe-api/utils"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CSCS card types accepted on a worker profile.
var CSCSCardTypes = []string{"green", "blue", "gold", "black", "red", "white", "other"}

type ProfileInput struct {
	FirstName             string `json:"first_name"`
	LastName              string `json:"last_name"`
	Phone                 string `json:"phone"`
	Trade                 string `json:"trade"`
	SubcontractorID       *int   `json:"subcontractor_id"`
	EmergencyContactName  string `json:"emergency_contact_name"`
	EmergencyContactPhone string `json:"emergency_contact_phone"`
	CSCSCardNumber        string `json:"cscs_card_number"`
	CSCSCardType          string `json:"cscs_card_type"`
	CSCSExpiry            string `json:"cscs_expiry"`
	MedicalNotes          string `json:"medical_notes"`
}

// WorkerSummary is the staff view of a worker.
type WorkerSummary struct {
	models.WorkerProfile
	CSCSStatus  utils.ExpiryResult `json:"cscs_status"`
	Health      HealthStatus       `json:"health_status"`
	LastSiteLog *models.SiteLog    `json:"last_site_log,omitempty"`
}

type WorkerFilter struct {
	Trade           string
	SubcontractorID int
	CSCSStatus      string
	HealthStatus    string
	Page            Page
}

type WorkerService struct {
	db       *gorm.DB
	settings *SettingsService
}

func NewWorkerService(db *gorm.DB) *WorkerService {
	if db == nil {
		db = config.DB
	}
	return &WorkerService{db: db, settings: NewSettingsService(db, nil)}
}

// Profile loads the worker's profile, creating an empty one on first use.
func (s *WorkerService) Profile(userID int) (*models.WorkerProfile, error) {
	var p models.WorkerProfile
	err := s.db.Preload("User").Where("user_id = ?", userID).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		p = models.WorkerProfile{UserID: userID}
		if err := s.db.Omit(clause.Associations).Create(&p).Error; err != nil {
			return nil, fmt.Errorf("create worker profile: %w", err)
		}
		user, err := NewUserService(s.db).Get(userID)
		if err != nil {
			return nil, err
		}
		p.User = *user
		return &p, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *WorkerService) UpdateProfile(userID int, in ProfileInput) (*models.WorkerProfile, error) {
	errs := fieldErrors{}
	in.FirstName = trimmed(in.FirstName)
	in.LastName = trimmed(in.LastName)
	if in.FirstName == "" {
		errs.add("first_name", "First name is required")
	}
	if in.LastName == "" {
		errs.add("last_name", "Last name is required")
	}
	if in.Phone != "" && !utils.ValidatePhone(in.Phone) {
		errs.add("phone", "Invalid phone number")
	}
	if in.EmergencyContactPhone != "" && !utils.ValidatePhone(in.EmergencyContactPhone) {
		errs.add("emergency_contact_phone", "Invalid phone number")
	}
	number := strings.ReplaceAll(trimmed(in.CSCSCardNumber), " ", "")
	if number != "" && !utils.ValidateCSCSNumber(number) {
		errs.add("cscs_card_number", "CSCS card number must be 6 to 12 digits")
	}
	if in.CSCSCardType != "" && !containsString(CSCSCardTypes, in.CSCSCardType) {
		errs.add("cscs_card_type", "Unknown card type")
	}
	expiry, err := utils.ParseDate(strings.TrimSpace(in.CSCSExpiry))
	if err != nil {
		errs.add("cscs_expiry", "Invalid date")
	}
	if in.SubcontractorID != nil {
		var n int64
		if err := notDeleted(s.db.Model(&models.Subcontractor{})).Where("subcontractor_id = ?", *in.SubcontractorID).Count(&n).Error; err != nil {
			return nil, err
		}
		if n == 0 {
			errs.add("subcontractor_id", "Unknown subcontractor")
		}
	}
	if err := errs.err(); err != nil {
		return nil, err
	}

	p, err := s.Profile(userID)
	if err != nil {
		return nil, err
	}
	p.Phone = utils.NormalizePhone(in.Phone)
	p.Trade = trimmed(in.Trade)
	p.SubcontractorID = in.SubcontractorID
	p.EmergencyContactName = trimmed(in.EmergencyContactName)
	p.EmergencyContactPhone = utils.NormalizePhone(in.EmergencyContactPhone)
	p.CSCSCardNumber = number
	p.CSCSCardType = in.CSCSCardType
	p.CSCSExpiry = expiry
	p.MedicalNotes = trimmed(in.MedicalNotes)

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Save(p).Error; err != nil {
			return err
		}
		return tx.Model(&models.User{}).Where("user_id = ?", userID).
			Updates(map[string]interface{}{"first_name": in.FirstName, "last_name": in.LastName}).Error
	})
	if err != nil {
		return nil, fmt.Errorf("update worker profile: %w", err)
	}
	p.User.FirstName = in.FirstName
	p.User.LastName = in.LastName
	return p, nil
}

func (s *WorkerService) summarize(p models.WorkerProfile, latest *models.HealthQuestionnaire, last *models.SiteLog, cs models.CompanySettings, now time.Time) WorkerSummary {
	return WorkerSummary{
		WorkerProfile: p,
		CSCSStatus:    utils.ClassifyExpiry(p.CSCSExpiry, now, cs.CSCSWarningDays),
		Health:        healthStatusOf(latest, now, cs.HealthDueSoonDays),
		LastSiteLog:   last,
	}
}

// List returns worker summaries. CSCS and health filters are derived and
// applied in memory.
func (s *WorkerService) List(f WorkerFilter, now time.Time) ([]WorkerSummary, int64, error) {
	q := s.db.Model(&models.WorkerProfile{}).
		Joins("JOIN users ON users.user_id = worker_profiles.user_id").
		Where("users.delete_at IS NULL AND users.user_type = ?", models.UserTypeWorker)
	if f.Trade != "" {
		q = q.Where("worker_profiles.trade = ?", f.Trade)
	}
	if f.SubcontractorID > 0 {
		q = q.Where("worker_profiles.subcontractor_id = ?", f.SubcontractorID)
	}

	var profiles []models.WorkerProfile
	if err := q.Preload("User").Order("users.last_name, users.first_name").Find(&profiles).Error; err != nil {
		return nil, 0, err
	}

	cs, err := s.settings.Get()
	if err != nil {
		return nil, 0, err
	}
	latest, err := s.latestHealth(profileIDs(profiles))
	if err != nil {
		return nil, 0, err
	}

	var out []WorkerSummary
	for _, p := range profiles {
		sum := s.summarize(p, latest[p.UserID], nil, cs, now)
		if f.CSCSStatus != "" && sum.CSCSStatus.Status != f.CSCSStatus {
			continue
		}
		if f.HealthStatus != "" && sum.Health.Status != f.HealthStatus {
			continue
		}
		out = append(out, sum)
	}
	return pageSlice(out, f.Page), int64(len(out)), nil
}

func (s *WorkerService) Get(userID int, now time.Time) (*WorkerSummary, error) {
	user, err := NewUserService(s.db).Get(userID)
	if err != nil {
		return nil, err
	}
	if !user.IsWorker() {
		return nil, ErrNotFound
	}
	p, err := s.Profile(userID)
	if err != nil {
		return nil, err
	}
	cs, err := s.settings.Get()
	if err != nil {
		return nil, err
	}
	latest, err := s.latestHealth([]int{userID})
	if err != nil {
		return nil, err
	}

	var last models.SiteLog
	var lastPtr *models.SiteLog
	err = s.db.Preload("Site").Where("worker_id = ?", userID).Order("check_in_at DESC").First(&last).Error
	switch {
	case err == nil:
		lastPtr = &last
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, err
	}

	sum := s.summarize(*p, latest[userID], lastPtr, cs, now)
	return &sum, nil
}

// latestHealth maps worker id to their newest questionnaire.
func (s *WorkerService) latestHealth(workerIDs []int) (map[int]*models.HealthQuestionnaire, error) {
	out := make(map[int]*models.HealthQuestionnaire, len(workerIDs))
	if len(workerIDs) == 0 {
		return out, nil
	}
	var rows []models.HealthQuestionnaire
	err := s.db.Where("worker_id IN ?", workerIDs).Order("submitted_at DESC").Find(&rows).Error
	if err != nil {
		return nil, err
	}
	for i := range rows {
		if _, seen := out[rows[i].WorkerID]; !seen {
			out[rows[i].WorkerID] = &rows[i]
		}
	}
	return out, nil
}

func profileIDs(profiles []models.WorkerProfile) []int {
	ids := make([]int, 0, len(profiles))
	for _, p := range profiles {
		ids = append(ids, p.UserID)
	}
	return ids
}
