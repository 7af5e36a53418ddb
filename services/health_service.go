package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"sitesafe-api/config"
	"sitesafe-api/models"
	"sitesafe-api/utils"

	log "github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// HealthStatus is a worker's position in the questionnaire cycle.
type HealthStatus struct {
	utils.ExpiryResult
	LastSubmittedAt *time.Time `json:"last_submitted_at,omitempty"`
	Flagged         bool       `json:"flagged"`
}

type HealthSubmission struct {
	Answers     map[string]interface{} `json:"answers"`
	Declaration bool                   `json:"declaration"`
}

type HealthFilter struct {
	WorkerID   int
	Flagged    *bool
	Unreviewed bool
	Page       Page
}

type HealthService struct {
	db       *gorm.DB
	bank     *QuestionBank
	settings *SettingsService
	notify   *NotificationService
}

func NewHealthService(db *gorm.DB, bank *QuestionBank) *HealthService {
	if db == nil {
		db = config.DB
	}
	return &HealthService{db: db, bank: bank, settings: NewSettingsService(db, nil), notify: NewNotificationService(db)}
}

func (s *HealthService) Questions() QuestionSet {
	return s.bank.Current()
}

// Latest returns the newest submission, or nil when the worker never submitted.
func (s *HealthService) Latest(workerID int) (*models.HealthQuestionnaire, error) {
	var hq models.HealthQuestionnaire
	err := s.db.Where("worker_id = ?", workerID).Order("submitted_at DESC").First(&hq).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &hq, nil
}

func (s *HealthService) Status(workerID int, now time.Time) (HealthStatus, error) {
	latest, err := s.Latest(workerID)
	if err != nil {
		return HealthStatus{}, err
	}
	cs, err := s.settings.Get()
	if err != nil {
		return HealthStatus{}, err
	}
	return healthStatusOf(latest, now, cs.HealthDueSoonDays), nil
}

func healthStatusOf(latest *models.HealthQuestionnaire, now time.Time, dueSoonDays int) HealthStatus {
	if latest == nil {
		return HealthStatus{ExpiryResult: utils.ClassifyDue(nil, now, dueSoonDays)}
	}
	next := latest.NextDueAt
	submitted := latest.SubmittedAt
	return HealthStatus{
		ExpiryResult:    utils.ClassifyDue(&next, now, dueSoonDays),
		LastSubmittedAt: &submitted,
		Flagged:         latest.Flagged,
	}
}

// Submit validates the answers against the active question set and records
// the submission. Flagged submissions notify staff.
func (s *HealthService) Submit(workerID int, in HealthSubmission, now time.Time) (*models.HealthQuestionnaire, error) {
	qs := s.bank.Current()
	flags, err := qs.Evaluate(in.Answers)
	var verr *ValidationError
	if err != nil && !errors.As(err, &verr) {
		return nil, err
	}
	if !in.Declaration {
		if verr == nil {
			verr = &ValidationError{Fields: map[string]string{}}
		}
		verr.Fields["declaration"] = "You must confirm your answers are true"
	}
	if verr != nil {
		return nil, verr
	}

	cs, err := s.settings.Get()
	if err != nil {
		return nil, err
	}
	interval := cs.HealthIntervalDays
	if interval <= 0 {
		interval = models.DefaultCompanySettings().HealthIntervalDays
	}

	answers := make(datatypes.JSONMap, len(in.Answers))
	for k, v := range in.Answers {
		if str, ok := v.(string); ok {
			v = strings.TrimSpace(str)
		}
		answers[k] = v
	}
	if flags == nil {
		flags = []string{}
	}
	reasons, _ := json.Marshal(flags)

	hq := &models.HealthQuestionnaire{
		WorkerID:    workerID,
		Version:     qs.Version,
		Answers:     answers,
		Flagged:     len(flags) > 0,
		FlagReasons: datatypes.JSON(reasons),
		Declaration: true,
		SubmittedAt: now,
		NextDueAt:   now.AddDate(0, 0, interval),
	}
	if err := s.db.Create(hq).Error; err != nil {
		return nil, fmt.Errorf("save health questionnaire: %w", err)
	}

	if hq.Flagged {
		s.notifyFlagged(hq, qs, flags)
	}
	return hq, nil
}

func (s *HealthService) notifyFlagged(hq *models.HealthQuestionnaire, qs QuestionSet, flags []string) {
	name := fmt.Sprintf("Worker #%d", hq.WorkerID)
	if u, err := NewUserService(s.db).Get(hq.WorkerID); err == nil {
		name = u.FullName()
	}
	texts := make([]string, 0, len(flags))
	for _, q := range qs.Questions {
		if containsString(flags, q.ID) {
			texts = append(texts, q.Text)
		}
	}
	if _, err := s.notify.NotifyStaff(Message{
		Title:       "Health questionnaire flagged",
		Body:        fmt.Sprintf("%s flagged: %s", name, strings.Join(texts, " | ")),
		Type:        NotifyWarning,
		Category:    "health",
		RelatedType: "health_questionnaire",
		RelatedID:   strconv.Itoa(hq.QuestionnaireID),
	}); err != nil {
		log.WithError(err).WithField("questionnaire_id", hq.QuestionnaireID).Warn("flagged questionnaire notification failed")
	}
}

func (s *HealthService) List(f HealthFilter) ([]models.HealthQuestionnaire, int64, error) {
	q := s.db.Model(&models.HealthQuestionnaire{})
	if f.WorkerID > 0 {
		q = q.Where("worker_id = ?", f.WorkerID)
	}
	if f.Flagged != nil {
		q = q.Where("flagged = ?", *f.Flagged)
	}
	if f.Unreviewed {
		q = q.Where("reviewed_at IS NULL")
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var rows []models.HealthQuestionnaire
	if err := f.Page.apply(q.Preload("Worker").Order("submitted_at DESC")).Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// Review records that staff have followed up a submission.
func (s *HealthService) Review(id, reviewerID int, notes string, now time.Time) (*models.HealthQuestionnaire, error) {
	var hq models.HealthQuestionnaire
	if err := s.db.Where("questionnaire_id = ?", id).First(&hq).Error; err != nil {
		return nil, notFound(err)
	}
	hq.ReviewedBy = &reviewerID
	hq.ReviewedAt = &now
	hq.ReviewNotes = trimmed(notes)
	if err := s.db.Model(&models.HealthQuestionnaire{}).
		Where("questionnaire_id = ?", id).
		Updates(map[string]interface{}{
			"reviewed_by":  reviewerID,
			"reviewed_at":  now,
			"review_notes": hq.ReviewNotes,
		}).Error; err != nil {
		return nil, err
	}
	return &hq, nil
}
