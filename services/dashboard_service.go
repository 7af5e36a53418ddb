package services

import (
	"time"

	"sitesafe-api/config"
	"sitesafe-api/models"
	"sitesafe-api/utils"

	"gorm.io/gorm"
)

// Dashboard tells the client which tree of screens to show.
type Dashboard struct {
	UserType string   `json:"user_type"`
	Home     string   `json:"home"`
	Modules  []string `json:"modules"`
}

var (
	staffDashboard = Dashboard{
		UserType: models.UserTypeStaff,
		Home:     "/staff",
		Modules: []string{"subcontractors", "rams", "risk-assessments", "sites", "site-logs",
			"signage", "workers", "settings", "reminders"},
	}
	workerDashboard = Dashboard{
		UserType: models.UserTypeWorker,
		Home:     "/worker",
		Modules:  []string{"profile", "health-questionnaire", "check-in", "risk-assessments"},
	}
)

// DashboardFor branches on the account type; unknown types get nothing.
func DashboardFor(u *models.User) (Dashboard, bool) {
	switch u.UserType {
	case models.UserTypeStaff:
		return staffDashboard, true
	case models.UserTypeWorker:
		return workerDashboard, true
	}
	return Dashboard{}, false
}

type StaffSummary struct {
	Subcontractors        int64 `json:"subcontractors"`
	InsuranceExpired      int   `json:"insurance_expired"`
	InsuranceExpiring     int   `json:"insurance_expiring"`
	RamsDrafts            int64 `json:"rams_drafts"`
	RamsAwaitingApproval  int64 `json:"rams_awaiting_approval"`
	RamsReviewDue         int   `json:"rams_review_due"`
	RiskReviewDue         int   `json:"risk_assessments_review_due"`
	WorkersOnSite         int64 `json:"workers_on_site"`
	FlaggedQuestionnaires int64 `json:"flagged_questionnaires"`
	UnreadNotifications   int64 `json:"unread_notifications"`
}

type WorkerSummaryCard struct {
	Health              HealthStatus       `json:"health_status"`
	CurrentCheckin      *models.SiteLog    `json:"current_check_in"`
	PendingSignatures   int                `json:"pending_signatures"`
	CSCS                utils.ExpiryResult `json:"cscs_status"`
	UnreadNotifications int64              `json:"unread_notifications"`
}

type DashboardService struct {
	db   *gorm.DB
	bank *QuestionBank
}

func NewDashboardService(db *gorm.DB, bank *QuestionBank) *DashboardService {
	if db == nil {
		db = config.DB
	}
	return &DashboardService{db: db, bank: bank}
}

func (s *DashboardService) Staff(userID int, now time.Time) (*StaffSummary, error) {
	sum := &StaffSummary{}

	subs, err := NewSubcontractorService(s.db, nil).Register(now)
	if err != nil {
		return nil, err
	}
	sum.Subcontractors = int64(len(subs))
	for _, v := range subs {
		switch v.Insurance.Overall {
		case utils.ExpiryExpired, utils.ExpiryMissing:
			sum.InsuranceExpired++
		case utils.ExpiryExpiring:
			sum.InsuranceExpiring++
		}
	}

	if err := notDeleted(s.db.Model(&models.Rams{})).Where("status = ?", models.RamsStatusDraft).Count(&sum.RamsDrafts).Error; err != nil {
		return nil, err
	}
	if err := notDeleted(s.db.Model(&models.Rams{})).Where("status = ?", models.RamsStatusSubmitted).Count(&sum.RamsAwaitingApproval).Error; err != nil {
		return nil, err
	}

	reminders, err := NewReminderService(s.db, nil).Collect(now)
	if err != nil {
		return nil, err
	}
	for _, r := range reminders {
		switch r.Kind {
		case ReminderRamsReview:
			sum.RamsReviewDue++
		case ReminderRiskReview:
			sum.RiskReviewDue++
		}
	}

	if err := s.db.Model(&models.SiteLog{}).Where("check_out_at IS NULL").Distinct("worker_id").Count(&sum.WorkersOnSite).Error; err != nil {
		return nil, err
	}
	if err := s.db.Model(&models.HealthQuestionnaire{}).Where("flagged = ? AND reviewed_at IS NULL", true).Count(&sum.FlaggedQuestionnaires).Error; err != nil {
		return nil, err
	}
	unread, err := NewNotificationService(s.db).UnreadCount(userID)
	if err != nil {
		return nil, err
	}
	sum.UnreadNotifications = unread
	return sum, nil
}

func (s *DashboardService) Worker(userID int, now time.Time) (*WorkerSummaryCard, error) {
	card := &WorkerSummaryCard{}

	health, err := NewHealthService(s.db, s.bank).Status(userID, now)
	if err != nil {
		return nil, err
	}
	card.Health = health

	if card.CurrentCheckin, err = NewCheckinService(s.db, s.bank).Current(userID); err != nil {
		return nil, err
	}

	pending, err := NewRiskAssessmentService(s.db, nil).ForWorker(userID, true, now)
	if err != nil {
		return nil, err
	}
	card.PendingSignatures = len(pending)

	profile, err := NewWorkerService(s.db).Profile(userID)
	if err != nil {
		return nil, err
	}
	cs, err := NewSettingsService(s.db, nil).Get()
	if err != nil {
		return nil, err
	}
	card.CSCS = utils.ClassifyExpiry(profile.CSCSExpiry, now, cs.CSCSWarningDays)

	if card.UnreadNotifications, err = NewNotificationService(s.db).UnreadCount(userID); err != nil {
		return nil, err
	}
	return card, nil
}
