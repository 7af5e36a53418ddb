package services

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"sitesafe-api/config"
	"sitesafe-api/models"
	"sitesafe-api/utils"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

// Reminder kinds.
const (
	ReminderInsurance  = "insurance"
	ReminderRamsReview = "rams_review"
	ReminderRiskReview = "risk_review"
	ReminderCSCS       = "cscs"
	ReminderHealth     = "health"
)

// Reminder is one compliance item that is expired or coming due.
type Reminder struct {
	Kind          string     `json:"kind"`
	Status        string     `json:"status"`
	SubjectType   string     `json:"subject_type"`
	SubjectID     string     `json:"subject_id"`
	SubjectName   string     `json:"subject_name"`
	Detail        string     `json:"detail"`
	DueDate       *time.Time `json:"due_date,omitempty"`
	DaysRemaining *int       `json:"days_remaining,omitempty"`
	// WorkerID is set for items that belong to a single worker.
	WorkerID int `json:"-"`
}

// DedupeKey identifies a reminder occurrence; a new status or due date is a
// new occurrence.
func (r Reminder) DedupeKey() string {
	due := "none"
	if r.DueDate != nil {
		due = r.DueDate.UTC().Format("2006-01-02")
	}
	return strings.Join([]string{r.Kind, r.SubjectType, r.SubjectID, r.Status, due}, ":")
}

// RunSummary reports what a reminder run did.
type RunSummary struct {
	DryRun         bool       `json:"dry_run"`
	Collected      int        `json:"collected"`
	New            int        `json:"new"`
	StaffNotified  int        `json:"staff_notifications"`
	WorkerNotified int        `json:"worker_notifications"`
	Emailed        int        `json:"emailed"`
	EmailFailures  int        `json:"email_failures"`
	Reminders      []Reminder `json:"reminders"`
}

type ReminderService struct {
	db      *gorm.DB
	mailer  config.Mailer
	workers int
	notify  *NotificationService
}

func NewReminderService(db *gorm.DB, mailer config.Mailer) *ReminderService {
	if db == nil {
		db = config.DB
	}
	workers := config.Current.ReminderWorkers
	if workers <= 0 {
		workers = 1
	}
	return &ReminderService{db: db, mailer: mailer, workers: workers, notify: NewNotificationService(db)}
}

// Collect gathers every reminder due at now, ordered by due date.
func (s *ReminderService) Collect(now time.Time) ([]Reminder, error) {
	cs, err := NewSettingsService(s.db, nil).Get()
	if err != nil {
		return nil, err
	}

	var out []Reminder
	collectors := []func(time.Time, models.CompanySettings) ([]Reminder, error){
		s.insurance, s.ramsReviews, s.riskReviews, s.workerItems,
	}
	for _, collect := range collectors {
		items, err := collect(now, cs)
		if err != nil {
			return nil, err
		}
		out = append(out, items...)
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].DueDate, out[j].DueDate
		switch {
		case a == nil && b == nil:
			return false
		case a == nil:
			return true
		case b == nil:
			return false
		}
		return a.Before(*b)
	})
	return out, nil
}

var policyNames = map[string]string{
	models.PolicyPublicLiability:       "Public liability",
	models.PolicyEmployersLiability:    "Employers' liability",
	models.PolicyProfessionalIndemnity: "Professional indemnity",
}

func (s *ReminderService) insurance(now time.Time, cs models.CompanySettings) ([]Reminder, error) {
	var subs []models.Subcontractor
	if err := notDeleted(s.db).Where("is_active = ?", true).Find(&subs).Error; err != nil {
		return nil, err
	}
	var out []Reminder
	for i := range subs {
		st := InsuranceStatusOf(&subs[i], now, cs.InsuranceWarningDays)
		for _, p := range allPolicies {
			res := st.Policies[p]
			if res.Status != utils.ExpiryExpired && res.Status != utils.ExpiryExpiring {
				continue
			}
			verb := "expires"
			if res.Status == utils.ExpiryExpired {
				verb = "expired"
			}
			out = append(out, Reminder{
				Kind:          ReminderInsurance,
				Status:        res.Status,
				SubjectType:   "subcontractor",
				SubjectID:     strconv.Itoa(subs[i].SubcontractorID) + "/" + p,
				SubjectName:   subs[i].CompanyName,
				Detail:        fmt.Sprintf("%s insurance %s %s", policyNames[p], verb, utils.FormatUKDatePtr(res.Date)),
				DueDate:       res.Date,
				DaysRemaining: res.DaysRemaining,
			})
		}
	}
	return out, nil
}

func reviewReminder(kind, subjectType, id, name string, review *time.Time, now time.Time, warn int) (Reminder, bool) {
	res := utils.ClassifyReview(review, now, warn)
	if res.Status != utils.ReviewOverdue && res.Status != utils.ReviewDueSoon {
		return Reminder{}, false
	}
	detail := "Review due " + utils.FormatUKDatePtr(res.Date)
	if res.Status == utils.ReviewOverdue {
		detail = "Review overdue since " + utils.FormatUKDatePtr(res.Date)
	}
	return Reminder{
		Kind:          kind,
		Status:        res.Status,
		SubjectType:   subjectType,
		SubjectID:     id,
		SubjectName:   name,
		Detail:        detail,
		DueDate:       res.Date,
		DaysRemaining: res.DaysRemaining,
	}, true
}

func (s *ReminderService) ramsReviews(now time.Time, cs models.CompanySettings) ([]Reminder, error) {
	var rows []models.Rams
	if err := notDeleted(s.db).Select("rams_id, reference, title, review_date").
		Where("status = ? AND review_date IS NOT NULL", models.RamsStatusApproved).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	var out []Reminder
	for _, r := range rows {
		if rem, ok := reviewReminder(ReminderRamsReview, "rams", strconv.Itoa(r.RamsID),
			r.Reference+" "+r.Title, r.ReviewDate, now, cs.ReviewWarningDays); ok {
			out = append(out, rem)
		}
	}
	return out, nil
}

func (s *ReminderService) riskReviews(now time.Time, cs models.CompanySettings) ([]Reminder, error) {
	var rows []models.RiskAssessment
	if err := notDeleted(s.db).Select("risk_assessment_id, reference, title, review_date").
		Where("status = ? AND review_date IS NOT NULL", models.RiskStatusPublished).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	var out []Reminder
	for _, ra := range rows {
		if rem, ok := reviewReminder(ReminderRiskReview, "risk_assessment", strconv.Itoa(ra.RiskAssessmentID),
			ra.Reference+" "+ra.Title, ra.ReviewDate, now, cs.ReviewWarningDays); ok {
			out = append(out, rem)
		}
	}
	return out, nil
}

// workerItems covers CSCS cards and health questionnaires of active workers.
func (s *ReminderService) workerItems(now time.Time, cs models.CompanySettings) ([]Reminder, error) {
	var workers []models.User
	if err := notDeleted(s.db).
		Where("user_type = ? AND is_active = ?", models.UserTypeWorker, true).
		Find(&workers).Error; err != nil {
		return nil, err
	}
	if len(workers) == 0 {
		return nil, nil
	}
	ids := make([]int, 0, len(workers))
	for _, w := range workers {
		ids = append(ids, w.UserID)
	}

	var profiles []models.WorkerProfile
	if err := s.db.Where("user_id IN ?", ids).Find(&profiles).Error; err != nil {
		return nil, err
	}
	byUser := make(map[int]models.WorkerProfile, len(profiles))
	for _, p := range profiles {
		byUser[p.UserID] = p
	}
	latest, err := NewWorkerService(s.db).latestHealth(ids)
	if err != nil {
		return nil, err
	}

	var out []Reminder
	for _, w := range workers {
		id := strconv.Itoa(w.UserID)
		if p, ok := byUser[w.UserID]; ok {
			res := utils.ClassifyExpiry(p.CSCSExpiry, now, cs.CSCSWarningDays)
			if res.Status == utils.ExpiryExpired || res.Status == utils.ExpiryExpiring {
				verb := "expires"
				if res.Status == utils.ExpiryExpired {
					verb = "expired"
				}
				out = append(out, Reminder{
					Kind:          ReminderCSCS,
					Status:        res.Status,
					SubjectType:   "worker",
					SubjectID:     id,
					SubjectName:   w.FullName(),
					Detail:        fmt.Sprintf("CSCS card %s %s", verb, utils.FormatUKDatePtr(res.Date)),
					DueDate:       res.Date,
					DaysRemaining: res.DaysRemaining,
					WorkerID:      w.UserID,
				})
			}
		}

		hs := healthStatusOf(latest[w.UserID], now, cs.HealthDueSoonDays)
		if hs.Status == utils.DueCurrent {
			continue
		}
		detail := "Health questionnaire due " + utils.FormatUKDatePtr(hs.Date)
		if hs.LastSubmittedAt == nil {
			detail = "Health questionnaire never completed"
		}
		out = append(out, Reminder{
			Kind:          ReminderHealth,
			Status:        hs.Status,
			SubjectType:   "worker",
			SubjectID:     id,
			SubjectName:   w.FullName(),
			Detail:        detail,
			DueDate:       hs.Date,
			DaysRemaining: hs.DaysRemaining,
			WorkerID:      w.UserID,
		})
	}
	return out, nil
}

// Run collects reminders, notifies staff and affected workers once per
// occurrence and e-mails a digest of the new ones. Mail failures are logged.
func (s *ReminderService) Run(ctx context.Context, now time.Time, dryRun bool) (*RunSummary, error) {
	reminders, err := s.Collect(now)
	if err != nil {
		return nil, err
	}
	sum := &RunSummary{DryRun: dryRun, Collected: len(reminders), Reminders: reminders}
	if dryRun {
		return sum, nil
	}

	staff, err := NewUserService(s.db).ActiveStaff()
	if err != nil {
		return nil, err
	}
	staffIDs := make([]int, 0, len(staff))
	for _, u := range staff {
		staffIDs = append(staffIDs, u.UserID)
	}

	var fresh []Reminder
	for _, r := range reminders {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		key := r.DedupeKey()
		created, err := s.notify.Notify(staffIDs, Message{
			Title:       reminderTitle(r),
			Body:        r.SubjectName + ": " + r.Detail,
			Type:        reminderType(r.Status),
			Category:    "reminder",
			RelatedType: r.SubjectType,
			RelatedID:   r.SubjectID,
			DedupeKey:   key,
		})
		if err != nil {
			return sum, err
		}
		sum.StaffNotified += created
		if created > 0 || len(staffIDs) == 0 {
			fresh = append(fresh, r)
		}

		if r.WorkerID > 0 {
			n, err := s.notify.Notify([]int{r.WorkerID}, Message{
				Title:       reminderTitle(r),
				Body:        r.Detail,
				Type:        reminderType(r.Status),
				Category:    "reminder",
				RelatedType: r.SubjectType,
				RelatedID:   r.SubjectID,
				DedupeKey:   "self:" + key,
			})
			if err != nil {
				return sum, err
			}
			sum.WorkerNotified += n
		}
	}
	sum.New = len(fresh)

	if len(fresh) > 0 && s.mailer != nil {
		s.sendDigest(ctx, fresh, staff, now, sum)
	}

	log.WithFields(log.Fields{
		"collected":      sum.Collected,
		"new":            sum.New,
		"staff_notified": sum.StaffNotified,
		"emailed":        sum.Emailed,
		"email_failures": sum.EmailFailures,
	}).Info("reminder run finished")
	return sum, nil
}

func (s *ReminderService) sendDigest(ctx context.Context, items []Reminder, staff []models.User, now time.Time, sum *RunSummary) {
	cs, err := NewSettingsService(s.db, nil).Get()
	if err != nil {
		log.WithError(err).Warn("reminder digest skipped: settings unavailable")
		return
	}
	recipients := cs.Recipients()
	if len(recipients) == 0 {
		for _, u := range staff {
			recipients = append(recipients, u.Email)
		}
	}
	if len(recipients) == 0 {
		return
	}

	subject := fmt.Sprintf("%s: %d compliance reminder(s)", cs.CompanyName, len(items))
	html, err := RenderEmail(subject, DigestMarkdown(cs.CompanyName, items, now), "Sent automatically by "+cs.CompanyName)
	if err != nil {
		log.WithError(err).Warn("reminder digest render failed")
		return
	}

	results := make([]error, len(recipients))
	eg, egCtx := errgroup.WithContext(persistentContext(ctx))
	eg.SetLimit(s.workers)
	for i, to := range recipients {
		i, to := i, to
		eg.Go(func() error {
			if egCtx.Err() != nil {
				results[i] = egCtx.Err()
				return nil
			}
			results[i] = s.mailer.Send([]string{to}, subject, html)
			return nil
		})
	}
	_ = eg.Wait()

	for i, err := range results {
		if err != nil {
			sum.EmailFailures++
			log.WithError(err).WithField("to", recipients[i]).Warn("reminder digest send failed")
			continue
		}
		sum.Emailed++
	}
}

func reminderTitle(r Reminder) string {
	switch r.Kind {
	case ReminderInsurance:
		return "Insurance " + r.Status
	case ReminderRamsReview:
		return "RAMS review " + strings.ReplaceAll(r.Status, "_", " ")
	case ReminderRiskReview:
		return "Risk assessment review " + strings.ReplaceAll(r.Status, "_", " ")
	case ReminderCSCS:
		return "CSCS card " + r.Status
	case ReminderHealth:
		return "Health questionnaire " + strings.ReplaceAll(r.Status, "_", " ")
	}
	return "Reminder"
}

func reminderType(status string) string {
	switch status {
	case utils.ExpiryExpired, utils.ReviewOverdue, utils.DueNow:
		return NotifyError
	}
	return NotifyWarning
}

// persistentContext detaches ctx from cancellation so a digest that has
// started is delivered even if the caller goes away.
func persistentContext(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return context.WithoutCancel(ctx)
}
