package services

import (
	"fmt"
	"strconv"
	"time"

	"sitesafe-api/config"
	"sitesafe-api/models"
	"sitesafe-api/utils"
	"sitesafe-api/wizard"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const ramsReferencePrefix = "RAMS"

// RamsView is a RAMS record with derived review and wizard state.
type RamsView struct {
	models.Rams
	ReviewStatus utils.ExpiryResult `json:"review_status"`
	Progress     WizardProgress     `json:"progress"`
}

type RamsFilter struct {
	Status       string
	SiteID       string
	ReviewStatus string
	Page         Page
}

type RamsService struct {
	db       *gorm.DB
	settings *SettingsService
	notify   *NotificationService
}

func NewRamsService(db *gorm.DB) *RamsService {
	if db == nil {
		db = config.DB
	}
	return &RamsService{db: db, settings: NewSettingsService(db, nil), notify: NewNotificationService(db)}
}

func (s *RamsService) reviewWarnDays() int {
	cs, err := s.settings.Get()
	if err != nil || cs.ReviewWarningDays <= 0 {
		return models.DefaultCompanySettings().ReviewWarningDays
	}
	return cs.ReviewWarningDays
}

func (s *RamsService) view(r models.Rams, now time.Time, warn int) RamsView {
	return RamsView{
		Rams:         r,
		ReviewStatus: utils.ClassifyReview(r.ReviewDate, now, warn),
		Progress:     progressOf(wizard.Rams, &r.WizardState),
	}
}

// Create starts a draft from a valid project details payload.
func (s *RamsService) Create(payload map[string]interface{}, userID int, now time.Time) (*models.Rams, error) {
	r := &models.Rams{Status: models.RamsStatusDraft, PreparedBy: userID, WizardState: models.WizardState{CurrentStep: 1}}
	if _, err := applyStep(wizard.Rams, &r.WizardState, 1, payload); err != nil {
		return nil, err
	}
	if err := s.mirror(r); err != nil {
		return nil, err
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		ref, err := nextReference(tx, &models.Rams{}, ramsReferencePrefix, now.Year())
		if err != nil {
			return err
		}
		r.Reference = ref
		return tx.Create(r).Error
	})
	if err != nil {
		return nil, fmt.Errorf("create rams: %w", err)
	}
	return r, nil
}

// mirror copies the searchable fields out of the step payloads.
func (s *RamsService) mirror(r *models.Rams) error {
	if p := r.StepPayload(wizard.RamsStepProjectDetails); p != nil {
		r.Title = wizard.String(p, "title")

		r.SiteID = nil
		if id := wizard.String(p, "site_id"); id != "" {
			if err := s.requireSite(id); err != nil {
				return err
			}
			r.SiteID = &id
		}

		r.SubcontractorID = nil
		if id := wizard.Number(p, "subcontractor_id"); id > 0 {
			var n int64
			if err := notDeleted(s.db.Model(&models.Subcontractor{})).Where("subcontractor_id = ?", id).Count(&n).Error; err != nil {
				return err
			}
			if n == 0 {
				return invalid("subcontractor_id", "Unknown subcontractor")
			}
			r.SubcontractorID = &id
		}
	}
	if p := r.StepPayload(wizard.RamsStepMonitoring); p != nil {
		if d, err := utils.ParseDate(wizard.String(p, "review_date")); err == nil {
			r.ReviewDate = d
		}
	}
	return nil
}

func (s *RamsService) requireSite(id string) error {
	var n int64
	if err := notDeleted(s.db.Model(&models.Site{})).Where("site_id = ?", id).Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		return invalid("site_id", "Unknown site")
	}
	return nil
}

func (s *RamsService) find(id int) (*models.Rams, error) {
	var r models.Rams
	if err := notDeleted(s.db).Where("rams_id = ?", id).First(&r).Error; err != nil {
		return nil, notFound(err)
	}
	return &r, nil
}

func (s *RamsService) Get(id int, now time.Time) (*RamsView, error) {
	r, err := s.find(id)
	if err != nil {
		return nil, err
	}
	v := s.view(*r, now, s.reviewWarnDays())
	return &v, nil
}

func (s *RamsService) List(f RamsFilter, now time.Time) ([]RamsView, int64, error) {
	q := notDeleted(s.db.Model(&models.Rams{}))
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.SiteID != "" {
		q = q.Where("site_id = ?", f.SiteID)
	}
	q = q.Order("update_at DESC")
	warn := s.reviewWarnDays()

	if f.ReviewStatus != "" {
		var rows []models.Rams
		if err := q.Find(&rows).Error; err != nil {
			return nil, 0, err
		}
		var matched []RamsView
		for _, r := range rows {
			if v := s.view(r, now, warn); v.ReviewStatus.Status == f.ReviewStatus {
				matched = append(matched, v)
			}
		}
		return pageSlice(matched, f.Page), int64(len(matched)), nil
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var rows []models.Rams
	if err := f.Page.apply(q).Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	out := make([]RamsView, 0, len(rows))
	for _, r := range rows {
		out = append(out, s.view(r, now, warn))
	}
	return out, total, nil
}

// SaveStep validates and stores step n. Editing a rejected RAMS returns it to draft.
func (s *RamsService) SaveStep(id, n int, payload map[string]interface{}, now time.Time) (*RamsView, error) {
	r, err := s.find(id)
	if err != nil {
		return nil, err
	}
	if !r.Editable() {
		return nil, ErrNotEditable
	}
	if _, err := applyStep(wizard.Rams, &r.WizardState, n, payload); err != nil {
		return nil, err
	}
	if err := s.mirror(r); err != nil {
		return nil, err
	}
	r.Status = models.RamsStatusDraft

	if err := s.db.Save(r).Error; err != nil {
		return nil, fmt.Errorf("save rams step: %w", err)
	}
	v := s.view(*r, now, s.reviewWarnDays())
	return &v, nil
}

func (s *RamsService) Submit(id int, now time.Time) (*models.Rams, error) {
	r, err := s.find(id)
	if err != nil {
		return nil, err
	}
	if !r.Editable() {
		return nil, ErrInvalidTransition
	}
	if missing := wizard.Rams.Missing(r.Completed()); len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing steps %v", ErrIncomplete, missing)
	}
	if err := checkSaved(wizard.Rams, &r.WizardState); err != nil {
		return nil, err
	}
	if err := s.transition(r, map[string]interface{}{
		"status":           models.RamsStatusSubmitted,
		"submitted_at":     now,
		"rejection_reason": "",
	}, models.RamsStatusDraft, models.RamsStatusRejected); err != nil {
		return nil, err
	}
	r.Status = models.RamsStatusSubmitted
	r.SubmittedAt = &now
	r.RejectionReason = ""

	s.notifyStaff(r, "RAMS submitted for approval", fmt.Sprintf("%s %s is ready for review.", r.Reference, r.Title), NotifyInfo)
	return r, nil
}

func (s *RamsService) Approve(id, approverID int, now time.Time) (*models.Rams, error) {
	r, err := s.find(id)
	if err != nil {
		return nil, err
	}
	if err := s.transition(r, map[string]interface{}{
		"status":      models.RamsStatusApproved,
		"approved_by": approverID,
		"approved_at": now,
	}, models.RamsStatusSubmitted); err != nil {
		return nil, err
	}
	r.Status = models.RamsStatusApproved
	r.ApprovedBy = &approverID
	r.ApprovedAt = &now

	s.notifyPreparer(r, "RAMS approved", fmt.Sprintf("%s %s has been approved.", r.Reference, r.Title), NotifySuccess)
	return r, nil
}

func (s *RamsService) Reject(id int, reason string) (*models.Rams, error) {
	reason = trimmed(reason)
	if reason == "" {
		return nil, invalid("reason", "A reason is required")
	}
	r, err := s.find(id)
	if err != nil {
		return nil, err
	}
	if err := s.transition(r, map[string]interface{}{
		"status":           models.RamsStatusRejected,
		"rejection_reason": reason,
	}, models.RamsStatusSubmitted); err != nil {
		return nil, err
	}
	r.Status = models.RamsStatusRejected
	r.RejectionReason = reason

	s.notifyPreparer(r, "RAMS rejected", fmt.Sprintf("%s %s was rejected: %s", r.Reference, r.Title, reason), NotifyWarning)
	return r, nil
}

func (s *RamsService) Archive(id int) (*models.Rams, error) {
	r, err := s.find(id)
	if err != nil {
		return nil, err
	}
	if err := s.transition(r, map[string]interface{}{"status": models.RamsStatusArchived},
		models.RamsStatusSubmitted, models.RamsStatusApproved, models.RamsStatusRejected); err != nil {
		return nil, err
	}
	r.Status = models.RamsStatusArchived
	return r, nil
}

// Delete soft deletes a draft.
func (s *RamsService) Delete(id int) error {
	r, err := s.find(id)
	if err != nil {
		return err
	}
	return s.transition(r, map[string]interface{}{"delete_at": time.Now()}, models.RamsStatusDraft)
}

// transition applies updates only while the row is still in one of from.
func (s *RamsService) transition(r *models.Rams, updates map[string]interface{}, from ...string) error {
	if !containsString(from, r.Status) {
		return fmt.Errorf("%w: %s", ErrInvalidTransition, r.Status)
	}
	res := s.db.Model(&models.Rams{}).
		Where("rams_id = ? AND status IN ?", r.RamsID, from).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: changed concurrently", ErrConflict)
	}
	return nil
}

func (s *RamsService) notifyStaff(r *models.Rams, title, body, typ string) {
	if _, err := s.notify.NotifyStaff(Message{
		Title: title, Body: body, Type: typ, Category: "rams",
		RelatedType: "rams", RelatedID: strconv.Itoa(r.RamsID),
	}); err != nil {
		log.WithError(err).WithField("rams_id", r.RamsID).Warn("rams staff notification failed")
	}
}

func (s *RamsService) notifyPreparer(r *models.Rams, title, body, typ string) {
	if _, err := s.notify.Notify([]int{r.PreparedBy}, Message{
		Title: title, Body: body, Type: typ, Category: "rams",
		RelatedType: "rams", RelatedID: strconv.Itoa(r.RamsID),
	}); err != nil {
		log.WithError(err).WithField("rams_id", r.RamsID).Warn("rams notification failed")
	}
}
