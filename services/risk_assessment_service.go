package services

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"time"

	"sitesafe-api/config"
	"sitesafe-api/models"
	"sitesafe-api/storage"
	"sitesafe-api/utils"
	"sitesafe-api/wizard"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const riskReferencePrefix = "RA"

var pngMagic = []byte("\x89PNG\r\n\x1a\n")

// RiskAssessmentView is an assessment with its derived review state and
// rated hazards.
type RiskAssessmentView struct {
	models.RiskAssessment
	ReviewStatus utils.ExpiryResult    `json:"review_status"`
	Progress     WizardProgress        `json:"progress"`
	Hazards      []wizard.ScoredHazard `json:"hazards"`
	Signed       *bool                 `json:"signed,omitempty"`
}

type RiskAssessmentFilter struct {
	Status       string
	SiteID       string
	ReviewStatus string
	Page         Page
}

type RiskAssessmentService struct {
	db       *gorm.DB
	files    *FileService
	settings *SettingsService
	notify   *NotificationService
}

func NewRiskAssessmentService(db *gorm.DB, store storage.Store) *RiskAssessmentService {
	if db == nil {
		db = config.DB
	}
	return &RiskAssessmentService{
		db:       db,
		files:    NewFileService(db, store),
		settings: NewSettingsService(db, store),
		notify:   NewNotificationService(db),
	}
}

func (s *RiskAssessmentService) reviewWarnDays() int {
	cs, err := s.settings.Get()
	if err != nil || cs.ReviewWarningDays <= 0 {
		return models.DefaultCompanySettings().ReviewWarningDays
	}
	return cs.ReviewWarningDays
}

func (s *RiskAssessmentService) view(ra models.RiskAssessment, now time.Time, warn int) RiskAssessmentView {
	return RiskAssessmentView{
		RiskAssessment: ra,
		ReviewStatus:   utils.ClassifyReview(ra.ReviewDate, now, warn),
		Progress:       progressOf(wizard.RiskAssessment, &ra.WizardState),
		Hazards:        wizard.ScoreHazards(stepPayloads(&ra.WizardState)),
	}
}

func (s *RiskAssessmentService) Create(payload map[string]interface{}, userID int, now time.Time) (*models.RiskAssessment, error) {
	ra := &models.RiskAssessment{Status: models.RiskStatusDraft, CreatedBy: userID, WizardState: models.WizardState{CurrentStep: 1}}
	if _, err := applyStep(wizard.RiskAssessment, &ra.WizardState, 1, payload); err != nil {
		return nil, err
	}
	if err := s.mirror(ra); err != nil {
		return nil, err
	}
	err := s.db.Transaction(func(tx *gorm.DB) error {
		ref, err := nextReference(tx, &models.RiskAssessment{}, riskReferencePrefix, now.Year())
		if err != nil {
			return err
		}
		ra.Reference = ref
		return tx.Create(ra).Error
	})
	if err != nil {
		return nil, fmt.Errorf("create risk assessment: %w", err)
	}
	return ra, nil
}

func (s *RiskAssessmentService) mirror(ra *models.RiskAssessment) error {
	if p := ra.StepPayload(wizard.RiskStepDetails); p != nil {
		id := wizard.String(p, "site_id")
		var n int64
		if err := notDeleted(s.db.Model(&models.Site{})).Where("site_id = ?", id).Count(&n).Error; err != nil {
			return err
		}
		if n == 0 {
			return invalid("site_id", "Unknown site")
		}
		ra.SiteID = &id
		ra.Title = wizard.String(p, "title")
		ra.Activity = wizard.String(p, "activity")
		ra.Assessor = wizard.String(p, "assessor")
		if d, err := utils.ParseDate(wizard.String(p, "assessment_date")); err == nil {
			ra.AssessmentDate = d
		}
	}
	if p := ra.StepPayload(wizard.RiskStepPPE); p != nil {
		if d, err := utils.ParseDate(wizard.String(p, "review_date")); err == nil {
			ra.ReviewDate = d
		}
	}
	return nil
}

func (s *RiskAssessmentService) find(id int) (*models.RiskAssessment, error) {
	var ra models.RiskAssessment
	if err := notDeleted(s.db).Where("risk_assessment_id = ?", id).First(&ra).Error; err != nil {
		return nil, notFound(err)
	}
	return &ra, nil
}

func (s *RiskAssessmentService) Get(id int, now time.Time) (*RiskAssessmentView, error) {
	ra, err := s.find(id)
	if err != nil {
		return nil, err
	}
	v := s.view(*ra, now, s.reviewWarnDays())
	return &v, nil
}

func (s *RiskAssessmentService) List(f RiskAssessmentFilter, now time.Time) ([]RiskAssessmentView, int64, error) {
	q := notDeleted(s.db.Model(&models.RiskAssessment{}))
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.SiteID != "" {
		q = q.Where("site_id = ?", f.SiteID)
	}
	q = q.Order("update_at DESC")
	warn := s.reviewWarnDays()

	var rows []models.RiskAssessment
	var total int64
	if f.ReviewStatus == "" {
		if err := q.Count(&total).Error; err != nil {
			return nil, 0, err
		}
		q = f.Page.apply(q)
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, 0, err
	}

	out := make([]RiskAssessmentView, 0, len(rows))
	for _, ra := range rows {
		v := s.view(ra, now, warn)
		if f.ReviewStatus != "" && v.ReviewStatus.Status != f.ReviewStatus {
			continue
		}
		out = append(out, v)
	}
	if f.ReviewStatus != "" {
		return pageSlice(out, f.Page), int64(len(out)), nil
	}
	return out, total, nil
}

func (s *RiskAssessmentService) SaveStep(id, n int, payload map[string]interface{}, now time.Time) (*RiskAssessmentView, error) {
	ra, err := s.find(id)
	if err != nil {
		return nil, err
	}
	if ra.Status != models.RiskStatusDraft {
		return nil, ErrNotEditable
	}
	if _, err := applyStep(wizard.RiskAssessment, &ra.WizardState, n, payload); err != nil {
		return nil, err
	}
	if err := s.mirror(ra); err != nil {
		return nil, err
	}
	if err := s.db.Save(ra).Error; err != nil {
		return nil, fmt.Errorf("save risk assessment step: %w", err)
	}
	v := s.view(*ra, now, s.reviewWarnDays())
	return &v, nil
}

// Publish makes a complete draft visible to the workers of its site.
func (s *RiskAssessmentService) Publish(id int, now time.Time) (*models.RiskAssessment, error) {
	ra, err := s.find(id)
	if err != nil {
		return nil, err
	}
	if ra.Status != models.RiskStatusDraft {
		return nil, ErrInvalidTransition
	}
	if missing := wizard.RiskAssessment.Missing(ra.Completed()); len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing steps %v", ErrIncomplete, missing)
	}
	if err := checkSaved(wizard.RiskAssessment, &ra.WizardState); err != nil {
		return nil, err
	}
	if err := s.transition(ra.RiskAssessmentID, map[string]interface{}{
		"status":       models.RiskStatusPublished,
		"published_at": now,
	}, models.RiskStatusDraft); err != nil {
		return nil, err
	}
	ra.Status = models.RiskStatusPublished
	ra.PublishedAt = &now

	s.notifySiteWorkers(ra)
	return ra, nil
}

func (s *RiskAssessmentService) Archive(id int) (*models.RiskAssessment, error) {
	ra, err := s.find(id)
	if err != nil {
		return nil, err
	}
	if ra.Status != models.RiskStatusPublished {
		return nil, ErrInvalidTransition
	}
	if err := s.transition(id, map[string]interface{}{"status": models.RiskStatusArchived}, models.RiskStatusPublished); err != nil {
		return nil, err
	}
	ra.Status = models.RiskStatusArchived
	return ra, nil
}

func (s *RiskAssessmentService) Delete(id int) error {
	ra, err := s.find(id)
	if err != nil {
		return err
	}
	if ra.Status != models.RiskStatusDraft {
		return ErrInvalidTransition
	}
	return s.transition(id, map[string]interface{}{"delete_at": time.Now()}, models.RiskStatusDraft)
}

func (s *RiskAssessmentService) transition(id int, updates map[string]interface{}, from string) error {
	res := s.db.Model(&models.RiskAssessment{}).
		Where("risk_assessment_id = ? AND status = ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: changed concurrently", ErrConflict)
	}
	return nil
}

func (s *RiskAssessmentService) Signatures(id int) ([]models.RiskAssessmentSignature, error) {
	var sigs []models.RiskAssessmentSignature
	err := s.db.Where("risk_assessment_id = ?", id).Order("signed_at").Find(&sigs).Error
	return sigs, err
}

// ForWorker lists the published assessments of every site the worker has
// checked in at, flagging the ones already signed.
func (s *RiskAssessmentService) ForWorker(workerID int, pendingOnly bool, now time.Time) ([]RiskAssessmentView, error) {
	var rows []models.RiskAssessment
	err := notDeleted(s.db).
		Where("status = ?", models.RiskStatusPublished).
		Where("site_id IN (?)", s.db.Model(&models.SiteLog{}).Distinct("site_id").Where("worker_id = ?", workerID)).
		Order("published_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	signed, err := s.signedBy(workerID)
	if err != nil {
		return nil, err
	}

	warn := s.reviewWarnDays()
	out := make([]RiskAssessmentView, 0, len(rows))
	for _, ra := range rows {
		done := signed[ra.RiskAssessmentID]
		if pendingOnly && done {
			continue
		}
		v := s.view(ra, now, warn)
		v.Signed = &done
		out = append(out, v)
	}
	return out, nil
}

// GetForWorker returns one published assessment with the worker's signed flag.
func (s *RiskAssessmentService) GetForWorker(id, workerID int, now time.Time) (*RiskAssessmentView, error) {
	ra, err := s.find(id)
	if err != nil {
		return nil, err
	}
	if ra.Status != models.RiskStatusPublished {
		return nil, ErrNotFound
	}
	if err := s.requireVisit(ra, workerID); err != nil {
		return nil, err
	}
	signed, err := s.signedBy(workerID)
	if err != nil {
		return nil, err
	}
	done := signed[id]
	v := s.view(*ra, now, s.reviewWarnDays())
	v.Signed = &done
	return &v, nil
}

// requireVisit hides assessments of sites the worker has never checked in at.
func (s *RiskAssessmentService) requireVisit(ra *models.RiskAssessment, workerID int) error {
	if ra.SiteID == nil {
		return ErrNotFound
	}
	var visits int64
	if err := s.db.Model(&models.SiteLog{}).
		Where("worker_id = ? AND site_id = ?", workerID, *ra.SiteID).
		Count(&visits).Error; err != nil {
		return err
	}
	if visits == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *RiskAssessmentService) signedBy(workerID int) (map[int]bool, error) {
	var ids []int
	if err := s.db.Model(&models.RiskAssessmentSignature{}).
		Where("worker_id = ?", workerID).
		Pluck("risk_assessment_id", &ids).Error; err != nil {
		return nil, err
	}
	out := make(map[int]bool, len(ids))
	for _, id := range ids {
		out[id] = true
	}
	return out, nil
}

// SignInput is a worker's acknowledgement of an assessment.
type SignInput struct {
	Signature    string `json:"signature"`
	SignerName   string `json:"signer_name"`
	Acknowledged bool   `json:"acknowledged"`
}

// DecodeSignature extracts the PNG bytes from a data URL.
func DecodeSignature(dataURL string) ([]byte, error) {
	const prefix = "data:image/png;base64,"
	dataURL = strings.TrimSpace(dataURL)
	if !strings.HasPrefix(strings.ToLower(dataURL), prefix) {
		return nil, invalid("signature", "Signature must be a PNG image")
	}
	raw, err := base64.StdEncoding.DecodeString(dataURL[len(prefix):])
	if err != nil || !bytes.HasPrefix(raw, pngMagic) {
		return nil, invalid("signature", "Signature must be a PNG image")
	}
	return raw, nil
}

// Sign records the worker's signature against a published assessment.
func (s *RiskAssessmentService) Sign(ctx context.Context, id, workerID int, in SignInput, ip string, now time.Time) (*models.RiskAssessmentSignature, error) {
	errs := fieldErrors{}
	if !in.Acknowledged {
		errs.add("acknowledged", "You must confirm you have read and understood the assessment")
	}
	name := trimmed(in.SignerName)
	if name == "" {
		errs.add("signer_name", "Name is required")
	}
	png, err := DecodeSignature(in.Signature)
	if err != nil {
		errs.add("signature", "Signature must be a PNG image")
	}
	if err := errs.err(); err != nil {
		return nil, err
	}

	ra, err := s.find(id)
	if err != nil {
		return nil, err
	}
	if ra.Status != models.RiskStatusPublished {
		return nil, fmt.Errorf("%w: assessment is not published", ErrForbidden)
	}
	if err := s.requireVisit(ra, workerID); err != nil {
		return nil, err
	}

	var existing int64
	if err := s.db.Model(&models.RiskAssessmentSignature{}).
		Where("risk_assessment_id = ? AND worker_id = ?", id, workerID).
		Count(&existing).Error; err != nil {
		return nil, err
	}
	if existing > 0 {
		return nil, ErrAlreadySigned
	}

	file, err := s.files.Save(ctx, Upload{
		Bucket:       storage.BucketSignatures,
		OriginalName: fmt.Sprintf("%s-%d.png", ra.Reference, workerID),
		MimeType:     "image/png",
		Size:         int64(len(png)),
		Body:         bytes.NewReader(png),
		UploadedBy:   workerID,
	}, "image/png")
	if err != nil {
		return nil, err
	}

	sig := &models.RiskAssessmentSignature{
		RiskAssessmentID: id,
		WorkerID:         workerID,
		SignerName:       name,
		SignatureFileID:  file.FileID,
		IPAddress:        ip,
		SignedAt:         now,
	}
	if err := s.db.Create(sig).Error; err != nil {
		_ = s.files.Remove(ctx, file.FileID)
		if isDuplicateKey(err) {
			return nil, ErrAlreadySigned
		}
		return nil, fmt.Errorf("record signature: %w", err)
	}
	return sig, nil
}

func (s *RiskAssessmentService) notifySiteWorkers(ra *models.RiskAssessment) {
	if ra.SiteID == nil {
		return
	}
	var workerIDs []int
	if err := s.db.Model(&models.SiteLog{}).
		Distinct("worker_id").
		Where("site_id = ?", *ra.SiteID).
		Pluck("worker_id", &workerIDs).Error; err != nil {
		log.WithError(err).Warn("failed to load site workers")
		return
	}
	if _, err := s.notify.Notify(workerIDs, Message{
		Title:       "New risk assessment to sign",
		Body:        fmt.Sprintf("%s %s has been published for a site you work on.", ra.Reference, ra.Title),
		Type:        NotifyInfo,
		Category:    "risk_assessment",
		RelatedType: "risk_assessment",
		RelatedID:   strconv.Itoa(ra.RiskAssessmentID),
		DedupeKey:   "risk_published:" + strconv.Itoa(ra.RiskAssessmentID),
	}); err != nil {
		log.WithError(err).WithField("risk_assessment_id", ra.RiskAssessmentID).Warn("risk assessment notification failed")
	}
}
