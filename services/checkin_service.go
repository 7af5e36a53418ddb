package services

import (
	"errors"
	"fmt"
	"time"

	"sitesafe-api/config"
	"sitesafe-api/models"
	"sitesafe-api/utils"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// reportRowLimit caps how many logs a PDF report pulls in.
const reportRowLimit = 5000

// CheckinResult describes a successful check-in.
type CheckinResult struct {
	Log        models.SiteLog      `json:"log"`
	Site       models.Site         `json:"site"`
	Source     string              `json:"source"`
	AutoClosed *models.SiteLog     `json:"auto_closed,omitempty"`
	Health     *utils.ExpiryResult `json:"health,omitempty"`
}

type SiteLogFilter struct {
	SiteID   string
	WorkerID int
	From     *time.Time
	To       *time.Time
	Open     *bool
	Page     Page
}

type CheckinService struct {
	db       *gorm.DB
	sites    *SiteService
	health   *HealthService
	settings *SettingsService
}

func NewCheckinService(db *gorm.DB, bank *QuestionBank) *CheckinService {
	if db == nil {
		db = config.DB
	}
	return &CheckinService{
		db:       db,
		sites:    NewSiteService(db),
		health:   NewHealthService(db, bank),
		settings: NewSettingsService(db, nil),
	}
}

// CheckIn resolves the scanned payload to an active site and opens a visit.
// An open visit at a different site is closed automatically first.
func (s *CheckinService) CheckIn(workerID int, rawPayload string, now time.Time) (*CheckinResult, error) {
	payload, err := utils.ParseSitePayload(rawPayload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidQRPayload, err)
	}
	site, err := s.sites.GetActive(payload.SiteID)
	if err != nil {
		return nil, err
	}

	result := &CheckinResult{Site: *site, Source: payload.Source}

	cs, err := s.settings.Get()
	if err != nil {
		return nil, err
	}
	if cs.RequireHealthCheck {
		status, err := s.health.Status(workerID, now)
		if err != nil {
			return nil, err
		}
		if status.Status == utils.DueNow {
			return nil, ErrHealthCheckRequired
		}
		result.Health = &status.ExpiryResult
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		var open models.SiteLog
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("worker_id = ? AND check_out_at IS NULL", workerID).
			Order("check_in_at DESC").
			First(&open).Error
		switch {
		case err == nil && open.SiteID == site.SiteID:
			return ErrAlreadyCheckedIn
		case err == nil:
			if err := tx.Model(&models.SiteLog{}).
				Where("site_log_id = ?", open.SiteLogID).
				Updates(map[string]interface{}{
					"check_out_at":     now,
					"check_out_method": models.CheckMethodAuto,
					"notes":            "Closed automatically on check-in at " + site.Name,
				}).Error; err != nil {
				return err
			}
			open.CheckOutAt = &now
			open.CheckOutMethod = models.CheckMethodAuto
			result.AutoClosed = &open
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return err
		}

		result.Log = models.SiteLog{
			SiteID:    site.SiteID,
			WorkerID:  workerID,
			CheckInAt: now,
			Method:    models.CheckMethodQR,
		}
		return tx.Omit(clause.Associations).Create(&result.Log).Error
	})
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{"worker_id": workerID, "site_id": site.SiteID, "source": payload.Source}).Info("worker checked in")
	return result, nil
}

// CheckOut closes the worker's open visit. A payload, when given, must point
// at the same site.
func (s *CheckinService) CheckOut(workerID int, rawPayload string, now time.Time) (*models.SiteLog, error) {
	current, err := s.Current(workerID)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, ErrNotCheckedIn
	}
	if rawPayload != "" {
		payload, err := utils.ParseSitePayload(rawPayload)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidQRPayload, err)
		}
		if payload.SiteID != current.SiteID {
			return nil, fmt.Errorf("%w: you are checked in at a different site", ErrConflict)
		}
	}
	if err := s.close(current, now, models.CheckMethodQR, nil, ""); err != nil {
		return nil, err
	}
	return current, nil
}

// ManualCheckOut lets staff close a visit the worker forgot to end.
func (s *CheckinService) ManualCheckOut(logID, staffID int, notes string, now time.Time) (*models.SiteLog, error) {
	var l models.SiteLog
	if err := s.db.Where("site_log_id = ?", logID).First(&l).Error; err != nil {
		return nil, notFound(err)
	}
	if !l.IsOpen() {
		return nil, ErrNotCheckedIn
	}
	if err := s.close(&l, now, models.CheckMethodManual, &staffID, trimmed(notes)); err != nil {
		return nil, err
	}
	return &l, nil
}

func (s *CheckinService) close(l *models.SiteLog, now time.Time, method string, by *int, notes string) error {
	updates := map[string]interface{}{
		"check_out_at":     now,
		"check_out_method": method,
		"checked_out_by":   by,
	}
	if notes != "" {
		updates["notes"] = notes
	}
	res := s.db.Model(&models.SiteLog{}).
		Where("site_log_id = ? AND check_out_at IS NULL", l.SiteLogID).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotCheckedIn
	}
	l.CheckOutAt = &now
	l.CheckOutMethod = method
	l.CheckedOutBy = by
	if notes != "" {
		l.Notes = notes
	}
	return nil
}

// Current returns the worker's open visit, or nil.
func (s *CheckinService) Current(workerID int) (*models.SiteLog, error) {
	var l models.SiteLog
	err := s.db.Preload("Site").
		Where("worker_id = ? AND check_out_at IS NULL", workerID).
		Order("check_in_at DESC").
		First(&l).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (s *CheckinService) filtered(f SiteLogFilter) *gorm.DB {
	q := s.db.Model(&models.SiteLog{})
	if f.SiteID != "" {
		q = q.Where("site_id = ?", f.SiteID)
	}
	if f.WorkerID > 0 {
		q = q.Where("worker_id = ?", f.WorkerID)
	}
	if f.From != nil {
		q = q.Where("check_in_at >= ?", *f.From)
	}
	if f.To != nil {
		q = q.Where("check_in_at < ?", *f.To)
	}
	if f.Open != nil {
		if *f.Open {
			q = q.Where("check_out_at IS NULL")
		} else {
			q = q.Where("check_out_at IS NOT NULL")
		}
	}
	return q
}

func (s *CheckinService) List(f SiteLogFilter) ([]models.SiteLog, int64, error) {
	q := s.filtered(f)
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var logs []models.SiteLog
	if err := f.Page.apply(q.Preload("Site").Preload("Worker").Order("check_in_at DESC")).Find(&logs).Error; err != nil {
		return nil, 0, err
	}
	return logs, total, nil
}

// Report loads every matching log, oldest first, for the PDF report.
func (s *CheckinService) Report(f SiteLogFilter) ([]models.SiteLog, error) {
	var logs []models.SiteLog
	err := s.filtered(f).
		Preload("Site").Preload("Worker").
		Order("check_in_at").
		Limit(reportRowLimit).
		Find(&logs).Error
	return logs, err
}
