package services

import (
	"fmt"
	"strings"
	"time"

	"sitesafe-api/config"
	"sitesafe-api/models"
	"sitesafe-api/utils"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type SiteInput struct {
	Name         string `json:"name"`
	Address      string `json:"address"`
	Postcode     string `json:"postcode"`
	ClientName   string `json:"client_name"`
	SiteManager  string `json:"site_manager"`
	ManagerPhone string `json:"manager_phone"`
	IsActive     *bool  `json:"is_active"`
	StartDate    string `json:"start_date"`
	EndDate      string `json:"end_date"`
}

type parsedSiteInput struct {
	SiteInput
	start, end *time.Time
}

func (in SiteInput) parse() (parsedSiteInput, error) {
	out := parsedSiteInput{SiteInput: in}
	out.Name = trimmed(in.Name)
	out.Address = trimmed(in.Address)
	out.Postcode = strings.ToUpper(trimmed(in.Postcode))

	errs := fieldErrors{}
	if out.Name == "" {
		errs.add("name", "Site name is required")
	}
	if out.Address == "" {
		errs.add("address", "Address is required")
	}
	if out.Postcode != "" && !utils.ValidatePostcode(out.Postcode) {
		errs.add("postcode", "Invalid postcode")
	}
	if in.ManagerPhone != "" {
		if !utils.ValidatePhone(in.ManagerPhone) {
			errs.add("manager_phone", "Invalid phone number")
		}
		out.ManagerPhone = utils.NormalizePhone(in.ManagerPhone)
	}
	var err error
	if out.start, err = utils.ParseDate(strings.TrimSpace(in.StartDate)); err != nil {
		errs.add("start_date", "Invalid date")
	}
	if out.end, err = utils.ParseDate(strings.TrimSpace(in.EndDate)); err != nil {
		errs.add("end_date", "Invalid date")
	}
	if out.start != nil && out.end != nil && out.end.Before(*out.start) {
		errs.add("end_date", "End date cannot be before the start date")
	}
	return out, errs.err()
}

func (p parsedSiteInput) apply(site *models.Site) {
	site.Name = p.Name
	site.Address = p.Address
	site.Postcode = p.Postcode
	site.ClientName = trimmed(p.ClientName)
	site.SiteManager = trimmed(p.SiteManager)
	site.ManagerPhone = p.ManagerPhone
	site.StartDate = p.start
	site.EndDate = p.end
	if p.IsActive != nil {
		site.IsActive = *p.IsActive
	}
}

type SiteService struct {
	db *gorm.DB
}

func NewSiteService(db *gorm.DB) *SiteService {
	if db == nil {
		db = config.DB
	}
	return &SiteService{db: db}
}

func (s *SiteService) List(activeOnly bool, query string, page Page) ([]models.Site, int64, error) {
	q := notDeleted(s.db.Model(&models.Site{}))
	if activeOnly {
		q = q.Where("is_active = ?", true)
	}
	if strings.TrimSpace(query) != "" {
		like := likePattern(query)
		q = q.Where("(name LIKE ? OR postcode LIKE ? OR client_name LIKE ?)", like, like, like)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var sites []models.Site
	if err := page.apply(q.Order("name")).Find(&sites).Error; err != nil {
		return nil, 0, err
	}
	return sites, total, nil
}

func (s *SiteService) Get(id string) (*models.Site, error) {
	var site models.Site
	if err := notDeleted(s.db).Where("site_id = ?", strings.ToLower(strings.TrimSpace(id))).First(&site).Error; err != nil {
		return nil, notFound(err)
	}
	return &site, nil
}

// GetActive is used by check-in: the site must exist and be open.
func (s *SiteService) GetActive(id string) (*models.Site, error) {
	site, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	if !site.IsActive {
		return nil, ErrSiteInactive
	}
	return site, nil
}

func (s *SiteService) Create(in SiteInput) (*models.Site, error) {
	p, err := in.parse()
	if err != nil {
		return nil, err
	}
	site := &models.Site{SiteID: uuid.NewString(), IsActive: true}
	p.apply(site)
	if err := s.db.Create(site).Error; err != nil {
		return nil, fmt.Errorf("create site: %w", err)
	}
	return site, nil
}

func (s *SiteService) Update(id string, in SiteInput) (*models.Site, error) {
	p, err := in.parse()
	if err != nil {
		return nil, err
	}
	site, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	p.apply(site)
	if err := s.db.Save(site).Error; err != nil {
		return nil, fmt.Errorf("update site: %w", err)
	}
	return site, nil
}

// Delete soft deletes a site that nobody is checked in at.
func (s *SiteService) Delete(id string) error {
	site, err := s.Get(id)
	if err != nil {
		return err
	}
	var open int64
	if err := s.db.Model(&models.SiteLog{}).
		Where("site_id = ? AND check_out_at IS NULL", site.SiteID).
		Count(&open).Error; err != nil {
		return err
	}
	if open > 0 {
		return fmt.Errorf("%w: workers are still checked in", ErrConflict)
	}
	return s.db.Model(&models.Site{}).Where("site_id = ?", site.SiteID).Update("delete_at", time.Now()).Error
}

// CheckinURL is the link encoded in the site's QR code.
func (s *SiteService) CheckinURL(site *models.Site) string {
	return utils.CheckinURL(config.Current.AppBaseURL, site.SiteID)
}

// OnSite lists the open visits at a site.
func (s *SiteService) OnSite(id string) ([]models.SiteLog, error) {
	var logs []models.SiteLog
	err := s.db.Preload("Worker").
		Where("site_id = ? AND check_out_at IS NULL", id).
		Order("check_in_at").
		Find(&logs).Error
	return logs, err
}
