package models

import "time"

const (
	CheckMethodQR     = "qr"
	CheckMethodManual = "manual"
	CheckMethodAuto   = "auto"
)

// Site is a construction site. SiteID is the UUID printed in check-in QR codes.
type Site struct {
	SiteID       string     `gorm:"primaryKey;column:site_id" json:"site_id"`
	Name         string     `gorm:"column:name" json:"name"`
	Address      string     `gorm:"column:address" json:"address"`
	Postcode     string     `gorm:"column:postcode" json:"postcode"`
	ClientName   string     `gorm:"column:client_name" json:"client_name"`
	SiteManager  string     `gorm:"column:site_manager" json:"site_manager"`
	ManagerPhone string     `gorm:"column:manager_phone" json:"manager_phone"`
	IsActive     bool       `gorm:"column:is_active;default:true" json:"is_active"`
	StartDate    *time.Time `gorm:"column:start_date" json:"start_date,omitempty"`
	EndDate      *time.Time `gorm:"column:end_date" json:"end_date,omitempty"`
	CreateAt     time.Time  `gorm:"column:create_at;autoCreateTime" json:"create_at"`
	UpdateAt     time.Time  `gorm:"column:update_at;autoUpdateTime" json:"update_at"`
	DeleteAt     *time.Time `gorm:"column:delete_at" json:"delete_at,omitempty"`
}

func (Site) TableName() string { return "sites" }

// SiteLog is one check-in/check-out visit of a worker to a site.
type SiteLog struct {
	SiteLogID      int        `gorm:"primaryKey;column:site_log_id" json:"site_log_id"`
	SiteID         string     `gorm:"column:site_id" json:"site_id"`
	WorkerID       int        `gorm:"column:worker_id" json:"worker_id"`
	CheckInAt      time.Time  `gorm:"column:check_in_at" json:"check_in_at"`
	CheckOutAt     *time.Time `gorm:"column:check_out_at" json:"check_out_at,omitempty"`
	Method         string     `gorm:"column:method" json:"method"`
	CheckOutMethod string     `gorm:"column:check_out_method" json:"check_out_method,omitempty"`
	CheckedOutBy   *int       `gorm:"column:checked_out_by" json:"checked_out_by,omitempty"`
	Notes          string     `gorm:"column:notes" json:"notes,omitempty"`

	Site   Site `gorm:"foreignKey:SiteID" json:"site,omitempty"`
	Worker User `gorm:"foreignKey:WorkerID" json:"worker,omitempty"`
}

func (SiteLog) TableName() string { return "site_logs" }

// IsOpen reports whether the worker has not checked out yet.
func (l *SiteLog) IsOpen() bool { return l.CheckOutAt == nil }

// Duration is the time on site; open logs measure up to now.
func (l *SiteLog) Duration(now time.Time) time.Duration {
	end := now
	if l.CheckOutAt != nil {
		end = *l.CheckOutAt
	}
	if end.Before(l.CheckInAt) {
		return 0
	}
	return end.Sub(l.CheckInAt)
}
