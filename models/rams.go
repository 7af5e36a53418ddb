package models

import "time"

const (
	RamsStatusDraft     = "draft"
	RamsStatusSubmitted = "submitted"
	RamsStatusApproved  = "approved"
	RamsStatusRejected  = "rejected"
	RamsStatusArchived  = "archived"
)

// Rams is a Risk Assessment Method Statement authored through the 22-step wizard.
type Rams struct {
	RamsID          int        `gorm:"primaryKey;column:rams_id" json:"rams_id"`
	Reference       string     `gorm:"column:reference" json:"reference"`
	Title           string     `gorm:"column:title" json:"title"`
	SiteID          *string    `gorm:"column:site_id" json:"site_id,omitempty"`
	SubcontractorID *int       `gorm:"column:subcontractor_id" json:"subcontractor_id,omitempty"`
	Status          string     `gorm:"column:status" json:"status"`
	ReviewDate      *time.Time `gorm:"column:review_date" json:"review_date,omitempty"`
	PreparedBy      int        `gorm:"column:prepared_by" json:"prepared_by"`
	SubmittedAt     *time.Time `gorm:"column:submitted_at" json:"submitted_at,omitempty"`
	ApprovedBy      *int       `gorm:"column:approved_by" json:"approved_by,omitempty"`
	ApprovedAt      *time.Time `gorm:"column:approved_at" json:"approved_at,omitempty"`
	RejectionReason string     `gorm:"column:rejection_reason" json:"rejection_reason,omitempty"`
	CreateAt        time.Time  `gorm:"column:create_at;autoCreateTime" json:"create_at"`
	UpdateAt        time.Time  `gorm:"column:update_at;autoUpdateTime" json:"update_at"`
	DeleteAt        *time.Time `gorm:"column:delete_at" json:"delete_at,omitempty"`

	WizardState `gorm:"embedded"`
}

func (Rams) TableName() string { return "rams" }

// Editable reports whether wizard steps may still be changed.
func (r *Rams) Editable() bool {
	return r.Status == RamsStatusDraft || r.Status == RamsStatusRejected
}
