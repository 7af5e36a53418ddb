package models

import "time"

// WorkerProfile holds the details a field worker maintains about themselves.
type WorkerProfile struct {
	UserID                int        `gorm:"primaryKey;column:user_id" json:"user_id"`
	Phone                 string     `gorm:"column:phone" json:"phone"`
	Trade                 string     `gorm:"column:trade" json:"trade"`
	SubcontractorID       *int       `gorm:"column:subcontractor_id" json:"subcontractor_id,omitempty"`
	EmergencyContactName  string     `gorm:"column:emergency_contact_name" json:"emergency_contact_name"`
	EmergencyContactPhone string     `gorm:"column:emergency_contact_phone" json:"emergency_contact_phone"`
	CSCSCardNumber        string     `gorm:"column:cscs_card_number" json:"cscs_card_number"`
	CSCSCardType          string     `gorm:"column:cscs_card_type" json:"cscs_card_type"`
	CSCSExpiry            *time.Time `gorm:"column:cscs_expiry" json:"cscs_expiry,omitempty"`
	MedicalNotes          string     `gorm:"column:medical_notes" json:"medical_notes"`
	CreateAt              time.Time  `gorm:"column:create_at;autoCreateTime" json:"create_at"`
	UpdateAt              time.Time  `gorm:"column:update_at;autoUpdateTime" json:"update_at"`

	User User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

func (WorkerProfile) TableName() string { return "worker_profiles" }
