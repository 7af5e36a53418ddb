package models

import (
	"strings"
	"time"
)

// CompanySettingsID is the primary key of the single settings row.
const CompanySettingsID = 1

// CompanySettings represents the single-row company_settings table.
type CompanySettings struct {
	SettingsID           int       `gorm:"primaryKey;column:settings_id" json:"settings_id"`
	CompanyName          string    `gorm:"column:company_name" json:"company_name"`
	Address              string    `gorm:"column:address" json:"address"`
	Phone                string    `gorm:"column:phone" json:"phone"`
	Email                string    `gorm:"column:email" json:"email"`
	LogoFileID           *int      `gorm:"column:logo_file_id" json:"logo_file_id,omitempty"`
	HealthIntervalDays   int       `gorm:"column:health_interval_days" json:"health_interval_days"`
	HealthDueSoonDays    int       `gorm:"column:health_due_soon_days" json:"health_due_soon_days"`
	InsuranceWarningDays int       `gorm:"column:insurance_warning_days" json:"insurance_warning_days"`
	ReviewWarningDays    int       `gorm:"column:review_warning_days" json:"review_warning_days"`
	CSCSWarningDays      int       `gorm:"column:cscs_warning_days" json:"cscs_warning_days"`
	RequireHealthCheck   bool      `gorm:"column:require_health_check" json:"require_health_check"`
	ReminderRecipients   string    `gorm:"column:reminder_recipients" json:"reminder_recipients"`
	UpdatedBy            *int      `gorm:"column:updated_by" json:"updated_by,omitempty"`
	UpdateAt             time.Time `gorm:"column:update_at;autoUpdateTime" json:"update_at"`
}

// TableName specifies the table name for GORM
func (CompanySettings) TableName() string {
	return "company_settings"
}

// DefaultCompanySettings is used until staff save the settings row.
func DefaultCompanySettings() CompanySettings {
	return CompanySettings{
		SettingsID:           CompanySettingsID,
		CompanyName:          "SiteSafe",
		HealthIntervalDays:   90,
		HealthDueSoonDays:    7,
		InsuranceWarningDays: 30,
		ReviewWarningDays:    14,
		CSCSWarningDays:      30,
		RequireHealthCheck:   true,
	}
}

// Recipients splits ReminderRecipients into trimmed addresses.
func (s CompanySettings) Recipients() []string {
	var out []string
	for _, part := range strings.Split(s.ReminderRecipients, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
