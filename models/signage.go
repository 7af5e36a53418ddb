package models

import "time"

var SignageCategories = []string{"mandatory", "prohibition", "warning", "safe_condition", "fire", "information"}

var SignageSizes = []string{"A5", "A4", "A3", "A2", "A1", "custom"}

// Signage is artwork metadata; the artwork itself is a FileUpload.
type Signage struct {
	SignageID   int        `gorm:"primaryKey;column:signage_id" json:"signage_id"`
	Title       string     `gorm:"column:title" json:"title"`
	Category    string     `gorm:"column:category" json:"category"`
	Description string     `gorm:"column:description" json:"description"`
	Size        string     `gorm:"column:size" json:"size"`
	SiteID      *string    `gorm:"column:site_id" json:"site_id,omitempty"`
	FileID      int        `gorm:"column:file_id" json:"file_id"`
	CreatedBy   int        `gorm:"column:created_by" json:"created_by"`
	CreateAt    time.Time  `gorm:"column:create_at;autoCreateTime" json:"create_at"`
	UpdateAt    time.Time  `gorm:"column:update_at;autoUpdateTime" json:"update_at"`
	DeleteAt    *time.Time `gorm:"column:delete_at" json:"delete_at,omitempty"`

	File FileUpload `gorm:"foreignKey:FileID" json:"file"`
}

func (Signage) TableName() string { return "signage" }

func ValidSignageCategory(c string) bool { return contains(SignageCategories, c) }

func ValidSignageSize(s string) bool { return contains(SignageSizes, s) }

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
