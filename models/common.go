package models

import "time"

// FileUpload represents the file_uploads table. The bytes live in the object
// store under ObjectKey.
type FileUpload struct {
	FileID       int        `gorm:"primaryKey;column:file_id" json:"file_id"`
	OriginalName string     `gorm:"column:original_name" json:"original_name"`
	ObjectKey    string     `gorm:"column:object_key" json:"-"`
	Bucket       string     `gorm:"column:bucket" json:"bucket"`
	FileSize     int64      `gorm:"column:file_size" json:"file_size"`
	MimeType     string     `gorm:"column:mime_type" json:"mime_type"`
	FileHash     string     `gorm:"column:file_hash" json:"file_hash"`
	UploadedBy   int        `gorm:"column:uploaded_by" json:"uploaded_by"`
	CreateAt     time.Time  `gorm:"column:create_at;autoCreateTime" json:"create_at"`
	DeleteAt     *time.Time `gorm:"column:delete_at" json:"delete_at,omitempty"`
}

// TableName overrides
func (FileUpload) TableName() string {
	return "file_uploads"
}

// IsImage reports whether the file can be embedded in a PDF.
func (f *FileUpload) IsImage() bool {
	return f.MimeType == "image/png" || f.MimeType == "image/jpeg"
}
