package models

import "time"

const (
	PolicyPublicLiability       = "public_liability"
	PolicyEmployersLiability    = "employers_liability"
	PolicyProfessionalIndemnity = "professional_indemnity"
	DocumentOther               = "other"
)

// Subcontractor represents the subcontractors table.
type Subcontractor struct {
	SubcontractorID             int        `gorm:"primaryKey;column:subcontractor_id" json:"subcontractor_id"`
	CompanyName                 string     `gorm:"column:company_name" json:"company_name"`
	ContactName                 string     `gorm:"column:contact_name" json:"contact_name"`
	Email                       string     `gorm:"column:email" json:"email"`
	Phone                       string     `gorm:"column:phone" json:"phone"`
	Trade                       string     `gorm:"column:trade" json:"trade"`
	Address                     string     `gorm:"column:address" json:"address"`
	Postcode                    string     `gorm:"column:postcode" json:"postcode"`
	CompanyNumber               string     `gorm:"column:company_number" json:"company_number"`
	PublicLiabilityExpiry       *time.Time `gorm:"column:public_liability_expiry" json:"public_liability_expiry"`
	EmployersLiabilityExpiry    *time.Time `gorm:"column:employers_liability_expiry" json:"employers_liability_expiry"`
	ProfessionalIndemnityExpiry *time.Time `gorm:"column:professional_indemnity_expiry" json:"professional_indemnity_expiry"`
	Notes                       string     `gorm:"column:notes" json:"notes"`
	IsActive                    bool       `gorm:"column:is_active;default:true" json:"is_active"`
	CreatedBy                   int        `gorm:"column:created_by" json:"created_by"`
	CreateAt                    time.Time  `gorm:"column:create_at;autoCreateTime" json:"create_at"`
	UpdateAt                    time.Time  `gorm:"column:update_at;autoUpdateTime" json:"update_at"`
	DeleteAt                    *time.Time `gorm:"column:delete_at" json:"delete_at,omitempty"`

	Documents []SubcontractorDocument `gorm:"foreignKey:SubcontractorID" json:"documents,omitempty"`
}

func (Subcontractor) TableName() string { return "subcontractors" }

// PolicyExpiry returns the expiry column for an insurance policy document type.
func (s *Subcontractor) PolicyExpiry(policy string) *time.Time {
	switch policy {
	case PolicyPublicLiability:
		return s.PublicLiabilityExpiry
	case PolicyEmployersLiability:
		return s.EmployersLiabilityExpiry
	case PolicyProfessionalIndemnity:
		return s.ProfessionalIndemnityExpiry
	}
	return nil
}

// PolicyColumn maps an insurance document type to its expiry column.
func PolicyColumn(policy string) (string, bool) {
	switch policy {
	case PolicyPublicLiability:
		return "public_liability_expiry", true
	case PolicyEmployersLiability:
		return "employers_liability_expiry", true
	case PolicyProfessionalIndemnity:
		return "professional_indemnity_expiry", true
	}
	return "", false
}

// SubcontractorDocument links an uploaded certificate to a subcontractor.
type SubcontractorDocument struct {
	DocumentID      int        `gorm:"primaryKey;column:document_id" json:"document_id"`
	SubcontractorID int        `gorm:"column:subcontractor_id" json:"subcontractor_id"`
	DocumentType    string     `gorm:"column:document_type" json:"document_type"`
	FileID          int        `gorm:"column:file_id" json:"file_id"`
	ExpiresAt       *time.Time `gorm:"column:expires_at" json:"expires_at,omitempty"`
	UploadedBy      int        `gorm:"column:uploaded_by" json:"uploaded_by"`
	CreateAt        time.Time  `gorm:"column:create_at;autoCreateTime" json:"create_at"`
	DeleteAt        *time.Time `gorm:"column:delete_at" json:"delete_at,omitempty"`

	File FileUpload `gorm:"foreignKey:FileID" json:"file"`
}

func (SubcontractorDocument) TableName() string { return "subcontractor_documents" }

// ValidSubcontractorDocumentType reports whether t is an accepted document type.
func ValidSubcontractorDocumentType(t string) bool {
	switch t {
	case PolicyPublicLiability, PolicyEmployersLiability, PolicyProfessionalIndemnity, DocumentOther:
		return true
	}
	return false
}
