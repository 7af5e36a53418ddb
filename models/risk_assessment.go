package models

import "time"

const (
	RiskStatusDraft     = "draft"
	RiskStatusPublished = "published"
	RiskStatusArchived  = "archived"
)

// RiskAssessment is authored through the 5-step wizard and signed by workers
// on the site it covers once published.
type RiskAssessment struct {
	RiskAssessmentID int        `gorm:"primaryKey;column:risk_assessment_id" json:"risk_assessment_id"`
	Reference        string     `gorm:"column:reference" json:"reference"`
	Title            string     `gorm:"column:title" json:"title"`
	SiteID           *string    `gorm:"column:site_id" json:"site_id,omitempty"`
	Activity         string     `gorm:"column:activity" json:"activity"`
	Assessor         string     `gorm:"column:assessor" json:"assessor"`
	AssessmentDate   *time.Time `gorm:"column:assessment_date" json:"assessment_date,omitempty"`
	Status           string     `gorm:"column:status" json:"status"`
	ReviewDate       *time.Time `gorm:"column:review_date" json:"review_date,omitempty"`
	CreatedBy        int        `gorm:"column:created_by" json:"created_by"`
	PublishedAt      *time.Time `gorm:"column:published_at" json:"published_at,omitempty"`
	CreateAt         time.Time  `gorm:"column:create_at;autoCreateTime" json:"create_at"`
	UpdateAt         time.Time  `gorm:"column:update_at;autoUpdateTime" json:"update_at"`
	DeleteAt         *time.Time `gorm:"column:delete_at" json:"delete_at,omitempty"`

	WizardState `gorm:"embedded"`
}

func (RiskAssessment) TableName() string { return "risk_assessments" }

// RiskAssessmentSignature records a worker's acknowledgement of a published assessment.
type RiskAssessmentSignature struct {
	SignatureID      int       `gorm:"primaryKey;column:signature_id" json:"signature_id"`
	RiskAssessmentID int       `gorm:"column:risk_assessment_id" json:"risk_assessment_id"`
	WorkerID         int       `gorm:"column:worker_id" json:"worker_id"`
	SignerName       string    `gorm:"column:signer_name" json:"signer_name"`
	SignatureFileID  int       `gorm:"column:signature_file_id" json:"signature_file_id"`
	IPAddress        string    `gorm:"column:ip_address" json:"-"`
	SignedAt         time.Time `gorm:"column:signed_at" json:"signed_at"`
}

func (RiskAssessmentSignature) TableName() string { return "risk_assessment_signatures" }
