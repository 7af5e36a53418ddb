package models

import (
	"time"

	"gorm.io/datatypes"
)

// HealthQuestionnaire is one submission of the recurring fitness-for-work questionnaire.
type HealthQuestionnaire struct {
	QuestionnaireID int               `gorm:"primaryKey;column:questionnaire_id" json:"questionnaire_id"`
	WorkerID        int               `gorm:"column:worker_id" json:"worker_id"`
	Version         string            `gorm:"column:version" json:"version"`
	Answers         datatypes.JSONMap `gorm:"column:answers" json:"answers"`
	Flagged         bool              `gorm:"column:flagged" json:"flagged"`
	FlagReasons     datatypes.JSON    `gorm:"column:flag_reasons" json:"flag_reasons"`
	Declaration     bool              `gorm:"column:declaration" json:"declaration"`
	SubmittedAt     time.Time         `gorm:"column:submitted_at" json:"submitted_at"`
	NextDueAt       time.Time         `gorm:"column:next_due_at" json:"next_due_at"`
	ReviewedBy      *int              `gorm:"column:reviewed_by" json:"reviewed_by,omitempty"`
	ReviewedAt      *time.Time        `gorm:"column:reviewed_at" json:"reviewed_at,omitempty"`
	ReviewNotes     string            `gorm:"column:review_notes" json:"review_notes,omitempty"`

	Worker User `gorm:"foreignKey:WorkerID" json:"worker,omitempty"`
}

func (HealthQuestionnaire) TableName() string { return "health_questionnaires" }
