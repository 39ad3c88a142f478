package models

import (
	"time"
)

// AccessibilityCriterion is a single scored dimension, e.g. "Ramp gradient".
// MaxScore is the highest score an assessor may award for it.
type AccessibilityCriterion struct {
	CriterionID   int        `gorm:"primaryKey;column:criterion_id" json:"criterion_id"`
	CriterionName string     `gorm:"column:criterion_name" json:"criterion_name"`
	Code          string     `gorm:"column:code;unique" json:"code"`
	Description   *string    `gorm:"column:description" json:"description,omitempty"`
	MaxScore      int        `gorm:"column:max_score" json:"max_score"`
	Unit          *string    `gorm:"column:unit" json:"unit,omitempty"`
	CreateAt      *time.Time `gorm:"column:create_at" json:"create_at"`
	UpdateAt      *time.Time `gorm:"column:update_at" json:"update_at"`
}

type AssessmentSet struct {
	SetID       int        `gorm:"primaryKey;column:set_id" json:"set_id"`
	SetName     string     `gorm:"column:set_name" json:"set_name"`
	Description *string    `gorm:"column:description" json:"description,omitempty"`
	Version     int        `gorm:"column:version;default:1" json:"version"`
	IsActive    bool       `gorm:"column:is_active;default:true" json:"is_active"`
	CreateAt    *time.Time `gorm:"column:create_at" json:"create_at"`
	UpdateAt    *time.Time `gorm:"column:update_at" json:"update_at"`

	// Relations
	SetCriteria []SetCriterion `gorm:"foreignKey:SetID" json:"set_criteria,omitempty"`
}

// SetCriterion links a criterion into a set. Sequence controls display and
// evaluation order only; it carries no scoring weight.
type SetCriterion struct {
	SetID       int `gorm:"primaryKey;column:set_id" json:"set_id"`
	CriterionID int `gorm:"primaryKey;column:criterion_id" json:"criterion_id"`
	Sequence    int `gorm:"column:sequence" json:"sequence"`

	// Relations
	Criterion AccessibilityCriterion `gorm:"foreignKey:CriterionID;references:CriterionID" json:"criterion,omitempty"`
}

// TableName overrides
func (AccessibilityCriterion) TableName() string {
	return "accessibility_criteria"
}

func (AssessmentSet) TableName() string {
	return "assessment_sets"
}

func (SetCriterion) TableName() string {
	return "set_criteria"
}
