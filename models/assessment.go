package models

import (
	"time"
)

// Assessment statuses. Both "draft" and "pending" are pre-submission states
// and accept the same transitions; Create seeds "pending", Reassess returns
// a rejected assessment to "draft".
const (
	StatusDraft     = "draft"
	StatusPending   = "pending"
	StatusSubmitted = "submitted"
	StatusVerified  = "verified"
	StatusRejected  = "rejected"
	StatusArchived  = "archived"
)

// Assessment is the header record for one assessment of one location against
// one criteria set. Verification fields live on the header, not a side table.
// RowVersion increments on every lifecycle mutation; callers that pass the
// version they read are protected against concurrent writers.
type Assessment struct {
	AssessmentID    int        `gorm:"primaryKey;column:assessment_id" json:"assessment_id"`
	LocationID      string     `gorm:"column:location_id" json:"location_id"`
	SetID           int        `gorm:"column:set_id" json:"set_id"`
	AssessorID      string     `gorm:"column:assessor_id" json:"assessor_id"`
	Status          string     `gorm:"column:status;default:draft" json:"status"`
	OverallScore    *float64   `gorm:"column:overall_score" json:"overall_score"`
	Notes           *string    `gorm:"column:notes" json:"notes,omitempty"`
	RejectionReason *string    `gorm:"column:rejection_reason" json:"rejection_reason,omitempty"`
	VerifierID      *string    `gorm:"column:verifier_id" json:"verifier_id,omitempty"`
	VerifiedAt      *time.Time `gorm:"column:verified_at" json:"verified_at,omitempty"`
	SubmittedAt     *time.Time `gorm:"column:submitted_at" json:"submitted_at,omitempty"`
	RowVersion      int        `gorm:"column:row_version;default:1" json:"row_version"`
	AssessedAt      time.Time  `gorm:"column:assessed_at;autoCreateTime" json:"assessed_at"`
	UpdateAt        *time.Time `gorm:"column:update_at" json:"update_at"`

	// Relations
	Location      Location            `gorm:"foreignKey:LocationID;references:LocationID" json:"location,omitempty"`
	AssessmentSet AssessmentSet       `gorm:"foreignKey:SetID;references:SetID" json:"assessment_set,omitempty"`
	Assessor      *User               `gorm:"foreignKey:AssessorID" json:"assessor,omitempty"`
	Verifier      *User               `gorm:"foreignKey:VerifierID" json:"verifier,omitempty"`
	Details       []AssessmentDetail  `gorm:"foreignKey:AssessmentID" json:"details,omitempty"`
	Images        []AssessmentImage   `gorm:"foreignKey:AssessmentID" json:"images,omitempty"`
	Comments      []AssessmentComment `gorm:"foreignKey:AssessmentID" json:"comments,omitempty"`
}

// AssessmentDetail is the per-criterion record of one assessment. Exactly one
// row exists per (assessment_id, criterion_id). Score 0 means "not yet
// scored" and blocks submission.
type AssessmentDetail struct {
	DetailID     int        `gorm:"primaryKey;column:detail_id" json:"detail_id"`
	AssessmentID int        `gorm:"column:assessment_id;uniqueIndex:uq_detail_criterion" json:"assessment_id"`
	CriterionID  int        `gorm:"column:criterion_id;uniqueIndex:uq_detail_criterion" json:"criterion_id"`
	Score        int        `gorm:"column:score;default:0" json:"score"`
	Condition    *string    `gorm:"column:condition" json:"condition,omitempty"`
	Comment      *string    `gorm:"column:comment" json:"comment,omitempty"`
	AdminComment *string    `gorm:"column:admin_comment" json:"admin_comment,omitempty"`
	IsCorrected  bool       `gorm:"column:is_corrected;default:false" json:"is_corrected"`
	CreateAt     *time.Time `gorm:"column:create_at" json:"create_at"`
	UpdateAt     *time.Time `gorm:"column:update_at" json:"update_at"`

	// Relations
	Criterion   AccessibilityCriterion `gorm:"foreignKey:CriterionID;references:CriterionID" json:"criterion,omitempty"`
	Images      []AssessmentImage      `gorm:"foreignKey:DetailID" json:"images,omitempty"`
	ReviewNotes []ReviewNote           `gorm:"foreignKey:DetailID" json:"review_notes,omitempty"`
}

// AssessmentImage records an uploaded evidence photo. DetailID is nil for
// general evidence attached to the header only.
type AssessmentImage struct {
	ImageID      int       `gorm:"primaryKey;column:image_id" json:"image_id"`
	AssessmentID int       `gorm:"column:assessment_id" json:"assessment_id"`
	DetailID     *int      `gorm:"column:detail_id" json:"detail_id,omitempty"`
	StorageKey   string    `gorm:"column:storage_key" json:"storage_key"`
	Description  *string   `gorm:"column:description" json:"description,omitempty"`
	UploadedBy   string    `gorm:"column:uploaded_by" json:"uploaded_by"`
	UploadedAt   time.Time `gorm:"column:uploaded_at;autoCreateTime" json:"uploaded_at"`
}

// AssessmentComment is a free-text discussion entry on the header thread.
type AssessmentComment struct {
	CommentID    int       `gorm:"primaryKey;column:comment_id" json:"comment_id"`
	AssessmentID int       `gorm:"column:assessment_id" json:"assessment_id"`
	AuthorID     string    `gorm:"column:author_id" json:"author_id"`
	CommentText  string    `gorm:"column:comment_text" json:"comment_text"`
	IsEdited     bool      `gorm:"column:is_edited;default:false" json:"is_edited"`
	CreateAt     time.Time `gorm:"column:create_at;autoCreateTime" json:"create_at"`
}

// ReviewNote is a reviewer annotation on a single detail, distinct from the
// discussion thread. Reassess wipes them together with admin comments.
type ReviewNote struct {
	NoteID   int       `gorm:"primaryKey;column:note_id" json:"note_id"`
	DetailID int       `gorm:"column:detail_id" json:"detail_id"`
	AuthorID string    `gorm:"column:author_id" json:"author_id"`
	NoteText string    `gorm:"column:note_text" json:"note_text"`
	CreateAt time.Time `gorm:"column:create_at;autoCreateTime" json:"create_at"`
}

// IsPreSubmission reports whether the assessment can still be edited and
// submitted by its assessor.
func (a *Assessment) IsPreSubmission() bool {
	return a.Status == StatusDraft || a.Status == StatusPending
}

// TableName overrides
func (Assessment) TableName() string {
	return "location_set_assessments"
}

func (AssessmentDetail) TableName() string {
	return "location_assessments"
}

func (AssessmentImage) TableName() string {
	return "assessment_images"
}

func (AssessmentComment) TableName() string {
	return "assessment_comments"
}

func (ReviewNote) TableName() string {
	return "review_notes"
}
