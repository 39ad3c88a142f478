package models

import (
	"time"
)

// Role identifiers matching the roles table seed data.
const (
	RoleSuperadmin = 1
	RoleAdmin      = 2
	RoleUser       = 3
	RoleInspector  = 4
)

// Capability is a named permission resolved from a user's role. Services
// check capabilities, never raw role IDs, so the role taxonomy can change
// without touching the lifecycle engine.
type Capability string

const (
	// CapManageAssessments covers verify/reject/delete and catalog writes.
	CapManageAssessments Capability = "assessments:manage"
	// CapDeleteVerified is required on top of manage to delete a verified assessment.
	CapDeleteVerified Capability = "assessments:delete-verified"
	// CapMarkCorrected lets inspectors flag a detail as fixed on site.
	CapMarkCorrected Capability = "details:mark-corrected"
)

var roleCapabilities = map[int][]Capability{
	RoleSuperadmin: {CapManageAssessments, CapDeleteVerified, CapMarkCorrected},
	RoleAdmin:      {CapManageAssessments, CapDeleteVerified, CapMarkCorrected},
	RoleInspector:  {CapMarkCorrected},
}

type User struct {
	UserID    string     `gorm:"primaryKey;column:user_id" json:"user_id"`
	UserFname string     `gorm:"column:user_fname" json:"user_fname"`
	UserLname string     `gorm:"column:user_lname" json:"user_lname"`
	Email     string     `gorm:"column:email;unique" json:"email"`
	Password  string     `gorm:"column:password" json:"-"`
	RoleID    int        `gorm:"column:role_id" json:"role_id"`
	CreateAt  *time.Time `gorm:"column:create_at" json:"create_at"`
	UpdateAt  *time.Time `gorm:"column:update_at" json:"update_at"`
	DeleteAt  *time.Time `gorm:"column:delete_at" json:"delete_at,omitempty"`

	// Relations
	Role Role `gorm:"foreignKey:RoleID;references:RoleID" json:"role,omitempty"`
}

type Role struct {
	RoleID   int        `gorm:"primaryKey;column:role_id" json:"role_id"`
	Role     string     `gorm:"column:role" json:"role"`
	CreateAt *time.Time `gorm:"column:create_at" json:"create_at"`
	UpdateAt *time.Time `gorm:"column:update_at" json:"update_at"`
	DeleteAt *time.Time `gorm:"column:delete_at" json:"delete_at,omitempty"`
}

// HasCapability reports whether the user's role grants the capability.
func (u *User) HasCapability(cap Capability) bool {
	for _, c := range roleCapabilities[u.RoleID] {
		if c == cap {
			return true
		}
	}
	return false
}

// TableName overrides
func (User) TableName() string {
	return "users"
}

func (Role) TableName() string {
	return "roles"
}
