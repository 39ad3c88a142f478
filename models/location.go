package models

import (
	"time"
)

type Location struct {
	LocationID   string     `gorm:"primaryKey;column:location_id" json:"location_id"`
	LocationName string     `gorm:"column:location_name" json:"location_name"`
	Address      string     `gorm:"column:address" json:"address"`
	Status       string     `gorm:"column:status" json:"status"`
	CreateAt     *time.Time `gorm:"column:create_at" json:"create_at"`
	UpdateAt     *time.Time `gorm:"column:update_at" json:"update_at"`
	DeleteAt     *time.Time `gorm:"column:delete_at" json:"delete_at,omitempty"`

	// Relations
	Stats *LocationStats `gorm:"foreignKey:LocationID" json:"stats,omitempty"`
}

// LocationStats holds the derived headline numbers for a location. The
// accessibility score is the mean overall_score over its verified assessments.
type LocationStats struct {
	StatsID            int        `gorm:"primaryKey;column:stats_id" json:"stats_id"`
	LocationID         string     `gorm:"column:location_id;unique" json:"location_id"`
	AccessibilityScore float64    `gorm:"column:accessibility_score" json:"accessibility_score"`
	UpdateAt           *time.Time `gorm:"column:update_at" json:"update_at"`
}

// TableName overrides
func (Location) TableName() string {
	return "locations"
}

func (LocationStats) TableName() string {
	return "location_stats"
}
