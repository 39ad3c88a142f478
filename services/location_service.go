package services

import (
	"errors"
	"log"
	"sync"
	"time"

	"access-audit-api/config"
	"access-audit-api/models"

	"gorm.io/gorm"
)

// LocationService maintains the location-level accessibility score rollup:
// the arithmetic mean of overall_score across a location's verified
// assessments, stored on the location_stats row.
type LocationService struct {
	db *gorm.DB
}

func NewLocationService(db *gorm.DB) *LocationService {
	if db == nil {
		db = config.DB
	}
	return &LocationService{db: db}
}

var (
	statsCacheMu sync.RWMutex
	statsCache   = map[string]statsCacheEntry{}
	statsTTL     = 5 * time.Minute
)

type statsCacheEntry struct {
	stats     models.LocationStats
	fetchedAt time.Time
}

// RecomputeAccessibilityScore recalculates the rollup for one location and
// returns the new value. Rollups are per-location and independent, so no
// cross-location coordination is needed.
func (s *LocationService) RecomputeAccessibilityScore(locationID string) (float64, error) {
	var score float64
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := recomputeLocationScore(tx, locationID); err != nil {
			return err
		}
		var stats models.LocationStats
		if err := tx.Where("location_id = ?", locationID).First(&stats).Error; err != nil {
			return err
		}
		score = stats.AccessibilityScore
		return nil
	})
	return score, err
}

// GetStats returns the location's stats row through a short TTL cache.
func (s *LocationService) GetStats(locationID string) (*models.LocationStats, error) {
	statsCacheMu.RLock()
	entry, ok := statsCache[locationID]
	statsCacheMu.RUnlock()
	if ok && time.Since(entry.fetchedAt) < statsTTL {
		stats := entry.stats
		return &stats, nil
	}

	var stats models.LocationStats
	if err := s.db.Where("location_id = ?", locationID).First(&stats).Error; err != nil {
		return nil, err
	}

	statsCacheMu.Lock()
	statsCache[locationID] = statsCacheEntry{stats: stats, fetchedAt: time.Now()}
	statsCacheMu.Unlock()
	return &stats, nil
}

// RepairAllScores recomputes the rollup for every location that has at least
// one verified assessment. Companion to the null-score sweep.
func (s *LocationService) RepairAllScores() ([]string, error) {
	var locationIDs []string
	err := s.db.Model(&models.Assessment{}).
		Distinct("location_id").
		Where("status = ? AND overall_score IS NOT NULL", models.StatusVerified).
		Pluck("location_id", &locationIDs).Error
	if err != nil {
		return nil, err
	}

	for _, id := range locationIDs {
		if _, err := s.RecomputeAccessibilityScore(id); err != nil {
			return nil, err
		}
	}
	log.Printf("Recomputed accessibility scores for %d locations", len(locationIDs))
	return locationIDs, nil
}

// recomputeLocationScore writes the verified-mean rollup inside the caller's
// transaction. Used by Verify so the transition and the rollup commit
// together, and by the maintenance sweeps.
func recomputeLocationScore(tx *gorm.DB, locationID string) error {
	var avg *float64
	err := tx.Model(&models.Assessment{}).
		Select("AVG(overall_score)").
		Where("location_id = ? AND status = ? AND overall_score IS NOT NULL",
			locationID, models.StatusVerified).
		Scan(&avg).Error
	if err != nil {
		return err
	}

	score := 0.0
	if avg != nil {
		score = *avg
	}

	now := time.Now()
	var stats models.LocationStats
	err = tx.Where("location_id = ?", locationID).First(&stats).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		stats = models.LocationStats{
			LocationID:         locationID,
			AccessibilityScore: score,
			UpdateAt:           &now,
		}
		if err := tx.Create(&stats).Error; err != nil {
			return err
		}
	case err != nil:
		return err
	default:
		if err := tx.Model(&stats).Updates(map[string]interface{}{
			"accessibility_score": score,
			"update_at":           now,
		}).Error; err != nil {
			return err
		}
	}

	invalidateStatsCache(locationID)
	return nil
}

func invalidateStatsCache(locationID string) {
	statsCacheMu.Lock()
	delete(statsCache, locationID)
	statsCacheMu.Unlock()
}
