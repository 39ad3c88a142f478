package controllers

import (
	"errors"
	"net/http"

	"access-audit-api/config"
	"access-audit-api/models"
	"access-audit-api/services"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// GetLocations lists locations available for assessment.
func GetLocations(c *gin.Context) {
	var locations []models.Location
	if err := config.DB.Where("delete_at IS NULL").
		Order("location_name").Find(&locations).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch locations"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "locations": locations, "total": len(locations)})
}

// GetLocationStats returns the location's rollup stats.
func GetLocationStats(c *gin.Context) {
	locationID := c.Param("id")
	if locationID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid location id"})
		return
	}

	svc := services.NewLocationService(config.DB)
	stats, err := svc.GetStats(locationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// No verified assessments yet; report the zero default.
			c.JSON(http.StatusOK, gin.H{"success": true, "stats": models.LocationStats{
				LocationID: locationID,
			}})
			return
		}
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "stats": stats})
}

// RecomputeLocationScore forces a rollup refresh for one location.
func RecomputeLocationScore(c *gin.Context) {
	locationID := c.Param("id")
	if locationID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid location id"})
		return
	}

	svc := services.NewLocationService(config.DB)
	score, err := svc.RecomputeAccessibilityScore(locationID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "accessibility_score": score})
}
