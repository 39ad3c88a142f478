package controllers

import (
	"net/http"

	"access-audit-api/config"
	"access-audit-api/services"

	"github.com/gin-gonic/gin"
)

// RepairNullScores recomputes overall_score for every verified assessment
// that is missing one.
func RepairNullScores(c *gin.Context) {
	svc := services.NewAssessmentService(config.DB)
	repaired, err := svc.RepairNullScores()
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":        true,
		"repaired":       repaired,
		"repaired_count": len(repaired),
	})
}

// RepairLocationScores recomputes every location's accessibility score from
// its verified assessments.
func RepairLocationScores(c *gin.Context) {
	svc := services.NewLocationService(config.DB)
	locations, err := svc.RepairAllScores()
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":           true,
		"locations":         locations,
		"locations_updated": len(locations),
	})
}
