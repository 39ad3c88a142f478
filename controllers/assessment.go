package controllers

import (
	"net/http"

	"access-audit-api/config"
	"access-audit-api/middleware"
	"access-audit-api/services"

	"github.com/gin-gonic/gin"
)

type createAssessmentRequest struct {
	LocationID   string  `json:"location_id" binding:"required"`
	SetID        int     `json:"set_id" binding:"required"`
	Notes        *string `json:"notes"`
	CriterionIDs []int   `json:"criterion_ids"`
}

// transitionRequest carries the optional row version the client read; 0 skips
// the stale-write check.
type transitionRequest struct {
	RowVersion int `json:"row_version"`
}

// CreateAssessment opens a new assessment for a location against a set.
func CreateAssessment(c *gin.Context) {
	var req createAssessmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user := middleware.CurrentUser(c)
	svc := services.NewAssessmentService(config.DB)
	assessment, err := svc.Create(services.CreateInput{
		LocationID:   req.LocationID,
		SetID:        req.SetID,
		AssessorID:   user.UserID,
		Notes:        req.Notes,
		CriterionIDs: req.CriterionIDs,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"success": true, "assessment": assessment})
}

// GetAssessments lists all assessments, newest first.
func GetAssessments(c *gin.Context) {
	svc := services.NewAssessmentService(config.DB)

	if locationID := c.Query("location_id"); locationID != "" {
		assessments, err := svc.ListByLocation(locationID)
		if err != nil {
			respondServiceError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "assessments": assessments, "total": len(assessments)})
		return
	}

	assessments, err := svc.List()
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "assessments": assessments, "total": len(assessments)})
}

// GetAssessment returns one assessment header.
func GetAssessment(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	svc := services.NewAssessmentService(config.DB)
	assessment, err := svc.Get(id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "assessment": assessment})
}

// GetAssessmentDetails returns the assessment's per-criterion records in
// evaluation order.
func GetAssessmentDetails(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	svc := services.NewAssessmentService(config.DB)
	details, err := svc.GetDetails(id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "details": details, "total": len(details)})
}

// SubmitAssessment moves a draft/pending assessment to submitted.
func SubmitAssessment(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req transitionRequest
	_ = c.ShouldBindJSON(&req)

	user := middleware.CurrentUser(c)
	svc := services.NewAssessmentService(config.DB)
	assessment, err := svc.Submit(id, user, req.RowVersion)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "assessment": assessment})
}

// VerifyAssessment accepts a submitted assessment and refreshes the
// location's accessibility score.
func VerifyAssessment(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req transitionRequest
	_ = c.ShouldBindJSON(&req)

	user := middleware.CurrentUser(c)
	svc := services.NewAssessmentService(config.DB)
	assessment, err := svc.Verify(id, user, req.RowVersion)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	services.NotifyAssessmentResult(config.DB, assessment, true)
	c.JSON(http.StatusOK, gin.H{"success": true, "assessment": assessment})
}

// RejectAssessment declines a submitted assessment with a reason.
func RejectAssessment(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req struct {
		Reason     *string `json:"reason"`
		RowVersion int     `json:"row_version"`
	}
	_ = c.ShouldBindJSON(&req)

	user := middleware.CurrentUser(c)
	svc := services.NewAssessmentService(config.DB)
	assessment, err := svc.Reject(id, user, req.Reason, req.RowVersion)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	services.NotifyAssessmentResult(config.DB, assessment, false)
	c.JSON(http.StatusOK, gin.H{"success": true, "assessment": assessment})
}

// ReassessAssessment reopens a rejected assessment for editing.
func ReassessAssessment(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req transitionRequest
	_ = c.ShouldBindJSON(&req)

	user := middleware.CurrentUser(c)
	svc := services.NewAssessmentService(config.DB)
	assessment, err := svc.Reassess(id, user, req.RowVersion)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "assessment": assessment})
}

// DeleteAssessment removes an assessment and everything it owns.
func DeleteAssessment(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	user := middleware.CurrentUser(c)
	svc := services.NewAssessmentService(config.DB)
	if err := svc.Delete(id, user); err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Assessment deleted"})
}
