package controllers

import (
	"net/http"

	"access-audit-api/config"
	"access-audit-api/services"

	"github.com/gin-gonic/gin"
)

// --- criteria ---------------------------------------------------------------

type criterionRequest struct {
	CriterionName string  `json:"criterion_name" binding:"required"`
	Code          string  `json:"code" binding:"required"`
	Description   *string `json:"description"`
	MaxScore      int     `json:"max_score" binding:"required,gt=0"`
	Unit          *string `json:"unit"`
}

// GetCriteria lists all accessibility criteria.
func GetCriteria(c *gin.Context) {
	svc := services.NewCatalogService(config.DB)
	criteria, err := svc.ListCriteria()
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "criteria": criteria, "total": len(criteria)})
}

// GetCriterion returns one criterion.
func GetCriterion(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	svc := services.NewCatalogService(config.DB)
	criterion, err := svc.GetCriterion(id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "criterion": criterion})
}

// CreateCriterion adds a new accessibility criterion.
func CreateCriterion(c *gin.Context) {
	var req criterionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	svc := services.NewCatalogService(config.DB)
	criterion, err := svc.CreateCriterion(services.CriterionInput{
		CriterionName: req.CriterionName,
		Code:          req.Code,
		Description:   req.Description,
		MaxScore:      req.MaxScore,
		Unit:          req.Unit,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "criterion": criterion})
}

// UpdateCriterion applies administrative edits to a criterion.
func UpdateCriterion(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req struct {
		CriterionName *string `json:"criterion_name"`
		Description   *string `json:"description"`
		MaxScore      *int    `json:"max_score"`
		Unit          *string `json:"unit"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	updates := map[string]interface{}{}
	if req.CriterionName != nil {
		updates["criterion_name"] = *req.CriterionName
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.MaxScore != nil {
		updates["max_score"] = *req.MaxScore
	}
	if req.Unit != nil {
		updates["unit"] = *req.Unit
	}

	svc := services.NewCatalogService(config.DB)
	criterion, err := svc.UpdateCriterion(id, updates)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "criterion": criterion})
}

// DeleteCriterion removes a criterion unless a set still references it.
func DeleteCriterion(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	svc := services.NewCatalogService(config.DB)
	if err := svc.DeleteCriterion(id); err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Criterion deleted"})
}

// --- assessment sets --------------------------------------------------------

type setRequest struct {
	SetName     string  `json:"set_name" binding:"required"`
	Description *string `json:"description"`
	Version     int     `json:"version"`
	IsActive    *bool   `json:"is_active"`
}

// GetAssessmentSets lists all assessment sets.
func GetAssessmentSets(c *gin.Context) {
	svc := services.NewCatalogService(config.DB)
	sets, err := svc.ListSets()
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "sets": sets, "total": len(sets)})
}

// GetAssessmentSet returns one set.
func GetAssessmentSet(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	svc := services.NewCatalogService(config.DB)
	set, err := svc.GetSet(id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "set": set})
}

// CreateAssessmentSet adds a new set.
func CreateAssessmentSet(c *gin.Context) {
	var req setRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}

	svc := services.NewCatalogService(config.DB)
	set, err := svc.CreateSet(services.SetInput{
		SetName:     req.SetName,
		Description: req.Description,
		Version:     req.Version,
		IsActive:    active,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "set": set})
}

// UpdateAssessmentSet applies edits to a set.
func UpdateAssessmentSet(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req struct {
		SetName     *string `json:"set_name"`
		Description *string `json:"description"`
		Version     *int    `json:"version"`
		IsActive    *bool   `json:"is_active"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	updates := map[string]interface{}{}
	if req.SetName != nil {
		updates["set_name"] = *req.SetName
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.Version != nil {
		updates["version"] = *req.Version
	}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}

	svc := services.NewCatalogService(config.DB)
	set, err := svc.UpdateSet(id, updates)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "set": set})
}

// DeleteAssessmentSet removes a set unless assessments still reference it.
func DeleteAssessmentSet(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	svc := services.NewCatalogService(config.DB)
	if err := svc.DeleteSet(id); err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Assessment set deleted"})
}

// --- set criteria -----------------------------------------------------------

// GetSetCriteria returns the set's criteria in evaluation order.
func GetSetCriteria(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	svc := services.NewCatalogService(config.DB)
	links, err := svc.ListSetCriteria(id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "criteria": links, "total": len(links)})
}

// AddCriterionToSet links a criterion into a set, upserting its sequence.
func AddCriterionToSet(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req struct {
		CriterionID int `json:"criterion_id" binding:"required"`
		Sequence    int `json:"sequence"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	svc := services.NewCatalogService(config.DB)
	link, err := svc.AddCriterionToSet(id, req.CriterionID, req.Sequence)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "set_criterion": link})
}

// RemoveCriterionFromSet unlinks a criterion from a set.
func RemoveCriterionFromSet(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	criterionID, ok := pathID(c, "criterion_id")
	if !ok {
		return
	}

	svc := services.NewCatalogService(config.DB)
	if err := svc.RemoveCriterionFromSet(id, criterionID); err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Criterion removed from set"})
}

// ReplaceSetCriteria swaps the set's full ordered criterion list.
func ReplaceSetCriteria(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req struct {
		CriterionIDs []int `json:"criterion_ids" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	svc := services.NewCatalogService(config.DB)
	links, err := svc.ReplaceSetCriteria(id, req.CriterionIDs)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "criteria": links, "total": len(links)})
}
