package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"access-audit-api/services"

	"github.com/gin-gonic/gin"
)

// respondServiceError translates a domain error kind into an HTTP response.
// Incomplete submissions enumerate every violating criterion so the assessor
// can fix all of them in one pass.
func respondServiceError(c *gin.Context, err error) {
	var incomplete *services.IncompleteError
	if errors.As(err, &incomplete) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":                incomplete.Error(),
			"unscored_criteria":    incomplete.Unscored,
			"unevidenced_criteria": incomplete.Unevidenced,
		})
		return
	}

	switch {
	case errors.Is(err, services.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrInvalidTransition):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrNotOwned),
		errors.Is(err, services.ErrInsufficientPrivilege):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrDuplicateActiveAssessment),
		errors.Is(err, services.ErrCriterionInUse),
		errors.Is(err, services.ErrSetInUse),
		errors.Is(err, services.ErrStaleWrite):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

// pathID parses an integer path parameter, responding 400 on garbage.
func pathID(c *gin.Context, name string) (int, bool) {
	id, err := strconv.Atoi(c.Param(name))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + name})
		return 0, false
	}
	return id, true
}
