package controllers

import (
	"net/http"

	"access-audit-api/config"
	"access-audit-api/middleware"
	"access-audit-api/services"

	"github.com/gin-gonic/gin"
)

// GetNotifications lists the caller's notifications, newest first.
func GetNotifications(c *gin.Context) {
	user := middleware.CurrentUser(c)
	notifications, err := services.ListNotifications(config.DB, user.UserID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "notifications": notifications, "total": len(notifications)})
}

// MarkNotificationRead flags one of the caller's notifications as read.
func MarkNotificationRead(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	user := middleware.CurrentUser(c)
	if err := services.MarkNotificationRead(config.DB, user.UserID, id); err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Notification marked as read"})
}
