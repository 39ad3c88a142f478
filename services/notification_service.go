package services

import (
	"fmt"
	"log"

	"access-audit-api/config"
	"access-audit-api/models"

	"gorm.io/gorm"
)

// NotifyAssessmentResult records an in-app notification and emails the
// assessor after a verify or reject decision. Delivery is fire-and-forget:
// a failure is logged, never propagated, and callers invoke this only after
// the transition committed.
func NotifyAssessmentResult(db *gorm.DB, assessment *models.Assessment, verified bool) {
	if db == nil {
		db = config.DB
	}

	var assessor models.User
	if err := db.Where("user_id = ?", assessment.AssessorID).First(&assessor).Error; err != nil {
		log.Printf("Warning: could not load assessor %s for notification: %v", assessment.AssessorID, err)
		return
	}

	var subject, body, kind string
	if verified {
		kind = "success"
		subject = fmt.Sprintf("Assessment #%d verified", assessment.AssessmentID)
		score := 0.0
		if assessment.OverallScore != nil {
			score = *assessment.OverallScore
		}
		body = fmt.Sprintf(
			"<p>Your accessibility assessment #%d has been verified.</p><p>Overall score: %.2f / 10</p>",
			assessment.AssessmentID, score)
	} else {
		kind = "warning"
		subject = fmt.Sprintf("Assessment #%d rejected", assessment.AssessmentID)
		reason := "No reason was provided."
		if assessment.RejectionReason != nil && *assessment.RejectionReason != "" {
			reason = *assessment.RejectionReason
		}
		body = fmt.Sprintf(
			"<p>Your accessibility assessment #%d was rejected.</p><p>Reason: %s</p><p>You can reopen it for editing and submit again.</p>",
			assessment.AssessmentID, reason)
	}

	assessmentID := assessment.AssessmentID
	notification := models.Notification{
		UserID:              assessment.AssessorID,
		Title:               subject,
		Message:             body,
		Type:                kind,
		RelatedAssessmentID: &assessmentID,
	}
	if err := db.Create(&notification).Error; err != nil {
		log.Printf("Warning: failed to record notification: %v", err)
	}

	if assessor.Email == "" {
		return
	}
	if err := config.SendMail([]string{assessor.Email}, subject, body); err != nil {
		log.Printf("Warning: failed to send assessment notification: %v", err)
	}
}

// ListNotifications returns the user's notifications, newest first.
func ListNotifications(db *gorm.DB, userID string) ([]models.Notification, error) {
	if db == nil {
		db = config.DB
	}
	var notifications []models.Notification
	err := db.Where("user_id = ?", userID).
		Order("create_at DESC").Find(&notifications).Error
	return notifications, err
}

// MarkNotificationRead flags one of the user's notifications as read.
func MarkNotificationRead(db *gorm.DB, userID string, notificationID int) error {
	if db == nil {
		db = config.DB
	}
	result := db.Model(&models.Notification{}).
		Where("notification_id = ? AND user_id = ?", notificationID, userID).
		Update("is_read", true)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
