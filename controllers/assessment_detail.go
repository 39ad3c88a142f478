package controllers

import (
	"net/http"

	"access-audit-api/config"
	"access-audit-api/middleware"
	"access-audit-api/services"

	"github.com/gin-gonic/gin"
)

type detailRequest struct {
	Score        *int    `json:"score"`
	Condition    *string `json:"condition"`
	Comment      *string `json:"comment"`
	AdminComment *string `json:"admin_comment"`
}

// UpsertAssessmentDetail creates or updates the detail for one criterion of
// an assessment.
func UpsertAssessmentDetail(c *gin.Context) {
	assessmentID, ok := pathID(c, "id")
	if !ok {
		return
	}
	criterionID, ok := pathID(c, "criterion_id")
	if !ok {
		return
	}

	var req detailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user := middleware.CurrentUser(c)
	svc := services.NewDetailService(config.DB)
	detail, err := svc.UpsertDetail(assessmentID, criterionID, services.DetailInput{
		Score:        req.Score,
		Condition:    req.Condition,
		Comment:      req.Comment,
		AdminComment: req.AdminComment,
	}, user)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "detail": detail})
}

// UpdateAssessmentDetail edits an existing detail by its id.
func UpdateAssessmentDetail(c *gin.Context) {
	detailID, ok := pathID(c, "detail_id")
	if !ok {
		return
	}

	var req detailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user := middleware.CurrentUser(c)
	svc := services.NewDetailService(config.DB)
	detail, err := svc.UpdateDetail(detailID, services.DetailInput{
		Score:        req.Score,
		Condition:    req.Condition,
		Comment:      req.Comment,
		AdminComment: req.AdminComment,
	}, user)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "detail": detail})
}

// MarkDetailCorrected flags the detail's issue as fixed on site.
func MarkDetailCorrected(c *gin.Context) {
	detailID, ok := pathID(c, "detail_id")
	if !ok {
		return
	}

	user := middleware.CurrentUser(c)
	svc := services.NewDetailService(config.DB)
	detail, err := svc.MarkCorrected(detailID, user)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "detail": detail})
}

// --- review notes -----------------------------------------------------------

// AddReviewNote attaches a reviewer annotation to a detail.
func AddReviewNote(c *gin.Context) {
	detailID, ok := pathID(c, "detail_id")
	if !ok {
		return
	}

	var req struct {
		Text string `json:"text" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user := middleware.CurrentUser(c)
	svc := services.NewDetailService(config.DB)
	note, err := svc.AddReviewNote(detailID, user, req.Text)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "review_note": note})
}

// GetReviewNotes lists a detail's reviewer annotations.
func GetReviewNotes(c *gin.Context) {
	detailID, ok := pathID(c, "detail_id")
	if !ok {
		return
	}

	svc := services.NewDetailService(config.DB)
	notes, err := svc.ListReviewNotes(detailID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "review_notes": notes, "total": len(notes)})
}

// --- images -----------------------------------------------------------------

// PresignImageUpload returns a signed PUT URL and the object key for a new
// evidence image on a detail.
func PresignImageUpload(c *gin.Context) {
	detailID, ok := pathID(c, "detail_id")
	if !ok {
		return
	}

	var req struct {
		Filename string `json:"filename" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user := middleware.CurrentUser(c)
	svc := services.NewDetailService(config.DB)
	uploadURL, key, err := svc.PresignUpload(detailID, req.Filename, user)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"upload_url": uploadURL, "storage_key": key})
}

// UploadImage accepts a multipart file and stores it as evidence on a detail
// in one request, bypassing the presigned flow.
func UploadImage(c *gin.Context) {
	detailID, ok := pathID(c, "detail_id")
	if !ok {
		return
	}

	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}
	src, err := file.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read uploaded file"})
		return
	}
	defer src.Close()

	user := middleware.CurrentUser(c)
	svc := services.NewDetailService(config.DB)
	image, err := svc.DirectUpload(detailID, file.Filename, src, user)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "image": image})
}

// AttachImage registers uploaded image metadata against an assessment, and
// optionally one of its details.
func AttachImage(c *gin.Context) {
	assessmentID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req struct {
		DetailID    *int    `json:"detail_id"`
		StorageKey  string  `json:"storage_key" binding:"required"`
		Description *string `json:"description"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user := middleware.CurrentUser(c)
	svc := services.NewDetailService(config.DB)
	image, err := svc.AttachImage(assessmentID, req.DetailID, req.StorageKey, req.Description, user)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "image": image})
}

// GetImageURL resolves an image into a signed GET URL.
func GetImageURL(c *gin.Context) {
	imageID, ok := pathID(c, "image_id")
	if !ok {
		return
	}

	svc := services.NewDetailService(config.DB)
	url, err := svc.ImageURL(imageID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url})
}

// DeleteImage removes image metadata and best-effort deletes the blob.
func DeleteImage(c *gin.Context) {
	imageID, ok := pathID(c, "image_id")
	if !ok {
		return
	}

	user := middleware.CurrentUser(c)
	svc := services.NewDetailService(config.DB)
	if err := svc.DeleteImage(imageID, user); err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Image deleted"})
}

// --- comments ---------------------------------------------------------------

// AddAssessmentComment appends to the assessment's discussion thread.
func AddAssessmentComment(c *gin.Context) {
	assessmentID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req struct {
		Text string `json:"text" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user := middleware.CurrentUser(c)
	svc := services.NewDetailService(config.DB)
	comment, err := svc.AddComment(assessmentID, user, req.Text)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "comment": comment})
}

// GetAssessmentComments lists the discussion thread.
func GetAssessmentComments(c *gin.Context) {
	assessmentID, ok := pathID(c, "id")
	if !ok {
		return
	}

	svc := services.NewDetailService(config.DB)
	comments, err := svc.ListComments(assessmentID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "comments": comments, "total": len(comments)})
}

// EditAssessmentComment lets the author revise their comment.
func EditAssessmentComment(c *gin.Context) {
	commentID, ok := pathID(c, "comment_id")
	if !ok {
		return
	}

	var req struct {
		Text string `json:"text" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user := middleware.CurrentUser(c)
	svc := services.NewDetailService(config.DB)
	comment, err := svc.EditComment(commentID, user, req.Text)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "comment": comment})
}
