package services

import (
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"access-audit-api/config"
	"access-audit-api/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DetailService manages the per-criterion records of an assessment, their
// evidence images, review notes and the header's discussion thread.
type DetailService struct {
	db *gorm.DB
}

func NewDetailService(db *gorm.DB) *DetailService {
	if db == nil {
		db = config.DB
	}
	return &DetailService{db: db}
}

// DetailInput carries assessor edits to one detail. Nil fields are left
// untouched.
type DetailInput struct {
	Score        *int
	Condition    *string
	Comment      *string
	AdminComment *string
}

// UpsertDetail creates or updates the detail for (assessment, criterion).
// One row exists per pair; a second write updates in place. Only
// pre-submission assessments accept new details.
func (s *DetailService) UpsertDetail(assessmentID, criterionID int, in DetailInput, actor *models.User) (*models.AssessmentDetail, error) {
	var detail models.AssessmentDetail
	err := s.db.Transaction(func(tx *gorm.DB) error {
		header, err := s.loadHeader(tx, assessmentID)
		if err != nil {
			return err
		}
		if !header.IsPreSubmission() {
			return fmt.Errorf("details can only be added to draft/pending assessments: %w", ErrInvalidTransition)
		}

		err = tx.Where("assessment_id = ? AND criterion_id = ?", assessmentID, criterionID).
			First(&detail).Error
		now := time.Now()
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			detail = models.AssessmentDetail{
				AssessmentID: assessmentID,
				CriterionID:  criterionID,
				CreateAt:     &now,
			}
			applyDetailInput(&detail, in, actor)
			detail.UpdateAt = &now
			if err := tx.Create(&detail).Error; err != nil {
				return err
			}
		case err != nil:
			return err
		default:
			applyDetailInput(&detail, in, actor)
			detail.UpdateAt = &now
			if err := tx.Save(&detail).Error; err != nil {
				return err
			}
		}

		if in.Score != nil {
			return recalcHeaderScore(tx, assessmentID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &detail, nil
}

// UpdateDetail edits an existing detail. Assessors may edit only while the
// assessment is pre-submission; managers may edit at any time. A score change
// recomputes the header aggregate inside the same transaction.
func (s *DetailService) UpdateDetail(detailID int, in DetailInput, actor *models.User) (*models.AssessmentDetail, error) {
	var detail models.AssessmentDetail
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.loadDetail(tx, detailID, &detail); err != nil {
			return err
		}
		header, err := s.loadHeader(tx, detail.AssessmentID)
		if err != nil {
			return err
		}

		isManager := actor.HasCapability(models.CapManageAssessments)
		if !header.IsPreSubmission() && !isManager {
			return fmt.Errorf("assessment is %s: %w", header.Status, ErrInvalidTransition)
		}
		if header.AssessorID != actor.UserID && !isManager {
			return ErrNotOwned
		}

		applyDetailInput(&detail, in, actor)
		now := time.Now()
		detail.UpdateAt = &now
		if err := tx.Save(&detail).Error; err != nil {
			return err
		}

		if in.Score != nil {
			return recalcHeaderScore(tx, detail.AssessmentID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &detail, nil
}

// applyDetailInput copies the set fields onto the detail. Admin comments are
// reviewer-only and silently dropped for everyone else.
func applyDetailInput(detail *models.AssessmentDetail, in DetailInput, actor *models.User) {
	if in.Score != nil {
		detail.Score = *in.Score
	}
	if in.Condition != nil {
		detail.Condition = in.Condition
	}
	if in.Comment != nil {
		detail.Comment = in.Comment
	}
	if in.AdminComment != nil && actor.HasCapability(models.CapManageAssessments) {
		detail.AdminComment = in.AdminComment
	}
}

// MarkCorrected flags a detail's issue as fixed on site.
func (s *DetailService) MarkCorrected(detailID int, actor *models.User) (*models.AssessmentDetail, error) {
	if !actor.HasCapability(models.CapMarkCorrected) {
		return nil, ErrInsufficientPrivilege
	}

	var detail models.AssessmentDetail
	if err := s.loadDetail(s.db, detailID, &detail); err != nil {
		return nil, err
	}

	now := time.Now()
	err := s.db.Model(&detail).Updates(map[string]interface{}{
		"is_corrected": true,
		"update_at":    now,
	}).Error
	if err != nil {
		return nil, err
	}
	return &detail, nil
}

// --- review notes -----------------------------------------------------------

// AddReviewNote attaches a reviewer annotation to a detail. Distinct from the
// discussion thread; Reassess clears these together with admin comments.
func (s *DetailService) AddReviewNote(detailID int, actor *models.User, text string) (*models.ReviewNote, error) {
	if !actor.HasCapability(models.CapManageAssessments) {
		return nil, ErrInsufficientPrivilege
	}

	var detail models.AssessmentDetail
	if err := s.loadDetail(s.db, detailID, &detail); err != nil {
		return nil, err
	}

	note := models.ReviewNote{
		DetailID: detailID,
		AuthorID: actor.UserID,
		NoteText: text,
	}
	if err := s.db.Create(&note).Error; err != nil {
		return nil, err
	}
	return &note, nil
}

func (s *DetailService) ListReviewNotes(detailID int) ([]models.ReviewNote, error) {
	var notes []models.ReviewNote
	err := s.db.Where("detail_id = ?", detailID).Order("note_id").Find(&notes).Error
	return notes, err
}

// --- images -----------------------------------------------------------------

// PresignUpload reserves an object key for a new evidence image and returns a
// signed PUT URL for the client to upload against. The caller registers the
// metadata afterwards with AttachImage.
func (s *DetailService) PresignUpload(detailID int, filename string, actor *models.User) (uploadURL, key string, err error) {
	var detail models.AssessmentDetail
	if err := s.loadDetail(s.db, detailID, &detail); err != nil {
		return "", "", err
	}
	if err := s.checkImageMutable(detail.AssessmentID, actor); err != nil {
		return "", "", err
	}
	if config.Storage == nil {
		return "", "", errors.New("object storage is not configured")
	}

	key = fmt.Sprintf("assessment_images/%d/%d/%s-%s",
		detail.AssessmentID, detailID, uuid.NewString(), filename)
	uploadURL, err = config.Storage.SignedURL(key, "PUT", config.SignedURLTTL())
	if err != nil {
		return "", "", err
	}
	return uploadURL, key, nil
}

// DirectUpload streams the file through the API into object storage and
// registers the image row in one step, for clients that cannot use the
// presigned flow.
func (s *DetailService) DirectUpload(detailID int, filename string, r io.Reader, actor *models.User) (*models.AssessmentImage, error) {
	var detail models.AssessmentDetail
	if err := s.loadDetail(s.db, detailID, &detail); err != nil {
		return nil, err
	}
	if err := s.checkImageMutable(detail.AssessmentID, actor); err != nil {
		return nil, err
	}
	if config.Storage == nil {
		return nil, errors.New("object storage is not configured")
	}

	key := fmt.Sprintf("assessment_images/%d/%d/%s-%s",
		detail.AssessmentID, detailID, uuid.NewString(), filename)
	if _, err := config.Storage.Put(key, r); err != nil {
		return nil, err
	}

	image := models.AssessmentImage{
		AssessmentID: detail.AssessmentID,
		DetailID:     &detailID,
		StorageKey:   key,
		UploadedBy:   actor.UserID,
	}
	if err := s.db.Create(&image).Error; err != nil {
		return nil, err
	}
	return &image, nil
}

// AttachImage records uploaded image metadata. A nil detailID attaches the
// image to the header as general evidence.
func (s *DetailService) AttachImage(assessmentID int, detailID *int, storageKey string, description *string, actor *models.User) (*models.AssessmentImage, error) {
	var image models.AssessmentImage
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if _, err := s.loadHeader(tx, assessmentID); err != nil {
			return err
		}
		if detailID != nil {
			var detail models.AssessmentDetail
			if err := s.loadDetail(tx, *detailID, &detail); err != nil {
				return err
			}
			if detail.AssessmentID != assessmentID {
				return fmt.Errorf("detail %d does not belong to assessment %d: %w",
					*detailID, assessmentID, ErrNotFound)
			}
		}

		image = models.AssessmentImage{
			AssessmentID: assessmentID,
			DetailID:     detailID,
			StorageKey:   storageKey,
			Description:  description,
			UploadedBy:   actor.UserID,
		}
		return tx.Create(&image).Error
	})
	if err != nil {
		return nil, err
	}
	return &image, nil
}

// ImageURL resolves a stored key into a signed GET URL.
func (s *DetailService) ImageURL(imageID int) (string, error) {
	var image models.AssessmentImage
	if err := s.db.Where("image_id = ?", imageID).First(&image).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", fmt.Errorf("image %d: %w", imageID, ErrNotFound)
		}
		return "", err
	}
	if config.Storage == nil {
		return "", errors.New("object storage is not configured")
	}
	return config.Storage.SignedURL(image.StorageKey, "GET", config.SignedURLTTL())
}

// DeleteImage removes image metadata and best-effort deletes the blob. The
// row delete is authoritative; a failed blob delete only logs.
func (s *DetailService) DeleteImage(imageID int, actor *models.User) error {
	var image models.AssessmentImage
	if err := s.db.Where("image_id = ?", imageID).First(&image).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("image %d: %w", imageID, ErrNotFound)
		}
		return err
	}
	if err := s.checkImageMutable(image.AssessmentID, actor); err != nil {
		return err
	}

	if err := s.db.Delete(&image).Error; err != nil {
		return err
	}
	if config.Storage != nil {
		if err := config.Storage.Delete(image.StorageKey); err != nil {
			log.Printf("Warning: failed to delete object %s: %v", image.StorageKey, err)
		}
	}
	return nil
}

// checkImageMutable blocks image changes on submitted/verified assessments
// for everyone but managers. Image uploads during draft/pending carry no
// other lifecycle gate.
func (s *DetailService) checkImageMutable(assessmentID int, actor *models.User) error {
	header, err := s.loadHeader(s.db, assessmentID)
	if err != nil {
		return err
	}
	if !header.IsPreSubmission() && !actor.HasCapability(models.CapManageAssessments) {
		return fmt.Errorf("images cannot change after submission: %w", ErrInvalidTransition)
	}
	return nil
}

// --- comments ---------------------------------------------------------------

// AddComment appends to the header's discussion thread. Comments are
// append-only and not gated on lifecycle state.
func (s *DetailService) AddComment(assessmentID int, actor *models.User, text string) (*models.AssessmentComment, error) {
	if _, err := s.loadHeader(s.db, assessmentID); err != nil {
		return nil, err
	}
	comment := models.AssessmentComment{
		AssessmentID: assessmentID,
		AuthorID:     actor.UserID,
		CommentText:  text,
	}
	if err := s.db.Create(&comment).Error; err != nil {
		return nil, err
	}
	return &comment, nil
}

func (s *DetailService) ListComments(assessmentID int) ([]models.AssessmentComment, error) {
	var comments []models.AssessmentComment
	err := s.db.Where("assessment_id = ?", assessmentID).Order("comment_id").Find(&comments).Error
	return comments, err
}

// EditComment lets the author revise their comment, marking it edited.
func (s *DetailService) EditComment(commentID int, actor *models.User, text string) (*models.AssessmentComment, error) {
	var comment models.AssessmentComment
	if err := s.db.Where("comment_id = ?", commentID).First(&comment).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("comment %d: %w", commentID, ErrNotFound)
		}
		return nil, err
	}
	if comment.AuthorID != actor.UserID {
		return nil, ErrNotOwned
	}

	if err := s.db.Model(&comment).Updates(map[string]interface{}{
		"comment_text": text,
		"is_edited":    true,
	}).Error; err != nil {
		return nil, err
	}
	return &comment, nil
}

// --- helpers ----------------------------------------------------------------

func (s *DetailService) loadHeader(tx *gorm.DB, assessmentID int) (*models.Assessment, error) {
	var header models.Assessment
	if err := tx.Where("assessment_id = ?", assessmentID).First(&header).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("assessment %d: %w", assessmentID, ErrNotFound)
		}
		return nil, err
	}
	return &header, nil
}

func (s *DetailService) loadDetail(tx *gorm.DB, detailID int, out *models.AssessmentDetail) error {
	if err := tx.Where("detail_id = ?", detailID).First(out).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("assessment detail %d: %w", detailID, ErrNotFound)
		}
		return err
	}
	return nil
}

// recalcHeaderScore keeps the header aggregate in sync with a score edit,
// inside the caller's transaction.
func recalcHeaderScore(tx *gorm.DB, assessmentID int) error {
	var details []models.AssessmentDetail
	if err := tx.Where("assessment_id = ?", assessmentID).Find(&details).Error; err != nil {
		return err
	}

	ids := make([]int, 0, len(details))
	for _, d := range details {
		ids = append(ids, d.CriterionID)
	}
	maxScores := map[int]int{}
	if len(ids) > 0 {
		var criteria []models.AccessibilityCriterion
		if err := tx.Where("criterion_id IN ?", ids).Find(&criteria).Error; err != nil {
			return err
		}
		for _, c := range criteria {
			maxScores[c.CriterionID] = c.MaxScore
		}
	}

	score := ComputeOverallScore(details, maxScores)
	return tx.Model(&models.Assessment{}).
		Where("assessment_id = ?", assessmentID).
		Updates(map[string]interface{}{
			"overall_score": score,
			"update_at":     time.Now(),
		}).Error
}
