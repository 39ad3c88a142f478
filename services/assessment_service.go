package services

import (
	"errors"
	"fmt"
	"log"
	"time"

	"access-audit-api/config"
	"access-audit-api/models"

	"gorm.io/gorm"
)

// AssessmentService owns the assessment header and its lifecycle. Every
// transition runs inside a single transaction: guard checks, score
// computation and the status mutation commit together or not at all.
type AssessmentService struct {
	db *gorm.DB
}

func NewAssessmentService(db *gorm.DB) *AssessmentService {
	if db == nil {
		db = config.DB
	}
	return &AssessmentService{db: db}
}

// CreateInput carries everything needed to open a new assessment.
// CriterionIDs optionally restricts the seeded details to a subset of the
// set's criteria; empty means the full set in sequence order.
type CreateInput struct {
	LocationID   string
	SetID        int
	AssessorID   string
	Notes        *string
	CriterionIDs []int
}

// Create opens a new assessment in pending status and seeds one unscored
// detail per selected criterion.
func (s *AssessmentService) Create(in CreateInput) (*models.Assessment, error) {
	var created models.Assessment
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var set models.AssessmentSet
		if err := tx.Where("set_id = ?", in.SetID).First(&set).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("assessment set %d: %w", in.SetID, ErrNotFound)
			}
			return err
		}

		var active int64
		if err := tx.Model(&models.Assessment{}).
			Where("location_id = ? AND set_id = ?", in.LocationID, in.SetID).
			Where("status IN ?", []string{models.StatusDraft, models.StatusPending, models.StatusSubmitted}).
			Count(&active).Error; err != nil {
			return err
		}
		if active > 0 {
			return ErrDuplicateActiveAssessment
		}

		created = models.Assessment{
			LocationID: in.LocationID,
			SetID:      in.SetID,
			AssessorID: in.AssessorID,
			Status:     models.StatusPending,
			Notes:      in.Notes,
			RowVersion: 1,
		}
		if err := tx.Create(&created).Error; err != nil {
			return err
		}

		criteria, err := s.selectCriteria(tx, in.SetID, in.CriterionIDs)
		if err != nil {
			return err
		}
		for _, criterion := range criteria {
			detail := models.AssessmentDetail{
				AssessmentID: created.AssessmentID,
				CriterionID:  criterion.CriterionID,
				Score:        0,
			}
			if err := tx.Create(&detail).Error; err != nil {
				return err
			}
		}

		log.Printf("Created assessment %d for location %s with %d criteria",
			created.AssessmentID, in.LocationID, len(criteria))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &created, nil
}

// selectCriteria resolves which criteria to seed details from: the explicit
// subset when given, otherwise the whole set in sequence order.
func (s *AssessmentService) selectCriteria(tx *gorm.DB, setID int, criterionIDs []int) ([]models.AccessibilityCriterion, error) {
	var criteria []models.AccessibilityCriterion
	if len(criterionIDs) > 0 {
		err := tx.Where("criterion_id IN ?", criterionIDs).Find(&criteria).Error
		return criteria, err
	}
	err := tx.
		Joins("JOIN set_criteria sc ON sc.criterion_id = accessibility_criteria.criterion_id").
		Where("sc.set_id = ?", setID).
		Order("sc.sequence").
		Find(&criteria).Error
	return criteria, err
}

// Get loads one assessment with its location and set.
func (s *AssessmentService) Get(assessmentID int) (*models.Assessment, error) {
	var a models.Assessment
	err := s.db.Preload("Location").Preload("AssessmentSet").
		Where("assessment_id = ?", assessmentID).First(&a).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("assessment %d: %w", assessmentID, ErrNotFound)
		}
		return nil, err
	}
	return &a, nil
}

// List returns all assessments, newest first.
func (s *AssessmentService) List() ([]models.Assessment, error) {
	var assessments []models.Assessment
	err := s.db.Preload("Location").Preload("AssessmentSet").
		Order("assessed_at DESC").Find(&assessments).Error
	return assessments, err
}

// ListByLocation returns every assessment for one location, newest first.
func (s *AssessmentService) ListByLocation(locationID string) ([]models.Assessment, error) {
	var assessments []models.Assessment
	err := s.db.Preload("AssessmentSet").
		Where("location_id = ?", locationID).
		Order("assessed_at DESC").Find(&assessments).Error
	return assessments, err
}

// GetDetails returns the assessment's details in stable order with their
// criterion and images loaded.
func (s *AssessmentService) GetDetails(assessmentID int) ([]models.AssessmentDetail, error) {
	var details []models.AssessmentDetail
	err := s.db.Preload("Criterion").Preload("Images").
		Where("assessment_id = ?", assessmentID).
		Order("detail_id").Find(&details).Error
	return details, err
}

// Submit moves a draft/pending assessment to submitted. Guards: the actor
// owns the assessment (or manages assessments), every detail is scored and
// every detail carries at least one image. All violations are reported in one
// IncompleteError. On success the overall score is computed and stored.
func (s *AssessmentService) Submit(assessmentID int, actor *models.User, expectedVersion int) (*models.Assessment, error) {
	var header models.Assessment
	var finalScore float64
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.loadHeader(tx, assessmentID, &header); err != nil {
			return err
		}
		if err := checkVersion(&header, expectedVersion); err != nil {
			return err
		}
		if header.AssessorID != actor.UserID && !actor.HasCapability(models.CapManageAssessments) {
			return ErrNotOwned
		}
		if !header.IsPreSubmission() {
			return fmt.Errorf("only draft/pending can be submitted, current status %s: %w",
				header.Status, ErrInvalidTransition)
		}

		var details []models.AssessmentDetail
		if err := tx.Preload("Images").
			Where("assessment_id = ?", assessmentID).Find(&details).Error; err != nil {
			return err
		}

		incomplete := &IncompleteError{}
		for _, d := range details {
			// Score 0 means the criterion was never scored.
			if d.Score == 0 {
				incomplete.Unscored = append(incomplete.Unscored, d.CriterionID)
			}
			if len(d.Images) == 0 {
				incomplete.Unevidenced = append(incomplete.Unevidenced, d.CriterionID)
			}
		}
		if len(details) == 0 || len(incomplete.Unscored) > 0 || len(incomplete.Unevidenced) > 0 {
			return incomplete
		}

		score, err := s.computeScore(tx, details)
		if err != nil {
			return err
		}
		finalScore = score

		now := time.Now()
		return tx.Model(&header).Updates(map[string]interface{}{
			"status":        models.StatusSubmitted,
			"overall_score": score,
			"submitted_at":  now,
			"row_version":   header.RowVersion + 1,
			"update_at":     now,
		}).Error
	})
	if err != nil {
		return nil, err
	}
	log.Printf("Assessment %d submitted with score %.2f", assessmentID, finalScore)
	return &header, nil
}

// Verify moves a submitted assessment to verified and recomputes the owning
// location's accessibility score in the same transaction. The overall score
// is backfilled first if a legacy path left it null.
func (s *AssessmentService) Verify(assessmentID int, actor *models.User, expectedVersion int) (*models.Assessment, error) {
	if !actor.HasCapability(models.CapManageAssessments) {
		return nil, ErrInsufficientPrivilege
	}

	var header models.Assessment
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.loadHeader(tx, assessmentID, &header); err != nil {
			return err
		}
		if err := checkVersion(&header, expectedVersion); err != nil {
			return err
		}
		if header.Status != models.StatusSubmitted {
			return fmt.Errorf("only submitted can be verified, current status %s: %w",
				header.Status, ErrInvalidTransition)
		}

		score := header.OverallScore
		if score == nil {
			recomputed, err := s.recalculateTx(tx, assessmentID)
			if err != nil {
				return err
			}
			score = &recomputed
		}

		now := time.Now()
		if err := tx.Model(&header).Updates(map[string]interface{}{
			"status":        models.StatusVerified,
			"overall_score": score,
			"verified_at":   now,
			"verifier_id":   actor.UserID,
			"row_version":   header.RowVersion + 1,
			"update_at":     now,
		}).Error; err != nil {
			return err
		}

		return recomputeLocationScore(tx, header.LocationID)
	})
	if err != nil {
		return nil, err
	}
	log.Printf("Assessment %d verified by %s", assessmentID, actor.UserID)
	return &header, nil
}

// Reject moves a submitted assessment to rejected, recording the reviewer and
// the reason for the assessor to act on.
func (s *AssessmentService) Reject(assessmentID int, actor *models.User, reason *string, expectedVersion int) (*models.Assessment, error) {
	if !actor.HasCapability(models.CapManageAssessments) {
		return nil, ErrInsufficientPrivilege
	}

	var header models.Assessment
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.loadHeader(tx, assessmentID, &header); err != nil {
			return err
		}
		if err := checkVersion(&header, expectedVersion); err != nil {
			return err
		}
		if header.Status != models.StatusSubmitted {
			return fmt.Errorf("only submitted can be rejected, current status %s: %w",
				header.Status, ErrInvalidTransition)
		}

		now := time.Now()
		return tx.Model(&header).Updates(map[string]interface{}{
			"status":           models.StatusRejected,
			"rejection_reason": reason,
			"verified_at":      now,
			"verifier_id":      actor.UserID,
			"row_version":      header.RowVersion + 1,
			"update_at":        now,
		}).Error
	})
	if err != nil {
		return nil, err
	}
	log.Printf("Assessment %d rejected by %s", assessmentID, actor.UserID)
	return &header, nil
}

// Reassess reopens a rejected assessment for editing. Review state is wiped:
// rejection reason, verifier fields, every detail's admin comment and all
// review notes.
func (s *AssessmentService) Reassess(assessmentID int, actor *models.User, expectedVersion int) (*models.Assessment, error) {
	var header models.Assessment
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.loadHeader(tx, assessmentID, &header); err != nil {
			return err
		}
		if err := checkVersion(&header, expectedVersion); err != nil {
			return err
		}
		if header.AssessorID != actor.UserID && !actor.HasCapability(models.CapManageAssessments) {
			return ErrNotOwned
		}
		if header.Status != models.StatusRejected {
			return fmt.Errorf("only rejected can be reassessed, current status %s: %w",
				header.Status, ErrInvalidTransition)
		}

		now := time.Now()
		if err := tx.Model(&header).Updates(map[string]interface{}{
			"status":           models.StatusDraft,
			"rejection_reason": nil,
			"verified_at":      nil,
			"verifier_id":      nil,
			"row_version":      header.RowVersion + 1,
			"update_at":        now,
		}).Error; err != nil {
			return err
		}

		if err := tx.Model(&models.AssessmentDetail{}).
			Where("assessment_id = ?", assessmentID).
			Update("admin_comment", nil).Error; err != nil {
			return err
		}

		return tx.
			Where("detail_id IN (?)", tx.Model(&models.AssessmentDetail{}).
				Select("detail_id").Where("assessment_id = ?", assessmentID)).
			Delete(&models.ReviewNote{}).Error
	})
	if err != nil {
		return nil, err
	}
	log.Printf("Assessment %d reopened for editing by %s", assessmentID, actor.UserID)
	return &header, nil
}

// Delete removes an assessment and everything it owns. Verified assessments
// additionally require the delete-verified capability.
func (s *AssessmentService) Delete(assessmentID int, actor *models.User) error {
	if !actor.HasCapability(models.CapManageAssessments) {
		return ErrInsufficientPrivilege
	}

	var keys []string
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var header models.Assessment
		if err := s.loadHeader(tx, assessmentID, &header); err != nil {
			return err
		}
		if header.Status == models.StatusVerified && !actor.HasCapability(models.CapDeleteVerified) {
			return fmt.Errorf("deleting a verified assessment: %w", ErrInsufficientPrivilege)
		}

		var images []models.AssessmentImage
		if err := tx.Where("assessment_id = ?", assessmentID).Find(&images).Error; err != nil {
			return err
		}
		for _, img := range images {
			keys = append(keys, img.StorageKey)
		}

		if err := tx.Where("assessment_id = ?", assessmentID).
			Delete(&models.AssessmentImage{}).Error; err != nil {
			return err
		}
		if err := tx.
			Where("detail_id IN (?)", tx.Model(&models.AssessmentDetail{}).
				Select("detail_id").Where("assessment_id = ?", assessmentID)).
			Delete(&models.ReviewNote{}).Error; err != nil {
			return err
		}
		if err := tx.Where("assessment_id = ?", assessmentID).
			Delete(&models.AssessmentDetail{}).Error; err != nil {
			return err
		}
		if err := tx.Where("assessment_id = ?", assessmentID).
			Delete(&models.AssessmentComment{}).Error; err != nil {
			return err
		}
		return tx.Delete(&header).Error
	})
	if err != nil {
		return err
	}

	// Blob cleanup is best effort; the rows are already gone.
	if config.Storage != nil {
		for _, key := range keys {
			if err := config.Storage.Delete(key); err != nil {
				log.Printf("Warning: failed to delete object %s: %v", key, err)
			}
		}
	}
	log.Printf("Assessment %d deleted by %s", assessmentID, actor.UserID)
	return nil
}

// Recalculate recomputes the overall score from current details regardless of
// status. Maintenance only; the status is untouched.
func (s *AssessmentService) Recalculate(assessmentID int) (float64, error) {
	var score float64
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var err error
		score, err = s.recalculateTx(tx, assessmentID)
		return err
	})
	return score, err
}

// RepairNullScores sweeps every assessment whose overall score is null,
// recomputes each from its details and commits the whole batch at once.
// Heals rows that reached submitted/verified through a legacy path.
func (s *AssessmentService) RepairNullScores() ([]int, error) {
	var repaired []int
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var headers []models.Assessment
		if err := tx.Where("overall_score IS NULL").Find(&headers).Error; err != nil {
			return err
		}
		for _, h := range headers {
			if _, err := s.recalculateTx(tx, h.AssessmentID); err != nil {
				return err
			}
			repaired = append(repaired, h.AssessmentID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(repaired) > 0 {
		log.Printf("Repaired %d assessments with null scores", len(repaired))
	}
	return repaired, nil
}

// --- helpers ----------------------------------------------------------------

func (s *AssessmentService) loadHeader(tx *gorm.DB, assessmentID int, out *models.Assessment) error {
	if err := tx.Where("assessment_id = ?", assessmentID).First(out).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("assessment %d: %w", assessmentID, ErrNotFound)
		}
		return err
	}
	return nil
}

// checkVersion enforces optimistic concurrency when the caller supplies the
// version it read. Zero skips the check for callers that do not send one.
func checkVersion(header *models.Assessment, expected int) error {
	if expected != 0 && header.RowVersion != expected {
		return fmt.Errorf("assessment %d is at version %d, caller read %d: %w",
			header.AssessmentID, header.RowVersion, expected, ErrStaleWrite)
	}
	return nil
}

func (s *AssessmentService) computeScore(tx *gorm.DB, details []models.AssessmentDetail) (float64, error) {
	ids := make([]int, 0, len(details))
	for _, d := range details {
		ids = append(ids, d.CriterionID)
	}
	maxScores := map[int]int{}
	if len(ids) > 0 {
		var criteria []models.AccessibilityCriterion
		if err := tx.Where("criterion_id IN ?", ids).Find(&criteria).Error; err != nil {
			return 0, err
		}
		for _, c := range criteria {
			maxScores[c.CriterionID] = c.MaxScore
		}
	}
	return ComputeOverallScore(details, maxScores), nil
}

// recalculateTx recomputes and stores the overall score inside the caller's
// transaction, returning the new value.
func (s *AssessmentService) recalculateTx(tx *gorm.DB, assessmentID int) (float64, error) {
	var header models.Assessment
	if err := s.loadHeader(tx, assessmentID, &header); err != nil {
		return 0, err
	}

	var details []models.AssessmentDetail
	if err := tx.Where("assessment_id = ?", assessmentID).Find(&details).Error; err != nil {
		return 0, err
	}

	score, err := s.computeScore(tx, details)
	if err != nil {
		return 0, err
	}

	err = tx.Model(&header).Updates(map[string]interface{}{
		"overall_score": score,
		"update_at":     time.Now(),
	}).Error
	return score, err
}
