package services

import (
	"errors"
	"testing"

	"access-audit-api/models"

	"gorm.io/gorm"
)

func TestCreateSeedsUnscoredDetails(t *testing.T) {
	db := newTestDB(t)
	assessor := seedUser(t, db, models.RoleUser)
	locationID := seedLocation(t, db)
	setID, criterionIDs := seedCatalog(t, db, 5, 10, 10)

	svc := NewAssessmentService(db)
	created, err := svc.Create(CreateInput{
		LocationID: locationID,
		SetID:      setID,
		AssessorID: assessor.UserID,
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if created.Status != models.StatusPending {
		t.Errorf("status = %s, want %s", created.Status, models.StatusPending)
	}
	if created.RowVersion != 1 {
		t.Errorf("row_version = %d, want 1", created.RowVersion)
	}

	details, err := svc.GetDetails(created.AssessmentID)
	if err != nil {
		t.Fatalf("GetDetails() error = %v", err)
	}
	if len(details) != len(criterionIDs) {
		t.Fatalf("seeded %d details, want %d", len(details), len(criterionIDs))
	}
	for _, d := range details {
		if d.Score != 0 {
			t.Errorf("detail %d seeded with score %d, want 0", d.DetailID, d.Score)
		}
	}
}

func TestCreateSubsetOfCriteria(t *testing.T) {
	db := newTestDB(t)
	assessor := seedUser(t, db, models.RoleUser)
	locationID := seedLocation(t, db)
	setID, criterionIDs := seedCatalog(t, db, 5, 10, 10)

	svc := NewAssessmentService(db)
	created, err := svc.Create(CreateInput{
		LocationID:   locationID,
		SetID:        setID,
		AssessorID:   assessor.UserID,
		CriterionIDs: criterionIDs[:2],
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	details, _ := svc.GetDetails(created.AssessmentID)
	if len(details) != 2 {
		t.Errorf("seeded %d details, want 2", len(details))
	}
}

func TestCreateUnknownSet(t *testing.T) {
	db := newTestDB(t)
	assessor := seedUser(t, db, models.RoleUser)
	locationID := seedLocation(t, db)

	svc := NewAssessmentService(db)
	_, err := svc.Create(CreateInput{
		LocationID: locationID,
		SetID:      999,
		AssessorID: assessor.UserID,
	})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Create() error = %v, want ErrNotFound", err)
	}
}

func TestCreateRejectsDuplicateActive(t *testing.T) {
	db := newTestDB(t)
	assessor := seedUser(t, db, models.RoleUser)
	locationID := seedLocation(t, db)
	setID, _ := seedCatalog(t, db, 5)

	svc := NewAssessmentService(db)
	in := CreateInput{LocationID: locationID, SetID: setID, AssessorID: assessor.UserID}
	if _, err := svc.Create(in); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if _, err := svc.Create(in); !errors.Is(err, ErrDuplicateActiveAssessment) {
		t.Errorf("second Create() error = %v, want ErrDuplicateActiveAssessment", err)
	}
}

func TestSubmitReportsAllViolationsAtOnce(t *testing.T) {
	db := newTestDB(t)
	assessor := seedUser(t, db, models.RoleUser)
	locationID := seedLocation(t, db)
	setID, criterionIDs := seedCatalog(t, db, 5, 10)

	svc := NewAssessmentService(db)
	created, err := svc.Create(CreateInput{
		LocationID: locationID,
		SetID:      setID,
		AssessorID: assessor.UserID,
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	// First criterion: scored but no image. Second: image but never scored.
	var details []models.AssessmentDetail
	db.Where("assessment_id = ?", created.AssessmentID).Order("detail_id").Find(&details)
	if err := db.Model(&details[0]).Update("score", 3).Error; err != nil {
		t.Fatalf("failed to score detail: %v", err)
	}
	secondID := details[1].DetailID
	image := models.AssessmentImage{
		AssessmentID: created.AssessmentID,
		DetailID:     &secondID,
		StorageKey:   "assessment_images/test.jpg",
		UploadedBy:   assessor.UserID,
	}
	if err := db.Create(&image).Error; err != nil {
		t.Fatalf("failed to attach image: %v", err)
	}

	_, err = svc.Submit(created.AssessmentID, assessor, 0)
	var incomplete *IncompleteError
	if !errors.As(err, &incomplete) {
		t.Fatalf("Submit() error = %v, want IncompleteError", err)
	}
	if len(incomplete.Unscored) != 1 || incomplete.Unscored[0] != criterionIDs[1] {
		t.Errorf("Unscored = %v, want [%d]", incomplete.Unscored, criterionIDs[1])
	}
	if len(incomplete.Unevidenced) != 1 || incomplete.Unevidenced[0] != criterionIDs[0] {
		t.Errorf("Unevidenced = %v, want [%d]", incomplete.Unevidenced, criterionIDs[0])
	}

	// The failed submit must not have moved the status.
	reloaded, _ := svc.Get(created.AssessmentID)
	if reloaded.Status != models.StatusPending {
		t.Errorf("status after failed submit = %s, want %s", reloaded.Status, models.StatusPending)
	}
}

func TestSubmitNamesTheOneUnscoredCriterion(t *testing.T) {
	db := newTestDB(t)
	assessor := seedUser(t, db, models.RoleUser)
	locationID := seedLocation(t, db)
	setID, criterionIDs := seedCatalog(t, db, 5, 5, 5)

	svc := NewAssessmentService(db)
	created, err := svc.Create(CreateInput{
		LocationID: locationID,
		SetID:      setID,
		AssessorID: assessor.UserID,
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	// Everything complete except the second criterion's score.
	completeDetails(t, db, created.AssessmentID, map[int]int{
		criterionIDs[0]: 3,
		criterionIDs[1]: 0,
		criterionIDs[2]: 4,
	})

	_, err = svc.Submit(created.AssessmentID, assessor, 0)
	var incomplete *IncompleteError
	if !errors.As(err, &incomplete) {
		t.Fatalf("Submit() error = %v, want IncompleteError", err)
	}
	if len(incomplete.Unscored) != 1 || incomplete.Unscored[0] != criterionIDs[1] {
		t.Errorf("Unscored = %v, want exactly [%d]", incomplete.Unscored, criterionIDs[1])
	}
	if len(incomplete.Unevidenced) != 0 {
		t.Errorf("Unevidenced = %v, want empty", incomplete.Unevidenced)
	}
}

func TestSubmitNamesTheOneUnevidencedCriterion(t *testing.T) {
	db := newTestDB(t)
	assessor := seedUser(t, db, models.RoleUser)
	locationID := seedLocation(t, db)
	setID, criterionIDs := seedCatalog(t, db, 5, 5, 5)

	svc := NewAssessmentService(db)
	created, err := svc.Create(CreateInput{
		LocationID: locationID,
		SetID:      setID,
		AssessorID: assessor.UserID,
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	// All three scored, then strip the third criterion's image.
	completeDetails(t, db, created.AssessmentID, map[int]int{
		criterionIDs[0]: 3,
		criterionIDs[1]: 5,
		criterionIDs[2]: 4,
	})
	var third models.AssessmentDetail
	db.Where("assessment_id = ? AND criterion_id = ?", created.AssessmentID, criterionIDs[2]).
		First(&third)
	if err := db.Where("detail_id = ?", third.DetailID).
		Delete(&models.AssessmentImage{}).Error; err != nil {
		t.Fatalf("failed to strip image: %v", err)
	}

	_, err = svc.Submit(created.AssessmentID, assessor, 0)
	var incomplete *IncompleteError
	if !errors.As(err, &incomplete) {
		t.Fatalf("Submit() error = %v, want IncompleteError", err)
	}
	if len(incomplete.Unevidenced) != 1 || incomplete.Unevidenced[0] != criterionIDs[2] {
		t.Errorf("Unevidenced = %v, want exactly [%d]", incomplete.Unevidenced, criterionIDs[2])
	}
	if len(incomplete.Unscored) != 0 {
		t.Errorf("Unscored = %v, want empty", incomplete.Unscored)
	}
}

func TestSubmitComputesOverallScore(t *testing.T) {
	db := newTestDB(t)
	assessor := seedUser(t, db, models.RoleUser)
	locationID := seedLocation(t, db)
	setID, criterionIDs := seedCatalog(t, db, 5, 10)

	svc := NewAssessmentService(db)
	created, err := svc.Create(CreateInput{
		LocationID: locationID,
		SetID:      setID,
		AssessorID: assessor.UserID,
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	completeDetails(t, db, created.AssessmentID, map[int]int{
		criterionIDs[0]: 4,
		criterionIDs[1]: 8,
	})

	submitted, err := svc.Submit(created.AssessmentID, assessor, 0)
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	reloaded, _ := svc.Get(submitted.AssessmentID)
	if reloaded.Status != models.StatusSubmitted {
		t.Errorf("status = %s, want %s", reloaded.Status, models.StatusSubmitted)
	}
	// 12 achieved over 15 possible, scaled to 10.
	if reloaded.OverallScore == nil || *reloaded.OverallScore != 8 {
		t.Errorf("overall_score = %v, want 8", reloaded.OverallScore)
	}
	if reloaded.SubmittedAt == nil {
		t.Error("submitted_at was not set")
	}
	if reloaded.RowVersion != 2 {
		t.Errorf("row_version = %d, want 2", reloaded.RowVersion)
	}
}

func TestSubmitRequiresOwnership(t *testing.T) {
	db := newTestDB(t)
	assessor := seedUser(t, db, models.RoleUser)
	stranger := seedUser(t, db, models.RoleUser)
	locationID := seedLocation(t, db)
	setID, criterionIDs := seedCatalog(t, db, 5)

	svc := NewAssessmentService(db)
	created, _ := svc.Create(CreateInput{
		LocationID: locationID,
		SetID:      setID,
		AssessorID: assessor.UserID,
	})
	completeDetails(t, db, created.AssessmentID, map[int]int{criterionIDs[0]: 5})

	if _, err := svc.Submit(created.AssessmentID, stranger, 0); !errors.Is(err, ErrNotOwned) {
		t.Errorf("Submit() by stranger error = %v, want ErrNotOwned", err)
	}
}

func TestSubmitRejectsStaleVersion(t *testing.T) {
	db := newTestDB(t)
	assessor := seedUser(t, db, models.RoleUser)
	locationID := seedLocation(t, db)
	setID, criterionIDs := seedCatalog(t, db, 5)

	svc := NewAssessmentService(db)
	created, _ := svc.Create(CreateInput{
		LocationID: locationID,
		SetID:      setID,
		AssessorID: assessor.UserID,
	})
	completeDetails(t, db, created.AssessmentID, map[int]int{criterionIDs[0]: 5})

	if _, err := svc.Submit(created.AssessmentID, assessor, 7); !errors.Is(err, ErrStaleWrite) {
		t.Errorf("Submit() with stale version error = %v, want ErrStaleWrite", err)
	}
	// The version the caller actually read goes through.
	if _, err := svc.Submit(created.AssessmentID, assessor, 1); err != nil {
		t.Errorf("Submit() with matching version error = %v", err)
	}
}

func TestVerifyRequiresSubmittedStatus(t *testing.T) {
	db := newTestDB(t)
	assessor := seedUser(t, db, models.RoleUser)
	admin := seedUser(t, db, models.RoleAdmin)
	locationID := seedLocation(t, db)
	setID, _ := seedCatalog(t, db, 5)

	svc := NewAssessmentService(db)
	created, _ := svc.Create(CreateInput{
		LocationID: locationID,
		SetID:      setID,
		AssessorID: assessor.UserID,
	})

	if _, err := svc.Verify(created.AssessmentID, admin, 0); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Verify() on pending error = %v, want ErrInvalidTransition", err)
	}
}

func TestVerifyRequiresCapability(t *testing.T) {
	db := newTestDB(t)
	assessor := seedUser(t, db, models.RoleUser)
	locationID := seedLocation(t, db)
	setID, _ := seedCatalog(t, db, 5)

	svc := NewAssessmentService(db)
	created, _ := svc.Create(CreateInput{
		LocationID: locationID,
		SetID:      setID,
		AssessorID: assessor.UserID,
	})

	if _, err := svc.Verify(created.AssessmentID, assessor, 0); !errors.Is(err, ErrInsufficientPrivilege) {
		t.Errorf("Verify() by assessor error = %v, want ErrInsufficientPrivilege", err)
	}
}

func TestVerifyUpdatesLocationScore(t *testing.T) {
	db := newTestDB(t)
	assessor := seedUser(t, db, models.RoleUser)
	admin := seedUser(t, db, models.RoleAdmin)
	locationID := seedLocation(t, db)
	setID, criterionIDs := seedCatalog(t, db, 10)

	makeVerified(t, db, locationID, setID, criterionIDs,
		map[int]int{criterionIDs[0]: 6}, assessor, admin)

	var stats models.LocationStats
	if err := db.Where("location_id = ?", locationID).First(&stats).Error; err != nil {
		t.Fatalf("location stats row was not created: %v", err)
	}
	if stats.AccessibilityScore != 6 {
		t.Errorf("accessibility_score = %v, want 6", stats.AccessibilityScore)
	}
}

func TestVerifyBackfillsNullScore(t *testing.T) {
	db := newTestDB(t)
	assessor := seedUser(t, db, models.RoleUser)
	admin := seedUser(t, db, models.RoleAdmin)
	locationID := seedLocation(t, db)
	setID, criterionIDs := seedCatalog(t, db, 10)

	svc := NewAssessmentService(db)
	created, _ := svc.Create(CreateInput{
		LocationID: locationID,
		SetID:      setID,
		AssessorID: assessor.UserID,
	})
	completeDetails(t, db, created.AssessmentID, map[int]int{criterionIDs[0]: 8})
	if _, err := svc.Submit(created.AssessmentID, assessor, 0); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	// Simulate a legacy row that reached submitted without a score.
	if err := db.Model(&models.Assessment{}).
		Where("assessment_id = ?", created.AssessmentID).
		Update("overall_score", nil).Error; err != nil {
		t.Fatalf("failed to null score: %v", err)
	}

	if _, err := svc.Verify(created.AssessmentID, admin, 0); err != nil {
		t.Fatalf("Verify() error = %v", err)
	}

	reloaded, _ := svc.Get(created.AssessmentID)
	if reloaded.OverallScore == nil || *reloaded.OverallScore != 8 {
		t.Errorf("overall_score = %v, want 8", reloaded.OverallScore)
	}
	if reloaded.Status != models.StatusVerified {
		t.Errorf("status = %s, want %s", reloaded.Status, models.StatusVerified)
	}
	if reloaded.VerifierID == nil || *reloaded.VerifierID != admin.UserID {
		t.Errorf("verifier_id = %v, want %s", reloaded.VerifierID, admin.UserID)
	}
}

func TestReassessClearsReviewState(t *testing.T) {
	db := newTestDB(t)
	assessor := seedUser(t, db, models.RoleUser)
	admin := seedUser(t, db, models.RoleAdmin)
	locationID := seedLocation(t, db)
	setID, criterionIDs := seedCatalog(t, db, 10)

	svc := NewAssessmentService(db)
	created, _ := svc.Create(CreateInput{
		LocationID: locationID,
		SetID:      setID,
		AssessorID: assessor.UserID,
	})
	completeDetails(t, db, created.AssessmentID, map[int]int{criterionIDs[0]: 4})
	if _, err := svc.Submit(created.AssessmentID, assessor, 0); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	reason := "ramp gradient measured incorrectly"
	if _, err := svc.Reject(created.AssessmentID, admin, &reason, 0); err != nil {
		t.Fatalf("Reject() error = %v", err)
	}

	// Reviewer leaves an admin comment and a note on the detail.
	var detail models.AssessmentDetail
	db.Where("assessment_id = ?", created.AssessmentID).First(&detail)
	if err := db.Model(&detail).Update("admin_comment", "re-measure this").Error; err != nil {
		t.Fatalf("failed to set admin comment: %v", err)
	}
	details := NewDetailService(db)
	if _, err := details.AddReviewNote(detail.DetailID, admin, "photo does not show the gradient"); err != nil {
		t.Fatalf("AddReviewNote() error = %v", err)
	}

	if _, err := svc.Reassess(created.AssessmentID, assessor, 0); err != nil {
		t.Fatalf("Reassess() error = %v", err)
	}

	reloaded, _ := svc.Get(created.AssessmentID)
	if reloaded.Status != models.StatusDraft {
		t.Errorf("status = %s, want %s", reloaded.Status, models.StatusDraft)
	}
	if reloaded.RejectionReason != nil {
		t.Errorf("rejection_reason = %v, want nil", *reloaded.RejectionReason)
	}
	if reloaded.VerifierID != nil || reloaded.VerifiedAt != nil {
		t.Error("verifier fields were not cleared")
	}

	db.Where("detail_id = ?", detail.DetailID).First(&detail)
	if detail.AdminComment != nil {
		t.Errorf("admin_comment = %v, want nil", *detail.AdminComment)
	}
	var notes int64
	db.Model(&models.ReviewNote{}).Where("detail_id = ?", detail.DetailID).Count(&notes)
	if notes != 0 {
		t.Errorf("review notes remaining = %d, want 0", notes)
	}
}

func TestReassessRequiresRejectedStatus(t *testing.T) {
	db := newTestDB(t)
	assessor := seedUser(t, db, models.RoleUser)
	locationID := seedLocation(t, db)
	setID, _ := seedCatalog(t, db, 5)

	svc := NewAssessmentService(db)
	created, _ := svc.Create(CreateInput{
		LocationID: locationID,
		SetID:      setID,
		AssessorID: assessor.UserID,
	})

	if _, err := svc.Reassess(created.AssessmentID, assessor, 0); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Reassess() on pending error = %v, want ErrInvalidTransition", err)
	}
}

func TestDeleteRequiresCapability(t *testing.T) {
	db := newTestDB(t)
	assessor := seedUser(t, db, models.RoleUser)
	locationID := seedLocation(t, db)
	setID, _ := seedCatalog(t, db, 5)

	svc := NewAssessmentService(db)
	created, _ := svc.Create(CreateInput{
		LocationID: locationID,
		SetID:      setID,
		AssessorID: assessor.UserID,
	})

	if err := svc.Delete(created.AssessmentID, assessor); !errors.Is(err, ErrInsufficientPrivilege) {
		t.Errorf("Delete() by assessor error = %v, want ErrInsufficientPrivilege", err)
	}
}

func TestDeleteCascades(t *testing.T) {
	db := newTestDB(t)
	assessor := seedUser(t, db, models.RoleUser)
	admin := seedUser(t, db, models.RoleAdmin)
	locationID := seedLocation(t, db)
	setID, criterionIDs := seedCatalog(t, db, 10)

	assessmentID := makeVerified(t, db, locationID, setID, criterionIDs,
		map[int]int{criterionIDs[0]: 10}, assessor, admin)

	details := NewDetailService(db)
	if _, err := details.AddComment(assessmentID, assessor, "done"); err != nil {
		t.Fatalf("AddComment() error = %v", err)
	}
	var detail models.AssessmentDetail
	db.Where("assessment_id = ?", assessmentID).First(&detail)
	if _, err := details.AddReviewNote(detail.DetailID, admin, "checked"); err != nil {
		t.Fatalf("AddReviewNote() error = %v", err)
	}

	svc := NewAssessmentService(db)
	if err := svc.Delete(assessmentID, admin); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	for name, count := range map[string]int64{
		"headers":  tableCount(db, &models.Assessment{}, "assessment_id = ?", assessmentID),
		"details":  tableCount(db, &models.AssessmentDetail{}, "assessment_id = ?", assessmentID),
		"images":   tableCount(db, &models.AssessmentImage{}, "assessment_id = ?", assessmentID),
		"comments": tableCount(db, &models.AssessmentComment{}, "assessment_id = ?", assessmentID),
		"notes":    tableCount(db, &models.ReviewNote{}, "detail_id = ?", detail.DetailID),
	} {
		if count != 0 {
			t.Errorf("%s remaining after delete = %d, want 0", name, count)
		}
	}
}

func TestRecalculateIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	assessor := seedUser(t, db, models.RoleUser)
	locationID := seedLocation(t, db)
	setID, criterionIDs := seedCatalog(t, db, 5, 10)

	svc := NewAssessmentService(db)
	created, _ := svc.Create(CreateInput{
		LocationID: locationID,
		SetID:      setID,
		AssessorID: assessor.UserID,
	})
	completeDetails(t, db, created.AssessmentID, map[int]int{
		criterionIDs[0]: 4,
		criterionIDs[1]: 8,
	})

	first, err := svc.Recalculate(created.AssessmentID)
	if err != nil {
		t.Fatalf("Recalculate() error = %v", err)
	}
	second, err := svc.Recalculate(created.AssessmentID)
	if err != nil {
		t.Fatalf("second Recalculate() error = %v", err)
	}
	if first != second {
		t.Errorf("Recalculate() = %v then %v, want identical", first, second)
	}
	if first != 8 {
		t.Errorf("Recalculate() = %v, want 8", first)
	}

	// Status is untouched by a maintenance recompute.
	reloaded, _ := svc.Get(created.AssessmentID)
	if reloaded.Status != models.StatusPending {
		t.Errorf("status = %s, want %s", reloaded.Status, models.StatusPending)
	}
}

func TestRepairNullScores(t *testing.T) {
	db := newTestDB(t)
	assessor := seedUser(t, db, models.RoleUser)
	locationID := seedLocation(t, db)
	setID, criterionIDs := seedCatalog(t, db, 10)

	svc := NewAssessmentService(db)
	created, _ := svc.Create(CreateInput{
		LocationID: locationID,
		SetID:      setID,
		AssessorID: assessor.UserID,
	})
	completeDetails(t, db, created.AssessmentID, map[int]int{criterionIDs[0]: 7})
	if _, err := svc.Submit(created.AssessmentID, assessor, 0); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if err := db.Model(&models.Assessment{}).
		Where("assessment_id = ?", created.AssessmentID).
		Update("overall_score", nil).Error; err != nil {
		t.Fatalf("failed to null score: %v", err)
	}

	repaired, err := svc.RepairNullScores()
	if err != nil {
		t.Fatalf("RepairNullScores() error = %v", err)
	}
	if len(repaired) != 1 || repaired[0] != created.AssessmentID {
		t.Errorf("repaired = %v, want [%d]", repaired, created.AssessmentID)
	}

	reloaded, _ := svc.Get(created.AssessmentID)
	if reloaded.OverallScore == nil || *reloaded.OverallScore != 7 {
		t.Errorf("overall_score = %v, want 7", reloaded.OverallScore)
	}

	// Idempotent: nothing left to repair.
	repaired, err = svc.RepairNullScores()
	if err != nil {
		t.Fatalf("second RepairNullScores() error = %v", err)
	}
	if len(repaired) != 0 {
		t.Errorf("second sweep repaired %v, want none", repaired)
	}
}

func tableCount(db *gorm.DB, model interface{}, query string, args ...interface{}) int64 {
	var count int64
	db.Model(model).Where(query, args...).Count(&count)
	return count
}
