package services

import (
	"fmt"
	"strings"
	"testing"

	"access-audit-api/models"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestDB opens a per-test in-memory database and migrates the full schema.
// The name is derived from the test so parallel tests never share state.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared",
		strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	err = db.AutoMigrate(
		&models.Role{},
		&models.User{},
		&models.Location{},
		&models.LocationStats{},
		&models.AccessibilityCriterion{},
		&models.AssessmentSet{},
		&models.SetCriterion{},
		&models.Assessment{},
		&models.AssessmentDetail{},
		&models.AssessmentImage{},
		&models.AssessmentComment{},
		&models.ReviewNote{},
		&models.Notification{},
	)
	if err != nil {
		t.Fatalf("failed to migrate test schema: %v", err)
	}

	// The package caches outlive individual tests; start each test cold.
	InvalidateCatalogCache()
	statsCacheMu.Lock()
	statsCache = map[string]statsCacheEntry{}
	statsCacheMu.Unlock()

	return db
}

func seedUser(t *testing.T, db *gorm.DB, roleID int) *models.User {
	t.Helper()
	user := &models.User{
		UserID:    uuid.NewString(),
		UserFname: "Test",
		UserLname: "User",
		Email:     uuid.NewString() + "@example.com",
		Password:  "not-a-real-hash",
		RoleID:    roleID,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to seed user: %v", err)
	}
	return user
}

func seedLocation(t *testing.T, db *gorm.DB) string {
	t.Helper()
	location := models.Location{
		LocationID:   uuid.NewString(),
		LocationName: "Test Building",
		Address:      "1 Example Road",
		Status:       "active",
	}
	if err := db.Create(&location).Error; err != nil {
		t.Fatalf("failed to seed location: %v", err)
	}
	return location.LocationID
}

// seedCatalog creates one set containing a criterion per given max score, in
// order, and returns the set and criterion IDs.
func seedCatalog(t *testing.T, db *gorm.DB, maxScores ...int) (int, []int) {
	t.Helper()

	set := models.AssessmentSet{
		SetName:  "Set " + uuid.NewString()[:8],
		Version:  1,
		IsActive: true,
	}
	if err := db.Create(&set).Error; err != nil {
		t.Fatalf("failed to seed assessment set: %v", err)
	}

	criterionIDs := make([]int, 0, len(maxScores))
	for i, max := range maxScores {
		criterion := models.AccessibilityCriterion{
			CriterionName: fmt.Sprintf("Criterion %d", i+1),
			Code:          uuid.NewString()[:8],
			MaxScore:      max,
		}
		if err := db.Create(&criterion).Error; err != nil {
			t.Fatalf("failed to seed criterion: %v", err)
		}
		link := models.SetCriterion{
			SetID:       set.SetID,
			CriterionID: criterion.CriterionID,
			Sequence:    i + 1,
		}
		if err := db.Create(&link).Error; err != nil {
			t.Fatalf("failed to link criterion: %v", err)
		}
		criterionIDs = append(criterionIDs, criterion.CriterionID)
	}
	return set.SetID, criterionIDs
}

// completeDetails scores every detail of the assessment and attaches one
// evidence image each, satisfying both submission guards.
func completeDetails(t *testing.T, db *gorm.DB, assessmentID int, scores map[int]int) {
	t.Helper()

	var details []models.AssessmentDetail
	if err := db.Where("assessment_id = ?", assessmentID).Find(&details).Error; err != nil {
		t.Fatalf("failed to load details: %v", err)
	}
	for _, detail := range details {
		score, ok := scores[detail.CriterionID]
		if !ok {
			t.Fatalf("no score provided for criterion %d", detail.CriterionID)
		}
		if err := db.Model(&detail).Update("score", score).Error; err != nil {
			t.Fatalf("failed to score detail: %v", err)
		}
		detailID := detail.DetailID
		image := models.AssessmentImage{
			AssessmentID: assessmentID,
			DetailID:     &detailID,
			StorageKey:   fmt.Sprintf("assessment_images/%d/%d/test.jpg", assessmentID, detailID),
			UploadedBy:   "test",
		}
		if err := db.Create(&image).Error; err != nil {
			t.Fatalf("failed to attach image: %v", err)
		}
	}
}

// makeVerified drives a fresh assessment all the way to verified with the
// given per-criterion scores and returns its ID.
func makeVerified(t *testing.T, db *gorm.DB, locationID string, setID int, criterionIDs []int, scores map[int]int, assessor, admin *models.User) int {
	t.Helper()

	svc := NewAssessmentService(db)
	created, err := svc.Create(CreateInput{
		LocationID: locationID,
		SetID:      setID,
		AssessorID: assessor.UserID,
	})
	if err != nil {
		t.Fatalf("failed to create assessment: %v", err)
	}
	completeDetails(t, db, created.AssessmentID, scores)
	if _, err := svc.Submit(created.AssessmentID, assessor, 0); err != nil {
		t.Fatalf("failed to submit assessment: %v", err)
	}
	if _, err := svc.Verify(created.AssessmentID, admin, 0); err != nil {
		t.Fatalf("failed to verify assessment: %v", err)
	}
	return created.AssessmentID
}
