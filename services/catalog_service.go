package services

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"access-audit-api/config"
	"access-audit-api/models"

	"gorm.io/gorm"
)

// CatalogService manages the accessibility criteria and the versioned sets
// that bundle them. List/get reads go through an in-process TTL cache;
// every mutation invalidates it so stale catalog data is never served.
type CatalogService struct {
	db *gorm.DB
}

func NewCatalogService(db *gorm.DB) *CatalogService {
	if db == nil {
		db = config.DB
	}
	return &CatalogService{db: db}
}

var (
	catalogCacheMu sync.RWMutex
	catalogCache   *catalogCacheEntry
	catalogTTL     = time.Hour
)

type catalogCacheEntry struct {
	criteria  []models.AccessibilityCriterion
	sets      []models.AssessmentSet
	fetchedAt time.Time
}

func (s *CatalogService) loadCatalog(force bool) (*catalogCacheEntry, error) {
	catalogCacheMu.RLock()
	cached := catalogCache
	catalogCacheMu.RUnlock()

	if cached != nil && !force && time.Since(cached.fetchedAt) < catalogTTL {
		return cached, nil
	}

	catalogCacheMu.Lock()
	defer catalogCacheMu.Unlock()

	if catalogCache != nil && !force && time.Since(catalogCache.fetchedAt) < catalogTTL {
		return catalogCache, nil
	}

	var criteria []models.AccessibilityCriterion
	if err := s.db.Order("criterion_name").Find(&criteria).Error; err != nil {
		return nil, fmt.Errorf("failed to load criteria: %w", err)
	}
	var sets []models.AssessmentSet
	if err := s.db.Order("set_name").Find(&sets).Error; err != nil {
		return nil, fmt.Errorf("failed to load assessment sets: %w", err)
	}

	entry := &catalogCacheEntry{
		criteria:  criteria,
		sets:      sets,
		fetchedAt: time.Now(),
	}
	catalogCache = entry
	return entry, nil
}

// InvalidateCatalogCache drops the cached catalog lists.
func InvalidateCatalogCache() {
	catalogCacheMu.Lock()
	defer catalogCacheMu.Unlock()
	catalogCache = nil
}

// --- criteria ---------------------------------------------------------------

type CriterionInput struct {
	CriterionName string
	Code          string
	Description   *string
	MaxScore      int
	Unit          *string
}

func (s *CatalogService) CreateCriterion(in CriterionInput) (*models.AccessibilityCriterion, error) {
	now := time.Now()
	criterion := models.AccessibilityCriterion{
		CriterionName: in.CriterionName,
		Code:          in.Code,
		Description:   in.Description,
		MaxScore:      in.MaxScore,
		Unit:          in.Unit,
		CreateAt:      &now,
		UpdateAt:      &now,
	}
	if err := s.db.Create(&criterion).Error; err != nil {
		return nil, err
	}
	InvalidateCatalogCache()
	log.Printf("Created criterion %s (%s)", criterion.CriterionName, criterion.Code)
	return &criterion, nil
}

func (s *CatalogService) UpdateCriterion(criterionID int, updates map[string]interface{}) (*models.AccessibilityCriterion, error) {
	var criterion models.AccessibilityCriterion
	if err := s.db.Where("criterion_id = ?", criterionID).First(&criterion).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("criterion %d: %w", criterionID, ErrNotFound)
		}
		return nil, err
	}
	updates["update_at"] = time.Now()
	if err := s.db.Model(&criterion).Updates(updates).Error; err != nil {
		return nil, err
	}
	InvalidateCatalogCache()
	return &criterion, nil
}

// DeleteCriterion removes a criterion unless any set still links it.
func (s *CatalogService) DeleteCriterion(criterionID int) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var criterion models.AccessibilityCriterion
		if err := tx.Where("criterion_id = ?", criterionID).First(&criterion).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("criterion %d: %w", criterionID, ErrNotFound)
			}
			return err
		}

		var refs int64
		if err := tx.Model(&models.SetCriterion{}).
			Where("criterion_id = ?", criterionID).Count(&refs).Error; err != nil {
			return err
		}
		if refs > 0 {
			return fmt.Errorf("criterion %d is used in %d sets: %w", criterionID, refs, ErrCriterionInUse)
		}

		if err := tx.Delete(&criterion).Error; err != nil {
			return err
		}
		InvalidateCatalogCache()
		return nil
	})
}

func (s *CatalogService) GetCriterion(criterionID int) (*models.AccessibilityCriterion, error) {
	entry, err := s.loadCatalog(false)
	if err != nil {
		return nil, err
	}
	for i := range entry.criteria {
		if entry.criteria[i].CriterionID == criterionID {
			c := entry.criteria[i]
			return &c, nil
		}
	}
	return nil, fmt.Errorf("criterion %d: %w", criterionID, ErrNotFound)
}

func (s *CatalogService) ListCriteria() ([]models.AccessibilityCriterion, error) {
	entry, err := s.loadCatalog(false)
	if err != nil {
		return nil, err
	}
	return entry.criteria, nil
}

// --- assessment sets --------------------------------------------------------

type SetInput struct {
	SetName     string
	Description *string
	Version     int
	IsActive    bool
}

func (s *CatalogService) CreateSet(in SetInput) (*models.AssessmentSet, error) {
	if in.Version == 0 {
		in.Version = 1
	}
	now := time.Now()
	set := models.AssessmentSet{
		SetName:     in.SetName,
		Description: in.Description,
		Version:     in.Version,
		IsActive:    in.IsActive,
		CreateAt:    &now,
		UpdateAt:    &now,
	}
	if err := s.db.Create(&set).Error; err != nil {
		return nil, err
	}
	InvalidateCatalogCache()
	log.Printf("Created assessment set %s v%d", set.SetName, set.Version)
	return &set, nil
}

func (s *CatalogService) UpdateSet(setID int, updates map[string]interface{}) (*models.AssessmentSet, error) {
	var set models.AssessmentSet
	if err := s.db.Where("set_id = ?", setID).First(&set).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("assessment set %d: %w", setID, ErrNotFound)
		}
		return nil, err
	}
	updates["update_at"] = time.Now()
	if err := s.db.Model(&set).Updates(updates).Error; err != nil {
		return nil, err
	}
	InvalidateCatalogCache()
	return &set, nil
}

// DeleteSet removes a set and its criterion links unless assessments still
// reference it.
func (s *CatalogService) DeleteSet(setID int) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var set models.AssessmentSet
		if err := tx.Where("set_id = ?", setID).First(&set).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("assessment set %d: %w", setID, ErrNotFound)
			}
			return err
		}

		var refs int64
		if err := tx.Model(&models.Assessment{}).
			Where("set_id = ?", setID).Count(&refs).Error; err != nil {
			return err
		}
		if refs > 0 {
			return fmt.Errorf("set %d is used in %d assessments: %w", setID, refs, ErrSetInUse)
		}

		if err := tx.Where("set_id = ?", setID).Delete(&models.SetCriterion{}).Error; err != nil {
			return err
		}
		if err := tx.Delete(&set).Error; err != nil {
			return err
		}
		InvalidateCatalogCache()
		return nil
	})
}

func (s *CatalogService) GetSet(setID int) (*models.AssessmentSet, error) {
	entry, err := s.loadCatalog(false)
	if err != nil {
		return nil, err
	}
	for i := range entry.sets {
		if entry.sets[i].SetID == setID {
			set := entry.sets[i]
			return &set, nil
		}
	}
	return nil, fmt.Errorf("assessment set %d: %w", setID, ErrNotFound)
}

func (s *CatalogService) ListSets() ([]models.AssessmentSet, error) {
	entry, err := s.loadCatalog(false)
	if err != nil {
		return nil, err
	}
	return entry.sets, nil
}

// --- set criteria -----------------------------------------------------------

// AddCriterionToSet links a criterion into a set. An existing link has its
// sequence updated in place; a new link without an explicit sequence goes to
// the end of the set.
func (s *CatalogService) AddCriterionToSet(setID, criterionID, sequence int) (*models.SetCriterion, error) {
	var link models.SetCriterion
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("set_id = ? AND criterion_id = ?", setID, criterionID).
			First(&link).Error; err == nil {
			if sequence > 0 {
				link.Sequence = sequence
				return tx.Model(&models.SetCriterion{}).
					Where("set_id = ? AND criterion_id = ?", setID, criterionID).
					Update("sequence", sequence).Error
			}
			return nil
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		if sequence <= 0 {
			var maxSeq *int
			if err := tx.Model(&models.SetCriterion{}).
				Select("MAX(sequence)").Where("set_id = ?", setID).
				Scan(&maxSeq).Error; err != nil {
				return err
			}
			sequence = 1
			if maxSeq != nil {
				sequence = *maxSeq + 1
			}
		}

		link = models.SetCriterion{SetID: setID, CriterionID: criterionID, Sequence: sequence}
		return tx.Create(&link).Error
	})
	if err != nil {
		return nil, err
	}
	InvalidateCatalogCache()
	return &link, nil
}

func (s *CatalogService) RemoveCriterionFromSet(setID, criterionID int) error {
	result := s.db.Where("set_id = ? AND criterion_id = ?", setID, criterionID).
		Delete(&models.SetCriterion{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("criterion %d in set %d: %w", criterionID, setID, ErrNotFound)
	}
	InvalidateCatalogCache()
	return nil
}

// ReplaceSetCriteria swaps the set's full criterion list for the given one,
// numbering sequences from 1 in list order.
func (s *CatalogService) ReplaceSetCriteria(setID int, criterionIDs []int) ([]models.SetCriterion, error) {
	var links []models.SetCriterion
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("set_id = ?", setID).Delete(&models.SetCriterion{}).Error; err != nil {
			return err
		}
		for i, criterionID := range criterionIDs {
			link := models.SetCriterion{SetID: setID, CriterionID: criterionID, Sequence: i + 1}
			if err := tx.Create(&link).Error; err != nil {
				return err
			}
			links = append(links, link)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	InvalidateCatalogCache()
	return links, nil
}

// ListSetCriteria returns the set's criteria joined with their sequence, in
// evaluation order.
func (s *CatalogService) ListSetCriteria(setID int) ([]models.SetCriterion, error) {
	var links []models.SetCriterion
	err := s.db.Preload("Criterion").
		Where("set_id = ?", setID).
		Order("sequence").Find(&links).Error
	return links, err
}
