package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/enerva/utility-backoffice/internal/identity"
	"github.com/enerva/utility-backoffice/internal/kind"
	"github.com/enerva/utility-backoffice/internal/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var (
	ErrNotFound            = errors.New("application not found")
	ErrInvalidStatus       = errors.New("invalid status value")
	ErrInvalidDocumentType = errors.New("invalid file type")
	ErrMissingApplicant    = errors.New("applicant_name is required")
	ErrInvalidDetails      = errors.New("details must be valid JSON")
	ErrEmptyDocument       = errors.New("document payload is empty")
)

// ApplicationService is the store, status machine and document gate for all
// three application kinds.
type ApplicationService struct {
	db *gorm.DB
}

func NewApplicationService(db *gorm.DB) *ApplicationService {
	return &ApplicationService{db: db}
}

// forKind returns a GORM scope that filters by kind tag.
func forKind(k kind.Spec) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("kind = ?", k.Name)
	}
}

// SubmitInput carries one application submission. Documents maps slot name to
// payload; UserID is nil for anonymous submissions.
type SubmitInput struct {
	ApplicantName string
	Details       []byte
	UserID        *uint
	Documents     map[string][]byte
}

func (s *ApplicationService) Submit(k kind.Spec, in *SubmitInput) (*models.Application, error) {
	if in.ApplicantName == "" {
		return nil, ErrMissingApplicant
	}

	details := in.Details
	if len(details) == 0 {
		details = []byte("{}")
	}
	if !json.Valid(details) {
		return nil, ErrInvalidDetails
	}

	for slot, data := range in.Documents {
		if !k.AllowsSlot(slot) {
			return nil, ErrInvalidDocumentType
		}
		if len(data) == 0 {
			return nil, fmt.Errorf("%w: %s", ErrEmptyDocument, slot)
		}
	}

	app := models.Application{
		Kind:          k.Name,
		UserID:        in.UserID,
		ApplicantName: in.ApplicantName,
		Details:       datatypes.JSON(details),
		Status:        models.StatusPending,
		SubmittedAt:   time.Now(),
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&app).Error; err != nil {
			return err
		}
		for slot, data := range in.Documents {
			doc := models.Document{
				ApplicationID: app.ID,
				Slot:          slot,
				Data:          data,
			}
			if err := tx.Create(&doc).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to store application: %w", err)
	}

	return &app, nil
}

// List returns every application of the kind, newest submission first.
func (s *ApplicationService) List(k kind.Spec) ([]models.Application, error) {
	var apps []models.Application
	err := s.db.Scopes(forKind(k)).
		Order("submitted_at DESC, id DESC").
		Find(&apps).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list applications: %w", err)
	}
	return apps, nil
}

func (s *ApplicationService) Get(k kind.Spec, id uint) (*models.Application, error) {
	var app models.Application
	err := s.db.Scopes(forKind(k)).First(&app, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch application: %w", err)
	}
	return &app, nil
}

// GetDocument returns the raw payload stored in one document slot. The slot
// name is checked against the kind's allowed set before any query runs. A
// missing application and an empty slot are both ErrNotFound; callers cannot
// tell which fields an application has.
func (s *ApplicationService) GetDocument(k kind.Spec, id uint, slot string) ([]byte, error) {
	if !k.AllowsSlot(slot) {
		return nil, ErrInvalidDocumentType
	}

	var doc models.Document
	err := s.db.
		Joins("JOIN applications ON applications.id = documents.application_id AND applications.kind = ?", k.Name).
		Where("documents.application_id = ? AND documents.slot = ?", id, slot).
		First(&doc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch document: %w", err)
	}
	return doc.Data, nil
}

// UpdateStatus applies a status transition and stamps the acting user. Any of
// the four statuses may follow any other; there is no transition graph. The
// write is a single conditional UPDATE so a concurrent delete cannot slip
// between an existence check and the write.
func (s *ApplicationService) UpdateStatus(k kind.Spec, id uint, status string, actor *identity.Claims) (*models.Application, error) {
	if !models.ValidStatuses[status] {
		return nil, ErrInvalidStatus
	}

	now := time.Now()
	result := s.db.Model(&models.Application{}).
		Where("id = ? AND kind = ?", id, k.Name).
		Updates(map[string]interface{}{
			"status":       status,
			"processed_at": now,
			"processed_by": actor.UserID,
			"updated_at":   now,
		})
	if result.Error != nil {
		return nil, fmt.Errorf("failed to update status: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, ErrNotFound
	}

	var app models.Application
	if err := s.db.Scopes(forKind(k)).First(&app, id).Error; err != nil {
		return nil, fmt.Errorf("failed to reload application: %w", err)
	}
	return &app, nil
}
