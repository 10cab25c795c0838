package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/calebmorten/shiftrelief/internal/models"
	apperrors "github.com/calebmorten/shiftrelief/pkg/errors"
)

// SetAvailabilityInput declares a worker's willingness level for a shift. A
// nil RecurrenceID covers every recurrence of the shift.
type SetAvailabilityInput struct {
	UserID          string
	ShiftTemplateID string
	RecurrenceID    *string
	Level           string
}

// AvailabilityService maintains the per-worker willingness entries the
// matching engine reads.
type AvailabilityService struct {
	db *gorm.DB
}

// NewAvailabilityService constructs an AvailabilityService.
func NewAvailabilityService(db *gorm.DB) (*AvailabilityService, error) {
	if db == nil {
		return nil, errors.New("availability service: db is required")
	}
	return &AvailabilityService{db: db}, nil
}

// SetLevel creates or updates the entry for the given scope.
func (s *AvailabilityService) SetLevel(ctx context.Context, input SetAvailabilityInput) (*models.AvailabilityEntry, error) {
	ctx = ensureContext(ctx)

	level := strings.TrimSpace(input.Level)
	if level != models.AvailabilityUsually && level != models.AvailabilityMaybe {
		return nil, apperrors.NewBadRequest("level must be usually or maybe")
	}
	if input.UserID == "" || input.ShiftTemplateID == "" {
		return nil, apperrors.NewBadRequest("user id and shift template id are required")
	}

	var entry models.AvailabilityEntry
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		query := tx.Where("user_id = ? AND shift_template_id = ?", input.UserID, input.ShiftTemplateID)
		if input.RecurrenceID == nil {
			query = query.Where("recurrence_id IS NULL")
		} else {
			query = query.Where("recurrence_id = ?", *input.RecurrenceID)
		}

		err := query.First(&entry).Error
		switch {
		case err == nil:
			return tx.Model(&entry).Update("level", level).Error
		case errors.Is(err, gorm.ErrRecordNotFound):
			entry = models.AvailabilityEntry{
				UserID:          input.UserID,
				ShiftTemplateID: input.ShiftTemplateID,
				RecurrenceID:    input.RecurrenceID,
				Level:           level,
			}
			return tx.Create(&entry).Error
		default:
			return err
		}
	})
	if err != nil {
		return nil, fmt.Errorf("availability service: set level: %w", err)
	}

	entry.Level = level
	return &entry, nil
}

// Remove deletes the entry for the given scope. Removing an absent entry is a no-op.
func (s *AvailabilityService) Remove(ctx context.Context, userID, shiftTemplateID string, recurrenceID *string) error {
	ctx = ensureContext(ctx)

	query := s.db.WithContext(ctx).Where("user_id = ? AND shift_template_id = ?", userID, shiftTemplateID)
	if recurrenceID == nil {
		query = query.Where("recurrence_id IS NULL")
	} else {
		query = query.Where("recurrence_id = ?", *recurrenceID)
	}

	if err := query.Delete(&models.AvailabilityEntry{}).Error; err != nil {
		return fmt.Errorf("availability service: remove entry: %w", err)
	}
	return nil
}

// ListForUser returns the worker's availability entries.
func (s *AvailabilityService) ListForUser(ctx context.Context, userID string) ([]models.AvailabilityEntry, error) {
	var entries []models.AvailabilityEntry
	if err := s.db.WithContext(ensureContext(ctx)).
		Where("user_id = ?", userID).
		Order("shift_template_id").
		Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("availability service: list entries: %w", err)
	}
	return entries, nil
}
