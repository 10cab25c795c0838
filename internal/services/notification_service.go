package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/calebmorten/shiftrelief/internal/models"
	apperrors "github.com/calebmorten/shiftrelief/pkg/errors"
)

// NotificationService reads and acknowledges the in-app notification rows the
// dispatcher stages.
type NotificationService struct {
	db *gorm.DB
}

// NewNotificationService constructs a NotificationService.
func NewNotificationService(db *gorm.DB) (*NotificationService, error) {
	if db == nil {
		return nil, errors.New("notification service: db is required")
	}
	return &NotificationService{db: db}, nil
}

// ListForUser returns the user's notifications, newest first. unreadOnly
// filters out acknowledged rows.
func (s *NotificationService) ListForUser(ctx context.Context, userID string, unreadOnly bool) ([]models.Notification, error) {
	query := s.db.WithContext(ensureContext(ctx)).Where("user_id = ?", userID)
	if unreadOnly {
		query = query.Where("read_at IS NULL")
	}

	var rows []models.Notification
	if err := query.Order("created_at DESC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("notification service: list: %w", err)
	}
	return rows, nil
}

// UnreadCount returns how many notifications the user has not read.
func (s *NotificationService) UnreadCount(ctx context.Context, userID string) (int64, error) {
	var count int64
	if err := s.db.WithContext(ensureContext(ctx)).
		Model(&models.Notification{}).
		Where("user_id = ? AND read_at IS NULL", userID).
		Count(&count).Error; err != nil {
		return 0, fmt.Errorf("notification service: count unread: %w", err)
	}
	return count, nil
}

// MarkRead acknowledges one notification. Only the owner may acknowledge it;
// re-reading an already-read row keeps the original timestamp.
func (s *NotificationService) MarkRead(ctx context.Context, userID, notificationID string) (*models.Notification, error) {
	ctx = ensureContext(ctx)

	var row models.Notification
	if err := s.db.WithContext(ctx).First(&row, "id = ?", notificationID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound.WithMessage("notification not found")
		}
		return nil, fmt.Errorf("notification service: load: %w", err)
	}
	if row.UserID != userID {
		return nil, apperrors.ErrForbidden.WithMessage("notification belongs to another user")
	}
	if row.ReadAt != nil {
		return &row, nil
	}

	now := time.Now().UTC()
	if err := s.db.WithContext(ctx).Model(&row).Update("read_at", now).Error; err != nil {
		return nil, fmt.Errorf("notification service: mark read: %w", err)
	}
	row.ReadAt = &now
	return &row, nil
}

// MarkAllRead acknowledges every unread notification the user has and returns
// how many rows changed.
func (s *NotificationService) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	result := s.db.WithContext(ensureContext(ctx)).
		Model(&models.Notification{}).
		Where("user_id = ? AND read_at IS NULL", userID).
		Update("read_at", time.Now().UTC())
	if result.Error != nil {
		return 0, fmt.Errorf("notification service: mark all read: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// Delete removes one notification from the owner's inbox. Deleting an absent
// row is a no-op so duplicate submissions never error.
func (s *NotificationService) Delete(ctx context.Context, userID, notificationID string) error {
	if err := s.db.WithContext(ensureContext(ctx)).
		Where("id = ? AND user_id = ?", notificationID, userID).
		Delete(&models.Notification{}).Error; err != nil {
		return fmt.Errorf("notification service: delete: %w", err)
	}
	return nil
}
