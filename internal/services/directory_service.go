package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/calebmorten/shiftrelief/internal/models"
)

// WorkerProfileDTO is the single resolved profile for a worker. A worker may
// be backed by both an auth identity and a kiosk-facing profile record; the
// directory coalesces them exactly once, here, so matching and notification
// logic never has to.
type WorkerProfileDTO struct {
	ID                 string   `json:"id"`
	DisplayName        string   `json:"display_name"`
	AvatarURL          string   `json:"avatar_url"`
	Email              string   `json:"email"`
	PreferredLanguages []string `json:"preferred_languages"`
}

// DirectoryService resolves worker identities into display profiles.
type DirectoryService struct {
	db *gorm.DB
}

// NewDirectoryService constructs a DirectoryService.
func NewDirectoryService(db *gorm.DB) (*DirectoryService, error) {
	if db == nil {
		return nil, errors.New("directory service: db is required")
	}
	return &DirectoryService{db: db}, nil
}

// ResolveWorker returns the coalesced profile for one worker.
func (s *DirectoryService) ResolveWorker(ctx context.Context, userID string) (WorkerProfileDTO, error) {
	return s.resolveWith(s.db.WithContext(ensureContext(ctx)), userID)
}

// resolveWith resolves against an explicit handle so callers inside a
// transaction reuse its connection.
func (s *DirectoryService) resolveWith(db *gorm.DB, userID string) (WorkerProfileDTO, error) {
	var user models.User
	if err := db.Preload("Profile").First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return WorkerProfileDTO{}, ErrWorkerNotFound
		}
		return WorkerProfileDTO{}, fmt.Errorf("directory service: load worker: %w", err)
	}
	return coalesceProfile(user), nil
}

// ListActiveWorkers returns resolved profiles for every active worker.
func (s *DirectoryService) ListActiveWorkers(ctx context.Context) ([]WorkerProfileDTO, error) {
	var users []models.User
	if err := s.db.WithContext(ensureContext(ctx)).
		Preload("Profile").
		Where("is_active = ?", true).
		Find(&users).Error; err != nil {
		return nil, fmt.Errorf("directory service: list workers: %w", err)
	}

	profiles := make([]WorkerProfileDTO, 0, len(users))
	for _, user := range users {
		profiles = append(profiles, coalesceProfile(user))
	}
	return profiles, nil
}

// coalesceProfile folds the auth identity and the optional kiosk profile into
// one resolved value. Kiosk attributes win when present.
func coalesceProfile(user models.User) WorkerProfileDTO {
	dto := WorkerProfileDTO{
		ID:          user.ID,
		DisplayName: user.DisplayName(),
		AvatarURL:   user.Avatar,
		Email:       user.Email,
	}

	if profile := user.Profile; profile != nil {
		dto.DisplayName = defaultIfEmpty(profile.DisplayName, dto.DisplayName)
		dto.AvatarURL = defaultIfEmpty(profile.AvatarURL, dto.AvatarURL)

		if len(profile.PreferredLanguages) > 0 {
			var languages []string
			if err := json.Unmarshal(profile.PreferredLanguages, &languages); err == nil {
				dto.PreferredLanguages = languages
			}
		}
	}

	if user.PreferredLanguage != "" && !containsString(dto.PreferredLanguages, user.PreferredLanguage) {
		dto.PreferredLanguages = append(dto.PreferredLanguages, user.PreferredLanguage)
	}

	return dto
}
