package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"
	"gorm.io/gorm"

	"github.com/calebmorten/shiftrelief/internal/database/testutil"
	"github.com/calebmorten/shiftrelief/internal/models"
	"github.com/calebmorten/shiftrelief/pkg/mail"
)

// fixedNow anchors every time-dependent assertion. "2025-03-10" is in the
// future relative to it, "2025-02-20" in the past.
var fixedNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

type captureMailer struct {
	mu   sync.Mutex
	sent []mail.Message
	fail bool
}

func (m *captureMailer) Send(_ context.Context, msg mail.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errors.New("smtp unreachable")
	}
	m.sent = append(m.sent, msg)
	return nil
}

func (m *captureMailer) messages() []mail.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]mail.Message, len(m.sent))
	copy(out, m.sent)
	return out
}

type fixture struct {
	db            *gorm.DB
	directory     *DirectoryService
	matching      *MatchingService
	dispatcher    *Dispatcher
	coordination  *CoordinationService
	availability  *AvailabilityService
	notifications *NotificationService
	mailer        *captureMailer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())

	directory, err := NewDirectoryService(db)
	require.NoError(t, err)

	matching, err := NewMatchingService(db, directory, language.English)
	require.NoError(t, err)

	mailer := &captureMailer{}
	dispatcher, err := NewDispatcher(directory, mailer, nil, LocaleSettings{
		Supported: []language.Tag{language.English, language.Spanish},
		Fallback:  language.English,
	})
	require.NoError(t, err)

	coordination, err := NewCoordinationService(db, dispatcher, directory, matching,
		WithNow(func() time.Time { return fixedNow }))
	require.NoError(t, err)

	availability, err := NewAvailabilityService(db)
	require.NoError(t, err)

	notifications, err := NewNotificationService(db)
	require.NoError(t, err)

	return &fixture{
		db:            db,
		directory:     directory,
		matching:      matching,
		dispatcher:    dispatcher,
		coordination:  coordination,
		availability:  availability,
		notifications: notifications,
		mailer:        mailer,
	}
}

func (f *fixture) createWorker(t *testing.T, username, firstName, lastName, preferredLanguage string) models.User {
	t.Helper()

	user := models.User{
		Username:          username,
		Email:             username + "@example.com",
		Password:          "hashed",
		FirstName:         firstName,
		LastName:          lastName,
		PreferredLanguage: preferredLanguage,
		IsActive:          true,
	}
	require.NoError(t, f.db.Create(&user).Error)
	return user
}

func (f *fixture) createShift(t *testing.T, name string) (models.ShiftTemplate, models.Recurrence) {
	t.Helper()

	template := models.ShiftTemplate{
		Name:      name,
		Weekday:   time.Monday,
		StartTime: "10:00",
		EndTime:   "14:00",
	}
	require.NoError(t, f.db.Create(&template).Error)

	recurrence := models.Recurrence{
		ShiftTemplateID: template.ID,
		Name:            "every week",
	}
	require.NoError(t, f.db.Create(&recurrence).Error)

	return template, recurrence
}

func (f *fixture) createRequest(t *testing.T, actorID, recurrenceID, date string) RequestDTO {
	t.Helper()

	dto, err := f.coordination.CreateRequest(context.Background(), CreateRequestInput{
		ActorID:      actorID,
		RecurrenceID: recurrenceID,
		Date:         date,
		Type:         models.RequestTypeSubstitute,
	})
	require.NoError(t, err)
	return dto
}

func (f *fixture) notificationsFor(t *testing.T, userID, eventType string) []models.Notification {
	t.Helper()

	var rows []models.Notification
	require.NoError(t, f.db.
		Where("user_id = ? AND type = ?", userID, eventType).
		Order("created_at").
		Find(&rows).Error)
	return rows
}

func (f *fixture) reloadRequest(t *testing.T, id string) models.SubstituteRequest {
	t.Helper()

	var row models.SubstituteRequest
	require.NoError(t, f.db.First(&row, "id = ?", id).Error)
	return row
}
