package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/text/language"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/calebmorten/shiftrelief/internal/locale"
	"github.com/calebmorten/shiftrelief/internal/models"
	"github.com/calebmorten/shiftrelief/internal/realtime"
	"github.com/calebmorten/shiftrelief/pkg/logger"
	"github.com/calebmorten/shiftrelief/pkg/mail"
	"github.com/calebmorten/shiftrelief/pkg/metrics"
)

// Event describes one notifiable outcome of a coordination command.
type Event struct {
	Type        string
	RecipientID string
	// ActorID is the counterpart worker shown in the message (the volunteer,
	// nominee, or requester depending on the event). Empty for system events.
	ActorID string
	Request *models.SubstituteRequest
}

// StagedEvent is an event whose in-app notification has been written inside
// the command transaction; it carries everything Deliver needs after commit.
type StagedEvent struct {
	Event     Event
	Recipient WorkerProfileDTO
	Locale    language.Tag
	Rendered  templateSet
	RowID     string
}

// LocaleSettings configures notification language selection.
type LocaleSettings struct {
	Supported []language.Tag
	Fallback  language.Tag
}

// Dispatcher turns state transitions into notifications. Staging the in-app
// row happens inside the command transaction; email and realtime delivery run
// after commit and are strictly best-effort.
type Dispatcher struct {
	directory *DirectoryService
	mailer    mail.Mailer
	hub       *realtime.Hub
	locales   LocaleSettings
	log       *zap.Logger
}

// NewDispatcher constructs a Dispatcher. The hub may be nil (no realtime
// consumers); the mailer may be a disabled SMTP mailer.
func NewDispatcher(directory *DirectoryService, mailer mail.Mailer, hub *realtime.Hub, locales LocaleSettings) (*Dispatcher, error) {
	if directory == nil {
		return nil, errors.New("dispatcher: directory is required")
	}
	if mailer == nil {
		return nil, errors.New("dispatcher: mailer is required")
	}
	if locales.Fallback == language.Und {
		locales.Fallback = language.English
	}
	if len(locales.Supported) == 0 {
		locales.Supported = []language.Tag{locales.Fallback}
	}
	return &Dispatcher{
		directory: directory,
		mailer:    mailer,
		hub:       hub,
		locales:   locales,
		log:       logger.WithModule("dispatcher"),
	}, nil
}

// Stage renders each event in the recipient's locale and writes the in-app
// notification row using the supplied transaction handle. The rows commit or
// roll back with the command itself.
func (d *Dispatcher) Stage(tx *gorm.DB, events ...Event) ([]StagedEvent, error) {
	staged := make([]StagedEvent, 0, len(events))

	for _, event := range events {
		recipient, err := d.directory.resolveWith(tx, event.RecipientID)
		if err != nil {
			return nil, fmt.Errorf("dispatcher: resolve recipient: %w", err)
		}

		actorName := ""
		if event.ActorID != "" {
			actor, err := d.directory.resolveWith(tx, event.ActorID)
			if err != nil {
				return nil, fmt.Errorf("dispatcher: resolve actor: %w", err)
			}
			actorName = actor.DisplayName
		}

		loc := locale.Resolve(recipient.PreferredLanguages, d.locales.Supported, d.locales.Fallback)
		rendered := renderTemplates(event.Type, loc, actorName,
			event.Request.Date, event.Request.StartTime, event.Request.EndTime)

		metadata, _ := json.Marshal(map[string]any{
			"request_id": event.Request.ID,
			"date":       event.Request.Date,
		})

		row := models.Notification{
			UserID:   event.RecipientID,
			Type:     event.Type,
			Message:  rendered.App,
			Metadata: datatypes.JSON(metadata),
		}
		if err := tx.Create(&row).Error; err != nil {
			return nil, fmt.Errorf("dispatcher: persist notification: %w", err)
		}
		metrics.NotificationsPersisted.WithLabelValues(event.Type).Inc()

		staged = append(staged, StagedEvent{
			Event:     event,
			Recipient: recipient,
			Locale:    loc,
			Rendered:  rendered,
			RowID:     row.ID,
		})
	}

	return staged, nil
}

// Deliver pushes staged events to realtime consumers and emails recipients.
// Failures are logged and counted, never returned: coordination correctness
// must not depend on mail delivery.
func (d *Dispatcher) Deliver(ctx context.Context, staged ...StagedEvent) {
	ctx = ensureContext(ctx)

	for _, s := range staged {
		if d.hub != nil {
			d.hub.Publish(s.Event.RecipientID, realtime.Event{
				Type: s.Event.Type,
				Data: map[string]any{
					"notification_id": s.RowID,
					"request_id":      s.Event.Request.ID,
					"message":         s.Rendered.App,
				},
			})
		}

		if s.Recipient.Email == "" {
			continue
		}

		err := d.mailer.Send(ctx, mail.Message{
			To:      s.Recipient.Email,
			Subject: s.Rendered.Subject,
			HTML:    s.Rendered.Body,
		})
		if err != nil && !errors.Is(err, mail.ErrSMTPDisabled) {
			metrics.EmailFailures.Inc()
			d.log.Warn("email delivery failed",
				zap.String("event", s.Event.Type),
				zap.String("recipient", s.Event.RecipientID),
				zap.Error(err),
			)
		}
	}
}
