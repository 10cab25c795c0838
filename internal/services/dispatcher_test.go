package services

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/calebmorten/shiftrelief/internal/models"
)

func TestDispatcherStagesLocalizedNotification(t *testing.T) {
	f := newFixture(t)
	requester := f.createWorker(t, "maria", "Maria", "Lopez", "spanish")
	volunteer := f.createWorker(t, "jonas", "Jonas", "Berg", "en")
	_, recurrence := f.createShift(t, "front desk")

	request := f.createRequest(t, requester.ID, recurrence.ID, "2025-03-10")
	row := f.reloadRequest(t, request.ID)

	staged, err := f.dispatcher.Stage(f.db, Event{
		Type:        EventVolunteerOffered,
		RecipientID: requester.ID,
		ActorID:     volunteer.ID,
		Request:     &row,
	})
	require.NoError(t, err)
	require.Len(t, staged, 1)

	// "spanish" resolves to the es catalog; placeholders are filled.
	require.Equal(t, "Jonas Berg se ofreció a cubrir tu turno del 2025-03-10.", staged[0].Rendered.App)
	require.Contains(t, staged[0].Rendered.Body, "10:00")

	rows := f.notificationsFor(t, requester.ID, EventVolunteerOffered)
	require.Len(t, rows, 1)
	require.Equal(t, staged[0].Rendered.App, rows[0].Message)

	var metadata map[string]any
	require.NoError(t, json.Unmarshal(rows[0].Metadata, &metadata))
	require.Equal(t, request.ID, metadata["request_id"])
}

func TestDispatcherFallsBackToDefaultLocale(t *testing.T) {
	f := newFixture(t)
	requester := f.createWorker(t, "amelie", "Amelie", "Roux", "fr")
	volunteer := f.createWorker(t, "jonas", "Jonas", "Berg", "")
	_, recurrence := f.createShift(t, "front desk")

	request := f.createRequest(t, requester.ID, recurrence.ID, "2025-03-10")
	row := f.reloadRequest(t, request.ID)

	staged, err := f.dispatcher.Stage(f.db, Event{
		Type:        EventVolunteerOffered,
		RecipientID: requester.ID,
		ActorID:     volunteer.ID,
		Request:     &row,
	})
	require.NoError(t, err)
	require.Equal(t, "Jonas Berg volunteered to cover your 2025-03-10 shift.", staged[0].Rendered.App)
}

func TestDispatcherDeliverSendsEmail(t *testing.T) {
	f := newFixture(t)
	requester := f.createWorker(t, "maria", "Maria", "Lopez", "en")
	volunteer := f.createWorker(t, "jonas", "Jonas", "Berg", "en")
	_, recurrence := f.createShift(t, "front desk")

	request := f.createRequest(t, requester.ID, recurrence.ID, "2025-03-10")
	row := f.reloadRequest(t, request.ID)

	staged, err := f.dispatcher.Stage(f.db, Event{
		Type:        EventVolunteerOffered,
		RecipientID: requester.ID,
		ActorID:     volunteer.ID,
		Request:     &row,
	})
	require.NoError(t, err)

	f.dispatcher.Deliver(context.Background(), staged...)

	sent := f.mailer.messages()
	require.Len(t, sent, 1)
	require.Equal(t, "maria@example.com", sent[0].To)
	require.Equal(t, "A volunteer offered to cover your shift", sent[0].Subject)
}

func TestDispatcherDeliverSwallowsMailFailures(t *testing.T) {
	f := newFixture(t)
	f.mailer.fail = true
	requester := f.createWorker(t, "maria", "Maria", "Lopez", "en")
	volunteer := f.createWorker(t, "jonas", "Jonas", "Berg", "en")
	_, recurrence := f.createShift(t, "front desk")

	// The command itself must succeed and persist the in-app row even though
	// every outbound email fails.
	request := f.createRequest(t, requester.ID, recurrence.ID, "2025-03-10")
	_, err := f.coordination.Volunteer(context.Background(), request.ID, volunteer.ID)
	require.NoError(t, err)

	require.Len(t, f.notificationsFor(t, requester.ID, EventVolunteerOffered), 1)
	require.Empty(t, f.mailer.messages())
}

func TestDispatcherUsesKioskProfileAttributes(t *testing.T) {
	f := newFixture(t)
	requester := f.createWorker(t, "maria", "Maria", "Lopez", "en")
	volunteer := f.createWorker(t, "jonas", "Jonas", "Berg", "en")

	profile := models.WorkerProfile{
		UserID:             requester.ID,
		DisplayName:        "Mari",
		PreferredLanguages: []byte(`["es","en"]`),
	}
	require.NoError(t, f.db.Create(&profile).Error)

	_, recurrence := f.createShift(t, "front desk")
	request := f.createRequest(t, requester.ID, recurrence.ID, "2025-03-10")
	row := f.reloadRequest(t, request.ID)

	staged, err := f.dispatcher.Stage(f.db, Event{
		Type:        EventVolunteerOffered,
		RecipientID: requester.ID,
		ActorID:     volunteer.ID,
		Request:     &row,
	})
	require.NoError(t, err)
	require.Equal(t, "es", staged[0].Locale.String())
	require.Contains(t, staged[0].Rendered.App, "se ofreció")
}
