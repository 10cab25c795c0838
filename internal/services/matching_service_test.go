package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/calebmorten/shiftrelief/internal/models"
)

func TestAvailabilityMatchesOrdering(t *testing.T) {
	f := newFixture(t)
	requester := f.createWorker(t, "maria", "Maria", "Lopez", "")
	usually := f.createWorker(t, "jonas", "Jonas", "Berg", "")
	maybeA := f.createWorker(t, "petra", "Petra", "Kim", "")
	maybeB := f.createWorker(t, "anders", "Anders", "Vik", "")
	template, recurrence := f.createShift(t, "front desk")

	request := f.createRequest(t, requester.ID, recurrence.ID, "2025-03-10")

	for _, seed := range []struct {
		userID string
		level  string
	}{
		{usually.ID, models.AvailabilityUsually},
		{maybeA.ID, models.AvailabilityMaybe},
		{maybeB.ID, models.AvailabilityMaybe},
	} {
		_, err := f.availability.SetLevel(context.Background(), SetAvailabilityInput{
			UserID:          seed.userID,
			ShiftTemplateID: template.ID,
			RecurrenceID:    &recurrence.ID,
			Level:           seed.level,
		})
		require.NoError(t, err)
	}

	matches, err := f.matching.AvailabilityMatchesForRequest(context.Background(), request.ID)
	require.NoError(t, err)
	require.Len(t, matches, 3)

	// Usually first, then maybes by name: Anders Vik before Petra Kim.
	require.Equal(t, usually.ID, matches[0].Worker.ID)
	require.Equal(t, models.AvailabilityUsually, matches[0].Level)
	require.Equal(t, maybeB.ID, matches[1].Worker.ID)
	require.Equal(t, maybeA.ID, matches[2].Worker.ID)
}

func TestAvailabilityWildcardRecurrence(t *testing.T) {
	f := newFixture(t)
	requester := f.createWorker(t, "maria", "Maria", "Lopez", "")
	wildcard := f.createWorker(t, "jonas", "Jonas", "Berg", "")
	otherRec := f.createWorker(t, "petra", "Petra", "Kim", "")
	template, recurrence := f.createShift(t, "front desk")

	second := models.Recurrence{ShiftTemplateID: template.ID, Name: "second week"}
	require.NoError(t, f.db.Create(&second).Error)

	// A nil recurrence covers every recurrence of the shift.
	_, err := f.availability.SetLevel(context.Background(), SetAvailabilityInput{
		UserID:          wildcard.ID,
		ShiftTemplateID: template.ID,
		Level:           models.AvailabilityMaybe,
	})
	require.NoError(t, err)

	// An entry scoped to a different recurrence does not match.
	_, err = f.availability.SetLevel(context.Background(), SetAvailabilityInput{
		UserID:          otherRec.ID,
		ShiftTemplateID: template.ID,
		RecurrenceID:    &second.ID,
		Level:           models.AvailabilityUsually,
	})
	require.NoError(t, err)

	request := f.createRequest(t, requester.ID, recurrence.ID, "2025-03-10")

	matches, err := f.matching.AvailabilityMatchesForRequest(context.Background(), request.ID)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	require.Equal(t, wildcard.ID, matches[0].Worker.ID)
}

func TestAvailabilityStrongestLevelWins(t *testing.T) {
	f := newFixture(t)
	requester := f.createWorker(t, "maria", "Maria", "Lopez", "")
	worker := f.createWorker(t, "jonas", "Jonas", "Berg", "")
	template, recurrence := f.createShift(t, "front desk")

	// Wildcard maybe plus a recurrence-specific usually: usually wins.
	_, err := f.availability.SetLevel(context.Background(), SetAvailabilityInput{
		UserID:          worker.ID,
		ShiftTemplateID: template.ID,
		Level:           models.AvailabilityMaybe,
	})
	require.NoError(t, err)
	_, err = f.availability.SetLevel(context.Background(), SetAvailabilityInput{
		UserID:          worker.ID,
		ShiftTemplateID: template.ID,
		RecurrenceID:    &recurrence.ID,
		Level:           models.AvailabilityUsually,
	})
	require.NoError(t, err)

	request := f.createRequest(t, requester.ID, recurrence.ID, "2025-03-10")

	matches, err := f.matching.AvailabilityMatchesForRequest(context.Background(), request.ID)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	require.Equal(t, models.AvailabilityUsually, matches[0].Level)
}

func TestAvailabilityExcludesRequester(t *testing.T) {
	f := newFixture(t)
	requester := f.createWorker(t, "maria", "Maria", "Lopez", "")
	template, recurrence := f.createShift(t, "front desk")

	_, err := f.availability.SetLevel(context.Background(), SetAvailabilityInput{
		UserID:          requester.ID,
		ShiftTemplateID: template.ID,
		Level:           models.AvailabilityUsually,
	})
	require.NoError(t, err)

	request := f.createRequest(t, requester.ID, recurrence.ID, "2025-03-10")

	matches, err := f.matching.AvailabilityMatchesForRequest(context.Background(), request.ID)
	require.NoError(t, err)
	require.Empty(t, matches)
}

func TestRankAllCandidatesIncludesUnstatedWorkers(t *testing.T) {
	f := newFixture(t)
	requester := f.createWorker(t, "maria", "Maria", "Lopez", "")
	stated := f.createWorker(t, "jonas", "Jonas", "Berg", "")
	unstated := f.createWorker(t, "petra", "Petra", "Kim", "")
	inactive := f.createWorker(t, "sven", "Sven", "Holm", "")
	require.NoError(t, f.db.Model(&inactive).Update("is_active", false).Error)

	template, recurrence := f.createShift(t, "front desk")

	_, err := f.availability.SetLevel(context.Background(), SetAvailabilityInput{
		UserID:          stated.ID,
		ShiftTemplateID: template.ID,
		Level:           models.AvailabilityMaybe,
	})
	require.NoError(t, err)

	request := f.createRequest(t, requester.ID, recurrence.ID, "2025-03-10")

	candidates, err := f.matching.RankAllCandidates(context.Background(), request.ID)
	require.NoError(t, err)
	require.Len(t, candidates, 2)

	require.Equal(t, stated.ID, candidates[0].Worker.ID)
	require.Equal(t, RankMaybe, candidates[0].Rank)
	require.Equal(t, unstated.ID, candidates[1].Worker.ID)
	require.Equal(t, RankNone, candidates[1].Rank)
	require.Empty(t, candidates[1].Level)
}

func TestMatchingUnknownRequest(t *testing.T) {
	f := newFixture(t)

	_, err := f.matching.AvailabilityMatchesForRequest(context.Background(), "00000000-0000-0000-0000-000000000000")
	require.ErrorIs(t, err, ErrRequestNotFound)
}
