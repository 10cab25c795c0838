package services

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
	"gorm.io/gorm"

	"github.com/calebmorten/shiftrelief/internal/models"
)

// Candidate ranks. Workers who usually cover the shift sort before tentative
// ones; workers with no stated availability come last.
const (
	RankUsually = 0
	RankMaybe   = 1
	RankNone    = 2
)

// AvailabilityMatch pairs a worker with their stated willingness level for a
// request's shift and recurrence.
type AvailabilityMatch struct {
	Worker WorkerProfileDTO `json:"worker"`
	Level  string           `json:"level"`
}

// RankedCandidate extends a match with the sort rank used by the nomination
// picker. Workers without an availability entry carry an empty level.
type RankedCandidate struct {
	Worker WorkerProfileDTO `json:"worker"`
	Level  string           `json:"level,omitempty"`
	Rank   int              `json:"rank"`
}

// MatchingService ranks candidate substitutes for a request.
type MatchingService struct {
	db        *gorm.DB
	directory *DirectoryService
	collation language.Tag
}

// NewMatchingService constructs a MatchingService. Names are ordered with the
// collation rules of the supplied tag.
func NewMatchingService(db *gorm.DB, directory *DirectoryService, collation language.Tag) (*MatchingService, error) {
	if db == nil {
		return nil, errors.New("matching service: db is required")
	}
	if directory == nil {
		return nil, errors.New("matching service: directory is required")
	}
	if collation == language.Und {
		collation = language.English
	}
	return &MatchingService{db: db, directory: directory, collation: collation}, nil
}

// AvailabilityMatchesForRequest returns every worker, other than the
// requester, whose availability covers the request's shift, either its exact
// recurrence or the "any recurrence" wildcard. Ordered usually before maybe,
// then by name.
func (s *MatchingService) AvailabilityMatchesForRequest(ctx context.Context, requestID string) ([]AvailabilityMatch, error) {
	ctx = ensureContext(ctx)

	request, err := s.loadRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}

	levels, err := s.availabilityLevels(ctx, request)
	if err != nil {
		return nil, err
	}

	matches := make([]AvailabilityMatch, 0, len(levels))
	for userID, level := range levels {
		worker, err := s.directory.ResolveWorker(ctx, userID)
		if err != nil {
			if errors.Is(err, ErrWorkerNotFound) {
				continue
			}
			return nil, err
		}
		matches = append(matches, AvailabilityMatch{Worker: worker, Level: level})
	}

	cmp := s.nameComparator()
	sort.SliceStable(matches, func(i, j int) bool {
		ri, rj := levelRank(matches[i].Level), levelRank(matches[j].Level)
		if ri != rj {
			return ri < rj
		}
		return cmp(matches[i].Worker.DisplayName, matches[j].Worker.DisplayName)
	})

	return matches, nil
}

// RankAllCandidates joins the full worker directory against the availability
// matches, so the requester's nomination picker can offer everyone. Workers
// with no stated availability rank last.
func (s *MatchingService) RankAllCandidates(ctx context.Context, requestID string) ([]RankedCandidate, error) {
	ctx = ensureContext(ctx)

	request, err := s.loadRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}

	levels, err := s.availabilityLevels(ctx, request)
	if err != nil {
		return nil, err
	}

	workers, err := s.directory.ListActiveWorkers(ctx)
	if err != nil {
		return nil, err
	}

	candidates := make([]RankedCandidate, 0, len(workers))
	for _, worker := range workers {
		if worker.ID == request.RequestedByUserID {
			continue
		}
		level := levels[worker.ID]
		candidates = append(candidates, RankedCandidate{
			Worker: worker,
			Level:  level,
			Rank:   levelRank(level),
		})
	}

	cmp := s.nameComparator()
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Rank != candidates[j].Rank {
			return candidates[i].Rank < candidates[j].Rank
		}
		return cmp(candidates[i].Worker.DisplayName, candidates[j].Worker.DisplayName)
	})

	return candidates, nil
}

// availabilityLevels collects the effective level per worker for the
// request's shift. When a worker stated both a recurrence-specific and a
// wildcard entry, the stronger level wins.
func (s *MatchingService) availabilityLevels(ctx context.Context, request *models.SubstituteRequest) (map[string]string, error) {
	var entries []models.AvailabilityEntry
	if err := s.db.WithContext(ctx).
		Where("shift_template_id = ? AND (recurrence_id = ? OR recurrence_id IS NULL)",
			request.ShiftTemplateID, request.RecurrenceID).
		Where("user_id <> ?", request.RequestedByUserID).
		Where("level IN ?", []string{models.AvailabilityUsually, models.AvailabilityMaybe}).
		Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("matching service: load availability: %w", err)
	}

	levels := make(map[string]string, len(entries))
	for _, entry := range entries {
		current, seen := levels[entry.UserID]
		if !seen || levelRank(entry.Level) < levelRank(current) {
			levels[entry.UserID] = entry.Level
		}
	}
	return levels, nil
}

func (s *MatchingService) loadRequest(ctx context.Context, requestID string) (*models.SubstituteRequest, error) {
	var request models.SubstituteRequest
	if err := s.db.WithContext(ctx).First(&request, "id = ?", requestID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRequestNotFound
		}
		return nil, fmt.Errorf("matching service: load request: %w", err)
	}
	return &request, nil
}

// nameComparator returns a locale-aware, case-insensitive less function. A
// fresh collator per call because collators are not safe for concurrent use.
func (s *MatchingService) nameComparator() func(a, b string) bool {
	c := collate.New(s.collation, collate.IgnoreCase)
	return func(a, b string) bool {
		return c.CompareString(a, b) < 0
	}
}

func levelRank(level string) int {
	switch level {
	case models.AvailabilityUsually:
		return RankUsually
	case models.AvailabilityMaybe:
		return RankMaybe
	default:
		return RankNone
	}
}
