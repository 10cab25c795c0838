package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/calebmorten/shiftrelief/internal/models"
	apperrors "github.com/calebmorten/shiftrelief/pkg/errors"
	"github.com/calebmorten/shiftrelief/pkg/logger"
	"github.com/calebmorten/shiftrelief/pkg/metrics"
)

// RequestDTO is the snapshot of a substitute request returned by every command.
type RequestDTO struct {
	ID                   string     `json:"id"`
	ShiftTemplateID      string     `json:"shift_template_id"`
	RecurrenceID         string     `json:"recurrence_id"`
	Date                 string     `json:"date"`
	StartTime            string     `json:"start_time"`
	EndTime              string     `json:"end_time"`
	Type                 string     `json:"type"`
	Status               string     `json:"status"`
	RequestedByUserID    string     `json:"requested_by_user_id"`
	NominatedSubUserID   *string    `json:"nominated_sub_user_id,omitempty"`
	NominatedConfirmedAt *time.Time `json:"nominated_confirmed_at,omitempty"`
	AcceptedByUserID     *string    `json:"accepted_by_user_id,omitempty"`
	AcceptedAt           *time.Time `json:"accepted_at,omitempty"`
	CreatedAt            time.Time  `json:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at"`

	// ViewerHasActiveOffer is populated by ListOpenRequests only.
	ViewerHasActiveOffer bool `json:"viewer_has_active_offer,omitempty"`
}

// VolunteerDTO pairs an offer with the volunteer's resolved profile.
type VolunteerDTO struct {
	Worker    WorkerProfileDTO `json:"worker"`
	Status    string           `json:"status"`
	CreatedAt time.Time        `json:"created_at"`
}

// RequestDetailDTO is the full view backing the request page: the request,
// its volunteer pool, and the ranked nomination candidates.
type RequestDetailDTO struct {
	Request          RequestDTO        `json:"request"`
	Volunteers       []VolunteerDTO    `json:"volunteers"`
	RankedCandidates []RankedCandidate `json:"ranked_candidates"`
}

// CreateRequestInput carries the attributes of a new coverage request.
type CreateRequestInput struct {
	ActorID      string
	RecurrenceID string
	Date         string
	Type         string
}

// CoordinationService is the single authority over substitute-request state.
// Every command runs as one transaction that locks the request row, validates
// the actor and the status precondition, applies the mutation, and stages the
// in-app notifications that belong to the transition.
type CoordinationService struct {
	db         *gorm.DB
	dispatcher *Dispatcher
	directory  *DirectoryService
	matching   *MatchingService
	now        func() time.Time
	log        *zap.Logger
}

// CoordinationOption customises the CoordinationService.
type CoordinationOption func(*CoordinationService)

// WithNow overrides the clock used for acceptance timestamps and expiry
// comparisons, keeping time-dependent behaviour deterministic under test.
func WithNow(now func() time.Time) CoordinationOption {
	return func(s *CoordinationService) {
		if now != nil {
			s.now = now
		}
	}
}

// NewCoordinationService constructs the coordination engine.
func NewCoordinationService(db *gorm.DB, dispatcher *Dispatcher, directory *DirectoryService, matching *MatchingService, opts ...CoordinationOption) (*CoordinationService, error) {
	if db == nil {
		return nil, errors.New("coordination service: db is required")
	}
	if dispatcher == nil {
		return nil, errors.New("coordination service: dispatcher is required")
	}
	if directory == nil {
		return nil, errors.New("coordination service: directory is required")
	}
	if matching == nil {
		return nil, errors.New("coordination service: matching is required")
	}

	svc := &CoordinationService{
		db:         db,
		dispatcher: dispatcher,
		directory:  directory,
		matching:   matching,
		now:        time.Now,
		log:        logger.WithModule("coordination"),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// CreateRequest opens a new coverage request for one occurrence of a shift.
// The store-level uniqueness of active_key rejects a second live request for
// the same requester, shift, and date even under concurrency; only
// cancellation and expiry release the slot.
func (s *CoordinationService) CreateRequest(ctx context.Context, input CreateRequestInput) (RequestDTO, error) {
	return s.run(ctx, "create_request", func(tx *gorm.DB) (*models.SubstituteRequest, []Event, error) {
		if !validDate(input.Date) {
			return nil, nil, apperrors.NewBadRequest("date must be an ISO calendar date")
		}
		reqType := strings.TrimSpace(input.Type)
		if reqType != models.RequestTypeSubstitute && reqType != models.RequestTypeTrade {
			return nil, nil, apperrors.NewBadRequest("type must be substitute or trade")
		}

		var recurrence models.Recurrence
		if err := tx.Preload("ShiftTemplate").First(&recurrence, "id = ?", input.RecurrenceID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, nil, apperrors.ErrNotFound.WithMessage("shift recurrence not found")
			}
			return nil, nil, fmt.Errorf("coordination: load recurrence: %w", err)
		}
		if recurrence.ShiftTemplate == nil {
			return nil, nil, fmt.Errorf("coordination: recurrence %s has no shift template", recurrence.ID)
		}

		activeKey := models.ComposeActiveKey(input.ActorID, recurrence.ShiftTemplateID, input.Date)
		request := models.SubstituteRequest{
			ShiftTemplateID:   recurrence.ShiftTemplateID,
			RecurrenceID:      recurrence.ID,
			Date:              input.Date,
			StartTime:         recurrence.ShiftTemplate.StartTime,
			EndTime:           recurrence.ShiftTemplate.EndTime,
			Type:              reqType,
			Status:            models.RequestStatusOpen,
			RequestedByUserID: input.ActorID,
			ActiveKey:         &activeKey,
		}

		if err := tx.Create(&request).Error; err != nil {
			if isUniqueConstraintError(err) {
				return nil, nil, ErrDuplicateRequest
			}
			return nil, nil, fmt.Errorf("coordination: create request: %w", err)
		}
		return &request, nil, nil
	})
}

// Volunteer records a worker's offer to cover the request. The first active
// offer moves the request to awaiting_request_confirmation; later volunteers
// join the pool without changing status.
func (s *CoordinationService) Volunteer(ctx context.Context, requestID, actorID string) (RequestDTO, error) {
	return s.run(ctx, "volunteer", func(tx *gorm.DB) (*models.SubstituteRequest, []Event, error) {
		request, err := lockRequest(tx, requestID)
		if err != nil {
			return nil, nil, err
		}
		if request.Status != models.RequestStatusOpen && request.Status != models.RequestStatusAwaitingRequestConf {
			return nil, nil, apperrors.ErrInvalidTransition.WithMessage("the request is not open for volunteers")
		}
		if actorID == request.RequestedByUserID {
			return nil, nil, apperrors.ErrForbidden.WithMessage("the requester cannot volunteer for their own shift")
		}
		if err := ensureActiveWorker(tx, actorID); err != nil {
			return nil, nil, err
		}

		var offer models.VolunteerOffer
		err = tx.First(&offer, "request_id = ? AND volunteer_user_id = ?", request.ID, actorID).Error
		switch {
		case err == nil:
			if offer.Status == models.OfferStatusOffered {
				return nil, nil, apperrors.ErrConflict.WithMessage("you have already volunteered for this request")
			}
			// Revive the withdrawn row instead of inserting a duplicate.
			if err := tx.Model(&offer).Update("status", models.OfferStatusOffered).Error; err != nil {
				return nil, nil, fmt.Errorf("coordination: revive offer: %w", err)
			}
		case errors.Is(err, gorm.ErrRecordNotFound):
			offer = models.VolunteerOffer{
				RequestID:       request.ID,
				VolunteerUserID: actorID,
				Status:          models.OfferStatusOffered,
			}
			if err := tx.Create(&offer).Error; err != nil {
				if isUniqueConstraintError(err) {
					return nil, nil, apperrors.ErrConflict.WithMessage("you have already volunteered for this request")
				}
				return nil, nil, fmt.Errorf("coordination: create offer: %w", err)
			}
		default:
			return nil, nil, fmt.Errorf("coordination: load offer: %w", err)
		}

		if request.Status == models.RequestStatusOpen {
			request.Status = models.RequestStatusAwaitingRequestConf
			if err := tx.Save(request).Error; err != nil {
				return nil, nil, fmt.Errorf("coordination: update request: %w", err)
			}
		}

		events := []Event{{
			Type:        EventVolunteerOffered,
			RecipientID: request.RequestedByUserID,
			ActorID:     actorID,
			Request:     request,
		}}
		return request, events, nil
	})
}

// WithdrawVolunteer retracts the actor's offer. When the last active offer
// goes, the request falls back to open. Withdrawing an already-withdrawn
// offer is a no-op so duplicate submissions never error or double-notify.
func (s *CoordinationService) WithdrawVolunteer(ctx context.Context, requestID, actorID string) (RequestDTO, error) {
	return s.run(ctx, "withdraw_volunteer", func(tx *gorm.DB) (*models.SubstituteRequest, []Event, error) {
		request, err := lockRequest(tx, requestID)
		if err != nil {
			return nil, nil, err
		}
		if request.IsTerminal() {
			return nil, nil, apperrors.ErrInvalidTransition.WithMessage("the request is closed")
		}

		var offer models.VolunteerOffer
		if err := tx.First(&offer, "request_id = ? AND volunteer_user_id = ?", request.ID, actorID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, nil, ErrOfferNotFound
			}
			return nil, nil, fmt.Errorf("coordination: load offer: %w", err)
		}
		if offer.Status == models.OfferStatusWithdrawn {
			return request, nil, nil
		}

		if err := tx.Model(&offer).Update("status", models.OfferStatusWithdrawn).Error; err != nil {
			return nil, nil, fmt.Errorf("coordination: withdraw offer: %w", err)
		}

		var remaining int64
		if err := tx.Model(&models.VolunteerOffer{}).
			Where("request_id = ? AND status = ?", request.ID, models.OfferStatusOffered).
			Count(&remaining).Error; err != nil {
			return nil, nil, fmt.Errorf("coordination: count offers: %w", err)
		}
		if remaining == 0 && request.Status == models.RequestStatusAwaitingRequestConf {
			request.Status = models.RequestStatusOpen
			if err := tx.Save(request).Error; err != nil {
				return nil, nil, fmt.Errorf("coordination: update request: %w", err)
			}
		}

		events := []Event{{
			Type:        EventVolunteerWithdrawn,
			RecipientID: request.RequestedByUserID,
			ActorID:     actorID,
			Request:     request,
		}}
		return request, events, nil
	})
}

// NominateSubstitute privately asks one worker to cover the shift. Allowed
// only while the request is open; once volunteers have arrived the requester
// must pick from the pool instead. While a nomination is pending, nominating
// a different worker replaces it atomically.
func (s *CoordinationService) NominateSubstitute(ctx context.Context, requestID, actorID, nomineeID string) (RequestDTO, error) {
	return s.run(ctx, "nominate_substitute", func(tx *gorm.DB) (*models.SubstituteRequest, []Event, error) {
		request, err := lockRequest(tx, requestID)
		if err != nil {
			return nil, nil, err
		}
		if actorID != request.RequestedByUserID {
			return nil, nil, apperrors.ErrForbidden.WithMessage("only the requester may nominate a substitute")
		}
		if nomineeID == request.RequestedByUserID {
			return nil, nil, apperrors.NewBadRequest("the requester cannot nominate themselves")
		}

		switch request.Status {
		case models.RequestStatusOpen:
		case models.RequestStatusAwaitingNomination:
			if request.NominatedSubUserID != nil && *request.NominatedSubUserID == nomineeID {
				return request, nil, nil
			}
		default:
			return nil, nil, apperrors.ErrInvalidTransition.WithMessage("nomination is only possible while the request is open")
		}

		if err := ensureActiveWorker(tx, nomineeID); err != nil {
			return nil, nil, err
		}

		request.NominatedSubUserID = &nomineeID
		request.NominatedConfirmedAt = nil
		request.Status = models.RequestStatusAwaitingNomination
		if err := tx.Save(request).Error; err != nil {
			return nil, nil, fmt.Errorf("coordination: update request: %w", err)
		}

		events := []Event{{
			Type:        EventNominated,
			RecipientID: nomineeID,
			ActorID:     request.RequestedByUserID,
			Request:     request,
		}}
		return request, events, nil
	})
}

// CancelNomination retracts a pending nomination and reopens the request.
// Idempotent: cancelling when the request is already open succeeds silently.
func (s *CoordinationService) CancelNomination(ctx context.Context, requestID, actorID string) (RequestDTO, error) {
	return s.run(ctx, "cancel_nomination", func(tx *gorm.DB) (*models.SubstituteRequest, []Event, error) {
		request, err := lockRequest(tx, requestID)
		if err != nil {
			return nil, nil, err
		}
		if actorID != request.RequestedByUserID {
			return nil, nil, apperrors.ErrForbidden.WithMessage("only the requester may cancel a nomination")
		}

		switch request.Status {
		case models.RequestStatusOpen:
			return request, nil, nil
		case models.RequestStatusAwaitingNomination:
		default:
			return nil, nil, apperrors.ErrInvalidTransition.WithMessage("no pending nomination to cancel")
		}

		clearNomination(request)
		request.Status = models.RequestStatusOpen
		if err := tx.Save(request).Error; err != nil {
			return nil, nil, fmt.Errorf("coordination: update request: %w", err)
		}
		return request, nil, nil
	})
}

// ConfirmNomination is the nominee's acceptance: the request closes with the
// nominee recorded as the substitute.
func (s *CoordinationService) ConfirmNomination(ctx context.Context, requestID, actorID string) (RequestDTO, error) {
	return s.run(ctx, "confirm_nomination", func(tx *gorm.DB) (*models.SubstituteRequest, []Event, error) {
		request, err := lockRequest(tx, requestID)
		if err != nil {
			return nil, nil, err
		}
		if request.Status != models.RequestStatusAwaitingNomination || request.NominatedSubUserID == nil {
			return nil, nil, apperrors.ErrInvalidTransition.WithMessage("the request has no pending nomination")
		}
		if actorID != *request.NominatedSubUserID {
			return nil, nil, apperrors.ErrForbidden.WithMessage("only the nominated worker may confirm")
		}

		now := s.now().UTC()
		request.NominatedConfirmedAt = &now
		request.AcceptedByUserID = request.NominatedSubUserID
		request.AcceptedAt = &now
		request.Status = models.RequestStatusAccepted
		if err := saveFull(tx, request); err != nil {
			return nil, nil, err
		}

		events := []Event{{
			Type:        EventNominationConfirmed,
			RecipientID: request.RequestedByUserID,
			ActorID:     actorID,
			Request:     request,
		}}
		return request, events, nil
	})
}

// DeclineNomination is the nominee's refusal: the nomination is cleared and
// the request reopens for volunteers or another nomination.
func (s *CoordinationService) DeclineNomination(ctx context.Context, requestID, actorID string) (RequestDTO, error) {
	return s.run(ctx, "decline_nomination", func(tx *gorm.DB) (*models.SubstituteRequest, []Event, error) {
		request, err := lockRequest(tx, requestID)
		if err != nil {
			return nil, nil, err
		}
		if request.Status != models.RequestStatusAwaitingNomination || request.NominatedSubUserID == nil {
			return nil, nil, apperrors.ErrInvalidTransition.WithMessage("the request has no pending nomination")
		}
		if actorID != *request.NominatedSubUserID {
			return nil, nil, apperrors.ErrForbidden.WithMessage("only the nominated worker may decline")
		}

		clearNomination(request)
		request.Status = models.RequestStatusOpen
		if err := saveFull(tx, request); err != nil {
			return nil, nil, err
		}

		events := []Event{{
			Type:        EventNominationDeclined,
			RecipientID: request.RequestedByUserID,
			ActorID:     actorID,
			Request:     request,
		}}
		return request, events, nil
	})
}

// AcceptVolunteer closes the request with the named volunteer as substitute.
// The status write is conditioned on the row still awaiting confirmation, so
// of two racing acceptances exactly one commits; the loser gets ErrAcceptanceRace.
// Every other active offer is withdrawn in the same transaction.
func (s *CoordinationService) AcceptVolunteer(ctx context.Context, requestID, actorID, volunteerUserID string) (RequestDTO, error) {
	return s.run(ctx, "accept_volunteer", func(tx *gorm.DB) (*models.SubstituteRequest, []Event, error) {
		request, err := lockRequest(tx, requestID)
		if err != nil {
			return nil, nil, err
		}
		if actorID != request.RequestedByUserID {
			return nil, nil, apperrors.ErrForbidden.WithMessage("only the requester may accept a volunteer")
		}
		if request.Status != models.RequestStatusAwaitingRequestConf {
			return nil, nil, apperrors.ErrInvalidTransition.WithMessage("the request is not awaiting confirmation")
		}

		var offer models.VolunteerOffer
		if err := tx.First(&offer, "request_id = ? AND volunteer_user_id = ? AND status = ?",
			request.ID, volunteerUserID, models.OfferStatusOffered).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, nil, ErrOfferNotFound
			}
			return nil, nil, fmt.Errorf("coordination: load offer: %w", err)
		}

		now := s.now().UTC()
		result := tx.Model(&models.SubstituteRequest{}).
			Where("id = ? AND status = ?", request.ID, models.RequestStatusAwaitingRequestConf).
			Updates(map[string]any{
				"status":              models.RequestStatusAccepted,
				"accepted_by_user_id": volunteerUserID,
				"accepted_at":         now,
			})
		if result.Error != nil {
			return nil, nil, fmt.Errorf("coordination: accept volunteer: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return nil, nil, ErrAcceptanceRace
		}

		if err := withdrawActiveOffers(tx, request.ID); err != nil {
			return nil, nil, err
		}

		request.Status = models.RequestStatusAccepted
		request.AcceptedByUserID = &volunteerUserID
		request.AcceptedAt = &now

		events := []Event{{
			Type:        EventVolunteerAccepted,
			RecipientID: volunteerUserID,
			ActorID:     request.RequestedByUserID,
			Request:     request,
		}}
		return request, events, nil
	})
}

// WithdrawAcceptedSub lets the recorded substitute back out after acceptance;
// the request reopens and the requester is told their coverage fell through.
func (s *CoordinationService) WithdrawAcceptedSub(ctx context.Context, requestID, actorID string) (RequestDTO, error) {
	return s.run(ctx, "withdraw_accepted_sub", func(tx *gorm.DB) (*models.SubstituteRequest, []Event, error) {
		request, err := lockRequest(tx, requestID)
		if err != nil {
			return nil, nil, err
		}
		if request.Status != models.RequestStatusAccepted {
			return nil, nil, apperrors.ErrInvalidTransition.WithMessage("the request is not accepted")
		}
		if request.AcceptedByUserID == nil || *request.AcceptedByUserID != actorID {
			return nil, nil, apperrors.ErrForbidden.WithMessage("only the accepted substitute may withdraw")
		}

		// The request kept its active_key through acceptance, so reopening
		// cannot collide with a newer request for the same shift and date.
		request.AcceptedByUserID = nil
		request.AcceptedAt = nil
		clearNomination(request)
		request.Status = models.RequestStatusOpen
		if err := saveFull(tx, request); err != nil {
			return nil, nil, err
		}

		events := []Event{{
			Type:        EventReopened,
			RecipientID: request.RequestedByUserID,
			ActorID:     actorID,
			Request:     request,
		}}
		return request, events, nil
	})
}

// CancelRequest closes the request from any non-terminal status. Pending
// volunteers and a pending nominee are told the request is gone. Cancelling
// an already-cancelled request is a no-op.
func (s *CoordinationService) CancelRequest(ctx context.Context, requestID, actorID string) (RequestDTO, error) {
	return s.run(ctx, "cancel_request", func(tx *gorm.DB) (*models.SubstituteRequest, []Event, error) {
		request, err := lockRequest(tx, requestID)
		if err != nil {
			return nil, nil, err
		}
		if actorID != request.RequestedByUserID {
			return nil, nil, apperrors.ErrForbidden.WithMessage("only the requester may cancel the request")
		}
		if request.Status == models.RequestStatusCancelled {
			return request, nil, nil
		}
		if request.IsTerminal() {
			return nil, nil, apperrors.ErrInvalidTransition.WithMessage("the request is closed")
		}

		recipients, err := affectedParties(tx, request)
		if err != nil {
			return nil, nil, err
		}

		request.Status = models.RequestStatusCancelled
		request.ActiveKey = nil
		if err := saveFull(tx, request); err != nil {
			return nil, nil, err
		}
		if err := withdrawActiveOffers(tx, request.ID); err != nil {
			return nil, nil, err
		}

		events := make([]Event, 0, len(recipients))
		for _, recipient := range recipients {
			events = append(events, Event{
				Type:        EventCancelled,
				RecipientID: recipient,
				ActorID:     request.RequestedByUserID,
				Request:     request,
			})
		}
		return request, events, nil
	})
}

// ExpireRequest closes a request whose date has passed without resolution.
// System-invoked by the sweep; safe to call repeatedly and concurrently,
// since a request that already reached a terminal status is left untouched.
func (s *CoordinationService) ExpireRequest(ctx context.Context, requestID string) (RequestDTO, error) {
	return s.run(ctx, "expire_request", func(tx *gorm.DB) (*models.SubstituteRequest, []Event, error) {
		request, err := lockRequest(tx, requestID)
		if err != nil {
			return nil, nil, err
		}
		if request.IsTerminal() {
			return request, nil, nil
		}

		today := s.now().UTC().Format("2006-01-02")
		if request.Date >= today {
			return nil, nil, apperrors.ErrInvalidTransition.WithMessage("the request date has not passed")
		}

		clearNomination(request)
		request.Status = models.RequestStatusExpired
		request.ActiveKey = nil
		if err := saveFull(tx, request); err != nil {
			return nil, nil, err
		}
		if err := withdrawActiveOffers(tx, request.ID); err != nil {
			return nil, nil, err
		}

		metrics.ExpiredRequests.Inc()
		events := []Event{{
			Type:        EventExpired,
			RecipientID: request.RequestedByUserID,
			Request:     request,
		}}
		return request, events, nil
	})
}

// ListExpirable returns the ids of requests the sweep should expire: any
// non-terminal request whose date precedes today per the injected clock.
func (s *CoordinationService) ListExpirable(ctx context.Context) ([]string, error) {
	today := s.now().UTC().Format("2006-01-02")

	var ids []string
	if err := s.db.WithContext(ensureContext(ctx)).
		Model(&models.SubstituteRequest{}).
		Where("status IN ?", []string{
			models.RequestStatusOpen,
			models.RequestStatusAwaitingRequestConf,
			models.RequestStatusAwaitingNomination,
		}).
		Where("date < ?", today).
		Pluck("id", &ids).Error; err != nil {
		return nil, fmt.Errorf("coordination: list expirable: %w", err)
	}
	return ids, nil
}

// ListOpenRequests returns requests volunteers can still join, annotated with
// whether the viewer already has an active offer on each.
func (s *CoordinationService) ListOpenRequests(ctx context.Context, viewerID string) ([]RequestDTO, error) {
	ctx = ensureContext(ctx)

	var rows []models.SubstituteRequest
	if err := s.db.WithContext(ctx).
		Where("status IN ?", []string{
			models.RequestStatusOpen,
			models.RequestStatusAwaitingRequestConf,
		}).
		Order("date, start_time").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("coordination: list open requests: %w", err)
	}

	offered := make(map[string]bool)
	if viewerID != "" && len(rows) > 0 {
		ids := make([]string, 0, len(rows))
		for _, row := range rows {
			ids = append(ids, row.ID)
		}

		var offers []models.VolunteerOffer
		if err := s.db.WithContext(ctx).
			Where("request_id IN ? AND volunteer_user_id = ? AND status = ?",
				ids, viewerID, models.OfferStatusOffered).
			Find(&offers).Error; err != nil {
			return nil, fmt.Errorf("coordination: load viewer offers: %w", err)
		}
		for _, offer := range offers {
			offered[offer.RequestID] = true
		}
	}

	out := make([]RequestDTO, 0, len(rows))
	for _, row := range rows {
		dto := mapRequest(&row)
		dto.ViewerHasActiveOffer = offered[row.ID]
		out = append(out, dto)
	}
	return out, nil
}

// GetRequestDetail returns the request, its volunteer pool, and the ranked
// nomination candidates.
func (s *CoordinationService) GetRequestDetail(ctx context.Context, requestID string) (*RequestDetailDTO, error) {
	ctx = ensureContext(ctx)

	var request models.SubstituteRequest
	if err := s.db.WithContext(ctx).First(&request, "id = ?", requestID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRequestNotFound
		}
		return nil, fmt.Errorf("coordination: load request: %w", err)
	}

	var offers []models.VolunteerOffer
	if err := s.db.WithContext(ctx).
		Where("request_id = ?", request.ID).
		Order("created_at").
		Find(&offers).Error; err != nil {
		return nil, fmt.Errorf("coordination: load offers: %w", err)
	}

	volunteers := make([]VolunteerDTO, 0, len(offers))
	for _, offer := range offers {
		worker, err := s.directory.ResolveWorker(ctx, offer.VolunteerUserID)
		if err != nil {
			if errors.Is(err, ErrWorkerNotFound) {
				continue
			}
			return nil, err
		}
		volunteers = append(volunteers, VolunteerDTO{
			Worker:    worker,
			Status:    offer.Status,
			CreatedAt: offer.CreatedAt,
		})
	}

	candidates, err := s.matching.RankAllCandidates(ctx, request.ID)
	if err != nil {
		return nil, err
	}

	return &RequestDetailDTO{
		Request:          mapRequest(&request),
		Volunteers:       volunteers,
		RankedCandidates: candidates,
	}, nil
}

// run executes one command: a single transaction covering the mutation and
// the staged in-app notifications, then post-commit delivery and metrics.
func (s *CoordinationService) run(ctx context.Context, command string, mutate func(tx *gorm.DB) (*models.SubstituteRequest, []Event, error)) (RequestDTO, error) {
	ctx = ensureContext(ctx)

	var request *models.SubstituteRequest
	var staged []StagedEvent

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var events []Event
		var err error
		request, events, err = mutate(tx)
		if err != nil {
			return err
		}
		staged, err = s.dispatcher.Stage(tx, events...)
		return err
	})

	metrics.CoordinationCommands.WithLabelValues(command, commandResult(err)).Inc()
	if err != nil {
		return RequestDTO{}, err
	}

	s.dispatcher.Deliver(ctx, staged...)
	return mapRequest(request), nil
}

func lockRequest(tx *gorm.DB, requestID string) (*models.SubstituteRequest, error) {
	var request models.SubstituteRequest
	if err := tx.
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&request, "id = ?", requestID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRequestNotFound
		}
		return nil, fmt.Errorf("coordination: load request: %w", err)
	}
	return &request, nil
}

func ensureActiveWorker(tx *gorm.DB, userID string) error {
	var count int64
	if err := tx.Model(&models.User{}).
		Where("id = ? AND is_active = ?", userID, true).
		Count(&count).Error; err != nil {
		return fmt.Errorf("coordination: check worker: %w", err)
	}
	if count == 0 {
		return ErrWorkerNotFound
	}
	return nil
}

// saveFull persists every field of the request, including columns being set
// to NULL, which Save with struct defaults would skip.
func saveFull(tx *gorm.DB, request *models.SubstituteRequest) error {
	if err := tx.Model(request).
		Select("*").
		Omit("created_at").
		Updates(request).Error; err != nil {
		return fmt.Errorf("coordination: update request: %w", err)
	}
	return nil
}

func withdrawActiveOffers(tx *gorm.DB, requestID string) error {
	if err := tx.Model(&models.VolunteerOffer{}).
		Where("request_id = ? AND status = ?", requestID, models.OfferStatusOffered).
		Update("status", models.OfferStatusWithdrawn).Error; err != nil {
		return fmt.Errorf("coordination: withdraw offers: %w", err)
	}
	return nil
}

// affectedParties lists who must hear about a cancellation: the pending
// nominee and every worker with an active offer.
func affectedParties(tx *gorm.DB, request *models.SubstituteRequest) ([]string, error) {
	var recipients []string
	if request.Status == models.RequestStatusAwaitingNomination && request.NominatedSubUserID != nil {
		recipients = append(recipients, *request.NominatedSubUserID)
	}

	var offers []models.VolunteerOffer
	if err := tx.
		Where("request_id = ? AND status = ?", request.ID, models.OfferStatusOffered).
		Find(&offers).Error; err != nil {
		return nil, fmt.Errorf("coordination: load offers: %w", err)
	}
	for _, offer := range offers {
		if !containsString(recipients, offer.VolunteerUserID) {
			recipients = append(recipients, offer.VolunteerUserID)
		}
	}
	return recipients, nil
}

func clearNomination(request *models.SubstituteRequest) {
	request.NominatedSubUserID = nil
	request.NominatedConfirmedAt = nil
}

func mapRequest(row *models.SubstituteRequest) RequestDTO {
	return RequestDTO{
		ID:                   row.ID,
		ShiftTemplateID:      row.ShiftTemplateID,
		RecurrenceID:         row.RecurrenceID,
		Date:                 row.Date,
		StartTime:            row.StartTime,
		EndTime:              row.EndTime,
		Type:                 row.Type,
		Status:               row.Status,
		RequestedByUserID:    row.RequestedByUserID,
		NominatedSubUserID:   row.NominatedSubUserID,
		NominatedConfirmedAt: row.NominatedConfirmedAt,
		AcceptedByUserID:     row.AcceptedByUserID,
		AcceptedAt:           row.AcceptedAt,
		CreatedAt:            row.CreatedAt,
		UpdatedAt:            row.UpdatedAt,
	}
}

func commandResult(err error) string {
	if err == nil {
		return "ok"
	}
	switch apperrors.FromError(err).Code {
	case apperrors.ErrForbidden.Code:
		return "forbidden"
	case apperrors.ErrInvalidTransition.Code:
		return "invalid_state"
	case apperrors.ErrNotFound.Code:
		return "not_found"
	case apperrors.ErrConflict.Code:
		return "conflict"
	default:
		return "error"
	}
}
