package services

import (
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	apperrors "github.com/calebmorten/shiftrelief/pkg/errors"
)

// Domain errors surfaced by the coordination engine. All build on the shared
// AppError taxonomy so the HTTP layer renders them without translation.
var (
	ErrRequestNotFound = apperrors.ErrNotFound.WithMessage("substitute request not found")
	ErrOfferNotFound   = apperrors.ErrNotFound.WithMessage("volunteer offer not found")
	ErrWorkerNotFound  = apperrors.ErrNotFound.WithMessage("worker not found")

	// ErrDuplicateRequest reports a second non-terminal request for the same
	// requester, shift, and date.
	ErrDuplicateRequest = apperrors.ErrConflict.WithMessage("an open request already exists for this shift and date")

	// ErrAcceptanceRace reports that a concurrent command changed the request
	// status before this acceptance committed.
	ErrAcceptanceRace = apperrors.ErrConflict.WithMessage("the request was claimed by a concurrent command")
)

// isUniqueConstraintError detects database uniqueness constraint violations across vendors.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr != nil && pgErr.Code == "23505" {
		return true
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) && myErr != nil && myErr.Number == 1062 {
		return true
	}

	lower := strings.ToLower(err.Error())
	return strings.Contains(lower, "unique") ||
		strings.Contains(lower, "duplicate") ||
		strings.Contains(lower, "constraint")
}
