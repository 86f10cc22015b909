package aggregates

import (
	"strings"

	"github.com/google/uuid"

	"github.com/tripweaver/tripweaver-backend/internal/domain"
	domainagg "github.com/tripweaver/tripweaver-backend/internal/domain/aggregates"
)

// WriteMode distinguishes end-user writes from internal/system writes
// (planner job completion, maintenance tooling).
type WriteMode string

const (
	WriteModeUser     WriteMode = "user"
	WriteModeInternal WriteMode = "internal"
)

// AuthorizeTripWrite is the pure persistence authorization policy, shared by
// the HTTP-facing and job-facing write paths. No side effects, no I/O.
//
// user mode: the trip must exist and belong to userID. A missing trip is
// not_found, and not_found takes precedence over forbidden so callers can
// answer 404 before 403.
//
// internal mode: the trip must exist; when expectedOwner is supplied it must
// match the trip's actual owner (owner_mismatch otherwise). Without an
// expectation the write is trusted.
func AuthorizeTripWrite(mode WriteMode, trip *domain.Trip, userID uuid.UUID, expectedOwner *uuid.UUID) error {
	const op = "trip_plan.authorize"
	if trip == nil {
		return domainagg.NewError(domainagg.CodeNotFound, op, "trip not found", nil)
	}
	switch mode {
	case WriteModeUser:
		if trip.UserID != userID {
			return domainagg.NewError(domainagg.CodeForbidden, op, "trip belongs to another user", nil)
		}
		return nil
	case WriteModeInternal:
		if expectedOwner != nil && trip.UserID != *expectedOwner {
			return domainagg.NewError(domainagg.CodeOwnerMismatch, op, "trip owner does not match expectation", nil)
		}
		return nil
	default:
		return domainagg.NewError(domainagg.CodeValidation, op, "unknown write mode "+strings.TrimSpace(string(mode)), nil)
	}
}

// RequireCASSuccess converts a failed compare-and-set into a typed conflict error.
func RequireCASSuccess(ok bool, message string) error {
	if ok {
		return nil
	}
	return ConflictError(strings.TrimSpace(message))
}

// RequireVersionMatch validates version equality for optimistic locking flows.
func RequireVersionMatch(current, expected int) error {
	if expected < 0 {
		return ValidationError("expected version must be >= 0")
	}
	if current != expected {
		return ConflictError("version mismatch")
	}
	return nil
}
