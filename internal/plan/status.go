package plan

import (
	"github.com/google/uuid"

	"github.com/tripweaver/tripweaver-backend/internal/domain"
)

// DeriveItemStatus computes an item's fulfillment status from its booking
// snapshots. It is a pure function of the booking list; the persisted status
// is consulted only as a fallback when no branch fires.
//
// The chain is a strict priority order and exactly one branch fires:
//  1. any CONFIRMED or COMPLETED booking wins as BOOKED;
//  2. else any TENTATIVE or PENDING booking whose payment has not failed is a
//     live candidate: PENDING, candidate id recorded;
//  3. else a failed payment on the first snapshot (callers supply lists
//     newest-first; this function does not re-sort) is FAILED, no candidate;
//  4. else the persisted status, defaulting to DRAFT.
func DeriveItemStatus(bookings []domain.BookingSnapshot, persisted string) (domain.ItemStatus, *uuid.UUID) {
	for _, b := range bookings {
		if b.Status == domain.BookingConfirmed || b.Status == domain.BookingCompleted {
			return domain.ItemStatusBooked, nil
		}
	}
	for _, b := range bookings {
		if (b.Status == domain.BookingTentative || b.Status == domain.BookingPending) &&
			b.PaymentStatus != domain.PaymentFailed {
			id := b.ID
			return domain.ItemStatusPending, &id
		}
	}
	if len(bookings) > 0 && bookings[0].PaymentStatus == domain.PaymentFailed {
		return domain.ItemStatusFailed, nil
	}
	return domain.NormalizeItemStatus(persisted), nil
}
