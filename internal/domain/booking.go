package domain

import (
	"time"

	"github.com/google/uuid"
)

// BookingStatus is the booking subsystem's lifecycle state. This engine only
// reads it to derive item fulfillment status.
type BookingStatus string

const (
	BookingTentative BookingStatus = "TENTATIVE"
	BookingPending   BookingStatus = "PENDING"
	BookingConfirmed BookingStatus = "CONFIRMED"
	BookingCompleted BookingStatus = "COMPLETED"
	BookingCancelled BookingStatus = "CANCELLED"
)

type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "PENDING"
	PaymentPaid     PaymentStatus = "PAID"
	PaymentRefunded PaymentStatus = "REFUNDED"
	PaymentFailed   PaymentStatus = "FAILED"
)

// BookingSnapshot is a read-only view of a booking attached to an item.
// Callers supply snapshot lists newest-first; status derivation relies on
// that ordering and does not re-sort.
type BookingSnapshot struct {
	ID            uuid.UUID     `json:"id"`
	Status        BookingStatus `json:"status"`
	PaymentStatus PaymentStatus `json:"paymentStatus"`
	UpdatedAt     time.Time     `json:"updatedAt"`
}
