package model

import "time"

// Collaborator response statuses written by the respond call.
const (
	CollabStatusInvited  = "invited"
	CollabStatusAccepted = "accepted"
	CollabStatusDeclined = "declined"
)

// Booking is a confirmed service appointment on the platform. Only the
// fields the client reads are modeled; the backend owns the rest.
type Booking struct {
	// ID is the backend identifier used for the respond call.
	ID string `json:"id"`

	// InvoiceNumber is the human-facing booking code
	// (e.g. INV-20250110-9XQZ) embedded in notification text.
	InvoiceNumber string `json:"invoice_number"`

	// ServiceName is the booked offering's display name.
	ServiceName string `json:"service_name"`

	// Status is the booking lifecycle status (backend-defined).
	Status string `json:"status"`

	// ScheduledAt is when the service is to be performed.
	ScheduledAt time.Time `json:"scheduled_at"`
}

// Collaboration is an invitation record linking a provider to a booking.
// It is resolved as a fallback when a reference cannot be matched
// against bookings directly.
type Collaboration struct {
	// ID is the backend identifier for the collaboration record.
	ID string `json:"id"`

	// BookingID links back to the booking being collaborated on.
	BookingID string `json:"booking_id"`

	// NotificationID is the feed record that delivered this invite,
	// when the backend recorded it.
	NotificationID string `json:"notification_id"`

	// Status is one of the CollabStatus values.
	Status string `json:"status"`

	// InvitedAt is when the invitation was issued.
	InvitedAt time.Time `json:"invited_at"`
}
