package resolve

import (
	"context"
	"strings"

	"github.com/htran/glowdesk/internal/api"
	"github.com/htran/glowdesk/internal/extract"
	"github.com/htran/glowdesk/internal/model"
)

// directLookup queries the booking endpoint by exact reference.
func (c *Chain) directLookup(
	ctx context.Context,
	ref extract.Reference,
	_ model.Notification,
) (*Target, error) {
	booking, err := c.client.GetBookingByReference(ctx, ref.Value)
	if err != nil {
		if api.IsNotFound(err) {
			return nil, errNoMatch
		}
		return nil, err
	}
	return &Target{Kind: TargetBooking, ID: booking.ID}, nil
}

// listExactFilter fetches the full booking collection and filters by
// exact reference equality against the invoice number or backend id.
// Used when the backend has no direct-by-reference endpoint.
func (c *Chain) listExactFilter(
	ctx context.Context,
	ref extract.Reference,
	_ model.Notification,
) (*Target, error) {
	bookings, err := c.client.ListBookings(ctx)
	if err != nil {
		return nil, err
	}

	var matches []model.Booking
	for _, b := range bookings {
		if b.InvoiceNumber == ref.Value || b.ID == ref.Value {
			matches = append(matches, b)
		}
	}

	return c.bookingMatches(ref, "list-exact", matches)
}

// listPartialFilter filters the booking collection by substring
// containment in either direction, covering prefix/suffix formatting
// drift between the message text and the stored invoice number.
func (c *Chain) listPartialFilter(
	ctx context.Context,
	ref extract.Reference,
	_ model.Notification,
) (*Target, error) {
	bookings, err := c.client.ListBookings(ctx)
	if err != nil {
		return nil, err
	}

	var matches []model.Booking
	for _, b := range bookings {
		if b.InvoiceNumber == "" {
			continue
		}
		if strings.Contains(b.InvoiceNumber, ref.Value) ||
			strings.Contains(ref.Value, b.InvoiceNumber) {
			matches = append(matches, b)
		}
	}

	return c.bookingMatches(ref, "list-partial", matches)
}

// collaborationFallback abandons the extracted reference and resolves
// against the collaboration collection keyed by the notification id.
// Only records still awaiting a response are candidates.
func (c *Chain) collaborationFallback(
	ctx context.Context,
	ref extract.Reference,
	n model.Notification,
) (*Target, error) {
	collabs, err := c.client.ListCollaborations(ctx, n.ID)
	if err != nil {
		return nil, err
	}

	var matches []model.Collaboration
	for _, col := range collabs {
		if col.Status == model.CollabStatusInvited {
			matches = append(matches, col)
		}
	}

	switch len(matches) {
	case 0:
		return nil, errNoMatch
	case 1:
		// The respond call is keyed by booking id even for targets
		// found through the collaboration collection.
		return &Target{Kind: TargetCollaboration, ID: matches[0].BookingID}, nil
	default:
		return nil, &AmbiguousError{
			Reference: ref.Value,
			Strategy:  "collaboration-fallback",
			Count:     len(matches),
		}
	}
}

// bookingMatches converts a filtered booking slice into a unique target
// or the appropriate failure.
func (c *Chain) bookingMatches(
	ref extract.Reference,
	strategyName string,
	matches []model.Booking,
) (*Target, error) {
	switch len(matches) {
	case 0:
		return nil, errNoMatch
	case 1:
		return &Target{Kind: TargetBooking, ID: matches[0].ID}, nil
	default:
		return nil, &AmbiguousError{
			Reference: ref.Value,
			Strategy:  strategyName,
			Count:     len(matches),
		}
	}
}
