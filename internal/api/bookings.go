package api

import (
	"context"
	"fmt"
	"net/url"

	"github.com/htran/glowdesk/internal/model"
)

// GetBookingByReference looks a booking up directly by its reference
// (invoice number or backend id). Returns *NotFoundError when the
// backend has no record for the reference.
func (c *Client) GetBookingByReference(
	ctx context.Context,
	ref string,
) (*model.Booking, error) {
	var booking model.Booking
	path := "/api/v1/bookings/" + url.PathEscape(ref)
	if err := c.Get(ctx, path, &booking); err != nil {
		return nil, err
	}
	return &booking, nil
}

// ListBookings fetches the caller's booking collection. Used by the
// list-and-filter resolution strategies when no direct-by-reference
// endpoint matches.
func (c *Client) ListBookings(ctx context.Context) ([]model.Booking, error) {
	var result BookingList
	if err := c.Get(ctx, "/api/v1/bookings", &result); err != nil {
		return nil, fmt.Errorf("fetching bookings: %w", err)
	}
	return result.Items, nil
}

// RespondToCollaboration applies an accept/decline decision against a
// booking. The call is not idempotent: responding twice yields the
// backend's "already responded" error, surfaced verbatim as *APIError.
func (c *Client) RespondToCollaboration(
	ctx context.Context,
	bookingID string,
	status string,
) error {
	path := "/api/v1/bookings/" + url.PathEscape(bookingID) + "/collaborators/respond"
	if err := c.Post(ctx, path, respondBody{Status: status}, nil); err != nil {
		return err
	}
	return nil
}
