package api

import "github.com/htran/glowdesk/internal/model"

// NotificationPage is a paginated response from the notifications feed.
type NotificationPage struct {
	Items    []model.Notification `json:"items"`
	Page     int                  `json:"page"`
	LastPage int                  `json:"last_page"`
}

// IsLastPage reports whether this page is the final one.
func (p NotificationPage) IsLastPage() bool {
	return p.Page >= p.LastPage
}

// UnreadCount is the authoritative unread counter response.
type UnreadCount struct {
	Count int `json:"count"`
}

// BookingList is the response of a booking collection query.
type BookingList struct {
	Items []model.Booking `json:"items"`
}

// CollaborationList is the response of a collaboration collection query.
type CollaborationList struct {
	Items []model.Collaboration `json:"items"`
}

// readPatch is the body of a mark read/unread request.
type readPatch struct {
	Read bool `json:"read"`
}

// respondBody is the body of a collaborator respond request.
type respondBody struct {
	Status string `json:"status"`
}
