package model

import (
	"strings"
	"time"
)

// NotificationKind classifies a notification for the feed.
type NotificationKind string

const (
	// KindCollabInvite marks an invitation to join a booking as a
	// collaborator. These notifications carry accept/decline actions.
	KindCollabInvite NotificationKind = "collaboration_invite"

	// KindGeneric is everything else delivered through the feed.
	KindGeneric NotificationKind = "generic"
)

// inviteKeywords are matched case-insensitively against the message body
// when the backend did not classify the notification itself.
var inviteKeywords = []string{"invited", "collaboration"}

// Notification is a server-delivered feed record. The only client-side
// mutation is the read flag; everything else is immutable once delivered.
type Notification struct {
	// ID is the backend identifier for this notification.
	ID string `json:"id"`

	// Category is the backend-provided classification. May be empty or
	// unreliable on older records; see Kind.
	Category string `json:"category"`

	// Title is the short display heading.
	Title string `json:"title"`

	// Message is the full body text. It is the only source used for
	// reference extraction.
	Message string `json:"message"`

	// Read indicates whether the user has seen this notification.
	Read bool `json:"read"`

	// CreatedAt orders the feed, newest first.
	CreatedAt time.Time `json:"created_at"`
}

// Kind returns the notification classification. The backend category
// always wins; keyword inference against the message body is only a
// fallback for records that predate server-side classification.
func (n Notification) Kind() NotificationKind {
	switch n.Category {
	case string(KindCollabInvite):
		return KindCollabInvite
	case string(KindGeneric):
		return KindGeneric
	}

	body := strings.ToLower(n.Message)
	for _, kw := range inviteKeywords {
		if strings.Contains(body, kw) {
			return KindCollabInvite
		}
	}
	return KindGeneric
}

// IsCollabInvite reports whether this notification carries
// accept/decline actions.
func (n Notification) IsCollabInvite() bool {
	return n.Kind() == KindCollabInvite
}
