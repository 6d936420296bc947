package invite

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/htran/glowdesk/internal/api"
	"github.com/htran/glowdesk/internal/extract"
	"github.com/htran/glowdesk/internal/feed"
	"github.com/htran/glowdesk/internal/model"
	"github.com/htran/glowdesk/internal/resolve"
)

// Action is the user's decision on a collaboration invite.
type Action string

const (
	ActionAccept  Action = "accept"
	ActionDecline Action = "decline"
)

// status returns the snapshot value written to the target record.
func (a Action) status() string {
	if a == ActionAccept {
		return model.CollabStatusAccepted
	}
	return model.CollabStatusDeclined
}

// State tracks one coordinator run for a single notification.
type State int

const (
	StateIdle State = iota
	StateExtracting
	StateResolving
	StateResponding
	StateSucceeded
	StateFailed
)

// String returns a short display label for the state.
func (s State) String() string {
	switch s {
	case StateExtracting:
		return "extracting"
	case StateResolving:
		return "resolving"
	case StateResponding:
		return "responding"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	default:
		return "idle"
	}
}

// ErrBusy is returned when a response for the same notification is
// already in flight. Other notifications remain actionable.
var ErrBusy = errors.New("response already in progress")

// Result is the terminal outcome of one coordinator run. Terminal
// states are never retried automatically; the user re-triggers from
// idle.
type Result struct {
	NotificationID string
	Action         Action
	State          State
	Reason         string
	Err            error
}

// Resolver turns an extracted reference into a concrete target.
type Resolver interface {
	Resolve(ctx context.Context, ref extract.Reference, n model.Notification) (*resolve.Target, error)
}

// Responder applies the decision against the resolved target.
type Responder interface {
	RespondToCollaboration(ctx context.Context, bookingID string, status string) error
}

// Coordinator drives extract, resolve, respond for collaboration-invite
// notifications, keeping the feed store consistent with an optimistic
// read-mark that is rolled back on every failure branch.
type Coordinator struct {
	feed     *feed.Store
	resolver Resolver
	client   Responder
	log      *zap.Logger

	mu     sync.Mutex
	states map[string]State
}

// NewCoordinator wires the coordinator to its collaborators.
func NewCoordinator(
	f *feed.Store,
	resolver Resolver,
	client Responder,
	log *zap.Logger,
) *Coordinator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Coordinator{
		feed:     f,
		resolver: resolver,
		client:   client,
		log:      log,
		states:   make(map[string]State),
	}
}

// StateOf returns the current run state for a notification.
func (c *Coordinator) StateOf(id string) State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.states[id]
}

// Busy reports whether a response for this notification is in flight.
func (c *Coordinator) Busy(id string) bool {
	st := c.StateOf(id)
	return st == StateExtracting || st == StateResolving || st == StateResponding
}

// Respond executes the full state machine for one user decision. The
// caller must have confirmed the action with the user beforehand.
// Cancelling ctx discards the run: any eventual response is never
// applied to the local feed.
func (c *Coordinator) Respond(
	ctx context.Context,
	n model.Notification,
	action Action,
) Result {
	if !c.begin(n.ID) {
		return Result{
			NotificationID: n.ID,
			Action:         action,
			State:          StateFailed,
			Reason:         "a response for this invite is already in progress",
			Err:            ErrBusy,
		}
	}

	result := c.run(ctx, n, action)

	c.mu.Lock()
	c.states[n.ID] = result.State
	c.mu.Unlock()

	if result.Err != nil {
		c.log.Warn("invite response failed",
			zap.String("notification", n.ID),
			zap.String("action", string(action)),
			zap.String("reason", result.Reason),
			zap.Error(result.Err),
		)
	} else {
		c.log.Info("invite response applied",
			zap.String("notification", n.ID),
			zap.String("action", string(action)),
		)
	}
	return result
}

// begin transitions Idle -> Extracting, refusing re-entry while a run
// for the same notification is in flight.
func (c *Coordinator) begin(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.states[id] {
	case StateExtracting, StateResolving, StateResponding:
		return false
	}
	c.states[id] = StateExtracting
	return true
}

func (c *Coordinator) setState(id string, st State) {
	c.mu.Lock()
	c.states[id] = st
	c.mu.Unlock()
}

// run performs the sequential steps. Each step either advances the
// machine or produces the terminal failure for this run.
func (c *Coordinator) run(
	ctx context.Context,
	n model.Notification,
	action Action,
) Result {
	fail := func(reason string, err error) Result {
		return Result{
			NotificationID: n.ID,
			Action:         action,
			State:          StateFailed,
			Reason:         reason,
			Err:            err,
		}
	}

	// Extracting.
	ref := extract.Extract(n.Message)
	if ref == nil {
		return fail(
			"reference not found in the notification text; "+
				"look the booking up manually",
			nil,
		)
	}

	// Resolving.
	c.setState(n.ID, StateResolving)
	target, err := c.resolver.Resolve(ctx, *ref, n)
	if err != nil {
		return fail(resolutionReason(err), err)
	}

	// Responding: optimistic read-mark before the decision call so the
	// feed reflects the action immediately.
	c.setState(n.ID, StateResponding)
	txn, err := c.feed.BeginReadMark(n.ID, true)
	if err != nil {
		return fail("notification is no longer in the feed", err)
	}

	respondErr := c.client.RespondToCollaboration(ctx, target.ID, action.status())

	if ctx.Err() != nil {
		// The user navigated away; discard whatever happened remotely.
		txn.Rollback()
		return fail("cancelled", ctx.Err())
	}

	if respondErr != nil {
		txn.Rollback()
		_ = c.feed.ResyncUnread(ctx)
		return fail(respondReason(respondErr), respondErr)
	}

	// Succeeded: the backend consumed the invite, drop its notification
	// and resynchronize the unread counter from server truth.
	txn.Commit()
	c.feed.RemoveLocal(n.ID)
	_ = c.feed.ResyncUnread(ctx)

	return Result{
		NotificationID: n.ID,
		Action:         action,
		State:          StateSucceeded,
	}
}

// resolutionReason maps a resolution failure to its user-facing text.
func resolutionReason(err error) string {
	var nfErr *resolve.NotFoundError
	if errors.As(err, &nfErr) {
		return nfErr.Error()
	}

	var ambErr *resolve.AmbiguousError
	if errors.As(err, &ambErr) {
		return ambErr.Error()
	}

	var trErr *resolve.TransportError
	if errors.As(err, &trErr) {
		return "network problem while resolving the invite; try again"
	}

	if api.IsAuthError(err) {
		return "session expired; sign in again"
	}

	if errors.Is(err, context.Canceled) {
		return "cancelled"
	}
	return "could not resolve the invite"
}

// respondReason surfaces the backend's own message verbatim when one
// was supplied, otherwise a generic failure line.
func respondReason(err error) string {
	if api.IsAuthError(err) {
		return "session expired; sign in again"
	}

	var apiErr *api.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return "responding to the invite failed; try again"
}
