package resolve

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/htran/glowdesk/internal/api"
	"github.com/htran/glowdesk/internal/extract"
	"github.com/htran/glowdesk/internal/model"
)

// TargetKind identifies which backend collection a reference resolved to.
type TargetKind string

const (
	TargetBooking       TargetKind = "booking"
	TargetCollaboration TargetKind = "collaboration"
)

// Target is the concrete backend record a reference resolved to. ID is
// always the identifier usable for the decision call (for collaboration
// records, the linked booking id). Targets are never cached beyond one
// response operation; they may be stale the next time.
type Target struct {
	Kind TargetKind
	ID   string
}

// API is the slice of the platform client the chain depends on.
type API interface {
	GetBookingByReference(ctx context.Context, ref string) (*model.Booking, error)
	ListBookings(ctx context.Context) ([]model.Booking, error)
	ListCollaborations(ctx context.Context, notificationID string) ([]model.Collaboration, error)
}

// errNoMatch is the strategy-level signal to try the next strategy.
// Only an explicit "not found" continues the chain this way; transport
// errors are recorded separately and also continue.
var errNoMatch = errors.New("no match")

// NotFoundError reports that every strategy ran and none matched.
type NotFoundError struct {
	Reference string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf(
		"no record matches reference %q; contact support if the invite should exist",
		e.Reference,
	)
}

// AmbiguousError reports that a single strategy produced more than one
// match. The chain never picks one arbitrarily.
type AmbiguousError struct {
	Reference string
	Strategy  string
	Count     int
}

func (e *AmbiguousError) Error() string {
	return fmt.Sprintf(
		"reference %q is ambiguous: %d records matched via %s",
		e.Reference, e.Count, e.Strategy,
	)
}

// TransportError reports that the chain exhausted its strategies while
// at least one of them failed to reach the backend, so "not found"
// cannot be trusted. Unwraps to the first transport failure seen.
type TransportError struct {
	Reference string
	Err       error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("could not resolve reference %q: %v", e.Reference, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// strategy is one remote lookup attempt. Run returns a unique target,
// errNoMatch, an *AmbiguousError, or a transport error.
type strategy struct {
	name string
	run  func(ctx context.Context, ref extract.Reference, n model.Notification) (*Target, error)
}

// Chain resolves an extracted reference to a concrete backend record by
// trying lookup strategies strictly in order, one at a time. The index
// of the last strategy that succeeded is cached and tried first on
// later resolutions, so repeat resolutions skip straight to whatever
// lookup the backend actually supports.
type Chain struct {
	client          API
	strategyTimeout time.Duration
	log             *zap.Logger
	strategies      []strategy

	mu      sync.Mutex
	lastHit int
}

// NewChain creates a resolution chain over the given client. Each
// strategy is bounded by strategyTimeout so one slow lookup cannot
// stall the whole chain.
func NewChain(client API, strategyTimeout time.Duration, log *zap.Logger) *Chain {
	if strategyTimeout <= 0 {
		strategyTimeout = 10 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}

	c := &Chain{
		client:          client,
		strategyTimeout: strategyTimeout,
		log:             log,
		lastHit:         -1,
	}
	c.strategies = []strategy{
		{name: "direct-lookup", run: c.directLookup},
		{name: "list-exact", run: c.listExactFilter},
		{name: "list-partial", run: c.listPartialFilter},
		{name: "collaboration-fallback", run: c.collaborationFallback},
	}
	return c
}

// Resolve turns a reference into a concrete target, or fails with
// *NotFoundError, *AmbiguousError, *TransportError, or *api.AuthError.
// Strategies run strictly sequentially; no two run concurrently.
func (c *Chain) Resolve(
	ctx context.Context,
	ref extract.Reference,
	n model.Notification,
) (*Target, error) {
	var transportErr error

	for _, idx := range c.order() {
		st := c.strategies[idx]

		stCtx, cancel := context.WithTimeout(ctx, c.strategyTimeout)
		target, err := st.run(stCtx, ref, n)
		cancel()

		if err == nil && target != nil {
			c.log.Debug("reference resolved",
				zap.String("reference", ref.Value),
				zap.String("strategy", st.name),
				zap.String("target", target.ID),
			)
			c.setLastHit(idx)
			return target, nil
		}

		if errors.Is(err, errNoMatch) {
			continue
		}

		var ambErr *AmbiguousError
		if errors.As(err, &ambErr) {
			return nil, ambErr
		}

		if api.IsAuthError(err) {
			return nil, err
		}

		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		// Transport failure: never aborts the chain, but taints the
		// final "not found" verdict.
		c.log.Warn("resolution strategy failed",
			zap.String("strategy", st.name), zap.Error(err))
		if transportErr == nil {
			transportErr = err
		}
	}

	if transportErr != nil {
		return nil, &TransportError{Reference: ref.Value, Err: transportErr}
	}
	return nil, &NotFoundError{Reference: ref.Value}
}

// order returns strategy indexes with the cached hit (if any) first,
// followed by the remaining strategies in declaration order.
func (c *Chain) order() []int {
	c.mu.Lock()
	hit := c.lastHit
	c.mu.Unlock()

	if hit < 0 || hit >= len(c.strategies) {
		order := make([]int, len(c.strategies))
		for i := range order {
			order[i] = i
		}
		return order
	}

	order := []int{hit}
	for i := range c.strategies {
		if i != hit {
			order = append(order, i)
		}
	}
	return order
}

func (c *Chain) setLastHit(idx int) {
	c.mu.Lock()
	c.lastHit = idx
	c.mu.Unlock()
}
