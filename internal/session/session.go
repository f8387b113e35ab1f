package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"brewdesk-alert-services/internal/bridge"
	"brewdesk-alert-services/internal/gesture"
	"brewdesk-alert-services/internal/snapshot"

	"go.uber.org/zap"
)

// Mode is decided once at source resolution and never changes mid-session. A
// multi-order session that shrinks to one remaining card keeps rendering as a
// list; only a session that started single-order uses the swipe interaction.
type Mode string

const (
	ModeEmpty    Mode = "empty"
	ModeSingle   Mode = "single"
	ModeMultiple Mode = "multiple"
)

type Decision string

const (
	DecisionAccepted Decision = "accepted"
	DecisionRejected Decision = "rejected"
)

func ParseDecision(raw string) (Decision, error) {
	switch Decision(raw) {
	case DecisionAccepted:
		return DecisionAccepted, nil
	case DecisionRejected:
		return DecisionRejected, nil
	}
	return "", fmt.Errorf("invalid decision %q", raw)
}

type RouteKind string

const (
	RouteOrderDetail RouteKind = "order-detail"
	RouteOrderList   RouteKind = "order-list"
)

// Navigation is where the console should go next.
type Navigation struct {
	Route   RouteKind `json:"route"`
	OrderID string    `json:"order_id,omitempty"`
}

func navigationFor(decision Decision, orderID string) *Navigation {
	if decision == DecisionAccepted {
		return &Navigation{Route: RouteOrderDetail, OrderID: orderID}
	}
	return &Navigation{Route: RouteOrderList}
}

var (
	// ErrInFlight marks a disposition attempted while another is outstanding.
	// Callers suppress it silently; it is not an operator-facing failure.
	ErrInFlight = errors.New("disposition already in flight")

	ErrSessionClosed      = errors.New("session closed")
	ErrUnknownOrder       = errors.New("order not in this session")
	ErrGestureUnavailable = errors.New("gesture only available in single-order mode")
)

// Session is one operator disposition session: a queue of pending orders, the
// fixed presentation mode, and the serialized disposition pipeline.
type Session struct {
	ID        string
	CreatedAt time.Time

	orders OrderAPI
	bridge Bridge
	events EventSink
	logger *zap.Logger
	width  float64
	minPx  float64
	ratio  float64
	cancel context.CancelFunc

	mu             sync.Mutex
	mode           Mode
	queue          *PendingQueue
	recognizer     *gesture.Recognizer
	contextOrderID string
	inFlight       bool
	closed         bool
	done           bool
	nav            *Navigation
	unregister     func()
}

// Outcome reports what a successful disposition did to the session.
type Outcome struct {
	OrderID    string      `json:"order_id"`
	Decision   Decision    `json:"decision"`
	Remaining  int         `json:"remaining"`
	Done       bool        `json:"done"`
	Navigation *Navigation `json:"navigation,omitempty"`
}

// GestureView is the recognizer state exposed to the console.
type GestureView struct {
	Offset    float64      `json:"offset"`
	Zone      gesture.Zone `json:"zone"`
	Hint      string       `json:"hint"`
	Threshold float64      `json:"threshold"`
}

// State is a point-in-time view of the session for rendering.
type State struct {
	SessionID      string              `json:"session_id"`
	Mode           Mode                `json:"mode"`
	Orders         []snapshot.Snapshot `json:"orders"`
	ContextOrderID string              `json:"context_order_id,omitempty"`
	InFlight       bool                `json:"in_flight"`
	Gesture        *GestureView        `json:"gesture,omitempty"`
	Done           bool                `json:"done"`
	Navigation     *Navigation         `json:"navigation,omitempty"`
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	state := State{
		SessionID:      s.ID,
		Mode:           s.mode,
		Orders:         s.queue.All(),
		ContextOrderID: s.contextOrderID,
		InFlight:       s.inFlight,
		Done:           s.done,
		Navigation:     s.nav,
	}
	if s.mode == ModeSingle && s.recognizer != nil {
		frame := s.recognizer.Current()
		state.Gesture = &GestureView{
			Offset:    frame.Offset,
			Zone:      frame.Zone,
			Hint:      frame.Hint,
			Threshold: s.recognizer.ThresholdPx(),
		}
	}
	return state
}

func (s *Session) Mode() Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

// Gesture feeds one normalized input event into the recognizer. When the
// release commits a decision, the disposition runs inline and its outcome is
// returned alongside the frame.
func (s *Session) Gesture(ctx context.Context, ev gesture.Event) (gesture.Frame, *Outcome, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return gesture.Frame{}, nil, ErrSessionClosed
	}
	if s.mode != ModeSingle || s.recognizer == nil {
		s.mu.Unlock()
		return gesture.Frame{}, nil, ErrGestureUnavailable
	}

	frame := s.recognizer.Feed(ev)
	if frame.Committed == gesture.DecisionNone {
		s.mu.Unlock()
		return frame, nil, nil
	}
	target, ok := s.queue.Single()
	s.mu.Unlock()
	if !ok {
		return frame, nil, ErrUnknownOrder
	}

	outcome, err := s.Dispose(ctx, target.ID, Decision(frame.Committed))
	if errors.Is(err, ErrInFlight) {
		// A rapid second swipe racing the first submission; swallow it.
		return frame, nil, nil
	}
	return frame, outcome, err
}

// Dispose submits one accept/reject decision. Confirm-then-mutate: the queue
// changes only after the remote service acknowledged the new status, because a
// wrongly recorded disposition has real-world consequences. One disposition at
// a time for the whole session, even in multi-order mode.
func (s *Session) Dispose(ctx context.Context, orderID string, decision Decision) (*Outcome, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrSessionClosed
	}
	if s.inFlight {
		s.mu.Unlock()
		return nil, ErrInFlight
	}
	if !s.queue.Contains(orderID) {
		s.mu.Unlock()
		return nil, ErrUnknownOrder
	}
	s.inFlight = true
	if s.recognizer != nil {
		s.recognizer.SetLocked(true)
	}
	mode := s.mode
	s.mu.Unlock()

	err := s.orders.SetStatus(ctx, orderID, string(decision))

	s.mu.Lock()
	if s.closed {
		// The session tore down while the call was outstanding; do not apply
		// the result to it.
		s.mu.Unlock()
		return nil, ErrSessionClosed
	}
	if err != nil {
		s.inFlight = false
		if s.recognizer != nil {
			s.recognizer.SetLocked(false)
		}
		s.mu.Unlock()
		s.logger.Error("disposition failed",
			zap.String("sessionId", s.ID),
			zap.String("orderId", orderID),
			zap.String("decision", string(decision)),
			zap.Error(err))
		return nil, fmt.Errorf("disposition failed: %w", err)
	}

	s.queue.Remove(orderID)
	s.inFlight = false
	if s.recognizer != nil {
		s.recognizer.SetLocked(false)
	}
	remaining := s.queue.Size()

	outcome := &Outcome{
		OrderID:   orderID,
		Decision:  decision,
		Remaining: remaining,
	}
	if mode == ModeSingle || remaining == 0 {
		outcome.Done = true
		outcome.Navigation = navigationFor(decision, orderID)
		s.done = true
		s.nav = outcome.Navigation
	}
	s.mu.Unlock()

	s.bridge.RequestSoundStop(orderID)
	if s.events != nil {
		if err := s.events.OrderDisposed(ctx, s.ID, orderID, string(decision)); err != nil {
			s.logger.Warn("disposition event publish failed", zap.Error(err))
		}
	}
	s.logger.Info("order disposed",
		zap.String("sessionId", s.ID),
		zap.String("orderId", orderID),
		zap.String("decision", string(decision)),
		zap.Int("remaining", remaining))

	return outcome, nil
}

// adoptPush re-seeds the session from a late host push. The alert order takes
// over the session just as it would have had the push landed before resolution,
// unless a disposition is mid-flight.
func (s *Session) adoptPush(p bridge.Payload) {
	snap, err := snapshot.FromBridge(p)
	if err != nil {
		s.logger.Warn("late bridge push ignored", zap.Error(err))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.inFlight || s.done {
		return
	}
	s.queue = NewPendingQueue([]snapshot.Snapshot{snap})
	s.mode = ModeSingle
	s.recognizer = newRecognizer(s)
	s.contextOrderID = snap.ID
	s.logger.Info("session re-seeded from late bridge push",
		zap.String("sessionId", s.ID),
		zap.String("orderId", snap.ID))
}

// Close tears the session down: stops the bridge poll, unregisters the push
// callback and clears the ambient slot so nothing leaks into the next session.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	s.cancel()
	if s.unregister != nil {
		s.unregister()
	}
	s.bridge.Clear()
	s.logger.Info("session closed", zap.String("sessionId", s.ID))
}

func newRecognizer(s *Session) *gesture.Recognizer {
	return gesture.New(s.width, s.minPx, s.ratio)
}

func (s *Session) expired(ttl time.Duration, now time.Time) bool {
	return ttl > 0 && now.Sub(s.CreatedAt) > ttl
}
