package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"brewdesk-alert-services/internal/bridge"
	"brewdesk-alert-services/internal/config"
	"brewdesk-alert-services/internal/gesture"
	"brewdesk-alert-services/internal/orderapi"

	"go.uber.org/zap"
)

type fakeOrders struct {
	mu       sync.Mutex
	pending  []orderapi.Record
	listErr  error
	setErr   error
	setCalls []string
	started  chan struct{}
	release  chan struct{}
}

func (f *fakeOrders) ListPending(ctx context.Context, pageSize int) ([]orderapi.Record, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.pending, nil
}

func (f *fakeOrders) SetStatus(ctx context.Context, id string, status string) error {
	f.mu.Lock()
	f.setCalls = append(f.setCalls, id+":"+status)
	started := f.started
	release := f.release
	err := f.setErr
	f.mu.Unlock()

	if started != nil {
		close(started)
		f.mu.Lock()
		f.started = nil
		f.mu.Unlock()
	}
	if release != nil {
		<-release
	}
	return err
}

func (f *fakeOrders) calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.setCalls))
	copy(out, f.setCalls)
	return out
}

type fakeBridge struct {
	mu         sync.Mutex
	slot       *bridge.Payload
	soundStops []string
	cleared    int
	watchers   []func(bridge.Payload)
}

func (f *fakeBridge) Take() (bridge.Payload, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.slot == nil {
		return bridge.Payload{}, false
	}
	p := *f.slot
	f.slot = nil
	return p, true
}

func (f *fakeBridge) OnPush(cb func(bridge.Payload)) func() {
	f.mu.Lock()
	f.watchers = append(f.watchers, cb)
	f.mu.Unlock()
	return func() {}
}

func (f *fakeBridge) Watch(ctx context.Context, interval time.Duration, fn func(bridge.Payload)) {}

func (f *fakeBridge) RequestSoundStop(orderID string) {
	f.mu.Lock()
	f.soundStops = append(f.soundStops, orderID)
	f.mu.Unlock()
}

func (f *fakeBridge) Clear() {
	f.mu.Lock()
	f.slot = nil
	f.cleared++
	f.mu.Unlock()
}

// push mimics the hub: write the slot, then notify registered callbacks.
func (f *fakeBridge) push(p bridge.Payload) {
	f.mu.Lock()
	f.slot = &p
	watchers := make([]func(bridge.Payload), len(f.watchers))
	copy(watchers, f.watchers)
	f.mu.Unlock()
	for _, cb := range watchers {
		cb(p)
	}
}

func (f *fakeBridge) stops() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.soundStops))
	copy(out, f.soundStops)
	return out
}

func testConfig() config.Config {
	return config.Config{
		PendingPageSize:    20,
		BridgePollInterval: 50 * time.Millisecond,
		SwipeMinThreshold:  120,
		SwipeWidthRatio:    0.35,
		SessionTTL:         time.Hour,
	}
}

func testManager(orders *fakeOrders, hub *fakeBridge) *Manager {
	return NewManager(zap.NewNop(), testConfig(), orders, hub, nil)
}

func record(id string) orderapi.Record {
	return orderapi.Record{ID: orderapi.FlexString(id), OrderType: "table", TableNumber: "T1"}
}

func alertPayload(id string) bridge.Payload {
	return bridge.Payload{
		OrderID:   id,
		Name:      "Asha",
		Total:     "350",
		Items:     `[{"n":"Latte","v":"Regular","q":"2","p":"150","t":"300"}]`,
		OrderType: "table",
		TableNo:   "T3",
	}
}

func TestResolveBridgePushTakesPrecedence(t *testing.T) {
	hub := &fakeBridge{}
	p := alertPayload("42")
	hub.slot = &p
	m := testManager(&fakeOrders{pending: []orderapi.Record{record("1"), record("2")}}, hub)

	res, err := m.Resolve(context.Background(), Entry{OrderID: "99"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Redirect != nil || res.Session == nil {
		t.Fatalf("expected a session, got %+v", res)
	}

	state := res.Session.State()
	if state.Mode != ModeSingle {
		t.Fatalf("expected single-order mode, got %q", state.Mode)
	}
	if len(state.Orders) != 1 || state.Orders[0].ID != "42" {
		t.Fatalf("expected queue seeded with order 42, got %+v", state.Orders)
	}
	if state.ContextOrderID != "42" {
		t.Fatalf("expected order id recorded in navigable context, got %q", state.ContextOrderID)
	}
	if hub.slot != nil {
		t.Fatalf("slot must be cleared after resolution")
	}
}

func TestResolveIdentifierOnlyRedirects(t *testing.T) {
	m := testManager(&fakeOrders{}, &fakeBridge{})

	res, err := m.Resolve(context.Background(), Entry{OrderID: "17"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Session != nil || res.Redirect == nil {
		t.Fatalf("expected a redirect, got %+v", res)
	}
	if res.Redirect.Route != RouteOrderDetail || res.Redirect.OrderID != "17" {
		t.Fatalf("expected order-detail redirect for 17, got %+v", res.Redirect)
	}
}

func TestResolveMalformedBridgePayloadFallsThrough(t *testing.T) {
	hub := &fakeBridge{}
	p := bridge.Payload{Name: "no id"}
	hub.slot = &p
	m := testManager(&fakeOrders{}, hub)

	res, err := m.Resolve(context.Background(), Entry{OrderID: "17"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Redirect == nil {
		t.Fatalf("malformed payload must fall through to identifier mode, got %+v", res)
	}
}

func TestResolveFetchModes(t *testing.T) {
	cases := []struct {
		name     string
		pending  []orderapi.Record
		expected Mode
	}{
		{name: "empty fetch", pending: nil, expected: ModeEmpty},
		{name: "one pending order", pending: []orderapi.Record{record("1")}, expected: ModeSingle},
		{name: "many pending orders", pending: []orderapi.Record{record("1"), record("2"), record("3")}, expected: ModeMultiple},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m := testManager(&fakeOrders{pending: tc.pending}, &fakeBridge{})
			res, err := m.Resolve(context.Background(), Entry{})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if res.Session == nil {
				t.Fatalf("expected a session")
			}
			if got := res.Session.Mode(); got != tc.expected {
				t.Fatalf("expected mode %q, got %q", tc.expected, got)
			}
		})
	}
}

func TestResolveFetchFailure(t *testing.T) {
	m := testManager(&fakeOrders{listErr: errors.New("boom")}, &fakeBridge{})
	if _, err := m.Resolve(context.Background(), Entry{}); err == nil {
		t.Fatalf("expected load failure to surface")
	}
}

func TestMultiOrderShrinksWithoutNavigating(t *testing.T) {
	orders := &fakeOrders{pending: []orderapi.Record{record("1"), record("2"), record("3")}}
	hub := &fakeBridge{}
	m := testManager(orders, hub)
	res, _ := m.Resolve(context.Background(), Entry{})
	s := res.Session

	outcome, err := s.Dispose(context.Background(), "2", DecisionRejected)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.Remaining != 2 || outcome.Done || outcome.Navigation != nil {
		t.Fatalf("resolving one of three must stay on the page: %+v", outcome)
	}
	if s.Mode() != ModeMultiple {
		t.Fatalf("mode must not switch mid-session, got %q", s.Mode())
	}
	if got := hub.stops(); len(got) != 1 || got[0] != "2" {
		t.Fatalf("expected one sound stop for order 2, got %v", got)
	}

	if _, err := s.Dispose(context.Background(), "1", DecisionAccepted); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	last, err := s.Dispose(context.Background(), "3", DecisionAccepted)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !last.Done || last.Navigation == nil {
		t.Fatalf("resolving the last order must navigate away: %+v", last)
	}
	if last.Navigation.Route != RouteOrderDetail || last.Navigation.OrderID != "3" {
		t.Fatalf("expected detail route for the just-resolved order, got %+v", last.Navigation)
	}
}

func TestSingleOrderNavigation(t *testing.T) {
	cases := []struct {
		name     string
		decision Decision
		route    RouteKind
		orderID  string
	}{
		{name: "accept goes to order detail", decision: DecisionAccepted, route: RouteOrderDetail, orderID: "42"},
		{name: "reject goes to order list", decision: DecisionRejected, route: RouteOrderList},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			hub := &fakeBridge{}
			p := alertPayload("42")
			hub.slot = &p
			m := testManager(&fakeOrders{}, hub)
			res, _ := m.Resolve(context.Background(), Entry{})

			outcome, err := res.Session.Dispose(context.Background(), "42", tc.decision)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !outcome.Done || outcome.Navigation == nil {
				t.Fatalf("single-order session must navigate after disposition: %+v", outcome)
			}
			if outcome.Navigation.Route != tc.route || outcome.Navigation.OrderID != tc.orderID {
				t.Fatalf("expected %q/%q, got %+v", tc.route, tc.orderID, outcome.Navigation)
			}
		})
	}
}

func TestDispositionFailureLeavesQueueAndReleasesLock(t *testing.T) {
	orders := &fakeOrders{pending: []orderapi.Record{record("1"), record("2")}, setErr: errors.New("upstream down")}
	hub := &fakeBridge{}
	m := testManager(orders, hub)
	res, _ := m.Resolve(context.Background(), Entry{})
	s := res.Session

	if _, err := s.Dispose(context.Background(), "1", DecisionAccepted); err == nil {
		t.Fatalf("expected failure to surface")
	}
	if got := len(s.State().Orders); got != 2 {
		t.Fatalf("queue must be untouched on failure, got %d orders", got)
	}
	if len(hub.stops()) != 0 {
		t.Fatalf("no side effects before confirmation, got stops %v", hub.stops())
	}

	// Lock released: the retry goes through once upstream recovers.
	orders.mu.Lock()
	orders.setErr = nil
	orders.mu.Unlock()
	if _, err := s.Dispose(context.Background(), "1", DecisionAccepted); err != nil {
		t.Fatalf("retry after failure must work: %v", err)
	}
}

func TestDuplicateDispositionSuppressed(t *testing.T) {
	orders := &fakeOrders{
		pending: []orderapi.Record{record("1"), record("2")},
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	m := testManager(orders, &fakeBridge{})
	res, _ := m.Resolve(context.Background(), Entry{})
	s := res.Session

	firstDone := make(chan error, 1)
	go func() {
		_, err := s.Dispose(context.Background(), "1", DecisionAccepted)
		firstDone <- err
	}()
	<-orders.started

	// Second attempt while the first is still in flight, even for another order.
	_, err := s.Dispose(context.Background(), "2", DecisionRejected)
	if !errors.Is(err, ErrInFlight) {
		t.Fatalf("expected ErrInFlight, got %v", err)
	}

	close(orders.release)
	if err := <-firstDone; err != nil {
		t.Fatalf("first disposition failed: %v", err)
	}
	if got := orders.calls(); len(got) != 1 || got[0] != "1:accepted" {
		t.Fatalf("exactly one network submission expected, got %v", got)
	}
}

func TestSwipeCommitRunsDisposition(t *testing.T) {
	hub := &fakeBridge{}
	p := alertPayload("42")
	hub.slot = &p
	orders := &fakeOrders{}
	m := testManager(orders, hub)
	res, _ := m.Resolve(context.Background(), Entry{ViewportWidth: 480})
	s := res.Session

	// threshold = max(120, 480*0.35) = 168
	s.Gesture(context.Background(), gesture.Event{Phase: gesture.PhaseStart, X: 10})
	frame, outcome, err := s.Gesture(context.Background(), gesture.Event{Phase: gesture.PhaseMove, X: 150})
	if err != nil || outcome != nil {
		t.Fatalf("move must not dispose: %+v %v", outcome, err)
	}
	if frame.Zone != gesture.ZoneLeaningAccept {
		t.Fatalf("expected leaning-accept past half threshold, got %q", frame.Zone)
	}

	frame, outcome, err = s.Gesture(context.Background(), gesture.Event{Phase: gesture.PhaseEnd, X: 200})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if frame.Committed != gesture.DecisionAccepted {
		t.Fatalf("expected committed accept, got %q", frame.Committed)
	}
	if outcome == nil || outcome.Navigation == nil || outcome.Navigation.Route != RouteOrderDetail ||
		outcome.Navigation.OrderID != "42" {
		t.Fatalf("expected navigation to detail of 42, got %+v", outcome)
	}
	if got := orders.calls(); len(got) != 1 || got[0] != "42:accepted" {
		t.Fatalf("expected one accepted submission, got %v", got)
	}
	if got := hub.stops(); len(got) != 1 || got[0] != "42" {
		t.Fatalf("expected sound stop for 42, got %v", got)
	}
}

func TestSwipeSpringBackDoesNotDispose(t *testing.T) {
	hub := &fakeBridge{}
	p := alertPayload("42")
	hub.slot = &p
	orders := &fakeOrders{}
	m := testManager(orders, hub)
	res, _ := m.Resolve(context.Background(), Entry{ViewportWidth: 480})
	s := res.Session

	s.Gesture(context.Background(), gesture.Event{Phase: gesture.PhaseStart, X: 0})
	_, outcome, err := s.Gesture(context.Background(), gesture.Event{Phase: gesture.PhaseEnd, X: 100})
	if err != nil || outcome != nil {
		t.Fatalf("release inside the interval must spring back: %+v %v", outcome, err)
	}
	if len(orders.calls()) != 0 {
		t.Fatalf("no submission expected, got %v", orders.calls())
	}
}

func TestGestureUnavailableInMultiOrderMode(t *testing.T) {
	m := testManager(&fakeOrders{pending: []orderapi.Record{record("1"), record("2")}}, &fakeBridge{})
	res, _ := m.Resolve(context.Background(), Entry{})

	_, _, err := res.Session.Gesture(context.Background(), gesture.Event{Phase: gesture.PhaseStart, X: 0})
	if !errors.Is(err, ErrGestureUnavailable) {
		t.Fatalf("expected ErrGestureUnavailable, got %v", err)
	}
}

func TestCloseDiscardsInFlightResult(t *testing.T) {
	orders := &fakeOrders{
		pending: []orderapi.Record{record("1")},
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	hub := &fakeBridge{}
	m := testManager(orders, hub)
	res, _ := m.Resolve(context.Background(), Entry{})
	s := res.Session

	done := make(chan error, 1)
	go func() {
		_, err := s.Dispose(context.Background(), "1", DecisionAccepted)
		done <- err
	}()
	<-orders.started

	if !m.Close(s.ID) {
		t.Fatalf("expected close to succeed")
	}
	close(orders.release)

	if err := <-done; !errors.Is(err, ErrSessionClosed) {
		t.Fatalf("expected ErrSessionClosed after teardown, got %v", err)
	}
	if len(hub.stops()) != 0 {
		t.Fatalf("no side effects may apply to a torn-down session, got %v", hub.stops())
	}
	if hub.cleared == 0 {
		t.Fatalf("teardown must clear the ambient slot")
	}
}

func TestLatePushReseedsSession(t *testing.T) {
	hub := &fakeBridge{}
	m := testManager(&fakeOrders{}, hub)
	res, _ := m.Resolve(context.Background(), Entry{})
	s := res.Session
	if s.Mode() != ModeEmpty {
		t.Fatalf("expected empty session before the late push, got %q", s.Mode())
	}

	hub.push(alertPayload("42"))

	state := s.State()
	if state.Mode != ModeSingle || len(state.Orders) != 1 || state.Orders[0].ID != "42" {
		t.Fatalf("late push must re-seed a single-order session, got %+v", state)
	}
	if state.ContextOrderID != "42" {
		t.Fatalf("late push must record the order id, got %q", state.ContextOrderID)
	}
}
