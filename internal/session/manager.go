// Package session owns the disposition flow: resolving how an operator entered
// the alert screen, the pending-order queue, the swipe recognizer, and the
// serialized accept/reject pipeline against the order API.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"brewdesk-alert-services/internal/bridge"
	"brewdesk-alert-services/internal/config"
	"brewdesk-alert-services/internal/orderapi"
	"brewdesk-alert-services/internal/snapshot"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// OrderAPI is the slice of the remote order service this package needs.
type OrderAPI interface {
	ListPending(ctx context.Context, pageSize int) ([]orderapi.Record, error)
	SetStatus(ctx context.Context, id string, status string) error
}

// Bridge is the host-shell adapter surface the session consumes.
type Bridge interface {
	Take() (bridge.Payload, bool)
	OnPush(cb func(bridge.Payload)) func()
	Watch(ctx context.Context, interval time.Duration, fn func(bridge.Payload))
	RequestSoundStop(orderID string)
	Clear()
}

// EventSink receives disposition events for the platform bus.
type EventSink interface {
	OrderDisposed(ctx context.Context, sessionID, orderID, decision string) error
}

// Entry describes how the operator reached the alert screen.
type Entry struct {
	OrderID       string
	ViewportWidth float64
}

// Resolution is the tagged result of source resolution: either an immediate
// redirect (identifier-only entry) or a live session.
type Resolution struct {
	Redirect *Navigation
	Session  *Session
}

type Manager struct {
	logger *zap.Logger
	cfg    config.Config
	orders OrderAPI
	bridge Bridge
	events EventSink

	mu       sync.Mutex
	sessions map[string]*Session
}

func NewManager(logger *zap.Logger, cfg config.Config, orders OrderAPI, hub Bridge, events EventSink) *Manager {
	return &Manager{
		logger:   logger,
		cfg:      cfg,
		orders:   orders,
		bridge:   hub,
		events:   events,
		sessions: make(map[string]*Session),
	}
}

// Resolve runs the three-way source precedence from the alert screen:
// bridge-pushed single order, identifier-only redirect, full pending fetch.
func (m *Manager) Resolve(ctx context.Context, entry Entry) (Resolution, error) {
	if payload, ok := m.bridge.Take(); ok {
		snap, err := snapshot.FromBridge(payload)
		if err == nil {
			s := m.newSession(ModeSingle, []snapshot.Snapshot{snap}, entry, snap.ID)
			m.logger.Info("session resolved from bridge push",
				zap.String("sessionId", s.ID),
				zap.String("orderId", snap.ID))
			return Resolution{Session: s}, nil
		}
		// Malformed payloads are dropped silently; entry falls through to the
		// remaining modes.
		m.logger.Warn("malformed bridge payload ignored", zap.Error(err))
	}

	if entry.OrderID != "" {
		// An order id outside a true alert is not actionable here; send the
		// operator to the detail view instead.
		return Resolution{Redirect: &Navigation{Route: RouteOrderDetail, OrderID: entry.OrderID}}, nil
	}

	records, err := m.orders.ListPending(ctx, m.cfg.PendingPageSize)
	if err != nil {
		return Resolution{}, fmt.Errorf("failed to load pending orders: %w", err)
	}
	snaps := make([]snapshot.Snapshot, 0, len(records))
	for _, rec := range records {
		snaps = append(snaps, snapshot.FromRecord(rec))
	}

	mode := ModeMultiple
	switch len(snaps) {
	case 0:
		mode = ModeEmpty
	case 1:
		mode = ModeSingle
	}
	s := m.newSession(mode, snaps, entry, "")
	m.logger.Info("session resolved from pending fetch",
		zap.String("sessionId", s.ID),
		zap.String("mode", string(mode)),
		zap.Int("orders", len(snaps)))
	return Resolution{Session: s}, nil
}

func (m *Manager) newSession(mode Mode, snaps []snapshot.Snapshot, entry Entry, contextOrderID string) *Session {
	lifetime, cancel := context.WithCancel(context.Background())
	s := &Session{
		ID:             uuid.NewString(),
		CreatedAt:      time.Now(),
		orders:         m.orders,
		bridge:         m.bridge,
		events:         m.events,
		logger:         m.logger,
		width:          entry.ViewportWidth,
		minPx:          m.cfg.SwipeMinThreshold,
		ratio:          m.cfg.SwipeWidthRatio,
		cancel:         cancel,
		mode:           mode,
		queue:          NewPendingQueue(snaps),
		contextOrderID: contextOrderID,
	}
	if mode == ModeSingle {
		s.recognizer = newRecognizer(s)
	}

	// Host pushes may land just after resolution; both the callback and the
	// interval poll hand them to the session for as long as it lives. The
	// callback drains the slot through Take so each signal is read once.
	s.unregister = m.bridge.OnPush(func(bridge.Payload) {
		if p, ok := m.bridge.Take(); ok {
			s.adoptPush(p)
		}
	})
	m.bridge.Watch(lifetime, m.cfg.BridgePollInterval, func(p bridge.Payload) {
		s.adoptPush(p)
	})

	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()
	return s
}

func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	return s, ok
}

// Close tears down and forgets a session. Returns false if it was unknown.
func (m *Manager) Close(id string) bool {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if !ok {
		return false
	}
	s.Close()
	return true
}

// StartJanitor reaps sessions whose operator navigated away without an explicit
// teardown, so their bridge polls do not accumulate.
func (m *Manager) StartJanitor(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				m.mu.Lock()
				var stale []*Session
				for id, s := range m.sessions {
					if s.expired(m.cfg.SessionTTL, now) {
						stale = append(stale, s)
						delete(m.sessions, id)
					}
				}
				m.mu.Unlock()
				for _, s := range stale {
					s.Close()
				}
			}
		}
	}()
}
