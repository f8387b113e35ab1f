package bridge

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Hub owns the ambient slot the host shell writes arriving orders into, the
// push-callback registry, and the websocket connections back to the host. The
// rest of the service never touches the slot directly; it goes through Take,
// OnPush and Watch so the global state stays confined here.
type Hub struct {
	logger *zap.Logger

	mu       sync.Mutex
	slot     *Payload
	nextID   int
	watchers map[int]func(Payload)
	conns    map[*hostConn]struct{}
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		logger:   logger,
		watchers: make(map[int]func(Payload)),
		conns:    make(map[*hostConn]struct{}),
	}
}

// Push is the entry point the host shell invokes when an order arrives. The
// slot holds at most one payload; a newer push overwrites an unread one.
func (h *Hub) Push(p Payload) {
	if !p.Valid() {
		h.logger.Warn("bridge push ignored: missing order id")
		return
	}

	h.mu.Lock()
	h.slot = &p
	callbacks := make([]func(Payload), 0, len(h.watchers))
	for _, cb := range h.watchers {
		callbacks = append(callbacks, cb)
	}
	h.mu.Unlock()

	h.logger.Info("bridge order pushed", zap.String("orderId", p.OrderID))
	for _, cb := range callbacks {
		cb(p)
	}
}

// Take reads and clears the slot. Clearing on read prevents the same push from
// being processed again on a later check.
func (h *Hub) Take() (Payload, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.slot == nil {
		return Payload{}, false
	}
	p := *h.slot
	h.slot = nil
	return p, true
}

// Clear drops any unread payload. Called on session teardown so a stale order
// cannot leak into the next session.
func (h *Hub) Clear() {
	h.mu.Lock()
	h.slot = nil
	h.mu.Unlock()
}

// OnPush registers a callback invoked on every valid host push. The returned
// func unregisters it; callers must invoke it on teardown.
func (h *Hub) OnPush(cb func(Payload)) func() {
	h.mu.Lock()
	id := h.nextID
	h.nextID++
	h.watchers[id] = cb
	h.mu.Unlock()

	return func() {
		h.mu.Lock()
		delete(h.watchers, id)
		h.mu.Unlock()
	}
}

// Watch polls the slot on a fixed interval until ctx is cancelled, delivering
// any payload it finds to fn. This covers the race where the host writes the
// slot just after the session checked it but before OnPush was registered.
func (h *Hub) Watch(ctx context.Context, interval time.Duration, fn func(Payload)) {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if p, ok := h.Take(); ok {
					fn(p)
				}
			}
		}
	}()
}

// RequestSoundStop asks the host shell to silence the native alert sound.
// Fire and forget: a dead connection is dropped, never retried.
func (h *Hub) RequestSoundStop(orderID string) {
	h.mu.Lock()
	conns := make([]*hostConn, 0, len(h.conns))
	for c := range h.conns {
		conns = append(conns, c)
	}
	h.mu.Unlock()

	if len(conns) == 0 {
		h.logger.Debug("sound stop requested with no host connected", zap.String("orderId", orderID))
		return
	}

	msg := map[string]any{"type": "sound.stop", "order_id": orderID}
	for _, c := range conns {
		if err := c.writeJSON(msg); err != nil {
			h.dropConn(c)
		}
	}
}

func (h *Hub) addConn(c *hostConn) {
	h.mu.Lock()
	h.conns[c] = struct{}{}
	h.mu.Unlock()
}

func (h *Hub) dropConn(c *hostConn) {
	h.mu.Lock()
	delete(h.conns, c)
	h.mu.Unlock()
	_ = c.conn.Close()
}
