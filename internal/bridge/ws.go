package bridge

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

type hostConn struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
}

func (c *hostConn) writeJSON(value any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteJSON(value)
}

type hostFrame struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// ServeHost upgrades the host shell's websocket connection. Inbound frames of
// type "order.push" land in the ambient slot; the connection also receives
// outbound "sound.stop" frames.
func (h *Hub) ServeHost(heartbeat time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			h.logger.Warn("host ws upgrade failed", zap.Error(err))
			return
		}

		client := &hostConn{conn: conn}
		h.addConn(client)
		h.logger.Info("host shell connected", zap.String("remote", r.RemoteAddr))

		done := make(chan struct{})
		if heartbeat > 0 {
			go func() {
				ticker := time.NewTicker(heartbeat)
				defer ticker.Stop()
				for {
					select {
					case <-done:
						return
					case <-ticker.C:
						client.writeMu.Lock()
						err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second))
						client.writeMu.Unlock()
						if err != nil {
							return
						}
					}
				}
			}()
		}

		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				break
			}
			var frame hostFrame
			if err := json.Unmarshal(data, &frame); err != nil {
				h.logger.Warn("host ws frame rejected", zap.Error(err))
				continue
			}
			switch frame.Type {
			case "order.push":
				var p Payload
				if err := json.Unmarshal(frame.Payload, &p); err != nil {
					h.logger.Warn("host order push rejected", zap.Error(err))
					continue
				}
				h.Push(p)
			default:
				h.logger.Debug("host ws frame ignored", zap.String("type", frame.Type))
			}
		}

		close(done)
		h.dropConn(client)
		h.logger.Info("host shell disconnected", zap.String("remote", r.RemoteAddr))
	}
}
