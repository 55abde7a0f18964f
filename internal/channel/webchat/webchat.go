// Package webchat serves the browser chat channel over WebSocket.
package webchat

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/axiomhub/axiom-gateway/internal/channel"
	"github.com/axiomhub/axiom-gateway/internal/logging"
)

type Adapter struct {
	port     int
	incoming chan *channel.Message
	upgrader websocket.Upgrader
	conns    map[string]*websocket.Conn
	connMux  sync.RWMutex
	stopCh   chan struct{}
	stopOnce sync.Once
	server   *http.Server
}

// WSMessage is the wire format exchanged with the browser.
type WSMessage struct {
	Type      string `json:"type"`
	Content   string `json:"content"`
	SessionID string `json:"session_id,omitempty"`
	UserID    string `json:"user_id,omitempty"`
}

func NewAdapter(port int) *Adapter {
	return &Adapter{
		port:     port,
		incoming: make(chan *channel.Message, 100),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		conns:  make(map[string]*websocket.Conn),
		stopCh: make(chan struct{}),
	}
}

func (a *Adapter) Name() string {
	return "webchat"
}

func (a *Adapter) IsEnabled() bool {
	return a.port > 0
}

func (a *Adapter) Start(ctx context.Context) error {
	logger := logging.WithComponent("webchat")

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", a.wsHandler)
	a.server = &http.Server{Addr: ":" + strconv.Itoa(a.port), Handler: mux}

	go func() {
		if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("webchat server error", "error", err)
		}
	}()

	go func() {
		select {
		case <-ctx.Done():
		case <-a.stopCh:
		}
		a.signalStop()
		a.server.Shutdown(context.Background())
	}()

	return nil
}

// signalStop closes stopCh exactly once. The incoming channel is never
// closed: handler goroutines may still hold a decoded client message,
// and sending on a closed channel would panic mid-shutdown.
func (a *Adapter) signalStop() {
	a.stopOnce.Do(func() { close(a.stopCh) })
}

func (a *Adapter) Stop() error {
	a.signalStop()
	if a.server != nil {
		return a.server.Shutdown(context.Background())
	}
	return nil
}

func (a *Adapter) SendMessage(userID string, resp *channel.Response) error {
	a.connMux.RLock()
	conn, exists := a.conns[userID]
	a.connMux.RUnlock()

	if !exists {
		return nil // connection already gone
	}

	msg := WSMessage{
		Type:      "message",
		Content:   resp.Content,
		SessionID: resp.SessionID,
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	return conn.WriteMessage(websocket.TextMessage, data)
}

func (a *Adapter) Incoming() <-chan *channel.Message {
	return a.incoming
}

// enqueue hands an inbound message to the consumer, giving up when the
// adapter is stopping.
func (a *Adapter) enqueue(msg *channel.Message) bool {
	select {
	case a.incoming <- msg:
		return true
	case <-a.stopCh:
		return false
	}
}

func (a *Adapter) wsHandler(rw http.ResponseWriter, r *http.Request) {
	logger := logging.WithComponent("webchat")

	conn, err := a.upgrader.Upgrade(rw, r, nil)
	if err != nil {
		logger.Error("websocket upgrade failed", "error", err)
		return
	}

	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		userID = "anonymous_" + strconv.FormatInt(time.Now().Unix(), 10)
	}

	a.connMux.Lock()
	a.conns[userID] = conn
	a.connMux.Unlock()

	defer func() {
		a.connMux.Lock()
		delete(a.conns, userID)
		a.connMux.Unlock()
		conn.Close()
	}()

	for {
		select {
		case <-a.stopCh:
			return
		default:
			var msg WSMessage
			if err := conn.ReadJSON(&msg); err != nil {
				logger.Debug("websocket read ended", "user", userID, "error", err)
				return
			}

			if msg.Type == "message" {
				delivered := a.enqueue(&channel.Message{
					ID:        strconv.FormatInt(time.Now().UnixNano(), 10),
					Channel:   "webchat",
					UserID:    userID,
					SessionID: msg.SessionID,
					Content:   msg.Content,
					Timestamp: time.Now().Unix(),
				})
				if !delivered {
					return
				}
			}
		}
	}
}
