package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/recipecart/backend/internal/usecase"
	"github.com/sirupsen/logrus"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// EventStream pushes session and run events to websocket clients
type EventStream struct {
	events   *usecase.EventBus
	upgrader websocket.Upgrader
	logger   logrus.FieldLogger
}

// NewEventStream creates a websocket event stream. Origins are checked with
// the same allow-list as CORS; requests without an Origin header are local
// tools and are accepted.
func NewEventStream(events *usecase.EventBus, allowedOrigins []string, logger logrus.FieldLogger) *EventStream {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &EventStream{
		events: events,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || isAllowedOrigin(origin, allowedOrigins)
			},
		},
		logger: logger.WithField("component", "events"),
	}
}

// Serve upgrades the connection and streams events until the client leaves
func (s *EventStream) Serve(c *gin.Context) {
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.WithError(err).Warn("Failed to upgrade WebSocket connection")
		return
	}
	defer conn.Close()

	events, unsubscribe := s.events.Subscribe()
	defer unsubscribe()

	s.logger.WithField("subscribers", s.events.SubscriberCount()).Debug("WebSocket client connected")

	// Reader: handles pongs and notices disconnects
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					s.logger.WithError(err).Warn("WebSocket error")
				}
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-closed:
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(event); err != nil {
				s.logger.WithError(err).Debug("Failed to send event")
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
