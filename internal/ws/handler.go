package ws

import (
	"context"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"go.uber.org/zap"

	"github.com/nocmx/vigia/internal/auth"
	"github.com/nocmx/vigia/internal/event"
	"github.com/nocmx/vigia/pkg/models"
)

// Handler provides the WebSocket endpoint for real-time pipeline events.
type Handler struct {
	hub    *Hub
	tokens *auth.TokenService // nil when auth is disabled
	bus    *event.Bus
	logger *zap.Logger
}

// NewHandler creates a WebSocket handler and subscribes it to pipeline
// events. A nil token service disables the token check.
func NewHandler(tokens *auth.TokenService, bus *event.Bus, logger *zap.Logger) *Handler {
	h := &Handler{
		hub:    NewHub(logger),
		tokens: tokens,
		bus:    bus,
		logger: logger,
	}
	h.subscribeToEvents()
	return h
}

// RegisterRoutes registers WebSocket routes on the server mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/ws/events", h.handleEventStream)
}

// Hub exposes the hub for broadcast access.
func (h *Handler) Hub() *Hub {
	return h.hub
}

// handleEventStream upgrades the connection to WebSocket and streams
// pipeline events.
func (h *Handler) handleEventStream(w http.ResponseWriter, r *http.Request) {
	subject := "anonymous"
	if h.tokens != nil {
		// Validate JWT from query parameter (browser WS API doesn't
		// support headers).
		token := r.URL.Query().Get("token")
		if token == "" {
			http.Error(w, "missing token parameter", http.StatusUnauthorized)
			return
		}
		claims, err := h.tokens.ValidateAccessToken(token)
		if err != nil {
			http.Error(w, "invalid or expired token", http.StatusUnauthorized)
			return
		}
		subject = claims.Subject
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		// Origin is not checked; access is gated by the token above.
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.logger.Error("websocket accept failed", zap.Error(err))
		return
	}

	client := newClient(conn, subject, h.logger)
	h.hub.Register(client)

	ctx := r.Context()
	done := make(chan struct{})
	go func() {
		client.writePump(ctx)
		close(done)
	}()

	// readPump blocks until client disconnects.
	client.readPump(ctx)

	h.hub.Unregister(client)
	conn.Close(websocket.StatusNormalClosure, "")
	<-done
}

// subscribeToEvents forwards pipeline bus events to all connected
// WebSocket clients.
func (h *Handler) subscribeToEvents() {
	if h.bus == nil {
		return
	}

	h.bus.Subscribe(event.TopicRefreshCompleted, func(_ context.Context, e event.Event) {
		summary, ok := e.Payload.(event.RefreshSummary)
		if !ok {
			return
		}
		h.hub.Broadcast(Message{
			Type:      MessageRefreshCompleted,
			Timestamp: e.Timestamp,
			Data: RefreshCompletedData{
				Source:          summary.Source,
				Sites:           summary.Sites,
				Devices:         summary.Devices,
				Links:           summary.Links,
				PartialFailures: summary.PartialFailures,
				DurationMs:      summary.Duration.Milliseconds(),
			},
		})
	})

	h.bus.Subscribe(event.TopicRefreshFailed, func(_ context.Context, e event.Event) {
		msg, ok := e.Payload.(string)
		if !ok {
			return
		}
		h.hub.Broadcast(Message{
			Type:      MessageRefreshFailed,
			Timestamp: e.Timestamp,
			Data:      RefreshFailedData{Error: msg},
		})
	})

	h.bus.Subscribe(event.TopicAlertsGenerated, func(_ context.Context, e event.Event) {
		alerts, ok := e.Payload.([]models.EngineeringAlert)
		if !ok {
			return
		}
		risks := 0
		for _, a := range alerts {
			if a.Status == models.ThresholdCapacityRisk {
				risks++
			}
		}
		h.hub.Broadcast(Message{
			Type:      MessageAlertsGenerated,
			Timestamp: e.Timestamp,
			Data: AlertsGeneratedData{
				Alerts:        alerts,
				CapacityRisks: risks,
			},
		})
	})

	h.bus.Subscribe(event.TopicCacheInvalidated, func(_ context.Context, e event.Event) {
		data, ok := e.Payload.(event.CacheInvalidation)
		if !ok {
			return
		}
		h.hub.Broadcast(Message{
			Type:      MessageCacheInvalidated,
			Timestamp: e.Timestamp,
			Data: CacheInvalidatedData{
				Prefix:  data.Prefix,
				Removed: data.Removed,
			},
		})
	})

	h.logger.Info("subscribed to pipeline events for WebSocket broadcasting")
}

// BroadcastRefreshFailure pushes a refresh failure to all connected
// clients without going through the bus.
func (h *Handler) BroadcastRefreshFailure(errMsg string) {
	h.hub.Broadcast(Message{
		Type:      MessageRefreshFailed,
		Timestamp: time.Now(),
		Data:      RefreshFailedData{Error: errMsg},
	})
}
