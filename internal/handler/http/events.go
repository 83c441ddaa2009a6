package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/utafrali/storefront-cart/internal/event"
	"github.com/utafrali/storefront-cart/pkg/logger"
	"github.com/utafrali/storefront-cart/pkg/middleware"
)

const (
	defaultHeartbeat = 25 * time.Second
	// retryMillis tells EventSource how long to wait before reconnecting.
	retryMillis = 3000
)

// EventsHandler streams cart change notifications to storefront clients as
// Server-Sent Events. Each event only says which key changed; clients
// reload the cart or wishlist through the regular endpoints.
type EventsHandler struct {
	bus       *event.Bus
	heartbeat time.Duration
	logger    *slog.Logger
}

// NewEventsHandler creates a new SSE handler. A zero heartbeat uses the default.
func NewEventsHandler(bus *event.Bus, heartbeat time.Duration, logger *slog.Logger) *EventsHandler {
	if heartbeat <= 0 {
		heartbeat = defaultHeartbeat
	}
	return &EventsHandler{
		bus:       bus,
		heartbeat: heartbeat,
		logger:    logger,
	}
}

// Stream handles GET /api/v1/cart/events
func (h *EventsHandler) Stream(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessionID := middleware.SessionIDFromContext(ctx)
	l := logger.FromContext(ctx)
	if l == slog.Default() {
		l = h.logger
	}

	rc := http.NewResponseController(w)
	// The stream outlives the server's write timeout.
	if err := rc.SetWriteDeadline(time.Time{}); err != nil && !errors.Is(err, http.ErrNotSupported) {
		l.WarnContext(ctx, "failed to clear write deadline", slog.String("error", err.Error()))
	}

	changes, cancel := h.bus.Subscribe(sessionID)
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	if _, err := fmt.Fprintf(w, "retry: %d\n\n", retryMillis); err != nil {
		return
	}
	if err := rc.Flush(); err != nil {
		l.ErrorContext(ctx, "streaming not supported", slog.String("error", err.Error()))
		return
	}

	l.DebugContext(ctx, "cart event stream opened", slog.String("session_id", sessionID))

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			l.DebugContext(ctx, "cart event stream closed", slog.String("session_id", sessionID))
			return
		case c, ok := <-changes:
			if !ok {
				return
			}
			if err := writeChange(w, c); err != nil {
				return
			}
		case <-ticker.C:
			if _, err := io.WriteString(w, ": ping\n\n"); err != nil {
				return
			}
		}
		if err := rc.Flush(); err != nil {
			return
		}
	}
}

func writeChange(w io.Writer, c event.Change) error {
	data, err := json.Marshal(c)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "id: %d\nevent: %s\ndata: %s\n\n", c.Seq, c.Name, data)
	return err
}
