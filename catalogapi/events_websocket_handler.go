package catalogapi

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"
	"github.com/joshjon/kit/log"
	"github.com/joshjon/kit/server"
	"github.com/labstack/echo/v4"

	"github.com/coro-sh/catalog/constants"
	"github.com/coro-sh/catalog/logkey"
	"github.com/coro-sh/catalog/namespace"
	"github.com/coro-sh/catalog/notif"
	"github.com/coro-sh/catalog/websocketutil"
)

const (
	eventsWebSocketSubprotocol = constants.AppName + "_events"
	defaultHeartbeatInterval   = 15 * time.Second
	errorFrameWriteTimeout     = 5 * time.Second
	eventsPath                 = "/events"
)

// EventSubscriber subscribes to namespace events.
type EventSubscriber interface {
	Subscribe(filter func(evt namespace.Event) bool) (<-chan namespace.Event, func())
}

type EventsWebSocketHandlerOption func(h *EventsWebSocketHandler)

// WithEventsWebSocketHandlerCORS authorizes WebSocket upgrades from the
// provided origins.
func WithEventsWebSocketHandlerCORS(origins ...string) EventsWebSocketHandlerOption {
	return func(h *EventsWebSocketHandler) {
		h.corsOrigins = origins
	}
}

// WithEventsWebSocketHandlerLogger sets the logger.
func WithEventsWebSocketHandlerLogger(logger log.Logger) EventsWebSocketHandlerOption {
	return func(h *EventsWebSocketHandler) {
		h.logger = logger
	}
}

// WithHeartbeatInterval sets how often idle connections are pinged.
func WithHeartbeatInterval(interval time.Duration) EventsWebSocketHandlerOption {
	return func(h *EventsWebSocketHandler) {
		h.heartbeatInterval = interval
	}
}

// EventsWebSocketHandler streams namespace events over WebSocket connections.
type EventsWebSocketHandler struct {
	subscriber        EventSubscriber
	heartbeatInterval time.Duration
	logger            log.Logger
	numConns          atomic.Int64
	corsOrigins       []string
}

// NewEventsWebSocketHandler creates a new EventsWebSocketHandler.
func NewEventsWebSocketHandler(subscriber EventSubscriber, opts ...EventsWebSocketHandlerOption) *EventsWebSocketHandler {
	h := &EventsWebSocketHandler{
		subscriber:        subscriber,
		heartbeatInterval: defaultHeartbeatInterval,
		logger:            log.NewLogger(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *EventsWebSocketHandler) Register(g *echo.Group) {
	g.GET(APIVersionPrefix+eventsPath, h.HandleStreamEvents)
}

func (h *EventsWebSocketHandler) NumConnections() int64 {
	return h.numConns.Load()
}

// HandleStreamEvents upgrades the request to a WebSocket and writes every
// matching namespace event until the client disconnects.
func (h *EventsWebSocketHandler) HandleStreamEvents(c echo.Context) (err error) {
	ctx := c.Request().Context()
	logger := h.logger.With(logkey.WebSocketID, uuid.New().String())
	wg := new(sync.WaitGroup)

	req, err := server.BindRequest[StreamEventsRequest](c)
	if err != nil {
		return err
	}

	var filter func(evt namespace.Event) bool
	if req.Namespace != "" {
		prefix, err := namespace.ParseIdentity(req.Namespace)
		if err != nil {
			return err
		}
		c.Set(logkey.Namespace, prefix.String())
		logger = logger.With(logkey.Namespace, prefix.String())
		filter = notif.PrefixFilter(prefix)
	}

	conn, err := websocket.Accept(c.Response(), c.Request(), &websocket.AcceptOptions{
		Subprotocols:   []string{eventsWebSocketSubprotocol},
		OriginPatterns: h.corsOrigins,
	})
	if err != nil {
		return err
	}
	h.numConns.Add(1)

	events, cancel := h.subscriber.Subscribe(filter)

	defer func() {
		cancel()
		code, reason := websocketutil.GetCloseErrCodeAndReason(err)
		if code == websocket.StatusNormalClosure || code == websocket.StatusGoingAway {
			err = nil
		}
		if err != nil {
			writeErrorFrame(ctx, conn, logger)
		}
		websocketutil.CloseConn(conn, code, reason, logger)
		wg.Wait()
		h.numConns.Add(-1)
	}()

	errCh := make(chan error, 1)

	wg.Add(1)
	go func() {
		defer wg.Done()
		// clients never send data; reading detects closure and handles pongs
		for {
			if _, _, rerr := conn.Read(ctx); rerr != nil {
				errCh <- rerr
				return
			}
		}
	}()

	heartbeat := time.NewTicker(h.heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err = <-errCh:
			return err
		case evt, ok := <-events:
			if !ok {
				return nil
			}
			if err = wsjson.Write(ctx, conn, server.Response[namespace.Event]{Data: evt}); err != nil {
				return err
			}
		case <-heartbeat.C:
			if err = conn.Ping(ctx); err != nil {
				return errors.New("client did not respond to ping")
			}
		}
	}
}

// writeErrorFrame reports a failure to the client before the connection is
// closed. The request context may already be cancelled at this point.
func writeErrorFrame(ctx context.Context, conn *websocket.Conn, logger log.Logger) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), errorFrameWriteTimeout)
	defer cancel()
	if err := wsjson.Write(ctx, conn, server.ResponseError{
		Error: server.HTTPError{Message: "internal server error"},
	}); err != nil {
		logger.Error("failed to write error message", "error", err)
	}
}
