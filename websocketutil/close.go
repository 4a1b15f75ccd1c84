package websocketutil

import (
	"context"
	"errors"
	"io"
	"net"

	"github.com/coder/websocket"
	"github.com/joshjon/kit/log"

	"github.com/coro-sh/catalog/logkey"
)

// CloseConn closes conn with the given status and logs the outcome.
func CloseConn(conn *websocket.Conn, code websocket.StatusCode, reason string, logger log.Logger) {
	if cerr := conn.Close(code, reason); cerr != nil && !errors.Is(cerr, net.ErrClosed) {
		logger.Error("failed to close websocket connection", "error", cerr, logkey.WebSocketCloseCode, code, logkey.WebSocketCloseReason, reason)
		return
	}
	logger.Info("websocket connection closed", logkey.WebSocketCloseCode, code, logkey.WebSocketCloseReason, reason)
}

// GetCloseErrCodeAndReason maps the error that ended a websocket session to
// the close status sent to the peer.
func GetCloseErrCodeAndReason(err error) (websocket.StatusCode, string) {
	if err == nil {
		return websocket.StatusNormalClosure, ""
	}

	var ce websocket.CloseError
	if errors.As(err, &ce) && ce.Code == websocket.StatusNormalClosure {
		return ce.Code, ce.Reason
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
		return websocket.StatusGoingAway, "connection closed"
	}

	return websocket.StatusInternalError, "internal server error"
}
