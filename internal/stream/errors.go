package stream

import (
	"errors"
	"fmt"

	"github.com/gorilla/websocket"
)

var ErrNoDialer = errors.New("stream: dialer is nil")

// TransportError wraps any failure of the underlying connection.
// Op is "dial" or "read".
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Clean reports whether the remote end closed the stream normally.
func (e *TransportError) Clean() bool {
	return websocket.IsCloseError(e.Err, websocket.CloseNormalClosure, websocket.CloseGoingAway)
}
