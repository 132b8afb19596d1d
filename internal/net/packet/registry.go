package packet

import (
	"errors"
	"fmt"

	"go.uber.org/zap"
)

var (
	ErrUnknownPacket   = errors.New("unknown packet id")
	ErrIncomplete      = errors.New("incomplete frame")
	ErrUnauthenticated = errors.New("packet requires login")
)

// SessionCtx is the slice of a session the router needs: auth state and a
// way to push an error message back to the client.
type SessionCtx interface {
	Authenticated() bool
	SendError(msg string)
}

// HandlerFunc handles one decoded frame. The session is passed opaquely to
// avoid an import cycle with the net package.
type HandlerFunc func(sess any, r *Reader)

type handlerEntry struct {
	fn        HandlerFunc
	needsAuth bool
}

// Registry routes inbound frames: packet id → (minimum length, auth
// requirement, handler). Handlers run under panic recovery so one bad frame
// cannot take the session goroutine down.
type Registry struct {
	handlers map[byte]*handlerEntry
	log      *zap.Logger
}

func NewRegistry(log *zap.Logger) *Registry {
	return &Registry{
		handlers: make(map[byte]*handlerEntry),
		log:      log,
	}
}

// Register maps a packet id to a handler. Ids without a MinLength entry are
// rejected at registration: the minimum-length table is the routing
// contract.
func (reg *Registry) Register(id byte, needsAuth bool, fn HandlerFunc) {
	if _, ok := MinLength[id]; !ok {
		panic(fmt.Sprintf("packet id %d has no minimum-length entry", id))
	}
	reg.handlers[id] = &handlerEntry{fn: fn, needsAuth: needsAuth}
}

// Dispatch parses and handles exactly one frame from the front of data,
// returning the number of bytes consumed. There is no outer length prefix,
// so a frame that ends short of its declared fields is indistinguishable
// from one whose tail has not arrived yet: both surface as ErrIncomplete
// and the caller keeps its buffer for the next read. Other errors (unknown
// id, handler failure) lose the frame boundary; the caller should discard
// the buffer.
func (reg *Registry) Dispatch(sess SessionCtx, data []byte) (int, error) {
	if len(data) == 0 {
		return 0, nil
	}
	id := data[0]

	minLen, ok := MinLength[id]
	if !ok {
		reg.log.Warn("unknown packet id", zap.Uint8("packet", id))
		return 0, ErrUnknownPacket
	}
	if len(data) < minLen {
		return 0, ErrIncomplete
	}

	entry := reg.handlers[id]
	if entry == nil {
		reg.log.Warn("packet id has no handler", zap.Uint8("packet", id))
		return 0, ErrUnknownPacket
	}
	if entry.needsAuth && !sess.Authenticated() {
		sess.SendError("Debes iniciar sesión primero.")
		return 0, ErrUnauthenticated
	}

	r := NewReader(data)
	if err := reg.safeCall(entry.fn, sess, r, id); err != nil {
		reg.log.Error("handler failed", zap.Uint8("packet", id), zap.Error(err))
		return 0, err
	}
	if r.Err() != nil {
		// Reader overran the buffer mid-body: the rest of the frame is
		// still in flight. Handlers guard side effects on r.Err(), so
		// re-dispatching once more bytes arrive is safe.
		return 0, ErrIncomplete
	}

	consumed := r.Off()
	if consumed < minLen {
		consumed = minLen
	}
	return consumed, nil
}

// safeCall runs a handler with panic recovery. The session stays open; the
// connection loop keeps reading.
func (reg *Registry) safeCall(fn HandlerFunc, sess any, r *Reader, id byte) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("handler panic for packet %d: %v", id, rec)
		}
	}()
	fn(sess, r)
	return nil
}
