package net

import (
	"errors"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/cavazquez/pyao-server-sub005/internal/net/packet"
)

// Session is one client connection. A dedicated goroutine reads frames and
// dispatches them in order; a second goroutine drains the outbox to TCP.
// All sends from handlers and tick effects funnel through the outbox, so
// outbound bytes are FIFO per session and never interleave.
type Session struct {
	ID   uint64
	IP   string
	conn net.Conn

	userID   atomic.Int32
	username atomic.Value // string
	authed   atomic.Bool

	// Dice roll cached between THROW_DICES and CREATE_ACCOUNT.
	diceMu     sync.Mutex
	dice       [5]byte
	diceRolled bool

	out outbox

	registry *packet.Registry
	bufSize  int

	// Per-second inbound packet cap (read goroutine only).
	pktPerSec  int
	pktCount   int
	pktResetAt int64

	onClose func(*Session)

	closeCh   chan struct{}
	closeOnce sync.Once
	closed    atomic.Bool

	log *zap.Logger
}

func NewSession(conn net.Conn, id uint64, reg *packet.Registry, bufSize, outSize, pktPerSec int, log *zap.Logger) *Session {
	s := &Session{
		ID:        id,
		IP:        conn.RemoteAddr().String(),
		conn:      conn,
		registry:  reg,
		bufSize:   bufSize,
		pktPerSec: pktPerSec,
		closeCh:   make(chan struct{}),
		log:       log.With(zap.Uint64("session", id)),
	}
	s.username.Store("")
	s.out.init(outSize)
	return s
}

// Start launches the reader and writer goroutines.
func (s *Session) Start(onClose func(*Session)) {
	s.onClose = onClose
	go s.readLoop()
	go s.writeLoop()
}

// SetUser marks the session authenticated. Called once, from the session's
// own read goroutine, when login completes.
func (s *Session) SetUser(userID int32, username string) {
	s.userID.Store(userID)
	s.username.Store(username)
	s.authed.Store(true)
}

func (s *Session) UserID() int32 {
	return s.userID.Load()
}

// StoreDice caches an attribute roll until account creation claims it.
func (s *Session) StoreDice(d [5]byte) {
	s.diceMu.Lock()
	s.dice = d
	s.diceRolled = true
	s.diceMu.Unlock()
}

// LoadDice returns the cached roll; ok is false when no dice were thrown.
func (s *Session) LoadDice() ([5]byte, bool) {
	s.diceMu.Lock()
	defer s.diceMu.Unlock()
	return s.dice, s.diceRolled
}

func (s *Session) Username() string {
	return s.username.Load().(string)
}

// Authenticated implements packet.SessionCtx.
func (s *Session) Authenticated() bool {
	return s.authed.Load()
}

// SendError implements packet.SessionCtx.
func (s *Session) SendError(msg string) {
	s.Send(packet.NewWriter(packet.SErrorMsg).PutString(msg).Bytes())
}

// Send queues a frame for delivery. When the outbox is full the oldest
// sheddable frame is dropped first; CHARACTER_REMOVE and CHANGE_MAP class
// frames are never shed.
func (s *Session) Send(frame []byte) {
	if s.closed.Load() {
		return
	}
	if dropped := s.out.push(frame); dropped > 0 {
		s.log.Debug("outbox backpressure", zap.Uint64("dropped_total", dropped))
	}
}

// Close tears the session down. Safe to call from any goroutine and more
// than once; cleanup (roster removal, occupancy release) runs exactly once.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		close(s.closeCh)
		s.conn.Close()
		if s.onClose != nil {
			s.onClose(s)
		}
	})
}

func (s *Session) IsClosed() bool {
	return s.closed.Load()
}

// maxPendingFrame bounds the bytes held back waiting for the rest of an
// incomplete frame. Every legal client frame fits in well under this; a
// partial frame that outgrows it is malformed, not fragmented.
const maxPendingFrame = 4096

// readLoop reads raw bytes, reassembles frames and dispatches them one at a
// time. There is no outer length prefix on the wire: the router consumes
// cursor-wise and reports how many bytes each frame took. A frame whose
// tail has not arrived yet stays in the buffer until the next read; an
// unknown id or a handler failure voids the remainder of the buffer.
func (s *Session) readLoop() {
	defer s.Close()

	buf := make([]byte, s.bufSize)
	var acc []byte

	for {
		select {
		case <-s.closeCh:
			return
		default:
		}

		n, err := s.conn.Read(buf)
		if err != nil {
			if !s.closed.Load() {
				s.log.Debug("read error", zap.Error(err))
			}
			return
		}
		if s.overRate() {
			s.log.Warn("packet rate exceeded, disconnecting")
			return
		}
		acc = append(acc, buf[:n]...)

		for len(acc) > 0 {
			consumed, derr := s.registry.Dispatch(s, acc)
			if errors.Is(derr, packet.ErrIncomplete) {
				// Partial frame at the tail; wait for the next read.
				if len(acc) > maxPendingFrame {
					s.log.Warn("oversized partial frame, dropping buffer",
						zap.Int("pending", len(acc)))
					acc = acc[:0]
				}
				break
			}
			if derr != nil {
				// Frame boundary lost; drop the buffer, keep the session.
				acc = acc[:0]
				break
			}
			if consumed == 0 {
				break
			}
			acc = acc[consumed:]
		}
	}
}

// overRate counts inbound reads against the per-second cap.
func (s *Session) overRate() bool {
	if s.pktPerSec <= 0 {
		return false
	}
	now := time.Now().Unix()
	if now != s.pktResetAt {
		s.pktCount = 0
		s.pktResetAt = now
	}
	s.pktCount++
	return s.pktCount > s.pktPerSec
}

func (s *Session) writeLoop() {
	defer s.Close()

	for {
		select {
		case <-s.out.notify:
		case <-s.closeCh:
			return
		}
		for {
			frame := s.out.pop()
			if frame == nil {
				break
			}
			s.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if _, err := s.conn.Write(frame); err != nil {
				if !s.closed.Load() {
					s.log.Debug("write error", zap.Error(err))
				}
				return
			}
		}
	}
}

// outbox is a bounded FIFO with a shed policy: cosmetic frames go first,
// then the oldest non-critical frame; critical frames are always admitted.
type outbox struct {
	mu      sync.Mutex
	queue   [][]byte
	max     int
	dropped uint64
	notify  chan struct{}
}

func (o *outbox) init(max int) {
	o.max = max
	o.notify = make(chan struct{}, 1)
}

// push appends a frame, shedding if the queue is at capacity. Returns the
// cumulative drop count when something was shed, else 0.
func (o *outbox) push(frame []byte) uint64 {
	o.mu.Lock()
	var report uint64
	if len(o.queue) >= o.max {
		if !o.shed() && !packet.IsCritical(frame) {
			// Nothing sheddable and the new frame is expendable too.
			o.dropped++
			report = o.dropped
			o.mu.Unlock()
			return report
		}
		report = o.dropped
	}
	o.queue = append(o.queue, frame)
	o.mu.Unlock()

	select {
	case o.notify <- struct{}{}:
	default:
	}
	return report
}

// shed removes the oldest low-value frame, falling back to the oldest
// non-critical frame. Returns false when every queued frame is critical.
func (o *outbox) shed() bool {
	for i, f := range o.queue {
		if packet.IsLowValue(f) {
			o.queue = append(o.queue[:i], o.queue[i+1:]...)
			o.dropped++
			return true
		}
	}
	for i, f := range o.queue {
		if !packet.IsCritical(f) {
			o.queue = append(o.queue[:i], o.queue[i+1:]...)
			o.dropped++
			return true
		}
	}
	return false
}

func (o *outbox) pop() []byte {
	o.mu.Lock()
	defer o.mu.Unlock()
	if len(o.queue) == 0 {
		return nil
	}
	f := o.queue[0]
	o.queue = o.queue[1:]
	return f
}
