package net

import (
	"fmt"
	"net"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/cavazquez/pyao-server-sub005/internal/net/packet"
)

// Server accepts TCP connections and spins up one Session per client.
type Server struct {
	listener net.Listener
	registry *packet.Registry
	nextID   atomic.Uint64
	live     atomic.Int32

	maxConns  int
	bufSize   int
	outSize   int
	pktPerSec int

	onClose func(*Session)

	closeCh chan struct{}
	log     *zap.Logger
}

func NewServer(bindAddr string, reg *packet.Registry, maxConns, bufSize, outSize, pktPerSec int, onClose func(*Session), log *zap.Logger) (*Server, error) {
	ln, err := net.Listen("tcp", bindAddr)
	if err != nil {
		return nil, fmt.Errorf("listen %s: %w", bindAddr, err)
	}
	return &Server{
		listener:  ln,
		registry:  reg,
		maxConns:  maxConns,
		bufSize:   bufSize,
		outSize:   outSize,
		pktPerSec: pktPerSec,
		onClose:   onClose,
		closeCh:   make(chan struct{}),
		log:       log,
	}, nil
}

// AcceptLoop runs until Shutdown closes the listener.
func (s *Server) AcceptLoop() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.closeCh:
				return
			default:
			}
			s.log.Error("accept failed", zap.Error(err))
			continue
		}

		if s.maxConns > 0 && int(s.live.Load()) >= s.maxConns {
			s.log.Warn("connection limit reached, rejecting",
				zap.String("ip", conn.RemoteAddr().String()))
			conn.Close()
			continue
		}

		id := s.nextID.Add(1)
		sess := NewSession(conn, id, s.registry, s.bufSize, s.outSize, s.pktPerSec, s.log)
		s.live.Add(1)
		sess.Start(func(closed *Session) {
			s.live.Add(-1)
			if s.onClose != nil {
				s.onClose(closed)
			}
		})

		s.log.Info("client connected",
			zap.Uint64("session", id),
			zap.String("ip", sess.IP),
		)
	}
}

// Live returns the number of open sessions.
func (s *Server) Live() int {
	return int(s.live.Load())
}

// Shutdown stops accepting new connections.
func (s *Server) Shutdown() {
	close(s.closeCh)
	s.listener.Close()
}

// Addr returns the bound listener address.
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}
