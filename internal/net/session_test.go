package net

import (
	"net"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/cavazquez/pyao-server-sub005/internal/net/packet"
)

func talkFrame(msg string) []byte {
	b := []byte{packet.CTalk, byte(len(msg)), byte(len(msg) >> 8)}
	return append(b, msg...)
}

// TestReadLoopReassemblesSplitFrames covers the no-length-prefix wire: a
// frame that straddles two TCP segments must survive until its tail
// arrives, and the frames behind it must still be delivered.
func TestReadLoopReassemblesSplitFrames(t *testing.T) {
	reg := packet.NewRegistry(zap.NewNop())
	var mu sync.Mutex
	var got []string
	reg.Register(packet.CTalk, false, func(_ any, r *packet.Reader) {
		msg := r.String()
		if r.Err() != nil {
			return
		}
		mu.Lock()
		got = append(got, msg)
		mu.Unlock()
	})

	client, server := net.Pipe()
	defer client.Close()
	s := NewSession(server, 1, reg, 1024, 32, 0, zap.NewNop())
	s.Start(func(*Session) {})
	defer s.Close()

	// net.Pipe is synchronous, so each Write lands as exactly one read on
	// the session side: the split below is a guaranteed fragment boundary.
	first := talkFrame("hola mundo")
	cut := len(first) - 4
	if _, err := client.Write(first[:cut]); err != nil {
		t.Fatalf("write head: %v", err)
	}
	if _, err := client.Write(first[cut:]); err != nil {
		t.Fatalf("write tail: %v", err)
	}
	if _, err := client.Write(talkFrame("segunda")); err != nil {
		t.Fatalf("write second frame: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		mu.Lock()
		n := len(got)
		mu.Unlock()
		if n >= 2 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("delivered %d frames, want 2 (split frame lost)", n)
		}
		time.Sleep(5 * time.Millisecond)
	}

	mu.Lock()
	defer mu.Unlock()
	if got[0] != "hola mundo" || got[1] != "segunda" {
		t.Fatalf("frames = %q, want the split message first, intact", got)
	}
}

// TestReadLoopHandlesByteAtATimeDelivery trickles a LOGIN-sized frame one
// byte per read; nothing may be dispatched early or dropped.
func TestReadLoopHandlesByteAtATimeDelivery(t *testing.T) {
	reg := packet.NewRegistry(zap.NewNop())
	var mu sync.Mutex
	var got []string
	reg.Register(packet.CLogin, false, func(_ any, r *packet.Reader) {
		user := r.String()
		pass := r.String()
		if r.Err() != nil {
			return
		}
		mu.Lock()
		got = append(got, user+"/"+pass)
		mu.Unlock()
	})

	client, server := net.Pipe()
	defer client.Close()
	s := NewSession(server, 1, reg, 1024, 32, 0, zap.NewNop())
	s.Start(func(*Session) {})
	defer s.Close()

	frame := []byte{packet.CLogin}
	frame = append(frame, 3, 0, 'a', 'n', 'a')
	frame = append(frame, 4, 0, 'c', 'l', 'a', 'v')
	for i := range frame {
		if _, err := client.Write(frame[i : i+1]); err != nil {
			t.Fatalf("write byte %d: %v", i, err)
		}
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		mu.Lock()
		n := len(got)
		mu.Unlock()
		if n == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("trickled frame never dispatched")
		}
		time.Sleep(5 * time.Millisecond)
	}

	mu.Lock()
	defer mu.Unlock()
	if got[0] != "ana/clav" {
		t.Fatalf("frame = %q, want ana/clav", got[0])
	}
}
