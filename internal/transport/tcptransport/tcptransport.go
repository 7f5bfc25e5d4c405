// Package tcptransport wraps net.Conn for a TCP-bridged bus (e.g. an
// ESP32 serial-to-network bridge). Reconnect uses capped exponential
// backoff.
package tcptransport

import (
	"context"
	"fmt"
	"log"
	"net"
	"sync"
	"time"

	"github.com/Aranyalma2/samsung-nasa-sniffer/internal/transport"
)

const (
	initialBackoff = 500 * time.Millisecond
	maxBackoff     = 30 * time.Second
)

// Transport is a TCP implementation of transport.Transport.
type Transport struct {
	addr string

	mu      sync.Mutex
	conn    net.Conn
	backoff time.Duration
	events  chan transport.Event
}

// New creates a TCP transport dialing addr.
func New(addr string) *Transport {
	return &Transport{
		addr:    addr,
		backoff: initialBackoff,
		events:  make(chan transport.Event, 16),
	}
}

func (t *Transport) Events() <-chan transport.Event { return t.events }

func (t *Transport) emit(ev transport.Event) {
	select {
	case t.events <- ev:
	default:
		log.Printf("tcptransport: event channel full, dropping %s", ev.Kind)
	}
}

// Connect dials addr once. Subsequent reconnects (after a Read failure)
// are handled internally by reconnect with backoff.
func (t *Transport) Connect(ctx context.Context) error {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", t.addr)
	if err != nil {
		t.emit(transport.Event{Kind: transport.Error, Err: err})
		return fmt.Errorf("tcptransport: dial %s: %w", t.addr, err)
	}
	t.mu.Lock()
	t.conn = conn
	t.backoff = initialBackoff
	t.mu.Unlock()
	t.emit(transport.Event{Kind: transport.Connected})
	return nil
}

// Read blocks for the next chunk of bytes. On a read error it emits
// Disconnected, then reconnects with exponential backoff before
// returning (emitting Reconnecting once per attempt), so the caller's
// next Read call simply resumes once Connected is observed again; the
// reassembler's buffer survives across the gap untouched.
func (t *Transport) Read(ctx context.Context) ([]byte, error) {
	t.mu.Lock()
	conn := t.conn
	t.mu.Unlock()

	buf := make([]byte, 4096)
	n, err := conn.Read(buf)
	if err != nil {
		t.emit(transport.Event{Kind: transport.Disconnected})
		if rerr := t.reconnect(ctx); rerr != nil {
			return nil, rerr
		}
		return nil, nil
	}
	if n == 0 {
		return nil, nil
	}
	out := make([]byte, n)
	copy(out, buf[:n])
	return out, nil
}

func (t *Transport) reconnect(ctx context.Context) error {
	t.mu.Lock()
	delay := t.backoff
	t.mu.Unlock()

	t.emit(transport.Event{Kind: transport.Reconnecting, Delay: delay})
	select {
	case <-time.After(delay):
	case <-ctx.Done():
		return ctx.Err()
	}

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", t.addr)
	if err != nil {
		t.mu.Lock()
		t.backoff *= 2
		if t.backoff > maxBackoff {
			t.backoff = maxBackoff
		}
		t.mu.Unlock()
		t.emit(transport.Event{Kind: transport.Error, Err: err})
		return nil
	}

	t.mu.Lock()
	t.conn = conn
	t.backoff = initialBackoff
	t.mu.Unlock()
	t.emit(transport.Event{Kind: transport.Connected})
	return nil
}

// Close closes the current connection.
func (t *Transport) Close() error {
	t.mu.Lock()
	conn := t.conn
	t.mu.Unlock()
	if conn == nil {
		return nil
	}
	return conn.Close()
}
