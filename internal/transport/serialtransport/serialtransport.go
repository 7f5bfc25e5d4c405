// Package serialtransport wraps go.bug.st/serial for the RS-485/RS-232
// bus tap. The transport only delivers raw chunks; framing belongs to
// internal/reassembler.
package serialtransport

import (
	"context"
	"fmt"
	"io"
	"log"

	"go.bug.st/serial"

	"github.com/Aranyalma2/samsung-nasa-sniffer/internal/transport"
)

// Transport is a serial-port implementation of transport.Transport.
type Transport struct {
	device string
	baud   int

	port   serial.Port
	events chan transport.Event
}

// New creates a serial transport for the given device path and baud
// rate. Connect must be called before Read.
func New(device string, baud int) *Transport {
	return &Transport{
		device: device,
		baud:   baud,
		events: make(chan transport.Event, 16),
	}
}

func (t *Transport) Events() <-chan transport.Event { return t.events }

func (t *Transport) emit(ev transport.Event) {
	select {
	case t.events <- ev:
	default:
		log.Printf("serialtransport: event channel full, dropping %s", ev.Kind)
	}
}

// Connect opens the serial port with 8N1 framing and no read timeout;
// Read blocks until bytes arrive.
func (t *Transport) Connect(ctx context.Context) error {
	mode := &serial.Mode{
		BaudRate: t.baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(t.device, mode)
	if err != nil {
		t.emit(transport.Event{Kind: transport.Error, Err: err})
		return fmt.Errorf("serialtransport: open %s: %w", t.device, err)
	}
	t.port = port
	t.emit(transport.Event{Kind: transport.Connected})
	return nil
}

// Read blocks for the next chunk of bytes from the port. A read error
// (most commonly the underlying device disappearing) is surfaced as a
// Disconnected event to the caller's event channel; the pipeline's
// reassembler buffer is left untouched across the gap.
func (t *Transport) Read(ctx context.Context) ([]byte, error) {
	buf := make([]byte, 4096)
	n, err := t.port.Read(buf)
	if err != nil {
		if err != io.EOF {
			t.emit(transport.Event{Kind: transport.Error, Err: err})
		}
		t.emit(transport.Event{Kind: transport.Disconnected})
		return nil, fmt.Errorf("serialtransport: read: %w", err)
	}
	if n == 0 {
		return nil, nil
	}
	out := make([]byte, n)
	copy(out, buf[:n])
	return out, nil
}

// Close releases the serial port.
func (t *Transport) Close() error {
	if t.port == nil {
		return nil
	}
	return t.port.Close()
}
