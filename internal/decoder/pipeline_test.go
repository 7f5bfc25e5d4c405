package decoder

import (
	"errors"
	"testing"

	"github.com/Aranyalma2/samsung-nasa-sniffer/internal/reassembler"
)

// These tests exercise the reassemble-then-decode chain the capture loop
// runs, over literal byte streams.

func TestResyncThenDecodeEndToEnd(t *testing.T) {
	stream := append([]byte{0xAA, 0xBB, 0xCC}, minimalFrame()...)

	frames, tail, resyncs := reassembler.Reassemble(stream)
	if len(resyncs) != 1 || resyncs[0].Skipped != 3 {
		t.Fatalf("resyncs = %+v, want one event with Skipped=3", resyncs)
	}
	if len(tail) != 0 {
		t.Fatalf("tail = % X, want empty", tail)
	}
	if len(frames) != 1 {
		t.Fatalf("got %d frames, want 1", len(frames))
	}

	p, err := Decode(frames[0])
	if err != nil {
		t.Fatalf("Decode = %v", err)
	}
	if len(p.Messages) != 0 || p.Source.String() != "00.00.00" {
		t.Fatalf("decoded packet = %+v, want the minimal zero packet", p)
	}
}

func TestCrcFailureConsumesSameBytes(t *testing.T) {
	good := minimalFrame()
	bad := append([]byte(nil), good...)
	bad[5] ^= 0x01

	// A corrupt frame and a valid frame of the same declared length must
	// consume identical byte counts: the valid frame following the bad
	// one still reassembles and decodes.
	stream := append(append([]byte(nil), bad...), good...)
	frames, tail, resyncs := reassembler.Reassemble(stream)
	if len(frames) != 2 || len(tail) != 0 || len(resyncs) != 0 {
		t.Fatalf("frames=%d tail=%d resyncs=%d, want 2/0/0", len(frames), len(tail), len(resyncs))
	}

	var de *DecodeError
	if _, err := Decode(frames[0]); !errors.As(err, &de) || de.Kind != CrcError {
		t.Fatalf("first frame error = %v, want CrcError", err)
	}
	if _, err := Decode(frames[1]); err != nil {
		t.Fatalf("second frame failed to decode after a CRC failure: %v", err)
	}
}
