// Package reassembler recovers candidate NASA frames from an append-only
// byte stream, resynchronising past garbage rather than failing closed.
//
// Reassemble is a pure function over a buffer: it returns frames and a
// tail instead of invoking a callback, so the same byte stream yields
// the same frame sequence regardless of how the transport chunked it.
package reassembler

import (
	"bytes"
	"encoding/binary"
)

const (
	startByte = 0x32

	minFrameLen = 16
	maxFrameLen = 1500
)

// ResyncEvent reports bytes discarded while searching for the next
// frame start. Resyncs are informational, distinct from decode errors.
type ResyncEvent struct {
	Skipped int
}

// Reassemble scans buf for complete candidate frames. It returns the
// frames found, in order; the remaining tail (bytes not yet consumed,
// because they are an incomplete frame or because the buffer ran out of
// data while awaiting a length or a start byte); and any resync events
// encountered along the way. Reassemble never revisits bytes it has
// already returned in frames or resyncs: every invocation makes forward
// progress or reports empty tail.
func Reassemble(buf []byte) (frames [][]byte, tail []byte, resyncs []ResyncEvent) {
	cursor := 0

	for {
		remaining := buf[cursor:]

		// Step 1: scan for start.
		if len(remaining) == 0 {
			break
		}
		if remaining[0] != startByte {
			offset := bytes.IndexByte(remaining, startByte)
			if offset < 0 {
				resyncs = append(resyncs, ResyncEvent{Skipped: len(remaining)})
				cursor = len(buf)
				break
			}
			resyncs = append(resyncs, ResyncEvent{Skipped: offset})
			cursor += offset
			remaining = buf[cursor:]
		}

		// Step 2: await length.
		if len(remaining) < 3 {
			break
		}

		// Step 3: compute declared length.
		declared := int(binary.BigEndian.Uint16(remaining[1:3])) + 2
		if declared < minFrameLen || declared > maxFrameLen {
			resyncs = append(resyncs, ResyncEvent{Skipped: 1})
			cursor++
			continue
		}

		// Step 4: await full frame.
		if len(remaining) < declared {
			break
		}

		// Step 5: extract candidate frame, advance, continue.
		frame := make([]byte, declared)
		copy(frame, remaining[:declared])
		frames = append(frames, frame)
		cursor += declared
	}

	tail = append([]byte(nil), buf[cursor:]...)
	return frames, tail, resyncs
}
