// Package decoder validates one candidate frame (as produced by
// internal/reassembler) and turns it into a nasa.Packet, or a typed
// DecodeError describing exactly how the frame failed to validate.
// Decoding is a single pass over an already-framed slice; streaming
// cursor state belongs to the reassembler.
package decoder

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/Aranyalma2/samsung-nasa-sniffer/internal/nasa"
)

// DecodeErrorKind enumerates the non-fatal decode failure taxonomy.
type DecodeErrorKind int

const (
	InvalidStart DecodeErrorKind = iota
	UnexpectedSize
	SizeMismatch
	InvalidEnd
	CrcError
	TruncatedMessage
	TrailingBytes
)

func (k DecodeErrorKind) String() string {
	switch k {
	case InvalidStart:
		return "InvalidStart"
	case UnexpectedSize:
		return "UnexpectedSize"
	case SizeMismatch:
		return "SizeMismatch"
	case InvalidEnd:
		return "InvalidEnd"
	case CrcError:
		return "CrcError"
	case TruncatedMessage:
		return "TruncatedMessage"
	case TrailingBytes:
		return "TrailingBytes"
	default:
		return "Unknown"
	}
}

// DecodeError is the non-fatal error surface for frame decode failures.
// It always carries the raw frame bytes so the caller can log or
// re-present them; Expected/Actual are only populated for CrcError.
type DecodeError struct {
	Kind     DecodeErrorKind
	Frame    []byte
	Expected uint16
	Actual   uint16
}

func (e *DecodeError) Error() string {
	if e.Kind == CrcError {
		return fmt.Sprintf("nasa decode: %s (expected=0x%04x actual=0x%04x, %d bytes)", e.Kind, e.Expected, e.Actual, len(e.Frame))
	}
	return fmt.Sprintf("nasa decode: %s (%d bytes)", e.Kind, len(e.Frame))
}

const (
	startByte = 0x32
	endByte   = 0x34

	minFrameLen = 16
	maxFrameLen = 1500
)

// nowFunc is overridable in tests to make timestamp assertions exact.
var nowFunc = time.Now

// Decode validates frame and decodes its structured payload. frame is
// expected to be exactly one candidate frame as produced by
// reassembler.Reassemble; Decode does not scan for a start byte inside
// a larger buffer.
func Decode(frame []byte) (*nasa.Packet, error) {
	if len(frame) == 0 || frame[0] != startByte {
		return nil, &DecodeError{Kind: InvalidStart, Frame: frame}
	}

	n := len(frame)
	if n < minFrameLen || n > maxFrameLen {
		return nil, &DecodeError{Kind: UnexpectedSize, Frame: frame}
	}

	declared := int(binary.BigEndian.Uint16(frame[1:3])) + 2
	if declared != n {
		return nil, &DecodeError{Kind: SizeMismatch, Frame: frame}
	}

	if frame[n-1] != endByte {
		return nil, &DecodeError{Kind: InvalidEnd, Frame: frame}
	}

	expectedCRC := binary.BigEndian.Uint16(frame[n-3 : n-1])
	actualCRC := nasa.CRC16(frame[3 : n-3])
	if expectedCRC != actualCRC {
		return nil, &DecodeError{Kind: CrcError, Frame: frame, Expected: expectedCRC, Actual: actualCRC}
	}

	cursor := 3
	source := nasa.DecodeAddress(frame[cursor : cursor+3])
	cursor += 3
	destination := nasa.DecodeAddress(frame[cursor : cursor+3])
	cursor += 3
	command := nasa.DecodeCommand(frame[cursor : cursor+3])
	cursor += 3

	capacity := int(frame[cursor])
	cursor++

	payloadEnd := n - 3
	messages := make([]nasa.MessageSet, 0, capacity)
	for i := 0; i < capacity; i++ {
		if cursor+2 > payloadEnd {
			return nil, &DecodeError{Kind: TruncatedMessage, Frame: frame}
		}
		number := binary.BigEndian.Uint16(frame[cursor : cursor+2])
		cursor += 2
		kind := nasa.KindOf(number)

		var payload []byte
		if fixedLen, fixed := kind.PayloadLen(); fixed {
			if cursor+fixedLen > payloadEnd {
				return nil, &DecodeError{Kind: TruncatedMessage, Frame: frame}
			}
			payload = frame[cursor : cursor+fixedLen]
			cursor += fixedLen
		} else {
			// Structure absorbs all remaining payload bytes, so it can
			// only be the last record. A frame declaring more records
			// after a Structure is undefined on the wire; reject it.
			if i != capacity-1 {
				return nil, &DecodeError{Kind: TruncatedMessage, Frame: frame}
			}
			payload = frame[cursor:payloadEnd]
			cursor = payloadEnd
		}

		raw := make([]byte, len(payload))
		copy(raw, payload)
		messages = append(messages, nasa.MessageSet{Number: number, Kind: kind, Raw: raw})
	}

	if cursor != payloadEnd {
		return nil, &DecodeError{Kind: TrailingBytes, Frame: frame}
	}

	rawFrame := make([]byte, n)
	copy(rawFrame, frame)

	return &nasa.Packet{
		Source:      source,
		Destination: destination,
		Command:     command,
		Messages:    messages,
		RawFrame:    rawFrame,
		Timestamp:   nowFunc(),
	}, nil
}
