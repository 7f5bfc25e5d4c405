package nasa

import (
	"encoding/binary"
	"log"
)

// MessageSetKind is the wire shape selected by bits 9-10 of the message
// number.
type MessageSetKind byte

const (
	KindEnum         MessageSetKind = 0
	KindVariable     MessageSetKind = 1
	KindLongVariable MessageSetKind = 2
	KindStructure    MessageSetKind = 3
)

// messageSetKindMask isolates bits 9-10 of the 16-bit message number.
const messageSetKindMask = 0x0600

// KindOf derives the wire shape from a message number.
func KindOf(number uint16) MessageSetKind {
	return MessageSetKind((number & messageSetKindMask) >> 9)
}

// PayloadLen returns the number of payload bytes that follow the 2-byte
// message number for fixed-size kinds. Structure has no fixed size; its
// length is derived from the remaining frame bytes by the decoder.
func (k MessageSetKind) PayloadLen() (n int, fixed bool) {
	switch k {
	case KindEnum:
		return 1, true
	case KindVariable:
		return 2, true
	case KindLongVariable:
		return 4, true
	default:
		return 0, false
	}
}

// MessageSet is one variable-length record in a packet's payload.
// Raw holds exactly the kind-appropriate payload bytes, preserved
// verbatim; Uint8/Int16/Int32/Bytes are kind-appropriate views over it.
type MessageSet struct {
	Number uint16
	Kind   MessageSetKind
	Raw    []byte
}

// Uint8 returns the unsigned 8-bit value for an Enum record. ok is
// false, with the mismatch logged and 0 returned, if the kind doesn't
// match. None of the accessors panic.
func (m MessageSet) Uint8() (v uint8, ok bool) {
	if m.Kind != KindEnum || len(m.Raw) < 1 {
		log.Printf("messageset 0x%04x: Uint8() called on %v record", m.Number, m.Kind)
		return 0, false
	}
	return m.Raw[0], true
}

// Int16 returns the signed, big-endian, two's-complement value for a
// Variable record.
func (m MessageSet) Int16() (v int16, ok bool) {
	if m.Kind != KindVariable || len(m.Raw) < 2 {
		log.Printf("messageset 0x%04x: Int16() called on %v record", m.Number, m.Kind)
		return 0, false
	}
	return int16(binary.BigEndian.Uint16(m.Raw)), true
}

// Int32 returns the signed, big-endian, two's-complement value for a
// LongVariable record.
func (m MessageSet) Int32() (v int32, ok bool) {
	if m.Kind != KindLongVariable || len(m.Raw) < 4 {
		log.Printf("messageset 0x%04x: Int32() called on %v record", m.Number, m.Kind)
		return 0, false
	}
	return int32(binary.BigEndian.Uint32(m.Raw)), true
}

// Bytes returns the opaque payload of a Structure record.
func (m MessageSet) Bytes() ([]byte, bool) {
	if m.Kind != KindStructure {
		log.Printf("messageset 0x%04x: Bytes() called on %v record", m.Number, m.Kind)
		return nil, false
	}
	return m.Raw, true
}

// WireLen returns the total on-wire size of the record: 2 (message
// number) plus the payload.
func (m MessageSet) WireLen() int {
	return 2 + len(m.Raw)
}

// Encode re-serializes the record to its original wire bytes.
func (m MessageSet) Encode() []byte {
	out := make([]byte, 2, m.WireLen())
	binary.BigEndian.PutUint16(out, m.Number)
	return append(out, m.Raw...)
}

func (k MessageSetKind) String() string {
	switch k {
	case KindEnum:
		return "Enum"
	case KindVariable:
		return "Variable"
	case KindLongVariable:
		return "LongVariable"
	case KindStructure:
		return "Structure"
	default:
		return "Unknown"
	}
}
