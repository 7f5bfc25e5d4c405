package nasa

import (
	"fmt"
	"strconv"
	"strings"
)

// knownMessageNumbers maps symbolic NASA message numbers to names, used
// for the observational "readable" rendering and the MessageName lookup.
// Decoding never depends on this table: an unknown number still decodes
// successfully, its name renders as "UNKNOWN" and its readable value as
// the plain number. Read-only, built once, never mutated.
var knownMessageNumbers = map[uint16]string{
	0x4000: "power",
	0x4001: "operation_mode",
	0x4002: "indoor_temp",
	0x4006: "fan_mode",
	0x4007: "fan_mode_ac",
	0x4201: "current_indoor_temp",
	0x4203: "target_temp",
}

var operationModes = []string{"Auto", "Cool", "Dry", "Fan", "Heat"}
var fanModes = []string{"Auto", "Low", "Mid", "High", "Turbo"}

// messageName returns the symbolic name for a known message number, or
// "UNKNOWN" otherwise.
func messageName(number uint16) string {
	if name, ok := knownMessageNumbers[number]; ok {
		return name
	}
	return "UNKNOWN"
}

// MessageName exposes the symbolic name lookup for callers outside this
// package (export records, push envelopes) that need the same name used
// internally by Readable.
func MessageName(number uint16) string {
	return messageName(number)
}

// Readable renders the observational, human-facing value of a
// MessageSet. It never errs: callers needing the exact numeric value
// must use Uint8/Int16/Int32/Bytes instead.
func Readable(m MessageSet) string {
	name := messageName(m.Number)
	lower := strings.ToLower(name)

	signedValue := func() (int32, bool) {
		switch m.Kind {
		case KindVariable:
			v, ok := m.Int16()
			return int32(v), ok
		case KindLongVariable:
			v, ok := m.Int32()
			return v, ok
		default:
			return 0, false
		}
	}

	switch {
	case strings.Contains(lower, "temp"):
		if v, ok := signedValue(); ok {
			return fmt.Sprintf("%.1f°C", float64(v)/10.0)
		}
	case strings.Contains(lower, "power"):
		if v, ok := m.Uint8(); ok {
			if v != 0 {
				return "ON"
			}
			return "OFF"
		}
		if v, ok := signedValue(); ok {
			if v != 0 {
				return "ON"
			}
			return "OFF"
		}
	}

	if m.Number == 0x4001 {
		if v, ok := m.Uint8(); ok {
			return indexedName(operationModes, int(v))
		}
	}
	if m.Number == 0x4006 || m.Number == 0x4007 {
		if v, ok := m.Uint8(); ok {
			return indexedName(fanModes, int(v))
		}
	}

	switch m.Kind {
	case KindEnum:
		if v, ok := m.Uint8(); ok {
			return strconv.Itoa(int(v))
		}
	case KindVariable:
		if v, ok := m.Int16(); ok {
			return strconv.Itoa(int(v))
		}
	case KindLongVariable:
		if v, ok := m.Int32(); ok {
			return strconv.Itoa(int(v))
		}
	case KindStructure:
		if b, ok := m.Bytes(); ok {
			return fmt.Sprintf("%x", b)
		}
	}
	return "0"
}

// indexedName looks up idx in table, returning "Unknown(<idx>)" when out
// of range.
func indexedName(table []string, idx int) string {
	if idx < 0 || idx >= len(table) {
		return fmt.Sprintf("Unknown(%d)", idx)
	}
	return table[idx]
}
