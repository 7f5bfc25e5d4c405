package nasa

import (
	"fmt"
	"strings"
	"time"
)

// TimestampLayout is the ISO-8601-with-milliseconds, space-separated
// format used to stamp every decoded packet.
const TimestampLayout = "2006-01-02 15:04:05.000"

// Packet is one fully-decoded NASA frame. RawFrame is the complete
// on-wire frame, including the 0x32/0x34 delimiters; it is copied on
// construction and never aliases caller-owned memory, so a Packet is
// safe to retain and share read-only once built.
type Packet struct {
	Source      Address
	Destination Address
	Command     Command
	Messages    []MessageSet
	RawFrame    []byte
	Timestamp   time.Time
}

// FormatTimestamp renders Timestamp per TimestampLayout.
func (p Packet) FormatTimestamp() string {
	return p.Timestamp.Format(TimestampLayout)
}

// Signature is the canonical grouping key: a pure function of source,
// destination, data type and the ordered sequence of message numbers.
// Two packets differing only in message values or timestamps share a
// signature.
func (p Packet) Signature() string {
	var ids strings.Builder
	for i, m := range p.Messages {
		if i > 0 {
			ids.WriteByte(',')
		}
		fmt.Fprintf(&ids, "%04x", m.Number)
	}
	return fmt.Sprintf("%s->%s:%s:[%s]", p.Source, p.Destination, p.Command.DataType, ids.String())
}
