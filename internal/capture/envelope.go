// Package capture implements the persisted JSON export envelope and the
// view-mode loader that replays it into a live session's history ring.
// The short JSON field codes are a fixed external contract consumed by
// the browser UI; readers must stay lenient about fields they do not
// recognize.
package capture

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/Aranyalma2/samsung-nasa-sniffer/internal/decoder"
	"github.com/Aranyalma2/samsung-nasa-sniffer/internal/nasa"
)

// EnvelopeVersion is the current export format version tag. Readers
// ignore unknown fields and tolerate a missing or older version:
// forward-compatible, not schema-enforcing.
const EnvelopeVersion = 1

// Envelope is the top-level persisted export.
type Envelope struct {
	Version    int            `json:"v"`
	ExportedAt time.Time      `json:"ts"`
	Count      int            `json:"count"`
	Packets    []PacketRecord `json:"p"`
}

// PacketRecord is one packet in the exported list.
type PacketRecord struct {
	Timestamp           string          `json:"t"`
	Source              string          `json:"s"`
	SourceReadable      string          `json:"sr"`
	Destination         string          `json:"d"`
	DestinationReadable string          `json:"dr"`
	PacketType          byte            `json:"pt"`
	PacketTypeName      string          `json:"ptn"`
	DataType            byte            `json:"dt"`
	DataTypeName        string          `json:"dtn"`
	PacketNumber        byte            `json:"pn"`
	ProtocolVersion     byte            `json:"pv"`
	RetryCount          byte            `json:"rc"`
	Messages            []MessageRecord `json:"m"`
	RawFrame            string          `json:"rd"`
	RawFrameHuman       string          `json:"rdh"`
}

// MessageRecord is one message-set record within a packet.
type MessageRecord struct {
	Number        uint16 `json:"mn"`
	NumberHex     string `json:"mnh"`
	Kind          byte   `json:"mt"`
	KindName      string `json:"mtn"`
	Value         int64  `json:"v"`
	ValueReadable string `json:"rv"`
	Name          string `json:"n"`
}

// ToRecord renders one decoded packet into its exported record form,
// used both by file export and the WebSocket push envelopes.
func ToRecord(p nasa.Packet) PacketRecord {
	messages := make([]MessageRecord, len(p.Messages))
	for i, m := range p.Messages {
		messages[i] = MessageRecord{
			Number:        m.Number,
			NumberHex:     fmt.Sprintf("%04x", m.Number),
			Kind:          byte(m.Kind),
			KindName:      m.Kind.String(),
			Value:         messageValue(m),
			ValueReadable: nasa.Readable(m),
			Name:          nasa.MessageName(m.Number),
		}
	}
	return PacketRecord{
		Timestamp:           p.FormatTimestamp(),
		Source:              p.Source.String(),
		SourceReadable:      p.Source.Human(),
		Destination:         p.Destination.String(),
		DestinationReadable: p.Destination.Human(),
		PacketType:          byte(p.Command.PacketType),
		PacketTypeName:      p.Command.PacketType.String(),
		DataType:            byte(p.Command.DataType),
		DataTypeName:        p.Command.DataType.String(),
		PacketNumber:        p.Command.PacketNumber,
		ProtocolVersion:     p.Command.ProtocolVersion,
		RetryCount:          p.Command.RetryCount,
		Messages:            messages,
		RawFrame:            hex.EncodeToString(p.RawFrame),
		RawFrameHuman:       humanHex(p.RawFrame),
	}
}

// ToRecords renders a slice of packets; nil-safe.
func ToRecords(packets []nasa.Packet) []PacketRecord {
	out := make([]PacketRecord, len(packets))
	for i, p := range packets {
		out[i] = ToRecord(p)
	}
	return out
}

func messageValue(m nasa.MessageSet) int64 {
	switch m.Kind {
	case nasa.KindEnum:
		v, _ := m.Uint8()
		return int64(v)
	case nasa.KindVariable:
		v, _ := m.Int16()
		return int64(v)
	case nasa.KindLongVariable:
		v, _ := m.Int32()
		return int64(v)
	default:
		return 0
	}
}

func humanHex(b []byte) string {
	out := make([]byte, 0, len(b)*3)
	for i, v := range b {
		if i > 0 {
			out = append(out, ' ')
		}
		out = append(out, []byte(fmt.Sprintf("%02X", v))...)
	}
	return string(out)
}

// Export writes packets to w as a single JSON Envelope.
func Export(w io.Writer, packets []nasa.Packet, exportedAt time.Time) error {
	env := Envelope{
		Version:    EnvelopeVersion,
		ExportedAt: exportedAt,
		Count:      len(packets),
		Packets:    ToRecords(packets),
	}
	enc := json.NewEncoder(w)
	return enc.Encode(env)
}

// ExportFile writes packets to the given path.
func ExportFile(path string, packets []nasa.Packet, exportedAt time.Time) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("capture: export: %w", err)
	}
	defer f.Close()
	return Export(f, packets, exportedAt)
}

// LoadView reads a persisted JSON envelope and reconstructs the original
// decoded packets by re-decoding each record's raw frame bytes, so every
// invariant the live pipeline enforces also holds for view-mode history.
// Unknown JSON fields are ignored by encoding/json's default struct
// decode, and a missing or zero version tag is treated as the current
// version.
func LoadView(path string) ([]nasa.Packet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("capture: load view: %w", err)
	}

	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("capture: load view: %w", err)
	}

	packets := make([]nasa.Packet, 0, len(env.Packets))
	for i, rec := range env.Packets {
		raw, err := hex.DecodeString(rec.RawFrame)
		if err != nil {
			return nil, fmt.Errorf("capture: load view: record %d: %w", i, err)
		}
		p, err := decoder.Decode(raw)
		if err != nil {
			return nil, fmt.Errorf("capture: load view: record %d: %w", i, err)
		}
		// Carry the capture-time timestamp through the replay; a record
		// with a missing or malformed timestamp keeps the decode stamp.
		if ts, err := time.ParseInLocation(nasa.TimestampLayout, rec.Timestamp, time.Local); err == nil {
			p.Timestamp = ts
		}
		packets = append(packets, *p)
	}
	return packets, nil
}
