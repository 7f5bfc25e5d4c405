package capture

import (
	"fmt"
	"os"
	"time"

	"github.com/fxamacker/cbor/v2"

	"github.com/Aranyalma2/samsung-nasa-sniffer/internal/analyser"
	"github.com/Aranyalma2/samsung-nasa-sniffer/internal/decoder"
	"github.com/Aranyalma2/samsung-nasa-sniffer/internal/nasa"
)

// Checkpoint is a compact, best-effort local snapshot of the analyser's
// group table, used to warm-start group statistics after a restart.
// Persistence is never guaranteed: a missing or unreadable checkpoint
// is logged and skipped by the caller, never fatal.
type Checkpoint struct {
	Total  uint64            `cbor:"total"`
	Groups []groupCheckpoint `cbor:"groups"`
}

type groupCheckpoint struct {
	Signature string `cbor:"sig"`
	Count     uint64 `cbor:"n"`
	FirstSeen int64  `cbor:"fs"` // unix nanos
	LastSeen  int64  `cbor:"ls"`
	Example   []byte `cbor:"ex"` // example packet's raw frame
}

// SaveCheckpoint snapshots an analyser's current groups to path.
func SaveCheckpoint(path string, a *analyser.Analyser) error {
	groups := a.Snapshot()
	cp := Checkpoint{Groups: make([]groupCheckpoint, len(groups))}
	for i, g := range groups {
		cp.Total += g.Count
		cp.Groups[i] = groupCheckpoint{
			Signature: g.Signature,
			Count:     g.Count,
			FirstSeen: g.FirstSeen.UnixNano(),
			LastSeen:  g.LastSeen.UnixNano(),
			Example:   g.Example.RawFrame,
		}
	}
	data, err := cbor.Marshal(cp)
	if err != nil {
		return fmt.Errorf("capture: checkpoint encode: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("capture: checkpoint write: %w", err)
	}
	return nil
}

// RestoreCheckpoint loads path and seeds a into it. Missing files and
// cbor decode errors are reported to the caller as a plain error rather
// than panicking; callers are expected to log and continue rather than
// treat this as fatal. A group whose example frame no longer decodes is
// still seeded, with a zero Packet as its example and no error.
func RestoreCheckpoint(path string, a *analyser.Analyser) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("capture: checkpoint read: %w", err)
	}

	var cp Checkpoint
	if err := cbor.Unmarshal(data, &cp); err != nil {
		return fmt.Errorf("capture: checkpoint decode: %w", err)
	}

	for _, g := range cp.Groups {
		example := nasa.Packet{}
		if len(g.Example) > 0 {
			if p, err := decoder.Decode(g.Example); err == nil {
				example = *p
			}
		}
		a.Seed(g.Signature, g.Count, time.Unix(0, g.FirstSeen), time.Unix(0, g.LastSeen), example)
	}
	return nil
}
