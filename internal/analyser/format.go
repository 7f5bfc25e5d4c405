package analyser

import (
	"fmt"
	"strings"

	"github.com/Aranyalma2/samsung-nasa-sniffer/internal/nasa"
)

// maxTimestampsListed is the threshold beyond which a group's
// individual observation timestamps are summarized instead of listed.
const maxTimestampsListed = 10

// Report renders the full group table as a human-readable text block:
// groups sorted by count descending (ties by first-seen ascending),
// each with signature, count, first/last seen, the formatted example
// packet, and either all timestamps (count <= 10) or a "too many to
// list" line.
func (a *Analyser) Report() string {
	groups := a.Snapshot()

	var b strings.Builder
	stats := a.Stats()
	fmt.Fprintf(&b, "packets observed: %d, unique groups: %d\n", stats.Total, stats.UniqueGroups)

	for _, g := range groups {
		fmt.Fprintf(&b, "\n%s\n", g.Signature)
		fmt.Fprintf(&b, "  count: %d, first seen: %s, last seen: %s\n",
			g.Count, g.FirstSeen.Format(nasa.TimestampLayout), g.LastSeen.Format(nasa.TimestampLayout))
		fmt.Fprintf(&b, "  example: %s\n", formatPacket(g.Example))

		if g.Count <= maxTimestampsListed {
			for _, p := range g.All {
				fmt.Fprintf(&b, "    %s\n", p.FormatTimestamp())
			}
		} else {
			fmt.Fprintf(&b, "    (%d observations, too many to list)\n", g.Count)
		}
	}

	return b.String()
}

// formatPacket renders a single packet's addresses, command and
// readable message values on one line.
func formatPacket(p nasa.Packet) string {
	var msgs strings.Builder
	for i, m := range p.Messages {
		if i > 0 {
			msgs.WriteString(", ")
		}
		fmt.Fprintf(&msgs, "%04x=%s", m.Number, nasa.Readable(m))
	}
	return fmt.Sprintf("%s -> %s [%s/%s] {%s}", p.Source.Human(), p.Destination.Human(), p.Command.PacketType, p.Command.DataType, msgs.String())
}
