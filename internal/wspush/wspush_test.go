package wspush

import (
	"encoding/json"
	"testing"

	"github.com/Aranyalma2/samsung-nasa-sniffer/internal/nasa"
	"github.com/Aranyalma2/samsung-nasa-sniffer/internal/session"
)

func TestEnvelopeShapes(t *testing.T) {
	p := nasa.Packet{
		Source:      nasa.Address{Class: nasa.ClassIndoor},
		Destination: nasa.Address{Class: nasa.ClassOutdoor},
		RawFrame:    []byte{0x32, 0x34},
	}

	cases := []struct {
		name     string
		event    session.Event
		wantType string
	}{
		{"init", session.Event{Kind: session.EventInit, ViewMode: true, Packets: []nasa.Packet{p}}, "init"},
		{"packet", session.Event{Kind: session.EventPacket, Packet: p}, "packet"},
		{"history", session.Event{Kind: session.EventHistory, Packets: []nasa.Packet{p}}, "history"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			env, ok := toEnvelope(tc.event)
			if !ok {
				t.Fatalf("toEnvelope rejected a %s event", tc.name)
			}
			data, err := json.Marshal(env)
			if err != nil {
				t.Fatalf("Marshal = %v", err)
			}
			var fields map[string]any
			if err := json.Unmarshal(data, &fields); err != nil {
				t.Fatalf("Unmarshal = %v", err)
			}
			if fields["type"] != tc.wantType {
				t.Fatalf("type = %v, want %q", fields["type"], tc.wantType)
			}
		})
	}

	if _, ok := toEnvelope(session.Event{Kind: session.EventKind(99)}); ok {
		t.Fatalf("toEnvelope accepted an unknown event kind")
	}
}

func TestInitEnvelopeCarriesViewModeFlag(t *testing.T) {
	env, _ := toEnvelope(session.Event{Kind: session.EventInit, ViewMode: true})
	data, err := json.Marshal(env)
	if err != nil {
		t.Fatalf("Marshal = %v", err)
	}
	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		t.Fatalf("Unmarshal = %v", err)
	}
	if fields["viewMode"] != true {
		t.Fatalf("viewMode = %v, want true", fields["viewMode"])
	}
}
