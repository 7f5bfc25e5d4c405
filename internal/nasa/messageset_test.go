package nasa

import "testing"

func TestKindOf(t *testing.T) {
	cases := []struct {
		number uint16
		want   MessageSetKind
	}{
		{0x4000, KindEnum},
		{0x4201, KindVariable},
		{0x8413, KindLongVariable},
		{0x4601 | 0x0600, KindStructure},
	}
	for _, c := range cases {
		if got := KindOf(c.number); got != c.want {
			t.Errorf("KindOf(0x%04x) = %v, want %v", c.number, got, c.want)
		}
	}
}

func TestMessageSetAccessorsMismatchedKind(t *testing.T) {
	m := MessageSet{Number: 0x4000, Kind: KindEnum, Raw: []byte{0x01}}
	if _, ok := m.Int16(); ok {
		t.Errorf("Int16() on an Enum record should fail")
	}
	if v, ok := m.Uint8(); !ok || v != 0x01 {
		t.Errorf("Uint8() = (%d, %v), want (1, true)", v, ok)
	}
}

func TestMessageSetEncodeRoundTrip(t *testing.T) {
	m := MessageSet{Number: 0x4201, Kind: KindVariable, Raw: []byte{0x00, 0xDC}}
	wire := m.Encode()
	if len(wire) != m.WireLen() {
		t.Fatalf("Encode() len = %d, want %d", len(wire), m.WireLen())
	}
	if wire[0] != 0x42 || wire[1] != 0x01 || wire[2] != 0x00 || wire[3] != 0xDC {
		t.Fatalf("Encode() = % X, want 42 01 00 DC", wire)
	}
}

func TestMessageSetInt16Signed(t *testing.T) {
	m := MessageSet{Number: 0x4201, Kind: KindVariable, Raw: []byte{0xFF, 0xF6}} // -10
	v, ok := m.Int16()
	if !ok || v != -10 {
		t.Fatalf("Int16() = (%d, %v), want (-10, true)", v, ok)
	}
}
