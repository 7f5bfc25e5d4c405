package nasa

import "testing"

func TestSignatureIgnoresValueAndTimestamp(t *testing.T) {
	base := Packet{
		Source:      Address{Class: ClassIndoor},
		Destination: Address{Class: ClassOutdoor},
		Command:     Command{DataType: DataTypeNotification},
		Messages: []MessageSet{
			{Number: 0x4000, Kind: KindEnum, Raw: []byte{0x01}},
			{Number: 0x4201, Kind: KindVariable, Raw: []byte{0x00, 0xDC}},
		},
	}
	// Same ids, different values.
	other := base
	other.Messages = []MessageSet{
		{Number: 0x4000, Kind: KindEnum, Raw: []byte{0x00}},
		{Number: 0x4201, Kind: KindVariable, Raw: []byte{0xFF, 0x00}},
	}

	if base.Signature() != other.Signature() {
		t.Fatalf("signatures differ for packets with only differing message values:\n%s\n%s", base.Signature(), other.Signature())
	}
}

func TestSignatureDiffersOnMessageIDs(t *testing.T) {
	a := Packet{
		Source:      Address{Class: ClassIndoor},
		Destination: Address{Class: ClassOutdoor},
		Command:     Command{DataType: DataTypeNotification},
		Messages:    []MessageSet{{Number: 0x4000, Kind: KindEnum, Raw: []byte{0x01}}},
	}
	b := a
	b.Messages = []MessageSet{{Number: 0x4001, Kind: KindEnum, Raw: []byte{0x01}}}

	if a.Signature() == b.Signature() {
		t.Fatalf("signatures should differ when message ids differ: %s", a.Signature())
	}
}

func TestSignatureFormat(t *testing.T) {
	p := Packet{
		Source:      Address{Class: ClassIndoor},
		Destination: Address{Class: ClassOutdoor},
		Command:     Command{DataType: DataTypeRead},
		Messages:    []MessageSet{{Number: 0x4000}, {Number: 0x4201}},
	}
	want := "20.00.00->10.00.00:Read:[4000,4201]"
	if got := p.Signature(); got != want {
		t.Fatalf("Signature() = %q, want %q", got, want)
	}
}
