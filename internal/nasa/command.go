package nasa

import "fmt"

// PacketType is the high nibble of command byte 1.
type PacketType byte

const (
	PacketTypeStandBy   PacketType = 0x0
	PacketTypeNormal    PacketType = 0x1
	PacketTypeGathering PacketType = 0x2
	PacketTypeInstall   PacketType = 0x3
	PacketTypeDownload  PacketType = 0x4
)

var packetTypeNames = map[PacketType]string{
	PacketTypeStandBy:   "StandBy",
	PacketTypeNormal:    "Normal",
	PacketTypeGathering: "Gathering",
	PacketTypeInstall:   "Install",
	PacketTypeDownload:  "Download",
}

// String returns the enumerant spelling, or a numeric fallback for a
// value outside the known packet types.
func (t PacketType) String() string {
	if name, ok := packetTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("PacketType(0x%X)", byte(t))
}

// DataType is the low nibble of command byte 1.
type DataType byte

const (
	DataTypeUndefined    DataType = 0x0
	DataTypeRead         DataType = 0x1
	DataTypeWrite        DataType = 0x2
	DataTypeRequest      DataType = 0x3
	DataTypeNotification DataType = 0x4
	DataTypeResponse     DataType = 0x5
	DataTypeAck          DataType = 0x6
	DataTypeNack         DataType = 0x7
)

var dataTypeNames = map[DataType]string{
	DataTypeUndefined:    "Undefined",
	DataTypeRead:         "Read",
	DataTypeWrite:        "Write",
	DataTypeRequest:      "Request",
	DataTypeNotification: "Notification",
	DataTypeResponse:     "Response",
	DataTypeAck:          "Ack",
	DataTypeNack:         "Nack",
}

// String returns the enumerant spelling, or a numeric fallback for a
// value outside the known data types.
func (t DataType) String() string {
	if name, ok := dataTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("DataType(0x%X)", byte(t))
}

// Command is the bit-packed 3-byte command header.
type Command struct {
	PacketInformation bool // byte 0 bit 7; parsed but not further interpreted
	ProtocolVersion   byte // byte 0 bits 6-5, range 0-3
	RetryCount        byte // byte 0 bits 4-3, range 0-3
	PacketType        PacketType
	DataType          DataType
	PacketNumber      byte
}

// DecodeCommand reads a 3-byte command header from b.
func DecodeCommand(b []byte) Command {
	b0, b1, b2 := b[0], b[1], b[2]
	return Command{
		PacketInformation: b0&0x80 != 0,
		ProtocolVersion:   (b0 >> 5) & 0x03,
		RetryCount:        (b0 >> 3) & 0x03,
		PacketType:        PacketType(b1 >> 4),
		DataType:          DataType(b1 & 0x0F),
		PacketNumber:      b2,
	}
}

// Encode writes the 3-byte wire form of the command header.
func (c Command) Encode() [3]byte {
	var b0 byte
	if c.PacketInformation {
		b0 |= 0x80
	}
	b0 |= (c.ProtocolVersion & 0x03) << 5
	b0 |= (c.RetryCount & 0x03) << 3
	b1 := (byte(c.PacketType) << 4) | (byte(c.DataType) & 0x0F)
	return [3]byte{b0, b1, c.PacketNumber}
}
