// Package beast encodes decoded Mode S frames in the Beast binary format
// and reads such streams back.
package beast

// Beast mode message types
const (
	SyncByte   = 0x1A // Beast mode sync byte
	ModeAC     = 0x31 // Mode A/C
	ModeS      = 0x32 // Mode S Short (56 bits)
	ModeSLong  = 0x33 // Mode S Long (112 bits)
	ModeStatus = 0x34 // Status
)

// TimestampHz is the rate of the 48 bit Beast timestamp counter
const TimestampHz = 12000000

const timestampMask = 1<<48 - 1

// Message is one Beast frame, unescaped
type Message struct {
	MessageType byte
	Timestamp   uint64 // 12 MHz ticks, 48 bits
	Signal      byte
	Data        []byte
}

// GetICAO extracts ICAO address from Mode S message
func (msg *Message) GetICAO() uint32 {
	if msg.MessageType != ModeS && msg.MessageType != ModeSLong {
		return 0
	}

	if len(msg.Data) < 4 {
		return 0
	}

	return (uint32(msg.Data[1]) << 16) | (uint32(msg.Data[2]) << 8) | uint32(msg.Data[3])
}

// GetDF extracts Downlink Format from Mode S message
func (msg *Message) GetDF() byte {
	if msg.MessageType != ModeS && msg.MessageType != ModeSLong {
		return 0
	}

	if len(msg.Data) < 1 {
		return 0
	}

	return (msg.Data[0] >> 3) & 0x1F
}

// IsValid reports whether the payload length matches the message type
func (msg *Message) IsValid() bool {
	n := payloadLength(msg.MessageType)
	return n > 0 && len(msg.Data) == n
}

// payloadLength returns the data length for a message type, 0 if unknown
func payloadLength(messageType byte) int {
	switch messageType {
	case ModeAC, ModeStatus:
		return 2
	case ModeS:
		return 7
	case ModeSLong:
		return 14
	default:
		return 0
	}
}
