package beast

import (
	"fmt"
)

// Encode returns the wire form of msg: sync byte, type, then timestamp,
// signal and data with every 0x1A byte doubled.
func Encode(msg *Message) ([]byte, error) {
	if !msg.IsValid() {
		return nil, fmt.Errorf("invalid beast message: type 0x%02x with %d data bytes", msg.MessageType, len(msg.Data))
	}

	// Worst case every escaped byte doubles
	out := make([]byte, 0, 2+2*(6+1+len(msg.Data)))
	out = append(out, SyncByte, msg.MessageType)

	ts := msg.Timestamp & timestampMask
	for shift := 40; shift >= 0; shift -= 8 {
		out = appendEscaped(out, byte(ts>>uint(shift)))
	}
	out = appendEscaped(out, msg.Signal)
	for _, b := range msg.Data {
		out = appendEscaped(out, b)
	}

	return out, nil
}

func appendEscaped(out []byte, b byte) []byte {
	if b == SyncByte {
		return append(out, SyncByte, SyncByte)
	}
	return append(out, b)
}

// SignalByte scales a peak magnitude into the single Beast signal byte
func SignalByte(peak uint16) byte {
	return byte(peak >> 8)
}

// TicksPerSample returns the number of 12 MHz timestamp ticks per sample
// at the given sample rate.
func TicksPerSample(sampleRate uint32) uint64 {
	if sampleRate == 0 {
		return 0
	}
	return TimestampHz / uint64(sampleRate)
}
