package beast

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// maxBuffered bounds the bytes kept while waiting for a frame to complete
const maxBuffered = 4096

// Decoder splits a Beast byte stream into messages. Input may arrive in
// arbitrary chunks; partial frames are kept until the next call.
type Decoder struct {
	logger *logrus.Logger
	buffer []byte
}

// NewDecoder creates a new Beast decoder
func NewDecoder(logger *logrus.Logger) *Decoder {
	return &Decoder{
		logger: logger,
		buffer: make([]byte, 0, maxBuffered),
	}
}

// Decode appends data to the stream and returns every complete message
func (d *Decoder) Decode(data []byte) ([]*Message, error) {
	d.buffer = append(d.buffer, data...)

	var messages []*Message

	for {
		// Resync on the first unescaped sync byte
		start := -1
		for i := 0; i < len(d.buffer); i++ {
			if d.buffer[i] != SyncByte {
				continue
			}
			if i+1 < len(d.buffer) && d.buffer[i+1] == SyncByte {
				i++
				continue
			}
			start = i
			break
		}

		if start == -1 {
			d.buffer = d.buffer[:0]
			break
		}
		d.buffer = d.buffer[start:]

		if len(d.buffer) < 2 {
			break
		}

		messageType := d.buffer[1]
		dataLen := payloadLength(messageType)
		if dataLen == 0 {
			d.logger.WithFields(logrus.Fields{
				"message_type": fmt.Sprintf("0x%02x", messageType),
			}).Debug("Unknown message type, skipping")
			d.buffer = d.buffer[1:]
			continue
		}

		body, consumed, ok := unescape(d.buffer[2:], 6+1+dataLen)
		if !ok {
			break
		}
		if consumed < 0 {
			// A lone sync byte inside the body starts a new frame
			d.logger.Debug("Truncated beast frame, resyncing")
			d.buffer = d.buffer[1:]
			continue
		}

		var ts uint64
		for i := 0; i < 6; i++ {
			ts = ts<<8 | uint64(body[i])
		}

		msg := &Message{
			MessageType: messageType,
			Timestamp:   ts,
			Signal:      body[6],
			Data:        body[7:],
		}
		messages = append(messages, msg)

		d.logger.WithFields(logrus.Fields{
			"message_type": fmt.Sprintf("0x%02x", messageType),
			"df":           msg.GetDF(),
			"icao":         fmt.Sprintf("%06X", msg.GetICAO()),
		}).Debug("Decoded beast frame")

		d.buffer = d.buffer[2+consumed:]
	}

	// Keep buffer size reasonable
	if len(d.buffer) > maxBuffered {
		d.buffer = d.buffer[:0]
	}

	return messages, nil
}

// unescape reads n logical bytes from src. It reports ok=false when src
// ends first, and consumed=-1 when an unescaped sync byte interrupts.
func unescape(src []byte, n int) (out []byte, consumed int, ok bool) {
	out = make([]byte, 0, n)
	i := 0
	for len(out) < n {
		if i >= len(src) {
			return nil, 0, false
		}
		b := src[i]
		if b == SyncByte {
			if i+1 >= len(src) {
				return nil, 0, false
			}
			if src[i+1] != SyncByte {
				return nil, -1, true
			}
			i++
		}
		out = append(out, b)
		i++
	}
	return out, i, true
}
