// Package publish sends decoded messages and position fixes to NATS
// JetStream as JSON events.
package publish

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"

	"sky1090/internal/adsb"
)

// DefaultSubject is the subject prefix used when none is configured
const DefaultSubject = "sky1090"

// Subject suffixes under the configured prefix
const (
	messagesSuffix = ".messages"
	fixesSuffix    = ".fixes"
)

// JetStream is the part of nats.JetStreamContext the publisher needs
type JetStream interface {
	Publish(subj string, data []byte, opts ...nats.PubOpt) (*nats.PubAck, error)
}

// MessageEvent is published for every decoded frame
type MessageEvent struct {
	ICAO        string    `json:"icao"`
	DF          uint8     `json:"df"`
	TypeCode    uint8     `json:"type_code"`
	Parity      string    `json:"parity,omitempty"`
	Kind        string    `json:"kind,omitempty"`
	CPRLat      uint32    `json:"cpr_lat,omitempty"`
	CPRLon      uint32    `json:"cpr_lon,omitempty"`
	Altitude    *int      `json:"altitude,omitempty"`
	Raw         string    `json:"raw"`
	SampleIndex uint64    `json:"sample_index"`
	Signal      uint16    `json:"signal"`
	Timestamp   time.Time `json:"timestamp"`
	SessionID   string    `json:"session_id"`
}

// FixEvent is published for every global decode attempt
type FixEvent struct {
	ICAO      string    `json:"icao"`
	Parity    string    `json:"parity"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	SessionID string    `json:"session_id"`
}

// Publisher is an output sink writing to JetStream subjects
type Publisher struct {
	conn     *nats.Conn
	js       JetStream
	logger   *logrus.Logger
	messages string
	fixes    string
}

// Connect dials NATS, makes sure a stream covers the subject prefix and
// returns a publisher on it.
func Connect(url, subject string, logger *logrus.Logger) (*Publisher, error) {
	if subject == "" {
		subject = DefaultSubject
	}

	nc, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to get JetStream context: %w", err)
	}

	_, err = js.AddStream(&nats.StreamConfig{
		Name:     streamName(subject),
		Subjects: []string{subject + ".>"},
		Storage:  nats.FileStorage,
		MaxAge:   24 * time.Hour,
	})
	if err != nil && !errors.Is(err, nats.ErrStreamNameAlreadyInUse) && !strings.Contains(err.Error(), "stream name already in use") {
		nc.Close()
		return nil, fmt.Errorf("failed to create stream: %w", err)
	}

	logger.WithFields(logrus.Fields{
		"url":     nc.ConnectedUrl(),
		"subject": subject,
	}).Info("Connected to NATS")

	p := NewPublisher(js, subject, logger)
	p.conn = nc
	return p, nil
}

// NewPublisher creates a publisher over an existing JetStream context
func NewPublisher(js JetStream, subject string, logger *logrus.Logger) *Publisher {
	if subject == "" {
		subject = DefaultSubject
	}

	return &Publisher{
		js:       js,
		logger:   logger,
		messages: subject + messagesSuffix,
		fixes:    subject + fixesSuffix,
	}
}

// streamName derives a JetStream stream name from a subject prefix
func streamName(subject string) string {
	return strings.ToUpper(strings.NewReplacer(".", "_", "*", "_", ">", "_").Replace(subject))
}

// MessagesSubject returns the subject decoded frames are published on
func (p *Publisher) MessagesSubject() string {
	return p.messages
}

// FixesSubject returns the subject position fixes are published on
func (p *Publisher) FixesSubject() string {
	return p.fixes
}

// NewMessageEvent converts a decoded message into its published form
func NewMessageEvent(msg *adsb.Message) *MessageEvent {
	event := &MessageEvent{
		ICAO:        msg.Frame.ICAOHex(),
		DF:          msg.Frame.DF,
		TypeCode:    msg.Frame.TypeCode,
		Raw:         strings.ToUpper(hex.EncodeToString(msg.Data[:])),
		SampleIndex: msg.SampleIndex,
		Signal:      msg.Signal,
		Timestamp:   msg.Timestamp,
		SessionID:   msg.SessionID,
	}

	if pos := msg.Frame.Position; pos != nil {
		event.Parity = pos.Parity.String()
		event.Kind = pos.Kind.String()
		event.CPRLat = pos.Lat
		event.CPRLon = pos.Lon
	}
	if msg.Frame.HasAltitude {
		altitude := msg.Frame.Altitude
		event.Altitude = &altitude
	}

	return event
}

// NewFixEvent converts a position fix into its published form
func NewFixEvent(fix *adsb.PositionFix) *FixEvent {
	event := &FixEvent{
		ICAO:      fix.ICAO,
		Parity:    fix.Parity.String(),
		Timestamp: fix.Timestamp,
		SessionID: fix.SessionID,
	}

	if fix.Valid() {
		event.Latitude = roundCoordinate(fix.Position.Latitude)
		event.Longitude = roundCoordinate(fix.Position.Longitude)
	} else {
		event.Error = fix.Err.Error()
	}

	return event
}

// roundCoordinate keeps 6 decimals, the precision of the SBS output
func roundCoordinate(deg float64) float64 {
	return math.Round(deg*1e6) / 1e6
}

// WriteMessage publishes a decoded frame
func (p *Publisher) WriteMessage(msg *adsb.Message) error {
	if msg == nil || msg.Frame == nil {
		return errors.New("message cannot be nil")
	}
	return p.publish(p.messages, NewMessageEvent(msg))
}

// WriteFix publishes a position fix, failed ones included
func (p *Publisher) WriteFix(fix *adsb.PositionFix) error {
	if fix == nil {
		return errors.New("fix cannot be nil")
	}
	return p.publish(p.fixes, NewFixEvent(fix))
}

func (p *Publisher) publish(subject string, event any) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if _, err := p.js.Publish(subject, data); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", subject, err)
	}

	return nil
}

// Close drains and closes the NATS connection
func (p *Publisher) Close() error {
	if p.conn == nil {
		return nil
	}

	p.logger.Info("Closing NATS publisher")

	if err := p.conn.Drain(); err != nil {
		p.conn.Close()
		return fmt.Errorf("failed to drain NATS connection: %w", err)
	}
	return nil
}
