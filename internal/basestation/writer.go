// Package basestation writes position messages and resolved fixes as
// SBS (BaseStation) CSV lines.
package basestation

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"sky1090/internal/adsb"
)

// BaseStation message types
const (
	BaseStationMSG = "MSG" // Transmission
)

// BaseStation transmission types
const (
	TransmissionES_SURFACE  = 2 // Extended Squitter Surface Position
	TransmissionES_AIRBORNE = 3 // Extended Squitter Airborne Position
)

// defaultSession is written when an event carries no session id
const defaultSession = "1"

// Message is one SBS transmission line
type Message struct {
	MessageType      string
	TransmissionType int
	SessionID        string
	AircraftID       int
	HexIdent         string
	FlightID         int
	DateGenerated    time.Time
	TimeGenerated    time.Time
	DateLogged       time.Time
	TimeLogged       time.Time
	Callsign         string
	Altitude         string
	GroundSpeed      string
	Track            string
	Latitude         string
	Longitude        string
	VerticalRate     string
	Squawk           string
	Alert            string
	Emergency        string
	SPI              string
	IsOnGround       string
}

// aircraftState is what the writer remembers between lines of one aircraft
type aircraftState struct {
	id       int
	altitude string
	surface  bool
}

// Writer formats adsb events as SBS lines. Messages without a resolved
// position still produce a line carrying the altitude.
type Writer struct {
	out      io.Writer
	logger   *logrus.Logger
	now      func() time.Time
	mu       sync.Mutex
	aircraft map[string]*aircraftState
	nextID   int
	lines    uint64
}

// NewWriter creates a BaseStation writer. If out is also an io.Closer it
// is closed by Close.
func NewWriter(out io.Writer, logger *logrus.Logger) *Writer {
	return &Writer{
		out:      out,
		logger:   logger,
		now:      time.Now,
		aircraft: make(map[string]*aircraftState),
		nextID:   1,
	}
}

// WriteMessage writes a line for a decoded position message. Frames that
// carry no CPR position are skipped.
func (w *Writer) WriteMessage(msg *adsb.Message) error {
	if msg == nil || msg.Frame == nil {
		return errors.New("message cannot be nil")
	}
	if msg.Frame.Position == nil {
		return nil
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	icao := msg.Frame.ICAOHex()
	state := w.stateLocked(icao)
	state.surface = msg.Frame.Position.Kind == adsb.CPRSurface
	if msg.Frame.HasAltitude {
		state.altitude = strconv.Itoa(msg.Frame.Altitude)
	}

	line := w.newMessage(icao, state, msg.SessionID, msg.Timestamp)
	line.Altitude = state.altitude

	return w.writeLocked(line)
}

// WriteFix writes a line with the resolved latitude and longitude.
// Failed fixes are skipped.
func (w *Writer) WriteFix(fix *adsb.PositionFix) error {
	if fix == nil {
		return errors.New("fix cannot be nil")
	}
	if !fix.Valid() {
		return nil
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	state := w.stateLocked(fix.ICAO)

	line := w.newMessage(fix.ICAO, state, fix.SessionID, fix.Timestamp)
	line.Altitude = state.altitude
	line.Latitude = fmt.Sprintf("%.6f", fix.Position.Latitude)
	line.Longitude = fmt.Sprintf("%.6f", fix.Position.Longitude)

	return w.writeLocked(line)
}

func (w *Writer) stateLocked(icao string) *aircraftState {
	state, ok := w.aircraft[icao]
	if !ok {
		state = &aircraftState{id: w.nextID}
		w.aircraft[icao] = state
		w.nextID++
	}
	return state
}

func (w *Writer) newMessage(icao string, state *aircraftState, session string, generated time.Time) *Message {
	now := w.now()
	if generated.IsZero() {
		generated = now
	}
	if session == "" {
		session = defaultSession
	}

	msg := &Message{
		MessageType:      BaseStationMSG,
		TransmissionType: TransmissionES_AIRBORNE,
		SessionID:        session,
		AircraftID:       state.id,
		HexIdent:         icao,
		FlightID:         state.id,
		DateGenerated:    generated,
		TimeGenerated:    generated,
		DateLogged:       now,
		TimeLogged:       now,
		IsOnGround:       "0",
	}
	if state.surface {
		msg.TransmissionType = TransmissionES_SURFACE
		msg.IsOnGround = "-1"
	}

	return msg
}

func (w *Writer) writeLocked(msg *Message) error {
	if _, err := io.WriteString(w.out, FormatCSV(msg)+"\n"); err != nil {
		return fmt.Errorf("failed to write to log: %w", err)
	}
	w.lines++
	return nil
}

// Lines returns the number of lines written
func (w *Writer) Lines() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lines
}

// Close closes the underlying output if it can be closed
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.logger.WithFields(logrus.Fields{
		"lines":    w.lines,
		"aircraft": len(w.aircraft),
	}).Info("Closing BaseStation writer")

	if closer, ok := w.out.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

// FormatCSV formats a BaseStation message as CSV
func FormatCSV(msg *Message) string {
	fields := []string{
		msg.MessageType,
		strconv.Itoa(msg.TransmissionType),
		msg.SessionID,
		strconv.Itoa(msg.AircraftID),
		msg.HexIdent,
		strconv.Itoa(msg.FlightID),
		msg.DateGenerated.Format("2006/01/02"),
		msg.TimeGenerated.Format("15:04:05.000"),
		msg.DateLogged.Format("2006/01/02"),
		msg.TimeLogged.Format("15:04:05.000"),
		msg.Callsign,
		msg.Altitude,
		msg.GroundSpeed,
		msg.Track,
		msg.Latitude,
		msg.Longitude,
		msg.VerticalRate,
		msg.Squawk,
		msg.Alert,
		msg.Emergency,
		msg.SPI,
		msg.IsOnGround,
	}

	return strings.Join(fields, ",")
}
