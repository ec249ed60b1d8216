package app

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"sky1090/internal/adsb"
)

// Sink receives every decoded message and every resolution attempt.
// Implementations must be safe for concurrent use.
type Sink interface {
	WriteMessage(msg *adsb.Message) error
	WriteFix(fix *adsb.PositionFix) error
	Close() error
}

// FanOut forwards to several sinks. A failing sink does not stop the
// others; their errors are joined.
type FanOut []Sink

// WriteMessage forwards msg to every sink
func (f FanOut) WriteMessage(msg *adsb.Message) error {
	var errs []error
	for _, sink := range f {
		if err := sink.WriteMessage(msg); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// WriteFix forwards fix to every sink
func (f FanOut) WriteFix(fix *adsb.PositionFix) error {
	var errs []error
	for _, sink := range f {
		if err := sink.WriteFix(fix); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close closes every sink
func (f FanOut) Close() error {
	var errs []error
	for _, sink := range f {
		if err := sink.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// LogSink reports position traffic as structured log lines
type LogSink struct {
	logger *logrus.Logger
}

// NewLogSink creates a sink writing to logger
func NewLogSink(logger *logrus.Logger) *LogSink {
	return &LogSink{logger: logger}
}

// WriteMessage logs the CPR fields stored for a position frame
func (s *LogSink) WriteMessage(msg *adsb.Message) error {
	if msg == nil || msg.Frame == nil || msg.Frame.Position == nil {
		return nil
	}

	pos := msg.Frame.Position
	fields := logrus.Fields{
		"icao":    msg.Frame.ICAOHex(),
		"parity":  pos.Parity.String(),
		"kind":    pos.Kind.String(),
		"lat_cpr": pos.Lat,
		"lon_cpr": pos.Lon,
	}
	if msg.Frame.HasAltitude {
		fields["altitude"] = msg.Frame.Altitude
	}

	s.logger.WithFields(fields).Infof("Stored %s CPR", pos.Parity)
	return nil
}

// WriteFix logs a resolved position or the failure to resolve one
func (s *LogSink) WriteFix(fix *adsb.PositionFix) error {
	if fix == nil {
		return nil
	}

	if !fix.Valid() {
		s.logger.WithFields(logrus.Fields{
			"icao":   fix.ICAO,
			"parity": fix.Parity.String(),
		}).WithError(fix.Err).Warn("CPR decode failed")
		return nil
	}

	s.logger.WithFields(logrus.Fields{
		"icao":   fix.ICAO,
		"parity": fix.Parity.String(),
		"lat":    fmt.Sprintf("%.6f", fix.Position.Latitude),
		"lon":    fmt.Sprintf("%.6f", fix.Position.Longitude),
	}).Info("Position")
	return nil
}

// Close is a no-op
func (s *LogSink) Close() error {
	return nil
}
