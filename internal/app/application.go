package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"sky1090/internal/acquire"
	"sky1090/internal/adsb"
	"sky1090/internal/basestation"
	"sky1090/internal/beast"
	"sky1090/internal/logging"
	"sky1090/internal/publish"
	"sky1090/internal/rtlsdr"
)

// Option configures an Application
type Option func(app *Application)

// WithSource replaces the acquisition source opened by Start
func WithSource(src acquire.Source) Option {
	return func(app *Application) {
		app.source = src
	}
}

// WithSinks replaces the sinks built from the configuration
func WithSinks(sinks ...Sink) Option {
	return func(app *Application) {
		app.sinks = FanOut(sinks)
	}
}

// WithLogger sets the application logger
func WithLogger(logger *logrus.Logger) Option {
	return func(app *Application) {
		app.logger = logger
	}
}

// buffer is one received block of I/Q values and where it starts in the capture
type buffer struct {
	seq     uint64
	samples []int16
	base    uint64
	at      time.Time
}

// Application represents the main application
type Application struct {
	config     Config
	logger     *logrus.Logger
	sessionID  string
	source     acquire.Source
	processor  *adsb.Processor
	decoder    *adsb.Decoder
	store      *adsb.AircraftStore
	resolver   *adsb.Resolver
	sinks      FanOut
	logRotator *logging.LogRotator
	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	closeOnce  sync.Once

	timeouts     atomic.Uint64
	packErrors   atomic.Uint64
	rejected     atomic.Uint64
	ignored      atomic.Uint64
	messages     atomic.Uint64
	fixes        atomic.Uint64
	failedFixes  atomic.Uint64
	sinkFailures atomic.Uint64
}

// NewApplication creates a new application instance. The decode pipeline
// is ready immediately; the source and sinks are set up by Start unless
// supplied as options.
func NewApplication(config Config, options ...Option) *Application {
	ctx, cancel := context.WithCancel(context.Background())

	logger := logrus.New()
	if config.Verbose {
		logger.SetLevel(logrus.DebugLevel)
	} else {
		logger.SetLevel(logrus.InfoLevel)
	}

	app := &Application{
		config:    config,
		logger:    logger,
		sessionID: uuid.NewString(),
		ctx:       ctx,
		cancel:    cancel,
	}

	for _, option := range options {
		option(app)
	}

	app.store = adsb.NewAircraftStore(config.AircraftTTL)
	app.resolver = adsb.NewResolver(app.store,
		adsb.WithMaxPairAge(config.MaxPairAge),
		adsb.WithLogger(app.logger),
	)
	app.processor = adsb.NewProcessor(app.logger)
	app.decoder = adsb.NewDecoder(config.RequireCRC)

	return app
}

// SessionID returns the identifier stamped on every event of this run
func (app *Application) SessionID() string {
	return app.sessionID
}

// Logger returns the application logger
func (app *Application) Logger() *logrus.Logger {
	return app.logger
}

// Store returns the aircraft store used by the resolver
func (app *Application) Store() *adsb.AircraftStore {
	return app.store
}

// Start opens the configured source and sinks, then runs until the source
// is exhausted, the cycle limit is reached or a shutdown signal arrives.
func (app *Application) Start() error {
	app.logger.WithFields(logrus.Fields{
		"version":    Version,
		"build_time": BuildTime,
		"git_commit": GitCommit,
		"session":    app.sessionID,
	}).Info("Starting sky1090")

	if err := app.config.Validate(); err != nil {
		app.cancel()
		return err
	}

	// Initialize components
	if err := app.initializeComponents(); err != nil {
		app.shutdown()
		return fmt.Errorf("failed to initialize components: %w", err)
	}

	// Setup signal handling
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case <-sigChan:
			app.logger.Info("Received shutdown signal")
			app.cancel()
		case <-app.ctx.Done():
		}
	}()

	if app.logRotator != nil {
		app.wg.Add(1)
		go func() {
			defer app.wg.Done()
			app.logRotator.Start(app.ctx)
		}()
	}

	err := app.Run(app.ctx)
	if err != nil {
		app.logger.WithError(err).Error("Application error")
	}

	app.shutdown()
	return err
}

// initializeComponents opens the source and builds the sinks that were not
// supplied as options
func (app *Application) initializeComponents() error {
	if app.source == nil {
		src, err := app.openSource()
		if err != nil {
			return err
		}
		app.source = src
	}

	err := acquire.ConfigureWithRetry(app.ctx, app.source, app.config.Settings(),
		app.config.ConfigureRetries, app.config.RetryDelay, app.logger)
	if err != nil {
		return fmt.Errorf("failed to configure source: %w", err)
	}

	if app.sinks == nil {
		// Keep whatever was opened so shutdown can close it
		sinks, err := app.buildSinks()
		app.sinks = sinks
		if err != nil {
			return err
		}
	}

	return nil
}

// openSource opens the capture file when one is configured, else the radio
func (app *Application) openSource() (acquire.Source, error) {
	if app.config.Input != "" {
		return acquire.OpenFile(app.config.Input, app.logger)
	}

	device, err := rtlsdr.Open(app.config.DeviceIndex, app.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize RTL-SDR: %w", err)
	}
	return device, nil
}

// buildSinks creates the log sink plus every output enabled in the configuration
func (app *Application) buildSinks() (FanOut, error) {
	sinks := FanOut{NewLogSink(app.logger)}

	if app.config.LogDir != "" {
		rotator, err := logging.NewLogRotator(logging.RotatorConfig{
			Dir:    app.config.LogDir,
			UseUTC: app.config.LogRotateUTC,
		}, app.logger)
		if err != nil {
			return sinks, fmt.Errorf("failed to initialize log rotator: %w", err)
		}
		app.logRotator = rotator
		sinks = append(sinks, basestation.NewWriter(rotator, app.logger))
	}

	if app.config.BeastOut != "" {
		file, err := os.Create(app.config.BeastOut)
		if err != nil {
			return sinks, fmt.Errorf("failed to create beast output: %w", err)
		}
		sinks = append(sinks, beast.NewWriter(file, app.config.SampleRate, app.logger))
	}

	if app.config.NATSURL != "" {
		publisher, err := publish.Connect(app.config.NATSURL, app.config.NATSSubject, app.logger)
		if err != nil {
			return sinks, fmt.Errorf("failed to connect to NATS: %w", err)
		}
		sinks = append(sinks, publisher)
	}

	return sinks, nil
}

// Run receives buffers from the source and decodes them until ctx is
// canceled, the source reports io.EOF or MaxCycles buffers were requested.
// A receive timeout skips that cycle; any other receive error ends the run
// and is returned.
func (app *Application) Run(ctx context.Context) error {
	if app.source == nil {
		return fmt.Errorf("%w: no source", acquire.ErrOpen)
	}

	app.logger.WithFields(logrus.Fields{
		"buffer_size": app.config.BufferSize,
		"workers":     app.config.Workers,
		"max_cycles":  app.config.MaxCycles,
	}).Info("Starting capture and demodulation")

	runCtx, stop := context.WithCancel(ctx)
	defer stop()

	buffers := make(chan buffer, 1)
	var captureErr error

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer close(buffers)
		captureErr = app.capture(runCtx, buffers)
	}()

	workers := app.config.Workers
	if workers < 1 {
		workers = 1
	}
	var processing sync.WaitGroup
	for i := 0; i < workers; i++ {
		processing.Add(1)
		go func() {
			defer processing.Done()
			for b := range buffers {
				app.processBuffer(b)
			}
		}()
	}

	if app.config.StatsInterval > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			app.reportStatistics(runCtx)
		}()
	}

	processing.Wait()
	stop()
	wg.Wait()

	app.logStatistics("Final statistics")
	return captureErr
}

// capture is the single goroutine blocking on the source
func (app *Application) capture(ctx context.Context, out chan<- buffer) error {
	var base, seq uint64

	for cycle := 0; app.config.MaxCycles == 0 || cycle < app.config.MaxCycles; cycle++ {
		samples := make([]int16, app.config.BufferSize)

		err := app.source.Receive(ctx, samples)
		switch {
		case err == nil:
		case ctx.Err() != nil:
			return nil
		case errors.Is(err, acquire.ErrReceiveTimeout):
			app.timeouts.Add(1)
			app.logger.WithError(err).WithField("cycle", cycle).Warn("Failed to receive samples")
			continue
		case errors.Is(err, io.EOF):
			app.logger.Info("Input exhausted")
			return nil
		default:
			return fmt.Errorf("receive failed: %w", err)
		}

		select {
		case out <- buffer{seq: seq, samples: samples, base: base, at: time.Now()}:
		case <-ctx.Done():
			return nil
		}

		seq++
		base += uint64(len(samples) / 2)
	}

	app.logger.WithField("cycles", app.config.MaxCycles).Info("Cycle limit reached")
	return nil
}

// processBuffer demodulates one buffer and handles every frame in it
func (app *Application) processBuffer(b buffer) {
	for _, frame := range app.processor.Process(b.samples) {
		if _, err := app.HandleFrame(frame, b.base, b.at); err != nil {
			app.logger.WithError(err).WithFields(logrus.Fields{
				"buffer": b.seq,
				"offset": frame.Offset,
			}).Debug("Frame not resolved")
		}
	}
}

// HandleFrame packs and decodes one demodulated frame, forwards the message
// to the sinks and feeds position reports to the resolver. sampleBase is the
// capture position of the buffer the frame came from and at its receive time.
// A fix is returned whenever a global decode was attempted.
func (app *Application) HandleFrame(frame adsb.DecodedFrame, sampleBase uint64, at time.Time) (*adsb.PositionFix, error) {
	data, err := adsb.BitsToBytes(frame.Bits)
	if err != nil {
		app.packErrors.Add(1)
		return nil, err
	}

	decoded, err := app.decoder.Decode(data)
	if err != nil {
		app.rejected.Add(1)
		return nil, err
	}

	// Without a checkable CRC other downlink formats are mostly noise
	if !decoded.IsExtendedSquitter() {
		app.ignored.Add(1)
		return nil, nil
	}

	msg := &adsb.Message{
		Frame:       decoded,
		Offset:      frame.Offset,
		SampleIndex: sampleBase + uint64(frame.Offset),
		Signal:      peak(frame.Window),
		Timestamp:   at,
		SessionID:   app.sessionID,
	}
	copy(msg.Data[:], data)

	app.messages.Add(1)
	app.writeMessage(msg)

	if decoded.Position == nil {
		return nil, nil
	}

	fix, err := app.resolver.Observe(decoded.ICAOHex(), *decoded.Position, at)
	if fix == nil {
		return nil, err
	}

	fix.SessionID = app.sessionID
	if fix.Valid() {
		app.fixes.Add(1)
	} else {
		app.failedFixes.Add(1)
	}
	app.writeFix(fix)

	return fix, err
}

func (app *Application) writeMessage(msg *adsb.Message) {
	if err := app.sinks.WriteMessage(msg); err != nil {
		app.sinkFailures.Add(1)
		app.logger.WithError(err).Warn("Failed to write message")
	}
}

func (app *Application) writeFix(fix *adsb.PositionFix) {
	if err := app.sinks.WriteFix(fix); err != nil {
		app.sinkFailures.Add(1)
		app.logger.WithError(err).Warn("Failed to write position")
	}
}

// peak returns the largest magnitude in a message window
func peak(window []uint16) uint16 {
	var top uint16
	for _, v := range window {
		if v > top {
			top = v
		}
	}
	return top
}

// Stats is a snapshot of application counters
type Stats struct {
	Pipeline     adsb.Stats
	Timeouts     uint64
	PackErrors   uint64
	Rejected     uint64
	Ignored      uint64
	Messages     uint64
	Fixes        uint64
	FailedFixes  uint64
	SinkFailures uint64
	Aircraft     int
}

// GetStats returns processing statistics
func (app *Application) GetStats() Stats {
	return Stats{
		Pipeline:     app.processor.GetStats(),
		Timeouts:     app.timeouts.Load(),
		PackErrors:   app.packErrors.Load(),
		Rejected:     app.rejected.Load(),
		Ignored:      app.ignored.Load(),
		Messages:     app.messages.Load(),
		Fixes:        app.fixes.Load(),
		FailedFixes:  app.failedFixes.Load(),
		SinkFailures: app.sinkFailures.Load(),
		Aircraft:     app.store.Len(),
	}
}

// reportStatistics reports processing statistics periodically
func (app *Application) reportStatistics(ctx context.Context) {
	ticker := time.NewTicker(app.config.StatsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			app.logStatistics("Processing statistics")
		}
	}
}

func (app *Application) logStatistics(title string) {
	stats := app.GetStats()
	app.logger.WithFields(logrus.Fields{
		"buffers":      humanize.Comma(int64(stats.Pipeline.Buffers)),
		"samples":      humanize.SIWithDigits(float64(stats.Pipeline.Samples), 2, "S"),
		"preambles":    humanize.Comma(int64(stats.Pipeline.Preambles)),
		"ambiguous":    humanize.Comma(int64(stats.Pipeline.AmbiguousBits)),
		"frames":       humanize.Comma(int64(stats.Pipeline.DecodedFrames)),
		"rejected":     humanize.Comma(int64(stats.Rejected)),
		"messages":     humanize.Comma(int64(stats.Messages)),
		"fixes":        humanize.Comma(int64(stats.Fixes)),
		"failed_fixes": humanize.Comma(int64(stats.FailedFixes)),
		"timeouts":     stats.Timeouts,
		"aircraft":     stats.Aircraft,
	}).Info(title)
}

// shutdown waits for background goroutines and releases the source and sinks
func (app *Application) shutdown() {
	app.closeOnce.Do(func() {
		app.logger.Info("Shutting down application")
		app.cancel()

		done := make(chan struct{})
		go func() {
			app.wg.Wait()
			close(done)
		}()

		select {
		case <-done:
			app.logger.Info("All goroutines finished")
		case <-time.After(5 * time.Second):
			app.logger.Warn("Shutdown timeout, forcing exit")
		}

		if app.source != nil {
			if err := app.source.Close(); err != nil {
				app.logger.WithError(err).Warn("Failed to close source")
			}
		}
		if err := app.sinks.Close(); err != nil {
			app.logger.WithError(err).Warn("Failed to close sinks")
		}
		app.logger.Info("Shutdown completed")
	})
}
