package app

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"sky1090/internal/acquire"
	"sky1090/internal/adsb"
)

// Default configuration constants
const (
	DefaultFrequency        = acquire.DefaultFrequency
	DefaultSampleRate       = acquire.DefaultSampleRate
	DefaultBandwidth        = acquire.DefaultBandwidth
	DefaultGain             = acquire.DefaultGain
	DefaultReceiveTimeout   = acquire.DefaultReceiveTimeout
	DefaultBufferSize       = 20000 // I/Q values per receive
	DefaultWorkers          = 1
	DefaultConfigureRetries = 3
	DefaultRetryDelay       = 1 * time.Second
	DefaultStatsInterval    = 30 * time.Second
	DefaultLogDir           = "./logs"
)

// EnvPrefix prefixes every environment variable read by LoadConfig
const EnvPrefix = "SKY1090_"

// ErrInvalidConfig is wrapped by every validation failure
var ErrInvalidConfig = errors.New("invalid configuration")

// Config holds application configuration
type Config struct {
	Frequency        uint32        `yaml:"frequency"`
	SampleRate       uint32        `yaml:"sampleRate"`
	Bandwidth        uint32        `yaml:"bandwidth"`
	Gain             int           `yaml:"gain"`
	DeviceIndex      int           `yaml:"deviceIndex"`
	Input            string        `yaml:"input"` // SC16 capture file; empty selects the RTL-SDR
	ReceiveTimeout   time.Duration `yaml:"receiveTimeout"`
	BufferSize       int           `yaml:"bufferSize"`
	Workers          int           `yaml:"workers"`
	MaxCycles        int           `yaml:"maxCycles"` // 0 runs until stopped
	ConfigureRetries int           `yaml:"configureRetries"`
	RetryDelay       time.Duration `yaml:"retryDelay"`
	MaxPairAge       time.Duration `yaml:"maxPairAge"`
	AircraftTTL      time.Duration `yaml:"aircraftTTL"` // 0 keeps aircraft forever
	RequireCRC       bool          `yaml:"requireCRC"`
	LogDir           string        `yaml:"logDir"` // SBS output; empty disables
	LogRotateUTC     bool          `yaml:"logRotateUTC"`
	BeastOut         string        `yaml:"beastOut"`
	NATSURL          string        `yaml:"natsURL"`
	NATSSubject      string        `yaml:"natsSubject"`
	StatsInterval    time.Duration `yaml:"statsInterval"`
	Verbose          bool          `yaml:"verbose"`
	ShowVersion      bool          `yaml:"-"`
}

// DefaultConfig returns the configuration used when nothing is set
func DefaultConfig() Config {
	return Config{
		Frequency:        DefaultFrequency,
		SampleRate:       DefaultSampleRate,
		Bandwidth:        DefaultBandwidth,
		Gain:             DefaultGain,
		ReceiveTimeout:   DefaultReceiveTimeout,
		BufferSize:       DefaultBufferSize,
		Workers:          DefaultWorkers,
		ConfigureRetries: DefaultConfigureRetries,
		RetryDelay:       DefaultRetryDelay,
		MaxPairAge:       adsb.DefaultMaxPairAge,
		RequireCRC:       true,
		LogDir:           DefaultLogDir,
		LogRotateUTC:     true,
		NATSSubject:      "sky1090",
		StatsInterval:    DefaultStatsInterval,
	}
}

// LoadConfig layers defaults, the YAML file at path (if any) and
// SKY1090_* environment variables, reading a .env file when present.
func LoadConfig(path string) (Config, error) {
	config := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return config, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &config); err != nil {
			return config, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	// Try to load .env file, but don't fail if it doesn't exist
	_ = godotenv.Load()

	if err := config.applyEnv(os.LookupEnv); err != nil {
		return config, err
	}

	return config, nil
}

// applyEnv overrides fields from SKY1090_* variables
func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	var errs []error

	str := func(name string, dst *string) {
		if v, ok := lookup(EnvPrefix + name); ok {
			*dst = v
		}
	}
	u32 := func(name string, dst *uint32) {
		if v, ok := lookup(EnvPrefix + name); ok {
			n, err := strconv.ParseUint(v, 10, 32)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, name, err))
				return
			}
			*dst = uint32(n)
		}
	}
	integer := func(name string, dst *int) {
		if v, ok := lookup(EnvPrefix + name); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, name, err))
				return
			}
			*dst = n
		}
	}
	boolean := func(name string, dst *bool) {
		if v, ok := lookup(EnvPrefix + name); ok {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, name, err))
				return
			}
			*dst = b
		}
	}
	duration := func(name string, dst *time.Duration) {
		if v, ok := lookup(EnvPrefix + name); ok {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, name, err))
				return
			}
			*dst = d
		}
	}

	u32("FREQUENCY", &c.Frequency)
	u32("SAMPLE_RATE", &c.SampleRate)
	u32("BANDWIDTH", &c.Bandwidth)
	integer("GAIN", &c.Gain)
	integer("DEVICE_INDEX", &c.DeviceIndex)
	str("INPUT", &c.Input)
	duration("RECEIVE_TIMEOUT", &c.ReceiveTimeout)
	integer("BUFFER_SIZE", &c.BufferSize)
	integer("WORKERS", &c.Workers)
	integer("MAX_CYCLES", &c.MaxCycles)
	integer("CONFIGURE_RETRIES", &c.ConfigureRetries)
	duration("RETRY_DELAY", &c.RetryDelay)
	duration("MAX_PAIR_AGE", &c.MaxPairAge)
	duration("AIRCRAFT_TTL", &c.AircraftTTL)
	boolean("REQUIRE_CRC", &c.RequireCRC)
	str("LOG_DIR", &c.LogDir)
	boolean("LOG_ROTATE_UTC", &c.LogRotateUTC)
	str("BEAST_OUT", &c.BeastOut)
	str("NATS_URL", &c.NATSURL)
	str("NATS_SUBJECT", &c.NATSSubject)
	duration("STATS_INTERVAL", &c.StatsInterval)
	boolean("VERBOSE", &c.Verbose)

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}

// Validate checks the configuration for values the pipeline cannot run with
func (c Config) Validate() error {
	switch {
	case c.Frequency == 0:
		return fmt.Errorf("%w: frequency must be positive", ErrInvalidConfig)
	case c.SampleRate == 0:
		return fmt.Errorf("%w: sample rate must be positive", ErrInvalidConfig)
	case c.BufferSize <= 0:
		return fmt.Errorf("%w: buffer size must be positive, got %d", ErrInvalidConfig, c.BufferSize)
	case c.BufferSize%2 != 0:
		return fmt.Errorf("%w: buffer size must hold whole I/Q pairs, got %d", ErrInvalidConfig, c.BufferSize)
	case c.Workers <= 0:
		return fmt.Errorf("%w: workers must be positive, got %d", ErrInvalidConfig, c.Workers)
	case c.MaxCycles < 0:
		return fmt.Errorf("%w: cycles must not be negative", ErrInvalidConfig)
	case c.ConfigureRetries < 0:
		return fmt.Errorf("%w: configure retries must not be negative", ErrInvalidConfig)
	case c.MaxPairAge <= 0:
		return fmt.Errorf("%w: max pair age must be positive", ErrInvalidConfig)
	case c.AircraftTTL < 0:
		return fmt.Errorf("%w: aircraft TTL must not be negative", ErrInvalidConfig)
	case c.ReceiveTimeout < 0:
		return fmt.Errorf("%w: receive timeout must not be negative", ErrInvalidConfig)
	}
	return nil
}

// Settings returns the acquisition settings part of the configuration
func (c Config) Settings() acquire.Settings {
	return acquire.Settings{
		Frequency:      c.Frequency,
		SampleRate:     c.SampleRate,
		Bandwidth:      c.Bandwidth,
		Gain:           c.Gain,
		ReceiveTimeout: c.ReceiveTimeout,
	}
}
