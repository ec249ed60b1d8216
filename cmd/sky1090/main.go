package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"sky1090/internal/app"
)

func main() {
	rootCmd := newRootCommand(os.Stdout, func(config app.Config) error {
		return app.NewApplication(config).Start()
	})

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// newRootCommand builds the CLI. run receives the merged configuration.
func newRootCommand(out io.Writer, run func(app.Config) error) *cobra.Command {
	var (
		flags      = app.DefaultConfig()
		configPath string
	)

	rootCmd := &cobra.Command{
		Use:   "sky1090",
		Short: "Mode S position decoder",
		Long: `Mode S / ADS-B position decoder for 1090 MHz I/Q samples.

Reads interleaved I/Q samples from an RTL-SDR or an SC16 capture file,
finds Mode S preambles, slices 112 bit extended squitters and resolves
even/odd CPR position pairs into latitude and longitude. Results go to
the log, to rotating BaseStation (SBS) files and optionally to a Beast
file and NATS JetStream.

Example usage:
  sky1090 --frequency 1090000000 --gain 40 --device 0
  sky1090 --input capture.sc16 --log-dir ./logs --beast-out out.beast`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if flags.ShowVersion {
				app.ShowVersion(out)
				return nil
			}

			config, err := app.LoadConfig(configPath)
			if err != nil {
				return err
			}
			applyFlags(cmd.Flags(), flags, &config)

			if err := config.Validate(); err != nil {
				return err
			}
			return run(config)
		},
	}

	f := rootCmd.Flags()
	f.StringVarP(&configPath, "config", "c", "", "YAML configuration file")
	f.Uint32VarP(&flags.Frequency, "frequency", "f", flags.Frequency, "Frequency to tune to (Hz)")
	f.Uint32VarP(&flags.SampleRate, "sample-rate", "s", flags.SampleRate, "Sample rate (Hz)")
	f.Uint32Var(&flags.Bandwidth, "bandwidth", flags.Bandwidth, "Tuner bandwidth (Hz)")
	f.IntVarP(&flags.Gain, "gain", "g", flags.Gain, "Gain setting in dB (0 for auto)")
	f.IntVarP(&flags.DeviceIndex, "device", "d", flags.DeviceIndex, "RTL-SDR device index")
	f.StringVarP(&flags.Input, "input", "i", flags.Input, "Read SC16 samples from a capture file instead of the radio")
	f.DurationVar(&flags.ReceiveTimeout, "timeout", flags.ReceiveTimeout, "Receive timeout per buffer")
	f.IntVar(&flags.BufferSize, "buffer", flags.BufferSize, "I/Q values per receive (must be even)")
	f.IntVar(&flags.Workers, "workers", flags.Workers, "Buffers decoded in parallel")
	f.IntVar(&flags.MaxCycles, "cycles", flags.MaxCycles, "Stop after this many receive cycles (0 runs until stopped)")
	f.DurationVar(&flags.AircraftTTL, "aircraft-ttl", flags.AircraftTTL, "Forget aircraft not seen for this long (0 keeps them)")
	f.DurationVar(&flags.MaxPairAge, "max-pair-age", flags.MaxPairAge, "Maximum age of an even/odd CPR pair")
	f.BoolVar(&flags.RequireCRC, "require-crc", flags.RequireCRC, "Drop extended squitters with a bad CRC")
	f.StringVarP(&flags.LogDir, "log-dir", "l", flags.LogDir, "SBS log directory (empty disables)")
	f.BoolVarP(&flags.LogRotateUTC, "utc", "u", flags.LogRotateUTC, "Use UTC for log rotation")
	f.StringVar(&flags.BeastOut, "beast-out", flags.BeastOut, "Write Beast binary frames to this file")
	f.StringVar(&flags.NATSURL, "nats-url", flags.NATSURL, "Publish to NATS JetStream at this URL")
	f.StringVar(&flags.NATSSubject, "nats-subject", flags.NATSSubject, "NATS subject prefix")
	f.DurationVar(&flags.StatsInterval, "stats-interval", flags.StatsInterval, "Statistics report interval (0 disables)")
	f.BoolVarP(&flags.Verbose, "verbose", "v", flags.Verbose, "Verbose logging")
	f.BoolVar(&flags.ShowVersion, "version", false, "Show version information")

	return rootCmd
}

// applyFlags copies the flags set on the command line over config
func applyFlags(fs *pflag.FlagSet, flags app.Config, config *app.Config) {
	fs.Visit(func(f *pflag.Flag) {
		switch f.Name {
		case "frequency":
			config.Frequency = flags.Frequency
		case "sample-rate":
			config.SampleRate = flags.SampleRate
		case "bandwidth":
			config.Bandwidth = flags.Bandwidth
		case "gain":
			config.Gain = flags.Gain
		case "device":
			config.DeviceIndex = flags.DeviceIndex
		case "input":
			config.Input = flags.Input
		case "timeout":
			config.ReceiveTimeout = flags.ReceiveTimeout
		case "buffer":
			config.BufferSize = flags.BufferSize
		case "workers":
			config.Workers = flags.Workers
		case "cycles":
			config.MaxCycles = flags.MaxCycles
		case "aircraft-ttl":
			config.AircraftTTL = flags.AircraftTTL
		case "max-pair-age":
			config.MaxPairAge = flags.MaxPairAge
		case "require-crc":
			config.RequireCRC = flags.RequireCRC
		case "log-dir":
			config.LogDir = flags.LogDir
		case "utc":
			config.LogRotateUTC = flags.LogRotateUTC
		case "beast-out":
			config.BeastOut = flags.BeastOut
		case "nats-url":
			config.NATSURL = flags.NATSURL
		case "nats-subject":
			config.NATSSubject = flags.NATSSubject
		case "stats-interval":
			config.StatsInterval = flags.StatsInterval
		case "verbose":
			config.Verbose = flags.Verbose
		}
	})
}
