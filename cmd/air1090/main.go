// Command air1090 is a 1090 MHz Mode S Extended Squitter receiver:
// it captures I/Q samples from an RTL-SDR dongle (or a recorded
// capture file), demodulates and decodes ADS-B frames, tracks
// aircraft position and identity, and presents the result as a
// stream of log lines, an interactive terminal table, or a small
// web API, while logging BaseStation-format rows for downstream
// tools.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jaxsonpd/air1090/internal/app"
	"github.com/jaxsonpd/air1090/internal/playback"
	"github.com/jaxsonpd/air1090/internal/rtlsdr"
)

func main() {
	root := &cobra.Command{
		Use:   "air1090",
		Short: "1090 MHz ADS-B receiver",
		Long: `air1090 captures 1090 MHz Mode S Extended Squitter broadcasts from an
RTL-SDR dongle, demodulates and validates them, resolves aircraft
identity and position, and presents live traffic.`,
	}

	root.AddCommand(newListCommand(), newAdsbCommand(), newReceiveCommand(), newVersionCommand())

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List visible RTL-SDR devices",
		RunE: func(cmd *cobra.Command, args []string) error {
			devices := rtlsdr.ListDevices()
			if len(devices) == 0 {
				fmt.Println("no RTL-SDR devices found")
				return nil
			}
			for i, name := range devices {
				fmt.Printf("%d: %s\n", i, name)
			}
			return nil
		},
	}
}

func newAdsbCommand() *cobra.Command {
	var config app.Config
	var mode string

	cmd := &cobra.Command{
		Use:   "adsb",
		Short: "Receive and decode ADS-B traffic",
		RunE: func(cmd *cobra.Command, args []string) error {
			switch mode {
			case "web":
				config.Mode = app.ModeWeb
			case "interactive":
				config.Mode = app.ModeInteractive
			default:
				config.Mode = app.ModeStream
			}

			if config.ShowVersion {
				app.ShowVersion()
				return nil
			}

			return app.NewApplication(config).Start()
		},
	}

	cmd.Flags().Uint32VarP(&config.Frequency, "frequency", "f", app.DefaultFrequency, "Frequency to tune to (Hz)")
	cmd.Flags().Uint32VarP(&config.SampleRate, "sample-rate", "s", app.DefaultSampleRate, "Sample rate (Hz)")
	cmd.Flags().IntVarP(&config.Gain, "gain", "g", app.DefaultGain, "Gain setting (0 for auto)")
	cmd.Flags().IntVarP(&config.DeviceIndex, "device", "d", 0, "RTL-SDR device index")
	cmd.Flags().StringVarP(&config.PlaybackPath, "playback", "p", "", "Replay a captured IQ file instead of a live device")
	cmd.Flags().StringVar(&config.BeastAddr, "beast-addr", "", "Also merge frames from a Beast-protocol TCP server")
	cmd.Flags().StringVarP(&mode, "mode", "m", "stream", "Display mode: stream, interactive, or web")
	cmd.Flags().StringVar(&config.WebAddr, "web-addr", ":8080", "Listen address for web mode")
	cmd.Flags().StringVarP(&config.LogDir, "log-dir", "l", "./logs", "BaseStation log directory")
	cmd.Flags().BoolVarP(&config.LogRotateUTC, "utc", "u", true, "Use UTC for log rotation")
	cmd.Flags().IntVar(&config.MaxLogAgeDays, "max-log-age", 0, "Remove BaseStation logs older than this many days (0 disables pruning)")
	cmd.Flags().BoolVarP(&config.Verbose, "verbose", "v", false, "Verbose logging")
	cmd.Flags().BoolVar(&config.ShowVersion, "version", false, "Show version information")

	return cmd
}

func newReceiveCommand() *cobra.Command {
	var (
		frequency  uint32
		sampleRate uint32
		gain       int
		device     int
		period     int
		out        string
	)

	cmd := &cobra.Command{
		Use:   "receive",
		Short: "Capture raw IQ samples from an RTL-SDR to a file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReceive(device, frequency, sampleRate, gain, period, out)
		},
	}

	cmd.Flags().Uint32VarP(&frequency, "frequency", "f", app.DefaultFrequency, "Frequency to tune to (Hz)")
	cmd.Flags().Uint32VarP(&sampleRate, "sample-rate", "s", app.DefaultSampleRate, "Sample rate (Hz)")
	cmd.Flags().IntVarP(&gain, "gain", "g", app.DefaultGain, "Gain setting (0 for auto)")
	cmd.Flags().IntVarP(&device, "device", "d", 0, "RTL-SDR device index")
	cmd.Flags().IntVar(&period, "seconds", 30, "Capture duration in seconds")
	cmd.Flags().StringVarP(&out, "out", "o", "capture.iq", "Output capture file path")

	return cmd
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			app.ShowVersion()
		},
	}
}

func runReceive(device int, frequency, sampleRate uint32, gain, seconds int, out string) error {
	logger := newReceiveLogger()

	dev, err := rtlsdr.Open(device, frequency, sampleRate, gain, logger)
	if err != nil {
		return fmt.Errorf("opening RTL-SDR device: %w", err)
	}
	defer dev.Close()

	writer, err := playback.Create(out)
	if err != nil {
		return fmt.Errorf("creating capture file: %w", err)
	}
	defer writer.Close()

	ctx, cancel := newReceiveContext(seconds)
	defer cancel()

	for {
		batch, err := dev.Next(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		if err := writer.Write(batch); err != nil {
			return fmt.Errorf("writing capture: %w", err)
		}
	}
}
