package app

import "time"

// Default configuration constants, matching dump1090's defaults.
const (
	DefaultFrequency  = 1090000000 // 1090 MHz
	DefaultSampleRate = 2000000    // 2 MHz
	DefaultGain       = 40         // Manual gain, in dB
)

// Mode selects how resolved aircraft snapshots are presented.
type Mode string

const (
	ModeStream      Mode = "stream"
	ModeInteractive Mode = "interactive"
	ModeWeb         Mode = "web"
)

// Config holds everything needed to run a receive session: where the
// IQ samples come from, how the RTL-SDR is tuned when it is the
// source, and how resolved aircraft are presented and logged.
type Config struct {
	Frequency   uint32
	SampleRate  uint32
	Gain        int
	DeviceIndex int

	// PlaybackPath, when set, replaces the RTL-SDR with a file-backed
	// iqsource.Source reading previously captured samples.
	PlaybackPath string

	// BeastAddr, when set, additionally feeds already-demodulated
	// frames from a Beast-protocol TCP server into the same
	// presentation and logging sinks.
	BeastAddr string

	Mode    Mode
	WebAddr string

	LogDir       string
	LogRotateUTC bool
	// MaxLogAgeDays, when positive, prunes BaseStation logs older than
	// this many days once at startup and once every PruneInterval
	// thereafter. Zero disables pruning.
	MaxLogAgeDays int
	Verbose       bool
	ShowVersion   bool
}

// PruneInterval is how often Application checks for stale logs to
// remove while MaxLogAgeDays is set.
const PruneInterval = 24 * time.Hour
