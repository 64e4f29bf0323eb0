// Package iqsource defines the contracts between the core pipeline
// and its external collaborators: the raw IQ producer and the
// aircraft-snapshot consumer. Implementations of these interfaces
// (RTL-SDR hardware, file playback, terminal/web renderers) live
// outside the core per the pipeline's non-goals.
package iqsource

import (
	"context"
	"time"

	"github.com/jaxsonpd/air1090/internal/aircraft"
	"github.com/jaxsonpd/air1090/internal/dsp"
)

// Source produces an ordered stream of IQ sample batches. Each
// batch holds between 1 and 65536 samples nominally captured at
// 2,000,000 samples/second. Next blocks until a batch is ready, the
// context is cancelled, or the stream ends.
type Source interface {
	// Next returns the next batch of samples, or an error if the
	// source has terminated. io.EOF indicates a clean end of stream.
	Next(ctx context.Context) ([]dsp.Sample, error)
	// Close releases any underlying resources (device handle, file).
	Close() error
}

// SnapshotConsumer renders aircraft.Entry snapshots at whatever
// cadence the presentation layer chooses (at most 50 Hz is
// expected). Render must not retain the slice past the call.
type SnapshotConsumer interface {
	Render(snapshot []aircraft.Entry, at time.Time) error
}
