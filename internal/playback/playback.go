// Package playback implements a file-backed iqsource.Source reading
// previously captured IQ samples, and the writer the receive
// subcommand uses to capture them in the first place.
package playback

import (
	"bufio"
	"context"
	"errors"
	"io"
	"os"
	"time"

	"github.com/jaxsonpd/air1090/internal/dsp"
)

// BatchSamples is the number of samples per Next() call. Pacing at
// one batch per batchPeriod bounds cancellation latency, per the
// pipeline's cancellation contract.
const BatchSamples = 10_000

// batchPeriod is how long one BatchSamples batch represents at the
// nominal 2 MS/s rate, and how the file source paces playback to
// behave like a real-time feed.
const batchPeriod = 5 * time.Millisecond

// FileSource reads little-endian interleaved 16-bit signed I,Q
// samples (I-first, Q-second) from a file, pacing delivery at
// real-time so downstream cancellation latency stays bounded.
type FileSource struct {
	f      *os.File
	r      *bufio.Reader
	ticker *time.Ticker
}

// Open opens path as a playback source.
func Open(path string) (*FileSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	return &FileSource{f: f, r: bufio.NewReaderSize(f, BatchSamples*4), ticker: time.NewTicker(batchPeriod)}, nil
}

// Next reads up to BatchSamples samples, pacing each batch by
// batchPeriod so a cancel is honoured within one batch period. A
// short final batch is returned once before io.EOF.
func (s *FileSource) Next(ctx context.Context) ([]dsp.Sample, error) {
	select {
	case <-s.ticker.C:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	buf := make([]byte, BatchSamples*4)
	n, err := io.ReadFull(s.r, buf)
	if n == 0 {
		if err != nil {
			return nil, io.EOF
		}
	}
	if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
		if n == 0 {
			return nil, io.EOF
		}
		return dsp.DecodeIQBytes(buf[:n]), nil
	}
	if err != nil {
		return nil, err
	}
	return dsp.DecodeIQBytes(buf[:n]), nil
}

// Close releases the underlying file and pacing ticker.
func (s *FileSource) Close() error {
	s.ticker.Stop()
	return s.f.Close()
}

// Writer persists captured IQ samples in the playback file format,
// used by the receive subcommand.
type Writer struct {
	f *os.File
}

// Create truncates or creates path and returns a Writer over it.
func Create(path string) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	return &Writer{f: f}, nil
}

// Write appends samples to the file in the playback wire format.
func (w *Writer) Write(samples []dsp.Sample) error {
	_, err := w.f.Write(dsp.EncodeIQBytes(samples))
	return err
}

// Close flushes and closes the underlying file.
func (w *Writer) Close() error {
	return w.f.Close()
}
