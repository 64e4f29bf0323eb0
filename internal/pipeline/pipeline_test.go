package pipeline

import (
	"context"
	"encoding/hex"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jaxsonpd/air1090/internal/aircraft"
	"github.com/jaxsonpd/air1090/internal/demod"
	"github.com/jaxsonpd/air1090/internal/dsp"
)

// encodeFrameToSamples renders a 14-byte RawFrame as a 16-sample
// preamble followed by Manchester-encoded magnitude samples, expressed
// as dsp.Samples with Q=0 so Magnitude(s) == I. The gate's DF17 shape
// probe reads the first payload byte itself.
func encodeFrameToSamples(frame []byte) []dsp.Sample {
	mags := make([]uint32, 0, demod.PayloadOffset+demod.PayloadSamples)

	preamble := make([]uint32, demod.PayloadOffset)
	for i := range preamble {
		preamble[i] = 100
	}
	highs := []int{0, 2, 7, 9}
	for _, h := range highs {
		preamble[h] = 1000
	}
	mags = append(mags, preamble...)

	for _, b := range frame {
		for bit := 0; bit < 8; bit++ {
			isOne := (b>>uint(7-bit))&1 == 1
			if isOne {
				mags = append(mags, 900, 100)
			} else {
				mags = append(mags, 100, 900)
			}
		}
	}

	samples := make([]dsp.Sample, len(mags))
	for i, m := range mags {
		samples[i] = dsp.Sample{I: int16(m), Q: 0}
	}
	return samples
}

type fakeSource struct {
	mu      sync.Mutex
	batches [][]dsp.Sample
	idx     int
}

func (f *fakeSource) Next(ctx context.Context) ([]dsp.Sample, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.idx >= len(f.batches) {
		return nil, io.EOF
	}
	b := f.batches[f.idx]
	f.idx++
	return b, nil
}

func (f *fakeSource) Close() error { return nil }

type recordingConsumer struct {
	mu   sync.Mutex
	last []aircraft.Entry
}

func (r *recordingConsumer) Render(snapshot []aircraft.Entry, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.last = append([]aircraft.Entry{}, snapshot...)
	return nil
}

func (r *recordingConsumer) snapshot() []aircraft.Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last
}

func TestPipelineDecodesIdentFrameEndToEnd(t *testing.T) {
	raw, err := hex.DecodeString("8d7c6b3020293532d70820fc8090")
	require.NoError(t, err)

	src := &fakeSource{batches: [][]dsp.Sample{encodeFrameToSamples(raw)}}
	consumer := &recordingConsumer{}
	logger := newTestLogger()

	p := New(src, consumer, RuleRelative, logger)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if len(consumer.snapshot()) > 0 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	snap := consumer.snapshot()
	require.Len(t, snap, 1)
	require.Equal(t, "JST250__", snap[0].Callsign)

	cancel()
	err = <-done
	if err != nil && !errors.Is(err, context.Canceled) {
		t.Fatalf("unexpected pipeline error: %v", err)
	}
}

func TestPipelineShutdownDrainsCleanly(t *testing.T) {
	src := &fakeSource{}
	p := New(src, nil, RuleRelative, newTestLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("pipeline did not shut down within deadline")
	}
}
