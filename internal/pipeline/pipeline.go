// Package pipeline wires the three-stage bounded-channel topology
// that turns raw IQ batches into rendered aircraft snapshots: a
// source stage, a demod/decode stage, and a tracker/presentation
// stage, each a single goroutine connected by bounded FIFO channels.
package pipeline

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/jaxsonpd/air1090/internal/aircraft"
	"github.com/jaxsonpd/air1090/internal/crc"
	"github.com/jaxsonpd/air1090/internal/demod"
	"github.com/jaxsonpd/air1090/internal/dsp"
	"github.com/jaxsonpd/air1090/internal/iqsource"
	"github.com/jaxsonpd/air1090/internal/squitter"
)

// channelDepth bounds the two inter-stage queues. Sized generously
// relative to expected batch rate so a slow tracker stage applies
// back-pressure to the demod stage rather than growing unbounded.
const channelDepth = 64

// snapshotPeriod is how often the tracker stage renders a snapshot
// to its consumer, independent of frame arrival rate.
const snapshotPeriod = 1 * time.Second

// Stats holds mutex-guarded counters updated by the demod goroutine;
// read via Snapshot. PreambleRejects and PositionsResolved are never
// incremented.
type Stats struct {
	mu                sync.Mutex
	PreamblesFound    int64
	FramesDecoded     int64
	PreambleRejects   int64
	ManchesterRejects int64
	CRCRejects        int64
	CRCRecovered      int64
	PositionsResolved int64
}

func (s *Stats) incr(field *int64) {
	s.mu.Lock()
	*field++
	s.mu.Unlock()
}

// Snapshot returns a copy of the current counters.
func (s *Stats) Snapshot() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Stats{
		PreamblesFound:    s.PreamblesFound,
		FramesDecoded:     s.FramesDecoded,
		PreambleRejects:   s.PreambleRejects,
		ManchesterRejects: s.ManchesterRejects,
		CRCRejects:        s.CRCRejects,
		CRCRecovered:      s.CRCRecovered,
		PositionsResolved: s.PositionsResolved,
	}
}

// ManchesterRule picks which Manchester decision rule the demod
// stage applies; both are valid per the line protocol, chosen once
// at pipeline construction.
type ManchesterRule = demod.Rule

const (
	RuleRelative  = demod.RuleRelative
	RuleThreshold = demod.RuleThreshold
)

// Pipeline owns the source, demod, and tracker goroutines and their
// connecting channels. It has no exported mutable state beyond Stats;
// the Aircraft store is owned exclusively by the tracker goroutine.
type Pipeline struct {
	source   iqsource.Source
	consumer iqsource.SnapshotConsumer
	rule     ManchesterRule
	logger   *logrus.Logger

	Stats Stats

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New builds a Pipeline reading from source and rendering snapshots
// to consumer. The returned Pipeline has not yet started; call Run.
func New(source iqsource.Source, consumer iqsource.SnapshotConsumer, rule ManchesterRule, logger *logrus.Logger) *Pipeline {
	ctx, cancel := context.WithCancel(context.Background())
	return &Pipeline{
		source:   source,
		consumer: consumer,
		rule:     rule,
		logger:   logger,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Run starts all three stages and blocks until the source stage
// terminates (cleanly or on error) and the downstream stages have
// drained. It honours ctx: cancellation propagates to the source's
// Next call within one batch period.
func (p *Pipeline) Run(ctx context.Context) error {
	batches := make(chan []dsp.Sample, channelDepth)
	frames := make(chan squitter.DecodedFrame, channelDepth)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var sourceErr error
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer close(batches)
		sourceErr = p.runSource(runCtx, batches)
	}()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer close(frames)
		p.runDemod(runCtx, batches, frames)
	}()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.runTracker(runCtx, frames)
	}()

	p.wg.Wait()

	if sourceErr != nil && !errors.Is(sourceErr, io.EOF) && !errors.Is(sourceErr, context.Canceled) {
		return sourceErr
	}
	return nil
}

// Shutdown cancels the pipeline's internal context, causing all
// three stages to drain and terminate.
func (p *Pipeline) Shutdown() {
	p.cancel()
}

// runSource pulls batches from the source stage until it errors or
// the context is cancelled. Every error from Next, io.EOF included,
// ends the stage and is returned; read errors are not retried.
func (p *Pipeline) runSource(ctx context.Context, out chan<- []dsp.Sample) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		batch, err := p.source.Next(ctx)
		if err != nil {
			return err
		}

		select {
		case out <- batch:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// runDemod runs the magnitude/preamble/Manchester/CRC/decode chain
// over each incoming batch, emitting one DecodedFrame per accepted
// preamble match. This goroutine holds no reference to the tracker's
// Aircraft store. It does not recover panics, so a panic here ends
// the process; none of these steps panic on malformed input by
// construction.
func (p *Pipeline) runDemod(ctx context.Context, in <-chan []dsp.Sample, out chan<- squitter.DecodedFrame) {
	for {
		select {
		case <-ctx.Done():
			return
		case batch, ok := <-in:
			if !ok {
				return
			}
			p.decodeBatch(batch, out, ctx)
		}
	}
}

func (p *Pipeline) decodeBatch(batch []dsp.Sample, out chan<- squitter.DecodedFrame, ctx context.Context) {
	mags := dsp.Magnitude(batch)
	now := time.Now()

	demod.Scan(mags, func(pos int, threshold uint32) {
		p.Stats.incr(&p.Stats.PreamblesFound)

		payload := mags[pos+demod.PayloadOffset:]
		raw, ok := demod.Extract(payload, threshold, p.rule)
		if !ok {
			p.Stats.incr(&p.Stats.ManchesterRejects)
			return
		}

		if !crc.Validate(raw) {
			if recovered, ok := crc.RecoverSingleBit(raw); ok {
				raw = recovered
				p.Stats.incr(&p.Stats.CRCRecovered)
			} else {
				p.Stats.incr(&p.Stats.CRCRejects)
				return
			}
		}

		frame, ok := squitter.Decode(raw, now)
		if !ok {
			return
		}
		p.Stats.incr(&p.Stats.FramesDecoded)

		select {
		case out <- frame:
		case <-ctx.Done():
		}
	})
}

// runTracker owns the Aircraft store exclusively: it is the only
// goroutine that ever reads or writes it. It merges incoming frames
// and periodically renders a snapshot to the configured consumer,
// plus once more when its input closes before ctx is cancelled.
func (p *Pipeline) runTracker(ctx context.Context, in <-chan squitter.DecodedFrame) {
	store := aircraft.New()
	ticker := time.NewTicker(snapshotPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case frame, ok := <-in:
			if !ok {
				if p.consumer != nil && ctx.Err() == nil {
					now := time.Now()
					if err := p.consumer.Render(store.Snapshot(now), now); err != nil && p.logger != nil {
						p.logger.WithError(err).Debug("snapshot render failed")
					}
				}
				return
			}
			store.Observe(frame)
		case <-ticker.C:
			if p.consumer == nil {
				continue
			}
			snap := store.Snapshot(time.Now())
			if err := p.consumer.Render(snap, time.Now()); err != nil && p.logger != nil {
				p.logger.WithError(err).Debug("snapshot render failed")
			}
		}
	}
}
