package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/jaxsonpd/air1090/internal/aircraft"
	"github.com/jaxsonpd/air1090/internal/basestation"
	"github.com/jaxsonpd/air1090/internal/beast"
	"github.com/jaxsonpd/air1090/internal/demod"
	"github.com/jaxsonpd/air1090/internal/iqsource"
	"github.com/jaxsonpd/air1090/internal/logging"
	"github.com/jaxsonpd/air1090/internal/pipeline"
	"github.com/jaxsonpd/air1090/internal/playback"
	"github.com/jaxsonpd/air1090/internal/rtlsdr"
	"github.com/jaxsonpd/air1090/internal/squitter"
)

// Application wires a Config into a running pipeline: an IQ source
// (RTL-SDR or file playback), a presentation consumer for the
// selected Mode, a rotating BaseStation log, and signal-driven
// shutdown.
type Application struct {
	config Config
	logger *logrus.Logger

	source     iqsource.Source
	logRotator *logging.LogRotator
	baseWriter *basestation.Writer

	pipeline *pipeline.Pipeline

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewApplication constructs an Application from config; components
// that open real resources are deferred to Start.
func NewApplication(config Config) *Application {
	ctx, cancel := context.WithCancel(context.Background())

	logger := logrus.New()
	if config.Verbose {
		logger.SetLevel(logrus.DebugLevel)
	} else {
		logger.SetLevel(logrus.InfoLevel)
	}

	return &Application{config: config, logger: logger, ctx: ctx, cancel: cancel}
}

// Start opens the IQ source and ambient collaborators, builds the
// pipeline, and blocks until a shutdown signal arrives or the
// pipeline stops on its own (e.g. playback reaching end of file).
func (a *Application) Start() error {
	a.logger.WithFields(logrus.Fields{
		"version":    Version,
		"build_time": BuildTime,
		"git_commit": GitCommit,
	}).Info("starting air1090")

	if err := a.initialize(); err != nil {
		return fmt.Errorf("initializing components: %w", err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	runErr := make(chan error, 1)
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		runErr <- a.pipeline.Run(a.ctx)
	}()

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		a.logRotator.Start(a.ctx)
	}()

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		a.pruneOldLogs()
	}()

	select {
	case <-sigChan:
		a.logger.Info("received shutdown signal")
		a.cancel()
	case err := <-runErr:
		a.cancel()
		a.shutdown()
		return err
	}

	a.shutdown()
	return nil
}

// pruneOldLogs runs CleanupOldLogs once at startup and then on every
// PruneInterval tick until the context is cancelled. A no-op when
// MaxLogAgeDays is unset.
func (a *Application) pruneOldLogs() {
	if a.config.MaxLogAgeDays <= 0 {
		return
	}

	prune := func() {
		if err := a.logRotator.CleanupOldLogs(a.config.MaxLogAgeDays); err != nil {
			a.logger.WithError(err).Warn("pruning old logs")
		}
	}

	prune()
	ticker := time.NewTicker(PruneInterval)
	defer ticker.Stop()
	for {
		select {
		case <-a.ctx.Done():
			return
		case <-ticker.C:
			prune()
		}
	}
}

// initialize opens the IQ source and constructs the pipeline around
// the configured presentation mode.
func (a *Application) initialize() error {
	var err error

	if a.config.PlaybackPath != "" {
		a.source, err = playback.Open(a.config.PlaybackPath)
		if err != nil {
			return fmt.Errorf("opening playback file: %w", err)
		}
	} else {
		a.source, err = rtlsdr.Open(a.config.DeviceIndex, a.config.Frequency, a.config.SampleRate, a.config.Gain, a.logger)
		if err != nil {
			return fmt.Errorf("opening RTL-SDR device: %w", err)
		}
	}

	a.logRotator, err = logging.NewLogRotator(a.config.LogDir, a.config.LogRotateUTC, a.logger)
	if err != nil {
		return fmt.Errorf("initializing log rotator: %w", err)
	}
	a.baseWriter = basestation.NewWriter(a.logRotator, a.logger)

	consumer, err := a.buildConsumer()
	if err != nil {
		return err
	}

	a.pipeline = pipeline.New(a.source, multiConsumer{consumer, a.baseWriter}, demod.RuleRelative, a.logger)

	if a.config.BeastAddr != "" {
		a.startBeastFeed(consumer)
	}
	return nil
}

// startBeastFeed runs an independent decoded-frame feed from a
// Beast-protocol server alongside the main RF pipeline, merging its
// frames into its own aircraft store and rendering through the same
// presentation consumer (and the BaseStation log).
func (a *Application) startBeastFeed(consumer iqsource.SnapshotConsumer) {
	feed := beast.NewFeed(a.config.BeastAddr, a.logger)
	frames := make(chan squitter.DecodedFrame, 64)

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		if err := feed.Run(a.ctx, frames); err != nil && a.ctx.Err() == nil {
			a.logger.WithError(err).Warn("beast feed stopped")
		}
	}()

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		store := aircraft.New()
		ticker := time.NewTicker(1 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-a.ctx.Done():
				return
			case frame, ok := <-frames:
				if !ok {
					return
				}
				store.Observe(frame)
			case now := <-ticker.C:
				snapshot := store.Snapshot(now)
				if err := consumer.Render(snapshot, now); err != nil {
					a.logger.WithError(err).Warn("rendering beast feed snapshot")
				}
				if err := a.baseWriter.Render(snapshot, now); err != nil {
					a.logger.WithError(err).Warn("logging beast feed snapshot")
				}
			}
		}
	}()
}

// buildConsumer selects the SnapshotConsumer for the configured Mode.
func (a *Application) buildConsumer() (iqsource.SnapshotConsumer, error) {
	switch a.config.Mode {
	case ModeInteractive:
		ic, err := NewInteractiveConsumer()
		if err != nil {
			return nil, err
		}
		a.wg.Add(1)
		go func() {
			defer a.wg.Done()
			<-a.ctx.Done()
			ic.Close()
		}()
		go ic.MainLoop()
		return NewCacheConsumer(ic), nil
	case ModeWeb:
		ws := newWebServer(a.config.WebAddr, a.logger)
		a.wg.Add(1)
		go func() {
			defer a.wg.Done()
			<-a.ctx.Done()
			ws.Shutdown()
		}()
		go ws.ListenAndServe()
		return NewCacheConsumer(ws), nil
	default:
		return NewCacheConsumer(NewStreamConsumer(a.logger)), nil
	}
}

// shutdown waits for the application's goroutines to stop, then
// closes the IQ source and the log rotator.
func (a *Application) shutdown() {
	a.logger.Info("shutting down")
	a.wg.Wait()
	if a.source != nil {
		if err := a.source.Close(); err != nil {
			a.logger.WithError(err).Warn("closing IQ source")
		}
	}
	if a.logRotator != nil {
		if err := a.logRotator.Close(); err != nil {
			a.logger.WithError(err).Warn("closing log rotator")
		}
	}
}

// multiConsumer fans one snapshot out to several consumers, used to
// drive both the presentation layer and the BaseStation log sink
// from a single tracker tick.
type multiConsumer []iqsource.SnapshotConsumer

func (m multiConsumer) Render(snapshot []aircraft.Entry, at time.Time) error {
	for _, c := range m {
		if err := c.Render(snapshot, at); err != nil {
			return err
		}
	}
	return nil
}
