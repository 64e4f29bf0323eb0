package app

import (
	"fmt"
	"sort"
	"time"

	"github.com/jroimartin/gocui"
	cache "github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"

	"github.com/jaxsonpd/air1090/internal/aircraft"
)

// cacheTTL bounds how long a cached row survives a gap in snapshots
// before it is evicted from the stream/interactive display, distinct
// from (and longer than) the aircraft store's own position-pair
// staleness window.
const cacheTTL = 30 * time.Second

// StreamConsumer renders snapshots as structured log lines, one per
// aircraft, via logrus. It is the default, non-interactive mode.
type StreamConsumer struct {
	logger *logrus.Logger
}

// NewStreamConsumer returns a SnapshotConsumer suitable for
// redirecting to a file or another tool's stdin.
func NewStreamConsumer(logger *logrus.Logger) *StreamConsumer {
	return &StreamConsumer{logger: logger}
}

// Render implements iqsource.SnapshotConsumer.
func (c *StreamConsumer) Render(snapshot []aircraft.Entry, at time.Time) error {
	for _, e := range snapshot {
		fields := logrus.Fields{
			"icao": fmt.Sprintf("%06X", e.ICAO),
			"age":  e.AgeSeconds,
		}
		if e.Callsign != "" {
			fields["callsign"] = e.Callsign
		}
		if e.HasAltitude {
			fields["altitude_ft"] = e.AltitudeFt
		}
		if e.HasPosition {
			fields["lat"] = e.Latitude
			fields["lon"] = e.Longitude
		}
		c.logger.WithFields(fields).Info("aircraft")
	}
	return nil
}

// CacheConsumer wraps a SnapshotConsumer with a go-cache keyed by
// ICAO, so a downstream renderer keeps showing an aircraft for
// cacheTTL past its last appearance in a snapshot (e.g. one dropped
// frame doesn't blank a row) while still eventually evicting
// aircraft the tracker has stopped reporting altogether.
type CacheConsumer struct {
	next  iqsourceSnapshotConsumer
	cache *cache.Cache
}

// iqsourceSnapshotConsumer mirrors iqsource.SnapshotConsumer locally
// to avoid an import cycle concern when display.go is reused by
// non-iqsource callers (tests construct consumers directly).
type iqsourceSnapshotConsumer interface {
	Render(snapshot []aircraft.Entry, at time.Time) error
}

// NewCacheConsumer wraps next with cacheTTL eviction.
func NewCacheConsumer(next iqsourceSnapshotConsumer) *CacheConsumer {
	return &CacheConsumer{next: next, cache: cache.New(cacheTTL, cacheTTL/2)}
}

// Render merges snapshot into the cache and forwards the union to
// the wrapped consumer.
func (c *CacheConsumer) Render(snapshot []aircraft.Entry, at time.Time) error {
	for _, e := range snapshot {
		c.cache.SetDefault(fmt.Sprintf("%06X", e.ICAO), e)
	}

	items := c.cache.Items()
	merged := make([]aircraft.Entry, 0, len(items))
	for _, item := range items {
		merged = append(merged, item.Object.(aircraft.Entry))
	}
	sort.Slice(merged, func(i, j int) bool { return merged[i].AgeSeconds < merged[j].AgeSeconds })

	return c.next.Render(merged, at)
}

// InteractiveConsumer renders a live-updating terminal table via
// gocui, dump1090's traditional "interactive" mode.
type InteractiveConsumer struct {
	g      *gocui.Gui
	latest []aircraft.Entry
}

// NewInteractiveConsumer starts a gocui terminal UI. Close must be
// called to restore the terminal when the display is no longer
// needed; MainLoop must be running for updates to appear
// (Application.buildConsumer starts it on a goroutine of its own).
func NewInteractiveConsumer() (*InteractiveConsumer, error) {
	g, err := gocui.NewGui(gocui.OutputNormal)
	if err != nil {
		return nil, fmt.Errorf("starting terminal UI: %w", err)
	}
	c := &InteractiveConsumer{g: g}
	g.SetManagerFunc(c.layout)
	if err := g.SetKeybinding("", gocui.KeyCtrlC, gocui.ModNone, func(*gocui.Gui, *gocui.View) error {
		return gocui.ErrQuit
	}); err != nil {
		g.Close()
		return nil, err
	}
	return c, nil
}

// Render stores the snapshot and asks gocui to redraw on its own
// goroutine; MainLoop must be pumping for updates to appear.
func (c *InteractiveConsumer) Render(snapshot []aircraft.Entry, at time.Time) error {
	c.latest = snapshot
	c.g.Update(func(g *gocui.Gui) error { return nil })
	return nil
}

func (c *InteractiveConsumer) layout(g *gocui.Gui) error {
	maxX, maxY := g.Size()
	v, err := g.SetView("aircraft", 0, 0, maxX-1, maxY-1)
	if err != nil && err != gocui.ErrUnknownView {
		return err
	}
	v.Clear()
	v.Title = " air1090 "
	fmt.Fprintf(v, "%-8s %-10s %10s %12s %13s\n", "ICAO", "CALLSIGN", "ALT(ft)", "LAT", "LON")
	for _, e := range c.latest {
		alt := "-"
		if e.HasAltitude {
			alt = fmt.Sprintf("%d", e.AltitudeFt)
		}
		lat, lon := "-", "-"
		if e.HasPosition {
			lat = fmt.Sprintf("%.5f", e.Latitude)
			lon = fmt.Sprintf("%.5f", e.Longitude)
		}
		fmt.Fprintf(v, "%-8s %-10s %10s %13s %13s\n", fmt.Sprintf("%06X", e.ICAO), e.Callsign, alt, lat, lon)
	}
	return nil
}

// MainLoop runs gocui's event loop until the user quits or ctx-driven
// Close is called. It blocks the calling goroutine.
func (c *InteractiveConsumer) MainLoop() error {
	if err := c.g.MainLoop(); err != nil && err != gocui.ErrQuit {
		return err
	}
	return nil
}

// Close restores the terminal.
func (c *InteractiveConsumer) Close() {
	c.g.Close()
}
