// Package aircraft maintains the live, ICAO-keyed table of observed
// aircraft state, merging successive DecodedFrames and exposing
// point-in-time snapshots to the presentation layer.
package aircraft

import (
	"sort"
	"time"

	"github.com/jaxsonpd/air1090/internal/cpr"
	"github.com/jaxsonpd/air1090/internal/squitter"
)

// Aircraft is one tracked airframe. The store is its single owner;
// callers only ever see cloned Snapshot entries.
type Aircraft struct {
	ICAO        uint32
	Callsign    string
	AltitudeFt  int32
	HasAltitude bool
	Position    cpr.Position
	HasPosition bool
	LastContact time.Time
	cprPair     cpr.Pair
}

// Store is the keyed aircraft table. It is not safe for concurrent
// use: per the pipeline's concurrency model it has exactly one
// owner, the tracker stage.
type Store struct {
	aircraft map[uint32]*Aircraft
}

// New returns an empty Store.
func New() *Store {
	return &Store{aircraft: make(map[uint32]*Aircraft)}
}

// Observe merges one DecodedFrame into the store, creating the
// Aircraft entry on first sight of its ICAO. Non-DF17 frames are
// never passed here; Decode already filters them.
func (s *Store) Observe(frame squitter.DecodedFrame) {
	ac, ok := s.aircraft[frame.ICAO]
	if !ok {
		ac = &Aircraft{ICAO: frame.ICAO}
		s.aircraft[frame.ICAO] = ac
	}
	ac.LastContact = frame.ReceivedAt

	switch frame.Kind {
	case squitter.KindIdent:
		ac.Callsign = frame.Ident.Callsign
	case squitter.KindAirbornePosition:
		ac.AltitudeFt = frame.Position.AltitudeFt
		ac.HasAltitude = true
		ac.cprPair.Observe(frame.Position, frame.ReceivedAt)

		pos, reason, ok := cpr.Solve(&ac.cprPair)
		switch {
		case ok:
			ac.Position = pos
			ac.HasPosition = true
		case reason == cpr.ReasonZoneMismatch:
			ac.cprPair.DropOlder()
		}
	}
}

// Entry is one row of a Snapshot: a presentation-facing, immutable
// copy of an Aircraft's externally relevant fields.
type Entry struct {
	ICAO        uint32
	Callsign    string
	AltitudeFt  int32
	HasAltitude bool
	Latitude    float64
	Longitude   float64
	HasPosition bool
	AgeSeconds  int64
}

// Snapshot returns a point-in-time, non-aliased clone of every
// tracked aircraft, sorted ascending by age (freshest first).
func (s *Store) Snapshot(now time.Time) []Entry {
	out := make([]Entry, 0, len(s.aircraft))
	for _, ac := range s.aircraft {
		e := Entry{
			ICAO:        ac.ICAO,
			Callsign:    ac.Callsign,
			AltitudeFt:  ac.AltitudeFt,
			HasAltitude: ac.HasAltitude,
			HasPosition: ac.HasPosition,
			AgeSeconds:  int64(now.Sub(ac.LastContact).Seconds()),
		}
		if ac.HasPosition {
			e.Latitude = ac.Position.Latitude
			e.Longitude = ac.Position.Longitude
		}
		out = append(out, e)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].AgeSeconds < out[j].AgeSeconds })
	return out
}

// Len reports the number of tracked aircraft.
func (s *Store) Len() int {
	return len(s.aircraft)
}
