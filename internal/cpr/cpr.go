// Package cpr solves an even/odd pair of Compact Position Reporting
// frames into an unambiguous geographic position.
package cpr

import (
	"math"
	"time"

	"github.com/jaxsonpd/air1090/internal/squitter"
)

const (
	nz        = 15.0
	dlatEven  = 360.0 / (4.0 * nz)
	dlatOdd   = 360.0 / (4.0*nz - 1.0)
	cprToFloat = 131072.0 // 2^17
	// MaxGap is the maximum allowed reception gap between an even and
	// odd frame for the pair to be considered resolvable.
	MaxGap = 10 * time.Second
)

// Position is a resolved geographic position in degrees.
type Position struct {
	Latitude  float64
	Longitude float64
}

// Pair holds the most recent raw even and odd position reports for
// one aircraft.
type Pair struct {
	EvenRaw   uint32
	EvenLon   uint32
	EvenAt    time.Time
	HasEven   bool
	OddRaw    uint32
	OddLon    uint32
	OddAt     time.Time
	HasOdd    bool
}

// Reason explains why Solve could not produce a position.
type Reason int

const (
	ReasonNoPair Reason = iota
	ReasonStalePair
	ReasonZoneMismatch
)

// Observe folds one AirbornePosition report into the pair, replacing
// whichever parity slot it belongs to.
func (p *Pair) Observe(pos squitter.AirbornePosition, at time.Time) {
	if pos.CPRFormat == squitter.Even {
		p.EvenRaw, p.EvenLon, p.EvenAt, p.HasEven = pos.CPRLatRaw, pos.CPRLonRaw, at, true
	} else {
		p.OddRaw, p.OddLon, p.OddAt, p.HasOdd = pos.CPRLatRaw, pos.CPRLonRaw, at, true
	}
}

// DropOlder discards the CprPair slot that was received first,
// leaving the other intact. Used when the zone-consistency gate
// fails: the discarded slot will be refreshed by a future frame of
// that parity.
func (p *Pair) DropOlder() {
	if !p.HasEven || !p.HasOdd {
		return
	}
	if p.EvenAt.Before(p.OddAt) {
		p.HasEven = false
	} else {
		p.HasOdd = false
	}
}

// Solve attempts to resolve p into a geographic position using the
// globally-unambiguous CPR algorithm. ok is false, with a Reason, if
// the pair is incomplete, more than MaxGap apart, or if the two
// frames disagree on latitude zone (NL mismatch), in which case the
// older slot should subsequently be dropped via DropOlder.
func Solve(p *Pair) (Position, Reason, bool) {
	if !p.HasEven || !p.HasOdd {
		return Position{}, ReasonNoPair, false
	}

	gap := p.EvenAt.Sub(p.OddAt)
	if gap < 0 {
		gap = -gap
	}
	if gap > MaxGap {
		return Position{}, ReasonStalePair, false
	}

	newerIsEven := p.EvenAt.After(p.OddAt)

	latEven, latOdd := candidateLatitudes(p.EvenRaw, p.OddRaw)

	var lat float64
	if newerIsEven {
		lat = latEven
	} else {
		lat = latOdd
	}

	if numLongitudeZones(latEven) != numLongitudeZones(latOdd) {
		return Position{}, ReasonZoneMismatch, false
	}

	lon := longitude(p.EvenLon, p.OddLon, lat, newerIsEven)

	return Position{Latitude: lat, Longitude: lon}, 0, true
}

func toFloat(raw uint32) float64 {
	return float64(raw) / cprToFloat
}

func candidateLatitudes(evenRaw, oddRaw uint32) (latEven, latOdd float64) {
	cprLatEven := toFloat(evenRaw)
	cprLatOdd := toFloat(oddRaw)

	j := math.Floor(59.0*cprLatEven - 60.0*cprLatOdd + 0.5)

	latEven = dlatEven * (math.Mod(j, 60.0) + cprLatEven)
	latOdd = dlatOdd * (math.Mod(j, 59.0) + cprLatOdd)

	if latEven > 270.0 {
		latEven -= 360.0
	}
	if latOdd > 270.0 {
		latOdd -= 360.0
	}
	return latEven, latOdd
}

// numLongitudeZones is NL(phi), the number of longitude zones at
// latitude phi degrees.
func numLongitudeZones(lat float64) float64 {
	switch {
	case lat == 0:
		return 59
	case lat == 87 || lat == -87:
		return 2
	case lat > 87 || lat < -87:
		return 1
	}

	cosLat := math.Cos(lat * math.Pi / 180.0)
	a := 1 - math.Cos(math.Pi/(2*nz))
	b := cosLat * cosLat
	return math.Floor(2 * math.Pi / math.Acos(1-a/b))
}

// longitude computes the final longitude given both raw CPR
// longitudes, the resolved latitude, and which parity is newer. The
// zone count n is derated to max(NL(lat)-1, 1) when the newer frame
// is odd, or left at max(NL(lat), 1) when the newer frame is even;
// m and the final division both use this same derated n (matching
// the corrected reference decoder, not the abstract per-term NL(phi)
// framing).
func longitude(evenLon, oddLon uint32, lat float64, newerIsEven bool) float64 {
	lonEven := toFloat(evenLon)
	lonOdd := toFloat(oddLon)

	var n float64
	if newerIsEven {
		n = math.Max(numLongitudeZones(lat), 1)
	} else {
		n = math.Max(numLongitudeZones(lat)-1, 1)
	}

	m := math.Floor(lonEven*(n-1) - lonOdd*n + 0.5)

	dlon := 360.0 / n
	lon := dlon * (math.Mod(m, n) + lonOdd)

	if lon > 180.0 {
		lon -= 360.0
	}
	return lon
}
