// Package demod locates Mode S preambles in a magnitude stream and
// extracts the Manchester-coded payload that follows.
package demod

// preambleHighs and preambleLows are the sample offsets of the four
// 0.5us preamble pulses and the twelve intervening gaps, within the
// first 16 samples of the 32-sample window; at 2 MS/s one sample
// spans one 0.5us chip.
var preambleHighs = [4]int{0, 2, 7, 9}
var preambleLows = [12]int{1, 3, 4, 5, 6, 8, 10, 11, 12, 13, 14, 15}

// df17Highs and df17Lows are the pulse-position pairs of the first
// byte's top five bits (10001, the DF=17 shape), offset 16 into the
// same window.
var df17Highs = [5]int{0, 3, 5, 7, 8}
var df17Lows = [5]int{1, 2, 4, 6, 9}

// PreambleWindow is the number of magnitude samples the gate inspects
// per candidate position: the 16-chip preamble plus the 10-chip DF17
// shape probe, rounded up to 32 samples (1 sample/chip).
const PreambleWindow = 32

// PayloadSamples is the number of magnitude samples a full 14-byte,
// 112-bit frame occupies after the preamble: each bit is one
// pulse-half sample followed by one gap-half sample.
const PayloadSamples = 112 * 2

// PayloadOffset is the distance from a preamble's start to the first
// sample of its Manchester-coded payload.
const PayloadOffset = 16

// Gate scans win, the PreambleWindow samples starting at a candidate
// offset, and reports whether it matches the Mode S preamble followed
// by a DF=17-shaped first byte. On success it returns the derived
// demodulation threshold, floor(0.9 x min-of-highs).
func Gate(win []uint32) (threshold uint32, ok bool) {
	if len(win) < PreambleWindow {
		return 0, false
	}

	min := uint32(1<<32 - 1)
	for _, h := range preambleHighs {
		hv := win[h]
		for _, l := range preambleLows {
			if hv <= win[l] {
				return 0, false
			}
		}
		if hv < min {
			min = hv
		}
	}

	for _, h := range df17Highs {
		hv := win[PayloadOffset+h]
		for _, l := range df17Lows {
			if hv <= win[PayloadOffset+l] {
				return 0, false
			}
		}
	}

	return min * 9 / 10, true
}

// Scan walks mags looking for preamble matches, invoking onMatch(pos,
// threshold) for every non-overlapping hit. A successful match
// advances the scan by PayloadOffset+PayloadSamples; a failed probe
// advances by one sample, matching the gate's required non-overlap
// guarantee.
func Scan(mags []uint32, onMatch func(pos int, threshold uint32)) {
	i := 0
	for i+PreambleWindow <= len(mags) {
		if threshold, ok := Gate(mags[i:]); ok {
			onMatch(i, threshold)
			i += PayloadOffset + PayloadSamples
			continue
		}
		i++
	}
}
