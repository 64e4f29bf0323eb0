package dsp

import "testing"

func TestMagnitudePreservesLengthAndOrder(t *testing.T) {
	samples := []Sample{{I: 0, Q: 0}, {I: 3, Q: 4}, {I: -3, Q: -4}}
	mags := Magnitude(samples)
	if len(mags) != len(samples) {
		t.Fatalf("length mismatch: got %d want %d", len(mags), len(samples))
	}
	if mags[0] != 0 {
		t.Errorf("zero sample should have zero magnitude, got %d", mags[0])
	}
	if mags[1] != 5 || mags[2] != 5 {
		t.Errorf("expected magnitude 5 for a 3-4-5 triangle, got %d and %d", mags[1], mags[2])
	}
}

func TestMagnitudeMonotonicWithAmplitude(t *testing.T) {
	small := Magnitude([]Sample{{I: 10, Q: 0}})
	large := Magnitude([]Sample{{I: 100, Q: 0}})
	if small[0] >= large[0] {
		t.Errorf("magnitude not monotonic with amplitude: small=%d large=%d", small[0], large[0])
	}
}

func TestDecodeEncodeIQBytesRoundTrip(t *testing.T) {
	samples := []Sample{{I: 1234, Q: -4321}, {I: -1, Q: 1}}
	buf := EncodeIQBytes(samples)
	back := DecodeIQBytes(buf)
	if len(back) != len(samples) {
		t.Fatalf("round trip length mismatch: got %d want %d", len(back), len(samples))
	}
	for i := range samples {
		if back[i] != samples[i] {
			t.Errorf("round trip mismatch at %d: got %+v want %+v", i, back[i], samples[i])
		}
	}
}

func TestDecodeIQBytesDropsTrailingPartialSample(t *testing.T) {
	buf := []byte{0, 0, 0, 0, 1, 2}
	samples := DecodeIQBytes(buf)
	if len(samples) != 1 {
		t.Fatalf("expected trailing partial sample dropped, got %d samples", len(samples))
	}
}

func TestEmptyBatchYieldsNoMagnitudes(t *testing.T) {
	if len(Magnitude(nil)) != 0 {
		t.Error("empty input should yield empty output")
	}
}
