package aircraft

import (
	"encoding/hex"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jaxsonpd/air1090/internal/squitter"
)

func decode(t *testing.T, hexFrame string, at time.Time) squitter.DecodedFrame {
	t.Helper()
	b, err := hex.DecodeString(hexFrame)
	require.NoError(t, err)
	df, ok := squitter.Decode(b, at)
	require.True(t, ok)
	return df
}

func TestObserveCreatesEntryOnFirstSight(t *testing.T) {
	s := New()
	assert.Equal(t, 0, s.Len())
	s.Observe(decode(t, "8d7c6b3020293532d70820fc8090", time.Now()))
	assert.Equal(t, 1, s.Len())
}

func TestObserveIdentSetsCallsign(t *testing.T) {
	s := New()
	s.Observe(decode(t, "8d7c6b3020293532d70820fc8090", time.Now()))
	snap := s.Snapshot(time.Now())
	require.Len(t, snap, 1)
	assert.Equal(t, "JST250__", snap[0].Callsign)
}

func TestScenario4ResolvesPosition(t *testing.T) {
	s := New()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s.Observe(decode(t, "8D40621D58C386435CC412692AD6", base))
	s.Observe(decode(t, "8D40621D58C382D690C8AC2863A7", base.Add(2*time.Second)))

	snap := s.Snapshot(base.Add(2 * time.Second))
	require.Len(t, snap, 1)
	assert.EqualValues(t, 38000, snap[0].AltitudeFt)
	require.True(t, snap[0].HasPosition)
	assert.InDelta(t, 52.25720, snap[0].Latitude, 0.0001)
	assert.InDelta(t, 3.829498291015625, snap[0].Longitude, 0.0001)
}

func TestScenario5ResolvesPosition(t *testing.T) {
	s := New()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s.Observe(decode(t, "8d7c6b30580d107903b3cabf62ab", base))
	s.Observe(decode(t, "8d7c6b30580d24eeaebb2dfea5bb", base.Add(2*time.Second)))

	snap := s.Snapshot(base.Add(2 * time.Second))
	require.Len(t, snap, 1)
	assert.EqualValues(t, 1450, snap[0].AltitudeFt)
	require.True(t, snap[0].HasPosition)
	assert.InDelta(t, -41.28964698920816, snap[0].Latitude, 0.0001)
	assert.InDelta(t, 174.80927207253197, snap[0].Longitude, 0.0001)
}

func TestScenario6PositionsOver10sApartLeaveAltitudeUpdatedPositionUnchanged(t *testing.T) {
	s := New()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s.Observe(decode(t, "8D40621D58C386435CC412692AD6", base))
	s.Observe(decode(t, "8D40621D58C382D690C8AC2863A7", base.Add(20*time.Second)))

	snap := s.Snapshot(base.Add(20 * time.Second))
	require.Len(t, snap, 1)
	assert.EqualValues(t, 38000, snap[0].AltitudeFt)
	assert.False(t, snap[0].HasPosition)
}

func TestSnapshotIsSortedByAscendingAge(t *testing.T) {
	s := New()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s.Observe(decode(t, "8d7c6b3020293532d70820fc8090", base))

	frame2 := decode(t, "8d7c6b3020293532d70820fc8090", base.Add(5*time.Second))
	frame2.ICAO = 0x112233
	s.Observe(frame2)

	now := base.Add(10 * time.Second)
	snap := s.Snapshot(now)
	require.Len(t, snap, 2)
	assert.LessOrEqual(t, snap[0].AgeSeconds, snap[1].AgeSeconds)
}

func TestSnapshotIsNonAliasedClone(t *testing.T) {
	s := New()
	s.Observe(decode(t, "8d7c6b3020293532d70820fc8090", time.Now()))
	snap := s.Snapshot(time.Now())
	snap[0].Callsign = "MUTATED_"

	again := s.Snapshot(time.Now())
	assert.Equal(t, "JST250__", again[0].Callsign)
}
