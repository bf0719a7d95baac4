package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStats struct{ s ConsoleStats }

func (f *fakeStats) Stats() ConsoleStats { return f.s }

func TestHistoryCollector_SamplesRateAndFlags(t *testing.T) {
	now := time.Unix(5000, 0)
	src := &fakeStats{}
	hc := NewHistoryCollector(src, func() bool { return true }, 10)
	hc.now = func() time.Time { return now }

	hc.collectSample()
	now = now.Add(2 * time.Second)
	src.s = ConsoleStats{Messages: 10, Malformed: 1, Events: 2, Alerting: true, Buckets: 3}
	hc.collectSample()

	latest, ok := hc.Latest()
	require.True(t, ok)
	assert.Equal(t, 5.0, latest.MessageRate)
	assert.True(t, latest.Connected)
	assert.True(t, latest.Alerting)
	assert.Equal(t, uint64(1), latest.Malformed)
	assert.Equal(t, 3, latest.HeatmapBucket)
}

func TestHistoryCollector_GetHistoryFiltersByAge(t *testing.T) {
	now := time.Unix(5000, 0)
	hc := NewHistoryCollector(&fakeStats{}, nil, 100)
	hc.now = func() time.Time { return now }

	for i := 0; i < 10; i++ {
		hc.collectSample()
		now = now.Add(time.Minute)
	}

	// samples at t0..t0+9m; now is t0+10m
	assert.Len(t, hc.GetHistory(5*time.Minute+time.Second), 5)
	assert.Len(t, hc.GetHistory(time.Hour), 10)
	assert.False(t, hc.GetHistory(time.Hour)[0].Connected)
}

func TestHistoryCollector_Bounded(t *testing.T) {
	hc := NewHistoryCollector(&fakeStats{}, nil, 3)
	for i := 0; i < 5; i++ {
		hc.collectSample()
	}
	assert.Len(t, hc.GetHistory(time.Hour), 3)
}
