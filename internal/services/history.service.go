package services

import (
	"context"
	"sync"
	"time"

	"twinconsole/internal/logger"
	"twinconsole/internal/models"
	"twinconsole/internal/ringbuf"
)

// FeedStatsSource is what the collector samples.
type FeedStatsSource interface {
	Stats() ConsoleStats
}

// HistoryCollector keeps a bounded time series of feed health samples
type HistoryCollector struct {
	mu        sync.RWMutex
	samples   *ringbuf.Ring[models.FeedSample]
	stats     FeedStatsSource
	connected func() bool
	lastCount uint64
	lastTime  time.Time
	now       func() time.Time
}

// NewHistoryCollector keeps at most maxPoints samples. connected may be nil
// when there is no live subscription.
func NewHistoryCollector(stats FeedStatsSource, connected func() bool, maxPoints int) *HistoryCollector {
	if connected == nil {
		connected = func() bool { return false }
	}
	return &HistoryCollector{
		samples:   ringbuf.New[models.FeedSample](maxPoints),
		stats:     stats,
		connected: connected,
		now:       time.Now,
	}
}

// Run samples every interval until ctx is cancelled
func (hc *HistoryCollector) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	logger.Infof("History collector started (interval: %v)", interval)
	for {
		select {
		case <-ctx.Done():
			logger.Infof("History collector stopped")
			return
		case <-ticker.C:
			hc.collectSample()
		}
	}
}

// collectSample records one sample; the message rate is the delta since the
// previous sample.
func (hc *HistoryCollector) collectSample() {
	// Read sources outside our lock; the console takes its own.
	stats := hc.stats.Stats()
	connected := hc.connected()
	now := hc.now()

	hc.mu.Lock()
	defer hc.mu.Unlock()

	rate := 0.0
	if !hc.lastTime.IsZero() {
		if dt := now.Sub(hc.lastTime).Seconds(); dt > 0 && stats.Messages >= hc.lastCount {
			rate = float64(stats.Messages-hc.lastCount) / dt
		}
	}
	hc.lastCount = stats.Messages
	hc.lastTime = now

	hc.samples.Push(models.FeedSample{
		Timestamp:     now,
		Connected:     connected,
		Messages:      stats.Messages,
		Malformed:     stats.Malformed,
		MessageRate:   rate,
		Events:        stats.Events,
		Alerting:      stats.Alerting,
		HeatmapBucket: stats.Buckets,
	})
}

// GetHistory returns samples newer than now-duration, oldest first
func (hc *HistoryCollector) GetHistory(duration time.Duration) []models.FeedSample {
	hc.mu.RLock()
	defer hc.mu.RUnlock()

	cutoff := hc.now().Add(-duration)
	filtered := []models.FeedSample{}
	hc.samples.Each(func(_ int, s models.FeedSample) bool {
		if s.Timestamp.After(cutoff) {
			filtered = append(filtered, s)
		}
		return true
	})
	return filtered
}

// Latest returns the most recent sample
func (hc *HistoryCollector) Latest() (models.FeedSample, bool) {
	hc.mu.RLock()
	defer hc.mu.RUnlock()
	return hc.samples.Newest()
}
