package services

import (
	"sort"
	"time"

	"twinconsole/internal/models"
	"twinconsole/internal/ringbuf"
)

// heatBucket holds the cells of one time window, keyed by sensor.
type heatBucket struct {
	start time.Time
	label string
	cells map[string]models.HeatmapCell
	order []string
}

// heatmapStore quantises messages into fixed-width buckets and keeps at most
// a fixed number of them. Buckets are evicted whole, oldest first-seen first.
type heatmapStore struct {
	width   time.Duration
	loc     *time.Location
	buckets *ringbuf.Ring[*heatBucket]
}

func newHeatmapStore(width time.Duration, maxBuckets int, loc *time.Location) *heatmapStore {
	if loc == nil {
		loc = time.UTC
	}
	return &heatmapStore{
		width:   width,
		loc:     loc,
		buckets: ringbuf.New[*heatBucket](maxBuckets),
	}
}

// bucketStart floors ts to the bucket grid anchored at the Unix epoch.
func (h *heatmapStore) bucketStart(ts time.Time) time.Time {
	w := h.width.Milliseconds()
	ms := ts.UnixMilli()
	floor := ms / w * w
	if ms < 0 && ms%w != 0 {
		floor -= w
	}
	return time.UnixMilli(floor).In(h.loc)
}

// BucketLabel returns the HH:MM:SS label of the bucket containing ts.
func (h *heatmapStore) BucketLabel(ts time.Time) string {
	return h.bucketStart(ts).Format("15:04:05")
}

// add merges one cell per raw sensor of msg into the bucket for ts.
func (h *heatmapStore) add(ts time.Time, msg *models.StreamMessage) {
	if len(msg.Sensors) == 0 {
		return
	}

	start := h.bucketStart(ts)
	bucket := h.find(start)
	if bucket == nil {
		bucket = &heatBucket{
			start: start,
			label: h.BucketLabel(ts),
			cells: make(map[string]models.HeatmapCell, len(msg.Sensors)),
		}
		h.buckets.Push(bucket)
	}

	sensors := make([]string, 0, len(msg.Sensors))
	for sensor := range msg.Sensors {
		sensors = append(sensors, sensor)
	}
	sort.Strings(sensors)

	pred := msg.Prediction
	for _, sensor := range sensors {
		cell := models.HeatmapCell{
			Sensor: sensor,
			Time:   bucket.label,
		}
		if pred != nil {
			cell.Value = pred.PerFeatureIntensity[sensor]
			if z, ok := pred.PerFeatureZ[sensor]; ok {
				cell.ZScore = &z
			}
			if e, ok := pred.PerFeatureError[sensor]; ok {
				cell.Error = &e
			}
			if flag, ok := pred.PerFeatureFlag[sensor]; ok && flag.Valid() {
				cell.Flag = flag
				cell.Anomaly = flag == models.StatusCritical
			}
		}

		if _, exists := bucket.cells[sensor]; !exists {
			bucket.order = append(bucket.order, sensor)
		}
		bucket.cells[sensor] = cell
	}
}

func (h *heatmapStore) find(start time.Time) *heatBucket {
	for i := h.buckets.Len() - 1; i >= 0; i-- {
		if b := h.buckets.At(i); b.start.Equal(start) {
			return b
		}
	}
	return nil
}

// Len returns the number of retained buckets.
func (h *heatmapStore) Len() int {
	return h.buckets.Len()
}

// cells flattens the store, oldest bucket first.
func (h *heatmapStore) cells() []models.HeatmapCell {
	var out []models.HeatmapCell
	h.buckets.Each(func(_ int, b *heatBucket) bool {
		for _, sensor := range b.order {
			out = append(out, copyCell(b.cells[sensor]))
		}
		return true
	})
	if out == nil {
		out = []models.HeatmapCell{}
	}
	return out
}

// grid builds the sensor x time matrix with times in chronological order.
func (h *heatmapStore) grid() models.HeatmapGrid {
	buckets := h.buckets.Items()
	sort.SliceStable(buckets, func(i, j int) bool {
		return buckets[i].start.Before(buckets[j].start)
	})

	g := models.HeatmapGrid{
		Sensors:   []string{},
		Times:     make([]string, 0, len(buckets)),
		Values:    make(map[string]map[string]float64),
		Anomalies: make(map[string]map[string]bool),
	}
	for _, b := range buckets {
		g.Times = append(g.Times, b.label)
		for _, sensor := range b.order {
			cell := b.cells[sensor]
			if _, ok := g.Values[sensor]; !ok {
				g.Sensors = append(g.Sensors, sensor)
				g.Values[sensor] = make(map[string]float64)
				g.Anomalies[sensor] = make(map[string]bool)
			}
			g.Values[sensor][b.label] = cell.Value
			g.Anomalies[sensor][b.label] = cell.Anomaly
		}
	}
	return g
}

func copyCell(c models.HeatmapCell) models.HeatmapCell {
	if c.ZScore != nil {
		z := *c.ZScore
		c.ZScore = &z
	}
	if c.Error != nil {
		e := *c.Error
		c.Error = &e
	}
	return c
}
