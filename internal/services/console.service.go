package services

import (
	"encoding/json"
	"strings"
	"sync"
	"time"

	"twinconsole/internal/apperr"
	"twinconsole/internal/logger"
	"twinconsole/internal/models"
	"twinconsole/internal/observability"
	"twinconsole/internal/ringbuf"
)

// AnomalyScoreChannel is the synthetic channel fed from prediction.anomaly_score.
const AnomalyScoreChannel = "anomaly_score"

// Fallback status thresholds for the anomaly score channel when the model
// sends no usable flag for it. Raw sensors without a flag stay normal.
const (
	criticalScore = 0.9
	warningScore  = 0.7
)

// Trend direction: the current value against the mean of the last few points.
const (
	directionWindow = 5
	directionUp     = 1.05
	directionDown   = 0.95
)

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

// ConsoleOptions sizes the view models.
type ConsoleOptions struct {
	Channels    []models.ChannelMeta
	TrendLength int
	MaxEvents   int
	MaxBuckets  int
	BucketWidth time.Duration
	Location    *time.Location
	LogMessages bool
	Metrics     *observability.Metrics
}

// ConsoleStats is a cheap read of the fold counters.
type ConsoleStats struct {
	Messages  uint64
	Malformed uint64
	Events    uint64
	Alerting  bool
	Buckets   int
	Version   uint64
}

type channelState struct {
	meta   models.ChannelMeta
	value  float64
	status models.SensorStatus
	trend  *ringbuf.Ring[models.TrendPoint]
}

// Console folds stream messages into the bounded view models. Fold is called
// from the single ingestion goroutine; readers take snapshots concurrently.
type Console struct {
	mu sync.RWMutex

	loc         *time.Location
	logMessages bool
	metrics     *observability.Metrics

	channels []*channelState
	byID     map[string]*channelState
	events   *ringbuf.Ring[models.AnomalyEvent]
	heatmap  *heatmapStore
	detector *AttackDetector

	currentTS    *time.Time
	currentIndex int64
	messages     uint64
	malformed    uint64
	eventCount   uint64
	version      uint64
}

// NewConsole creates an empty console. Zero-valued options fall back to the
// standard console sizes.
func NewConsole(opts ConsoleOptions) *Console {
	if opts.TrendLength <= 0 {
		opts.TrendLength = 150
	}
	if opts.MaxEvents <= 0 {
		opts.MaxEvents = 50
	}
	if opts.MaxBuckets <= 0 {
		opts.MaxBuckets = 19
	}
	if opts.BucketWidth <= 0 {
		opts.BucketWidth = 30 * time.Second
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}

	c := &Console{
		loc:         opts.Location,
		logMessages: opts.LogMessages,
		metrics:     opts.Metrics,
		byID:        make(map[string]*channelState, len(opts.Channels)),
		events:      ringbuf.New[models.AnomalyEvent](opts.MaxEvents),
		heatmap:     newHeatmapStore(opts.BucketWidth, opts.MaxBuckets, opts.Location),
		detector:    NewAttackDetector(),
	}
	for _, meta := range opts.Channels {
		ch := &channelState{
			meta:   meta,
			status: models.StatusNormal,
			trend:  ringbuf.New[models.TrendPoint](opts.TrendLength),
		}
		c.channels = append(c.channels, ch)
		c.byID[meta.ID] = ch
	}
	return c
}

// IngestRaw decodes one text frame and folds it. Malformed frames are
// counted and returned as validation errors; state is left untouched.
func (c *Console) IngestRaw(data []byte) error {
	var msg models.StreamMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		c.reject()
		return apperr.Wrap(err, apperr.KindValidation, "decode stream message")
	}
	return c.Fold(&msg)
}

// Fold applies one message to every view model.
func (c *Console) Fold(msg *models.StreamMessage) error {
	if msg == nil {
		c.reject()
		return apperr.New(apperr.KindValidation, "nil stream message")
	}
	ts, err := c.ParseTimestamp(msg.Timestamp)
	if err != nil {
		c.reject()
		return err
	}

	start := time.Now()

	c.mu.Lock()
	point := models.TrendPoint{Timestamp: ts}
	for _, ch := range c.channels {
		v := channelValue(ch.meta.ID, msg)
		point.Value = v
		ch.trend.Push(point)
		ch.value = v
		ch.status = channelStatus(ch.meta.ID, msg)
	}

	fromModel := msg.Prediction != nil && msg.Prediction.IsAttack
	attack := msg.Label.IsAttack() || fromModel
	var event *models.AnomalyEvent
	if c.detector.Observe(attack) {
		ev := newAnomalyEvent(msg, ts, fromModel)
		c.events.Push(ev)
		c.eventCount++
		event = &ev
	}

	c.heatmap.add(ts, msg)

	c.currentTS = &ts
	c.currentIndex = msg.Index
	c.messages++
	c.version++
	buckets := c.heatmap.Len()
	c.mu.Unlock()

	c.metrics.IncCounter(observability.MessagesIngested, 1)
	c.metrics.SetGauge(observability.HeatmapBuckets, float64(buckets))
	c.metrics.ObserveLatency(observability.FoldLatency, time.Since(start).Seconds())
	if event != nil {
		c.metrics.IncCounter(observability.AnomalyEvents, 1)
		logger.Infof("[EVENT] %s severity=%s index=%d", event.Message, event.Severity, msg.Index)
	}
	if c.logMessages {
		logger.Debugf("[STREAM] folded index=%d ts=%s sensors=%d attack=%t", msg.Index, msg.Timestamp, len(msg.Sensors), attack)
	}
	return nil
}

func (c *Console) reject() {
	c.mu.Lock()
	c.malformed++
	c.mu.Unlock()
	c.metrics.IncCounter(observability.MessagesMalformed, 1)
}

// ParseTimestamp accepts ISO-8601 with or without zone; zone-less values are
// read in the console's bucket timezone.
func (c *Console) ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if ts, err := time.ParseInLocation(layout, s, c.loc); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, apperr.Errorf(apperr.KindValidation, "unparsable timestamp %q", s)
}

func channelValue(id string, msg *models.StreamMessage) float64 {
	if id == AnomalyScoreChannel {
		return msg.Prediction.Score()
	}
	return msg.Sensors[id].Float()
}

func channelStatus(id string, msg *models.StreamMessage) models.SensorStatus {
	if msg.Prediction != nil {
		if flag, ok := msg.Prediction.PerFeatureFlag[id]; ok && flag.Valid() {
			return flag
		}
	}
	if id != AnomalyScoreChannel {
		return models.StatusNormal
	}
	switch score := msg.Prediction.Score(); {
	case score > criticalScore:
		return models.StatusCritical
	case score > warningScore:
		return models.StatusWarning
	default:
		return models.StatusNormal
	}
}

// trendDirection compares the newest value with the mean of the last
// directionWindow points.
func trendDirection(trend []models.TrendPoint) models.TrendDirection {
	if len(trend) == 0 {
		return models.TrendFlat
	}
	window := trend
	if len(window) > directionWindow {
		window = window[len(window)-directionWindow:]
	}
	var sum float64
	for _, p := range window {
		sum += p.Value
	}
	avg := sum / float64(len(window))
	current := trend[len(trend)-1].Value
	switch {
	case current > avg*directionUp:
		return models.TrendUp
	case current < avg*directionDown:
		return models.TrendDown
	default:
		return models.TrendFlat
	}
}

func (ch *channelState) series() models.SensorSeries {
	trend := ch.trend.Items()
	if trend == nil {
		trend = []models.TrendPoint{}
	}
	return models.SensorSeries{
		ID:        ch.meta.ID,
		Name:      ch.meta.Name,
		Unit:      ch.meta.Unit,
		Value:     ch.value,
		Trend:     trend,
		Status:    ch.status,
		Direction: trendDirection(trend),
	}
}

// Snapshot returns a deep copy of every view model.
func (c *Console) Snapshot() models.Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	snap := models.Snapshot{
		Sensors:      c.sensorsLocked(),
		Events:       c.eventsLocked(""),
		Heatmap:      c.heatmap.cells(),
		CurrentIndex: c.currentIndex,
		AttackState:  c.detector.State(),
		Messages:     c.messages,
		Version:      c.version,
	}
	if c.currentTS != nil {
		ts := *c.currentTS
		snap.CurrentTimestamp = &ts
	}
	return snap
}

// Sensors returns every tracked channel in configured order.
func (c *Console) Sensors() []models.SensorSeries {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sensorsLocked()
}

func (c *Console) sensorsLocked() []models.SensorSeries {
	out := make([]models.SensorSeries, 0, len(c.channels))
	for _, ch := range c.channels {
		out = append(out, ch.series())
	}
	return out
}

// Sensor returns one channel by id.
func (c *Console) Sensor(id string) (models.SensorSeries, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ch, ok := c.byID[id]
	if !ok {
		return models.SensorSeries{}, apperr.Errorf(apperr.KindNotFound, "unknown sensor %q", id)
	}
	return ch.series(), nil
}

// Events returns the event log newest first, optionally filtered by severity.
func (c *Console) Events(severity models.Severity) []models.AnomalyEvent {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.eventsLocked(severity)
}

func (c *Console) eventsLocked(severity models.Severity) []models.AnomalyEvent {
	out := make([]models.AnomalyEvent, 0, c.events.Len())
	for _, ev := range c.events.Reversed() {
		if severity == "" || ev.Severity == severity {
			out = append(out, ev)
		}
	}
	return out
}

// Heatmap returns the flat cell list, oldest bucket first.
func (c *Console) Heatmap() []models.HeatmapCell {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.heatmap.cells()
}

// HeatmapGrid returns the sensor x time matrix.
func (c *Console) HeatmapGrid() models.HeatmapGrid {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.heatmap.grid()
}

// Version increments on every folded message.
func (c *Console) Version() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.version
}

// Stats returns the fold counters.
func (c *Console) Stats() ConsoleStats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return ConsoleStats{
		Messages:  c.messages,
		Malformed: c.malformed,
		Events:    c.eventCount,
		Alerting:  c.detector.State() == models.AttackAlerting,
		Buckets:   c.heatmap.Len(),
		Version:   c.version,
	}
}
