package models

import "time"

// AttackState is the edge detector's state.
type AttackState string

const (
	AttackQuiet    AttackState = "quiet"
	AttackAlerting AttackState = "alerting"
)

// Snapshot is a read-only copy of every view model at one instant.
type Snapshot struct {
	Sensors          []SensorSeries `json:"sensors"`
	Events           []AnomalyEvent `json:"events"` // newest first
	Heatmap          []HeatmapCell  `json:"heatmap"`
	CurrentTimestamp *time.Time     `json:"current_timestamp"`
	CurrentIndex     int64          `json:"current_index"`
	AttackState      AttackState    `json:"attack_state"`
	Messages         uint64         `json:"messages"`
	Version          uint64         `json:"version"`
}
