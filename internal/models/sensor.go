package models

import "time"

// SensorStatus is the operator-facing health level of a channel.
type SensorStatus string

const (
	StatusNormal   SensorStatus = "normal"
	StatusWarning  SensorStatus = "warning"
	StatusCritical SensorStatus = "critical"
)

// Valid reports whether s is one of the three known levels.
func (s SensorStatus) Valid() bool {
	switch s {
	case StatusNormal, StatusWarning, StatusCritical:
		return true
	}
	return false
}

// TrendDirection summarises the latest value against recent history.
type TrendDirection string

const (
	TrendUp   TrendDirection = "up"
	TrendDown TrendDirection = "down"
	TrendFlat TrendDirection = "flat"
)

// TrendPoint is a single sample in a channel's trend.
type TrendPoint struct {
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value"`
}

// ChannelMeta identifies a tracked telemetry channel.
type ChannelMeta struct {
	ID   string `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
	Unit string `json:"unit" yaml:"unit"`
}

// SensorSeries is the renderable view of one channel.
type SensorSeries struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Unit      string         `json:"unit"`
	Value     float64        `json:"value"`
	Trend     []TrendPoint   `json:"trend"` // oldest first
	Status    SensorStatus   `json:"status"`
	Direction TrendDirection `json:"direction"`
}
