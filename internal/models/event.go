package models

import "time"

// Severity grades an anomaly event.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// AnomalyEvent is created once at the onset of an attack window.
type AnomalyEvent struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Severity  Severity  `json:"severity"`
	Message   string    `json:"message"`
	Sensor    string    `json:"sensor"`
	Value     float64   `json:"value"`
}
