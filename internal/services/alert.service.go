package services

import (
	"fmt"
	"time"

	"twinconsole/internal/models"
)

// Severity cut-offs on the anomaly score.
const (
	highSeverityScore   = 0.9
	mediumSeverityScore = 0.75
)

// AttackDetector turns the per-message attack level into onset edges.
// It has two states, quiet and alerting, and a single rule: an attack
// observed while quiet moves to alerting and reports an onset; a non-attack
// observation always returns to quiet.
type AttackDetector struct {
	state models.AttackState
}

// NewAttackDetector starts in the quiet state.
func NewAttackDetector() *AttackDetector {
	return &AttackDetector{state: models.AttackQuiet}
}

// Observe feeds one level sample and reports whether it is an onset.
func (d *AttackDetector) Observe(attack bool) (onset bool) {
	onset = attack && d.state == models.AttackQuiet
	if attack {
		d.state = models.AttackAlerting
	} else {
		d.state = models.AttackQuiet
	}
	return onset
}

// State returns the current state.
func (d *AttackDetector) State() models.AttackState {
	return d.state
}

// ClassifySeverity grades an anomaly score.
func ClassifySeverity(score float64) models.Severity {
	switch {
	case score > highSeverityScore:
		return models.SeverityHigh
	case score > mediumSeverityScore:
		return models.SeverityMedium
	default:
		return models.SeverityLow
	}
}

// newAnomalyEvent builds the log entry for an attack onset.
func newAnomalyEvent(msg *models.StreamMessage, ts time.Time, fromModel bool) models.AnomalyEvent {
	score := msg.Prediction.Score()
	text := "Ground-truth attack segment"
	if fromModel {
		text = fmt.Sprintf("Model detected anomaly (score = %.3f)", score)
	}
	return models.AnomalyEvent{
		ID:        fmt.Sprintf("%d", msg.Index),
		Timestamp: ts,
		Severity:  ClassifySeverity(score),
		Message:   text,
		Sensor:    AnomalyScoreChannel,
		Value:     score,
	}
}
