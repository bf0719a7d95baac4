package models

import (
	"encoding/json"
	"math"
	"strconv"
)

// StreamMessage is one simulated time step pushed by the backend.
type StreamMessage struct {
	Index      int64              `json:"index"`
	Timestamp  string             `json:"timestamp"`
	Sensors    map[string]Reading `json:"sensors"`
	Label      Label              `json:"label"`
	Prediction *Prediction        `json:"prediction"`
}

// Prediction is the model output attached to a message once its window is full.
type Prediction struct {
	AnomalyScore        Reading                 `json:"anomaly_score"`
	IsAttack            bool                    `json:"is_attack"`
	PerFeatureError     map[string]float64      `json:"per_feature_error,omitempty"`
	PerFeatureZ         map[string]float64      `json:"per_feature_z,omitempty"`
	PerFeatureFlag      map[string]SensorStatus `json:"per_feature_flag,omitempty"`
	PerFeatureIntensity map[string]float64      `json:"per_feature_intensity,omitempty"`
}

// Score returns the anomaly score, or 0 when there is no usable prediction.
func (p *Prediction) Score() float64 {
	if p == nil {
		return 0
	}
	return p.AnomalyScore.Float()
}

// Reading is a scalar that tolerates null, strings and other non-numeric
// JSON. Anything that is not a finite number reads as 0.
type Reading struct {
	Value float64
	Valid bool
}

// NewReading builds a valid reading.
func NewReading(v float64) Reading {
	return Reading{Value: v, Valid: !math.IsNaN(v) && !math.IsInf(v, 0)}
}

// Float returns the value, or 0 for an invalid reading.
func (r Reading) Float() float64 {
	if !r.Valid || math.IsNaN(r.Value) || math.IsInf(r.Value, 0) {
		return 0
	}
	return r.Value
}

func (r *Reading) UnmarshalJSON(data []byte) error {
	*r = Reading{}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		// null, strings, objects: recorded as a missing reading
		return nil
	}
	*r = NewReading(f)
	return nil
}

func (r Reading) MarshalJSON() ([]byte, error) {
	if !r.Valid {
		return []byte("null"), nil
	}
	return []byte(strconv.FormatFloat(r.Value, 'g', -1, 64)), nil
}

// Label is the ground-truth column, which the backend sends as a number,
// a string, or null.
type Label struct {
	raw json.RawMessage
}

// NewLabel wraps a Go value as a label; used by the simulated feed and tests.
func NewLabel(v any) Label {
	b, err := json.Marshal(v)
	if err != nil {
		return Label{}
	}
	return Label{raw: b}
}

func (l *Label) UnmarshalJSON(data []byte) error {
	l.raw = append(l.raw[:0], data...)
	return nil
}

func (l Label) MarshalJSON() ([]byte, error) {
	if len(l.raw) == 0 {
		return []byte("null"), nil
	}
	return l.raw, nil
}

// IsAttack reports whether the label marks an attack row. Only the exact
// string "attack" counts; numeric and other string labels never do.
func (l Label) IsAttack() bool {
	var s string
	if err := json.Unmarshal(l.raw, &s); err != nil {
		return false
	}
	return s == "attack"
}
