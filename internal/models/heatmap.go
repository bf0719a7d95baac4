package models

// HeatmapCell is one (sensor, 30s bucket) intensity sample.
type HeatmapCell struct {
	Sensor  string       `json:"sensor"`
	Time    string       `json:"time"`  // bucket label, HH:MM:SS
	Value   float64      `json:"value"` // 0-1
	Anomaly bool         `json:"anomaly"`
	ZScore  *float64     `json:"z_score,omitempty"`
	Error   *float64     `json:"error,omitempty"` // reconstruction error
	Flag    SensorStatus `json:"flag,omitempty"`
}

// HeatmapGrid is the sensor x time matrix a heatmap renderer draws.
type HeatmapGrid struct {
	Sensors   []string                      `json:"sensors"`
	Times     []string                      `json:"times"`
	Values    map[string]map[string]float64 `json:"values"`
	Anomalies map[string]map[string]bool    `json:"anomalies"`
}
