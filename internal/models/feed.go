package models

import "time"

// FeedSample is a periodic health reading of the ingestion feed.
type FeedSample struct {
	Timestamp     time.Time `json:"timestamp"`
	Connected     bool      `json:"connected"`
	Messages      uint64    `json:"messages"`
	Malformed     uint64    `json:"malformed"`
	MessageRate   float64   `json:"message_rate"` // messages/sec since previous sample
	Events        uint64    `json:"events"`
	Alerting      bool      `json:"alerting"`
	HeatmapBucket int       `json:"heatmap_buckets"`
}
