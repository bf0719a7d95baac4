package models

// PlaybackState mirrors the backend replay mode. It is optimistic and may
// drift from the backend until the next successful command.
type PlaybackState struct {
	Speed     float64 `json:"speed"`
	IsPlaying bool    `json:"is_playing"`
}

// BackendStatus is the payload of the backend's GET /status.
type BackendStatus struct {
	Playing      bool    `json:"playing"`
	Speed        float64 `json:"speed"`
	Direction    int     `json:"direction"`
	CurrentIndex int64   `json:"current_index"`
	TotalRows    int64   `json:"total_rows"`
}
