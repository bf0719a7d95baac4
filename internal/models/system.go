package models

import "time"

// ProcessDiagnostics describes the console's own process.
type ProcessDiagnostics struct {
	PID        int32   `json:"pid"`
	CPUPercent float64 `json:"cpu_percent"`
	MemPercent float32 `json:"mem_percent"`
	RSSMB      float64 `json:"rss_mb"`
	Threads    int32   `json:"threads"`
	Goroutines int     `json:"goroutines"`
}

// HostDiagnostics describes the machine the console runs on.
type HostDiagnostics struct {
	CPUPercent      float64 `json:"cpu_percent"`
	CoreCount       int     `json:"core_count"`
	MemTotalGB      float64 `json:"mem_total_gb"`
	MemUsedPercent  float64 `json:"mem_used_percent"`
	Load1           float64 `json:"load1"`
	UptimeSeconds   uint64  `json:"uptime_seconds"`
	OperatingSystem string  `json:"os"`
	KernelArch      string  `json:"kernel_arch"`
}

// Diagnostics combines process and host readings with the feed state.
type Diagnostics struct {
	Process     *ProcessDiagnostics `json:"process"`
	Host        *HostDiagnostics    `json:"host"`
	Connected   bool                `json:"stream_connected"`
	Clients     int                 `json:"ws_clients"`
	CollectedAt time.Time           `json:"collected_at"`
}
