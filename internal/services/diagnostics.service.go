package services

import (
	"os"
	"runtime"
	"time"

	"twinconsole/internal/models"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/load"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"
)

// GetProcessDiagnostics reads CPU and memory usage of the console process
func GetProcessDiagnostics() (*models.ProcessDiagnostics, error) {
	pid := int32(os.Getpid())
	proc, err := process.NewProcess(pid)
	if err != nil {
		return nil, err
	}

	cpuPercent, err := proc.CPUPercent()
	if err != nil {
		return nil, err
	}
	memPercent, err := proc.MemoryPercent()
	if err != nil {
		return nil, err
	}

	diag := &models.ProcessDiagnostics{
		PID:        pid,
		CPUPercent: cpuPercent,
		MemPercent: memPercent,
		Goroutines: runtime.NumGoroutine(),
	}
	if info, err := proc.MemoryInfo(); err == nil {
		diag.RSSMB = float64(info.RSS) / 1024 / 1024
	}
	if threads, err := proc.NumThreads(); err == nil {
		diag.Threads = threads
	}
	return diag, nil
}

// GetHostDiagnostics reads host-wide CPU, memory, load and uptime
func GetHostDiagnostics() (*models.HostDiagnostics, error) {
	percentage, err := cpu.Percent(0, false)
	if err != nil {
		return nil, err
	}
	coreCount, err := cpu.Counts(true)
	if err != nil {
		return nil, err
	}
	virtualMemory, err := mem.VirtualMemory()
	if err != nil {
		return nil, err
	}

	diag := &models.HostDiagnostics{
		CoreCount:      coreCount,
		MemTotalGB:     float64(virtualMemory.Total) / 1024 / 1024 / 1024,
		MemUsedPercent: virtualMemory.UsedPercent,
	}
	if len(percentage) > 0 {
		diag.CPUPercent = percentage[0]
	}

	// load average is unsupported on some platforms
	if avg, err := load.Avg(); err == nil {
		diag.Load1 = avg.Load1
	}
	if info, err := host.Info(); err == nil {
		diag.UptimeSeconds = info.Uptime
		diag.OperatingSystem = info.OS
		diag.KernelArch = info.KernelArch
	}
	return diag, nil
}

// DiagnosticsService caches diagnostics reads; gopsutil calls can take
// hundreds of milliseconds.
type DiagnosticsService struct {
	cache     *TTLCache[models.Diagnostics]
	connected func() bool
	clients   func() int
}

// NewDiagnosticsService creates the service. connected and clients may be nil.
func NewDiagnosticsService(ttl time.Duration, connected func() bool, clients func() int) *DiagnosticsService {
	if connected == nil {
		connected = func() bool { return false }
	}
	if clients == nil {
		clients = func() int { return 0 }
	}
	return &DiagnosticsService{
		cache:     NewTTLCache[models.Diagnostics](ttl),
		connected: connected,
		clients:   clients,
	}
}

// Get returns cached diagnostics, refreshing when stale. Process or host
// readings that fail are omitted rather than failing the whole call.
func (d *DiagnosticsService) Get() (models.Diagnostics, error) {
	diag, err := d.cache.Get(func() (models.Diagnostics, error) {
		out := models.Diagnostics{CollectedAt: time.Now()}
		out.Process, _ = GetProcessDiagnostics()
		out.Host, _ = GetHostDiagnostics()
		return out, nil
	})
	if err != nil {
		return diag, err
	}
	// live fields are never cached
	diag.Connected = d.connected()
	diag.Clients = d.clients()
	return diag, nil
}
