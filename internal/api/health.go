package api

import (
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/process"
)

// HealthReport - состояние процесса для /health
type HealthReport struct {
	Status      string  `json:"status"`
	Uptime      string  `json:"uptime"`
	Goroutines  int     `json:"goroutines"`
	AllocMB     float64 `json:"alloc_mb"`
	RSSMB       float64 `json:"rss_mb,omitempty"`
	CPUPercent  float64 `json:"cpu_percent"`
	SystemCPU   float64 `json:"system_cpu_percent"`
	Connections int     `json:"connections"`
	QueuedOps   int     `json:"queued_operations"`
	Containers  int     `json:"containers"`
}

// hostStats снимает показатели процесса через gopsutil
type hostStats struct {
	startTime time.Time
	proc      *process.Process
}

func newHostStats() *hostStats {
	hs := &hostStats{startTime: time.Now()}
	if proc, err := process.NewProcess(int32(os.Getpid())); err == nil {
		hs.proc = proc
	}
	return hs
}

// uptime форматирует время работы сервера
func (hs *hostStats) uptime() string {
	uptime := time.Since(hs.startTime)

	days := int(uptime.Hours()) / 24
	hours := int(uptime.Hours()) % 24
	minutes := int(uptime.Minutes()) % 60
	seconds := int(uptime.Seconds()) % 60

	switch {
	case days > 0:
		return fmt.Sprintf("%dд %dч %dм %dс", days, hours, minutes, seconds)
	case hours > 0:
		return fmt.Sprintf("%dч %dм %dс", hours, minutes, seconds)
	case minutes > 0:
		return fmt.Sprintf("%dм %dс", minutes, seconds)
	default:
		return fmt.Sprintf("%dс", seconds)
	}
}

// fill заполняет показатели процесса; ошибки gopsutil не критичны
func (hs *hostStats) fill(r *HealthReport) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	r.Uptime = hs.uptime()
	r.Goroutines = runtime.NumGoroutine()
	r.AllocMB = float64(m.Alloc) / 1024 / 1024

	// Интервал 0: процент с момента предыдущего вызова, без ожидания
	if percents, err := cpu.Percent(0, false); err == nil && len(percents) > 0 {
		r.SystemCPU = percents[0]
	}

	if hs.proc == nil {
		return
	}
	if pct, err := hs.proc.CPUPercent(); err == nil {
		r.CPUPercent = pct
	}
	if mem, err := hs.proc.MemoryInfo(); err == nil && mem != nil {
		r.RSSMB = float64(mem.RSS) / 1024 / 1024
	}
}
