// Package health reports a point-in-time snapshot of the relay process,
// served by the HTTP layer's health endpoint.
package health

import (
	"runtime"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/cpu"
	"github.com/shirou/gopsutil/mem"
)

// Snapshot is one health probe result.
type Snapshot struct {
	Status        string  `json:"status"`
	UptimeSeconds float64 `json:"uptime_seconds"`
	CPUPercent    float64 `json:"cpu_percent"`
	MemoryPercent float64 `json:"memory_percent"`
	Goroutines    int     `json:"goroutines"`
}

// Monitor produces health snapshots.
type Monitor struct {
	startedAt time.Time
	logger    zerolog.Logger
}

// NewMonitor creates a monitor anchored at the current time.
func NewMonitor(logger zerolog.Logger) *Monitor {
	return &Monitor{startedAt: time.Now(), logger: logger}
}

// Snapshot collects the current process stats. Probe failures degrade the
// affected field to zero rather than failing the whole snapshot.
func (m *Monitor) Snapshot() Snapshot {
	s := Snapshot{
		Status:        "ok",
		UptimeSeconds: time.Since(m.startedAt).Seconds(),
		Goroutines:    runtime.NumGoroutine(),
	}

	if percentages, err := cpu.Percent(0, false); err != nil {
		m.logger.Warn().Err(err).Msg("Failed to get CPU usage")
	} else if len(percentages) > 0 {
		s.CPUPercent = percentages[0]
	}

	if vm, err := mem.VirtualMemory(); err != nil {
		m.logger.Warn().Err(err).Msg("Failed to get memory usage")
	} else {
		s.MemoryPercent = vm.UsedPercent
	}

	return s
}
