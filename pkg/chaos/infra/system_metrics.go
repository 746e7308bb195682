package infra

import (
	"os"
	"time"

	"github.com/joseaugf/cop320-cw/pkg/log"
	"github.com/shirou/gopsutil/v4/process"
)

// SystemMetrics is the snapshot served by the chaos metrics endpoint. The
// resource fields are best effort: a collection failure is logged and the
// field is omitted, never a hard failure.
type SystemMetrics struct {
	Timestamp         string   `json:"timestamp"`
	ActiveSimulations []string `json:"active_simulations"`
	MemoryUsageMB     float64  `json:"memory_usage_mb,omitempty"`
	CPUUsagePercent   float64  `json:"cpu_usage_percent,omitempty"`
	DiskIOReadBytes   uint64   `json:"disk_io_read_bytes,omitempty"`
	DiskIOWriteBytes  uint64   `json:"disk_io_write_bytes,omitempty"`
}

// SystemMetrics reports the current timestamp, the running simulations, and
// the process's resource usage.
func (s *Simulator) SystemMetrics() SystemMetrics {
	snapshot := SystemMetrics{
		Timestamp:         time.Now().UTC().Format(time.RFC3339),
		ActiveSimulations: s.ActiveSimulations(),
	}

	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		log.Warnf("[Chaos]: unable to inspect own process: %v", err)
		return snapshot
	}
	if mem, err := proc.MemoryInfo(); err == nil {
		snapshot.MemoryUsageMB = float64(mem.RSS) / (1024 * 1024)
	} else {
		log.Warnf("[Chaos]: unable to collect memory usage: %v", err)
	}
	if cpu, err := proc.CPUPercent(); err == nil {
		snapshot.CPUUsagePercent = cpu
	} else {
		log.Warnf("[Chaos]: unable to collect cpu usage: %v", err)
	}
	if counters, err := proc.IOCounters(); err == nil {
		snapshot.DiskIOReadBytes = counters.ReadBytes
		snapshot.DiskIOWriteBytes = counters.WriteBytes
	} else {
		log.Warnf("[Chaos]: unable to collect disk io counters: %v", err)
	}
	return snapshot
}
