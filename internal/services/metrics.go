package services

import (
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"
)

// HostSample is a snapshot of the machine and of this process.
type HostSample struct {
	CapturedAt        time.Time     `json:"capturedAt"`
	ProcessRSSBytes   int64         `json:"processRssBytes"`
	Goroutines        int           `json:"goroutines"`
	SystemMemoryTotal int64         `json:"systemMemoryTotalBytes"`
	SystemMemoryUsed  int64         `json:"systemMemoryUsedBytes"`
	DiskTotalBytes    int64         `json:"diskTotalBytes"`
	DiskUsedBytes     int64         `json:"diskUsedBytes"`
	ProcessCPULoad    float64       `json:"processCpuLoad"`
	SystemCPULoad     float64       `json:"systemCpuLoad"`
	HostUptime        time.Duration `json:"hostUptime"`
}

// CaptureHostMetrics never fails: probes that error leave their fields zero.
func CaptureHostMetrics(diskPath string) HostSample {
	sample := HostSample{
		CapturedAt: time.Now().UTC(),
		Goroutines: runtime.NumGoroutine(),
	}
	if memStat, err := mem.VirtualMemory(); err == nil && memStat != nil {
		sample.SystemMemoryTotal = int64(memStat.Total)
		sample.SystemMemoryUsed = int64(memStat.Total - memStat.Available)
	}
	diskStat, err := disk.Usage(diskPath)
	if err != nil {
		diskStat, err = disk.Usage("/")
	}
	if err == nil && diskStat != nil {
		sample.DiskTotalBytes = int64(diskStat.Total)
		sample.DiskUsedBytes = int64(diskStat.Used)
	}
	if proc, err := process.NewProcess(int32(os.Getpid())); err == nil {
		if rss, err := proc.MemoryInfo(); err == nil && rss != nil {
			sample.ProcessRSSBytes = int64(rss.RSS)
		}
		if perc, err := proc.CPUPercent(); err == nil {
			sample.ProcessCPULoad = perc / 100.0
		}
	}
	if sysCPU, err := cpu.Percent(0, false); err == nil && len(sysCPU) > 0 {
		sample.SystemCPULoad = sysCPU[0] / 100.0
	}
	if secs, err := host.Uptime(); err == nil {
		sample.HostUptime = time.Duration(secs) * time.Second
	}
	return sample
}

// Summary renders the sample as a single syslog line.
func (s HostSample) Summary() string {
	return fmt.Sprintf("heartbeat cpu=%.1f%% mem=%s/%s disk=%s/%s rss=%s goroutines=%d",
		s.SystemCPULoad*100,
		FormatBytes(s.SystemMemoryUsed), FormatBytes(s.SystemMemoryTotal),
		FormatBytes(s.DiskUsedBytes), FormatBytes(s.DiskTotalBytes),
		FormatBytes(s.ProcessRSSBytes), s.Goroutines)
}

func FormatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%dB", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f%ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
