package stats

import (
	"os"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/load"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/net"
	"github.com/shirou/gopsutil/v3/process"
)

// SystemInfo gathers host and process figures for /stats. Probes that fail
// leave their fields zero.
func (r *Recorder) SystemInfo(diskPath string) *SystemInfo {
	info := &SystemInfo{}

	if hostInfo, err := host.Info(); err == nil {
		info.OS = hostInfo.OS
		info.Hostname = hostInfo.Hostname
		info.SystemUptime = time.Duration(hostInfo.Uptime) * time.Second
	}

	if percent, err := cpu.Percent(time.Second, false); err == nil && len(percent) > 0 {
		info.CPUUsage = percent[0]
	}
	info.CPUCores = runtime.NumCPU()

	if avg, err := load.Avg(); err == nil {
		info.Load1, info.Load5, info.Load15 = avg.Load1, avg.Load5, avg.Load15
	}

	if memInfo, err := mem.VirtualMemory(); err == nil {
		info.MemUsed = memInfo.Used
		info.MemTotal = memInfo.Total
		info.MemPercent = memInfo.UsedPercent
		info.MemAvailable = memInfo.Available
	}

	if diskPath == "" {
		diskPath = "/"
	}
	if usage, err := disk.Usage(diskPath); err == nil {
		info.DiskUsed = usage.Used
		info.DiskTotal = usage.Total
		info.DiskPercent = usage.UsedPercent
		info.DiskFree = usage.Free
	}

	if counters, err := net.IOCounters(false); err == nil && len(counters) > 0 {
		info.NetSent = counters[0].BytesSent - min(r.netSentBaseline, counters[0].BytesSent)
		info.NetRecv = counters[0].BytesRecv - min(r.netRecvBaseline, counters[0].BytesRecv)
	}

	if proc, err := process.NewProcess(int32(os.Getpid())); err == nil {
		if percent, err := proc.CPUPercent(); err == nil {
			info.ProcessCPU = percent
		}
		if memInfo, err := proc.MemoryInfo(); err == nil {
			info.ProcessMem = memInfo.RSS
		}
	}

	info.ProcessPID = os.Getpid()
	info.ProcessUptime = time.Since(r.startTime)

	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	info.GoVersion = runtime.Version()
	info.Goroutines = runtime.NumGoroutine()
	info.HeapAlloc = m.Alloc
	info.StackInUse = m.StackInuse
	info.NextGC = m.NextGC
	info.PauseTotal = time.Duration(m.PauseTotalNs)
	info.GCRuns = m.NumGC

	return info
}
