package messaging

import (
	"fmt"
	"html"
	"sort"
	"strings"
	"time"

	"github.com/pavelc4/mediaq-bot/internal/admission"
	"github.com/pavelc4/mediaq-bot/internal/stats"
)

func StatsText(sys *stats.SystemInfo, jobs stats.Snapshot, queue admission.Snapshot) string {
	var b strings.Builder

	slot := "idle"
	if queue.Held {
		slot = "busy"
	}
	fmt.Fprintf(&b, "<b>Queue</b>\n"+
		"├ Slot : <code>%s</code>\n"+
		"└ Waiting : <code>%d / %d</code>\n\n",
		slot, queue.Queued, queue.Max)

	fmt.Fprintf(&b, "<b>Jobs</b>\n"+
		"├ Total : <code>%d</code>\n"+
		"├ Avg Time : <code>%s</code>\n",
		jobs.Total, FormatDuration(jobs.AvgDuration))
	writeCounts(&b, "State", jobs.ByState)
	writeCounts(&b, "Category", jobs.ByCategory)
	b.WriteString("\n")

	fmt.Fprintf(&b,
		"<b>System</b>\n"+
			"├ OS : <code>%s</code>\n"+
			"├ Host : <code>%s</code>\n"+
			"├ Uptime : <code>%s</code>\n"+
			"├ CPU : <code>%d cores, %.2f%%</code>\n"+
			"├ Load : <code>%.2f %.2f %.2f</code>\n"+
			"├ Memory : <code>%s / %s (%.1f%%)</code>\n"+
			"├ Disk : <code>%s / %s (%.1f%%)</code>\n"+
			"└ Network : <code>↑ %s ↓ %s</code>\n\n",
		html.EscapeString(sys.OS),
		html.EscapeString(sys.Hostname),
		sys.SystemUptime.Round(time.Second),
		sys.CPUCores, sys.CPUUsage,
		sys.Load1, sys.Load5, sys.Load15,
		FormatBytes(sys.MemUsed), FormatBytes(sys.MemTotal), sys.MemPercent,
		FormatBytes(sys.DiskUsed), FormatBytes(sys.DiskTotal), sys.DiskPercent,
		FormatBytes(sys.NetSent), FormatBytes(sys.NetRecv),
	)

	fmt.Fprintf(&b,
		"<b>Bot Process</b>\n"+
			"├ Uptime : <code>%s</code>\n"+
			"├ PID : <code>%d</code>\n"+
			"├ CPU : <code>%.2f%%</code>\n"+
			"├ Mem : <code>%s</code>\n"+
			"├ Routines : <code>%d</code>\n"+
			"├ Heap : <code>%s</code>\n"+
			"├ GC Runs : <code>%d</code>\n"+
			"└ Go Ver : <code>%s</code>",
		sys.ProcessUptime.Round(time.Second),
		sys.ProcessPID,
		sys.ProcessCPU,
		FormatBytes(sys.ProcessMem),
		sys.Goroutines,
		FormatBytes(sys.HeapAlloc),
		sys.GCRuns,
		sys.GoVersion,
	)
	return b.String()
}

func writeCounts(b *strings.Builder, label string, counts map[string]int64) {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%d", k, counts[k]))
	}
	if len(parts) == 0 {
		parts = append(parts, "-")
	}
	fmt.Fprintf(b, "├ %s : <code>%s</code>\n", label, html.EscapeString(strings.Join(parts, " ")))
}
