package messaging

import (
	"fmt"
	"strings"
	"time"
)

func FormatBytes(b uint64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%d B", b)
	}
	div, exp := int64(unit), 0
	val := int64(b)
	for n := val / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.2f %cB", float64(val)/float64(div), "KMGTPE"[exp])
}

func FormatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second
	if h > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}

const barWidth = 12

// ProgressBar renders fraction (clamped to [0,1]) as a fixed-width bar.
func ProgressBar(fraction float64) string {
	fraction = max(0, min(1, fraction))
	filled := int(fraction * barWidth)
	return strings.Repeat("■", filled) + strings.Repeat("□", barWidth-filled)
}
