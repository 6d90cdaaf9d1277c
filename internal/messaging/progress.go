package messaging

import (
	"fmt"
	"html"
	"time"

	"github.com/pavelc4/mediaq-bot/internal/media"
)

const (
	StatusDetecting = "🔎 Detecting..."
	StatusDone      = "✅ <b>Upload complete</b>"
)

var categoryIcons = map[media.Category]string{
	media.CategoryVideo:   "🎥",
	media.CategorySocial:  "📱",
	media.CategoryMusic:   "🎵",
	media.CategoryGeneric: "📦",
}

func icon(c media.Category) string {
	if i, ok := categoryIcons[c]; ok {
		return i
	}
	return "📦"
}

func source(job media.Job) string {
	if job.Platform != "" {
		return job.Platform
	}
	return string(job.Category)
}

func QueuedStatus(position int) string {
	return fmt.Sprintf("🕒 <b>Queued</b>\n└ Position : <code>%d</code>", position)
}

func DownloadingStatus(job media.Job) string {
	return fmt.Sprintf("%s <b>Download</b>\n┌ Status : <code>Downloading...</code>\n└ Source : <code>%s</code>",
		icon(job.Category), html.EscapeString(source(job)))
}

// UploadProgress is the status shown while the file is sent back to the chat.
func UploadProgress(title string, current, total int64, elapsed time.Duration) string {
	title = truncate(title, 40)

	var fraction float64
	if total > 0 {
		fraction = float64(current) / float64(total)
	}
	speed := "-"
	if secs := elapsed.Seconds(); secs > 0 && current > 0 {
		speed = FormatBytes(uint64(float64(current)/secs)) + "/s"
	}

	return fmt.Sprintf(
		"📤 <b>%s</b>\n"+
			"┌ Status : <code>Uploading...</code>\n"+
			"├ [<code>%s</code>] %.0f%%\n"+
			"├ Size : <code>%s</code>\n"+
			"├ Sent : <code>%s</code>\n"+
			"├ Speed : <code>%s</code>\n"+
			"└ Time : <code>%s</code>",
		html.EscapeString(title),
		ProgressBar(fraction),
		fraction*100,
		FormatBytes(uint64(max(total, 0))),
		FormatBytes(uint64(max(current, 0))),
		speed,
		FormatDuration(elapsed),
	)
}
