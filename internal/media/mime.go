package media

import (
	"path/filepath"
	"strings"
)

var mimeTypes = map[string]string{
	".mp4":  "video/mp4",
	".webm": "video/webm",
	".mkv":  "video/x-matroska",
	".mov":  "video/quicktime",
	".mp3":  "audio/mpeg",
	".m4a":  "audio/mp4",
	".ogg":  "audio/ogg",
	".wav":  "audio/wav",
	".opus": "audio/opus",
	".flac": "audio/flac",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
}

func MimeType(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if idx := strings.Index(ext, "?"); idx != -1 {
		ext = ext[:idx]
	}
	if mime, ok := mimeTypes[ext]; ok {
		return mime
	}
	return "application/octet-stream"
}

func IsVideo(filename string) bool {
	return strings.HasPrefix(MimeType(filename), "video/")
}

func IsAudio(filename string) bool {
	return strings.HasPrefix(MimeType(filename), "audio/")
}

// ExtFromMime is the inverse lookup used when an upstream only reports a
// content type. Unknown types map to fallback.
func ExtFromMime(mime, fallback string) string {
	mime = strings.ToLower(strings.TrimSpace(strings.SplitN(mime, ";", 2)[0]))
	switch mime {
	case "video/mp4":
		return "mp4"
	case "video/webm":
		return "webm"
	case "audio/mpeg":
		return "mp3"
	case "audio/mp4":
		return "m4a"
	case "audio/ogg":
		return "ogg"
	case "image/jpeg":
		return "jpg"
	case "image/png":
		return "png"
	}
	return fallback
}
