package workdir

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pavelc4/mediaq-bot/internal/media"
	"github.com/pavelc4/mediaq-bot/pkg/logger"
)

// Dir owns the transient files of every job. All names start with the job's
// WorkName so one glob finds everything a job left behind.
type Dir struct {
	root string
}

func New(root string) (*Dir, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve download dir: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create download dir: %w", err)
	}
	return &Dir{root: abs}, nil
}

func (d *Dir) Root() string {
	return d.root
}

// Path returns <root>/<workname>.<ext>.
func (d *Dir) Path(job media.Job, ext string) string {
	ext = strings.TrimPrefix(ext, ".")
	if ext == "" {
		ext = "bin"
	}
	return filepath.Join(d.root, job.WorkName()+"."+ext)
}

// Template is the yt-dlp output template for the job.
func (d *Dir) Template(job media.Job) string {
	return filepath.Join(d.root, job.WorkName()+".%(ext)s")
}

func (d *Dir) Files(job media.Job) []string {
	matches, err := filepath.Glob(filepath.Join(d.root, job.WorkName()+"*"))
	if err != nil {
		return nil
	}
	return matches
}

// Sweep removes every file belonging to job and returns how many were
// deleted.
func (d *Dir) Sweep(job media.Job) int {
	removed := 0
	for _, path := range d.Files(job) {
		if err := os.RemoveAll(path); err != nil {
			logger.Warn("Failed to remove working file", "path", path, "error", err)
			continue
		}
		removed++
	}
	return removed
}

// Remove deletes a single file. Missing files are not an error.
func (d *Dir) Remove(path string) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		logger.Warn("Failed to remove file", "path", path, "error", err)
	}
}

// CleanStale removes entries older than maxAge.
func (d *Dir) CleanStale(ctx context.Context, maxAge time.Duration) int {
	entries, err := os.ReadDir(d.root)
	if err != nil {
		logger.Warn("Failed to list download dir", "dir", d.root, "error", err)
		return 0
	}

	cutoff := time.Now().Add(-maxAge)
	cleaned := 0
	for _, entry := range entries {
		select {
		case <-ctx.Done():
			return cleaned
		default:
		}

		info, err := entry.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		path := filepath.Join(d.root, entry.Name())
		if err := os.RemoveAll(path); err != nil {
			logger.Warn("Failed to remove stale file", "path", path, "error", err)
			continue
		}
		cleaned++
	}
	if cleaned > 0 {
		logger.Info("Stale files cleaned", "count", cleaned)
	}
	return cleaned
}

// RunJanitor sweeps stale files on every tick until ctx is done.
func (d *Dir) RunJanitor(ctx context.Context, interval, maxAge time.Duration) error {
	d.CleanStale(ctx, maxAge)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			d.CleanStale(ctx, maxAge)
		}
	}
}
