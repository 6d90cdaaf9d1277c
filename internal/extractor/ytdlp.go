package extractor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/pavelc4/mediaq-bot/internal/media"
	"github.com/pavelc4/mediaq-bot/pkg/logger"
)

const (
	VideoFormat = "bestvideo[height<=1080]+bestaudio/best[height<=1080]/bestvideo+bestaudio/best"
	AudioFormat = "bestaudio[ext=m4a]/bestaudio/best"
)

type Info struct {
	Title           string
	SizeBytes       int64
	DurationSeconds float64
}

type Options struct {
	// Template is the yt-dlp output template, see workdir.Template.
	Template string
	Format   string
	// AudioCodec, when set, extracts audio and converts it (e.g. "mp3").
	AudioCodec string
}

type runFunc func(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error)

func execRun(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.Bytes(), stderr.Bytes(), err
}

// YtDlp drives the yt-dlp binary. It is the extraction collaborator for
// size probing and direct fetches.
type YtDlp struct {
	binary  string
	cookies string
	run     runFunc
	lookup  func(string) (string, error)
}

func New(binary, cookies string) *YtDlp {
	if binary == "" {
		binary = "yt-dlp"
	}
	return &YtDlp{
		binary:  binary,
		cookies: cookies,
		run:     execRun,
		lookup:  exec.LookPath,
	}
}

func (y *YtDlp) Available() bool {
	_, err := y.lookup(y.binary)
	return err == nil
}

func (y *YtDlp) baseArgs() []string {
	args := []string{
		"--no-playlist",
		"--no-warnings",
		"--no-progress",
		"--no-mtime",
		"--retries", "3",
		"--fragment-retries", "3",
	}
	if y.cookies != "" {
		if _, err := os.Stat(y.cookies); err == nil {
			args = append(args, "--cookies", y.cookies)
		} else {
			logger.Warn("Cookies file not found", "path", y.cookies)
		}
	}
	return args
}

type ytdlpMeta struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Ext         string  `json:"ext"`
	Duration    float64 `json:"duration"`
	FileSize    int64   `json:"filesize,omitempty"`
	FileSizeApp int64   `json:"filesize_approx,omitempty"`
	TBR         float64 `json:"tbr,omitempty"`
}

// ProbeSize asks yt-dlp for metadata without downloading. A size of 0 means
// the extractor could not tell.
func (y *YtDlp) ProbeSize(ctx context.Context, url string) (*Info, error) {
	if !y.Available() {
		return nil, media.Unavailable("extractor", "yt-dlp binary not found")
	}

	args := append(y.baseArgs(), "--dump-json", "--skip-download", "-f", VideoFormat, url)
	stdout, stderr, err := y.run(ctx, y.binary, args...)
	if err != nil {
		return nil, y.classify(ctx, err, stderr)
	}

	var meta ytdlpMeta
	if err := json.Unmarshal(stdout, &meta); err != nil {
		return nil, media.Fail("extractor", media.KindUnknown, "decode metadata: %v", err)
	}

	size := meta.FileSize
	if size == 0 {
		size = meta.FileSizeApp
	}
	if size == 0 && meta.TBR > 0 && meta.Duration > 0 {
		size = int64(meta.TBR * 1000 * meta.Duration / 8)
	}

	return &Info{Title: meta.Title, SizeBytes: size, DurationSeconds: meta.Duration}, nil
}

// Fetch downloads url according to opts and returns the final file path.
func (y *YtDlp) Fetch(ctx context.Context, url string, opts Options) (string, error) {
	if !y.Available() {
		return "", media.Unavailable("extractor", "yt-dlp binary not found")
	}
	if opts.Template == "" {
		return "", errors.New("extractor: output template required")
	}

	format := opts.Format
	if format == "" {
		format = VideoFormat
	}

	args := append(y.baseArgs(), "-f", format, "-o", opts.Template, "--print", "after_move:filepath")
	if opts.AudioCodec != "" {
		args = append(args, "-x", "--audio-format", opts.AudioCodec)
	} else {
		args = append(args, "--merge-output-format", "mp4")
	}
	args = append(args, url)

	stdout, stderr, err := y.run(ctx, y.binary, args...)
	if err != nil {
		return "", y.classify(ctx, err, stderr)
	}

	path := lastLine(stdout)
	if path == "" {
		return "", media.Fail("extractor", media.KindUnknown, "yt-dlp reported no output file")
	}
	return path, nil
}

func (y *YtDlp) classify(ctx context.Context, err error, stderr []byte) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return &media.RetrievalError{Kind: media.KindTimeout, Message: "yt-dlp timed out", Strategy: "extractor", Err: err}
	}
	msg := strings.TrimSpace(string(stderr))
	if msg == "" {
		msg = err.Error()
	}
	if idx := strings.LastIndex(msg, "ERROR:"); idx != -1 {
		msg = strings.TrimSpace(msg[idx+len("ERROR:"):])
	}
	return &media.RetrievalError{
		Kind:     media.ClassifyMessage(msg),
		Message:  fmt.Sprintf("yt-dlp failed: %s", msg),
		Strategy: "extractor",
		Err:      err,
	}
}

func lastLine(b []byte) string {
	lines := strings.Split(strings.TrimSpace(string(b)), "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}
