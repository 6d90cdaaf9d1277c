package extractor

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pavelc4/mediaq-bot/internal/media"
)

type call struct {
	name string
	args []string
}

func fake(stdout, stderr string, err error) (*YtDlp, *[]call) {
	var calls []call
	y := New("yt-dlp", "")
	y.lookup = func(string) (string, error) { return "/usr/bin/yt-dlp", nil }
	y.run = func(_ context.Context, name string, args ...string) ([]byte, []byte, error) {
		calls = append(calls, call{name, args})
		return []byte(stdout), []byte(stderr), err
	}
	return y, &calls
}

func TestProbeSizeUsesReportedSize(t *testing.T) {
	y, calls := fake(`{"title":"clip","duration":60,"filesize":1234}`, "", nil)

	info, err := y.ProbeSize(context.Background(), "https://youtu.be/x")
	require.NoError(t, err)
	assert.Equal(t, &Info{Title: "clip", SizeBytes: 1234, DurationSeconds: 60}, info)
	assert.Contains(t, (*calls)[0].args, "--dump-json")
}

func TestProbeSizeEstimatesFromBitrate(t *testing.T) {
	y, _ := fake(`{"title":"clip","duration":100,"tbr":800}`, "", nil)

	info, err := y.ProbeSize(context.Background(), "https://youtu.be/x")
	require.NoError(t, err)
	assert.Equal(t, int64(800*1000*100/8), info.SizeBytes)
}

func TestProbeSizeUnknownIsZero(t *testing.T) {
	y, _ := fake(`{"title":"live"}`, "", nil)

	info, err := y.ProbeSize(context.Background(), "https://youtu.be/x")
	require.NoError(t, err)
	assert.Zero(t, info.SizeBytes)
}

func TestFetchReturnsPrintedPath(t *testing.T) {
	y, calls := fake("[info] something\n/tmp/video_abc.mp4\n", "", nil)

	path, err := y.Fetch(context.Background(), "https://youtu.be/x", Options{Template: "/tmp/video_abc.%(ext)s"})
	require.NoError(t, err)
	assert.Equal(t, "/tmp/video_abc.mp4", path)

	args := (*calls)[0].args
	assert.Contains(t, args, "--merge-output-format")
	assert.Contains(t, args, "/tmp/video_abc.%(ext)s")
	assert.Equal(t, "https://youtu.be/x", args[len(args)-1])
}

func TestFetchKeepsLocalModTime(t *testing.T) {
	y, calls := fake("/tmp/video_abc.mp4\n", "", nil)

	_, err := y.Fetch(context.Background(), "https://youtu.be/x", Options{Template: "/tmp/video_abc.%(ext)s"})
	require.NoError(t, err)
	assert.Contains(t, (*calls)[0].args, "--no-mtime")

	_, err = y.Fetch(context.Background(), "https://youtu.be/x", Options{Template: "/tmp/audio_abc.%(ext)s", AudioCodec: "mp3"})
	require.NoError(t, err)
	assert.Contains(t, (*calls)[1].args, "--no-mtime")
}

func TestFetchAudio(t *testing.T) {
	y, calls := fake("/tmp/music_abc.mp3", "", nil)

	_, err := y.Fetch(context.Background(), "ytsearch1:artist - song", Options{Template: "/tmp/music_abc.%(ext)s", Format: AudioFormat, AudioCodec: "mp3"})
	require.NoError(t, err)
	args := (*calls)[0].args
	assert.Contains(t, args, "-x")
	assert.Contains(t, args, "mp3")
	assert.NotContains(t, args, "--merge-output-format")
}

func TestFetchClassifiesStderr(t *testing.T) {
	tests := []struct {
		stderr string
		kind   media.Kind
	}{
		{"ERROR: [youtube] x: Sign in to confirm your age", media.KindAccessDenied},
		{"ERROR: [youtube] x: Video unavailable", media.KindNotFound},
		{"ERROR: unable to download webpage: HTTP Error 429: Too Many Requests", media.KindRateLimited},
		{"ERROR: something odd", media.KindUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.stderr, func(t *testing.T) {
			y, _ := fake("", tt.stderr, errors.New("exit status 1"))
			_, err := y.Fetch(context.Background(), "https://youtu.be/x", Options{Template: "/tmp/t.%(ext)s"})

			var re *media.RetrievalError
			require.ErrorAs(t, err, &re)
			assert.Equal(t, tt.kind, re.Kind)
			assert.Equal(t, "extractor", re.Strategy)
		})
	}
}

func TestFetchTimeout(t *testing.T) {
	y, _ := fake("", "", errors.New("signal: killed"))
	ctx, cancel := context.WithTimeout(context.Background(), 0)
	defer cancel()
	<-ctx.Done()

	_, err := y.Fetch(ctx, "https://youtu.be/x", Options{Template: "/tmp/t.%(ext)s"})
	assert.Equal(t, media.KindTimeout, media.KindOf(err))
}

func TestMissingBinaryIsUnavailable(t *testing.T) {
	y := New("definitely-not-installed-binary", "")
	y.lookup = func(string) (string, error) { return "", errors.New("not found") }

	_, err := y.Fetch(context.Background(), "https://youtu.be/x", Options{Template: "/tmp/t.%(ext)s"})
	assert.Equal(t, media.KindUnavailable, media.KindOf(err))
	_, err = y.ProbeSize(context.Background(), "https://youtu.be/x")
	assert.Equal(t, media.KindUnavailable, media.KindOf(err))
}

func TestCookiesArePassedWhenPresent(t *testing.T) {
	cookies := filepath.Join(t.TempDir(), "cookies.txt")
	require.NoError(t, os.WriteFile(cookies, []byte("# Netscape"), 0o600))

	y, calls := fake("/tmp/x.mp4", "", nil)
	y.cookies = cookies
	_, err := y.Fetch(context.Background(), "https://youtu.be/x", Options{Template: "/tmp/x.%(ext)s"})
	require.NoError(t, err)
	assert.Contains(t, (*calls)[0].args, cookies)
}
