package provider

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pavelc4/mediaq-bot/internal/media"
	"github.com/pavelc4/mediaq-bot/internal/workdir"
)

type stub struct {
	name  string
	calls int
	jobs  []media.Job
	fn    func(ctx context.Context, job media.Job) (*media.StrategyResult, error)
}

func (s *stub) Name() string { return s.name }

func (s *stub) Attempt(ctx context.Context, job media.Job) (*media.StrategyResult, error) {
	s.calls++
	s.jobs = append(s.jobs, job)
	return s.fn(ctx, job)
}

func failing(name string, kind media.Kind) *stub {
	return &stub{name: name, fn: func(context.Context, media.Job) (*media.StrategyResult, error) {
		return nil, media.Fail(name, kind, "%s failed", name)
	}}
}

func writing(t *testing.T, dir *workdir.Dir, name, content string) *stub {
	t.Helper()
	return &stub{name: name, fn: func(_ context.Context, job media.Job) (*media.StrategyResult, error) {
		path := dir.Path(job, "mp4")
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
		return &media.StrategyResult{FilePath: path, Title: name}, nil
	}}
}

func newDir(t *testing.T) *workdir.Dir {
	t.Helper()
	dir, err := workdir.New(t.TempDir())
	require.NoError(t, err)
	return dir
}

func videoJob() media.Job {
	return media.NewJob("https://www.youtube.com/watch?v=dQw4w9WgXcQ", media.ChatPrivate)
}

func TestChainReturnsFirstSuccess(t *testing.T) {
	dir := newDir(t)
	a := failing("a", media.KindUnavailable)
	b := failing("b", media.KindRateLimited)
	c := writing(t, dir, "c", "payload")
	d := writing(t, dir, "d", "never")

	res, err := NewChain("video", a, b, c, d).Execute(context.Background(), videoJob())
	require.NoError(t, err)

	assert.Equal(t, "c", res.Strategy)
	assert.EqualValues(t, len("payload"), res.SizeBytes)
	assert.Equal(t, "video/mp4", res.MimeType)
	assert.Equal(t, []int{1, 1, 1, 0}, []int{a.calls, b.calls, c.calls, d.calls})
}

func TestChainReturnsLastError(t *testing.T) {
	a := failing("a", media.KindRateLimited)
	b := failing("b", media.KindNotFound)

	_, err := NewChain("video", a, b).Execute(context.Background(), videoJob())
	require.Error(t, err)

	var re *media.RetrievalError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, media.KindNotFound, re.Kind)
	assert.Equal(t, "b", re.Strategy)
}

func TestChainRejectsEmptyFile(t *testing.T) {
	dir := newDir(t)
	job := videoJob()
	empty := writing(t, dir, "empty", "")
	good := writing(t, dir, "good", "x")

	res, err := NewChain("video", empty, good).Execute(context.Background(), job)
	require.NoError(t, err)
	assert.Equal(t, "good", res.Strategy)
	assert.Equal(t, 1, empty.calls)
}

func TestChainEmptyFileIsRemoved(t *testing.T) {
	dir := newDir(t)
	job := videoJob()

	_, err := NewChain("video", writing(t, dir, "empty", "")).Execute(context.Background(), job)
	require.Error(t, err)
	assert.Empty(t, dir.Files(job))
}

func TestChainMissingFile(t *testing.T) {
	s := &stub{name: "ghost", fn: func(context.Context, media.Job) (*media.StrategyResult, error) {
		return &media.StrategyResult{FilePath: "/nonexistent/file.mp4"}, nil
	}}

	_, err := NewChain("video", s).Execute(context.Background(), videoJob())
	assert.Equal(t, media.KindUnknown, media.KindOf(err))
}

func TestChainStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	a := &stub{name: "a", fn: func(context.Context, media.Job) (*media.StrategyResult, error) {
		cancel()
		return nil, media.Fail("a", media.KindTimeout, "slow")
	}}
	b := failing("b", media.KindUnknown)

	_, err := NewChain("video", a, b).Execute(ctx, videoJob())
	require.Error(t, err)
	assert.Equal(t, media.KindTimeout, media.KindOf(err))
	assert.Equal(t, 0, b.calls)
}

func TestChainWithDoneContextBlamesNoStrategy(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	a := failing("a", media.KindUnknown)

	_, err := NewChain("video", a).Execute(ctx, videoJob())
	var re *media.RetrievalError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, "video", re.Strategy)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, a.calls)
}

func TestChainWithoutStrategies(t *testing.T) {
	_, err := NewChain("video").Execute(context.Background(), videoJob())
	assert.Equal(t, media.KindUnavailable, media.KindOf(err))
}

func TestFallbackTagsGenericWithPlatform(t *testing.T) {
	dir := newDir(t)
	native := failing("social", media.KindAccessDenied)
	generic := writing(t, dir, "extractor", "clip")
	job := media.NewJob("https://www.instagram.com/reel/ABC123/", media.ChatGroup)

	res, err := NewFallback(native, NewChain("generic", generic)).Execute(context.Background(), job)
	require.NoError(t, err)

	assert.Equal(t, "extractor", res.Strategy)
	require.Len(t, generic.jobs, 1)
	assert.Equal(t, "instagram", generic.jobs[0].Hint)
	assert.Empty(t, native.jobs[0].Hint)
}

func TestFallbackSkipsGenericOnSuccess(t *testing.T) {
	dir := newDir(t)
	native := writing(t, dir, "social", "clip")
	generic := failing("extractor", media.KindUnknown)
	job := media.NewJob("https://www.tiktok.com/@u/video/1", media.ChatPrivate)

	res, err := NewFallback(native, NewChain("generic", generic)).Execute(context.Background(), job)
	require.NoError(t, err)
	assert.Equal(t, "social", res.Strategy)
	assert.Equal(t, 0, generic.calls)
}
