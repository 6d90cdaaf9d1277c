package sizegate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pavelc4/mediaq-bot/internal/extractor"
	"github.com/pavelc4/mediaq-bot/internal/media"
)

type stubProber struct {
	size  int64
	err   error
	calls int
}

func (p *stubProber) ProbeSize(context.Context, string) (*extractor.Info, error) {
	p.calls++
	if p.err != nil {
		return nil, p.err
	}
	return &extractor.Info{Title: "t", SizeBytes: p.size}, nil
}

func job(category media.Category, chat media.ChatContext) media.Job {
	return media.Job{ID: "j", URL: "https://example.com/v", Category: category, Chat: chat}
}

func TestEffectiveLimit(t *testing.T) {
	g := New(Limits{Global: 2000 * MB, Group: 50 * MB}, nil)
	assert.Equal(t, int64(2000*MB), g.Limit(media.ChatPrivate))
	assert.Equal(t, int64(50*MB), g.Limit(media.ChatGroup))

	g = New(Limits{Global: 40 * MB, Group: 50 * MB}, nil)
	assert.Equal(t, int64(40*MB), g.Limit(media.ChatGroup))

	g = New(Limits{Global: 40 * MB}, nil)
	assert.Equal(t, int64(40*MB), g.Limit(media.ChatGroup))
}

func TestPreCheckToleranceBoundary(t *testing.T) {
	tests := []struct {
		name    string
		size    int64
		chat    media.ChatContext
		verdict Verdict
	}{
		{"just over tolerance private", 331 * MB, media.ChatPrivate, RejectInformUser},
		{"just over tolerance group", 331 * MB, media.ChatGroup, RejectSilent},
		{"inside tolerance", 329 * MB, media.ChatPrivate, Proceed},
		{"over limit but inside tolerance", 310 * MB, media.ChatGroup, Proceed},
		{"unknown size private", 0, media.ChatPrivate, Proceed},
		{"unknown size group", 0, media.ChatGroup, Proceed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &stubProber{size: tt.size}
			g := New(Limits{Global: 300 * MB, Group: 300 * MB}, p)

			d := g.PreCheck(context.Background(), job(media.CategoryVideo, tt.chat))
			assert.Equal(t, tt.verdict, d.Verdict)
			if tt.verdict == Proceed {
				assert.Nil(t, d.Err)
			} else {
				require.NotNil(t, d.Err)
				assert.True(t, d.Err.Estimated)
				assert.Equal(t, int64(300*MB), d.Err.LimitBytes)
			}
		})
	}
}

func TestPreCheckSkipsNonEstimableCategories(t *testing.T) {
	for _, c := range []media.Category{media.CategorySocial, media.CategoryMusic} {
		p := &stubProber{size: 10_000 * MB}
		g := New(Limits{Global: 300 * MB}, p)

		d := g.PreCheck(context.Background(), job(c, media.ChatPrivate))
		assert.Equal(t, Proceed, d.Verdict)
		assert.Zero(t, p.calls, "category %s must not be probed", c)
	}

	p := &stubProber{size: 10_000 * MB}
	g := New(Limits{Global: 300 * MB}, p)
	assert.Equal(t, RejectInformUser, g.PreCheck(context.Background(), job(media.CategoryGeneric, media.ChatPrivate)).Verdict)
	assert.Equal(t, 1, p.calls)
}

func TestPreCheckProbeFailureProceeds(t *testing.T) {
	p := &stubProber{err: errors.New("probe exploded")}
	g := New(Limits{Global: 300 * MB}, p)
	assert.Equal(t, Proceed, g.PreCheck(context.Background(), job(media.CategoryVideo, media.ChatPrivate)).Verdict)
}

type blockingProber struct{}

func (blockingProber) ProbeSize(ctx context.Context, _ string) (*extractor.Info, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestPreCheckSlowEstimateProceedsAfterTimeout(t *testing.T) {
	g := New(Limits{Global: 300 * MB}, blockingProber{})
	assert.Equal(t, EstimateTimeout, g.timeout)
	g.timeout = 20 * time.Millisecond

	start := time.Now()
	d := g.PreCheck(context.Background(), job(media.CategoryVideo, media.ChatPrivate))
	assert.Equal(t, Proceed, d.Verdict)
	assert.Nil(t, d.Err)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestPostCheckHasNoTolerance(t *testing.T) {
	g := New(Limits{Global: 300 * MB, Group: 50 * MB}, nil)

	assert.Equal(t, Proceed, g.PostCheck(job(media.CategorySocial, media.ChatPrivate), 300*MB).Verdict)

	d := g.PostCheck(job(media.CategorySocial, media.ChatPrivate), 300*MB+1)
	assert.Equal(t, RejectInformUser, d.Verdict)
	require.NotNil(t, d.Err)
	assert.False(t, d.Err.Estimated)
	assert.Contains(t, d.Err.Error(), "300.00 MB")

	d = g.PostCheck(job(media.CategoryMusic, media.ChatGroup), 51*MB)
	assert.Equal(t, RejectSilent, d.Verdict)
	assert.Equal(t, int64(50*MB), d.Err.LimitBytes)
}
