package provider

import (
	"context"
	"os"
	"time"

	"github.com/pavelc4/mediaq-bot/internal/media"
	"github.com/pavelc4/mediaq-bot/pkg/logger"
)

// Chain tries its strategies strictly in order and stops at the first one
// that yields a non-empty file. When all fail, the last error is returned.
type Chain struct {
	name       string
	strategies []Strategy
}

func NewChain(name string, strategies ...Strategy) *Chain {
	return &Chain{name: name, strategies: strategies}
}

func (c *Chain) Names() []string {
	names := make([]string, len(c.strategies))
	for i, s := range c.strategies {
		names[i] = s.Name()
	}
	return names
}

func (c *Chain) Execute(ctx context.Context, job media.Job) (*media.StrategyResult, error) {
	if len(c.strategies) == 0 {
		return nil, media.Unavailable(c.name, "no strategies configured")
	}

	var lastErr *media.RetrievalError
	for _, s := range c.strategies {
		if err := ctx.Err(); err != nil {
			if lastErr == nil {
				lastErr = media.Wrap(c.name, err)
			}
			return nil, lastErr
		}

		start := time.Now()
		res, err := s.Attempt(ctx, job)
		if err == nil {
			res, err = validate(s.Name(), res)
		}
		if err == nil {
			logger.InfoWithDuration("Strategy succeeded", start,
				"chain", c.name, "strategy", s.Name(), "job_id", job.ID, "size", res.SizeBytes)
			return res, nil
		}

		lastErr = media.Wrap(s.Name(), err)
		logger.Warn("Strategy failed",
			"chain", c.name, "strategy", s.Name(), "job_id", job.ID, "kind", lastErr.Kind, "error", lastErr.Message)
	}
	return nil, lastErr
}

// validate turns a missing or empty output into a failure and removes it.
func validate(strategy string, res *media.StrategyResult) (*media.StrategyResult, error) {
	if res == nil || res.FilePath == "" {
		return nil, media.Fail(strategy, media.KindUnknown, "strategy returned no file")
	}
	info, err := os.Stat(res.FilePath)
	if err != nil {
		return nil, media.Fail(strategy, media.KindUnknown, "output file missing: %v", err)
	}
	if info.IsDir() || info.Size() == 0 {
		os.RemoveAll(res.FilePath)
		return nil, media.Fail(strategy, media.KindUnknown, "downloaded file is empty")
	}

	out := *res
	out.SizeBytes = info.Size()
	if out.Strategy == "" {
		out.Strategy = strategy
	}
	if out.MimeType == "" {
		out.MimeType = media.MimeType(out.FilePath)
	}
	return &out, nil
}

// Fallback tries a platform-native strategy first and on any failure hands
// the job, tagged with its platform, to the generic executor.
type Fallback struct {
	native  *Chain
	generic Executor
}

func NewFallback(native Strategy, generic Executor) *Fallback {
	return &Fallback{native: NewChain(native.Name(), native), generic: generic}
}

func (f *Fallback) Execute(ctx context.Context, job media.Job) (*media.StrategyResult, error) {
	res, err := f.native.Execute(ctx, job)
	if err == nil {
		return res, nil
	}
	if ctx.Err() != nil {
		return nil, err
	}
	logger.Info("Native downloader failed, falling back", "job_id", job.ID, "platform", job.Platform, "kind", media.KindOf(err))
	return f.generic.Execute(ctx, job.WithHint(job.Platform))
}
