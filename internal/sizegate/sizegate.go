package sizegate

import (
	"context"
	"fmt"
	"time"

	"github.com/pavelc4/mediaq-bot/internal/extractor"
	"github.com/pavelc4/mediaq-bot/internal/media"
	"github.com/pavelc4/mediaq-bot/pkg/logger"
)

const (
	MB = 1024 * 1024

	// EstimateTolerance absorbs estimator inaccuracy on the pre-check only.
	EstimateTolerance = 1.10

	// EstimateTimeout bounds the pre-check; a slow estimator must not hold
	// the request up.
	EstimateTimeout = 30 * time.Second
)

type Verdict int

const (
	Proceed Verdict = iota
	RejectInformUser
	RejectSilent
)

func (v Verdict) String() string {
	switch v {
	case RejectInformUser:
		return "reject_inform"
	case RejectSilent:
		return "reject_silent"
	default:
		return "proceed"
	}
}

type Decision struct {
	Verdict Verdict
	// Err is set for both reject verdicts.
	Err *SizeExceededError
}

func (d Decision) Rejected() bool {
	return d.Verdict != Proceed
}

type SizeExceededError struct {
	SizeBytes  int64
	LimitBytes int64
	Estimated  bool
}

func (e *SizeExceededError) Error() string {
	if e.Estimated {
		return fmt.Sprintf("estimated size %.2f MB exceeds limit of %.2f MB", ToMB(e.SizeBytes), ToMB(e.LimitBytes))
	}
	return fmt.Sprintf("file size %.2f MB exceeds limit of %.2f MB", ToMB(e.SizeBytes), ToMB(e.LimitBytes))
}

func ToMB(b int64) float64 {
	return float64(b) / MB
}

type Limits struct {
	Global int64
	Group  int64
}

// Prober is the cheap size estimator, usually *extractor.YtDlp.
type Prober interface {
	ProbeSize(ctx context.Context, url string) (*extractor.Info, error)
}

type Gate struct {
	limits  Limits
	prober  Prober
	timeout time.Duration
}

func New(limits Limits, prober Prober) *Gate {
	return &Gate{limits: limits, prober: prober, timeout: EstimateTimeout}
}

// Limit is the effective ceiling for a chat context. Non-positive configured
// values mean "no limit" for that dimension.
func (g *Gate) Limit(chat media.ChatContext) int64 {
	limit := g.limits.Global
	if chat == media.ChatGroup && g.limits.Group > 0 && (limit <= 0 || g.limits.Group < limit) {
		limit = g.limits.Group
	}
	return limit
}

// PreCheck estimates the size of job without downloading. Only estimable
// categories are probed; probe failures, timeouts and unknown sizes proceed.
func (g *Gate) PreCheck(ctx context.Context, job media.Job) Decision {
	if !job.Category.Estimable() || g.prober == nil {
		return Decision{Verdict: Proceed}
	}
	limit := g.Limit(job.Chat)
	if limit <= 0 {
		return Decision{Verdict: Proceed}
	}

	pctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	info, err := g.prober.ProbeSize(pctx, job.URL)
	if err != nil {
		logger.Debug("Size probe failed, continuing", "job_id", job.ID, "error", err)
		return Decision{Verdict: Proceed}
	}
	return g.evaluate(job, info.SizeBytes, float64(limit)*EstimateTolerance, true)
}

// PostCheck is authoritative: the actual size against the exact limit.
func (g *Gate) PostCheck(job media.Job, actualSizeBytes int64) Decision {
	limit := g.Limit(job.Chat)
	if limit <= 0 {
		return Decision{Verdict: Proceed}
	}
	return g.evaluate(job, actualSizeBytes, float64(limit), false)
}

func (g *Gate) evaluate(job media.Job, size int64, threshold float64, estimated bool) Decision {
	if size <= 0 || float64(size) <= threshold {
		return Decision{Verdict: Proceed}
	}

	verdict := RejectInformUser
	if job.Chat == media.ChatGroup {
		verdict = RejectSilent
	}
	return Decision{
		Verdict: verdict,
		Err: &SizeExceededError{
			SizeBytes:  size,
			LimitBytes: g.Limit(job.Chat),
			Estimated:  estimated,
		},
	}
}
