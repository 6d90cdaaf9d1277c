package progress

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/pavelc4/mediaq-bot/internal/transport"
	"github.com/pavelc4/mediaq-bot/pkg/logger"
)

// Policy decides when a new update may be emitted. With MinDelta zero, or
// when the transfer size is unknown, only the elapsed time counts.
type Policy struct {
	MinInterval time.Duration
	MinDelta    float64
}

var (
	Strict = Policy{MinInterval: 5 * time.Second}
	Loose  = Policy{MinInterval: 2 * time.Second, MinDelta: 0.05}
)

func PolicyByName(name string) Policy {
	if strings.EqualFold(name, "loose") {
		return Loose
	}
	return Strict
}

func (p Policy) allows(elapsed time.Duration, delta float64, sized bool) bool {
	if elapsed < p.MinInterval {
		return false
	}
	return !sized || p.MinDelta <= 0 || delta >= p.MinDelta
}

// Editor replaces the text of one status message.
type Editor func(ctx context.Context, text string) error

type Formatter func(current, total int64) string

type State struct {
	LastReportTime       time.Time
	LastReportedFraction float64
	BackoffActive        bool
	Done                 bool
}

// Reporter belongs to exactly one transfer.
type Reporter struct {
	mu       sync.Mutex
	edit     Editor
	policy   Policy
	format   Formatter
	doneText string
	state    State
	emitted  int

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

func New(edit Editor, policy Policy, format Formatter, doneText string) *Reporter {
	return &Reporter{
		edit:     edit,
		policy:   policy,
		format:   format,
		doneText: doneText,
		now:      time.Now,
		sleep:    transport.Sleep,
	}
}

// OnProgress has the transport.ProgressFunc signature.
func (r *Reporter) OnProgress(ctx context.Context, current, total int64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state.BackoffActive || r.state.Done {
		return
	}

	if total > 0 && current >= total {
		r.state.Done = true
		r.emit(ctx, r.doneText, 1)
		return
	}

	fraction := 0.0
	if total > 0 {
		fraction = float64(current) / float64(total)
	}

	now := r.now()
	elapsed := now.Sub(r.state.LastReportTime)
	if !r.state.LastReportTime.IsZero() && !r.policy.allows(elapsed, fraction-r.state.LastReportedFraction, total > 0) {
		return
	}

	r.emit(ctx, r.format(current, total), fraction)
}

func (r *Reporter) emit(ctx context.Context, text string, fraction float64) {
	if text == "" {
		return
	}
	r.state.LastReportTime = r.now()
	r.state.LastReportedFraction = fraction

	err := r.edit(ctx, text)
	if err == nil {
		r.emitted++
		return
	}

	if cooldown, ok := transport.AsRateLimit(err); ok {
		r.state.BackoffActive = true
		logger.Warn("Progress updates disabled after rate limit", "cooldown", cooldown)
		if err := r.sleep(ctx, cooldown); err != nil {
			logger.Debug("Rate limit cooldown interrupted", "error", err)
		}
		return
	}

	logger.Warn("Progress update failed", "error", err)
}

func (r *Reporter) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Emitted counts successful edits.
func (r *Reporter) Emitted() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.emitted
}
