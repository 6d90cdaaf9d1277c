package coordinator

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/pavelc4/mediaq-bot/internal/admission"
	"github.com/pavelc4/mediaq-bot/internal/media"
	"github.com/pavelc4/mediaq-bot/internal/messaging"
	"github.com/pavelc4/mediaq-bot/internal/progress"
	"github.com/pavelc4/mediaq-bot/internal/provider"
	"github.com/pavelc4/mediaq-bot/internal/sizegate"
	"github.com/pavelc4/mediaq-bot/internal/transport"
	"github.com/pavelc4/mediaq-bot/pkg/logger"
)

const (
	DefaultJobTimeout = 10 * time.Minute
	cleanupTimeout    = 15 * time.Second
)

var ErrTimedOut = errors.New("retrieval timed out")

// DeliveryError is a terminal failure while sending the file back.
type DeliveryError struct {
	Err error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("delivery failed: %v", e.Err)
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}

type State int

const (
	StateSuccess State = iota
	StateFailed
	StateRejected
	StateTimedOut
)

func (s State) String() string {
	switch s {
	case StateSuccess:
		return "success"
	case StateRejected:
		return "rejected"
	case StateTimedOut:
		return "timed_out"
	default:
		return "failed"
	}
}

type Request struct {
	URL       string
	Chat      transport.Chat
	Requester string
}

type Outcome struct {
	Job      media.Job
	State    State
	Err      error
	Strategy string
	Duration time.Duration
}

// Gate is the size policy, satisfied by *sizegate.Gate.
type Gate interface {
	PreCheck(ctx context.Context, job media.Job) sizegate.Decision
	PostCheck(job media.Job, actualSizeBytes int64) sizegate.Decision
}

// Files owns working files, satisfied by *workdir.Dir.
type Files interface {
	Remove(path string)
	Sweep(job media.Job) int
}

type Recorder interface {
	RecordOutcome(category media.Category, state string, d time.Duration)
}

type Deps struct {
	Admission *admission.Controller
	Gate      Gate
	Executor  provider.Executor
	Messenger transport.Messenger
	Files     Files
	// Recorder is optional.
	Recorder Recorder
}

type Options struct {
	JobTimeout time.Duration
	Progress   progress.Policy
}

// Coordinator drives one request at a time through
// probe → admission → retrieval → size validation → delivery → cleanup.
// It is safe for concurrent use; every Handle call owns its job exclusively.
type Coordinator struct {
	deps Deps
	opts Options
}

func New(deps Deps, opts Options) *Coordinator {
	if opts.JobTimeout <= 0 {
		opts.JobTimeout = DefaultJobTimeout
	}
	if opts.Progress.MinInterval <= 0 {
		opts.Progress = progress.Strict
	}
	return &Coordinator{deps: deps, opts: opts}
}

func (c *Coordinator) Admission() *admission.Controller {
	return c.deps.Admission
}

// Handle runs req to a terminal state. Cleanup happens before it returns on
// every path.
func (c *Coordinator) Handle(ctx context.Context, req Request) Outcome {
	start := time.Now()
	r := &run{
		c:         c,
		job:       media.NewJob(req.URL, req.Chat.Context),
		chat:      req.Chat,
		requester: req.Requester,
	}

	out := r.execute(ctx)
	r.cleanup(ctx)

	out.Job = r.job
	out.Duration = time.Since(start)

	attrs := []any{"job_id", r.job.ID, "category", r.job.Category, "state", out.State.String(), "chat", r.job.Chat.String()}
	if out.Strategy != "" {
		attrs = append(attrs, "strategy", out.Strategy)
	}
	if out.Err != nil {
		attrs = append(attrs, "error", out.Err)
		logger.ErrorWithDuration("Job finished", start, attrs...)
	} else {
		logger.InfoWithDuration("Job finished", start, attrs...)
	}
	if c.deps.Recorder != nil {
		c.deps.Recorder.RecordOutcome(r.job.Category, out.State.String(), out.Duration)
	}
	return out
}

// run is the per-request state. Nothing in it is shared with other jobs.
type run struct {
	c         *Coordinator
	job       media.Job
	chat      transport.Chat
	requester string

	status transport.Handle
	ticket *admission.Ticket
	result *media.StrategyResult
}

func (r *run) execute(ctx context.Context) Outcome {
	msgr := r.c.deps.Messenger

	status, err := msgr.SendStatus(ctx, r.chat, messaging.StatusDetecting)
	if err != nil {
		logger.Warn("Failed to send status", "job_id", r.job.ID, "error", err)
	}
	r.status = status

	if d := r.c.deps.Gate.PreCheck(ctx, r.job); d.Rejected() {
		return r.rejectSize(ctx, d)
	}

	if out, ok := r.admit(ctx); !ok {
		return out
	}

	res, out, ok := r.retrieve(ctx)
	if !ok {
		return out
	}
	r.result = res

	if d := r.c.deps.Gate.PostCheck(r.job, res.SizeBytes); d.Rejected() {
		r.c.deps.Files.Remove(res.FilePath)
		r.result = nil
		return r.rejectSize(ctx, d)
	}

	if err := r.deliver(ctx, res); err != nil {
		r.notify(ctx, messaging.DeliveryFailedText())
		return Outcome{State: StateFailed, Err: err, Strategy: res.Strategy}
	}
	return Outcome{State: StateSuccess, Strategy: res.Strategy}
}

// admit takes the slot or waits in line for it, keeping the status message
// in sync with the queue position.
func (r *run) admit(ctx context.Context) (Outcome, bool) {
	ticket, err := r.c.deps.Admission.Enqueue()
	if err != nil {
		r.notify(ctx, messaging.QueueFullText(r.c.deps.Admission.MaxQueue()))
		return Outcome{State: StateRejected, Err: err}, false
	}
	r.ticket = ticket

	if pos := ticket.Position(); pos > 0 {
		logger.Info("Job queued", "job_id", r.job.ID, "position", pos)
		r.edit(ctx, messaging.QueuedStatus(pos))
	}

	for {
		select {
		case <-ticket.Ready():
			return Outcome{}, true
		case pos := <-ticket.Updates():
			if pos > 0 {
				r.edit(ctx, messaging.QueuedStatus(pos))
			}
		case <-ctx.Done():
			ticket.Release()
			return r.cancelled(ctx), false
		}
	}
}

type chainResult struct {
	res *media.StrategyResult
	err error
}

// retrieve runs the executor under the job deadline. On expiry the
// coordinator stops waiting; whatever the chain still produces later is
// removed when it arrives.
func (r *run) retrieve(ctx context.Context) (*media.StrategyResult, Outcome, bool) {
	r.edit(ctx, messaging.DownloadingStatus(r.job))

	rctx, cancel := context.WithTimeout(ctx, r.c.opts.JobTimeout)
	defer cancel()

	done := make(chan chainResult, 1)
	go func() {
		res, err := r.c.deps.Executor.Execute(rctx, r.job)
		done <- chainResult{res, err}
	}()

	select {
	case out := <-done:
		if out.err == nil && out.res != nil && rctx.Err() == nil {
			return out.res, Outcome{}, true
		}
		if out.res != nil {
			r.c.deps.Files.Remove(out.res.FilePath)
		}
		if ctx.Err() != nil {
			return nil, r.cancelled(ctx), false
		}
		if rctx.Err() != nil {
			return nil, r.timedOut(ctx), false
		}
		err := out.err
		if err == nil {
			err = media.Fail("", media.KindUnknown, "executor returned no result")
		}
		kind := media.KindOf(err)
		r.notify(ctx, messaging.FailureText(kind, r.job.Category, r.job.Chat))
		return nil, Outcome{State: StateFailed, Err: err}, false

	case <-rctx.Done():
		files, job := r.c.deps.Files, r.job
		go func() {
			if late := <-done; late.res != nil {
				files.Remove(late.res.FilePath)
			}
			files.Sweep(job)
		}()
		if ctx.Err() != nil {
			return nil, r.cancelled(ctx), false
		}
		return nil, r.timedOut(ctx), false
	}
}

func (r *run) timedOut(ctx context.Context) Outcome {
	r.notify(ctx, messaging.TimeoutText())
	return Outcome{State: StateTimedOut, Err: fmt.Errorf("%w after %s", ErrTimedOut, r.c.opts.JobTimeout)}
}

// cancelled ends a run whose request context is done. An expired request
// deadline is a timeout and the user is told so on a detached context.
func (r *run) cancelled(ctx context.Context) Outcome {
	err := ctx.Err()
	if errors.Is(err, context.DeadlineExceeded) {
		dctx, cancel := detached(ctx)
		defer cancel()
		r.notify(dctx, messaging.TimeoutText())
		return Outcome{State: StateTimedOut, Err: err}
	}
	return Outcome{State: StateFailed, Err: err}
}

func detached(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(parent), cleanupTimeout)
}

// deliver sends the file with progress reporting. A rate-limit signal is
// honoured once: wait out the cooldown, then retry without progress.
func (r *run) deliver(ctx context.Context, res *media.StrategyResult) error {
	msgr := r.c.deps.Messenger
	file := transport.File{
		Path:     res.FilePath,
		Name:     fileName(res),
		MimeType: res.MimeType,
		Size:     res.SizeBytes,
		Caption: messaging.BuildCaption(messaging.CaptionInfo{
			Title:     displayTitle(res, r.job),
			Source:    sourceName(r.job, res),
			SourceURL: r.job.URL,
			SizeBytes: res.SizeBytes,
			Elapsed:   time.Since(r.job.SubmittedAt),
			UserName:  r.requester,
		}),
	}

	started := time.Now()
	title := displayTitle(res, r.job)
	reporter := progress.New(
		func(ctx context.Context, text string) error {
			if r.status.IsZero() {
				return nil
			}
			return msgr.EditStatus(ctx, r.status, text)
		},
		r.c.opts.Progress,
		func(current, total int64) string {
			return messaging.UploadProgress(title, current, total, time.Since(started))
		},
		messaging.StatusDone,
	)

	err := msgr.DeliverFile(ctx, r.chat, file, reporter.OnProgress)
	if err == nil {
		return nil
	}

	cooldown, limited := transport.AsRateLimit(err)
	if !limited {
		return &DeliveryError{Err: err}
	}

	logger.Warn("Delivery rate limited, retrying once", "job_id", r.job.ID, "cooldown", cooldown)
	if err := transport.Sleep(ctx, cooldown); err != nil {
		return &DeliveryError{Err: err}
	}
	if err := msgr.DeliverFile(ctx, r.chat, file, nil); err != nil {
		return &DeliveryError{Err: err}
	}
	return nil
}

func (r *run) rejectSize(ctx context.Context, d sizegate.Decision) Outcome {
	logger.Info("Size limit exceeded", "job_id", r.job.ID, "verdict", d.Verdict.String(), "error", d.Err)
	if d.Verdict == sizegate.RejectInformUser {
		r.notify(ctx, messaging.SizeText(d.Err))
	}
	return Outcome{State: StateRejected, Err: d.Err}
}

// notify sends a standalone message. Failures are logged only.
func (r *run) notify(ctx context.Context, text string) {
	if ctx.Err() != nil {
		return
	}
	if err := r.c.deps.Messenger.SendText(ctx, r.chat, text); err != nil {
		logger.Warn("Failed to send message", "job_id", r.job.ID, "error", err)
	}
}

func (r *run) edit(ctx context.Context, text string) {
	if r.status.IsZero() {
		return
	}
	if err := r.c.deps.Messenger.EditStatus(ctx, r.status, text); err != nil {
		logger.Debug("Failed to edit status", "job_id", r.job.ID, "error", err)
	}
}

// cleanup releases everything the run owns. It runs on a detached context so
// that cancellation of the request cannot skip it.
func (r *run) cleanup(parent context.Context) {
	if r.result != nil {
		r.c.deps.Files.Remove(r.result.FilePath)
		r.result = nil
	}
	if n := r.c.deps.Files.Sweep(r.job); n > 0 {
		logger.Debug("Removed leftover working files", "job_id", r.job.ID, "count", n)
	}
	if r.ticket != nil {
		r.ticket.Release()
		r.ticket = nil
	}
	if !r.status.IsZero() {
		ctx, cancel := detached(parent)
		defer cancel()
		if err := r.c.deps.Messenger.DeleteStatus(ctx, r.status); err != nil {
			logger.Debug("Failed to delete status", "job_id", r.job.ID, "error", err)
		}
	}
}

var unsafeName = strings.NewReplacer("/", "_", "\\", "_", ":", "_", "*", "_", "?", "_", "\"", "_", "<", "_", ">", "_", "|", "_")

func fileName(res *media.StrategyResult) string {
	ext := filepath.Ext(res.FilePath)
	title := strings.TrimSpace(unsafeName.Replace(res.Title))
	if title == "" {
		return filepath.Base(res.FilePath)
	}
	if r := []rune(title); len(r) > 64 {
		title = string(r[:64])
	}
	title = strings.TrimSuffix(title, ext)
	return title + ext
}

func displayTitle(res *media.StrategyResult, job media.Job) string {
	if res.Title != "" {
		return res.Title
	}
	return job.URL
}

func sourceName(job media.Job, res *media.StrategyResult) string {
	if job.Platform != "" {
		return job.Platform
	}
	return res.Strategy
}
