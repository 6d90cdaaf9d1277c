package transport

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pavelc4/mediaq-bot/internal/media"
)

// Chat identifies where a request came from and where replies go.
type Chat struct {
	ID      int64
	ReplyTo int
	Context media.ChatContext
}

// Handle refers to a status message that can be edited or deleted. The zero
// Handle is valid and every operation on it is a no-op.
type Handle struct {
	ChatID    int64
	MessageID int
}

func (h Handle) IsZero() bool {
	return h.MessageID == 0
}

type File struct {
	Path     string
	Name     string
	MimeType string
	Size     int64
	Caption  string
}

// ProgressFunc is called by DeliverFile as bytes leave the process.
type ProgressFunc func(ctx context.Context, current, total int64)

type Messenger interface {
	SendStatus(ctx context.Context, chat Chat, text string) (Handle, error)
	EditStatus(ctx context.Context, h Handle, text string) error
	DeleteStatus(ctx context.Context, h Handle) error
	SendText(ctx context.Context, chat Chat, text string) error
	// DeliverFile uploads the file as a reply. onProgress may be nil.
	DeliverFile(ctx context.Context, chat Chat, file File, onProgress ProgressFunc) error
}

// RateLimitError is the distinguishable signal a transport returns when the
// remote side asks us to slow down.
type RateLimitError struct {
	RetryAfter time.Duration
	Err        error
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited, retry after %s", e.RetryAfter)
}

func (e *RateLimitError) Unwrap() error {
	return e.Err
}

func AsRateLimit(err error) (time.Duration, bool) {
	var rl *RateLimitError
	if errors.As(err, &rl) {
		return rl.RetryAfter, true
	}
	return 0, false
}

// Sleep waits for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
