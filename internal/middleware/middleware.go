package middleware

import (
	"context"
	"runtime/debug"
	"time"

	"github.com/pavelc4/mediaq-bot/pkg/logger"
)

// Handler is one unit of update processing, run on its own goroutine.
type Handler func(ctx context.Context)

type Middleware func(next Handler) Handler

func Recover(next Handler) Handler {
	return func(ctx context.Context) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("Panic recovered", "error", r, "stack", string(debug.Stack()))
			}
		}()
		next(ctx)
	}
}

const slowHandler = 100 * time.Millisecond

func Logger(name string) Middleware {
	return func(next Handler) Handler {
		return func(ctx context.Context) {
			start := time.Now()
			defer func() {
				duration := time.Since(start)
				if duration > slowHandler {
					logger.Info("Handler completed (slow)", "name", name, "duration", duration)
				} else {
					logger.Debug("Handler completed", "name", name, "duration", duration)
				}
			}()
			next(ctx)
		}
	}
}

// Timeout bounds the whole handler, queue wait included. d <= 0 disables it.
func Timeout(d time.Duration) Middleware {
	return func(next Handler) Handler {
		if d <= 0 {
			return next
		}
		return func(ctx context.Context) {
			ctx, cancel := context.WithTimeout(ctx, d)
			defer cancel()
			next(ctx)
		}
	}
}

// Chain wraps h so that middlewares[0] is the outermost.
func Chain(h Handler, middlewares ...Middleware) Handler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i](h)
	}
	return h
}
