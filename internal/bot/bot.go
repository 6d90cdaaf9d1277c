package bot

import (
	"context"
	"slices"

	"github.com/gotd/td/tg"
	"github.com/pavelc4/mediaq-bot/internal/middleware"
	"github.com/pavelc4/mediaq-bot/internal/telegram"
	"github.com/pavelc4/mediaq-bot/pkg/logger"
)

type Bot struct {
	client *telegram.Client
	router *Router
}

func New(client *telegram.Client, router *Router) *Bot {
	return &Bot{client: client, router: router}
}

// Register routes new messages to the router. Each update is handled on its
// own goroutine so a long download never blocks the update loop.
func (b *Bot) Register(dispatcher tg.UpdateDispatcher, middlewares ...middleware.Middleware) {
	messageChain := append(slices.Clone(middlewares), middleware.Logger("OnNewMessage"))
	channelChain := append(slices.Clone(middlewares), middleware.Logger("OnNewChannelMessage"))

	dispatcher.OnNewMessage(func(ctx context.Context, e tg.Entities, update *tg.UpdateNewMessage) error {
		h := func(ctx context.Context) {
			if err := b.router.OnMessage(ctx, e, update); err != nil {
				logger.Error("OnMessage failed", "error", err)
			}
		}
		go middleware.Chain(h, messageChain...)(ctx)
		return nil
	})

	dispatcher.OnNewChannelMessage(func(ctx context.Context, e tg.Entities, update *tg.UpdateNewChannelMessage) error {
		h := func(ctx context.Context) {
			if err := b.router.OnChannelMessage(ctx, e, update); err != nil {
				logger.Error("OnChannelMessage failed", "error", err)
			}
		}
		go middleware.Chain(h, channelChain...)(ctx)
		return nil
	})
}

func (b *Bot) Run(ctx context.Context) error {
	return b.client.Start(ctx)
}
