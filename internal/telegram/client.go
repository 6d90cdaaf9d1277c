package telegram

import (
	"context"
	"path/filepath"

	"github.com/go-faster/errors"
	"github.com/gotd/td/session"
	"github.com/gotd/td/telegram"
	"github.com/gotd/td/tg"
	"github.com/pavelc4/mediaq-bot/pkg/logger"
)

type Config struct {
	AppID      int
	AppHash    string
	BotToken   string
	SessionDir string
}

type Client struct {
	client *telegram.Client
	api    *tg.Client
	cfg    Config
	me     *tg.User
}

func NewClient(cfg Config, dispatcher tg.UpdateDispatcher) *Client {
	opts := telegram.Options{
		SessionStorage: &session.FileStorage{Path: filepath.Join(cfg.SessionDir, "session.json")},
		UpdateHandler:  dispatcher,
	}

	client := telegram.NewClient(cfg.AppID, cfg.AppHash, opts)
	return &Client{
		client: client,
		api:    client.API(),
		cfg:    cfg,
	}
}

// Start connects, logs in as the bot if the session is not authorized yet and
// blocks until ctx is done.
func (c *Client) Start(ctx context.Context) error {
	return c.client.Run(ctx, func(ctx context.Context) error {
		status, err := c.client.Auth().Status(ctx)
		if err != nil {
			return errors.Wrap(err, "auth status")
		}

		if !status.Authorized {
			if _, err := c.client.Auth().Bot(ctx, c.cfg.BotToken); err != nil {
				return errors.Wrap(err, "bot login")
			}
		}

		me, err := c.client.Self(ctx)
		if err != nil {
			return errors.Wrap(err, "get self")
		}
		c.me = me

		logger.Info("Telegram client connected", "username", me.Username, "id", me.ID)

		<-ctx.Done()
		return nil
	})
}

func (c *Client) API() *tg.Client {
	return c.api
}

func (c *Client) Me() *tg.User {
	return c.me
}
