package bot

import (
	"context"
	"strings"

	"github.com/gotd/td/tg"
	"github.com/pavelc4/mediaq-bot/internal/handler"
	"github.com/pavelc4/mediaq-bot/internal/media"
	"github.com/pavelc4/mediaq-bot/pkg/logger"
)

type HandlerFunc func(ctx context.Context, e tg.Entities, msg *tg.Message) error

type DownloadFunc func(ctx context.Context, e tg.Entities, msg *tg.Message, url string) error

type Router struct {
	commands map[string]HandlerFunc
	download DownloadFunc
	usage    HandlerFunc
}

func NewRouter(dl *handler.DownloadHandler, adm *handler.AdminHandler, basic *handler.BasicHandler) *Router {
	return newRouter(map[string]HandlerFunc{
		"/start": basic.HandleStart,
		"/help":  basic.HandleHelp,
		"/ping":  basic.HandlePing,
		"/stats": adm.HandleStats,
	}, dl.Handle, basic.HandleUsage)
}

func newRouter(commands map[string]HandlerFunc, download DownloadFunc, usage HandlerFunc) *Router {
	return &Router{commands: commands, download: download, usage: usage}
}

func (r *Router) OnMessage(ctx context.Context, e tg.Entities, update *tg.UpdateNewMessage) error {
	msg, ok := update.Message.(*tg.Message)
	if !ok {
		return nil
	}
	return r.HandleMessage(ctx, e, msg)
}

func (r *Router) OnChannelMessage(ctx context.Context, e tg.Entities, update *tg.UpdateNewChannelMessage) error {
	msg, ok := update.Message.(*tg.Message)
	if !ok {
		return nil
	}
	return r.HandleMessage(ctx, e, msg)
}

func (r *Router) HandleMessage(ctx context.Context, e tg.Entities, msg *tg.Message) error {
	if msg.Out {
		return nil
	}
	logger.Debug("HandleMessage called", "id", msg.ID, "text", msg.Message)

	cmd, args := parseCommand(msg.Message)
	switch cmd {
	case "":
		if url := media.ExtractURL(msg.Message); url != "" {
			return r.download(ctx, e, msg, url)
		}
		return nil
	case "/dl", "/video":
		if url := media.ExtractURL(args); url != "" {
			return r.download(ctx, e, msg, url)
		}
		return r.usage(ctx, e, msg)
	}

	if h, ok := r.commands[cmd]; ok {
		return h(ctx, e, msg)
	}
	return nil
}

// parseCommand splits "/cmd@botname rest" into ("/cmd", "rest"). Plain text
// yields an empty command.
func parseCommand(text string) (cmd, args string) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return "", text
	}
	cmd, args, _ = strings.Cut(text, " ")
	if idx := strings.Index(cmd, "@"); idx != -1 {
		cmd = cmd[:idx]
	}
	return strings.ToLower(cmd), strings.TrimSpace(args)
}
