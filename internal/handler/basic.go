package handler

import (
	"context"

	"github.com/gotd/td/telegram/message"
	"github.com/gotd/td/telegram/message/html"
	"github.com/gotd/td/tg"
	"github.com/pavelc4/mediaq-bot/internal/telegram"
)

const (
	startText = "👋 Welcome to MediaQ Bot!\n\nSend me a link from YouTube, TikTok, Instagram, Spotify and more to download it."

	helpText = `<b>MediaQ Downloader Bot</b>

I download media from links and send it back to this chat.

<b>Available Commands:</b>
• /dl [URL] - Download content
• /start - Start the bot
• /help - Show this help message
• /ping - Check that the bot is alive
• /stats - Show bot statistics (owner only)

<b>Quick Tips:</b>
• Just send a URL to download it
• Downloads run one at a time, extra requests wait in a queue
• Files over the size limit are skipped

<b>Supported Platforms:</b>
YouTube, TikTok, Instagram, X, Spotify and more!`

	usageText = "Usage: <code>/dl [URL]</code>"
)

type BasicHandler struct {
	sender *message.Sender
}

func NewBasicHandler(api *tg.Client) *BasicHandler {
	return &BasicHandler{sender: message.NewSender(api)}
}

func (h *BasicHandler) reply(ctx context.Context, e tg.Entities, msg *tg.Message, text string, markup tg.ReplyMarkupClass) error {
	peer, err := telegram.ResolvePeer(msg.PeerID, e)
	if err != nil {
		return err
	}
	b := h.sender.To(peer).Reply(msg.ID)
	if markup != nil {
		b = b.Markup(markup)
	}
	_, err = b.StyledText(ctx, html.String(nil, text))
	return err
}

func (h *BasicHandler) HandleStart(ctx context.Context, e tg.Entities, msg *tg.Message) error {
	return h.reply(ctx, e, msg, startText, nil)
}

func (h *BasicHandler) HandleHelp(ctx context.Context, e tg.Entities, msg *tg.Message) error {
	markup := &tg.ReplyInlineMarkup{
		Rows: []tg.KeyboardButtonRow{
			{
				Buttons: []tg.KeyboardButtonClass{
					&tg.KeyboardButtonURL{Text: "Developer", URL: "https://t.me/pavellc"},
					&tg.KeyboardButtonURL{Text: "Source", URL: "https://github.com/pavelc4/mediaq-bot"},
				},
			},
		},
	}
	return h.reply(ctx, e, msg, helpText, markup)
}

func (h *BasicHandler) HandlePing(ctx context.Context, e tg.Entities, msg *tg.Message) error {
	return h.reply(ctx, e, msg, "Pong!", nil)
}

func (h *BasicHandler) HandleUsage(ctx context.Context, e tg.Entities, msg *tg.Message) error {
	return h.reply(ctx, e, msg, usageText, nil)
}
