package handler

import (
	"context"

	"github.com/gotd/td/tg"
	"github.com/pavelc4/mediaq-bot/internal/coordinator"
	"github.com/pavelc4/mediaq-bot/internal/messaging"
	"github.com/pavelc4/mediaq-bot/internal/telegram"
	"github.com/pavelc4/mediaq-bot/internal/transport"
	"github.com/pavelc4/mediaq-bot/pkg/logger"
)

type DownloadHandler struct {
	coord *coordinator.Coordinator
	peers *telegram.Peers
}

func NewDownloadHandler(coord *coordinator.Coordinator, peers *telegram.Peers) *DownloadHandler {
	return &DownloadHandler{coord: coord, peers: peers}
}

// Handle runs one download request for url to completion. The outcome is
// reported to the chat by the coordinator; only transport setup errors are
// returned.
func (h *DownloadHandler) Handle(ctx context.Context, e tg.Entities, msg *tg.Message, url string) error {
	peer, err := telegram.ResolvePeer(msg.PeerID, e)
	if err != nil {
		return err
	}
	chatID := telegram.ChatID(msg.PeerID)
	h.peers.Remember(chatID, peer)

	req := coordinator.Request{
		URL: url,
		Chat: transport.Chat{
			ID:      chatID,
			ReplyTo: msg.ID,
			Context: telegram.ChatContext(msg.PeerID),
		},
		Requester: messaging.GetUserName(e, msg),
	}

	logger.Info("Download requested", "url", url, "chat", chatID, "user", req.Requester)
	h.coord.Handle(ctx, req)
	return nil
}
