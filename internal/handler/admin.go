package handler

import (
	"context"

	"github.com/gotd/td/telegram/message"
	"github.com/gotd/td/telegram/message/html"
	"github.com/gotd/td/tg"
	"github.com/pavelc4/mediaq-bot/internal/admission"
	"github.com/pavelc4/mediaq-bot/internal/messaging"
	"github.com/pavelc4/mediaq-bot/internal/stats"
	"github.com/pavelc4/mediaq-bot/internal/telegram"
	"github.com/pavelc4/mediaq-bot/pkg/logger"
)

type AdminHandler struct {
	sender    *message.Sender
	ownerID   int64
	admission *admission.Controller
	stats     *stats.Recorder
	diskPath  string
}

func NewAdminHandler(api *tg.Client, ownerID int64, adm *admission.Controller, rec *stats.Recorder, diskPath string) *AdminHandler {
	return &AdminHandler{
		sender:    message.NewSender(api),
		ownerID:   ownerID,
		admission: adm,
		stats:     rec,
		diskPath:  diskPath,
	}
}

// HandleStats answers only the configured owner; everyone else is ignored.
func (h *AdminHandler) HandleStats(ctx context.Context, e tg.Entities, msg *tg.Message) error {
	senderID := telegram.SenderID(msg)
	if h.ownerID == 0 || senderID != h.ownerID {
		logger.Debug("Ignoring /stats from non-owner", "user_id", senderID)
		return nil
	}

	peer, err := telegram.ResolvePeer(msg.PeerID, e)
	if err != nil {
		return err
	}

	text := messaging.StatsText(h.stats.SystemInfo(h.diskPath), h.stats.Snapshot(), h.admission.Snapshot())
	_, err = h.sender.To(peer).Reply(msg.ID).StyledText(ctx, html.String(nil, text))
	return err
}
