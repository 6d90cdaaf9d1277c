package telegram

import (
	"context"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/gotd/td/telegram/message"
	"github.com/gotd/td/telegram/message/html"
	"github.com/gotd/td/telegram/uploader"
	"github.com/gotd/td/tg"
	"github.com/gotd/td/tgerr"
	"github.com/pavelc4/mediaq-bot/internal/media"
	"github.com/pavelc4/mediaq-bot/internal/messaging"
	"github.com/pavelc4/mediaq-bot/internal/transport"
	"github.com/pavelc4/mediaq-bot/pkg/logger"
)

// Messenger implements transport.Messenger on top of the MTProto API. Texts
// are HTML.
type Messenger struct {
	api    *tg.Client
	sender *message.Sender
	peers  *Peers
}

var _ transport.Messenger = (*Messenger)(nil)

func NewMessenger(api *tg.Client, peers *Peers) *Messenger {
	return &Messenger{
		api:    api,
		sender: message.NewSender(api),
		peers:  peers,
	}
}

func (m *Messenger) reply(chat transport.Chat) (*message.Builder, error) {
	peer, err := m.peers.Lookup(chat.ID)
	if err != nil {
		return nil, err
	}
	rb := m.sender.To(peer)
	if chat.ReplyTo != 0 {
		return rb.Reply(chat.ReplyTo), nil
	}
	return &rb.Builder, nil
}

func (m *Messenger) SendStatus(ctx context.Context, chat transport.Chat, text string) (transport.Handle, error) {
	b, err := m.reply(chat)
	if err != nil {
		return transport.Handle{}, err
	}
	updates, err := b.StyledText(ctx, html.String(nil, text))
	if err != nil {
		return transport.Handle{}, wrapErr(err, "send status")
	}
	return transport.Handle{ChatID: chat.ID, MessageID: getMsgID(updates)}, nil
}

func (m *Messenger) EditStatus(ctx context.Context, h transport.Handle, text string) error {
	if h.IsZero() {
		return nil
	}
	peer, err := m.peers.Lookup(h.ChatID)
	if err != nil {
		return err
	}
	_, err = m.sender.To(peer).Edit(h.MessageID).StyledText(ctx, html.String(nil, text))
	if tgerr.Is(err, "MESSAGE_NOT_MODIFIED") {
		return nil
	}
	return wrapErr(err, "edit status")
}

func (m *Messenger) DeleteStatus(ctx context.Context, h transport.Handle) error {
	if h.IsZero() {
		return nil
	}
	peer, err := m.peers.Lookup(h.ChatID)
	if err != nil {
		return err
	}

	if ch, ok := peer.(*tg.InputPeerChannel); ok {
		_, err = m.api.ChannelsDeleteMessages(ctx, &tg.ChannelsDeleteMessagesRequest{
			Channel: &tg.InputChannel{ChannelID: ch.ChannelID, AccessHash: ch.AccessHash},
			ID:      []int{h.MessageID},
		})
	} else {
		_, err = m.api.MessagesDeleteMessages(ctx, &tg.MessagesDeleteMessagesRequest{
			Revoke: true,
			ID:     []int{h.MessageID},
		})
	}
	return wrapErr(err, "delete status")
}

func (m *Messenger) SendText(ctx context.Context, chat transport.Chat, text string) error {
	b, err := m.reply(chat)
	if err != nil {
		return err
	}
	_, err = b.StyledText(ctx, html.String(nil, text))
	return wrapErr(err, "send text")
}

// uploadProgress adapts uploader progress callbacks to transport.ProgressFunc.
type uploadProgress struct {
	fn transport.ProgressFunc
}

func (p uploadProgress) Chunk(ctx context.Context, state uploader.ProgressState) error {
	p.fn(ctx, state.Uploaded, state.Total)
	return nil
}

func (m *Messenger) DeliverFile(ctx context.Context, chat transport.Chat, file transport.File, onProgress transport.ProgressFunc) error {
	peer, err := m.peers.Lookup(chat.ID)
	if err != nil {
		return err
	}

	start := time.Now()
	up := uploader.NewUploader(m.api)
	if onProgress != nil {
		up = up.WithProgress(uploadProgress{fn: onProgress})
	}
	input, err := up.FromPath(ctx, file.Path)
	if err != nil {
		return wrapErr(err, "upload")
	}
	logger.InfoWithDuration("File uploaded", start, "file", file.Name, "size", file.Size)

	text, entities := messaging.ParseCaptionEntities(file.Caption)
	req := &tg.MessagesSendMediaRequest{
		Peer:     peer,
		Media:    inputMedia(input, file),
		Message:  text,
		Entities: entities,
		RandomID: time.Now().UnixNano(),
	}
	if chat.ReplyTo != 0 {
		req.ReplyTo = &tg.InputReplyToMessage{ReplyToMsgID: chat.ReplyTo}
	}

	if _, err := m.api.MessagesSendMedia(ctx, req); err != nil {
		return wrapErr(err, "send media")
	}
	return nil
}

const (
	defaultWidth  = 1280
	defaultHeight = 720
)

// inputMedia picks how the uploaded file is presented: streaming video,
// audio track or plain document.
func inputMedia(input tg.InputFileClass, file transport.File) tg.InputMediaClass {
	name := file.Name
	if name == "" {
		name = "file"
	}
	mime := file.MimeType
	if mime == "" {
		mime = media.MimeType(name)
	}
	filename := &tg.DocumentAttributeFilename{FileName: name}

	switch {
	case media.IsVideo(name) || strings.HasPrefix(mime, "video/"):
		return &tg.InputMediaUploadedDocument{
			File:     input,
			MimeType: mime,
			Attributes: []tg.DocumentAttributeClass{
				&tg.DocumentAttributeVideo{
					SupportsStreaming: true,
					W:                 defaultWidth,
					H:                 defaultHeight,
				},
				filename,
			},
		}
	case media.IsAudio(name) || strings.HasPrefix(mime, "audio/"):
		return &tg.InputMediaUploadedDocument{
			File:     input,
			MimeType: mime,
			Attributes: []tg.DocumentAttributeClass{
				&tg.DocumentAttributeAudio{Title: strings.TrimSuffix(name, extOf(name))},
				filename,
			},
		}
	default:
		return &tg.InputMediaUploadedDocument{
			File:       input,
			MimeType:   mime,
			ForceFile:  true,
			Attributes: []tg.DocumentAttributeClass{filename},
		}
	}
}

func extOf(name string) string {
	if i := strings.LastIndexByte(name, '.'); i > 0 {
		return name[i:]
	}
	return ""
}

// wrapErr turns FLOOD_WAIT into transport.RateLimitError so callers can back
// off, and annotates everything else.
func wrapErr(err error, op string) error {
	if err == nil {
		return nil
	}
	if d, ok := tgerr.AsFloodWait(err); ok {
		return &transport.RateLimitError{RetryAfter: d, Err: err}
	}
	return errors.Wrap(err, op)
}
