package telegram

import (
	"sync"

	"github.com/go-faster/errors"
	"github.com/gotd/td/tg"
	"github.com/pavelc4/mediaq-bot/internal/media"
)

// ResolvePeer converts a PeerClass to InputPeerClass using the update's entities.
func ResolvePeer(peer tg.PeerClass, entities tg.Entities) (tg.InputPeerClass, error) {
	switch p := peer.(type) {
	case *tg.PeerUser:
		user, ok := entities.Users[p.UserID]
		if !ok {
			return nil, errors.Errorf("user %d not found in entities", p.UserID)
		}
		return &tg.InputPeerUser{UserID: user.ID, AccessHash: user.AccessHash}, nil
	case *tg.PeerChat:
		if _, ok := entities.Chats[p.ChatID]; !ok {
			return nil, errors.Errorf("chat %d not found in entities", p.ChatID)
		}
		return &tg.InputPeerChat{ChatID: p.ChatID}, nil
	case *tg.PeerChannel:
		channel, ok := entities.Channels[p.ChannelID]
		if !ok {
			return nil, errors.Errorf("channel %d not found in entities", p.ChannelID)
		}
		return &tg.InputPeerChannel{ChannelID: channel.ID, AccessHash: channel.AccessHash}, nil
	default:
		return nil, errors.Errorf("unknown peer type: %T", peer)
	}
}

const channelOffset = 1_000_000_000_000

// ChatID maps a peer to the Bot API style chat identifier: users positive,
// basic groups negative, channels and supergroups below -1e12.
func ChatID(peer tg.PeerClass) int64 {
	switch p := peer.(type) {
	case *tg.PeerUser:
		return p.UserID
	case *tg.PeerChat:
		return -p.ChatID
	case *tg.PeerChannel:
		return -(channelOffset + p.ChannelID)
	}
	return 0
}

func ChatContext(peer tg.PeerClass) media.ChatContext {
	if _, ok := peer.(*tg.PeerUser); ok {
		return media.ChatPrivate
	}
	return media.ChatGroup
}

func SenderID(msg *tg.Message) int64 {
	if from, ok := msg.GetFromID(); ok {
		if user, ok := from.(*tg.PeerUser); ok {
			return user.UserID
		}
	}
	if peer, ok := msg.PeerID.(*tg.PeerUser); ok {
		return peer.UserID
	}
	return 0
}

func getMsgID(updates tg.UpdatesClass) int {
	switch u := updates.(type) {
	case *tg.UpdateShortSentMessage:
		return u.ID
	case *tg.Updates:
		for _, update := range u.Updates {
			switch m := update.(type) {
			case *tg.UpdateMessageID:
				return m.ID
			case *tg.UpdateNewMessage:
				if msg, ok := m.Message.(*tg.Message); ok {
					return msg.ID
				}
			case *tg.UpdateNewChannelMessage:
				if msg, ok := m.Message.(*tg.Message); ok {
					return msg.ID
				}
			}
		}
	}
	return 0
}

// Peers remembers the input peer of every chat the bot has heard from, so the
// transport can address replies by plain chat ID.
type Peers struct {
	mu    sync.RWMutex
	peers map[int64]tg.InputPeerClass
}

func NewPeers() *Peers {
	return &Peers{peers: make(map[int64]tg.InputPeerClass)}
}

func (p *Peers) Remember(chatID int64, peer tg.InputPeerClass) {
	p.mu.Lock()
	p.peers[chatID] = peer
	p.mu.Unlock()
}

func (p *Peers) Lookup(chatID int64) (tg.InputPeerClass, error) {
	p.mu.RLock()
	peer, ok := p.peers[chatID]
	p.mu.RUnlock()
	if !ok {
		return nil, errors.Errorf("no peer known for chat %d", chatID)
	}
	return peer, nil
}
