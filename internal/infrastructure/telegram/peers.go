package telegram

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/gotd/td/tg"

	"github.com/Conte777/media-relay/internal/domain"
)

const (
	dialogsPageSize = 100
	maxDialogPages  = 20
)

// peerCache remembers access hashes seen in API responses.
// Channels and users can only be addressed with the hash the server handed out.
type peerCache struct {
	mu        sync.RWMutex
	channels  map[int64]int64
	users     map[int64]int64
	usernames map[string]tg.InputPeerClass
}

func newPeerCache() *peerCache {
	return &peerCache{
		channels:  make(map[int64]int64),
		users:     make(map[int64]int64),
		usernames: make(map[string]tg.InputPeerClass),
	}
}

// collect records every chat and user of a response
func (p *peerCache) collect(chats []tg.ChatClass, users []tg.UserClass) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, chat := range chats {
		switch ch := chat.(type) {
		case *tg.Channel:
			p.channels[ch.ID] = ch.AccessHash
			if ch.Username != "" {
				p.usernames[strings.ToLower(ch.Username)] = &tg.InputPeerChannel{ChannelID: ch.ID, AccessHash: ch.AccessHash}
			}
		case *tg.ChannelForbidden:
			p.channels[ch.ID] = ch.AccessHash
		}
	}

	for _, user := range users {
		if u, ok := user.(*tg.User); ok {
			p.users[u.ID] = u.AccessHash
			if u.Username != "" {
				p.usernames[strings.ToLower(u.Username)] = &tg.InputPeerUser{UserID: u.ID, AccessHash: u.AccessHash}
			}
		}
	}
}

func (p *peerCache) byUsername(username string) (tg.InputPeerClass, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	peer, ok := p.usernames[strings.ToLower(username)]
	return peer, ok
}

// byID builds an input peer for a Bot API style chat id
func (p *peerCache) byID(chatID int64) (tg.InputPeerClass, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	kind, id := domain.SplitChatID(chatID)
	switch kind {
	case "channel":
		hash, ok := p.channels[id]
		if !ok {
			return nil, false
		}
		return &tg.InputPeerChannel{ChannelID: id, AccessHash: hash}, true
	case "chat":
		return &tg.InputPeerChat{ChatID: id}, true
	default:
		hash, ok := p.users[id]
		if !ok {
			return nil, false
		}
		return &tg.InputPeerUser{UserID: id, AccessHash: hash}, true
	}
}

// chatID converts a peer into the Bot API style id used by domain.ChatRef
func chatID(peer tg.PeerClass) int64 {
	switch p := peer.(type) {
	case *tg.PeerChannel:
		return domain.ChannelChatID(p.ChannelID)
	case *tg.PeerChat:
		return -p.ChatID
	case *tg.PeerUser:
		return p.UserID
	default:
		return 0
	}
}

// inputPeer resolves ref, asking the server only when the cache has no access hash
func (c *Connection) inputPeer(ctx context.Context, ref domain.ChatRef) (tg.InputPeerClass, error) {
	if ref.Username != "" {
		if peer, ok := c.peers.byUsername(ref.Username); ok {
			return peer, nil
		}
		return c.resolveUsername(ctx, ref.Username)
	}

	if ref.ID == 0 {
		return nil, fmt.Errorf("%w: empty chat reference", domain.ErrResourceNotFound)
	}

	c.mu.RLock()
	self := c.self
	c.mu.RUnlock()
	if self != nil && ref.ID == self.ID {
		return &tg.InputPeerSelf{}, nil
	}

	if peer, ok := c.peers.byID(ref.ID); ok {
		return peer, nil
	}

	if err := c.loadDialogs(ctx); err != nil {
		return nil, err
	}
	if peer, ok := c.peers.byID(ref.ID); ok {
		return peer, nil
	}

	return nil, fmt.Errorf("%w: chat %d is not among the account's dialogs", domain.ErrResourceNotFound, ref.ID)
}

func (c *Connection) resolveUsername(ctx context.Context, username string) (tg.InputPeerClass, error) {
	resolved, err := c.api.ContactsResolveUsername(ctx, &tg.ContactsResolveUsernameRequest{
		Username: username,
	})
	if err != nil {
		c.logger.Debug().Err(err).Str("username", username).Msg("failed to resolve username")
		return nil, mapError(err)
	}

	c.peers.collect(resolved.Chats, resolved.Users)

	if peer, ok := c.peers.byUsername(username); ok {
		return peer, nil
	}
	if peer, ok := c.peers.byID(chatID(resolved.Peer)); ok {
		return peer, nil
	}

	return nil, fmt.Errorf("%w: @%s", domain.ErrResourceNotFound, username)
}

// loadDialogs walks the dialog list to learn access hashes of chats joined earlier
func (c *Connection) loadDialogs(ctx context.Context) error {
	var (
		offsetDate int
		offsetID   int
		offsetPeer tg.InputPeerClass = &tg.InputPeerEmpty{}
	)

	for page := 0; page < maxDialogPages; page++ {
		res, err := c.api.MessagesGetDialogs(ctx, &tg.MessagesGetDialogsRequest{
			OffsetDate: offsetDate,
			OffsetID:   offsetID,
			OffsetPeer: offsetPeer,
			Limit:      dialogsPageSize,
		})
		if err != nil {
			return fmt.Errorf("get dialogs: %w", mapError(err))
		}

		var (
			dialogs  []tg.DialogClass
			messages []tg.MessageClass
		)
		switch d := res.(type) {
		case *tg.MessagesDialogs:
			c.peers.collect(d.Chats, d.Users)
			return nil
		case *tg.MessagesDialogsSlice:
			c.peers.collect(d.Chats, d.Users)
			dialogs, messages = d.Dialogs, d.Messages
		default:
			return nil
		}

		if len(dialogs) < dialogsPageSize || len(messages) == 0 {
			return nil
		}

		last, ok := messages[len(messages)-1].(*tg.Message)
		if !ok {
			return nil
		}
		dialog, ok := dialogs[len(dialogs)-1].(*tg.Dialog)
		if !ok {
			return nil
		}
		peer, ok := c.peers.byID(chatID(dialog.Peer))
		if !ok {
			return nil
		}
		offsetDate, offsetID, offsetPeer = last.Date, last.ID, peer
	}

	c.logger.Debug().Int("pages", maxDialogPages).Msg("dialog scan stopped at page limit")
	return nil
}
