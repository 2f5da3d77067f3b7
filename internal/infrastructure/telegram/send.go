package telegram

import (
	"context"
	"fmt"
	"math/rand/v2"
	"path/filepath"
	"sort"
	"time"

	"github.com/gotd/td/telegram/uploader"
	"github.com/gotd/td/tg"

	"github.com/Conte777/media-relay/internal/domain"
)

// historyScan bounds how many recent destination posts FindRecentGroup inspects
const historyScan = 30

// SendText posts a text message
func (c *Connection) SendText(ctx context.Context, dest domain.ChatRef, text string) (domain.Sent, error) {
	if err := c.ready(ctx, domain.ScopeDurable); err != nil {
		return domain.Sent{}, err
	}

	peer, err := c.inputPeer(ctx, dest)
	if err != nil {
		return domain.Sent{}, err
	}

	updates, err := c.api.MessagesSendMessage(ctx, &tg.MessagesSendMessageRequest{
		Peer:     peer,
		Message:  text,
		RandomID: rand.Int64(),
	})
	if err != nil {
		return domain.Sent{}, mapSendError(ctx, err)
	}

	return c.firstSent(updates, dest)
}

// SendMedia uploads one artifact
func (c *Connection) SendMedia(ctx context.Context, dest domain.ChatRef, upload domain.Upload) (domain.Sent, error) {
	if err := c.ready(ctx, domain.ScopeDurable); err != nil {
		return domain.Sent{}, err
	}

	peer, err := c.inputPeer(ctx, dest)
	if err != nil {
		return domain.Sent{}, err
	}

	media, err := c.uploadedMedia(ctx, upload)
	if err != nil {
		return domain.Sent{}, err
	}

	updates, err := c.api.MessagesSendMedia(ctx, &tg.MessagesSendMediaRequest{
		Peer:     peer,
		Media:    media,
		Message:  upload.Caption,
		RandomID: rand.Int64(),
	})
	if err != nil {
		return domain.Sent{}, mapSendError(ctx, err)
	}

	return c.firstSent(updates, dest)
}

// SendMediaGroup uploads the artifacts, registers them with the destination and sends one album
func (c *Connection) SendMediaGroup(ctx context.Context, dest domain.ChatRef, uploads []domain.Upload) ([]domain.Sent, error) {
	if err := c.ready(ctx, domain.ScopeDurable); err != nil {
		return nil, err
	}

	peer, err := c.inputPeer(ctx, dest)
	if err != nil {
		return nil, err
	}

	multi := make([]tg.InputSingleMedia, 0, len(uploads))
	for _, u := range uploads {
		uploaded, err := c.uploadedMedia(ctx, u)
		if err != nil {
			return nil, err
		}

		registered, err := c.api.MessagesUploadMedia(ctx, &tg.MessagesUploadMediaRequest{
			Peer:  peer,
			Media: uploaded,
		})
		if err != nil {
			return nil, fmt.Errorf("register %s: %w", filepath.Base(u.Path), mapError(err))
		}

		input, err := albumMedia(registered)
		if err != nil {
			return nil, err
		}

		multi = append(multi, tg.InputSingleMedia{
			Media:    input,
			RandomID: rand.Int64(),
			Message:  u.Caption,
		})
	}

	updates, err := c.api.MessagesSendMultiMedia(ctx, &tg.MessagesSendMultiMediaRequest{
		Peer:       peer,
		MultiMedia: multi,
	})
	if err != nil {
		return nil, mapSendError(ctx, err)
	}

	sent := c.sentFromUpdates(updates, dest)
	if len(sent) == 0 {
		return nil, fmt.Errorf("%w: album response carried no messages", domain.ErrAmbiguousSend)
	}
	return sent, nil
}

// CopyMessages forwards ids from one chat to another without the author header
func (c *Connection) CopyMessages(ctx context.Context, dest, from domain.ChatRef, ids []int) ([]domain.Sent, error) {
	if err := c.ready(ctx, domain.ScopeDurable); err != nil {
		return nil, err
	}

	toPeer, err := c.inputPeer(ctx, dest)
	if err != nil {
		return nil, err
	}
	fromPeer, err := c.inputPeer(ctx, from)
	if err != nil {
		return nil, err
	}

	randomIDs := make([]int64, len(ids))
	for i := range randomIDs {
		randomIDs[i] = rand.Int64()
	}

	updates, err := c.api.MessagesForwardMessages(ctx, &tg.MessagesForwardMessagesRequest{
		FromPeer:   fromPeer,
		ID:         ids,
		RandomID:   randomIDs,
		ToPeer:     toPeer,
		DropAuthor: true,
	})
	if err != nil {
		return nil, mapSendError(ctx, err)
	}

	return c.sentFromUpdates(updates, dest), nil
}

// FindRecentGroup returns the newest outgoing album of exactly count posts sent to dest since the given time
func (c *Connection) FindRecentGroup(ctx context.Context, dest domain.ChatRef, count int, since time.Time) ([]domain.Sent, error) {
	if err := c.ready(ctx, domain.ScopeDurable); err != nil {
		return nil, err
	}

	peer, err := c.inputPeer(ctx, dest)
	if err != nil {
		return nil, err
	}

	res, err := c.api.MessagesGetHistory(ctx, &tg.MessagesGetHistoryRequest{
		Peer:  peer,
		Limit: historyScan,
	})
	if err != nil {
		return nil, mapError(err)
	}

	return recentGroup(c.messages(res), dest, count, since), nil
}

// recentGroup picks the newest album of exactly count outgoing posts dated at or after since
func recentGroup(msgs []*tg.Message, dest domain.ChatRef, count int, since time.Time) []domain.Sent {
	groups := make(map[int64][]domain.Sent)
	newest := make(map[int64]int)

	for _, msg := range msgs {
		if !msg.Out || msg.GroupedID == 0 || time.Unix(int64(msg.Date), 0).Before(since) {
			continue
		}
		id := chatID(msg.PeerID)
		if id == 0 {
			id = dest.ID
		}
		groups[msg.GroupedID] = append(groups[msg.GroupedID], domain.Sent{ChatID: id, ID: msg.ID})
		if msg.ID > newest[msg.GroupedID] {
			newest[msg.GroupedID] = msg.ID
		}
	}

	var (
		best   []domain.Sent
		bestID int
	)
	for gid, sent := range groups {
		if len(sent) == count && newest[gid] > bestID {
			best, bestID = sent, newest[gid]
		}
	}

	sort.Slice(best, func(i, j int) bool { return best[i].ID < best[j].ID })
	return best
}

// uploadedMedia uploads the file and its thumbnail and describes them for a send call
func (c *Connection) uploadedMedia(ctx context.Context, u domain.Upload) (tg.InputMediaClass, error) {
	up := uploader.NewUploader(c.api)

	file, err := up.FromPath(ctx, u.Path)
	if err != nil {
		return nil, fmt.Errorf("upload %s: %w", filepath.Base(u.Path), mapError(err))
	}

	if u.Kind == domain.MediaPhoto {
		return &tg.InputMediaUploadedPhoto{File: file}, nil
	}

	doc := &tg.InputMediaUploadedDocument{
		File:       file,
		MimeType:   u.MimeType,
		Attributes: documentAttributes(u),
	}
	if doc.MimeType == "" {
		doc.MimeType = "application/octet-stream"
	}

	if u.ThumbPath != "" {
		thumb, err := up.FromPath(ctx, u.ThumbPath)
		if err != nil {
			c.logger.Debug().Err(err).Msg("thumbnail upload failed, sending without it")
		} else {
			doc.Thumb = thumb
		}
	}

	return doc, nil
}

func documentAttributes(u domain.Upload) []tg.DocumentAttributeClass {
	name := u.FileName
	if name == "" {
		name = filepath.Base(u.Path)
	}
	attrs := []tg.DocumentAttributeClass{&tg.DocumentAttributeFilename{FileName: name}}

	switch u.Kind {
	case domain.MediaVideo:
		attrs = append(attrs, &tg.DocumentAttributeVideo{
			SupportsStreaming: true,
			Duration:          float64(u.Duration),
			W:                 u.Width,
			H:                 u.Height,
		})
	case domain.MediaAudio:
		attrs = append(attrs, &tg.DocumentAttributeAudio{
			Duration:  u.Duration,
			Performer: u.Performer,
			Title:     u.Title,
		})
	}

	return attrs
}

// albumMedia turns a registered upload into a reference usable inside an album
func albumMedia(media tg.MessageMediaClass) (tg.InputMediaClass, error) {
	switch m := media.(type) {
	case *tg.MessageMediaPhoto:
		if p, ok := m.Photo.(*tg.Photo); ok {
			return &tg.InputMediaPhoto{ID: &tg.InputPhoto{
				ID:            p.ID,
				AccessHash:    p.AccessHash,
				FileReference: p.FileReference,
			}}, nil
		}
	case *tg.MessageMediaDocument:
		if d, ok := m.Document.(*tg.Document); ok {
			return &tg.InputMediaDocument{ID: &tg.InputDocument{
				ID:            d.ID,
				AccessHash:    d.AccessHash,
				FileReference: d.FileReference,
			}}, nil
		}
	}
	return nil, fmt.Errorf("unexpected registered media %T", media)
}

func (c *Connection) firstSent(updates tg.UpdatesClass, dest domain.ChatRef) (domain.Sent, error) {
	sent := c.sentFromUpdates(updates, dest)
	if len(sent) == 0 {
		return domain.Sent{}, fmt.Errorf("%w: response carried no message", domain.ErrAmbiguousSend)
	}
	return sent[0], nil
}

// sentFromUpdates extracts the ids of the messages a send produced, in id order
func (c *Connection) sentFromUpdates(updates tg.UpdatesClass, dest domain.ChatRef) []domain.Sent {
	var list []tg.UpdateClass
	switch u := updates.(type) {
	case *tg.UpdateShortSentMessage:
		return []domain.Sent{{ChatID: dest.ID, ID: u.ID}}
	case *tg.Updates:
		c.peers.collect(u.Chats, u.Users)
		list = u.Updates
	case *tg.UpdatesCombined:
		c.peers.collect(u.Chats, u.Users)
		list = u.Updates
	case *tg.UpdateShort:
		list = []tg.UpdateClass{u.Update}
	}

	return sentMessages(list, dest)
}

func sentMessages(list []tg.UpdateClass, dest domain.ChatRef) []domain.Sent {
	var (
		sent    []domain.Sent
		idsOnly []domain.Sent
	)

	for _, upd := range list {
		var msg tg.MessageClass
		switch u := upd.(type) {
		case *tg.UpdateNewMessage:
			msg = u.Message
		case *tg.UpdateNewChannelMessage:
			msg = u.Message
		case *tg.UpdateMessageID:
			idsOnly = append(idsOnly, domain.Sent{ChatID: dest.ID, ID: u.ID})
			continue
		default:
			continue
		}

		if m, ok := msg.(*tg.Message); ok {
			id := chatID(m.PeerID)
			if id == 0 {
				id = dest.ID
			}
			sent = append(sent, domain.Sent{ChatID: id, ID: m.ID})
		}
	}

	if len(sent) == 0 {
		sent = idsOnly
	}
	sort.Slice(sent, func(i, j int) bool { return sent[i].ID < sent[j].ID })
	return sent
}
