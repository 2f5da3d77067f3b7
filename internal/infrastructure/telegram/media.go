package telegram

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/gotd/td/telegram/downloader"
	"github.com/gotd/td/tg"

	"github.com/Conte777/media-relay/internal/domain"
)

// groupWindow is how far around a post album siblings are looked for
const groupWindow = 10

// Resolve fetches a single post
func (c *Connection) Resolve(ctx context.Context, loc domain.Locator) (*domain.Item, error) {
	if err := c.ready(ctx, domain.ScopeDurable); err != nil {
		return nil, err
	}

	peer, err := c.inputPeer(ctx, loc.Chat)
	if err != nil {
		return nil, err
	}

	msgs, err := c.fetchMessages(ctx, peer, []int{loc.MessageID})
	if err != nil {
		return nil, err
	}

	for _, msg := range msgs {
		if msg.ID == loc.MessageID {
			return toItem(loc.Chat, msg), nil
		}
	}

	return nil, fmt.Errorf("%w: message %d in %s", domain.ErrResourceNotFound, loc.MessageID, loc.Chat)
}

// ResolveGroup fetches the album around loc and keeps the posts carrying groupID
func (c *Connection) ResolveGroup(ctx context.Context, loc domain.Locator, groupID int64) ([]*domain.Item, error) {
	if err := c.ready(ctx, domain.ScopeDurable); err != nil {
		return nil, err
	}

	peer, err := c.inputPeer(ctx, loc.Chat)
	if err != nil {
		return nil, err
	}

	ids := make([]int, 0, 2*groupWindow+1)
	for id := loc.MessageID - groupWindow; id <= loc.MessageID+groupWindow; id++ {
		if id > 0 {
			ids = append(ids, id)
		}
	}

	msgs, err := c.fetchMessages(ctx, peer, ids)
	if err != nil {
		return nil, err
	}

	var items []*domain.Item
	for _, msg := range msgs {
		if msg.GroupedID == groupID {
			items = append(items, toItem(loc.Chat, msg))
		}
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: album %d around message %d", domain.ErrResourceNotFound, groupID, loc.MessageID)
	}

	sort.Slice(items, func(i, j int) bool {
		return items[i].Locator.MessageID < items[j].Locator.MessageID
	})
	return items, nil
}

// Download streams the media of item into path
func (c *Connection) Download(ctx context.Context, item *domain.Item, path string, onProgress domain.ProgressFunc) (string, error) {
	if err := c.ready(ctx, domain.ScopeDurable); err != nil {
		return "", err
	}
	if item == nil || item.Media == nil {
		return "", domain.ErrNoMedia
	}

	location, ok := item.Media.Location.(tg.InputFileLocationClass)
	if !ok {
		return "", fmt.Errorf("%w: no file location", domain.ErrNoMedia)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrIO, err)
	}
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrIO, err)
	}

	buf := bufio.NewWriterSize(f, 512*1024)
	w := &progressWriter{w: buf, total: item.Media.Size, onProgress: onProgress}

	_, err = downloader.NewDownloader().Download(c.api, location).Stream(ctx, w)
	if err == nil {
		err = buf.Flush()
	}
	if cerr := f.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("%w: %v", domain.ErrIO, cerr)
	}
	if err != nil {
		_ = os.Remove(path)
		return "", fmt.Errorf("download message %d: %w", item.Locator.MessageID, mapError(err))
	}

	return path, nil
}

// fetchMessages loads messages by id from a channel or from the account's own message box
func (c *Connection) fetchMessages(ctx context.Context, peer tg.InputPeerClass, ids []int) ([]*tg.Message, error) {
	inputs := make([]tg.InputMessageClass, 0, len(ids))
	for _, id := range ids {
		inputs = append(inputs, &tg.InputMessageID{ID: id})
	}

	var (
		res tg.MessagesMessagesClass
		err error
	)
	if ch, ok := peer.(*tg.InputPeerChannel); ok {
		res, err = c.api.ChannelsGetMessages(ctx, &tg.ChannelsGetMessagesRequest{
			Channel: &tg.InputChannel{ChannelID: ch.ChannelID, AccessHash: ch.AccessHash},
			ID:      inputs,
		})
	} else {
		res, err = c.api.MessagesGetMessages(ctx, inputs)
	}
	if err != nil {
		return nil, mapError(err)
	}

	return c.messages(res), nil
}

// messages unpacks a history-like response and records its peers
func (c *Connection) messages(res tg.MessagesMessagesClass) []*tg.Message {
	var raw []tg.MessageClass
	switch m := res.(type) {
	case *tg.MessagesMessages:
		c.peers.collect(m.Chats, m.Users)
		raw = m.Messages
	case *tg.MessagesMessagesSlice:
		c.peers.collect(m.Chats, m.Users)
		raw = m.Messages
	case *tg.MessagesChannelMessages:
		c.peers.collect(m.Chats, m.Users)
		raw = m.Messages
	}

	out := make([]*tg.Message, 0, len(raw))
	for _, msg := range raw {
		if m, ok := msg.(*tg.Message); ok {
			out = append(out, m)
		}
	}
	return out
}

// toItem converts a provider message into a domain item
func toItem(chat domain.ChatRef, msg *tg.Message) *domain.Item {
	return &domain.Item{
		Locator: domain.Locator{Chat: chat, MessageID: msg.ID},
		GroupID: msg.GroupedID,
		Text:    msg.Message,
		Media:   toMedia(msg.Media),
		Date:    time.Unix(int64(msg.Date), 0),
	}
}

// toMedia keeps photos and documents; web previews, polls, locations and the like carry no file
func toMedia(media tg.MessageMediaClass) *domain.Media {
	switch m := media.(type) {
	case *tg.MessageMediaPhoto:
		photo, ok := m.Photo.(*tg.Photo)
		if !ok {
			return nil
		}
		sizeType, size := largestPhotoSize(photo.Sizes)
		if sizeType == "" {
			return nil
		}
		return &domain.Media{
			Kind:     domain.MediaPhoto,
			Size:     size,
			FileName: fmt.Sprintf("photo_%d.jpg", photo.ID),
			MimeType: "image/jpeg",
			Location: &tg.InputPhotoFileLocation{
				ID:            photo.ID,
				AccessHash:    photo.AccessHash,
				FileReference: photo.FileReference,
				ThumbSize:     sizeType,
			},
		}

	case *tg.MessageMediaDocument:
		doc, ok := m.Document.(*tg.Document)
		if !ok {
			return nil
		}
		return documentMedia(doc)
	}

	return nil
}

func documentMedia(doc *tg.Document) *domain.Media {
	media := &domain.Media{
		Kind:     domain.MediaDocument,
		Size:     int64(doc.Size),
		MimeType: doc.MimeType,
		Location: &tg.InputDocumentFileLocation{
			ID:            doc.ID,
			AccessHash:    doc.AccessHash,
			FileReference: doc.FileReference,
		},
	}

	for _, attr := range doc.Attributes {
		switch a := attr.(type) {
		case *tg.DocumentAttributeFilename:
			media.FileName = a.FileName
		case *tg.DocumentAttributeVideo:
			media.Kind = domain.MediaVideo
			media.Video = &domain.VideoMeta{Duration: int(a.Duration), Width: a.W, Height: a.H}
		case *tg.DocumentAttributeAudio:
			if media.Kind == domain.MediaVideo {
				continue
			}
			media.Kind = domain.MediaAudio
			media.Audio = &domain.AudioMeta{Duration: a.Duration, Performer: a.Performer, Title: a.Title}
		}
	}

	return media
}

// largestPhotoSize returns the type and byte size of the biggest downloadable rendition
func largestPhotoSize(sizes []tg.PhotoSizeClass) (string, int64) {
	var (
		bestType string
		bestSize int64
		bestArea int
	)

	for _, s := range sizes {
		var (
			typ        string
			area, size int
		)
		switch ps := s.(type) {
		case *tg.PhotoSize:
			typ, area, size = ps.Type, ps.W*ps.H, ps.Size
		case *tg.PhotoSizeProgressive:
			typ, area = ps.Type, ps.W*ps.H
			if n := len(ps.Sizes); n > 0 {
				size = ps.Sizes[n-1]
			}
		default:
			continue
		}
		if area >= bestArea {
			bestType, bestArea, bestSize = typ, area, int64(size)
		}
	}

	return bestType, bestSize
}

// progressWriter reports bytes written so far
type progressWriter struct {
	w          io.Writer
	done       int64
	total      int64
	onProgress domain.ProgressFunc
}

func (p *progressWriter) Write(b []byte) (int, error) {
	n, err := p.w.Write(b)
	p.done += int64(n)
	if p.onProgress != nil {
		p.onProgress(p.done, p.total)
	}
	return n, err
}
