package telegram

import (
	"bytes"
	"testing"
	"time"

	"github.com/gotd/td/tg"
	"github.com/stretchr/testify/require"

	"github.com/Conte777/media-relay/internal/domain"
)

func TestToItem_Video(t *testing.T) {
	chat := domain.ChatRef{ID: domain.ChannelChatID(777)}
	msg := &tg.Message{
		ID:        10,
		Date:      1700000000,
		Message:   "caption",
		GroupedID: 99,
		Media: &tg.MessageMediaDocument{
			Document: &tg.Document{
				ID:       5,
				Size:     2048,
				MimeType: "video/mp4",
				Attributes: []tg.DocumentAttributeClass{
					&tg.DocumentAttributeFilename{FileName: "clip.mp4"},
					&tg.DocumentAttributeVideo{Duration: 12, W: 1280, H: 720},
					&tg.DocumentAttributeAudio{Duration: 12},
				},
			},
		},
	}

	item := toItem(chat, msg)

	require.Equal(t, domain.Locator{Chat: chat, MessageID: 10}, item.Locator)
	require.Equal(t, int64(99), item.GroupID)
	require.Equal(t, "caption", item.Text)
	require.Equal(t, time.Unix(1700000000, 0), item.Date)
	require.NotNil(t, item.Media)
	require.Equal(t, domain.MediaVideo, item.Media.Kind)
	require.Equal(t, int64(2048), item.Media.Size)
	require.Equal(t, "clip.mp4", item.Media.FileName)
	require.Equal(t, &domain.VideoMeta{Duration: 12, Width: 1280, Height: 720}, item.Media.Video)
	require.Nil(t, item.Media.Audio)

	loc, ok := item.Media.Location.(*tg.InputDocumentFileLocation)
	require.True(t, ok)
	require.Equal(t, int64(5), loc.ID)
}

func TestToMedia_Audio(t *testing.T) {
	media := toMedia(&tg.MessageMediaDocument{
		Document: &tg.Document{
			MimeType: "audio/mpeg",
			Attributes: []tg.DocumentAttributeClass{
				&tg.DocumentAttributeAudio{Duration: 200, Performer: "Artist", Title: "Song"},
			},
		},
	})

	require.NotNil(t, media)
	require.Equal(t, domain.MediaAudio, media.Kind)
	require.Equal(t, &domain.AudioMeta{Duration: 200, Performer: "Artist", Title: "Song"}, media.Audio)
}

func TestToMedia_PlainDocument(t *testing.T) {
	media := toMedia(&tg.MessageMediaDocument{
		Document: &tg.Document{
			MimeType:   "application/pdf",
			Attributes: []tg.DocumentAttributeClass{&tg.DocumentAttributeFilename{FileName: "a.pdf"}},
		},
	})

	require.NotNil(t, media)
	require.Equal(t, domain.MediaDocument, media.Kind)
	require.Equal(t, "a.pdf", media.FileName)
}

func TestToMedia_PhotoPicksLargest(t *testing.T) {
	media := toMedia(&tg.MessageMediaPhoto{
		Photo: &tg.Photo{
			ID: 3,
			Sizes: []tg.PhotoSizeClass{
				&tg.PhotoStrippedSize{Type: "i"},
				&tg.PhotoSize{Type: "m", W: 320, H: 240, Size: 10_000},
				&tg.PhotoSizeProgressive{Type: "y", W: 1280, H: 960, Sizes: []int{1000, 50_000, 120_000}},
				&tg.PhotoSize{Type: "x", W: 800, H: 600, Size: 60_000},
			},
		},
	})

	require.NotNil(t, media)
	require.Equal(t, domain.MediaPhoto, media.Kind)
	require.Equal(t, int64(120_000), media.Size)

	loc, ok := media.Location.(*tg.InputPhotoFileLocation)
	require.True(t, ok)
	require.Equal(t, "y", loc.ThumbSize)
}

func TestToMedia_NoFile(t *testing.T) {
	require.Nil(t, toMedia(nil))
	require.Nil(t, toMedia(&tg.MessageMediaWebPage{}))
	require.Nil(t, toMedia(&tg.MessageMediaPhoto{Photo: &tg.PhotoEmpty{}}))
	require.Nil(t, toMedia(&tg.MessageMediaDocument{Document: &tg.DocumentEmpty{}}))
}

func TestProgressWriter(t *testing.T) {
	var buf bytes.Buffer
	var calls [][2]int64

	w := &progressWriter{w: &buf, total: 6, onProgress: func(done, total int64) {
		calls = append(calls, [2]int64{done, total})
	}}

	_, _ = w.Write([]byte("abc"))
	_, _ = w.Write([]byte("def"))

	require.Equal(t, "abcdef", buf.String())
	require.Equal(t, [][2]int64{{3, 6}, {6, 6}}, calls)
}
