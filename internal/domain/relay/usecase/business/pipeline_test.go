package business

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/Conte777/media-relay/config"
	"github.com/Conte777/media-relay/internal/domain"
	"github.com/Conte777/media-relay/internal/domain/domaintest"
	"github.com/Conte777/media-relay/internal/domain/relay/entities"
	relayerrors "github.com/Conte777/media-relay/internal/domain/relay/errors"
)

var (
	source = domain.ChatRef{ID: -1001234567890}
	origin = domain.ChatRef{ID: 555}
)

type fakeTargets struct {
	targets entities.Targets
}

func (f *fakeTargets) Targets() entities.Targets { return f.targets }

type fakeProbe struct {
	result *domain.ProbeResult
	err    error
}

func (f *fakeProbe) Probe(context.Context, string) (*domain.ProbeResult, error) {
	return f.result, f.err
}

type fakeThumbs struct {
	dir     string
	err     error
	calls   int
	seconds []int
}

func (f *fakeThumbs) Extract(_ context.Context, _ string, atSecond int, _ time.Duration) (string, error) {
	f.calls++
	f.seconds = append(f.seconds, atSecond)
	if f.err != nil {
		return "", f.err
	}
	path := filepath.Join(f.dir, "thumb.jpg")
	if err := os.WriteFile(path, []byte("jpg"), 0o600); err != nil {
		return "", err
	}
	return path, nil
}

type fakeEvents struct {
	mu     sync.Mutex
	events []entities.RelayEvent
}

func (f *fakeEvents) PublishRelayCompleted(_ context.Context, e entities.RelayEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, e)
	return nil
}

type harness struct {
	uc      *UseCase
	targets *fakeTargets
	thumbs  *fakeThumbs
	events  *fakeEvents
	dir     string
	pauses  int
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	dir := t.TempDir()
	h := &harness{
		targets: &fakeTargets{},
		thumbs:  &fakeThumbs{dir: dir},
		events:  &fakeEvents{},
		dir:     dir,
	}
	cfg := &config.RelayConfig{
		DownloadDir:      dir,
		GroupSendDelay:   time.Second,
		ThumbnailTimeout: time.Second,
	}
	h.uc = NewUseCase(h.targets, &fakeProbe{err: errors.New("no ffprobe")}, h.thumbs, h.events, nil, cfg, zerolog.Nop())
	h.uc.sleep = func(ctx context.Context, _ time.Duration) error {
		h.pauses++
		return ctx.Err()
	}
	return h
}

func (h *harness) request(conn *domaintest.Connection, msgID int) entities.Request {
	return entities.Request{
		UserID:  1,
		Source:  conn,
		Locator: domain.Locator{Chat: source, MessageID: msgID},
		Origin:  origin,
	}
}

func requireEmptyDir(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Empty(t, entries, "temp artifacts must be removed")
}

func photo(id int) *domain.Item {
	return &domain.Item{
		Locator: domain.Locator{Chat: source, MessageID: id},
		Text:    "caption",
		Media:   &domain.Media{Kind: domain.MediaPhoto, Size: 10},
	}
}

func TestRelay_DeliversToRequestingChat(t *testing.T) {
	h := newHarness(t)
	conn := domaintest.NewDurable(&domain.Account{ID: 1})
	conn.Items = map[int]*domain.Item{10: photo(10)}

	res, err := h.uc.Relay(context.Background(), h.request(conn, 10))
	require.NoError(t, err)

	media, _, copies := conn.Snapshot()
	require.Len(t, media, 1)
	require.Equal(t, origin, media[0].Dest)
	require.Equal(t, "caption", media[0].Upload.Caption)
	require.Empty(t, copies)
	require.Equal(t, entities.BackupNone, res.Backup)
	require.Equal(t, 1, res.Uploaded)
	requireEmptyDir(t, h.dir)
}

func TestRelay_RelayChannelWithBackupCopy(t *testing.T) {
	h := newHarness(t)
	h.targets.targets = entities.Targets{RelayChannelID: -100123, BackupChannelID: -100456}

	conn := domaintest.NewDurable(&domain.Account{ID: 1})
	conn.Items = map[int]*domain.Item{10: photo(10)}

	res, err := h.uc.Relay(context.Background(), h.request(conn, 10))
	require.NoError(t, err)

	media, _, copies := conn.Snapshot()
	require.Len(t, media, 1, "only the relay channel receives the upload")
	require.Equal(t, int64(-100123), media[0].Dest.ID)

	require.Len(t, copies, 1)
	require.Equal(t, int64(-100456), copies[0].Dest.ID)
	require.Equal(t, int64(-100123), copies[0].From.ID)
	require.Equal(t, []int{res.Sent[0].ID}, copies[0].IDs)
	require.Equal(t, entities.BackupCopy, res.Backup)
}

func TestRelay_BackupReuploadWithoutIDs(t *testing.T) {
	h := newHarness(t)
	h.targets.targets = entities.Targets{BackupChannelID: -100456}

	conn := domaintest.NewDurable(&domain.Account{ID: 1})
	conn.Items = map[int]*domain.Item{10: photo(10)}
	conn.OmitIDs = true

	res, err := h.uc.Relay(context.Background(), h.request(conn, 10))
	require.NoError(t, err)

	media, _, copies := conn.Snapshot()
	require.Empty(t, copies)
	require.Len(t, media, 2)
	require.Equal(t, int64(-100456), media[1].Dest.ID)
	require.Equal(t, entities.BackupReupload, res.Backup)
	requireEmptyDir(t, h.dir)
}

func TestRelay_BackupCopyFailureDoesNotReupload(t *testing.T) {
	h := newHarness(t)
	h.targets.targets = entities.Targets{BackupChannelID: -100456}

	conn := domaintest.NewDurable(&domain.Account{ID: 1})
	conn.Items = map[int]*domain.Item{10: photo(10)}
	conn.CopyErr = errors.New("CHAT_WRITE_FORBIDDEN")

	res, err := h.uc.Relay(context.Background(), h.request(conn, 10))
	require.NoError(t, err, "backup failure must not fail the relay")

	media, _, _ := conn.Snapshot()
	require.Len(t, media, 1)
	require.Equal(t, entities.BackupFailed, res.Backup)
}

func TestRelay_SinkUploads(t *testing.T) {
	h := newHarness(t)
	src := domaintest.NewDurable(&domain.Account{ID: 1})
	src.Items = map[int]*domain.Item{10: photo(10)}
	sink := domaintest.NewDurable(&domain.Account{ID: 2})

	req := h.request(src, 10)
	req.Sink = sink
	_, err := h.uc.Relay(context.Background(), req)
	require.NoError(t, err)

	srcMedia, _, _ := src.Snapshot()
	sinkMedia, _, _ := sink.Snapshot()
	require.Empty(t, srcMedia)
	require.Len(t, sinkMedia, 1)
}

func TestRelay_NotFound(t *testing.T) {
	h := newHarness(t)
	conn := domaintest.NewDurable(&domain.Account{ID: 1})

	_, err := h.uc.Relay(context.Background(), h.request(conn, 99))
	require.ErrorIs(t, err, domain.ErrResourceNotFound)
}

func TestRelay_NoConnection(t *testing.T) {
	h := newHarness(t)
	_, err := h.uc.Relay(context.Background(), entities.Request{})
	require.ErrorIs(t, err, relayerrors.ErrNoConnection)
}

func TestRelay_SizeLimit(t *testing.T) {
	h := newHarness(t)
	big := &domain.Item{
		Locator: domain.Locator{Chat: source, MessageID: 10},
		Media:   &domain.Media{Kind: domain.MediaDocument, Size: 3 << 30, FileName: "big.bin"},
	}

	conn := domaintest.NewDurable(&domain.Account{ID: 1})
	conn.Items = map[int]*domain.Item{10: big}

	_, err := h.uc.Relay(context.Background(), h.request(conn, 10))
	require.ErrorIs(t, err, relayerrors.ErrSizeLimitExceeded)
	media, _, _ := conn.Snapshot()
	require.Empty(t, media)
	requireEmptyDir(t, h.dir)

	premium := domaintest.NewDurable(&domain.Account{ID: 1, Premium: true})
	premium.Items = map[int]*domain.Item{10: big}
	_, err = h.uc.Relay(context.Background(), h.request(premium, 10))
	require.NoError(t, err)
}

func TestRelay_EmptyDownload(t *testing.T) {
	h := newHarness(t)
	conn := domaintest.NewDurable(&domain.Account{ID: 1})
	conn.Items = map[int]*domain.Item{10: photo(10)}
	conn.DownloadContent = []byte{}

	_, err := h.uc.Relay(context.Background(), h.request(conn, 10))
	require.ErrorIs(t, err, relayerrors.ErrEmptyArtifact)
	requireEmptyDir(t, h.dir)
}

func TestRelay_CleanupOnUploadFailure(t *testing.T) {
	h := newHarness(t)
	conn := domaintest.NewDurable(&domain.Account{ID: 1})
	conn.Items = map[int]*domain.Item{10: photo(10)}
	conn.SendMediaErr = func(int, domain.Upload) error { return context.Canceled }

	_, err := h.uc.Relay(context.Background(), h.request(conn, 10))
	require.ErrorIs(t, err, context.Canceled)
	requireEmptyDir(t, h.dir)
}

func TestRelay_VideoDefaultsAndThumbnail(t *testing.T) {
	h := newHarness(t)
	conn := domaintest.NewDurable(&domain.Account{ID: 1})
	conn.Items = map[int]*domain.Item{10: {
		Locator: domain.Locator{Chat: source, MessageID: 10},
		Media:   &domain.Media{Kind: domain.MediaVideo, Size: 10, FileName: "clip.mp4"},
	}}

	_, err := h.uc.Relay(context.Background(), h.request(conn, 10))
	require.NoError(t, err)

	media, _, _ := conn.Snapshot()
	u := media[0].Upload
	require.Equal(t, 0, u.Duration)
	require.Equal(t, 640, u.Width)
	require.Equal(t, 480, u.Height)
	require.NotEmpty(t, u.ThumbPath)
	require.Equal(t, []int{1}, h.thumbs.seconds)
	requireEmptyDir(t, h.dir)
}

func TestRelay_ThumbnailFailureIsBestEffort(t *testing.T) {
	h := newHarness(t)
	h.thumbs.err = context.DeadlineExceeded
	h.uc.probe = &fakeProbe{result: &domain.ProbeResult{Duration: 20, Width: 1280, Height: 720}}

	conn := domaintest.NewDurable(&domain.Account{ID: 1})
	conn.Items = map[int]*domain.Item{10: {
		Locator: domain.Locator{Chat: source, MessageID: 10},
		Media:   &domain.Media{Kind: domain.MediaVideo, Size: 10},
	}}

	_, err := h.uc.Relay(context.Background(), h.request(conn, 10))
	require.NoError(t, err)

	media, _, _ := conn.Snapshot()
	u := media[0].Upload
	require.Empty(t, u.ThumbPath)
	require.Equal(t, 20, u.Duration)
	require.Equal(t, 1280, u.Width)
	require.Equal(t, []int{10}, h.thumbs.seconds)
}

func TestRelay_TextOnly(t *testing.T) {
	h := newHarness(t)
	conn := domaintest.NewDurable(&domain.Account{ID: 1})
	conn.Items = map[int]*domain.Item{10: {Locator: domain.Locator{Chat: source, MessageID: 10}, Text: "hello"}}

	res, err := h.uc.Relay(context.Background(), h.request(conn, 10))
	require.NoError(t, err)
	require.True(t, res.TextOnly)
	require.Equal(t, []domain.ChatRef{origin}, conn.TextCalls)
}

func TestRelay_NothingToRelay(t *testing.T) {
	h := newHarness(t)
	conn := domaintest.NewDurable(&domain.Account{ID: 1})
	conn.Items = map[int]*domain.Item{10: {Locator: domain.Locator{Chat: source, MessageID: 10}}}

	_, err := h.uc.Relay(context.Background(), h.request(conn, 10))
	require.ErrorIs(t, err, relayerrors.ErrNothingToRelay)
}

func TestRelay_PublishesEvent(t *testing.T) {
	h := newHarness(t)
	conn := domaintest.NewDurable(&domain.Account{ID: 1})
	conn.Items = map[int]*domain.Item{10: photo(10)}

	_, err := h.uc.Relay(context.Background(), h.request(conn, 10))
	require.NoError(t, err)

	require.Len(t, h.events.events, 1)
	e := h.events.events[0]
	require.Equal(t, "success", e.Outcome)
	require.Equal(t, "photo", e.Kind)
	require.Equal(t, 10, e.MessageID)
	require.Len(t, e.MessageIDs, 1)
}

func TestFormatBytes(t *testing.T) {
	require.Equal(t, "512 B", FormatBytes(512))
	require.Equal(t, "1.50 KiB", FormatBytes(1536))
	require.Equal(t, "2.00 GiB", FormatBytes(SizeLimit(false)))
	require.Equal(t, "4.00 GiB", FormatBytes(SizeLimit(true)))
}
