package business

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Conte777/media-relay/config"
	"github.com/Conte777/media-relay/internal/domain"
	"github.com/Conte777/media-relay/internal/domain/relay/deps"
	"github.com/Conte777/media-relay/internal/domain/relay/entities"
	relayerrors "github.com/Conte777/media-relay/internal/domain/relay/errors"
	"github.com/Conte777/media-relay/internal/infrastructure/metrics"
)

// UseCase is the relay pipeline: resolve, download, upload, back up, clean up
type UseCase struct {
	targets  deps.TargetSource
	probe    domain.MediaProbe
	thumbs   domain.ThumbnailExtractor
	events   deps.EventPublisher
	archiver deps.ArtifactArchiver
	cfg      *config.RelayConfig
	metrics  *metrics.Metrics
	logger   zerolog.Logger

	// sleep paces sequential group uploads; replaced in tests
	sleep func(ctx context.Context, d time.Duration) error
}

// NewUseCase creates a new relay pipeline
func NewUseCase(
	targets deps.TargetSource,
	probe domain.MediaProbe,
	thumbs domain.ThumbnailExtractor,
	events deps.EventPublisher,
	archiver deps.ArtifactArchiver,
	cfg *config.RelayConfig,
	logger zerolog.Logger,
) *UseCase {
	return &UseCase{
		targets:  targets,
		probe:    probe,
		thumbs:   thumbs,
		events:   events,
		archiver: archiver,
		cfg:      cfg,
		metrics:  metrics.GetDefaultMetrics(),
		logger:   logger.With().Str("usecase", "relay").Logger(),
		sleep:    sleepCtx,
	}
}

// Relay resolves the post behind req.Locator and relays it
func (uc *UseCase) Relay(ctx context.Context, req entities.Request) (*entities.Result, error) {
	if req.Source == nil {
		return nil, relayerrors.ErrNoConnection
	}

	report(req.Progress, entities.StageResolve, 0, 0)

	item, err := req.Source.Resolve(ctx, req.Locator)
	if err != nil {
		return nil, fmt.Errorf("resolve %s/%d: %w", req.Locator.Chat, req.Locator.MessageID, err)
	}

	return uc.RelayItem(ctx, req, item)
}

// RelayItem relays an already resolved post
func (uc *UseCase) RelayItem(ctx context.Context, req entities.Request, item *domain.Item) (*entities.Result, error) {
	if req.Source == nil {
		return nil, relayerrors.ErrNoConnection
	}

	start := time.Now()
	var (
		res *entities.Result
		err error
	)

	switch {
	case item.GroupID != 0:
		res, err = uc.relayGroup(ctx, req, item)
	case item.Media != nil:
		res, err = uc.relaySingle(ctx, req, item)
	case item.HasText():
		res, err = uc.relayText(ctx, req, item)
	default:
		err = relayerrors.ErrNothingToRelay
	}

	if res == nil {
		res = &entities.Result{Locator: item.Locator, Destination: uc.destination(req), Backup: entities.BackupNone}
		if item.Media != nil {
			res.Kind = item.Media.Kind
		}
	}
	res.Duration = time.Since(start)

	uc.finish(ctx, req, res, err)

	return res, err
}

func (uc *UseCase) relaySingle(ctx context.Context, req entities.Request, item *domain.Item) (*entities.Result, error) {
	dest := uc.destination(req)
	res := &entities.Result{
		Locator:     item.Locator,
		Kind:        item.Media.Kind,
		Destination: dest,
		Backup:      entities.BackupNone,
	}

	if err := uc.checkSize(ctx, req.Source, item.Media); err != nil {
		res.Invalid = 1
		return res, err
	}

	files := newArtifacts(uc.logger)
	defer files.cleanup()

	path, err := uc.download(ctx, req, item, files)
	if err != nil {
		res.Failed = 1
		return res, err
	}

	upload := uc.buildUpload(ctx, item, path, files)

	report(req.Progress, entities.StageUpload, 0, 0)
	sent, err := req.Uploader().SendMedia(ctx, dest, upload)
	if err != nil {
		res.Failed = 1
		return res, fmt.Errorf("upload to %s: %w", dest, err)
	}

	res.Uploaded = 1
	res.Sent = []domain.Sent{sent}

	uc.archive(ctx, req, []domain.Upload{upload})

	report(req.Progress, entities.StageBackup, 0, 0)
	res.Backup = uc.backup(ctx, req.Uploader(), dest, res.Sent, []domain.Upload{upload})

	return res, nil
}

func (uc *UseCase) relayText(ctx context.Context, req entities.Request, item *domain.Item) (*entities.Result, error) {
	dest := uc.destination(req)
	res := &entities.Result{
		Locator:     item.Locator,
		Destination: dest,
		TextOnly:    true,
		Backup:      entities.BackupNone,
	}

	sent, err := req.Uploader().SendText(ctx, dest, item.Text)
	if err != nil {
		res.Failed = 1
		return res, fmt.Errorf("send text to %s: %w", dest, err)
	}

	res.Uploaded = 1
	res.Sent = []domain.Sent{sent}
	res.Backup = uc.backup(ctx, req.Uploader(), dest, res.Sent, nil)

	return res, nil
}

// destination is the relay channel when set, otherwise the requesting chat
func (uc *UseCase) destination(req entities.Request) domain.ChatRef {
	if id := uc.targets.Targets().RelayChannelID; id != 0 {
		return domain.ChatRef{ID: id}
	}
	return req.Origin
}

// finish records metrics and publishes the relay event
func (uc *UseCase) finish(ctx context.Context, req entities.Request, res *entities.Result, relayErr error) {
	outcome := "success"
	switch {
	case relayErr == nil && res.Failed > 0:
		outcome = "partial"
	case errors.Is(relayErr, context.Canceled):
		outcome = "cancelled"
	case relayErr != nil:
		outcome = "failed"
	}

	kind := res.Kind.String()
	if res.TextOnly {
		kind = "text"
	}
	uc.metrics.RecordRelay(kind, outcome, res.Duration.Seconds())
	if res.Backup != entities.BackupNone {
		uc.metrics.RecordBackup(string(res.Backup))
	}

	log := uc.logger.With().
		Int64("user_id", req.UserID).
		Str("source", res.Locator.Chat.String()).
		Int("message_id", res.Locator.MessageID).
		Str("outcome", outcome).
		Logger()
	if relayErr != nil {
		log.Warn().Err(relayErr).Msg("Relay failed")
	} else {
		log.Info().
			Int("uploaded", res.Uploaded).
			Str("destination", res.Destination.String()).
			Str("backup", string(res.Backup)).
			Dur("duration", res.Duration).
			Msg("Relay completed")
	}

	if uc.events == nil {
		return
	}

	event := entities.RelayEvent{
		ID:          uuid.NewString(),
		UserID:      req.UserID,
		SourceChat:  res.Locator.Chat.String(),
		MessageID:   res.Locator.MessageID,
		Kind:        kind,
		Destination: res.Destination.String(),
		Uploaded:    res.Uploaded,
		Failed:      res.Failed,
		Backup:      string(res.Backup),
		Outcome:     outcome,
		DurationMS:  res.Duration.Milliseconds(),
		CompletedAt: time.Now().UTC(),
	}
	for _, s := range res.Sent {
		event.MessageIDs = append(event.MessageIDs, s.ID)
	}
	if relayErr != nil {
		event.Error = relayErr.Error()
	}

	// the request context may already be cancelled; the event still describes what happened
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	if err := uc.events.PublishRelayCompleted(pubCtx, event); err != nil {
		log.Warn().Err(err).Msg("Failed to publish relay event")
	}
}

func report(p entities.Progress, stage entities.Stage, done, total int64) {
	if p != nil {
		p(stage, done, total)
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
