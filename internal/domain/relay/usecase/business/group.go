package business

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Conte777/media-relay/internal/domain"
	"github.com/Conte777/media-relay/internal/domain/relay/entities"
	relayerrors "github.com/Conte777/media-relay/internal/domain/relay/errors"
)

// relayGroup downloads every album member concurrently and uploads them as one album,
// degrading to one-by-one uploads when the bulk call fails.
func (uc *UseCase) relayGroup(ctx context.Context, req entities.Request, first *domain.Item) (*entities.Result, error) {
	dest := uc.destination(req)
	res := &entities.Result{
		Locator:     first.Locator,
		Destination: dest,
		Grouped:     true,
		Backup:      entities.BackupNone,
	}
	if first.Media != nil {
		res.Kind = first.Media.Kind
	}

	items, err := req.Source.ResolveGroup(ctx, first.Locator, first.GroupID)
	if err != nil {
		return res, fmt.Errorf("resolve group %d: %w", first.GroupID, err)
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].Locator.MessageID < items[j].Locator.MessageID
	})

	files := newArtifacts(uc.logger)
	defer files.cleanup()

	paths := make([]string, len(items))
	var g errgroup.Group
	for i, item := range items {
		if item.Media == nil {
			continue
		}
		if err := uc.checkSize(ctx, req.Source, item.Media); err != nil {
			uc.logger.Warn().Err(err).Int("message_id", item.Locator.MessageID).Msg("Group item skipped")
			continue
		}

		g.Go(func() error {
			path, err := uc.download(ctx, req, item, files)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				uc.logger.Warn().Err(err).Int("message_id", item.Locator.MessageID).Msg("Group item download failed")
				return nil
			}
			paths[i] = path
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return res, err
	}

	uploads := make([]domain.Upload, 0, len(items))
	for i, item := range items {
		if paths[i] == "" {
			res.Invalid++
			continue
		}
		uploads = append(uploads, uc.buildUpload(ctx, item, paths[i], files))
	}

	if len(uploads) == 0 {
		return res, relayerrors.ErrNoValidMedia
	}

	report(req.Progress, entities.StageUpload, 0, 0)
	sent, failed, fellBack, lastErr := uc.uploadGroup(ctx, req.Uploader(), dest, uploads)
	res.Sent = sent
	res.Uploaded = len(sent)
	res.Failed = failed
	res.GroupFallback = fellBack

	if res.Uploaded == 0 {
		return res, fmt.Errorf("%w: %v", domain.ErrPartialUpload, lastErr)
	}

	uc.archive(ctx, req, uploads)

	report(req.Progress, entities.StageBackup, 0, 0)
	res.Backup = uc.backup(ctx, req.Uploader(), dest, res.Sent, uploads)

	return res, nil
}

// uploadGroup tries one album call; an ambiguous failure is checked against the destination
// before falling back to paced single uploads.
func (uc *UseCase) uploadGroup(
	ctx context.Context,
	sink domain.Connection,
	dest domain.ChatRef,
	uploads []domain.Upload,
) (sent []domain.Sent, failed int, fellBack bool, lastErr error) {
	if len(uploads) == 1 {
		s, err := sink.SendMedia(ctx, dest, uploads[0])
		if err != nil {
			return nil, 1, false, err
		}
		return []domain.Sent{s}, 0, false, nil
	}

	startedAt := time.Now()
	sent, err := sink.SendMediaGroup(ctx, dest, uploads)
	if err == nil {
		return sent, 0, false, nil
	}

	if errors.Is(err, domain.ErrAmbiguousSend) {
		found, ferr := sink.FindRecentGroup(ctx, dest, len(uploads), startedAt.Add(-5*time.Second))
		if ferr == nil && len(found) == len(uploads) {
			uc.logger.Info().Str("destination", dest.String()).Msg("Album delivered despite send error")
			return found, 0, false, nil
		}
		if ferr != nil {
			uc.logger.Debug().Err(ferr).Msg("Could not verify album delivery")
		}
	}

	uc.logger.Warn().Err(err).Int("items", len(uploads)).Msg("Album upload failed, sending items one by one")
	uc.metrics.RecordGroupFallback()

	sent = nil
	for i, u := range uploads {
		if i > 0 {
			if err := uc.sleep(ctx, uc.cfg.GroupSendDelay); err != nil {
				return sent, failed + len(uploads) - i, true, err
			}
		}
		s, err := sink.SendMedia(ctx, dest, u)
		if err != nil {
			failed++
			lastErr = err
			uc.logger.Warn().Err(err).Int("index", i).Msg("Single upload failed")
			continue
		}
		sent = append(sent, s)
	}

	return sent, failed, true, lastErr
}
