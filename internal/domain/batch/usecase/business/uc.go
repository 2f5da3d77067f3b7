package business

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/Conte777/media-relay/config"
	"github.com/Conte777/media-relay/internal/domain"
	"github.com/Conte777/media-relay/internal/domain/batch/deps"
	"github.com/Conte777/media-relay/internal/domain/batch/entities"
	batcherrors "github.com/Conte777/media-relay/internal/domain/batch/errors"
	relayerrors "github.com/Conte777/media-relay/internal/domain/relay/errors"
	"github.com/Conte777/media-relay/internal/domain/transfer/workers"
	"github.com/Conte777/media-relay/internal/infrastructure/metrics"
)

// UseCase drives the relay pipeline over an id range in paced windows
type UseCase struct {
	relay     deps.Relayer
	scheduler *workers.Scheduler
	cfg       *config.RelayConfig
	metrics   *metrics.Metrics
	logger    zerolog.Logger

	sleep func(ctx context.Context, d time.Duration) error
}

// NewUseCase creates a new batch use case
func NewUseCase(
	relay deps.Relayer,
	scheduler *workers.Scheduler,
	cfg *config.RelayConfig,
	logger zerolog.Logger,
) *UseCase {
	return &UseCase{
		relay:     relay,
		scheduler: scheduler,
		cfg:       cfg,
		metrics:   metrics.GetDefaultMetrics(),
		logger:    logger.With().Str("usecase", "batch").Logger(),
		sleep:     sleepCtx,
	}
}

type pending struct {
	id   int
	task *workers.Task
}

// Validate rejects ranges that cannot be run
func Validate(req entities.Request) error {
	if !req.Start.Chat.Same(req.End.Chat) {
		return batcherrors.ErrCrossChatRange
	}
	if req.Start.MessageID > req.End.MessageID {
		return batcherrors.ErrInvalidRange
	}
	return nil
}

// Run relays every post from req.Start to req.End inclusive.
// Cancellation stops the batch at once and returns the partial report.
func (uc *UseCase) Run(ctx context.Context, req entities.Request) (*entities.Report, error) {
	if err := Validate(req); err != nil {
		return nil, err
	}
	if req.Source == nil {
		return nil, relayerrors.ErrNoConnection
	}

	start, end := req.Start.MessageID, req.End.MessageID
	rep := &entities.Report{Total: end - start + 1}

	log := uc.logger.With().
		Int64("user_id", req.UserID).
		Str("chat", req.Start.Chat.String()).
		Int("start", start).
		Int("end", end).
		Logger()
	log.Info().Int("window", uc.cfg.WindowSize).Msg("Batch started")

	jobCtx, finish := uc.scheduler.Attach(ctx, fmt.Sprintf("batch %s %d-%d", req.Start.Chat, start, end))
	defer finish()

	seenGroups := make(map[int64]struct{})
	window := make([]pending, 0, uc.cfg.WindowSize)

	for id := start; id <= end; id++ {
		if jobCtx.Err() != nil {
			rep.Cancelled = true
			break
		}

		loc := domain.Locator{Chat: req.Start.Chat, MessageID: id}
		item, err := req.Source.Resolve(jobCtx, loc)
		if err != nil {
			if jobCtx.Err() != nil {
				rep.Cancelled = true
				break
			}
			rep.Processed++
			if errors.Is(err, domain.ErrResourceNotFound) {
				rep.Skipped++
			} else {
				log.Warn().Err(err).Int("message_id", id).Msg("Resolve failed")
				uc.fail(rep, id)
			}
			continue
		}

		if !item.HasMedia() && !item.HasText() {
			rep.Processed++
			rep.Skipped++
			continue
		}
		if item.GroupID != 0 {
			if _, ok := seenGroups[item.GroupID]; ok {
				rep.Processed++
				rep.Skipped++
				continue
			}
			seenGroups[item.GroupID] = struct{}{}
		}

		relayReq := req.RelayRequest(id)
		task := uc.scheduler.Submit(jobCtx, fmt.Sprintf("relay %d", id), func(ctx context.Context) error {
			_, err := uc.relay.RelayItem(ctx, relayReq, item)
			return err
		})
		window = append(window, pending{id: id, task: task})

		if len(window) < uc.cfg.WindowSize {
			continue
		}

		if !uc.flush(jobCtx, rep, window) {
			rep.Cancelled = true
			break
		}
		window = window[:0]
		uc.notify(req, rep)

		if id < end {
			if err := uc.sleep(jobCtx, uc.cfg.WindowDelay); err != nil {
				rep.Cancelled = true
				break
			}
		}
	}

	if !rep.Cancelled && len(window) > 0 {
		if uc.flush(jobCtx, rep, window) {
			uc.notify(req, rep)
		} else {
			rep.Cancelled = true
		}
	}

	*rep = uc.capFailed(*rep)
	uc.metrics.RecordBatch(rep.Downloaded, rep.Skipped, rep.Failed, rep.Cancelled)
	log.Info().
		Int("downloaded", rep.Downloaded).
		Int("skipped", rep.Skipped).
		Int("failed", rep.Failed).
		Bool("cancelled", rep.Cancelled).
		Msg("Batch finished")

	return rep, nil
}

// flush waits for every task of the window; false means the batch was cancelled
func (uc *UseCase) flush(ctx context.Context, rep *entities.Report, window []pending) bool {
	for _, p := range window {
		err := p.task.Wait(ctx)
		if ctx.Err() != nil {
			return false
		}
		rep.Processed++
		if err != nil {
			uc.logger.Warn().Err(err).Int("message_id", p.id).Msg("Batch item failed")
			uc.fail(rep, p.id)
			continue
		}
		rep.Downloaded++
	}
	return true
}

// fail records id; every id is kept until capFailed, since window results arrive out of id order
func (uc *UseCase) fail(rep *entities.Report, id int) {
	rep.Failed++
	rep.FailedIDs = append(rep.FailedIDs, id)
}

// capFailed returns rep with the lowest FailedIDsLimit failed ids in order, the rest counted in FailedOverflow
func (uc *UseCase) capFailed(rep entities.Report) entities.Report {
	ids := append([]int(nil), rep.FailedIDs...)
	sort.Ints(ids)

	rep.FailedOverflow = 0
	if limit := uc.cfg.FailedIDsLimit; limit > 0 && len(ids) > limit {
		rep.FailedOverflow = len(ids) - limit
		ids = ids[:limit]
	}
	rep.FailedIDs = ids
	return rep
}

func (uc *UseCase) notify(req entities.Request, rep *entities.Report) {
	if req.OnWindow != nil {
		req.OnWindow(uc.capFailed(*rep))
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
