package business

import (
	"context"
	"fmt"
	"time"

	"github.com/Conte777/media-relay/internal/domain"
	batchentities "github.com/Conte777/media-relay/internal/domain/batch/entities"
	batchbusiness "github.com/Conte777/media-relay/internal/domain/batch/usecase/business"
	"github.com/Conte777/media-relay/internal/domain/bot/dto"
	relayentities "github.com/Conte777/media-relay/internal/domain/relay/entities"
)

// replyTimeout bounds a status message edit issued after the job context ended
const replyTimeout = 30 * time.Second

// HandleDownload queues a relay of the post behind link.
// A non-nil response is an immediate reply; nil means the job was queued
// and reports through its own status message.
func (uc *UseCase) HandleDownload(ctx context.Context, req *dto.CommandRequest, link string) *dto.CommandResponse {
	if link == "" {
		return &dto.CommandResponse{Message: msgUsageDownload}
	}

	loc, err := domain.ParseLocator(link)
	if err != nil {
		return &dto.CommandResponse{Message: relayErrorMessage(err)}
	}

	conn := uc.sessions.ConnectionFor(req.UserID)
	if conn == nil {
		return &dto.CommandResponse{Message: msgNoConnection}
	}

	statusID, err := uc.sender.SendMessage(ctx, req.ChatID, "⏳ <b>Queued…</b>")
	if err != nil {
		uc.logger.Warn().Err(err).Int64("user_id", req.UserID).Msg("Failed to send status message")
	}

	progress := newProgressTracker(uc.progressInterval, func(text string) {
		uc.editStatus(uc.jobsCtx, req.ChatID, statusID, text)
	})

	relayReq := relayentities.Request{
		UserID:   req.UserID,
		Source:   conn,
		Locator:  loc,
		Origin:   uc.origin(req.UserID),
		Progress: progress.Report,
	}

	var res *relayentities.Result
	task := uc.scheduler.Submit(uc.jobsCtx, fmt.Sprintf("relay %s/%d", loc.Chat, loc.MessageID), func(ctx context.Context) error {
		var err error
		res, err = uc.relay.Relay(ctx, relayReq)
		return err
	})

	uc.logger.Info().
		Int64("user_id", req.UserID).
		Str("chat", loc.Chat.String()).
		Int("message_id", loc.MessageID).
		Str("task_id", task.ID).
		Msg("Relay queued")

	uc.jobs.Add(1)
	go func() {
		defer uc.jobs.Done()

		// Err blocks until the task has finished; res is written before that
		err := task.Err()
		progress.Stop()

		text := ""
		if err != nil {
			text = relayErrorMessage(err)
		} else if res != nil {
			text = relayResultMessage(res)
		}
		uc.finalStatus(uc.jobsCtx, req.ChatID, statusID, text)
	}()

	return nil
}

// HandleBatch starts a batch relay over the inclusive range between two links
func (uc *UseCase) HandleBatch(ctx context.Context, req *dto.CommandRequest) *dto.CommandResponse {
	if len(req.Args) != 2 {
		return &dto.CommandResponse{Message: msgUsageBatch}
	}

	start, err := domain.ParseLocator(req.Args[0])
	if err != nil {
		return &dto.CommandResponse{Message: relayErrorMessage(err)}
	}
	end, err := domain.ParseLocator(req.Args[1])
	if err != nil {
		return &dto.CommandResponse{Message: relayErrorMessage(err)}
	}

	batchReq := batchentities.Request{
		UserID: req.UserID,
		Start:  start,
		End:    end,
		Origin: uc.origin(req.UserID),
	}
	if err := batchbusiness.Validate(batchReq); err != nil {
		return &dto.CommandResponse{Message: relayErrorMessage(err)}
	}

	batchReq.Source = uc.sessions.ConnectionFor(req.UserID)
	if batchReq.Source == nil {
		return &dto.CommandResponse{Message: msgNoConnection}
	}

	statusID, err := uc.sender.SendMessage(ctx, req.ChatID, batchStartMessage(start, end))
	if err != nil {
		uc.logger.Warn().Err(err).Int64("user_id", req.UserID).Msg("Failed to send status message")
	}
	batchReq.OnWindow = func(rep batchentities.Report) {
		uc.editStatus(uc.jobsCtx, req.ChatID, statusID, batchProgressMessage(start, end, rep))
	}

	uc.logger.Info().
		Int64("user_id", req.UserID).
		Str("chat", start.Chat.String()).
		Int("start", start.MessageID).
		Int("end", end.MessageID).
		Msg("Batch queued")

	uc.jobs.Add(1)
	go func() {
		defer uc.jobs.Done()

		rep, err := uc.batch.Run(uc.jobsCtx, batchReq)
		if err != nil {
			uc.finalStatus(uc.jobsCtx, req.ChatID, statusID, relayErrorMessage(err))
			return
		}

		replyCtx, cancel := context.WithTimeout(context.WithoutCancel(uc.jobsCtx), replyTimeout)
		defer cancel()

		if statusID != 0 {
			if err := uc.sender.DeleteMessage(replyCtx, req.ChatID, statusID); err != nil {
				uc.logger.Debug().Err(err).Msg("Failed to delete batch status message")
			}
		}
		if _, err := uc.sender.SendMessage(replyCtx, req.ChatID, batchReportMessage(rep)); err != nil {
			uc.logger.Warn().Err(err).Int64("user_id", req.UserID).Msg("Failed to send batch report")
		}
	}()

	return nil
}

// editStatus replaces the status message text; without a status message it does nothing
func (uc *UseCase) editStatus(ctx context.Context, chatID int64, statusID int, text string) {
	if statusID == 0 || text == "" {
		return
	}
	if err := uc.sender.EditMessage(ctx, chatID, statusID, text); err != nil {
		uc.logger.Debug().Err(err).Int64("chat_id", chatID).Msg("Failed to edit status message")
	}
}

// finalStatus reports the outcome of a job, sending a new message if the status message is missing
func (uc *UseCase) finalStatus(ctx context.Context, chatID int64, statusID int, text string) {
	if text == "" {
		return
	}

	replyCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), replyTimeout)
	defer cancel()

	if statusID != 0 {
		if err := uc.sender.EditMessage(replyCtx, chatID, statusID, text); err == nil {
			return
		}
	}
	if _, err := uc.sender.SendMessage(replyCtx, chatID, text); err != nil {
		uc.logger.Warn().Err(err).Int64("chat_id", chatID).Msg("Failed to send relay outcome")
	}
}
