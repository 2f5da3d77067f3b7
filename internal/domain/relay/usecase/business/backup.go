package business

import (
	"context"

	"github.com/Conte777/media-relay/internal/domain"
	"github.com/Conte777/media-relay/internal/domain/relay/entities"
)

// backup gives the backup channel its copy.
// Known message ids are copied server side; re-upload happens only when no id is known.
func (uc *UseCase) backup(
	ctx context.Context,
	sink domain.Connection,
	from domain.ChatRef,
	sent []domain.Sent,
	uploads []domain.Upload,
) entities.BackupMode {
	id := uc.targets.Targets().BackupChannelID
	if id == 0 {
		return entities.BackupNone
	}
	dest := domain.ChatRef{ID: id}
	if dest.Same(from) {
		return entities.BackupNone
	}

	ids := make([]int, 0, len(sent))
	for _, s := range sent {
		if s.ID != 0 {
			ids = append(ids, s.ID)
		}
	}

	if len(ids) > 0 {
		return uc.copyBackup(ctx, sink, dest, from, ids)
	}
	return uc.reuploadBackup(ctx, sink, dest, uploads)
}

func (uc *UseCase) copyBackup(ctx context.Context, sink domain.Connection, dest, from domain.ChatRef, ids []int) entities.BackupMode {
	if _, err := sink.CopyMessages(ctx, dest, from, ids); err != nil {
		uc.logger.Warn().Err(err).Str("backup", dest.String()).Ints("ids", ids).Msg("Backup copy failed")
		return entities.BackupFailed
	}
	return entities.BackupCopy
}

func (uc *UseCase) reuploadBackup(ctx context.Context, sink domain.Connection, dest domain.ChatRef, uploads []domain.Upload) entities.BackupMode {
	var err error
	switch len(uploads) {
	case 0:
		uc.logger.Warn().Str("backup", dest.String()).Msg("Nothing to back up, no message ids and no files")
		return entities.BackupFailed
	case 1:
		_, err = sink.SendMedia(ctx, dest, uploads[0])
	default:
		_, err = sink.SendMediaGroup(ctx, dest, uploads)
	}
	if err != nil {
		uc.logger.Warn().Err(err).Str("backup", dest.String()).Msg("Backup re-upload failed")
		return entities.BackupFailed
	}
	return entities.BackupReupload
}
