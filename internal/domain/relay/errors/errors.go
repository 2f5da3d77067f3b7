package errors

import (
	pkgerrors "github.com/Conte777/media-relay/pkg/errors"
)

var (
	ErrSizeLimitExceeded = pkgerrors.NewValidationError("file exceeds the size limit")
	ErrEmptyArtifact     = pkgerrors.NewInternalError("downloaded file is missing or empty")
	ErrNoValidMedia      = pkgerrors.NewValidationError("no valid media in group")
	ErrNothingToRelay    = pkgerrors.NewValidationError("post has neither media nor text")
	ErrNoConnection      = pkgerrors.NewUnauthorizedError("no connection available, use /login first")
)
