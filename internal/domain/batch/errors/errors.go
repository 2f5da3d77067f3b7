package errors

import (
	pkgerrors "github.com/Conte777/media-relay/pkg/errors"
)

var (
	ErrCrossChatRange = pkgerrors.NewValidationError("start and end links must be from the same chat")
	ErrInvalidRange   = pkgerrors.NewValidationError("start id must not be greater than end id")
)
