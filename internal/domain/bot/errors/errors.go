// Package errors contains domain-specific errors for the bot domain
package errors

import (
	pkgerrors "github.com/Conte777/media-relay/pkg/errors"
)

// Domain errors for bot operations
var (
	ErrAdminOnly        = pkgerrors.NewPermissionError("command is restricted to the bot admin")
	ErrInvalidChannelID = pkgerrors.NewValidationError("invalid channel id, expected a number like -1001234567890 or off")
	ErrEmptyMessage     = pkgerrors.NewValidationError("message text cannot be empty")
	ErrTelegramAPI      = pkgerrors.NewInternalError("telegram API error")
)
