package errors

import (
	"fmt"

	"github.com/Conte777/media-relay/internal/domain/session/entities"
	pkgerrors "github.com/Conte777/media-relay/pkg/errors"
)

var (
	ErrAlreadyAuthenticated = pkgerrors.NewConflictError("already logged in")
	ErrLoginInProgress      = pkgerrors.NewConflictError("login already in progress")
	ErrNoLoginInProgress    = pkgerrors.NewNotFoundError("no login in progress")
	ErrUnexpectedInput      = pkgerrors.NewValidationError("input not expected in current login state")
	ErrTransitionInFlight   = pkgerrors.NewConflictError("previous login step still running")
	ErrNotLoggedIn          = pkgerrors.NewNotFoundError("not logged in")
	ErrEmptyInput           = pkgerrors.NewValidationError("empty input")
)

// InProgressError is returned by StartLogin when an attempt already exists
type InProgressError struct {
	State entities.LoginState
}

func (e *InProgressError) Error() string {
	return fmt.Sprintf("login already in progress (%s)", e.State)
}

func (e *InProgressError) Unwrap() error {
	return ErrLoginInProgress
}
