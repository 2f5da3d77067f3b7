package domain

import (
	pkgerrors "github.com/Conte777/media-relay/pkg/errors"
)

var (
	// ErrPasswordRequired is returned by SignIn when the account has a second factor
	ErrPasswordRequired = pkgerrors.NewUnauthorizedError("two-step verification password required")

	// ErrPhoneInvalid is returned when the provider rejects the phone number
	ErrPhoneInvalid = pkgerrors.NewValidationError("invalid phone number")

	// ErrPhoneCodeInvalid is returned when the verification code does not match
	ErrPhoneCodeInvalid = pkgerrors.NewUnauthorizedError("invalid verification code")

	// ErrPhoneCodeExpired is returned when the verification code is no longer valid
	ErrPhoneCodeExpired = pkgerrors.NewExpiredError("verification code expired")

	// ErrPasswordInvalid is returned when the second factor password is wrong
	ErrPasswordInvalid = pkgerrors.NewUnauthorizedError("invalid password")

	// ErrAPICredentialsInvalid is returned when the application id/hash are rejected
	ErrAPICredentialsInvalid = pkgerrors.NewInternalError("invalid API credentials")

	// ErrSessionRevoked is returned when a stored token no longer authorizes
	ErrSessionRevoked = pkgerrors.NewUnauthorizedError("session has been revoked")

	// ErrWrongScope is returned when a verb is called on a connection of the other scope
	ErrWrongScope = pkgerrors.NewInternalError("operation not supported by connection scope")

	// ErrNotConnected is returned when the connection has been closed
	ErrNotConnected = pkgerrors.NewServiceUnavailableError("not connected to Telegram")

	// ErrResourceNotFound is returned when a chat or message cannot be resolved
	ErrResourceNotFound = pkgerrors.NewNotFoundError("chat or message not found")

	// ErrNoMedia is returned when a download is requested for an item without media
	ErrNoMedia = pkgerrors.NewValidationError("message has no media")

	// ErrIO is returned for local disk failures
	ErrIO = pkgerrors.NewInternalError("file system error")

	// ErrAmbiguousSend is returned when a send failed in a way that may still have delivered
	ErrAmbiguousSend = pkgerrors.NewServiceUnavailableError("send outcome unknown")

	// ErrPartialUpload is returned when a bulk upload failed and items were sent one by one
	ErrPartialUpload = pkgerrors.NewInternalError("bulk upload failed")

	// ErrStorageUnavailable is returned when the credential store cannot be reached
	ErrStorageUnavailable = pkgerrors.NewServiceUnavailableError("credential storage unavailable")

	// ErrRecordNotFound is returned by the credential store for missing keys
	ErrRecordNotFound = pkgerrors.NewNotFoundError("record not found")

	// ErrInvalidLocator is returned for links that are not post references
	ErrInvalidLocator = pkgerrors.NewValidationError("invalid post link")
)
