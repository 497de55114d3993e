package authstore

import (
	"errors"
	"strings"
)

var (
	// ErrValidation is the kind of a SignIn call rejected before any
	// authenticator or storage call because its input was malformed.
	ErrValidation = errors.New("validation failed")
	// ErrAuthentication is the kind of a SignIn call whose well-formed
	// credentials were rejected.
	ErrAuthentication = errors.New("authentication failed")
	// ErrStorage is the kind of a persisted-record read, write, or delete failure.
	ErrStorage = errors.New("session storage failed")
	// ErrOperationPending is returned when SignIn or SignOut is called while
	// another one is still in flight on the same store.
	ErrOperationPending = errors.New("session operation already in flight")
	// ErrStoreClosed is returned by operations called after Close.
	ErrStoreClosed = errors.New("session store closed")
	// ErrStoreNotReady is returned by Build when a required collaborator is missing.
	ErrStoreNotReady = errors.New("session store not initialized")
)

// Display messages surfaced through State.Error.
const (
	msgCredentialsRequired = "Email and password are required"
	msgSignOutFailed       = "Failed to sign out"
	msgSignInFailed        = "Sign in failed"
)

// OpError is returned by SignIn and SignOut. Error() is a plain string meant
// for direct display; errors.Is matches both Kind and the underlying Cause.
type OpError struct {
	Kind    error
	Message string
	Cause   error
}

func (e *OpError) Error() string {
	if e == nil {
		return ""
	}
	if e.Message != "" {
		return e.Message
	}
	if e.Kind != nil {
		return e.Kind.Error()
	}
	return "session operation failed"
}

func (e *OpError) Unwrap() []error {
	if e == nil {
		return nil
	}
	out := make([]error, 0, 2)
	if e.Kind != nil {
		out = append(out, e.Kind)
	}
	if e.Cause != nil {
		out = append(out, e.Cause)
	}
	return out
}

func validationError(msg string) *OpError {
	return &OpError{Kind: ErrValidation, Message: msg}
}

func storageError(msg string, cause error) *OpError {
	if cause != nil {
		msg = msg + ": " + cause.Error()
	}
	return &OpError{Kind: ErrStorage, Message: msg, Cause: cause}
}

// displayMessager is implemented by authenticator errors that carry a
// message meant for the end user (directory.Rejection does).
type displayMessager interface {
	DisplayMessage() string
}

// authenticationError keeps an authenticator's own display message when it
// provided one and falls back to a generic message otherwise.
func authenticationError(cause error) *OpError {
	var opErr *OpError
	if errors.As(cause, &opErr) && errors.Is(opErr.Kind, ErrAuthentication) {
		return opErr
	}

	msg := msgSignInFailed
	var dm displayMessager
	if errors.As(cause, &dm) {
		if text := strings.TrimSpace(dm.DisplayMessage()); text != "" {
			msg = text
		}
	}
	return &OpError{Kind: ErrAuthentication, Message: msg, Cause: cause}
}
