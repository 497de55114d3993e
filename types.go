package authstore

import (
	"context"

	"github.com/starshipcosmos/authstore/principal"
)

// Phase is the store's position in the session lifecycle.
type Phase uint8

const (
	// PhaseInitializing lasts until the persisted record has been read.
	PhaseInitializing Phase = iota
	PhaseUnauthenticated
	PhaseAuthenticating
	PhaseAuthenticated
	PhaseSigningOut
)

func (p Phase) String() string {
	switch p {
	case PhaseInitializing:
		return "initializing"
	case PhaseUnauthenticated:
		return "unauthenticated"
	case PhaseAuthenticating:
		return "authenticating"
	case PhaseAuthenticated:
		return "authenticated"
	case PhaseSigningOut:
		return "signing_out"
	default:
		return "unknown"
	}
}

// State is a point-in-time snapshot of a store. Principal is set in
// PhaseAuthenticated and stays set while a SignOut or a replacing SignIn is in
// flight; it is nil otherwise. Error is empty unless the last SignIn or
// SignOut failed.
type State[P principal.Principal] struct {
	Phase     Phase
	Principal *P
	IsLoading bool
	Error     string
}

// IsAuthenticated reports whether the snapshot holds a principal.
func (s State[P]) IsAuthenticated() bool {
	return s.Principal != nil
}

func (s State[P]) clone() State[P] {
	out := s
	if s.Principal != nil {
		p := principal.Copy(*s.Principal)
		out.Principal = &p
	}
	return out
}

// Authenticator checks credentials and resolves them to a principal. A
// rejection should carry a display message (see directory.Rejection);
// any other error is surfaced as a generic sign-in failure.
type Authenticator[P principal.Principal] interface {
	Authenticate(ctx context.Context, identifier, secret string) (P, error)
}

// AuthenticatorFunc adapts a function to Authenticator, typically a call
// into an external authentication service.
type AuthenticatorFunc[P principal.Principal] func(ctx context.Context, identifier, secret string) (P, error)

func (f AuthenticatorFunc[P]) Authenticate(ctx context.Context, identifier, secret string) (P, error) {
	return f(ctx, identifier, secret)
}

// Listener receives every state change of a store, in order.
type Listener[P principal.Principal] func(State[P])
