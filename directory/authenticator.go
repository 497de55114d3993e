package directory

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/starshipcosmos/authstore/principal"
)

const genericRejection = "Invalid email or password"

// Rejection refuses a sign-in. Message is meant for direct display.
type Rejection struct {
	Message string
	Reason  error
}

func (r *Rejection) Error() string          { return r.Message }
func (r *Rejection) Unwrap() error          { return r.Reason }
func (r *Rejection) DisplayMessage() string { return r.Message }

// Options tunes rejection messages.
type Options struct {
	// Label names the principal kind in messages, e.g. "Company".
	Label string
	// Hints makes rejections list valid demo identifiers and the demo
	// secret. Development only.
	Hints bool
	// DemoSecret is shown in wrong-secret hints when Hints is set.
	DemoSecret string
}

// Authenticator resolves the identifier in a Directory, then checks the
// secret with a Validator.
type Authenticator[P principal.Principal] struct {
	dir       Directory[P]
	validator Validator
	opts      Options
}

// NewAuthenticator composes a directory lookup with a secret check.
func NewAuthenticator[P principal.Principal](dir Directory[P], v Validator, opts Options) (*Authenticator[P], error) {
	if dir == nil || v == nil {
		return nil, errors.New("authenticator requires a directory and a validator")
	}
	if strings.TrimSpace(opts.Label) == "" {
		opts.Label = "Account"
	}
	return &Authenticator[P]{dir: dir, validator: v, opts: opts}, nil
}

func (a *Authenticator[P]) Authenticate(ctx context.Context, identifier, secret string) (P, error) {
	var zero P

	p, err := a.dir.Lookup(ctx, identifier)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return zero, &Rejection{Message: a.notFoundMessage(), Reason: ErrNotFound}
		}
		return zero, fmt.Errorf("directory lookup: %w", err)
	}

	ok, err := a.validator.Validate(ctx, identifier, secret)
	if err != nil {
		return zero, fmt.Errorf("secret validation: %w", err)
	}
	if !ok {
		return zero, &Rejection{Message: a.mismatchMessage(), Reason: ErrSecretMismatch}
	}
	return p, nil
}

// Identifiers lists the directory's identifiers.
func (a *Authenticator[P]) Identifiers() []string {
	return a.dir.Identifiers()
}

func (a *Authenticator[P]) notFoundMessage() string {
	if !a.opts.Hints {
		return genericRejection
	}
	ids := a.dir.Identifiers()
	if len(ids) == 0 {
		return a.opts.Label + " not found"
	}
	return a.opts.Label + " not found. Try: " + strings.Join(ids, ", ")
}

func (a *Authenticator[P]) mismatchMessage() string {
	if !a.opts.Hints {
		return genericRejection
	}
	if a.opts.DemoSecret == "" {
		return "Invalid password"
	}
	return "Invalid password. Demo password is " + a.opts.DemoSecret
}
