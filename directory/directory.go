// Package directory resolves sign-in identifiers to principals and checks
// their secrets. It provides in-memory directories (the demo tables used by
// the company and admin dashboards), YAML-loaded directories, and the
// validators that pair with them.
package directory

import (
	"context"
	"errors"
	"fmt"

	"github.com/starshipcosmos/authstore/principal"
)

var (
	// ErrNotFound is returned by Lookup for an unknown identifier.
	ErrNotFound = errors.New("identifier not found")
	// ErrDuplicateIdentifier is returned when two entries share an identifier.
	ErrDuplicateIdentifier = errors.New("duplicate identifier")
	// ErrSecretMismatch is the reason carried by a Rejection for a wrong secret.
	ErrSecretMismatch = errors.New("secret mismatch")
)

// Directory looks principals up by identifier.
type Directory[P principal.Principal] interface {
	Lookup(ctx context.Context, identifier string) (P, error)
	Identifiers() []string
}

// Static is an immutable in-memory directory keyed by normalized email.
type Static[P principal.Principal] struct {
	byID  map[string]P
	order []string
}

// NewStatic indexes entries by their email. Entries that fail Validate or
// share an email are rejected.
func NewStatic[P principal.Principal](entries ...P) (*Static[P], error) {
	s := &Static[P]{
		byID:  make(map[string]P, len(entries)),
		order: make([]string, 0, len(entries)),
	}
	for _, e := range entries {
		if err := e.Validate(); err != nil {
			return nil, err
		}
		key := principal.NormalizeIdentifier(e.PrincipalEmail())
		if _, dup := s.byID[key]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateIdentifier, key)
		}
		s.byID[key] = principal.Copy(e)
		s.order = append(s.order, key)
	}
	return s, nil
}

func (s *Static[P]) Lookup(ctx context.Context, identifier string) (P, error) {
	p, ok := s.byID[principal.NormalizeIdentifier(identifier)]
	if !ok {
		var zero P
		return zero, ErrNotFound
	}
	return principal.Copy(p), nil
}

// Identifiers returns the directory's identifiers in insertion order.
func (s *Static[P]) Identifiers() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}
