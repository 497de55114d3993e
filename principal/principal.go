// Package principal defines the identities a session store can hold: end
// users, company accounts, and platform administrators.
//
// Principals are plain JSON-tagged value types. Decoding a persisted record
// tolerates absent fields; Validate only checks the identity fields a session
// cannot exist without.
package principal

import (
	"errors"
	"slices"
	"strings"
	"time"
)

// ErrInvalid is returned by Validate when a record lacks its identity fields.
var ErrInvalid = errors.New("invalid principal record")

// Principal is implemented by every identity type a store can hold.
type Principal interface {
	PrincipalID() string
	PrincipalEmail() string
	Validate() error
}

// Cloner is implemented by principals that hold reference fields and need a
// deep copy to be handed out safely.
type Cloner[P any] interface {
	Clone() P
}

// Copy returns a copy of p that shares no mutable memory with it.
func Copy[P Principal](p P) P {
	if c, ok := any(p).(Cloner[P]); ok {
		return c.Clone()
	}
	return p
}

// Admin roles.
const (
	RoleSuperAdmin = "super_admin"
	RoleModerator  = "moderator"
)

// RoleCompanyAdmin is the role carried by company dashboard accounts.
const RoleCompanyAdmin = "company_admin"

// EndUser is a consumer account of the discovery app.
type EndUser struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name,omitempty"`
	AvatarURL string    `json:"avatar_url,omitempty"`
	Verified  bool      `json:"verified"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (u EndUser) PrincipalID() string    { return u.ID }
func (u EndUser) PrincipalEmail() string { return u.Email }

func (u EndUser) Validate() error {
	return requireIdentity(u.ID, u.Email)
}

// CompanyProfile is a company dashboard account.
type CompanyProfile struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	Industry    string    `json:"industry,omitempty"`
	Location    string    `json:"location,omitempty"`
	LogoURL     string    `json:"logo_url,omitempty"`
	Size        string    `json:"size,omitempty"`
	Verified    bool      `json:"verified"`
	Active      bool      `json:"active"`
	Role        string    `json:"role,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	LastLoginAt time.Time `json:"last_login_at"`
}

func (c CompanyProfile) PrincipalID() string    { return c.ID }
func (c CompanyProfile) PrincipalEmail() string { return c.Email }

func (c CompanyProfile) Validate() error {
	return requireIdentity(c.ID, c.Email)
}

// AdminProfile is a platform administrator account.
type AdminProfile struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	Name        string    `json:"name"`
	Role        string    `json:"role"`
	Permissions []string  `json:"permissions,omitempty"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"created_at"`
	LastLoginAt time.Time `json:"last_login_at"`
}

func (a AdminProfile) PrincipalID() string    { return a.ID }
func (a AdminProfile) PrincipalEmail() string { return a.Email }

func (a AdminProfile) Validate() error {
	if err := requireIdentity(a.ID, a.Email); err != nil {
		return err
	}
	switch a.Role {
	case "", RoleSuperAdmin, RoleModerator:
		return nil
	default:
		return errors.Join(ErrInvalid, errors.New("unknown admin role "+a.Role))
	}
}

// Clone copies the admin, including its permission list.
func (a AdminProfile) Clone() AdminProfile {
	a.Permissions = slices.Clone(a.Permissions)
	return a
}

// HasPermission reports whether the admin holds the named permission.
// Super admins hold every permission.
func (a AdminProfile) HasPermission(name string) bool {
	if a.Role == RoleSuperAdmin {
		return true
	}
	for _, p := range a.Permissions {
		if p == name {
			return true
		}
	}
	return false
}

func requireIdentity(id, email string) error {
	if strings.TrimSpace(id) == "" {
		return errors.Join(ErrInvalid, errors.New("missing id"))
	}
	if strings.TrimSpace(email) == "" {
		return errors.Join(ErrInvalid, errors.New("missing email"))
	}
	return nil
}

// NormalizeIdentifier is the case-insensitive match key used by directories.
func NormalizeIdentifier(identifier string) string {
	return strings.ToLower(strings.TrimSpace(identifier))
}
