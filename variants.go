package authstore

import (
	"context"

	"github.com/starshipcosmos/authstore/directory"
	"github.com/starshipcosmos/authstore/principal"
	"github.com/starshipcosmos/authstore/session"
)

// UserBuilder returns a Builder for end-user sessions under UserNamespace.
// End users are checked by auth, usually a directory.Argon2-backed
// directory.Authenticator or an AuthenticatorFunc calling a remote service.
func UserBuilder(cfg Config, auth Authenticator[principal.EndUser]) *Builder[principal.EndUser] {
	cfg.Namespace = UserNamespace
	return New[principal.EndUser]().
		WithConfig(cfg).
		WithAuthenticator(auth)
}

// CompanyBuilder returns a Builder for company dashboard sessions under
// CompanyNamespace, checked against the demo company directory.
func CompanyBuilder(cfg Config) (*Builder[principal.CompanyProfile], error) {
	auth, err := directory.NewDemoCompanyAuthenticator(cfg.Directory.Hints)
	if err != nil {
		return nil, err
	}
	cfg.Namespace = CompanyNamespace
	return New[principal.CompanyProfile]().
		WithConfig(cfg).
		WithAuthenticator(auth), nil
}

// AdminBuilder returns a Builder for platform admin sessions under
// AdminNamespace, checked against the demo admin directory.
func AdminBuilder(cfg Config) (*Builder[principal.AdminProfile], error) {
	auth, err := directory.NewDemoAdminAuthenticator(cfg.Directory.Hints)
	if err != nil {
		return nil, err
	}
	cfg.Namespace = AdminNamespace
	return New[principal.AdminProfile]().
		WithConfig(cfg).
		WithAuthenticator(auth), nil
}

// NewUserStore builds an end-user store with the default Config.
func NewUserStore(ctx context.Context, backend session.Backend, auth Authenticator[principal.EndUser]) (*Store[principal.EndUser], error) {
	return UserBuilder(DefaultConfig(UserNamespace), auth).
		WithBackend(backend).
		Build(ctx)
}

// NewCompanyStore builds a company store on the demo directory.
func NewCompanyStore(ctx context.Context, backend session.Backend) (*Store[principal.CompanyProfile], error) {
	b, err := CompanyBuilder(DefaultConfig(CompanyNamespace))
	if err != nil {
		return nil, err
	}
	return b.WithBackend(backend).Build(ctx)
}

// NewAdminStore builds an admin store on the demo directory.
func NewAdminStore(ctx context.Context, backend session.Backend) (*Store[principal.AdminProfile], error) {
	b, err := AdminBuilder(DefaultConfig(AdminNamespace))
	if err != nil {
		return nil, err
	}
	return b.WithBackend(backend).Build(ctx)
}
