package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/starshipcosmos/authstore"
	"github.com/starshipcosmos/authstore/directory"
	"github.com/starshipcosmos/authstore/jwt"
	"github.com/starshipcosmos/authstore/metrics/export/prometheus"
	"github.com/starshipcosmos/authstore/password"
	"github.com/starshipcosmos/authstore/principal"
	"github.com/starshipcosmos/authstore/session"
)

// Variants.
const (
	variantUser    = "user"
	variantCompany = "company"
	variantAdmin   = "admin"
)

func namespaceOf(variant string) (string, error) {
	switch variant {
	case variantUser:
		return authstore.UserNamespace, nil
	case variantCompany:
		return authstore.CompanyNamespace, nil
	case variantAdmin:
		return authstore.AdminNamespace, nil
	default:
		return "", exitError(exitInputParse, "unknown variant %q (want user | company | admin)", variant)
	}
}

// stateView is the printable form of a store's state.
type stateView struct {
	Namespace     string `json:"namespace"`
	Phase         string `json:"phase"`
	Authenticated bool   `json:"authenticated"`
	Principal     any    `json:"principal,omitempty"`
	Error         string `json:"error,omitempty"`
}

// storeHandle hides the principal type of the selected variant.
type storeHandle interface {
	SignIn(ctx context.Context, identifier, secret string) (principal.Principal, error)
	SignOut(ctx context.Context) error
	View() stateView
	Identifiers() []string
	Source() prometheus.Source
	Close() error
}

type handle[P principal.Principal] struct {
	store *authstore.Store[P]
	ids   []string
}

func (h *handle[P]) SignIn(ctx context.Context, identifier, secret string) (principal.Principal, error) {
	p, err := h.store.SignIn(ctx, identifier, secret)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (h *handle[P]) SignOut(ctx context.Context) error {
	return h.store.SignOut(ctx)
}

func (h *handle[P]) View() stateView {
	st := h.store.State()
	v := stateView{
		Namespace:     h.store.Namespace(),
		Phase:         st.Phase.String(),
		Authenticated: st.IsAuthenticated(),
		Error:         st.Error,
	}
	if st.Principal != nil {
		v.Principal = *st.Principal
	}
	return v
}

func (h *handle[P]) Identifiers() []string {
	out := make([]string, len(h.ids))
	copy(out, h.ids)
	return out
}

func (h *handle[P]) Source() prometheus.Source {
	return h.store
}

func (h *handle[P]) Close() error {
	return h.store.Close()
}

// storeOptions carries what every variant needs to build its store.
type storeOptions struct {
	cfg     Config
	variant string
	backend session.Backend
	logger  *slog.Logger
	auditTo io.Writer
}

func openStore(ctx context.Context, opts storeOptions) (storeHandle, error) {
	ns, err := namespaceOf(opts.variant)
	if err != nil {
		return nil, err
	}
	cfg := storeConfig(opts.cfg, ns)

	switch opts.variant {
	case variantUser:
		if opts.cfg.Directory.UsersFile == "" {
			return nil, exitError(exitConfig, "user variant requires directory.users_file or AUTHSTORE_USERS_FILE")
		}
		hasher, err := password.NewArgon2(password.DefaultConfig())
		if err != nil {
			return nil, err
		}
		auth, err := directory.LoadYAML[principal.EndUser](opts.cfg.Directory.UsersFile, hasher)
		if err != nil {
			return nil, exitError(exitConfig, "%v", err)
		}
		return buildHandle(ctx, authstore.UserBuilder(cfg, auth), auth.Identifiers(), opts)

	case variantCompany:
		b, err := authstore.CompanyBuilder(cfg)
		if err != nil {
			return nil, err
		}
		return buildHandle(ctx, b, identifiersOf(directory.DemoCompanies()), opts)

	default:
		b, err := authstore.AdminBuilder(cfg)
		if err != nil {
			return nil, err
		}
		return buildHandle(ctx, b, identifiersOf(directory.DemoAdmins()), opts)
	}
}

func storeConfig(c Config, namespace string) authstore.Config {
	cfg := authstore.DefaultConfig(namespace)
	cfg.Directory.Hints = c.hints()
	cfg.OperationTimeout = c.Timeout
	cfg.Audit.DropIfFull = false
	if c.Record.Signed {
		cfg.Record.Signed = true
		cfg.Record.SigningMethod = jwt.SigningMethod(c.Record.SigningMethod)
		cfg.Record.PrivateKey = []byte(c.Record.Key)
		if c.Record.Issuer != "" {
			cfg.Record.Issuer = c.Record.Issuer
		}
	}
	return cfg
}

func buildHandle[P principal.Principal](ctx context.Context, b *authstore.Builder[P], ids []string, opts storeOptions) (storeHandle, error) {
	b = b.WithBackend(opts.backend).WithLogger(opts.logger)
	if opts.cfg.Audit.Enabled {
		var sink authstore.AuditSink = authstore.NewJSONWriterSink(opts.auditTo)
		if opts.cfg.Audit.Format == "log" {
			sink = authstore.SlogSink{Logger: opts.logger}
		}
		b = b.WithAuditSink(sink)
	}

	store, err := b.Build(ctx)
	if err != nil {
		return nil, exitError(exitConfig, "%v", err)
	}
	if err := store.WaitReady(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("waiting for session rehydration: %w", err)
	}
	return &handle[P]{store: store, ids: ids}, nil
}

func identifiersOf[P principal.Principal](entries []P) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, principal.NormalizeIdentifier(e.PrincipalEmail()))
	}
	return out
}

// operationExit maps store errors to exit codes.
func operationExit(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, authstore.ErrValidation):
		return exitError(exitInputParse, "%v", err)
	case errors.Is(err, authstore.ErrAuthentication):
		return exitError(exitRejected, "%v", err)
	case errors.Is(err, authstore.ErrStorage):
		return exitError(exitStorage, "%v", err)
	case errors.Is(err, authstore.ErrOperationPending):
		return exitError(exitPending, "%v", err)
	default:
		return err
	}
}
