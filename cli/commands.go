package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/invopop/jsonschema"
	"github.com/spf13/cobra"

	"github.com/starshipcosmos/authstore"
	"github.com/starshipcosmos/authstore/metrics/export/prometheus"
	"github.com/starshipcosmos/authstore/password"
	"github.com/starshipcosmos/authstore/principal"
)

// NewRootCmd builds the full authstorectl command tree.
func NewRootCmd(version string) *cobra.Command {
	root := &cobra.Command{
		Use:   "authstorectl",
		Short: "Inspect and drive persisted client sessions",
		Long:  "authstorectl signs principals in and out of a session store and inspects the persisted record.",
		// SilenceUsage prevents printing usage on every error
		SilenceUsage: true,
		Version:      version,
	}
	root.SetVersionTemplate(fmt.Sprintf("authstorectl version %s\n", version))

	root.PersistentFlags().String("config", "", "Path to a YAML config file")
	root.PersistentFlags().String("variant", variantCompany, "Store variant: user | company | admin")
	root.PersistentFlags().Bool("verbose", false, "Enable debug logging")

	root.AddCommand(NewSignInCmd())
	root.AddCommand(NewSignOutCmd())
	root.AddCommand(NewStatusCmd())
	root.AddCommand(NewClearCmd())
	root.AddCommand(NewIdentifiersCmd())
	root.AddCommand(NewSchemaCmd())
	root.AddCommand(NewHashSecretCmd())
	return root
}

// NewSignInCmd creates the "signin" subcommand.
func NewSignInCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "signin <identifier>",
		Short: "Sign a principal in and persist the session",
		Args:  cobra.ExactArgs(1),
		RunE:  runSignIn,
	}
	cmd.Flags().String("secret", "", "Secret (falls back to AUTHSTORE_SECRET, then stdin)")
	cmd.Flags().String("format", "text", "Output format: text | json")
	return cmd
}

// NewSignOutCmd creates the "signout" subcommand.
func NewSignOutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "signout",
		Short: "Sign the current principal out and remove the persisted session",
		Args:  cobra.NoArgs,
		RunE:  runSignOut,
	}
}

// NewStatusCmd creates the "status" subcommand.
func NewStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the session restored from the backend",
		Args:  cobra.NoArgs,
		RunE:  runStatus,
	}
	cmd.Flags().String("format", "text", "Output format: text | json")
	cmd.Flags().Bool("metrics", false, "Append store metrics in Prometheus text format")
	return cmd
}

// NewClearCmd creates the "clear" subcommand.
func NewClearCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove persisted session records without signing out",
		Args:  cobra.NoArgs,
		RunE:  runClear,
	}
	cmd.Flags().Bool("all", false, "Clear every variant's record")
	return cmd
}

// NewIdentifiersCmd creates the "identifiers" subcommand.
func NewIdentifiersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "identifiers",
		Short: "List the identifiers the variant's directory accepts",
		Args:  cobra.NoArgs,
		RunE:  runIdentifiers,
	}
}

// NewSchemaCmd creates the "schema" subcommand.
func NewSchemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the JSON Schema of the variant's persisted record",
		Args:  cobra.NoArgs,
		RunE:  runSchema,
	}
}

// NewHashSecretCmd creates the "hash-secret" subcommand.
func NewHashSecretCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hash-secret",
		Short: "Hash a secret for a users directory file",
		Args:  cobra.NoArgs,
		RunE:  runHashSecret,
	}
	cmd.Flags().String("secret", "", "Secret to hash (falls back to stdin)")
	return cmd
}

/*
====================================
RUNNERS
====================================
*/

func runSignIn(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")
	secret, _ := cmd.Flags().GetString("secret")
	if secret == "" {
		secret = os.Getenv("AUTHSTORE_SECRET")
	}
	if secret == "" {
		var err error
		if secret, err = readLine(cmd.InOrStdin()); err != nil {
			return err
		}
	}

	return withStore(cmd, func(ctx context.Context, h storeHandle) error {
		p, err := h.SignIn(ctx, args[0], secret)
		if err != nil {
			return operationExit(err)
		}

		out := cmd.OutOrStdout()
		if format == "json" {
			return writeJSON(out, p)
		}
		fmt.Fprintf(out, "Signed in as %s (%s) in %s\n", p.PrincipalEmail(), p.PrincipalID(), h.View().Namespace)
		return nil
	})
}

func runSignOut(cmd *cobra.Command, _ []string) error {
	return withStore(cmd, func(ctx context.Context, h storeHandle) error {
		if err := h.SignOut(ctx); err != nil {
			return operationExit(err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Signed out of %s\n", h.View().Namespace)
		return nil
	})
}

func runStatus(cmd *cobra.Command, _ []string) error {
	format, _ := cmd.Flags().GetString("format")
	withMetrics, _ := cmd.Flags().GetBool("metrics")

	return withStore(cmd, func(_ context.Context, h storeHandle) error {
		out := cmd.OutOrStdout()
		view := h.View()

		if format == "json" {
			if err := writeJSON(out, view); err != nil {
				return err
			}
		} else {
			fmt.Fprintf(out, "namespace: %s\n", view.Namespace)
			fmt.Fprintf(out, "phase:     %s\n", view.Phase)
			if p, ok := view.Principal.(principal.Principal); ok {
				fmt.Fprintf(out, "principal: %s (%s)\n", p.PrincipalEmail(), p.PrincipalID())
			} else {
				fmt.Fprintln(out, "principal: none")
			}
		}

		if withMetrics {
			fmt.Fprint(out, prometheus.NewExporter(h.Source()).Render())
		}
		return nil
	})
}

func runClear(cmd *cobra.Command, _ []string) error {
	all, _ := cmd.Flags().GetBool("all")
	cfg, variant, logger, err := setup(cmd)
	if err != nil {
		return err
	}

	namespaces := []string{authstore.UserNamespace, authstore.CompanyNamespace, authstore.AdminNamespace}
	if !all {
		ns, err := namespaceOf(variant)
		if err != nil {
			return err
		}
		namespaces = []string{ns}
	}

	ctx := commandContext(cmd)
	backend, release, err := openBackend(ctx, cfg)
	if err != nil {
		return err
	}
	defer release()

	for _, ns := range namespaces {
		if err := backend.Delete(ctx, ns); err != nil {
			return exitError(exitStorage, "clearing %s: %v", ns, err)
		}
		logger.Debug("cleared session record", "namespace", ns)
		fmt.Fprintf(cmd.OutOrStdout(), "Cleared %s\n", ns)
	}
	return nil
}

func runIdentifiers(cmd *cobra.Command, _ []string) error {
	return withStore(cmd, func(_ context.Context, h storeHandle) error {
		for _, id := range h.Identifiers() {
			fmt.Fprintln(cmd.OutOrStdout(), id)
		}
		return nil
	})
}

func runSchema(cmd *cobra.Command, _ []string) error {
	variant, _ := cmd.Flags().GetString("variant")

	var v any
	switch variant {
	case variantUser:
		v = principal.EndUser{}
	case variantCompany:
		v = principal.CompanyProfile{}
	case variantAdmin:
		v = principal.AdminProfile{}
	default:
		_, err := namespaceOf(variant)
		return err
	}

	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: true,
		DoNotReference:            true,
	}
	return writeJSON(cmd.OutOrStdout(), reflector.Reflect(v))
}

func runHashSecret(cmd *cobra.Command, _ []string) error {
	secret, _ := cmd.Flags().GetString("secret")
	if secret == "" {
		var err error
		if secret, err = readLine(cmd.InOrStdin()); err != nil {
			return err
		}
	}

	hasher, err := password.NewArgon2(password.DefaultConfig())
	if err != nil {
		return err
	}
	hash, err := hasher.Hash(secret)
	if err != nil {
		return exitError(exitInputParse, "%v", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), hash)
	return nil
}

/*
====================================
HELPERS
====================================
*/

// setup loads config and builds the logger shared by every command.
func setup(cmd *cobra.Command) (Config, string, *slog.Logger, error) {
	path, _ := cmd.Flags().GetString("config")
	variant, _ := cmd.Flags().GetString("variant")
	verbose, _ := cmd.Flags().GetBool("verbose")

	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

	cfg, err := LoadConfig(path)
	if err != nil {
		return cfg, variant, logger, err
	}
	return cfg, variant, logger, nil
}

func withStore(cmd *cobra.Command, fn func(ctx context.Context, h storeHandle) error) error {
	cfg, variant, logger, err := setup(cmd)
	if err != nil {
		return err
	}

	ctx := commandContext(cmd)
	backend, release, err := openBackend(ctx, cfg)
	if err != nil {
		return err
	}
	defer release()

	h, err := openStore(ctx, storeOptions{
		cfg:     cfg,
		variant: variant,
		backend: backend,
		logger:  logger,
		auditTo: cmd.ErrOrStderr(),
	})
	if err != nil {
		return err
	}
	defer h.Close()

	return fn(ctx, h)
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func readLine(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("reading secret: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
