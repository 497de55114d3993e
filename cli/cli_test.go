package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/spf13/cobra"

	"github.com/starshipcosmos/authstore"
)

// newTestRoot creates a fresh command tree so tests share no flag state.
func newTestRoot() *cobra.Command {
	return NewRootCmd("test")
}

// executeCommand runs args and captures stdout and stderr.
func executeCommand(root *cobra.Command, args ...string) (stdout, stderr string, err error) {
	var outBuf, errBuf bytes.Buffer
	root.SetOut(&outBuf)
	root.SetErr(&errBuf)
	root.SetIn(strings.NewReader(""))
	root.SetArgs(args)
	err = root.Execute()
	return outBuf.String(), errBuf.String(), err
}

func writeTestFile(t *testing.T, name, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

// sqliteConfig writes a config pointing at a fresh SQLite file.
func sqliteConfig(t *testing.T, extra string) string {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "sessions.db")
	return writeTestFile(t, "authstore.yaml", "backend: sqlite\nsqlite:\n  dsn: "+dsn+"\n"+extra)
}

func exitCode(t *testing.T, err error) int {
	t.Helper()
	var exitErr *ExitError
	if !errors.As(err, &exitErr) {
		t.Fatalf("expected ExitError, got %v", err)
	}
	return exitErr.Code
}

func TestSignInStatusSignOutAcrossInvocations(t *testing.T) {
	cfg := sqliteConfig(t, "")

	out, _, err := executeCommand(newTestRoot(), "signin", "hr@innovate.io", "--secret", "demo123", "--config", cfg)
	if err != nil {
		t.Fatalf("signin: %v", err)
	}
	if !strings.Contains(out, "Signed in as hr@innovate.io (company-2)") {
		t.Fatalf("unexpected signin output: %q", out)
	}

	out, _, err = executeCommand(newTestRoot(), "status", "--config", cfg)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if !strings.Contains(out, "phase:     authenticated") || !strings.Contains(out, "company-2") {
		t.Fatalf("expected restored session, got %q", out)
	}

	if _, _, err := executeCommand(newTestRoot(), "signout", "--config", cfg); err != nil {
		t.Fatalf("signout: %v", err)
	}

	out, _, err = executeCommand(newTestRoot(), "status", "--config", cfg, "--format", "json")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	var view stateView
	if err := json.Unmarshal([]byte(out), &view); err != nil {
		t.Fatalf("decode status: %v\n%s", err, out)
	}
	if view.Authenticated || view.Phase != "unauthenticated" || view.Namespace != authstore.CompanyNamespace {
		t.Fatalf("unexpected status after signout: %+v", view)
	}
}

func TestSignInRejectedExitCode(t *testing.T) {
	cfg := sqliteConfig(t, "")

	_, _, err := executeCommand(newTestRoot(), "signin", "admin@techcorp.com", "--secret", "nope", "--config", cfg)
	if code := exitCode(t, err); code != exitRejected {
		t.Fatalf("expected exit %d, got %d", exitRejected, code)
	}
	if !strings.Contains(err.Error(), "Demo password is demo123") {
		t.Fatalf("expected hint in message, got %q", err.Error())
	}
}

func TestSignInMissingSecretExitCode(t *testing.T) {
	cfg := sqliteConfig(t, "")

	_, _, err := executeCommand(newTestRoot(), "signin", "admin@techcorp.com", "--config", cfg)
	if code := exitCode(t, err); code != exitInputParse {
		t.Fatalf("expected exit %d, got %d", exitInputParse, code)
	}
}

func TestSignInSecretFromEnv(t *testing.T) {
	cfg := sqliteConfig(t, "")
	t.Setenv("AUTHSTORE_SECRET", "admin123")

	out, _, err := executeCommand(newTestRoot(), "signin", "superadmin@cosmos.com", "--variant", "admin", "--format", "json", "--config", cfg)
	if err != nil {
		t.Fatalf("signin: %v", err)
	}
	var p map[string]any
	if err := json.Unmarshal([]byte(out), &p); err != nil {
		t.Fatalf("decode: %v\n%s", err, out)
	}
	if p["id"] != "admin-1" || p["role"] != "super_admin" {
		t.Fatalf("unexpected principal %v", p)
	}
}

func TestVariantsDoNotShareRecords(t *testing.T) {
	cfg := sqliteConfig(t, "")

	if _, _, err := executeCommand(newTestRoot(), "signin", "moderator@cosmos.com", "--secret", "admin123", "--variant", "admin", "--config", cfg); err != nil {
		t.Fatalf("signin: %v", err)
	}

	out, _, err := executeCommand(newTestRoot(), "status", "--config", cfg)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if !strings.Contains(out, "principal: none") {
		t.Fatalf("company variant saw admin session: %q", out)
	}
}

func TestClearAll(t *testing.T) {
	cfg := sqliteConfig(t, "")

	if _, _, err := executeCommand(newTestRoot(), "signin", "admin@techcorp.com", "--secret", "demo123", "--config", cfg); err != nil {
		t.Fatalf("signin: %v", err)
	}
	out, _, err := executeCommand(newTestRoot(), "clear", "--all", "--config", cfg)
	if err != nil {
		t.Fatalf("clear: %v", err)
	}
	if strings.Count(out, "Cleared ") != 3 {
		t.Fatalf("expected three namespaces cleared, got %q", out)
	}

	out, _, err = executeCommand(newTestRoot(), "status", "--config", cfg)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if !strings.Contains(out, "principal: none") {
		t.Fatalf("expected no session after clear, got %q", out)
	}
}

func TestIdentifiersListsDemoCompanies(t *testing.T) {
	cfg := sqliteConfig(t, "")

	out, _, err := executeCommand(newTestRoot(), "identifiers", "--config", cfg)
	if err != nil {
		t.Fatalf("identifiers: %v", err)
	}
	for _, want := range []string{"admin@techcorp.com", "hr@innovate.io", "contact@greenenergy.com"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %s in %q", want, out)
		}
	}
}

func TestUserVariantWithDirectoryFile(t *testing.T) {
	users := writeTestFile(t, "users.yaml", `
label: User
hints: false
shared_secret: open-sesame
entries:
  - record: {id: user-1, email: ada@example.com, name: Ada}
`)
	cfg := sqliteConfig(t, "directory:\n  users_file: "+users+"\n")

	_, _, err := executeCommand(newTestRoot(), "signin", "ada@example.com", "--secret", "wrong", "--variant", "user", "--config", cfg)
	if code := exitCode(t, err); code != exitRejected {
		t.Fatalf("expected rejection, got %d", code)
	}

	out, _, err := executeCommand(newTestRoot(), "signin", "ADA@example.com", "--secret", "open-sesame", "--variant", "user", "--config", cfg)
	if err != nil {
		t.Fatalf("signin: %v", err)
	}
	if !strings.Contains(out, "user-1") || !strings.Contains(out, authstore.UserNamespace) {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestUserVariantRequiresDirectory(t *testing.T) {
	cfg := sqliteConfig(t, "")

	_, _, err := executeCommand(newTestRoot(), "status", "--variant", "user", "--config", cfg)
	if code := exitCode(t, err); code != exitConfig {
		t.Fatalf("expected exit %d, got %d", exitConfig, code)
	}
}

func TestRedisBackend(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := writeTestFile(t, "authstore.yaml", "backend: redis\nredis:\n  addr: "+mr.Addr()+"\n  prefix: cli\n")

	if _, _, err := executeCommand(newTestRoot(), "signin", "admin@techcorp.com", "--secret", "demo123", "--config", cfg); err != nil {
		t.Fatalf("signin: %v", err)
	}
	if !mr.Exists("cli:" + authstore.CompanyNamespace) {
		t.Fatalf("expected record in redis, keys: %v", mr.Keys())
	}

	out, _, err := executeCommand(newTestRoot(), "status", "--metrics", "--config", cfg)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if !strings.Contains(out, `authstore_rehydrate_restored_total{namespace="starship_company_session"} 1`) {
		t.Fatalf("expected restore metric, got %q", out)
	}
}

func TestSignedRecordsAndAudit(t *testing.T) {
	cfg := sqliteConfig(t, "record:\n  signed: true\n  key: 0123456789abcdef0123456789abcdef\naudit:\n  enabled: true\n  format: json\n")

	_, stderr, err := executeCommand(newTestRoot(), "signin", "admin@techcorp.com", "--secret", "demo123", "--config", cfg)
	if err != nil {
		t.Fatalf("signin: %v", err)
	}
	if !strings.Contains(stderr, `"event_type":"sign_in"`) {
		t.Fatalf("expected audit line on stderr, got %q", stderr)
	}

	out, _, err := executeCommand(newTestRoot(), "status", "--config", cfg)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if !strings.Contains(out, "company-1") {
		t.Fatalf("expected signed record restored, got %q", out)
	}
}

func TestSchemaDescribesRecord(t *testing.T) {
	out, _, err := executeCommand(newTestRoot(), "schema", "--variant", "admin")
	if err != nil {
		t.Fatalf("schema: %v", err)
	}
	var schema map[string]any
	if err := json.Unmarshal([]byte(out), &schema); err != nil {
		t.Fatalf("decode schema: %v", err)
	}
	props, ok := schema["properties"].(map[string]any)
	if !ok {
		t.Fatalf("expected properties in schema, got %v", schema)
	}
	for _, field := range []string{"id", "email", "role", "permissions"} {
		if _, ok := props[field]; !ok {
			t.Fatalf("expected %s in schema properties", field)
		}
	}
}

func TestHashSecret(t *testing.T) {
	out, _, err := executeCommand(newTestRoot(), "hash-secret", "--secret", "correct horse")
	if err != nil {
		t.Fatalf("hash-secret: %v", err)
	}
	if !strings.HasPrefix(out, "$argon2id$") {
		t.Fatalf("expected PHC hash, got %q", out)
	}

	_, _, err = executeCommand(newTestRoot(), "hash-secret", "--secret", "abc")
	if code := exitCode(t, err); code != exitInputParse {
		t.Fatalf("expected short secret to fail with %d, got %d", exitInputParse, code)
	}
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("AUTHSTORE_BACKEND", "memory")
	t.Setenv("AUTHSTORE_RECORD_KEY", "0123456789abcdef")
	t.Setenv("AUTHSTORE_HINTS", "false")

	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Backend != backendMemory || !cfg.Record.Signed || cfg.hints() {
		t.Fatalf("env overrides not applied: %+v", cfg)
	}
}

func TestLoadConfigErrors(t *testing.T) {
	bad := writeTestFile(t, "bad.yaml", "backend: etcd\n")
	if _, err := LoadConfig(bad); exitCode(t, err) != exitConfig {
		t.Fatal("expected config exit code for unknown backend")
	}
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml")); exitCode(t, err) != exitConfig {
		t.Fatal("expected config exit code for missing file")
	}
	noURL := writeTestFile(t, "pg.yaml", "backend: postgres\n")
	if _, err := LoadConfig(noURL); err == nil {
		t.Fatal("expected postgres without url to fail")
	}
}
