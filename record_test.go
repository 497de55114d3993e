package authstore

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/starshipcosmos/authstore/directory"
	"github.com/starshipcosmos/authstore/session"
)

func signedConfig(cfg *Config) {
	cfg.Record.Signed = true
	cfg.Record.PrivateKey = []byte("0123456789abcdef0123456789abcdef")
}

func TestSignedRecordRoundTrip(t *testing.T) {
	backend := session.NewMemoryBackend()

	first := buildCompanyStore(t, backend, demoCompanyAuth(t), signedConfig)
	if _, err := first.SignIn(context.Background(), techCorpEmail, directory.DemoCompanySecret); err != nil {
		t.Fatalf("sign in: %v", err)
	}
	_ = first.Close()

	raw, err := backend.Get(context.Background(), CompanyNamespace)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if json.Valid(raw) || strings.Count(string(raw), ".") != 2 {
		t.Fatalf("expected a compact JWS record, got %q", raw)
	}

	second := buildCompanyStore(t, backend, demoCompanyAuth(t), signedConfig)
	if p, ok := second.Principal(); !ok || p.ID != "company-1" {
		t.Fatalf("expected signed record restored, got %+v", p)
	}
}

func TestSignedRecordTamperPurged(t *testing.T) {
	backend := session.NewMemoryBackend()

	first := buildCompanyStore(t, backend, demoCompanyAuth(t), signedConfig)
	if _, err := first.SignIn(context.Background(), techCorpEmail, directory.DemoCompanySecret); err != nil {
		t.Fatalf("sign in: %v", err)
	}
	_ = first.Close()

	// Replace the record with a plain JSON principal, as an edited store would.
	seedRecord(t, backend, CompanyNamespace, directory.DemoCompanies()[1])

	second := buildCompanyStore(t, backend, demoCompanyAuth(t), signedConfig)
	if second.IsAuthenticated() {
		t.Fatal("expected tampered record to be rejected")
	}
	if second.State().Error != "" {
		t.Fatalf("expected silent purge, got error %q", second.State().Error)
	}
	if _, err := backend.Get(context.Background(), CompanyNamespace); !errors.Is(err, session.ErrRecordNotFound) {
		t.Fatalf("expected tampered record purged, got %v", err)
	}
}

func TestSignedRecordFromOtherNamespaceRejected(t *testing.T) {
	backend := session.NewMemoryBackend()

	first := buildCompanyStore(t, backend, demoCompanyAuth(t), signedConfig)
	if _, err := first.SignIn(context.Background(), techCorpEmail, directory.DemoCompanySecret); err != nil {
		t.Fatalf("sign in: %v", err)
	}
	_ = first.Close()

	raw, err := backend.Get(context.Background(), CompanyNamespace)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	// The admin store's codec expects its own namespace as audience.
	codec, err := recordCodec(Config{Namespace: AdminNamespace, Record: RecordConfig{
		Signed:        true,
		SigningMethod: "hs256",
		PrivateKey:    []byte("0123456789abcdef0123456789abcdef"),
		Issuer:        "authstore",
	}})
	if err != nil {
		t.Fatalf("codec: %v", err)
	}
	var out map[string]any
	if err := codec.Decode(raw, &out); !errors.Is(err, session.ErrCorruptRecord) {
		t.Fatalf("expected ErrCorruptRecord for foreign audience, got %v", err)
	}
}
