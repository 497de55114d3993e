package directory

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/starshipcosmos/authstore/principal"
)

const companyYAML = `
label: Company
hints: true
shared_secret: launch-pad
entries:
  - record:
      id: c-100
      name: Orbital Freight
      email: ops@orbital.example
      industry: Logistics
      verified: true
      active: true
      created_at: 2024-03-01T10:00:00Z
  - record:
      id: c-101
      name: Nebula Foods
      email: hello@nebula.example
`

func TestParseYAMLSharedSecret(t *testing.T) {
	auth, err := ParseYAML[principal.CompanyProfile]([]byte(companyYAML), nil)
	if err != nil {
		t.Fatalf("ParseYAML: %v", err)
	}
	c, err := auth.Authenticate(context.Background(), "OPS@orbital.example", "launch-pad")
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if c.Name != "Orbital Freight" || !c.Verified || c.CreatedAt.IsZero() {
		t.Fatalf("unexpected record %+v", c)
	}
	if got := auth.Identifiers(); len(got) != 2 || got[1] != "hello@nebula.example" {
		t.Fatalf("unexpected identifiers %v", got)
	}
}

func TestLoadYAMLWithHashes(t *testing.T) {
	h := testHasher(t)
	encoded, err := h.Hash("warp-drive")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	doc := "label: User\nentries:\n  - secret_hash: \"" + encoded + "\"\n    record: {id: u-1, email: pilot@starship.io, name: Pilot}\n"
	path := filepath.Join(t.TempDir(), "users.yaml")
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	auth, err := LoadYAML[principal.EndUser](path, h)
	if err != nil {
		t.Fatalf("LoadYAML: %v", err)
	}
	u, err := auth.Authenticate(context.Background(), "pilot@starship.io", "warp-drive")
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if u.ID != "u-1" {
		t.Fatalf("unexpected user %+v", u)
	}
	if _, err := auth.Authenticate(context.Background(), "pilot@starship.io", "impulse"); err == nil {
		t.Fatal("expected wrong secret to fail")
	}
}

func TestParseYAMLErrors(t *testing.T) {
	cases := map[string]string{
		"no validator": "entries:\n  - record: {id: u1, email: a@b.c}\n",
		"bad record":   "shared_secret: x\nentries:\n  - record: {id: u1}\n",
		"bad yaml":     "entries: [",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := ParseYAML[principal.EndUser]([]byte(doc), nil); err == nil {
				t.Fatal("expected error")
			}
		})
	}

	hashed := "entries:\n  - secret_hash: x\n    record: {id: u1, email: a@b.c}\n"
	if _, err := ParseYAML[principal.EndUser]([]byte(hashed), nil); err == nil || !strings.Contains(err.Error(), "hasher") {
		t.Fatalf("expected missing hasher error, got %v", err)
	}
}
