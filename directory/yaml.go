package directory

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/starshipcosmos/authstore/password"
	"github.com/starshipcosmos/authstore/principal"
)

// File is the on-disk directory format.
//
//	label: Company
//	hints: false
//	shared_secret: ""          # one secret for every entry, or
//	entries:
//	  - secret_hash: $argon2id$v=19$...
//	    record: {id: c1, email: hr@acme.io, name: Acme}
type File struct {
	Label        string      `yaml:"label"`
	Hints        bool        `yaml:"hints"`
	SharedSecret string      `yaml:"shared_secret"`
	Entries      []FileEntry `yaml:"entries"`
}

// FileEntry is one directory entry. Record is decoded with the principal's
// JSON field names.
type FileEntry struct {
	SecretHash string         `yaml:"secret_hash"`
	Record     map[string]any `yaml:"record"`
}

// LoadYAML reads a directory file and builds its Authenticator. hasher is
// only needed when the file relies on per-entry secret hashes.
func LoadYAML[P principal.Principal](path string, hasher *password.Argon2) (*Authenticator[P], error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read directory file: %w", err)
	}
	return ParseYAML[P](data, hasher)
}

// ParseYAML is LoadYAML on an in-memory document.
func ParseYAML[P principal.Principal](data []byte, hasher *password.Argon2) (*Authenticator[P], error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse directory yaml: %w", err)
	}

	entries := make([]P, 0, len(f.Entries))
	hashes := make(map[string]string, len(f.Entries))
	for i, e := range f.Entries {
		raw, err := json.Marshal(e.Record)
		if err != nil {
			return nil, fmt.Errorf("directory entry %d: %w", i, err)
		}
		var p P
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("directory entry %d: %w", i, err)
		}
		entries = append(entries, p)
		if e.SecretHash != "" {
			hashes[p.PrincipalEmail()] = e.SecretHash
		}
	}

	dir, err := NewStatic(entries...)
	if err != nil {
		return nil, err
	}

	var v Validator
	switch {
	case f.SharedSecret != "":
		v = NewSharedSecret(f.SharedSecret)
	case len(hashes) > 0:
		if hasher == nil {
			return nil, errors.New("directory uses secret hashes but no hasher was provided")
		}
		v = NewArgon2(hasher, hashes)
	default:
		return nil, errors.New("directory defines neither shared_secret nor secret_hash entries")
	}

	opts := Options{Label: f.Label, Hints: f.Hints}
	if f.SharedSecret != "" {
		opts.DemoSecret = f.SharedSecret
	}
	return NewAuthenticator[P](dir, v, opts)
}
