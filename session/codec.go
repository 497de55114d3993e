package session

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/starshipcosmos/authstore/jwt"
)

// ErrCorruptRecord is returned by Codec.Decode for a value that cannot be
// turned back into a record.
var ErrCorruptRecord = errors.New("corrupt session record")

// Codec converts a principal to its persisted form and back.
type Codec interface {
	Encode(v any) ([]byte, error)
	Decode(data []byte, v any) error
}

// JSONCodec stores records as plain JSON. Absent fields decode to zero values.
type JSONCodec struct{}

func (JSONCodec) Encode(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (JSONCodec) Decode(data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %v", ErrCorruptRecord, err)
	}
	return nil
}

// SignedCodec stores records as JSON sealed in a signed JWT.
type SignedCodec struct {
	sealer *jwt.Sealer
}

// NewSignedCodec seals records with sealer.
func NewSignedCodec(sealer *jwt.Sealer) (*SignedCodec, error) {
	if sealer == nil {
		return nil, errors.New("signed codec requires a sealer")
	}
	return &SignedCodec{sealer: sealer}, nil
}

func (c *SignedCodec) Encode(v any) ([]byte, error) {
	payload, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	token, err := c.sealer.Seal(payload)
	if err != nil {
		return nil, err
	}
	return []byte(token), nil
}

func (c *SignedCodec) Decode(data []byte, v any) error {
	payload, err := c.sealer.Open(string(data))
	if err != nil {
		return errors.Join(ErrCorruptRecord, err)
	}
	if err := json.Unmarshal(payload, v); err != nil {
		return fmt.Errorf("%w: %v", ErrCorruptRecord, err)
	}
	return nil
}
