package opaqueid

import (
	"errors"
	"fmt"

	hashids "github.com/speps/go-hashids/v2"
)

// Text ids on the wire are hashids: a salted, reversible encoding of the
// numeric id. The encoding is not secret-proof crypto, it just keeps ids
// from being sequentially enumerable.
const minLength = 5

var ErrMalformed = errors.New("opaque id does not decode")

type Codec struct {
	h *hashids.HashID
}

func NewCodec(salt string) (*Codec, error) {
	if salt == "" {
		return nil, errors.New("opaque id salt must not be empty")
	}
	data := hashids.NewData()
	data.Salt = salt
	data.MinLength = minLength
	h, err := hashids.NewWithData(data)
	if err != nil {
		return nil, fmt.Errorf("failed to build hashids codec: %w", err)
	}
	return &Codec{h: h}, nil
}

func (c *Codec) Encode(id int64) (string, error) {
	if id < 0 {
		return "", fmt.Errorf("%w: negative id", ErrMalformed)
	}
	encoded, err := c.h.EncodeInt64([]int64{id})
	if err != nil {
		return "", fmt.Errorf("failed to encode id %d: %w", id, err)
	}
	return encoded, nil
}

// Decode inverts Encode. Malformed input, input produced under a different
// salt, and input that decodes to anything but exactly one non-negative id
// all fail the same way, so callers cannot distinguish "wrong" from
// "never existed".
func (c *Codec) Decode(opaque string) (int64, error) {
	ids, err := c.h.DecodeInt64WithError(opaque)
	if err != nil || len(ids) != 1 || ids[0] < 0 {
		return 0, ErrMalformed
	}

	// Hashids accepts some strings Encode never emits (case variants,
	// padding differences). Round-trip to keep decode strict.
	canonical, err := c.h.EncodeInt64([]int64{ids[0]})
	if err != nil || canonical != opaque {
		return 0, ErrMalformed
	}

	return ids[0], nil
}
