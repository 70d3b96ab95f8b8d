// Package hasher turns structured values into content digests.
//
// A value is first reduced to its canonical JSON form (see Canonical) and
// the canonical bytes are hashed with Keccak-256. Two values that are
// deeply equal once object keys are ordered produce the same Digest.
package hasher

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/sha3"
)

const (
	// Prefix marks every hex-encoded Digest.
	Prefix = "0x"
	// Size is the length in bytes of the underlying hash.
	Size = 32
)

var (
	ErrSerialization = errors.New("hasher: value is not serializable")
	ErrInvalidDigest = errors.New("hasher: invalid digest")
)

// SerializationError reports a value that has no canonical form.
type SerializationError struct {
	Err error
}

func (e *SerializationError) Error() string {
	return fmt.Sprintf("%s: %v", ErrSerialization, e.Err)
}

func (e *SerializationError) Unwrap() error { return e.Err }

func (e *SerializationError) Is(target error) bool { return target == ErrSerialization }

// Digest is a 0x-prefixed, lowercase hex Keccak-256 hash.
type Digest string

func (d Digest) String() string { return string(d) }

// Bytes returns the raw hash. It returns nil if d is malformed.
func (d Digest) Bytes() []byte {
	if !strings.HasPrefix(string(d), Prefix) {
		return nil
	}
	b, err := hex.DecodeString(string(d)[len(Prefix):])
	if err != nil || len(b) != Size {
		return nil
	}
	return b
}

// ParseDigest validates s and returns it in lowercase form.
func ParseDigest(s string) (Digest, error) {
	if len(s) != len(Prefix)+2*Size || !strings.EqualFold(s[:len(Prefix)], Prefix) {
		return "", fmt.Errorf("%w: %q", ErrInvalidDigest, s)
	}
	lower := strings.ToLower(s)
	if _, err := hex.DecodeString(lower[len(Prefix):]); err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidDigest, s)
	}
	return Digest(Prefix + lower[len(Prefix):]), nil
}

// FromBytes encodes a raw 32-byte hash as a Digest.
func FromBytes(b []byte) (Digest, error) {
	if len(b) != Size {
		return "", fmt.Errorf("%w: %d bytes", ErrInvalidDigest, len(b))
	}
	return Digest(Prefix + hex.EncodeToString(b)), nil
}

// Sum hashes b.
func Sum(b []byte) Digest {
	h := sha3.NewLegacyKeccak256()
	h.Write(b)
	return Digest(Prefix + hex.EncodeToString(h.Sum(nil)))
}

// Of returns the digest of v's canonical form.
func Of(v any) (Digest, error) {
	b, err := Canonical(v)
	if err != nil {
		return "", err
	}
	return Sum(b), nil
}
