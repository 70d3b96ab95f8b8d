// Package merkle folds an ordered list of digests into a single root.
//
// Each parent is the Keccak-256 of its two children's raw bytes, smaller
// child first, so a parent does not depend on which side a child sits on.
// Grouping into pairs does depend on position: leaves are paired in input
// order and an unpaired last node is paired with itself.
package merkle

import (
	"errors"
	"fmt"

	"github.com/muhammadolammi/resumezk/internal/hasher"
)

var ErrEmptyInput = errors.New("merkle: no leaves")

// Combine returns the parent of a and b. Combine(a, b) == Combine(b, a).
// Both inputs are validated and normalized first.
func Combine(a, b hasher.Digest) (hasher.Digest, error) {
	na, err := hasher.ParseDigest(string(a))
	if err != nil {
		return "", fmt.Errorf("merkle: left: %w", err)
	}
	nb, err := hasher.ParseDigest(string(b))
	if err != nil {
		return "", fmt.Errorf("merkle: right: %w", err)
	}
	return combine(na, nb), nil
}

// combine expects normalized digests.
func combine(a, b hasher.Digest) hasher.Digest {
	if b < a {
		a, b = b, a
	}
	buf := make([]byte, 0, 2*hasher.Size)
	buf = append(buf, a.Bytes()...)
	buf = append(buf, b.Bytes()...)
	return hasher.Sum(buf)
}

// ComputeRoot returns the root over leaves. A single leaf is its own root.
func ComputeRoot(leaves []hasher.Digest) (hasher.Digest, error) {
	if len(leaves) == 0 {
		return "", ErrEmptyInput
	}
	level := make([]hasher.Digest, len(leaves))
	for i, l := range leaves {
		d, err := hasher.ParseDigest(string(l))
		if err != nil {
			return "", fmt.Errorf("merkle: leaf %d: %w", i, err)
		}
		level[i] = d
	}

	for len(level) > 1 {
		next := make([]hasher.Digest, 0, (len(level)+1)/2)
		for i := 0; i < len(level); i += 2 {
			right := level[i]
			if i+1 < len(level) {
				right = level[i+1]
			}
			next = append(next, combine(level[i], right))
		}
		level = next
	}
	return level[0], nil
}
