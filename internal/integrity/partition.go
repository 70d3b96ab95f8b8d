package integrity

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/muhammadolammi/resumezk/internal/hasher"
)

// PartitionVersion names the leaf layout below. Anyone re-deriving a root
// from raw fields must use the same layout, so any change to it needs a new
// version string.
const PartitionVersion = "resume-leaves/v1"

// Leaf is one group of résumé fields and its digest.
type Leaf struct {
	Group  string        `json:"group"`
	Digest hasher.Digest `json:"digest"`
}

// Leaves appear in this order:
//
//	personalInfo
//	education
//	experience[0] ... experience[n-1]
//	skills
//	certifications
//	languages
//	extra          (only when other top-level keys exist)
//
// The five fixed groups always produce a leaf; an absent group hashes as
// null. experience yields one leaf per array element, nothing when absent
// or null, and a single "experience" leaf when it is not an array. extra is
// the object made of every remaining top-level key.
//
// In v1 leaves do not encode the shape of experience: a lone object and a
// one-element array holding it give the same leaves, as do an empty array
// and an absent key. Such records share a Merkle root and differ only in
// ContentHash, so callers that care about shape must compare ContentHash.
var (
	headGroups = []string{"personalInfo", "education"}
	tailGroups = []string{"skills", "certifications", "languages"}
)

const experienceGroup = "experience"

// canonicalObject reduces fields to canonical bytes and the decoded object.
func canonicalObject(fields any) ([]byte, map[string]any, error) {
	canon, err := hasher.Canonical(fields)
	if err != nil {
		return nil, nil, err
	}
	dec := json.NewDecoder(bytes.NewReader(canon))
	dec.UseNumber()
	var obj map[string]any
	if err := dec.Decode(&obj); err != nil || obj == nil {
		return nil, nil, ErrNotObject
	}
	return canon, obj, nil
}

func partition(obj map[string]any) ([]Leaf, error) {
	var leaves []Leaf
	add := func(group string, v any) error {
		d, err := hasher.Of(v)
		if err != nil {
			return fmt.Errorf("integrity: hash %s: %w", group, err)
		}
		leaves = append(leaves, Leaf{Group: group, Digest: d})
		return nil
	}

	for _, g := range headGroups {
		if err := add(g, obj[g]); err != nil {
			return nil, err
		}
	}
	switch exp := obj[experienceGroup].(type) {
	case nil:
	case []any:
		for i, e := range exp {
			if err := add(fmt.Sprintf("%s[%d]", experienceGroup, i), e); err != nil {
				return nil, err
			}
		}
	default:
		if err := add(experienceGroup, exp); err != nil {
			return nil, err
		}
	}
	for _, g := range tailGroups {
		if err := add(g, obj[g]); err != nil {
			return nil, err
		}
	}

	known := map[string]bool{experienceGroup: true}
	for _, g := range append(append([]string(nil), headGroups...), tailGroups...) {
		known[g] = true
	}
	extra := make(map[string]any)
	for k, v := range obj {
		if !known[k] {
			extra[k] = v
		}
	}
	if len(extra) > 0 {
		if err := add("extra", extra); err != nil {
			return nil, err
		}
	}
	return leaves, nil
}

// LeafDigests returns the v1 leaves of fields.
func LeafDigests(fields any) ([]Leaf, error) {
	_, obj, err := canonicalObject(fields)
	if err != nil {
		return nil, err
	}
	return partition(obj)
}
