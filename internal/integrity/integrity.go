// Package integrity combines the hasher, the Merkle combiner and the share
// store into the operations the HTTP layer calls.
package integrity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/muhammadolammi/resumezk/internal/hasher"
	"github.com/muhammadolammi/resumezk/internal/merkle"
	"github.com/muhammadolammi/resumezk/internal/metrics"
	"github.com/muhammadolammi/resumezk/internal/share"
)

var ErrNotObject = errors.New("integrity: résumé fields must be a JSON object")

// Commitment is what gets anchored on the ledger.
type Commitment struct {
	ContentHash      hasher.Digest `json:"contentHash"`
	MerkleRoot       hasher.Digest `json:"merkleRoot"`
	PartitionVersion string        `json:"partitionVersion"`
	Leaves           []Leaf        `json:"leaves"`
}

// ShareLink is a created share and the URL that resolves it.
type ShareLink struct {
	ID        string    `json:"shareId"`
	URL       string    `json:"shareUrl"`
	CreatedAt time.Time `json:"-"`
	ExpiresAt time.Time `json:"-"`
}

// CommitResume returns the content hash of fields and the Merkle root over
// its v1 leaves. Either both are returned or an error.
func CommitResume(fields any) (Commitment, error) {
	canon, obj, err := canonicalObject(fields)
	if err != nil {
		return Commitment{}, err
	}
	leaves, err := partition(obj)
	if err != nil {
		return Commitment{}, err
	}
	digests := make([]hasher.Digest, len(leaves))
	for i, l := range leaves {
		digests[i] = l.Digest
	}
	root, err := merkle.ComputeRoot(digests)
	if err != nil {
		return Commitment{}, fmt.Errorf("integrity: merkle root: %w", err)
	}
	return Commitment{
		ContentHash:      hasher.Sum(canon),
		MerkleRoot:       root,
		PartitionVersion: PartitionVersion,
		Leaves:           leaves,
	}, nil
}

// VerifyCommitment reports whether fields re-derive root.
func VerifyCommitment(fields any, root hasher.Digest) (bool, error) {
	want, err := hasher.ParseDigest(string(root))
	if err != nil {
		return false, err
	}
	c, err := CommitResume(fields)
	if err != nil {
		return false, err
	}
	return c.MerkleRoot == want, nil
}

type Facade struct {
	shares  *share.Store
	baseURL string
	metrics *metrics.Metrics
}

type Option func(*Facade)

func WithMetrics(m *metrics.Metrics) Option {
	return func(f *Facade) { f.metrics = m }
}

// New returns a Facade whose share URLs start with baseURL. An empty
// baseURL yields relative URLs.
func New(shares *share.Store, baseURL string, opts ...Option) *Facade {
	f := &Facade{shares: shares, baseURL: strings.TrimRight(baseURL, "/")}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// BaseURL returns the prefix used for share URLs.
func (f *Facade) BaseURL() string { return f.baseURL }

// WithBaseURL returns a copy of f that builds URLs under base.
func (f *Facade) WithBaseURL(base string) *Facade {
	c := *f
	c.baseURL = strings.TrimRight(base, "/")
	return &c
}

func (f *Facade) CommitResume(fields any) (Commitment, error) {
	c, err := CommitResume(fields)
	if err != nil {
		f.metrics.Commit("error")
		return Commitment{}, err
	}
	f.metrics.Commit("ok")
	return c, nil
}

// ShareURL joins base and id into the public share URL.
func ShareURL(base, id string) string {
	return strings.TrimRight(base, "/") + "/share/" + url.PathEscape(id)
}

func (f *Facade) CreateShareLink(ctx context.Context, fields any) (ShareLink, error) {
	payload, ok := fields.(json.RawMessage)
	if !ok {
		b, err := json.Marshal(fields)
		if err != nil {
			return ShareLink{}, fmt.Errorf("integrity: encode share payload: %w", err)
		}
		payload = b
	}
	rec, err := f.shares.Create(ctx, payload)
	if err != nil {
		return ShareLink{}, err
	}
	return ShareLink{
		ID:        rec.ID,
		URL:       ShareURL(f.baseURL, rec.ID),
		CreatedAt: rec.CreatedAt,
		ExpiresAt: rec.ExpiresAt,
	}, nil
}

// ResolveShareLink returns the shared record. share.ErrNotFound and
// share.ErrExpired are passed through unchanged.
func (f *Facade) ResolveShareLink(ctx context.Context, id string) (share.Record, error) {
	return f.shares.Resolve(ctx, id)
}
