// Package ledger talks to the ResumeZK contract that anchors résumé
// commitments and credential records.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/muhammadolammi/resumezk/internal/hasher"
)

var (
	ErrResumeNotFound     = errors.New("ledger: resume not found")
	ErrCredentialNotFound = errors.New("ledger: credential not found")
	ErrUnknownCredential  = errors.New("ledger: unknown credential kind")
	ErrInvalidAddress     = errors.New("ledger: invalid address")
)

// CredentialKind mirrors the contract's CredentialType enum.
type CredentialKind uint8

const (
	Degree CredentialKind = iota
	CET4
	CET6
)

var kindNames = map[CredentialKind]string{
	Degree: "degree",
	CET4:   "cet4",
	CET6:   "cet6",
}

func (k CredentialKind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return fmt.Sprintf("CredentialKind(%d)", uint8(k))
}

// ParseCredentialKind accepts degree, cet4 or cet6 in any case.
func ParseCredentialKind(s string) (CredentialKind, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for k, n := range kindNames {
		if n == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownCredential, s)
}

// Resume is the on-chain record for a content hash.
type Resume struct {
	MerkleRoot hasher.Digest `json:"merkleRoot"`
	Owner      string        `json:"owner"`
	Timestamp  time.Time     `json:"timestamp"`
	Verified   bool          `json:"verified"`
}

// Credential is the on-chain record of a verified credential.
type Credential struct {
	Kind      CredentialKind `json:"kind"`
	DataHash  string         `json:"dataHash"`
	Timestamp time.Time      `json:"timestamp"`
	Verified  bool           `json:"verified"`
}

// TxHash identifies a submitted transaction.
type TxHash string

// Ledger is the contract surface this service uses.
type Ledger interface {
	SubmitResume(ctx context.Context, contentHash, merkleRoot hasher.Digest) (TxHash, error)
	VerifyResume(ctx context.Context, contentHash hasher.Digest) (TxHash, error)
	GetResume(ctx context.Context, contentHash hasher.Digest) (Resume, error)
	GetUserResumes(ctx context.Context, owner string) ([]hasher.Digest, error)
	StoreCredential(ctx context.Context, kind CredentialKind, dataHash string) (TxHash, error)
	GetUserCredential(ctx context.Context, owner string, kind CredentialKind) (Credential, error)
	HasCredential(ctx context.Context, owner string, kind CredentialKind) (bool, error)
}
