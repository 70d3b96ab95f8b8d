package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/muhammadolammi/resumezk/internal/clock"
	"github.com/muhammadolammi/resumezk/internal/hasher"
)

var ErrAlreadySubmitted = errors.New("ledger: resume already submitted")

// Memory is a process-local Ledger. Every write is attributed to a single
// owner address. It stands in for the contract in development and tests.
type Memory struct {
	mu          sync.Mutex
	owner       common.Address
	clock       clock.TimeSource
	nonce       uint64
	resumes     map[hasher.Digest]Resume
	byOwner     map[common.Address][]hasher.Digest
	credentials map[common.Address]map[CredentialKind]Credential
}

func NewMemory(owner string, ts clock.TimeSource) (*Memory, error) {
	addr, err := toAddress(owner)
	if err != nil {
		return nil, err
	}
	if ts == nil {
		ts = clock.System
	}
	return &Memory{
		owner:       addr,
		clock:       ts,
		resumes:     make(map[hasher.Digest]Resume),
		byOwner:     make(map[common.Address][]hasher.Digest),
		credentials: make(map[common.Address]map[CredentialKind]Credential),
	}, nil
}

func (m *Memory) txHash(method string, args ...any) TxHash {
	m.nonce++
	return TxHash(hasher.Sum([]byte(fmt.Sprint(method, args, m.nonce))))
}

func (m *Memory) SubmitResume(_ context.Context, contentHash, merkleRoot hasher.Digest) (TxHash, error) {
	h, err := hasher.ParseDigest(string(contentHash))
	if err != nil {
		return "", err
	}
	r, err := hasher.ParseDigest(string(merkleRoot))
	if err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.resumes[h]; ok {
		return "", ErrAlreadySubmitted
	}
	m.resumes[h] = Resume{
		MerkleRoot: r,
		Owner:      m.owner.Hex(),
		Timestamp:  m.clock.Now().UTC().Truncate(time.Second),
	}
	m.byOwner[m.owner] = append(m.byOwner[m.owner], h)
	return m.txHash("submitResume", h, r), nil
}

func (m *Memory) VerifyResume(_ context.Context, contentHash hasher.Digest) (TxHash, error) {
	h, err := hasher.ParseDigest(string(contentHash))
	if err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.resumes[h]
	if !ok {
		return "", ErrResumeNotFound
	}
	r.Verified = true
	m.resumes[h] = r
	return m.txHash("verifyResume", h), nil
}

func (m *Memory) GetResume(_ context.Context, contentHash hasher.Digest) (Resume, error) {
	h, err := hasher.ParseDigest(string(contentHash))
	if err != nil {
		return Resume{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.resumes[h]
	if !ok {
		return Resume{}, ErrResumeNotFound
	}
	return r, nil
}

func (m *Memory) GetUserResumes(_ context.Context, owner string) ([]hasher.Digest, error) {
	addr, err := toAddress(owner)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]hasher.Digest(nil), m.byOwner[addr]...), nil
}

func (m *Memory) StoreCredential(_ context.Context, kind CredentialKind, dataHash string) (TxHash, error) {
	if _, ok := kindNames[kind]; !ok {
		return "", fmt.Errorf("%w: %d", ErrUnknownCredential, kind)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	creds := m.credentials[m.owner]
	if creds == nil {
		creds = make(map[CredentialKind]Credential)
		m.credentials[m.owner] = creds
	}
	creds[kind] = Credential{
		Kind:      kind,
		DataHash:  dataHash,
		Timestamp: m.clock.Now().UTC().Truncate(time.Second),
		Verified:  true,
	}
	return m.txHash("storeCredential", kind, dataHash), nil
}

func (m *Memory) GetUserCredential(_ context.Context, owner string, kind CredentialKind) (Credential, error) {
	addr, err := toAddress(owner)
	if err != nil {
		return Credential{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.credentials[addr][kind]
	if !ok {
		return Credential{}, ErrCredentialNotFound
	}
	return c, nil
}

func (m *Memory) HasCredential(_ context.Context, owner string, kind CredentialKind) (bool, error) {
	addr, err := toAddress(owner)
	if err != nil {
		return false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.credentials[addr][kind]
	return ok, nil
}

// Owner returns the address every write is attributed to.
func (m *Memory) Owner() string { return m.owner.Hex() }
