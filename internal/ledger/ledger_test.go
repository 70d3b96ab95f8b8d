package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/muhammadolammi/resumezk/internal/clock"
	"github.com/muhammadolammi/resumezk/internal/hasher"
)

const owner = "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"

func TestParseCredentialKind(t *testing.T) {
	tests := map[string]CredentialKind{"degree": Degree, "CET4": CET4, " cet6 ": CET6}
	for in, want := range tests {
		got, err := ParseCredentialKind(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}
	_, err := ParseCredentialKind("ielts")
	assert.ErrorIs(t, err, ErrUnknownCredential)
	assert.Equal(t, "cet4", CET4.String())
	assert.Equal(t, "CredentialKind(9)", CredentialKind(9).String())
}

func TestMemoryResumeLifecycle(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 5, 1, 8, 30, 15, 500, time.UTC)
	m, err := NewMemory(owner, clock.NewFake(now))
	require.NoError(t, err)

	h := hasher.Sum([]byte("content"))
	r := hasher.Sum([]byte("root"))

	_, err = m.GetResume(ctx, h)
	assert.ErrorIs(t, err, ErrResumeNotFound)

	tx, err := m.SubmitResume(ctx, h, r)
	require.NoError(t, err)
	assert.NotEmpty(t, tx)

	_, err = m.SubmitResume(ctx, h, r)
	assert.ErrorIs(t, err, ErrAlreadySubmitted)

	got, err := m.GetResume(ctx, h)
	require.NoError(t, err)
	assert.Equal(t, r, got.MerkleRoot)
	assert.Equal(t, owner, got.Owner)
	assert.Equal(t, now.Truncate(time.Second), got.Timestamp)
	assert.False(t, got.Verified)

	tx2, err := m.VerifyResume(ctx, h)
	require.NoError(t, err)
	assert.NotEqual(t, tx, tx2)
	got, err = m.GetResume(ctx, h)
	require.NoError(t, err)
	assert.True(t, got.Verified)

	list, err := m.GetUserResumes(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, []hasher.Digest{h}, list)

	_, err = m.GetUserResumes(ctx, "not-an-address")
	assert.ErrorIs(t, err, ErrInvalidAddress)
	_, err = m.SubmitResume(ctx, "0x1", r)
	assert.ErrorIs(t, err, hasher.ErrInvalidDigest)
}

func TestMemoryCredentials(t *testing.T) {
	ctx := context.Background()
	m, err := NewMemory(owner, nil)
	require.NoError(t, err)

	ok, err := m.HasCredential(ctx, owner, CET4)
	require.NoError(t, err)
	assert.False(t, ok)
	_, err = m.GetUserCredential(ctx, owner, CET4)
	assert.ErrorIs(t, err, ErrCredentialNotFound)

	_, err = m.StoreCredential(ctx, CET4, `{"name":"Zhang"}`)
	require.NoError(t, err)

	ok, err = m.HasCredential(ctx, owner, CET4)
	require.NoError(t, err)
	assert.True(t, ok)

	cred, err := m.GetUserCredential(ctx, owner, CET4)
	require.NoError(t, err)
	assert.Equal(t, CET4, cred.Kind)
	assert.Equal(t, `{"name":"Zhang"}`, cred.DataHash)
	assert.True(t, cred.Verified)

	_, err = m.StoreCredential(ctx, CredentialKind(7), "x")
	assert.ErrorIs(t, err, ErrUnknownCredential)
}

func TestToBytes32(t *testing.T) {
	d := hasher.Sum([]byte("x"))
	b, err := toBytes32(d)
	require.NoError(t, err)
	assert.Equal(t, d.Bytes(), b[:])

	_, err = toBytes32("0xzz")
	assert.ErrorIs(t, err, hasher.ErrInvalidDigest)
}
