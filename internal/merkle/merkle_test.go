package merkle

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/muhammadolammi/resumezk/internal/hasher"
)

func leaves(n int) []hasher.Digest {
	out := make([]hasher.Digest, n)
	for i := range out {
		out[i] = hasher.Sum([]byte(fmt.Sprintf("leaf-%d", i)))
	}
	return out
}

func mustCombine(t *testing.T, a, b hasher.Digest) hasher.Digest {
	t.Helper()
	d, err := Combine(a, b)
	require.NoError(t, err)
	return d
}

func TestComputeRootEmpty(t *testing.T) {
	_, err := ComputeRoot(nil)
	assert.ErrorIs(t, err, ErrEmptyInput)
}

func TestComputeRootSingleLeaf(t *testing.T) {
	d := leaves(1)[0]
	root, err := ComputeRoot([]hasher.Digest{d})
	require.NoError(t, err)
	assert.Equal(t, d, root)
}

func TestCombineSymmetric(t *testing.T) {
	l := leaves(2)
	assert.Equal(t, mustCombine(t, l[0], l[1]), mustCombine(t, l[1], l[0]))
	assert.NotEqual(t, l[0], mustCombine(t, l[0], l[1]))
}

func TestCombineHashesOrderedBytes(t *testing.T) {
	l := leaves(2)
	lo, hi := l[0], l[1]
	if hi < lo {
		lo, hi = hi, lo
	}
	want := hasher.Sum(append(lo.Bytes(), hi.Bytes()...))
	assert.Equal(t, want, mustCombine(t, hi, lo))
}

func TestCombineRejectsMalformedDigests(t *testing.T) {
	l := leaves(1)
	_, err := Combine("garbage", "nonsense")
	assert.ErrorIs(t, err, hasher.ErrInvalidDigest)
	_, err = Combine(l[0], "")
	assert.ErrorIs(t, err, hasher.ErrInvalidDigest)
	_, err = Combine("0x1234", l[0])
	assert.ErrorIs(t, err, hasher.ErrInvalidDigest)
}

func TestCombineNormalizesCase(t *testing.T) {
	l := leaves(2)
	upper := hasher.Digest("0X" + fmt.Sprintf("%X", l[1].Bytes()))
	assert.Equal(t, mustCombine(t, l[0], l[1]), mustCombine(t, upper, l[0]))
}

func TestComputeRootDuplicatesOddLeaf(t *testing.T) {
	l := leaves(3)
	a, b, c := l[0], l[1], l[2]
	root, err := ComputeRoot(l)
	require.NoError(t, err)
	assert.Equal(t, mustCombine(t, mustCombine(t, a, b), mustCombine(t, c, c)), root)
}

func TestComputeRootFiveLeaves(t *testing.T) {
	l := leaves(5)
	ab := mustCombine(t, l[0], l[1])
	cd := mustCombine(t, l[2], l[3])
	ee := mustCombine(t, l[4], l[4])
	want := mustCombine(t, mustCombine(t, ab, cd), mustCombine(t, ee, ee))

	root, err := ComputeRoot(l)
	require.NoError(t, err)
	assert.Equal(t, want, root)
}

func TestComputeRootDeterministic(t *testing.T) {
	for n := 1; n <= 9; n++ {
		l := leaves(n)
		r1, err := ComputeRoot(l)
		require.NoError(t, err)
		r2, err := ComputeRoot(append([]hasher.Digest(nil), l...))
		require.NoError(t, err)
		assert.Equal(t, r1, r2, "n=%d", n)
	}
}

func TestComputeRootPositionSensitive(t *testing.T) {
	l := leaves(3)
	r1, err := ComputeRoot([]hasher.Digest{l[0], l[1], l[2]})
	require.NoError(t, err)
	r2, err := ComputeRoot([]hasher.Digest{l[2], l[1], l[0]})
	require.NoError(t, err)
	assert.NotEqual(t, r1, r2)

	// Swapping within a pair does not matter.
	r3, err := ComputeRoot([]hasher.Digest{l[1], l[0], l[2]})
	require.NoError(t, err)
	assert.Equal(t, r1, r3)
}

func TestComputeRootNormalizesAndValidatesLeaves(t *testing.T) {
	l := leaves(2)
	upper := hasher.Digest("0x" + fmt.Sprintf("%X", l[1].Bytes()))
	r1, err := ComputeRoot(l)
	require.NoError(t, err)
	r2, err := ComputeRoot([]hasher.Digest{l[0], upper})
	require.NoError(t, err)
	assert.Equal(t, r1, r2)

	_, err = ComputeRoot([]hasher.Digest{l[0], "0xnope"})
	assert.ErrorIs(t, err, hasher.ErrInvalidDigest)
}
