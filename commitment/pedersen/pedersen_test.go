package pedersen

import (
	"errors"
	"io"
	"testing"

	curve "github.com/consensys/gnark-crypto/ecc/bn254"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	fr2 "github.com/consensys/gnark-crypto/ecc/grumpkin/fr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/blake2b"
)

func seededRNG(t *testing.T, seed string) io.Reader {
	t.Helper()
	xof, err := blake2b.NewXOF(blake2b.OutputLengthUnknown, nil)
	require.NoError(t, err)
	_, err = xof.Write([]byte(seed))
	require.NoError(t, err)
	return xof
}

// The basis must not be built as scalar multiples of the generator: anyone
// holding the derivation scalars could open a commitment to any vector.
// Hash-to-curve points carry no such relation; check they are well formed
// and pairwise distinct.
func TestNewKeyBasisHasNoKnownRelation(t *testing.T) {
	k, err := NewKey(seededRNG(t, "basis"), 8)
	require.NoError(t, err)

	_, _, g, _ := curve.Generators()
	seen := map[string]bool{g.String(): true}
	for _, p := range append(k.Basis, k.H) {
		require.False(t, p.IsInfinity())
		require.True(t, p.IsInSubGroup())
		require.False(t, seen[p.String()], "basis points must be pairwise distinct")
		seen[p.String()] = true
	}
}

func TestNewSecondaryKeyBasisHasNoKnownRelation(t *testing.T) {
	k, err := NewSecondaryKey(seededRNG(t, "basis"), 8)
	require.NoError(t, err)

	seen := map[string]bool{}
	for _, p := range append(k.Basis, k.H) {
		require.False(t, p.IsInfinity())
		require.True(t, p.IsInSubGroup())
		require.False(t, seen[p.String()])
		seen[p.String()] = true
	}
}

func testVector(n int, offset int64) []fr.Element {
	v := make([]fr.Element, n)
	for i := range v {
		v[i].SetInt64(offset + int64(i))
	}
	return v
}

func TestNewKeyDeterministic(t *testing.T) {
	k1, err := NewKey(seededRNG(t, "key"), 8)
	require.NoError(t, err)
	k2, err := NewKey(seededRNG(t, "key"), 8)
	require.NoError(t, err)

	require.Equal(t, k1.NbScalars(), k2.NbScalars())
	for i := range k1.Basis {
		assert.True(t, k1.Basis[i].Equal(&k2.Basis[i]), "basis point %d", i)
	}
	assert.True(t, k1.H.Equal(&k2.H))

	k3, err := NewKey(seededRNG(t, "other"), 8)
	require.NoError(t, err)
	assert.False(t, k1.Basis[0].Equal(&k3.Basis[0]), "distinct seeds should yield distinct bases")
}

func TestNewKeyRejectsBadSize(t *testing.T) {
	_, err := NewKey(seededRNG(t, "k"), 0)
	require.Error(t, err)
	_, err = NewKey(seededRNG(t, "k"), -3)
	require.Error(t, err)
}

func TestCommitOpen(t *testing.T) {
	k, err := NewKey(seededRNG(t, "commit"), 8)
	require.NoError(t, err)

	v := testVector(8, 1)
	com, err := k.Commit(v, fr.Element{})
	require.NoError(t, err)
	require.NoError(t, k.Open(&com, v, fr.Element{}))

	// a differing vector must not open the commitment
	bad := testVector(8, 2)
	err = k.Open(&com, bad, fr.Element{})
	require.ErrorIs(t, err, ErrCommitmentMismatch)

	// neither does the right vector under the wrong blinding
	var r fr.Element
	r.SetInt64(42)
	err = k.Open(&com, v, r)
	require.ErrorIs(t, err, ErrCommitmentMismatch)
}

func TestCommitHomomorphic(t *testing.T) {
	k, err := NewKey(seededRNG(t, "homomorphic"), 6)
	require.NoError(t, err)

	a := testVector(6, 3)
	b := testVector(6, 100)
	sum := make([]fr.Element, 6)
	for i := range sum {
		sum[i].Add(&a[i], &b[i])
	}

	comA, err := k.Commit(a, fr.Element{})
	require.NoError(t, err)
	comB, err := k.Commit(b, fr.Element{})
	require.NoError(t, err)
	comSum, err := k.Commit(sum, fr.Element{})
	require.NoError(t, err)

	var lhs curve.G1Affine
	lhs.Add(&comA, &comB)
	assert.True(t, lhs.Equal(&comSum))
}

func TestCommitBlinding(t *testing.T) {
	k, err := NewKey(seededRNG(t, "blinding"), 4)
	require.NoError(t, err)

	v := testVector(4, 9)
	var r fr.Element
	r.SetInt64(7)

	plain, err := k.Commit(v, fr.Element{})
	require.NoError(t, err)
	hidden, err := k.Commit(v, r)
	require.NoError(t, err)

	assert.False(t, plain.Equal(&hidden), "blinding must change the commitment")
	require.NoError(t, k.Open(&hidden, v, r))
}

func TestCommitRejectsOversizedVector(t *testing.T) {
	k, err := NewKey(seededRNG(t, "size"), 4)
	require.NoError(t, err)

	_, err = k.Commit(testVector(5, 0), fr.Element{})
	require.Error(t, err)
	require.False(t, errors.Is(err, ErrCommitmentMismatch))
}

func TestSecondaryKey(t *testing.T) {
	k1, err := NewSecondaryKey(seededRNG(t, "secondary"), 6)
	require.NoError(t, err)
	k2, err := NewSecondaryKey(seededRNG(t, "secondary"), 6)
	require.NoError(t, err)
	for i := range k1.Basis {
		assert.True(t, k1.Basis[i].Equal(&k2.Basis[i]), "basis point %d", i)
	}

	v := make([]fr2.Element, 6)
	for i := range v {
		v[i].SetInt64(int64(i + 1))
	}
	com, err := k1.Commit(v, fr2.Element{})
	require.NoError(t, err)
	require.NoError(t, k1.Open(&com, v, fr2.Element{}))

	v[3].SetInt64(99)
	err = k1.Open(&com, v, fr2.Element{})
	require.ErrorIs(t, err, ErrCommitmentMismatch)
}
