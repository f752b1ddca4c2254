package constraint

import (
	"testing"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mulSystem is the relation out = in · aux over the wires [1, out, in, aux].
func mulSystem() *R1CS {
	one := fr.One()
	return &R1CS{
		A:        SparseMatrix{Rows: [][]Term{{{Col: 2, Coeff: one}}}},
		B:        SparseMatrix{Rows: [][]Term{{{Col: 3, Coeff: one}}}},
		C:        SparseMatrix{Rows: [][]Term{{{Col: 1, Coeff: one}}}},
		NbWires:  4,
		NbPubOut: 1,
		NbPubIn:  1,
		NbPriv:   1,
	}
}

func assignment(values ...int64) []fr.Element {
	w := make([]fr.Element, len(values))
	for i, v := range values {
		w[i].SetInt64(v)
	}
	return w
}

func TestValidate(t *testing.T) {
	cs := mulSystem()
	require.NoError(t, cs.Validate())

	bad := mulSystem()
	bad.NbPriv = 2
	require.Error(t, bad.Validate(), "wire counts must add up")

	bad = mulSystem()
	bad.B.Rows = nil
	require.Error(t, bad.Validate(), "matrices must have equal row counts")

	bad = mulSystem()
	bad.A.Rows[0][0].Col = 7
	require.Error(t, bad.Validate(), "columns must stay in range")
}

func TestIsSatisfied(t *testing.T) {
	cs := mulSystem()
	require.Equal(t, 1, cs.NbConstraints())

	require.NoError(t, cs.IsSatisfied(assignment(1, 6, 2, 3)))

	err := cs.IsSatisfied(assignment(1, 7, 2, 3))
	require.Error(t, err, "6 != 7")

	err = cs.IsSatisfied(assignment(1, 6, 2))
	require.Error(t, err, "assignment too short")

	err = cs.IsSatisfied(assignment(2, 6, 2, 3))
	require.Error(t, err, "assignment must start with the constant one")
}

func TestSparseMatrixMul(t *testing.T) {
	// compare against a dense evaluation on a fixed matrix
	var two, three, five fr.Element
	two.SetInt64(2)
	three.SetInt64(3)
	five.SetInt64(5)
	m := SparseMatrix{Rows: [][]Term{
		{{Col: 0, Coeff: two}, {Col: 2, Coeff: three}},
		nil,
		{{Col: 1, Coeff: five}},
	}}
	z := assignment(7, 11, 13)

	res := make([]fr.Element, m.NbRows())
	m.Mul(res, z)

	expected := assignment(2*7+3*13, 0, 5*11)
	for i := range expected {
		assert.True(t, res[i].Equal(&expected[i]), "row %d", i)
	}
}
