package nova

import (
	"io"
	"testing"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/blake2b"

	"github.com/grapevine-zk/grapefold/circom"
	"github.com/grapevine-zk/grapefold/constraint"
)

func seededRNG(t testing.TB, seed string) io.Reader {
	t.Helper()
	xof, err := blake2b.NewXOF(blake2b.OutputLengthUnknown, nil)
	require.NoError(t, err)
	_, err = xof.Write([]byte(seed))
	require.NoError(t, err)
	return xof
}

func frFromInt(v int64) fr.Element {
	var e fr.Element
	e.SetInt64(v)
	return e
}

func state(values ...int64) []fr.Element {
	z := make([]fr.Element, len(values))
	for i, v := range values {
		z[i].SetInt64(v)
	}
	return z
}

// addOneCalc computes z_{i+1} = z_i + 1 over the wires [1, out, in].
type addOneCalc struct{}

func (addOneCalc) WireCounts() (int, int, int, int) { return 3, 1, 1, 0 }

func (addOneCalc) Evaluate(public, private []fr.Element) ([]fr.Element, error) {
	one := fr.One()
	var out fr.Element
	out.Add(&public[0], &one)
	return []fr.Element{fr.One(), out, public[0]}, nil
}

func addOneSystem() *constraint.R1CS {
	one := fr.One()
	// (in + 1) · 1 = out
	return &constraint.R1CS{
		A:        constraint.SparseMatrix{Rows: [][]constraint.Term{{{Col: 2, Coeff: one}, {Col: 0, Coeff: one}}}},
		B:        constraint.SparseMatrix{Rows: [][]constraint.Term{{{Col: 0, Coeff: one}}}},
		C:        constraint.SparseMatrix{Rows: [][]constraint.Term{{{Col: 1, Coeff: one}}}},
		NbWires:  3,
		NbPubOut: 1,
		NbPubIn:  1,
	}
}

// identityCalc computes z_{i+1} = z_i over the wires [1, out, in].
type identityCalc struct{}

func (identityCalc) WireCounts() (int, int, int, int) { return 3, 1, 1, 0 }

func (identityCalc) Evaluate(public, private []fr.Element) ([]fr.Element, error) {
	return []fr.Element{fr.One(), public[0], public[0]}, nil
}

func identitySystem() *constraint.R1CS {
	one := fr.One()
	// in · 1 = out
	return &constraint.R1CS{
		A:        constraint.SparseMatrix{Rows: [][]constraint.Term{{{Col: 2, Coeff: one}}}},
		B:        constraint.SparseMatrix{Rows: [][]constraint.Term{{{Col: 0, Coeff: one}}}},
		C:        constraint.SparseMatrix{Rows: [][]constraint.Term{{{Col: 1, Coeff: one}}}},
		NbWires:  3,
		NbPubOut: 1,
		NbPubIn:  1,
	}
}

// mulAuxCalc computes z_{i+1} = z_i · aux over the wires [1, out, in, aux].
type mulAuxCalc struct{}

func (mulAuxCalc) WireCounts() (int, int, int, int) { return 4, 1, 1, 1 }

func (mulAuxCalc) Evaluate(public, private []fr.Element) ([]fr.Element, error) {
	var out fr.Element
	out.Mul(&public[0], &private[0])
	return []fr.Element{fr.One(), out, public[0], private[0]}, nil
}

func mulAuxSystem() *constraint.R1CS {
	one := fr.One()
	// in · aux = out
	return &constraint.R1CS{
		A:        constraint.SparseMatrix{Rows: [][]constraint.Term{{{Col: 2, Coeff: one}}}},
		B:        constraint.SparseMatrix{Rows: [][]constraint.Term{{{Col: 3, Coeff: one}}}},
		C:        constraint.SparseMatrix{Rows: [][]constraint.Term{{{Col: 1, Coeff: one}}}},
		NbWires:  4,
		NbPubOut: 1,
		NbPubIn:  1,
		NbPriv:   1,
	}
}

// countingCalc wraps a step oracle and records how often it is evaluated.
type countingCalc struct {
	inner circom.Calculator
	calls *int
}

func (c countingCalc) WireCounts() (int, int, int, int) { return c.inner.WireCounts() }

func (c countingCalc) Evaluate(public, private []fr.Element) ([]fr.Element, error) {
	*c.calls++
	return c.inner.Evaluate(public, private)
}

func identityCircuit(t testing.TB) *AugmentedCircuit {
	t.Helper()
	inner, err := circom.NewCircuit(identitySystem(), identityCalc{})
	require.NoError(t, err)
	ac, err := NewAugmentedCircuit(inner)
	require.NoError(t, err)
	return ac
}

func addOneCircuit(t testing.TB) *AugmentedCircuit {
	t.Helper()
	inner, err := circom.NewCircuit(addOneSystem(), addOneCalc{})
	require.NoError(t, err)
	ac, err := NewAugmentedCircuit(inner)
	require.NoError(t, err)
	return ac
}

func mulAuxCircuit(t testing.TB) *AugmentedCircuit {
	t.Helper()
	inner, err := circom.NewCircuit(mulAuxSystem(), mulAuxCalc{})
	require.NoError(t, err)
	ac, err := NewAugmentedCircuit(inner)
	require.NoError(t, err)
	return ac
}
