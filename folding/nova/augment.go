// Package nova implements a Nova-style folding scheme over a two-curve
// cycle: an augmented step circuit, the non-interactive folding step (NIFS),
// an IVC session driver and a decider producing a final step-count
// independent proof.
package nova

import (
	"fmt"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"

	"github.com/grapevine-zk/grapefold/circom"
	"github.com/grapevine-zk/grapefold/constraint"
)

// AugmentedCircuit wraps the inner step relation with the wires the folding
// scheme requires: a public IO vector X = [accumulator digest, z_{i+1}...]
// and binding constraints tying the state part of X to the inner output
// wires.
//
// The augmented assignment vector is laid out as [u, X..., W...]: index 0 is
// the relaxation scalar (the constant one for strict instances), then the
// public IO, then the witness (all inner wires except the constant).
type AugmentedCircuit struct {
	inner *circom.Circuit

	a, b, c constraint.SparseMatrix

	stateLen int
	lenX     int // 1 + stateLen
	nbW      int
	nbCols   int
}

// AugmentedInstance is one step's instance of the augmented relation. It is
// strict: relaxation scalar one, zero error vector.
type AugmentedInstance struct {
	X []fr.Element
	W fr.Vector
}

// NewAugmentedCircuit builds the augmented relation template from the inner
// circuit. The template is immutable and shared by all sessions.
func NewAugmentedCircuit(inner *circom.Circuit) (*AugmentedCircuit, error) {
	cs := inner.Compile()
	if err := cs.Validate(); err != nil {
		return nil, fmt.Errorf("nova: inner relation: %w", err)
	}

	ac := &AugmentedCircuit{
		inner:    inner,
		stateLen: inner.StateLen(),
	}
	ac.lenX = 1 + ac.stateLen
	ac.nbW = cs.NbWires - 1
	ac.nbCols = 1 + ac.lenX + ac.nbW

	nbInner := cs.NbConstraints()
	for dst, src := range map[*constraint.SparseMatrix]*constraint.SparseMatrix{
		&ac.a: &cs.A, &ac.b: &cs.B, &ac.c: &cs.C,
	} {
		dst.Rows = make([][]constraint.Term, nbInner, nbInner+ac.stateLen)
		for i, row := range src.Rows {
			remapped := make([]constraint.Term, len(row))
			for j, t := range row {
				remapped[j] = constraint.Term{Col: ac.remapInnerWire(t.Col), Coeff: t.Coeff}
			}
			dst.Rows[i] = remapped
		}
	}

	// binding rows: (X[1+k] - w_{z_{i+1}[k]}) * u = 0
	one := fr.One()
	var minusOne fr.Element
	minusOne.Neg(&one)
	for k := 0; k < ac.stateLen; k++ {
		ac.a.Rows = append(ac.a.Rows, []constraint.Term{
			{Col: uint32(2 + k), Coeff: one},
			{Col: ac.remapInnerWire(uint32(1 + k)), Coeff: minusOne},
		})
		ac.b.Rows = append(ac.b.Rows, []constraint.Term{{Col: 0, Coeff: one}})
		ac.c.Rows = append(ac.c.Rows, nil)
	}

	return ac, nil
}

// remapInnerWire maps an inner wire index to its augmented column: the
// constant wire lands on the relaxation slot, every other wire moves past
// the public IO into the witness region.
func (ac *AugmentedCircuit) remapInnerWire(col uint32) uint32 {
	if col == 0 {
		return 0
	}
	return uint32(ac.lenX) + col
}

// StateLen returns the arity of the step function's public state.
func (ac *AugmentedCircuit) StateLen() int { return ac.stateLen }

// LenX returns the length of the augmented public IO vector.
func (ac *AugmentedCircuit) LenX() int { return ac.lenX }

// NbWitness returns the length of the augmented witness vector.
func (ac *AugmentedCircuit) NbWitness() int { return ac.nbW }

// NbConstraints returns the number of augmented constraints; this is also
// the length of the error vector of a relaxed instance.
func (ac *AugmentedCircuit) NbConstraints() int { return len(ac.a.Rows) }

// Inner returns the wrapped step circuit.
func (ac *AugmentedCircuit) Inner() *circom.Circuit { return ac.inner }

// StepNative evaluates the step function natively: it runs the witness
// oracle for z_i and returns z_{i+1} together with the full inner witness.
func (ac *AugmentedCircuit) StepNative(zi, stepAux []fr.Element) ([]fr.Element, fr.Vector, error) {
	w, err := ac.inner.GenerateWitness(zi, stepAux)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrArithmetization, err)
	}
	return ac.inner.NextState(w), w, nil
}

// Arithmetize produces the step's augmented instance: it generates the inner
// witness for z_i, checks the produced next state against the claimed zi1
// and assembles the augmented public IO with the carried-in accumulator
// digest.
func (ac *AugmentedCircuit) Arithmetize(stepIndex int, zi, zi1 []fr.Element, accDigest fr.Element, stepAux []fr.Element) (*AugmentedInstance, error) {
	if len(zi) != ac.stateLen {
		return nil, fmt.Errorf("%w: state arity mismatch at step %d", ErrArithmetization, stepIndex)
	}
	_, w, err := ac.StepNative(zi, stepAux)
	if err != nil {
		return nil, err
	}
	return ac.arithmetize(stepIndex, zi1, accDigest, w)
}

// arithmetize assembles the augmented instance from an inner witness that
// was already generated, so a caller holding the StepNative output does not
// run the witness oracle a second time.
func (ac *AugmentedCircuit) arithmetize(stepIndex int, zi1 []fr.Element, accDigest fr.Element, w fr.Vector) (*AugmentedInstance, error) {
	if len(zi1) != ac.stateLen {
		return nil, fmt.Errorf("%w: state arity mismatch at step %d", ErrArithmetization, stepIndex)
	}
	next := ac.inner.NextState(w)
	for i := range next {
		if !next[i].Equal(&zi1[i]) {
			return nil, fmt.Errorf("%w: claimed output #%d disagrees with the step function at step %d", ErrArithmetization, i, stepIndex)
		}
	}

	inst := &AugmentedInstance{
		X: make([]fr.Element, ac.lenX),
		W: make(fr.Vector, ac.nbW),
	}
	inst.X[0] = accDigest
	copy(inst.X[1:], zi1)
	copy(inst.W, w[1:])
	return inst, nil
}

// IsSatisfied checks the strict augmented relation for inst.
func (ac *AugmentedCircuit) IsSatisfied(inst *AugmentedInstance) error {
	if len(inst.X) != ac.lenX || len(inst.W) != ac.nbW {
		return fmt.Errorf("nova: instance dimensions do not match the augmented relation")
	}
	one := fr.One()
	z := ac.fullVector(one, inst.X, inst.W)
	e := ac.computeE(z, one)
	for i := range e {
		if !e[i].IsZero() {
			return fmt.Errorf("nova: augmented constraint #%d is not satisfied", i)
		}
	}
	return nil
}
