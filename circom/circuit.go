package circom

import (
	"fmt"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"

	"github.com/grapevine-zk/grapefold/constraint"
)

// Calculator is the fixed capability interface a witness-generation oracle
// must satisfy. Any circuit compiler producing a full assignment vector in
// circom wire order, [1, public outputs, public inputs, private], is
// interchangeable behind it.
type Calculator interface {
	// WireCounts reports the dimensions of the assignment the oracle
	// produces.
	WireCounts() (nbWires, nbPubOut, nbPubIn, nbPriv int)
	// Evaluate computes the full assignment vector for one step given the
	// step's public input and private auxiliary values.
	Evaluate(public, private []fr.Element) ([]fr.Element, error)
}

// Circuit ties a compiled constraint system to its witness oracle. It is
// read-only after construction and shared across all steps of a session.
type Circuit struct {
	cs       *constraint.R1CS
	calc     Calculator
	stateLen int
}

// NewCircuit checks that the artifact and the oracle agree on wire counts
// and that the relation has the fixed step arity the folding scheme
// requires (as many public outputs as public inputs).
func NewCircuit(cs *constraint.R1CS, calc Calculator) (*Circuit, error) {
	if err := cs.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCircuitLoad, err)
	}
	nbWires, nbPubOut, nbPubIn, nbPriv := calc.WireCounts()
	if nbWires != cs.NbWires || nbPubOut != cs.NbPubOut || nbPubIn != cs.NbPubIn || nbPriv != cs.NbPriv {
		return nil, fmt.Errorf("%w: witness oracle reports wires (%d,%d,%d,%d), artifact has (%d,%d,%d,%d)",
			ErrCircuitLoad,
			nbWires, nbPubOut, nbPubIn, nbPriv,
			cs.NbWires, cs.NbPubOut, cs.NbPubIn, cs.NbPriv)
	}
	if cs.NbPubOut != cs.NbPubIn || cs.NbPubOut == 0 {
		return nil, fmt.Errorf("%w: step relation must map %d public inputs to as many outputs", ErrCircuitLoad, cs.NbPubIn)
	}
	return &Circuit{cs: cs, calc: calc, stateLen: cs.NbPubOut}, nil
}

// Compile returns the immutable R1CS relation template of one step.
func (c *Circuit) Compile() *constraint.R1CS {
	return c.cs
}

// StateLen returns the arity of the step function's public state.
func (c *Circuit) StateLen() int {
	return c.stateLen
}

// GenerateWitness runs the witness oracle for one step and checks the
// returned assignment against the relation. The witness is transient; it is
// never persisted.
func (c *Circuit) GenerateWitness(stepInput, stepAux []fr.Element) (fr.Vector, error) {
	if len(stepInput) != c.stateLen {
		return nil, fmt.Errorf("circom: step input has %d elements, expected %d", len(stepInput), c.stateLen)
	}
	w, err := c.calc.Evaluate(stepInput, stepAux)
	if err != nil {
		return nil, fmt.Errorf("circom: witness oracle: %w", err)
	}
	if len(w) != c.cs.NbWires {
		return nil, fmt.Errorf("circom: witness oracle returned %d wires, expected %d", len(w), c.cs.NbWires)
	}
	if !w[0].IsOne() {
		return nil, fmt.Errorf("circom: witness does not start with the constant one")
	}
	for i := 0; i < c.stateLen; i++ {
		if !w[1+c.stateLen+i].Equal(&stepInput[i]) {
			return nil, fmt.Errorf("circom: witness public input #%d disagrees with the step input", i)
		}
	}
	if err := c.cs.IsSatisfied(w); err != nil {
		return nil, fmt.Errorf("circom: %w", err)
	}
	return w, nil
}

// NextState extracts the step's public output z_{i+1} from a full witness.
func (c *Circuit) NextState(w fr.Vector) []fr.Element {
	next := make([]fr.Element, c.stateLen)
	copy(next, w[1:1+c.stateLen])
	return next
}
