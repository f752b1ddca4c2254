package nova

import (
	curve "github.com/consensys/gnark-crypto/ecc/bn254"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	curve2 "github.com/consensys/gnark-crypto/ecc/grumpkin"
)

// IVCProof is the public outcome of a completed IVC session. It is
// verifiable without witnesses and produced once per session by Finalize.
type IVCProof struct {
	StepCount uint64
	Z0        []fr.Element
	ZN        []fr.Element

	// Running is the accumulator after folding all but the last step.
	Running CommittedInstance
	// Incoming is the last step's strict instance, not yet folded; its
	// public IO binds the accumulator digest and the final state.
	Incoming CommittedInstance
	// CfCom is the secondary-curve commitment to the coordinates of the
	// primary commitments above.
	CfCom curve2.G1Affine
}

// DeciderProof is the final proof emitted by Decide. Its size and
// verification cost are bounded by the relation's dimensions and do not
// grow with the number of steps.
type DeciderProof struct {
	StepCount uint64
	Z0        []fr.Element

	Running  CommittedInstance
	Incoming CommittedInstance
	// ComT is the cross-term commitment of the final fold of Incoming into
	// Running.
	ComT curve.G1Affine

	// random-instance commitments and its plaintext public part
	UTilde    fr.Element
	XTilde    []fr.Element
	ComWTilde curve.G1Affine
	ComETilde curve.G1Affine
	ComTTilde curve.G1Affine

	// the revealed folded assignment
	UC fr.Element
	XC []fr.Element
	WC fr.Vector
}
