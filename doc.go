// Package grapefold bridges Circom-compiled arithmetic circuits to a
// Nova-style folding scheme over a two-curve cycle, producing an
// Incrementally Verifiable Computation (IVC) over a sequence of identical
// step computations and a final proof via a decider.
//
// The heavy lifting lives in sub-packages:
//   - circom: loads compiled circuit artifacts and witness oracles
//   - constraint: sparse R1CS representation and satisfaction checks
//   - commitment/pedersen: vector commitments on both curves of the cycle
//   - cycle: explicit cryptographic parameters for a curve cycle
//   - folding/nova: the folding driver, step-circuit wrapper and decider
package grapefold

import (
	"github.com/blang/semver/v4"

	"github.com/grapevine-zk/grapefold/cycle"
)

// Version of the library; embedded in every serialized proof envelope.
var Version = semver.MustParse("0.1.0")

// Cycles returns the curve cycles supported by grapefold.
func Cycles() []cycle.ID {
	return []cycle.ID{
		cycle.BN254Grumpkin,
	}
}
