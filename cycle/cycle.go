// Package cycle models the cryptographic parameters of a two-curve cycle:
// a pair of curves where each curve's scalar field is the other's base
// field, so a commitment computed on one curve can be checked natively on
// the other without non-native field emulation.
//
// Parameters are explicit values passed into every component at
// construction time; there is no ambient global state, which keeps
// independent IVC sessions testable and parallelizable.
package cycle

import (
	"fmt"
	"io"

	"github.com/grapevine-zk/grapefold/commitment/pedersen"
)

// ID identifies a supported 2-cycle of elliptic curves.
type ID uint16

const (
	UNKNOWN ID = iota
	// BN254Grumpkin is the bn254/grumpkin cycle: the scalar field of bn254
	// is the base field of grumpkin and vice versa.
	BN254Grumpkin
)

func (id ID) String() string {
	switch id {
	case BN254Grumpkin:
		return "bn254_grumpkin"
	default:
		return "unknown"
	}
}

// IDFromString is the inverse of ID.String.
func IDFromString(s string) ID {
	if s == BN254Grumpkin.String() {
		return BN254Grumpkin
	}
	return UNKNOWN
}

// Params carries the commitment keys on both curves of the cycle.
type Params struct {
	ID        ID
	Primary   *pedersen.Key
	Secondary *pedersen.SecondaryKey
}

// Setup derives cycle parameters from rng. nbScalars sizes the primary-curve
// key (long enough for witness and error vectors); nbSecondary sizes the
// secondary-curve key (long enough for the primary commitment coordinates it
// carries). Setup is deterministic given identical randomness.
func Setup(rng io.Reader, nbScalars, nbSecondary int) (*Params, error) {
	primary, err := pedersen.NewKey(rng, nbScalars)
	if err != nil {
		return nil, fmt.Errorf("cycle: primary key: %w", err)
	}
	secondary, err := pedersen.NewSecondaryKey(rng, nbSecondary)
	if err != nil {
		return nil, fmt.Errorf("cycle: secondary key: %w", err)
	}
	return &Params{
		ID:        BN254Grumpkin,
		Primary:   primary,
		Secondary: secondary,
	}, nil
}
