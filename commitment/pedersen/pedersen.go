// Package pedersen implements Pedersen vector commitments on both curves of
// the supported 2-cycle.
//
// The commitment is binding under the discrete logarithm assumption on the
// underlying group; hiding is optional (a zero blinding scalar yields a
// deterministic commitment).
package pedersen

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc"
	curve "github.com/consensys/gnark-crypto/ecc/bn254"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
)

// ErrCommitmentMismatch is returned by Open when the vector and blinding do
// not reproduce the commitment. A mismatch is fatal to the enclosing fold.
var ErrCommitmentMismatch = errors.New("pedersen: commitment does not open to the given vector")

const seedSize = 32

// Key holds the commitment basis on the primary curve.
type Key struct {
	Basis []curve.G1Affine
	H     curve.G1Affine // blinding generator
}

// NewKey derives a commitment key for vectors of up to nbScalars elements.
// The basis is expanded deterministically from a seed read off rng, so two
// keys built from the same randomness are identical.
func NewKey(rng io.Reader, nbScalars int) (*Key, error) {
	if nbScalars <= 0 {
		return nil, fmt.Errorf("pedersen: invalid key size %d", nbScalars)
	}
	var seed [seedSize]byte
	if _, err := io.ReadFull(rng, seed[:]); err != nil {
		return nil, fmt.Errorf("pedersen: read key seed: %w", err)
	}

	k := &Key{Basis: make([]curve.G1Affine, nbScalars)}
	for i := range k.Basis {
		if err := derivePoint(seed[:], "basis", uint64(i), &k.Basis[i]); err != nil {
			return nil, err
		}
	}
	if err := derivePoint(seed[:], "blinding", 0, &k.H); err != nil {
		return nil, err
	}
	return k, nil
}

// NbScalars returns the maximum vector length the key can commit to.
func (k *Key) NbScalars() int {
	return len(k.Basis)
}

// Commit commits to the vector v with the given blinding scalar.
func (k *Key) Commit(v []fr.Element, blinding fr.Element) (curve.G1Affine, error) {
	var com curve.G1Affine
	if len(v) > len(k.Basis) {
		return com, fmt.Errorf("pedersen: vector of %d elements exceeds key size %d", len(v), len(k.Basis))
	}
	if _, err := com.MultiExp(k.Basis[:len(v)], v, ecc.MultiExpConfig{}); err != nil {
		return com, fmt.Errorf("pedersen: %w", err)
	}
	if !blinding.IsZero() {
		var b big.Int
		var hr curve.G1Affine
		hr.ScalarMultiplication(&k.H, blinding.BigInt(&b))
		com.Add(&com, &hr)
	}
	return com, nil
}

// Open checks that com is a commitment to v under the given blinding scalar.
func (k *Key) Open(com *curve.G1Affine, v []fr.Element, blinding fr.Element) error {
	expected, err := k.Commit(v, blinding)
	if err != nil {
		return err
	}
	if !expected.Equal(com) {
		return ErrCommitmentMismatch
	}
	return nil
}

// derivePoint hashes (seed, tag, index) to the curve. Nobody learns the
// discrete logarithms of the basis, the setup transcript included, so the
// binding assumption holds against the key generator itself.
func derivePoint(seed []byte, tag string, index uint64, res *curve.G1Affine) error {
	msg := make([]byte, 0, len(seed)+len(tag)+8)
	msg = append(msg, seed...)
	msg = append(msg, tag...)
	msg = binary.BigEndian.AppendUint64(msg, index)
	p, err := curve.HashToG1(msg, []byte("grapefold-pedersen-bn254-v1"))
	if err != nil {
		return fmt.Errorf("pedersen: derive basis point: %w", err)
	}
	*res = p
	return nil
}
