package nova

import (
	"hash"

	curve "github.com/consensys/gnark-crypto/ecc/bn254"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr/mimc"
)

// stateDigest binds an IVC state to its accumulator: H(i, z_0, z_i, U).
// The digest is carried as the first public input of every incoming
// instance, so the verifier can recompute it from public data alone.
func stateDigest(stepCount uint64, z0, zi []fr.Element, acc *CommittedInstance) fr.Element {
	h := mimc.NewMiMC()

	var step fr.Element
	step.SetUint64(stepCount)
	writeScalars(h, step)
	writeScalars(h, z0...)
	writeScalars(h, zi...)

	writePoint(h, &acc.ComE)
	writePoint(h, &acc.ComW)
	writeScalars(h, acc.U)
	writeScalars(h, acc.X...)

	var d fr.Element
	d.SetBytes(h.Sum(nil))
	return d
}

func writeScalars(h hash.Hash, scalars ...fr.Element) {
	for _, s := range scalars {
		b := s.Bytes()
		h.Write(b[:])
	}
}

// writePoint absorbs a primary-curve point coordinate-wise. Base-field
// coordinates may exceed the scalar-field modulus, so each one is split
// into two 16-byte limbs which always fit.
func writePoint(h hash.Hash, p *curve.G1Affine) {
	for _, coord := range [][fr.Bytes]byte{p.X.Bytes(), p.Y.Bytes()} {
		var limb fr.Element
		limb.SetBytes(coord[:fr.Bytes/2])
		writeScalars(h, limb)
		limb.SetBytes(coord[fr.Bytes/2:])
		writeScalars(h, limb)
	}
}
