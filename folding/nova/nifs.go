package nova

import (
	"fmt"
	"hash"
	"math/big"

	curve "github.com/consensys/gnark-crypto/ecc/bn254"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	fiatshamir "github.com/consensys/gnark-crypto/fiat-shamir"
	"golang.org/x/crypto/blake2b"

	"github.com/grapevine-zk/grapefold/commitment/pedersen"
)

// CommittedInstance is the public part of a relaxed R1CS instance: the
// commitments to the error and witness vectors, the relaxation scalar and
// the public IO. It is all a verifier ever sees.
type CommittedInstance struct {
	ComE curve.G1Affine
	ComW curve.G1Affine
	U    fr.Element
	X    []fr.Element
}

// RunningInstance is the live accumulator of an IVC session: the committed
// instance plus the secret vectors that open it. Exactly one exists per
// session; each fold replaces it wholesale.
type RunningInstance struct {
	CommittedInstance
	W fr.Vector
	E fr.Vector

	// commitment blindings, folded alongside the vectors
	RW fr.Element
	RE fr.Element
}

// incomingInstance is one step's strict instance awaiting its fold:
// relaxation scalar one, zero error vector.
type incomingInstance struct {
	AugmentedInstance
	ComW curve.G1Affine
	RW   fr.Element
}

func (inc *incomingInstance) committed() CommittedInstance {
	ci := CommittedInstance{
		ComW: inc.ComW,
		U:    fr.One(),
		X:    make([]fr.Element, len(inc.X)),
	}
	copy(ci.X, inc.X)
	return ci
}

// zeroRunning returns the canonical zero accumulator: relaxation scalar
// zero, all-zero vectors, commitments at infinity. It trivially satisfies
// the relaxed relation.
func (ac *AugmentedCircuit) zeroRunning() *RunningInstance {
	return &RunningInstance{
		CommittedInstance: ac.zeroCommitted(),
		W:                 make(fr.Vector, ac.nbW),
		E:                 make(fr.Vector, ac.NbConstraints()),
	}
}

func (ac *AugmentedCircuit) zeroCommitted() CommittedInstance {
	return CommittedInstance{X: make([]fr.Element, ac.lenX)}
}

// fullVector assembles the assignment vector [u, X..., W...] of the
// augmented relation.
func (ac *AugmentedCircuit) fullVector(u fr.Element, x []fr.Element, w fr.Vector) []fr.Element {
	z := make([]fr.Element, ac.nbCols)
	z[0] = u
	copy(z[1:], x)
	copy(z[1+ac.lenX:], w)
	return z
}

// computeE evaluates the relaxed error vector Az ∘ Bz − u·Cz.
func (ac *AugmentedCircuit) computeE(z []fr.Element, u fr.Element) fr.Vector {
	n := ac.NbConstraints()
	az := make([]fr.Element, n)
	bz := make([]fr.Element, n)
	cz := make([]fr.Element, n)
	ac.a.Mul(az, z)
	ac.b.Mul(bz, z)
	ac.c.Mul(cz, z)

	e := make(fr.Vector, n)
	var t fr.Element
	for i := 0; i < n; i++ {
		e[i].Mul(&az[i], &bz[i])
		t.Mul(&u, &cz[i])
		e[i].Sub(&e[i], &t)
	}
	return e
}

// crossTerm computes T = Az₁∘Bz₂ + Az₂∘Bz₁ − u₁·Cz₂ − u₂·Cz₁, the bilinear
// residue of folding two relaxed instances.
func (ac *AugmentedCircuit) crossTerm(z1, z2 []fr.Element, u1, u2 fr.Element) fr.Vector {
	n := ac.NbConstraints()
	az1 := make([]fr.Element, n)
	bz1 := make([]fr.Element, n)
	cz1 := make([]fr.Element, n)
	az2 := make([]fr.Element, n)
	bz2 := make([]fr.Element, n)
	cz2 := make([]fr.Element, n)
	ac.a.Mul(az1, z1)
	ac.b.Mul(bz1, z1)
	ac.c.Mul(cz1, z1)
	ac.a.Mul(az2, z2)
	ac.b.Mul(bz2, z2)
	ac.c.Mul(cz2, z2)

	t := make(fr.Vector, n)
	var tmp fr.Element
	for i := 0; i < n; i++ {
		t[i].Mul(&az1[i], &bz2[i])
		tmp.Mul(&az2[i], &bz1[i])
		t[i].Add(&t[i], &tmp)
		tmp.Mul(&u1, &cz2[i])
		t[i].Sub(&t[i], &tmp)
		tmp.Mul(&u2, &cz1[i])
		t[i].Sub(&t[i], &tmp)
	}
	return t
}

// fold performs one NIFS fold: it commits to the cross term, derives the
// folding challenge from the transcript and linearly combines the incoming
// strict instance into the accumulator. The same challenge value weights
// every combined term of the fold.
func (ac *AugmentedCircuit) fold(key *pedersen.Key, acc *RunningInstance, inc *incomingInstance) (*RunningInstance, curve.G1Affine, error) {
	one := fr.One()
	z1 := ac.fullVector(acc.U, acc.X, acc.W)
	z2 := ac.fullVector(one, inc.X, inc.W)
	t := ac.crossTerm(z1, z2, acc.U, one)

	var comT curve.G1Affine
	comT, err := key.Commit(t, fr.Element{})
	if err != nil {
		return nil, comT, fmt.Errorf("nova: commit cross term: %w", err)
	}

	incCommitted := inc.committed()
	r, err := foldChallenge(&acc.CommittedInstance, &incCommitted, &comT)
	if err != nil {
		return nil, comT, err
	}

	res := &RunningInstance{
		CommittedInstance: foldCommitted(&acc.CommittedInstance, &incCommitted, &comT, r),
		W:                 make(fr.Vector, len(acc.W)),
		E:                 make(fr.Vector, len(acc.E)),
	}
	var tmp fr.Element
	for i := range res.W {
		tmp.Mul(&r, &inc.W[i])
		res.W[i].Add(&acc.W[i], &tmp)
	}
	for i := range res.E {
		tmp.Mul(&r, &t[i])
		res.E[i].Add(&acc.E[i], &tmp)
	}
	res.RW.Mul(&r, &inc.RW)
	res.RW.Add(&res.RW, &acc.RW)
	res.RE = acc.RE

	return res, comT, nil
}

// foldCommitted folds the public parts only: this is all a verifier needs
// to replay a fold.
func foldCommitted(acc, inc *CommittedInstance, comT *curve.G1Affine, r fr.Element) CommittedInstance {
	var res CommittedInstance
	var rBig big.Int
	r.BigInt(&rBig)

	var scaled curve.G1Affine
	scaled.ScalarMultiplication(comT, &rBig)
	res.ComE.Add(&acc.ComE, &scaled)
	scaled.ScalarMultiplication(&inc.ComW, &rBig)
	res.ComW.Add(&acc.ComW, &scaled)

	res.U.Add(&acc.U, &r)

	res.X = make([]fr.Element, len(acc.X))
	var tmp fr.Element
	for i := range res.X {
		tmp.Mul(&r, &inc.X[i])
		res.X[i].Add(&acc.X[i], &tmp)
	}
	return res
}

// foldChallenge derives the folding challenge by Fiat–Shamir over the
// accumulator's commitments, the incoming instance and the cross-term
// commitment. A fresh transcript is used for every fold.
func foldChallenge(acc, inc *CommittedInstance, comT *curve.G1Affine) (fr.Element, error) {
	var r fr.Element
	fs := fiatshamir.NewTranscript(newTranscriptHash(), "r")

	if err := bindInstance(fs, "r", acc); err != nil {
		return r, err
	}
	if err := bindInstance(fs, "r", inc); err != nil {
		return r, err
	}
	if err := bindPoints(fs, "r", comT); err != nil {
		return r, err
	}

	b, err := fs.ComputeChallenge("r")
	if err != nil {
		return r, fmt.Errorf("nova: derive folding challenge: %w", err)
	}
	r.SetBytes(b)
	return r, nil
}

func bindInstance(fs *fiatshamir.Transcript, challenge string, ci *CommittedInstance) error {
	if err := bindPoints(fs, challenge, &ci.ComE, &ci.ComW); err != nil {
		return err
	}
	if err := bindScalars(fs, challenge, ci.U); err != nil {
		return err
	}
	return bindScalars(fs, challenge, ci.X...)
}

func bindPoints(fs *fiatshamir.Transcript, challenge string, points ...*curve.G1Affine) error {
	var buf [curve.SizeOfG1AffineUncompressed]byte
	for _, p := range points {
		buf = p.RawBytes()
		if err := fs.Bind(challenge, buf[:]); err != nil {
			return err
		}
	}
	return nil
}

func bindScalars(fs *fiatshamir.Transcript, challenge string, scalars ...fr.Element) error {
	for _, s := range scalars {
		b := s.Bytes()
		if err := fs.Bind(challenge, b[:]); err != nil {
			return err
		}
	}
	return nil
}

func newTranscriptHash() hash.Hash {
	h, err := blake2b.New256(nil)
	if err != nil {
		panic(err) // blake2b.New256 only fails with a bad key
	}
	return h
}
