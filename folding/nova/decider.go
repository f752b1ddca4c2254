package nova

import (
	"errors"
	"fmt"
	"io"
	"math/big"
	"time"

	curve "github.com/consensys/gnark-crypto/ecc/bn254"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	fiatshamir "github.com/consensys/gnark-crypto/fiat-shamir"

	"github.com/grapevine-zk/grapefold/fieldutils"
)

// Decide compiles the session's accumulator into a final proof. The pending
// incoming instance is folded in, the relaxed relation is checked natively
// (an unsatisfiable accumulator poisons the session; resuming from it
// would be unsound), then a random satisfiable instance is folded in at a
// Fiat–Shamir challenge and only the folded witness is revealed. The cost
// depends on the relation's size, not on the number of steps.
func (s *Session) Decide(rng io.Reader) (*DeciderProof, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.poisoned {
		return nil, errSessionPoisoned
	}
	start := time.Now()
	ac := s.circuit
	key := s.params.Cycle.Primary

	final := s.running
	var comT curve.G1Affine
	incoming := ac.zeroCommitted()
	if s.incoming != nil {
		var err error
		final, comT, err = ac.fold(key, s.running, s.incoming)
		if err != nil {
			return nil, err
		}
		incoming = s.incoming.committed()
	}

	// the committed vectors must open the accumulator commitments and
	// satisfy the relaxed relation before anything is proven about them
	if err := key.Open(&final.ComW, final.W, final.RW); err != nil {
		s.poisoned = true
		return nil, fmt.Errorf("accumulated witness: %w", err)
	}
	if err := key.Open(&final.ComE, final.E, final.RE); err != nil {
		s.poisoned = true
		return nil, fmt.Errorf("accumulated error term: %w", err)
	}
	zV := ac.fullVector(final.U, final.X, final.W)
	eV := ac.computeE(zV, final.U)
	for i := range eV {
		if !eV[i].Equal(&final.E[i]) {
			s.poisoned = true
			return nil, fmt.Errorf("%w: constraint #%d", ErrDeciderCompile, i)
		}
	}

	// sample a random relaxed instance; it is satisfiable by construction,
	// its error vector is simply defined from its assignment
	uT, err := fieldutils.RandomElement(rng)
	if err != nil {
		return nil, err
	}
	xT := make([]fr.Element, ac.LenX())
	for i := range xT {
		if xT[i], err = fieldutils.RandomElement(rng); err != nil {
			return nil, err
		}
	}
	wT := make(fr.Vector, ac.NbWitness())
	for i := range wT {
		if wT[i], err = fieldutils.RandomElement(rng); err != nil {
			return nil, err
		}
	}
	zT := ac.fullVector(uT, xT, wT)
	eT := ac.computeE(zT, uT)
	tT := ac.crossTerm(zT, zV, uT, final.U)

	comWT, err := key.Commit(wT, fr.Element{})
	if err != nil {
		return nil, err
	}
	comET, err := key.Commit(eT, fr.Element{})
	if err != nil {
		return nil, err
	}
	comTT, err := key.Commit(tT, fr.Element{})
	if err != nil {
		return nil, err
	}

	c, err := deciderChallenge(&final.CommittedInstance, uT, xT, &comWT, &comET, &comTT)
	if err != nil {
		return nil, err
	}

	proof := &DeciderProof{
		StepCount: uint64(s.stepIndex),
		Z0:        append([]fr.Element(nil), s.z0...),
		Running:   copyCommitted(&s.running.CommittedInstance),
		Incoming:  incoming,
		ComT:      comT,
		UTilde:    uT,
		XTilde:    xT,
		ComWTilde: comWT,
		ComETilde: comET,
		ComTTilde: comTT,
		XC:        make([]fr.Element, ac.LenX()),
		WC:        make(fr.Vector, ac.NbWitness()),
	}
	var tmp fr.Element
	proof.UC.Mul(&c, &final.U)
	proof.UC.Add(&proof.UC, &uT)
	for i := range proof.XC {
		tmp.Mul(&c, &final.X[i])
		proof.XC[i].Add(&xT[i], &tmp)
	}
	for i := range proof.WC {
		tmp.Mul(&c, &final.W[i])
		proof.WC[i].Add(&wT[i], &tmp)
	}

	s.log.Debug().Int("steps", s.stepIndex).Dur("took", time.Since(start)).Msg("compiled decider proof")
	return proof, nil
}

// VerifyDecider verifies a decider proof against the expected public
// output: it replays the last fold from public data, re-derives the
// challenge, recomputes the folded error vector from the revealed
// assignment and checks both commitment equations homomorphically.
// Malformed input yields false, never a panic.
func VerifyDecider(vp *VerifierParams, proof *DeciderProof, publicOutput []fr.Element) (bool, error) {
	if vp == nil || vp.Cycle == nil || vp.Circuit == nil {
		return false, errors.New("nova: nil verifier parameters")
	}
	if proof == nil {
		return false, fmt.Errorf("%w: nil proof", ErrSerialization)
	}
	ac := vp.Circuit
	key := vp.Cycle.Primary
	if len(proof.Z0) != ac.StateLen() || len(publicOutput) != ac.StateLen() ||
		len(proof.Running.X) != ac.LenX() || len(proof.Incoming.X) != ac.LenX() ||
		len(proof.XTilde) != ac.LenX() || len(proof.XC) != ac.LenX() ||
		len(proof.WC) != ac.NbWitness() {
		return false, fmt.Errorf("proof dimensions do not match the relation")
	}

	var final CommittedInstance
	if proof.StepCount == 0 {
		if !instanceIsZero(&proof.Running) || !instanceIsZero(&proof.Incoming) {
			return false, fmt.Errorf("zero-step proof carries a non-zero accumulator")
		}
		for i := range proof.Z0 {
			if !publicOutput[i].Equal(&proof.Z0[i]) {
				return false, fmt.Errorf("zero-step proof changes the public state")
			}
		}
		final = ac.zeroCommitted()
	} else {
		if !proof.Incoming.U.IsOne() || !proof.Incoming.ComE.IsInfinity() {
			return false, fmt.Errorf("incoming instance is not strict")
		}
		digest := stateDigest(proof.StepCount, proof.Z0, publicOutput, &proof.Running)
		if !proof.Incoming.X[0].Equal(&digest) {
			return false, fmt.Errorf("accumulator digest binding does not hold")
		}
		for i := 0; i < ac.StateLen(); i++ {
			if !proof.Incoming.X[1+i].Equal(&publicOutput[i]) {
				return false, fmt.Errorf("final state binding does not hold")
			}
		}
		r, err := foldChallenge(&proof.Running, &proof.Incoming, &proof.ComT)
		if err != nil {
			return false, err
		}
		final = foldCommitted(&proof.Running, &proof.Incoming, &proof.ComT, r)
	}

	c, err := deciderChallenge(&final, proof.UTilde, proof.XTilde, &proof.ComWTilde, &proof.ComETilde, &proof.ComTTilde)
	if err != nil {
		return false, err
	}

	// scalar openings of the folded instance
	var expected, tmp fr.Element
	expected.Mul(&c, &final.U)
	expected.Add(&expected, &proof.UTilde)
	if !proof.UC.Equal(&expected) {
		return false, fmt.Errorf("folded relaxation scalar does not open")
	}
	for i := range proof.XC {
		tmp.Mul(&c, &final.X[i])
		expected.Add(&proof.XTilde[i], &tmp)
		if !proof.XC[i].Equal(&expected) {
			return false, fmt.Errorf("folded public IO does not open")
		}
	}

	var cBig big.Int
	c.BigInt(&cBig)

	// Commit(W_c) must equal ComW̃ + c·ComW
	comWC, err := key.Commit(proof.WC, fr.Element{})
	if err != nil {
		return false, err
	}
	var rhs, scaled curve.G1Affine
	scaled.ScalarMultiplication(&final.ComW, &cBig)
	rhs.Add(&proof.ComWTilde, &scaled)
	if !comWC.Equal(&rhs) {
		return false, fmt.Errorf("witness commitment equation does not hold")
	}

	// Commit(E_c) must equal ComẼ + c·ComT̃ + c²·ComE, with E_c recomputed
	// from the revealed folded assignment
	zC := ac.fullVector(proof.UC, proof.XC, proof.WC)
	eC := ac.computeE(zC, proof.UC)
	comEC, err := key.Commit(eC, fr.Element{})
	if err != nil {
		return false, err
	}
	scaled.ScalarMultiplication(&proof.ComTTilde, &cBig)
	rhs.Add(&proof.ComETilde, &scaled)
	var c2 big.Int
	tmp.Square(&c)
	tmp.BigInt(&c2)
	scaled.ScalarMultiplication(&final.ComE, &c2)
	rhs.Add(&rhs, &scaled)
	if !comEC.Equal(&rhs) {
		return false, fmt.Errorf("error-term commitment equation does not hold")
	}

	return true, nil
}

// deciderChallenge derives the decider's folding challenge over the final
// accumulator and the prover's random-instance commitments.
func deciderChallenge(final *CommittedInstance, uTilde fr.Element, xTilde []fr.Element, comWT, comET, comTT *curve.G1Affine) (fr.Element, error) {
	var c fr.Element
	fs := fiatshamir.NewTranscript(newTranscriptHash(), "c")

	if err := bindInstance(fs, "c", final); err != nil {
		return c, err
	}
	if err := bindScalars(fs, "c", uTilde); err != nil {
		return c, err
	}
	if err := bindScalars(fs, "c", xTilde...); err != nil {
		return c, err
	}
	if err := bindPoints(fs, "c", comWT, comET, comTT); err != nil {
		return c, err
	}

	b, err := fs.ComputeChallenge("c")
	if err != nil {
		return c, fmt.Errorf("nova: derive decider challenge: %w", err)
	}
	c.SetBytes(b)
	return c, nil
}
