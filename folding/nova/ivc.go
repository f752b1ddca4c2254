package nova

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	curve "github.com/consensys/gnark-crypto/ecc/bn254"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	curve2 "github.com/consensys/gnark-crypto/ecc/grumpkin"
	fr2 "github.com/consensys/gnark-crypto/ecc/grumpkin/fr"
	"github.com/rs/zerolog"

	"github.com/grapevine-zk/grapefold/commitment/pedersen"
	"github.com/grapevine-zk/grapefold/cycle"
	"github.com/grapevine-zk/grapefold/logger"
)

// nbSecondaryScalars is the number of primary base-field coordinates the
// secondary-curve commitment carries: (x, y) for ComE, ComW and the pending
// incoming ComW.
const nbSecondaryScalars = 6

// ProverParams carries everything a prover needs to run IVC sessions.
type ProverParams struct {
	Cycle *cycle.Params
}

// VerifierParams carries the augmented relation template and the cycle
// parameters; they are all a verifier needs.
type VerifierParams struct {
	Cycle   *cycle.Params
	Circuit *AugmentedCircuit
}

// Setup derives prover and verifier parameters for the augmented relation,
// sizing the commitment keys from the relation's dimensions. It is
// deterministic given identical randomness.
func Setup(rng io.Reader, ac *AugmentedCircuit) (*ProverParams, *VerifierParams, error) {
	nbScalars := ac.NbWitness()
	if n := ac.NbConstraints(); n > nbScalars {
		nbScalars = n
	}
	cy, err := cycle.Setup(rng, nbScalars, nbSecondaryScalars)
	if err != nil {
		return nil, nil, err
	}
	return &ProverParams{Cycle: cy}, &VerifierParams{Cycle: cy, Circuit: ac}, nil
}

// Session drives one IVC computation. The running accumulator is owned
// exclusively by the session and mutated only under its lock: concurrent
// Step calls are serialized (single-writer discipline). Independent
// sessions are fully independent.
type Session struct {
	mu sync.Mutex

	params  *ProverParams
	circuit *AugmentedCircuit

	z0, zi    []fr.Element
	stepIndex int

	running  *RunningInstance
	incoming *incomingInstance // the last step's instance, not yet folded

	poisoned bool
	log      zerolog.Logger
}

// NewSession creates an IVC session with the canonical zero accumulator and
// the given initial public state z_0.
func NewSession(params *ProverParams, circuit *AugmentedCircuit, z0 []fr.Element) (*Session, error) {
	if params == nil || params.Cycle == nil {
		return nil, errors.New("nova: nil prover parameters")
	}
	if len(z0) != circuit.StateLen() {
		return nil, fmt.Errorf("nova: initial state has %d elements, the step function takes %d", len(z0), circuit.StateLen())
	}
	s := &Session{
		params:  params,
		circuit: circuit,
		z0:      append([]fr.Element(nil), z0...),
		zi:      append([]fr.Element(nil), z0...),
		running: circuit.zeroRunning(),
		log: logger.Logger().With().
			Str("cycle", params.Cycle.ID.String()).
			Str("scheme", "nova").Logger(),
	}
	return s, nil
}

// StepCount returns the number of steps folded so far.
func (s *Session) StepCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stepIndex
}

// State returns a copy of the current public state z_i.
func (s *Session) State() []fr.Element {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]fr.Element(nil), s.zi...)
}

// Step performs one fold. stepIndex must follow the strict sequence
// 0, 1, 2, ...; anything else is rejected with ErrSequence and leaves the
// session untouched. On success the running accumulator is replaced and the
// public state advances to z_{i+1}.
func (s *Session) Step(stepIndex int, stepAux []fr.Element) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.poisoned {
		return errSessionPoisoned
	}
	if stepIndex != s.stepIndex {
		return fmt.Errorf("%w: got %d, expected %d", ErrSequence, stepIndex, s.stepIndex)
	}
	start := time.Now()

	zNext, w, err := s.circuit.StepNative(s.zi, stepAux)
	if err != nil {
		return err
	}

	// fold the pending incoming instance before attesting the new step, so
	// the new instance's digest binds the post-fold accumulator
	running := s.running
	if s.incoming != nil {
		running, _, err = s.circuit.fold(s.params.Cycle.Primary, s.running, s.incoming)
		if err != nil {
			if errors.Is(err, pedersen.ErrCommitmentMismatch) {
				s.poisoned = true
			}
			return err
		}
	}

	digest := stateDigest(uint64(s.stepIndex+1), s.z0, zNext, &running.CommittedInstance)
	inst, err := s.circuit.arithmetize(s.stepIndex, zNext, digest, w)
	if err != nil {
		return err
	}
	comW, err := s.params.Cycle.Primary.Commit(inst.W, fr.Element{})
	if err != nil {
		return fmt.Errorf("nova: commit step witness: %w", err)
	}

	s.running = running
	s.incoming = &incomingInstance{AugmentedInstance: *inst, ComW: comW}
	s.zi = zNext
	s.stepIndex++

	s.log.Debug().Int("step", stepIndex).Dur("took", time.Since(start)).Msg("folded step")
	return nil
}

// Finalize assembles the public IVC proof from the current accumulator and
// step count. The accumulator stays available for the decider.
func (s *Session) Finalize() (*IVCProof, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.poisoned {
		return nil, errSessionPoisoned
	}

	incoming := s.circuit.zeroCommitted()
	if s.incoming != nil {
		incoming = s.incoming.committed()
	}
	cf, err := cfCommit(s.params.Cycle.Secondary, &s.running.CommittedInstance, &incoming)
	if err != nil {
		return nil, err
	}

	proof := &IVCProof{
		StepCount: uint64(s.stepIndex),
		Z0:        append([]fr.Element(nil), s.z0...),
		ZN:        append([]fr.Element(nil), s.zi...),
		Running:   copyCommitted(&s.running.CommittedInstance),
		Incoming:  incoming,
		CfCom:     cf,
	}
	return proof, nil
}

// VerifyIVC checks the folding consistency of an IVC proof purely from
// public commitments: the digest binding of the last incoming instance, the
// state binding and the secondary-curve commitment over the accumulator's
// primary commitments. It is a lightweight check; full soundness requires
// the decider. Malformed input yields false, never a panic.
func VerifyIVC(vp *VerifierParams, proof *IVCProof) (bool, error) {
	if vp == nil || vp.Cycle == nil || vp.Circuit == nil {
		return false, errors.New("nova: nil verifier parameters")
	}
	if proof == nil {
		return false, fmt.Errorf("%w: nil proof", ErrSerialization)
	}
	ac := vp.Circuit
	if len(proof.Z0) != ac.StateLen() || len(proof.ZN) != ac.StateLen() ||
		len(proof.Running.X) != ac.LenX() || len(proof.Incoming.X) != ac.LenX() {
		return false, fmt.Errorf("proof dimensions do not match the relation")
	}
	for _, p := range []*curve.G1Affine{&proof.Running.ComE, &proof.Running.ComW, &proof.Incoming.ComW} {
		if !p.IsInSubGroup() {
			return false, fmt.Errorf("commitment is not a valid group element")
		}
	}

	cf, err := cfCommit(vp.Cycle.Secondary, &proof.Running, &proof.Incoming)
	if err != nil {
		return false, err
	}
	if !cf.Equal(&proof.CfCom) {
		return false, fmt.Errorf("curve-cycle commitment does not match the accumulator")
	}

	if proof.StepCount == 0 {
		if !instanceIsZero(&proof.Running) || !instanceIsZero(&proof.Incoming) {
			return false, fmt.Errorf("zero-step proof carries a non-zero accumulator")
		}
		for i := range proof.Z0 {
			if !proof.ZN[i].Equal(&proof.Z0[i]) {
				return false, fmt.Errorf("zero-step proof changes the public state")
			}
		}
		return true, nil
	}

	if !proof.Incoming.U.IsOne() || !proof.Incoming.ComE.IsInfinity() {
		return false, fmt.Errorf("incoming instance is not strict")
	}
	digest := stateDigest(proof.StepCount, proof.Z0, proof.ZN, &proof.Running)
	if !proof.Incoming.X[0].Equal(&digest) {
		return false, fmt.Errorf("accumulator digest binding does not hold")
	}
	for i := 0; i < ac.StateLen(); i++ {
		if !proof.Incoming.X[1+i].Equal(&proof.ZN[i]) {
			return false, fmt.Errorf("final state binding does not hold")
		}
	}
	return true, nil
}

func instanceIsZero(ci *CommittedInstance) bool {
	if !ci.ComE.IsInfinity() || !ci.ComW.IsInfinity() || !ci.U.IsZero() {
		return false
	}
	for i := range ci.X {
		if !ci.X[i].IsZero() {
			return false
		}
	}
	return true
}

func copyCommitted(ci *CommittedInstance) CommittedInstance {
	res := *ci
	res.X = append([]fr.Element(nil), ci.X...)
	return res
}

// cfCommit commits, on the secondary curve, to the coordinates of the
// accumulator's primary-curve commitments. The coordinates live in the
// primary base field, which is the secondary scalar field, so no non-native
// arithmetic is involved.
func cfCommit(key *pedersen.SecondaryKey, running, incoming *CommittedInstance) (curve2.G1Affine, error) {
	scalars := make([]fr2.Element, 0, nbSecondaryScalars)
	for _, p := range []*curve.G1Affine{&running.ComE, &running.ComW, &incoming.ComW} {
		for _, coord := range [][fr2.Bytes]byte{p.X.Bytes(), p.Y.Bytes()} {
			var s fr2.Element
			s.SetBytes(coord[:])
			scalars = append(scalars, s)
		}
	}
	return key.Commit(scalars, fr2.Element{})
}
