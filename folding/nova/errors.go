package nova

import "errors"

var (
	// ErrArithmetization is returned when witness generation for the inner
	// step circuit fails or disagrees with the claimed next state.
	ErrArithmetization = errors.New("nova: step arithmetization failed")

	// ErrSequence is returned when a step is invoked out of order. The
	// session state is left untouched; the caller may re-issue the correct
	// next step.
	ErrSequence = errors.New("nova: step index out of sequence")

	// ErrDeciderCompile is returned when the accumulated relation is
	// unsatisfiable. This indicates a corrupted fold; the session is
	// poisoned and its accumulator must be discarded.
	ErrDeciderCompile = errors.New("nova: accumulated relation is unsatisfiable")

	// ErrSerialization is returned on malformed serialized input.
	ErrSerialization = errors.New("nova: malformed serialized object")

	// ErrVersionMismatch is returned before any payload decoding when a
	// serialized object was produced by an incompatible library version or
	// a different curve cycle.
	ErrVersionMismatch = errors.New("nova: version or curve cycle mismatch")

	errSessionPoisoned = errors.New("nova: session is poisoned; discard the accumulator")
)
