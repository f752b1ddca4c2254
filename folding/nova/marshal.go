package nova

import (
	"fmt"
	"io"

	"github.com/blang/semver/v4"
	curve "github.com/consensys/gnark-crypto/ecc/bn254"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	curve2 "github.com/consensys/gnark-crypto/ecc/grumpkin"
	"github.com/fxamacker/cbor/v2"

	grapefold "github.com/grapevine-zk/grapefold"
	"github.com/grapevine-zk/grapefold/cycle"
)

// Proofs serialize to a self-describing envelope so a verifier can detect a
// library or curve-cycle mismatch before touching the payload.

const (
	kindIVCProof     = "nova.ivc-proof"
	kindDeciderProof = "nova.decider-proof"
)

type envelope struct {
	Version string
	Cycle   string
	Kind    string
	Body    []byte
}

var cborEnc = func() cbor.EncMode {
	em, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic(err)
	}
	return em
}()

type committedInstanceWire struct {
	ComE []byte
	ComW []byte
	U    []byte
	X    [][]byte
}

type ivcProofWire struct {
	StepCount uint64
	Z0        [][]byte
	ZN        [][]byte
	Running   committedInstanceWire
	Incoming  committedInstanceWire
	CfCom     []byte
}

type deciderProofWire struct {
	StepCount uint64
	Z0        [][]byte
	Running   committedInstanceWire
	Incoming  committedInstanceWire
	ComT      []byte
	UTilde    []byte
	XTilde    [][]byte
	ComWTilde []byte
	ComETilde []byte
	ComTTilde []byte
	UC        []byte
	XC        [][]byte
	WC        [][]byte
}

// WriteTo serializes the proof to w as a versioned envelope with a
// deterministic CBOR body.
func (p *IVCProof) WriteTo(w io.Writer) (int64, error) {
	wire := ivcProofWire{
		StepCount: p.StepCount,
		Z0:        scalarsToWire(p.Z0),
		ZN:        scalarsToWire(p.ZN),
		Running:   instanceToWire(&p.Running),
		Incoming:  instanceToWire(&p.Incoming),
		CfCom:     secondaryPointToWire(&p.CfCom),
	}
	return writeEnvelope(w, kindIVCProof, wire)
}

// ReadFrom deserializes the proof from r. The receiver is only mutated on
// success; version or cycle mismatches are reported before the payload is
// decoded.
func (p *IVCProof) ReadFrom(r io.Reader) (int64, error) {
	var wire ivcProofWire
	n, err := readEnvelope(r, kindIVCProof, &wire)
	if err != nil {
		return n, err
	}

	var res IVCProof
	res.StepCount = wire.StepCount
	if res.Z0, err = scalarsFromWire(wire.Z0); err != nil {
		return n, err
	}
	if res.ZN, err = scalarsFromWire(wire.ZN); err != nil {
		return n, err
	}
	if err = instanceFromWire(&wire.Running, &res.Running); err != nil {
		return n, err
	}
	if err = instanceFromWire(&wire.Incoming, &res.Incoming); err != nil {
		return n, err
	}
	if err = secondaryPointFromWire(wire.CfCom, &res.CfCom); err != nil {
		return n, err
	}
	*p = res
	return n, nil
}

// WriteTo serializes the proof to w as a versioned envelope with a
// deterministic CBOR body.
func (p *DeciderProof) WriteTo(w io.Writer) (int64, error) {
	wire := deciderProofWire{
		StepCount: p.StepCount,
		Z0:        scalarsToWire(p.Z0),
		Running:   instanceToWire(&p.Running),
		Incoming:  instanceToWire(&p.Incoming),
		ComT:      pointToWire(&p.ComT),
		UTilde:    scalarToWire(p.UTilde),
		XTilde:    scalarsToWire(p.XTilde),
		ComWTilde: pointToWire(&p.ComWTilde),
		ComETilde: pointToWire(&p.ComETilde),
		ComTTilde: pointToWire(&p.ComTTilde),
		UC:        scalarToWire(p.UC),
		XC:        scalarsToWire(p.XC),
		WC:        scalarsToWire(p.WC),
	}
	return writeEnvelope(w, kindDeciderProof, wire)
}

// ReadFrom deserializes the proof from r. The receiver is only mutated on
// success.
func (p *DeciderProof) ReadFrom(r io.Reader) (int64, error) {
	var wire deciderProofWire
	n, err := readEnvelope(r, kindDeciderProof, &wire)
	if err != nil {
		return n, err
	}

	var res DeciderProof
	res.StepCount = wire.StepCount
	if res.Z0, err = scalarsFromWire(wire.Z0); err != nil {
		return n, err
	}
	if err = instanceFromWire(&wire.Running, &res.Running); err != nil {
		return n, err
	}
	if err = instanceFromWire(&wire.Incoming, &res.Incoming); err != nil {
		return n, err
	}
	for _, pt := range []struct {
		src []byte
		dst *curve.G1Affine
	}{
		{wire.ComT, &res.ComT},
		{wire.ComWTilde, &res.ComWTilde},
		{wire.ComETilde, &res.ComETilde},
		{wire.ComTTilde, &res.ComTTilde},
	} {
		if err = pointFromWire(pt.src, pt.dst); err != nil {
			return n, err
		}
	}
	if err = scalarFromWire(wire.UTilde, &res.UTilde); err != nil {
		return n, err
	}
	if res.XTilde, err = scalarsFromWire(wire.XTilde); err != nil {
		return n, err
	}
	if err = scalarFromWire(wire.UC, &res.UC); err != nil {
		return n, err
	}
	if res.XC, err = scalarsFromWire(wire.XC); err != nil {
		return n, err
	}
	var wc []fr.Element
	if wc, err = scalarsFromWire(wire.WC); err != nil {
		return n, err
	}
	res.WC = wc
	*p = res
	return n, nil
}

func writeEnvelope(w io.Writer, kind string, wire any) (int64, error) {
	body, err := cborEnc.Marshal(wire)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrSerialization, err)
	}
	env := envelope{
		Version: grapefold.Version.String(),
		Cycle:   cycle.BN254Grumpkin.String(),
		Kind:    kind,
		Body:    body,
	}
	data, err := cborEnc.Marshal(env)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrSerialization, err)
	}
	n, err := w.Write(data)
	return int64(n), err
}

func readEnvelope(r io.Reader, kind string, wire any) (int64, error) {
	data, err := io.ReadAll(r)
	n := int64(len(data))
	if err != nil {
		return n, err
	}
	var env envelope
	if err := cbor.Unmarshal(data, &env); err != nil {
		return n, fmt.Errorf("%w: %v", ErrSerialization, err)
	}
	objectVersion, err := semver.Parse(env.Version)
	if err != nil {
		return n, fmt.Errorf("%w: version %q: %v", ErrSerialization, env.Version, err)
	}
	if objectVersion.Major != grapefold.Version.Major || objectVersion.Minor != grapefold.Version.Minor {
		return n, fmt.Errorf("%w: object version %s, library version %s", ErrVersionMismatch, objectVersion, grapefold.Version)
	}
	if cycle.IDFromString(env.Cycle) != cycle.BN254Grumpkin {
		return n, fmt.Errorf("%w: object cycle %q", ErrVersionMismatch, env.Cycle)
	}
	if env.Kind != kind {
		return n, fmt.Errorf("%w: object kind %q, expected %q", ErrSerialization, env.Kind, kind)
	}
	if err := cbor.Unmarshal(env.Body, wire); err != nil {
		return n, fmt.Errorf("%w: %v", ErrSerialization, err)
	}
	return n, nil
}

func instanceToWire(ci *CommittedInstance) committedInstanceWire {
	return committedInstanceWire{
		ComE: pointToWire(&ci.ComE),
		ComW: pointToWire(&ci.ComW),
		U:    scalarToWire(ci.U),
		X:    scalarsToWire(ci.X),
	}
}

func instanceFromWire(wire *committedInstanceWire, res *CommittedInstance) error {
	if err := pointFromWire(wire.ComE, &res.ComE); err != nil {
		return err
	}
	if err := pointFromWire(wire.ComW, &res.ComW); err != nil {
		return err
	}
	if err := scalarFromWire(wire.U, &res.U); err != nil {
		return err
	}
	var err error
	res.X, err = scalarsFromWire(wire.X)
	return err
}

func scalarToWire(e fr.Element) []byte {
	b := e.Bytes()
	return b[:]
}

func scalarFromWire(b []byte, res *fr.Element) error {
	if err := res.SetBytesCanonical(b); err != nil {
		return fmt.Errorf("%w: %v", ErrSerialization, err)
	}
	return nil
}

func scalarsToWire(scalars []fr.Element) [][]byte {
	res := make([][]byte, len(scalars))
	for i := range scalars {
		res[i] = scalarToWire(scalars[i])
	}
	return res
}

func scalarsFromWire(wire [][]byte) ([]fr.Element, error) {
	res := make([]fr.Element, len(wire))
	for i := range wire {
		if err := scalarFromWire(wire[i], &res[i]); err != nil {
			return nil, err
		}
	}
	return res, nil
}

func pointToWire(p *curve.G1Affine) []byte {
	b := p.Bytes()
	return b[:]
}

func pointFromWire(b []byte, res *curve.G1Affine) error {
	if len(b) != curve.SizeOfG1AffineCompressed {
		return fmt.Errorf("%w: invalid point encoding length %d", ErrSerialization, len(b))
	}
	if _, err := res.SetBytes(b); err != nil {
		return fmt.Errorf("%w: %v", ErrSerialization, err)
	}
	return nil
}

func secondaryPointToWire(p *curve2.G1Affine) []byte {
	b := p.Bytes()
	return b[:]
}

func secondaryPointFromWire(b []byte, res *curve2.G1Affine) error {
	if len(b) != curve2.SizeOfG1AffineCompressed {
		return fmt.Errorf("%w: invalid point encoding length %d", ErrSerialization, len(b))
	}
	if _, err := res.SetBytes(b); err != nil {
		return fmt.Errorf("%w: %v", ErrSerialization, err)
	}
	return nil
}
