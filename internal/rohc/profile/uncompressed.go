package profile

import (
	"github.com/rohc-go/compressor/internal/rohc/crc"
	"github.com/rohc-go/compressor/internal/rohc/header"
	"github.com/rohc-go/compressor/internal/rohc/packet"
	"github.com/rohc-go/compressor/internal/rohcerr"
)

// UncompressedState is the Uncompressed profile's sub-state (spec §3:
// "ir_count, normal_count, go_back_ir_count").
type UncompressedState struct {
	IRCount       int
	NormalCount   int
	GoBackIRCount int
	InFO          bool
}

func (*UncompressedState) isProfileState() {}

// UncompressedPhase is the Uncompressed profile's own two-state
// machine (spec §4.4: "States: {IR, FO}. No SO."). It deliberately
// does not reuse context.Phase: the generic engine's IR/FO/SO
// machinery (W-LSB windows, change sets, extensions) has no meaning
// here, matching the teacher's pattern of a degenerate, independent
// per-profile implementation rather than bending one state type to
// fit every profile.
type UncompressedPhase int

const (
	UncompressedIR UncompressedPhase = iota
	UncompressedFO
)

// MaxIRCount is the number of IR sends before the Uncompressed profile
// is trusted to switch to Normal packets (spec §4.4, "MAX_IR_COUNT").
const MaxIRCount = 3

// ProfileIDUncompressedByte is the wire profile identifier (spec §6.2
// IR packet: "ProfileID" field) for profile 0.
const ProfileIDUncompressedByte = 0x00

const ircDiscriminator = 0xFC

// UncompressedProfile implements the degenerate Uncompressed codec of
// spec §4.4. It is driven directly by pkg/rohc's Compressor rather than through
// the generic Profile interface: Uncompressed never establishes a
// static/dynamic chain, so DetectChanges/StaticBytes/CRC-over-fields
// have no referent for it (spec §2: listed as its own line item,
// separate from "Generic RFC 3095 engine").
type UncompressedProfile struct {
	crc8 *crc.Table
}

func NewUncompressedProfile(crc8 *crc.Table) *UncompressedProfile {
	return &UncompressedProfile{crc8: crc8}
}

func (p *UncompressedProfile) ID() ID { return Uncompressed }

// InitPhase returns the initial per-context state: IR phase, zeroed
// counters.
func (p *UncompressedProfile) InitPhase() (*UncompressedState, UncompressedPhase) {
	return &UncompressedState{}, UncompressedIR
}

// DecidePhase applies spec §4.4's transition rules and returns the
// phase to use for *this* packet, given the phase used for the
// previous one.
func (p *UncompressedProfile) DecidePhase(st *UncompressedState, phase UncompressedPhase, irTimeout int) UncompressedPhase {
	if phase == UncompressedIR {
		if st.IRCount >= MaxIRCount {
			return UncompressedFO
		}
		return UncompressedIR
	}
	// FO -> IR periodic refresh.
	if irTimeout > 0 && st.NormalCount > 0 && st.NormalCount%irTimeout == 0 {
		return UncompressedIR
	}
	return UncompressedFO
}

// EncodeIR writes an IR packet: add-CID, the 0xFC discriminator, the
// profile byte, and a CRC-8 placeholder patched once the header bytes
// are known (spec §4.4). It returns the offset in out at which the
// caller must append the untouched original IP packet as payload.
func (p *UncompressedProfile) EncodeIR(mode packet.CIDMode, cid uint16, out []byte) (payloadOffset int, err error) {
	buf := packet.NewBuffer(out, cid)
	if err := packet.EncodeCID(buf, mode, cid); err != nil {
		return 0, err
	}
	discOffset := buf.Len()
	if err := buf.WriteByte(ircDiscriminator); err != nil {
		return 0, err
	}
	if err := buf.WriteByte(ProfileIDUncompressedByte); err != nil {
		return 0, err
	}
	crcOffset := buf.Len()
	if err := buf.WriteByte(0); err != nil {
		return 0, err
	}
	crcVal := p.crc8.Compute(buf.Bytes()[discOffset:crcOffset])
	buf.PatchByte(crcOffset, crcVal)
	return buf.Len(), nil
}

// EncodeNormal writes a Normal packet: add-CID, then the first byte of
// the original IP packet reused as the discriminator (spec §4.4). The
// caller must start payload copying at ipBytes[1:].
func (p *UncompressedProfile) EncodeNormal(mode packet.CIDMode, cid uint16, ipFirstByte byte, out []byte) (payloadOffset int, err error) {
	buf := packet.NewBuffer(out, cid)
	if err := packet.EncodeCID(buf, mode, cid); err != nil {
		return 0, err
	}
	if err := buf.WriteByte(ipFirstByte); err != nil {
		return 0, err
	}
	return buf.Len(), nil
}

// ValidateUncompressedPayload returns an error if pkt is too short to
// carry even the discriminator byte Normal packets reuse.
func ValidateUncompressedPayload(pkt *header.Packet, raw []byte) error {
	if len(raw) < 1 {
		return rohcerr.NewUnsupported(0, "packet too short for Uncompressed profile")
	}
	_ = pkt
	return nil
}
