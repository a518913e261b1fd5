// Package profile implements the per-profile "polymorphic capability
// set" of spec §3/§9: a Go interface standing in for the C source's
// function-pointer vtable, with one concrete implementation per
// profile (Uncompressed, IP-only, UDP). All state lives in the typed
// State value each implementation owns — the interface itself is
// stateless, per the spec's design note that "the vtable must not hide
// state".
package profile

import (
	"github.com/rohc-go/compressor/internal/rohc/header"
	"github.com/rohc-go/compressor/internal/rohc/packet"
)

// ID identifies a profile, spec §3 profile_id.
type ID string

const (
	Uncompressed ID = "UNCOMPRESSED"
	IPOnly       ID = "IP"
	UDP          ID = "UDP"
)

// State is the marker interface implemented by each profile's
// specific sub-state struct (spec §3 "specific" field; §9 "typed sum
// type ... no runtime casting"). The engine and context table hold a
// State by interface value and never inspect its concrete type except
// through the owning Profile's methods.
type State interface {
	isProfileState()
}

// ChangeSet is what DetectChanges reports: everything the generic
// engine (internal/rohc/engine) needs to pick a state transition and
// packet format, without the engine knowing which profile it's
// driving. It consolidates the spec's decide_state / decide_FO_packet
// / decide_SO_packet / decide_extension vtable entries' shared input.
type ChangeSet struct {
	// StaticChanged forces IR (spec §4.1.1 rule 1) and, for profiles
	// that say so, a fresh CID.
	StaticChanged bool
	NeedsNewCID   bool

	// DynamicFieldsChanged covers header fields with no W-LSB window
	// (TOS/TTL/DF/flags, and per-profile extras) — any change here
	// forces at least FO so the dynamic chain can be resent (spec
	// §4.1.1 rule 2).
	DynamicFieldsChanged bool

	// ForceIR lets a profile demand IR even though nothing above
	// fired — used by UDP's checksum-behaviour tracker (spec §4.6),
	// which must force IR on zero/non-zero flips and for
	// oa_repetitions_nr rounds afterward.
	ForceIR bool

	// SN is the candidate sequence number for this packet (spec
	// §4.1's get_next_sn, folded in here since every profile this
	// package implements generates SN by increment rather than
	// reading an RTP SN).
	SN uint32

	// SNK/SNEscalate: the smallest W-LSB width covering SN, or
	// escalate if none fits within the field width (spec §4.2).
	SNK        uint
	SNEscalate bool

	// Outer/inner IP-ID windows, only meaningful when the
	// corresponding IP header's ID behaves sequentially (RND=false).
	HasOuterIPID        bool
	IPIDOuterK          uint
	IPIDOuterEscalate   bool
	HasInnerIPID        bool
	IPIDInnerK          uint
	IPIDInnerEscalate   bool

	// SendDynamicExtra signals a profile-specific "must appear in the
	// dynamic chain this round" field — currently only the UDP
	// checksum (spec §4.6).
	SendDynamicExtra bool
}

// Profile is the per-profile capability set. Every method is pure
// with respect to State: it reads or returns values but mutates
// nothing until Commit is called, so the engine can compute a full
// ChangeSet and tentative encoding before committing to it — matching
// spec §4.1.5's "context is updated atomically ... only after a
// complete successful emit".
type Profile interface {
	ID() ID

	// InitAtIR builds this profile's fresh sub-state from the first
	// packet of a new flow (spec §3 init_at_IR).
	InitAtIR(pkt *header.Packet, sn uint32) State

	// DetectChanges compares pkt against the sub-state's remembered
	// "old" values and the W-LSB windows, without mutating anything.
	DetectChanges(st State, pkt *header.Packet, candidateSN uint32) ChangeSet

	// StaticBytes serializes the static chain fields for CRC-STATIC
	// and for the IR static chain itself (spec §4.3, §4.1.4 step 3).
	// It reads pkt, not the committed "old" sub-state, so a chain
	// resent because of a just-detected change carries the new values
	// rather than the ones Commit has not yet stored (spec §4.1.5:
	// Commit only runs after a successful emit).
	StaticBytes(st State, pkt *header.Packet) []byte

	// DynamicBytes serializes the dynamic chain fields for
	// CRC-DYNAMIC and for IR/IR-DYN's dynamic chain, likewise from
	// pkt rather than the pre-commit sub-state.
	DynamicBytes(st State, pkt *header.Packet, change ChangeSet) []byte

	// CodeIRRemainder writes the profile's non-static, non-dynamic IR
	// remainder (spec §4.5 code_ir_remainder) — for IP-only/UDP this
	// is empty; kept for interface symmetry with the spec's vtable.
	CodeIRRemainder(st State, pkt *header.Packet, buf *packet.Buffer) error

	// CodeUORemainder writes whatever a UO-family packet needs beyond
	// the generic SN/IP-ID bits the engine already packed — for UDP,
	// the checksum when send_udp_dynamic is unset but the reference
	// checksum is non-zero (spec §4.6).
	CodeUORemainder(st State, change ChangeSet, ext packet.Extension, buf *packet.Buffer) error

	// Commit advances the sub-state after a fully successful emit:
	// rolls the W-LSB windows forward, stores new "old" values, and
	// bumps any profile-specific counters (spec §4.1.5).
	Commit(st State, pkt *header.Packet, change ChangeSet)
}
