// Package context implements the per-flow Context (spec §3) and the
// compressor-wide ContextTable that owns, looks up, and evicts them
// (spec §4.7).
package context

import (
	"github.com/rohc-go/compressor/internal/rohc/packet"
	"github.com/rohc-go/compressor/internal/rohc/profile"
)

// Phase is the generic engine's IR/FO/SO automaton (spec §4.1.1).
// Named Phase rather than State to avoid colliding with
// profile.State, the unrelated per-profile sub-state marker.
type Phase int

const (
	IR Phase = iota
	FO
	SO
)

func (ph Phase) String() string {
	switch ph {
	case IR:
		return "IR"
	case FO:
		return "FO"
	case SO:
		return "SO"
	default:
		return "?"
	}
}

// Mode is the RFC 3095 operating mode (spec §3). Only U-mode has a
// fully specified transition table here (spec §4.1.1); O/R exist so
// FEEDBACK-2's mode-change request (spec §4.7) has somewhere to land.
type Mode int

const (
	ModeU Mode = iota
	ModeO
	ModeR
)

// PacketInfo is the snapshot spec §6.1's last_packet_info and SPEC_FULL
// §C.1 describe: metadata about the most recent successful Compress
// call on one context.
type PacketInfo struct {
	Valid          bool
	PacketType     packet.Type
	ContextID      uint16
	ProfileID      profile.ID
	Phase          Phase
	NumSentPackets uint32
	SNWindowSize   int
}

// Context is one flow's compressor state (spec §3). It is exclusively
// owned by a ContextTable; callers only ever see it through the
// public pkg/rohc API, never retaining a reference across Compress
// calls (spec §3 "Ownership").
type Context struct {
	CID       uint16
	ProfileID profile.ID
	Mode      Mode

	// Generic engine fields (meaningless for Uncompressed, which keeps
	// its own phase/counters inline in UncompressedSt/UncompressedPh below).
	Phase                 Phase
	NumSentPackets        uint32
	NumSentInCurrentState uint32
	SentSincePeriodicIR   uint32
	SentSincePeriodicFO   uint32

	LastUsedTick uint64
	TraceID      string

	Specific       profile.State
	UncompressedSt *profile.UncompressedState
	UncompressedPh profile.UncompressedPhase

	LastPacket PacketInfo
}

// ResetToIR forces the context back to its initial state without
// deallocating its CID (SPEC_FULL §C.2 ResetContext, distinct from
// ContextTable's LRU eviction which does free the CID slot).
func (c *Context) ResetToIR(specific profile.State) {
	c.Phase = IR
	c.NumSentInCurrentState = 0
	c.SentSincePeriodicIR = 0
	c.SentSincePeriodicFO = 0
	c.Specific = specific
	if c.UncompressedSt != nil {
		c.UncompressedSt = &profile.UncompressedState{}
		c.UncompressedPh = profile.UncompressedIR
	}
	c.LastPacket = PacketInfo{}
}
