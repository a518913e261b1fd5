// Package engine implements the generic RFC 3095 IR/FO/SO state
// machine of spec §4.1: transition decisions, packet-format and
// extension selection, and the encoding pipeline, which computes header
// CRCs (spec §4.3) with package crc. It drives any profile.Profile implementation (IP-only,
// UDP) without knowing which one it is talking to; the Uncompressed
// profile's own degenerate machine (spec §4.4) is dispatched separately
// since it never goes through profile.Profile at all.
package engine

import (
	"github.com/rohc-go/compressor/internal/rohc/context"
	"github.com/rohc-go/compressor/internal/rohc/crc"
	"github.com/rohc-go/compressor/internal/rohc/header"
	"github.com/rohc-go/compressor/internal/rohc/packet"
	"github.com/rohc-go/compressor/internal/rohc/profile"
)

// Config bundles the generic engine's tunables (spec §6.1
// set_wlsb_window_width, set_periodic_refreshes).
type Config struct {
	OARepetitions uint32 // typ. 3 (spec §4.1.1)
	IRTimeout     uint32 // typ. 1700 (spec §6.1 default)
	FOTimeout     uint32 // typ. 700 (spec §6.1 default)
}

// DefaultConfig returns spec §6.1's documented defaults.
func DefaultConfig() Config {
	return Config{OARepetitions: 3, IRTimeout: 1700, FOTimeout: 700}
}

// Engine drives one profile.Profile's state machine. It holds no
// per-flow state itself — all of that lives in the context.Context and
// profile.State the caller passes in — so one Engine value can drive
// every flow using a given profile (spec §5: context table is the only
// mutable per-flow state).
type Engine struct {
	cfg   Config
	crcs  *crc.Tables
	mode  packet.CIDMode
}

func New(cfg Config, crcs *crc.Tables, mode packet.CIDMode) *Engine {
	if crcs == nil {
		crcs = crc.Default()
	}
	return &Engine{cfg: cfg, crcs: crcs, mode: mode}
}

// Result is what Encode reports back to the caller for LastPacketInfo
// bookkeeping (SPEC_FULL §C.1), separate from the raw written length.
type Result struct {
	Type     packet.Type
	Ext      packet.Extension
	Written  int
	NewPhase context.Phase
}

// Encode runs one full compress call for a profile-backed context: it
// detects changes, decides the new phase, picks a packet format and
// extension, assembles the packet into out, and — only on success —
// commits the change to st, ctx's counters, and ctx.Phase (spec
// §4.1.5: "context is updated atomically ... only after a complete
// successful emit").
func (e *Engine) Encode(p profile.Profile, st profile.State, ctx *context.Context, pkt *header.Packet, out []byte) (Result, error) {
	candidateSN := ctx.NumSentPackets // profiles here generate SN by increment, spec §4.5
	change := p.DetectChanges(st, pkt, candidateSN)

	newPhase := e.decidePhase(ctx, change)
	format, ext := e.decideFormat(newPhase, change)

	buf := packet.NewBuffer(out, ctx.CID)
	if err := packet.EncodeCID(buf, e.mode, ctx.CID); err != nil {
		return Result{}, err
	}

	switch format {
	case packet.TypeIR:
		if err := e.codeIR(p, st, ctx, pkt, change, buf, true); err != nil {
			return Result{}, err
		}
	case packet.TypeIRDYN:
		if err := e.codeIRDYN(p, st, ctx, pkt, change, buf); err != nil {
			return Result{}, err
		}
	case packet.TypeUOR2:
		if err := e.codeUOR2(p, st, ctx, pkt, change, ext, buf); err != nil {
			return Result{}, err
		}
	case packet.TypeUO1:
		if err := e.codeUO1(p, st, ctx, pkt, change, buf); err != nil {
			return Result{}, err
		}
	default:
		if err := e.codeUO0(p, st, ctx, pkt, change, buf); err != nil {
			return Result{}, err
		}
	}

	// Success: commit atomically (spec §4.1.5).
	p.Commit(st, pkt, change)
	e.advanceCounters(ctx, newPhase, format)
	ctx.Phase = newPhase
	ctx.NumSentPackets++

	return Result{Type: format, Ext: ext, Written: buf.Len(), NewPhase: newPhase}, nil
}

// decidePhase implements spec §4.1.1's transition rules 1-4.
func (e *Engine) decidePhase(ctx *context.Context, change profile.ChangeSet) context.Phase {
	if change.StaticChanged || change.ForceIR {
		return context.IR
	}
	if change.DynamicFieldsChanged || change.SNEscalate || change.IPIDOuterEscalate || change.IPIDInnerEscalate {
		if ctx.Phase == context.SO {
			return context.FO
		}
		return ctx.Phase
	}

	switch ctx.Phase {
	case context.IR:
		if ctx.NumSentInCurrentState+1 >= e.cfg.OARepetitions {
			return context.FO
		}
		return context.IR
	case context.FO:
		if ctx.NumSentInCurrentState+1 >= e.cfg.OARepetitions {
			return context.SO
		}
		return context.FO
	default: // SO
		if e.cfg.FOTimeout > 0 && (ctx.SentSincePeriodicFO+1)%e.cfg.FOTimeout == 0 {
			return context.FO
		}
		if e.cfg.IRTimeout > 0 && (ctx.SentSincePeriodicIR+1)%e.cfg.IRTimeout == 0 {
			return context.IR
		}
		return context.SO
	}
}

// decideFormat implements spec §4.1.2/§4.1.3: smallest packet format
// and, for UOR-2, lowest-numbered extension whose bit budget covers
// the change set.
func (e *Engine) decideFormat(phase context.Phase, change profile.ChangeSet) (packet.Type, packet.Extension) {
	if phase == context.IR {
		return packet.TypeIR, packet.ExtNone
	}

	needsFullDynamic := change.DynamicFieldsChanged || change.SendDynamicExtra
	if needsFullDynamic {
		// Dynamic chain resend: UOR-2 with EXT-3 can in principle carry
		// flagged dynamic fields, but this engine keeps the pipeline
		// simple and unambiguous by always using IR-DYN for a full
		// dynamic resend, matching spec §4.1.2's "IR-DYN ... used when
		// change set exceeds what UOR-2+EXT-3 can express" for the
		// common case of an outright dynamic-field change (as opposed
		// to a mere IP-ID/SN escalation, handled below).
		return packet.TypeIRDYN, packet.ExtNone
	}

	// UO-0/UO-1 require the IP-ID to be fully inferable from SN (offset
	// zero), not merely the absence of IP-ID tracking — a steady
	// incrementing IPv4 ID (HasOuterIPID==true, IPIDOuterK==0) is
	// exactly the common case these formats exist for.
	ipIDInferable := (!change.HasOuterIPID || change.IPIDOuterK == 0) &&
		(!change.HasInnerIPID || change.IPIDInnerK == 0)

	if phase == context.SO && !change.SNEscalate && !change.IPIDOuterEscalate && !change.IPIDInnerEscalate &&
		change.SNK <= 4 && ipIDInferable {
		return packet.TypeUO0, packet.ExtNone
	}

	if !change.SNEscalate && change.SNK <= 5 && !change.IPIDOuterEscalate && !change.IPIDInnerEscalate &&
		ipIDInferable {
		return packet.TypeUO1, packet.ExtNone
	}

	if change.SNEscalate || change.IPIDOuterEscalate || change.IPIDInnerEscalate {
		return packet.TypeIRDYN, packet.ExtNone
	}

	return packet.TypeUOR2, e.decideExtension(change)
}

// decideExtension implements spec §4.1.3's extension bit budgets.
func (e *Engine) decideExtension(change profile.ChangeSet) packet.Extension {
	switch {
	case change.SNK <= 8 && !change.HasOuterIPID && !change.HasInnerIPID:
		return packet.Ext0
	case change.SNK <= 8 && change.HasOuterIPID && change.IPIDOuterK <= 8 && !change.HasInnerIPID:
		return packet.Ext1
	case change.SNK <= 8 && change.HasOuterIPID && change.IPIDOuterK <= 8 && change.HasInnerIPID && change.IPIDInnerK <= 8:
		return packet.Ext2
	default:
		return packet.Ext3
	}
}

func (e *Engine) advanceCounters(ctx *context.Context, newPhase context.Phase, format packet.Type) {
	if newPhase != ctx.Phase {
		ctx.NumSentInCurrentState = 0
	} else {
		ctx.NumSentInCurrentState++
	}
	if format == packet.TypeIR {
		ctx.SentSincePeriodicIR = 0
	} else {
		ctx.SentSincePeriodicIR++
	}
	if newPhase == context.FO && ctx.Phase != context.FO {
		ctx.SentSincePeriodicFO = 0
	} else {
		ctx.SentSincePeriodicFO++
	}
}

func (e *Engine) codeIR(p profile.Profile, st profile.State, ctx *context.Context, pkt *header.Packet, change profile.ChangeSet, buf *packet.Buffer, withDynamic bool) error {
	if err := buf.WriteByte(packet.IRDiscriminator(withDynamic)); err != nil {
		return err
	}
	if err := buf.WriteByte(profileIDByte(p.ID())); err != nil {
		return err
	}
	staticBytes := p.StaticBytes(st, pkt)
	if err := buf.Write(staticBytes); err != nil {
		return err
	}
	if withDynamic {
		dynBytes := p.DynamicBytes(st, pkt, change)
		if err := buf.Write(dynBytes); err != nil {
			return err
		}
	}
	crcOffset := buf.Len()
	if err := buf.WriteByte(0); err != nil {
		return err
	}
	if err := p.CodeIRRemainder(st, pkt, buf); err != nil {
		return err
	}
	crcVal := e.crcs.CRC8.Compute(buf.Bytes()[:crcOffset])
	buf.PatchByte(crcOffset, crcVal)
	return nil
}

func (e *Engine) codeIRDYN(p profile.Profile, st profile.State, ctx *context.Context, pkt *header.Packet, change profile.ChangeSet, buf *packet.Buffer) error {
	if err := buf.WriteByte(packet.DiscIRDYN); err != nil {
		return err
	}
	if err := buf.WriteByte(profileIDByte(p.ID())); err != nil {
		return err
	}
	dynBytes := p.DynamicBytes(st, pkt, change)
	if err := buf.Write(dynBytes); err != nil {
		return err
	}
	crcOffset := buf.Len()
	if err := buf.WriteByte(0); err != nil {
		return err
	}
	crcVal := e.crcs.CRC8.Compute(buf.Bytes()[:crcOffset])
	buf.PatchByte(crcOffset, crcVal)
	return nil
}

func (e *Engine) codeUO0(p profile.Profile, st profile.State, ctx *context.Context, pkt *header.Packet, change profile.ChangeSet, buf *packet.Buffer) error {
	staticBytes := cachedStaticBytes(p, st, pkt)
	crc3 := e.crcs.CRC3.Compute(staticBytes)
	snLSB := lsb(change.SN, 4)
	if err := buf.WriteByte(packet.UO0(snLSB, crc3)); err != nil {
		return err
	}
	return p.CodeUORemainder(st, change, packet.ExtNone, buf)
}

func (e *Engine) codeUO1(p profile.Profile, st profile.State, ctx *context.Context, pkt *header.Packet, change profile.ChangeSet, buf *packet.Buffer) error {
	staticBytes := cachedStaticBytes(p, st, pkt)
	crc5 := e.crcs.CRC5.Compute(staticBytes)
	snLSB := lsb(change.SN, 5)
	pair := packet.UO1(snLSB, crc5)
	if err := buf.Write(pair[:]); err != nil {
		return err
	}
	return p.CodeUORemainder(st, change, packet.ExtNone, buf)
}

func (e *Engine) codeUOR2(p profile.Profile, st profile.State, ctx *context.Context, pkt *header.Packet, change profile.ChangeSet, ext packet.Extension, buf *packet.Buffer) error {
	dynBytes := p.DynamicBytes(st, pkt, change)
	crc7 := e.crcs.CRC7.Compute(dynBytes)
	snLSB := lsb(change.SN, 5)
	pair := packet.UOR2(snLSB, ext != packet.ExtNone, crc7)
	if err := buf.Write(pair[:]); err != nil {
		return err
	}
	if err := writeExtension(buf, ext, pkt, change); err != nil {
		return err
	}
	return p.CodeUORemainder(st, change, ext, buf)
}

// writeExtension appends a UOR-2 extension's octets (spec §4.1.3:
// EXT-0 "+3 bits of SN", EXT-1 "+SN, +IP-ID bits", EXT-2 "+SN, +outer
// IP-ID, +inner IP-ID", EXT-3 flexible flags). EXT-1/EXT-2 carry the
// IP-ID's actual low-order bits, not the W-LSB width decideExtension
// used to pick the extension — that width only bounds whether the
// value fits in one octet.
func writeExtension(buf *packet.Buffer, ext packet.Extension, pkt *header.Packet, change profile.ChangeSet) error {
	switch ext {
	case packet.ExtNone:
		return nil
	case packet.Ext0:
		return buf.WriteByte(byte(lsb(change.SN, 8)))
	case packet.Ext1:
		if err := buf.WriteByte(byte(lsb(change.SN, 8))); err != nil {
			return err
		}
		return buf.WriteByte(byte(lsb(uint32(pkt.Outer.ID), 8)))
	case packet.Ext2:
		if err := buf.WriteByte(byte(lsb(change.SN, 8))); err != nil {
			return err
		}
		if err := buf.WriteByte(byte(lsb(uint32(pkt.Outer.ID), 8))); err != nil {
			return err
		}
		innerID := uint16(0)
		if pkt.Inner != nil {
			innerID = pkt.Inner.ID
		}
		return buf.WriteByte(byte(lsb(uint32(innerID), 8)))
	default: // Ext3
		flags := byte(0)
		if change.HasOuterIPID {
			flags |= 0x01
		}
		if change.HasInnerIPID {
			flags |= 0x02
		}
		if change.SendDynamicExtra {
			flags |= 0x04
		}
		if err := buf.WriteByte(flags); err != nil {
			return err
		}
		return buf.WriteByte(byte(lsb(change.SN, 8)))
	}
}

// cachedStaticBytes serializes the static chain for CRC-STATIC. Spec
// §4.3 calls for caching this across packets when static fields don't
// change; since UO-0/UO-1 are only reachable when StaticChanged is
// false (decidePhase routes any static change to IR), pkt's static
// fields already equal the committed ones every time this is actually
// called on this path, so no separate cache field is needed on top of
// profile.State.
func cachedStaticBytes(p profile.Profile, st profile.State, pkt *header.Packet) []byte {
	return p.StaticBytes(st, pkt)
}

func lsb(v uint32, k uint) uint32 {
	return v & ((1 << k) - 1)
}

// profileIDByte returns the RFC 3095 §8 registered profile identifier
// (the LSB octet actually carried on the wire): 0x04 for IP-only, 0x02
// for UDP, 0x00 for Uncompressed.
func profileIDByte(id profile.ID) byte {
	switch id {
	case profile.IPOnly:
		return 0x04
	case profile.UDP:
		return 0x02
	default:
		return 0x00
	}
}

