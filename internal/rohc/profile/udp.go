package profile

import (
	"encoding/binary"

	"github.com/rohc-go/compressor/internal/rohc/header"
	"github.com/rohc-go/compressor/internal/rohc/packet"
)

// UDPProfile implements the UDP profile of spec §4.6: IP-only plus
// static UDP ports and dynamic UDP checksum handling, including the
// checksum zero/non-zero behaviour tracker.
type UDPProfile struct {
	windowWidth   int
	oaRepetitions uint32
}

func NewUDPProfile(windowWidth int, oaRepetitions uint32) *UDPProfile {
	if windowWidth <= 0 {
		windowWidth = WindowWidth
	}
	if oaRepetitions == 0 {
		oaRepetitions = 3
	}
	return &UDPProfile{windowWidth: windowWidth, oaRepetitions: oaRepetitions}
}

func (p *UDPProfile) ID() ID { return UDP }

func (p *UDPProfile) InitAtIR(pkt *header.Packet, sn uint32) State {
	gs := newGenericState(pkt, sn, p.windowWidth)
	if pkt.UDP != nil {
		gs.UDP = &udpState{
			SrcPort:     pkt.UDP.SrcPort,
			DstPort:     pkt.UDP.DstPort,
			OldChecksum: pkt.UDP.Checksum,
		}
	}
	return gs
}

func (p *UDPProfile) DetectChanges(stIface State, pkt *header.Packet, candidateSN uint32) ChangeSet {
	st := stIface.(*GenericState)
	cs := ipOnlyDetect(st, pkt, candidateSN)

	if pkt.UDP == nil || st.UDP == nil {
		return cs
	}
	if pkt.UDP.SrcPort != st.UDP.SrcPort || pkt.UDP.DstPort != st.UDP.DstPort {
		cs.StaticChanged = true
	}

	// spec §4.6: the checksum zero<->non-zero flip, verbatim
	// including the source's "must-send conflated with did-change"
	// semantics (spec §9 open question: preserved on purpose). The
	// flip itself and the oa_repetitions_nr packets that follow it are
	// all forced to IR (spec §8 scenario 2: "the flip triggers IR;
	// next oa_repetitions_nr packets are IR; then UO-0 resumes") —
	// ForceIR tracks the whole repeat window, not just the flip.
	flipped := (pkt.UDP.Checksum != 0 && st.UDP.OldChecksum == 0) ||
		(pkt.UDP.Checksum == 0 && st.UDP.OldChecksum != 0)
	if flipped || st.UDP.ChecksumChangeCount < p.oaRepetitions {
		cs.SendDynamicExtra = true
		cs.ForceIR = true
	}
	return cs
}

// ipOnlyDetect is IPOnlyProfile.DetectChanges's body, factored out so
// UDP can reuse the IP-level change detection without an IPOnlyProfile
// instance (the two profiles share the generic sub-state but are
// otherwise independent per spec §2's component table).
func ipOnlyDetect(st *GenericState, pkt *header.Packet, candidateSN uint32) ChangeSet {
	outer := pkt.Outer
	cs := ChangeSet{SN: candidateSN}
	cs.StaticChanged = ipStaticChanged(&st.OuterIP, &outer)
	cs.DynamicFieldsChanged = ipDynamicChanged(&st.OuterIP, &outer)

	if k, ok := st.SNWindow.MinKFor(candidateSN, FieldWidth); ok {
		cs.SNK = k
	} else {
		cs.SNEscalate = true
	}
	if !outer.RND {
		cs.HasOuterIPID = true
		if k, ok := st.OuterIPIDWindow.MinKFor(uint32(outer.ID), FieldWidth); ok {
			cs.IPIDOuterK = k
		} else {
			cs.IPIDOuterEscalate = true
		}
	}
	return cs
}

func (p *UDPProfile) StaticBytes(stIface State, pkt *header.Packet) []byte {
	st := stIface.(*GenericState)
	out := encodeIPStatic(nil, &pkt.Outer)
	if st.UDP != nil && pkt.UDP != nil {
		var ports [4]byte
		binary.BigEndian.PutUint16(ports[0:2], pkt.UDP.SrcPort)
		binary.BigEndian.PutUint16(ports[2:4], pkt.UDP.DstPort)
		out = append(out, ports[:]...)
	}
	return out
}

func (p *UDPProfile) DynamicBytes(stIface State, pkt *header.Packet, change ChangeSet) []byte {
	st := stIface.(*GenericState)
	out := encodeIPDynamic(nil, &pkt.Outer)
	if st.UDP != nil && pkt.UDP != nil && change.SendDynamicExtra {
		var chk [2]byte
		binary.BigEndian.PutUint16(chk[:], pkt.UDP.Checksum)
		out = append(out, chk[:]...)
	}
	return out
}

func (p *UDPProfile) CodeIRRemainder(State, *header.Packet, *packet.Buffer) error {
	return nil
}

// CodeUORemainder appends the UDP checksum to a UO-family packet when
// it isn't already in the dynamic chain but the reference checksum is
// non-zero (spec §4.6: "UO remainder carries the UDP checksum iff the
// reference checksum is non-zero").
func (p *UDPProfile) CodeUORemainder(stIface State, change ChangeSet, _ packet.Extension, buf *packet.Buffer) error {
	st, ok := stIface.(*GenericState)
	if !ok || st.UDP == nil {
		return nil
	}
	if change.SendDynamicExtra {
		return nil // already in the dynamic chain this round
	}
	if st.UDP.OldChecksum == 0 {
		return nil
	}
	var chk [2]byte
	binary.BigEndian.PutUint16(chk[:], st.UDP.OldChecksum)
	return buf.Write(chk[:])
}

func (p *UDPProfile) Commit(stIface State, pkt *header.Packet, change ChangeSet) {
	st := stIface.(*GenericState)
	st.SN = change.SN
	st.SNWindow.Add(change.SN, change.SN)
	st.OuterIP = pkt.Outer
	if !pkt.Outer.RND {
		st.OuterIPIDWindow.Add(change.SN, uint32(pkt.Outer.ID))
	}
	if pkt.UDP != nil && st.UDP != nil {
		flipped := (pkt.UDP.Checksum != 0 && st.UDP.OldChecksum == 0) ||
			(pkt.UDP.Checksum == 0 && st.UDP.OldChecksum != 0)
		if flipped {
			st.UDP.ChecksumChangeCount = 0
		} else if change.SendDynamicExtra {
			st.UDP.ChecksumChangeCount++
		}
		st.UDP.SrcPort = pkt.UDP.SrcPort
		st.UDP.DstPort = pkt.UDP.DstPort
		st.UDP.OldChecksum = pkt.UDP.Checksum
	}
}
