package profile

import (
	"github.com/rohc-go/compressor/internal/rohc/header"
	"github.com/rohc-go/compressor/internal/rohc/packet"
	"github.com/rohc-go/compressor/internal/rohc/wlsb"
)

// FieldWidth is the bit width of the SN/IP-ID LSB fields as tracked by
// the generic engine (spec §4.2 "k <= field_width").
const FieldWidth = 16

// IPOnlyProfile implements the IP-only profile of spec §4.5: the full
// generic engine, SN generated by the compressor, no transport header.
type IPOnlyProfile struct {
	windowWidth int
}

func NewIPOnlyProfile(windowWidth int) *IPOnlyProfile {
	if windowWidth <= 0 {
		windowWidth = WindowWidth
	}
	return &IPOnlyProfile{windowWidth: windowWidth}
}

func (p *IPOnlyProfile) ID() ID { return IPOnly }

func (p *IPOnlyProfile) InitAtIR(pkt *header.Packet, sn uint32) State {
	return newGenericState(pkt, sn, p.windowWidth)
}

func (p *IPOnlyProfile) DetectChanges(stIface State, pkt *header.Packet, candidateSN uint32) ChangeSet {
	st := stIface.(*GenericState)
	outer := pkt.Outer

	cs := ChangeSet{SN: candidateSN}
	cs.StaticChanged = ipStaticChanged(&st.OuterIP, &outer)
	cs.DynamicFieldsChanged = ipDynamicChanged(&st.OuterIP, &outer)

	if pkt.Inner != nil && st.InnerIP != nil {
		cs.StaticChanged = cs.StaticChanged || ipStaticChanged(st.InnerIP, pkt.Inner)
		cs.DynamicFieldsChanged = cs.DynamicFieldsChanged || ipDynamicChanged(st.InnerIP, pkt.Inner)
	} else if (pkt.Inner != nil) != (st.InnerIP != nil) {
		cs.StaticChanged = true
	}

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
	if pkt.Inner != nil && !pkt.Inner.RND {
		cs.HasInnerIPID = true
		if st.InnerIPIDWindow != nil {
			if k, ok := st.InnerIPIDWindow.MinKFor(uint32(pkt.Inner.ID), FieldWidth); ok {
				cs.IPIDInnerK = k
			} else {
				cs.IPIDInnerEscalate = true
			}
		}
	}
	return cs
}

func (p *IPOnlyProfile) StaticBytes(stIface State, pkt *header.Packet) []byte {
	out := encodeIPStatic(nil, &pkt.Outer)
	if pkt.Inner != nil {
		out = encodeIPStatic(out, pkt.Inner)
	}
	return out
}

func (p *IPOnlyProfile) DynamicBytes(stIface State, pkt *header.Packet, _ ChangeSet) []byte {
	out := encodeIPDynamic(nil, &pkt.Outer)
	if pkt.Inner != nil {
		out = encodeIPDynamic(out, pkt.Inner)
	}
	return out
}

func (p *IPOnlyProfile) CodeIRRemainder(State, *header.Packet, *packet.Buffer) error {
	// IP-only has no transport-layer remainder; spec §4.5 only
	// defines code_ir_remainder for the IP header's own non-static
	// fields, which DynamicBytes already covers.
	return nil
}

func (p *IPOnlyProfile) CodeUORemainder(State, ChangeSet, packet.Extension, *packet.Buffer) error {
	return nil
}

func (p *IPOnlyProfile) Commit(stIface State, pkt *header.Packet, change ChangeSet) {
	st := stIface.(*GenericState)
	st.SN = change.SN
	st.SNWindow.Add(change.SN, change.SN)
	st.OuterIP = pkt.Outer
	if !pkt.Outer.RND {
		st.OuterIPIDWindow.Add(change.SN, uint32(pkt.Outer.ID))
	}
	if pkt.Inner != nil {
		inner := *pkt.Inner
		st.InnerIP = &inner
		if st.InnerIPIDWindow == nil {
			st.InnerIPIDWindow = wlsb.NewModulus(st.windowWidth, constP(3), ipIDModulus)
		}
		if !inner.RND {
			st.InnerIPIDWindow.Add(change.SN, uint32(inner.ID))
		}
	}
}
