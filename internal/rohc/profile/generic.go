package profile

import (
	"encoding/binary"

	"github.com/rohc-go/compressor/internal/rohc/header"
	"github.com/rohc-go/compressor/internal/rohc/wlsb"
)

// WindowWidth is the default W-LSB window width (spec §6.1
// set_wlsb_window_width default).
const WindowWidth = 4

// ipIDModulus is the wraparound modulus for IPv4's 16-bit ID field,
// used so wlsb.Window.fits recognizes a wrap (65534 -> 2) as still
// reconstructible instead of forcing an escalation.
const ipIDModulus = int64(1) << 16

// constP returns a fixed interpretation-interval parameter p,
// independent of the candidate bit-width k (RFC 3095 §4.5.2).
func constP(p int32) func(uint) int32 {
	return func(uint) int32 { return p }
}

// GenericState is the shared sub-state of spec §3 "Generic RFC 3095
// sub-state", used by both the IP-only and UDP profiles (and, per
// spec §1, would be reused unchanged by UDP-Lite/RTP/ESP — not
// implemented here, spec treats them as "straightforward extensions
// of the generic core").
type GenericState struct {
	SN       uint32
	SNWindow *wlsb.Window

	OuterIP           header.IP
	OuterIPIDWindow   *wlsb.Window
	InnerIP           *header.IP
	InnerIPIDWindow   *wlsb.Window
	IPHeaderCount     int

	// UDP is nil for the IP-only profile and non-nil for UDP, holding
	// the extra static/dynamic tracking spec §4.6 describes.
	UDP *udpState

	windowWidth int
}

func (*GenericState) isProfileState() {}

// udpState is the UDP profile's extension of GenericState (spec §3
// "UDP sub-state").
type udpState struct {
	SrcPort, DstPort    uint16
	OldChecksum         uint16
	ChecksumChangeCount uint32
}

func newGenericState(pkt *header.Packet, sn uint32, windowWidth int) *GenericState {
	gs := &GenericState{
		SN:              sn,
		SNWindow:        wlsb.New(windowWidth, 1), // SN: p=1 (spec §4.2)
		OuterIP:         pkt.Outer,
		OuterIPIDWindow: wlsb.NewModulus(windowWidth, constP(3), ipIDModulus), // IP-ID: p=3, wraps at 16 bits
		IPHeaderCount:   1,
		windowWidth:     windowWidth,
	}
	gs.SNWindow.Add(uint32(sn), sn)
	if !gs.OuterIP.RND {
		gs.OuterIPIDWindow.Add(uint32(sn), uint32(gs.OuterIP.ID))
	}
	if pkt.Inner != nil {
		inner := *pkt.Inner
		gs.InnerIP = &inner
		gs.InnerIPIDWindow = wlsb.NewModulus(windowWidth, constP(3), ipIDModulus)
		gs.IPHeaderCount = 2
		if !inner.RND {
			gs.InnerIPIDWindow.Add(uint32(sn), uint32(inner.ID))
		}
	}
	return gs
}

// ipStaticChanged reports whether a.*'s static fields differ from b's
// (spec §4.1.1 rule 1).
func ipStaticChanged(a, b *header.IP) bool {
	if a.Version != b.Version || a.Protocol != b.Protocol {
		return true
	}
	if a.AddrLen != b.AddrLen {
		return true
	}
	if a.SrcAddr != b.SrcAddr || a.DstAddr != b.DstAddr {
		return true
	}
	if a.Version == header.IPv6 && a.FlowLabel != b.FlowLabel {
		return true
	}
	return false
}

// ipDynamicChanged reports whether a.*'s dynamic, non-window-tracked
// fields differ from b's (TOS/TTL/DF/flags/RND/NBO). ID itself is
// window-tracked separately and does not belong here.
func ipDynamicChanged(a, b *header.IP) bool {
	return a.TOS != b.TOS || a.TTL != b.TTL || a.DF != b.DF ||
		a.Flags != b.Flags || a.RND != b.RND || a.NBO != b.NBO
}

// encodeIPStatic appends the static-chain bytes for one IP header
// (spec §4.5 "Static chain (IR only): IP version, protocol, source
// addr, dest addr; for IPv6 additionally flow label").
func encodeIPStatic(dst []byte, ip *header.IP) []byte {
	dst = append(dst, byte(ip.Version), ip.Protocol)
	dst = append(dst, ip.SrcAddr[:ip.AddrLen]...)
	dst = append(dst, ip.DstAddr[:ip.AddrLen]...)
	if ip.Version == header.IPv6 {
		var fl [4]byte
		binary.BigEndian.PutUint32(fl[:], ip.FlowLabel)
		dst = append(dst, fl[:]...)
	}
	return dst
}

// encodeIPDynamic appends the dynamic-chain bytes for one IP header
// (spec §4.5 "Dynamic chain (IR/IR-DYN): TOS/TC, TTL/HL, ID (v4), DF
// (v4), RND/NBO flags").
func encodeIPDynamic(dst []byte, ip *header.IP) []byte {
	dst = append(dst, ip.TOS, ip.TTL)
	if ip.Version == header.IPv4 {
		var id [2]byte
		binary.BigEndian.PutUint16(id[:], ip.ID)
		dst = append(dst, id[:]...)
		flags := byte(0)
		if ip.DF {
			flags |= 0x01
		}
		if ip.RND {
			flags |= 0x02
		}
		if ip.NBO {
			flags |= 0x04
		}
		dst = append(dst, flags)
	}
	return dst
}
