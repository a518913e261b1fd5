// Package header defines the parsed-header representation shared by
// the classifier and every profile: plain Go structs standing in for
// the "cast-heavy void-pointer" header views of the C source (spec
// §9 design note — no runtime casting here, just typed fields).
package header

// IPVersion distinguishes IPv4 from IPv6 static-chain encoding.
type IPVersion uint8

const (
	IPv4 IPVersion = 4
	IPv6 IPVersion = 6
)

// IP captures the fields of one IP header (inner or outer) that the
// generic engine tracks, split along the static/dynamic boundary of
// spec §4.5.
type IP struct {
	Version IPVersion

	// Static fields (spec §4.5: "Static chain ... never change during
	// a flow"; a change here forces IR + possibly a new CID per §4.1.1
	// rule 1).
	SrcAddr   [16]byte
	DstAddr   [16]byte
	AddrLen   int // 4 or 16, how much of SrcAddr/DstAddr is meaningful
	Protocol  uint8
	FlowLabel uint32 // IPv6 only

	// Dynamic fields (spec §4.5 dynamic chain).
	TOS   uint8 // TOS (v4) / Traffic Class (v6)
	TTL   uint8 // TTL (v4) / Hop Limit (v6)
	ID    uint16
	DF    bool
	RND   bool // ID field behaves randomly (not incrementing)
	NBO   bool // ID field is in network byte order
	Flags uint8
}

// UDP captures the UDP header fields the UDP profile tracks.
type UDP struct {
	SrcPort  uint16 // static
	DstPort  uint16 // static
	Length   uint16
	Checksum uint16 // dynamic; see spec §4.6 checksum-behaviour tracking
}

// Packet is the classifier's parsed view of one input packet: up to
// two IP headers (outer + inner, for IP-in-IP tunnels per spec §3
// "ip_header_count: 1 or 2"), an optional UDP header, and the
// remaining transport payload bytes (untouched, copied by the caller
// per spec §4.1.4 step 5).
type Packet struct {
	Outer   IP
	Inner   *IP // nil unless tunnelled
	UDP     *UDP
	Payload []byte // offset into the original buffer, not copied
}

// InnerMost returns the IP header that carries the next-header
// protocol the transport-layer profile (UDP, etc.) parses.
func (p *Packet) InnerMost() *IP {
	if p.Inner != nil {
		return p.Inner
	}
	return &p.Outer
}

// Key identifies a flow for context-table lookup (spec §4.7 step 2:
// "a context whose static chain matches the classified keys").
type Key struct {
	SrcAddr  [16]byte
	DstAddr  [16]byte
	AddrLen  int
	Protocol uint8
	SrcPort  uint16
	DstPort  uint16
	HasPorts bool
}

// KeyOf derives the classifier key for a parsed packet.
func KeyOf(p *Packet) Key {
	im := p.InnerMost()
	k := Key{
		SrcAddr:  im.SrcAddr,
		DstAddr:  im.DstAddr,
		AddrLen:  im.AddrLen,
		Protocol: im.Protocol,
	}
	if p.UDP != nil {
		k.SrcPort = p.UDP.SrcPort
		k.DstPort = p.UDP.DstPort
		k.HasPorts = true
	}
	return k
}
