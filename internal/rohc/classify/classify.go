// Package classify implements the ingress classifier of spec §4.7:
// parse the wire bytes of one IP packet into the typed header.Packet
// view, and derive the lookup Key used to find (or create) its
// context.
package classify

import (
	"encoding/binary"

	"github.com/rohc-go/compressor/internal/rohc/header"
	"github.com/rohc-go/compressor/internal/rohcerr"
)

const (
	protoUDP = 17
)

// Parse decodes ip_bytes into a header.Packet. It never errors on an
// unrecognized protocol or malformed option area — those fall back to
// the Uncompressed profile per spec §7 ("classifier falls back to the
// Uncompressed profile; never a user-visible error") — but it does
// error if the buffer is too short to contain even a minimal IP
// header, which is a caller bug rather than a compressible-but-unusual
// packet.
func Parse(ipBytes []byte) (*header.Packet, error) {
	if len(ipBytes) < 1 {
		return nil, rohcerr.NewUnsupported(0, "empty packet")
	}
	version := ipBytes[0] >> 4
	switch version {
	case 4:
		return parseIPv4(ipBytes)
	case 6:
		return parseIPv6(ipBytes)
	default:
		return nil, rohcerr.NewUnsupported(0, "unrecognized IP version")
	}
}

func parseIPv4(b []byte) (*header.Packet, error) {
	if len(b) < 20 {
		return nil, rohcerr.NewUnsupported(0, "truncated IPv4 header")
	}
	ihl := int(b[0]&0x0F) * 4
	if ihl < 20 || len(b) < ihl {
		return nil, rohcerr.NewUnsupported(0, "invalid IPv4 IHL")
	}

	ip := header.IP{
		Version:  header.IPv4,
		AddrLen:  4,
		TOS:      b[1],
		ID:       binary.BigEndian.Uint16(b[4:6]),
		TTL:      b[8],
		Protocol: b[9],
	}
	flagsFrag := binary.BigEndian.Uint16(b[6:8])
	ip.DF = flagsFrag&0x4000 != 0
	ip.Flags = uint8(flagsFrag >> 13)
	copy(ip.SrcAddr[:4], b[12:16])
	copy(ip.DstAddr[:4], b[16:20])

	pkt := &header.Packet{Outer: ip, Payload: b[ihl:]}
	attachTransport(pkt, &pkt.Outer, b[ihl:])
	return pkt, nil
}

func parseIPv6(b []byte) (*header.Packet, error) {
	if len(b) < 40 {
		return nil, rohcerr.NewUnsupported(0, "truncated IPv6 header")
	}
	vtc := binary.BigEndian.Uint32(b[0:4])
	ip := header.IP{
		Version:   header.IPv6,
		AddrLen:   16,
		TOS:       uint8((vtc >> 20) & 0xFF),
		FlowLabel: vtc & 0x000FFFFF,
		TTL:       b[7], // hop limit
		Protocol:  b[6], // next header
	}
	copy(ip.SrcAddr[:16], b[8:24])
	copy(ip.DstAddr[:16], b[24:40])

	pkt := &header.Packet{Outer: ip, Payload: b[40:]}
	attachTransport(pkt, &pkt.Outer, b[40:])
	return pkt, nil
}

// attachTransport recognizes a UDP next-header and attaches it; any
// other next-header (including IP-in-IP, left for a future inner-IP
// extension) is treated as opaque payload, which is always safe since
// the Uncompressed profile can carry anything.
func attachTransport(pkt *header.Packet, ip *header.IP, rest []byte) {
	if ip.Protocol != protoUDP || len(rest) < 8 {
		return
	}
	pkt.UDP = &header.UDP{
		SrcPort:  binary.BigEndian.Uint16(rest[0:2]),
		DstPort:  binary.BigEndian.Uint16(rest[2:4]),
		Length:   binary.BigEndian.Uint16(rest[4:6]),
		Checksum: binary.BigEndian.Uint16(rest[6:8]),
	}
	pkt.Payload = rest[8:]
}
