package profile

import (
	"testing"

	"github.com/rohc-go/compressor/internal/rohc/header"
	"github.com/rohc-go/compressor/internal/rohc/packet"
	"github.com/rohc-go/compressor/internal/rohcerr"
)

func udpPacket(id uint16, checksum uint16) *header.Packet {
	pkt := ipv4Packet(id, 0)
	pkt.Outer.Protocol = 17
	pkt.UDP = &header.UDP{SrcPort: 5000, DstPort: 6000, Checksum: checksum}
	return pkt
}

func TestUDPInitAtIRCapturesPorts(t *testing.T) {
	p := NewUDPProfile(4, 3)
	pkt := udpPacket(1, 1234)
	st := p.InitAtIR(pkt, 1).(*GenericState)
	if st.UDP == nil {
		t.Fatal("expected UDP sub-state to be populated")
	}
	if st.UDP.SrcPort != 5000 || st.UDP.DstPort != 6000 {
		t.Errorf("ports = %d/%d, want 5000/6000", st.UDP.SrcPort, st.UDP.DstPort)
	}
}

func TestUDPDetectChangesCatchesPortChange(t *testing.T) {
	p := NewUDPProfile(4, 3)
	pkt := udpPacket(1, 1234)
	stIface := p.InitAtIR(pkt, 1)
	p.Commit(stIface, pkt, ChangeSet{SN: 1})

	changed := udpPacket(2, 1234)
	changed.UDP.DstPort = 7000
	cs := p.DetectChanges(stIface, changed, 2)
	if !cs.StaticChanged {
		t.Error("a destination port change must report StaticChanged")
	}
}

func TestUDPChecksumFlipForcesIR(t *testing.T) {
	p := NewUDPProfile(4, 3)
	pkt := udpPacket(1, 0) // reference checksum is zero
	stIface := p.InitAtIR(pkt, 1)
	p.Commit(stIface, pkt, ChangeSet{SN: 1})

	flipped := udpPacket(2, 0xABCD) // now non-zero
	cs := p.DetectChanges(stIface, flipped, 2)
	if !cs.ForceIR {
		t.Error("a zero->non-zero checksum flip must force IR")
	}
	if !cs.SendDynamicExtra {
		t.Error("a checksum flip must also send the checksum in the dynamic chain")
	}
}

func TestUDPChecksumUnchangedDoesNotForceIR(t *testing.T) {
	p := NewUDPProfile(4, 3) // oaRepetitions = 3
	pkt := udpPacket(1, 0xABCD)
	stIface := p.InitAtIR(pkt, 1)
	st := stIface.(*GenericState)
	st.UDP.ChecksumChangeCount = 3 // past the post-flip repeat window
	p.Commit(stIface, pkt, ChangeSet{SN: 1})

	stable := udpPacket(2, 0xABCD)
	cs := p.DetectChanges(stIface, stable, 2)
	if cs.ForceIR {
		t.Error("an unchanged non-zero checksum past the repeat window must not force IR")
	}
}

func TestUDPChecksumFlipKeepsForcingIRForRepetitionWindow(t *testing.T) {
	p := NewUDPProfile(4, 3) // oaRepetitions = 3
	pkt := udpPacket(1, 0)
	stIface := p.InitAtIR(pkt, 1)
	p.Commit(stIface, pkt, ChangeSet{SN: 1})

	sn := uint32(2)
	flipped := udpPacket(uint16(sn), 0xABCD)
	cs := p.DetectChanges(stIface, flipped, sn)
	if !cs.ForceIR {
		t.Fatal("the flip packet itself must force IR")
	}
	p.Commit(stIface, flipped, cs)

	for i := 0; i < 3; i++ {
		sn++
		stable := udpPacket(uint16(sn), 0xABCD) // checksum unchanged, still within the repeat window
		cs = p.DetectChanges(stIface, stable, sn)
		if !cs.ForceIR {
			t.Fatalf("packet %d after the flip must still force IR (oa_repetitions_nr=3)", i+1)
		}
		p.Commit(stIface, stable, cs)
	}

	sn++
	resumed := udpPacket(uint16(sn), 0xABCD)
	cs = p.DetectChanges(stIface, resumed, sn)
	if cs.ForceIR {
		t.Error("once the repeat window elapses, ForceIR must clear so UO-0 can resume")
	}
}

func TestUDPCommitResetsChecksumChangeCountOnFlip(t *testing.T) {
	p := NewUDPProfile(4, 3)
	pkt := udpPacket(1, 0xABCD)
	stIface := p.InitAtIR(pkt, 1)
	st := stIface.(*GenericState)
	st.UDP.ChecksumChangeCount = 2

	flipped := udpPacket(2, 0)
	p.Commit(stIface, flipped, ChangeSet{SN: 2, ForceIR: true})

	if st.UDP.ChecksumChangeCount != 0 {
		t.Errorf("ChecksumChangeCount after a flip = %d, want 0", st.UDP.ChecksumChangeCount)
	}
}

func TestUDPDynamicBytesCarriesNewChecksumOnFlip(t *testing.T) {
	p := NewUDPProfile(4, 3)
	pkt := udpPacket(1, 0)
	stIface := p.InitAtIR(pkt, 1)
	p.Commit(stIface, pkt, ChangeSet{SN: 1})

	flipped := udpPacket(2, 0xBEEF)
	out := p.DynamicBytes(stIface, flipped, ChangeSet{SendDynamicExtra: true})
	got := uint16(out[len(out)-2])<<8 | uint16(out[len(out)-1])
	if got != 0xBEEF {
		t.Errorf("dynamic chain checksum = %#x, want the new checksum 0xbeef, not the stale committed value", got)
	}
}

func TestUDPCodeUORemainderSkipsWhenAlreadyInDynamicChain(t *testing.T) {
	p := NewUDPProfile(4, 3)
	pkt := udpPacket(1, 0xABCD)
	stIface := p.InitAtIR(pkt, 1)

	buf := make([]byte, 8)
	b := packet.NewBuffer(buf, 0)
	if err := p.CodeUORemainder(stIface, ChangeSet{SendDynamicExtra: true}, 0, b); err != nil {
		t.Fatal(err)
	}
	if b.Len() != 0 {
		t.Errorf("Len() = %d, want 0 when checksum is already in the dynamic chain", b.Len())
	}
}

func TestUDPCodeUORemainderAppendsChecksumWhenNotInDynamicChain(t *testing.T) {
	p := NewUDPProfile(4, 3)
	pkt := udpPacket(1, 0xABCD)
	stIface := p.InitAtIR(pkt, 1)

	buf := make([]byte, 8)
	b := packet.NewBuffer(buf, 0)
	if err := p.CodeUORemainder(stIface, ChangeSet{SendDynamicExtra: false}, 0, b); err != nil {
		t.Fatal(err)
	}
	if b.Len() != 2 {
		t.Fatalf("Len() = %d, want 2 bytes of checksum", b.Len())
	}
}

func TestUDPCodeUORemainderPropagatesBufferCIDOnOverflow(t *testing.T) {
	p := NewUDPProfile(4, 3)
	pkt := udpPacket(1, 0xABCD)
	stIface := p.InitAtIR(pkt, 1)

	tiny := make([]byte, 0)
	b := packet.NewBuffer(tiny, 5)
	err := p.CodeUORemainder(stIface, ChangeSet{SendDynamicExtra: false}, 0, b)
	if err == nil {
		t.Fatal("expected BufferTooSmall for a zero-length destination")
	}
	rerr, ok := err.(*rohcerr.Error)
	if !ok {
		t.Fatalf("error type = %T, want *rohcerr.Error", err)
	}
	if !rerr.HasCID || rerr.CID != 5 {
		t.Errorf("error CID = %d (hasCID=%v), want the buffer's actual cid 5", rerr.CID, rerr.HasCID)
	}
}
