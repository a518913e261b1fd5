package profile

import (
	"testing"

	"github.com/rohc-go/compressor/internal/rohc/crc"
	"github.com/rohc-go/compressor/internal/rohc/packet"
)

func TestUncompressedDecidePhaseStaysIRUntilMaxIRCount(t *testing.T) {
	p := NewUncompressedProfile(crc.CRC8)
	st, phase := p.InitPhase()

	for i := 0; i < MaxIRCount; i++ {
		got := p.DecidePhase(st, phase, 0)
		if got != UncompressedIR {
			t.Fatalf("iteration %d: DecidePhase = %v, want IR (IRCount=%d)", i, got, st.IRCount)
		}
		st.IRCount++
	}
	got := p.DecidePhase(st, phase, 0)
	if got != UncompressedFO {
		t.Fatalf("after %d IR sends, DecidePhase = %v, want FO", MaxIRCount, got)
	}
}

func TestUncompressedDecidePhasePeriodicRefresh(t *testing.T) {
	p := NewUncompressedProfile(crc.CRC8)
	st := &UncompressedState{NormalCount: 10}
	if got := p.DecidePhase(st, UncompressedFO, 10); got != UncompressedIR {
		t.Fatalf("DecidePhase at NormalCount=10, irTimeout=10 = %v, want IR", got)
	}
}

func TestUncompressedDecidePhaseNoRefreshBeforeTimeout(t *testing.T) {
	p := NewUncompressedProfile(crc.CRC8)
	st := &UncompressedState{NormalCount: 5}
	if got := p.DecidePhase(st, UncompressedFO, 10); got != UncompressedFO {
		t.Fatalf("DecidePhase at NormalCount=5, irTimeout=10 = %v, want FO", got)
	}
}

func TestUncompressedEncodeIRWritesValidCRC(t *testing.T) {
	p := NewUncompressedProfile(crc.CRC8)
	out := make([]byte, 16)
	n, err := p.EncodeIR(packet.CIDSmall, 0, out)
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 {
		t.Fatalf("payloadOffset = %d, want 3 (disc+profile+crc, CID 0 small mode)", n)
	}
	if out[0] != ircDiscriminator {
		t.Errorf("discriminator byte = %#x, want %#x", out[0], ircDiscriminator)
	}
	if out[1] != ProfileIDUncompressedByte {
		t.Errorf("profile byte = %#x, want 0", out[1])
	}
	want := crc.CRC8.Compute(out[0:2])
	if out[2] != want {
		t.Errorf("CRC byte = %#x, want %#x", out[2], want)
	}
}

func TestUncompressedEncodeNormalReusesFirstByte(t *testing.T) {
	p := NewUncompressedProfile(crc.CRC8)
	out := make([]byte, 16)
	n, err := p.EncodeNormal(packet.CIDSmall, 0, 0x45, out)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("payloadOffset = %d, want 1", n)
	}
	if out[0] != 0x45 {
		t.Errorf("discriminator byte = %#x, want 0x45", out[0])
	}
}

func TestUncompressedEncodeIRWithNonZeroCIDAddsFraming(t *testing.T) {
	p := NewUncompressedProfile(crc.CRC8)
	out := make([]byte, 16)
	n, err := p.EncodeIR(packet.CIDSmall, 5, out)
	if err != nil {
		t.Fatal(err)
	}
	if n != 4 {
		t.Fatalf("payloadOffset = %d, want 4 (add-CID + disc + profile + crc)", n)
	}
	if out[0]&0xF0 != packet.AddCIDBase {
		t.Errorf("first byte %#x does not carry the Add-CID discriminator", out[0])
	}
}

func TestValidateUncompressedPayloadRejectsEmpty(t *testing.T) {
	if err := ValidateUncompressedPayload(nil, nil); err == nil {
		t.Fatal("expected error for an empty payload")
	}
}

func TestValidateUncompressedPayloadAcceptsNonEmpty(t *testing.T) {
	if err := ValidateUncompressedPayload(nil, []byte{0x45}); err != nil {
		t.Fatal(err)
	}
}
