package packet

import "testing"

func TestEncodeCIDSmallModeZeroCIDWritesNothing(t *testing.T) {
	out := make([]byte, 8)
	b := NewBuffer(out, 0)
	if err := EncodeCID(b, CIDSmall, 0); err != nil {
		t.Fatal(err)
	}
	if b.Len() != 0 {
		t.Fatalf("Len() = %d, want 0 for CID 0 in small mode", b.Len())
	}
}

func TestEncodeDecodeCIDSmallModeRoundTrips(t *testing.T) {
	for cid := uint16(0); cid <= MaxSmallCID; cid++ {
		out := make([]byte, 8)
		b := NewBuffer(out, cid)
		if err := EncodeCID(b, CIDSmall, cid); err != nil {
			t.Fatalf("cid %d: %v", cid, err)
		}

		// DecodeCID reads the start of a framed packet, so follow the
		// framing with a packet-type octet (CID 0 writes no framing).
		got, consumed, err := DecodeCID(CIDSmall, append(b.Bytes(), DiscIRDYN))
		if err != nil {
			t.Fatalf("cid %d: decode error: %v", cid, err)
		}
		if got != cid {
			t.Errorf("cid %d: decoded %d", cid, got)
		}
		if cid == 0 && consumed != 0 {
			t.Errorf("cid 0: consumed %d, want 0", consumed)
		}
		if cid != 0 && consumed != 1 {
			t.Errorf("cid %d: consumed %d, want 1", cid, consumed)
		}
	}
}

func TestEncodeCIDSmallModeRejectsOutOfRange(t *testing.T) {
	out := make([]byte, 8)
	b := NewBuffer(out, MaxSmallCID+1)
	if err := EncodeCID(b, CIDSmall, MaxSmallCID+1); err == nil {
		t.Fatal("expected error for CID exceeding small-CID range")
	}
}

func TestEncodeDecodeCIDLargeModeRoundTrips(t *testing.T) {
	for _, cid := range []uint16{0, 1, 0x7F, 0x80, 0x81, 4000, MaxLargeCID} {
		out := make([]byte, 8)
		b := NewBuffer(out, cid)
		if err := EncodeCID(b, CIDLarge, cid); err != nil {
			t.Fatalf("cid %d: %v", cid, err)
		}

		got, consumed, err := DecodeCID(CIDLarge, b.Bytes())
		if err != nil {
			t.Fatalf("cid %d: decode error: %v", cid, err)
		}
		if got != cid {
			t.Errorf("cid %d: decoded %d", cid, got)
		}
		wantConsumed := 1
		if cid >= 0x80 {
			wantConsumed = 2
		}
		if consumed != wantConsumed {
			t.Errorf("cid %d: consumed %d, want %d", cid, consumed, wantConsumed)
		}
	}
}

func TestDecodeCIDRejectsEmptyInput(t *testing.T) {
	if _, _, err := DecodeCID(CIDSmall, nil); err == nil {
		t.Fatal("expected error decoding an empty packet")
	}
}

func TestDecodeCIDRejectsTruncatedLargeCID(t *testing.T) {
	if _, _, err := DecodeCID(CIDLarge, []byte{0x80}); err == nil {
		t.Fatal("expected error for a truncated large-CID field")
	}
}

func TestBufferWriteByteReportsBufferTooSmall(t *testing.T) {
	out := make([]byte, 1)
	b := NewBuffer(out, 7)
	if err := b.WriteByte(0xAA); err != nil {
		t.Fatal(err)
	}
	if err := b.WriteByte(0xBB); err == nil {
		t.Fatal("expected BufferTooSmall on the second write into a 1-byte buffer")
	}
}

func TestBufferWriteReportsBufferTooSmall(t *testing.T) {
	out := make([]byte, 2)
	b := NewBuffer(out, 0)
	if err := b.Write([]byte{1, 2, 3}); err == nil {
		t.Fatal("expected BufferTooSmall writing 3 bytes into a 2-byte buffer")
	}
}

func TestPatchByteOverwritesAlreadyWrittenByte(t *testing.T) {
	out := make([]byte, 4)
	b := NewBuffer(out, 0)
	_ = b.WriteByte(0x00)
	_ = b.WriteByte(0x11)
	b.PatchByte(0, 0xFF)
	if b.Bytes()[0] != 0xFF {
		t.Fatalf("Bytes()[0] = %#x, want 0xff", b.Bytes()[0])
	}
}

func TestUO0PacksOneOctet(t *testing.T) {
	got := UO0(0xF, 0x7)
	// 0-SSSS-CCC: SN LSB 0xF in bits 6..3, CRC3 0x7 in bits 2..0, top bit clear.
	want := byte(0x7F)
	if got != want {
		t.Errorf("UO0(0xF, 0x7) = %#x, want %#x", got, want)
	}
	if got&0x80 != 0 {
		t.Error("UO0 must leave the leading discriminator bit clear")
	}
}

func TestUOR2SetsDiscriminatorAndXBit(t *testing.T) {
	pair := UOR2(0x1F, true, 0x7F)
	if pair[0]&0xE0 != DiscUOR2Base {
		t.Errorf("UOR2 first byte %#x does not carry the 110 discriminator", pair[0])
	}
	if pair[1]&0x80 == 0 {
		t.Error("UOR2 with x=true must set the extension bit")
	}
	noExt := UOR2(0x1F, false, 0x7F)
	if noExt[1]&0x80 != 0 {
		t.Error("UOR2 with x=false must clear the extension bit")
	}
}

func TestIRDiscriminatorDBit(t *testing.T) {
	if IRDiscriminator(false)&0x01 != 0 {
		t.Error("IRDiscriminator(false) must have D bit clear")
	}
	if IRDiscriminator(true)&0x01 != 1 {
		t.Error("IRDiscriminator(true) must have D bit set")
	}
}

func TestTypeStringCoversEveryConstant(t *testing.T) {
	cases := map[Type]string{
		TypeUO0:    "UO-0",
		TypeUO1:    "UO-1",
		TypeUOR2:   "UOR-2",
		TypeIRDYN:  "IR-DYN",
		TypeIR:     "IR",
		TypeNormal: "Normal",
	}
	for typ, want := range cases {
		if got := typ.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", typ, got, want)
		}
	}
}
