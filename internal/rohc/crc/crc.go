// Package crc implements the reflected CRC flavors protecting ROHC
// headers: RFC 3095 §5.9's CRC-3 (UO-0) and CRC-7 (UOR-2), plus CRC-8
// (IR/IR-DYN/feedback), and the CRC-5/USB variant this implementation
// uses for UO-1's wider 5-bit field (spec §4.1.3: UO-1 carries a 5-bit
// CRC rather than UO-0's 3-bit one). Tables are built once at package init and are
// immutable afterward, so a single *Table may be shared read-only
// across compressor instances (spec §5, "CRC tables ... safe to share").
package crc

// Table is a precomputed lookup table for one reflected CRC variant.
// Compute is pure and allocation-free.
type Table struct {
	width   uint
	poly    uint8
	mask    uint8
	entries [256]uint8
}

// newTable builds the 256-entry table for a reflected CRC of the given
// bit width and (already-reflected) polynomial. The full index byte is
// shifted through the register a byte at a time; because every step is a
// shift-right-then-conditionally-XOR-with-poly, and poly never has a
// bit set above width-1, all eight index bits have left the register
// after the eighth step and the entry fits in the low `width` bits —
// the trailing mask is redundant in theory and kept only as a
// documented invariant check.
func newTable(width uint, poly uint8) *Table {
	mask := uint8(1<<width) - 1
	t := &Table{width: width, poly: poly & mask, mask: mask}
	for i := 0; i < 256; i++ {
		c := uint8(i)
		for b := 0; b < 8; b++ {
			if c&1 != 0 {
				c = (c >> 1) ^ t.poly
			} else {
				c >>= 1
			}
		}
		t.entries[i] = c & mask
	}
	return t
}

// Update folds data into crc and returns the new accumulator value.
// Callers pass the RFC-specified init value the first time.
func (t *Table) Update(crc uint8, data []byte) uint8 {
	for _, b := range data {
		crc = t.entries[(crc^b)&0xFF]
	}
	return crc
}

// Compute is Update starting from the variant's init value.
func (t *Table) Compute(data []byte) uint8 {
	return t.Update(t.Init(), data)
}

// Init returns the RFC-specified initial register value for this
// variant (0x7 for CRC-3, 0x1F for CRC-5, 0x7F for CRC-7, 0xFF for
// CRC-8 — all-ones within the register width).
func (t *Table) Init() uint8 {
	return t.mask
}

// Mask returns the bitmask of valid output bits for this width.
func (t *Table) Mask() uint8 { return t.mask }

// RFC 3095 §5.9 polynomials, already bit-reflected for LSB-first
// processing, and the tables built from them. CRC5 is the reflected
// poly of the standard CRC-5/USB variant (x^5+x^2+1); RFC 3095 itself
// only registers 3/7/8-bit CRCs, so UO-1's 5-bit field borrows this
// well-known polynomial rather than inventing one. Package-level
// singletons: immutable after init, shared by every Compressor instance.
var (
	CRC3 = newTable(3, 0x6)
	CRC5 = newTable(5, 0x14)
	CRC7 = newTable(7, 0x79)
	CRC8 = newTable(8, 0xE0)
)

// Tables bundles the variants for injection into profile
// implementations that need more than one width (most do: CRC-3 for
// UO-0, CRC-5 for UO-1, CRC-7 for UOR-2, CRC-8 for IR/IR-DYN).
type Tables struct {
	CRC3, CRC5, CRC7, CRC8 *Table
}

// Default returns the process-wide immutable table set.
func Default() *Tables {
	return &Tables{CRC3: CRC3, CRC5: CRC5, CRC7: CRC7, CRC8: CRC8}
}
