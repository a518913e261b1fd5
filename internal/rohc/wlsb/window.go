// Package wlsb implements the Window Least Significant Bits encoder of
// RFC 3095 §4.5: given a bounded window of previously-acknowledged
// (sn_ref, value) pairs, find the smallest number of LSBs that still
// lets a decompressor — holding only those bits plus one of the
// reference values — reconstruct the original value.
package wlsb

// Entry is one reference point in the window: the value that was sent
// when sequence number SNRef was current.
type Entry struct {
	SNRef uint32
	Value uint32
}

// Window is a bounded FIFO of Entry, ordered by SNRef ascending. Size
// never exceeds the configured width; Add evicts the oldest entry
// before inserting once full.
type Window struct {
	width    int
	p        func(k uint) int32
	modulus  int64
	entries  []Entry
	hasValue bool
}

// defaultModulus is the wraparound modulus for a field with no
// narrower native width of its own (e.g. a uint32 packet counter,
// which only wraps once it overflows uint32).
const defaultModulus = int64(1) << 32

// New creates a Window of the given width (typ. 4) using a fixed
// interpretation-interval parameter p (SN: 1, TS: 2, IP-ID: 3, per
// RFC 3095 §4.5.2) and the default uint32 wraparound modulus.
func New(width int, p int32) *Window {
	return NewFunc(width, func(uint) int32 { return p })
}

// NewFunc creates a Window whose p parameter is itself a function of
// the candidate bit-width k, for fields where p varies with k, using
// the default uint32 wraparound modulus.
func NewFunc(width int, p func(k uint) int32) *Window {
	return NewModulus(width, p, defaultModulus)
}

// NewModulus is NewFunc with an explicit wraparound modulus, for
// fields narrower than uint32 that wrap before the counter ever
// overflows — e.g. a 16-bit IP-ID, which wraps at 1<<16 while still
// being carried in a uint32 Entry.Value.
func NewModulus(width int, p func(k uint) int32, modulus int64) *Window {
	if width <= 0 {
		width = 4
	}
	return &Window{width: width, p: p, modulus: modulus, entries: make([]Entry, 0, width)}
}

// Add inserts a new reference, evicting the oldest entry first if the
// window is already at capacity (spec §8 boundary: "oldest eviction
// occurs before new insertion; window size never exceeds W").
func (w *Window) Add(snRef uint32, value uint32) {
	if len(w.entries) >= w.width {
		w.entries = append(w.entries[:0], w.entries[1:]...)
	}
	w.entries = append(w.entries, Entry{SNRef: snRef, Value: value})
	w.hasValue = true
}

// Purge removes every entry with SNRef <= upToSN, used once feedback
// acknowledges that sequence number (spec §4.2 purge).
func (w *Window) Purge(upToSN uint32) {
	kept := w.entries[:0]
	for _, e := range w.entries {
		if e.SNRef > upToSN {
			kept = append(kept, e)
		}
	}
	w.entries = kept
}

// Len reports the current number of references held.
func (w *Window) Len() int { return len(w.entries) }

// Empty reports whether no reference has ever been added.
func (w *Window) Empty() bool { return !w.hasValue }

// interval returns the reconstructible range [lo, hi] for bit width k
// against a single reference value.
func interval(ref uint32, k uint, p int32) (lo, hi int64) {
	span := int64(1) << k
	lo = int64(ref) - int64(p)
	hi = int64(ref) + span - 1 - int64(p)
	return
}

// fits reports whether value falls inside every reference's
// reconstructible interval for bit width k.
func (w *Window) fits(value uint32, k uint) bool {
	if len(w.entries) == 0 {
		return true
	}
	for _, e := range w.entries {
		p := w.p(k)
		lo, hi := interval(e.Value, k, p)
		v := int64(value)
		// The wrapping field this window tracks can wrap around its
		// modulus (1<<16 for a 16-bit IP-ID, 1<<32 for a uint32
		// counter); accept the congruent value one modulus up or down
		// as well so a wrap just after the window's oldest reference
		// doesn't force an escalation it doesn't need.
		modulus := w.modulus
		if v >= lo && v <= hi {
			continue
		}
		if v+modulus >= lo && v+modulus <= hi {
			continue
		}
		if v-modulus >= lo && v-modulus <= hi {
			continue
		}
		return false
	}
	return true
}

// MinKFor returns the smallest k in [0, fieldWidth] such that value
// lies in every window entry's reconstructible interval, and true. If
// no such k exists within fieldWidth bits, ok is false and the caller
// must escalate to a packet format that carries the value outright
// (spec §4.2: "Fails when no k ≤ field_width works").
func (w *Window) MinKFor(value uint32, fieldWidth uint) (k uint, ok bool) {
	for k = 0; k <= fieldWidth; k++ {
		if w.fits(value, k) {
			return k, true
		}
	}
	return 0, false
}

// LSB returns the low k bits of value, as transmitted on the wire.
func LSB(value uint32, k uint) uint32 {
	if k == 0 {
		return 0
	}
	if k >= 32 {
		return value
	}
	return value & ((1 << k) - 1)
}
