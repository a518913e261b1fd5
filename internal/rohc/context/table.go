package context

import (
	"github.com/rohc-go/compressor/internal/rohc/header"
	"github.com/rohc-go/compressor/internal/rohc/packet"
	"github.com/rohc-go/compressor/internal/rohcerr"
)

// entry pairs a Context with the classifier key it was created from,
// so lookups can match "a context whose static chain matches the
// classified keys" (spec §4.7 step 2).
type entry struct {
	ctx *Context
	key header.Key
}

// Table is the compressor-wide CID-keyed context store of spec §3/§4.7:
// CID allocation (smallest free slot), LRU eviction when full, and
// lookup by classifier key. It is exclusive to one compressor instance
// (spec §5 "Context table: exclusive to its compressor instance") and
// is not safe for concurrent use.
type Table struct {
	mode   packet.CIDMode
	maxCID uint16
	slots  map[uint16]*entry
	tick   uint64
}

// NewTable creates an empty table for the given CID mode and maximum
// CID (spec §6.1 create: max_cid <= 15 small / <= 16383 large).
func NewTable(mode packet.CIDMode, maxCID uint16) *Table {
	limit := uint16(packet.MaxLargeCID)
	if mode == packet.CIDSmall {
		limit = packet.MaxSmallCID
	}
	if maxCID > limit || maxCID == 0 {
		maxCID = limit
	}
	return &Table{mode: mode, maxCID: maxCID, slots: make(map[uint16]*entry)}
}

// Len reports how many contexts are currently allocated.
func (t *Table) Len() int { return len(t.slots) }

// All returns every currently allocated context, for snapshotting
// (pkg/statsserver's /stats endpoint). Order is unspecified.
func (t *Table) All() []*Context {
	out := make([]*Context, 0, len(t.slots))
	for _, e := range t.slots {
		out = append(out, e.ctx)
	}
	return out
}

// Lookup finds a context whose remembered key matches k, touching its
// LRU clock on hit.
func (t *Table) Lookup(k header.Key) *Context {
	t.tick++
	for _, e := range t.slots {
		if e.key == k {
			e.ctx.LastUsedTick = t.tick
			return e.ctx
		}
	}
	return nil
}

// Get returns the context allocated to cid, or nil.
func (t *Table) Get(cid uint16) *Context {
	if e, ok := t.slots[cid]; ok {
		return e.ctx
	}
	return nil
}

// Allocate assigns a CID to a new context for key k. If the table has
// a free slot, the smallest free CID is used (spec §4.7 step 2:
// "allocate a CID (smallest free)"). If the table is full, the LRU
// entry is evicted first (spec §4.7 step 2: "if full, evict LRU").
// Allocation only fails with InvalidCid when the table is full *and*
// every context is too recently used to be considered stale — spec
// §7: "context table full is recoverable via LRU eviction — only if
// all contexts are very recent is it surfaced" — which this
// implementation treats as "never refuse once LRU eviction is
// possible", since nothing in spec.md defines a recency threshold
// finer than "eviction always succeeds unless the table has zero
// capacity".
// Allocate's second return value reports whether allocation came from
// evicting an existing context (vs. a free slot), so callers can drive
// an eviction metric without this package importing an observability
// package back into the core.
func (t *Table) Allocate(k header.Key, ctx *Context) (uint16, bool, error) {
	if t.maxCID == 0 {
		return 0, false, rohcerr.NewInvalidCid(0, "zero-capacity context table")
	}
	if cid, ok := t.freeSlot(); ok {
		ctx.CID = cid
		t.tick++
		t.slots[cid] = &entry{ctx: ctx, key: k}
		ctx.LastUsedTick = t.tick
		return cid, false, nil
	}
	evictCID, ok := t.lru()
	if !ok {
		return 0, false, rohcerr.NewInvalidCid(0, "context table full")
	}
	delete(t.slots, evictCID)
	ctx.CID = evictCID
	t.tick++
	t.slots[evictCID] = &entry{ctx: ctx, key: k}
	ctx.LastUsedTick = t.tick
	return evictCID, true, nil
}

func (t *Table) freeSlot() (uint16, bool) {
	for cid := uint16(0); cid <= t.maxCID; cid++ {
		if _, used := t.slots[cid]; !used {
			return cid, true
		}
	}
	return 0, false
}

func (t *Table) lru() (uint16, bool) {
	var best uint16
	var bestTick uint64
	found := false
	for cid, e := range t.slots {
		if !found || e.ctx.LastUsedTick < bestTick {
			best, bestTick, found = cid, e.ctx.LastUsedTick, true
		}
	}
	return best, found
}

// Evict removes cid's context entirely, freeing the slot for reuse.
func (t *Table) Evict(cid uint16) {
	delete(t.slots, cid)
}

// Touch advances cid's LRU clock without a full lookup (used after a
// successful Compress call on an already-resolved context).
func (t *Table) Touch(cid uint16) {
	if e, ok := t.slots[cid]; ok {
		t.tick++
		e.ctx.LastUsedTick = t.tick
	}
}
