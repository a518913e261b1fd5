// Package rohc is the compressor's public API (spec §6.1): Create,
// ActivateProfile, SetRandomCB, SetWLSBWindowWidth,
// SetPeriodicRefreshes, Compress, DeliverFeedback, LastPacketInfo,
// ResetContext, and Close. It wires the classifier, context table,
// profiles, generic engine, feedback handler, CRC tables, logger, and
// rohcmetrics collector together into one compressor instance.
package rohc

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/rohc-go/compressor/internal/logger"
	"github.com/rohc-go/compressor/internal/rohc/classify"
	rohccontext "github.com/rohc-go/compressor/internal/rohc/context"
	"github.com/rohc-go/compressor/internal/rohc/crc"
	"github.com/rohc-go/compressor/internal/rohc/engine"
	"github.com/rohc-go/compressor/internal/rohc/feedback"
	"github.com/rohc-go/compressor/internal/rohc/header"
	"github.com/rohc-go/compressor/internal/rohc/packet"
	"github.com/rohc-go/compressor/internal/rohc/profile"
	"github.com/rohc-go/compressor/internal/rohcerr"
	"github.com/rohc-go/compressor/pkg/rohcmetrics"
	"github.com/rohc-go/compressor/pkg/statsserver"
)

// RandomFunc supplies the per-flow initial sequence number (spec §6.1
// set_random_cb, required before the first Compress call).
type RandomFunc func() uint32

// Compressor is one compressor instance (spec §5: "single-threaded per
// compressor instance; no part of the core is reentrant"). A
// Compressor must not be used from more than one goroutine at a time.
type Compressor struct {
	mode   packet.CIDMode
	maxCID uint16
	mrru   int
	jamUse bool

	enabled map[profile.ID]bool
	random  RandomFunc

	windowWidth int
	engCfg      engine.Config

	table *rohccontext.Table
	eng   *engine.Engine
	crcs  *crc.Tables

	uncompressed *profile.UncompressedProfile
	ipOnly       *profile.IPOnlyProfile
	udp          *profile.UDPProfile

	metrics *rohcmetrics.Collector
}

// Create builds a new Compressor. cidType selects "small" (CID 0-15,
// one Add-CID octet) or "large" (CID 0-16383) framing (spec §6.1).
// jamUse is accepted for interface-compatibility with the spec's
// create signature but has no effect here: it names a reassembly-jam
// byte relevant only to a wire transport, which spec §1's Non-goals
// explicitly exclude from this core.
func Create(cidType string, maxCID int, mrru int, jamUse bool) (*Compressor, error) {
	mode := packet.CIDSmall
	if cidType == "large" {
		mode = packet.CIDLarge
	} else if cidType != "small" {
		return nil, rohcerr.NewUnsupported(0, fmt.Sprintf("unknown cid_type %q", cidType))
	}

	c := &Compressor{
		mode:        mode,
		maxCID:      uint16(maxCID),
		mrru:        mrru,
		jamUse:      jamUse,
		enabled:     make(map[profile.ID]bool),
		windowWidth: profile.WindowWidth,
		engCfg:      engine.DefaultConfig(),
		table:       rohccontext.NewTable(mode, uint16(maxCID)),
		crcs:        crc.Default(),
	}
	c.rebuildProfiles()
	c.eng = engine.New(c.engCfg, c.crcs, c.mode)
	return c, nil
}

func (c *Compressor) rebuildProfiles() {
	c.uncompressed = profile.NewUncompressedProfile(c.crcs.CRC8)
	c.ipOnly = profile.NewIPOnlyProfile(c.windowWidth)
	c.udp = profile.NewUDPProfile(c.windowWidth, c.engCfg.OARepetitions)
}

// ActivateProfile enables a profile; all profiles are disabled by
// default (spec §6.1).
func (c *Compressor) ActivateProfile(id profile.ID) {
	c.enabled[id] = true
}

// SetRandomCB installs the RNG used for new contexts' initial SN
// (spec §6.1, required before the first Compress call).
func (c *Compressor) SetRandomCB(fn RandomFunc) {
	c.random = fn
}

// SetWLSBWindowWidth configures the W-LSB window width for future
// contexts (spec §6.1, default 4). Existing contexts keep their
// already-sized windows.
func (c *Compressor) SetWLSBWindowWidth(w int) {
	if w <= 0 {
		return
	}
	c.windowWidth = w
	c.rebuildProfiles()
}

// SetPeriodicRefreshes configures ir_timeout/fo_timeout (spec §6.1,
// defaults 1700/700).
func (c *Compressor) SetPeriodicRefreshes(irTimeout, foTimeout uint32) {
	c.engCfg.IRTimeout = irTimeout
	c.engCfg.FOTimeout = foTimeout
	c.eng = engine.New(c.engCfg, c.crcs, c.mode)
	c.rebuildProfiles()
}

// SetOARepetitions configures oa_repetitions_nr (spec §4.1.1, typ. 3).
func (c *Compressor) SetOARepetitions(n uint32) {
	c.engCfg.OARepetitions = n
	c.eng = engine.New(c.engCfg, c.crcs, c.mode)
	c.rebuildProfiles()
}

// SetMetrics attaches a rohcmetrics.Collector; pass nil to disable
// metrics collection entirely.
func (c *Compressor) SetMetrics(m *rohcmetrics.Collector) {
	c.metrics = m
}

// Compress compresses one IP packet, writing the compressed ROHC
// packet into out and returning the number of bytes written (spec
// §6.1 compress). On BufferTooSmall or Unsupported, the context is
// left untouched (spec §4.1.5).
func (c *Compressor) Compress(ipBytes []byte, out []byte) (int, error) {
	pkt, err := classify.Parse(ipBytes)
	if err != nil {
		return 0, err
	}

	key := header.KeyOf(pkt)
	ctx := c.table.Lookup(key)
	if ctx == nil {
		ctx, err = c.createContext(key, pkt)
		if err != nil {
			return 0, err
		}
	} else {
		c.table.Touch(ctx.CID)
	}

	var written int
	if ctx.ProfileID == profile.Uncompressed {
		written, err = c.compressUncompressed(ctx, ipBytes, out)
	} else {
		written, err = c.compressGeneric(ctx, pkt, out)
	}
	if err != nil {
		if c.metrics != nil {
			if rerr, ok := err.(*rohcerr.Error); ok {
				c.metrics.CompressError(rerr)
			}
		}
		return 0, err
	}
	return written, nil
}

func (c *Compressor) createContext(key header.Key, pkt *header.Packet) (*rohccontext.Context, error) {
	id := c.chooseProfile(pkt)
	if id == "" {
		return nil, rohcerr.NewProfileDisabled("no enabled profile matches this packet")
	}

	var sn uint32
	if c.random != nil {
		sn = c.random()
	}

	ctx := &rohccontext.Context{
		ProfileID: id,
		Mode:      rohccontext.ModeU,
		Phase:     rohccontext.IR,
		TraceID:   uuid.NewString(),
	}

	switch id {
	case profile.Uncompressed:
		ctx.UncompressedSt, ctx.UncompressedPh = c.uncompressed.InitPhase()
	case profile.IPOnly:
		ctx.Specific = c.ipOnly.InitAtIR(pkt, sn)
	case profile.UDP:
		ctx.Specific = c.udp.InitAtIR(pkt, sn)
	}

	cid, evicted, err := c.table.Allocate(key, ctx)
	if err != nil {
		return nil, err
	}
	ctx.CID = cid
	if c.metrics != nil {
		c.metrics.ContextCreated()
		if evicted {
			c.metrics.ContextEvicted()
		}
	}
	logger.Debug("context created", "cid", cid, "profile_id", string(id))
	return ctx, nil
}

// chooseProfile implements spec §4.7 step 4's "best-matching enabled
// profile": prefer UDP when the packet carries a UDP header and UDP is
// enabled, else IP-only, else the universal Uncompressed fallback.
func (c *Compressor) chooseProfile(pkt *header.Packet) profile.ID {
	if pkt.UDP != nil && c.enabled[profile.UDP] {
		return profile.UDP
	}
	if c.enabled[profile.IPOnly] {
		return profile.IPOnly
	}
	if c.enabled[profile.Uncompressed] {
		return profile.Uncompressed
	}
	return ""
}

func (c *Compressor) compressGeneric(ctx *rohccontext.Context, pkt *header.Packet, out []byte) (int, error) {
	var p profile.Profile
	switch ctx.ProfileID {
	case profile.IPOnly:
		p = c.ipOnly
	case profile.UDP:
		p = c.udp
	default:
		return 0, rohcerr.NewUnsupported(ctx.CID, "context profile has no generic engine binding")
	}

	prevPhase := ctx.Phase
	result, err := c.eng.Encode(p, ctx.Specific, ctx, pkt, out)
	if err != nil {
		return 0, err
	}

	ctx.LastPacket = rohccontext.PacketInfo{
		Valid:          true,
		PacketType:     result.Type,
		ContextID:      ctx.CID,
		ProfileID:      ctx.ProfileID,
		Phase:          result.NewPhase,
		NumSentPackets: ctx.NumSentPackets,
		SNWindowSize:   snWindowSize(ctx.Specific),
	}
	if c.metrics != nil {
		c.metrics.PacketSent(result.Type)
		if result.NewPhase != prevPhase {
			c.metrics.StateTransition(result.NewPhase)
		}
	}
	return result.Written, nil
}

func snWindowSize(st profile.State) int {
	gs, ok := st.(*profile.GenericState)
	if !ok || gs.SNWindow == nil {
		return 0
	}
	return gs.SNWindow.Len()
}

func (c *Compressor) compressUncompressed(ctx *rohccontext.Context, ipBytes []byte, out []byte) (int, error) {
	phase := c.uncompressed.DecidePhase(ctx.UncompressedSt, ctx.UncompressedPh, int(c.engCfg.IRTimeout))

	var payloadOffset int
	var err error
	var payload []byte
	var packetType packet.Type

	if phase == profile.UncompressedIR {
		payloadOffset, err = c.uncompressed.EncodeIR(c.mode, ctx.CID, out)
		payload = ipBytes
		packetType = packet.TypeIR
	} else {
		if err := profile.ValidateUncompressedPayload(nil, ipBytes); err != nil {
			return 0, err
		}
		payloadOffset, err = c.uncompressed.EncodeNormal(c.mode, ctx.CID, ipBytes[0], out)
		payload = ipBytes[1:]
		packetType = packet.TypeNormal
	}
	if err != nil {
		return 0, err
	}
	if payloadOffset+len(payload) > len(out) {
		return 0, rohcerr.NewBufferTooSmall(ctx.CID, payloadOffset+len(payload), len(out))
	}
	n := copy(out[payloadOffset:], payload)
	written := payloadOffset + n

	wasFO := ctx.UncompressedPh == profile.UncompressedFO
	if phase == profile.UncompressedIR {
		ctx.UncompressedSt.IRCount++
		if wasFO {
			ctx.UncompressedSt.GoBackIRCount++
		}
	} else {
		ctx.UncompressedSt.NormalCount++
	}
	ctx.UncompressedPh = phase
	ctx.NumSentPackets++

	ctx.LastPacket = rohccontext.PacketInfo{
		Valid:          true,
		PacketType:     packetType,
		ContextID:      ctx.CID,
		ProfileID:      ctx.ProfileID,
		NumSentPackets: ctx.NumSentPackets,
	}
	if c.metrics != nil {
		c.metrics.PacketSent(packetType)
	}
	return written, nil
}

// DeliverFeedback parses and applies one feedback packet (spec §6.1
// deliver_feedback, §4.7). Malformed feedback is discarded silently at
// the protocol layer; the returned error lets the caller observe the
// rejection without being required to act on it.
func (c *Compressor) DeliverFeedback(data []byte) error {
	cid, consumed, err := packet.DecodeCID(c.mode, data)
	if err != nil {
		if c.metrics != nil {
			c.metrics.FeedbackRejected("bad_cid")
		}
		return err
	}
	rest := data[consumed:]

	ctx := c.table.Get(cid)
	if ctx == nil {
		if c.metrics != nil {
			c.metrics.FeedbackRejected("unknown_cid")
		}
		return rohcerr.NewInvalidFeedback("no context for feedback CID")
	}

	var fb feedback.Feedback
	if len(rest) == 0 {
		if c.metrics != nil {
			c.metrics.FeedbackRejected("empty")
		}
		return rohcerr.NewInvalidFeedback("empty feedback payload")
	}
	if len(rest) == 1 {
		fb = feedback.ParseType1(uint32(rest[0]))
	} else {
		fb, err = feedback.ParseType2(rest, c.crcs.CRC8)
		if err != nil {
			logger.DebugCtx(nil, "feedback rejected", "cid", cid, "error", err)
			if c.metrics != nil {
				c.metrics.FeedbackRejected("bad_crc_or_truncated")
			}
			return err
		}
	}

	purge := func(upToSN uint32) {
		if gs, ok := ctx.Specific.(*profile.GenericState); ok {
			gs.SNWindow.Purge(upToSN)
			gs.OuterIPIDWindow.Purge(upToSN)
			if gs.InnerIPIDWindow != nil {
				gs.InnerIPIDWindow.Purge(upToSN)
			}
		}
	}
	resetToIR := func() {
		ctx.ResetToIR(ctx.Specific)
	}
	feedback.Apply(ctx, fb, purge, resetToIR)
	if c.metrics != nil {
		c.metrics.FeedbackAccepted(ackTypeName(fb.AckType))
	}
	return nil
}

func ackTypeName(a feedback.AckType) string {
	switch a {
	case feedback.AckTypeACK:
		return "ack"
	case feedback.AckTypeNACK:
		return "nack"
	case feedback.AckTypeSTATICNACK:
		return "static_nack"
	default:
		return "reserved"
	}
}

// LastPacketInfo returns the last successful Compress call's summary
// for cid (SPEC_FULL §C.1), and false if cid has no context.
func (c *Compressor) LastPacketInfo(cid uint16) (rohccontext.PacketInfo, bool) {
	ctx := c.table.Get(cid)
	if ctx == nil {
		return rohccontext.PacketInfo{}, false
	}
	return ctx.LastPacket, true
}

// ResetContext forces cid back to IR state without deallocating its
// CID slot (SPEC_FULL §C.2), distinct from LRU eviction.
func (c *Compressor) ResetContext(cid uint16) error {
	ctx := c.table.Get(cid)
	if ctx == nil {
		return rohcerr.NewInvalidCid(cid, "no context to reset")
	}
	ctx.ResetToIR(ctx.Specific)
	return nil
}

// Snapshot implements statsserver.SnapshotSource.
func (c *Compressor) Snapshot() []statsserver.StatsSnapshot {
	all := c.table.All()
	out := make([]statsserver.StatsSnapshot, 0, len(all))
	for _, ctx := range all {
		out = append(out, statsserver.StatsSnapshot{
			CID:            ctx.LastPacket.ContextID,
			ProfileID:      string(ctx.ProfileID),
			PacketType:     ctx.LastPacket.PacketType.String(),
			Phase:          ctx.Phase.String(),
			NumSentPackets: ctx.NumSentPackets,
			SNWindowSize:   snWindowSize(ctx.Specific),
		})
	}
	return out
}

// Close releases the compressor instance (spec §6.1 free). There is
// no off-heap resource to release; this exists for API symmetry and so
// callers can defer a teardown call uniformly.
func (c *Compressor) Close() {
	c.table = rohccontext.NewTable(c.mode, c.maxCID)
}
