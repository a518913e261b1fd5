// Package feedback implements the decompressor-to-compressor feedback
// channel of spec §4.7: type-1 ACKs that purge W-LSB windows, and
// type-2 FEEDBACK-2 TLV packets that can force a phase or mode change.
package feedback

import (
	"github.com/rohc-go/compressor/internal/rohc/context"
	"github.com/rohc-go/compressor/internal/rohc/crc"
	"github.com/rohc-go/compressor/internal/rohcerr"
)

// AckType is FEEDBACK-2's 4-bit ack-type field (spec §4.7).
type AckType uint8

const (
	AckTypeACK         AckType = 0
	AckTypeNACK        AckType = 1
	AckTypeSTATICNACK  AckType = 2
	AckTypeRESERVED    AckType = 3
)

// Option TLV type codes (spec §4.7).
const (
	optCRC        = 1
	optReject     = 2
	optSNNotValid = 3
	optSN         = 4
	optLoss       = 7
)

// Feedback is the parsed result of one feedback packet, either type 1
// (a bare ACK SN with no TLV options) or type 2 (full header + options).
type Feedback struct {
	IsType2     bool
	AckType     AckType
	Mode        context.Mode
	SN          uint32
	HasValidCRC bool
}

// ParseType1 handles spec §4.7's feedback type 1: an ACK carrying just
// the acknowledged SN, no TLV options, no CRC gate.
func ParseType1(sn uint32) Feedback {
	return Feedback{IsType2: false, AckType: AckTypeACK, SN: sn}
}

// ParseType2 parses a FEEDBACK-2 packet: 4-bit ack-type + 4-bit mode +
// 8-bit SN-LSB header byte, followed by TLV options (spec §4.7).
// Unknown option types are logged by the caller and ignored here,
// matching "unknown opts logged and ignored". A CRC mismatch causes
// the whole feedback packet to be discarded silently, returning
// rohcerr.InvalidFeedback so DeliverFeedback can report it while the
// caller remains free to ignore the error per the "ok | invalid"
// contract of spec §6.1.
func ParseType2(data []byte, crc8 *crc.Table) (Feedback, error) {
	if len(data) < 2 {
		return Feedback{}, rohcerr.NewInvalidFeedback("feedback too short for header")
	}
	fb := Feedback{IsType2: true}
	fb.AckType = AckType(data[0] >> 4)
	fb.Mode = modeFromBits(data[0] & 0x0F)
	fb.SN = uint32(data[1])

	options := data[2:]
	crcByteOffset := -1
	for i := 0; i < len(options); {
		optType := options[i] >> 4
		optLen := int(options[i]&0x0F) + 1
		i++
		if i+optLen > len(options) {
			return Feedback{}, rohcerr.NewInvalidFeedback("truncated feedback option")
		}
		switch optType {
		case optCRC:
			crcByteOffset = 2 + i
		case optReject, optSNNotValid, optSN, optLoss:
			// handled per RFC by the caller; nothing to validate here.
		default:
			// unknown option: caller logs, we ignore.
		}
		i += optLen
	}

	if crcByteOffset < 0 {
		return fb, nil
	}
	if crcByteOffset >= len(data) {
		return Feedback{}, rohcerr.NewInvalidFeedback("CRC option out of range")
	}
	check := make([]byte, len(data))
	copy(check, data)
	originalByte := check[crcByteOffset]
	check[crcByteOffset] = 0
	computed := crc8.Compute(check)
	if computed != originalByte {
		return Feedback{}, rohcerr.NewInvalidFeedback("feedback CRC mismatch")
	}
	fb.HasValidCRC = true
	return fb, nil
}

func modeFromBits(b uint8) context.Mode {
	switch b {
	case 1:
		return context.ModeO
	case 2:
		return context.ModeR
	default:
		return context.ModeU
	}
}

// Apply folds a parsed Feedback into ctx per spec §4.7's ack-type
// table: ACK purges the W-LSB windows up to SN (via purge, supplied by
// the caller since window ownership is profile-specific), NACK forces
// FO, STATIC-NACK forces IR, RESERVED is a caller-side log-and-drop
// (this function treats it as a no-op). A mode change is only honored
// when fb.HasValidCRC, per spec §4.7's "only if the feedback carried a
// valid CRC option".
func Apply(ctx *context.Context, fb Feedback, purge func(upToSN uint32), resetToIR func()) {
	switch fb.AckType {
	case AckTypeACK:
		if purge != nil {
			purge(fb.SN)
		}
	case AckTypeNACK:
		if ctx.Phase == context.SO {
			ctx.Phase = context.FO
			ctx.NumSentInCurrentState = 0
		}
	case AckTypeSTATICNACK:
		if resetToIR != nil {
			resetToIR()
		}
	default: // RESERVED
	}

	if fb.IsType2 && fb.HasValidCRC && fb.Mode != ctx.Mode {
		ctx.Mode = fb.Mode
	}
}
