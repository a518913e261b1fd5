// Package rohcmetrics is the compressor's Prometheus observability
// surface (SPEC_FULL §B), following the teacher's pkg/metrics shape: a
// nil-safe Collector returned by New, checked for nil at every call
// site so metrics collection is zero-overhead when disabled.
package rohcmetrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/rohc-go/compressor/internal/rohc/context"
	"github.com/rohc-go/compressor/internal/rohc/packet"
	"github.com/rohc-go/compressor/internal/rohcerr"
)

// Collector counts packets sent by type, state transitions, context
// lifecycle events, and feedback outcomes. A nil *Collector is valid:
// every method no-ops on a nil receiver, matching the teacher's
// "return nil when disabled, nil-checked at every call site" pattern.
type Collector struct {
	packetsSent       *prometheus.CounterVec
	stateTransitions  *prometheus.CounterVec
	contextsCreated   prometheus.Counter
	contextsEvicted   prometheus.Counter
	feedbackAccepted  *prometheus.CounterVec
	feedbackRejected  *prometheus.CounterVec
	errorsByCode      *prometheus.CounterVec
}

// New builds a Collector registered against reg. Pass nil to disable
// metrics collection entirely — callers then hold a nil *Collector and
// every call below is a no-op.
func New(reg prometheus.Registerer) *Collector {
	if reg == nil {
		return nil
	}
	return &Collector{
		packetsSent: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "rohc_packets_sent_total",
			Help: "Total compressed packets emitted, by packet type.",
		}, []string{"packet_type"}),
		stateTransitions: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "rohc_state_transitions_total",
			Help: "Total context phase transitions, by destination phase.",
		}, []string{"phase"}),
		contextsCreated: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "rohc_contexts_created_total",
			Help: "Total contexts allocated in the context table.",
		}),
		contextsEvicted: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "rohc_contexts_evicted_total",
			Help: "Total contexts evicted (LRU) from the context table.",
		}),
		feedbackAccepted: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "rohc_feedback_accepted_total",
			Help: "Total feedback packets successfully applied, by ack type.",
		}, []string{"ack_type"}),
		feedbackRejected: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "rohc_feedback_rejected_total",
			Help: "Total feedback packets discarded (bad CRC, truncated TLV, unknown type).",
		}, []string{"reason"}),
		errorsByCode: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "rohc_compress_errors_total",
			Help: "Total Compress errors, by rohcerr.Code.",
		}, []string{"code"}),
	}
}

func (c *Collector) PacketSent(t packet.Type) {
	if c == nil {
		return
	}
	c.packetsSent.WithLabelValues(t.String()).Inc()
}

func (c *Collector) StateTransition(newPhase context.Phase) {
	if c == nil {
		return
	}
	c.stateTransitions.WithLabelValues(newPhase.String()).Inc()
}

func (c *Collector) ContextCreated() {
	if c == nil {
		return
	}
	c.contextsCreated.Inc()
}

func (c *Collector) ContextEvicted() {
	if c == nil {
		return
	}
	c.contextsEvicted.Inc()
}

func (c *Collector) FeedbackAccepted(ackType string) {
	if c == nil {
		return
	}
	c.feedbackAccepted.WithLabelValues(ackType).Inc()
}

func (c *Collector) FeedbackRejected(reason string) {
	if c == nil {
		return
	}
	c.feedbackRejected.WithLabelValues(reason).Inc()
}

func (c *Collector) CompressError(err *rohcerr.Error) {
	if c == nil || err == nil {
		return
	}
	c.errorsByCode.WithLabelValues(err.Code.String()).Inc()
}
