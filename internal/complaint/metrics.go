package complaint

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds Prometheus metrics for the complaint subsystem. A nil
// *Metrics is a valid no-op receiver so tests and callers without a
// registry can skip instrumentation.
type Metrics struct {
	SubmitsTotal     *prometheus.CounterVec
	ClassifiesTotal  *prometheus.CounterVec
	ClassifyDuration prometheus.Histogram
	SummarizesTotal  *prometheus.CounterVec
	ReassignsTotal   prometheus.Counter
	ResolvesTotal    prometheus.Counter
	ProofBytes       prometheus.Histogram
}

// NewMetrics registers and returns complaint metrics on the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		SubmitsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "redress_submits_total",
			Help: "Total complaint submissions by result.",
		}, []string{"result"}),
		ClassifiesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "redress_classifies_total",
			Help: "Total classification runs by final status.",
		}, []string{"status"}),
		ClassifyDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "redress_classify_duration_seconds",
			Help:    "Duration of classification runs in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms .. ~40s
		}),
		SummarizesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "redress_summarizes_total",
			Help: "Total AI summarize calls by outcome.",
		}, []string{"outcome"}),
		ReassignsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "redress_reassigns_total",
			Help: "Total administrative category reassignments.",
		}),
		ResolvesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "redress_resolves_total",
			Help: "Total complaint resolutions.",
		}),
		ProofBytes: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "redress_proof_bytes",
			Help:    "Size of uploaded resolution proofs in bytes.",
			Buckets: prometheus.ExponentialBuckets(1024, 4, 8), // 1KB .. ~16MB
		}),
	}

	reg.MustRegister(
		m.SubmitsTotal,
		m.ClassifiesTotal,
		m.ClassifyDuration,
		m.SummarizesTotal,
		m.ReassignsTotal,
		m.ResolvesTotal,
		m.ProofBytes,
	)

	return m
}

func (m *Metrics) IncSubmit(result string) {
	if m != nil {
		m.SubmitsTotal.WithLabelValues(result).Inc()
	}
}

func (m *Metrics) IncClassify(status Status, seconds float64) {
	if m != nil {
		m.ClassifiesTotal.WithLabelValues(string(status)).Inc()
		m.ClassifyDuration.Observe(seconds)
	}
}

func (m *Metrics) IncSummarize(outcome string) {
	if m != nil {
		m.SummarizesTotal.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) IncReassign() {
	if m != nil {
		m.ReassignsTotal.Inc()
	}
}

func (m *Metrics) IncResolve() {
	if m != nil {
		m.ResolvesTotal.Inc()
	}
}

func (m *Metrics) ObserveProofBytes(n int) {
	if m != nil {
		m.ProofBytes.Observe(float64(n))
	}
}
