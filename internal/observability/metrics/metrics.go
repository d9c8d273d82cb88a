package metrics

import "github.com/prometheus/client_golang/prometheus"

// LeadMetrics exposes counters/histograms for the lead capture flow.
type LeadMetrics struct {
	submissions    *prometheus.CounterVec
	fallbackWrites *prometheus.CounterVec
	remoteLatency  *prometheus.HistogramVec
	prompts        *prometheus.CounterVec
}

func NewLeadMetrics(reg prometheus.Registerer) *LeadMetrics {
	m := &LeadMetrics{
		submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "oneroot",
			Subsystem: "leads",
			Name:      "submissions_total",
			Help:      "Lead submissions by trigger and where they were stored",
		}, []string{"source", "durability"}),
		fallbackWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "oneroot",
			Subsystem: "leads",
			Name:      "fallback_writes_total",
			Help:      "Writes to the local fallback store",
		}, []string{"status"}),
		remoteLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "oneroot",
			Subsystem: "leads",
			Name:      "remote_latency_seconds",
			Help:      "Latency of remote lead table calls",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op", "status"}),
		prompts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "oneroot",
			Subsystem: "prompt",
			Name:      "transitions_total",
			Help:      "Prompt scheduler transitions by target state",
		}, []string{"state"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.submissions, m.fallbackWrites, m.remoteLatency, m.prompts)
	return m
}

func (m *LeadMetrics) ObserveSubmission(source, durability string) {
	if m == nil {
		return
	}
	m.submissions.WithLabelValues(source, durability).Inc()
}

func (m *LeadMetrics) ObserveFallbackWrite(ok bool) {
	if m == nil {
		return
	}
	status := "ok"
	if !ok {
		status = "error"
	}
	m.fallbackWrites.WithLabelValues(status).Inc()
}

func (m *LeadMetrics) ObserveRemote(op string, err error, seconds float64) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.remoteLatency.WithLabelValues(op, status).Observe(seconds)
}

func (m *LeadMetrics) ObservePromptTransition(state string) {
	if m == nil {
		return
	}
	m.prompts.WithLabelValues(state).Inc()
}
