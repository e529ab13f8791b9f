package observability

import (
	"telldus-bridge/internal/domain/model"
	"telldus-bridge/internal/ports"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	resultOK    = "ok"
	resultError = "error"
)

// PromMetrics implements ports.Metrics with Prometheus counters.
type PromMetrics struct {
	cacheReads *prometheus.CounterVec
	commands   *prometheus.CounterVec
	patches    *prometheus.CounterVec
}

var _ ports.Metrics = (*PromMetrics)(nil)

// NewPromMetrics registers the bridge's counters with reg.
func NewPromMetrics(reg prometheus.Registerer) *PromMetrics {
	m := &PromMetrics{
		cacheReads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "telldus_cache_reads_total",
			Help: "Collection reads by collection and the source that served them.",
		}, []string{"collection", "source"}),
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "telldus_commands_total",
			Help: "Requests sent to the Telldus API by command and result.",
		}, []string{"command", "result"}),
		patches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "telldus_cache_patches_total",
			Help: "Optimistic device cache patches by field.",
		}, []string{"field"}),
	}
	reg.MustRegister(m.cacheReads, m.commands, m.patches)
	return m
}

func (m *PromMetrics) CacheRead(collection string, source model.Source) {
	m.cacheReads.WithLabelValues(collection, string(source)).Inc()
}

func (m *PromMetrics) CommandIssued(command string, err error) {
	result := resultOK
	if err != nil {
		result = resultError
	}
	m.commands.WithLabelValues(command, result).Inc()
}

func (m *PromMetrics) CachePatched(field string) {
	m.patches.WithLabelValues(field).Inc()
}
