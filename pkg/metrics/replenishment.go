package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// ReplenishmentMetrics tracks the inventory engine's business counters.
type ReplenishmentMetrics struct {
	deficits   prometheus.Gauge
	warnings   *prometheus.CounterVec
	drafts     *prometheus.CounterVec
	deliveries *prometheus.CounterVec
	movements  *prometheus.CounterVec
}

// NewReplenishmentMetrics registers the replenishment metrics on reg. A nil
// registerer yields a no-op recorder.
func NewReplenishmentMetrics(reg prometheus.Registerer) *ReplenishmentMetrics {
	if reg == nil {
		return &ReplenishmentMetrics{}
	}
	deficits := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "larder_stock_deficits",
		Help: "Ingredients below minimum stock at the last scan.",
	})
	warnings := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "larder_replenishment_warnings_total",
		Help: "Data-quality warnings raised while computing deficits or drafts.",
	}, []string{"type"})
	drafts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "larder_purchase_orders_created_total",
		Help: "Draft purchase orders created.",
	}, []string{"source"})
	deliveries := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "larder_deliveries_applied_total",
		Help: "Deliveries applied to purchase orders by resulting status.",
	}, []string{"status"})
	movements := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "larder_stock_movements_total",
		Help: "Stock movements recorded by kind.",
	}, []string{"kind"})
	reg.MustRegister(deficits, warnings, drafts, deliveries, movements)
	return &ReplenishmentMetrics{
		deficits:   deficits,
		warnings:   warnings,
		drafts:     drafts,
		deliveries: deliveries,
		movements:  movements,
	}
}

// SetDeficits records how many ingredients were short at the last scan.
func (m *ReplenishmentMetrics) SetDeficits(count int) {
	if m == nil || m.deficits == nil {
		return
	}
	m.deficits.Set(float64(count))
}

// IncWarning counts one warning of the given type.
func (m *ReplenishmentMetrics) IncWarning(kind string) {
	if m == nil || m.warnings == nil {
		return
	}
	m.warnings.WithLabelValues(normalizeLabel(kind)).Inc()
}

// AddDrafts counts created drafts by source (generated or manual).
func (m *ReplenishmentMetrics) AddDrafts(source string, n int) {
	if m == nil || m.drafts == nil || n <= 0 {
		return
	}
	m.drafts.WithLabelValues(normalizeLabel(source)).Add(float64(n))
}

// IncDelivery counts one applied delivery by resulting order status.
func (m *ReplenishmentMetrics) IncDelivery(status string) {
	if m == nil || m.deliveries == nil {
		return
	}
	m.deliveries.WithLabelValues(normalizeLabel(status)).Inc()
}

// IncMovement counts one recorded stock movement.
func (m *ReplenishmentMetrics) IncMovement(kind string) {
	if m == nil || m.movements == nil {
		return
	}
	m.movements.WithLabelValues(normalizeLabel(kind)).Inc()
}
