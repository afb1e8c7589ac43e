package metrics

import "github.com/prometheus/client_golang/prometheus"

// SchedulingMetrics exposes counters for availability and booking flows.
type SchedulingMetrics struct {
	windowsCreated    prometheus.Counter
	slotsCreated      prometheus.Counter
	conflictsRejected prometheus.Counter
	recurringSkips    prometheus.Counter
	slotBookings      *prometheus.CounterVec
}

func NewSchedulingMetrics(reg prometheus.Registerer) *SchedulingMetrics {
	m := &SchedulingMetrics{
		windowsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "healthfirst",
			Subsystem: "availability",
			Name:      "windows_created_total",
			Help:      "Total availability windows created",
		}),
		slotsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "healthfirst",
			Subsystem: "availability",
			Name:      "slots_created_total",
			Help:      "Total appointment slots generated",
		}),
		conflictsRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "healthfirst",
			Subsystem: "availability",
			Name:      "conflicts_rejected_total",
			Help:      "Creation requests rejected due to overlapping windows",
		}),
		recurringSkips: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "healthfirst",
			Subsystem: "availability",
			Name:      "recurring_dates_skipped_total",
			Help:      "Dates skipped during best-effort recurring creation",
		}),
		slotBookings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "healthfirst",
			Subsystem: "availability",
			Name:      "slot_bookings_total",
			Help:      "Slot booking attempts",
		}, []string{"outcome"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.windowsCreated, m.slotsCreated, m.conflictsRejected, m.recurringSkips, m.slotBookings)
	return m
}

func (m *SchedulingMetrics) ObserveWindowCreated(slots int) {
	if m == nil {
		return
	}
	m.windowsCreated.Inc()
	m.slotsCreated.Add(float64(slots))
}

func (m *SchedulingMetrics) ObserveConflictRejected() {
	if m == nil {
		return
	}
	m.conflictsRejected.Inc()
}

func (m *SchedulingMetrics) ObserveRecurringSkip() {
	if m == nil {
		return
	}
	m.recurringSkips.Inc()
}

func (m *SchedulingMetrics) ObserveBooking(outcome string) {
	if m == nil {
		return
	}
	m.slotBookings.WithLabelValues(outcome).Inc()
}
