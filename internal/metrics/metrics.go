package metrics

import "github.com/prometheus/client_golang/prometheus"

// BookingMetrics exposes counters for the booking lifecycle.
// A nil *BookingMetrics is valid and records nothing.
type BookingMetrics struct {
	bookings        *prometheus.CounterVec
	transitions     *prometheus.CounterVec
	reconciliations *prometheus.CounterVec
	notifications   *prometheus.CounterVec
	slotLatency     *prometheus.HistogramVec
}

func NewBookingMetrics(reg prometheus.Registerer) *BookingMetrics {
	m := &BookingMetrics{
		bookings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "salon",
			Subsystem: "booking",
			Name:      "appointments_created_total",
			Help:      "Appointment creation attempts by channel and outcome",
		}, []string{"channel", "outcome"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "salon",
			Subsystem: "booking",
			Name:      "status_transitions_total",
			Help:      "Appointment status transitions by target status and outcome",
		}, []string{"status", "outcome"}),
		reconciliations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "salon",
			Subsystem: "payments",
			Name:      "reconciliations_total",
			Help:      "Payment reconciliations by source and result",
		}, []string{"source", "result"}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "salon",
			Subsystem: "notify",
			Name:      "notifications_total",
			Help:      "Notification sends by kind and status",
		}, []string{"kind", "status"}),
		slotLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "salon",
			Subsystem: "booking",
			Name:      "availability_seconds",
			Help:      "Latency of availability computation",
			Buckets:   prometheus.DefBuckets,
		}, []string{"cache"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.bookings, m.transitions, m.reconciliations, m.notifications, m.slotLatency)
	return m
}

func (m *BookingMetrics) ObserveBooking(channel, outcome string) {
	if m == nil {
		return
	}
	m.bookings.WithLabelValues(channel, outcome).Inc()
}

func (m *BookingMetrics) ObserveTransition(status, outcome string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(status, outcome).Inc()
}

func (m *BookingMetrics) ObserveReconciliation(source, result string) {
	if m == nil {
		return
	}
	m.reconciliations.WithLabelValues(source, result).Inc()
}

func (m *BookingMetrics) ObserveNotification(kind string, err error) {
	if m == nil {
		return
	}
	status := "sent"
	if err != nil {
		status = "failed"
	}
	m.notifications.WithLabelValues(kind, status).Inc()
}

func (m *BookingMetrics) ObserveAvailability(cacheHit bool, seconds float64) {
	if m == nil {
		return
	}
	label := "miss"
	if cacheHit {
		label = "hit"
	}
	m.slotLatency.WithLabelValues(label).Observe(seconds)
}

// Outcome labels an operation result by its business code.
func Outcome(code string, ok bool) string {
	if ok {
		return "ok"
	}
	if code == "" {
		return "error"
	}
	return code
}
