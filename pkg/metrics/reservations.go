package metrics

import "github.com/prometheus/client_golang/prometheus"

// ReservationMetrics counts reservation outcomes per error kind.
type ReservationMetrics struct {
	attempts *prometheus.CounterVec
	released *prometheus.CounterVec
}

// NewReservationMetrics registers reservation counters on the provided registerer.
func NewReservationMetrics(reg prometheus.Registerer) *ReservationMetrics {
	if reg == nil {
		return &ReservationMetrics{}
	}
	attempts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "reservation_attempts_total",
		Help: "Reservation attempts labeled by outcome.",
	}, []string{"outcome"})
	released := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "reservation_capacity_released_total",
		Help: "Capacity units released back to sessions.",
	}, []string{"reason"})
	reg.MustRegister(attempts, released)
	return &ReservationMetrics{attempts: attempts, released: released}
}

// IncAttempt records one reservation attempt with the given outcome label.
func (m *ReservationMetrics) IncAttempt(outcome string) {
	if m == nil || m.attempts == nil {
		return
	}
	m.attempts.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// AddReleased records capacity units restored to a session.
func (m *ReservationMetrics) AddReleased(reason string, units int) {
	if m == nil || m.released == nil || units <= 0 {
		return
	}
	m.released.WithLabelValues(normalizeLabel(reason)).Add(float64(units))
}
