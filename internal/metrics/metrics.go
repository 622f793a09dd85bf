package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "citas",
			Name:      "http_requests_total",
			Help:      "HTTP requests by endpoint and status class.",
		},
		[]string{"endpoint", "status"},
	)

	bookingsCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "citas",
			Name:      "bookings_created_total",
			Help:      "Bookings persisted successfully.",
		},
	)

	bookingFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "citas",
			Name:      "booking_failures_total",
			Help:      "Booking submissions that failed, by reason.",
		},
		[]string{"reason"},
	)

	calendarFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "citas",
			Name:      "calendar_event_failures_total",
			Help:      "Calendar events that could not be created for a persisted booking.",
		},
	)

	busyFetchFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "citas",
			Name:      "busy_fetch_failures_total",
			Help:      "Busy-interval lookups that failed and fell open.",
		},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(
			httpRequests,
			bookingsCreated,
			bookingFailures,
			calendarFailures,
			busyFetchFailures,
		)
	})
}

// IncHTTP increments the request counter for an endpoint and status class.
func IncHTTP(endpoint, status string) {
	httpRequests.WithLabelValues(endpoint, status).Inc()
}

// IncBookingCreated counts a successfully persisted booking.
func IncBookingCreated() {
	bookingsCreated.Inc()
}

// IncBookingFailure counts a failed submission by reason label.
func IncBookingFailure(reason string) {
	bookingFailures.WithLabelValues(reason).Inc()
}

// IncCalendarFailure counts a booking whose calendar event failed.
func IncCalendarFailure() {
	calendarFailures.Inc()
}

// IncBusyFetchFailure counts a busy lookup that fell open.
func IncBusyFetchFailure() {
	busyFetchFailures.Inc()
}
