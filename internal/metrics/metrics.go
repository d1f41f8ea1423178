package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "oden_lounge"

var (
	once sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status code.",
		},
		[]string{"route", "code"},
	)

	reservations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reservations_total",
			Help:      "Reservation lifecycle events by status.",
		},
		[]string{"status"},
	)

	emails = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "emails_sent_total",
			Help:      "Outgoing emails by template kind and result.",
		},
		[]string{"kind", "result"},
	)

	galleryOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gallery_operations_total",
			Help:      "Gallery uploads and deletions by result.",
		},
		[]string{"op", "result"},
	)

	pendingMediaDeletes = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "gallery_pending_deletes",
			Help:      "Tombstoned gallery items seen by the last reconciler pass.",
		},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(httpRequests, reservations, emails, galleryOps, pendingMediaDeletes)
	})
}

func IncHTTP(route, code string) {
	httpRequests.WithLabelValues(route, code).Inc()
}

func IncReservation(status string) {
	reservations.WithLabelValues(status).Inc()
}

func IncEmail(kind string, err error) {
	emails.WithLabelValues(kind, result(err)).Inc()
}

func IncGallery(op string, err error) {
	galleryOps.WithLabelValues(op, result(err)).Inc()
}

func SetPendingMediaDeletes(n int) {
	pendingMediaDeletes.Set(float64(n))
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
