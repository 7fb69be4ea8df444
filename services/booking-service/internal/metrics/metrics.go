package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	bookingWrites = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "slotbook",
			Subsystem: "booking",
			Name:      "writes_total",
			Help:      "Appointment writes by operation and outcome.",
		},
		[]string{"op", "outcome"},
	)

	slotQueries = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "slotbook",
			Subsystem: "booking",
			Name:      "slot_query_seconds",
			Help:      "Latency of availability queries.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"kind"},
	)

	blocksCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "slotbook",
			Subsystem: "booking",
			Name:      "blocks_created_total",
			Help:      "Schedule block rows created by recurrence pattern.",
		},
		[]string{"pattern"},
	)
)

// Register registers metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(bookingWrites, slotQueries, blocksCreated)
	})
}

func ObserveWrite(op, outcome string) {
	bookingWrites.WithLabelValues(op, outcome).Inc()
}

func ObserveSlotQuery(kind string, started time.Time) {
	slotQueries.WithLabelValues(kind).Observe(time.Since(started).Seconds())
}

func AddBlocksCreated(pattern string, n int) {
	blocksCreated.WithLabelValues(pattern).Add(float64(n))
}
