package queue

import "github.com/prometheus/client_golang/prometheus"

var (
	// QueueEnqueuedTotal counts tasks handed to asynq grouped by result.
	QueueEnqueuedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "queue_enqueued_total",
			Help: "Total tasks enqueued grouped by kind and result",
		},
		[]string{"kind", "result"},
	)
	// QueueProcessedTotal counts handled tasks grouped by status.
	QueueProcessedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "queue_processed_total",
			Help: "Total tasks processed grouped by status",
		},
		[]string{"kind", "status"},
	)
)

func init() {
	prometheus.MustRegister(QueueEnqueuedTotal, QueueProcessedTotal)
}
