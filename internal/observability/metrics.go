package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce             sync.Once
	httpDurationHistogram    *prometheus.HistogramVec
	projectionFailureCounter *prometheus.CounterVec
	consistencyFaultCounter  *prometheus.CounterVec
	idempotencyCounter       *prometheus.CounterVec
	workerRunCounter         *prometheus.CounterVec
	expiredTransfersCounter  *prometheus.CounterVec
	settleableGauge          prometheus.Gauge
)

// Init registers all Prometheus collectors.
func Init() {
	registerOnce.Do(func() {
		httpDurationHistogram = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path", "status"})

		projectionFailureCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "projection_failures_total",
			Help: "Read-model projection apply failures",
		}, []string{"projection", "event"})

		consistencyFaultCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "read_model_consistency_faults_total",
			Help: "Fatal read-model/event-log mismatches",
		}, []string{"kind"})

		idempotencyCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "idempotency_events_total",
			Help: "Idempotency middleware outcomes",
		}, []string{"outcome"})

		workerRunCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "worker_runs_total",
			Help: "Background worker run outcomes",
		}, []string{"worker", "result"})

		expiredTransfersCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "expired_transfers_total",
			Help: "Expiry sweep per-transfer outcomes",
		}, []string{"result"})

		settleableGauge = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "settleable_transfers",
			Help: "Executed transfers awaiting settlement",
		})

		prometheus.MustRegister(
			httpDurationHistogram,
			projectionFailureCounter,
			consistencyFaultCounter,
			idempotencyCounter,
			workerRunCounter,
			expiredTransfersCounter,
			settleableGauge,
		)
	})
}

func ObserveHTTP(method, path string, status int, duration time.Duration) {
	if httpDurationHistogram == nil {
		return
	}
	httpDurationHistogram.WithLabelValues(method, path, strconv.Itoa(status)).Observe(duration.Seconds())
}

func IncrementProjectionFailure(projection, event string) {
	if projectionFailureCounter == nil {
		return
	}
	projectionFailureCounter.WithLabelValues(projection, event).Inc()
}

func IncrementConsistencyFault(kind string) {
	if consistencyFaultCounter == nil {
		return
	}
	consistencyFaultCounter.WithLabelValues(kind).Inc()
}

func IncrementIdempotencyEvent(outcome string) {
	if idempotencyCounter == nil {
		return
	}
	idempotencyCounter.WithLabelValues(outcome).Inc()
}

func IncrementWorkerRun(worker, result string) {
	if workerRunCounter == nil {
		return
	}
	workerRunCounter.WithLabelValues(worker, result).Inc()
}

func IncrementExpiredTransfer(result string) {
	if expiredTransfersCounter == nil {
		return
	}
	expiredTransfersCounter.WithLabelValues(result).Inc()
}

func SetSettleableTransfers(count int64) {
	if settleableGauge == nil {
		return
	}
	settleableGauge.Set(float64(count))
}
