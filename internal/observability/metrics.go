// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// RPC metrics
	RPCCallLatency *prometheus.HistogramVec
	RPCCallOutcome *prometheus.CounterVec

	// Scan metrics
	ScanRunsTotal     *prometheus.CounterVec
	ScanDuration      prometheus.Histogram
	WalletsScanned    prometheus.Counter
	PurchasesFound    prometheus.Counter
	CandidatesCurrent prometheus.Gauge

	// Holdings metrics
	HoldingsChecks *prometheus.CounterVec

	// Notification metrics
	NotificationsSent *prometheus.CounterVec

	// Health metrics
	LastSuccessfulScan prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "copurchase"
	}

	return &Metrics{
		RPCCallLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "solana",
			Name:      "rpc_call_latency_seconds",
			Help:      "Solana RPC call latency in seconds, retries included",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		RPCCallOutcome: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "solana",
			Name:      "rpc_calls_total",
			Help:      "Total number of RPC calls by provider, method and outcome",
		}, []string{"provider", "method", "outcome"}),

		ScanRunsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scan",
			Name:      "runs_total",
			Help:      "Total number of scan runs by kind and status",
		}, []string{"kind", "status"}),
		ScanDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "scan",
			Name:      "duration_seconds",
			Help:      "Co-purchase scan duration in seconds",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600},
		}),
		WalletsScanned: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scan",
			Name:      "wallets_scanned_total",
			Help:      "Total number of wallet scans performed",
		}),
		PurchasesFound: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scan",
			Name:      "purchases_found_total",
			Help:      "Total number of purchase events extracted",
		}),
		CandidatesCurrent: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "scan",
			Name:      "candidates",
			Help:      "Number of candidates in the latest snapshot",
		}),

		HoldingsChecks: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "holdings",
			Name:      "wallet_checks_total",
			Help:      "Total number of wallet holdings checks by status",
		}, []string{"status"}),

		NotificationsSent: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notify",
			Name:      "published_total",
			Help:      "Total number of snapshot publications by sink and status",
		}, []string{"sink", "status"}),

		LastSuccessfulScan: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_scan_timestamp",
			Help:      "Unix timestamp of last successful scan",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordRPCLatency records RPC call latency.
func RecordRPCLatency(method string, seconds float64) {
	DefaultMetrics.RPCCallLatency.WithLabelValues(method).Observe(seconds)
}

// RecordRPCOutcome counts a finished RPC call.
func RecordRPCOutcome(provider, method, outcome string) {
	DefaultMetrics.RPCCallOutcome.WithLabelValues(provider, method, outcome).Inc()
}

// RecordWalletScanned records one wallet scan and the purchases it produced.
func RecordWalletScanned(purchases int) {
	DefaultMetrics.WalletsScanned.Inc()
	DefaultMetrics.PurchasesFound.Add(float64(purchases))
}

// RecordScanRun records a scan run.
func RecordScanRun(kind, status string, durationSeconds float64) {
	DefaultMetrics.ScanRunsTotal.WithLabelValues(kind, status).Inc()
	if kind == "copurchase" {
		DefaultMetrics.ScanDuration.Observe(durationSeconds)
	}
}

// RecordCandidates sets the current candidate count and marks a successful scan.
func RecordCandidates(n int, unixSeconds int64) {
	DefaultMetrics.CandidatesCurrent.Set(float64(n))
	DefaultMetrics.LastSuccessfulScan.Set(float64(unixSeconds))
}

// RecordHoldingCheck counts one wallet classification.
func RecordHoldingCheck(status string) {
	DefaultMetrics.HoldingsChecks.WithLabelValues(status).Inc()
}

// RecordNotification counts a publication attempt.
func RecordNotification(sink string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	DefaultMetrics.NotificationsSent.WithLabelValues(sink, status).Inc()
}
