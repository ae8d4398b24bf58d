// Package metrics holds the Prometheus instrumentation for the attendance
// service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	MediaEvents       prometheus.Counter
	CreditsRecorded   prometheus.Counter
	DuplicatesFlagged prometheus.Counter
	MediaRejected     prometheus.Counter
	NotifyFailures    prometheus.Counter
	RowsAppended      prometheus.Counter
	SettlementsRun    prometheus.Counter
}

// New creates and registers all metrics on the given registerer.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		MediaEvents: factory.NewCounter(prometheus.CounterOpts{
			Name: "kintore_media_events_total",
			Help: "Total number of inbound media events handled",
		}),
		CreditsRecorded: factory.NewCounter(prometheus.CounterOpts{
			Name: "kintore_credits_recorded_total",
			Help: "Total number of attendance credits written to the ledger",
		}),
		DuplicatesFlagged: factory.NewCounter(prometheus.CounterOpts{
			Name: "kintore_duplicates_flagged_total",
			Help: "Total number of duplicate media submissions flagged",
		}),
		MediaRejected: factory.NewCounter(prometheus.CounterOpts{
			Name: "kintore_media_rejected_total",
			Help: "Total number of undersized media payloads rejected",
		}),
		NotifyFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "kintore_notify_failures_total",
			Help: "Total number of failed recorder notifications",
		}),
		RowsAppended: factory.NewCounter(prometheus.CounterOpts{
			Name: "kintore_matrix_rows_appended_total",
			Help: "Total number of matrix rows appended by the daily scan",
		}),
		SettlementsRun: factory.NewCounter(prometheus.CounterOpts{
			Name: "kintore_settlements_run_total",
			Help: "Total number of settlement runs completed",
		}),
	}
}
