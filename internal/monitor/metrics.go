package monitor

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	voucherChecksTotal          *prometheus.CounterVec
	voucherNotificationsTotal   *prometheus.CounterVec
	voucherSessionRestartsTotal prometheus.Counter
	voucherMonitorState         prometheus.Gauge

	metricsOnce sync.Once
)

// InitMetrics initializes the Prometheus collectors. It is safe to call
// multiple times.
func InitMetrics() {
	metricsOnce.Do(func() {
		voucherChecksTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "voucher_checks_total",
				Help: "Total number of check cycles, labeled by outcome reason.",
			},
			[]string{"reason"},
		)

		voucherNotificationsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "voucher_notifications_total",
				Help: "Total number of push notification attempts, labeled by delivery status.",
			},
			[]string{"status"},
		)

		voucherSessionRestartsTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "voucher_session_restarts_total",
				Help: "Total number of browser session recreations.",
			},
		)

		voucherMonitorState = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "voucher_monitor_state",
				Help: "Current monitoring loop state (0=initializing, 1=awaiting_login, 2=polling, 3=notifying, 4=done).",
			},
		)
	})
}

func observeCheck(reason Reason) {
	if voucherChecksTotal == nil {
		return
	}
	voucherChecksTotal.WithLabelValues(string(reason)).Inc()
}

func observeNotification(err error) {
	if voucherNotificationsTotal == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	voucherNotificationsTotal.WithLabelValues(status).Inc()
}

func observeSessionRestart() {
	if voucherSessionRestartsTotal == nil {
		return
	}
	voucherSessionRestartsTotal.Inc()
}

func observeState(s State) {
	if voucherMonitorState == nil {
		return
	}
	voucherMonitorState.Set(float64(s))
}
