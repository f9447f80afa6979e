package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ============================================================
// Prometheus метрики движка лимитов
// ============================================================
//
// Использование:
// - Grafana дашборды для визуализации
// - Alertmanager для алертов на зависшие enforcement'ы
// - Анализ длительности циклов мониторинга

// ============ Метрики цикла мониторинга ============

// CycleDuration - длительность полного цикла мониторинга
var CycleDuration = promauto.NewHistogram(
	prometheus.HistogramOpts{
		Namespace: "riskguard",
		Subsystem: "monitor",
		Name:      "cycle_duration_seconds",
		Help:      "Duration of a full monitoring cycle in seconds",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	},
)

// CyclesTotal - количество выполненных циклов
var CyclesTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: "riskguard",
		Subsystem: "monitor",
		Name:      "cycles_total",
		Help:      "Total number of monitoring cycles executed",
	},
)

// OwnersSkipped - владельцы, пропущенные в цикле
var OwnersSkipped = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "riskguard",
		Subsystem: "monitor",
		Name:      "owners_skipped_total",
		Help:      "Owners skipped during a cycle",
	},
	[]string{"reason"}, // no_positions, snapshot_unavailable
)

// SnapshotLatency - время получения снимка счёта от платформы
var SnapshotLatency = promauto.NewHistogram(
	prometheus.HistogramOpts{
		Namespace: "riskguard",
		Subsystem: "monitor",
		Name:      "snapshot_latency_seconds",
		Help:      "Time to fetch a position snapshot from the trade platform",
		Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
	},
)

// ============ Метрики enforcement ============

// BreachesDetected - обнаруженные пробои порогов
var BreachesDetected = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "riskguard",
		Subsystem: "enforcement",
		Name:      "breaches_detected_total",
		Help:      "Total number of limit breaches detected",
	},
	[]string{"scope", "kind"}, // kind: gain, loss, drawdown
)

// PositionsClosed - позиции, закрытые движком
var PositionsClosed = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: "riskguard",
		Subsystem: "enforcement",
		Name:      "positions_closed_total",
		Help:      "Total number of positions closed by enforcement",
	},
)

// EnforcementFailures - неудавшиеся защитные действия
var EnforcementFailures = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "riskguard",
		Subsystem: "enforcement",
		Name:      "failures_total",
		Help:      "Failed enforcement actions by stage",
	},
	[]string{"stage"}, // close, disable_source, audit
)

// SourcesDisabled - отключенные источники сигналов
var SourcesDisabled = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: "riskguard",
		Subsystem: "enforcement",
		Name:      "sources_disabled_total",
		Help:      "Signal sources disabled after a breach",
	},
)

// ActiveBreaches - лимиты с необработанным пробоем
var ActiveBreaches = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: "riskguard",
		Subsystem: "enforcement",
		Name:      "active_breaches",
		Help:      "Limits currently in a triggered state",
	},
)

// ============ Метрики уведомлений ============

// NotificationsDropped - уведомления, отброшенные из-за переполнения буфера
var NotificationsDropped = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: "riskguard",
		Subsystem: "notify",
		Name:      "dropped_total",
		Help:      "Notifications dropped because the channel buffer was full",
	},
)

// NotificationFailures - ошибки доставки уведомлений
var NotificationFailures = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: "riskguard",
		Subsystem: "notify",
		Name:      "failures_total",
		Help:      "Notification deliveries that returned an error",
	},
)

// ============ Вспомогательные функции ============

// RecordBreach записывает обнаруженный пробой
func RecordBreach(scope, kind string) {
	BreachesDetected.WithLabelValues(scope, kind).Inc()
}

// RecordOwnerSkipped записывает пропуск владельца в цикле
func RecordOwnerSkipped(reason string) {
	OwnersSkipped.WithLabelValues(reason).Inc()
}

// RecordEnforcementFailure записывает неудачу защитного действия
func RecordEnforcementFailure(stage string) {
	EnforcementFailures.WithLabelValues(stage).Inc()
}
