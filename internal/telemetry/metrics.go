package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Метрики проходов обновления. Регистрируются в DefaultRegisterer
// при инициализации пакета и отдаются через /metrics.
var (
	// OutdatedQueries — количество запросов, поставленных в очередь
	// последним проходом обновления.
	OutdatedQueries = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "freshboard_outdated_queries",
		Help: "Number of outdated queries dispatched by the last refresh pass",
	})

	// SecondsSinceRefresh — секунды между завершениями двух последних
	// проходов. Неограниченный рост означает, что планировщик встал.
	SecondsSinceRefresh = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "freshboard_seconds_since_refresh",
		Help: "Seconds elapsed since the previous completed refresh pass",
	})

	// OutdatedQueriesLookup — длительность обхода устаревших запросов
	// вместе с постановкой в очередь.
	OutdatedQueriesLookup = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "freshboard_outdated_queries_lookup_seconds",
		Help:    "Time spent enumerating and dispatching outdated queries",
		Buckets: prometheus.DefBuckets,
	})

	// SchemaRefreshTotal — исходы задач обновления схем.
	// Метка outcome: success | timeout | error.
	SchemaRefreshTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "freshboard_schema_refresh_total",
		Help: "Schema refresh task outcomes by kind",
	}, []string{"outcome"})
)
