package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CatalogLoadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "upgrade_catalog_loads_total",
		Help: "Total number of catalog loads by source",
	}, []string{"source"})

	CatalogOptionsLoaded = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "upgrade_catalog_options",
		Help: "Number of valid upgrade options in the last loaded catalog",
	})

	DataQualityWarningsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "upgrade_data_quality_warnings_total",
		Help: "Total number of catalog data-quality warnings",
	}, []string{"code"})

	CatalogImportsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "upgrade_catalog_imports_total",
		Help: "Total number of catalog import rows by outcome",
	}, []string{"outcome"})

	QuotesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "upgrade_quotes_total",
		Help: "Total number of stateless upgrade quotes",
	})

	ConfigurationsStartedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "configurations_started_total",
		Help: "Total number of configuration sessions started",
	})

	ConfigurationSelectionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "configuration_selections_total",
		Help: "Total number of selection calls by kind and outcome",
	}, []string{"kind", "outcome"})

	ConfigurationsFinalizedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "configurations_finalized_total",
		Help: "Total number of configurations turned into orders",
	})

	UpgradeRevenueTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "upgrade_additional_revenue_total",
		Help: "Sum of upgrade additional cost on finalized orders, in minor currency units",
	})

	ConfigurationLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "configuration_build_latency_seconds",
		Help:    "Latency of loading catalog and product and building a configurator",
		Buckets: prometheus.DefBuckets,
	})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
