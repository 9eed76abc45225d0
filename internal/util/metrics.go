package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SalesCompletedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pos_sales_completed_total",
		Help: "Total number of committed sales",
	}, []string{"payment_method"})

	SalesRejectedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pos_sales_rejected_total",
		Help: "Total number of rejected sales",
	}, []string{"reason"})

	SaleAmount = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "pos_sale_amount",
		Help:    "Charged amount of committed sales",
		Buckets: []float64{10, 25, 50, 100, 250, 500, 1000, 2500},
	})

	SaleProcessingLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "pos_sale_processing_latency_seconds",
		Help:    "Latency of the sale transaction",
		Buckets: prometheus.DefBuckets,
	})

	LoyaltyPointsAwardedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pos_loyalty_points_awarded_total",
		Help: "Total loyalty points earned through sales",
	})

	UnitsSoldTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pos_units_sold_total",
		Help: "Total number of variant units decremented by sales",
	})

	VariantStockLow = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "pos_variant_stock_low",
		Help: "Remaining stock of variants at or below the low stock threshold",
	}, []string{"variant_id"})

	CacheRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pos_cache_requests_total",
		Help: "Product cache lookups by result",
	}, []string{"result"})

	EventsPublishFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pos_events_publish_failed_total",
		Help: "Domain events that could not be published",
	}, []string{"event_type"})

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
