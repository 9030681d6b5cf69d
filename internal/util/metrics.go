package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	LabelsPrintedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "labels_printed_total",
		Help: "Total number of labels written to the printer",
	})

	PrintFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "print_failures_total",
		Help: "Total number of failed print attempts",
	}, []string{"reason"})

	PrintWriteLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "print_write_latency_seconds",
		Help:    "Latency of transport writes for label streams",
		Buckets: prometheus.DefBuckets,
	})

	BarcodesGeneratedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "barcodes_generated_total",
		Help: "Total number of EAN-13 barcodes generated",
	})

	ProductsCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "products_created_total",
		Help: "Total number of products created in the catalog",
	})
)
