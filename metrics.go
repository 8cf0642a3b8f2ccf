package main

import "github.com/prometheus/client_golang/prometheus"

var (
	donorOpsTotal      *prometheus.CounterVec
	duplicatesRejected prometheus.Counter
	exportsTotal       *prometheus.CounterVec
	backupsTotal       *prometheus.CounterVec
)

func init() {
	donorOpsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "donor_operations_total",
			Help: "Total number of successful donor changes by operation.",
		},
		[]string{"op"},
	)
	duplicatesRejected = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "donor_duplicates_rejected_total",
			Help: "Total number of add or update requests rejected as duplicates.",
		},
	)
	exportsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "donor_exports_total",
			Help: "Total number of export mails by outcome.",
		},
		[]string{"outcome"},
	)
	backupsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "donor_backups_total",
			Help: "Total number of scheduled backups by outcome.",
		},
		[]string{"outcome"},
	)
	prometheus.MustRegister(donorOpsTotal, duplicatesRejected, exportsTotal, backupsTotal)
}
