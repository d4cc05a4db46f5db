package activity

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	backupOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "backhaul_backup_outcomes_total",
		Help: "Finished backups by kind and outcome.",
	}, []string{"kind", "outcome"})

	uploadedBytes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "backhaul_uploaded_bytes_total",
		Help: "Artifact bytes handed to a storage driver.",
	}, []string{"driver"})
)
