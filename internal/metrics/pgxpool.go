package metrics

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
)

// RegisterPgxPoolMetrics exposes connection pool statistics as Prometheus
// gauges. Call it once per process; a second registration of the same pool
// panics.
func RegisterPgxPoolMetrics(pool *pgxpool.Pool) {
	prometheus.MustRegister(
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "backhaul_pgxpool_acquired_conns",
			Help: "Connections currently acquired from the pool",
		}, func() float64 {
			return float64(pool.Stat().AcquiredConns())
		}),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "backhaul_pgxpool_idle_conns",
			Help: "Idle connections in the pool",
		}, func() float64 {
			return float64(pool.Stat().IdleConns())
		}),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "backhaul_pgxpool_total_conns",
			Help: "Total connections held by the pool",
		}, func() float64 {
			return float64(pool.Stat().TotalConns())
		}),
	)
}
