package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(pgPoolConnections) }

var pgPoolConnections = prometheus.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "pg_pool_connections",
		Help: "Connection counts of the pgx pool by state.",
	},
	[]string{"state"},
)

func SetPoolConnections(total, idle, inUse, max int32) {
	pgPoolConnections.WithLabelValues("total").Set(float64(total))
	pgPoolConnections.WithLabelValues("idle").Set(float64(idle))
	pgPoolConnections.WithLabelValues("in_use").Set(float64(inUse))
	pgPoolConnections.WithLabelValues("max").Set(float64(max))
}
