package metrics

import (
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
)

func init() { register(dbPoolConns) }

var dbPoolConns = prometheus.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "db_pool_connections",
		Help: "Connections of the Postgres pool by state.",
	},
	[]string{"state"}, // total|idle|acquired|max
)

func ObservePool(s *pgxpool.Stat) {
	if s == nil {
		return
	}
	dbPoolConns.WithLabelValues("total").Set(float64(s.TotalConns()))
	dbPoolConns.WithLabelValues("idle").Set(float64(s.IdleConns()))
	dbPoolConns.WithLabelValues("acquired").Set(float64(s.AcquiredConns()))
	dbPoolConns.WithLabelValues("max").Set(float64(s.MaxConns()))
}
