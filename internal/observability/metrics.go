package observability

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/yungbote/dae-backend/internal/platform/logger"
)

const defaultScrapeInterval = 15 * time.Second

// Metrics holds the process-wide counters exported on /metrics. It also
// satisfies the aggregate write hooks so every reconciliation write is
// counted by operation and outcome.
type Metrics struct {
	apiRequests     *CounterVec
	apiLatency      *HistogramVec
	apiInflight     *Gauge
	aggregateWrites *CounterVec
	aggregateTime   *HistogramVec
	aggregateEvents *CounterVec
	dbStats         *GaugeVec
	redisUp         *Gauge
	redisPing       *Gauge
}

func NewMetrics() *Metrics {
	return &Metrics{
		apiRequests: NewCounterVec("dae_api_requests_total", "HTTP requests by method, route and status.", []string{"method", "route", "status"}),
		apiLatency: NewHistogramVec(
			"dae_api_request_duration_seconds",
			"HTTP request duration in seconds.",
			[]string{"method", "route", "status"},
			[]float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		),
		apiInflight:     NewGauge("dae_api_inflight_requests", "In-flight HTTP requests."),
		aggregateWrites: NewCounterVec("dae_aggregate_writes_total", "Aggregate writes by operation and status.", []string{"op", "status"}),
		aggregateTime: NewHistogramVec(
			"dae_aggregate_write_duration_seconds",
			"Aggregate write duration in seconds.",
			[]string{"op"},
			nil,
		),
		aggregateEvents: NewCounterVec("dae_aggregate_events_total", "Aggregate conflicts and retries.", []string{"op", "event"}),
		dbStats:         NewGaugeVec("dae_db_stats", "Database connection pool stats.", []string{"metric"}),
		redisUp:         NewGauge("dae_redis_up", "Redis connectivity (1=up, 0=down)."),
		redisPing:       NewGauge("dae_redis_ping_seconds", "Redis ping latency in seconds."),
	}
}

func (m *Metrics) ObserveAPI(method, route, status string, dur time.Duration) {
	if m == nil {
		return
	}
	if method == "" {
		method = "UNKNOWN"
	}
	if route == "" {
		route = "unknown"
	}
	m.apiRequests.Inc(method, route, status)
	m.apiLatency.Observe(dur.Seconds(), method, route, status)
}

func (m *Metrics) ApiInflightInc() {
	if m == nil {
		return
	}
	m.apiInflight.Inc()
}

func (m *Metrics) ApiInflightDec() {
	if m == nil {
		return
	}
	m.apiInflight.Dec()
}

func (m *Metrics) ObserveOperation(op, status string, dur time.Duration) {
	if m == nil {
		return
	}
	m.aggregateWrites.Inc(op, status)
	m.aggregateTime.Observe(dur.Seconds(), op)
}

func (m *Metrics) IncConflict(op string) {
	if m == nil {
		return
	}
	m.aggregateEvents.Inc(op, "conflict")
}

func (m *Metrics) IncRetry(op string) {
	if m == nil {
		return
	}
	m.aggregateEvents.Inc(op, "retry")
}

// StartDBCollector samples sql.DBStats until ctx is done.
func (m *Metrics) StartDBCollector(ctx context.Context, log *logger.Logger, db *gorm.DB) {
	if m == nil || db == nil {
		return
	}
	go func() {
		ticker := time.NewTicker(defaultScrapeInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				sqlDB, err := db.DB()
				if err != nil {
					log.Warn("metrics: db stats unavailable", "error", err)
					continue
				}
				stats := sqlDB.Stats()
				m.dbStats.Set(float64(stats.OpenConnections), "open_connections")
				m.dbStats.Set(float64(stats.InUse), "in_use")
				m.dbStats.Set(float64(stats.Idle), "idle")
				m.dbStats.Set(float64(stats.WaitCount), "wait_count")
				m.dbStats.Set(stats.WaitDuration.Seconds(), "wait_duration_seconds")
			}
		}
	}()
}

// StartRedisCollector pings rdb until ctx is done. The client is owned by
// the caller.
func (m *Metrics) StartRedisCollector(ctx context.Context, log *logger.Logger, rdb *redis.Client) {
	if m == nil || rdb == nil {
		return
	}
	go func() {
		ticker := time.NewTicker(defaultScrapeInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				start := time.Now()
				if err := rdb.Ping(ctx).Err(); err != nil {
					m.redisUp.Set(0)
					log.Warn("metrics: redis ping failed", "error", err)
					continue
				}
				m.redisUp.Set(1)
				m.redisPing.Set(time.Since(start).Seconds())
			}
		}
	}()
}

func (m *Metrics) WriteHTTP(w http.ResponseWriter, _ *http.Request) {
	if m == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	_ = m.WritePrometheus(w)
}

func (m *Metrics) WritePrometheus(w io.Writer) error {
	if m == nil {
		return nil
	}
	writers := []interface{ WritePrometheus(io.Writer) error }{
		m.apiRequests, m.apiLatency, m.apiInflight,
		m.aggregateWrites, m.aggregateTime, m.aggregateEvents,
		m.dbStats, m.redisUp, m.redisPing,
	}
	for _, wr := range writers {
		if err := wr.WritePrometheus(w); err != nil {
			return err
		}
	}
	return nil
}
