package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	CacheHits = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "stats_cache_hits_total",
		Help: "Stats cache reads that found a fresh record",
	}, []string{"backend"})
	CacheMisses = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "stats_cache_misses_total",
		Help: "Stats cache reads that found nothing, an expired record or a store error",
	}, []string{"backend"})
	CacheWriteErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "stats_cache_write_errors_total",
		Help: "Failed stats cache writes",
	}, []string{"backend"})
	FallbackServed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "stats_fallback_served_total",
		Help: "Reads answered with mock stats",
	})
	SyncDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "stats_sync_duration_seconds",
		Help:    "Duration of a full stats sync run",
		Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
	})
	SyncRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "stats_sync_runs_total",
		Help: "Stats sync runs by result",
	}, []string{"result"})
	RateLimitRemaining = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "upstream_rate_limit_remaining",
		Help: "Remaining requests reported by the upstream API",
	}, []string{"api"})
	RateLimitWaits = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "upstream_rate_limit_waits_total",
		Help: "Times a request was held back until the rate limit reset",
	}, []string{"api", "reason"})
	OGRenderDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name: "og_render_duration_seconds",
		Help: "Time to render one OG image",
	}, []string{"image"})
	BlogArticlesSynced = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "blog_articles_synced_total",
		Help: "Blog articles written by the blog sync",
	}, []string{"op"})
)

func init() {
	prometheus.MustRegister(
		CacheHits,
		CacheMisses,
		CacheWriteErrors,
		FallbackServed,
		SyncDuration,
		SyncRuns,
		RateLimitRemaining,
		RateLimitWaits,
		OGRenderDuration,
		BlogArticlesSynced,
	)
}

// Handler serves the default registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}
