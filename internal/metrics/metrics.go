// Package metrics instruments a conversion run with Prometheus counters.
//
// A batch run is short-lived, so the counters serve two purposes: an
// optional /metrics endpoint for operators who schedule long conversions
// (thousands of poster fetches), and an end-of-run summary gathered straight
// from the registry and logged.
package metrics

import (
	"fmt"
	"log"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Run carries the per-run metric set on its own registry. All record
// methods are nil-safe so components can treat metrics as optional.
type Run struct {
	registry *prometheus.Registry

	posterResolved    *prometheus.CounterVec
	posterFetchFailed prometheus.Counter
	cacheWriteFailed  prometheus.Counter
	programmesTotal   *prometheus.CounterVec
	mosaicSlotsUsed   prometheus.Gauge
	mosaicLatchedOut  prometheus.Counter
	feedBytesFetched  prometheus.Counter
}

// NewRun builds a metric set on a fresh registry.
func NewRun() *Run {
	r := &Run{registry: prometheus.NewRegistry()}

	r.posterResolved = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "guide_pack_poster_resolved_total",
		Help: "Posters resolved, by tier (override, memory, disk, network).",
	}, []string{"tier"})
	r.posterFetchFailed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "guide_pack_poster_fetch_failures_total",
		Help: "Poster fetches that failed; the episode ships without a thumbnail.",
	})
	r.cacheWriteFailed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "guide_pack_cache_write_failures_total",
		Help: "Poster cache writes that failed; bytes were still used for the run.",
	})
	r.programmesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "guide_pack_programmes_total",
		Help: "Programmes seen during ingestion, by result (included, skipped).",
	}, []string{"result"})
	r.mosaicSlotsUsed = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "guide_pack_mosaic_slots_used",
		Help: "Mosaic slots occupied at the end of packing (max 64).",
	})
	r.mosaicLatchedOut = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "guide_pack_mosaic_latched_out_total",
		Help: "Preview-bearing titles refused after mosaic capacity was exhausted.",
	})
	r.feedBytesFetched = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "guide_pack_feed_bytes_total",
		Help: "Bytes of XMLTV guide downloaded (0 on a 304 revalidation).",
	})

	r.registry.MustRegister(
		r.posterResolved, r.posterFetchFailed, r.cacheWriteFailed,
		r.programmesTotal, r.mosaicSlotsUsed, r.mosaicLatchedOut,
		r.feedBytesFetched,
	)
	return r
}

// Handler serves the run's registry in Prometheus exposition format.
func (r *Run) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until the server is closed. Returns the
// server so the caller can shut it down when the run finishes.
func (r *Run) Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", r.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("metrics: %v", err)
		}
	}()
	return srv
}

func (r *Run) PosterResolved(tier string) {
	if r == nil {
		return
	}
	r.posterResolved.WithLabelValues(tier).Inc()
}

func (r *Run) PosterFetchFailed() {
	if r == nil {
		return
	}
	r.posterFetchFailed.Inc()
}

func (r *Run) CacheWriteFailed() {
	if r == nil {
		return
	}
	r.cacheWriteFailed.Inc()
}

func (r *Run) ProgrammeIncluded(n int) {
	if r == nil {
		return
	}
	r.programmesTotal.WithLabelValues("included").Add(float64(n))
}

func (r *Run) ProgrammeSkipped(n int) {
	if r == nil {
		return
	}
	r.programmesTotal.WithLabelValues("skipped").Add(float64(n))
}

func (r *Run) MosaicSlotsUsed(n int) {
	if r == nil {
		return
	}
	r.mosaicSlotsUsed.Set(float64(n))
}

func (r *Run) MosaicLatchedOut() {
	if r == nil {
		return
	}
	r.mosaicLatchedOut.Inc()
}

func (r *Run) FeedBytes(n int) {
	if r == nil {
		return
	}
	r.feedBytesFetched.Add(float64(n))
}

// LogSummary gathers the registry and logs every non-zero sample. Called at
// the end of a run so the counters are useful even without a scrape.
func (r *Run) LogSummary() {
	if r == nil {
		return
	}
	families, err := r.registry.Gather()
	if err != nil {
		log.Printf("metrics: gather: %v", err)
		return
	}
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			var val float64
			switch {
			case m.GetCounter() != nil:
				val = m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				val = m.GetGauge().GetValue()
			}
			if val == 0 {
				continue
			}
			labels := ""
			for _, lp := range m.GetLabel() {
				labels += fmt.Sprintf(" %s=%s", lp.GetName(), lp.GetValue())
			}
			log.Printf("metrics: %s%s = %g", mf.GetName(), labels, val)
		}
	}
}
