package nds

import (
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
)

// metricsSet exposes the runtime's prometheus series. Cache hit/miss counts
// are plain atomics rather than prometheus.Counter, because NDS CLEARSTATS
// must be able to zero them, and a prometheus Counter is monotonic by
// contract; they're surfaced to the registry through GaugeFuncs so they
// remain scrapeable without violating that contract.
type metricsSet struct {
	flushesStarted prometheus.Counter
	flushSuccess   prometheus.Counter
	flushFailure   prometheus.Counter
	dirtyGauge     prometheus.Gauge
	flushingGauge  prometheus.Gauge
	// dirtyMutations mirrors NDSRuntime.globalDirty: the raw count of
	// foreground mutations since last flushed out, as distinct from
	// dirtyGauge's count of distinct dirty keys.
	dirtyMutations prometheus.Gauge

	cacheHits   int64
	cacheMisses int64
}

func newMetrics(reg prometheus.Registerer) *metricsSet {
	m := &metricsSet{
		flushesStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "nds_flushes_started_total",
			Help: "Background flushes started, including snapshotting flushes.",
		}),
		flushSuccess: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "nds_flush_success_total",
			Help: "Background flushes that completed successfully.",
		}),
		flushFailure: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "nds_flush_failure_total",
			Help: "Background flushes that failed.",
		}),
		dirtyGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "nds_dirty_keys",
			Help: "Keys pending flush, summed across all logical databases.",
		}),
		flushingGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "nds_flushing_keys",
			Help: "Keys currently being drained by an in-flight flush.",
		}),
		dirtyMutations: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "nds_dirty_mutations",
			Help: "Foreground mutations accumulated since the global dirty counter was last subtracted by a successful flush.",
		}),
	}
	if reg != nil {
		reg.MustRegister(
			m.flushesStarted, m.flushSuccess, m.flushFailure,
			m.dirtyGauge, m.flushingGauge, m.dirtyMutations,
			prometheus.NewGaugeFunc(prometheus.GaugeOpts{
				Name: "nds_cache_hits",
				Help: "Disk-record cache hits since the last CLEARSTATS.",
			}, func() float64 { return float64(atomic.LoadInt64(&m.cacheHits)) }),
			prometheus.NewGaugeFunc(prometheus.GaugeOpts{
				Name: "nds_cache_misses",
				Help: "Disk-record cache misses since the last CLEARSTATS.",
			}, func() float64 { return float64(atomic.LoadInt64(&m.cacheMisses)) }),
		)
	}
	return m
}

func (m *metricsSet) recordCacheHit()  { atomic.AddInt64(&m.cacheHits, 1) }
func (m *metricsSet) recordCacheMiss() { atomic.AddInt64(&m.cacheMisses, 1) }

// clearStats implements NDS CLEARSTATS: zero the cache hit/miss counters.
// Flush counters are left alone; they track lifetime outcomes, not a
// resettable sampling window.
func (m *metricsSet) clearStats() {
	atomic.StoreInt64(&m.cacheHits, 0)
	atomic.StoreInt64(&m.cacheMisses, 0)
}
