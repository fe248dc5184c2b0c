package cache

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Cache metrics carry a "cache" label set to ProviderConfig.Group.
var (
	HitsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_hits_total",
			Help: "Total number of cache hits.",
		},
		[]string{"cache"},
	)

	MissesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_misses_total",
			Help: "Total number of cache misses.",
		},
		[]string{"cache"},
	)

	EvictionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_evictions_total",
			Help: "Total number of entries evicted from the cache.",
		},
		[]string{"cache"},
	)
)

func init() {
	prometheus.MustRegister(
		HitsTotal,
		MissesTotal,
		EvictionsTotal,
	)
}

var (
	entriesMu     sync.Mutex
	entriesGauges = make(map[string]prometheus.GaugeFunc)
	// entriesReg is swapped for an isolated registry in tests.
	entriesReg prometheus.Registerer = prometheus.DefaultRegisterer
)

// registerEntriesGauge exposes cache_entries{cache=group}, computed by lenFunc
// at scrape time. A gauge already registered for group is replaced.
func registerEntriesGauge(group string, lenFunc func() int) prometheus.GaugeFunc {
	g := prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name:        "cache_entries",
			Help:        "Current number of entries in the cache.",
			ConstLabels: prometheus.Labels{"cache": group},
		},
		func() float64 { return float64(lenFunc()) },
	)

	entriesMu.Lock()
	defer entriesMu.Unlock()

	if old, ok := entriesGauges[group]; ok {
		entriesReg.Unregister(old)
	}
	entriesGauges[group] = g
	_ = entriesReg.Register(g)
	return g
}

func unregisterEntriesGauge(group string) {
	entriesMu.Lock()
	defer entriesMu.Unlock()

	if g, ok := entriesGauges[group]; ok {
		entriesReg.Unregister(g)
		delete(entriesGauges, group)
	}
}
