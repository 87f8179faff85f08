// Package fuzzmetrics wires a fuzzing campaign's counters onto
// go-ethereum's metrics registry, and exposes them over Prometheus via the
// adapted metrics/prometheus.Gatherer.
//
// Grounded on core/txpool/txpool.go's metrics.GetOrRegisterGauge/Counter
// usage pattern, and metrics/prometheus's Gatherer (itself adapted here
// from a luxfi/geth/metrics import onto the real
// github.com/ethereum/go-ethereum/metrics package, which is already this
// module's dependency for every other metrics concern).
package fuzzmetrics

import (
	"net/http"

	"github.com/ethereum/go-ethereum/metrics"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	fuzzprom "github.com/luxfi/txpool-fuzz/metrics/prometheus"
)

// Campaign holds every counter/gauge a running engine.Engine updates as it
// works through seeds, grouped under a dedicated registry so a campaign's
// metrics can be exported independent of any other metrics the process
// emits.
type Campaign struct {
	registry metrics.Registry

	Iterations    metrics.Counter
	SeedsCovered  metrics.Gauge
	ExploitsFound metrics.Counter
	CandidatesRun metrics.Counter
	ExecuteErrors metrics.Counter
}

// NewCampaign registers a fresh set of campaign metrics under prefix
// (e.g. "txpoolfuzz/").
func NewCampaign(prefix string) *Campaign {
	r := metrics.NewRegistry()
	return &Campaign{
		registry:      r,
		Iterations:    metrics.NewRegisteredCounter(prefix+"iterations", r),
		SeedsCovered:  metrics.NewRegisteredGauge(prefix+"seeds_covered", r),
		ExploitsFound: metrics.NewRegisteredCounter(prefix+"exploits_found", r),
		CandidatesRun: metrics.NewRegisteredCounter(prefix+"candidates_run", r),
		ExecuteErrors: metrics.NewRegisteredCounter(prefix+"execute_errors", r),
	}
}

// Handler returns an http.Handler exporting this campaign's metrics in
// Prometheus text format, for mounting under e.g. /metrics.
func (c *Campaign) Handler() http.Handler {
	gatherer := fuzzprom.NewGatherer(c.registry)
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
