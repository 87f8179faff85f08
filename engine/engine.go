// Package engine implements the fuzzing campaign loop: pick the
// highest-priority seed, mutate it, execute each candidate, abstract and
// score the resulting pool, check it against the exploit detector, and
// feed novel states back into the seed database (spec.md's data-flow
// diagram, §OVERVIEW row I).
//
// Grounded on eth_txpool_fuzzer_core/fuzz_engine.py's
// FuzzEngine.run_fuzzing, _parse_input_to_symbol and
// _concrete_input_to_string.
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"

	"github.com/luxfi/txpool-fuzz/detect"
	"github.com/luxfi/txpool-fuzz/executor"
	"github.com/luxfi/txpool-fuzz/fuzzmetrics"
	"github.com/luxfi/txpool-fuzz/mutate"
	"github.com/luxfi/txpool-fuzz/pool"
	"github.com/luxfi/txpool-fuzz/seeddb"
	"github.com/luxfi/txpool-fuzz/txintent"
)

// Config binds the campaign-level stopping conditions and the
// abstraction/energy constants the engine scores every observed pool with.
type Config struct {
	AbstractConfig   pool.AbstractConfig
	MaxIterations    int
	GlobalTimeout    time.Duration
	DefaultRecipient common.Address
}

// ExploitRecord is one confirmed detector firing, captured exactly as
// spec.md §8 defines an exploit report: the symbolic and concrete forms of
// the input that produced it, the resulting end-state fingerprint, the raw
// pool snapshot, the producing seed's generation, and when it was found.
type ExploitRecord struct {
	DetectorName   string
	Reason         string
	InputSymbol    string
	InputConcrete  []string
	EndStateSymbol string
	RawPool        pool.RawPool
	SeedGeneration int
	Elapsed        time.Duration
}

// Engine owns one fuzzing campaign's moving parts.
type Engine struct {
	SeedDB   *seeddb.DB
	Executor *executor.Executor
	Mutator  mutate.MutationStrategy
	Detector detect.Detector
	Cfg      Config
	Metrics  *fuzzmetrics.Campaign // nil disables metrics recording

	FoundExploits []ExploitRecord

	// nextFreeAccount is the Engine-owned fresh-account cursor (spec.md §5,
	// §4.9 step 2(b)); only Run/processCandidate mutate it.
	nextFreeAccount int
}

// New returns an Engine with an empty seed database; callers must call
// Run, which seeds it with the initial empty-input state. Pass a non-nil
// metrics Campaign to export campaign counters over Prometheus.
func New(exec *executor.Executor, mutator mutate.MutationStrategy, detector detect.Detector, cfg Config, m *fuzzmetrics.Campaign) *Engine {
	return &Engine{
		SeedDB:   seeddb.New(),
		Executor: exec,
		Mutator:  mutator,
		Detector: detector,
		Cfg:      cfg,
		Metrics:  m,
	}
}

// Run drives the campaign until the seed database runs dry, MaxIterations
// is reached, or GlobalTimeout elapses, returning every exploit found.
func (e *Engine) Run(ctx context.Context) []ExploitRecord {
	start := time.Now()
	e.SeedDB.InitializeWithEmptyInput()

	iterations := 0
	for !e.SeedDB.IsEmpty() && iterations < e.Cfg.MaxIterations && time.Since(start) < e.Cfg.GlobalTimeout {
		iterations++
		select {
		case <-ctx.Done():
			log.Info("engine: context cancelled, stopping campaign", "iterations", iterations)
			return e.FoundExploits
		default:
		}

		seed := e.SeedDB.Next()
		if seed == nil {
			break
		}
		log.Debug("engine: processing seed", "fingerprint", seed.Fingerprint, "energy", seed.Energy, "generation", seed.Generation)
		if e.Metrics != nil {
			e.Metrics.Iterations.Inc(1)
			e.Metrics.SeedsCovered.Update(int64(e.SeedDB.Count()))
		}

		candidates := e.Mutator.Mutate(seed.Input, seed.ObservedPool, e.nextFreeAccount)
		for _, candidate := range candidates {
			e.processCandidate(ctx, seed, candidate, start)
		}
	}

	log.Info("engine: campaign finished", "iterations", iterations, "seeds_covered", e.SeedDB.Count(), "exploits", len(e.FoundExploits))
	return e.FoundExploits
}

func (e *Engine) processCandidate(ctx context.Context, seed *seeddb.Seed, candidate txintent.Input, start time.Time) {
	if e.Metrics != nil {
		e.Metrics.CandidatesRun.Inc(1)
	}
	isInitialSeed := seed.Fingerprint == seeddb.InitialStateFingerprint
	observed, err := e.Executor.Execute(ctx, candidate, seed.ObservedPool, seed.Input, isInitialSeed)
	if err != nil {
		log.Warn("engine: failed to execute candidate input, skipping", "err", err)
		if e.Metrics != nil {
			e.Metrics.ExecuteErrors.Inc(1)
		}
		return
	}

	// spec.md §4.9 step 2(b): only the Engine advances next_free_account,
	// driven by the last intent of the child that was actually executed.
	if n := len(candidate.Sequence); n > 0 {
		if last := candidate.Sequence[n-1]; last.AccountIndex >= e.nextFreeAccount {
			e.nextFreeAccount = last.AccountIndex + 1
		}
	}

	fingerprint := pool.Abstract(observed, e.Cfg.AbstractConfig)
	energy := pool.Energy(observed, e.Cfg.AbstractConfig)

	if fired, reason := e.Detector.Fires(observed, e.Cfg.AbstractConfig); fired {
		record := ExploitRecord{
			DetectorName:   e.Detector.Name(),
			Reason:         reason,
			InputSymbol:    ParseInputToSymbol(candidate, e.Cfg.AbstractConfig),
			InputConcrete:  ConcreteInputToString(candidate, e.Cfg.DefaultRecipient),
			EndStateSymbol: fingerprint,
			RawPool:        observed,
			SeedGeneration: seed.Generation,
			Elapsed:        time.Since(start),
		}
		log.Warn("engine: exploit detected", "detector", record.DetectorName, "reason", reason, "end_state", fingerprint)
		e.FoundExploits = append(e.FoundExploits, record)
		if e.Metrics != nil {
			e.Metrics.ExploitsFound.Inc(1)
		}
	}

	e.SeedDB.Add(&seeddb.Seed{
		Input:        candidate,
		ObservedPool: observed,
		Fingerprint:  fingerprint,
		Energy:       energy,
	})
}

// ParseInputToSymbol renders an Input's parent/child nonce-0/nonce-1
// structure into the same P/R/C/O alphabet Abstract uses for observed pool
// states, so a candidate's shape can be compared against what it produced.
func ParseInputToSymbol(in txintent.Input, cfg pool.AbstractConfig) string {
	out := make([]byte, 0, len(in.Sequence))
	lastNonce := map[common.Address]uint64{}
	seenParent := map[common.Address]bool{}

	for _, tx := range in.Sequence {
		switch {
		case tx.Nonce == 0:
			if tx.Price < cfg.ReplacementPriceThreshold {
				out = append(out, 'P')
			} else {
				out = append(out, 'R')
			}
			lastNonce[tx.Sender] = 0
			seenParent[tx.Sender] = true
		case seenParent[tx.Sender] && tx.Nonce == lastNonce[tx.Sender]+1:
			if tx.Value <= cfg.ChildValueThreshold {
				out = append(out, 'C')
			} else {
				out = append(out, 'O')
			}
			lastNonce[tx.Sender] = tx.Nonce
		}
	}
	return string(out)
}

// ConcreteInputToString renders every intent in an Input as a
// human-readable line, for inclusion in an exploit report.
func ConcreteInputToString(in txintent.Input, recipient common.Address) []string {
	out := make([]string, 0, len(in.Sequence))
	for _, tx := range in.Sequence {
		out = append(out, fmt.Sprintf(
			"from: %s, to: %s, nonce: %d, type: %d, price: %d, value: %d",
			tx.Sender, recipient, tx.Nonce, tx.Type, tx.Price, tx.Value,
		))
	}
	return out
}
