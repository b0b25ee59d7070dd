package analysis

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"wyckoff_watcher/internal/engine"
	"wyckoff_watcher/internal/market"
	"wyckoff_watcher/internal/models"
)

// errNotConfigured stands in for an engine level that has no API key. The
// chain treats it like any other engine failure.
var errNotConfigured = errors.New("engine not configured")

// Config carries the per-run analysis knobs resolved by the runner.
type Config struct {
	Lookback        time.Duration
	PrimaryTimeout  time.Duration
	FallbackTimeout time.Duration
	Workers         int
}

// Orchestrator runs the fetch + two-level engine chain for each watched
// symbol. One symbol failing never aborts the others.
type Orchestrator struct {
	data     market.DataProvider
	primary  engine.Engine
	fallback engine.Engine
	cfg      Config
	now      func() time.Time
}

func New(data market.DataProvider, primary, fallback engine.Engine, cfg Config) *Orchestrator {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	return &Orchestrator{
		data:     data,
		primary:  primary,
		fallback: fallback,
		cfg:      cfg,
		now:      time.Now,
	}
}

// Analyze produces the report line for one symbol. ctx carries the overall
// run budget: once it expires the symbol is marked skipped without touching
// the network.
func (o *Orchestrator) Analyze(ctx context.Context, symbol string) models.SymbolReport {
	if ctx.Err() != nil {
		return models.SymbolReport{
			Symbol: symbol,
			Err: &models.AnalysisError{
				Symbol: symbol,
				Reason: models.ReasonRunBudgetExceeded,
				Detail: "run budget exhausted before analysis started",
			},
		}
	}

	bars, err := o.data.MinuteBars(ctx, symbol, o.cfg.Lookback)
	if err != nil {
		log.Printf("analysis: %s data fetch failed: %v", symbol, err)
		return models.SymbolReport{
			Symbol: symbol,
			Err: &models.AnalysisError{
				Symbol: symbol,
				Reason: models.ReasonDataUnavailable,
				Detail: err.Error(),
			},
		}
	}

	req := models.AnalysisRequest{Symbol: symbol, Window: o.cfg.Lookback, Bars: bars}

	reply, primaryErr := o.runEngine(ctx, o.primary, req, o.cfg.PrimaryTimeout)
	if primaryErr == nil {
		return o.success(symbol, bars, models.EnginePrimary, o.primary.Name(), reply)
	}
	log.Printf("analysis: %s primary engine %s failed (%s): %v",
		symbol, engineName(o.primary), engine.Classify(primaryErr), primaryErr)

	reply, fallbackErr := o.runEngine(ctx, o.fallback, req, o.cfg.FallbackTimeout)
	if fallbackErr == nil {
		return o.success(symbol, bars, models.EngineFallback, o.fallback.Name(), reply)
	}
	log.Printf("analysis: %s fallback engine %s failed (%s): %v",
		symbol, engineName(o.fallback), engine.Classify(fallbackErr), fallbackErr)

	reason := models.ReasonEngineUnavailable
	if ctx.Err() != nil {
		// Both levels died because the run budget ran out, not because
		// the engines themselves were broken.
		reason = models.ReasonRunBudgetExceeded
	}
	return models.SymbolReport{
		Symbol: symbol,
		Bars:   bars,
		Err: &models.AnalysisError{
			Symbol: symbol,
			Reason: reason,
			Detail: fmt.Sprintf("primary: %v; fallback: %v", primaryErr, fallbackErr),
		},
	}
}

// AnalyzeAll fans the symbols out over a bounded worker pool and returns
// reports in the same order the symbols came in.
func (o *Orchestrator) AnalyzeAll(ctx context.Context, symbols []string) []models.SymbolReport {
	reports := make([]models.SymbolReport, len(symbols))

	if o.cfg.Workers == 1 {
		for i, symbol := range symbols {
			reports[i] = o.Analyze(ctx, symbol)
		}
		return reports
	}

	sem := make(chan struct{}, o.cfg.Workers)
	var wg sync.WaitGroup
	for i, symbol := range symbols {
		wg.Add(1)
		go func(i int, symbol string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			reports[i] = o.Analyze(ctx, symbol)
		}(i, symbol)
	}
	wg.Wait()
	return reports
}

func (o *Orchestrator) runEngine(ctx context.Context, eng engine.Engine, req models.AnalysisRequest, timeout time.Duration) (*engine.Reply, error) {
	if eng == nil {
		return nil, errNotConfigured
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return eng.Analyze(callCtx, req)
}

func engineName(e engine.Engine) string {
	if e == nil {
		return "none"
	}
	return e.Name()
}

func (o *Orchestrator) success(symbol string, bars []models.Bar, role models.EngineRole, name string, reply *engine.Reply) models.SymbolReport {
	return models.SymbolReport{
		Symbol: symbol,
		Bars:   bars,
		Result: &models.AnalysisResult{
			Symbol:      symbol,
			EngineUsed:  role,
			EngineName:  name,
			Findings:    engine.NormalizeFindings(reply.Findings),
			Narrative:   reply.Narrative,
			GeneratedAt: o.now(),
		},
	}
}
