package runner

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"wyckoff_watcher/internal/analysis"
	"wyckoff_watcher/internal/config"
	"wyckoff_watcher/internal/engine"
	"wyckoff_watcher/internal/market"
	"wyckoff_watcher/internal/market/alpaca"
	"wyckoff_watcher/internal/market/sina"
	"wyckoff_watcher/internal/models"
	"wyckoff_watcher/internal/report"
	"wyckoff_watcher/internal/runlog"
	"wyckoff_watcher/internal/scheduler"
	"wyckoff_watcher/internal/storage"
	"wyckoff_watcher/internal/telegram"
	"wyckoff_watcher/internal/watchlist"
)

// Execute performs one complete invocation: load state, sync commands,
// optionally run analysis and dispatch the report, save state once. A
// forcedMode overrides the wall-clock decision; pass "" to let the
// scheduler decide.
//
// State persistence is the one operation that may fail the run: if the
// state file cannot be loaded or saved the process must exit nonzero and
// claim nothing.
func Execute(ctx context.Context, cfg *config.Config, forcedMode models.RunMode) error {
	now := time.Now().In(config.CstLoc)

	state, err := storage.LoadState(cfg.StateFile)
	if err != nil {
		return fmt.Errorf("loading state: %w", err)
	}

	mode := forcedMode
	if mode == "" {
		mode, err = scheduler.DecideMode(now, state.LastFullRun, scheduler.Config{
			FullRunTimes: cfg.Schedule.FullRunTimes,
			Tolerance:    cfg.Tolerance(),
			Location:     config.CstLoc,
		})
		if err != nil {
			return fmt.Errorf("deciding run mode: %w", err)
		}
	}

	runID := uuid.NewString()
	log.Printf("run %s starting, mode=%s", runID, mode)
	journal := openJournal(cfg.RunLogFile)
	if journal != nil {
		defer journal.Close()
	}
	outcome := "ok"
	defer func() {
		recordRun(journal, models.RunRecord{RunID: runID, Mode: mode, StartedAt: now, Outcome: outcome})
	}()

	client, err := telegram.NewClient()
	if err != nil {
		outcome = "telegram client: " + err.Error()
		return fmt.Errorf("creating telegram client: %w", err)
	}

	store := watchlist.NewStore(state.Entries)
	syncer := watchlist.NewSynchronizer(store, client, client.ChatID())
	syncer.StrictSymbols = cfg.Commands.StrictSymbols

	newCursor, applied, syncErr := syncer.Sync(ctx, state.Cursor)
	if syncErr != nil {
		// The sync cursor is unchanged; the commands stay queued for the
		// next invocation. A full run can still proceed on the old list.
		log.Printf("run %s: command sync failed, continuing with stored watchlist: %v", runID, syncErr)
		outcome = "sync failed"
	} else if len(applied) > 0 {
		log.Printf("run %s: applied %d command(s), cursor %d -> %d", runID, len(applied), state.Cursor, newCursor)
	}

	switch mode {
	case models.ModeFull:
		if dispatchErr := runAnalysis(ctx, cfg, client, store.Symbols(), now); dispatchErr != nil {
			log.Printf("run %s: %v", runID, dispatchErr)
			outcome = "dispatch failed"
		}
		// The window counts as satisfied even when dispatch failed; the
		// next cron tick must not rerun the whole analysis.
		state.LastFullRun = now
	case models.ModeNone:
		log.Printf("run %s: full-run window already satisfied at %s, sync only",
			runID, state.LastFullRun.In(config.CstLoc).Format("15:04"))
	}

	state.Entries = store.List()
	if syncErr == nil {
		state.Cursor = newCursor
	}
	state.Version = storage.CurrentVersion

	if err := storage.SaveState(cfg.StateFile, state); err != nil {
		outcome = "persistence failed"
		return fmt.Errorf("saving state: %w", err)
	}

	log.Printf("run %s finished: %d watched symbol(s), cursor=%d", runID, store.Len(), state.Cursor)
	return nil
}

// runAnalysis fetches, analyzes and dispatches for every watched symbol.
// Only a dispatch or render failure is returned; per-symbol failures ride
// inside the report.
func runAnalysis(ctx context.Context, cfg *config.Config, client *telegram.Client, symbols []string, now time.Time) error {
	if len(symbols) == 0 {
		log.Println("full run requested but the watchlist is empty, nothing to analyze")
		return nil
	}

	primary, fallback := buildEngines()
	orch := analysis.New(buildProvider(cfg), primary, fallback, analysis.Config{
		Lookback:        cfg.Lookback(),
		PrimaryTimeout:  cfg.PrimaryTimeout(),
		FallbackTimeout: cfg.FallbackTimeout(),
		Workers:         cfg.Analysis.Workers,
	})

	// The budget covers fetch and analysis. Dispatch runs on the parent
	// context so an exhausted budget still ships the partial report.
	budgetCtx, cancel := context.WithTimeout(ctx, cfg.RunBudget())
	defer cancel()
	reports := orch.AnalyzeAll(budgetCtx, symbols)

	return report.Dispatch(ctx, client, reports, now)
}

func buildProvider(cfg *config.Config) market.DataProvider {
	switch cfg.Market.Provider {
	case "alpaca":
		return alpaca.New()
	default:
		return sina.New(sina.Config{RatePerMin: cfg.Market.RatePerMin})
	}
}

// buildEngines wires the two-level chain from whatever keys are present.
// With only one key that engine serves as primary and the fallback level
// is empty; with no keys every symbol will report engine unavailable.
func buildEngines() (primary, fallback engine.Engine) {
	gemini := engine.NewGemini()
	openai := engine.NewOpenAI()

	switch {
	case gemini.Configured() && openai.Configured():
		return gemini, openai
	case gemini.Configured():
		return gemini, nil
	case openai.Configured():
		return openai, nil
	default:
		return nil, nil
	}
}

func openJournal(path string) *runlog.Journal {
	if path == "" {
		return nil
	}
	j, err := runlog.Open(path)
	if err != nil {
		log.Printf("run journal unavailable: %v", err)
		return nil
	}
	return j
}

func recordRun(j *runlog.Journal, rec models.RunRecord) {
	if j == nil {
		return
	}
	if err := j.Record(rec); err != nil {
		log.Printf("run journal write failed: %v", err)
	}
}
