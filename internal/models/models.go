package models

import (
	"fmt"
	"time"
)

// WatchEntry is a single watched symbol. Entries are unique by symbol and
// keep their insertion order so reports and /list replies are stable.
type WatchEntry struct {
	Symbol  string    `json:"symbol"`
	AddedAt time.Time `json:"added_at"`
}

// WatchState is the durable state file contents. It is loaded once at the
// start of an invocation, mutated in memory, and written back atomically
// exactly once at the end. Cursor and Entries always travel together so a
// chat command is never re-applied and never silently lost.
type WatchState struct {
	Version     int          `json:"version"`
	Cursor      int64        `json:"cursor"`
	LastFullRun time.Time    `json:"last_full_run,omitempty"`
	Entries     []WatchEntry `json:"entries"`
}

// RunMode is what the scheduler decided this invocation should do.
type RunMode string

const (
	ModeFull     RunMode = "full"
	ModeSyncOnly RunMode = "sync_only"
	// ModeNone short-circuits a duplicate full run whose window was already
	// satisfied today. Command sync still happens; analysis and dispatch do not.
	ModeNone RunMode = "none"
)

// RunRecord is an observability aid journaled per invocation. Its absence
// never affects correctness.
type RunRecord struct {
	RunID     string
	Mode      RunMode
	StartedAt time.Time
	Outcome   string
}

// Finding is a named behavioral marker in the Wyckoff vocabulary. Engine
// output is normalized into this fixed set; anything unmappable is dropped
// in favor of the narrative.
type Finding string

const (
	FindingSpring             Finding = "spring"
	FindingUpthrust           Finding = "upthrust"
	FindingLastPointOfSupport Finding = "last-point-of-support"
	FindingSignOfStrength     Finding = "sign-of-strength"
	FindingSignOfWeakness     Finding = "sign-of-weakness"
	FindingAccumulation       Finding = "accumulation"
	FindingDistribution       Finding = "distribution"
)

// EngineRole records which level of the two-engine chain produced a result.
type EngineRole string

const (
	EnginePrimary  EngineRole = "primary"
	EngineFallback EngineRole = "fallback"
)

// AnalysisRequest is built fresh for every symbol on every full run.
type AnalysisRequest struct {
	Symbol string
	Window time.Duration
	Bars   []Bar
}

// AnalysisResult is the normalized output of one engine call. Transient:
// it is consumed by the report dispatcher and never persisted.
type AnalysisResult struct {
	Symbol      string
	EngineUsed  EngineRole
	EngineName  string
	Findings    []Finding
	Narrative   string
	GeneratedAt time.Time
}

// FailReason classifies why a symbol produced no result this run.
type FailReason string

const (
	ReasonDataUnavailable   FailReason = "data_unavailable"
	ReasonEngineUnavailable FailReason = "engine_unavailable"
	ReasonRunBudgetExceeded FailReason = "run_budget_exceeded"
)

// AnalysisError is a per-symbol failure. One bad symbol never aborts the
// run; the dispatcher renders it as a visible "unavailable" line item.
type AnalysisError struct {
	Symbol string
	Reason FailReason
	Detail string
}

func (e *AnalysisError) Error() string {
	return fmt.Sprintf("%s: %s (%s)", e.Symbol, e.Reason, e.Detail)
}

// SymbolReport is the per-symbol outcome handed to the dispatcher: exactly
// one of Result or Err is set. Bars are kept so the report can render the
// intraday chart without refetching.
type SymbolReport struct {
	Symbol string
	Bars   []Bar
	Result *AnalysisResult
	Err    *AnalysisError
}
