package analysis

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wyckoff_watcher/internal/engine"
	"wyckoff_watcher/internal/models"
)

type mockProvider struct {
	mu      sync.Mutex
	failFor map[string]bool
	calls   []string
}

func (m *mockProvider) MinuteBars(ctx context.Context, symbol string, window time.Duration) ([]models.Bar, error) {
	m.mu.Lock()
	m.calls = append(m.calls, symbol)
	m.mu.Unlock()
	if m.failFor[symbol] {
		return nil, errors.New("venue unreachable")
	}
	ts := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	return []models.Bar{
		{
			Time:   ts,
			Open:   decimal.NewFromFloat(10.0),
			High:   decimal.NewFromFloat(10.5),
			Low:    decimal.NewFromFloat(9.9),
			Close:  decimal.NewFromFloat(10.2),
			Volume: 120000,
		},
	}, nil
}

type mockEngine struct {
	mu    sync.Mutex
	name  string
	reply *engine.Reply
	err   error
	block bool // simulate a call that only returns when ctx expires
	calls int
}

func (m *mockEngine) Name() string { return m.name }

func (m *mockEngine) Analyze(ctx context.Context, req models.AnalysisRequest) (*engine.Reply, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if m.err != nil {
		return nil, m.err
	}
	return m.reply, nil
}

func testConfig() Config {
	return Config{
		Lookback:        4 * time.Hour,
		PrimaryTimeout:  50 * time.Millisecond,
		FallbackTimeout: 50 * time.Millisecond,
		Workers:         1,
	}
}

func TestAnalyze_PrimarySuccess(t *testing.T) {
	primary := &mockEngine{name: "gemini", reply: &engine.Reply{
		Findings:  []string{"spring", "SOS"},
		Narrative: "absorption near support",
	}}
	fallback := &mockEngine{name: "openai"}

	o := New(&mockProvider{}, primary, fallback, testConfig())
	rep := o.Analyze(context.Background(), "600519")

	require.NotNil(t, rep.Result)
	assert.Nil(t, rep.Err)
	assert.Equal(t, models.EnginePrimary, rep.Result.EngineUsed)
	assert.Equal(t, "gemini", rep.Result.EngineName)
	assert.Equal(t, []models.Finding{models.FindingSpring, models.FindingSignOfStrength}, rep.Result.Findings)
	assert.Equal(t, 0, fallback.calls, "fallback must not fire when primary succeeds")
}

func TestAnalyze_PrimaryTimeoutFallsBack(t *testing.T) {
	primary := &mockEngine{name: "gemini", block: true}
	fallback := &mockEngine{name: "openai", reply: &engine.Reply{
		Findings:  []string{"distribution"},
		Narrative: "supply overwhelming demand",
	}}

	o := New(&mockProvider{}, primary, fallback, testConfig())
	rep := o.Analyze(context.Background(), "600519")

	require.NotNil(t, rep.Result)
	assert.Equal(t, models.EngineFallback, rep.Result.EngineUsed)
	assert.Equal(t, "openai", rep.Result.EngineName)
	assert.Equal(t, 1, primary.calls)
	assert.Equal(t, 1, fallback.calls)
}

func TestAnalyze_MalformedPrimaryFallsBack(t *testing.T) {
	primary := &mockEngine{name: "gemini", err: engine.ErrMalformed}
	fallback := &mockEngine{name: "openai", reply: &engine.Reply{Narrative: "ranging"}}

	o := New(&mockProvider{}, primary, fallback, testConfig())
	rep := o.Analyze(context.Background(), "000001")

	require.NotNil(t, rep.Result)
	assert.Equal(t, models.EngineFallback, rep.Result.EngineUsed)
	assert.Empty(t, rep.Result.Findings)
	assert.Equal(t, "ranging", rep.Result.Narrative)
}

func TestAnalyze_BothEnginesFail(t *testing.T) {
	primary := &mockEngine{name: "gemini", err: errors.New("503")}
	fallback := &mockEngine{name: "openai", err: engine.ErrMalformed}

	o := New(&mockProvider{}, primary, fallback, testConfig())
	rep := o.Analyze(context.Background(), "000001")

	require.NotNil(t, rep.Err)
	assert.Nil(t, rep.Result)
	assert.Equal(t, models.ReasonEngineUnavailable, rep.Err.Reason)
	assert.Contains(t, rep.Err.Detail, "503")
	assert.NotEmpty(t, rep.Bars, "bars survive an engine failure for the report")
}

func TestAnalyze_DataUnavailable(t *testing.T) {
	provider := &mockProvider{failFor: map[string]bool{"600000": true}}
	primary := &mockEngine{name: "gemini"}
	fallback := &mockEngine{name: "openai"}

	o := New(provider, primary, fallback, testConfig())
	rep := o.Analyze(context.Background(), "600000")

	require.NotNil(t, rep.Err)
	assert.Equal(t, models.ReasonDataUnavailable, rep.Err.Reason)
	assert.Equal(t, 0, primary.calls, "no engine call without data")
}

func TestAnalyzeAll_PartialFailureIsolation(t *testing.T) {
	provider := &mockProvider{failFor: map[string]bool{"000002": true}}
	primary := &mockEngine{name: "gemini", reply: &engine.Reply{Narrative: "ok"}}
	fallback := &mockEngine{name: "openai"}

	o := New(provider, primary, fallback, testConfig())
	reports := o.AnalyzeAll(context.Background(), []string{"600519", "000002", "601318"})

	require.Len(t, reports, 3)
	assert.Equal(t, "600519", reports[0].Symbol)
	assert.NotNil(t, reports[0].Result)
	assert.Equal(t, models.ReasonDataUnavailable, reports[1].Err.Reason)
	assert.NotNil(t, reports[2].Result, "failure of one symbol must not abort the rest")
}

func TestAnalyzeAll_BudgetExpiredSkipsRemaining(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	o := New(&mockProvider{}, &mockEngine{name: "gemini"}, &mockEngine{name: "openai"}, testConfig())
	reports := o.AnalyzeAll(ctx, []string{"600519", "000001"})

	require.Len(t, reports, 2)
	for _, rep := range reports {
		require.NotNil(t, rep.Err)
		assert.Equal(t, models.ReasonRunBudgetExceeded, rep.Err.Reason)
	}
}

func TestAnalyzeAll_WorkerPoolKeepsOrder(t *testing.T) {
	cfg := testConfig()
	cfg.Workers = 3
	primary := &mockEngine{name: "gemini", reply: &engine.Reply{Narrative: "ok"}}

	o := New(&mockProvider{}, primary, &mockEngine{name: "openai"}, cfg)
	symbols := []string{"600519", "000001", "601318", "000002"}
	reports := o.AnalyzeAll(context.Background(), symbols)

	require.Len(t, reports, len(symbols))
	for i, rep := range reports {
		assert.Equal(t, symbols[i], rep.Symbol)
	}
}
