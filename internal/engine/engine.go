package engine

import (
	"context"
	"errors"

	"wyckoff_watcher/internal/models"
)

// ErrMalformed means the engine answered but the reply failed the shape
// check (not JSON, or no narrative). Distinct from transport errors so the
// orchestrator can log why the fallback fired.
var ErrMalformed = errors.New("malformed engine reply")

// Reply is the raw structured output of one engine call, before findings
// normalization. Findings carry whatever marker strings the model chose.
type Reply struct {
	Findings  []string `json:"findings"`
	Narrative string   `json:"narrative"`
}

// Engine turns price data into pattern findings plus a narrative.
// Implementations must respect ctx for timeout and cancellation.
type Engine interface {
	Name() string
	Analyze(ctx context.Context, req models.AnalysisRequest) (*Reply, error)
}

// Verdict tags the outcome of an engine call for logging and tests.
type Verdict string

const (
	VerdictSuccess   Verdict = "success"
	VerdictTimeout   Verdict = "timeout"
	VerdictError     Verdict = "error"
	VerdictMalformed Verdict = "malformed"
)

// Classify maps an engine call outcome onto the tagged verdict set.
func Classify(err error) Verdict {
	switch {
	case err == nil:
		return VerdictSuccess
	case errors.Is(err, context.DeadlineExceeded):
		return VerdictTimeout
	case errors.Is(err, ErrMalformed):
		return VerdictMalformed
	default:
		return VerdictError
	}
}
