package market

import (
	"context"
	"errors"
	"time"

	"wyckoff_watcher/internal/models"
)

// ErrNoData means the venue answered but had no bars for the symbol,
// typically a code that does not exist or has not traded in the window.
var ErrNoData = errors.New("no intraday data")

// DataProvider fetches intraday bars for one symbol. Implementations must
// honor ctx and carry their own request timeouts; the orchestrator treats
// any error as DataUnavailable for that symbol and moves on.
type DataProvider interface {
	MinuteBars(ctx context.Context, symbol string, window time.Duration) ([]models.Bar, error)
}
