package alpaca

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
	"github.com/shopspring/decimal"

	"wyckoff_watcher/internal/market"
	"wyckoff_watcher/internal/models"
)

// Provider fetches US-equity minute bars through the Alpaca market data
// API. It is the alternate venue for deployments that watch US tickers
// instead of A-shares; credentials come from the standard APCA_* env vars.
type Provider struct {
	md *marketdata.Client
}

func New() *Provider {
	return &Provider{
		md: marketdata.NewClient(marketdata.ClientOpts{}),
	}
}

// MinuteBars returns 1-minute bars covering the lookback window.
func (p *Provider) MinuteBars(ctx context.Context, symbol string, window time.Duration) ([]models.Bar, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	start := time.Now().Add(-window)

	raw, err := p.md.GetBars(symbol, marketdata.GetBarsRequest{
		TimeFrame: marketdata.OneMin,
		Start:     start,
	})
	if err != nil {
		return nil, fmt.Errorf("alpaca bars for %s: %w", symbol, err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("%s: %w", symbol, market.ErrNoData)
	}

	bars := make([]models.Bar, 0, len(raw))
	for _, b := range raw {
		bars = append(bars, models.Bar{
			Time:   b.Timestamp,
			Open:   decimal.NewFromFloat(b.Open),
			High:   decimal.NewFromFloat(b.High),
			Low:    decimal.NewFromFloat(b.Low),
			Close:  decimal.NewFromFloat(b.Close),
			Volume: int64(b.Volume),
		})
	}
	return bars, nil
}
