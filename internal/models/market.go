package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Bar represents one intraday candlestick.
type Bar struct {
	Time   time.Time       `json:"time"`
	Open   decimal.Decimal `json:"open"`
	High   decimal.Decimal `json:"high"`
	Low    decimal.Decimal `json:"low"`
	Close  decimal.Decimal `json:"close"`
	Volume int64           `json:"volume"`
}

// BarSummary aggregates a bar window for prompts and report tables.
type BarSummary struct {
	Open       decimal.Decimal
	High       decimal.Decimal
	Low        decimal.Decimal
	Last       decimal.Decimal
	Volume     int64
	ChangePct  decimal.Decimal
	RowCount   int
	WindowFrom time.Time
	WindowTo   time.Time
}

// Summarize computes the window aggregate over bars in time order.
// Returns the zero summary when bars is empty.
func Summarize(bars []Bar) BarSummary {
	if len(bars) == 0 {
		return BarSummary{}
	}

	s := BarSummary{
		Open:       bars[0].Open,
		High:       bars[0].High,
		Low:        bars[0].Low,
		Last:       bars[len(bars)-1].Close,
		RowCount:   len(bars),
		WindowFrom: bars[0].Time,
		WindowTo:   bars[len(bars)-1].Time,
	}
	for _, b := range bars {
		if b.High.GreaterThan(s.High) {
			s.High = b.High
		}
		if b.Low.LessThan(s.Low) {
			s.Low = b.Low
		}
		s.Volume += b.Volume
	}
	if !s.Open.IsZero() {
		hundred := decimal.NewFromInt(100)
		s.ChangePct = s.Last.Sub(s.Open).Div(s.Open).Mul(hundred)
	}
	return s
}
