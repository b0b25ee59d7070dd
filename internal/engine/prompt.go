package engine

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"wyckoff_watcher/internal/models"
)

var hundred = decimal.NewFromInt(100)

// systemInstruction frames both engines identically so the fallback
// produces comparable output to the primary.
const systemInstruction = "You are a professional equity analyst specializing in Wyckoff method " +
	"supply/demand analysis of intraday price action. You reply with a single JSON object of the form " +
	`{"findings": ["spring", "accumulation", ...], "narrative": "..."}. ` +
	"findings uses only these markers where the data supports them: spring, upthrust, " +
	"last-point-of-support, sign-of-strength, sign-of-weakness, accumulation, distribution. " +
	"narrative covers market structure, detected behaviors, a short-term outlook, and risk notes."

// buildPrompt renders the per-symbol analysis request: the focus areas plus
// a compact summary of the bar window, including per-hour trend buckets.
func buildPrompt(req models.AnalysisRequest) string {
	var sb strings.Builder

	sb.WriteString("Analyze the following 1-minute candlestick data, focusing on:\n")
	sb.WriteString("1. Supply/demand balance\n")
	sb.WriteString("2. Key Wyckoff behaviors: spring, upthrust (UT), last point of support (LPS)\n")
	sb.WriteString("3. Traces of institutional accumulation or distribution\n")
	sb.WriteString("4. Short-term direction\n\n")
	sb.WriteString(summarize(req))

	return sb.String()
}

func summarize(req models.AnalysisRequest) string {
	s := models.Summarize(req.Bars)
	if s.RowCount == 0 {
		return fmt.Sprintf("Symbol: %s\nNo data.", req.Symbol)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Symbol: %s\n", req.Symbol)
	fmt.Fprintf(&sb, "Last price: %s\n", s.Last.StringFixed(2))
	fmt.Fprintf(&sb, "Window open: %s\n", s.Open.StringFixed(2))
	fmt.Fprintf(&sb, "High: %s\n", s.High.StringFixed(2))
	fmt.Fprintf(&sb, "Low: %s\n", s.Low.StringFixed(2))
	fmt.Fprintf(&sb, "Change: %s%%\n", s.ChangePct.StringFixed(2))
	fmt.Fprintf(&sb, "Total volume: %d\n", s.Volume)
	fmt.Fprintf(&sb, "Rows: %d (%s - %s)\n", s.RowCount,
		s.WindowFrom.Format("15:04"), s.WindowTo.Format("15:04"))

	if trend := hourlyTrend(req.Bars); len(trend) > 0 {
		sb.WriteString("Recent hourly trend:\n")
		for _, line := range trend {
			sb.WriteString(line + "\n")
		}
	}

	return sb.String()
}

// hourlyTrend buckets the most recent bars into 60-row hours, newest first,
// and reports each hour's percent change. At most four buckets.
func hourlyTrend(bars []models.Bar) []string {
	hours := len(bars) / 60
	if hours > 4 {
		hours = 4
	}

	var lines []string
	for i := 0; i < hours; i++ {
		end := len(bars) - i*60
		start := end - 60
		if start < 0 {
			break
		}
		open := bars[start].Open
		if open.IsZero() {
			continue
		}
		change := bars[end-1].Close.Sub(open).Div(open).Mul(hundred)
		lines = append(lines, fmt.Sprintf("%dh ago: %s%%", i+1, change.StringFixed(2)))
	}
	return lines
}
