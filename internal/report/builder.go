package report

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/shopspring/decimal"

	"wyckoff_watcher/internal/models"
)

const (
	pageLeft   = 15.0
	pageRight  = 195.0
	chartH     = 70.0
	maxCandles = 240
)

// Build renders the full-run report as a single PDF, one page per symbol.
// Symbols that failed analysis still get a page so their absence is visible
// rather than silent.
func Build(reports []models.SymbolReport, generatedAt time.Time) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetAutoPageBreak(true, 15)

	for _, rep := range reports {
		pdf.AddPage()
		writeHeader(pdf, rep.Symbol, generatedAt)

		if rep.Err != nil {
			writeFailure(pdf, rep.Err)
			if len(rep.Bars) > 0 {
				writeSummaryTable(pdf, models.Summarize(rep.Bars))
				drawCandles(pdf, rep.Bars)
			}
			continue
		}

		writeSummaryTable(pdf, models.Summarize(rep.Bars))
		drawCandles(pdf, rep.Bars)
		writeAnalysis(pdf, rep.Result)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("rendering report pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func writeHeader(pdf *fpdf.Fpdf, symbol string, generatedAt time.Time) {
	pdf.SetFont("Helvetica", "B", 18)
	pdf.CellFormat(0, 10, fmt.Sprintf("Wyckoff Report  %s", symbol), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	pdf.SetTextColor(110, 110, 110)
	pdf.CellFormat(0, 5, generatedAt.Format("2006-01-02 15:04 MST"), "", 1, "L", false, 0, "")
	pdf.SetTextColor(0, 0, 0)
	pdf.Ln(4)
}

func writeFailure(pdf *fpdf.Fpdf, aerr *models.AnalysisError) {
	pdf.SetFont("Helvetica", "B", 12)
	pdf.SetTextColor(180, 40, 40)
	pdf.CellFormat(0, 8, "Analysis unavailable", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.SetTextColor(0, 0, 0)
	pdf.MultiCell(0, 5, fmt.Sprintf("Reason: %s. %s", aerr.Reason, aerr.Detail), "", "L", false)
	pdf.Ln(4)
}

func writeSummaryTable(pdf *fpdf.Fpdf, s models.BarSummary) {
	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(0, 8, "Data Summary", "", 1, "L", false, 0, "")

	type row struct{ label, value string }
	rows := []row{
		{"Open", s.Open.StringFixed(2)},
		{"High", s.High.StringFixed(2)},
		{"Low", s.Low.StringFixed(2)},
		{"Last", s.Last.StringFixed(2)},
		{"Change", s.ChangePct.StringFixed(2) + "%"},
		{"Volume", fmt.Sprintf("%d", s.Volume)},
		{"Bars", fmt.Sprintf("%d", s.RowCount)},
		{"Window", fmt.Sprintf("%s - %s", s.WindowFrom.Format("15:04"), s.WindowTo.Format("15:04"))},
	}

	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetFillColor(235, 235, 235)
	for _, r := range rows {
		pdf.SetFont("Helvetica", "B", 10)
		pdf.CellFormat(35, 7, r.label, "1", 0, "L", true, 0, "")
		pdf.SetFont("Helvetica", "", 10)
		pdf.CellFormat(55, 7, r.value, "1", 1, "R", false, 0, "")
	}
	pdf.Ln(4)
}

// drawCandles paints the intraday candlestick chart directly with fpdf
// primitives. Red for up bars, green for down, following A-share
// convention.
func drawCandles(pdf *fpdf.Fpdf, bars []models.Bar) {
	if len(bars) == 0 {
		return
	}
	if len(bars) > maxCandles {
		bars = bars[len(bars)-maxCandles:]
	}

	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(0, 8, "Intraday Chart", "", 1, "L", false, 0, "")
	chartTop := pdf.GetY()

	lo, hi := priceRange(bars)
	span, _ := hi.Sub(lo).Float64()
	if span <= 0 {
		span = 1
	}
	loF, _ := lo.Float64()

	toY := func(p decimal.Decimal) float64 {
		v, _ := p.Float64()
		return chartTop + chartH - (v-loF)/span*chartH
	}

	pdf.SetDrawColor(200, 200, 200)
	pdf.Rect(pageLeft, chartTop, pageRight-pageLeft, chartH, "D")

	step := (pageRight - pageLeft) / float64(len(bars))
	bodyW := step * 0.7
	if bodyW < 0.2 {
		bodyW = 0.2
	}

	for i, b := range bars {
		x := pageLeft + float64(i)*step + step/2

		up := b.Close.GreaterThanOrEqual(b.Open)
		if up {
			pdf.SetDrawColor(200, 30, 30)
			pdf.SetFillColor(200, 30, 30)
		} else {
			pdf.SetDrawColor(20, 140, 60)
			pdf.SetFillColor(20, 140, 60)
		}

		pdf.Line(x, toY(b.High), x, toY(b.Low))

		top, bot := b.Open, b.Close
		if up {
			top, bot = b.Close, b.Open
		}
		h := toY(bot) - toY(top)
		if h < 0.2 {
			h = 0.2
		}
		pdf.Rect(x-bodyW/2, toY(top), bodyW, h, "F")
	}

	pdf.SetDrawColor(0, 0, 0)
	pdf.SetFillColor(255, 255, 255)
	pdf.SetY(chartTop + chartH + 6)
}

func writeAnalysis(pdf *fpdf.Fpdf, res *models.AnalysisResult) {
	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(0, 8, "AI Analysis", "", 1, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 10)
	if len(res.Findings) == 0 {
		pdf.CellFormat(0, 6, "No named patterns detected in this window.", "", 1, "L", false, 0, "")
	} else {
		for _, f := range res.Findings {
			pdf.CellFormat(0, 6, "- "+string(f), "", 1, "L", false, 0, "")
		}
	}
	pdf.Ln(2)

	pdf.SetFont("Helvetica", "", 10)
	for _, para := range strings.Split(res.Narrative, "\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		pdf.MultiCell(0, 5, para, "", "L", false)
		pdf.Ln(1)
	}

	pdf.Ln(2)
	pdf.SetFont("Helvetica", "I", 8)
	pdf.SetTextColor(110, 110, 110)
	pdf.CellFormat(0, 5, fmt.Sprintf("Engine: %s (%s)", res.EngineName, res.EngineUsed), "", 1, "L", false, 0, "")
	pdf.SetTextColor(0, 0, 0)
}

func priceRange(bars []models.Bar) (lo, hi decimal.Decimal) {
	lo, hi = bars[0].Low, bars[0].High
	for _, b := range bars {
		if b.Low.LessThan(lo) {
			lo = b.Low
		}
		if b.High.GreaterThan(hi) {
			hi = b.High
		}
	}
	return lo, hi
}
