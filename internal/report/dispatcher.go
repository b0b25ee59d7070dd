package report

import (
	"context"
	"fmt"
	"time"

	"wyckoff_watcher/internal/models"
)

// DocumentSender is the slice of the chat client the dispatcher needs.
type DocumentSender interface {
	SendDocument(ctx context.Context, filename string, data []byte, caption string) error
}

// Dispatch renders the run's reports into one PDF and sends it as a single
// document. A dispatch failure is terminal for the report but must never
// be taken as a reason to roll back watchlist state.
func Dispatch(ctx context.Context, sender DocumentSender, reports []models.SymbolReport, generatedAt time.Time) error {
	if len(reports) == 0 {
		return fmt.Errorf("nothing to dispatch")
	}

	data, err := Build(reports, generatedAt)
	if err != nil {
		return fmt.Errorf("dispatch: %w", err)
	}

	ok, failed := 0, 0
	for _, rep := range reports {
		if rep.Err != nil {
			failed++
		} else {
			ok++
		}
	}

	filename := fmt.Sprintf("wyckoff_%s.pdf", generatedAt.Format("20060102_1504"))
	caption := fmt.Sprintf("📊 Wyckoff report %s: %d analyzed, %d unavailable",
		generatedAt.Format("2006-01-02 15:04"), ok, failed)

	if err := sender.SendDocument(ctx, filename, data, caption); err != nil {
		return fmt.Errorf("dispatch: sending report: %w", err)
	}
	return nil
}
