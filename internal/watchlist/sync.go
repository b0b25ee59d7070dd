package watchlist

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"wyckoff_watcher/internal/telegram"
)

// Transport is the slice of the chat API the synchronizer needs.
type Transport interface {
	GetUpdates(ctx context.Context, since int64) ([]telegram.Update, error)
	SendMessage(ctx context.Context, text string) error
}

// CommandKind classifies a parsed chat message.
type CommandKind string

const (
	CmdAddSymbol    CommandKind = "add"
	CmdRemoveSymbol CommandKind = "remove"
	CmdList         CommandKind = "list"
	CmdHelp         CommandKind = "help"
	CmdStart        CommandKind = "start"
	CmdUnrecognized CommandKind = "unrecognized"
)

// AppliedCommand records one message the synchronizer acted on.
type AppliedCommand struct {
	UpdateID int64
	Kind     CommandKind
	Symbol   string
}

// Synchronizer pulls chat messages newer than the cursor, turns them into
// watchlist mutations, and applies them in ascending update order. The
// cursor it returns is persisted together with the store by the runner,
// which is what makes command replay idempotent across runs.
type Synchronizer struct {
	store      *Store
	transport  Transport
	authChatID int64

	// StrictSymbols rejects numeric input that is not a 6-digit A-share
	// code. In the default lenient mode any numeric-looking code is
	// watched and a bad one surfaces as a data-fetch failure downstream.
	StrictSymbols bool

	// Now is injectable for tests; defaults to time.Now.
	Now func() time.Time
}

func NewSynchronizer(store *Store, transport Transport, authChatID int64) *Synchronizer {
	return &Synchronizer{
		store:      store,
		transport:  transport,
		authChatID: authChatID,
		Now:        time.Now,
	}
}

// Sync fetches messages strictly newer than cursor and applies them.
// On transport failure the cursor is returned unchanged and nothing is
// applied; the next invocation retries the same window safely.
func (s *Synchronizer) Sync(ctx context.Context, cursor int64) (int64, []AppliedCommand, error) {
	updates, err := s.transport.GetUpdates(ctx, cursor)
	if err != nil {
		return cursor, nil, fmt.Errorf("sync transport: %w", err)
	}

	newCursor := cursor
	var applied []AppliedCommand

	for _, u := range updates {
		if u.UpdateID > newCursor {
			newCursor = u.UpdateID
		}

		if u.Message.Chat.ID != s.authChatID {
			// Unauthorized senders are skipped without a reply, but the
			// cursor still advances past them.
			log.Printf("⚠️ Unauthorized chat %d (user %s) ignored: %q",
				u.Message.Chat.ID, u.Message.From.Username, u.Message.Text)
			continue
		}

		kind, symbol := s.parse(u.Message.Text)
		if kind == CmdUnrecognized {
			continue
		}

		s.apply(ctx, kind, symbol)
		applied = append(applied, AppliedCommand{UpdateID: u.UpdateID, Kind: kind, Symbol: symbol})
	}

	return newCursor, applied, nil
}

// parse maps a raw message to a command. Bare numeric text adds a symbol;
// slash commands cover remove/list/help/start; everything else is
// unrecognized and ignored.
func (s *Synchronizer) parse(text string) (CommandKind, string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return CmdUnrecognized, ""
	}

	if !strings.HasPrefix(text, "/") {
		if isNumeric(text) {
			if s.StrictSymbols && !IsValidSymbol(text) {
				return CmdUnrecognized, text
			}
			return CmdAddSymbol, text
		}
		return CmdUnrecognized, ""
	}

	parts := strings.Fields(text)
	switch parts[0] {
	case "/remove":
		if len(parts) < 2 {
			return CmdRemoveSymbol, ""
		}
		return CmdRemoveSymbol, parts[1]
	case "/list":
		return CmdList, ""
	case "/help":
		return CmdHelp, ""
	case "/start":
		return CmdStart, ""
	default:
		return CmdUnrecognized, ""
	}
}

func (s *Synchronizer) apply(ctx context.Context, kind CommandKind, symbol string) {
	switch kind {
	case CmdAddSymbol:
		if s.store.Add(symbol, s.Now()) {
			s.reply(ctx, fmt.Sprintf("✅ Now watching %s", symbol))
		} else {
			s.reply(ctx, fmt.Sprintf("ℹ️ %s is already on the watchlist", symbol))
		}
	case CmdRemoveSymbol:
		if symbol == "" {
			s.reply(ctx, "Usage: /remove <code>")
			return
		}
		if s.store.Remove(symbol) {
			s.reply(ctx, fmt.Sprintf("🗑 Removed %s from the watchlist", symbol))
		} else {
			s.reply(ctx, fmt.Sprintf("ℹ️ %s is not on the watchlist", symbol))
		}
	case CmdList:
		s.reply(ctx, s.formatList())
	case CmdHelp:
		s.reply(ctx, helpText)
	case CmdStart:
		s.reply(ctx, startText)
	}
}

// reply failures are logged and swallowed: an acknowledgement that never
// arrives must not block the mutation it acknowledges.
func (s *Synchronizer) reply(ctx context.Context, text string) {
	if err := s.transport.SendMessage(ctx, text); err != nil {
		log.Printf("Reply failed: %v", err)
	}
}

func (s *Synchronizer) formatList() string {
	entries := s.store.List()
	if len(entries) == 0 {
		return "The watchlist is empty. Send a stock code (e.g. 600519) to add one."
	}
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("📋 *Watchlist* (%d):\n", len(entries)))
	for _, e := range entries {
		sb.WriteString(fmt.Sprintf("- %s\n", e.Symbol))
	}
	return strings.TrimRight(sb.String(), "\n")
}

const startText = "Welcome to the stock analysis bot!\n" +
	"\nCommands:\n" +
	"- Send a stock code to start watching it\n" +
	"- /remove <code>: stop watching\n" +
	"- /list: show the watchlist\n" +
	"- /help: show help"

const helpText = "Help:\n" +
	"\nAdd a stock: send its code (e.g. 600519)\n" +
	"Remove a stock: /remove 600519\n" +
	"Show the watchlist: /list\n" +
	"Get started: /start"

// IsValidSymbol reports whether code matches the A-share convention:
// exactly six digits.
func IsValidSymbol(code string) bool {
	return len(code) == 6 && isNumeric(code)
}

func isNumeric(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}
