package sina

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/time/rate"

	"wyckoff_watcher/internal/market"
	"wyckoff_watcher/internal/models"
)

const (
	quoteURL = "http://hq.sinajs.cn/list=%s"
	klineURL = "https://quotes.sina.cn/cn/api/json_v2.php/CN_MarketDataService.getKLineData?symbol=%s&scale=1&ma=no&datalen=%d"

	// The venue serves at most this many 1-minute rows per request.
	maxRows = 1023
)

// Config tunes the provider. Zero values get sane defaults.
type Config struct {
	RatePerMin     int
	TimeoutSeconds int
}

// Provider fetches A-share 1-minute bars from the Sina quote API. Requests
// are paced with a rate limiter so a long watchlist does not hammer the
// endpoint the way a bare loop would.
type Provider struct {
	http    *http.Client
	limiter *rate.Limiter
}

func New(cfg Config) *Provider {
	if cfg.RatePerMin <= 0 {
		cfg.RatePerMin = 30
	}
	if cfg.TimeoutSeconds <= 0 {
		cfg.TimeoutSeconds = 20
	}
	return &Provider{
		http: &http.Client{
			Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
		},
		limiter: rate.NewLimiter(rate.Limit(float64(cfg.RatePerMin)/60), 1),
	}
}

// MinuteBars fetches up to window worth of 1-minute bars. Bare 6-digit
// codes are resolved to their sh/sz prefix first.
func (p *Provider) MinuteBars(ctx context.Context, symbol string, window time.Duration) ([]models.Bar, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	resolved, err := p.resolveSymbol(ctx, symbol)
	if err != nil {
		return nil, err
	}

	rows := int(window.Minutes())
	if rows <= 0 {
		rows = 240
	}
	if rows > maxRows {
		rows = maxRows
	}

	url := fmt.Sprintf(klineURL, resolved, rows)
	body, err := p.get(ctx, url, false)
	if err != nil {
		return nil, err
	}

	var raw []struct {
		Day    string `json:"day"`
		Open   string `json:"open"`
		High   string `json:"high"`
		Low    string `json:"low"`
		Close  string `json:"close"`
		Volume string `json:"volume"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("parse kline response for %s: %w", resolved, err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("%s: %w", symbol, market.ErrNoData)
	}

	bars := make([]models.Bar, 0, len(raw))
	for _, r := range raw {
		t, err := time.ParseInLocation("2006-01-02 15:04:05", r.Day, time.Local)
		if err != nil {
			continue
		}
		open, err1 := decimal.NewFromString(r.Open)
		high, err2 := decimal.NewFromString(r.High)
		low, err3 := decimal.NewFromString(r.Low)
		cls, err4 := decimal.NewFromString(r.Close)
		if err1 != nil || err2 != nil || err3 != nil || err4 != nil {
			continue
		}
		vol, _ := decimal.NewFromString(r.Volume)
		bars = append(bars, models.Bar{
			Time:   t,
			Open:   open,
			High:   high,
			Low:    low,
			Close:  cls,
			Volume: vol.IntPart(),
		})
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("%s: %w", symbol, market.ErrNoData)
	}

	return bars, nil
}

// resolveSymbol maps a bare numeric code to its exchange-qualified form by
// probing the quote endpoint for both listings. Codes already carrying an
// sh/sz prefix pass through.
func (p *Provider) resolveSymbol(ctx context.Context, code string) (string, error) {
	lower := strings.ToLower(code)
	if strings.HasPrefix(lower, "sh") || strings.HasPrefix(lower, "sz") {
		return lower, nil
	}

	url := fmt.Sprintf(quoteURL, fmt.Sprintf("sh%s,sz%s", code, code))
	body, err := p.get(ctx, url, true)
	if err != nil {
		return "", err
	}

	for _, line := range strings.Split(string(body), "\n") {
		parts := strings.Split(line, "\"")
		if len(parts) < 2 || parts[1] == "" {
			continue
		}
		if strings.Contains(line, "sh"+code) {
			return "sh" + code, nil
		}
		if strings.Contains(line, "sz"+code) {
			return "sz" + code, nil
		}
	}
	return "", fmt.Errorf("%s: %w", code, market.ErrNoData)
}

// get performs one request. The legacy quote endpoint answers in GBK and
// requires a finance.sina.com.cn Referer.
func (p *Provider) get(ctx context.Context, url string, gbk bool) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Referer", "https://finance.sina.com.cn")

	resp, err := p.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("sina API status %s", resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if gbk {
		decoder := simplifiedchinese.GBK.NewDecoder()
		return decoder.Bytes(body)
	}
	return body, nil
}
