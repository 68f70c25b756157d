package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/shopspring/decimal"

	"marketpulse/internal/domain"
)

// Source names
const (
	NameGold         = "btmc"
	NameExchangeRate = "vietcombank"
	NameCrypto       = "coingecko"
	NameStockIndex   = "vndirect"
)

// Config holds provider endpoints and which providers are enabled
type Config struct {
	Enabled         []string      `yaml:"enabled" default:"[\"btmc\",\"vietcombank\",\"coingecko\"]" validate:"dive,oneof=btmc vietcombank coingecko vndirect"`
	Timeout         time.Duration `yaml:"timeout" default:"15s"`
	GoldURL         string        `yaml:"gold_url" default:"http://api.btmc.vn/api/BTMCAPI/getpricebtmc" validate:"url"`
	GoldAPIKey      string        `yaml:"gold_api_key"`
	ExchangeRateURL string        `yaml:"exchange_rate_url" default:"https://portal.vietcombank.com.vn/Usercontrols/TVPortal.TyGia/pXML.aspx?b=8" validate:"url"`
	CryptoURL       string        `yaml:"crypto_url" default:"https://api.coingecko.com/api/v3/simple/price" validate:"url"`
	StockURL        string        `yaml:"stock_url" default:"https://finfo-api.vndirect.com.vn/v4/stock_prices/" validate:"url"`
}

// Clock supplies the observation date for providers that do not report one
type Clock struct {
	Now      func() time.Time
	Location *time.Location
}

// Today returns the local calendar date as YYYY-MM-DD
func (c Clock) Today() string {
	now := time.Now
	if c.Now != nil {
		now = c.Now
	}
	loc := c.Location
	if loc == nil {
		loc = time.UTC
	}
	return now().In(loc).Format("2006-01-02")
}

// Build constructs the enabled clients in configured order
func Build(cfg Config, client *http.Client, clock Clock) ([]domain.SourceClient, error) {
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}

	sources := make([]domain.SourceClient, 0, len(cfg.Enabled))
	for _, name := range cfg.Enabled {
		switch name {
		case NameGold:
			sources = append(sources, NewGoldClient(cfg.GoldURL, cfg.GoldAPIKey, client, clock))
		case NameExchangeRate:
			sources = append(sources, NewExchangeRateClient(cfg.ExchangeRateURL, client, clock))
		case NameCrypto:
			sources = append(sources, NewCryptoClient(cfg.CryptoURL, client, clock))
		case NameStockIndex:
			sources = append(sources, NewStockIndexClient(cfg.StockURL, client, clock))
		default:
			return nil, fmt.Errorf("unknown source %q", name)
		}
	}
	return sources, nil
}

// get performs a GET and returns the body of a 2xx response
func get(ctx context.Context, client *http.Client, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "marketpulse/1.0")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call provider: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("provider returned error: status=%d", resp.StatusCode)
	}

	return body, nil
}

// numericValue unquotes a JSON string literal and reports whether what is
// left parses as a decimal. Providers send prices both as numbers and strings.
func numericValue(raw string) (string, bool) {
	v := strings.TrimSpace(raw)
	if len(v) >= 2 && v[0] == '"' && v[len(v)-1] == '"' {
		var s string
		if err := json.Unmarshal([]byte(v), &s); err != nil {
			return "", false
		}
		v = strings.TrimSpace(s)
	}
	if _, err := decimal.NewFromString(v); err != nil {
		return "", false
	}
	return v, true
}
