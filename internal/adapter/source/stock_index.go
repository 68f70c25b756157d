package source

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	json "github.com/goccy/go-json"

	"marketpulse/internal/domain"
)

// StockIndexClient reads the latest VN-Index level from VNDIRECT
type StockIndexClient struct {
	url    string
	client *http.Client
	clock  Clock
}

// NewStockIndexClient creates a new StockIndexClient
func NewStockIndexClient(baseURL string, client *http.Client, clock Clock) *StockIndexClient {
	return &StockIndexClient{url: baseURL, client: client, clock: clock}
}

type stockPricesResponse struct {
	Data []struct {
		Code  string          `json:"code"`
		Date  string          `json:"date"`
		Price json.RawMessage `json:"price"`
	} `json:"data"`
}

// Name returns the source name
func (c *StockIndexClient) Name() string { return NameStockIndex }

// Fetch returns the index level
func (c *StockIndexClient) Fetch(ctx context.Context) ([]domain.RawObservation, error) {
	params := url.Values{}
	params.Set("q", "code:VNINDEX")
	params.Set("size", "1")

	body, err := get(ctx, c.client, c.url+"?"+params.Encode())
	if err != nil {
		return nil, err
	}

	var resp stockPricesResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: stock prices: %v", domain.ErrMalformedResponse, err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("%w: VNINDEX price missing", domain.ErrMalformedResponse)
	}

	item := resp.Data[0]
	price, ok := numericValue(string(item.Price))
	if !ok {
		return nil, fmt.Errorf("%w: VNINDEX price %q is not numeric", domain.ErrMalformedResponse, item.Price)
	}
	date := item.Date
	if date == "" {
		date = c.clock.Today()
	}

	return []domain.RawObservation{{
		Asset:       domain.AssetStock,
		SourceLabel: "VNDIRECT",
		Unit:        domain.UnitPoint,
		Date:        date,
		Value:       price,
		Payload:     body,
	}}, nil
}
