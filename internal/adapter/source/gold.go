package source

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-playground/validator/v10"
	json "github.com/goccy/go-json"

	"marketpulse/internal/domain"
)

// sjcBarName marks the SJC bar row in the BTMC price board
const sjcBarName = "VÀNG MIẾNG SJC"

// GoldClient reads the SJC bar buy and sell prices from the BTMC price board
type GoldClient struct {
	url      string
	apiKey   string
	client   *http.Client
	clock    Clock
	validate *validator.Validate
}

// NewGoldClient creates a new GoldClient
func NewGoldClient(baseURL, apiKey string, client *http.Client, clock Clock) *GoldClient {
	return &GoldClient{
		url:      baseURL,
		apiKey:   apiKey,
		client:   client,
		clock:    clock,
		validate: validator.New(),
	}
}

type btmcResponse struct {
	DataList struct {
		Data []map[string]any `json:"Data"`
	} `json:"DataList"`
}

type goldQuote struct {
	Buy  string `validate:"required,numeric"`
	Sell string `validate:"required,numeric"`
}

// Name returns the source name
func (c *GoldClient) Name() string { return NameGold }

// Fetch returns two observations: BTMC_BUY and BTMC_SELL
func (c *GoldClient) Fetch(ctx context.Context) ([]domain.RawObservation, error) {
	endpoint := c.url
	if c.apiKey != "" {
		endpoint += "?key=" + url.QueryEscape(c.apiKey)
	}

	body, err := get(ctx, c.client, endpoint)
	if err != nil {
		return nil, err
	}

	row, err := findSJCRow(body)
	if err != nil {
		return nil, err
	}

	rowID := row["@row"]
	quote := goldQuote{
		Buy:  row["@pb_"+rowID],
		Sell: row["@ps_"+rowID],
	}
	if err := c.validate.Struct(quote); err != nil {
		return nil, fmt.Errorf("%w: gold quote: %v", domain.ErrMalformedResponse, err)
	}

	payload, err := json.Marshal(row)
	if err != nil {
		return nil, fmt.Errorf("failed to encode gold payload: %w", err)
	}

	today := c.clock.Today()
	return []domain.RawObservation{
		{Asset: domain.AssetGold, SourceLabel: "BTMC_BUY", Unit: domain.UnitVND, Date: today, Value: quote.Buy, Payload: payload},
		{Asset: domain.AssetGold, SourceLabel: "BTMC_SELL", Unit: domain.UnitVND, Date: today, Value: quote.Sell, Payload: payload},
	}, nil
}

// findSJCRow returns the first row whose @n_ field names the SJC bar,
// with every field flattened to its string form.
func findSJCRow(body []byte) (map[string]string, error) {
	var resp btmcResponse
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&resp); err != nil {
		return nil, fmt.Errorf("%w: gold board: %v", domain.ErrMalformedResponse, err)
	}
	if len(resp.DataList.Data) == 0 {
		return nil, fmt.Errorf("%w: gold board has no rows", domain.ErrMalformedResponse)
	}

	for _, item := range resp.DataList.Data {
		for key, v := range item {
			name, ok := v.(string)
			if !ok || !strings.HasPrefix(key, "@n_") || !strings.Contains(name, sjcBarName) {
				continue
			}
			row := make(map[string]string, len(item))
			for k, val := range item {
				row[k] = strings.TrimSpace(fmt.Sprint(val))
			}
			return row, nil
		}
	}

	return nil, fmt.Errorf("%w: %s row not found", domain.ErrMalformedResponse, sjcBarName)
}
