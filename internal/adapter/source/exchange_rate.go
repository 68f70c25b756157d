package source

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/antchfx/xmlquery"

	"marketpulse/internal/domain"
)

// ExchangeRateClient reads the USD transfer rate from the Vietcombank XML rate table
type ExchangeRateClient struct {
	url    string
	client *http.Client
	clock  Clock
}

// NewExchangeRateClient creates a new ExchangeRateClient
func NewExchangeRateClient(url string, client *http.Client, clock Clock) *ExchangeRateClient {
	return &ExchangeRateClient{url: url, client: client, clock: clock}
}

// Name returns the source name
func (c *ExchangeRateClient) Name() string { return NameExchangeRate }

// Fetch returns the USD/VND transfer rate
func (c *ExchangeRateClient) Fetch(ctx context.Context) ([]domain.RawObservation, error) {
	body, err := get(ctx, c.client, c.url)
	if err != nil {
		return nil, err
	}

	doc, err := xmlquery.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: rate table: %v", domain.ErrMalformedResponse, err)
	}

	node := xmlquery.FindOne(doc, "//Exrate[@CurrencyCode='USD']")
	if node == nil {
		return nil, fmt.Errorf("%w: USD rate not listed", domain.ErrMalformedResponse)
	}

	transfer := strings.ReplaceAll(strings.TrimSpace(node.SelectAttr("Transfer")), ",", "")
	if transfer == "" || transfer == "-" {
		return nil, fmt.Errorf("%w: USD transfer rate missing", domain.ErrMalformedResponse)
	}
	if _, ok := numericValue(transfer); !ok {
		return nil, fmt.Errorf("%w: USD transfer rate %q is not numeric", domain.ErrMalformedResponse, transfer)
	}

	return []domain.RawObservation{{
		Asset:       domain.AssetUSD,
		SourceLabel: "VIETCOMBANK",
		Unit:        domain.UnitVND,
		Date:        c.clock.Today(),
		Value:       transfer,
		Payload:     []byte(node.OutputXML(true)),
	}}, nil
}
