package source

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	json "github.com/goccy/go-json"

	"marketpulse/internal/domain"
)

// coin ids requested from CoinGecko and the label each maps to
var coins = []struct {
	id    string
	label string
}{
	{id: "bitcoin", label: "COINGECKO_BTC"},
	{id: "ethereum", label: "COINGECKO_ETH"},
}

// CryptoClient reads BTC and ETH spot prices in USD from CoinGecko
type CryptoClient struct {
	url    string
	client *http.Client
	clock  Clock
}

// NewCryptoClient creates a new CryptoClient
func NewCryptoClient(baseURL string, client *http.Client, clock Clock) *CryptoClient {
	return &CryptoClient{url: baseURL, client: client, clock: clock}
}

// Name returns the source name
func (c *CryptoClient) Name() string { return NameCrypto }

// Fetch returns one observation per coin with a numeric price.
// A coin that is missing or not numeric is skipped; no usable coin is a failure.
func (c *CryptoClient) Fetch(ctx context.Context) ([]domain.RawObservation, error) {
	params := url.Values{}
	params.Set("ids", "bitcoin,ethereum")
	params.Set("vs_currencies", "usd")

	body, err := get(ctx, c.client, c.url+"?"+params.Encode())
	if err != nil {
		return nil, err
	}

	var prices map[string]map[string]json.RawMessage
	if err := json.Unmarshal(body, &prices); err != nil {
		return nil, fmt.Errorf("%w: price map: %v", domain.ErrMalformedResponse, err)
	}

	today := c.clock.Today()
	observations := make([]domain.RawObservation, 0, len(coins))
	for _, coin := range coins {
		usd, ok := prices[coin.id]["usd"]
		if !ok {
			continue
		}
		value, ok := numericValue(string(usd))
		if !ok {
			continue
		}
		observations = append(observations, domain.RawObservation{
			Asset:       domain.AssetCrypto,
			SourceLabel: coin.label,
			Unit:        domain.UnitUSD,
			Date:        today,
			Value:       value,
			Payload:     usd,
		})
	}

	if len(observations) == 0 {
		return nil, fmt.Errorf("%w: no coin prices", domain.ErrMalformedResponse)
	}
	return observations, nil
}
