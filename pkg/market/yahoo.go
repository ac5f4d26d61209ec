package market

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/codeready-toolchain/herald/pkg/version"
)

// DefaultYahooURL is the Yahoo Finance chart API.
const DefaultYahooURL = "https://query1.finance.yahoo.com"

// Yahoo reads regularMarketPrice from the public chart endpoint.
type Yahoo struct {
	baseURL string
	client  *http.Client
}

var _ Provider = (*Yahoo)(nil)

// NewYahoo creates a provider. An empty baseURL uses DefaultYahooURL.
func NewYahoo(baseURL string, client *http.Client) *Yahoo {
	if baseURL == "" {
		baseURL = DefaultYahooURL
	}
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &Yahoo{baseURL: strings.TrimRight(baseURL, "/"), client: client}
}

type chartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Symbol             string  `json:"symbol"`
				Currency           string  `json:"currency"`
				RegularMarketPrice float64 `json:"regularMarketPrice"`
			} `json:"meta"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// Quote fetches the latest price of symbol.
func (y *Yahoo) Quote(ctx context.Context, symbol string) (Quote, error) {
	endpoint := fmt.Sprintf("%s/v8/finance/chart/%s?range=1d&interval=1d", y.baseURL, url.PathEscape(symbol))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Quote{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", version.UserAgent())
	req.Header.Set("Accept", "application/json")

	resp, err := y.client.Do(req)
	if err != nil {
		return Quote{}, fmt.Errorf("quote %s: %w", symbol, err)
	}
	defer resp.Body.Close()

	var raw chartResponse
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return Quote{}, fmt.Errorf("quote %s: decode: %w (HTTP %d)", symbol, err, resp.StatusCode)
	}
	if raw.Chart.Error != nil {
		return Quote{}, fmt.Errorf("quote %s: %s", symbol, raw.Chart.Error.Description)
	}
	if resp.StatusCode != http.StatusOK {
		return Quote{}, fmt.Errorf("quote %s: HTTP %d", symbol, resp.StatusCode)
	}
	if len(raw.Chart.Result) == 0 || raw.Chart.Result[0].Meta.RegularMarketPrice <= 0 {
		return Quote{}, fmt.Errorf("quote %s: no price in response", symbol)
	}

	meta := raw.Chart.Result[0].Meta
	return Quote{Symbol: symbol, Price: meta.RegularMarketPrice, Currency: meta.Currency}, nil
}
