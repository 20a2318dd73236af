package finnhub

import (
	"context"
	"fmt"
	"time"

	"AnalystCouncil/internal/domain/models"
	drepo "AnalystCouncil/internal/domain/repository"
	"AnalystCouncil/internal/service/ratelimit"
	httpclient "AnalystCouncil/pkg/http"
)

const defaultRESTBaseURL = "https://finnhub.io/api/v1"

// Finnhub's free tier allows 60 REST calls per minute. A quote fetch
// costs two requests (quote + profile), so budget accordingly.
const (
	restBudgetKey    = "finnhub_rest"
	restBudgetBurst  = 30
	restBudgetPerSec = 0.5
)

// QuoteClient implements QuoteSource over the Finnhub REST API.
type QuoteClient struct {
	apiKey  string
	baseURL string
	client  *httpclient.Client
	limiter *ratelimit.Limiter
}

// NewQuoteClient creates a REST quote source.
func NewQuoteClient(apiKey string, opts ...QuoteClientOption) drepo.QuoteSource {
	q := &QuoteClient{
		apiKey:  apiKey,
		baseURL: defaultRESTBaseURL,
		client:  httpclient.NewClient(httpclient.WithTimeout(10 * time.Second)),
		limiter: ratelimit.New(),
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

type QuoteClientOption func(*QuoteClient)

// WithBaseURL overrides the REST endpoint, mainly for tests.
func WithBaseURL(u string) QuoteClientOption {
	return func(q *QuoteClient) { q.baseURL = u }
}

type fhQuote struct {
	Current   float64 `json:"c"`
	Timestamp int64   `json:"t"` // unix seconds
}

type fhProfile struct {
	Name     string `json:"name"`
	Ticker   string `json:"ticker"`
	Currency string `json:"currency"`
}

// Quote fetches the latest price and company profile for a symbol.
func (q *QuoteClient) Quote(ctx context.Context, symbol string) (*models.Quote, error) {
	if !q.limiter.Allow(restBudgetKey, restBudgetBurst, restBudgetPerSec) {
		return nil, fmt.Errorf("finnhub quote %s: rest call budget exhausted", symbol)
	}

	var fq fhQuote
	err := q.client.SendAndParse(ctx, &httpclient.RequestOptions{
		Method: httpclient.MethodGet,
		URL:    q.baseURL + "/quote",
		QueryParams: map[string][]string{
			"symbol": {symbol},
			"token":  {q.apiKey},
		},
	}, &fq)
	if err != nil {
		return nil, fmt.Errorf("finnhub quote %s: %w", symbol, err)
	}
	if fq.Current == 0 && fq.Timestamp == 0 {
		return nil, fmt.Errorf("finnhub quote %s: no data", symbol)
	}

	quote := &models.Quote{
		Ticker:    symbol,
		Price:     fq.Current,
		Currency:  "USD",
		Timestamp: time.Unix(fq.Timestamp, 0).UTC(),
	}

	// Profile enriches the quote but its absence is not fatal.
	var fp fhProfile
	err = q.client.SendAndParse(ctx, &httpclient.RequestOptions{
		Method: httpclient.MethodGet,
		URL:    q.baseURL + "/stock/profile2",
		QueryParams: map[string][]string{
			"symbol": {symbol},
			"token":  {q.apiKey},
		},
	}, &fp)
	if err == nil {
		quote.Name = fp.Name
		if fp.Currency != "" {
			quote.Currency = fp.Currency
		}
	}
	return quote, nil
}
