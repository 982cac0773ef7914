package marketdata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"sync"
	"time"

	"FinSage/internal/domain/models"
	drepo "FinSage/internal/domain/repository"
	"FinSage/internal/service/ratelimit"
	xhttp "FinSage/pkg/http"
	"FinSage/pkg/util"
)

// NSEConfig configures the NSE India source.
type NSEConfig struct {
	BaseURL      string
	Timeout      time.Duration
	RateCapacity float64
	RateRefill   float64
}

// NSE fetches quotes and indices from the NSE India public API. The API
// requires session cookies obtained by hitting the landing page first, so
// the adapter warms up a cookie jar before the first real call.
type NSE struct {
	cfg     NSEConfig
	client  *xhttp.Client
	limiter *ratelimit.Limiter
	cal     *Calendar

	warmMu     sync.Mutex
	lastWarmed time.Time
}

func NewNSE(cfg NSEConfig, limiter *ratelimit.Limiter, cal *Calendar) *NSE {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://www.nseindia.com"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 3 * time.Second
	}
	jar, _ := cookiejar.New(nil)
	return &NSE{
		cfg:     cfg,
		client:  xhttp.NewClient(xhttp.WithTimeout(cfg.Timeout), xhttp.WithCookieJar(jar)),
		limiter: limiter,
		cal:     cal,
	}
}

func (n *NSE) Name() string { return "nse" }

type nsePriceInfo struct {
	LastPrice     float64 `json:"lastPrice"`
	Change        float64 `json:"change"`
	PChange       float64 `json:"pChange"`
	Open          float64 `json:"open"`
	PreviousClose float64 `json:"previousClose"`
	IntraDayHighLow struct {
		Max float64 `json:"max"`
		Min float64 `json:"min"`
	} `json:"intraDayHighLow"`
}

type nseQuoteResponse struct {
	Metadata struct {
		Symbol         string `json:"symbol"`
		LastUpdateTime string `json:"lastUpdateTime"`
	} `json:"metadata"`
	PriceInfo nsePriceInfo `json:"priceInfo"`
}

func (n *NSE) FetchQuote(ctx context.Context, symbol string) (*models.MarketFact, error) {
	var out nseQuoteResponse
	url := fmt.Sprintf("%s/api/quote-equity", n.cfg.BaseURL)
	if err := n.getJSON(ctx, url, map[string][]string{"symbol": {symbol}}, &out); err != nil {
		return nil, err
	}
	if out.PriceInfo.LastPrice == 0 {
		return nil, drepo.NewSourceError(n.Name(), drepo.ReasonMalformed, errors.New("missing lastPrice"))
	}

	now := time.Now()
	asOf := now
	if t, ok := util.ParseTime(out.Metadata.LastUpdateTime); ok {
		asOf = t
	}
	return &models.MarketFact{
		Symbol: symbol,
		Kind:   models.KindQuote,
		Quote: &models.QuotePayload{
			Price:         out.PriceInfo.LastPrice,
			Change:        out.PriceInfo.Change,
			ChangePercent: out.PriceInfo.PChange,
			Open:          out.PriceInfo.Open,
			High:          out.PriceInfo.IntraDayHighLow.Max,
			Low:           out.PriceInfo.IntraDayHighLow.Min,
			PrevClose:     out.PriceInfo.PreviousClose,
		},
		AsOf:        asOf,
		MarketState: n.cal.State(now),
		Source:      n.Name(),
	}, nil
}

type nseIndicesResponse struct {
	Data []struct {
		Index          string  `json:"index"`
		IndexSymbol    string  `json:"indexSymbol"`
		Last           float64 `json:"last"`
		Variation      float64 `json:"variation"`
		PercentChange  float64 `json:"percentChange"`
		Open           float64 `json:"open"`
		High           float64 `json:"high"`
		Low            float64 `json:"low"`
		PreviousClose  float64 `json:"previousClose"`
	} `json:"data"`
}

// nseIndexNames maps canonical index ids to NSE display names.
var nseIndexNames = map[string]string{
	"NIFTY":     "NIFTY 50",
	"BANKNIFTY": "NIFTY BANK",
}

func (n *NSE) FetchIndex(ctx context.Context, indexID string) (*models.MarketFact, error) {
	want, ok := nseIndexNames[indexID]
	if !ok {
		return nil, drepo.NewSourceError(n.Name(), drepo.ReasonUnavailable, fmt.Errorf("index %q not served by NSE", indexID))
	}

	var out nseIndicesResponse
	if err := n.getJSON(ctx, n.cfg.BaseURL+"/api/allIndices", nil, &out); err != nil {
		return nil, err
	}

	now := time.Now()
	for _, row := range out.Data {
		if row.Index != want {
			continue
		}
		return &models.MarketFact{
			Symbol: indexID,
			Kind:   models.KindIndex,
			Quote: &models.QuotePayload{
				Price:         row.Last,
				Change:        row.Variation,
				ChangePercent: row.PercentChange,
				Open:          row.Open,
				High:          row.High,
				Low:           row.Low,
				PrevClose:     row.PreviousClose,
			},
			AsOf:        now,
			MarketState: n.cal.State(now),
			Source:      n.Name(),
		}, nil
	}
	return nil, drepo.NewSourceError(n.Name(), drepo.ReasonMalformed, fmt.Errorf("index %q missing from allIndices response", want))
}

// FetchHistory is not served by the NSE adapter; the fan-out falls through
// to the next source in priority order.
func (n *NSE) FetchHistory(ctx context.Context, symbol string, rng models.HistoryRange, interval string) (*models.MarketFact, error) {
	return nil, drepo.NewSourceError(n.Name(), drepo.ReasonUnavailable, errors.New("history not supported"))
}

func (n *NSE) getJSON(ctx context.Context, url string, query map[string][]string, dest any) error {
	if !n.limiter.Allow(n.Name(), n.cfg.RateCapacity, n.cfg.RateRefill) {
		return drepo.NewSourceError(n.Name(), drepo.ReasonRateLimited, nil)
	}
	if err := n.warmup(ctx); err != nil {
		return err
	}

	resp, err := n.client.SendRequest(ctx, &xhttp.RequestOptions{
		Method:      xhttp.MethodGet,
		URL:         url,
		QueryParams: query,
		Headers: map[string]string{
			"User-Agent": userAgent,
			"Accept":     "application/json",
			"Referer":    n.cfg.BaseURL,
		},
	})
	if err != nil {
		return drepo.NewSourceError(n.Name(), classifyTransportErr(err), err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return drepo.NewSourceError(n.Name(), drepo.ReasonRateLimited, nil)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return drepo.NewSourceError(n.Name(), drepo.ReasonUnavailable,
			fmt.Errorf("status %d: %s", resp.StatusCode, body))
	}

	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return drepo.NewSourceError(n.Name(), drepo.ReasonMalformed, err)
	}
	return nil
}

// warmup hits the landing page to refresh session cookies. NSE rotates
// them aggressively, so re-warm every few minutes.
func (n *NSE) warmup(ctx context.Context) error {
	n.warmMu.Lock()
	defer n.warmMu.Unlock()
	if time.Since(n.lastWarmed) < 5*time.Minute {
		return nil
	}

	resp, err := n.client.SendRequest(ctx, &xhttp.RequestOptions{
		Method:  xhttp.MethodGet,
		URL:     n.cfg.BaseURL,
		Headers: map[string]string{"User-Agent": userAgent},
	})
	if err != nil {
		return drepo.NewSourceError(n.Name(), classifyTransportErr(err), err)
	}
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096)) //nolint:errcheck
	resp.Body.Close()

	n.lastWarmed = time.Now()
	return nil
}
