package marketdata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"FinSage/internal/domain/models"
	drepo "FinSage/internal/domain/repository"
	"FinSage/internal/service/ratelimit"
	xhttp "FinSage/pkg/http"
)

// YahooConfig configures the Yahoo Finance source.
type YahooConfig struct {
	BaseURL      string
	SymbolSuffix string // exchange suffix appended to equities, e.g. ".NS"
	Timeout      time.Duration
	RateCapacity float64
	RateRefill   float64
}

// Yahoo fetches quotes and history from the Yahoo Finance chart API.
type Yahoo struct {
	cfg     YahooConfig
	client  *xhttp.Client
	limiter *ratelimit.Limiter
	cal     *Calendar
}

// yahooIndexTickers maps canonical index ids to Yahoo tickers.
var yahooIndexTickers = map[string]string{
	"NIFTY":     "^NSEI",
	"BANKNIFTY": "^NSEBANK",
	"SENSEX":    "^BSESN",
}

func NewYahoo(cfg YahooConfig, limiter *ratelimit.Limiter, cal *Calendar) *Yahoo {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://query1.finance.yahoo.com"
	}
	if cfg.SymbolSuffix == "" {
		cfg.SymbolSuffix = ".NS"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 3 * time.Second
	}
	return &Yahoo{
		cfg:     cfg,
		client:  xhttp.NewClient(xhttp.WithTimeout(cfg.Timeout)),
		limiter: limiter,
		cal:     cal,
	}
}

func (y *Yahoo) Name() string { return "yahoo" }

func (y *Yahoo) FetchQuote(ctx context.Context, symbol string) (*models.MarketFact, error) {
	chart, err := y.chart(ctx, symbol+y.cfg.SymbolSuffix, "1d", "1m")
	if err != nil {
		return nil, err
	}
	return y.quoteFact(symbol, models.KindQuote, chart)
}

func (y *Yahoo) FetchIndex(ctx context.Context, indexID string) (*models.MarketFact, error) {
	ticker, ok := yahooIndexTickers[indexID]
	if !ok {
		return nil, drepo.NewSourceError(y.Name(), drepo.ReasonUnavailable, fmt.Errorf("unknown index %q", indexID))
	}
	chart, err := y.chart(ctx, ticker, "1d", "1m")
	if err != nil {
		return nil, err
	}
	return y.quoteFact(indexID, models.KindIndex, chart)
}

func (y *Yahoo) FetchHistory(ctx context.Context, symbol string, rng models.HistoryRange, interval string) (*models.MarketFact, error) {
	if interval == "" {
		interval = "1d"
	}
	chart, err := y.chart(ctx, symbol+y.cfg.SymbolSuffix, string(rng), interval)
	if err != nil {
		return nil, err
	}

	r := chart.Chart.Result[0]
	if len(r.Indicators.Quote) == 0 {
		return nil, drepo.NewSourceError(y.Name(), drepo.ReasonMalformed, errors.New("chart result missing quote indicators"))
	}
	q := r.Indicators.Quote[0]

	bars := make([]models.Bar, 0, len(r.Timestamp))
	for i, ts := range r.Timestamp {
		if i >= len(q.Close) || q.Close[i] == nil {
			continue
		}
		bar := models.Bar{Time: time.Unix(ts, 0).UTC(), Close: *q.Close[i]}
		if i < len(q.Open) && q.Open[i] != nil {
			bar.Open = *q.Open[i]
		}
		if i < len(q.High) && q.High[i] != nil {
			bar.High = *q.High[i]
		}
		if i < len(q.Low) && q.Low[i] != nil {
			bar.Low = *q.Low[i]
		}
		if i < len(q.Volume) && q.Volume[i] != nil {
			bar.Volume = *q.Volume[i]
		}
		bars = append(bars, bar)
	}
	if len(bars) == 0 {
		return nil, drepo.NewSourceError(y.Name(), drepo.ReasonMalformed, errors.New("chart result has no usable bars"))
	}

	now := time.Now()
	return &models.MarketFact{
		Symbol:      symbol,
		Kind:        models.KindHistory,
		Bars:        bars,
		AsOf:        bars[len(bars)-1].Time,
		MarketState: y.cal.State(now),
		Source:      y.Name(),
	}, nil
}

type yahooChart struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Symbol             string  `json:"symbol"`
				RegularMarketPrice float64 `json:"regularMarketPrice"`
				ChartPreviousClose float64 `json:"chartPreviousClose"`
				RegularMarketTime  int64   `json:"regularMarketTime"`
				RegularMarketHigh  float64 `json:"regularMarketDayHigh"`
				RegularMarketLow   float64 `json:"regularMarketDayLow"`
				RegularMarketVol   int64   `json:"regularMarketVolume"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*int64   `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

func (y *Yahoo) chart(ctx context.Context, ticker, rng, interval string) (*yahooChart, error) {
	if !y.limiter.Allow(y.Name(), y.cfg.RateCapacity, y.cfg.RateRefill) {
		return nil, drepo.NewSourceError(y.Name(), drepo.ReasonRateLimited, nil)
	}

	resp, err := y.client.SendRequest(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodGet,
		URL:    fmt.Sprintf("%s/v8/finance/chart/%s", y.cfg.BaseURL, ticker),
		QueryParams: map[string][]string{
			"range":    {rng},
			"interval": {interval},
		},
		Headers: map[string]string{"User-Agent": userAgent},
	})
	if err != nil {
		return nil, drepo.NewSourceError(y.Name(), classifyTransportErr(err), err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, drepo.NewSourceError(y.Name(), drepo.ReasonRateLimited, nil)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, drepo.NewSourceError(y.Name(), drepo.ReasonUnavailable,
			fmt.Errorf("status %d: %s", resp.StatusCode, body))
	}

	var chart yahooChart
	if err := json.NewDecoder(resp.Body).Decode(&chart); err != nil {
		return nil, drepo.NewSourceError(y.Name(), drepo.ReasonMalformed, err)
	}
	if chart.Chart.Error != nil {
		return nil, drepo.NewSourceError(y.Name(), drepo.ReasonUnavailable,
			fmt.Errorf("%s: %s", chart.Chart.Error.Code, chart.Chart.Error.Description))
	}
	if len(chart.Chart.Result) == 0 {
		return nil, drepo.NewSourceError(y.Name(), drepo.ReasonMalformed, errors.New("empty chart result"))
	}
	return &chart, nil
}

func (y *Yahoo) quoteFact(symbol string, kind models.FactKind, chart *yahooChart) (*models.MarketFact, error) {
	meta := chart.Chart.Result[0].Meta
	if meta.RegularMarketPrice == 0 {
		return nil, drepo.NewSourceError(y.Name(), drepo.ReasonMalformed, errors.New("missing regular market price"))
	}

	change := meta.RegularMarketPrice - meta.ChartPreviousClose
	var changePct float64
	if meta.ChartPreviousClose != 0 {
		changePct = change / meta.ChartPreviousClose * 100
	}

	asOf := time.Unix(meta.RegularMarketTime, 0).UTC()
	return &models.MarketFact{
		Symbol: symbol,
		Kind:   kind,
		Quote: &models.QuotePayload{
			Price:         meta.RegularMarketPrice,
			Change:        change,
			ChangePercent: changePct,
			High:          meta.RegularMarketHigh,
			Low:           meta.RegularMarketLow,
			PrevClose:     meta.ChartPreviousClose,
			Volume:        meta.RegularMarketVol,
		},
		AsOf:        asOf,
		MarketState: y.cal.State(time.Now()),
		Source:      y.Name(),
	}, nil
}
