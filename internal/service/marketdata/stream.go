package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"FinSage/internal/domain/models"
	drepo "FinSage/internal/domain/repository"
	"FinSage/pkg/logger"

	"github.com/gorilla/websocket"
)

// StreamConfig configures the websocket last-trade feed.
type StreamConfig struct {
	APIKey         string
	WebSocketURL   string
	Symbols        []string
	ReconnectDelay time.Duration
	PingInterval   time.Duration
	MaxTradeAge    time.Duration
}

type lastTrade struct {
	price  float64
	volume int64
	at     time.Time
}

// Stream serves quotes out of an in-memory last-trade table fed by a
// websocket subscription. It only knows symbols it has seen trade, so
// it sits first in the quote priority list and falls through for
// everything else.
type Stream struct {
	cfg StreamConfig
	cal *Calendar
	log *logger.Logger

	mu     sync.RWMutex
	trades map[string]lastTrade

	connMu    sync.Mutex
	conn      *websocket.Conn
	connected bool
}

func NewStream(cfg StreamConfig, cal *Calendar, log *logger.Logger) *Stream {
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = 5 * time.Second
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = 30 * time.Second
	}
	if cfg.MaxTradeAge <= 0 {
		cfg.MaxTradeAge = 30 * time.Second
	}
	return &Stream{
		cfg:    cfg,
		cal:    cal,
		log:    log,
		trades: make(map[string]lastTrade),
	}
}

func (s *Stream) Name() string { return "stream" }

func (s *Stream) FetchQuote(ctx context.Context, symbol string) (*models.MarketFact, error) {
	s.mu.RLock()
	t, ok := s.trades[symbol]
	s.mu.RUnlock()

	if !ok {
		return nil, drepo.NewSourceError(s.Name(), drepo.ReasonUnavailable,
			fmt.Errorf("no trade seen for %s", symbol))
	}
	if age := time.Since(t.at); age > s.cfg.MaxTradeAge {
		return nil, drepo.NewSourceError(s.Name(), drepo.ReasonUnavailable,
			fmt.Errorf("last trade for %s is %s old", symbol, age.Round(time.Second)))
	}

	return &models.MarketFact{
		Symbol:      symbol,
		Kind:        models.KindQuote,
		Quote:       &models.QuotePayload{Price: t.price, Volume: t.volume},
		AsOf:        t.at,
		MarketState: s.cal.State(time.Now()),
		Source:      s.Name(),
	}, nil
}

func (s *Stream) FetchIndex(ctx context.Context, indexID string) (*models.MarketFact, error) {
	return nil, drepo.NewSourceError(s.Name(), drepo.ReasonUnavailable,
		fmt.Errorf("indices not carried on trade stream"))
}

func (s *Stream) FetchHistory(ctx context.Context, symbol string, rng models.HistoryRange, interval string) (*models.MarketFact, error) {
	return nil, drepo.NewSourceError(s.Name(), drepo.ReasonUnavailable,
		fmt.Errorf("history not carried on trade stream"))
}

// Run connects, subscribes, and pumps trades into the table until ctx
// is cancelled, reconnecting after transient failures.
func (s *Stream) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		if err := s.connect(ctx); err != nil {
			s.log.Warn("stream connect failed", logger.Error(err))
			if !sleepCtx(ctx, s.cfg.ReconnectDelay) {
				return
			}
			continue
		}
		s.readLoop(ctx)
		_ = s.Close()
		if !sleepCtx(ctx, s.cfg.ReconnectDelay) {
			return
		}
	}
}

func (s *Stream) connect(ctx context.Context) error {
	u := s.cfg.WebSocketURL
	if s.cfg.APIKey != "" {
		u = fmt.Sprintf("%s?token=%s", u, s.cfg.APIKey)
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u, nil)
	if err != nil {
		return fmt.Errorf("stream dial: %w", err)
	}

	s.connMu.Lock()
	s.conn = conn
	s.connected = true
	s.connMu.Unlock()

	for _, sym := range s.cfg.Symbols {
		msg := map[string]string{"type": "subscribe", "symbol": sym}
		if err := conn.WriteJSON(msg); err != nil {
			return fmt.Errorf("subscribe %s: %w", sym, err)
		}
	}
	s.log.Info("stream connected", logger.Strings("symbols", s.cfg.Symbols))
	return nil
}

type streamTrade struct {
	S string  `json:"s"`
	P float64 `json:"p"`
	V float64 `json:"v"`
	T int64   `json:"t"` // ms
}

type streamMessage struct {
	Type string        `json:"type"`
	Data []streamTrade `json:"data"`
}

func (s *Stream) readLoop(ctx context.Context) {
	pingDone := make(chan struct{})
	defer close(pingDone)
	go s.pingLoop(ctx, pingDone)

	for {
		if ctx.Err() != nil {
			return
		}
		s.connMu.Lock()
		conn := s.conn
		s.connMu.Unlock()
		if conn == nil {
			return
		}

		_, b, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				s.log.Warn("stream read failed", logger.Error(err))
			}
			return
		}

		var m streamMessage
		if err := json.Unmarshal(b, &m); err != nil || m.Type != "trade" {
			// ignore non-trade frames
			continue
		}
		s.mu.Lock()
		for _, d := range m.Data {
			s.trades[d.S] = lastTrade{
				price:  d.P,
				volume: int64(d.V),
				at:     time.Unix(0, d.T*int64(time.Millisecond)),
			}
		}
		s.mu.Unlock()
	}
}

func (s *Stream) pingLoop(ctx context.Context, done <-chan struct{}) {
	ticker := time.NewTicker(s.cfg.PingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-done:
			return
		case <-ticker.C:
			s.connMu.Lock()
			conn := s.conn
			s.connMu.Unlock()
			if conn != nil {
				_ = conn.WriteMessage(websocket.PingMessage, nil)
			}
		}
	}
}

// Close drops the current connection. Run will redial unless its
// context is done.
func (s *Stream) Close() error {
	s.connMu.Lock()
	defer s.connMu.Unlock()
	s.connected = false
	if s.conn != nil {
		err := s.conn.Close()
		s.conn = nil
		return err
	}
	return nil
}

func (s *Stream) IsConnected() bool {
	s.connMu.Lock()
	defer s.connMu.Unlock()
	return s.connected
}

// record is a test seam for populating the trade table directly.
func (s *Stream) record(symbol string, price float64, volume int64, at time.Time) {
	s.mu.Lock()
	s.trades[symbol] = lastTrade{price: price, volume: volume, at: at}
	s.mu.Unlock()
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
