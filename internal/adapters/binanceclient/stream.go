package binanceclient

import (
	"context"
	"sync"
	"time"

	"github.com/adshao/go-binance/v2"
	"github.com/jpillora/backoff"

	"cryptoProbTrader/internal/ports"
)

// serveFunc matches binance.WsTradeServe.
type serveFunc func(symbol string, handler binance.WsTradeHandler, errHandler binance.ErrHandler) (doneC, stopC chan struct{}, err error)

// StreamConfig configures the trade stream.
type StreamConfig struct {
	Logger               ports.Logger
	UseTestnet           bool
	ReconnectDelay       time.Duration // Initial reconnect delay (e.g., 1 * time.Second)
	MaxReconnectDelay    time.Duration
	MaxReconnectAttempts int // Consecutive failed connects before giving up
}

// TradeStream listens to the spot trade websocket and reports every trade
// price. It reconnects with exponential backoff until stopped.
type TradeStream struct {
	logger      ports.Logger
	serve       serveFunc
	minDelay    time.Duration
	maxDelay    time.Duration
	maxAttempts int

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

var _ ports.PriceStream = (*TradeStream)(nil)

// NewTradeStream creates a trade stream.
func NewTradeStream(cfg StreamConfig) *TradeStream {
	if cfg.UseTestnet {
		binance.UseTestnet = true
	}
	minDelay := cfg.ReconnectDelay
	if minDelay <= 0 {
		minDelay = 1 * time.Second
	}
	maxDelay := cfg.MaxReconnectDelay
	if maxDelay < minDelay {
		maxDelay = 60 * time.Second
	}
	maxAttempts := cfg.MaxReconnectAttempts
	if maxAttempts <= 0 {
		maxAttempts = 10
	}
	return &TradeStream{
		logger:      cfg.Logger,
		serve:       binance.WsTradeServe,
		minDelay:    minDelay,
		maxDelay:    maxDelay,
		maxAttempts: maxAttempts,
	}
}

// Start connects in the background. Calling Start on a running stream is a no-op.
func (s *TradeStream) Start(ctx context.Context, symbol string, handler ports.PriceHandler) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return nil
	}

	wsCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	go s.run(wsCtx, symbol, handler, s.done)
	return nil
}

// Stop cancels the stream and waits briefly for it to shut down.
func (s *TradeStream) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()
	if cancel == nil {
		return
	}

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		s.logger.Warn(context.Background(), "Timeout waiting for trade stream to shut down")
	}
}

func (s *TradeStream) run(ctx context.Context, symbol string, handler ports.PriceHandler, done chan struct{}) {
	op := "TradeStream"
	defer close(done)

	onTrade := func(event *binance.WsTradeEvent) {
		price, at, err := translateTrade(event)
		if err != nil {
			s.logger.Error(ctx, err, op+": Failed to translate trade event")
			return
		}
		handler(price, at)
	}
	onError := func(err error) {
		s.logger.Warn(ctx, op+": WebSocket error reported", map[string]interface{}{"symbol": symbol, "error": err.Error()})
	}

	b := &backoff.Backoff{Min: s.minDelay, Max: s.maxDelay, Factor: 2, Jitter: true}
	for {
		if ctx.Err() != nil {
			return
		}

		s.logger.Info(ctx, op+": Attempting WebSocket connection...", map[string]interface{}{"symbol": symbol, "attempt": int(b.Attempt()) + 1})
		innerDone, innerStop, err := s.serve(symbol, onTrade, onError)
		if err != nil {
			if int(b.Attempt())+1 >= s.maxAttempts {
				s.logger.Error(ctx, err, op+": Max reconnection attempts exceeded, giving up.", map[string]interface{}{"symbol": symbol, "maxAttempts": s.maxAttempts})
				return
			}
			delay := b.Duration()
			s.logger.Warn(ctx, op+": Connection failed, retrying...", map[string]interface{}{"symbol": symbol, "delay": delay.String(), "error": err.Error()})
			select {
			case <-time.After(delay):
				continue
			case <-ctx.Done():
				return
			}
		}

		s.logger.Info(ctx, op+": WebSocket connection established.", map[string]interface{}{"symbol": symbol})
		b.Reset()

		select {
		case <-innerDone:
			delay := b.Duration()
			s.logger.Warn(ctx, op+": WebSocket connection closed unexpectedly. Reconnecting...", map[string]interface{}{"symbol": symbol, "delay": delay.String()})
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return
			}
		case <-ctx.Done():
			close(innerStop)
			<-innerDone
			s.logger.Info(ctx, op+": WebSocket stopped.", map[string]interface{}{"symbol": symbol})
			return
		}
	}
}
