package app

import (
	"context"
	"errors"
	"sync"
	"time"

	"cryptoProbTrader/internal/domain"
	"cryptoProbTrader/internal/ports"
)

// Mock implementations
type mockLogger struct {
	mu        sync.Mutex
	debugMsgs []string
	infoMsgs  []string
	warnMsgs  []string
	errorMsgs []string
	fields    map[string][]map[string]interface{}
}

func (m *mockLogger) record(list *[]string, msg string, fields []map[string]interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	*list = append(*list, msg)
	if m.fields == nil {
		m.fields = make(map[string][]map[string]interface{})
	}
	if len(fields) > 0 {
		m.fields[msg] = append(m.fields[msg], fields[0])
	}
}

func (m *mockLogger) Debug(ctx context.Context, msg string, fields ...map[string]interface{}) {
	m.record(&m.debugMsgs, msg, fields)
}

func (m *mockLogger) Info(ctx context.Context, msg string, fields ...map[string]interface{}) {
	m.record(&m.infoMsgs, msg, fields)
}

func (m *mockLogger) Warn(ctx context.Context, msg string, fields ...map[string]interface{}) {
	m.record(&m.warnMsgs, msg, fields)
}

func (m *mockLogger) Error(ctx context.Context, err error, msg string, fields ...map[string]interface{}) {
	m.record(&m.errorMsgs, msg, fields)
}

func (m *mockLogger) count(list []string, msg string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, s := range list {
		if s == msg {
			n++
		}
	}
	return n
}

// mockMarketData returns a queued response per call, repeating the last one.
type mockMarketData struct {
	responses []marketResponse
	calls     int
}

type marketResponse struct {
	klines []*domain.Kline
	err    error
}

func (m *mockMarketData) GetKlines(ctx context.Context, symbol string, interval string, limit int) ([]*domain.Kline, error) {
	i := m.calls
	if i >= len(m.responses) {
		i = len(m.responses) - 1
	}
	m.calls++
	r := m.responses[i]
	return r.klines, r.err
}

type mockSink struct {
	intents []*domain.OrderIntent
	err     error
}

func (m *mockSink) PlaceOrder(ctx context.Context, intent *domain.OrderIntent) (*ports.OrderResponse, error) {
	copied := *intent
	m.intents = append(m.intents, &copied)
	if m.err != nil {
		return nil, m.err
	}
	return &ports.OrderResponse{
		OrderID:       int64(len(m.intents)),
		Symbol:        intent.Symbol,
		ClientOrderID: intent.ClientOrderID,
		Side:          string(intent.Side),
		Status:        "PAPER",
		QuoteQuantity: intent.NotionalAmount,
		Paper:         true,
		Timestamp:     intent.CreatedAt,
	}, nil
}

type mockJournal struct {
	saved   []*domain.OrderIntent
	last    time.Time
	lastErr error
	saveErr error
}

func (m *mockJournal) SaveIntent(ctx context.Context, intent *domain.OrderIntent) (int64, error) {
	if m.saveErr != nil {
		return 0, m.saveErr
	}
	copied := *intent
	m.saved = append(m.saved, &copied)
	return int64(len(m.saved)), nil
}

func (m *mockJournal) FindBySymbol(ctx context.Context, symbol string, limit int) ([]*domain.OrderIntent, error) {
	return m.saved, nil
}

func (m *mockJournal) LastBarOpenTime(ctx context.Context, symbol string) (time.Time, error) {
	return m.last, m.lastErr
}

type mockMetrics struct {
	cycles    int
	errors    map[string]int
	decisions map[string]int
	refits    int
	prices    []float64
	probs     []float64
}

func newMockMetrics() *mockMetrics {
	return &mockMetrics{errors: map[string]int{}, decisions: map[string]int{}}
}

func (m *mockMetrics) RecordCycle(symbol string)                   { m.cycles++ }
func (m *mockMetrics) RecordCycleError(symbol, stage string)       { m.errors[stage]++ }
func (m *mockMetrics) RecordDecision(symbol, outcome string)       { m.decisions[outcome]++ }
func (m *mockMetrics) RecordModelRefit(symbol string)              { m.refits++ }
func (m *mockMetrics) SetLatestPrice(symbol string, price float64) { m.prices = append(m.prices, price) }
func (m *mockMetrics) SetProbability(symbol string, p float64)     { m.probs = append(m.probs, p) }

// fixedEstimator predicts the same probability for every row.
type fixedEstimator struct {
	p      float64
	fitErr error
	fitted bool
}

func (f *fixedEstimator) Fit(X [][]float64, y []int) error {
	if f.fitErr != nil {
		return f.fitErr
	}
	if len(X) == 0 {
		return errors.New("no rows")
	}
	f.fitted = true
	return nil
}

func (f *fixedEstimator) Predict(X [][]float64) ([]float64, error) {
	if !f.fitted {
		return nil, ports.ErrEstimatorNotFitted
	}
	out := make([]float64, len(X))
	for i := range out {
		out[i] = f.p
	}
	return out, nil
}

func (f *fixedEstimator) Evaluate(X [][]float64, y []int) (ports.Evaluation, error) {
	return ports.Evaluation{AUC: 0.5, Brier: 0.25, LogLoss: 0.69}, nil
}
