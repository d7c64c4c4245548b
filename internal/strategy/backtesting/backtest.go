package backtesting

import (
	"context"
	"fmt"
	"math"
	"time"

	"cryptoProbTrader/internal/domain"
	"cryptoProbTrader/internal/ports"
	"cryptoProbTrader/internal/strategy/signals"
)

// BacktestConfig holds configuration for backtesting
type BacktestConfig struct {
	Symbol        string
	FeeRate       float64  // Charged on both legs, e.g. 0.0004
	StopLossPct   *float64 // Percent below entry; nil disables the stop
	TakeProfitPct *float64 // Percent above entry; nil disables the target
	CloseAtEnd    bool     // Force-close an open position at the last close
}

// EquityPoint is the cumulative realized return after one bar.
type EquityPoint struct {
	Time     time.Time
	Balance  float64
	Drawdown float64 // Peak balance minus balance
}

// BacktestResult holds the results of a backtest
type BacktestResult struct {
	Kind         domain.SignalKind
	TotalReturn  float64 // Sum of realized trade returns
	MaxDrawdown  float64
	EquityCurve  []EquityPoint // One point per input bar
	Trades       []*domain.Trade
	OpenPosition *domain.Position // Still open at the last bar, unrealized
}

// Backtest walks the bars in order and simulates a single long position driven
// by sigs. While long, a stop-loss breach is checked before a take-profit
// breach and both exit at their fixed level; otherwise a SELL exits at the bar
// close. The entry bar itself is never checked for an exit.
func Backtest(ctx context.Context, klines []*domain.Kline, sigs []domain.Signal, config BacktestConfig) (*BacktestResult, error) {
	if len(klines) != len(sigs) {
		return nil, fmt.Errorf("backtest: %w: %d bars, %d signals", ports.ErrSeriesLength, len(klines), len(sigs))
	}
	if config.FeeRate < 0 || config.FeeRate >= 1 {
		return nil, fmt.Errorf("backtest: %w: fee rate %v", ports.ErrInvalidRequest, config.FeeRate)
	}

	result := &BacktestResult{
		EquityCurve: make([]EquityPoint, 0, len(klines)),
		Trades:      make([]*domain.Trade, 0),
	}

	var position *domain.Position
	var balance, peak, maxDD float64

	closePosition := func(k *domain.Kline, exitPrice float64, reason domain.CloseReason) {
		ret := domain.TradeReturn(position.EntryPrice, exitPrice, config.FeeRate)
		balance += ret
		position.Status = domain.StatusClosed
		result.Trades = append(result.Trades, &domain.Trade{
			Symbol:      config.Symbol,
			EntryTime:   position.EntryTime,
			EntryPrice:  position.EntryPrice,
			ExitTime:    k.OpenTime,
			ExitPrice:   exitPrice,
			Return:      ret,
			CloseReason: reason,
		})
		position = nil
	}

	for i, k := range klines {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("backtest: %w: %v", ports.ErrContextCanceled, err)
		}

		switch {
		case !position.IsOpen():
			if sigs[i] == domain.SignalBuy {
				position = &domain.Position{
					Symbol:     config.Symbol,
					EntryPrice: k.Close,
					EntryTime:  k.OpenTime,
					Status:     domain.StatusOpen,
				}
			}
		default:
			if exitPrice, reason, ok := riskExit(position, k, config); ok {
				closePosition(k, exitPrice, reason)
			} else if sigs[i] == domain.SignalSell {
				closePosition(k, k.Close, domain.CloseReasonSignal)
			}
		}

		if config.CloseAtEnd && i == len(klines)-1 && position.IsOpen() {
			closePosition(k, k.Close, domain.CloseReasonEndOfData)
		}

		peak = math.Max(peak, balance)
		dd := peak - balance
		maxDD = math.Max(maxDD, dd)
		result.EquityCurve = append(result.EquityCurve, EquityPoint{Time: k.OpenTime, Balance: balance, Drawdown: dd})
	}

	result.TotalReturn = balance
	result.MaxDrawdown = maxDD
	result.OpenPosition = position
	return result, nil
}

// riskExit checks the stop-loss first, then the take-profit, against the bar's range.
func riskExit(position *domain.Position, k *domain.Kline, config BacktestConfig) (float64, domain.CloseReason, bool) {
	if config.StopLossPct != nil {
		if stop := position.StopLossPrice(*config.StopLossPct); k.Low <= stop {
			return stop, domain.CloseReasonStopLoss, true
		}
	}
	if config.TakeProfitPct != nil {
		if target := position.TakeProfitPrice(*config.TakeProfitPct); k.High >= target {
			return target, domain.CloseReasonTakeProfit, true
		}
	}
	return 0, "", false
}

// RunAll backtests the rule, probability and hybrid series independently on
// the same bars, in that order.
func RunAll(ctx context.Context, klines []*domain.Kline, set *signals.Set, config BacktestConfig) ([]*BacktestResult, error) {
	results := make([]*BacktestResult, 0, len(domain.SignalKinds))
	for _, kind := range domain.SignalKinds {
		res, err := Backtest(ctx, klines, set.Series(kind), config)
		if err != nil {
			return nil, fmt.Errorf("%s series: %w", kind, err)
		}
		res.Kind = kind
		results = append(results, res)
	}
	return results, nil
}
