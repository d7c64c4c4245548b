package binanceclient

import (
	"errors"
	"fmt"
	"time"

	"github.com/adshao/go-binance/v2"
	"github.com/shopspring/decimal"

	"cryptoProbTrader/internal/domain"
	"cryptoProbTrader/internal/ports"
)

// formatQuote renders a quote notional with a fixed number of decimals.
func formatQuote(amount float64, precision int32) string {
	return decimal.NewFromFloat(amount).StringFixed(precision)
}

func parseDecimal(field, value string) (float64, error) {
	d, err := decimal.NewFromString(value)
	if err != nil {
		return 0, fmt.Errorf("parsing %s '%s': %w", field, value, err)
	}
	return d.InexactFloat64(), nil
}

func translateOrderResponse(order *binance.CreateOrderResponse) *ports.OrderResponse {
	if order == nil {
		return nil
	}
	execQty, _ := parseDecimal("executed quantity", order.ExecutedQuantity)
	cummQuote, _ := parseDecimal("cumulative quote quantity", order.CummulativeQuoteQuantity)

	return &ports.OrderResponse{
		OrderID:       order.OrderID,
		Symbol:        order.Symbol,
		ClientOrderID: order.ClientOrderID,
		Side:          string(order.Side),
		Status:        string(order.Status),
		ExecutedQty:   execQty,
		CummQuoteQty:  cummQuote,
		Timestamp:     time.UnixMilli(order.TransactTime).UTC(),
	}
}

func translateKline(bk *binance.Kline, symbol, interval string) (*domain.Kline, error) {
	if bk == nil {
		return nil, errors.New("received nil historical kline")
	}
	open, err := parseDecimal("open price", bk.Open)
	if err != nil {
		return nil, err
	}
	high, err := parseDecimal("high price", bk.High)
	if err != nil {
		return nil, err
	}
	low, err := parseDecimal("low price", bk.Low)
	if err != nil {
		return nil, err
	}
	cls, err := parseDecimal("close price", bk.Close)
	if err != nil {
		return nil, err
	}
	vol, err := parseDecimal("volume", bk.Volume)
	if err != nil {
		return nil, err
	}

	var closeTime time.Time
	if bk.CloseTime > 0 {
		closeTime = time.UnixMilli(bk.CloseTime).UTC()
	}

	return &domain.Kline{
		OpenTime:  time.UnixMilli(bk.OpenTime).UTC(),
		CloseTime: closeTime,
		Symbol:    symbol,
		Interval:  interval,
		Open:      open,
		High:      high,
		Low:       low,
		Close:     cls,
		Volume:    vol,
		IsFinal:   !closeTime.IsZero() && closeTime.Before(time.Now()), // The newest kline is usually still open
	}, nil
}

func translateTrade(event *binance.WsTradeEvent) (float64, time.Time, error) {
	if event == nil {
		return 0, time.Time{}, errors.New("received nil trade event")
	}
	price, err := parseDecimal("trade price", event.Price)
	if err != nil {
		return 0, time.Time{}, err
	}
	return price, time.UnixMilli(event.TradeTime).UTC(), nil
}
