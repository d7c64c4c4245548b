package utils

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cryptoProbTrader/internal/domain"
)

func sampleKlines() []*domain.Kline {
	start := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	out := make([]*domain.Kline, 3)
	for i := range out {
		open := start.Add(time.Duration(i) * time.Hour)
		out[i] = &domain.Kline{
			OpenTime:  open,
			CloseTime: open.Add(time.Hour - time.Millisecond),
			Symbol:    "ETHUSDT",
			Interval:  "1h",
			Open:      2300.5 + float64(i),
			High:      2310.25 + float64(i),
			Low:       2290.125,
			Close:     2305.75 + float64(i),
			Volume:    123.456,
			IsFinal:   true,
		}
	}
	return out
}

func TestKlinesCSVRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "klines.csv")
	in := sampleKlines()

	require.NoError(t, WriteKlinesToCSV(in, path))
	out, err := ReadKlinesFromCSV(path)
	require.NoError(t, err)

	require.Len(t, out, len(in))
	for i := range in {
		assert.True(t, in[i].OpenTime.Equal(out[i].OpenTime))
		assert.True(t, in[i].CloseTime.Equal(out[i].CloseTime), "close time keeps milliseconds")
		assert.Equal(t, in[i].Close, out[i].Close)
		assert.Equal(t, in[i].Low, out[i].Low)
		assert.Equal(t, "1h", out[i].Interval)
		assert.True(t, out[i].IsFinal)
	}
}

func TestReadKlines_Errors(t *testing.T) {
	header := strings.Join(klineHeader, ",") + "\n"
	row := func(open, cls string) string {
		return open + ",2024-02-01T00:59:59.999Z,ETHUSDT,1h,1,2,0.5," + cls + ",10\n"
	}

	tests := []struct {
		name    string
		input   string
		wantErr string
	}{
		{name: "empty", input: "", wantErr: "empty"},
		{name: "bad time", input: header + row("yesterday", "1"), wantErr: "open_time"},
		{name: "bad float", input: header + row("2024-02-01T00:00:00Z", "x"), wantErr: "close"},
		{name: "wrong field count", input: header + "a,b,c\n", wantErr: "line 2"},
		{name: "out of order", input: header + row("2024-02-01T01:00:00Z", "1") + row("2024-02-01T00:00:00Z", "1"), wantErr: "not after"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadKlines(strings.NewReader(tt.input))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestReadKlines_HeaderOnly(t *testing.T) {
	out, err := ReadKlines(strings.NewReader(strings.Join(klineHeader, ",") + "\n"))
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestWriteTradesToCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trades.csv")
	entry := time.Date(2024, 2, 1, 3, 0, 0, 0, time.UTC)
	trades := []*domain.Trade{{
		Symbol:      "ETHUSDT",
		EntryTime:   entry,
		EntryPrice:  100,
		ExitTime:    entry.Add(2 * time.Hour),
		ExitPrice:   102,
		Return:      0.0192,
		CloseReason: domain.CloseReasonTakeProfit,
	}}

	require.NoError(t, WriteTradesToCSV("hybrid", trades, path))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)

	require.Len(t, records, 2)
	assert.Equal(t, tradeHeader, records[0])
	assert.Equal(t, []string{"hybrid", "ETHUSDT", "2024-02-01T03:00:00Z", "100", "2024-02-01T05:00:00Z", "102", "0.0192", "TP"}, records[1])
}

func TestTradesCSVRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rule_trades.csv")
	entry := time.Date(2024, 2, 1, 3, 0, 0, 0, time.UTC)
	in := []*domain.Trade{
		{Symbol: "ETHUSDT", EntryTime: entry, EntryPrice: 100, ExitTime: entry.Add(time.Hour), ExitPrice: 99, Return: -0.0108, CloseReason: domain.CloseReasonStopLoss},
		{Symbol: "ETHUSDT", EntryTime: entry.Add(2 * time.Hour), EntryPrice: 99, ExitTime: entry.Add(5 * time.Hour), ExitPrice: 101, Return: 0.0194, CloseReason: domain.CloseReasonSignal},
	}
	require.NoError(t, WriteTradesToCSV("rule", in, path))

	series, out, err := ReadTradesFromCSV(path)
	require.NoError(t, err)
	assert.Equal(t, "rule", series)
	require.Len(t, out, 2)
	assert.Equal(t, in[1].Return, out[1].Return)
	assert.Equal(t, domain.CloseReasonSignal, out[1].CloseReason)
	assert.True(t, out[0].ExitTime.Equal(in[0].ExitTime))
}

func TestReadTradesFromCSV_HeaderOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.csv")
	require.NoError(t, WriteTradesToCSV("prob", nil, path))

	series, out, err := ReadTradesFromCSV(path)
	require.NoError(t, err)
	assert.Empty(t, series)
	assert.Empty(t, out)
}
