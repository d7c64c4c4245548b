package utils

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"cryptoProbTrader/internal/domain"
)

var klineHeader = []string{"open_time", "close_time", "symbol", "interval", "open", "high", "low", "close", "volume"}

var tradeHeader = []string{"series", "symbol", "entry_time", "entry_price", "exit_time", "exit_price", "return", "reason"}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// WriteKlinesToCSV writes klines to filename, overwriting it.
func WriteKlinesToCSV(klines []*domain.Kline, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()
	return WriteKlines(file, klines)
}

// WriteKlines writes klines with a header row.
func WriteKlines(w io.Writer, klines []*domain.Kline) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(klineHeader); err != nil {
		return err
	}
	for _, k := range klines {
		if err := writer.Write([]string{
			k.OpenTime.UTC().Format(time.RFC3339),
			k.CloseTime.UTC().Format(time.RFC3339Nano),
			k.Symbol,
			k.Interval,
			formatFloat(k.Open),
			formatFloat(k.High),
			formatFloat(k.Low),
			formatFloat(k.Close),
			formatFloat(k.Volume),
		}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// ReadKlinesFromCSV loads klines written by WriteKlinesToCSV.
func ReadKlinesFromCSV(filename string) ([]*domain.Kline, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return ReadKlines(file)
}

// ReadKlines parses klines with a header row. Rows must be in ascending open
// time; loaded bars are marked final.
func ReadKlines(r io.Reader) ([]*domain.Kline, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = len(klineHeader)

	if _, err := reader.Read(); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("empty kline file")
		}
		return nil, fmt.Errorf("read header: %w", err)
	}

	var klines []*domain.Kline
	for line := 2; ; line++ {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		k, err := parseKline(rec)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if n := len(klines); n > 0 && !k.OpenTime.After(klines[n-1].OpenTime) {
			return nil, fmt.Errorf("line %d: open time %s is not after the previous bar", line, k.OpenTime.Format(time.RFC3339))
		}
		klines = append(klines, k)
	}
	return klines, nil
}

func parseKline(rec []string) (*domain.Kline, error) {
	openTime, err := time.Parse(time.RFC3339, rec[0])
	if err != nil {
		return nil, fmt.Errorf("open_time: %w", err)
	}
	closeTime, err := time.Parse(time.RFC3339Nano, rec[1])
	if err != nil {
		return nil, fmt.Errorf("close_time: %w", err)
	}
	var vals [5]float64
	for i, name := range klineHeader[4:] {
		if vals[i], err = strconv.ParseFloat(rec[4+i], 64); err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
	}
	return &domain.Kline{
		OpenTime:  openTime.UTC(),
		CloseTime: closeTime.UTC(),
		Symbol:    rec[2],
		Interval:  rec[3],
		Open:      vals[0],
		High:      vals[1],
		Low:       vals[2],
		Close:     vals[3],
		Volume:    vals[4],
		IsFinal:   true,
	}, nil
}

// WriteTradesToCSV writes a trade ledger, tagging each row with series.
func WriteTradesToCSV(series string, trades []*domain.Trade, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write(tradeHeader); err != nil {
		return err
	}
	for _, t := range trades {
		if err := writer.Write([]string{
			series,
			t.Symbol,
			t.EntryTime.UTC().Format(time.RFC3339),
			formatFloat(t.EntryPrice),
			t.ExitTime.UTC().Format(time.RFC3339),
			formatFloat(t.ExitPrice),
			formatFloat(t.Return),
			string(t.CloseReason),
		}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// ReadTradesFromCSV loads a ledger written by WriteTradesToCSV and returns
// the series name of its first row.
func ReadTradesFromCSV(filename string) (string, []*domain.Trade, error) {
	file, err := os.Open(filename)
	if err != nil {
		return "", nil, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = len(tradeHeader)
	records, err := reader.ReadAll()
	if err != nil {
		return "", nil, err
	}
	if len(records) == 0 {
		return "", nil, errors.New("empty trade file")
	}

	var series string
	trades := make([]*domain.Trade, 0, len(records)-1)
	for i, rec := range records[1:] {
		t, err := parseTrade(rec)
		if err != nil {
			return "", nil, fmt.Errorf("line %d: %w", i+2, err)
		}
		if series == "" {
			series = rec[0]
		}
		trades = append(trades, t)
	}
	return series, trades, nil
}

func parseTrade(rec []string) (*domain.Trade, error) {
	entryTime, err := time.Parse(time.RFC3339, rec[2])
	if err != nil {
		return nil, fmt.Errorf("entry_time: %w", err)
	}
	exitTime, err := time.Parse(time.RFC3339, rec[4])
	if err != nil {
		return nil, fmt.Errorf("exit_time: %w", err)
	}
	var vals [3]float64
	for i, col := range []int{3, 5, 6} {
		if vals[i], err = strconv.ParseFloat(rec[col], 64); err != nil {
			return nil, fmt.Errorf("%s: %w", tradeHeader[col], err)
		}
	}
	return &domain.Trade{
		Symbol:      rec[1],
		EntryTime:   entryTime.UTC(),
		EntryPrice:  vals[0],
		ExitTime:    exitTime.UTC(),
		ExitPrice:   vals[1],
		Return:      vals[2],
		CloseReason: domain.CloseReason(rec[7]),
	}, nil
}
