package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/tabwriter"

	"cryptoProbTrader/internal/domain"
	"cryptoProbTrader/internal/strategy/analytics"
	"cryptoProbTrader/internal/utils"
)

func main() {
	dir := flag.String("dir", "data/trades", "directory holding <series>_trades.csv files")
	flag.Parse()

	// Find all backtest trade files
	files, err := findTradeFiles(*dir, "_trades.csv")
	if err != nil {
		log.Fatalf("Error finding trade files: %v", err)
	}
	if len(files) == 0 {
		log.Println("No trade files found. Run the backtest runner with -trades first.")
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.AlignRight|tabwriter.Debug)
	fmt.Fprintln(w, "Series\tTrades\tWinRate\tAvgWin\tAvgLoss\tTotal\tMaxDD\tExpectancy\tAvgHold\t")

	ledgers := make(map[string][]*domain.Trade, len(files))
	var order []string
	for _, file := range files {
		series, trades, err := utils.ReadTradesFromCSV(file)
		if err != nil {
			log.Printf("Error reading trades from %s: %v", file, err)
			continue
		}
		if series == "" {
			series = strings.TrimSuffix(filepath.Base(file), "_trades.csv")
		}
		ledgers[series] = trades
		order = append(order, series)

		m := analytics.AnalyzePerformance(trades)
		fmt.Fprintf(w, "%s\t%d\t%.2f\t%.4f\t%.4f\t%.4f\t%.4f\t%.4f\t%s\t\n",
			series,
			m.TotalTrades,
			m.WinRate*100,
			m.AverageWin,
			m.AverageLoss,
			m.TotalReturn,
			m.MaxDrawdown,
			m.Expectancy,
			m.AverageTradeDuration,
		)
	}
	w.Flush()

	fmt.Println("\n## Exit Reason Breakdown")
	for _, series := range order {
		printExitReasons(series, ledgers[series])
	}
}

// findTradeFiles lists the CSV files in dir ending in suffix, sorted by name.
func findTradeFiles(dir, suffix string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), suffix) {
			files = append(files, filepath.Join(dir, entry.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}

func printExitReasons(series string, trades []*domain.Trade) {
	counts := make(map[domain.CloseReason]int)
	totals := make(map[domain.CloseReason]float64)
	for _, trade := range trades {
		counts[trade.CloseReason]++
		totals[trade.CloseReason] += trade.Return
	}

	fmt.Printf("\nSeries: %s\n", series)
	if len(counts) == 0 {
		fmt.Println("No trades")
		return
	}
	fmt.Println("Close Reason\tCount\tTotal\tAvg")

	reasons := make([]domain.CloseReason, 0, len(counts))
	for reason := range counts {
		reasons = append(reasons, reason)
	}
	sort.Slice(reasons, func(i, j int) bool {
		return string(reasons[i]) < string(reasons[j])
	})

	for _, reason := range reasons {
		count := counts[reason]
		fmt.Printf("%s\t%d\t%.4f\t%.4f\n", reason, count, totals[reason], totals[reason]/float64(count))
	}
}
