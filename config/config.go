package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"cryptoProbTrader/internal/adapters/logger" // Import the logger package for LogLevel
	"cryptoProbTrader/internal/ports"
)

// Config holds all application configuration.
type Config struct {
	// Binance API
	APIKey    string `yaml:"api_key"`
	SecretKey string `yaml:"api_secret"`
	IsTestnet bool   `yaml:"testnet"`

	// Market
	Symbol   string `yaml:"symbol"`
	Interval string `yaml:"interval"`
	Limit    int    `yaml:"limit"` // Bars fetched per request

	// Indicator lengths
	RSILength      int `yaml:"rsi_len"`
	EMAFast        int `yaml:"ema_fast"`
	EMASlow        int `yaml:"ema_slow"`
	ATRLength      int `yaml:"atr_len"`
	MACDFast       int `yaml:"macd_fast"`
	MACDSlow       int `yaml:"macd_slow"`
	MACDSignal     int `yaml:"macd_signal"`
	FibLookback    int `yaml:"fib_lookback"`
	SwingLookback  int `yaml:"swing_lookback"`
	VolatilityBars int `yaml:"vol_window"`

	// Signal parameters
	ProxPct       float64 `yaml:"prox_pct"`       // Distance to a Fibonacci level, in percent (0.25 = 0.25%)
	ProbThreshold float64 `yaml:"prob_threshold"` // Must lie in (0.5, 1)
	LiveRSIMax    float64 `yaml:"live_rsi_max"`

	// Backtest
	FeeRate       float64  `yaml:"fee_rate"`
	StopLossPct   *float64 `yaml:"stop_loss_pct"`   // Percent, nil disables
	TakeProfitPct *float64 `yaml:"take_profit_pct"` // Percent, nil disables
	CloseAtEnd    bool     `yaml:"close_at_end"`

	// Live risk caps
	MaxSLPct float64 `yaml:"max_sl_pct"` // Fraction (0.10 = 10%)
	MaxTPPct float64 `yaml:"max_tp_pct"` // Fraction
	Leverage float64 `yaml:"leverage"`   // Display-only scale factor

	// Execution
	PaperTrading  bool          `yaml:"paper_trading"`
	OrderSizeUSDT float64       `yaml:"order_size_usdt"`
	PollInterval  time.Duration `yaml:"poll_interval"`

	// Database
	DBPath string `yaml:"db_path"`

	// Observability
	MetricsAddr string          `yaml:"metrics_addr"` // Empty disables the /metrics endpoint
	LogLevel    logger.LogLevel `yaml:"-"`            // Use the LogLevel type from the logger adapter
	LogFormat   string          `yaml:"log_format"`   // console or json
	LogLevelRaw string          `yaml:"log_level"`
}

// Default returns the configuration used when nothing is overridden.
func Default() *Config {
	sl, tp := 1.0, 2.0
	return &Config{
		IsTestnet:      true,
		Symbol:         "ETHUSDT",
		Interval:       "1h",
		Limit:          1000,
		RSILength:      14,
		EMAFast:        50,
		EMASlow:        200,
		ATRLength:      14,
		MACDFast:       12,
		MACDSlow:       26,
		MACDSignal:     9,
		FibLookback:    200,
		SwingLookback:  20,
		VolatilityBars: 10,
		ProxPct:        0.25,
		ProbThreshold:  0.55,
		LiveRSIMax:     60,
		FeeRate:        0.0004,
		StopLossPct:    &sl,
		TakeProfitPct:  &tp,
		MaxSLPct:       0.10,
		MaxTPPct:       0.20,
		Leverage:       13,
		PaperTrading:   true,
		OrderSizeUSDT:  50,
		PollInterval:   60 * time.Second,
		DBPath:         "./data/order_journal.db",
		LogFormat:      "console",
		LogLevelRaw:    "INFO",
	}
}

// LoadConfig loads configuration from a .env file, an optional YAML file named by
// CONFIG_FILE, and environment variables, in increasing order of precedence.
func LoadConfig() (*Config, error) {
	// Load .env file, but don't fail if it doesn't exist (allow pure env vars)
	_ = godotenv.Load()

	cfg := Default()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.loadYAML(path); err != nil {
			return nil, fmt.Errorf("%w: %v", ports.ErrConfigurationError, err)
		}
	}

	errs := cfg.applyEnv()
	errs = append(errs, cfg.validate()...)

	// Combine validation errors
	if len(errs) > 0 {
		return nil, fmt.Errorf("%w: configuration validation failed: %s", ports.ErrConfigurationError, strings.Join(errs, "; "))
	}

	return cfg, nil
}

func (c *Config) loadYAML(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(b, c); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	return nil
}

func (c *Config) applyEnv() []string {
	var errs []string
	var err error

	c.APIKey = getEnv("BINANCE_API_KEY", c.APIKey)
	c.SecretKey = getEnv("BINANCE_API_SECRET", c.SecretKey)
	c.IsTestnet = getEnvAsBool("BINANCE_TESTNET", c.IsTestnet)

	c.Symbol = strings.ToUpper(getEnv("SYMBOL", c.Symbol))
	c.Interval = getEnv("INTERVAL", c.Interval)

	ints := []struct {
		key string
		dst *int
	}{
		{"LIMIT", &c.Limit},
		{"RSI_LEN", &c.RSILength},
		{"EMA_FAST", &c.EMAFast},
		{"EMA_SLOW", &c.EMASlow},
		{"ATR_LEN", &c.ATRLength},
		{"MACD_FAST", &c.MACDFast},
		{"MACD_SLOW", &c.MACDSlow},
		{"MACD_SIGNAL", &c.MACDSignal},
		{"FIB_LOOKBACK", &c.FibLookback},
		{"SWING_LOOKBACK", &c.SwingLookback},
		{"VOL_WINDOW", &c.VolatilityBars},
	}
	for _, f := range ints {
		if *f.dst, err = getEnvAsIntRequired(f.key, *f.dst); err != nil {
			errs = append(errs, fmt.Sprintf("invalid %s: %v", f.key, err))
		}
	}

	floats := []struct {
		key string
		dst *float64
	}{
		{"PROX_PCT", &c.ProxPct},
		{"PROB_THRESHOLD", &c.ProbThreshold},
		{"LIVE_RSI_MAX", &c.LiveRSIMax},
		{"FEE_RATE", &c.FeeRate},
		{"MAX_SL_PCT", &c.MaxSLPct},
		{"MAX_TP_PCT", &c.MaxTPPct},
		{"LEVERAGE", &c.Leverage},
		{"ORDER_SIZE_USDT", &c.OrderSizeUSDT},
	}
	for _, f := range floats {
		if *f.dst, err = getEnvAsFloatRequired(f.key, *f.dst); err != nil {
			errs = append(errs, fmt.Sprintf("invalid %s: %v", f.key, err))
		}
	}

	// STOP_LOSS_PCT / TAKE_PROFIT_PCT accept "none" to disable the exit.
	if c.StopLossPct, err = getEnvAsOptionalFloat("STOP_LOSS_PCT", c.StopLossPct); err != nil {
		errs = append(errs, fmt.Sprintf("invalid STOP_LOSS_PCT: %v", err))
	}
	if c.TakeProfitPct, err = getEnvAsOptionalFloat("TAKE_PROFIT_PCT", c.TakeProfitPct); err != nil {
		errs = append(errs, fmt.Sprintf("invalid TAKE_PROFIT_PCT: %v", err))
	}
	c.CloseAtEnd = getEnvAsBool("CLOSE_AT_END", c.CloseAtEnd)

	c.PaperTrading = getEnvAsBool("PAPER_TRADING", c.PaperTrading)
	pollSeconds, err := getEnvAsIntRequired("POLL_SECONDS", int(c.PollInterval/time.Second))
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid POLL_SECONDS: %v", err))
	} else {
		c.PollInterval = time.Duration(pollSeconds) * time.Second
	}

	c.DBPath = getEnv("DB_PATH", c.DBPath)
	c.MetricsAddr = getEnv("METRICS_ADDR", c.MetricsAddr)
	c.LogFormat = strings.ToLower(getEnv("LOG_FORMAT", c.LogFormat))
	c.LogLevelRaw = getEnv("LOG_LEVEL", c.LogLevelRaw)
	c.LogLevel = logger.ParseLevel(c.LogLevelRaw) // Use the parser from the logger package

	return errs
}

func (c *Config) validate() []string {
	var errs []string

	if c.Symbol == "" {
		errs = append(errs, "SYMBOL must be set")
	}
	if _, err := IntervalDuration(c.Interval); err != nil {
		errs = append(errs, err.Error())
	}
	if c.Limit <= 0 || c.Limit > 1000 {
		errs = append(errs, "LIMIT must be between 1 and 1000")
	}
	if c.RSILength <= 0 || c.EMAFast <= 0 || c.EMASlow <= 0 || c.ATRLength <= 0 ||
		c.MACDFast <= 0 || c.MACDSlow <= 0 || c.MACDSignal <= 0 ||
		c.FibLookback <= 0 || c.SwingLookback <= 0 || c.VolatilityBars < 2 {
		errs = append(errs, "indicator lengths must be positive (VOL_WINDOW at least 2)")
	}
	if c.EMAFast >= c.EMASlow {
		errs = append(errs, "EMA_FAST must be less than EMA_SLOW")
	}
	if c.MACDFast >= c.MACDSlow {
		errs = append(errs, "MACD_FAST must be less than MACD_SLOW")
	}
	if c.ProbThreshold <= 0.5 || c.ProbThreshold >= 1 {
		errs = append(errs, fmt.Sprintf("%v: got %v", ports.ErrInvalidThreshold, c.ProbThreshold))
	}
	if c.ProxPct <= 0 {
		errs = append(errs, "PROX_PCT must be positive")
	}
	if c.LiveRSIMax <= 0 || c.LiveRSIMax > 100 {
		errs = append(errs, "LIVE_RSI_MAX must be in (0, 100]")
	}
	if c.FeeRate <= 0 || c.FeeRate >= 1 {
		errs = append(errs, "FEE_RATE must be between 0.0 and 1.0 (exclusive)")
	}
	if c.StopLossPct != nil && (*c.StopLossPct <= 0 || *c.StopLossPct >= 100) {
		errs = append(errs, "STOP_LOSS_PCT must be between 0 and 100 (exclusive)")
	}
	if c.TakeProfitPct != nil && *c.TakeProfitPct <= 0 {
		errs = append(errs, "TAKE_PROFIT_PCT must be positive")
	}
	if c.MaxSLPct <= 0 || c.MaxSLPct >= 1 {
		errs = append(errs, "MAX_SL_PCT must be between 0.0 and 1.0 (exclusive)")
	}
	if c.MaxTPPct <= 0 {
		errs = append(errs, "MAX_TP_PCT must be positive")
	}
	if c.Leverage <= 0 {
		errs = append(errs, "LEVERAGE must be positive")
	}
	if c.OrderSizeUSDT <= 0 {
		errs = append(errs, "ORDER_SIZE_USDT must be positive")
	}
	if c.PollInterval <= 0 {
		errs = append(errs, "POLL_SECONDS must be positive")
	}
	if !c.PaperTrading && (c.APIKey == "" || c.SecretKey == "") {
		errs = append(errs, "BINANCE_API_KEY and BINANCE_API_SECRET must be set when PAPER_TRADING=false")
	}
	if c.DBPath == "" {
		errs = append(errs, "DB_PATH must be set")
	}
	if c.LogFormat != "console" && c.LogFormat != "json" {
		errs = append(errs, "LOG_FORMAT must be 'console' or 'json'")
	}

	return errs
}

var intervals = map[string]time.Duration{
	"1m":  time.Minute,
	"3m":  3 * time.Minute,
	"5m":  5 * time.Minute,
	"15m": 15 * time.Minute,
	"30m": 30 * time.Minute,
	"1h":  time.Hour,
	"2h":  2 * time.Hour,
	"4h":  4 * time.Hour,
	"6h":  6 * time.Hour,
	"8h":  8 * time.Hour,
	"12h": 12 * time.Hour,
	"1d":  24 * time.Hour,
}

// IntervalDuration maps a Binance kline interval to its bar length.
func IntervalDuration(interval string) (time.Duration, error) {
	d, ok := intervals[interval]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ports.ErrUnsupportedInterval, interval)
	}
	return d, nil
}

// --- Env Var Helpers ---

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsIntRequired(key string, defaultValue int) (int, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		// Use default if env var is not set at all
		return defaultValue, nil
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		// Return error if env var is set but invalid
		return 0, fmt.Errorf("invalid integer value '%s' for key %s: %w", valueStr, key, err)
	}
	return value, nil
}

func getEnvAsFloatRequired(key string, defaultValue float64) (float64, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue, nil
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid float value '%s' for key %s: %w", valueStr, key, err)
	}
	return value, nil
}

func getEnvAsOptionalFloat(key string, defaultValue *float64) (*float64, error) {
	valueStr := strings.TrimSpace(os.Getenv(key))
	switch strings.ToLower(valueStr) {
	case "":
		return defaultValue, nil
	case "none", "off":
		return nil, nil
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid float value '%s' for key %s: %w", valueStr, key, err)
	}
	return &value, nil
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
