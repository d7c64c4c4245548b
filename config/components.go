package config

import (
	"cryptoProbTrader/internal/adapters/logger"
	"cryptoProbTrader/internal/risk"
	"cryptoProbTrader/internal/strategy"
	"cryptoProbTrader/internal/strategy/backtesting"
	"cryptoProbTrader/internal/strategy/features"
	"cryptoProbTrader/internal/strategy/indicators"
)

// IndicatorParams returns the indicator lengths.
func (c *Config) IndicatorParams() indicators.Params {
	return indicators.Params{
		RSILength:  c.RSILength,
		EMAFast:    c.EMAFast,
		EMASlow:    c.EMASlow,
		ATRLength:  c.ATRLength,
		MACDFast:   c.MACDFast,
		MACDSlow:   c.MACDSlow,
		MACDSignal: c.MACDSignal,
	}
}

// StrategyConfig returns the rule evaluator configuration.
func (c *Config) StrategyConfig() strategy.Config {
	sc := strategy.DefaultConfig()
	sc.Indicators = c.IndicatorParams()
	sc.FibLookback = c.FibLookback
	sc.ProxPct = c.ProxPct
	sc.ProbThreshold = c.ProbThreshold
	sc.LiveRSIMax = c.LiveRSIMax
	return sc
}

// FeatureConfig returns the feature table configuration.
func (c *Config) FeatureConfig() features.Config {
	return features.Config{
		Indicators:  c.IndicatorParams(),
		FibLookback: c.FibLookback,
		ProxPct:     c.ProxPct,
		VolWindow:   c.VolatilityBars,
	}
}

// RiskConfig returns the live risk-level configuration.
func (c *Config) RiskConfig() risk.RiskConfig {
	rc := risk.DefaultRiskConfig()
	rc.MaxStopPct = c.MaxSLPct
	rc.MaxTakePct = c.MaxTPPct
	rc.Leverage = c.Leverage
	rc.ProxPct = c.ProxPct
	return rc
}

// BacktestConfig returns the simulator configuration.
func (c *Config) BacktestConfig() backtesting.BacktestConfig {
	return backtesting.BacktestConfig{
		Symbol:        c.Symbol,
		FeeRate:       c.FeeRate,
		StopLossPct:   c.StopLossPct,
		TakeProfitPct: c.TakeProfitPct,
		CloseAtEnd:    c.CloseAtEnd,
	}
}

// LoggerConfig returns the logger adapter configuration.
func (c *Config) LoggerConfig() logger.Config {
	return logger.Config{Level: c.LogLevel, Format: c.LogFormat}
}
