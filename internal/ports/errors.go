package ports

import "errors"

// Standard application-level errors.
// Adapters should wrap underlying infrastructure errors with these standard errors.
var (
	// General Errors
	ErrUnknown            = errors.New("unknown error occurred")
	ErrInvalidRequest     = errors.New("invalid request parameters or format")
	ErrNotFound           = errors.New("resource not found")
	ErrTimeout            = errors.New("operation timed out")
	ErrContextCanceled    = errors.New("operation canceled via context")
	ErrConfigurationError = errors.New("invalid or missing configuration")

	// Configuration Errors (fatal at startup)
	ErrUnsupportedInterval = errors.New("unsupported kline interval")
	ErrInvalidThreshold    = errors.New("probability threshold must be in (0.5, 1)")

	// Data / Model Errors
	ErrInsufficientHistory = errors.New("not enough bars for indicator warm-up")
	ErrEstimatorNotFitted  = errors.New("probability estimator has not been fitted")
	ErrSingleClass         = errors.New("training labels contain a single class")
	ErrFeatureMismatch     = errors.New("feature row width does not match fitted model")
	ErrSeriesLength        = errors.New("signal series length does not match bar count")

	// Exchange Specific Errors
	ErrExchangeUnavailable  = errors.New("exchange API is unavailable")
	ErrConnectionFailed     = errors.New("failed to connect to the exchange")
	ErrRateLimited          = errors.New("API rate limit exceeded")
	ErrAuthenticationFailed = errors.New("exchange authentication failed (check API keys)")
	ErrInvalidAPIKeys       = errors.New("invalid API keys or permissions")
	ErrInsufficientFunds    = errors.New("insufficient funds for operation")
	ErrOrderPlacementFailed = errors.New("failed to place order")
	ErrUnsupportedOrderSide = errors.New("order side not supported by sink")

	// Database Specific Errors
	ErrDBConnection = errors.New("database connection error")
	ErrQueryFailed  = errors.New("database query failed")
)
