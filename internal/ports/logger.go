package ports

import "context"

// Logger is the structured logger every component receives. Each call takes
// optional field maps that are merged into the record; live-loop records carry
// at least "symbol".
type Logger interface {
	Debug(ctx context.Context, msg string, fields ...map[string]interface{})
	Info(ctx context.Context, msg string, fields ...map[string]interface{})
	Warn(ctx context.Context, msg string, fields ...map[string]interface{})
	// Error logs err alongside msg. A nil err is allowed.
	Error(ctx context.Context, err error, msg string, fields ...map[string]interface{})
}
