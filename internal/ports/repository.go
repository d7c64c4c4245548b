package ports

import (
	"context"
	"time"

	"cryptoProbTrader/internal/domain"
)

// OrderJournal records every order intent the live loop emits.
type OrderJournal interface {
	// SaveIntent stores an emitted intent and returns its assigned ID.
	SaveIntent(ctx context.Context, intent *domain.OrderIntent) (int64, error)
	// FindBySymbol retrieves the most recent intents for a symbol, newest first.
	FindBySymbol(ctx context.Context, symbol string, limit int) ([]*domain.OrderIntent, error)
	// LastBarOpenTime returns the bar open time of the latest intent for a symbol.
	// Returns the zero time and no error when nothing has been journaled.
	LastBarOpenTime(ctx context.Context, symbol string) (time.Time, error)
}
