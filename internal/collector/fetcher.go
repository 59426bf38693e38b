package collector

import (
	"context"

	"StockSentinel/internal/model"
)

// Fetcher defines the interface for fetching quotes of the tracked instrument.
type Fetcher interface {
	FetchQuote(ctx context.Context) (*model.Quote, error)
	FetchOrderBook(ctx context.Context) (*model.OrderBook, error)
	Name() string
}
