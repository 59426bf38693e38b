// Package recorder keeps a history of fired alerts and polled quotes.
package recorder

import "StockSentinel/internal/model"

// Recorder persists historical data for analysis.
type Recorder interface {
	RecordAlert(a *model.Alert, recipients int) error
	RecordQuote(code string, q *model.Quote) error
	Close() error
}
