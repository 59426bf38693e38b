package recorder

import "StockSentinel/internal/model"

// NoopRecorder is used when no database is configured.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) RecordAlert(_ *model.Alert, _ int) error      { return nil }
func (n *NoopRecorder) RecordQuote(_ string, _ *model.Quote) error { return nil }
func (n *NoopRecorder) Close() error                               { return nil }
