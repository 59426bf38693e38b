package collector

import (
	"context"
	"sync"
	"time"

	"StockSentinel/internal/model"
)

// MockFetcher returns controllable fixed data for development and testing.
type MockFetcher struct {
	mu        sync.Mutex
	Quote     model.Quote
	OrderBook model.OrderBook
	Err       error
	Calls     int
}

// NewMockFetcher returns a fetcher whose quote and order book sit around price.
func NewMockFetcher(price int64) *MockFetcher {
	step := price / 200
	if step < 1 {
		step = 1
	}
	m := &MockFetcher{
		Quote: model.Quote{
			Current:    price,
			Open:       price - step,
			High:       price + step,
			Low:        price - 2*step,
			PrevClose:  price - 2*step,
			ChangeRate: float64(2*step) * 100 / float64(price-2*step),
			Volume:     100000,
		},
	}
	for i := int64(1); i <= 5; i++ {
		m.OrderBook.Asks = append(m.OrderBook.Asks, model.Level{Price: price + i*step, Quantity: 100 * i})
		m.OrderBook.Bids = append(m.OrderBook.Bids, model.Level{Price: price - (i-1)*step, Quantity: 120 * i})
		m.OrderBook.TotalAsk += 100 * i
		m.OrderBook.TotalBid += 120 * i
	}
	return m
}

func (m *MockFetcher) Name() string { return "mock" }

func (m *MockFetcher) FetchQuote(_ context.Context) (*model.Quote, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls++
	if m.Err != nil {
		return nil, m.Err
	}
	q := m.Quote
	if q.Timestamp.IsZero() {
		q.Timestamp = time.Now()
	}
	return &q, nil
}

func (m *MockFetcher) FetchOrderBook(_ context.Context) (*model.OrderBook, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	ob := m.OrderBook
	return &ob, nil
}

// Set replaces the quote returned by subsequent calls and clears any error.
func (m *MockFetcher) Set(q model.Quote) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Quote = q
	m.Err = nil
}

// Fail makes subsequent calls return err.
func (m *MockFetcher) Fail(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Err = err
}

// CallCount reports how many quotes were requested.
func (m *MockFetcher) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Calls
}
