package model

import "time"

// Quote is a normalized snapshot of the tracked instrument. Prices are in KRW.
type Quote struct {
	Current    int64
	Open       int64
	High       int64
	Low        int64
	PrevClose  int64
	ChangeRate float64 // percent vs previous close, as reported by the source
	Volume     int64
	Timestamp  time.Time
}

// Level is one price level of the order book.
type Level struct {
	Price    int64
	Quantity int64
}

// OrderBook holds the best ask/bid levels, nearest to the spread first.
type OrderBook struct {
	Asks      []Level
	Bids      []Level
	TotalAsk  int64
	TotalBid  int64
	FetchedAt time.Time
}
