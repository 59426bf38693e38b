package collector

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, routes map[string]string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
		body, ok := routes[r.URL.Path]
		if !ok {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestFetcher(srv *httptest.Server) *NaverFetcher {
	f := NewNaverFetcher("099190", "")
	f.BaseURL = srv.URL
	return f
}

func TestNaverFetcher_FetchQuote(t *testing.T) {
	srv := newTestServer(t, map[string]string{
		"/099190/basic": `{"stockName":"아이센스","closePrice":"25,150","openPrice":"24,800",
			"highPrice":"25,300","lowPrice":"24,700","compareToPreviousClosePrice":"-350",
			"fluctuationsRatio":"-1.37","marketStatus":"OPEN"}`,
		"/099190/integration": `{"totalInfos":[{"code":"lastClosePrice","key":"전일","value":"25,500"},
			{"code":"accumulatedTradingVolume","key":"거래량","value":"123,456"}]}`,
	})

	q, err := newTestFetcher(srv).FetchQuote(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(25150), q.Current)
	assert.Equal(t, int64(24800), q.Open)
	assert.Equal(t, int64(25300), q.High)
	assert.Equal(t, int64(24700), q.Low)
	assert.Equal(t, int64(25500), q.PrevClose)
	assert.InDelta(t, -1.37, q.ChangeRate, 1e-9)
	assert.Equal(t, int64(123456), q.Volume)
	assert.False(t, q.Timestamp.IsZero())
}

func TestNaverFetcher_Failures(t *testing.T) {
	tests := []struct {
		name   string
		routes map[string]string
	}{
		{"http status", map[string]string{}},
		{"bad json", map[string]string{"/099190/basic": `{"closePrice":`}},
		{"bad number", map[string]string{
			"/099190/basic":       `{"closePrice":"abc"}`,
			"/099190/integration": `{"totalInfos":[]}`,
		}},
		{"empty close price", map[string]string{
			"/099190/basic":       `{"closePrice":"","openPrice":"1,000","compareToPreviousClosePrice":"0"}`,
			"/099190/integration": `{"totalInfos":[]}`,
		}},
		{"zero close price", map[string]string{
			"/099190/basic":       `{"closePrice":"0","openPrice":"1,000"}`,
			"/099190/integration": `{"totalInfos":[]}`,
		}},
		{"integration missing", map[string]string{
			"/099190/basic": `{"closePrice":"1,000","openPrice":"1,000"}`,
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, tt.routes)
			q, err := newTestFetcher(srv).FetchQuote(context.Background())
			assert.Error(t, err)
			assert.Nil(t, q)
		})
	}
}

func TestNaverFetcher_EmptyOpenPrice(t *testing.T) {
	srv := newTestServer(t, map[string]string{
		"/099190/basic": `{"closePrice":"25,150","openPrice":"","highPrice":"","lowPrice":"",
			"compareToPreviousClosePrice":"150","fluctuationsRatio":"0.60"}`,
		"/099190/integration": `{"totalInfos":[]}`,
	})

	q, err := newTestFetcher(srv).FetchQuote(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(25150), q.Current)
	assert.Zero(t, q.Open)
	assert.Equal(t, int64(25000), q.PrevClose)
}

func TestNaverFetcher_FetchOrderBook(t *testing.T) {
	srv := newTestServer(t, map[string]string{
		"/099190/askingPrice": `{"sellInfo":[{"price":"25,200","count":"1,200"},{"price":"25,250","count":"800"}],
			"buyInfos":[{"price":"25,150","count":"2,000"}],"totalSell":"2,000","totalBuy":"2,000"}`,
	})

	ob, err := newTestFetcher(srv).FetchOrderBook(context.Background())
	require.NoError(t, err)
	require.Len(t, ob.Asks, 2)
	require.Len(t, ob.Bids, 1)
	assert.Equal(t, int64(25200), ob.Asks[0].Price)
	assert.Equal(t, int64(1200), ob.Asks[0].Quantity)
	assert.Equal(t, int64(25150), ob.Bids[0].Price)
	assert.Equal(t, int64(2000), ob.TotalAsk)
}

func TestNaverFetcher_ContextCancelled(t *testing.T) {
	srv := newTestServer(t, map[string]string{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newTestFetcher(srv).FetchQuote(ctx)
	assert.Error(t, err)
}

func TestParseInt(t *testing.T) {
	tests := []struct {
		in   string
		want int64
	}{
		{"1,234,567", 1234567},
		{"-350", -350},
		{" 42 ", 42},
		{"", 0},
	}
	for _, tt := range tests {
		got, err := parseInt(tt.in)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, tt.in)
	}
	_, err := parseInt("1.5")
	assert.Error(t, err)
}

func TestChartURL(t *testing.T) {
	assert.Equal(t, "https://m.stock.naver.com/domestic/stock/099190/total", ChartURL("099190"))
}
