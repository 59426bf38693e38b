package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"StockSentinel/internal/model"

	"golang.org/x/time/rate"
)

const (
	naverAPIBase   = "https://m.stock.naver.com/api/stock"
	naverChartBase = "https://m.stock.naver.com/domestic/stock"
	userAgent      = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"
)

// NaverFetcher implements Fetcher using the Naver mobile stock API.
type NaverFetcher struct {
	Code    string
	BaseURL string
	Client  *http.Client
	limiter *rate.Limiter
}

// NewNaverFetcher creates a fetcher for one stock code with optional proxy support.
func NewNaverFetcher(code, proxyURL string) *NaverFetcher {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &NaverFetcher{
		Code:    code,
		BaseURL: naverAPIBase,
		Client: &http.Client{
			Timeout:   10 * time.Second,
			Transport: transport,
		},
		// 60 requests per minute, burst of 3 (one quote costs two requests)
		limiter: rate.NewLimiter(rate.Limit(1), 3),
	}
}

func (f *NaverFetcher) Name() string { return "naver" }

// ChartURL returns the public chart page of a stock code.
func ChartURL(code string) string {
	return fmt.Sprintf("%s/%s/total", naverChartBase, url.PathEscape(code))
}

type naverBasic struct {
	StockName                   string `json:"stockName"`
	ClosePrice                  string `json:"closePrice"`
	OpenPrice                   string `json:"openPrice"`
	HighPrice                   string `json:"highPrice"`
	LowPrice                    string `json:"lowPrice"`
	CompareToPreviousClosePrice string `json:"compareToPreviousClosePrice"`
	FluctuationsRatio           string `json:"fluctuationsRatio"`
	MarketStatus                string `json:"marketStatus"`
}

type naverIntegration struct {
	TotalInfos []struct {
		Code  string `json:"code"`
		Key   string `json:"key"`
		Value string `json:"value"`
	} `json:"totalInfos"`
}

type naverLevel struct {
	Price string `json:"price"`
	Count string `json:"count"`
}

type naverAskingPrice struct {
	SellInfo  []naverLevel `json:"sellInfo"`
	BuyInfos  []naverLevel `json:"buyInfos"`
	TotalSell string       `json:"totalSell"`
	TotalBuy  string       `json:"totalBuy"`
}

// FetchQuote reads the basic price block and the accumulated volume.
func (f *NaverFetcher) FetchQuote(ctx context.Context) (*model.Quote, error) {
	var basic naverBasic
	if err := f.getJSON(ctx, "basic", &basic); err != nil {
		return nil, err
	}

	q := &model.Quote{Timestamp: time.Now()}
	var err error
	if q.Current, err = parseInt(basic.ClosePrice); err != nil {
		return nil, fmt.Errorf("naver: closePrice: %w", err)
	}
	if q.Current <= 0 {
		return nil, fmt.Errorf("naver: closePrice %q: no current price", basic.ClosePrice)
	}
	// openPrice stays 0 before the first trade; the evaluator waits for it
	if q.Open, err = parseInt(basic.OpenPrice); err != nil {
		return nil, fmt.Errorf("naver: openPrice: %w", err)
	}
	if q.High, err = parseInt(basic.HighPrice); err != nil {
		return nil, fmt.Errorf("naver: highPrice: %w", err)
	}
	if q.Low, err = parseInt(basic.LowPrice); err != nil {
		return nil, fmt.Errorf("naver: lowPrice: %w", err)
	}
	diff, err := parseInt(basic.CompareToPreviousClosePrice)
	if err != nil {
		return nil, fmt.Errorf("naver: compareToPreviousClosePrice: %w", err)
	}
	q.PrevClose = q.Current - diff
	if q.ChangeRate, err = parseFloat(basic.FluctuationsRatio); err != nil {
		return nil, fmt.Errorf("naver: fluctuationsRatio: %w", err)
	}

	var integration naverIntegration
	if err := f.getJSON(ctx, "integration", &integration); err != nil {
		return nil, err
	}
	for _, info := range integration.TotalInfos {
		if info.Code != "accumulatedTradingVolume" {
			continue
		}
		if q.Volume, err = parseInt(info.Value); err != nil {
			return nil, fmt.Errorf("naver: accumulatedTradingVolume: %w", err)
		}
	}
	return q, nil
}

// FetchOrderBook reads the current asking prices.
func (f *NaverFetcher) FetchOrderBook(ctx context.Context) (*model.OrderBook, error) {
	var ap naverAskingPrice
	if err := f.getJSON(ctx, "askingPrice", &ap); err != nil {
		return nil, err
	}
	ob := &model.OrderBook{FetchedAt: time.Now()}
	var err error
	if ob.Asks, err = parseLevels(ap.SellInfo); err != nil {
		return nil, fmt.Errorf("naver: sellInfo: %w", err)
	}
	if ob.Bids, err = parseLevels(ap.BuyInfos); err != nil {
		return nil, fmt.Errorf("naver: buyInfos: %w", err)
	}
	if ob.TotalAsk, err = parseInt(ap.TotalSell); err != nil {
		return nil, fmt.Errorf("naver: totalSell: %w", err)
	}
	if ob.TotalBid, err = parseInt(ap.TotalBuy); err != nil {
		return nil, fmt.Errorf("naver: totalBuy: %w", err)
	}
	return ob, nil
}

func (f *NaverFetcher) getJSON(ctx context.Context, endpoint string, v interface{}) error {
	if f.limiter != nil {
		if err := f.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("naver rate limit: %w", err)
		}
	}

	u := fmt.Sprintf("%s/%s/%s", f.BaseURL, url.PathEscape(f.Code), endpoint)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.Client.Do(req)
	if err != nil {
		return fmt.Errorf("naver fetch %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("naver read %s: %w", endpoint, err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("naver %s: status %d, body: %s", endpoint, resp.StatusCode, truncate(string(body), 200))
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("naver decode %s: %w", endpoint, err)
	}
	return nil
}

func parseLevels(in []naverLevel) ([]model.Level, error) {
	levels := make([]model.Level, 0, len(in))
	for _, l := range in {
		price, err := parseInt(l.Price)
		if err != nil {
			return nil, err
		}
		qty, err := parseInt(l.Count)
		if err != nil {
			return nil, err
		}
		levels = append(levels, model.Level{Price: price, Quantity: qty})
	}
	return levels, nil
}

// parseInt accepts comma grouped numbers such as "-1,250". Empty means zero.
func parseInt(s string) (int64, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" {
		return 0, nil
	}
	return strconv.ParseInt(s, 10, 64)
}

func parseFloat(s string) (float64, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" {
		return 0, nil
	}
	return strconv.ParseFloat(s, 64)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
