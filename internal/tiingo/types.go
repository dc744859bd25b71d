package tiingo

import (
	"fmt"
	"time"
)

// APIError represents a non-200 response from the Tiingo API.
type APIError struct {
	StatusCode int
	Message    string
	Endpoint   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("tiingo API error: %s (status: %d, endpoint: %s)", e.Message, e.StatusCode, e.Endpoint)
}

// PriceBar is one row of /tiingo/daily/{ticker}/prices.
type PriceBar struct {
	Date        time.Time `json:"date"`
	Open        float64   `json:"open"`
	High        float64   `json:"high"`
	Low         float64   `json:"low"`
	Close       float64   `json:"close"`
	Volume      float64   `json:"volume"`
	AdjClose    float64   `json:"adjClose"`
	AdjVolume   float64   `json:"adjVolume"`
	DivCash     float64   `json:"divCash"`
	SplitFactor float64   `json:"splitFactor"`
}

// rawArticle is one item of /tiingo/news as delivered.
type rawArticle struct {
	ID            int64    `json:"id"`
	Title         string   `json:"title"`
	Description   string   `json:"description"`
	Content       string   `json:"content"`
	Source        string   `json:"source"`
	URL           string   `json:"url"`
	Tickers       []string `json:"tickers"`
	Tags          []string `json:"tags"`
	PublishedDate string   `json:"publishedDate"`
	CrawlDate     string   `json:"crawlDate"`
}

// Ticker is one hit of the ticker search endpoint.
type Ticker struct {
	Ticker      string `json:"ticker"`
	Name        string `json:"name"`
	AssetType   string `json:"assetType"`
	IsActive    bool   `json:"isActive"`
	CountryCode string `json:"countryCode"`
}
