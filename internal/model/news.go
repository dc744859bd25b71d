package model

import "github.com/guregu/null/v6"

// Article is a cleaned news article.
type Article struct {
	ID            int64    `json:"id"`
	Title         string   `json:"title"`
	Description   string   `json:"description"`
	Content       string   `json:"content"`
	Source        string   `json:"source"`
	URL           string   `json:"url"`
	Tickers       []string `json:"tickers"`
	Tags          []string `json:"tags"`
	PublishedDate string   `json:"published_date"`
	CrawledDate   string   `json:"crawled_date"`

	// Sentiment is the VADER compound score in [-1, 1]; undefined when unscored.
	Sentiment null.Float `json:"sentiment"`
}
