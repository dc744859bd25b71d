// Package sentiment scores news text with the VADER lexicon.
package sentiment

import (
	"strings"

	"github.com/guregu/null/v6"
	"github.com/jonreiter/govader"

	"ContractPulse/internal/model"
)

// Analyzer wraps a VADER sentiment analyzer. It is safe for concurrent use
// once built.
type Analyzer struct {
	vader *govader.SentimentIntensityAnalyzer
}

// New loads the lexicon and returns an Analyzer.
func New() *Analyzer {
	return &Analyzer{vader: govader.NewSentimentIntensityAnalyzer()}
}

// Score returns the compound score of text in [-1, 1].
func (a *Analyzer) Score(text string) float64 {
	return a.vader.PolarityScores(text).Compound
}

// Annotate scores each article's full content, or its title and description
// when no content was fetched. Articles without any text stay unscored.
func (a *Analyzer) Annotate(articles []model.Article) {
	for i := range articles {
		text := articleText(articles[i])
		if text == "" {
			articles[i].Sentiment = null.Float{}
			continue
		}
		articles[i].Sentiment = null.FloatFrom(a.Score(text))
	}
}

func articleText(art model.Article) string {
	if c := strings.TrimSpace(art.Content); c != "" {
		return c
	}
	var parts []string
	for _, s := range []string{art.Title, art.Description} {
		if s = strings.TrimSpace(s); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, ". ")
}
