package sentiment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ContractPulse/internal/model"
)

func TestScore(t *testing.T) {
	a := New()
	assert.Greater(t, a.Score("Lockheed wins a great, excellent and very profitable contract"), 0.5)
	assert.Less(t, a.Score("Terrible losses and an awful, disastrous quarter"), -0.5)
	got := a.Score("The contract covers spare parts.")
	assert.InDelta(t, 0, got, 0.2)
}

func TestAnnotate(t *testing.T) {
	articles := []model.Article{
		{Title: "ignored", Content: "An excellent, wonderful win for the company"},
		{Title: "Awful crash", Description: "a terrible day"},
		{Title: "   "},
	}
	New().Annotate(articles)

	require.True(t, articles[0].Sentiment.Valid)
	assert.Greater(t, articles[0].Sentiment.Float64, 0.0)
	require.True(t, articles[1].Sentiment.Valid, "falls back to title and description")
	assert.Less(t, articles[1].Sentiment.Float64, 0.0)
	assert.False(t, articles[2].Sentiment.Valid)
}

func TestArticleText(t *testing.T) {
	assert.Equal(t, "body", articleText(model.Article{Title: "t", Content: " body "}))
	assert.Equal(t, "t. d", articleText(model.Article{Title: "t", Description: "d"}))
	assert.Equal(t, "d", articleText(model.Article{Description: "d"}))
	assert.Empty(t, articleText(model.Article{}))
}
