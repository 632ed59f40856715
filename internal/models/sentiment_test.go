package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseSentimentLabel(t *testing.T) {
	tests := []struct {
		raw  string
		want SentimentLabel
	}{
		{"Positivo", SentimentPositive},
		{"positive", SentimentPositive},
		{"NEGATIVO", SentimentNegative},
		{" Negative ", SentimentNegative},
		{"Neutro", SentimentNeutral},
		{"neutral", SentimentNeutral},
		{"mixed", SentimentUnknown},
		{"", SentimentUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseSentimentLabel(tt.raw))
		})
	}
}

func TestNewSentimentIndex(t *testing.T) {
	idx := NewSentimentIndex([]SentimentAnalysis{
		{EvaluationID: 1, Sentiment: "Negativo", Summary: "slow service", Confidence: 0.9},
		{EvaluationID: 2, Sentiment: "Positivo"},
	})

	assert.Len(t, idx, 2)
	assert.Equal(t, SentimentNegative, idx[1].Label)
	assert.Equal(t, "slow service", idx[1].Summary)
	assert.Equal(t, SentimentPositive, idx[2].Label)
}

func TestSeasonContains(t *testing.T) {
	s := Season{StartTime: mustTime("2026-01-01T00:00:00Z"), EndTime: mustTime("2026-01-31T00:00:00Z")}

	assert.True(t, s.Contains(s.StartTime))
	assert.True(t, s.Contains(s.EndTime))
	assert.True(t, s.Contains(mustTime("2026-01-15T12:00:00Z")))
	assert.False(t, s.Contains(mustTime("2025-12-31T23:59:59Z")))
	assert.False(t, s.Contains(mustTime("2026-01-31T00:00:01Z")))
}
