package models

import (
	"strings"
	"time"

	"golang.org/x/text/cases"
	"gorm.io/datatypes"
)

// SentimentLabel is the canonical sentiment class produced by the upstream
// classifier.
type SentimentLabel string

// Canonical sentiment labels.
const (
	SentimentPositive SentimentLabel = "positive"
	SentimentNegative SentimentLabel = "negative"
	SentimentNeutral  SentimentLabel = "neutral"
	SentimentUnknown  SentimentLabel = ""
)

var sentimentAliases = map[string]SentimentLabel{
	"positive": SentimentPositive,
	"positivo": SentimentPositive,
	"negative": SentimentNegative,
	"negativo": SentimentNegative,
	"neutral":  SentimentNeutral,
	"neutro":   SentimentNeutral,
}

var labelFolder = cases.Fold()

// ParseSentimentLabel maps classifier output ("Positivo", "NEGATIVE", ...)
// onto a canonical label. Unrecognised input yields SentimentUnknown.
func ParseSentimentLabel(raw string) SentimentLabel {
	key := labelFolder.String(strings.TrimSpace(raw))
	return sentimentAliases[key]
}

// SentimentAnalysis is the stored classifier result for one evaluation.
type SentimentAnalysis struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	EvaluationID uint           `gorm:"uniqueIndex;not null" json:"evaluation_id"`
	Sentiment    string         `gorm:"size:20;not null" json:"sentiment"`
	Summary      string         `gorm:"type:text" json:"summary"`
	Confidence   float64        `json:"confidence"`
	Raw          datatypes.JSON `json:"raw,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
}

// TableName specifies the table name for SentimentAnalysis model.
func (SentimentAnalysis) TableName() string {
	return "sentiment_analyses"
}

// Sentiment is the engine-facing view of a sentiment analysis.
type Sentiment struct {
	Label      SentimentLabel `json:"label"`
	Summary    string         `json:"summary"`
	Confidence float64        `json:"confidence"`
}

// SentimentIndex maps evaluation IDs to their sentiment.
type SentimentIndex map[uint]Sentiment

// NewSentimentIndex builds an index from stored analyses, normalising labels.
func NewSentimentIndex(analyses []SentimentAnalysis) SentimentIndex {
	idx := make(SentimentIndex, len(analyses))
	for _, a := range analyses {
		idx[a.EvaluationID] = Sentiment{
			Label:      ParseSentimentLabel(a.Sentiment),
			Summary:    a.Summary,
			Confidence: a.Confidence,
		}
	}
	return idx
}
