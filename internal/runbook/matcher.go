package runbook

import (
	"context"

	"go.uber.org/zap"

	"github.com/ssantosh21/incident-iq/internal/search"
)

// Entry is one runbook surfaced for an incident.
type Entry struct {
	Title      string   `json:"title"`
	Text       string   `json:"text"`
	Tags       []string `json:"tags"`
	Similarity float64  `json:"similarity"`
}

// Matcher retrieves runbooks relevant to an incident. It runs on every
// report regardless of classification outcome.
type Matcher struct {
	index     search.Index
	topK      int
	threshold float64
	logger    *zap.Logger
}

// NewMatcher constructs a matcher. The matched flag uses the same strict
// threshold convention as duplicate detection.
func NewMatcher(index search.Index, topK int, threshold float64, logger *zap.Logger) *Matcher {
	if topK <= 0 {
		topK = 3
	}
	return &Matcher{index: index, topK: topK, threshold: threshold, logger: logger}
}

// Retrieve returns relevant runbooks, highest similarity first, with a flag
// indicating whether the top result strictly exceeds the match threshold.
// An empty corpus or empty result is a valid outcome: no runbooks, no match.
func (m *Matcher) Retrieve(ctx context.Context, incidentText string) ([]Entry, bool, error) {
	matches, err := m.index.Search(ctx, incidentText, search.DocumentTypeRunbook, m.topK)
	if err != nil {
		return nil, false, err
	}

	entries := make([]Entry, 0, len(matches))
	for _, match := range matches {
		entries = append(entries, Entry{
			Title:      match.MetaString(search.MetaTitle),
			Text:       match.MetaString(search.MetaText),
			Tags:       match.MetaStrings(search.MetaTags),
			Similarity: match.Score,
		})
	}

	matched := len(entries) > 0 && entries[0].Similarity > m.threshold
	m.logger.Debug("runbook retrieval complete",
		zap.Int("found", len(entries)), zap.Bool("matched", matched))
	return entries, matched, nil
}
