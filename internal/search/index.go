package search

import "context"

// DocumentType discriminates what kind of record an index entry represents.
type DocumentType string

const (
	DocumentTypeIncident DocumentType = "incident"
	DocumentTypeRunbook  DocumentType = "runbook"
)

// Metadata keys written by this service.
const (
	MetaIncidentID = "incident_id"
	MetaText       = "text"
	MetaService    = "service"
	MetaSeverity   = "severity"
	MetaStatus     = "status"
	MetaTitle      = "title"
	MetaTags       = "tags"
	MetaCreatedAt  = "created_at"
)

// Match is one ranked similarity result. Score is a cosine-like measure in
// [0,1]; higher means more similar. Equal scores carry no defined order.
type Match struct {
	ID       string         `json:"id"`
	Score    float64        `json:"score"`
	Metadata map[string]any `json:"metadata"`
}

// Document is an entry to upsert into the index. Embedding happens on the
// search service side; callers only supply text and metadata.
type Document struct {
	ID       string         `json:"id"`
	Type     DocumentType   `json:"type"`
	Text     string         `json:"text"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Index is the similarity-search capability: ranked nearest neighbors for a
// query, filterable by document type, plus upsert of new entries.
type Index interface {
	Search(ctx context.Context, query string, docType DocumentType, topK int) ([]Match, error)
	Upsert(ctx context.Context, doc Document) error
}

// MetaString reads a string metadata field, returning "" when absent or not
// a string.
func (m Match) MetaString(key string) string {
	if m.Metadata == nil {
		return ""
	}
	val, ok := m.Metadata[key].(string)
	if !ok {
		return ""
	}
	return val
}

// MetaStrings reads a string-list metadata field.
func (m Match) MetaStrings(key string) []string {
	if m.Metadata == nil {
		return nil
	}
	raw, ok := m.Metadata[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
