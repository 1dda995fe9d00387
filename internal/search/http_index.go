package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ssantosh21/incident-iq/internal/config"
	apperrors "github.com/ssantosh21/incident-iq/pkg/util/errorutil"
)

// HTTPIndex talks to the similarity-search service over its JSON API. The
// service owns embedding; this client only ships text and metadata.
type HTTPIndex struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	indexName  string
}

// NewHTTPIndex builds a client from configuration.
func NewHTTPIndex(cfg config.SearchConfig) *HTTPIndex {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &HTTPIndex{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		indexName:  cfg.IndexName,
	}
}

type queryRequest struct {
	Text string       `json:"text"`
	Type DocumentType `json:"type"`
	TopK int          `json:"top_k"`
}

type queryResponse struct {
	Matches []Match `json:"matches"`
}

// Search returns the top-K nearest neighbors for the query text, restricted
// to the given document type, highest score first.
func (idx *HTTPIndex) Search(ctx context.Context, query string, docType DocumentType, topK int) ([]Match, error) {
	endpoint := fmt.Sprintf("%s/indexes/%s/query", idx.baseURL, idx.indexName)
	var resp queryResponse
	if err := idx.post(ctx, endpoint, queryRequest{Text: query, Type: docType, TopK: topK}, &resp); err != nil {
		return nil, apperrors.NewUpstreamUnavailable("search", err)
	}
	return resp.Matches, nil
}

// Upsert writes a document into the index.
func (idx *HTTPIndex) Upsert(ctx context.Context, doc Document) error {
	endpoint := fmt.Sprintf("%s/indexes/%s/upsert", idx.baseURL, idx.indexName)
	if err := idx.post(ctx, endpoint, doc, nil); err != nil {
		return apperrors.NewUpstreamUnavailable("search", err)
	}
	return nil
}

func (idx *HTTPIndex) post(ctx context.Context, endpoint string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if idx.apiKey != "" {
		req.Header.Set("Api-Key", idx.apiKey)
	}

	resp, err := idx.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("search service returned %d: %s", resp.StatusCode, snippet)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
