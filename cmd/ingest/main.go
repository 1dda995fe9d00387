package main

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ssantosh21/incident-iq/internal/config"
	"github.com/ssantosh21/incident-iq/internal/observability"
	"github.com/ssantosh21/incident-iq/internal/runbook"
	"github.com/ssantosh21/incident-iq/internal/search"
)

// seedIncident is a pre-resolved incident loaded into the index so fresh
// deployments have regression history to match against.
type seedIncident struct {
	Text         string
	Resolution   string
	RunbooksUsed []string
}

var sampleIncidents = []seedIncident{
	{
		Text:         "Lambda function timeout after 30 seconds. Function: process-orders. Error: Task timed out after 30.00 seconds",
		Resolution:   "Increased Lambda timeout from 30s to 60s and optimized database query. Issue resolved.",
		RunbooksUsed: []string{"Lambda Timeout"},
	},
	{
		Text:         "DynamoDB throttling exception. Table: orders. ProvisionedThroughputExceededException",
		Resolution:   "Enabled auto-scaling on orders table. Set min RCU=5, max RCU=100. Throttling stopped.",
		RunbooksUsed: []string{"DynamoDB Throttling"},
	},
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	index := search.NewHTTPIndex(cfg.Search)

	logger.Info("ingesting sample resolved incidents", zap.Int("count", len(sampleIncidents)))
	for _, incident := range sampleIncidents {
		id, err := ingestResolvedIncident(ctx, index, incident)
		if err != nil {
			logger.Fatal("failed to ingest incident", zap.Error(err))
		}
		logger.Info("ingested resolved incident", zap.String("id", id))
	}

	logger.Info("ingesting runbooks", zap.Int("count", len(runbook.SampleRunbooks)))
	for _, seed := range runbook.SampleRunbooks {
		chunks, err := runbook.Ingest(ctx, index, seed)
		if err != nil {
			logger.Fatal("failed to ingest runbook", zap.String("title", seed.Title), zap.Error(err))
		}
		logger.Info("ingested runbook", zap.String("title", seed.Title), zap.Int("chunks", chunks))
	}

	logger.Info("ingestion complete")
}

func ingestResolvedIncident(ctx context.Context, index search.Index, incident seedIncident) (string, error) {
	now := time.Now().UTC().Format(time.RFC3339)
	id := fmt.Sprintf("incident_%s", strings.ReplaceAll(uuid.NewString(), "-", "")[:8])

	doc := search.Document{
		ID:   id,
		Type: search.DocumentTypeIncident,
		Text: incident.Text,
		Metadata: map[string]any{
			search.MetaText:      incident.Text,
			search.MetaStatus:    "resolved",
			"resolution":         incident.Resolution,
			"runbooks_used":      incident.RunbooksUsed,
			search.MetaCreatedAt: now,
			"resolved_at":        now,
		},
	}
	if err := index.Upsert(ctx, doc); err != nil {
		return "", err
	}
	return id, nil
}
