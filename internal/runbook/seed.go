package runbook

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/ssantosh21/incident-iq/internal/search"
)

// Seed is one runbook document to ingest.
type Seed struct {
	Title   string
	Content string
	Tags    []string
}

// SampleRunbooks is the starter corpus for common incidents.
var SampleRunbooks = []Seed{
	{
		Title: "Lambda Timeout",
		Content: `**Symptoms:** Task timed out after 30s, Lambda execution exceeded timeout

**Quick Fix:**
1. Increase Lambda timeout: Update function configuration
2. Check X-Ray traces for slow operations
3. If database query slow, optimize or add caching
4. Consider increasing memory (more memory = more CPU)

**Prevention:** Set timeout to P95 execution time + 50% buffer`,
		Tags: []string{"lambda", "timeout", "performance"},
	},
	{
		Title: "DynamoDB Throttling",
		Content: `**Symptoms:** ProvisionedThroughputExceededException, requests being throttled

**Quick Fix:**
1. Enable auto-scaling if not already enabled
2. Temporarily increase RCU/WCU capacity
3. Check for hot partition keys
4. Implement exponential backoff in application

**Prevention:** Use on-demand billing or set up auto-scaling with appropriate targets`,
		Tags: []string{"dynamodb", "throttling", "capacity"},
	},
	{
		Title: "API Gateway 502 Error",
		Content: `**Symptoms:** 502 Bad Gateway, upstream Lambda error or timeout

**Quick Fix:**
1. Check Lambda function logs for errors
2. Verify Lambda has not timed out
3. Check Lambda execution role permissions
4. Verify VPC configuration if Lambda is in VPC

**Prevention:** Set appropriate Lambda timeouts, implement proper error handling`,
		Tags: []string{"api-gateway", "502", "lambda"},
	},
	{
		Title: "Payment Processing Failure",
		Content: `**Symptoms:** Payment failed, Stripe API error, transaction stuck

**Quick Fix:**
1. Check Stripe dashboard for error details
2. Verify API keys are correct and not expired
3. Implement retry logic with exponential backoff
4. Check webhook delivery status

**Prevention:** Implement idempotency keys, proper error handling, and monitoring`,
		Tags: []string{"payment", "stripe", "transaction"},
	},
	{
		Title: "Email Delivery Failure",
		Content: `**Symptoms:** Emails not being delivered, SES bounce/complaint

**Quick Fix:**
1. Check SES sending statistics and reputation
2. Verify email addresses are valid
3. Check for bounces and remove bad addresses
4. Verify SES is not in sandbox mode

**Prevention:** Implement email validation, handle bounces, monitor reputation metrics`,
		Tags: []string{"email", "ses", "delivery"},
	},
}

const (
	chunkSize    = 500
	chunkOverlap = 50
)

// ChunkText splits text into fixed-size chunks with overlap so long runbooks
// stay searchable piece by piece.
func ChunkText(text string) []string {
	var chunks []string
	start := 0
	for start < len(text) {
		end := start + chunkSize
		if end > len(text) {
			end = len(text)
		}
		chunk := text[start:end]
		if strings.TrimSpace(chunk) != "" {
			chunks = append(chunks, chunk)
		}
		if end == len(text) {
			break
		}
		start = end - chunkOverlap
	}
	return chunks
}

// Ingest chunks a runbook and upserts each chunk into the index. Returns the
// number of chunks stored.
func Ingest(ctx context.Context, index search.Index, seed Seed) (int, error) {
	chunks := ChunkText(seed.Content)
	base := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	tags := make([]any, 0, len(seed.Tags))
	for _, tag := range seed.Tags {
		tags = append(tags, tag)
	}

	for i, chunk := range chunks {
		doc := search.Document{
			ID:   fmt.Sprintf("runbook_%s_%d", base, i),
			Type: search.DocumentTypeRunbook,
			Text: chunk,
			Metadata: map[string]any{
				search.MetaTitle: seed.Title,
				search.MetaText:  chunk,
				search.MetaTags:  tags,
				"chunk_index":    i,
				"total_chunks":   len(chunks),
			},
		}
		if err := index.Upsert(ctx, doc); err != nil {
			return i, err
		}
	}
	return len(chunks), nil
}
