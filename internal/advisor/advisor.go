package advisor

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/ssantosh21/incident-iq/internal/classifier"
	"github.com/ssantosh21/incident-iq/internal/genai"
	"github.com/ssantosh21/incident-iq/internal/runbook"
)

// similarIncidentLimit caps how many prior incidents go into the prompt.
const similarIncidentLimit = 2

// Advisor turns an incident plus retrieved context into a remediation
// recommendation via the generative-text capability.
type Advisor struct {
	generator genai.Generator
	logger    *zap.Logger
}

// New constructs an advisor.
func New(generator genai.Generator, logger *zap.Logger) *Advisor {
	return &Advisor{generator: generator, logger: logger}
}

// Recommend builds the remediation prompt and returns the generated text.
func (a *Advisor) Recommend(ctx context.Context, incidentText string, similar []classifier.SimilarIncident, runbooks []runbook.Entry) (string, error) {
	prompt := buildPrompt(incidentText, similar, runbooks)

	recommendation, err := a.generator.Complete(ctx, prompt)
	if err != nil {
		return "", err
	}
	a.logger.Debug("recommendation generated", zap.Int("length", len(recommendation)))
	return recommendation, nil
}

func buildPrompt(incidentText string, similar []classifier.SimilarIncident, runbooks []runbook.Entry) string {
	runbookParts := make([]string, 0, len(runbooks))
	for _, rb := range runbooks {
		runbookParts = append(runbookParts, fmt.Sprintf("Runbook: %s\n%s", rb.Title, rb.Text))
	}

	if len(similar) > similarIncidentLimit {
		similar = similar[:similarIncidentLimit]
	}
	similarParts := make([]string, 0, len(similar))
	for _, inc := range similar {
		similarParts = append(similarParts, fmt.Sprintf("- %s (similarity: %.2f)", inc.Text, inc.Similarity))
	}

	return fmt.Sprintf(`You are an incident response expert. Analyze this incident and recommend actions.

Current Incident:
%s

Similar Past Incidents:
%s

Relevant Runbooks:
%s

Provide:
1. Root cause analysis (1-2 sentences)
2. Immediate actions (2-3 bullet points)
3. Long-term prevention (1-2 bullet points)

Be concise and actionable.`,
		incidentText,
		strings.Join(similarParts, "\n"),
		strings.Join(runbookParts, "\n\n"))
}
