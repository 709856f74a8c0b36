package insight

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
)

const synthesisPrompt = `You are a network health report writer. Given the ranked
recommendations below, produce a one-sentence overall summary of the network's
health and list the most urgent issues.

Recommendations:
%s

Respond with JSON in this exact format:
{
  "summary": "one sentence",
  "critical_issues": ["issue 1", "issue 2"]
}
Respond with valid JSON only.`

type synthesis struct {
	Summary        string   `json:"summary"`
	CriticalIssues []string `json:"critical_issues"`
}

// synthesize asks the model to condense the merged recommendations into a
// summary and critical-issue list. Any failure degrades to the deterministic
// counts-based summary; this step never fails the analysis.
func (o *Orchestrator) synthesize(ctx context.Context, recs []Recommendation) (string, []string) {
	summary := summarize(recs)
	issues := criticalIssues(recs)
	if len(recs) == 0 {
		return summary, issues
	}

	var lines strings.Builder
	for _, rec := range recs {
		fmt.Fprintf(&lines, "- [%s] (%.2f) %s\n", rec.Severity, rec.Confidence, rec.Text)
	}
	raw, err := o.gen.GenerateJSON(ctx, fmt.Sprintf(synthesisPrompt, lines.String()))
	if err != nil {
		slog.Warn("synthesis failed, using deterministic summary", "error", err)
		return summary, issues
	}
	var out synthesis
	if err := json.Unmarshal(raw, &out); err != nil || strings.TrimSpace(out.Summary) == "" {
		slog.Warn("synthesis returned unusable output, using deterministic summary")
		return summary, issues
	}
	if len(out.CriticalIssues) > maxCriticalIssues {
		out.CriticalIssues = out.CriticalIssues[:maxCriticalIssues]
	}
	if out.CriticalIssues == nil {
		out.CriticalIssues = []string{}
	}
	return strings.TrimSpace(out.Summary), out.CriticalIssues
}
