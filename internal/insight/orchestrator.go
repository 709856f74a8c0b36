package insight

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"netsight/internal/netprobe"
)

const (
	defaultAnalysisRetries = 1
	defaultAnalysisDelay   = time.Second
	maxRecommendations     = 10
	maxCriticalIssues      = 3
)

// Orchestrator fans probe results out to the specialized analyzers and
// merges their recommendations. Analyzers that fail contribute nothing;
// only when every analyzer fails does the rule-based FallbackRecommender
// take over, marking the set degraded. Either way the returned set is
// never empty.
type Orchestrator struct {
	gen        Generator
	analyzers  []Analyzer
	fallback   FallbackRecommender
	maxRetries int
	retryDelay time.Duration
	sleep      func(time.Duration)
}

type Option func(*Orchestrator)

func WithAnalyzers(analyzers []Analyzer) Option {
	return func(o *Orchestrator) { o.analyzers = analyzers }
}

func WithRetries(maxRetries int, delay time.Duration) Option {
	return func(o *Orchestrator) {
		o.maxRetries = maxRetries
		o.retryDelay = delay
	}
}

func NewOrchestrator(gen Generator, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		gen:        gen,
		analyzers:  DefaultAnalyzers(),
		maxRetries: defaultAnalysisRetries,
		retryDelay: defaultAnalysisDelay,
		sleep:      time.Sleep,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Analyze runs every analyzer against the probe results concurrently and
// merges the successful reports into a ranked recommendation set. Analyzer
// failures never propagate as errors; total failure degrades to the
// deterministic fallback.
func (o *Orchestrator) Analyze(ctx context.Context, results *netprobe.ResultSet) *RecommendationSet {
	reports := make([]*Report, len(o.analyzers))

	// Once one analyzer hits a provider quota rejection the rest skip the
	// model entirely; retrying a shared exhausted quota cannot succeed.
	var quotaSeen atomic.Bool

	group, groupCtx := errgroup.WithContext(ctx)
	for i, analyzer := range o.analyzers {
		group.Go(func() error {
			reports[i] = o.runAnalyzer(groupCtx, analyzer, results, &quotaSeen)
			return nil
		})
	}
	_ = group.Wait()

	merged := make([]Recommendation, 0, 8)
	succeeded := 0
	for _, report := range reports {
		if report == nil {
			continue
		}
		succeeded++
		merged = append(merged, report.Recommendations...)
	}

	status := AIStatusCompleted
	if succeeded == 0 {
		status = AIStatusDegraded
		merged = o.fallback.Generate(results)
	}

	SortRecommendations(merged)
	if len(merged) > maxRecommendations {
		merged = merged[:maxRecommendations]
	}

	summary := summarize(merged)
	issues := criticalIssues(merged)
	if succeeded > 0 {
		summary, issues = o.synthesize(ctx, merged)
	}

	set := &RecommendationSet{
		GeneratedAt:     time.Now().UTC().Format(time.RFC3339),
		AIStatus:        status,
		Summary:         summary,
		CriticalIssues:  issues,
		Recommendations: merged,
	}
	if succeeded > 0 {
		set.ModelUsed = o.gen.Model()
	}
	slog.Info("analysis complete",
		"ai_status", set.AIStatus,
		"recommendations", len(set.Recommendations),
		"analyzers_succeeded", succeeded)
	return set
}

// runAnalyzer returns the analyzer's parsed report, or nil when the
// analyzer cannot run or exhausted its retry budget.
func (o *Orchestrator) runAnalyzer(ctx context.Context, analyzer Analyzer, results *netprobe.ResultSet, quotaSeen *atomic.Bool) *Report {
	agent := analyzer.Agent()

	var data *netprobe.Data
	if out, ok := results.Outcome(analyzer.Kind()); ok && out.Status == netprobe.StatusSucceeded {
		data = out.Data
	}
	prompt, ok := analyzer.Prompt(data)
	if !ok {
		slog.Debug("analyzer has no usable probe data", "agent", agent)
		return nil
	}

	for attempt := 1; attempt <= o.maxRetries+1; attempt++ {
		if quotaSeen.Load() {
			return nil
		}
		report, err := o.generateReport(ctx, agent, prompt)
		if err == nil {
			return report
		}
		if IsQuotaError(err) {
			quotaSeen.Store(true)
			slog.Warn("model quota exhausted, skipping analyzer retries", "agent", agent)
			return nil
		}
		slog.Warn("analyzer attempt failed", "agent", agent, "attempt", attempt, "error", err)
		if attempt <= o.maxRetries {
			o.sleep(o.retryDelay)
		}
	}
	return nil
}

func (o *Orchestrator) generateReport(ctx context.Context, agent Agent, prompt string) (*Report, error) {
	raw, err := o.gen.GenerateJSON(ctx, prompt)
	if err != nil {
		return nil, err
	}
	var report Report
	if err := json.Unmarshal(raw, &report); err != nil {
		return nil, fmt.Errorf("decode %s report: %w", agent, err)
	}
	if len(report.Recommendations) == 0 {
		return nil, fmt.Errorf("%s report has no recommendations", agent)
	}
	for i := range report.Recommendations {
		report.Recommendations[i].Agent = agent
		if severityRank(report.Recommendations[i].Severity) == 2 {
			report.Recommendations[i].Severity = SeverityInfo
		}
		report.Recommendations[i].Confidence = clampConfidence(report.Recommendations[i].Confidence)
	}
	return &report, nil
}

// clampConfidence bounds model-supplied confidence to [0, 1]. The model is
// asked for that range but occasionally returns percentages or negatives.
func clampConfidence(value float64) float64 {
	if value < 0 {
		return 0
	}
	if value > 1 {
		return 1
	}
	return value
}

func summarize(recs []Recommendation) string {
	if len(recs) == 0 {
		return "Network analysis complete. No significant issues detected."
	}
	critical, warning := 0, 0
	for _, rec := range recs {
		switch rec.Severity {
		case SeverityCritical:
			critical++
		case SeverityWarning:
			warning++
		}
	}
	switch {
	case critical > 0:
		return fmt.Sprintf("Network has %d critical issue(s) requiring immediate attention.", critical)
	case warning > 0:
		return fmt.Sprintf("Network is functional but has %d area(s) for improvement.", warning)
	default:
		return "Network performance is good. Minor optimizations available."
	}
}

func criticalIssues(recs []Recommendation) []string {
	issues := []string{}
	for _, rec := range recs {
		if rec.Severity == SeverityCritical {
			issues = append(issues, rec.Text)
		}
		if len(issues) == maxCriticalIssues {
			break
		}
	}
	return issues
}
