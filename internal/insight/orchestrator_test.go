package insight

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"netsight/internal/netprobe"
)

type stubGenerator struct {
	calls    atomic.Int32
	generate func(prompt string) (json.RawMessage, error)
}

func (s *stubGenerator) GenerateJSON(_ context.Context, prompt string) (json.RawMessage, error) {
	s.calls.Add(1)
	return s.generate(prompt)
}

func (s *stubGenerator) Model() string { return "stub-model" }

func newTestOrchestrator(gen Generator, opts ...Option) *Orchestrator {
	o := NewOrchestrator(gen, opts...)
	o.sleep = func(time.Duration) {}
	return o
}

func reportJSON(t *testing.T, confidence float64, severity Severity) json.RawMessage {
	t.Helper()
	report := Report{Recommendations: []Recommendation{{
		Text:       fmt.Sprintf("rec %s %g", severity, confidence),
		Confidence: confidence,
		Severity:   severity,
	}}}
	raw, err := json.Marshal(report)
	if err != nil {
		t.Fatalf("marshal report: %v", err)
	}
	return raw
}

// agentFor keys a stubbed response off the distinctive phrase each
// analyzer prompt carries.
func agentFor(prompt string) Agent {
	switch {
	case strings.Contains(prompt, "ping test results"):
		return AgentLatency
	case strings.Contains(prompt, "packet loss test results"):
		return AgentLoss
	case strings.Contains(prompt, "speed test results"):
		return AgentBandwidth
	case strings.Contains(prompt, "DNS test results"):
		return AgentDNS
	default:
		return ""
	}
}

func healthyResults() *netprobe.ResultSet {
	outcomes := map[netprobe.Kind]netprobe.Outcome{
		netprobe.KindLatency: {Kind: netprobe.KindLatency, Status: netprobe.StatusSucceeded, Attempts: 1, Data: &netprobe.Data{
			Latency: &netprobe.LatencyData{Hosts: []netprobe.HostLatency{{Host: "8.8.8.8", PacketsSent: 10, PacketsReceived: 10, MinMS: 10, MaxMS: 20, AvgMS: 14, StddevMS: 2}}},
		}},
		netprobe.KindJitter: {Kind: netprobe.KindJitter, Status: netprobe.StatusSucceeded, Attempts: 1, Data: &netprobe.Data{
			Jitter: &netprobe.JitterData{Host: "8.8.8.8", AvgJitterMS: 1.1, MaxJitterMS: 3.2, Samples: 20, SuccessfulSamples: 20},
		}},
		netprobe.KindLoss: {Kind: netprobe.KindLoss, Status: netprobe.StatusSucceeded, Attempts: 1, Data: &netprobe.Data{
			Loss: &netprobe.LossData{Host: "8.8.8.8", PacketsSent: 100, PacketsReceived: 100},
		}},
		netprobe.KindThroughput: {Kind: netprobe.KindThroughput, Status: netprobe.StatusSucceeded, Attempts: 1, Data: &netprobe.Data{
			Throughput: &netprobe.ThroughputData{DownloadMbps: 120, UploadMbps: 25, PingMS: 12},
		}},
		netprobe.KindDNS: {Kind: netprobe.KindDNS, Status: netprobe.StatusSucceeded, Attempts: 1, Data: &netprobe.Data{
			DNS: &netprobe.DNSData{Servers: []netprobe.ResolverStats{{Server: "8.8.8.8", AvgResolutionMS: 12, MinResolutionMS: 9, MaxResolutionMS: 18, QueriesTested: 5, SuccessfulQueries: 5, SuccessRate: 100}}},
		}},
	}
	return &netprobe.ResultSet{
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
		Overall:     netprobe.DeriveOverall(outcomes),
		Outcomes:    outcomes,
	}
}

func TestAnalyzeAllAnalyzersFailDegrades(t *testing.T) {
	gen := &stubGenerator{generate: func(string) (json.RawMessage, error) {
		return nil, errors.New("model unavailable")
	}}

	set := newTestOrchestrator(gen).Analyze(context.Background(), healthyResults())
	if set.AIStatus != AIStatusDegraded {
		t.Fatalf("expected degraded, got %s", set.AIStatus)
	}
	if len(set.Recommendations) == 0 {
		t.Fatalf("recommendation set must never be empty")
	}
	for _, rec := range set.Recommendations {
		if rec.Agent != AgentFallback {
			t.Fatalf("expected every recommendation from fallback, got %q", rec.Agent)
		}
	}
	if set.ModelUsed != "" {
		t.Fatalf("degraded set must not claim a model, got %q", set.ModelUsed)
	}
}

func TestAnalyzePartialSuccessIsCompleted(t *testing.T) {
	gen := &stubGenerator{generate: func(prompt string) (json.RawMessage, error) {
		switch agentFor(prompt) {
		case AgentLatency:
			return reportJSON(t, 0.9, SeverityWarning), nil
		case AgentDNS:
			return reportJSON(t, 0.6, SeverityInfo), nil
		default:
			return nil, errors.New("model unavailable")
		}
	}}

	set := newTestOrchestrator(gen).Analyze(context.Background(), healthyResults())
	if set.AIStatus != AIStatusCompleted {
		t.Fatalf("partial analyzer failure must still be completed, got %s", set.AIStatus)
	}
	if len(set.Recommendations) != 2 {
		t.Fatalf("expected only the 2 successful analyzers' output, got %d", len(set.Recommendations))
	}
	if set.Recommendations[0].Agent != AgentLatency || set.Recommendations[1].Agent != AgentDNS {
		t.Fatalf("unexpected merge order: %q then %q", set.Recommendations[0].Agent, set.Recommendations[1].Agent)
	}
	if set.ModelUsed != "stub-model" {
		t.Fatalf("expected model recorded, got %q", set.ModelUsed)
	}
}

func TestAnalyzeOrderingContract(t *testing.T) {
	gen := &stubGenerator{generate: func(prompt string) (json.RawMessage, error) {
		switch agentFor(prompt) {
		case AgentLatency:
			return reportJSON(t, 0.9, SeverityWarning), nil
		case AgentLoss:
			return reportJSON(t, 0.6, SeverityInfo), nil
		case AgentBandwidth:
			return reportJSON(t, 0.95, SeverityCritical), nil
		case AgentDNS:
			return reportJSON(t, 0.3, SeverityInfo), nil
		default:
			return nil, fmt.Errorf("unexpected prompt: %s", prompt)
		}
	}}

	set := newTestOrchestrator(gen).Analyze(context.Background(), healthyResults())
	if set.AIStatus != AIStatusCompleted {
		t.Fatalf("expected completed, got %s", set.AIStatus)
	}
	want := []struct {
		severity   Severity
		confidence float64
	}{
		{SeverityCritical, 0.95},
		{SeverityWarning, 0.9},
		{SeverityInfo, 0.6},
		{SeverityInfo, 0.3},
	}
	if len(set.Recommendations) != len(want) {
		t.Fatalf("expected %d recommendations, got %d", len(want), len(set.Recommendations))
	}
	for i, w := range want {
		got := set.Recommendations[i]
		if got.Severity != w.severity || got.Confidence != w.confidence {
			t.Errorf("position %d: got %s/%g, want %s/%g", i, got.Severity, got.Confidence, w.severity, w.confidence)
		}
		if got.Priority != i+1 {
			t.Errorf("position %d: priority %d, want %d", i, got.Priority, i+1)
		}
	}
}

func TestAnalyzeQuotaFastFail(t *testing.T) {
	gen := &stubGenerator{generate: func(string) (json.RawMessage, error) {
		return nil, errors.New("429 quota exceeded for model")
	}}

	o := newTestOrchestrator(gen, WithRetries(3, time.Second))
	set := o.Analyze(context.Background(), healthyResults())
	if set.AIStatus != AIStatusDegraded {
		t.Fatalf("expected degraded, got %s", set.AIStatus)
	}
	// With 4 analyzers and 3 retries a non-quota failure would allow up to
	// 16 calls; quota classification must stop each analyzer after one.
	if calls := gen.calls.Load(); calls > 4 {
		t.Fatalf("quota errors must not be retried, saw %d calls", calls)
	}
}

func TestAnalyzeRetriesTransientErrors(t *testing.T) {
	var latencyCalls atomic.Int32
	gen := &stubGenerator{generate: func(prompt string) (json.RawMessage, error) {
		if agentFor(prompt) != AgentLatency {
			return nil, errors.New("model unavailable")
		}
		if latencyCalls.Add(1) == 1 {
			return nil, errors.New("transient network error")
		}
		return reportJSON(t, 0.8, SeverityInfo), nil
	}}

	set := newTestOrchestrator(gen).Analyze(context.Background(), healthyResults())
	if set.AIStatus != AIStatusCompleted {
		t.Fatalf("expected completed after retry, got %s", set.AIStatus)
	}
	if latencyCalls.Load() != 2 {
		t.Fatalf("expected 2 latency attempts, got %d", latencyCalls.Load())
	}
	if len(set.Recommendations) != 1 || set.Recommendations[0].Agent != AgentLatency {
		t.Fatalf("expected single latency recommendation, got %+v", set.Recommendations)
	}
}

func TestAnalyzeEmptyResultSetStillRecommends(t *testing.T) {
	gen := &stubGenerator{generate: func(string) (json.RawMessage, error) {
		return nil, errors.New("model unavailable")
	}}
	results := &netprobe.ResultSet{
		Overall:  netprobe.OverallFailed,
		Outcomes: map[netprobe.Kind]netprobe.Outcome{},
	}

	set := newTestOrchestrator(gen).Analyze(context.Background(), results)
	if gen.calls.Load() != 0 {
		t.Fatalf("no analyzer should call the model without data, saw %d calls", gen.calls.Load())
	}
	if set.AIStatus != AIStatusDegraded {
		t.Fatalf("expected degraded, got %s", set.AIStatus)
	}
	if len(set.Recommendations) != 1 || set.Recommendations[0].Severity != SeverityInfo {
		t.Fatalf("expected the single generic info recommendation, got %+v", set.Recommendations)
	}
}

func TestAnalyzeSynthesisSummary(t *testing.T) {
	gen := &stubGenerator{generate: func(prompt string) (json.RawMessage, error) {
		if strings.Contains(prompt, "health report writer") {
			return json.RawMessage(`{"summary": "Latency is elevated on one host.", "critical_issues": ["High latency to 8.8.8.8"]}`), nil
		}
		if agentFor(prompt) == AgentLatency {
			return reportJSON(t, 0.9, SeverityWarning), nil
		}
		return nil, errors.New("model unavailable")
	}}

	set := newTestOrchestrator(gen).Analyze(context.Background(), healthyResults())
	if set.AIStatus != AIStatusCompleted {
		t.Fatalf("expected completed, got %s", set.AIStatus)
	}
	if set.Summary != "Latency is elevated on one host." {
		t.Fatalf("expected synthesized summary, got %q", set.Summary)
	}
	if len(set.CriticalIssues) != 1 {
		t.Fatalf("expected synthesized critical issues, got %+v", set.CriticalIssues)
	}
}

func TestAnalyzeSynthesisFailureDegradesToCounts(t *testing.T) {
	gen := &stubGenerator{generate: func(prompt string) (json.RawMessage, error) {
		if strings.Contains(prompt, "health report writer") {
			return nil, errors.New("model unavailable")
		}
		if agentFor(prompt) == AgentBandwidth {
			return reportJSON(t, 0.95, SeverityCritical), nil
		}
		return nil, errors.New("model unavailable")
	}}

	set := newTestOrchestrator(gen).Analyze(context.Background(), healthyResults())
	if set.AIStatus != AIStatusCompleted {
		t.Fatalf("expected completed, got %s", set.AIStatus)
	}
	if set.Summary != "Network has 1 critical issue(s) requiring immediate attention." {
		t.Fatalf("expected counts-based summary, got %q", set.Summary)
	}
	if len(set.CriticalIssues) != 1 {
		t.Fatalf("expected critical issue from counts path, got %+v", set.CriticalIssues)
	}
}

func TestAnalyzeClampsConfidence(t *testing.T) {
	gen := &stubGenerator{generate: func(prompt string) (json.RawMessage, error) {
		switch agentFor(prompt) {
		case AgentLatency:
			return reportJSON(t, 1.7, SeverityWarning), nil
		case AgentDNS:
			return reportJSON(t, -0.2, SeverityInfo), nil
		default:
			return nil, errors.New("model unavailable")
		}
	}}

	set := newTestOrchestrator(gen).Analyze(context.Background(), healthyResults())
	if set.AIStatus != AIStatusCompleted {
		t.Fatalf("expected completed, got %s", set.AIStatus)
	}
	if len(set.Recommendations) != 2 {
		t.Fatalf("expected 2 recommendations, got %d", len(set.Recommendations))
	}
	for _, rec := range set.Recommendations {
		if rec.Confidence < 0 || rec.Confidence > 1 {
			t.Errorf("confidence %g for %s out of [0, 1]", rec.Confidence, rec.Agent)
		}
	}
	if set.Recommendations[0].Agent != AgentLatency || set.Recommendations[0].Confidence != 1 {
		t.Fatalf("expected latency confidence clamped to 1, got %+v", set.Recommendations[0])
	}
	if set.Recommendations[1].Agent != AgentDNS || set.Recommendations[1].Confidence != 0 {
		t.Fatalf("expected dns confidence clamped to 0, got %+v", set.Recommendations[1])
	}
}

func TestAnalyzeMalformedModelJSON(t *testing.T) {
	gen := &stubGenerator{generate: func(prompt string) (json.RawMessage, error) {
		if agentFor(prompt) == AgentLoss {
			return reportJSON(t, 0.85, SeverityInfo), nil
		}
		return json.RawMessage(`{"recommendations": "not a list"`), nil
	}}

	set := newTestOrchestrator(gen).Analyze(context.Background(), healthyResults())
	if set.AIStatus != AIStatusCompleted {
		t.Fatalf("expected completed, got %s", set.AIStatus)
	}
	if len(set.Recommendations) != 1 || set.Recommendations[0].Agent != AgentLoss {
		t.Fatalf("only the parsable report should survive, got %+v", set.Recommendations)
	}
}
