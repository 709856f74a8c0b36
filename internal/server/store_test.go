package server

import (
	"testing"

	"netsight/internal/insight"
	"netsight/internal/netprobe"
)

func TestMemoryStoreRunLifecycle(t *testing.T) {
	store, err := NewMemoryFileStore("")
	if err != nil {
		t.Fatalf("NewMemoryFileStore error: %v", err)
	}
	meta := RunMeta{
		RunID:       "run_test_1",
		Status:      "queued",
		Source:      "test",
		CreatorType: "admin",
		CreatedAt:   nowRFC3339(),
	}
	if err := store.CreateRun(meta); err != nil {
		t.Fatalf("CreateRun error: %v", err)
	}
	event, err := store.AppendRunEvent(meta.RunID, "queue", "queued", nil)
	if err != nil {
		t.Fatalf("AppendRunEvent error: %v", err)
	}
	if event.Seq != 1 {
		t.Fatalf("expected first seq=1, got %d", event.Seq)
	}
	updated, err := store.UpdateRun(meta.RunID, func(item *RunMeta) {
		item.Status = "running"
	})
	if err != nil {
		t.Fatalf("UpdateRun error: %v", err)
	}
	if updated.Status != "running" {
		t.Fatalf("expected status running, got %s", updated.Status)
	}
}

func TestMemoryStoreMetricsOverview(t *testing.T) {
	store, err := NewMemoryFileStore("")
	if err != nil {
		t.Fatalf("NewMemoryFileStore error: %v", err)
	}
	results := &netprobe.ResultSet{
		Overall: netprobe.OverallCompleted,
		Outcomes: map[netprobe.Kind]netprobe.Outcome{
			netprobe.KindThroughput: {
				Kind:       netprobe.KindThroughput,
				Status:     netprobe.StatusSucceeded,
				DurationMS: 4200,
				Data: &netprobe.Data{
					Throughput: &netprobe.ThroughputData{DownloadMbps: 80, UploadMbps: 20},
				},
			},
		},
	}
	runs := []RunMeta{
		{RunID: "run_a", Status: "completed", CreatedAt: nowRFC3339(), Results: results},
		{RunID: "run_b", Status: "failed", CreatedAt: nowRFC3339()},
		{RunID: "run_c", Status: "partial", CreatedAt: nowRFC3339(),
			Insights: &insight.RecommendationSet{AIStatus: insight.AIStatusDegraded}},
	}
	for _, run := range runs {
		if err := store.CreateRun(run); err != nil {
			t.Fatalf("CreateRun(%s) error: %v", run.RunID, err)
		}
	}
	overview := store.GetMetricsOverview()
	if overview.TotalRuns != 3 {
		t.Fatalf("expected 3 total runs, got %d", overview.TotalRuns)
	}
	if overview.CompletedRuns != 1 || overview.FailedRuns != 1 || overview.PartialRuns != 1 {
		t.Fatalf("unexpected status counts: %+v", overview)
	}
	if overview.DegradedAnalyses != 1 {
		t.Fatalf("expected 1 degraded analysis, got %d", overview.DegradedAnalyses)
	}
	if overview.AverageDownload != 80 {
		t.Fatalf("expected average download 80, got %f", overview.AverageDownload)
	}
}
