package netprobe

import (
	"context"
	"errors"
	"math/rand"
	"strings"
	"sync"
	"testing"
	"time"
)

func testConfig(enabled ...Kind) RunConfig {
	cfg := DefaultRunConfig()
	cfg.Enabled = enabled
	cfg.RetryDelay = time.Millisecond
	return cfg
}

func TestRunAllRecordsSkippedWithoutInvocation(t *testing.T) {
	invoked := false
	probes := []Probe{
		fakeProbe{kind: KindLoss, run: func(context.Context, RunConfig) (*Data, error) {
			return lossPayload(1), nil
		}},
		fakeProbe{kind: KindThroughput, run: func(context.Context, RunConfig) (*Data, error) {
			invoked = true
			return nil, errors.New("should not run")
		}},
	}
	o := NewOrchestrator(WithProbes(probes), WithExecutor(newTestExecutor(0)))

	set := o.RunAll(context.Background(), testConfig(KindLoss))
	if invoked {
		t.Fatalf("disabled probe was invoked")
	}
	out, ok := set.Outcome(KindThroughput)
	if !ok || out.Status != StatusSkipped {
		t.Fatalf("expected skipped outcome for throughput, got %+v", out)
	}
	if out.Error != "" || out.Data != nil {
		t.Fatalf("skipped outcome must carry no data or error, got %+v", out)
	}
	if set.Overall != OverallCompleted {
		t.Fatalf("expected completed, got %s", set.Overall)
	}
}

func TestRunAllDowngradesInvalidData(t *testing.T) {
	probes := []Probe{
		// Probe "succeeds" but hands back a zeroed struct.
		fakeProbe{kind: KindLoss, run: func(context.Context, RunConfig) (*Data, error) {
			return &Data{Loss: &LossData{}}, nil
		}},
	}
	o := NewOrchestrator(WithProbes(probes), WithExecutor(newTestExecutor(0)))

	set := o.RunAll(context.Background(), testConfig(KindLoss))
	out, _ := set.Outcome(KindLoss)
	if out.Status != StatusFailed {
		t.Fatalf("expected validator downgrade to failed, got %s", out.Status)
	}
	if out.Data != nil {
		t.Fatalf("downgraded outcome must not keep invalid data")
	}
	if out.Error == "" {
		t.Fatalf("downgraded outcome must carry a validator message")
	}
	if set.Overall != OverallFailed {
		t.Fatalf("expected failed overall, got %s", set.Overall)
	}
}

func TestRunAllFailureDoesNotAffectSiblings(t *testing.T) {
	probes := []Probe{
		fakeProbe{kind: KindLatency, run: func(context.Context, RunConfig) (*Data, error) {
			return nil, errors.New("timed out")
		}},
		fakeProbe{kind: KindDNS, run: func(ctx context.Context, _ RunConfig) (*Data, error) {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			return &Data{DNS: &DNSData{Servers: []ResolverStats{{
				Server: "8.8.8.8", AvgResolutionMS: 12, QueriesTested: 5, SuccessfulQueries: 5, SuccessRate: 100,
			}}}}, nil
		}},
	}
	o := NewOrchestrator(WithProbes(probes), WithExecutor(newTestExecutor(2)))

	set := o.RunAll(context.Background(), testConfig(KindLatency, KindDNS))
	if set.Overall != OverallPartial {
		t.Fatalf("expected partial, got %s", set.Overall)
	}
	latency, _ := set.Outcome(KindLatency)
	if latency.Status != StatusFailed || latency.Attempts != 3 {
		t.Fatalf("expected latency failed after 3 attempts, got %+v", latency)
	}
	dnsOut, _ := set.Outcome(KindDNS)
	if dnsOut.Status != StatusSucceeded {
		t.Fatalf("expected dns succeeded, got %+v", dnsOut)
	}
}

func TestRunAllReportsUnknownKinds(t *testing.T) {
	probes := []Probe{
		fakeProbe{kind: KindLatency, run: func(context.Context, RunConfig) (*Data, error) {
			return &Data{Latency: &LatencyData{Hosts: []HostLatency{{
				Host: "8.8.8.8", PacketsSent: 10, PacketsReceived: 10, AvgMS: 12,
			}}}}, nil
		}},
	}
	var mu sync.Mutex
	var reported []string
	o := NewOrchestrator(
		WithProbes(probes),
		WithExecutor(newTestExecutor(0)),
		WithEventSink(func(e Event) {
			if e.Stage != "probe_result" {
				return
			}
			mu.Lock()
			reported = append(reported, e.Message)
			mu.Unlock()
		}),
	)

	set := o.RunAll(context.Background(), testConfig(KindLatency, Kind("bandwidth")))
	out, ok := set.Outcome(Kind("bandwidth"))
	if !ok {
		t.Fatalf("unknown kind missing from result set")
	}
	if out.Status != StatusFailed || out.Error == "" {
		t.Fatalf("expected failed outcome with error for unknown kind, got %+v", out)
	}
	if set.Overall != OverallPartial {
		t.Fatalf("expected partial overall, got %s", set.Overall)
	}
	mu.Lock()
	defer mu.Unlock()
	found := false
	for _, msg := range reported {
		if strings.Contains(msg, "bandwidth") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a result event for the unknown kind, got %v", reported)
	}
}

func TestRunAllEmitsEvents(t *testing.T) {
	probes := []Probe{
		fakeProbe{kind: KindLoss, run: func(context.Context, RunConfig) (*Data, error) {
			return lossPayload(0), nil
		}},
	}
	var mu sync.Mutex
	var stages []string
	o := NewOrchestrator(
		WithProbes(probes),
		WithExecutor(newTestExecutor(0)),
		WithEventSink(func(e Event) {
			mu.Lock()
			stages = append(stages, e.Stage)
			mu.Unlock()
		}),
	)

	o.RunAll(context.Background(), testConfig(KindLoss))
	mu.Lock()
	defer mu.Unlock()
	if len(stages) != 2 || stages[0] != "probe_start" || stages[1] != "probe_result" {
		t.Fatalf("expected probe_start then probe_result, got %v", stages)
	}
}

// Randomized status vectors must always satisfy the overall-status rule:
// completed iff no enabled probe failed, failed iff none succeeded,
// partial otherwise.
func TestDeriveOverallProperty(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	statuses := []Status{StatusSucceeded, StatusFailed, StatusSkipped}
	for i := 0; i < 500; i++ {
		outcomes := map[Kind]Outcome{}
		succeeded, failed := 0, 0
		for _, kind := range AllKinds() {
			status := statuses[rng.Intn(len(statuses))]
			outcomes[kind] = Outcome{Kind: kind, Status: status}
			switch status {
			case StatusSucceeded:
				succeeded++
			case StatusFailed:
				failed++
			}
		}
		got := DeriveOverall(outcomes)
		var want Overall
		switch {
		case failed == 0:
			want = OverallCompleted
		case succeeded == 0:
			want = OverallFailed
		default:
			want = OverallPartial
		}
		if got != want {
			t.Fatalf("case %d: succeeded=%d failed=%d: got %s want %s", i, succeeded, failed, got, want)
		}
	}
}
