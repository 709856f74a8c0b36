package netprobe

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

type fakeProbe struct {
	kind Kind
	run  func(ctx context.Context, cfg RunConfig) (*Data, error)
}

func (p fakeProbe) Kind() Kind { return p.kind }

func (p fakeProbe) Run(ctx context.Context, cfg RunConfig) (*Data, error) {
	return p.run(ctx, cfg)
}

func newTestExecutor(maxRetries int) *Executor {
	executor := NewExecutor(maxRetries, time.Millisecond)
	executor.sleep = func(time.Duration) {}
	return executor
}

func lossPayload(pct float64) *Data {
	return &Data{Loss: &LossData{
		Host:            "8.8.8.8",
		PacketsSent:     100,
		PacketsReceived: 100 - int(pct),
		PacketsLost:     int(pct),
		LossPercentage:  pct,
	}}
}

func TestExecuteSucceedsOnThirdAttempt(t *testing.T) {
	calls := 0
	probe := fakeProbe{kind: KindLoss, run: func(context.Context, RunConfig) (*Data, error) {
		calls++
		if calls < 3 {
			return nil, fmt.Errorf("transient failure %d", calls)
		}
		return lossPayload(0), nil
	}}

	outcome := newTestExecutor(2).Execute(context.Background(), probe, DefaultRunConfig())
	if outcome.Status != StatusSucceeded {
		t.Fatalf("expected succeeded, got %s (%s)", outcome.Status, outcome.Error)
	}
	if outcome.Attempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", outcome.Attempts)
	}
	if outcome.Data == nil || outcome.Data.Loss == nil {
		t.Fatalf("expected loss payload on success")
	}
}

func TestExecuteRecordsLastError(t *testing.T) {
	calls := 0
	probe := fakeProbe{kind: KindLatency, run: func(context.Context, RunConfig) (*Data, error) {
		calls++
		return nil, fmt.Errorf("attempt %d failed", calls)
	}}

	outcome := newTestExecutor(2).Execute(context.Background(), probe, DefaultRunConfig())
	if outcome.Status != StatusFailed {
		t.Fatalf("expected failed, got %s", outcome.Status)
	}
	if outcome.Attempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", outcome.Attempts)
	}
	if outcome.Error != "attempt 3 failed" {
		t.Fatalf("expected last attempt's error, got %q", outcome.Error)
	}
}

func TestExecutePermissionErrorNotRetried(t *testing.T) {
	calls := 0
	probe := fakeProbe{kind: KindLoss, run: func(context.Context, RunConfig) (*Data, error) {
		calls++
		return nil, errors.New("socket: operation not permitted")
	}}

	outcome := newTestExecutor(2).Execute(context.Background(), probe, DefaultRunConfig())
	if outcome.Status != StatusFailed {
		t.Fatalf("expected failed, got %s", outcome.Status)
	}
	if calls != 1 {
		t.Fatalf("expected a single attempt for a permission error, got %d", calls)
	}
}

func TestExecuteConvertsPanicToFailure(t *testing.T) {
	probe := fakeProbe{kind: KindDNS, run: func(context.Context, RunConfig) (*Data, error) {
		panic("boom")
	}}

	outcome := newTestExecutor(0).Execute(context.Background(), probe, DefaultRunConfig())
	if outcome.Status != StatusFailed {
		t.Fatalf("expected failed, got %s", outcome.Status)
	}
	if outcome.Error == "" {
		t.Fatalf("expected panic to surface as an error message")
	}
}

func TestExecuteNilDataIsFailure(t *testing.T) {
	probe := fakeProbe{kind: KindJitter, run: func(context.Context, RunConfig) (*Data, error) {
		return nil, nil
	}}

	outcome := newTestExecutor(0).Execute(context.Background(), probe, DefaultRunConfig())
	if outcome.Status != StatusFailed {
		t.Fatalf("expected failed for nil data, got %s", outcome.Status)
	}
}
