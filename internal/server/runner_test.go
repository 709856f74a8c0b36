package server

import (
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"netsight/internal/netprobe"
)

func TestProfileToRunRequest(t *testing.T) {
	request, err := profileToRunRequest(QuickCheckRequest{
		Profile:    "connectivity",
		TargetHost: "example.com",
	})
	if err != nil {
		t.Fatalf("profileToRunRequest returned error: %v", err)
	}
	if len(request.Probes) != 3 {
		t.Fatalf("expected 3 probes for connectivity, got %v", request.Probes)
	}
	if len(request.TargetHosts) != 1 || request.TargetHosts[0] != "example.com" {
		t.Fatalf("expected target host override, got %v", request.TargetHosts)
	}
}

func TestProfileToRunRequestDefaultsToFull(t *testing.T) {
	request, err := profileToRunRequest(QuickCheckRequest{})
	if err != nil {
		t.Fatalf("profileToRunRequest returned error: %v", err)
	}
	if len(request.Probes) != len(netprobe.AllKinds()) {
		t.Fatalf("expected all probes for empty profile, got %v", request.Probes)
	}
}

func TestProfileToRunRequestRejectUnknownProfile(t *testing.T) {
	_, err := profileToRunRequest(QuickCheckRequest{Profile: "unknown"})
	if err == nil {
		t.Fatalf("expected error for unsupported profile")
	}
}

func TestBuildRunConfigMergesDefaults(t *testing.T) {
	manager := &RunManager{cfg: DefaultServerConfig()}
	cfg := manager.buildRunConfig(RunRequest{
		Probes:      []string{"latency", "dns"},
		PacketCount: 25,
	})
	if len(cfg.Enabled) != 2 {
		t.Fatalf("expected 2 enabled probes, got %v", cfg.Enabled)
	}
	if cfg.PacketCount != 25 {
		t.Fatalf("expected packet count override, got %d", cfg.PacketCount)
	}
	if len(cfg.DNSServers) == 0 {
		t.Fatalf("expected configured dns server defaults")
	}
	if cfg.RetryDelay != 2*time.Second {
		t.Fatalf("expected 2s retry delay default, got %s", cfg.RetryDelay)
	}
}

// seqRaceStore assigns sequence numbers the way the SQL store does: read the
// current maximum, then insert max+1 as a separate step. Without an external
// writer lock, two concurrent appends for the same run can both read the same
// maximum and collide.
type seqRaceStore struct {
	Store
	mu       sync.Mutex
	events   []RunEvent
	inFlight atomic.Int32
	overlap  atomic.Bool
}

func (s *seqRaceStore) AppendRunEvent(runID string, stage, message string, data map[string]any) (RunEvent, error) {
	if s.inFlight.Add(1) > 1 {
		s.overlap.Store(true)
	}
	defer s.inFlight.Add(-1)

	s.mu.Lock()
	seq := int64(len(s.events) + 1)
	s.mu.Unlock()

	runtime.Gosched()

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.events {
		if existing.Seq == seq {
			return RunEvent{}, fmt.Errorf("duplicate event seq %d for run %s", seq, runID)
		}
	}
	event := RunEvent{Seq: seq, Stage: stage, Message: message, Data: data}
	s.events = append(s.events, event)
	return event, nil
}

func TestRunEventSinkSerializesAppends(t *testing.T) {
	store := &seqRaceStore{}
	sink := &runEventSink{store: store, runID: "run_test"}

	const total = 16
	var wg sync.WaitGroup
	for i := 0; i < total; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, err := sink.Append("probe_result", fmt.Sprintf("event %d", i), nil); err != nil {
				t.Errorf("append failed: %v", err)
			}
		}(i)
	}
	wg.Wait()

	if store.overlap.Load() {
		t.Fatalf("appends overlapped; sink must serialize event writes per run")
	}
	if len(store.events) != total {
		t.Fatalf("expected %d events, got %d", total, len(store.events))
	}
	seen := map[int64]bool{}
	for _, event := range store.events {
		if event.Seq < 1 || event.Seq > total || seen[event.Seq] {
			t.Fatalf("unexpected seq %d in events", event.Seq)
		}
		seen[event.Seq] = true
	}
}

func TestValidateProbeNames(t *testing.T) {
	if err := validateProbeNames([]string{"latency", "packet_loss"}); err != nil {
		t.Fatalf("valid probe names rejected: %v", err)
	}
	if err := validateProbeNames([]string{"bandwidth"}); err == nil {
		t.Fatalf("expected error for unknown probe name")
	}
}
