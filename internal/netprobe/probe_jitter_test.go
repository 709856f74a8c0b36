package netprobe

import (
	"testing"
	"time"

	probing "github.com/prometheus-community/pro-bing"
)

func TestJitterDataReportsActualSampleCounts(t *testing.T) {
	stats := &probing.Statistics{
		PacketsSent: 12,
		Rtts: []time.Duration{
			10 * time.Millisecond,
			12 * time.Millisecond,
			11 * time.Millisecond,
			15 * time.Millisecond,
			14 * time.Millisecond,
			13 * time.Millisecond,
			12 * time.Millisecond,
			16 * time.Millisecond,
			14 * time.Millisecond,
		},
	}

	data, err := jitterData("1.1.1.1", stats)
	if err != nil {
		t.Fatalf("jitterData returned error: %v", err)
	}
	if data.Jitter.Samples != 12 {
		t.Fatalf("expected Samples to reflect packets sent (12), got %d", data.Jitter.Samples)
	}
	if data.Jitter.SuccessfulSamples != 9 {
		t.Fatalf("expected 9 successful samples, got %d", data.Jitter.SuccessfulSamples)
	}
	if data.Jitter.AvgJitterMS <= 0 || data.Jitter.MaxJitterMS < data.Jitter.AvgJitterMS {
		t.Fatalf("implausible jitter stats: avg=%v max=%v", data.Jitter.AvgJitterMS, data.Jitter.MaxJitterMS)
	}
}

func TestJitterDataRequiresTwoSamples(t *testing.T) {
	stats := &probing.Statistics{
		PacketsSent: 5,
		Rtts:        []time.Duration{8 * time.Millisecond},
	}
	if _, err := jitterData("1.1.1.1", stats); err == nil {
		t.Fatalf("expected error with a single round trip time")
	}
}
