package netprobe

import (
	"context"
	"fmt"
	"time"

	probing "github.com/prometheus-community/pro-bing"
)

const jitterSampleCount = 20

// JitterProbe measures latency variation to the first target host as the
// mean absolute difference between consecutive round-trip times.
type JitterProbe struct{}

func (JitterProbe) Kind() Kind { return KindJitter }

func (JitterProbe) Run(ctx context.Context, cfg RunConfig) (*Data, error) {
	if len(cfg.TargetHosts) == 0 {
		return nil, fmt.Errorf("jitter probe has no target host")
	}
	host := cfg.TargetHosts[0]

	stats, err := pingHost(ctx, host, jitterSampleCount, 200*time.Millisecond)
	if err != nil {
		return nil, err
	}
	return jitterData(host, stats)
}

// jitterData derives the jitter payload from a completed ping session.
// Samples reports what the session actually sent, which can be fewer than
// the configured count when the context expires mid-run.
func jitterData(host string, stats *probing.Statistics) (*Data, error) {
	if len(stats.Rtts) < 2 {
		return nil, fmt.Errorf("jitter probe for %s collected %d samples, need at least 2", host, len(stats.Rtts))
	}

	diffs := make([]float64, 0, len(stats.Rtts)-1)
	for i := 1; i < len(stats.Rtts); i++ {
		d := millis(stats.Rtts[i]) - millis(stats.Rtts[i-1])
		if d < 0 {
			d = -d
		}
		diffs = append(diffs, d)
	}
	min, max, avg := minMaxAvg(diffs)

	return &Data{Jitter: &JitterData{
		Host:              host,
		AvgJitterMS:       round2(avg),
		MaxJitterMS:       round2(max),
		MinJitterMS:       round2(min),
		Samples:           stats.PacketsSent,
		SuccessfulSamples: len(stats.Rtts),
	}}, nil
}
