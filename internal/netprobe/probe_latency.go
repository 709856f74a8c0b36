package netprobe

import (
	"context"
	"fmt"
	"strings"
	"time"

	probing "github.com/prometheus-community/pro-bing"
)

const latencyPacketCount = 10

// LatencyProbe pings every target host and reports per-host round-trip
// statistics.
type LatencyProbe struct{}

func (LatencyProbe) Kind() Kind { return KindLatency }

func (LatencyProbe) Run(ctx context.Context, cfg RunConfig) (*Data, error) {
	hosts := cfg.TargetHosts
	if len(hosts) == 0 {
		return nil, fmt.Errorf("latency probe has no target hosts")
	}

	results := make([]HostLatency, 0, len(hosts))
	var errMsgs []string
	for _, host := range hosts {
		stats, err := pingHost(ctx, host, latencyPacketCount, time.Second)
		if err != nil {
			errMsgs = append(errMsgs, fmt.Sprintf("%s: %v", host, err))
			continue
		}
		results = append(results, HostLatency{
			Host:            host,
			PacketsSent:     stats.PacketsSent,
			PacketsReceived: stats.PacketsRecv,
			MinMS:           round2(millis(stats.MinRtt)),
			MaxMS:           round2(millis(stats.MaxRtt)),
			AvgMS:           round2(millis(stats.AvgRtt)),
			StddevMS:        round2(millis(stats.StdDevRtt)),
		})
	}
	if len(results) == 0 {
		return nil, fmt.Errorf("all hosts unreachable: %s", strings.Join(errMsgs, "; "))
	}
	return &Data{Latency: &LatencyData{Hosts: results}}, nil
}

// pingHost runs one ICMP session and returns its statistics. Shared by the
// latency, jitter, and loss probes.
func pingHost(ctx context.Context, host string, count int, interval time.Duration) (*probing.Statistics, error) {
	pinger, err := probing.NewPinger(host)
	if err != nil {
		return nil, fmt.Errorf("create pinger for %s: %w", host, err)
	}
	pinger.Count = count
	if interval > 0 {
		pinger.Interval = interval
	}
	if deadline, ok := ctx.Deadline(); ok {
		pinger.Timeout = time.Until(deadline)
	}
	if err := pinger.RunWithContext(ctx); err != nil {
		return nil, fmt.Errorf("ping %s: %w", host, err)
	}
	return pinger.Statistics(), nil
}
