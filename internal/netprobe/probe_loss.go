package netprobe

import (
	"context"
	"fmt"
	"time"
)

// LossProbe sends a burst of echo requests to the first target host and
// reports the drop rate.
type LossProbe struct{}

func (LossProbe) Kind() Kind { return KindLoss }

func (LossProbe) Run(ctx context.Context, cfg RunConfig) (*Data, error) {
	if len(cfg.TargetHosts) == 0 {
		return nil, fmt.Errorf("packet loss probe has no target host")
	}
	host := cfg.TargetHosts[0]
	count := cfg.PacketCount
	if count <= 0 {
		count = 100
	}

	stats, err := pingHost(ctx, host, count, 100*time.Millisecond)
	if err != nil {
		return nil, err
	}
	if stats.PacketsSent == 0 {
		return nil, fmt.Errorf("packet loss probe for %s sent no packets", host)
	}

	return &Data{Loss: &LossData{
		Host:            host,
		PacketsSent:     stats.PacketsSent,
		PacketsReceived: stats.PacketsRecv,
		PacketsLost:     stats.PacketsSent - stats.PacketsRecv,
		LossPercentage:  round2(stats.PacketLoss),
	}}, nil
}
