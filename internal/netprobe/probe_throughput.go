package netprobe

import (
	"context"
	"fmt"

	"github.com/showwin/speedtest-go/speedtest"
)

// ThroughputProbe runs a download/upload speed test against the nearest
// speedtest.net server.
type ThroughputProbe struct{}

func (ThroughputProbe) Kind() Kind { return KindThroughput }

func (ThroughputProbe) Run(ctx context.Context, cfg RunConfig) (*Data, error) {
	client := speedtest.New()

	serverList, err := client.FetchServerListContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch speedtest servers: %w", err)
	}
	targets, err := serverList.FindServer(nil)
	if err != nil || len(targets) == 0 {
		return nil, fmt.Errorf("select speedtest server: %w", err)
	}
	server := targets[0]

	if err := server.PingTestContext(ctx, nil); err != nil {
		return nil, fmt.Errorf("speedtest ping against %s: %w", server.Host, err)
	}
	if err := server.DownloadTestContext(ctx); err != nil {
		return nil, fmt.Errorf("download test against %s: %w", server.Host, err)
	}
	if err := server.UploadTestContext(ctx); err != nil {
		return nil, fmt.Errorf("upload test against %s: %w", server.Host, err)
	}

	location := server.Name
	if server.Country != "" {
		location = fmt.Sprintf("%s, %s", server.Name, server.Country)
	}
	return &Data{Throughput: &ThroughputData{
		DownloadMbps:   round2(server.DLSpeed.Mbps()),
		UploadMbps:     round2(server.ULSpeed.Mbps()),
		PingMS:         round2(millis(server.Latency)),
		ServerHost:     server.Host,
		ServerLocation: location,
	}}, nil
}
