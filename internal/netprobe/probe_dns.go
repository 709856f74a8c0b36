package netprobe

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/miekg/dns"
)

// Domains resolved against every configured DNS server. Popular zones are
// used so a miss indicates a resolver problem rather than a missing record.
var dnsTestDomains = []string{
	"google.com",
	"youtube.com",
	"amazon.com",
	"wikipedia.org",
	"cloudflare.com",
}

// DNSProbe times A-record lookups against each configured resolver.
type DNSProbe struct{}

func (DNSProbe) Kind() Kind { return KindDNS }

func (DNSProbe) Run(ctx context.Context, cfg RunConfig) (*Data, error) {
	servers := cfg.DNSServers
	if len(servers) == 0 {
		return nil, fmt.Errorf("dns probe has no servers configured")
	}

	client := &dns.Client{Timeout: 5 * time.Second}
	results := make([]ResolverStats, 0, len(servers))
	for _, server := range servers {
		results = append(results, queryServer(ctx, client, server))
	}
	return &Data{DNS: &DNSData{Servers: results}}, nil
}

func queryServer(ctx context.Context, client *dns.Client, server string) ResolverStats {
	stats := ResolverStats{
		Server:        server,
		QueriesTested: len(dnsTestDomains),
	}
	addr := net.JoinHostPort(server, "53")

	var times []float64
	for _, domain := range dnsTestDomains {
		if ctx.Err() != nil {
			stats.FailedQueries = stats.QueriesTested - stats.SuccessfulQueries
			break
		}
		msg := new(dns.Msg)
		msg.SetQuestion(dns.Fqdn(domain), dns.TypeA)
		reply, rtt, err := client.ExchangeContext(ctx, msg, addr)
		if err != nil || reply == nil || reply.Rcode != dns.RcodeSuccess {
			stats.FailedQueries++
			continue
		}
		stats.SuccessfulQueries++
		times = append(times, millis(rtt))
	}

	if len(times) > 0 {
		min, max, avg := minMaxAvg(times)
		stats.MinResolutionMS = round2(min)
		stats.MaxResolutionMS = round2(max)
		stats.AvgResolutionMS = round2(avg)
	}
	stats.FailedQueries = stats.QueriesTested - stats.SuccessfulQueries
	stats.SuccessRate = round2(float64(stats.SuccessfulQueries) / float64(stats.QueriesTested) * 100)
	return stats
}
