package insight

import (
	"fmt"
	"strings"

	"netsight/internal/netprobe"
)

const latencyPrompt = `You are a network latency diagnostic expert. Your role is to analyze ping latency data and provide actionable insights.

**Normal Ranges:**
- Excellent: < 20ms
- Good: 20-50ms
- Fair: 50-100ms
- Poor: 100-200ms
- Very Poor: > 200ms

**Your Task:**
Analyze the provided ping test results and identify any latency issues. Provide specific, actionable recommendations.

**Output Format (JSON):**
{
  "findings": ["finding 1", "finding 2"],
  "recommendations": [
    {
      "text": "recommendation text",
      "confidence": 0.85,
      "severity": "critical|warning|info"
    }
  ]
}

Analyze these ping test results:

%s

Provide your analysis focusing on:
1. Average latency levels
2. Latency consistency (stddev)
3. Comparison across different hosts
4. Potential causes of high latency
5. Specific actions to improve latency

Respond with valid JSON only.`

const lossPrompt = `You are a network packet loss diagnostic expert. Your role is to analyze packet loss data and identify network stability issues.

**Normal Ranges:**
- Excellent: 0%% loss
- Good: < 1%% loss
- Fair: 1-3%% loss
- Poor: 3-5%% loss
- Very Poor: > 5%% loss

**Your Task:**
Analyze packet loss patterns and provide recommendations to improve network reliability.

**Output Format (JSON):**
{
  "findings": ["finding 1", "finding 2"],
  "recommendations": [
    {
      "text": "recommendation text",
      "confidence": 0.90,
      "severity": "critical|warning|info"
    }
  ]
}

Analyze these packet loss test results:

%s

Provide your analysis focusing on:
1. Packet loss percentage and severity
2. Network stability assessment
3. Potential causes (hardware, ISP, routing)
4. Impact on applications (VoIP, gaming, streaming)
5. Specific troubleshooting steps

Respond with valid JSON only.`

const bandwidthPrompt = `You are a network bandwidth optimization expert. Your role is to analyze internet speed test results and provide optimization recommendations.

**Speed Benchmarks:**
- Download: 100+ Mbps (Excellent), 50-100 (Good), 25-50 (Fair), <25 (Poor)
- Upload: 50+ Mbps (Excellent), 25-50 (Good), 10-25 (Fair), <10 (Poor)

**Your Task:**
Analyze speed test results and recommend ways to optimize bandwidth usage.

**Output Format (JSON):**
{
  "findings": ["finding 1", "finding 2"],
  "recommendations": [
    {
      "text": "recommendation text",
      "confidence": 0.80,
      "severity": "critical|warning|info"
    }
  ]
}

Analyze these speed test results:

%s

Provide your analysis focusing on:
1. Download and upload speed assessment
2. Comparison with typical ISP plans
3. Bottlenecks (WiFi, router, ISP)
4. QoS configuration recommendations
5. Suitable activities for current speeds

Respond with valid JSON only.`

const dnsPrompt = `You are a DNS and network routing optimization expert. Your role is to analyze DNS resolution performance and recommend optimal configurations.

**DNS Performance Benchmarks:**
- Excellent: < 10ms
- Good: 10-20ms
- Fair: 20-50ms
- Poor: 50-100ms
- Very Poor: > 100ms

**Common DNS Servers:**
- Google DNS: 8.8.8.8, 8.8.4.4
- Cloudflare DNS: 1.1.1.1, 1.0.0.1
- OpenDNS: 208.67.222.222, 208.67.220.220

**Your Task:**
Analyze DNS test results and recommend the optimal DNS configuration.

**Output Format (JSON):**
{
  "findings": ["finding 1", "finding 2"],
  "recommendations": [
    {
      "text": "recommendation text",
      "confidence": 0.95,
      "severity": "critical|warning|info"
    }
  ]
}

Analyze these DNS test results:

%s

Provide your analysis focusing on:
1. DNS resolution time comparison
2. Best performing DNS server
3. Potential DNS issues
4. Specific DNS server recommendations
5. Configuration instructions

Respond with valid JSON only.`

func formatLatency(d *netprobe.LatencyData) string {
	parts := make([]string, 0, len(d.Hosts))
	for _, h := range d.Hosts {
		parts = append(parts, fmt.Sprintf(
			"Host: %s\n  - Average Latency: %gms\n  - Min/Max: %gms / %gms\n  - Std Dev: %gms\n  - Packet Loss: %d packets",
			h.Host, h.AvgMS, h.MinMS, h.MaxMS, h.StddevMS, h.PacketsSent-h.PacketsReceived,
		))
	}
	return strings.Join(parts, "\n\n")
}

func formatLoss(d *netprobe.LossData) string {
	successRate := 0.0
	if d.PacketsSent > 0 {
		successRate = float64(d.PacketsReceived) / float64(d.PacketsSent) * 100
	}
	return fmt.Sprintf(
		"Host: %s\n  - Packets Sent: %d\n  - Packets Received: %d\n  - Loss Percentage: %g%%\n  - Success Rate: %.1f%%",
		d.Host, d.PacketsSent, d.PacketsReceived, d.LossPercentage, successRate,
	)
}

func formatThroughput(d *netprobe.ThroughputData) string {
	return fmt.Sprintf(
		"Download Speed: %g Mbps\nUpload Speed: %g Mbps\nPing: %gms\nServer: %s",
		d.DownloadMbps, d.UploadMbps, d.PingMS, d.ServerLocation,
	)
}

func formatDNS(d *netprobe.DNSData) string {
	parts := make([]string, 0, len(d.Servers))
	for _, s := range d.Servers {
		parts = append(parts, fmt.Sprintf(
			"DNS Server: %s\n  - Average Resolution: %gms\n  - Min/Max: %gms / %gms\n  - Success Rate: %g%%\n  - Queries: %d/%d",
			s.Server, s.AvgResolutionMS, s.MinResolutionMS, s.MaxResolutionMS, s.SuccessRate, s.SuccessfulQueries, s.QueriesTested,
		))
	}
	return strings.Join(parts, "\n\n")
}
