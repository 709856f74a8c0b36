package insight

import (
	"fmt"

	"netsight/internal/netprobe"
)

// Analyzer is one specialized diagnostic agent. It declares the probe kind
// it consumes and builds the model prompt from that probe's data. An
// analyzer whose probe produced no data cannot run; it simply contributes
// nothing to the merge.
type Analyzer interface {
	Agent() Agent
	Kind() netprobe.Kind
	Prompt(data *netprobe.Data) (string, bool)
}

// DefaultAnalyzers returns the four agents in merge order.
func DefaultAnalyzers() []Analyzer {
	return []Analyzer{
		LatencyAnalyzer{},
		LossAnalyzer{},
		BandwidthAnalyzer{},
		DNSAnalyzer{},
	}
}

// LatencyAnalyzer grades ping latency and its stability.
type LatencyAnalyzer struct{}

func (LatencyAnalyzer) Agent() Agent        { return AgentLatency }
func (LatencyAnalyzer) Kind() netprobe.Kind { return netprobe.KindLatency }

func (LatencyAnalyzer) Prompt(data *netprobe.Data) (string, bool) {
	if data == nil || data.Latency == nil || len(data.Latency.Hosts) == 0 {
		return "", false
	}
	return fmt.Sprintf(latencyPrompt, formatLatency(data.Latency)), true
}

// LossAnalyzer assesses packet loss severity.
type LossAnalyzer struct{}

func (LossAnalyzer) Agent() Agent        { return AgentLoss }
func (LossAnalyzer) Kind() netprobe.Kind { return netprobe.KindLoss }

func (LossAnalyzer) Prompt(data *netprobe.Data) (string, bool) {
	if data == nil || data.Loss == nil {
		return "", false
	}
	return fmt.Sprintf(lossPrompt, formatLoss(data.Loss)), true
}

// BandwidthAnalyzer rates throughput against common plan tiers.
type BandwidthAnalyzer struct{}

func (BandwidthAnalyzer) Agent() Agent        { return AgentBandwidth }
func (BandwidthAnalyzer) Kind() netprobe.Kind { return netprobe.KindThroughput }

func (BandwidthAnalyzer) Prompt(data *netprobe.Data) (string, bool) {
	if data == nil || data.Throughput == nil {
		return "", false
	}
	return fmt.Sprintf(bandwidthPrompt, formatThroughput(data.Throughput)), true
}

// DNSAnalyzer compares resolver performance.
type DNSAnalyzer struct{}

func (DNSAnalyzer) Agent() Agent        { return AgentDNS }
func (DNSAnalyzer) Kind() netprobe.Kind { return netprobe.KindDNS }

func (DNSAnalyzer) Prompt(data *netprobe.Data) (string, bool) {
	if data == nil || data.DNS == nil || len(data.DNS.Servers) == 0 {
		return "", false
	}
	return fmt.Sprintf(dnsPrompt, formatDNS(data.DNS)), true
}
