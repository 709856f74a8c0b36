package netprobe

import "time"

type Kind string

const (
	KindLatency    Kind = "latency"
	KindJitter     Kind = "jitter"
	KindLoss       Kind = "packet_loss"
	KindThroughput Kind = "throughput"
	KindDNS        Kind = "dns"
)

func AllKinds() []Kind {
	return []Kind{KindLatency, KindJitter, KindLoss, KindThroughput, KindDNS}
}

type Status string

const (
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
	StatusSkipped   Status = "skipped"
)

type Overall string

const (
	OverallCompleted Overall = "completed"
	OverallPartial   Overall = "partial"
	OverallFailed    Overall = "failed"
)

// RunConfig is the immutable input for one probe run. Construct it once
// per run request; the orchestrator never mutates it.
type RunConfig struct {
	Enabled     []Kind                 `json:"enabled"`
	TargetHosts []string               `json:"target_hosts,omitempty"`
	DNSServers  []string               `json:"dns_servers,omitempty"`
	PacketCount int                    `json:"packet_count,omitempty"`
	MaxRetries  int                    `json:"max_retries,omitempty"`
	RetryDelay  time.Duration          `json:"-"`
	Timeouts    map[Kind]time.Duration `json:"-"`
}

func DefaultRunConfig() RunConfig {
	return RunConfig{
		Enabled:     AllKinds(),
		TargetHosts: []string{"8.8.8.8", "1.1.1.1"},
		DNSServers:  []string{"8.8.8.8", "1.1.1.1", "208.67.222.222"},
		PacketCount: 100,
		MaxRetries:  2,
		RetryDelay:  2 * time.Second,
		Timeouts:    DefaultTimeouts(),
	}
}

// DefaultTimeouts returns the per-kind attempt timeouts. Throughput gets a
// much longer budget than the rest since a speed test legitimately runs for
// tens of seconds.
func DefaultTimeouts() map[Kind]time.Duration {
	return map[Kind]time.Duration{
		KindLatency:    30 * time.Second,
		KindJitter:     45 * time.Second,
		KindLoss:       120 * time.Second,
		KindThroughput: 180 * time.Second,
		KindDNS:        20 * time.Second,
	}
}

func (c RunConfig) IsEnabled(kind Kind) bool {
	for _, k := range c.Enabled {
		if k == kind {
			return true
		}
	}
	return false
}

func (c RunConfig) Timeout(kind Kind) time.Duration {
	if d, ok := c.Timeouts[kind]; ok && d > 0 {
		return d
	}
	if d, ok := DefaultTimeouts()[kind]; ok {
		return d
	}
	return 30 * time.Second
}

// HostLatency holds ping statistics for one target host.
type HostLatency struct {
	Host            string  `json:"host"`
	PacketsSent     int     `json:"packets_sent"`
	PacketsReceived int     `json:"packets_received"`
	MinMS           float64 `json:"min_ms"`
	MaxMS           float64 `json:"max_ms"`
	AvgMS           float64 `json:"avg_ms"`
	StddevMS        float64 `json:"stddev_ms"`
}

type LatencyData struct {
	Hosts []HostLatency `json:"hosts"`
}

type JitterData struct {
	Host              string  `json:"host"`
	AvgJitterMS       float64 `json:"avg_jitter_ms"`
	MaxJitterMS       float64 `json:"max_jitter_ms"`
	MinJitterMS       float64 `json:"min_jitter_ms"`
	Samples           int     `json:"samples"`
	SuccessfulSamples int     `json:"successful_samples"`
}

type LossData struct {
	Host            string  `json:"host"`
	PacketsSent     int     `json:"packets_sent"`
	PacketsReceived int     `json:"packets_received"`
	PacketsLost     int     `json:"packets_lost"`
	LossPercentage  float64 `json:"loss_percentage"`
}

type ThroughputData struct {
	DownloadMbps   float64 `json:"download_mbps"`
	UploadMbps     float64 `json:"upload_mbps"`
	PingMS         float64 `json:"ping_ms"`
	ServerHost     string  `json:"server_host,omitempty"`
	ServerLocation string  `json:"server_location,omitempty"`
}

// ResolverStats holds resolution timing for one DNS server.
type ResolverStats struct {
	Server            string  `json:"dns_server"`
	AvgResolutionMS   float64 `json:"avg_resolution_ms"`
	MinResolutionMS   float64 `json:"min_resolution_ms"`
	MaxResolutionMS   float64 `json:"max_resolution_ms"`
	QueriesTested     int     `json:"queries_tested"`
	SuccessfulQueries int     `json:"successful_queries"`
	FailedQueries     int     `json:"failed_queries"`
	SuccessRate       float64 `json:"success_rate"`
}

type DNSData struct {
	Servers []ResolverStats `json:"servers"`
}

// Data is the per-kind payload of a probe outcome. Exactly one field is
// non-nil for a succeeded outcome; which one must match the outcome's kind.
type Data struct {
	Latency    *LatencyData    `json:"latency,omitempty"`
	Jitter     *JitterData     `json:"jitter,omitempty"`
	Loss       *LossData       `json:"loss,omitempty"`
	Throughput *ThroughputData `json:"throughput,omitempty"`
	DNS        *DNSData        `json:"dns,omitempty"`
}

// Outcome is the resolved result of one probe invocation.
//
// Invariants: succeeded implies Data is non-nil and passed validation;
// skipped implies Data and Error are both empty; failed implies Error is
// non-empty.
type Outcome struct {
	Kind       Kind   `json:"kind"`
	Status     Status `json:"status"`
	Attempts   int    `json:"attempts"`
	Error      string `json:"error,omitempty"`
	DurationMS int64  `json:"duration_ms"`
	Data       *Data  `json:"data,omitempty"`
}

// ResultSet aggregates the outcomes of one run. It is built once, after
// every dispatched probe has resolved, and never mutated afterward.
type ResultSet struct {
	GeneratedAt string           `json:"generated_at"`
	Overall     Overall          `json:"overall"`
	Outcomes    map[Kind]Outcome `json:"outcomes"`
}

func (r ResultSet) Outcome(kind Kind) (Outcome, bool) {
	out, ok := r.Outcomes[kind]
	return out, ok
}

// Succeeded reports whether the given probe ran and produced valid data.
func (r ResultSet) Succeeded(kind Kind) bool {
	out, ok := r.Outcomes[kind]
	return ok && out.Status == StatusSucceeded
}

// DeriveOverall computes the run-level status from per-probe statuses.
// Skipped probes are excluded: completed means every enabled probe
// succeeded, failed means every enabled probe failed, anything mixed is
// partial. A run with nothing enabled counts as completed.
func DeriveOverall(outcomes map[Kind]Outcome) Overall {
	succeeded := 0
	failed := 0
	for _, out := range outcomes {
		switch out.Status {
		case StatusSucceeded:
			succeeded++
		case StatusFailed:
			failed++
		}
	}
	switch {
	case failed == 0:
		return OverallCompleted
	case succeeded == 0:
		return OverallFailed
	default:
		return OverallPartial
	}
}
