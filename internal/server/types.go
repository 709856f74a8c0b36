package server

import (
	"time"

	"netsight/internal/insight"
	"netsight/internal/netprobe"
)

type Principal struct {
	Subject  string `json:"subject"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

// RunRequest selects which probes run and against what. Empty fields fall
// back to the server's configured probe defaults.
type RunRequest struct {
	Probes       []string `json:"probes,omitempty"`
	TargetHosts  []string `json:"target_hosts,omitempty"`
	DNSServers   []string `json:"dns_servers,omitempty"`
	PacketCount  int      `json:"packet_count,omitempty"`
	MaxRetries   int      `json:"max_retries,omitempty"`
	SkipAnalysis bool     `json:"skip_analysis,omitempty"`
}

// QuickCheckRequest is the anonymous-user entry point: a named profile
// instead of a raw probe selection.
type QuickCheckRequest struct {
	Profile    string `json:"profile"`
	TargetHost string `json:"target_host,omitempty"`
}

type RunMeta struct {
	RunID        string                     `json:"run_id"`
	Status       string                     `json:"status"`
	CreatorType  string                     `json:"creator_type"`
	CreatorSub   string                     `json:"creator_sub,omitempty"`
	CreatorEmail string                     `json:"creator_email,omitempty"`
	Source       string                     `json:"source"`
	Request      RunRequest                 `json:"request"`
	StartedAt    string                     `json:"started_at,omitempty"`
	FinishedAt   string                     `json:"finished_at,omitempty"`
	CreatedAt    string                     `json:"created_at"`
	Error        string                     `json:"error,omitempty"`
	Results      *netprobe.ResultSet        `json:"results,omitempty"`
	Insights     *insight.RecommendationSet `json:"insights,omitempty"`
}

type AuditEvent struct {
	Timestamp string `json:"timestamp"`
	RunID     string `json:"run_id,omitempty"`
	ActorType string `json:"actor_type"`
	ActorSub  string `json:"actor_sub,omitempty"`
	Action    string `json:"action"`
	Result    string `json:"result"`
	IPHash    string `json:"ip_hash,omitempty"`
	UAHash    string `json:"ua_hash,omitempty"`
	Detail    string `json:"detail,omitempty"`
}

type RunEvent struct {
	Seq       int64          `json:"seq"`
	Timestamp string         `json:"timestamp"`
	Stage     string         `json:"stage"`
	Message   string         `json:"message"`
	Data      map[string]any `json:"data,omitempty"`
}

type MetricsOverview struct {
	GeneratedAt      string  `json:"generated_at"`
	TotalRuns        int     `json:"total_runs"`
	RunningRuns      int     `json:"running_runs"`
	CompletedRuns    int     `json:"completed_runs"`
	PartialRuns      int     `json:"partial_runs"`
	FailedRuns       int     `json:"failed_runs"`
	DegradedAnalyses int     `json:"degraded_analyses"`
	AverageDuration  int64   `json:"average_duration_ms"`
	AverageDownload  float64 `json:"average_download_mbps"`
}

func nowRFC3339() string {
	return time.Now().UTC().Format(time.RFC3339)
}
