package insight

import "sort"

// Severity grades a recommendation. Ranking is critical > warning > info;
// anything unrecognized sorts with info.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityWarning  Severity = "warning"
	SeverityInfo     Severity = "info"
)

func severityRank(s Severity) int {
	switch s {
	case SeverityCritical:
		return 0
	case SeverityWarning:
		return 1
	default:
		return 2
	}
}

// Agent identifies which analyzer authored a recommendation.
type Agent string

const (
	AgentLatency   Agent = "latency_diagnoser"
	AgentLoss      Agent = "packet_loss_advisor"
	AgentBandwidth Agent = "bandwidth_optimizer"
	AgentDNS       Agent = "dns_routing_advisor"
	AgentFallback  Agent = "fallback"
)

// AIStatus reports how the recommendations were produced. Completed means
// at least one analyzer answered through the model; degraded means every
// recommendation came from the rule-based fallback.
type AIStatus string

const (
	AIStatusCompleted AIStatus = "completed"
	AIStatusDegraded  AIStatus = "degraded"
)

type Recommendation struct {
	Text       string   `json:"text"`
	Confidence float64  `json:"confidence"`
	Severity   Severity `json:"severity"`
	Agent      Agent    `json:"agent_source"`
	Priority   int      `json:"priority,omitempty"`
}

// Report is one analyzer's output, either parsed from the model response
// or produced by the rule-based fallback.
type Report struct {
	Findings        []string         `json:"findings"`
	Recommendations []Recommendation `json:"recommendations"`
}

// RecommendationSet is the merged output of an analysis run. It is never
// empty: when every analyzer and fallback produced nothing, the generic
// recommendations fill it.
type RecommendationSet struct {
	GeneratedAt     string           `json:"generated_at"`
	AIStatus        AIStatus         `json:"ai_status"`
	ModelUsed       string           `json:"model_used,omitempty"`
	Summary         string           `json:"summary"`
	CriticalIssues  []string         `json:"critical_issues"`
	Recommendations []Recommendation `json:"recommendations"`
}

// SortRecommendations orders by severity (critical first), then by
// confidence descending, and renumbers Priority from 1. The sort is
// stable so equally ranked recommendations keep their analyzer order.
func SortRecommendations(recs []Recommendation) {
	sort.SliceStable(recs, func(i, j int) bool {
		ri, rj := severityRank(recs[i].Severity), severityRank(recs[j].Severity)
		if ri != rj {
			return ri < rj
		}
		return recs[i].Confidence > recs[j].Confidence
	})
	for i := range recs {
		recs[i].Priority = i + 1
	}
}
