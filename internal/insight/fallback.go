package insight

import (
	"fmt"

	"netsight/internal/netprobe"
)

// FallbackRecommender produces rule-based recommendations when the model
// path is entirely unavailable. Generate is a pure function of the result
// set: it walks each enabled probe's data, applies fixed thresholds, and
// never calls anything external. Thresholds follow the benchmark ranges
// stated in the agent prompts, so fallback output stays consistent with
// what the model is asked to apply.
type FallbackRecommender struct{}

// Generate always returns at least one recommendation. If no probe has
// data and no threshold rule fires, a single generic info recommendation
// fills the set.
func (FallbackRecommender) Generate(results *netprobe.ResultSet) []Recommendation {
	var recs []Recommendation
	if results != nil {
		recs = append(recs, latencyRules(results)...)
		recs = append(recs, lossRules(results)...)
		recs = append(recs, bandwidthRules(results)...)
		recs = append(recs, dnsRules(results)...)
	}
	if len(recs) == 0 {
		recs = append(recs, Recommendation{
			Text:       "Insufficient probe data for analysis. Re-run the diagnostics with more probes enabled.",
			Confidence: 0.50,
			Severity:   SeverityInfo,
			Agent:      AgentFallback,
		})
	}
	return recs
}

// enabledData returns the probe's payload if the probe was dispatched.
// Skipped probes contribute no rules at all; a dispatched probe with no
// data still triggers the per-kind "unable to measure" rule.
func enabledData(results *netprobe.ResultSet, kind netprobe.Kind) (*netprobe.Data, bool) {
	out, ok := results.Outcome(kind)
	if !ok || out.Status == netprobe.StatusSkipped {
		return nil, false
	}
	return out.Data, true
}

func latencyRules(results *netprobe.ResultSet) []Recommendation {
	data, enabled := enabledData(results, netprobe.KindLatency)
	if !enabled {
		return nil
	}
	var avgs []float64
	var hosts []netprobe.HostLatency
	if data != nil && data.Latency != nil {
		hosts = data.Latency.Hosts
	}
	for _, h := range hosts {
		if h.AvgMS > 0 {
			avgs = append(avgs, h.AvgMS)
		}
	}
	if len(avgs) == 0 {
		return []Recommendation{{
			Text:       "Unable to measure latency. Check network connectivity.",
			Confidence: 0.90,
			Severity:   SeverityCritical,
			Agent:      AgentFallback,
		}}
	}

	sum := 0.0
	for _, v := range avgs {
		sum += v
	}
	avg := sum / float64(len(avgs))

	var recs []Recommendation
	switch {
	case avg > 200:
		recs = append(recs, Recommendation{
			Text:       "Critical latency issue detected. Check for network congestion, ISP problems, or routing issues. Consider contacting your ISP.",
			Confidence: 0.95,
			Severity:   SeverityCritical,
			Agent:      AgentFallback,
		})
	case avg > 100:
		recs = append(recs, Recommendation{
			Text:       "High latency may impact real-time applications. Check WiFi signal strength, router placement, and consider using wired connection.",
			Confidence: 0.85,
			Severity:   SeverityWarning,
			Agent:      AgentFallback,
		})
	case avg > 50:
		recs = append(recs, Recommendation{
			Text:       "Latency is acceptable but could be improved. Optimize router settings and reduce network congestion.",
			Confidence: 0.70,
			Severity:   SeverityInfo,
			Agent:      AgentFallback,
		})
	default:
		recs = append(recs, Recommendation{
			Text:       "Latency is within excellent range. No action needed.",
			Confidence: 0.90,
			Severity:   SeverityInfo,
			Agent:      AgentFallback,
		})
	}

	for _, h := range hosts {
		if h.StddevMS > 20 {
			recs = append(recs, Recommendation{
				Text:       fmt.Sprintf("Latency to %s is unstable. This may indicate network congestion or routing issues.", h.Host),
				Confidence: 0.75,
				Severity:   SeverityWarning,
				Agent:      AgentFallback,
			})
		}
	}
	return recs
}

func lossRules(results *netprobe.ResultSet) []Recommendation {
	data, enabled := enabledData(results, netprobe.KindLoss)
	if !enabled {
		return nil
	}
	if data == nil || data.Loss == nil {
		return []Recommendation{{
			Text:       "Unable to measure packet loss. Check network connectivity.",
			Confidence: 0.80,
			Severity:   SeverityWarning,
			Agent:      AgentFallback,
		}}
	}

	pct := data.Loss.LossPercentage
	rec := Recommendation{Agent: AgentFallback}
	switch {
	case pct == 0:
		rec.Text = "Network stability is excellent. No packet loss detected."
		rec.Confidence = 0.95
		rec.Severity = SeverityInfo
	case pct < 1:
		rec.Text = "Very low packet loss detected. Network is stable."
		rec.Confidence = 0.85
		rec.Severity = SeverityInfo
	case pct < 3:
		rec.Text = "Minor packet loss detected. Monitor for patterns and check WiFi signal if using wireless."
		rec.Confidence = 0.75
		rec.Severity = SeverityWarning
	case pct < 5:
		rec.Text = "Moderate packet loss may affect VoIP and gaming. Check router, cables, and consider wired connection."
		rec.Confidence = 0.85
		rec.Severity = SeverityWarning
	default:
		rec.Text = "Critical packet loss detected. Check hardware connections, router health, and contact ISP if issue persists."
		rec.Confidence = 0.95
		rec.Severity = SeverityCritical
	}
	return []Recommendation{rec}
}

func bandwidthRules(results *netprobe.ResultSet) []Recommendation {
	data, enabled := enabledData(results, netprobe.KindThroughput)
	if !enabled {
		return nil
	}
	if data == nil || data.Throughput == nil {
		return []Recommendation{{
			Text:       "Unable to measure throughput. Check network connectivity.",
			Confidence: 0.80,
			Severity:   SeverityWarning,
			Agent:      AgentFallback,
		}}
	}

	var recs []Recommendation
	download := data.Throughput.DownloadMbps
	switch {
	case download >= 100:
		// Nothing to flag.
	case download >= 50:
		recs = append(recs, Recommendation{
			Text:       "Download speed is good for most activities. Consider upgrading for 4K streaming or large file transfers.",
			Confidence: 0.70,
			Severity:   SeverityInfo,
			Agent:      AgentFallback,
		})
	case download >= 25:
		recs = append(recs, Recommendation{
			Text:       "Download speed is adequate for HD streaming. Upgrade recommended for multiple users or 4K content.",
			Confidence: 0.75,
			Severity:   SeverityWarning,
			Agent:      AgentFallback,
		})
	default:
		recs = append(recs, Recommendation{
			Text:       "Download speed is below recommended levels. Contact ISP about plan upgrade or check for service issues.",
			Confidence: 0.90,
			Severity:   SeverityCritical,
			Agent:      AgentFallback,
		})
	}

	if data.Throughput.UploadMbps < 10 {
		recs = append(recs, Recommendation{
			Text:       "Upload speed may limit video conferencing and file uploads. Consider plan upgrade if these are important.",
			Confidence: 0.80,
			Severity:   SeverityWarning,
			Agent:      AgentFallback,
		})
	}
	return recs
}

func dnsRules(results *netprobe.ResultSet) []Recommendation {
	data, enabled := enabledData(results, netprobe.KindDNS)
	if !enabled {
		return nil
	}
	var valid []netprobe.ResolverStats
	if data != nil && data.DNS != nil {
		for _, s := range data.DNS.Servers {
			if s.AvgResolutionMS > 0 {
				valid = append(valid, s)
			}
		}
	}
	if len(valid) == 0 {
		return []Recommendation{{
			Text:       "Unable to test DNS servers. Check network connectivity.",
			Confidence: 0.80,
			Severity:   SeverityWarning,
			Agent:      AgentFallback,
		}}
	}

	fastest, slowest := valid[0], valid[0]
	for _, s := range valid[1:] {
		if s.AvgResolutionMS < fastest.AvgResolutionMS {
			fastest = s
		}
		if s.AvgResolutionMS > slowest.AvgResolutionMS {
			slowest = s
		}
	}

	if fastest.AvgResolutionMS < 20 {
		return []Recommendation{{
			Text:       fmt.Sprintf("DNS performance is excellent with %s. Current configuration is optimal.", fastest.Server),
			Confidence: 0.90,
			Severity:   SeverityInfo,
			Agent:      AgentFallback,
		}}
	}
	return []Recommendation{{
		Text:       fmt.Sprintf("Consider switching to %s for %.1fms faster DNS resolution.", fastest.Server, slowest.AvgResolutionMS-fastest.AvgResolutionMS),
		Confidence: 0.85,
		Severity:   SeverityWarning,
		Agent:      AgentFallback,
	}}
}
