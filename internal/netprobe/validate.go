package netprobe

import "fmt"

// Validator performs kind-specific structural checks on probe payloads.
// It judges presence and shape only, never quality: a 100% loss result is
// valid data, an empty struct that a crashing probe handed back is not.
type Validator struct{}

// Validate reports whether data is structurally complete for the given
// kind. On failure the second return value explains what was missing.
func (Validator) Validate(kind Kind, data *Data) (bool, string) {
	if data == nil {
		return false, fmt.Sprintf("%s result is empty", kind)
	}
	switch kind {
	case KindLatency:
		return validateLatency(data.Latency)
	case KindJitter:
		return validateJitter(data.Jitter)
	case KindLoss:
		return validateLoss(data.Loss)
	case KindThroughput:
		return validateThroughput(data.Throughput)
	case KindDNS:
		return validateDNS(data.DNS)
	default:
		return false, fmt.Sprintf("unknown probe kind %q", kind)
	}
}

func validateLatency(d *LatencyData) (bool, string) {
	if d == nil || len(d.Hosts) == 0 {
		return false, "latency result has no host entries"
	}
	anySample := false
	for i, h := range d.Hosts {
		if h.Host == "" {
			return false, fmt.Sprintf("latency result %d has no host", i)
		}
		if h.PacketsSent < 0 || h.PacketsReceived < 0 {
			return false, fmt.Sprintf("latency result %d has negative packet counts", i)
		}
		if h.PacketsReceived > 0 {
			anySample = true
		}
	}
	if !anySample {
		return false, "latency result contains no successful samples"
	}
	return true, ""
}

func validateJitter(d *JitterData) (bool, string) {
	if d == nil {
		return false, "jitter result is empty"
	}
	if d.Host == "" {
		return false, "jitter result has no host"
	}
	if d.SuccessfulSamples <= 0 {
		return false, "jitter result contains no successful samples"
	}
	if d.AvgJitterMS < 0 || d.MaxJitterMS < 0 {
		return false, "jitter result has negative values"
	}
	return true, ""
}

func validateLoss(d *LossData) (bool, string) {
	if d == nil {
		return false, "packet loss result is empty"
	}
	if d.Host == "" {
		return false, "packet loss result has no host"
	}
	if d.PacketsSent <= 0 {
		return false, "packet loss result has no packets sent"
	}
	if d.PacketsReceived < 0 {
		return false, "packet loss result has negative packets received"
	}
	if d.LossPercentage < 0 || d.LossPercentage > 100 {
		return false, "packet loss percentage outside 0-100"
	}
	return true, ""
}

func validateThroughput(d *ThroughputData) (bool, string) {
	if d == nil {
		return false, "throughput result is empty"
	}
	if d.DownloadMbps < 0 || d.UploadMbps < 0 || d.PingMS < 0 {
		return false, "throughput result has negative rates"
	}
	if d.DownloadMbps == 0 && d.UploadMbps == 0 {
		return false, "throughput result has no measured rates"
	}
	return true, ""
}

func validateDNS(d *DNSData) (bool, string) {
	if d == nil || len(d.Servers) == 0 {
		return false, "dns result has no server entries"
	}
	for i, s := range d.Servers {
		if s.Server == "" {
			return false, fmt.Sprintf("dns result %d has no server", i)
		}
		if s.QueriesTested <= 0 {
			return false, fmt.Sprintf("dns result %d tested no queries", i)
		}
		if s.AvgResolutionMS < 0 {
			return false, fmt.Sprintf("dns result %d has negative resolution time", i)
		}
	}
	return true, ""
}
