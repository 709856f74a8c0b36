package netprobe

import "context"

// Probe measures one property of the network and returns its typed payload.
// Implementations must be safe to call from concurrent runs; the low-level
// protocol work is delegated to the probing libraries.
type Probe interface {
	Kind() Kind
	Run(ctx context.Context, cfg RunConfig) (*Data, error)
}

func AvailableProbes() []Probe {
	return []Probe{
		LatencyProbe{},
		JitterProbe{},
		LossProbe{},
		ThroughputProbe{},
		DNSProbe{},
	}
}

// ResolveKinds parses a comma-separated selection like "latency,dns" into
// probe kinds. Empty or "all" selects every kind; unknown names are kept so
// the orchestrator can report them instead of silently dropping them.
func ResolveKinds(selection string) []Kind {
	names := splitSelection(selection)
	if names == nil {
		return AllKinds()
	}
	kinds := make([]Kind, 0, len(names))
	for _, name := range names {
		kinds = append(kinds, Kind(name))
	}
	return kinds
}
