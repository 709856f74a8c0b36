package netprobe

import (
	"math"
	"sort"
	"strings"
	"time"
)

func splitSelection(selection string) []string {
	value := strings.TrimSpace(strings.ToLower(selection))
	if value == "" || value == "all" {
		return nil
	}
	items := strings.Split(value, ",")
	names := make([]string, 0, len(items))
	for _, item := range items {
		name := strings.TrimSpace(strings.ToLower(item))
		if name == "" {
			continue
		}
		names = append(names, name)
	}
	return names
}

func millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func stddev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	mean := 0.0
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))
	variance := 0.0
	for _, v := range values {
		d := v - mean
		variance += d * d
	}
	variance /= float64(len(values))
	return math.Sqrt(variance)
}

func minMaxAvg(values []float64) (min, max, avg float64) {
	if len(values) == 0 {
		return 0, 0, 0
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	total := 0.0
	for _, v := range sorted {
		total += v
	}
	return sorted[0], sorted[len(sorted)-1], total / float64(len(sorted))
}
