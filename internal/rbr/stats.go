package rbr

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Stats summarises the valid pixels of a ratio.
type Stats struct {
	Count  int     `json:"count"`
	Min    float64 `json:"min"`
	P5     float64 `json:"p5"`
	Median float64 `json:"median"`
	Mean   float64 `json:"mean"`
	P95    float64 `json:"p95"`
	Max    float64 `json:"max"`
}

func (s Stats) String() string {
	if s.Count == 0 {
		return "no valid pixels"
	}
	return fmt.Sprintf("min=%.4f p5=%.4f med=%.4f p95=%.4f max=%.4f n=%d",
		s.Min, s.P5, s.Median, s.P95, s.Max, s.Count)
}

// Summarize computes order statistics over the valid pixels.
func Summarize(r *Ratio) Stats {
	vals := make([]float64, 0, len(r.Data))
	for i, v := range r.Data {
		if r.Valid[i] {
			vals = append(vals, v)
		}
	}
	if len(vals) == 0 {
		return Stats{}
	}
	sort.Float64s(vals)

	return Stats{
		Count:  len(vals),
		Min:    floats.Min(vals),
		P5:     stat.Quantile(0.05, stat.Empirical, vals, nil),
		Median: stat.Quantile(0.5, stat.Empirical, vals, nil),
		Mean:   stat.Mean(vals, nil),
		P95:    stat.Quantile(0.95, stat.Empirical, vals, nil),
		Max:    floats.Max(vals),
	}
}
