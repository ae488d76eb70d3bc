package burnmask

import (
	"burnscar/internal/rbr"
)

// Result is the cleaned burn mask with its provenance.
type Result struct {
	Mask      *Mask
	Selection Selection
	Raw       Counts // before cleanup
	Final     Counts
	Clean     CleanStats
}

// Detect classifies the ratios and cleans the resulting mask.
func Detect(res *rbr.Result, p Params) (*Result, error) {
	raw, sel, err := Classify(res, p)
	if err != nil {
		return nil, err
	}
	cleaned, stats := Clean(raw, p)
	return &Result{
		Mask:      cleaned,
		Selection: sel,
		Raw:       raw.Counts(),
		Final:     cleaned.Counts(),
		Clean:     stats,
	}, nil
}
