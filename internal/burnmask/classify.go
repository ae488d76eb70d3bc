// Package burnmask turns relative-burn-ratio rasters into a three-class
// burn mask and cleans it with connected-component morphology.
package burnmask

import (
	"fmt"

	"burnscar/internal/rbr"
	"burnscar/internal/raster"
)

// Class is the label of one burn-mask pixel.
type Class uint8

const (
	Unburned Class = 0
	Burned   Class = 1
	Excluded Class = 255 // not analysed: confounder or no-data
)

func (c Class) String() string {
	switch c {
	case Unburned:
		return "unburned"
	case Burned:
		return "burned"
	case Excluded:
		return "excluded"
	default:
		return fmt.Sprintf("class(%d)", uint8(c))
	}
}

// Mask is a classified grid.
type Mask struct {
	Width   int
	Height  int
	Classes []Class
}

// NewMask allocates a mask with every pixel Unburned.
func NewMask(width, height int) *Mask {
	return &Mask{Width: width, Height: height, Classes: make([]Class, width*height)}
}

// Clone returns a deep copy.
func (m *Mask) Clone() *Mask {
	return &Mask{Width: m.Width, Height: m.Height, Classes: append([]Class(nil), m.Classes...)}
}

// At returns the class at (x, y).
func (m *Mask) At(x, y int) Class {
	return m.Classes[y*m.Width+x]
}

// Counts holds per-class pixel totals.
type Counts struct {
	Burned   int `json:"burned"`
	Unburned int `json:"unburned"`
	Excluded int `json:"excluded"`
}

// Counts tallies pixels per class.
func (m *Mask) Counts() Counts {
	var c Counts
	for _, v := range m.Classes {
		switch v {
		case Burned:
			c.Burned++
		case Unburned:
			c.Unburned++
		default:
			c.Excluded++
		}
	}
	return c
}

// Selection is the rule and bands actually used for a classification.
type Selection struct {
	Rule  Rule
	Bands []raster.Polarization
}

// Select resolves the configured rule against the available ratios.
func Select(res *rbr.Result, p Params) (Selection, error) {
	avail := res.Polarizations()
	has := func(pol raster.Polarization) bool {
		_, ok := res.Ratios[pol]
		return ok
	}

	// An explicit band implies the single rule.
	rule := p.Rule
	if rule == RuleAuto {
		if p.Band == "" && has(raster.VV) && has(raster.VH) {
			rule = RuleOr
		} else {
			rule = RuleSingle
		}
	}

	switch rule {
	case RuleSingle:
		band := p.Band
		if band == "" {
			band = raster.VH
			if !has(band) {
				band = raster.VV
			}
		}
		if !has(band) {
			return Selection{}, &raster.BandMismatchError{Path: "RBR", Want: band, Have: avail}
		}
		return Selection{Rule: RuleSingle, Bands: []raster.Polarization{band}}, nil
	case RuleAnd, RuleOr:
		for _, pol := range raster.Polarizations {
			if !has(pol) {
				return Selection{}, &raster.BandMismatchError{Path: "RBR", Want: pol, Have: avail}
			}
		}
		return Selection{Rule: rule, Bands: raster.Polarizations}, nil
	}
	return Selection{}, fmt.Errorf("unknown band-combination rule %q", rule)
}

// Classify thresholds the ratios. Confounder pixels, and pixels lacking a
// valid ratio in a band the rule needs, are Excluded and never labelled
// burned or unburned.
func Classify(res *rbr.Result, p Params) (*Mask, Selection, error) {
	if err := p.Validate(); err != nil {
		return nil, Selection{}, err
	}
	sel, err := Select(res, p)
	if err != nil {
		return nil, Selection{}, err
	}

	w, h := res.Grid.Width, res.Grid.Height
	ratios := make([]*rbr.Ratio, len(sel.Bands))
	thresholds := make([]float64, len(sel.Bands))
	for i, pol := range sel.Bands {
		ratios[i] = res.Ratios[pol]
		thresholds[i] = p.ThresholdFor(pol)
	}

	out := NewMask(w, h)
	for i := range out.Classes {
		if res.Confounders != nil && res.Confounders.Bits[i] {
			out.Classes[i] = Excluded
			continue
		}

		valid, crossed := 0, 0
		for k, r := range ratios {
			if !r.Valid[i] {
				continue
			}
			valid++
			if r.Data[i] <= thresholds[k] {
				crossed++
			}
		}

		switch sel.Rule {
		case RuleAnd:
			// both bands must be valid
			switch {
			case valid < len(ratios):
				out.Classes[i] = Excluded
			case crossed == len(ratios):
				out.Classes[i] = Burned
			}
		default:
			// single, or: any valid band decides
			switch {
			case valid == 0:
				out.Classes[i] = Excluded
			case crossed > 0:
				out.Classes[i] = Burned
			}
		}
	}
	return out, sel, nil
}
