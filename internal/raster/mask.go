package raster

// Mask is a boolean grid. True marks a pixel to exclude.
type Mask struct {
	Width  int
	Height int
	Bits   []bool
}

// NewMask allocates an all-false mask.
func NewMask(width, height int) *Mask {
	return &Mask{Width: width, Height: height, Bits: make([]bool, width*height)}
}

// At reports whether (x, y) is set.
func (m *Mask) At(x, y int) bool {
	return m.Bits[y*m.Width+x]
}

// Set marks (x, y).
func (m *Mask) Set(x, y int, v bool) {
	m.Bits[y*m.Width+x] = v
}

// Count returns the number of set pixels.
func (m *Mask) Count() int {
	n := 0
	for _, v := range m.Bits {
		if v {
			n++
		}
	}
	return n
}

// Or returns a new mask set wherever m or any of others is set. Nil
// entries in others are ignored.
func (m *Mask) Or(others ...*Mask) (*Mask, error) {
	out := &Mask{Width: m.Width, Height: m.Height, Bits: append([]bool(nil), m.Bits...)}
	for _, o := range others {
		if o == nil {
			continue
		}
		if o.Width != m.Width || o.Height != m.Height {
			return nil, &ShapeMismatchError{
				Path:   "mask",
				Want:   dims(m.Width, m.Height),
				Got:    dims(o.Width, o.Height),
				Detail: "mask shape",
			}
		}
		for i, v := range o.Bits {
			if v {
				out.Bits[i] = true
			}
		}
	}
	return out, nil
}
