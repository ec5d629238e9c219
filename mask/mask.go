// Package mask derives the boolean visibility grid from the engine's byte
// raster and intersects it with the circular max-distance constraint.
package mask

import (
	"fmt"
	"image"
	"image/color"
	"io"
	"sort"

	"github.com/mi-v/img1b"
	"github.com/mi-v/img1b/png"
)

// Visible is the engine's byte value for a visible cell; everything else
// counts as not visible.
const Visible = 255

// Mask is the per-pixel visibility grid for one viewshed result.
type Mask struct {
	w, h    int
	vis     []bool
	inRange []bool // nil when no max-distance circle applies
	strays  map[byte]int
}

// New builds a mask from a single-band byte raster in row-major order.
// Bytes outside {0, 255} are recorded as strays and treated as not visible.
func New(data []byte, w, h int) (*Mask, error) {
	if w <= 0 || h <= 0 || len(data) != w*h {
		return nil, fmt.Errorf("raster is %d bytes, want %dx%d", len(data), w, h)
	}
	m := &Mask{
		w:      w,
		h:      h,
		vis:    make([]bool, len(data)),
		strays: make(map[byte]int),
	}
	for i, b := range data {
		switch b {
		case Visible:
			m.vis[i] = true
		case 0:
		default:
			m.strays[b]++
		}
	}
	return m, nil
}

func (m *Mask) Size() (w, h int) {
	return m.w, m.h
}

// StrayValues returns the distinct byte values seen outside {0, 255}.
func (m *Mask) StrayValues() []int {
	vals := make([]int, 0, len(m.strays))
	for b := range m.strays {
		vals = append(vals, int(b))
	}
	sort.Ints(vals)
	return vals
}

// IntersectCircle restricts the mask to pixels whose center lies within
// radiusPx of the observer pixel (Euclidean distance in pixel units).
func (m *Mask) IntersectCircle(col, row int, radiusPx float64) {
	m.inRange = make([]bool, len(m.vis))
	r2 := radiusPx * radiusPx
	for y := 0; y < m.h; y++ {
		dy := float64(y - row)
		for x := 0; x < m.w; x++ {
			dx := float64(x - col)
			m.inRange[y*m.w+x] = dx*dx+dy*dy <= r2
		}
	}
}

// Visible reports whether the pixel is visible and within range.
func (m *Mask) Visible(col, row int) bool {
	if col < 0 || col >= m.w || row < 0 || row >= m.h {
		return false
	}
	i := row*m.w + col
	return m.vis[i] && (m.inRange == nil || m.inRange[i])
}

// Stats returns the visible pixel count, the analyzed pixel count (all
// pixels, or those within the circle), and the coverage percentage.
func (m *Mask) Stats() (visible, analyzed int, coverage float64) {
	for i := range m.vis {
		if m.inRange != nil && !m.inRange[i] {
			continue
		}
		analyzed++
		if m.vis[i] {
			visible++
		}
	}
	if analyzed > 0 {
		coverage = float64(visible) / float64(analyzed) * 100
	}
	return visible, analyzed, coverage
}

// Bytes renders the effective mask as one byte per pixel, 1 for visible
// within range, 0 otherwise. This is the polygonizer's input.
func (m *Mask) Bytes() []byte {
	out := make([]byte, len(m.vis))
	for i := range m.vis {
		if m.vis[i] && (m.inRange == nil || m.inRange[i]) {
			out[i] = 1
		}
	}
	return out
}

// EncodePNG writes the effective mask as a 1-bit PNG, white for visible.
func (m *Mask) EncodePNG(w io.Writer) error {
	stride := (m.w + 7) / 8
	pix := make([]byte, stride*m.h)
	for y := 0; y < m.h; y++ {
		for x := 0; x < m.w; x++ {
			if m.Visible(x, y) {
				pix[y*stride+x/8] |= 0x80 >> (x % 8)
			}
		}
	}
	return png.Encode(w, &img1b.Image{
		Pix:    pix,
		Stride: stride,
		Rect:   image.Rect(0, 0, m.w, m.h),
		Palette: color.Palette{
			color.Black,
			color.White,
		},
	})
}
