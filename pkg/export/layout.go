package export

import (
	"fmt"

	"github.com/mattn/go-runewidth"

	"github.com/vanderheijden86/companyview/pkg/hierarchy"
)

// Dimensions of the breadcrumb strip drawn by the SVG and PNG writers.
const (
	boxWidth    = 170.0
	boxHeight   = 44.0
	markerWidth = 56.0
	gap         = 28.0
	margin      = 16.0
	labelWidth  = 22 // terminal cells
)

type boxKind int

const (
	boxPath boxKind = iota
	boxSelected
	boxMarker
)

type box struct {
	X, Y, W, H float64
	Label      string
	Sub        string
	Kind       boxKind
}

// stripLayout positions one box per visible company, plus a marker box at
// either end for levels hidden outside the window.
func stripLayout(w hierarchy.Window) (boxes []box, width, height float64) {
	x := margin
	add := func(b box) {
		b.X, b.Y = x, margin
		if b.W == 0 {
			b.W = boxWidth
		}
		b.H = boxHeight
		boxes = append(boxes, b)
		x += b.W + gap
	}

	if w.HasMoreAbove {
		add(box{W: markerWidth, Label: "…", Sub: fmt.Sprintf("+%d", w.HiddenAbove()), Kind: boxMarker})
	}
	for i, c := range w.Visible() {
		kind := boxPath
		if w.Start+i == w.SelectedIndex {
			kind = boxSelected
		}
		sub := c.RelationshipType.Label()
		if sub == "" {
			sub = fmt.Sprintf("#%d", c.ID)
		}
		add(box{Label: runewidth.Truncate(c.Name, labelWidth, "…"), Sub: sub, Kind: kind})
	}
	if w.HasMoreBelow {
		add(box{W: markerWidth, Label: "…", Sub: fmt.Sprintf("+%d", w.HiddenBelow()), Kind: boxMarker})
	}

	if len(boxes) == 0 {
		return nil, 2 * margin, 2 * margin
	}
	return boxes, x - gap + margin, boxHeight + 2*margin
}
