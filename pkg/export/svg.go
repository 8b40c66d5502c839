package export

import (
	"fmt"
	"io"

	svg "github.com/ajstarks/svgo"

	"github.com/vanderheijden86/companyview/pkg/hierarchy"
)

var svgStyles = map[boxKind]string{
	boxPath:     "fill:#282A36;stroke:#6272A4;stroke-width:1.5",
	boxSelected: "fill:#44475A;stroke:#50FA7B;stroke-width:2.5",
	boxMarker:   "fill:none;stroke:#6272A4;stroke-dasharray:4,3",
}

// WriteWindowSVG draws the breadcrumb window as a horizontal strip of boxes
// joined by arrows.
func WriteWindowSVG(out io.Writer, w hierarchy.Window) error {
	boxes, width, height := stripLayout(w)

	ew := &errWriter{w: out}
	canvas := svg.New(ew)
	canvas.Start(int(width), int(height))
	canvas.Rect(0, 0, int(width), int(height), "fill:#1E1F29")

	for i, b := range boxes {
		canvas.Roundrect(int(b.X), int(b.Y), int(b.W), int(b.H), 6, 6, svgStyles[b.Kind])
		cx := int(b.X + b.W/2)
		canvas.Text(cx, int(b.Y+18), b.Label, "fill:#F8F8F2;font-family:monospace;font-size:13px;text-anchor:middle")
		canvas.Text(cx, int(b.Y+34), b.Sub, "fill:#8BE9FD;font-family:monospace;font-size:10px;text-anchor:middle")

		if i < len(boxes)-1 {
			y := int(b.Y + b.H/2)
			x1 := int(b.X + b.W)
			x2 := int(boxes[i+1].X)
			canvas.Line(x1+2, y, x2-2, y, "stroke:#6272A4;stroke-width:1.5")
			canvas.Polygon([]int{x2 - 2, x2 - 8, x2 - 8}, []int{y, y - 4, y + 4}, "fill:#6272A4")
		}
	}

	canvas.End()
	if ew.err != nil {
		return fmt.Errorf("writing svg: %w", ew.err)
	}
	return nil
}

// errWriter remembers the first write error; svgo does not report them.
type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) Write(p []byte) (int, error) {
	if e.err != nil {
		return 0, e.err
	}
	n, err := e.w.Write(p)
	e.err = err
	return n, err
}
