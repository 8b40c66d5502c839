package export

import (
	"fmt"
	"io"

	"git.sr.ht/~sbinet/gg"
	"golang.org/x/image/font/basicfont"

	"github.com/vanderheijden86/companyview/pkg/hierarchy"
)

// WriteWindowPNG renders the breadcrumb window to a PNG image using the
// same layout as WriteWindowSVG.
func WriteWindowPNG(out io.Writer, w hierarchy.Window) error {
	boxes, width, height := stripLayout(w)

	dc := gg.NewContext(int(width), int(height))
	dc.SetHexColor("#1E1F29")
	dc.Clear()
	dc.SetFontFace(basicfont.Face7x13)

	for i, b := range boxes {
		switch b.Kind {
		case boxSelected:
			dc.SetHexColor("#44475A")
		case boxPath:
			dc.SetHexColor("#282A36")
		}
		if b.Kind != boxMarker {
			dc.DrawRoundedRectangle(b.X, b.Y, b.W, b.H, 6)
			dc.Fill()
		}

		dc.DrawRoundedRectangle(b.X, b.Y, b.W, b.H, 6)
		if b.Kind == boxSelected {
			dc.SetHexColor("#50FA7B")
			dc.SetLineWidth(2.5)
		} else {
			dc.SetHexColor("#6272A4")
			dc.SetLineWidth(1.5)
		}
		dc.Stroke()

		cx := b.X + b.W/2
		dc.SetHexColor("#F8F8F2")
		dc.DrawStringAnchored(pngLabel(b.Label), cx, b.Y+16, 0.5, 0.5)
		dc.SetHexColor("#8BE9FD")
		dc.DrawStringAnchored(pngLabel(b.Sub), cx, b.Y+32, 0.5, 0.5)

		if i < len(boxes)-1 {
			y := b.Y + b.H/2
			x1 := b.X + b.W + 2
			x2 := boxes[i+1].X - 2
			dc.SetHexColor("#6272A4")
			dc.SetLineWidth(1.5)
			dc.DrawLine(x1, y, x2, y)
			dc.Stroke()
			dc.MoveTo(x2, y)
			dc.LineTo(x2-6, y-4)
			dc.LineTo(x2-6, y+4)
			dc.ClosePath()
			dc.Fill()
		}
	}

	if err := dc.EncodePNG(out); err != nil {
		return fmt.Errorf("encoding png: %w", err)
	}
	return nil
}

// pngLabel swaps the ellipsis for dots; basicfont only covers ASCII.
func pngLabel(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		if r == '…' {
			out = append(out, '.', '.', '.')
			continue
		}
		if r > 0x7e {
			r = '?'
		}
		out = append(out, r)
	}
	return string(out)
}
