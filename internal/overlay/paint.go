package overlay

import (
	"image"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/gogpu/gg"
	"github.com/gogpu/gg/text"

	"github.com/tuxx/shaderlock/internal/render"
)

// Layout constants in pixels.
const (
	outerPadding = 25
	boxPadding   = 10
	fieldWidth   = 300
	fieldPadding = 5
	iconSize     = 15
	spacing      = 5
	boxRadius    = 6
)

const maskRune = "•"

type box struct{ x, y, w, h float64 }

// layout positions the prompt. panel is in surface coordinates; the other
// boxes are relative to the panel.
type layout struct {
	panel       image.Rectangle
	clockAscent float64
	clock       box
	field       hitBox
	caps        box
	toggle      hitBox
	fieldAscent float64
}

// hitBox is a panel-relative box that also knows the panel origin, so it
// can be tested against surface coordinates.
type hitBox struct {
	box
	ox, oy float64
}

func (b hitBox) contains(x, y float64) bool {
	x -= b.ox
	y -= b.oy
	return b.w > 0 && x >= b.x && x < b.x+b.w && y >= b.y && y < b.y+b.h
}

func computeLayout(width, height int, fonts *Fonts) layout {
	clockAscent, clockHeight := lineHeight(fonts.clock, clockSize*1.25)
	fieldAscent, fieldText := lineHeight(fonts.field, fieldSize*1.25)
	fieldHeight := fieldText + 2*fieldPadding

	w := 2*boxPadding + fieldWidth + 2*(spacing+iconSize)
	h := int(math.Ceil(2*boxPadding + clockHeight + spacing + fieldHeight))

	x0 := outerPadding
	y0 := height - outerPadding - h
	if y0 < 0 {
		y0 = 0
	}
	if x0+w > width {
		x0 = 0
	}

	var l layout
	l.panel = image.Rect(x0, y0, x0+w, y0+h)
	ox, oy := float64(x0), float64(y0)

	l.clockAscent = clockAscent
	l.fieldAscent = fieldAscent
	l.clock = box{x: boxPadding, y: boxPadding, w: fieldWidth, h: clockHeight}

	rowY := boxPadding + clockHeight + spacing
	l.field = hitBox{box: box{x: boxPadding, y: rowY, w: fieldWidth, h: fieldHeight}, ox: ox, oy: oy}
	iconY := rowY + (fieldHeight-iconSize)/2
	l.caps = box{x: boxPadding + fieldWidth + spacing, y: iconY, w: iconSize, h: iconSize}
	l.toggle = hitBox{
		box: box{x: l.caps.x + iconSize + spacing, y: iconY, w: iconSize, h: iconSize},
		ox:  ox,
		oy:  oy,
	}
	return l
}

// Paint draws the prompt into its panel and blends it onto f.
func (a *Adapter) Paint(f *render.Frame) error {
	if a.dc == nil {
		return nil
	}
	if err := f.Validate(); err != nil {
		return err
	}
	a.draw()
	blendOver(f, a.layout.panel.Min.X, a.layout.panel.Min.Y, a.pixmap.Data(), a.pixmap.Width(), a.pixmap.Height())
	return nil
}

func (a *Adapter) draw() {
	dc := a.dc
	l := &a.layout
	dc.Clear()

	dc.SetRGBA(1.0/255, 4.0/255, 11.0/255, 0.7)
	dc.DrawRoundedRectangle(0, 0, float64(a.pixmap.Width()), float64(a.pixmap.Height()), boxRadius)
	_ = dc.Fill()

	alpha := 1.0
	running := a.worker.Running()
	if running {
		alpha = 0.45
	}

	now := a.now()
	if a.fonts.clock != nil {
		dc.SetFont(a.fonts.clock)
		dc.SetRGBA(1, 1, 1, 1)
		dc.DrawString(now.Format("15:04:05"), l.clock.x, l.clock.y+l.clockAscent)
	}

	fb := l.field.box
	dc.SetRGBA(1, 1, 1, 0.08*alpha)
	dc.DrawRoundedRectangle(fb.x, fb.y, fb.w, fb.h, 3)
	_ = dc.Fill()
	if a.focused {
		dc.SetRGBA(1, 1, 1, 0.5*alpha)
		dc.SetLineWidth(1)
		dc.DrawRoundedRectangle(fb.x+0.5, fb.y+0.5, fb.w-1, fb.h-1, 3)
		_ = dc.Stroke()
	}

	if a.fonts.field != nil {
		dc.SetFont(a.fonts.field)
		baseline := fb.y + fieldPadding + l.fieldAscent
		inner := fb.w - 2*fieldPadding
		if len(a.password) == 0 {
			dc.SetRGBA(1, 1, 1, 0.55*alpha)
			dc.DrawString(Placeholder, fb.x+fieldPadding, baseline)
		} else {
			shown := fitTail(a.fieldText(), inner, a.fonts.field)
			dc.SetRGBA(1, 1, 1, alpha)
			dc.DrawString(shown, fb.x+fieldPadding, baseline)
			if a.focused && !running && now.UnixMilli()/500%2 == 0 {
				cx := fb.x + fieldPadding + a.fonts.field.Advance(shown) + 1
				dc.DrawLine(cx, fb.y+fieldPadding, cx, fb.y+fb.h-fieldPadding)
				_ = dc.Stroke()
			}
		}
	}

	if a.CapsIndicator() {
		drawCapsIcon(dc, l.caps)
	}
	drawEyeIcon(dc, l.toggle.box, a.hidden)
}

func (a *Adapter) fieldText() string {
	if a.hidden {
		return strings.Repeat(maskRune, len(a.password))
	}
	return string(a.password)
}

// fitTail drops leading runes until s fits in width.
func fitTail(s string, width float64, face text.Face) string {
	if face == nil {
		return s
	}
	for s != "" && face.Advance(s) > width {
		_, size := utf8.DecodeRuneInString(s)
		s = s[size:]
	}
	return s
}

// drawCapsIcon draws an up arrow over a bar.
func drawCapsIcon(dc *gg.Context, b box) {
	dc.SetRGBA(1, 1, 1, 1)
	cx := b.x + b.w/2
	dc.MoveTo(cx, b.y)
	dc.LineTo(b.x+b.w, b.y+b.h*0.55)
	dc.LineTo(b.x+b.w*0.7, b.y+b.h*0.55)
	dc.LineTo(b.x+b.w*0.7, b.y+b.h*0.75)
	dc.LineTo(b.x+b.w*0.3, b.y+b.h*0.75)
	dc.LineTo(b.x+b.w*0.3, b.y+b.h*0.55)
	dc.LineTo(b.x, b.y+b.h*0.55)
	dc.ClosePath()
	_ = dc.Fill()
	dc.DrawRectangle(b.x+b.w*0.3, b.y+b.h*0.85, b.w*0.4, b.h*0.15)
	_ = dc.Fill()
}

// drawEyeIcon draws an eye, crossed out while the password is masked.
func drawEyeIcon(dc *gg.Context, b box, crossed bool) {
	cx, cy := b.x+b.w/2, b.y+b.h/2
	dc.SetRGBA(1, 1, 1, 1)
	dc.SetLineWidth(1.5)
	dc.DrawCircle(cx, cy, b.w/2-1)
	_ = dc.Stroke()
	dc.DrawCircle(cx, cy, b.w/6)
	_ = dc.Fill()
	if crossed {
		dc.DrawLine(b.x+1, b.y+b.h-1, b.x+b.w-1, b.y+1)
		_ = dc.Stroke()
	}
}
