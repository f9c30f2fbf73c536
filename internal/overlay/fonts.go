package overlay

import (
	"fmt"
	"sync"

	"github.com/gogpu/gg/text"
	"golang.org/x/image/font/gofont/goregular"
)

// Font sizes in points.
const (
	clockSize = 32
	fieldSize = 12
)

// Fonts holds the two faces the prompt uses.
type Fonts struct {
	clock text.Face
	field text.Face
}

// NewFonts parses a TrueType or OpenType font.
func NewFonts(data []byte) (*Fonts, error) {
	src, err := text.NewFontSource(data)
	if err != nil {
		return nil, fmt.Errorf("parse font: %w", err)
	}
	return &Fonts{clock: src.Face(clockSize), field: src.Face(fieldSize)}, nil
}

// LoadFonts reads and parses the font at path.
func LoadFonts(path string) (*Fonts, error) {
	src, err := text.NewFontSourceFromFile(path)
	if err != nil {
		return nil, err
	}
	return &Fonts{clock: src.Face(clockSize), field: src.Face(fieldSize)}, nil
}

var defaultFonts = sync.OnceValue(func() *Fonts {
	f, err := NewFonts(goregular.TTF)
	if err != nil {
		// The prompt still works without text; boxes and icons are drawn.
		return &Fonts{}
	}
	return f
})

// DefaultFonts returns faces of the embedded Go Regular font.
func DefaultFonts() *Fonts { return defaultFonts() }

func lineHeight(f text.Face, fallback float64) (ascent, height float64) {
	if f == nil {
		return fallback * 0.8, fallback
	}
	m := f.Metrics()
	return m.Ascent, m.Ascent + m.Descent
}
