// The layout package converts validated text plus font metrics into
// a line-by-line layout: per-line widths, baseline positions and the
// final canvas bounds. It performs no rasterization and no automatic
// word wrapping; lines are exactly what explicit '\n' characters say
// they are.
package layout

import "fmt"
import "math"
import "strings"

import "golang.org/x/image/font/sfnt"
import "golang.org/x/image/math/fixed"
import "golang.org/x/text/unicode/norm"

import xfont "golang.org/x/image/font"

import "github.com/kurinobu/StringSpotter/font"

// Transparent padding, in pixels, added around the text block on
// every side of the canvas.
const Margin = 16

// A single laid out line. X is the left edge of the line (lines are
// centered within the canvas, like the rendering this service grew
// out of), BaselineY the y coordinate glyphs sit on, and Width the
// advance width of the line in whole pixels.
type Line struct {
	Text      string
	X         int
	BaselineY int
	Width     int
}

// The computed layout for one render request. Width and Height are
// the canvas dimensions in pixels. A layout always contains at least
// one line; empty text is rejected before layout ever runs.
type Layout struct {
	Lines      []Line
	Width      int
	Height     int
	FontSize   int
	LineHeight float64
}

// Computes the layout of the given text at the given font size (in
// pixels per em) and line height multiplier. The vertical extents
// come from the asset's metrics, captured once at validation time
// and scaled here to the requested size.
//
// The text is NFC-normalized first so that combining sequences map
// to precomposed glyphs where the font has them; beyond that, the
// computation is a plain per-code-point advance and kern traversal,
// so identical inputs always produce identical layouts.
func Compute(asset *font.Asset, text string, fontSize int, lineHeight float64) (*Layout, error) {
	if asset == nil || asset.Font == nil {
		return nil, fmt.Errorf("layout: nil font")
	}
	if fontSize <= 0 {
		return nil, fmt.Errorf("layout: non-positive font size %d", fontSize)
	}
	if asset.Metrics.UnitsPerEm <= 0 {
		return nil, fmt.Errorf("layout: invalid units per em %d", asset.Metrics.UnitsPerEm)
	}
	if math.IsNaN(lineHeight) || math.IsInf(lineHeight, 0) || lineHeight <= 0 {
		return nil, fmt.Errorf("layout: invalid line height %g", lineHeight)
	}

	text = norm.NFC.String(text)
	lines := strings.Split(text, "\n")

	var buffer sfnt.Buffer
	size := fixed.I(fontSize)

	widths := make([]fixed.Int26_6, len(lines))
	var maxWidth fixed.Int26_6
	for i, line := range lines {
		width, err := lineWidth(asset.Font, &buffer, line, size)
		if err != nil { return nil, err }
		widths[i] = width
		if width > maxWidth { maxWidth = width }
	}

	ascent := scaleToPixels(asset.Metrics.Ascent, fontSize, asset.Metrics.UnitsPerEm)
	descent := scaleToPixels(asset.Metrics.Descent, fontSize, asset.Metrics.UnitsPerEm)
	lineAdvance := float64(fontSize) * lineHeight
	canvasWidth := maxWidth.Ceil() + 2*Margin
	canvasHeight := roundToInt(float64(len(lines)-1)*lineAdvance) + ascent + descent + 2*Margin

	result := &Layout{
		Lines:      make([]Line, len(lines)),
		Width:      canvasWidth,
		Height:     canvasHeight,
		FontSize:   fontSize,
		LineHeight: lineHeight,
	}
	for i, line := range lines {
		width := widths[i].Ceil()
		result.Lines[i] = Line{
			Text:      line,
			X:         (canvasWidth - width) / 2,
			BaselineY: Margin + ascent + roundToInt(float64(i)*lineAdvance),
			Width:     width,
		}
	}
	return result, nil
}

// Sums per-glyph advances and kerning for a single line. Code points
// missing from the font resolve to glyph index 0 (the font's notdef
// glyph), which still has a well defined advance.
func lineWidth(font *sfnt.Font, buffer *sfnt.Buffer, line string, size fixed.Int26_6) (fixed.Int26_6, error) {
	var width fixed.Int26_6
	var prevIndex sfnt.GlyphIndex
	firstGlyph := true
	for _, codePoint := range line {
		index, err := font.GlyphIndex(buffer, codePoint)
		if err != nil {
			return 0, fmt.Errorf("layout: glyph index for %q: %w", codePoint, err)
		}
		if !firstGlyph {
			width += kern(font, buffer, prevIndex, index, size)
		}
		advance, err := font.GlyphAdvance(buffer, index, size, xfont.HintingNone)
		if err != nil {
			return 0, fmt.Errorf("layout: glyph advance for %q: %w", codePoint, err)
		}
		width += advance
		prevIndex, firstGlyph = index, false
	}
	return width, nil
}

// Kern returns sfnt.ErrNotFound for most glyph pairs in most fonts;
// that simply means "no adjustment".
func kern(font *sfnt.Font, buffer *sfnt.Buffer, a, b sfnt.GlyphIndex, size fixed.Int26_6) fixed.Int26_6 {
	value, err := font.Kern(buffer, a, b, size, xfont.HintingNone)
	if err != nil { return 0 }
	return value
}

func roundToInt(value float64) int {
	return int(math.Round(value))
}

// Converts a font-unit length to whole pixels at the given size,
// rounding up so glyph extremes stay inside the canvas.
func scaleToPixels(units, fontSize, unitsPerEm int) int {
	return int(math.Ceil(float64(units) * float64(fontSize) / float64(unitsPerEm)))
}
