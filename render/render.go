// The render package rasterizes a computed layout onto a fully
// transparent RGBA canvas and encodes the result as a PNG byte
// stream. Glyph coverage becomes the alpha channel: edge pixels get
// partial alpha proportional to anti-aliased coverage, interiors are
// fully opaque, and everything else stays transparent. No background
// is ever painted in.
package render

import "bytes"
import "context"
import "errors"
import "fmt"
import "image"
import "image/color"
import "image/draw"
import "image/png"

import "golang.org/x/image/font/sfnt"
import "golang.org/x/image/math/fixed"

import xfont "golang.org/x/image/font"

import "github.com/kurinobu/StringSpotter/layout"

// Reported when a glyph outline can't be loaded or rasterized. The
// wrapped detail is for logs; callers should show a generic message.
var ErrRasterization = errors.New("glyph rasterization failed")

// Rasterizes the given layout with the given opaque color and
// returns the PNG-encoded image. The canvas starts fully transparent
// and only glyph coverage introduces alpha.
//
// The context is checked between lines; once it is cancelled the
// canvas is abandoned and an error returned. A partially drawn image
// is never returned.
func Render(ctx context.Context, font *sfnt.Font, computed *layout.Layout, clr color.RGBA) ([]byte, error) {
	if computed == nil || len(computed.Lines) == 0 {
		return nil, fmt.Errorf("%w: empty layout", ErrRasterization)
	}
	clr.A = 0xFF // requested colors are opaque by contract

	canvas := image.NewRGBA(image.Rect(0, 0, computed.Width, computed.Height))
	src := image.NewUniform(clr)
	size := fixed.I(computed.FontSize)

	var buffer sfnt.Buffer
	var rasterizer glyphRasterizer
	for _, line := range computed.Lines {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("render abandoned: %w", err)
		}
		err := drawLine(canvas, src, font, &buffer, &rasterizer, line, size)
		if err != nil {
			return nil, err
		}
	}

	var encoded bytes.Buffer
	err := png.Encode(&encoded, canvas)
	if err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return encoded.Bytes(), nil
}

// Draws a single line, advancing a fractional dot glyph by glyph and
// compositing each glyph mask over the canvas with the uniform color
// source. The advance and kern math mirrors the layout computation,
// so the line lands exactly within the width the layout reserved.
func drawLine(canvas *image.RGBA, src image.Image, font *sfnt.Font, buffer *sfnt.Buffer, rasterizer *glyphRasterizer, line layout.Line, size fixed.Int26_6) error {
	dot := fixed.P(line.X, line.BaselineY)
	var prevIndex sfnt.GlyphIndex
	firstGlyph := true
	for _, codePoint := range line.Text {
		index, err := font.GlyphIndex(buffer, codePoint)
		if err != nil {
			return fmt.Errorf("%w: glyph index for %q: %v", ErrRasterization, codePoint, err)
		}
		if !firstGlyph {
			kern, err := font.Kern(buffer, prevIndex, index, size, xfont.HintingNone)
			if err == nil { dot.X += kern }
		}

		outline, err := font.LoadGlyph(buffer, index, size, nil)
		if err != nil {
			return fmt.Errorf("%w: load glyph for %q: %v", ErrRasterization, codePoint, err)
		}
		mask := rasterizer.rasterize(outline, fixed.Point26_6{X: dot.X & 63, Y: dot.Y & 63})
		if mask != nil {
			target := mask.Rect.Add(image.Pt(dot.X.Floor(), dot.Y.Floor()))
			draw.DrawMask(canvas, target, src, image.Point{}, mask, mask.Rect.Min, draw.Over)
		}

		advance, err := font.GlyphAdvance(buffer, index, size, xfont.HintingNone)
		if err != nil {
			return fmt.Errorf("%w: glyph advance for %q: %v", ErrRasterization, codePoint, err)
		}
		dot.X += advance
		prevIndex, firstGlyph = index, false
	}
	return nil
}
