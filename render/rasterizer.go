package render

import "image"
import "image/draw"

import "golang.org/x/image/vector"
import "golang.org/x/image/math/fixed"
import "golang.org/x/image/font/sfnt"

// glyphRasterizer wraps [golang.org/x/image/vector.Rasterizer] to
// turn sfnt glyph outlines into anti-aliased alpha masks.
//
// The x/image/vector rasterizer expects coords in the positive
// quadrant, which is why there are so many offsets here: outlines
// are normalized into the positive plane for rasterization and the
// resulting mask rect is translated back afterwards, so that mask
// coordinates stay relative to the glyph origin (y = 0 at the
// baseline, y < 0 ascending, y > 0 descending).
//
// A glyphRasterizer must not be used concurrently.
type glyphRasterizer struct {
	rasterizer vector.Rasterizer
	normOffset fixed.Point26_6
	rectOffset image.Point
}

func (self *glyphRasterizer) moveTo(point fixed.Point26_6) {
	x, y := self.fixedToFloat32Coords(point)
	self.rasterizer.MoveTo(x, y)
}

func (self *glyphRasterizer) lineTo(point fixed.Point26_6) {
	x, y := self.fixedToFloat32Coords(point)
	self.rasterizer.LineTo(x, y)
}

func (self *glyphRasterizer) quadTo(control, target fixed.Point26_6) {
	cx, cy := self.fixedToFloat32Coords(control)
	tx, ty := self.fixedToFloat32Coords(target)
	self.rasterizer.QuadTo(cx, cy, tx, ty)
}

func (self *glyphRasterizer) cubeTo(controlA, controlB, target fixed.Point26_6) {
	cax, cay := self.fixedToFloat32Coords(controlA)
	cbx, cby := self.fixedToFloat32Coords(controlB)
	tx, ty := self.fixedToFloat32Coords(target)
	self.rasterizer.CubeTo(cax, cay, cbx, cby, tx, ty)
}

func (self *glyphRasterizer) fixedToFloat32Coords(point fixed.Point26_6) (float32, float32) {
	x := float32(point.X+self.normOffset.X) / 64
	y := float32(point.Y+self.normOffset.Y) / 64
	return x, y
}

// Rasterizes the given outline to an alpha mask, drawn at the given
// fractional pixel position (only the lowest six bits of the coords
// are considered). Returns nil if the outline contains no lines or
// curves (space glyphs and the like).
func (self *glyphRasterizer) rasterize(outline sfnt.Segments, fract fixed.Point26_6) *image.Alpha {
	somethingToDraw := false
	for _, segment := range outline {
		if segment.Op != sfnt.SegmentOpMoveTo {
			somethingToDraw = true
			break
		}
	}
	if !somethingToDraw { return nil }

	fract.X = fract.X & 63
	fract.Y = fract.Y & 63

	// prepare rasterizer
	var size image.Point
	size, self.normOffset, self.rectOffset = figureOutBounds(outline.Bounds(), fract)
	self.rasterizer.Reset(size.X, size.Y)
	self.rasterizer.DrawOp = draw.Src

	// process the outline
	for _, segment := range outline {
		switch segment.Op {
		case sfnt.SegmentOpMoveTo:
			self.moveTo(segment.Args[0])
		case sfnt.SegmentOpLineTo:
			self.lineTo(segment.Args[0])
		case sfnt.SegmentOpQuadTo:
			self.quadTo(segment.Args[0], segment.Args[1])
		case sfnt.SegmentOpCubeTo:
			self.cubeTo(segment.Args[0], segment.Args[1], segment.Args[2])
		}
	}

	// since the source texture is a uniform (an image that returns the same
	// color for any coordinate), the value of the point at which we want to
	// start sampling the texture (the fourth parameter) is unimportant.
	mask := image.NewAlpha(self.rasterizer.Bounds())
	self.rasterizer.Draw(mask, mask.Bounds(), image.Opaque, image.Point{})

	// translate the mask to its final position
	mask.Rect = mask.Rect.Add(self.rectOffset)
	return mask
}

// Given some glyph bounds and a fractional pixel position, figures
// out what integer size must be used to fit the bounds, what
// normalization offset must be applied to keep the coordinates in
// the positive plane, and what final offset must be applied to the
// mask to align its bounds to the glyph origin.
func figureOutBounds(bounds fixed.Rectangle26_6, fract fixed.Point26_6) (image.Point, fixed.Point26_6, image.Point) {
	floorMinX := floorFixed(bounds.Min.X)
	floorMinY := floorFixed(bounds.Min.Y)
	var maskCorrection image.Point
	maskCorrection.X = int(floorMinX >> 6)
	maskCorrection.Y = int(floorMinY >> 6)

	var normOffset fixed.Point26_6
	normOffset.X = -floorMinX + fract.X
	normOffset.Y = -floorMinY + fract.Y
	width := (bounds.Max.X + normOffset.X).Ceil()
	height := (bounds.Max.Y + normOffset.Y).Ceil()
	return image.Pt(width, height), normOffset, maskCorrection
}

func floorFixed(value fixed.Int26_6) fixed.Int26_6 {
	return value &^ 63
}
