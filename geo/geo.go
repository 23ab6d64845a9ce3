// Package geo holds the geometric primitives shared by every stage of the
// redaction pipeline: points and rectangles in PDF point space (origin at the
// lower-left corner of the page), affine matrices for content stream
// interpretation, and the pixel/point mapping used to translate OCR output
// back onto a page.
package geo

import (
	"fmt"
	"image"
	"math"
)

// Point is a location in PDF point space.
type Point struct {
	X, Y float64
}

// Rect is an axis-aligned rectangle in PDF point space with a bottom-left
// origin. A well-formed rectangle satisfies X0 <= X1 and Y0 <= Y1.
type Rect struct {
	X0, Y0, X1, Y1 float64
}

// NewRect builds a normalized rectangle from two corner points in any order.
func NewRect(x0, y0, x1, y1 float64) Rect {
	if x0 > x1 {
		x0, x1 = x1, x0
	}
	if y0 > y1 {
		y0, y1 = y1, y0
	}
	return Rect{X0: x0, Y0: y0, X1: x1, Y1: y1}
}

func (r Rect) Width() float64  { return r.X1 - r.X0 }
func (r Rect) Height() float64 { return r.Y1 - r.Y0 }
func (r Rect) Area() float64   { return r.Width() * r.Height() }

// IsEmpty reports whether the rectangle has no interior.
func (r Rect) IsEmpty() bool { return r.X1 <= r.X0 || r.Y1 <= r.Y0 }

// Valid reports whether the rectangle is well formed with a positive area.
func (r Rect) Valid() bool { return r.X0 < r.X1 && r.Y0 < r.Y1 }

// Contains reports whether the point lies within the rectangle, edges included.
func (r Rect) Contains(p Point) bool {
	return p.X >= r.X0 && p.X <= r.X1 && p.Y >= r.Y0 && p.Y <= r.Y1
}

// ContainsRect reports whether o lies entirely within r.
func (r Rect) ContainsRect(o Rect) bool {
	return o.X0 >= r.X0 && o.Y0 >= r.Y0 && o.X1 <= r.X1 && o.Y1 <= r.Y1
}

// Intersects reports whether the two rectangles share any interior area.
func (r Rect) Intersects(o Rect) bool {
	return r.X0 < o.X1 && o.X0 < r.X1 && r.Y0 < o.Y1 && o.Y0 < r.Y1
}

// Intersect returns the overlapping region of r and o. The result is empty
// when the rectangles do not intersect.
func (r Rect) Intersect(o Rect) Rect {
	out := Rect{
		X0: math.Max(r.X0, o.X0),
		Y0: math.Max(r.Y0, o.Y0),
		X1: math.Min(r.X1, o.X1),
		Y1: math.Min(r.Y1, o.Y1),
	}
	if out.IsEmpty() {
		return Rect{}
	}
	return out
}

// Union returns the smallest rectangle covering both r and o.
func (r Rect) Union(o Rect) Rect {
	if r.IsEmpty() {
		return o
	}
	if o.IsEmpty() {
		return r
	}
	return Rect{
		X0: math.Min(r.X0, o.X0),
		Y0: math.Min(r.Y0, o.Y0),
		X1: math.Max(r.X1, o.X1),
		Y1: math.Max(r.Y1, o.Y1),
	}
}

// Expand grows the rectangle by d points on every side.
func (r Rect) Expand(d float64) Rect {
	return Rect{X0: r.X0 - d, Y0: r.Y0 - d, X1: r.X1 + d, Y1: r.Y1 + d}
}

func (r Rect) String() string {
	return fmt.Sprintf("[%.2f %.2f %.2f %.2f]", r.X0, r.Y0, r.X1, r.Y1)
}

// BoundingRect returns the axis-aligned bounding box of the given points.
func BoundingRect(points ...Point) Rect {
	if len(points) == 0 {
		return Rect{}
	}
	minX, minY := math.MaxFloat64, math.MaxFloat64
	maxX, maxY := -math.MaxFloat64, -math.MaxFloat64
	for _, p := range points {
		minX = math.Min(minX, p.X)
		minY = math.Min(minY, p.Y)
		maxX = math.Max(maxX, p.X)
		maxY = math.Max(maxY, p.Y)
	}
	return Rect{X0: minX, Y0: minY, X1: maxX, Y1: maxY}
}

// Matrix is a PDF affine transformation [a b c d e f].
type Matrix [6]float64

// Identity returns the identity matrix.
func Identity() Matrix { return Matrix{1, 0, 0, 1, 0, 0} }

// Translate returns a translation matrix.
func Translate(tx, ty float64) Matrix { return Matrix{1, 0, 0, 1, tx, ty} }

// Scale returns a scaling matrix.
func Scale(sx, sy float64) Matrix { return Matrix{sx, 0, 0, sy, 0, 0} }

// Multiply returns m x o using the PDF row-vector convention.
func (m Matrix) Multiply(o Matrix) Matrix {
	return Matrix{
		m[0]*o[0] + m[1]*o[2],
		m[0]*o[1] + m[1]*o[3],
		m[2]*o[0] + m[3]*o[2],
		m[2]*o[1] + m[3]*o[3],
		m[4]*o[0] + m[5]*o[2] + o[4],
		m[4]*o[1] + m[5]*o[3] + o[5],
	}
}

// Transform applies the matrix to a point.
func (m Matrix) Transform(p Point) Point {
	return Point{
		X: m[0]*p.X + m[2]*p.Y + m[4],
		Y: m[1]*p.X + m[3]*p.Y + m[5],
	}
}

// TransformRect maps all four corners of r and returns their bounding box,
// which keeps the result axis-aligned under rotation.
func (m Matrix) TransformRect(r Rect) Rect {
	return BoundingRect(
		m.Transform(Point{X: r.X0, Y: r.Y0}),
		m.Transform(Point{X: r.X1, Y: r.Y0}),
		m.Transform(Point{X: r.X0, Y: r.Y1}),
		m.Transform(Point{X: r.X1, Y: r.Y1}),
	)
}

// PixelMap converts between the pixel space of a page raster (top-left
// origin, y grows downward) and PDF point space (bottom-left origin, y grows
// upward). Every OCR-derived coordinate passes through exactly one PixelMap
// so the scale factor and the vertical flip live in a single place.
type PixelMap struct {
	// DPI is the effective resolution of the raster.
	DPI float64
	// PageHeight is the page height in points, used for the y-axis flip.
	PageHeight float64
}

// NewPixelMap derives a PixelMap for a raster of the given pixel width laid
// over a page of the given dimensions in points.
func NewPixelMap(pixelWidth int, pageWidth, pageHeight float64) PixelMap {
	dpi := 72.0
	if pageWidth > 0 && pixelWidth > 0 {
		dpi = float64(pixelWidth) * 72.0 / pageWidth
	}
	return PixelMap{DPI: dpi, PageHeight: pageHeight}
}

// Scale returns the pixel-to-point scale factor (points per pixel).
func (pm PixelMap) Scale() float64 {
	if pm.DPI <= 0 {
		return 1
	}
	return 72.0 / pm.DPI
}

// ToPoints converts a pixel-space rectangle (left, top, right, bottom with a
// top-left origin) into a PDF point-space Rect.
func (pm PixelMap) ToPoints(left, top, right, bottom float64) Rect {
	s := pm.Scale()
	return NewRect(
		left*s,
		pm.PageHeight-bottom*s,
		right*s,
		pm.PageHeight-top*s,
	)
}

// ToPixels converts a point-space rectangle into the enclosing pixel-space
// image.Rectangle (top-left origin). The result is rounded outward so the
// pixel region never under-covers the point region.
func (pm PixelMap) ToPixels(r Rect) image.Rectangle {
	s := pm.Scale()
	if s == 0 {
		return image.Rectangle{}
	}
	return image.Rect(
		int(math.Floor(r.X0/s)),
		int(math.Floor((pm.PageHeight-r.Y1)/s)),
		int(math.Ceil(r.X1/s)),
		int(math.Ceil((pm.PageHeight-r.Y0)/s)),
	)
}
