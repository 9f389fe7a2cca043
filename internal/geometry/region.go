package geometry

import (
	"math"

	"github.com/ctessum/polyclip-go"

	"github.com/eduforge/gradex/internal/models"
)

const (
	// polygons with area at or below this are treated as degenerate
	minPolygonArea = 0.1

	ellipseSegments = 32
)

// toContour normalizes a region of any supported shape to a polygon contour.
// Unknown shapes and malformed regions return nil.
func toContour(r models.Region) polyclip.Contour {
	switch r.Shape {
	case "polygon", "points", "":
		if len(r.Points) < 3 {
			return nil
		}
		contour := make(polyclip.Contour, 0, len(r.Points))
		for _, p := range r.Points {
			if math.IsNaN(p[0]) || math.IsNaN(p[1]) || math.IsInf(p[0], 0) || math.IsInf(p[1], 0) {
				return nil
			}
			contour.Add(polyclip.Point{X: p[0], Y: p[1]})
		}
		return contour
	case "box":
		if r.Width <= 0 || r.Height <= 0 {
			return nil
		}
		return polyclip.Contour{
			{X: r.X, Y: r.Y},
			{X: r.X + r.Width, Y: r.Y},
			{X: r.X + r.Width, Y: r.Y + r.Height},
			{X: r.X, Y: r.Y + r.Height},
		}
	case "ellipse":
		if r.RX <= 0 || r.RY <= 0 {
			return nil
		}
		contour := make(polyclip.Contour, 0, ellipseSegments)
		for i := 0; i < ellipseSegments; i++ {
			theta := 2 * math.Pi * float64(i) / float64(ellipseSegments)
			contour.Add(polyclip.Point{
				X: r.CX + r.RX*math.Cos(theta),
				Y: r.CY + r.RY*math.Sin(theta),
			})
		}
		return contour
	default:
		return nil
	}
}

// contourArea computes the absolute shoelace area of a single contour
func contourArea(c polyclip.Contour) float64 {
	if len(c) < 3 {
		return 0
	}
	sum := 0.0
	for i := range c {
		j := (i + 1) % len(c)
		sum += c[i].X*c[j].Y - c[j].X*c[i].Y
	}
	return math.Abs(sum) / 2
}

// polygonArea sums contour areas of a boolean-op result. Inputs are single
// hole-free contours, so an intersection result never contains holes.
func polygonArea(p polyclip.Polygon) float64 {
	total := 0.0
	for _, c := range p {
		total += contourArea(c)
	}
	return total
}

// intersectionArea computes the overlap area of two contours
func intersectionArea(a, b polyclip.Contour) float64 {
	inter := polyclip.Polygon{a}.Construct(polyclip.INTERSECTION, polyclip.Polygon{b})
	return polygonArea(inter)
}

// iou computes intersection-over-union given precomputed areas
func iou(interArea, areaA, areaB float64) float64 {
	union := areaA + areaB - interArea
	if union <= 0 {
		return 0
	}
	return interArea / union
}
