package imaging

import (
	"math"
	"sort"
)

type point struct {
	X, Y float64
}

// convexHull returns the hull of pts in counter-clockwise order using the
// monotone chain algorithm. Collinear points are dropped.
func convexHull(pts []point) []point {
	if len(pts) <= 2 {
		return append([]point(nil), pts...)
	}
	sorted := append([]point(nil), pts...)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].X != sorted[j].X {
			return sorted[i].X < sorted[j].X
		}
		return sorted[i].Y < sorted[j].Y
	})

	cross := func(o, a, b point) float64 {
		return (a.X-o.X)*(b.Y-o.Y) - (a.Y-o.Y)*(b.X-o.X)
	}

	var lower []point
	for _, p := range sorted {
		for len(lower) >= 2 && cross(lower[len(lower)-2], lower[len(lower)-1], p) <= 0 {
			lower = lower[:len(lower)-1]
		}
		lower = append(lower, p)
	}
	var upper []point
	for i := len(sorted) - 1; i >= 0; i-- {
		p := sorted[i]
		for len(upper) >= 2 && cross(upper[len(upper)-2], upper[len(upper)-1], p) <= 0 {
			upper = upper[:len(upper)-1]
		}
		upper = append(upper, p)
	}
	return append(lower[:len(lower)-1], upper[:len(upper)-1]...)
}

// minAreaRectAngle returns the orientation, in degrees in [-90, 0), of the
// minimum-area bounding rectangle of pts (rotating calipers over the hull).
func minAreaRectAngle(pts []point) float64 {
	hull := convexHull(pts)
	if len(hull) < 3 {
		return -90
	}

	bestArea := math.Inf(1)
	bestTheta := 0.0
	for i := range hull {
		a := hull[i]
		b := hull[(i+1)%len(hull)]
		theta := math.Atan2(b.Y-a.Y, b.X-a.X)
		cos, sin := math.Cos(-theta), math.Sin(-theta)

		minX, minY := math.Inf(1), math.Inf(1)
		maxX, maxY := math.Inf(-1), math.Inf(-1)
		for _, p := range hull {
			x := p.X*cos - p.Y*sin
			y := p.X*sin + p.Y*cos
			minX = math.Min(minX, x)
			maxX = math.Max(maxX, x)
			minY = math.Min(minY, y)
			maxY = math.Max(maxY, y)
		}
		area := (maxX - minX) * (maxY - minY)
		if area < bestArea {
			bestArea = area
			bestTheta = theta
		}
	}

	deg := bestTheta * 180 / math.Pi
	deg = math.Mod(deg, 90)
	if deg < 0 {
		deg += 90
	}
	return deg - 90
}
