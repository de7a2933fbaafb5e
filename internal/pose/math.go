// internal/pose/math.go
package pose

import "math"

// The safe-math helpers below centralize the zero-default policy: numerically
// undefined results are converted to a defined default at the point of
// computation instead of surfacing NaN to rules or callers.

// SafeDiv divides num by den, returning 0 when den is zero.
func SafeDiv(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	return num / den
}

// Dist is the Euclidean distance between two points.
func Dist(x1, y1, x2, y2 float64) float64 {
	return math.Hypot(x2-x1, y2-y1)
}

// AngleDeg computes the angle at vertex (bx,by) formed by points a and c,
// in degrees. Degenerate (zero-length) vectors yield NaN; callers substitute
// their documented default.
func AngleDeg(ax, ay, bx, by, cx, cy float64) float64 {
	v1x, v1y := ax-bx, ay-by
	v2x, v2y := cx-bx, cy-by
	n1 := math.Hypot(v1x, v1y)
	n2 := math.Hypot(v2x, v2y)
	if n1 == 0 || n2 == 0 {
		return math.NaN()
	}
	cos := (v1x*v2x + v1y*v2y) / (n1 * n2)
	cos = math.Max(-1, math.Min(1, cos))
	return cos2deg(cos)
}

// BodyTiltDeg measures the shoulder-center to hip-center line against the
// vertical axis, in degrees. Returns 0 when any torso joint is below the
// confidence floor or the torso line is degenerate.
func BodyTiltDeg(f Frame) float64 {
	sx, sy, sok := f.MidShoulder()
	hx, hy, hok := f.MidHip()
	if !sok || !hok {
		return 0
	}
	// Body vector points from hips to shoulders; vertical is (0,-1) in
	// image coordinates.
	bx, by := sx-hx, sy-hy
	n := math.Hypot(bx, by)
	if n == 0 {
		return 0
	}
	cos := -by / n
	cos = math.Max(-1, math.Min(1, cos))
	return cos2deg(cos)
}

func cos2deg(cos float64) float64 {
	return math.Acos(cos) * 180 / math.Pi
}
