// internal/features/savgol.go
package features

// savgol5 applies a Savitzky-Golay smoothing filter with window 5 and
// polynomial order 2. The interior uses the closed-form quadratic kernel
// (-3, 12, 17, 12, -3)/35; the two samples at each edge are left unchanged.
// Inputs shorter than the window are returned as-is.
func savgol5(xs []float64) []float64 {
	if len(xs) < 5 {
		out := make([]float64, len(xs))
		copy(out, xs)
		return out
	}
	out := make([]float64, len(xs))
	copy(out, xs)
	for i := 2; i < len(xs)-2; i++ {
		out[i] = (-3*xs[i-2] + 12*xs[i-1] + 17*xs[i] + 12*xs[i+1] - 3*xs[i+2]) / 35
	}
	return out
}
