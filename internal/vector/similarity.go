// Package vector provides similarity math for embeddings and a radius
// neighbor index over unit vectors.
package vector

import "math"

// Epsilon guards normalization of zero or near-zero vectors.
const Epsilon = 1e-8

// Dot returns the inner product of a and b, or 0 when their lengths differ.
func Dot(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot
}

// L2Norm returns the L2 norm of a vector.
func L2Norm(x []float32) float64 {
	var sum float64
	for _, v := range x {
		sum += float64(v) * float64(v)
	}
	return math.Sqrt(sum)
}

// Normalize returns a copy of x divided by (norm + Epsilon). A zero vector
// stays zero instead of producing NaN.
func Normalize(x []float32) []float32 {
	out := make([]float32, len(x))
	scale := 1 / (L2Norm(x) + Epsilon)
	for i, v := range x {
		out[i] = float32(float64(v) * scale)
	}
	return out
}

// NormalizeInPlace is Normalize without the copy.
func NormalizeInPlace(x []float32) {
	scale := 1 / (L2Norm(x) + Epsilon)
	for i, v := range x {
		x[i] = float32(float64(v) * scale)
	}
}

// Cosine returns the cosine similarity of a and b clamped to [-1, 1].
// Either vector being zero yields 0.
func Cosine(a, b []float32) float64 {
	na, nb := L2Norm(a), L2Norm(b)
	s := Dot(a, b) / ((na + Epsilon) * (nb + Epsilon))
	return clamp(s)
}

// CosineUnit is Cosine for vectors already normalized to unit length.
func CosineUnit(a, b []float32) float64 {
	return clamp(Dot(a, b))
}

// Distance is the cosine distance 1 - cosine, in [0, 2].
func Distance(a, b []float32) float64 {
	return 1 - CosineUnit(a, b)
}

// MeanPool averages normalized chunk vectors and renormalizes the mean.
// It returns nil for no input.
func MeanPool(vectors [][]float32) []float32 {
	if len(vectors) == 0 {
		return nil
	}
	dim := len(vectors[0])
	sum := make([]float64, dim)
	for _, v := range vectors {
		u := Normalize(v)
		for i := 0; i < dim && i < len(u); i++ {
			sum[i] += float64(u[i])
		}
	}
	mean := make([]float32, dim)
	for i, s := range sum {
		mean[i] = float32(s / float64(len(vectors)))
	}
	NormalizeInPlace(mean)
	return mean
}

func clamp(s float64) float64 {
	if math.IsNaN(s) {
		return 0
	}
	if s > 1 {
		return 1
	}
	if s < -1 {
		return -1
	}
	return s
}
