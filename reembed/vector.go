package reembed

import "math"

// NormalizeVector scales a vector to unit length, returning a new slice.
// A zero vector comes back as a zero vector of the same length. Optional:
// Euclidean search does not require unit vectors, but normalizing keeps a
// corpus comparable when an embedding API changes its output magnitude.
func NormalizeVector(v []float32) []float32 {
	if len(v) == 0 {
		return v
	}

	var magnitude float32
	for _, val := range v {
		magnitude += val * val
	}
	magnitude = float32(math.Sqrt(float64(magnitude)))

	result := make([]float32, len(v))
	if magnitude == 0 {
		return result
	}
	for i, val := range v {
		result[i] = val / magnitude
	}
	return result
}
