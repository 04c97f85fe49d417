package embedding

import (
	"context"
	"math"
)

// Embedder turns text into a fixed-length vector.
type Embedder interface {
	// Embed returns the vector for text. Implementations must fail rather
	// than return an empty vector.
	Embed(ctx context.Context, text string) ([]float32, error)
}

// CheckVector rejects empty vectors and, when dimensions > 0, vectors of
// the wrong length.
func CheckVector(op string, vector []float32, dimensions int) error {
	if len(vector) == 0 {
		return ErrEmptyResponse(op)
	}
	if dimensions > 0 && len(vector) != dimensions {
		return ErrInvalidDimensions(op, dimensions, len(vector))
	}
	return nil
}

// Normalize scales vector to unit length in place.
func Normalize(vector []float32) {
	var sum float64
	for _, v := range vector {
		sum += float64(v) * float64(v)
	}
	if sum == 0 {
		return
	}
	magnitude := float32(1 / math.Sqrt(sum))
	for i := range vector {
		vector[i] *= magnitude
	}
}
