// Package testutil provides in-memory fakes of the repository and
// collaborator interfaces. The fakes honor the same error contracts as the
// real backends, so service tests exercise NotFound and Conflict paths
// without a database.
package testutil

import "math"

// Cosine returns the cosine similarity of two vectors, matching the score
// the pgvector-backed searches report.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
