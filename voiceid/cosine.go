// Package voiceid scores how closely a diarized speaker's voice embedding
// matches an enrolled reference embedding.
package voiceid

import "math"

// MatchThreshold is the minimum cosine similarity at which the
// best-matching diarized speaker is labeled as the conversation owner.
const MatchThreshold = 0.25

// CosineSimilarity returns dot(a,b) / (|a|*|b|) for two embeddings.
// If either vector has zero magnitude the result is 0, never NaN.
// Vectors are used as returned by the embedding service, without
// normalization; both sides must come from the same model.
func CosineSimilarity(a, b []float64) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, aNorm, bNorm float64
	for i := 0; i < n; i++ {
		dot += a[i] * b[i]
		aNorm += a[i] * a[i]
		bNorm += b[i] * b[i]
	}
	if aNorm == 0 || bNorm == 0 {
		return 0
	}
	return dot / (math.Sqrt(aNorm) * math.Sqrt(bNorm))
}
