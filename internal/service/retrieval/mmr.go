package retrieval

import "math"

// candidate is a scored chunk flowing through blending and re-ranking.
type candidate struct {
	pos       int // position in snapshot chunk slice
	id        string
	relevance float64
	embedding []float32
}

// maxMarginalRelevance greedily picks k candidates trading relevance
// against redundancy with what was already picked. A candidate whose
// similarity to any selected item exceeds simMax is skipped outright.
// Ties on marginal score break by chunk id ascending, so the output is
// stable for a given input ordering.
func maxMarginalRelevance(pool []candidate, lambda, simMax float64, k int) []candidate {
	if k <= 0 || len(pool) == 0 {
		return nil
	}
	if k > len(pool) {
		k = len(pool)
	}

	selected := make([]candidate, 0, k)
	remaining := make([]candidate, len(pool))
	copy(remaining, pool)

	for len(selected) < k && len(remaining) > 0 {
		best := -1
		bestScore := math.Inf(-1)
		for i, c := range remaining {
			maxSim := 0.0
			for _, s := range selected {
				if sim := cosine(c.embedding, s.embedding); sim > maxSim {
					maxSim = sim
				}
			}
			if len(selected) > 0 && simMax > 0 && maxSim > simMax {
				continue
			}
			score := lambda*c.relevance - (1-lambda)*maxSim
			if score > bestScore || (score == bestScore && best >= 0 && c.id < remaining[best].id) {
				best = i
				bestScore = score
			}
		}
		if best < 0 {
			// everything left is too close to the selected set
			break
		}
		selected = append(selected, remaining[best])
		remaining = append(remaining[:best], remaining[best+1:]...)
	}
	return selected
}

func cosine(a, b []float32) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
