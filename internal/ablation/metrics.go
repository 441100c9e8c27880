package ablation

// scoreResults partitions retrieved identifiers against a truth set. False
// negatives are truth identifiers never retrieved.
func scoreResults(retrieved, expected []string) (tp, fp, fn int) {
	truth := make(map[string]bool, len(expected))
	for _, id := range expected {
		truth[id] = true
	}

	seen := make(map[string]bool, len(retrieved))
	for _, id := range retrieved {
		if truth[id] {
			tp++
		} else {
			fp++
		}
		seen[id] = true
	}
	for _, id := range expected {
		if !seen[id] {
			fn++
		}
	}
	return tp, fp, fn
}

// precision is TP/(TP+FP); a zero denominator yields 0.
func precision(tp, fp int) float64 {
	if tp+fp == 0 {
		return 0
	}
	return float64(tp) / float64(tp+fp)
}

// recall is TP/(TP+FN); a zero denominator yields 0.
func recall(tp, fn int) float64 {
	if tp+fn == 0 {
		return 0
	}
	return float64(tp) / float64(tp+fn)
}

// f1 is the harmonic mean of precision and recall; 0 when both are 0.
func f1(p, r float64) float64 {
	if p+r == 0 {
		return 0
	}
	return 2 * p * r / (p + r)
}
