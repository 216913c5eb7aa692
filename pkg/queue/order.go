package queue

// DetermineOptimalOrder greedily orders analyses to minimize predicted
// conflict exposure. At each step the remaining changeset with the lowest
// combined score is appended: conflicts against already-ordered changesets
// weigh double, conflicts against still-remaining ones weigh single. All
// pairwise predictions are computed once up front.
func (m *Manager) DetermineOptimalOrder(analyses []*Analysis) []*Analysis {
	n := len(analyses)
	if n <= 1 {
		return analyses
	}

	prob := make([][]float64, n)
	for i := range prob {
		prob[i] = make([]float64, n)
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			p := m.PredictConflict(analyses[i], analyses[j]).Probability
			prob[i][j] = p
			prob[j][i] = p
		}
	}

	ordered := make([]*Analysis, 0, n)
	placed := make([]bool, n)

	for len(ordered) < n {
		best := -1
		bestScore := 0.0
		for i := 0; i < n; i++ {
			if placed[i] {
				continue
			}
			score := 0.0
			for j := 0; j < n; j++ {
				if j == i {
					continue
				}
				if placed[j] {
					score += 2 * prob[i][j]
				} else {
					score += prob[i][j]
				}
			}
			if best == -1 || score < bestScore {
				best = i
				bestScore = score
			}
		}
		placed[best] = true
		ordered = append(ordered, analyses[best])
	}
	return ordered
}
