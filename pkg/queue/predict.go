package queue

import "sort"

// Resolution suggests how a predicted conflict between two changesets
// should be handled.
type Resolution string

const (
	// ResolvePR1First orders the first changeset ahead of the second.
	ResolvePR1First Resolution = "pr1_first"
	// ResolvePR2First orders the second changeset ahead of the first.
	ResolvePR2First Resolution = "pr2_first"
	// ResolveManual flags the pair for human resolution.
	ResolveManual Resolution = "manual_required"
)

// Prediction is the pairwise conflict estimate between two changesets: a
// probability in [0,1], the concrete overlap, and a suggested resolution.
// It is a risk signal for ordering, never a merge blocker.
type Prediction struct {
	Probability       float64
	OverlappingFiles  []string
	SharedDirectories []string
	SharedProne       []string
	Resolution        Resolution
}

// Scoring weights, summed and divided by 100.
const (
	overlapFileScore = 20
	sharedDirScore   = 2
	pronePathScore   = 30
)

// PredictConflict scores the conflict risk between two analyses. The
// probability is symmetric in its arguments; the resolution names sides by
// argument position.
func (m *Manager) PredictConflict(a, b *Analysis) Prediction {
	overlap := intersect(a.Paths(), b.Paths())
	sharedDirs := intersect(a.Directories, b.Directories)
	sharedProne := intersect(a.ConflictProne, b.ConflictProne)

	score := overlapFileScore*len(overlap) +
		sharedDirScore*len(sharedDirs) +
		pronePathScore*len(sharedProne)
	probability := float64(score) / 100
	if probability > 1.0 {
		probability = 1.0
	}

	p := Prediction{
		Probability:       probability,
		OverlappingFiles:  overlap,
		SharedDirectories: sharedDirs,
		SharedProne:       sharedProne,
	}

	switch {
	case probability > m.cfg.ManualThreshold:
		p.Resolution = ResolveManual
	case probability > m.cfg.PreferSmallerAbove:
		// Risky enough that the smaller diff should land first.
		if a.TotalLines <= b.TotalLines {
			p.Resolution = ResolvePR1First
		} else {
			p.Resolution = ResolvePR2First
		}
	default:
		p.Resolution = ResolvePR1First
	}
	return p
}

// intersect returns the sorted intersection of two sorted string slices.
func intersect(a, b []string) []string {
	set := make(map[string]bool, len(a))
	for _, s := range a {
		set[s] = true
	}
	var out []string
	for _, s := range b {
		if set[s] {
			out = append(out, s)
		}
	}
	sort.Strings(out)
	return out
}
