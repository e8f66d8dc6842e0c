package matching

import "math"

// Candidate is one scored gallery entry awaiting reduction.
type Candidate struct {
	ProfileID int64
	Slot      int
	Score     Score
}

// Best returns the index of the candidate with the maximum similarity.
// Exact ties resolve to the first occurrence, so callers get a stable,
// input-order tie-break. ok is false for an empty list.
func Best(candidates []Candidate) (int, bool) {
	best := -1
	for i, c := range candidates {
		if best == -1 || c.Score.Similarity > candidates[best].Score.Similarity {
			best = i
		}
	}
	return best, best >= 0
}

// VerifyPolicy gates a 1:1 decision. The best slot is accepted when it
// clears both floors; one passing slot accepts the whole verification.
type VerifyPolicy struct {
	MinScore   float64
	MinInliers int
}

// Accept reports whether the score clears the policy floors.
func (p VerifyPolicy) Accept(s Score) bool {
	return s.Similarity >= p.MinScore && s.Inliers >= p.MinInliers
}

// IdentifyPolicy gates a 1:N decision.
type IdentifyPolicy struct {
	MinScore   float64
	MinInliers int
	// Margin, when positive, demands the winner lead the best candidate of
	// any other profile by at least this much. Zero disables the rule.
	Margin float64
	// MaxRotation, when positive, discards candidates whose recovered
	// rotation exceeds it before ranking.
	MaxRotation float64
}

// Select reduces scored gallery candidates to the winning index, or ok=false
// when no candidate survives the rotation filter, the floors, or the margin
// rule. Exact similarity ties resolve to the first candidate in gallery
// order, which follows directory enumeration order.
func (p IdentifyPolicy) Select(candidates []Candidate) (int, bool) {
	best := -1
	for i, c := range candidates {
		if p.MaxRotation > 0 && math.Abs(c.Score.Rotation) > p.MaxRotation {
			continue
		}
		if best == -1 || c.Score.Similarity > candidates[best].Score.Similarity {
			best = i
		}
	}
	if best < 0 {
		return -1, false
	}

	winner := candidates[best]
	if winner.Score.Similarity < p.MinScore || winner.Score.Inliers < p.MinInliers {
		return -1, false
	}

	if p.Margin > 0 {
		runnerUp := -1.0
		for i, c := range candidates {
			if i == best || c.ProfileID == winner.ProfileID {
				continue
			}
			if p.MaxRotation > 0 && math.Abs(c.Score.Rotation) > p.MaxRotation {
				continue
			}
			if c.Score.Similarity > runnerUp {
				runnerUp = c.Score.Similarity
			}
		}
		if runnerUp >= 0 && winner.Score.Similarity-runnerUp < p.Margin {
			return -1, false
		}
	}

	return best, true
}
