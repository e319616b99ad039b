package core

// MatchCandidate is a scored region proposed by a matching strategy.
// Candidates are produced per matching call and never retained across
// snapshots.
type MatchCandidate struct {
	Bounds     Bounds  `json:"bounds"`
	Confidence float64 `json:"confidence"` // in [0,1]
	Source     string  `json:"source"`     // strategy that produced it
}

// Center returns the candidate's tap point.
func (c MatchCandidate) Center() Point {
	return c.Bounds.Center()
}
