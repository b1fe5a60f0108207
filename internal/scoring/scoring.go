// Package scoring computes relevance scores from a result's position in its
// source ordering and its log-scaled engagement counters. Each source has its
// own weight profile reflecting how much that source's ordering already
// encodes quality.
package scoring

import "math"

// Profile holds the per-source scoring weights.
type Profile struct {
	// PositionWeight is the share of the final score taken by position;
	// the remainder comes from engagement.
	PositionWeight float64
	// PositionFloor is the position score of the last result in a list.
	PositionFloor float64
	// Engagement maps counter names to weights. Weights sum to 1.0.
	Engagement map[string]float64
	// Norm divides the weighted log1p sum to bring it into [0,1].
	Norm float64
}

// Reddit threads carry a backend relevance estimate, so engagement only
// refines; position still dominates because the backend ranks by relevance.
var Reddit = Profile{
	PositionWeight: 0.6,
	PositionFloor:  0.5,
	Engagement:     map[string]float64{"score": 0.7, "comments": 0.3},
	Norm:           7.0,
}

// X "Top" ordering is strong; likes dominate the engagement mix.
var X = Profile{
	PositionWeight: 0.6,
	PositionFloor:  0.5,
	Engagement:     map[string]float64{"likes": 0.55, "reposts": 0.25, "replies": 0.15, "quotes": 0.05},
	Norm:           7.0,
}

var DailyDev = Profile{
	PositionWeight: 0.5,
	PositionFloor:  0.1,
	Engagement:     map[string]float64{"score": 0.55, "comments": 0.40, "read_time": 0.05},
	Norm:           7.0,
}

// YouTube view counts run orders of magnitude above other counters, hence
// the larger normalization constant.
var YouTube = Profile{
	PositionWeight: 0.4,
	PositionFloor:  0.1,
	Engagement:     map[string]float64{"views": 0.50, "likes": 0.30, "comments": 0.20},
	Norm:           14.0,
}

// PositionScore decays linearly from 1.0 for the first result to the
// profile's floor for the last. A single-item list scores 1.0.
func (p Profile) PositionScore(position, total int) float64 {
	if total <= 1 {
		return 1.0
	}
	frac := float64(position) / float64(total-1)
	return 1.0 - (1.0-p.PositionFloor)*frac
}

// EngagementScore is the weighted sum of log1p(counter) terms divided by the
// profile norm, clamped to [0,1]. Missing or negative counters contribute 0.
func (p Profile) EngagementScore(counts map[string]int64) float64 {
	var sum float64
	for name, weight := range p.Engagement {
		n := counts[name]
		if n < 0 {
			n = 0
		}
		sum += weight * math.Log1p(float64(n))
	}
	return Clamp(sum / p.Norm)
}

// Relevance combines position and engagement per the profile weights.
func (p Profile) Relevance(position, total int, counts map[string]int64) float64 {
	pos := p.PositionScore(position, total)
	eng := p.EngagementScore(counts)
	return Clamp(p.PositionWeight*pos + (1.0-p.PositionWeight)*eng)
}

// Clamp bounds v to [0,1].
func Clamp(v float64) float64 {
	return math.Max(0.0, math.Min(1.0, v))
}
