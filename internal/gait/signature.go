// internal/gait/signature.go

// Package gait condenses walking-pattern features into fixed-length
// signatures and matches them against known profiles.
package gait

import (
	"gonum.org/v1/gonum/floats"

	"pose-sentinel/internal/features"
)

// SignatureLen is the fixed signature dimensionality.
const SignatureLen = 8

// DefaultSimilarityFloor is the cosine similarity a candidate must clear to
// count as a match.
const DefaultSimilarityFloor = 0.7

// Signature builds the canonical L2-normalized signature vector from an
// extracted feature set.
func Signature(f features.Features) []float64 {
	sig := []float64{
		f.StrideLengthAvg,
		f.WalkingSpeedAvg,
		f.StepFrequency,
		f.BodySwayTotal,
		f.AvgKneeAngle,
		f.GaitAsymmetry,
		f.PoseStability,
		f.StepRegularity,
	}
	norm := floats.Norm(sig, 2) + 1e-8
	for i := range sig {
		sig[i] /= norm
	}
	return sig
}

// CosineSimilarity between two equal-length vectors; 0 when either is
// degenerate.
func CosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	na, nb := floats.Norm(a, 2), floats.Norm(b, 2)
	if na == 0 || nb == 0 {
		return 0
	}
	return floats.Dot(a, b) / (na * nb)
}

// Profile is a known identity's stored gait signature. Profiles are owned by
// an external store; the engine only reads them.
type Profile struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Signature  []float64 `json:"signature"`
	Confidence float64   `json:"confidence"`
}

// ProfileStore is the read-only interface the matcher needs.
type ProfileStore interface {
	LookupAll() ([]Profile, error)
}

// Match is the best profile above the similarity floor.
type Match struct {
	ProfileID         string  `json:"profile_id"`
	Name              string  `json:"name"`
	Similarity        float64 `json:"similarity"`
	ProfileConfidence float64 `json:"profile_confidence"`
}

// Matcher compares signatures against every known profile.
type Matcher struct {
	store ProfileStore
	floor float64
}

// NewMatcher builds a matcher over the given store. floor <= 0 selects the
// default similarity floor.
func NewMatcher(store ProfileStore, floor float64) *Matcher {
	if floor <= 0 {
		floor = DefaultSimilarityFloor
	}
	return &Matcher{store: store, floor: floor}
}

// Match returns the highest-similarity profile above the floor, or false
// when none qualifies. Best means highest among qualifiers, not merely the
// first above the floor.
func (m *Matcher) Match(sig []float64) (*Match, bool) {
	if m.store == nil {
		return nil, false
	}
	profiles, err := m.store.LookupAll()
	if err != nil || len(profiles) == 0 {
		return nil, false
	}

	var best *Match
	for _, p := range profiles {
		sim := CosineSimilarity(sig, p.Signature)
		if sim < m.floor {
			continue
		}
		if best == nil || sim > best.Similarity {
			best = &Match{
				ProfileID:         p.ID,
				Name:              p.Name,
				Similarity:        sim,
				ProfileConfidence: p.Confidence,
			}
		}
	}
	return best, best != nil
}

// StaticProfiles is an in-memory ProfileStore for tests and bootstrapping.
type StaticProfiles []Profile

func (s StaticProfiles) LookupAll() ([]Profile, error) {
	return s, nil
}
