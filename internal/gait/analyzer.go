// internal/gait/analyzer.go
package gait

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/stat"

	"pose-sentinel/internal/buffer"
	"pose-sentinel/internal/features"
	"pose-sentinel/internal/pose"
)

const (
	// MinFrames is the minimum buffered history for a reliable analysis.
	MinFrames = 30
	// MaxFrames bounds each entity's gait buffer.
	MaxFrames = 90

	// expectedFeatureCount is the scalar feature count the completeness
	// confidence factor is normalized against.
	expectedFeatureCount = 15
)

// InsufficientFramesError reports that an entity's gait buffer has not
// accumulated enough history yet. Never fatal; callers retry after feeding
// more frames.
type InsufficientFramesError struct {
	EntityID string
	Have     int
	Need     int
}

func (e *InsufficientFramesError) Error() string {
	return fmt.Sprintf("gait buffer for %q has %d of %d required frames", e.EntityID, e.Have, e.Need)
}

// Analysis is the result of analyzing one entity's buffered gait sequence.
type Analysis struct {
	EntityID       string            `json:"entity_id"`
	FramesAnalyzed int               `json:"frames_analyzed"`
	Features       features.Features `json:"gait_features"`
	Signature      []float64         `json:"gait_signature"`
	Match          *Match            `json:"match,omitempty"`
	Confidence     float64           `json:"confidence"`
	Timestamp      time.Time         `json:"timestamp"`
}

// Analyzer owns the per-entity gait buffers and runs feature extraction,
// signature generation and profile matching over them.
type Analyzer struct {
	buffers *buffer.Store
	matcher *Matcher
	rate    float64
	log     zerolog.Logger
	now     func() time.Time
}

// NewAnalyzer builds an analyzer with MaxFrames-deep buffers.
func NewAnalyzer(matcher *Matcher, rate float64, log zerolog.Logger) *Analyzer {
	return &Analyzer{
		buffers: buffer.NewStore(MaxFrames),
		matcher: matcher,
		rate:    rate,
		log:     log,
		now:     time.Now,
	}
}

// AddFrame appends a pose frame to the entity's gait buffer.
func (a *Analyzer) AddFrame(entityID string, f pose.Frame) error {
	return a.buffers.Append(entityID, f)
}

// Analyze extracts gait features for the entity and matches them against
// the known profiles.
func (a *Analyzer) Analyze(entityID string) (*Analysis, error) {
	window := a.buffers.Window(entityID, MaxFrames)
	if len(window) < MinFrames {
		return nil, &InsufficientFramesError{EntityID: entityID, Have: len(window), Need: MinFrames}
	}

	feats := features.Extract(window, a.rate)
	sig := Signature(feats)

	analysis := &Analysis{
		EntityID:       entityID,
		FramesAnalyzed: len(window),
		Features:       feats,
		Signature:      sig,
		Confidence:     analysisConfidence(feats, window),
		Timestamp:      a.now(),
	}
	if a.matcher != nil {
		if m, ok := a.matcher.Match(sig); ok {
			analysis.Match = m
			a.log.Info().
				Str("entity", entityID).
				Str("profile", m.Name).
				Float64("similarity", m.Similarity).
				Msg("gait profile matched")
		}
	}
	return analysis, nil
}

// Total reports the frames ever appended for the entity, including evicted
// ones.
func (a *Analyzer) Total(entityID string) int {
	return a.buffers.Total(entityID)
}

// Clear drops the entity's gait buffer.
func (a *Analyzer) Clear(entityID string) {
	a.buffers.Clear(entityID)
}

// BufferStatus reports occupancy and readiness per entity.
func (a *Analyzer) BufferStatus() map[string]buffer.Status {
	return a.buffers.Occupancy(MinFrames)
}

// analysisConfidence blends frame coverage, detection quality, movement
// regularity and feature completeness into one score.
func analysisConfidence(feats features.Features, window []pose.Frame) float64 {
	frameFactor := float64(len(window)) / MinFrames
	if frameFactor > 2 {
		frameFactor = 2
	}
	frameFactor *= 0.5

	confs := make([]float64, 0, len(window))
	for _, fr := range window {
		var sum float64
		for _, k := range fr.Keypoints {
			sum += k.Confidence
		}
		confs = append(confs, sum/pose.NumKeypoints)
	}
	quality := stat.Mean(confs, nil)

	completeness := float64(positiveFeatureCount(feats)) / expectedFeatureCount

	return (frameFactor + quality + feats.StepRegularity + completeness) / 4
}

func positiveFeatureCount(f features.Features) int {
	values := []float64{
		f.StrideLengthAvg, f.StrideLengthVar, f.StrideLengthRange,
		f.WalkingSpeedAvg, f.WalkingSpeedVar, f.WalkingSpeedMax, f.WalkingAcceleration,
		f.StepFrequency, f.StepRegularity, float64(f.StepCount),
		f.BodySwayLateral, f.BodySwayVertical, f.BodySwayTotal,
		f.AvgKneeAngle, f.KneeAngleVar, f.KneeAngleRange, f.ArmSwingIntensity,
		f.GaitAsymmetry, f.LeftLegActivity, f.RightLegActivity,
		f.PoseStability, f.BodyAlignment, f.PostureConsistency,
	}
	n := 0
	for _, v := range values {
		if v > 0 {
			n++
		}
	}
	return n
}
