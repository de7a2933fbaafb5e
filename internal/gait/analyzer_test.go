// internal/gait/analyzer_test.go
package gait

import (
	"errors"
	"math"
	"testing"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/floats"

	"pose-sentinel/internal/pose"
)

const testRate = 30.0

func kp(x, y float64) pose.Keypoint {
	return pose.Keypoint{X: x, Y: y, Confidence: 0.9}
}

// strideFrame is one frame of a steady walker with a visible scissor gait
// and bent knees.
func strideFrame(i int) pose.Frame {
	var f pose.Frame
	cx := 100 + 3*float64(i)
	step := 5.0
	if (i/5)%2 == 1 {
		step = -5.0
	}

	f.Index = i
	f.Timestamp = float64(i) / testRate
	f.Keypoints[pose.LeftShoulder] = kp(cx-15, 40)
	f.Keypoints[pose.RightShoulder] = kp(cx+15, 40)
	f.Keypoints[pose.LeftHip] = kp(cx-10, 100)
	f.Keypoints[pose.RightHip] = kp(cx+10, 100)
	f.Keypoints[pose.LeftKnee] = kp(cx-18+step, 142)
	f.Keypoints[pose.RightKnee] = kp(cx+18-step, 142)
	f.Keypoints[pose.LeftAnkle] = kp(cx-10+2*step, 180)
	f.Keypoints[pose.RightAnkle] = kp(cx+10-2*step, 180)
	return f
}

func feedWalker(t *testing.T, a *Analyzer, entityID string, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		if err := a.AddFrame(entityID, strideFrame(i)); err != nil {
			t.Fatalf("AddFrame %d failed: %v", i, err)
		}
	}
}

// TestAnalyzeInsufficientFrames verifies the typed warm-up error.
func TestAnalyzeInsufficientFrames(t *testing.T) {
	a := NewAnalyzer(nil, testRate, zerolog.Nop())
	feedWalker(t, a, "e1", 10)

	_, err := a.Analyze("e1")
	if err == nil {
		t.Fatal("expected an error below the frame minimum")
	}
	var ife *InsufficientFramesError
	if !errors.As(err, &ife) {
		t.Fatalf("expected InsufficientFramesError, got %T", err)
	}
	if ife.Have != 10 || ife.Need != MinFrames {
		t.Errorf("expected have=10 need=%d, got %+v", MinFrames, ife)
	}
}

// TestAnalyzeWalker verifies feature extraction and signature generation
// over a full buffer.
func TestAnalyzeWalker(t *testing.T) {
	a := NewAnalyzer(nil, testRate, zerolog.Nop())
	feedWalker(t, a, "e1", 120)

	analysis, err := a.Analyze("e1")
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	// The gait buffer is bounded at MaxFrames regardless of feed length.
	if analysis.FramesAnalyzed != MaxFrames {
		t.Errorf("expected %d frames analyzed, got %d", MaxFrames, analysis.FramesAnalyzed)
	}
	if norm := floats.Norm(analysis.Signature, 2); math.Abs(norm-1) > 1e-6 {
		t.Errorf("expected unit signature norm, got %v", norm)
	}
	if analysis.Features.WalkingSpeedAvg <= 0 {
		t.Errorf("expected positive walking speed, got %v", analysis.Features.WalkingSpeedAvg)
	}
	if analysis.Features.StepFrequency <= 0 {
		t.Errorf("expected positive step frequency, got %v", analysis.Features.StepFrequency)
	}
	if analysis.Confidence <= 0 {
		t.Errorf("expected positive confidence, got %v", analysis.Confidence)
	}
	if analysis.Match != nil {
		t.Errorf("no matcher configured, expected nil match, got %+v", analysis.Match)
	}
}

// TestAnalyzeMatchesEnrolledProfile verifies the round trip: a signature
// captured from one walk matches the same walk on a fresh analyzer.
func TestAnalyzeMatchesEnrolledProfile(t *testing.T) {
	enroll := NewAnalyzer(nil, testRate, zerolog.Nop())
	feedWalker(t, enroll, "e1", 90)
	enrolled, err := enroll.Analyze("e1")
	if err != nil {
		t.Fatalf("enrollment analysis failed: %v", err)
	}

	store := StaticProfiles{
		{ID: "profile-1", Name: "Known Walker", Signature: enrolled.Signature, Confidence: 0.85},
	}
	a := NewAnalyzer(NewMatcher(store, DefaultSimilarityFloor), testRate, zerolog.Nop())
	feedWalker(t, a, "e2", 90)

	analysis, err := a.Analyze("e2")
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if analysis.Match == nil {
		t.Fatal("expected a profile match")
	}
	if analysis.Match.ProfileID != "profile-1" {
		t.Errorf("expected profile-1, got %s", analysis.Match.ProfileID)
	}
	if analysis.Match.Similarity < 0.999 {
		t.Errorf("identical walks should be near-identical signatures, similarity=%v",
			analysis.Match.Similarity)
	}
}

// TestClearDropsBuffer verifies Clear resets the entity's warm-up.
func TestClearDropsBuffer(t *testing.T) {
	a := NewAnalyzer(nil, testRate, zerolog.Nop())
	feedWalker(t, a, "e1", 60)
	if _, err := a.Analyze("e1"); err != nil {
		t.Fatalf("Analyze before clear failed: %v", err)
	}

	a.Clear("e1")
	_, err := a.Analyze("e1")
	var ife *InsufficientFramesError
	if !errors.As(err, &ife) {
		t.Fatalf("expected InsufficientFramesError after clear, got %v", err)
	}
	if ife.Have != 0 {
		t.Errorf("expected empty buffer, have=%d", ife.Have)
	}
}

// TestBufferStatus verifies readiness reporting.
func TestBufferStatus(t *testing.T) {
	a := NewAnalyzer(nil, testRate, zerolog.Nop())
	feedWalker(t, a, "ready", 45)
	feedWalker(t, a, "warming", 12)

	status := a.BufferStatus()
	if st := status["ready"]; st.Frames != 45 || !st.Ready {
		t.Errorf("ready entity: got %+v", st)
	}
	if st := status["warming"]; st.Frames != 12 || st.Ready {
		t.Errorf("warming entity: got %+v", st)
	}
}
