// internal/features/extractors_test.go
package features

import (
	"math"
	"testing"

	"pose-sentinel/internal/pose"
)

const testRate = 30.0

func kp(x, y float64) pose.Keypoint {
	return pose.Keypoint{X: x, Y: y, Confidence: 0.9}
}

// walkFrame builds one frame of a steady rightward walker: hips drift
// 3px/frame, ankles scissor every 5 frames, knees bent at a fixed angle.
func walkFrame(i int) pose.Frame {
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
	f.Keypoints[pose.LeftKnee] = kp(cx-10+step, 140)
	f.Keypoints[pose.RightKnee] = kp(cx+10-step, 140)
	f.Keypoints[pose.LeftAnkle] = kp(cx-10+2*step, 180)
	f.Keypoints[pose.RightAnkle] = kp(cx+10-2*step, 180)
	return f
}

func walkWindow(n int) []pose.Frame {
	frames := make([]pose.Frame, n)
	for i := range frames {
		frames[i] = walkFrame(i)
	}
	return frames
}

// TestExtractShortWindowZeroDefaults verifies the degrade-to-zero policy.
func TestExtractShortWindowZeroDefaults(t *testing.T) {
	if got := Extract(nil, testRate); got != (Features{}) {
		t.Errorf("nil window: expected zero features, got %+v", got)
	}
	if got := Extract(walkWindow(1), testRate); got != (Features{}) {
		t.Errorf("1-frame window: expected zero features, got %+v", got)
	}
}

// TestExtractNeverNaN verifies no extractor leaks NaN, including over frames
// with entirely unconfident keypoints.
func TestExtractNeverNaN(t *testing.T) {
	window := walkWindow(60)
	for i := range window {
		if i%3 == 0 {
			for j := range window[i].Keypoints {
				window[i].Keypoints[j].Confidence = 0.1
			}
		}
	}
	f := Extract(window, testRate)
	for name, v := range map[string]float64{
		"stride_length_avg": f.StrideLengthAvg,
		"walking_speed_avg": f.WalkingSpeedAvg,
		"step_frequency":    f.StepFrequency,
		"body_sway_total":   f.BodySwayTotal,
		"avg_knee_angle":    f.AvgKneeAngle,
		"gait_asymmetry":    f.GaitAsymmetry,
		"pose_stability":    f.PoseStability,
		"body_alignment":    f.BodyAlignment,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			t.Errorf("%s is %v", name, v)
		}
	}
}

// TestWalkingSpeedSteadyWalker verifies hip-displacement speed math: a
// 3px/frame drift at 30fps is 90px/s.
func TestWalkingSpeedSteadyWalker(t *testing.T) {
	f := Extract(walkWindow(60), testRate)
	if math.Abs(f.WalkingSpeedAvg-90) > 1e-6 {
		t.Errorf("expected average speed 90 px/s, got %v", f.WalkingSpeedAvg)
	}
	if f.WalkingSpeedVar > 1e-6 {
		t.Errorf("constant speed should have ~0 variance, got %v", f.WalkingSpeedVar)
	}
	if math.Abs(f.WalkingSpeedMax-90) > 1e-6 {
		t.Errorf("expected max speed 90, got %v", f.WalkingSpeedMax)
	}
}

// TestStepFrequencyScissorGait verifies the crossing counter: the ankle
// offset flips sign every 5 frames, one crossing per 5 frames, 6 steps/s.
func TestStepFrequencyScissorGait(t *testing.T) {
	f := Extract(walkWindow(60), testRate)
	if math.Abs(f.StepFrequency-6) > 1e-6 {
		t.Errorf("expected 6 steps/s, got %v", f.StepFrequency)
	}
	if math.Abs(f.StepRegularity-1) > 1e-6 {
		t.Errorf("perfectly regular intervals should score 1, got %v", f.StepRegularity)
	}
	if f.StepCount != 11 {
		t.Errorf("expected 11 crossings over 60 frames, got %d", f.StepCount)
	}
}

// TestStrideRequiresConfidentAnkles verifies stride stays zero when ankles
// never clear the confidence floor.
func TestStrideRequiresConfidentAnkles(t *testing.T) {
	window := walkWindow(60)
	for i := range window {
		window[i].Keypoints[pose.LeftAnkle].Confidence = 0.2
	}
	f := Extract(window, testRate)
	if f.StrideLengthAvg != 0 || f.StrideLengthVar != 0 {
		t.Errorf("expected zero stride metrics, got avg=%v var=%v",
			f.StrideLengthAvg, f.StrideLengthVar)
	}
}

// TestStrideScissorGait verifies stride stays within the raw min/max band
// after smoothing.
func TestStrideScissorGait(t *testing.T) {
	f := Extract(walkWindow(60), testRate)
	// Ankle gap alternates between 0 and 40 pixels.
	if f.StrideLengthAvg <= 0 || f.StrideLengthAvg >= 40 {
		t.Errorf("expected stride average inside (0,40), got %v", f.StrideLengthAvg)
	}
	if f.StrideLengthVar <= 0 {
		t.Errorf("alternating stride should have positive variance, got %v", f.StrideLengthVar)
	}
}

// TestSymmetryBalancedWalker verifies a mirror-symmetric gait reads as
// near-zero asymmetry.
func TestSymmetryBalancedWalker(t *testing.T) {
	f := Extract(walkWindow(60), testRate)
	if f.LeftLegActivity <= 0 || f.RightLegActivity <= 0 {
		t.Fatalf("expected positive leg activity, got left=%v right=%v",
			f.LeftLegActivity, f.RightLegActivity)
	}
	if f.GaitAsymmetry > 0.5 {
		t.Errorf("balanced gait: expected near-zero asymmetry, got %v", f.GaitAsymmetry)
	}
}

// TestStabilityLevelWalker verifies stability and alignment on a walker
// whose torso translates without deforming.
func TestStabilityLevelWalker(t *testing.T) {
	f := Extract(walkWindow(60), testRate)
	// Torso center moves exactly 3px per frame, so displacement deviation
	// is 0 and stability is maximal.
	if math.Abs(f.PoseStability-1) > 1e-6 {
		t.Errorf("expected stability 1 for rigid torso, got %v", f.PoseStability)
	}
	// Shoulder and hip lines are parallel throughout.
	if math.Abs(f.BodyAlignment) > 1e-6 {
		t.Errorf("expected 0 alignment angle, got %v", f.BodyAlignment)
	}
	if math.Abs(f.PostureConsistency-1) > 1e-6 {
		t.Errorf("expected posture consistency 1, got %v", f.PostureConsistency)
	}
}

// TestSavgolPreservesLinear verifies the quadratic kernel reproduces linear
// inputs exactly and leaves short inputs untouched.
func TestSavgolPreservesLinear(t *testing.T) {
	xs := make([]float64, 12)
	for i := range xs {
		xs[i] = 2*float64(i) + 1
	}
	out := savgol5(xs)
	for i := range xs {
		if math.Abs(out[i]-xs[i]) > 1e-9 {
			t.Errorf("position %d: expected %v, got %v", i, xs[i], out[i])
		}
	}

	short := []float64{3, 1, 4}
	got := savgol5(short)
	for i := range short {
		if got[i] != short[i] {
			t.Errorf("short input changed at %d: %v -> %v", i, short[i], got[i])
		}
	}
}

// TestSavgolSmoothsSpike verifies interior smoothing actually attenuates an
// impulse while the edges pass through.
func TestSavgolSmoothsSpike(t *testing.T) {
	xs := []float64{10, 10, 10, 10, 100, 10, 10, 10, 10}
	out := savgol5(xs)
	if out[0] != 10 || out[len(out)-1] != 10 {
		t.Errorf("edges must pass through, got %v and %v", out[0], out[len(out)-1])
	}
	if out[4] >= 100 {
		t.Errorf("spike not attenuated: %v", out[4])
	}
	if out[4] <= 10 {
		t.Errorf("spike over-attenuated: %v", out[4])
	}
}
