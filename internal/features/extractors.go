// internal/features/extractors.go

// Package features computes windowed gait and posture metrics from buffered
// pose frames. Every extractor degrades to zero-valued defaults when the
// window is too short or too few keypoints clear the confidence floor; none
// of them return errors or NaN.
package features

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"pose-sentinel/internal/pose"
)

// Features is the named metric set extracted from one window.
type Features struct {
	StrideLengthAvg   float64 `json:"stride_length_avg"`
	StrideLengthVar   float64 `json:"stride_length_var"`
	StrideLengthRange float64 `json:"stride_length_range"`

	WalkingSpeedAvg     float64 `json:"walking_speed_avg"`
	WalkingSpeedVar     float64 `json:"walking_speed_var"`
	WalkingSpeedMax     float64 `json:"walking_speed_max"`
	WalkingAcceleration float64 `json:"walking_acceleration"`

	StepFrequency  float64 `json:"step_frequency"`
	StepRegularity float64 `json:"step_regularity"`
	StepCount      int     `json:"step_count"`

	BodySwayLateral  float64 `json:"body_sway_lateral"`
	BodySwayVertical float64 `json:"body_sway_vertical"`
	BodySwayTotal    float64 `json:"body_sway_total"`

	AvgKneeAngle      float64 `json:"avg_knee_angle"`
	KneeAngleVar      float64 `json:"knee_angle_var"`
	KneeAngleRange    float64 `json:"knee_angle_range"`
	ArmSwingIntensity float64 `json:"arm_swing_intensity"`

	GaitAsymmetry    float64 `json:"gait_asymmetry"`
	LeftLegActivity  float64 `json:"left_leg_activity"`
	RightLegActivity float64 `json:"right_leg_activity"`

	PoseStability      float64 `json:"pose_stability"`
	BodyAlignment      float64 `json:"body_alignment"`
	PostureConsistency float64 `json:"posture_consistency"`
}

// Extract computes the full feature set over a window. rate is the assumed
// sample rate in frames per second, used where timestamps are not enough.
func Extract(window []pose.Frame, rate float64) Features {
	var f Features
	if len(window) < 2 {
		return f
	}
	f.stride(window)
	f.walkingSpeed(window)
	f.stepFrequency(window, rate)
	f.bodySway(window)
	f.limbAngles(window)
	f.symmetry(window)
	f.stability(window)
	return f
}

const minStrideFrames = 10

// stride measures ankle-to-ankle distance per frame, smoothed, over frames
// where both ankles are confident.
func (f *Features) stride(window []pose.Frame) {
	var dists []float64
	for _, fr := range window {
		l, r := fr.Keypoints[pose.LeftAnkle], fr.Keypoints[pose.RightAnkle]
		if !l.Confident() || !r.Confident() {
			continue
		}
		dists = append(dists, pose.Dist(l.X, l.Y, r.X, r.Y))
	}
	if len(dists) < minStrideFrames {
		return
	}
	if len(dists) > 5 {
		dists = savgol5(dists)
	}
	f.StrideLengthAvg = stat.Mean(dists, nil)
	f.StrideLengthVar = popVariance(dists)
	f.StrideLengthRange = floats.Max(dists) - floats.Min(dists)
}

// walkingSpeed tracks hip-midpoint displacement per elapsed time, discarding
// the top 5th percentile of per-step speeds as detection jitter.
func (f *Features) walkingSpeed(window []pose.Frame) {
	speeds := make([]float64, 0, len(window)-1)
	for i := 1; i < len(window); i++ {
		px, py := window[i-1].Mid(pose.LeftHip, pose.RightHip)
		cx, cy := window[i].Mid(pose.LeftHip, pose.RightHip)
		dt := window[i].Timestamp - window[i-1].Timestamp
		if dt < 0.001 {
			dt = 0.001
		}
		speeds = append(speeds, pose.Dist(px, py, cx, cy)/dt)
	}
	if len(speeds) == 0 {
		return
	}

	sorted := append([]float64(nil), speeds...)
	sort.Float64s(sorted)
	cutoff := stat.Quantile(0.95, stat.Empirical, sorted, nil)

	valid := speeds[:0]
	for _, s := range speeds {
		if s <= cutoff {
			valid = append(valid, s)
		}
	}
	if len(valid) == 0 {
		return
	}
	f.WalkingSpeedAvg = stat.Mean(valid, nil)
	f.WalkingSpeedVar = popVariance(valid)
	f.WalkingSpeedMax = floats.Max(valid)

	var accel float64
	for i := 1; i < len(valid); i++ {
		accel += math.Abs(valid[i] - valid[i-1])
	}
	f.WalkingAcceleration = pose.SafeDiv(accel, float64(len(valid)-1))
}

const minStepCrossings = 3

// stepFrequency counts sign changes of the left-minus-right ankle x offset.
func (f *Features) stepFrequency(window []pose.Frame, rate float64) {
	diffs := make([]float64, len(window))
	for i, fr := range window {
		diffs[i] = fr.Keypoints[pose.LeftAnkle].X - fr.Keypoints[pose.RightAnkle].X
	}

	var crossings []int
	for i := 1; i < len(diffs); i++ {
		if math.Signbit(diffs[i]) != math.Signbit(diffs[i-1]) {
			crossings = append(crossings, i-1)
		}
	}
	if len(crossings) < minStepCrossings {
		return
	}

	intervals := make([]float64, len(crossings)-1)
	for i := 1; i < len(crossings); i++ {
		intervals[i-1] = float64(crossings[i] - crossings[i-1])
	}
	f.StepFrequency = pose.SafeDiv(rate, stat.Mean(intervals, nil))
	f.StepRegularity = 1.0 / (1.0 + popVariance(intervals))
	f.StepCount = len(crossings)
}

// bodySway measures shoulder-midpoint deviation laterally and vertically.
func (f *Features) bodySway(window []pose.Frame) {
	xs := make([]float64, len(window))
	ys := make([]float64, len(window))
	for i, fr := range window {
		xs[i], ys[i] = fr.Mid(pose.LeftShoulder, pose.RightShoulder)
	}
	if len(xs) > 5 {
		xs = savgol5(xs)
		ys = savgol5(ys)
	}
	f.BodySwayLateral = popStdDev(xs)
	f.BodySwayVertical = popStdDev(ys)
	f.BodySwayTotal = math.Hypot(f.BodySwayLateral, f.BodySwayVertical)
}

// limbAngles averages the hip-knee-ankle angle across sides and frames, and
// measures arm swing from shoulder trajectory jitter.
func (f *Features) limbAngles(window []pose.Frame) {
	var knees []float64
	for _, fr := range window {
		l := kneeAngle(fr, pose.LeftHip, pose.LeftKnee, pose.LeftAnkle)
		r := kneeAngle(fr, pose.RightHip, pose.RightKnee, pose.RightAnkle)
		if math.IsNaN(l) || math.IsNaN(r) {
			continue
		}
		knees = append(knees, (l+r)/2)
	}
	if len(knees) > 0 {
		f.AvgKneeAngle = stat.Mean(knees, nil)
		f.KneeAngleVar = popVariance(knees)
		f.KneeAngleRange = floats.Max(knees) - floats.Min(knees)
	}

	f.ArmSwingIntensity = (trajectoryJitter(window, pose.LeftShoulder) +
		trajectoryJitter(window, pose.RightShoulder)) / 2
}

func kneeAngle(fr pose.Frame, hip, knee, ankle int) float64 {
	h, k, a := fr.Keypoints[hip], fr.Keypoints[knee], fr.Keypoints[ankle]
	return pose.AngleDeg(h.X, h.Y, k.X, k.Y, a.X, a.Y)
}

// trajectoryJitter is the standard deviation of a joint's frame-to-frame
// displacement components.
func trajectoryJitter(window []pose.Frame, joint int) float64 {
	var deltas []float64
	for i := 1; i < len(window); i++ {
		p, c := window[i-1].Keypoints[joint], window[i].Keypoints[joint]
		deltas = append(deltas, c.X-p.X, c.Y-p.Y)
	}
	if len(deltas) == 0 {
		return 0
	}
	return popStdDev(deltas)
}

// symmetry compares mean frame-to-frame ankle displacement per leg.
func (f *Features) symmetry(window []pose.Frame) {
	left := legMovement(window, pose.LeftAnkle)
	right := legMovement(window, pose.RightAnkle)
	if len(left) == 0 || len(right) == 0 {
		return
	}
	f.LeftLegActivity = stat.Mean(left, nil)
	f.RightLegActivity = stat.Mean(right, nil)
	f.GaitAsymmetry = math.Abs(f.LeftLegActivity - f.RightLegActivity)
}

func legMovement(window []pose.Frame, ankle int) []float64 {
	var moves []float64
	for i := 1; i < len(window); i++ {
		p, c := window[i-1].Keypoints[ankle], window[i].Keypoints[ankle]
		moves = append(moves, pose.Dist(p.X, p.Y, c.X, c.Y))
	}
	return moves
}

// stability tracks the torso center of mass and shoulder/hip alignment.
func (f *Features) stability(window []pose.Frame) {
	var disps []float64
	var alignments []float64
	var px, py float64
	for i, fr := range window {
		cx := (fr.Keypoints[pose.LeftHip].X + fr.Keypoints[pose.RightHip].X +
			fr.Keypoints[pose.LeftShoulder].X + fr.Keypoints[pose.RightShoulder].X) / 4
		cy := (fr.Keypoints[pose.LeftHip].Y + fr.Keypoints[pose.RightHip].Y +
			fr.Keypoints[pose.LeftShoulder].Y + fr.Keypoints[pose.RightShoulder].Y) / 4
		if i > 0 {
			disps = append(disps, pose.Dist(px, py, cx, cy))
		}
		px, py = cx, cy

		if a, ok := alignmentAngle(fr); ok {
			alignments = append(alignments, a)
		}
	}
	if len(disps) > 0 {
		f.PoseStability = 1.0 / (1.0 + popStdDev(disps))
	}
	if len(alignments) > 0 {
		f.BodyAlignment = stat.Mean(alignments, nil)
		f.PostureConsistency = 1.0 / (1.0 + popVariance(alignments))
	}
}

// alignmentAngle is the angle between the shoulder line and the hip line.
func alignmentAngle(fr pose.Frame) (float64, bool) {
	sx := fr.Keypoints[pose.RightShoulder].X - fr.Keypoints[pose.LeftShoulder].X
	sy := fr.Keypoints[pose.RightShoulder].Y - fr.Keypoints[pose.LeftShoulder].Y
	hx := fr.Keypoints[pose.RightHip].X - fr.Keypoints[pose.LeftHip].X
	hy := fr.Keypoints[pose.RightHip].Y - fr.Keypoints[pose.LeftHip].Y
	ns, nh := math.Hypot(sx, sy), math.Hypot(hx, hy)
	if ns == 0 || nh == 0 {
		return 0, false
	}
	cos := (sx*hx + sy*hy) / (ns * nh)
	cos = math.Max(-1, math.Min(1, cos))
	return math.Acos(cos) * 180 / math.Pi, true
}

// popVariance and popStdDev mirror the population (biased) moments the
// detection thresholds were tuned against.
func popVariance(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	m := stat.Mean(xs, nil)
	var sum float64
	for _, x := range xs {
		d := x - m
		sum += d * d
	}
	return sum / float64(len(xs))
}

func popStdDev(xs []float64) float64 {
	return math.Sqrt(popVariance(xs))
}
