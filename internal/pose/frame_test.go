// internal/pose/frame_test.go
package pose

import (
	"errors"
	"math"
	"testing"
)

func confidentPoints() []Keypoint {
	pts := make([]Keypoint, NumKeypoints)
	for i := range pts {
		pts[i] = Keypoint{X: float64(10 * i), Y: float64(5 * i), Confidence: 0.9}
	}
	return pts
}

// TestNewFrameRejectsWrongSlotCount verifies the fixed 17-slot contract.
func TestNewFrameRejectsWrongSlotCount(t *testing.T) {
	_, err := NewFrame("e1", 0, 0, confidentPoints()[:16])
	if err == nil {
		t.Fatal("expected error for 16 keypoints")
	}
	var ife *InvalidFrameError
	if !errors.As(err, &ife) {
		t.Fatalf("expected InvalidFrameError, got %T", err)
	}
	if ife.EntityID != "e1" {
		t.Errorf("expected entity e1 in error, got %q", ife.EntityID)
	}
}

// TestNewFrameRejectsConfidenceOutOfRange verifies the [0,1] check.
func TestNewFrameRejectsConfidenceOutOfRange(t *testing.T) {
	for _, conf := range []float64{-0.1, 1.5} {
		pts := confidentPoints()
		pts[3].Confidence = conf
		if _, err := NewFrame("e1", 0, 0, pts); err == nil {
			t.Errorf("confidence %v: expected error, got nil", conf)
		}
	}
}

// TestNewFrameAccepts verifies a well-formed frame passes through intact.
func TestNewFrameAccepts(t *testing.T) {
	f, err := NewFrame("e1", 7, 1.25, confidentPoints())
	if err != nil {
		t.Fatalf("NewFrame failed: %v", err)
	}
	if f.Index != 7 || f.Timestamp != 1.25 {
		t.Errorf("frame metadata not preserved: %+v", f)
	}
	if f.Keypoints[Nose].Confidence != 0.9 {
		t.Errorf("keypoints not preserved")
	}
}

// TestConfidentUsesStrictFloor verifies the floor is exclusive.
func TestConfidentUsesStrictFloor(t *testing.T) {
	if (Keypoint{Confidence: ConfidenceFloor}).Confident() {
		t.Error("confidence exactly at the floor should not count")
	}
	if !(Keypoint{Confidence: ConfidenceFloor + 0.01}).Confident() {
		t.Error("confidence above the floor should count")
	}
}

// TestBBoxDefaultWhenNoConfidentKeypoints verifies the fallback box.
func TestBBoxDefaultWhenNoConfidentKeypoints(t *testing.T) {
	var f Frame
	for i := range f.Keypoints {
		f.Keypoints[i] = Keypoint{X: 500, Y: 500, Confidence: 0.1}
	}
	b := f.BBox()
	if b != (BBox{0, 0, 100, 100}) {
		t.Errorf("expected default box, got %+v", b)
	}
}

// TestBBoxPadsConfidentExtent verifies padding and confidence gating.
func TestBBoxPadsConfidentExtent(t *testing.T) {
	var f Frame
	f.Keypoints[Nose] = Keypoint{X: 100, Y: 50, Confidence: 0.9}
	f.Keypoints[LeftAnkle] = Keypoint{X: 140, Y: 250, Confidence: 0.9}
	// Low-confidence outlier must not widen the box.
	f.Keypoints[RightWrist] = Keypoint{X: 1000, Y: 1000, Confidence: 0.2}

	b := f.BBox()
	want := BBox{80, 30, 160, 270}
	if b != want {
		t.Errorf("expected %+v, got %+v", want, b)
	}
	cx, cy := b.Center()
	if cx != 120 || cy != 150 {
		t.Errorf("expected center (120,150), got (%v,%v)", cx, cy)
	}
}

// TestAngleDeg verifies the vertex angle on known geometries.
func TestAngleDeg(t *testing.T) {
	tests := []struct {
		name                   string
		ax, ay, bx, by, cx, cy float64
		want                   float64
	}{
		{"straight line", 0, 0, 0, 1, 0, 2, 180},
		{"right angle", 1, 0, 0, 0, 0, 1, 90},
		{"collinear back", 2, 0, 1, 0, 0, 0, 180},
	}
	for _, tt := range tests {
		got := AngleDeg(tt.ax, tt.ay, tt.bx, tt.by, tt.cx, tt.cy)
		if math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("%s: expected %v degrees, got %v", tt.name, tt.want, got)
		}
	}
}

// TestAngleDegDegenerate verifies zero-length vectors yield NaN.
func TestAngleDegDegenerate(t *testing.T) {
	if got := AngleDeg(1, 1, 1, 1, 2, 2); !math.IsNaN(got) {
		t.Errorf("expected NaN for coincident points, got %v", got)
	}
}

func torsoFrame(sx, sy, hx, hy float64) Frame {
	var f Frame
	f.Keypoints[LeftShoulder] = Keypoint{X: sx - 10, Y: sy, Confidence: 0.9}
	f.Keypoints[RightShoulder] = Keypoint{X: sx + 10, Y: sy, Confidence: 0.9}
	f.Keypoints[LeftHip] = Keypoint{X: hx - 10, Y: hy, Confidence: 0.9}
	f.Keypoints[RightHip] = Keypoint{X: hx + 10, Y: hy, Confidence: 0.9}
	return f
}

// TestBodyTiltDeg verifies tilt against the image vertical.
func TestBodyTiltDeg(t *testing.T) {
	upright := torsoFrame(100, 40, 100, 100)
	if got := BodyTiltDeg(upright); math.Abs(got) > 1e-9 {
		t.Errorf("upright torso: expected 0 degrees, got %v", got)
	}

	// Shoulders displaced far to the side of the hips.
	tilted := torsoFrame(200, 80, 100, 100)
	got := BodyTiltDeg(tilted)
	if got < 45 {
		t.Errorf("tilted torso: expected > 45 degrees, got %v", got)
	}

	// Unconfident hips collapse to the 0 default.
	missing := torsoFrame(200, 80, 100, 100)
	missing.Keypoints[LeftHip].Confidence = 0.1
	if got := BodyTiltDeg(missing); got != 0 {
		t.Errorf("unconfident torso: expected 0, got %v", got)
	}
}

// TestSafeDiv verifies the zero-denominator default.
func TestSafeDiv(t *testing.T) {
	if got := SafeDiv(10, 0); got != 0 {
		t.Errorf("expected 0 for zero denominator, got %v", got)
	}
	if got := SafeDiv(10, 4); got != 2.5 {
		t.Errorf("expected 2.5, got %v", got)
	}
}
