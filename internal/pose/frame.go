// internal/pose/frame.go
package pose

import (
	"fmt"
	"math"
)

// NumKeypoints is the fixed slot count of a pose detection (COCO-17 layout).
const NumKeypoints = 17

// Joint indices in COCO-17 order.
const (
	Nose = iota
	LeftEye
	RightEye
	LeftEar
	RightEar
	LeftShoulder
	RightShoulder
	LeftElbow
	RightElbow
	LeftWrist
	RightWrist
	LeftHip
	RightHip
	LeftKnee
	RightKnee
	LeftAnkle
	RightAnkle
)

// ConfidenceFloor is the minimum per-keypoint confidence below which a
// keypoint is treated as absent by every feature and rule.
const ConfidenceFloor = 0.5

// Keypoint is one anatomical landmark in image-pixel space.
type Keypoint struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Confidence float64 `json:"confidence"`
}

// Confident reports whether the keypoint clears the confidence floor.
func (k Keypoint) Confident() bool {
	return k.Confidence > ConfidenceFloor
}

// Frame is one pose observation for a tracked entity. Immutable once built.
type Frame struct {
	Index     int                    `json:"frame_index"`
	Timestamp float64                `json:"timestamp"` // seconds
	Keypoints [NumKeypoints]Keypoint `json:"keypoints"`
}

// InvalidFrameError signals a malformed frame rejected at ingestion.
type InvalidFrameError struct {
	EntityID string
	Index    int
	Reason   string
}

func (e *InvalidFrameError) Error() string {
	return fmt.Sprintf("invalid frame %d for entity %q: %s", e.Index, e.EntityID, e.Reason)
}

// NewFrame builds a Frame from a raw keypoint slice, enforcing the slot count
// and confidence range. This is the only place malformed input is rejected;
// downstream feature math assumes well-formed frames.
func NewFrame(entityID string, index int, timestamp float64, points []Keypoint) (Frame, error) {
	if len(points) != NumKeypoints {
		return Frame{}, &InvalidFrameError{
			EntityID: entityID,
			Index:    index,
			Reason:   fmt.Sprintf("expected %d keypoints, got %d", NumKeypoints, len(points)),
		}
	}
	f := Frame{Index: index, Timestamp: timestamp}
	for i, p := range points {
		if p.Confidence < 0 || p.Confidence > 1 {
			return Frame{}, &InvalidFrameError{
				EntityID: entityID,
				Index:    index,
				Reason:   fmt.Sprintf("keypoint %d confidence %.3f outside [0,1]", i, p.Confidence),
			}
		}
		f.Keypoints[i] = p
	}
	return f, nil
}

// BBox is an axis-aligned bounding box in image-pixel space.
type BBox struct {
	X1, Y1, X2, Y2 float64
}

// Center returns the box midpoint.
func (b BBox) Center() (float64, float64) {
	return (b.X1 + b.X2) / 2, (b.Y1 + b.Y2) / 2
}

const bboxPadding = 20

// BBox derives a padded bounding box from the frame's confident keypoints.
// A frame with no confident keypoints gets a fixed default box.
func (f Frame) BBox() BBox {
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	found := false
	for _, k := range f.Keypoints {
		if !k.Confident() {
			continue
		}
		found = true
		minX = math.Min(minX, k.X)
		minY = math.Min(minY, k.Y)
		maxX = math.Max(maxX, k.X)
		maxY = math.Max(maxY, k.Y)
	}
	if !found {
		return BBox{0, 0, 100, 100}
	}
	return BBox{minX - bboxPadding, minY - bboxPadding, maxX + bboxPadding, maxY + bboxPadding}
}

// Mid returns the midpoint of two joints, ignoring confidence. Extractors
// that need confidence gating check the joints themselves first.
func (f Frame) Mid(a, b int) (float64, float64) {
	return (f.Keypoints[a].X + f.Keypoints[b].X) / 2, (f.Keypoints[a].Y + f.Keypoints[b].Y) / 2
}

// MidHip returns the hip-center point and whether both hips are confident.
func (f Frame) MidHip() (float64, float64, bool) {
	x, y := f.Mid(LeftHip, RightHip)
	return x, y, f.Keypoints[LeftHip].Confident() && f.Keypoints[RightHip].Confident()
}

// MidShoulder returns the shoulder-center point and whether both shoulders
// are confident.
func (f Frame) MidShoulder() (float64, float64, bool) {
	x, y := f.Mid(LeftShoulder, RightShoulder)
	return x, y, f.Keypoints[LeftShoulder].Confident() && f.Keypoints[RightShoulder].Confident()
}
