// internal/behavior/detect.go
package behavior

import (
	"math"
	"time"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/stat"

	"pose-sentinel/internal/pose"
)

// Fixed decision constants that are not per-rule thresholds.
const (
	minHistoryFrames    = 10  // below this no per-entity rule is evaluated
	fightingInstability = 500 // pose-instability floor for the fighting AND
	fallWindow          = 10  // frames inspected for fall indicators
	minHipSamples       = 5   // confident hip-height samples a fall check needs
	significantMovePx   = 5   // displacement floor for erratic direction samples
	minErraticSamples   = 10
)

// Detector evaluates the per-entity behavior rules over a frame window.
// Rules are independent: one evaluation pass may emit several simultaneous
// events, and a fault in one rule never aborts the others.
type Detector struct {
	rules map[string]Rule
	rate  float64
	log   zerolog.Logger
	now   func() time.Time
}

// NewDetector builds a detector for the given rule set and sample rate.
func NewDetector(rules map[string]Rule, rate float64, log zerolog.Logger) *Detector {
	return &Detector{rules: rules, rate: rate, log: log, now: time.Now}
}

// Rules exposes the configured rule set for introspection.
func (d *Detector) Rules() map[string]Rule {
	out := make(map[string]Rule, len(d.rules))
	for k, v := range d.rules {
		out[k] = v
	}
	return out
}

// DetectAll runs every per-entity rule against the history window and
// returns the events that fired.
func (d *Detector) DetectAll(entityID string, history []pose.Frame) []Event {
	if len(history) < minHistoryFrames {
		return nil
	}
	var events []Event
	if ev, ok := d.loitering(entityID, history); ok {
		events = append(events, ev)
	}
	if ev, ok := d.fighting(entityID, history); ok {
		events = append(events, ev)
	}
	if ev, ok := d.fall(entityID, history); ok {
		events = append(events, ev)
	}
	if ev, ok := d.concealment(entityID, history); ok {
		events = append(events, ev)
	}
	if ev, ok := d.running(entityID, history); ok {
		events = append(events, ev)
	}
	if ev, ok := d.erratic(entityID, history); ok {
		events = append(events, ev)
	}
	if len(events) > 0 {
		d.log.Debug().Str("entity", entityID).Int("events", len(events)).Msg("behaviors detected")
	}
	return events
}

func (d *Detector) event(rule Rule, subject string, confidence float64, ev Evidence) Event {
	return Event{
		Type:        rule.Name,
		Subject:     subject,
		Confidence:  confidence,
		Threat:      rule.Threat,
		Description: rule.Description,
		Timestamp:   d.now(),
		Evidence:    ev,
	}
}

// loitering fires when average consecutive displacement and summed position
// variance both stay under their thresholds for the rule's full duration.
func (d *Detector) loitering(entityID string, history []pose.Frame) (Event, bool) {
	rule := d.rules[TypeLoitering]
	if len(history) < rule.MinFrames(d.rate) {
		return Event{}, false
	}

	xs := make([]float64, len(history))
	ys := make([]float64, len(history))
	var totalMove float64
	for i, fr := range history {
		xs[i], ys[i] = fr.BBox().Center()
		if i > 0 {
			totalMove += pose.Dist(xs[i-1], ys[i-1], xs[i], ys[i])
		}
	}
	avgMove := totalMove / math.Max(float64(len(history)-1), 1)
	totalVariance := popVar(xs) + popVar(ys)

	if avgMove >= rule.Param("movement_threshold", 50) ||
		totalVariance >= rule.Param("position_variance_threshold", 30) {
		return Event{}, false
	}
	return d.event(rule, entityID, 0.85, LoiteringEvidence{
		Duration: float64(len(history)) / d.rate,
		Location: Point{X: stat.Mean(xs, nil), Y: stat.Mean(ys, nil)},
	}), true
}

var upperBodyJoints = []int{
	pose.LeftShoulder, pose.RightShoulder,
	pose.LeftElbow, pose.RightElbow,
	pose.LeftWrist, pose.RightWrist,
}

// fighting requires all three of: high upper-body motion, high motion
// variance, and high pose instability. AND, not OR.
func (d *Detector) fighting(entityID string, history []pose.Frame) (Event, bool) {
	rule := d.rules[TypeFighting]
	min := rule.MinFrames(d.rate)
	if len(history) < min {
		return Event{}, false
	}
	recent := history[len(history)-min:]

	var motions []float64
	for i := 1; i < len(recent); i++ {
		var total float64
		for _, j := range upperBodyJoints {
			p, c := recent[i-1].Keypoints[j], recent[i].Keypoints[j]
			if p.Confident() && c.Confident() {
				total += pose.Dist(p.X, p.Y, c.X, c.Y)
			}
		}
		motions = append(motions, total)
	}
	if len(motions) == 0 {
		return Event{}, false
	}
	avgMotion := stat.Mean(motions, nil)
	motionVariance := popVar(motions)
	instability := poseInstability(recent)

	if avgMotion <= rule.Param("motion_threshold", 200) ||
		motionVariance <= rule.Param("pose_variance_threshold", 100) ||
		instability <= fightingInstability {
		return Event{}, false
	}

	cx, cy := recent[len(recent)-1].BBox().Center()
	return d.event(rule, entityID, 0.90, FightingEvidence{
		AvgMotion:       avgMotion,
		MotionVariance:  motionVariance,
		PoseInstability: instability,
		Location:        Point{X: cx, Y: cy},
	}), true
}

// poseInstability averages the per-frame variance of confident-keypoint
// distances from their centroid. Frames with 8 or fewer confident keypoints
// are skipped.
func poseInstability(frames []pose.Frame) float64 {
	var scores []float64
	for _, fr := range frames {
		var sx, sy float64
		var n int
		for _, k := range fr.Keypoints {
			if k.Confident() {
				sx += k.X
				sy += k.Y
				n++
			}
		}
		if n <= 8 {
			continue
		}
		cx, cy := sx/float64(n), sy/float64(n)
		dists := make([]float64, 0, n)
		for _, k := range fr.Keypoints {
			if k.Confident() {
				dists = append(dists, pose.Dist(k.X, k.Y, cx, cy))
			}
		}
		scores = append(scores, popVar(dists))
	}
	if len(scores) == 0 {
		return 0
	}
	return stat.Mean(scores, nil)
}

// fall inspects the last fallWindow frames for downward hip velocity and
// body tilt. Two indicators are required to emit; each raises severity.
//
// TODO: add a ground-proximity indicator once the capture layer supplies
// frame height; the pixel-space contract alone cannot define it.
func (d *Detector) fall(entityID string, history []pose.Frame) (Event, bool) {
	rule := d.rules[TypeFall]
	if len(history) < fallWindow {
		return Event{}, false
	}
	recent := history[len(history)-fallWindow:]

	var hipHeights []float64
	for _, fr := range recent {
		if _, y, ok := fr.MidHip(); ok {
			hipHeights = append(hipHeights, y)
		}
	}
	if len(hipHeights) < minHipSamples {
		return Event{}, false
	}

	// Positive velocity = moving down in image coordinates.
	elapsed := math.Max(float64(len(hipHeights))/d.rate, 0.1)
	velocity := (hipHeights[len(hipHeights)-1] - hipHeights[0]) / elapsed
	angle := pose.BodyTiltDeg(recent[len(recent)-1])

	indicators := 0
	severity := "minor"
	if velocity > rule.Param("vertical_velocity_threshold", 150) {
		indicators++
		severity = "moderate"
	}
	if angle > rule.Param("pose_angle_threshold", 45) {
		indicators++
		severity = "severe"
	}
	if indicators < 2 {
		return Event{}, false
	}

	cx, cy := recent[len(recent)-1].BBox().Center()
	confidence := math.Min(0.95, 0.6+0.15*float64(indicators))
	return d.event(rule, entityID, confidence, FallEvidence{
		VerticalVelocity: velocity,
		BodyAngle:        angle,
		Severity:         severity,
		Location:         Point{X: cx, Y: cy},
	}), true
}

// concealmentAreas is the fixed evaluation order; the first area whose tally
// clears the threshold wins.
var concealmentAreas = []string{"pocket", "waistband", "jacket"}

// concealment tallies wrist dwell time near pocket, waistband and chest
// areas over a short window and fires when one area dominates it.
func (d *Detector) concealment(entityID string, history []pose.Frame) (Event, bool) {
	rule := d.rules[TypeConcealment]
	span := int(rule.Param("concealment_duration_threshold", 3.0) * d.rate)
	if span <= 0 || len(history) < span {
		return Event{}, false
	}
	recent := history[len(history)-span:]
	proximity := rule.Param("hand_proximity_threshold", 40)

	scores := map[string]int{}
	for _, fr := range recent {
		for _, side := range [][3]int{
			{pose.LeftWrist, pose.LeftHip, pose.LeftShoulder},
			{pose.RightWrist, pose.RightHip, pose.RightShoulder},
		} {
			wrist := fr.Keypoints[side[0]]
			hip := fr.Keypoints[side[1]]
			shoulder := fr.Keypoints[side[2]]
			if !wrist.Confident() || !hip.Confident() || !shoulder.Confident() {
				continue
			}

			if pose.Dist(wrist.X, wrist.Y, hip.X, hip.Y) < proximity {
				scores["pocket"]++
			}

			wx, wy := fr.Mid(pose.LeftHip, pose.RightHip)
			if pose.Dist(wrist.X, wrist.Y, wx, wy) < proximity*0.8 {
				scores["waistband"]++
			}

			chestY := shoulder.Y + (hip.Y-shoulder.Y)*0.6
			if pose.Dist(wrist.X, wrist.Y, shoulder.X, chestY) < proximity {
				scores["jacket"]++
			}
		}
	}

	required := int(float64(span) * rule.Param("concealment_tally_fraction", 0.6))
	for _, area := range concealmentAreas {
		if scores[area] > required {
			confidence := math.Min(float64(scores[area])/float64(len(recent)), 1.0)
			ev := d.event(rule, entityID, confidence, ConcealmentEvidence{
				Location: area,
				Duration: float64(scores[area]) / d.rate,
			})
			ev.Description = "Suspicious hand movements near " + area
			return ev, true
		}
	}
	return Event{}, false
}

// running measures bbox-center speed over the rule window and blends speed
// and direction consistency into the confidence.
func (d *Detector) running(entityID string, history []pose.Frame) (Event, bool) {
	rule := d.rules[TypeRunning]
	min := rule.MinFrames(d.rate)
	if len(history) < min {
		return Event{}, false
	}
	recent := history[len(history)-min:]

	var speeds, directions []float64
	for i := 1; i < len(recent); i++ {
		px, py := recent[i-1].BBox().Center()
		cx, cy := recent[i].BBox().Center()
		dist := pose.Dist(px, py, cx, cy)
		speed := dist * d.rate
		if speed > 0 {
			speeds = append(speeds, speed)
			directions = append(directions, math.Atan2(cy-py, cx-px))
		}
	}
	if len(speeds) == 0 {
		return Event{}, false
	}

	avgSpeed := stat.Mean(speeds, nil)
	if avgSpeed <= rule.Param("speed_threshold", 300) {
		return Event{}, false
	}
	speedConsistency := 1.0 - math.Sqrt(popVar(speeds))/math.Max(avgSpeed, 1)

	changes := 0
	for i := 1; i < len(directions); i++ {
		if angleDelta(directions[i], directions[i-1]) > math.Pi/4 {
			changes++
		}
	}
	directionConsistency := 1.0 - float64(changes)/math.Max(float64(len(directions)), 1)

	confidence := math.Min(0.95, 0.6+speedConsistency*0.2+directionConsistency*0.15)
	return d.event(rule, entityID, confidence, RunningEvidence{
		Speed:       avgSpeed,
		MaxSpeed:    maxOf(speeds),
		Direction:   stat.Mean(directions, nil),
		Consistency: (speedConsistency + directionConsistency) / 2,
	}), true
}

// erratic fires on a high direction-change rate OR high speed variance over
// significant displacements. OR, not AND.
func (d *Detector) erratic(entityID string, history []pose.Frame) (Event, bool) {
	rule := d.rules[TypeErraticMove]
	min := rule.MinFrames(d.rate)
	if len(history) < min {
		return Event{}, false
	}
	recent := history[len(history)-min:]

	var speeds, directions []float64
	for i := 1; i < len(recent); i++ {
		px, py := recent[i-1].BBox().Center()
		cx, cy := recent[i].BBox().Center()
		dx, dy := cx-px, cy-py
		speed := math.Hypot(dx, dy)
		if speed > significantMovePx {
			speeds = append(speeds, speed)
			directions = append(directions, math.Atan2(dy, dx))
		}
	}
	if len(directions) < minErraticSamples {
		return Event{}, false
	}

	changes := 0
	for i := 1; i < len(directions); i++ {
		if angleDelta(directions[i], directions[i-1]) > math.Pi/3 {
			changes++
		}
	}
	// Normalize to a per-10-second rate at the assumed sample rate.
	changeRate := float64(changes) / float64(len(directions)) * 10 * d.rate
	speedVariance := popVar(speeds)

	if changeRate <= rule.Param("direction_change_threshold", 6) &&
		speedVariance <= rule.Param("speed_variance_threshold", 150) {
		return Event{}, false
	}
	return d.event(rule, entityID, 0.75, ErraticEvidence{
		DirectionChangeRate: changeRate,
		SpeedVariance:       speedVariance,
	}), true
}

// angleDelta is the absolute difference between two angles, wrapped to π.
func angleDelta(a, b float64) float64 {
	d := math.Abs(a - b)
	if d > math.Pi {
		d = 2*math.Pi - d
	}
	return d
}

func maxOf(xs []float64) float64 {
	m := xs[0]
	for _, x := range xs[1:] {
		if x > m {
			m = x
		}
	}
	return m
}

// popVar is the population variance the thresholds were tuned against.
func popVar(xs []float64) float64 {
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
