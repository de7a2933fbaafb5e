// internal/behavior/events.go

// Package behavior classifies windows of buffered pose frames into discrete,
// confidence-scored events and aggregates them into a threat level.
package behavior

import (
	"encoding/json"
	"fmt"
	"time"
)

// Level is the ordinal threat severity attached to events and batches.
type Level int

const (
	Low Level = iota
	Medium
	High
	Critical
)

var levelNames = [...]string{"low", "medium", "high", "critical"}

func (l Level) String() string {
	if l < Low || l > Critical {
		return "low"
	}
	return levelNames[l]
}

// ParseLevel converts the wire form back to a Level.
func ParseLevel(s string) (Level, error) {
	for i, name := range levelNames {
		if name == s {
			return Level(i), nil
		}
	}
	return Low, fmt.Errorf("unknown threat level %q", s)
}

func (l Level) MarshalJSON() ([]byte, error) {
	return json.Marshal(l.String())
}

func (l *Level) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseLevel(s)
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

// Qualifying reports whether the level warrants an alert.
func (l Level) Qualifying() bool {
	return l >= High
}

// Event types.
const (
	TypeLoitering      = "loitering"
	TypeFighting       = "fighting"
	TypeFall           = "fall"
	TypeConcealment    = "concealment"
	TypeRunning        = "running"
	TypeErraticMove    = "erratic_movement"
	TypeCrowdFormation = "crowd_formation"
	TypeMassMovement   = "mass_movement"
	TypeGaitMatch      = "gait_match"
)

// GroupSubject marks events produced by cross-entity analysis.
const GroupSubject = "group"

// Point is an image-space location.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Evidence carries the measured values specific to one event kind. Each kind
// has its own variant so consumers get only the fields that kind produces.
type Evidence interface {
	evidence()
}

// Event is one detected occurrence of a named behavior.
type Event struct {
	Type        string    `json:"type"`
	Subject     string    `json:"subject"` // entity id, or "group"
	Confidence  float64   `json:"confidence"`
	Threat      Level     `json:"threat_level"`
	Description string    `json:"description"`
	Timestamp   time.Time `json:"timestamp"`
	Evidence    Evidence  `json:"evidence,omitempty"`
}

// LoiteringEvidence reports how long and where the subject stayed put.
type LoiteringEvidence struct {
	Duration float64 `json:"duration"` // seconds
	Location Point   `json:"location"`
}

// FightingEvidence carries the three measurements behind the AND decision.
type FightingEvidence struct {
	AvgMotion       float64 `json:"avg_motion"`
	MotionVariance  float64 `json:"motion_variance"`
	PoseInstability float64 `json:"pose_instability"`
	Location        Point   `json:"location"`
}

// FallEvidence carries the fall indicators and the resulting severity tier.
type FallEvidence struct {
	VerticalVelocity float64 `json:"vertical_velocity"`
	BodyAngle        float64 `json:"body_angle"`
	Severity         string  `json:"severity"` // minor, moderate, severe
	Location         Point   `json:"location"`
}

// ConcealmentEvidence names the body area the hands dwelt near.
type ConcealmentEvidence struct {
	Location string  `json:"location"` // pocket, waistband, jacket
	Duration float64 `json:"duration"` // seconds
}

// RunningEvidence carries speed and direction statistics.
type RunningEvidence struct {
	Speed       float64 `json:"speed"` // px/s, window average
	MaxSpeed    float64 `json:"max_speed"`
	Direction   float64 `json:"direction"` // radians, window mean
	Consistency float64 `json:"consistency"`
}

// ErraticEvidence carries the two measurements behind the OR decision.
type ErraticEvidence struct {
	DirectionChangeRate float64 `json:"direction_change_rate"` // per 10s
	SpeedVariance       float64 `json:"speed_variance"`
}

// CrowdEvidence describes the detected gathering.
type CrowdEvidence struct {
	PeopleCount    int     `json:"people_count"`
	AvgDistance    float64 `json:"avg_distance"`
	Density        float64 `json:"density"`
	ProximityRatio float64 `json:"proximity_ratio"`
}

// MassMovementEvidence describes coordinated group displacement.
type MassMovementEvidence struct {
	AvgMovement float64 `json:"avg_movement"`
	Consistency float64 `json:"consistency"`
}

// GaitMatchEvidence identifies the matched profile.
type GaitMatchEvidence struct {
	ProfileID         string  `json:"profile_id"`
	Name              string  `json:"name"`
	Similarity        float64 `json:"similarity"`
	ProfileConfidence float64 `json:"profile_confidence"`
}

func (LoiteringEvidence) evidence()    {}
func (FightingEvidence) evidence()     {}
func (FallEvidence) evidence()         {}
func (ConcealmentEvidence) evidence()  {}
func (RunningEvidence) evidence()      {}
func (ErraticEvidence) evidence()      {}
func (CrowdEvidence) evidence()        {}
func (MassMovementEvidence) evidence() {}
func (GaitMatchEvidence) evidence()    {}
