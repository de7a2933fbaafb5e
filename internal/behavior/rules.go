// internal/behavior/rules.go
package behavior

// Rule is the immutable configuration of one behavior detector.
type Rule struct {
	Name        string             `json:"name"`
	Threat      Level              `json:"threat_level"`
	MinDuration float64            `json:"min_duration"` // seconds
	Description string             `json:"description"`
	Params      map[string]float64 `json:"parameters"`
}

// MinFrames converts the rule's minimum observation duration to a frame
// count at the given sample rate.
func (r Rule) MinFrames(rate float64) int {
	return int(r.MinDuration * rate)
}

// Param returns a named threshold, falling back to def when the rule does
// not carry it.
func (r Rule) Param(name string, def float64) float64 {
	if v, ok := r.Params[name]; ok {
		return v
	}
	return def
}

// DefaultRules returns the closed, statically registered rule set with its
// default thresholds. Config may override individual parameters.
func DefaultRules() map[string]Rule {
	return map[string]Rule{
		TypeLoitering: {
			Name:        TypeLoitering,
			Threat:      Medium,
			MinDuration: 4.0,
			Description: "Person stationary for extended period",
			Params: map[string]float64{
				"movement_threshold":          50, // pixels
				"position_variance_threshold": 30,
			},
		},
		TypeFighting: {
			Name:        TypeFighting,
			Threat:      High,
			MinDuration: 3.0,
			Description: "Aggressive physical confrontation detected",
			Params: map[string]float64{
				"motion_threshold":        200, // summed upper-body motion per frame pair
				"pose_variance_threshold": 100,
			},
		},
		TypeFall: {
			Name:        TypeFall,
			Threat:      High,
			MinDuration: 1.0,
			Description: "Person has fallen or collapsed",
			Params: map[string]float64{
				"vertical_velocity_threshold": 150, // px/s downward
				"pose_angle_threshold":        45,  // degrees from vertical
			},
		},
		TypeConcealment: {
			Name:        TypeConcealment,
			Threat:      Medium,
			MinDuration: 5.0,
			Description: "Suspicious concealment behavior detected",
			Params: map[string]float64{
				"hand_proximity_threshold":        40,  // pixels
				"concealment_duration_threshold":  3.0, // seconds of tallying
				"concealment_tally_fraction":      0.6,
			},
		},
		TypeRunning: {
			Name:        TypeRunning,
			Threat:      Medium,
			MinDuration: 2.0,
			Description: "Person running in monitored space",
			Params: map[string]float64{
				"speed_threshold": 300, // px/s
			},
		},
		TypeErraticMove: {
			Name:        TypeErraticMove,
			Threat:      Medium,
			MinDuration: 5.0,
			Description: "Erratic or suspicious movement pattern",
			Params: map[string]float64{
				"direction_change_threshold": 6, // per 10 seconds
				"speed_variance_threshold":   150,
			},
		},
		TypeCrowdFormation: {
			Name:        TypeCrowdFormation,
			Threat:      Medium,
			MinDuration: 10.0,
			Description: "Unusual crowd gathering detected",
			Params: map[string]float64{
				"proximity_threshold": 100, // pixels between people
				"min_people_count":    5,
				"density_threshold":   0.7,
			},
		},
		TypeMassMovement: {
			Name:        TypeMassMovement,
			Threat:      High,
			MinDuration: 1.0,
			Description: "Mass movement event detected (possible evacuation or stampede)",
			Params: map[string]float64{
				"movement_threshold":    150, // mean px per slice pair
				"consistency_threshold": 0.6,
				"tracking_distance_cap": 200,
			},
		},
		TypeGaitMatch: {
			Name:        TypeGaitMatch,
			Threat:      Low,
			MinDuration: 1.0,
			Description: "Gait signature matched a known profile",
			Params: map[string]float64{
				"similarity_floor": 0.7,
			},
		},
	}
}
