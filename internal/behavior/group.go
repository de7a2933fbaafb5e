// internal/behavior/group.go
package behavior

import (
	"math"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/stat"
)

// Snapshot is one entity's position in one time slice of a batch.
type Snapshot struct {
	EntityID string
	X, Y     float64
}

// GroupAnalyzer detects cross-entity behaviors within a single batch. It is
// stateless: each call looks only at the slices it is given.
type GroupAnalyzer struct {
	rules map[string]Rule
	rate  float64
	log   zerolog.Logger
	now   func() time.Time
}

// NewGroupAnalyzer builds a group analyzer over the given rule set.
func NewGroupAnalyzer(rules map[string]Rule, rate float64, log zerolog.Logger) *GroupAnalyzer {
	return &GroupAnalyzer{rules: rules, rate: rate, log: log, now: time.Now}
}

// Detect runs the group rules over the batch's time slices, keyed by frame
// index.
func (g *GroupAnalyzer) Detect(slices map[int][]Snapshot) []Event {
	if len(slices) == 0 {
		return nil
	}
	var events []Event
	if ev, ok := g.crowdFormation(slices); ok {
		events = append(events, ev)
	}
	if ev, ok := g.massMovement(slices); ok {
		events = append(events, ev)
	}
	return events
}

// crowdFormation inspects the most recent slice: enough people, with a high
// enough fraction of pairwise distances under the proximity threshold.
func (g *GroupAnalyzer) crowdFormation(slices map[int][]Snapshot) (Event, bool) {
	rule := g.rules[TypeCrowdFormation]

	latest := -1
	for idx := range slices {
		if idx > latest {
			latest = idx
		}
	}
	people := slices[latest]
	if len(people) < int(rule.Param("min_people_count", 5)) {
		return Event{}, false
	}

	proximity := rule.Param("proximity_threshold", 100)
	var distances []float64
	closePairs := 0
	for i := 0; i < len(people); i++ {
		for j := i + 1; j < len(people); j++ {
			d := math.Hypot(people[i].X-people[j].X, people[i].Y-people[j].Y)
			distances = append(distances, d)
			if d < proximity {
				closePairs++
			}
		}
	}
	ratio := float64(closePairs) / math.Max(float64(len(distances)), 1)
	if ratio <= rule.Param("density_threshold", 0.7) {
		return Event{}, false
	}

	minX, maxX := people[0].X, people[0].X
	minY, maxY := people[0].Y, people[0].Y
	for _, p := range people[1:] {
		minX = math.Min(minX, p.X)
		maxX = math.Max(maxX, p.X)
		minY = math.Min(minY, p.Y)
		maxY = math.Max(maxY, p.Y)
	}
	density := float64(len(people)) / math.Max((maxX-minX)*(maxY-minY), 1)

	ev := g.event(rule, math.Min(0.9, ratio), CrowdEvidence{
		PeopleCount:    len(people),
		AvgDistance:    stat.Mean(distances, nil),
		Density:        density,
		ProximityRatio: ratio,
	})
	return ev, true
}

const minMovementSamples = 10

// massMovement tracks greedy nearest-neighbor displacement across the last
// second of multi-person slices. High mean displacement with high
// consistency across people indicates a stampede or evacuation.
func (g *GroupAnalyzer) massMovement(slices map[int][]Snapshot) (Event, bool) {
	rule := g.rules[TypeMassMovement]
	window := int(g.rate) // ~1s of slices
	if len(slices) < window {
		return Event{}, false
	}

	keys := make([]int, 0, len(slices))
	for idx := range slices {
		keys = append(keys, idx)
	}
	sort.Ints(keys)
	keys = keys[len(keys)-window:]

	trackCap := rule.Param("tracking_distance_cap", 200)
	var movements []float64
	for i := 1; i < len(keys); i++ {
		prev, curr := slices[keys[i-1]], slices[keys[i]]
		if len(prev) < 3 || len(curr) < 3 {
			continue
		}
		var frame []float64
		for _, p := range curr {
			// Greedy nearest match under the cap, not a full assignment.
			best := math.Inf(1)
			for _, q := range prev {
				d := math.Hypot(p.X-q.X, p.Y-q.Y)
				if d < best && d < trackCap {
					best = d
				}
			}
			if !math.IsInf(best, 1) {
				frame = append(frame, best)
			}
		}
		if len(frame) > 0 {
			movements = append(movements, stat.Mean(frame, nil))
		}
	}
	if len(movements) < minMovementSamples {
		return Event{}, false
	}

	avg := stat.Mean(movements, nil)
	consistency := 1.0 - math.Sqrt(popVar(movements))/math.Max(avg, 1)
	if avg <= rule.Param("movement_threshold", 150) ||
		consistency <= rule.Param("consistency_threshold", 0.6) {
		return Event{}, false
	}

	ev := g.event(rule, math.Min(0.9, consistency), MassMovementEvidence{
		AvgMovement: avg,
		Consistency: consistency,
	})
	return ev, true
}

func (g *GroupAnalyzer) event(rule Rule, confidence float64, evidence Evidence) Event {
	return Event{
		Type:        rule.Name,
		Subject:     GroupSubject,
		Confidence:  confidence,
		Threat:      rule.Threat,
		Description: rule.Description,
		Timestamp:   g.now(),
		Evidence:    evidence,
	}
}
