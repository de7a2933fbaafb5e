// internal/behavior/group_test.go
package behavior

import (
	"fmt"
	"testing"

	"github.com/rs/zerolog"
)

func testGroupAnalyzer() *GroupAnalyzer {
	return NewGroupAnalyzer(DefaultRules(), testRate, zerolog.Nop())
}

// TestCrowdFormationCluster verifies a tight 5-person gathering fires at
// medium threat with full proximity ratio.
func TestCrowdFormationCluster(t *testing.T) {
	g := testGroupAnalyzer()
	slices := map[int][]Snapshot{
		0: {
			{EntityID: "p1", X: 100, Y: 100},
			{EntityID: "p2", X: 130, Y: 100},
			{EntityID: "p3", X: 100, Y: 130},
			{EntityID: "p4", X: 130, Y: 130},
			{EntityID: "p5", X: 115, Y: 115},
		},
	}

	events := g.Detect(slices)
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d: %v", len(events), events)
	}
	ev := events[0]
	if ev.Type != TypeCrowdFormation {
		t.Fatalf("expected crowd_formation, got %s", ev.Type)
	}
	if ev.Threat != Medium {
		t.Errorf("expected medium threat, got %s", ev.Threat)
	}
	if ev.Subject != GroupSubject {
		t.Errorf("expected group subject, got %q", ev.Subject)
	}
	ce := ev.Evidence.(CrowdEvidence)
	if ce.PeopleCount != 5 {
		t.Errorf("expected 5 people, got %d", ce.PeopleCount)
	}
	if ce.ProximityRatio != 1.0 {
		t.Errorf("all pairs are close, expected ratio 1.0, got %v", ce.ProximityRatio)
	}
	if ev.Confidence != 0.9 {
		t.Errorf("expected confidence capped at 0.9, got %v", ev.Confidence)
	}
}

// TestCrowdFormationTooFew verifies 4 people never form a crowd, however
// close.
func TestCrowdFormationTooFew(t *testing.T) {
	g := testGroupAnalyzer()
	slices := map[int][]Snapshot{
		0: {
			{EntityID: "p1", X: 100, Y: 100},
			{EntityID: "p2", X: 105, Y: 100},
			{EntityID: "p3", X: 100, Y: 105},
			{EntityID: "p4", X: 105, Y: 105},
		},
	}
	if events := g.Detect(slices); len(events) != 0 {
		t.Errorf("expected no events for 4 people, got %v", events)
	}
}

// TestCrowdFormationSpreadOut verifies a queue-like line stays quiet.
func TestCrowdFormationSpreadOut(t *testing.T) {
	g := testGroupAnalyzer()
	people := make([]Snapshot, 5)
	for i := range people {
		people[i] = Snapshot{EntityID: fmt.Sprintf("p%d", i), X: 150 * float64(i), Y: 200}
	}
	if events := g.Detect(map[int][]Snapshot{0: people}); len(events) != 0 {
		t.Errorf("expected no events for a spread line, got %v", events)
	}
}

// TestCrowdFormationUsesLatestSlice verifies only the newest slice decides:
// an earlier crowded slice must not fire once the group has dispersed.
func TestCrowdFormationUsesLatestSlice(t *testing.T) {
	g := testGroupAnalyzer()
	crowded := []Snapshot{
		{EntityID: "p1", X: 100, Y: 100},
		{EntityID: "p2", X: 110, Y: 100},
		{EntityID: "p3", X: 100, Y: 110},
		{EntityID: "p4", X: 110, Y: 110},
		{EntityID: "p5", X: 105, Y: 105},
	}
	dispersed := make([]Snapshot, 5)
	for i := range dispersed {
		dispersed[i] = Snapshot{EntityID: fmt.Sprintf("p%d", i+1), X: 400 * float64(i), Y: 100}
	}
	if events := g.Detect(map[int][]Snapshot{0: crowded, 1: dispersed}); len(events) != 0 {
		t.Errorf("expected no events after dispersal, got %v", events)
	}
}

// movingSlices builds per-index snapshots of people in separate lanes all
// translating by step px per slice.
func movingSlices(n int, step float64) map[int][]Snapshot {
	slices := make(map[int][]Snapshot, n)
	for i := 0; i < n; i++ {
		slices[i] = []Snapshot{
			{EntityID: "a", X: step * float64(i), Y: 0},
			{EntityID: "b", X: step * float64(i), Y: 500},
			{EntityID: "c", X: step * float64(i), Y: 1000},
		}
	}
	return slices
}

// TestMassMovementStampede verifies fast, consistent group displacement
// fires at high threat.
func TestMassMovementStampede(t *testing.T) {
	g := testGroupAnalyzer()
	events := g.Detect(movingSlices(30, 160))
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d: %v", len(events), events)
	}
	ev := events[0]
	if ev.Type != TypeMassMovement {
		t.Fatalf("expected mass_movement, got %s", ev.Type)
	}
	if ev.Threat != High {
		t.Errorf("expected high threat, got %s", ev.Threat)
	}
	me := ev.Evidence.(MassMovementEvidence)
	if me.AvgMovement <= 150 {
		t.Errorf("average movement %v not above floor", me.AvgMovement)
	}
	if me.Consistency <= 0.6 {
		t.Errorf("consistency %v not above floor", me.Consistency)
	}
}

// TestMassMovementCalmFlow verifies ordinary walking-pace group motion does
// not fire.
func TestMassMovementCalmFlow(t *testing.T) {
	g := testGroupAnalyzer()
	if events := g.Detect(movingSlices(30, 50)); len(events) != 0 {
		t.Errorf("expected no events at walking pace, got %v", events)
	}
}

// TestMassMovementNeedsFullWindow verifies too few slices never fire.
func TestMassMovementNeedsFullWindow(t *testing.T) {
	g := testGroupAnalyzer()
	if events := g.Detect(movingSlices(10, 160)); len(events) != 0 {
		t.Errorf("expected no events for a short window, got %v", events)
	}
}

// TestDetectEmpty verifies the no-slices edge case.
func TestDetectEmpty(t *testing.T) {
	g := testGroupAnalyzer()
	if events := g.Detect(nil); events != nil {
		t.Errorf("expected nil, got %v", events)
	}
}
