// internal/alerting/gate.go

// Package alerting turns qualifying behavior events into deduplicated
// alerts and dispatches them to subscribers.
package alerting

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"pose-sentinel/internal/behavior"
)

// DefaultCooldown is the minimum gap between repeated alerts for the same
// (behavior type, subject, camera) key.
const DefaultCooldown = 2 * time.Minute

// Alert is a behavior event that survived cooldown gating.
type Alert struct {
	ID               string            `json:"id"`
	Type             string            `json:"type"` // always "behavior_alert"
	BehaviorType     string            `json:"behavior_type"`
	Threat           behavior.Level    `json:"threat_level"`
	Confidence       float64           `json:"confidence"`
	Description      string            `json:"description"`
	CameraID         string            `json:"camera_id"`
	StoreID          string            `json:"store_id,omitempty"`
	Subject          string            `json:"subject"`
	Metadata         behavior.Evidence `json:"metadata,omitempty"`
	Timestamp        time.Time         `json:"timestamp"`
	RequiresResponse bool              `json:"requires_response"`
}

// Gate applies cooldown-keyed deduplication to qualifying events. The
// cooldown store grows for the process lifetime; callers needing bounded
// memory prune externally via Reset.
type Gate struct {
	mu       sync.Mutex
	cooldown time.Duration
	last     map[string]time.Time
	now      func() time.Time
}

// NewGate creates a gate with the given cooldown window.
func NewGate(cooldown time.Duration) *Gate {
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}
	return &Gate{
		cooldown: cooldown,
		last:     make(map[string]time.Time),
		now:      time.Now,
	}
}

// Offer converts the event into an Alert unless it does not qualify or its
// key is still cooling down. Emitting records the new timestamp for the key.
func (g *Gate) Offer(ev behavior.Event, cameraID, storeID string) (*Alert, bool) {
	if !ev.Threat.Qualifying() {
		return nil, false
	}

	key := fmt.Sprintf("%s_%s_%s", ev.Type, ev.Subject, cameraID)
	g.mu.Lock()
	now := g.now()
	if last, ok := g.last[key]; ok && now.Sub(last) < g.cooldown {
		g.mu.Unlock()
		return nil, false
	}
	g.last[key] = now
	g.mu.Unlock()

	return &Alert{
		ID:               uuid.NewString(),
		Type:             "behavior_alert",
		BehaviorType:     ev.Type,
		Threat:           ev.Threat,
		Confidence:       ev.Confidence,
		Description:      ev.Description,
		CameraID:         cameraID,
		StoreID:          storeID,
		Subject:          ev.Subject,
		Metadata:         ev.Evidence,
		Timestamp:        now,
		RequiresResponse: ev.Threat.Qualifying(),
	}, true
}

// Size reports the number of cooldown keys currently tracked.
func (g *Gate) Size() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.last)
}

// Reset drops all cooldown state.
func (g *Gate) Reset() {
	g.mu.Lock()
	g.last = make(map[string]time.Time)
	g.mu.Unlock()
}
