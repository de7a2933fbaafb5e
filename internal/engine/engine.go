// internal/engine/engine.go

// Package engine wires buffering, feature extraction, rule evaluation,
// group analysis, threat aggregation and alert gating into one synchronous
// per-batch analysis call.
package engine

import (
	"time"

	"github.com/rs/zerolog"

	"pose-sentinel/internal/alerting"
	"pose-sentinel/internal/behavior"
	"pose-sentinel/internal/buffer"
	"pose-sentinel/internal/gait"
	"pose-sentinel/internal/pose"
)

// Defaults for the engine's temporal model.
const (
	DefaultSampleRate     = 30.0 // frames per second assumed when timestamps are absent
	DefaultBufferCapacity = 300  // ~10s of behavior history
	MinAnalysisFrames     = 30   // buffered frames before per-entity rules run
)

// Config carries the engine's construction parameters.
type Config struct {
	SampleRate     float64
	BufferCapacity int
	Cooldown       time.Duration
	Rules          map[string]behavior.Rule
	Profiles       gait.ProfileStore // nil disables gait matching
}

// Observation is one entity's pose detection in a batch. A zero Timestamp
// means the engine derives one from the assumed sample rate.
type Observation struct {
	EntityID  string          `json:"entity_id"`
	Index     int             `json:"frame_index"`
	Timestamp float64         `json:"timestamp,omitempty"`
	Keypoints []pose.Keypoint `json:"keypoints"`
}

// Batch is one analysis request for a camera context.
type Batch struct {
	CameraID     string        `json:"camera_id"`
	StoreID      string        `json:"store_id,omitempty"`
	Observations []Observation `json:"observations"`
}

// Rejected reports one malformed input item. Rejections never abort the
// rest of the batch.
type Rejected struct {
	EntityID string `json:"entity_id"`
	Index    int    `json:"frame_index"`
	Reason   string `json:"reason"`
}

// Summary describes one batch's processing.
type Summary struct {
	FramesProcessed int     `json:"frames_processed"`
	EntitiesTracked int     `json:"entities_tracked"`
	BehaviorsFound  int     `json:"behaviors_found"`
	ProcessingMS    float64 `json:"processing_time_ms"`
}

// BatchResult is the complete, best-effort outcome of one Analyze call.
type BatchResult struct {
	CameraID  string            `json:"camera_id"`
	StoreID   string            `json:"store_id,omitempty"`
	Events    []behavior.Event  `json:"behaviors_detected"`
	Alerts    []*alerting.Alert `json:"alerts"`
	Threat    behavior.Level    `json:"threat_level"`
	Rejected  []Rejected        `json:"rejected,omitempty"`
	Summary   Summary           `json:"analysis_summary"`
	Timestamp time.Time         `json:"timestamp"`
}

// Engine is the behavior-analysis core. It performs no internal parallelism;
// callers may run batches for disjoint entity sets concurrently.
type Engine struct {
	cfg      Config
	buffers  *buffer.Store
	detector *behavior.Detector
	group    *behavior.GroupAnalyzer
	gate     *alerting.Gate
	gait     *gait.Analyzer
	log      zerolog.Logger
}

// New constructs an engine. Zero-valued config fields fall back to the
// package defaults and the static rule registry.
func New(cfg Config, log zerolog.Logger) *Engine {
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = DefaultSampleRate
	}
	if cfg.BufferCapacity <= 0 {
		cfg.BufferCapacity = DefaultBufferCapacity
	}
	if cfg.Rules == nil {
		cfg.Rules = behavior.DefaultRules()
	}

	var matcher *gait.Matcher
	if cfg.Profiles != nil {
		floor := cfg.Rules[behavior.TypeGaitMatch].Param("similarity_floor", gait.DefaultSimilarityFloor)
		matcher = gait.NewMatcher(cfg.Profiles, floor)
	}

	return &Engine{
		cfg:      cfg,
		buffers:  buffer.NewStore(cfg.BufferCapacity),
		detector: behavior.NewDetector(cfg.Rules, cfg.SampleRate, log),
		group:    behavior.NewGroupAnalyzer(cfg.Rules, cfg.SampleRate, log),
		gate:     alerting.NewGate(cfg.Cooldown),
		gait:     gait.NewAnalyzer(matcher, cfg.SampleRate, log),
		log:      log,
	}
}

// Analyze ingests the batch and returns events, deduplicated alerts and the
// aggregated threat level. Malformed observations are reported per item;
// everything else is best-effort.
func (e *Engine) Analyze(batch Batch) BatchResult {
	start := time.Now()
	result := BatchResult{
		CameraID:  batch.CameraID,
		StoreID:   batch.StoreID,
		Threat:    behavior.Low,
		Timestamp: start,
	}

	slices := make(map[int][]behavior.Snapshot)
	var entityOrder []string
	seen := make(map[string]bool)

	for _, obs := range batch.Observations {
		ts := obs.Timestamp
		if ts <= 0 {
			// Synthetic timestamp at the assumed sample rate, continuing
			// from the entity's full append history.
			ts = float64(e.buffers.Total(obs.EntityID)) / e.cfg.SampleRate
		}

		frame, err := pose.NewFrame(obs.EntityID, obs.Index, ts, obs.Keypoints)
		if err != nil {
			result.Rejected = append(result.Rejected, Rejected{
				EntityID: obs.EntityID, Index: obs.Index, Reason: err.Error(),
			})
			continue
		}
		if err := e.buffers.Append(obs.EntityID, frame); err != nil {
			result.Rejected = append(result.Rejected, Rejected{
				EntityID: obs.EntityID, Index: obs.Index, Reason: err.Error(),
			})
			continue
		}
		if err := e.gait.AddFrame(obs.EntityID, frame); err != nil {
			e.log.Debug().Err(err).Str("entity", obs.EntityID).Msg("gait buffer append skipped")
		}

		if !seen[obs.EntityID] {
			seen[obs.EntityID] = true
			entityOrder = append(entityOrder, obs.EntityID)
		}
		cx, cy := frame.BBox().Center()
		slices[obs.Index] = append(slices[obs.Index], behavior.Snapshot{
			EntityID: obs.EntityID, X: cx, Y: cy,
		})
		result.Summary.FramesProcessed++
	}

	for _, id := range entityOrder {
		if e.buffers.Len(id) < MinAnalysisFrames {
			continue
		}
		window := e.buffers.Window(id, 0)
		result.Events = append(result.Events, e.detector.DetectAll(id, window)...)

		if e.cfg.Profiles != nil {
			if ev, ok := e.gaitMatch(id); ok {
				result.Events = append(result.Events, ev)
			}
		}
	}

	result.Events = append(result.Events, e.group.Detect(slices)...)
	result.Threat = behavior.Overall(result.Events)

	for _, ev := range result.Events {
		if alert, ok := e.gate.Offer(ev, batch.CameraID, batch.StoreID); ok {
			result.Alerts = append(result.Alerts, alert)
		}
	}

	result.Summary.EntitiesTracked = len(entityOrder)
	result.Summary.BehaviorsFound = len(result.Events)
	result.Summary.ProcessingMS = float64(time.Since(start).Microseconds()) / 1000
	return result
}

// gaitMatch runs gait analysis for the entity and wraps a profile hit in a
// behavior event.
func (e *Engine) gaitMatch(entityID string) (behavior.Event, bool) {
	analysis, err := e.gait.Analyze(entityID)
	if err != nil || analysis.Match == nil {
		return behavior.Event{}, false
	}
	rule := e.cfg.Rules[behavior.TypeGaitMatch]
	m := analysis.Match
	return behavior.Event{
		Type:        behavior.TypeGaitMatch,
		Subject:     entityID,
		Confidence:  m.Similarity,
		Threat:      rule.Threat,
		Description: rule.Description,
		Timestamp:   analysis.Timestamp,
		Evidence: behavior.GaitMatchEvidence{
			ProfileID:         m.ProfileID,
			Name:              m.Name,
			Similarity:        m.Similarity,
			ProfileConfidence: m.ProfileConfidence,
		},
	}, true
}

// AddGaitFrames feeds observations to the gait pipeline only, for callers
// doing targeted identification without behavior analysis. Returns the
// number of frames buffered plus per-item rejections.
func (e *Engine) AddGaitFrames(entityID string, observations []Observation) (int, []Rejected) {
	var rejected []Rejected
	added := 0
	for _, obs := range observations {
		ts := obs.Timestamp
		if ts <= 0 {
			ts = float64(e.gait.Total(entityID)) / e.cfg.SampleRate
		}
		frame, err := pose.NewFrame(entityID, obs.Index, ts, obs.Keypoints)
		if err != nil {
			rejected = append(rejected, Rejected{
				EntityID: entityID, Index: obs.Index, Reason: err.Error(),
			})
			continue
		}
		if err := e.gait.AddFrame(entityID, frame); err != nil {
			rejected = append(rejected, Rejected{
				EntityID: entityID, Index: obs.Index, Reason: err.Error(),
			})
			continue
		}
		added++
	}
	return added, rejected
}

// GaitAnalysis exposes the entity's full gait analysis for external callers.
func (e *Engine) GaitAnalysis(entityID string) (*gait.Analysis, error) {
	return e.gait.Analyze(entityID)
}

// ClearEntity drops the entity's behavior and gait history. Other entities
// and the cooldown store are untouched.
func (e *Engine) ClearEntity(entityID string) {
	e.buffers.Clear(entityID)
	e.gait.Clear(entityID)
}

// BufferStatus reports behavior-buffer occupancy and readiness per entity.
func (e *Engine) BufferStatus() map[string]buffer.Status {
	return e.buffers.Occupancy(MinAnalysisFrames)
}

// GaitBufferStatus reports gait-buffer occupancy per entity.
func (e *Engine) GaitBufferStatus() map[string]buffer.Status {
	return e.gait.BufferStatus()
}

// CooldownSize reports the number of alert cooldown keys tracked.
func (e *Engine) CooldownSize() int {
	return e.gate.Size()
}

// Rules exposes the configured rule set for introspection.
func (e *Engine) Rules() map[string]behavior.Rule {
	return e.detector.Rules()
}
