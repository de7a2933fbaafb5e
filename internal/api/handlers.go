// internal/api/handlers.go
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	gwebsocket "github.com/gorilla/websocket" // Alias to avoid name conflict
	"github.com/rs/zerolog"

	"pose-sentinel/internal/alerting"
	"pose-sentinel/internal/auth"
	"pose-sentinel/internal/engine"
	"pose-sentinel/internal/gait"
	"pose-sentinel/internal/storage"
	"pose-sentinel/internal/websocket"
)

var upgrader = gwebsocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true }, // Allow all origins for simplicity
}

type APIHandler struct {
	engine  *engine.Engine
	store   *storage.MemoryStore
	hub     *websocket.Hub
	alerter *alerting.Alerter
	auth    *auth.Manager
	log     zerolog.Logger
}

func NewAPIHandler(eng *engine.Engine, store *storage.MemoryStore, hub *websocket.Hub, alerter *alerting.Alerter, am *auth.Manager, log zerolog.Logger) *APIHandler {
	return &APIHandler{
		engine:  eng,
		store:   store,
		hub:     hub,
		alerter: alerter,
		auth:    am,
		log:     log,
	}
}

func (h *APIHandler) respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.log.Error().Err(err).Msg("encoding response")
	}
}

// HandleAnalyze ingests a batch of pose observations and returns the full
// analysis result.
func (h *APIHandler) HandleAnalyze(w http.ResponseWriter, r *http.Request) {
	var batch engine.Batch
	if err := json.NewDecoder(r.Body).Decode(&batch); err != nil {
		http.Error(w, "Bad Request: cannot parse JSON", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	result := h.engine.Analyze(batch)

	// 1. Store the result for history/replay
	h.store.Add(&result)

	// 2. Dispatch any alerts that survived the cooldown gate
	h.alerter.Dispatch(result.Alerts)

	// 3. Broadcast the result to live subscribers
	h.hub.BroadcastResult(&result)

	h.respondJSON(w, http.StatusOK, &result)
}

// HandleLogin exchanges user credentials for a JWT.
func (h *APIHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var creds struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	ok, role, err := h.auth.AuthenticateUser(creds.Username, creds.Password)
	if err != nil || !ok {
		http.Error(w, "Invalid credentials", http.StatusUnauthorized)
		return
	}
	token, err := h.auth.GenerateJWT(creds.Username, role)
	if err != nil {
		h.log.Error().Err(err).Msg("generating JWT")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]string{"token": token, "role": role})
}

// HandleHealth is the liveness probe.
func (h *APIHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"service":   "pose-sentinel",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// HandleStatus reports buffer occupancy, cooldown-store size and connected
// clients.
func (h *APIHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"entity_buffers": h.engine.BufferStatus(),
		"gait_buffers":   h.engine.GaitBufferStatus(),
		"cooldown_keys":  h.engine.CooldownSize(),
		"ws_clients":     h.hub.ClientCount(),
	})
}

// HandleRules exposes the configured rule set for introspection.
func (h *APIHandler) HandleRules(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, h.engine.Rules())
}

// HandleClearEntity drops an entity's buffered history.
func (h *APIHandler) HandleClearEntity(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		http.Error(w, "entity id required", http.StatusBadRequest)
		return
	}
	h.engine.ClearEntity(id)
	h.log.Info().Str("entity", id).Msg("entity history cleared")
	w.WriteHeader(http.StatusNoContent)
}

// HandleGaitAnalysis runs gait analysis for an entity.
func (h *APIHandler) HandleGaitAnalysis(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	analysis, err := h.engine.GaitAnalysis(id)
	if err != nil {
		var insufficient *gait.InsufficientFramesError
		if errors.As(err, &insufficient) {
			h.respondJSON(w, http.StatusOK, map[string]interface{}{
				"status":           "insufficient_data",
				"frames_available": insufficient.Have,
				"frames_required":  insufficient.Need,
			})
			return
		}
		h.log.Error().Err(err).Str("entity", id).Msg("gait analysis failed")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":   "success",
		"analysis": analysis,
	})
}

// HandleGaitFrames feeds frames to an entity's gait buffer without running
// behavior analysis.
func (h *APIHandler) HandleGaitFrames(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var body struct {
		Observations []engine.Observation `json:"observations"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Bad Request: cannot parse JSON", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	added, rejected := h.engine.AddGaitFrames(id, body.Observations)
	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"entity_id":    id,
		"frames_added": added,
		"rejected":     rejected,
	})
}

// HandleGaitStatus reports gait-buffer occupancy for all tracked entities.
func (h *APIHandler) HandleGaitStatus(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, h.engine.GaitBufferStatus())
}

// HandleRecentResults returns the stored batch-result history.
func (h *APIHandler) HandleRecentResults(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, h.store.GetRecent(0))
}

// HandleWebSocket upgrades connections and registers clients with the hub
func (h *APIHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("websocket upgrade error")
		return
	}

	client := &websocket.Client{Hub: h.hub, Conn: conn, Send: make(chan []byte, 256), Log: h.log}
	client.Hub.RegisterClient(client)

	// Start read/write pumps in separate goroutines
	go client.WritePump()
	go client.ReadPump() // Must run ReadPump to handle control messages (close, pong)

	// Send recent results upon connection
	go h.sendInitialData(client)
}

// sendInitialData sends recent history to a newly connected client
func (h *APIHandler) sendInitialData(client *websocket.Client) {
	recent := h.store.GetAll()
	if len(recent) == 0 {
		return
	}

	messageBytes, err := json.Marshal(map[string]interface{}{
		"type":    "history",
		"payload": recent,
	})
	if err != nil {
		h.log.Error().Err(err).Msg("marshalling history data")
		return
	}

	// Send safely through the client's channel
	select {
	case client.Send <- messageBytes:
	case <-time.After(5 * time.Second): // Timeout if client channel is blocked
		h.log.Warn().Msg("timeout sending history to websocket client")
	}
}
