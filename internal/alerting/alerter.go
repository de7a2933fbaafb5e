// internal/alerting/alerter.go
package alerting

import (
	"github.com/rs/zerolog"

	"pose-sentinel/internal/websocket"
)

type Alerter struct {
	hub *websocket.Hub
	log zerolog.Logger
	// Add other notification channels here (e.g., email client, SMS service)
}

func NewAlerter(hub *websocket.Hub, log zerolog.Logger) *Alerter {
	return &Alerter{hub: hub, log: log}
}

// Dispatch sends alerts via configured channels (currently WebSocket)
func (a *Alerter) Dispatch(alerts []*Alert) {
	if len(alerts) == 0 {
		return
	}

	a.log.Info().Int("count", len(alerts)).Msg("dispatching alerts")
	for _, alert := range alerts {
		// Send via WebSocket
		if a.hub != nil {
			a.hub.BroadcastAlert(alert)
		}

		// --- Add other notification logic here ---
		// e.g., sendEmail(alert), sendSMS(alert)
	}
}
