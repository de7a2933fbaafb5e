// internal/behavior/threat.go
package behavior

// Overall aggregates a batch of events into one threat level: the maximum
// level among them. An empty batch is Low. No weighting, no averaging.
func Overall(events []Event) Level {
	level := Low
	for _, ev := range events {
		if ev.Threat > level {
			level = ev.Threat
		}
	}
	return level
}
