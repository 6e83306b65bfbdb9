package autocontrol

import (
	"time"

	"clothesline-control-backend/internal/device"
)

// Hysteresis margins around the configured thresholds. Without the band a
// sensor value sitting near a threshold toggles the line on every poll.
const (
	LightHysteresis = 50
	RainHysteresis  = 50
)

// Action is an auto-control decision. Stop is operator-only vocabulary and
// never produced here.
type Action device.Command

const (
	ActionOpen  = Action(device.CommandOpen)
	ActionClose = Action(device.CommandClose)
)

// Settings are the operator-configured auto-control parameters.
type Settings struct {
	Enabled        bool `json:"enabled"`
	LightThreshold int  `json:"lightThreshold"`
	RainThreshold  int  `json:"rainThreshold"`
}

// Decide maps a sensor reading onto an action, or none. It is a pure
// function: no I/O, no state. A zero lastCommandAt means no command has
// succeeded yet and cooldown does not apply.
func Decide(reading *device.Reading, settings Settings, lastCommandAt time.Time, now time.Time, cooldown time.Duration) (Action, bool) {
	if !settings.Enabled || reading == nil {
		return "", false
	}
	// Never issue overlapping commands while a move is in flight (or the
	// status is unknown, which is indistinguishable from mid-move).
	if !reading.DoorStatus.Settled() {
		return "", false
	}

	isRaining := reading.Rain > settings.RainThreshold
	isDark := reading.Light < settings.LightThreshold-LightHysteresis
	isBright := reading.Light > settings.LightThreshold+LightHysteresis
	isDry := reading.Rain < settings.RainThreshold-RainHysteresis

	var action Action
	switch {
	case (isRaining || isDark) && reading.DoorStatus == device.StatusOpen:
		action = ActionClose
	case isBright && isDry && reading.DoorStatus == device.StatusClosed:
		action = ActionOpen
	default:
		return "", false
	}

	// Cooldown is keyed to the last successful command, not attempts.
	if !lastCommandAt.IsZero() && now.Sub(lastCommandAt) < cooldown {
		return "", false
	}
	return action, true
}
