package device

import (
	"strings"
	"time"
)

// DoorStatus is the normalized position of the clothesline.
type DoorStatus string

const (
	StatusOpen    DoorStatus = "OPEN"
	StatusClosed  DoorStatus = "CLOSED"
	StatusMoving  DoorStatus = "MOVING"
	StatusUnknown DoorStatus = "UNKNOWN"
)

// Settled reports whether the line is at rest; while a move is in flight
// no further command may be issued.
func (s DoorStatus) Settled() bool {
	return s == StatusOpen || s == StatusClosed
}

// ParseDoorStatus normalizes the status strings the firmware reports.
// The NodeMCU firmware speaks Indonesian; English values are accepted for
// newer firmware builds. Anything unrecognized maps to Unknown.
func ParseDoorStatus(raw string) DoorStatus {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "OPEN", "TERBUKA":
		return StatusOpen
	case "CLOSED", "TERTUTUP":
		return StatusClosed
	case "MOVING", "BERGERAK":
		return StatusMoving
	default:
		return StatusUnknown
	}
}

// Reading is one validated sample from the device.
type Reading struct {
	Timestamp  time.Time
	Light      int
	Rain       int
	DoorStatus DoorStatus
	Rotation   int
}

// rawReading mirrors the JSON body of GET /api/data. Absent numeric fields
// decode to 0 and an absent status to Unknown, per the device contract.
type rawReading struct {
	Light    int    `json:"ldr"`
	Rain     int    `json:"rain"`
	Status   string `json:"status"`
	Rotation int    `json:"rotation"`
}

// Command is a control request for the line motor.
type Command string

const (
	CommandOpen  Command = "open"
	CommandClose Command = "close"
	CommandStop  Command = "stop"
)

// EndState returns the door status a command drives toward, and whether
// the command has a defined end state (stop does not).
func (c Command) EndState() (DoorStatus, bool) {
	switch c {
	case CommandOpen:
		return StatusOpen, true
	case CommandClose:
		return StatusClosed, true
	default:
		return StatusUnknown, false
	}
}

// Outcome is the device's response to a control command.
type Outcome struct {
	Accepted bool   `json:"success"`
	Message  string `json:"message"`
}

// ConnectionStatus is the result of a connectivity probe.
type ConnectionStatus struct {
	Connected bool   `json:"connected"`
	Message   string `json:"message"`
}
