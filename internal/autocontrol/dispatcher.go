package autocontrol

import (
	"context"
	"log"
	"time"

	"clothesline-control-backend/internal/device"
	"clothesline-control-backend/internal/notification"
)

// ReadingSource yields the current device reading, optionally bypassing
// the freshness window. A non-nil reading returned together with an error
// is a stale last-known value, not a current one.
type ReadingSource interface {
	Get(ctx context.Context, forceRefresh bool) (*device.Reading, error)
}

// CommandSender sends a control command to the device.
type CommandSender interface {
	SendCommand(ctx context.Context, cmd device.Command) (*device.Outcome, error)
}

// CommandNotifier receives events for confirmed commands.
type CommandNotifier interface {
	Dispatch(event notification.CommandEvent)
}

// Dispatcher turns a decision (or a manual operator request) into a device
// command, skipping sends that would be no-ops and stamping the shared
// command timestamp only on confirmed success.
type Dispatcher struct {
	source   ReadingSource
	sender   CommandSender
	state    *State
	notifier CommandNotifier
	now      func() time.Time
}

// NewDispatcher wires a dispatcher. notifier may be nil.
func NewDispatcher(source ReadingSource, sender CommandSender, state *State, notifier CommandNotifier) *Dispatcher {
	return &Dispatcher{
		source:   source,
		sender:   sender,
		state:    state,
		notifier: notifier,
		now:      time.Now,
	}
}

// Dispatch executes an action against the device.
func (d *Dispatcher) Dispatch(ctx context.Context, action Action) (*device.Outcome, error) {
	cmd := device.Command(action)

	// A stale cached read must never gate a command: when the refresh
	// fails the device's real position is unknown, so the command goes
	// out regardless and the device answers authoritatively.
	reading, err := d.source.Get(ctx, true)
	if err != nil {
		log.Printf("dispatch %s: refresh failed (%v), sending without idempotence check", cmd, err)
	} else if endState, ok := cmd.EndState(); ok && reading != nil && reading.DoorStatus == endState {
		log.Printf("dispatch %s: line already %s, skipping send", cmd, endState)
		return &device.Outcome{Accepted: true, Message: "already in requested state"}, nil
	}

	outcome, err := d.sender.SendCommand(ctx, cmd)
	if err != nil {
		return nil, err
	}

	if outcome.Accepted {
		at := d.now()
		d.state.MarkCommand(at)
		if d.notifier != nil {
			d.notifier.Dispatch(notification.CommandEvent{
				Action:  string(cmd),
				Message: outcome.Message,
				At:      at,
			})
		}
	}
	return outcome, nil
}
