package autocontrol

import (
	"context"
	"log"
	"time"

	"clothesline-control-backend/internal/device"
	"clothesline-control-backend/internal/model"
)

// ReadingSink persists polled readings.
type ReadingSink interface {
	InsertReading(ctx context.Context, reading *model.SensorReading) error
}

// Poller runs the recurring sensor poll: fetch, persist, then let the
// policy decide. The cadence stays roughly constant regardless of request
// latency: each iteration sleeps for the interval minus its own elapsed
// time.
type Poller struct {
	source     ReadingSource
	sink       ReadingSink
	state      *State
	settings   *SettingsState
	dispatcher *Dispatcher
	interval   time.Duration
	cooldown   time.Duration
	enabled    bool
	now        func() time.Time
}

// NewPoller wires the polling loop.
func NewPoller(source ReadingSource, sink ReadingSink, state *State, settings *SettingsState, dispatcher *Dispatcher, interval, cooldown time.Duration, enabled bool) *Poller {
	return &Poller{
		source:     source,
		sink:       sink,
		state:      state,
		settings:   settings,
		dispatcher: dispatcher,
		interval:   interval,
		cooldown:   cooldown,
		enabled:    enabled,
		now:        time.Now,
	}
}

// Run polls until the context is cancelled. Cancellation is observed at
// iteration boundaries; in-flight calls complete or time out naturally.
func (p *Poller) Run(ctx context.Context) {
	if !p.enabled {
		log.Println("Polling is disabled. Not starting.")
		return
	}
	log.Println("Starting polling loop...")

	for {
		start := time.Now()
		p.PollOnce(ctx)

		sleep := p.interval - time.Since(start)
		if sleep < 0 {
			sleep = 0
		}
		select {
		case <-ctx.Done():
			log.Println("Polling loop shutting down.")
			return
		case <-time.After(sleep):
		}
	}
}

// PollOnce performs a single poll cycle: refresh the reading, persist it,
// then run auto-control. Persistence happens before the decision so that a
// decision never acts on a reading that was not durably recorded.
func (p *Poller) PollOnce(ctx context.Context) {
	// A failed refresh ends the cycle even when a stale last-known
	// reading exists; outage data is never re-persisted or decided on.
	reading, err := p.source.Get(ctx, true)
	if err != nil {
		log.Printf("poll: fetch failed: %v", err)
		return
	}
	p.state.SetReading(reading, p.now())

	if err := p.sink.InsertReading(ctx, ToRecord(reading)); err != nil {
		// Losing one reading is acceptable; acting on an unrecorded one
		// is not, so auto-control is skipped this cycle.
		log.Printf("poll: persist failed, skipping auto-control this cycle: %v", err)
		return
	}

	settings := p.settings.Get()
	if !settings.Enabled {
		return
	}

	action, ok := Decide(reading, settings, p.state.LastCommandAt(), p.now(), p.cooldown)
	if !ok {
		return
	}

	outcome, err := p.dispatcher.Dispatch(ctx, action)
	if err != nil {
		log.Printf("poll: auto %s dispatch failed: %v", action, err)
		return
	}
	log.Printf("poll: auto %s dispatched (accepted=%v): %s", action, outcome.Accepted, outcome.Message)
}

// ToRecord converts a device reading into its persisted form.
func ToRecord(reading *device.Reading) *model.SensorReading {
	return &model.SensorReading{
		Timestamp:  reading.Timestamp,
		Light:      reading.Light,
		Rain:       reading.Rain,
		DoorStatus: string(reading.DoorStatus),
		Rotation:   reading.Rotation,
	}
}
