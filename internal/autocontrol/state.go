package autocontrol

import (
	"sync"
	"time"

	"clothesline-control-backend/internal/device"
)

// State is the process-wide polling state. The polling loop is the only
// writer of the reading fields and the dispatcher the only writer of the
// command timestamp, but request handlers read both concurrently, so every
// access goes through the lock.
type State struct {
	mu            sync.RWMutex
	lastReading   *device.Reading
	lastReadingAt time.Time
	lastCommandAt time.Time
}

// NewState returns an empty polling state.
func NewState() *State {
	return &State{}
}

// SetReading atomically replaces the cached reading and its arrival time.
func (s *State) SetReading(reading *device.Reading, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastReading = reading
	s.lastReadingAt = at
}

// Reading returns the last successfully polled reading, its arrival time,
// and whether one exists.
func (s *State) Reading() (*device.Reading, time.Time, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastReading, s.lastReadingAt, s.lastReading != nil
}

// MarkCommand records the time of a confirmed-accepted command. Failed or
// timed-out sends must not call this; cooldown suppression is keyed to
// commands the device actually executed.
func (s *State) MarkCommand(at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastCommandAt = at
}

// LastCommandAt returns the time of the last confirmed command; the zero
// time means none has succeeded yet.
func (s *State) LastCommandAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastCommandAt
}

// SettingsState is the shared, runtime-mutable auto-control configuration.
// Written rarely (operator updates), read every polling cycle.
type SettingsState struct {
	mu       sync.RWMutex
	settings Settings
}

// NewSettingsState seeds the shared settings.
func NewSettingsState(initial Settings) *SettingsState {
	return &SettingsState{settings: initial}
}

// Get returns a copy of the current settings.
func (s *SettingsState) Get() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings
}

// Set replaces the settings.
func (s *SettingsState) Set(settings Settings) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings = settings
}
