package autocontrol

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"clothesline-control-backend/internal/device"
)

func TestDecide(t *testing.T) {
	now := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
	cooldown := 60 * time.Second
	enabled := Settings{Enabled: true, LightThreshold: 500, RainThreshold: 500}

	testCases := []struct {
		name           string
		reading        *device.Reading
		settings       Settings
		lastCommandAt  time.Time
		expectedAction Action
		expectedOK     bool
	}{
		{
			name:           "bright and dry while closed opens the line",
			reading:        &device.Reading{Light: 600, Rain: 100, DoorStatus: device.StatusClosed},
			settings:       enabled,
			expectedAction: ActionOpen,
			expectedOK:     true,
		},
		{
			name:           "dark and raining while open closes the line",
			reading:        &device.Reading{Light: 300, Rain: 600, DoorStatus: device.StatusOpen},
			settings:       enabled,
			expectedAction: ActionClose,
			expectedOK:     true,
		},
		{
			name:           "rain alone closes an open line",
			reading:        &device.Reading{Light: 800, Rain: 600, DoorStatus: device.StatusOpen},
			settings:       enabled,
			expectedAction: ActionClose,
			expectedOK:     true,
		},
		{
			name:          "cooldown suppresses an otherwise valid action",
			reading:       &device.Reading{Light: 600, Rain: 100, DoorStatus: device.StatusClosed},
			settings:      enabled,
			lastCommandAt: now.Add(-10 * time.Second),
			expectedOK:    false,
		},
		{
			name:           "expired cooldown allows the action again",
			reading:        &device.Reading{Light: 600, Rain: 100, DoorStatus: device.StatusClosed},
			settings:       enabled,
			lastCommandAt:  now.Add(-61 * time.Second),
			expectedAction: ActionOpen,
			expectedOK:     true,
		},
		{
			name:       "moving line is never commanded",
			reading:    &device.Reading{Light: 600, Rain: 100, DoorStatus: device.StatusMoving},
			settings:   enabled,
			expectedOK: false,
		},
		{
			name:       "unknown status is treated like moving",
			reading:    &device.Reading{Light: 600, Rain: 100, DoorStatus: device.StatusUnknown},
			settings:   enabled,
			expectedOK: false,
		},
		{
			name:       "disabled settings produce no action",
			reading:    &device.Reading{Light: 600, Rain: 100, DoorStatus: device.StatusClosed},
			settings:   Settings{Enabled: false, LightThreshold: 500, RainThreshold: 500},
			expectedOK: false,
		},
		{
			name:       "nil reading produces no action",
			reading:    nil,
			settings:   enabled,
			expectedOK: false,
		},
		{
			name:       "values inside the hysteresis band are ignored",
			reading:    &device.Reading{Light: 530, Rain: 470, DoorStatus: device.StatusClosed},
			settings:   enabled,
			expectedOK: false,
		},
		{
			name:       "dark while already closed is a no-op",
			reading:    &device.Reading{Light: 300, Rain: 100, DoorStatus: device.StatusClosed},
			settings:   enabled,
			expectedOK: false,
		},
		{
			name:       "bright and dry while already open is a no-op",
			reading:    &device.Reading{Light: 600, Rain: 100, DoorStatus: device.StatusOpen},
			settings:   enabled,
			expectedOK: false,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			action, ok := Decide(tc.reading, tc.settings, tc.lastCommandAt, now, cooldown)
			assert.Equal(t, tc.expectedOK, ok)
			if tc.expectedOK {
				assert.Equal(t, tc.expectedAction, action)
			}
		})
	}
}

func TestDecideZeroLastCommandSkipsCooldown(t *testing.T) {
	now := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
	settings := Settings{Enabled: true, LightThreshold: 500, RainThreshold: 500}
	reading := &device.Reading{Light: 600, Rain: 100, DoorStatus: device.StatusClosed}

	action, ok := Decide(reading, settings, time.Time{}, now, time.Hour)
	assert.True(t, ok, "a zero last-command time must not trigger cooldown")
	assert.Equal(t, ActionOpen, action)
}
