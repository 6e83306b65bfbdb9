package autocontrol

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clothesline-control-backend/internal/device"
	"clothesline-control-backend/internal/notification"
)

// mockSource is a mock implementation of the ReadingSource interface.
type mockSource struct {
	GetFunc func(ctx context.Context, forceRefresh bool) (*device.Reading, error)
}

func (m *mockSource) Get(ctx context.Context, forceRefresh bool) (*device.Reading, error) {
	return m.GetFunc(ctx, forceRefresh)
}

// mockSender is a mock implementation of the CommandSender interface.
type mockSender struct {
	SendCommandFunc func(ctx context.Context, cmd device.Command) (*device.Outcome, error)
	calls           []device.Command
}

func (m *mockSender) SendCommand(ctx context.Context, cmd device.Command) (*device.Outcome, error) {
	m.calls = append(m.calls, cmd)
	return m.SendCommandFunc(ctx, cmd)
}

// mockNotifier records dispatched command events.
type mockNotifier struct {
	events []notification.CommandEvent
}

func (m *mockNotifier) Dispatch(event notification.CommandEvent) {
	m.events = append(m.events, event)
}

func TestDispatcher_SkipsSendWhenAlreadyInEndState(t *testing.T) {
	source := &mockSource{
		GetFunc: func(ctx context.Context, forceRefresh bool) (*device.Reading, error) {
			assert.True(t, forceRefresh, "dispatch must never gate on a cached reading")
			return &device.Reading{DoorStatus: device.StatusOpen}, nil
		},
	}
	sender := &mockSender{
		SendCommandFunc: func(ctx context.Context, cmd device.Command) (*device.Outcome, error) {
			return &device.Outcome{Accepted: true}, nil
		},
	}
	state := NewState()
	d := NewDispatcher(source, sender, state, nil)

	outcome, err := d.Dispatch(context.Background(), ActionOpen)
	require.NoError(t, err)
	assert.True(t, outcome.Accepted)
	assert.Empty(t, sender.calls, "an open command against an open line must not reach the device")
	assert.True(t, state.LastCommandAt().IsZero(), "a skipped send must not stamp the cooldown")
}

func TestDispatcher_SendsAndStampsOnSuccess(t *testing.T) {
	source := &mockSource{
		GetFunc: func(ctx context.Context, forceRefresh bool) (*device.Reading, error) {
			return &device.Reading{DoorStatus: device.StatusOpen}, nil
		},
	}
	sender := &mockSender{
		SendCommandFunc: func(ctx context.Context, cmd device.Command) (*device.Outcome, error) {
			return &device.Outcome{Accepted: true, Message: "closing"}, nil
		},
	}
	state := NewState()
	notifier := &mockNotifier{}
	d := NewDispatcher(source, sender, state, notifier)
	at := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
	d.now = func() time.Time { return at }

	outcome, err := d.Dispatch(context.Background(), ActionClose)
	require.NoError(t, err)
	assert.True(t, outcome.Accepted)
	assert.Equal(t, []device.Command{device.CommandClose}, sender.calls)
	assert.Equal(t, at, state.LastCommandAt())

	require.Len(t, notifier.events, 1)
	assert.Equal(t, "close", notifier.events[0].Action)
	assert.Equal(t, "closing", notifier.events[0].Message)
	assert.Equal(t, at, notifier.events[0].At)
}

func TestDispatcher_RejectedCommandDoesNotStampCooldown(t *testing.T) {
	source := &mockSource{
		GetFunc: func(ctx context.Context, forceRefresh bool) (*device.Reading, error) {
			return &device.Reading{DoorStatus: device.StatusClosed}, nil
		},
	}
	sender := &mockSender{
		SendCommandFunc: func(ctx context.Context, cmd device.Command) (*device.Outcome, error) {
			return &device.Outcome{Accepted: false, Message: "motor fault"}, nil
		},
	}
	state := NewState()
	notifier := &mockNotifier{}
	d := NewDispatcher(source, sender, state, notifier)

	outcome, err := d.Dispatch(context.Background(), ActionOpen)
	require.NoError(t, err)
	assert.False(t, outcome.Accepted)
	assert.True(t, state.LastCommandAt().IsZero(), "a rejected command must not stamp the cooldown")
	assert.Empty(t, notifier.events)
}

func TestDispatcher_SendErrorDoesNotStampCooldown(t *testing.T) {
	source := &mockSource{
		GetFunc: func(ctx context.Context, forceRefresh bool) (*device.Reading, error) {
			return &device.Reading{DoorStatus: device.StatusClosed}, nil
		},
	}
	sendErr := &device.Failure{Kind: device.Timeout, Detail: "device did not answer"}
	sender := &mockSender{
		SendCommandFunc: func(ctx context.Context, cmd device.Command) (*device.Outcome, error) {
			return nil, sendErr
		},
	}
	state := NewState()
	d := NewDispatcher(source, sender, state, nil)

	_, err := d.Dispatch(context.Background(), ActionOpen)
	require.Error(t, err)
	assert.True(t, errors.Is(err, sendErr) || errors.As(err, new(*device.Failure)))
	assert.True(t, state.LastCommandAt().IsZero())
}

func TestDispatcher_ReadFailureStillSends(t *testing.T) {
	source := &mockSource{
		GetFunc: func(ctx context.Context, forceRefresh bool) (*device.Reading, error) {
			return nil, errors.New("device unreachable")
		},
	}
	sender := &mockSender{
		SendCommandFunc: func(ctx context.Context, cmd device.Command) (*device.Outcome, error) {
			return &device.Outcome{Accepted: true, Message: "opening"}, nil
		},
	}
	d := NewDispatcher(source, sender, NewState(), nil)

	// Without a current reading the idempotence check cannot run; the
	// command is sent and the device's answer decides the outcome.
	outcome, err := d.Dispatch(context.Background(), ActionOpen)
	require.NoError(t, err)
	assert.True(t, outcome.Accepted)
	assert.Equal(t, []device.Command{device.CommandOpen}, sender.calls)
}

func TestDispatcher_StaleReadingNeverGatesCommand(t *testing.T) {
	// A real cache warmed with an OPEN reading, then cut off from the
	// device: the refresh during dispatch fails and only the stale value
	// remains.
	open := &device.Reading{DoorStatus: device.StatusOpen}
	fetcher := &flakyFetcher{reading: open}
	cache := device.NewCache(fetcher, time.Minute)
	_, err := cache.Get(context.Background(), true)
	require.NoError(t, err)

	sender := &mockSender{
		SendCommandFunc: func(ctx context.Context, cmd device.Command) (*device.Outcome, error) {
			return &device.Outcome{Accepted: true, Message: "opening"}, nil
		},
	}
	state := NewState()
	d := NewDispatcher(cache, sender, state, nil)

	outcome, err := d.Dispatch(context.Background(), ActionOpen)
	require.NoError(t, err)
	assert.Equal(t, []device.Command{device.CommandOpen}, sender.calls,
		"a stale OPEN reading must not turn an open command into a no-op")
	assert.NotEqual(t, "already in requested state", outcome.Message)
}
