package internal

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"clothesline-control-backend/config"
	"clothesline-control-backend/internal/autocontrol"
	"clothesline-control-backend/internal/device"
	"clothesline-control-backend/internal/model"
	"clothesline-control-backend/internal/store"
)

// fakeDevice simulates the clothesline controller firmware: it serves the
// current sensor state and executes control commands by flipping the door
// status.
type fakeDevice struct {
	light    atomic.Int64
	rain     atomic.Int64
	status   atomic.Value
	commands atomic.Int32
}

func newFakeDevice(light, rain int, status string) *fakeDevice {
	d := &fakeDevice{}
	d.light.Store(int64(light))
	d.rain.Store(int64(rain))
	d.status.Store(status)
	return d
}

func (d *fakeDevice) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/data":
			json.NewEncoder(w).Encode(map[string]any{
				"ldr":      d.light.Load(),
				"rain":     d.rain.Load(),
				"status":   d.status.Load(),
				"rotation": 0,
			})
		case "/api/control":
			d.commands.Add(1)
			switch r.URL.Query().Get("action") {
			case "open":
				d.status.Store("TERBUKA")
			case "close":
				d.status.Store("TERTUTUP")
			}
			json.NewEncoder(w).Encode(map[string]any{"success": true, "message": "ok"})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
}

// TestAutoControlLifecycle drives a full poll cycle against a simulated
// device: rain closes the open line, the reading is persisted before the
// command, and the cooldown suppresses the immediate follow-up.
func TestAutoControlLifecycle(t *testing.T) {
	// --- Test Setup ---
	testDB, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, testDB.AutoMigrate(&model.SensorReading{}, &model.Setting{}, &model.PushSubscription{}))

	dev := newFakeDevice(300, 600, "TERBUKA") // dark and raining, line open
	server := httptest.NewServer(dev.handler())
	defer server.Close()

	appStore := store.NewGormStore(testDB)
	client := device.NewClient(&config.DeviceConfig{
		BaseURL:    server.URL,
		Timeout:    2 * time.Second,
		MaxRetries: 3,
		RetryDelay: 10 * time.Millisecond,
	})
	cache := device.NewCache(client, 3*time.Second)
	state := autocontrol.NewState()
	settings := autocontrol.NewSettingsState(autocontrol.Settings{
		Enabled:        true,
		LightThreshold: 500,
		RainThreshold:  500,
	})
	dispatcher := autocontrol.NewDispatcher(cache, client, state, nil)
	poller := autocontrol.NewPoller(cache, appStore, state, settings, dispatcher,
		3*time.Second, 60*time.Second, true)

	// --- Cycle 1: rain closes the open line ---
	t.Run("Cycle 1: Rain Closes The Open Line", func(t *testing.T) {
		poller.PollOnce(context.Background())

		assert.Equal(t, "TERTUTUP", dev.status.Load(), "the device should have received a close command")
		assert.Equal(t, int32(1), dev.commands.Load())
		assert.False(t, state.LastCommandAt().IsZero())

		var readings []model.SensorReading
		require.NoError(t, testDB.Find(&readings).Error)
		require.Len(t, readings, 1)
		assert.Equal(t, 300, readings[0].Light)
		assert.Equal(t, 600, readings[0].Rain)
		assert.Equal(t, "OPEN", readings[0].DoorStatus, "the persisted reading is the one the decision acted on")
	})

	// --- Cycle 2: closed line in the rain needs no command ---
	t.Run("Cycle 2: Closed Line Needs No Command", func(t *testing.T) {
		poller.PollOnce(context.Background())

		assert.Equal(t, int32(1), dev.commands.Load(), "no further command once the line is closed")

		var count int64
		testDB.Model(&model.SensorReading{}).Count(&count)
		assert.Equal(t, int64(2), count, "every poll persists a reading")
	})

	// --- Cycle 3: cooldown suppresses the reopen ---
	t.Run("Cycle 3: Cooldown Suppresses The Reopen", func(t *testing.T) {
		dev.light.Store(800)
		dev.rain.Store(100)

		poller.PollOnce(context.Background())
		assert.Equal(t, int32(1), dev.commands.Load(), "bright and dry, but the close was seconds ago")

		// Once the cooldown has lapsed the open goes through.
		state.MarkCommand(time.Now().Add(-61 * time.Second))
		poller.PollOnce(context.Background())
		assert.Equal(t, int32(2), dev.commands.Load())
		assert.Equal(t, "TERBUKA", dev.status.Load())
	})
}

// TestManualCommandAgainstDownDevice verifies that a device outage surfaces
// as a classified failure and never stamps the cooldown.
func TestManualCommandAgainstDownDevice(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // immediately down

	client := device.NewClient(&config.DeviceConfig{
		BaseURL:    server.URL,
		Timeout:    time.Second,
		MaxRetries: 2,
		RetryDelay: 10 * time.Millisecond,
	})
	cache := device.NewCache(client, time.Minute)
	state := autocontrol.NewState()
	dispatcher := autocontrol.NewDispatcher(cache, client, state, nil)

	_, err := dispatcher.Dispatch(context.Background(), autocontrol.ActionOpen)
	require.Error(t, err)
	assert.Equal(t, device.Unreachable, device.FailureKindOf(err))
	assert.True(t, state.LastCommandAt().IsZero())
}
