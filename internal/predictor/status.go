package predictor

import (
	"context"
	"log"
	"strconv"
	"sync"
	"time"
)

// Settings keys under which model status survives restarts.
const (
	settingTrained      = "model_trained"
	settingLastTraining = "model_last_training"
	settingAccuracy     = "model_accuracy"
)

// SettingsStore is the slice of the persistence gateway used for durable
// model status.
type SettingsStore interface {
	GetSetting(ctx context.Context, key string) (string, bool, error)
	PutSetting(ctx context.Context, key, value string) error
}

// StatusInfo is a point-in-time copy of the model status, shaped for the
// HTTP surface.
type StatusInfo struct {
	Trained      bool       `json:"trained"`
	LastTraining *time.Time `json:"lastTraining"`
	Accuracy     *float64   `json:"accuracy"`
}

// Status is the shared model-status state, written only by the retraining
// path and read by request handlers.
type Status struct {
	mu           sync.RWMutex
	trained      bool
	lastTraining time.Time
	accuracy     float64
	hasAccuracy  bool
}

// NewStatus returns an untrained status.
func NewStatus() *Status {
	return &Status{}
}

// Snapshot returns a copy safe to serialize.
func (s *Status) Snapshot() StatusInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	info := StatusInfo{Trained: s.trained}
	if !s.lastTraining.IsZero() {
		t := s.lastTraining
		info.LastTraining = &t
	}
	if s.hasAccuracy {
		a := s.accuracy
		info.Accuracy = &a
	}
	return info
}

// Trained reports whether a training run has succeeded.
func (s *Status) Trained() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.trained
}

// RecordTraining updates the status after a successful training run and
// persists it. A persistence failure keeps the in-memory value and is only
// logged; the next training run will persist again.
func (s *Status) RecordTraining(ctx context.Context, store SettingsStore, at time.Time, accuracy float64) {
	s.mu.Lock()
	s.trained = true
	s.lastTraining = at
	s.accuracy = accuracy
	s.hasAccuracy = true
	s.mu.Unlock()

	if store == nil {
		return
	}
	persist := func(key, value string) {
		if err := store.PutSetting(ctx, key, value); err != nil {
			log.Printf("Warning: failed to persist %s: %v", key, err)
		}
	}
	persist(settingTrained, "true")
	persist(settingLastTraining, at.UTC().Format(time.RFC3339))
	persist(settingAccuracy, strconv.FormatFloat(accuracy, 'f', -1, 64))
}

// Load restores the persisted status, falling back to the zero state on
// any persistence failure.
func (s *Status) Load(ctx context.Context, store SettingsStore) {
	trained, ok, err := store.GetSetting(ctx, settingTrained)
	if err != nil {
		log.Printf("Warning: failed to load model status: %v", err)
		return
	}
	if !ok || trained != "true" {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.trained = true
	if raw, ok, _ := store.GetSetting(ctx, settingLastTraining); ok {
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			s.lastTraining = t
		}
	}
	if raw, ok, _ := store.GetSetting(ctx, settingAccuracy); ok {
		if a, err := strconv.ParseFloat(raw, 64); err == nil {
			s.accuracy = a
			s.hasAccuracy = true
		}
	}
}
