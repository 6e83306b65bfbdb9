package predictor

import (
	"context"
	"log"
	"time"
)

// Counter is the slice of the persistence gateway used to gate training.
type Counter interface {
	CountReadings(ctx context.Context) (int64, error)
}

// Trainer periodically retrains the classifier when enough data has
// accumulated. Failures never terminate the loop.
type Trainer struct {
	counter    Counter
	classifier Classifier
	status     *Status
	settings   SettingsStore
	interval   time.Duration
	windowSize int
	now        func() time.Time
}

// NewTrainer wires the retraining scheduler.
func NewTrainer(counter Counter, classifier Classifier, status *Status, settings SettingsStore, interval time.Duration, windowSize int) *Trainer {
	return &Trainer{
		counter:    counter,
		classifier: classifier,
		status:     status,
		settings:   settings,
		interval:   interval,
		windowSize: windowSize,
		now:        time.Now,
	}
}

// Run retrains on a fixed interval until the context is cancelled. The
// first attempt happens immediately so a restart with enough data does not
// wait a full interval for a model.
func (t *Trainer) Run(ctx context.Context) {
	log.Println("Starting retraining scheduler...")
	for {
		t.TrainOnce(ctx)
		select {
		case <-ctx.Done():
			log.Println("Retraining scheduler shutting down.")
			return
		case <-time.After(t.interval):
		}
	}
}

// TrainOnce performs a single gated training attempt. When the store holds
// fewer than windowSize+margin readings the attempt is skipped silently.
func (t *Trainer) TrainOnce(ctx context.Context) {
	count, err := t.counter.CountReadings(ctx)
	if err != nil {
		log.Printf("retrain: count failed: %v", err)
		return
	}
	required := int64(t.windowSize + TrainingMargin)
	if count < required {
		return
	}

	result, err := t.classifier.Train(ctx)
	if err != nil {
		log.Printf("retrain: training failed: %v", err)
		return
	}

	t.status.RecordTraining(ctx, t.settings, t.now(), result.Accuracy)
	log.Printf("retrain: model trained on %d samples, accuracy %.3f", result.Samples, result.Accuracy)
}
