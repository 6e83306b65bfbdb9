package predictor

import (
	"context"
	"errors"
)

// TrainingMargin is how many readings beyond one window must exist before
// a training run is worthwhile.
const TrainingMargin = 10

// ErrNotTrained is returned by Predict before any successful training.
var ErrNotTrained = errors.New("model not trained")

// ErrInsufficientData is returned when the store holds too few readings
// for the requested operation.
var ErrInsufficientData = errors.New("insufficient data")

// TrainResult reports the outcome of a training run.
type TrainResult struct {
	Accuracy float64
	Samples  int
}

// Prediction is the classifier's answer for the next window.
type Prediction struct {
	WillRain    bool
	Probability float64
}

// Classifier is the rain-prediction collaborator: fit on stored history,
// predict from the most recent window.
type Classifier interface {
	Train(ctx context.Context) (TrainResult, error)
	Predict(ctx context.Context) (Prediction, error)
}
