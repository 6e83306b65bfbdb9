package predictor

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"os"
	"path/filepath"
	"sync"

	"clothesline-control-backend/internal/model"
)

// DataSource is the slice of the persistence gateway the classifier needs.
type DataSource interface {
	CountReadings(ctx context.Context) (int64, error)
	RecentReadings(ctx context.Context, n int) ([]model.SensorReading, error)
	AllReadings(ctx context.Context) ([]model.SensorReading, error)
}

// modelFile is the JSON persistence format for a fitted model.
type modelFile struct {
	Weights    []float64 `json:"weights"`
	Bias       float64   `json:"bias"`
	LightMin   float64   `json:"light_min"`
	LightMax   float64   `json:"light_max"`
	RainMin    float64   `json:"rain_min"`
	RainMax    float64   `json:"rain_max"`
	WindowSize int       `json:"window_size"`
	RainCutoff int       `json:"rain_cutoff"`
}

// RainModel predicts whether rain is coming in the next window from the
// recent light/rain history. The fitted model is a threshold-scored linear
// separator over a min-max-scaled feature window, persisted as JSON so a
// restart does not lose the fit.
type RainModel struct {
	source     DataSource
	path       string
	windowSize int
	rainCutoff int

	mu     sync.RWMutex
	fitted *modelFile
}

// NewRainModel builds the classifier and loads a previously fitted model
// from disk when one exists.
func NewRainModel(source DataSource, path string, windowSize int) *RainModel {
	m := &RainModel{
		source:     source,
		path:       path,
		windowSize: windowSize,
		rainCutoff: 500,
	}
	if err := m.loadFromDisk(); err != nil {
		log.Printf("No usable rain model at %s: %v (training required)", path, err)
	}
	return m
}

// Fitted reports whether a model is loaded in memory.
func (m *RainModel) Fitted() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.fitted != nil
}

// Train fits the model on all stored readings. It needs at least one full
// window plus the training margin of samples.
func (m *RainModel) Train(ctx context.Context) (TrainResult, error) {
	count, err := m.source.CountReadings(ctx)
	if err != nil {
		return TrainResult{}, fmt.Errorf("training data count: %w", err)
	}
	required := int64(m.windowSize + TrainingMargin)
	if count < required {
		return TrainResult{}, fmt.Errorf("%w: need %d readings, have %d", ErrInsufficientData, required, count)
	}

	readings, err := m.source.AllReadings(ctx)
	if err != nil {
		return TrainResult{}, fmt.Errorf("training data load: %w", err)
	}
	// AllReadings is newest-first; fit on chronological order.
	for i, j := 0, len(readings)-1; i < j; i, j = i+1, j-1 {
		readings[i], readings[j] = readings[j], readings[i]
	}

	fitted, accuracy, samples := fit(readings, m.windowSize, m.rainCutoff)
	if samples == 0 {
		return TrainResult{}, fmt.Errorf("%w: no complete windows in %d readings", ErrInsufficientData, len(readings))
	}

	m.mu.Lock()
	m.fitted = fitted
	m.mu.Unlock()

	if err := m.saveToDisk(fitted); err != nil {
		log.Printf("Warning: failed to persist rain model: %v", err)
	}
	return TrainResult{Accuracy: accuracy, Samples: samples}, nil
}

// Predict scores the most recent window. ErrNotTrained before the first
// successful fit; ErrInsufficientData when the window is incomplete.
func (m *RainModel) Predict(ctx context.Context) (Prediction, error) {
	m.mu.RLock()
	fitted := m.fitted
	m.mu.RUnlock()
	if fitted == nil {
		return Prediction{}, ErrNotTrained
	}

	need := fitted.WindowSize - 1
	readings, err := m.source.RecentReadings(ctx, need)
	if err != nil {
		return Prediction{}, fmt.Errorf("prediction window load: %w", err)
	}
	if len(readings) < need {
		return Prediction{}, fmt.Errorf("%w: need %d recent readings, have %d", ErrInsufficientData, need, len(readings))
	}

	score := fitted.Bias
	features := fitted.features(readings)
	for i, w := range fitted.Weights {
		score += w * features[i]
	}

	willRain := score > 0
	probability := 1 / (1 + math.Exp(-score))
	if !willRain {
		probability = 1 - probability
	}
	// Confidence floor carried over from the original model's calibration.
	adjusted := 0.60 + probability*0.35
	return Prediction{WillRain: willRain, Probability: adjusted}, nil
}

// features scales a window of readings into the model's input vector.
func (f *modelFile) features(window []model.SensorReading) []float64 {
	out := make([]float64, 0, 2*len(window))
	for _, r := range window {
		out = append(out,
			scale(float64(r.Light), f.LightMin, f.LightMax),
			scale(float64(r.Rain), f.RainMin, f.RainMax))
	}
	return out
}

func scale(v, min, max float64) float64 {
	if max <= min {
		return 0
	}
	return (v - min) / (max - min)
}

// fit builds windows over the readings, labels each window by whether the
// next reading crossed the rain cutoff, and fits a difference-of-means
// linear separator. The last fifth of the windows is held out to score
// accuracy when enough samples exist.
func fit(readings []model.SensorReading, windowSize, rainCutoff int) (*modelFile, float64, int) {
	if len(readings) <= windowSize {
		return nil, 0, 0
	}

	lightMin, lightMax := math.MaxFloat64, -math.MaxFloat64
	rainMin, rainMax := math.MaxFloat64, -math.MaxFloat64
	for _, r := range readings {
		lightMin = math.Min(lightMin, float64(r.Light))
		lightMax = math.Max(lightMax, float64(r.Light))
		rainMin = math.Min(rainMin, float64(r.Rain))
		rainMax = math.Max(rainMax, float64(r.Rain))
	}

	f := &modelFile{
		LightMin:   lightMin,
		LightMax:   lightMax,
		RainMin:    rainMin,
		RainMax:    rainMax,
		WindowSize: windowSize,
		RainCutoff: rainCutoff,
	}

	featureLen := 2 * (windowSize - 1)
	var samples [][]float64
	var labels []bool
	for i := 0; i+windowSize <= len(readings); i++ {
		window := readings[i : i+windowSize-1]
		target := readings[i+windowSize-1]
		samples = append(samples, f.features(window))
		labels = append(labels, target.Rain > rainCutoff)
	}

	// Class means over the training split.
	split := len(samples)
	if len(samples) >= 10 {
		split = len(samples) * 4 / 5
	}
	rainMean := make([]float64, featureLen)
	dryMean := make([]float64, featureLen)
	var rainCount, dryCount int
	for i := 0; i < split; i++ {
		if labels[i] {
			addInto(rainMean, samples[i])
			rainCount++
		} else {
			addInto(dryMean, samples[i])
			dryCount++
		}
	}
	divideBy(rainMean, rainCount)
	divideBy(dryMean, dryCount)

	// Separator normal is the difference of class means; the bias places
	// the boundary at the midpoint between them.
	f.Weights = make([]float64, featureLen)
	for i := range f.Weights {
		f.Weights[i] = rainMean[i] - dryMean[i]
		f.Bias -= f.Weights[i] * (rainMean[i] + dryMean[i]) / 2
	}

	// Score on the holdout, or the training split when there is none.
	evalFrom, evalTo := split, len(samples)
	if evalFrom == evalTo {
		evalFrom, evalTo = 0, split
	}
	correct := 0
	for i := evalFrom; i < evalTo; i++ {
		score := f.Bias
		for j, w := range f.Weights {
			score += w * samples[i][j]
		}
		if (score > 0) == labels[i] {
			correct++
		}
	}
	accuracy := float64(correct) / float64(evalTo-evalFrom)

	return f, accuracy, len(samples)
}

func addInto(dst, src []float64) {
	for i := range dst {
		dst[i] += src[i]
	}
}

func divideBy(v []float64, n int) {
	if n == 0 {
		return
	}
	for i := range v {
		v[i] /= float64(n)
	}
}

func (m *RainModel) loadFromDisk() error {
	data, err := os.ReadFile(m.path)
	if err != nil {
		return err
	}
	var fitted modelFile
	if err := json.Unmarshal(data, &fitted); err != nil {
		return fmt.Errorf("unmarshal model file: %w", err)
	}
	if len(fitted.Weights) == 0 || fitted.WindowSize < 2 {
		return fmt.Errorf("model file %s is incomplete", m.path)
	}
	m.mu.Lock()
	m.fitted = &fitted
	m.mu.Unlock()
	log.Printf("Loaded rain model from %s (window=%d)", m.path, fitted.WindowSize)
	return nil
}

func (m *RainModel) saveToDisk(fitted *modelFile) error {
	if err := os.MkdirAll(filepath.Dir(m.path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(fitted, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(m.path, data, 0o644)
}
