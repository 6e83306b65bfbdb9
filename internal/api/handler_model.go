package api

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"clothesline-control-backend/internal/predictor"
)

// GetModelInfo handles GET /api/model.
func (h *Handler) GetModelInfo(c *gin.Context) {
	c.JSON(http.StatusOK, h.status.Snapshot())
}

// TrainModel handles POST /api/model/train: an operator-forced training
// run, gated by the same data precondition as the scheduler.
func (h *Handler) TrainModel(c *gin.Context) {
	ctx := c.Request.Context()

	count, err := h.store.CountReadings(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	required := int64(h.windowSize + predictor.TrainingMargin)
	if count < required {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": fmt.Sprintf("Insufficient data. At least %d data points required, currently have %d", required, count),
		})
		return
	}

	result, err := h.classifier.Train(ctx)
	if err != nil {
		if errors.Is(err, predictor.ErrInsufficientData) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Training error: " + err.Error()})
		return
	}

	h.status.RecordTraining(ctx, h.store, time.Now().UTC(), result.Accuracy)
	c.JSON(http.StatusOK, gin.H{"accuracy": result.Accuracy})
}

// PredictWeather handles GET /api/predict. An untrained model or a short
// history yields an explicit not-ready answer rather than an error page.
func (h *Handler) PredictWeather(c *gin.Context) {
	if !h.status.Trained() {
		c.JSON(http.StatusOK, gin.H{
			"error":       "Model not trained yet",
			"will_rain":   false,
			"probability": 0,
		})
		return
	}

	prediction, err := h.classifier.Predict(c.Request.Context())
	if err != nil {
		if errors.Is(err, predictor.ErrNotTrained) || errors.Is(err, predictor.ErrInsufficientData) {
			c.JSON(http.StatusOK, gin.H{
				"error":       err.Error(),
				"will_rain":   false,
				"probability": 0,
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"will_rain":   prediction.WillRain,
		"probability": prediction.Probability,
	})
}
