package api

import (
	"github.com/SherClockHolmes/webpush-go"

	"clothesline-control-backend/internal/autocontrol"
	"clothesline-control-backend/internal/device"
	"clothesline-control-backend/internal/predictor"
	"clothesline-control-backend/internal/store"
)

// Handler holds shared dependencies for API handlers.
type Handler struct {
	store      store.Store
	client     *device.Client
	dispatcher *autocontrol.Dispatcher
	state      *autocontrol.State
	settings   *autocontrol.SettingsState
	status     *predictor.Status
	classifier predictor.Classifier
	windowSize int
	webpush    *webpush.Options
}

// NewHandler creates a new API handler.
func NewHandler(
	s store.Store,
	client *device.Client,
	dispatcher *autocontrol.Dispatcher,
	state *autocontrol.State,
	settings *autocontrol.SettingsState,
	status *predictor.Status,
	classifier predictor.Classifier,
	windowSize int,
	webpushOptions *webpush.Options,
) *Handler {
	return &Handler{
		store:      s,
		client:     client,
		dispatcher: dispatcher,
		state:      state,
		settings:   settings,
		status:     status,
		classifier: classifier,
		windowSize: windowSize,
		webpush:    webpushOptions,
	}
}
