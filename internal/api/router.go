package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"clothesline-control-backend/config"
	"clothesline-control-backend/internal/mw"
)

// NewRouter creates and configures a new Gin router.
func NewRouter(h *Handler, serverCfg *config.ServerConfig) *gin.Engine {
	r := gin.Default()

	rateLimiter := mw.RateLimiter(rate.Limit(serverCfg.RateLimitPerSec), serverCfg.RateLimitBurst)

	cacheTTL := time.Duration(serverCfg.CacheTTLSeconds) * time.Second
	cacheStore := cache.New(cacheTTL, 10*time.Minute)
	caching := mw.Cache(cacheStore, cacheTTL)

	api := r.Group("/api")
	api.Use(rateLimiter)
	{
		api.GET("/data", h.GetLatestData)
		api.GET("/data/count", caching, h.GetDataCount)
		api.GET("/data/history", caching, h.GetDataHistory)

		api.POST("/control", h.PostControl)
		api.GET("/device/status", h.GetDeviceStatus)
		api.POST("/nodemcu/data", h.ReceiveDeviceData)

		api.GET("/settings/auto", h.GetAutoSettings)
		api.POST("/settings/auto", h.SaveAutoSettings)
		api.GET("/settings/device", h.GetDeviceSettings)
		api.POST("/settings/device", h.SaveDeviceSettings)

		api.GET("/model", h.GetModelInfo)
		api.POST("/model/train", h.TrainModel)
		api.GET("/predict", h.PredictWeather)

		api.PUT("/subscriptions", h.PutSubscription)
		api.DELETE("/subscriptions", h.DeleteSubscription)
		api.GET("/vapid_public_key", h.GetVAPIDPublicKey)
	}

	return r
}
