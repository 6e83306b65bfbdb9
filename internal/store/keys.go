package store

// Durable settings keys shared by the HTTP surface and startup restore.
const (
	SettingDeviceBaseURL  = "device_base_url"
	SettingDeviceTimeout  = "device_timeout"
	SettingAutoEnabled    = "auto_enabled"
	SettingLightThreshold = "light_threshold"
	SettingRainThreshold  = "rain_threshold"
)
