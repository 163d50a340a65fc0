package handler

import (
	"roomrelay/internal/app/chat"
	"roomrelay/internal/configs"
)

// AppDeps bundles what the HTTP layer needs from the rest of the process.
type AppDeps struct {
	Dispatcher *chat.Dispatcher
	Config     *configs.AppConfig
}

// clientOptions derives per-connection settings from the configuration.
func (d *AppDeps) clientOptions() chat.ClientOptions {
	return chat.ClientOptions{
		SendQueueSize: d.Config.SendQueueSize,
		MaxFrameBytes: d.Config.MaxFrameBytes,
		FrameRate:     rateLimit(d.Config.FrameRate),
		FrameBurst:    d.Config.FrameBurst,
	}
}
