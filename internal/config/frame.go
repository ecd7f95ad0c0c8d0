package config

import "sync"

// FrameSettings holds frame pacing configuration
type FrameSettings struct {
	mu         sync.RWMutex
	frameLimit int
}

var globalFrameSettings = &FrameSettings{
	frameLimit: 60, // frames per second, 0 disables the limiter
}

// GetFrameLimit returns the frame rate cap
func GetFrameLimit() int {
	globalFrameSettings.mu.RLock()
	defer globalFrameSettings.mu.RUnlock()
	return globalFrameSettings.frameLimit
}

// SetFrameLimit sets the frame rate cap. Values <= 0 disable it.
func SetFrameLimit(limit int) {
	globalFrameSettings.mu.Lock()
	defer globalFrameSettings.mu.Unlock()

	if limit < 0 {
		limit = 0
	}
	if limit > 1000 {
		limit = 1000
	}

	globalFrameSettings.frameLimit = limit
}
