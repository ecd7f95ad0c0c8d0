package config

import "sync"

// LodSettings holds the tunables of the quadtree LOD engine
type LodSettings struct {
	mu            sync.RWMutex
	distanceScale float32
	maxSplitLevel int
}

var globalLodSettings = &LodSettings{
	distanceScale: 16, // camera distance per unit of node size before a node splits
	maxSplitLevel: 14, // deepest level a node code can address
}

// GetLodDistanceScale returns the factor applied to a node's size before
// comparing it with the camera distance
func GetLodDistanceScale() float32 {
	globalLodSettings.mu.RLock()
	defer globalLodSettings.mu.RUnlock()
	return globalLodSettings.distanceScale
}

// SetLodDistanceScale sets the distance scale
func SetLodDistanceScale(scale float32) {
	globalLodSettings.mu.Lock()
	defer globalLodSettings.mu.Unlock()

	// Clamp to reasonable values
	if scale < 1 {
		scale = 1
	}
	if scale > 64 {
		scale = 64
	}

	globalLodSettings.distanceScale = scale
}

// GetMaxSplitLevel returns the deepest level the engine will split to
func GetMaxSplitLevel() int {
	globalLodSettings.mu.RLock()
	defer globalLodSettings.mu.RUnlock()
	return globalLodSettings.maxSplitLevel
}

// SetMaxSplitLevel sets the deepest split level, clamped to what node codes
// can address
func SetMaxSplitLevel(level int) {
	globalLodSettings.mu.Lock()
	defer globalLodSettings.mu.Unlock()

	if level < 0 {
		level = 0
	}
	if level > 14 {
		level = 14
	}

	globalLodSettings.maxSplitLevel = level
}
