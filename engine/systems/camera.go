package systems

import (
	"fmt"

	"github.com/spaghettifunk/umbra/engine/core"
	"github.com/spaghettifunk/umbra/engine/renderer/components"
)

/** @brief The camera system configuration. */
type CameraSystemConfig struct {
	/**
	 * @brief The maximum number of cameras that can be managed by the system.
	 */
	MaxCameraCount uint16
}

type cameraLookup struct {
	referenceCount uint16
	camera         *components.Camera
}

type CameraSystem struct {
	Config *CameraSystemConfig
	lookup map[string]*cameraLookup
	// A default, non-registered camera that always exists as a fallback.
	DefaultCamera *components.Camera
}

func NewCameraSystem(config *CameraSystemConfig) (*CameraSystem, error) {
	if config.MaxCameraCount == 0 {
		err := fmt.Errorf("func NewCameraSystem - config.MaxCameraCount must be > 0")
		core.LogError(err.Error())
		return nil, err
	}
	return &CameraSystem{
		Config:        config,
		lookup:        make(map[string]*cameraLookup, config.MaxCameraCount),
		DefaultCamera: components.NewCamera(),
	}, nil
}

func (cs *CameraSystem) Shutdown() error {
	for name := range cs.lookup {
		delete(cs.lookup, name)
	}
	return nil
}

/**
 * @brief Acquires a camera by name, creating it on first use.
 * Internal reference counter is incremented.
 */
func (cs *CameraSystem) Acquire(name string) (*components.Camera, error) {
	if name == components.DefaultCameraName {
		return cs.DefaultCamera, nil
	}
	entry, ok := cs.lookup[name]
	if !ok {
		if len(cs.lookup) >= int(cs.Config.MaxCameraCount) {
			err := fmt.Errorf("func CameraSystemAcquire failed to acquire new slot. Adjust camera system config to allow more")
			core.LogError(err.Error())
			return nil, err
		}
		core.LogDebug("Creating new camera named '%s'...", name)
		entry = &cameraLookup{camera: components.NewCamera()}
		cs.lookup[name] = entry
	}
	entry.referenceCount++
	return entry.camera, nil
}

/**
 * @brief Releases a camera with the given name. When the reference count
 * reaches 0 the camera is forgotten.
 */
func (cs *CameraSystem) Release(name string) {
	if name == components.DefaultCameraName {
		core.LogDebug("Cannot release default camera. Nothing was done.")
		return
	}
	entry, ok := cs.lookup[name]
	if !ok {
		core.LogWarn("CameraSystemRelease failed lookup. Nothing was done.")
		return
	}
	entry.referenceCount--
	if entry.referenceCount < 1 {
		delete(cs.lookup, name)
	}
}

/**
 * @brief Gets a pointer to the default camera.
 */
func (cs *CameraSystem) GetDefault() *components.Camera {
	return cs.DefaultCamera
}
