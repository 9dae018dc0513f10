package engine

import (
	"github.com/spaghettifunk/umbra/engine/systems"
)

// Game is what an application plugs into the engine. SystemManager is set
// by the engine before FnInitialize runs.
type Game struct {
	ApplicationConfig *ApplicationConfig
	SystemManager     *systems.SystemManager
	State             interface{}
	FnInitialize      Initialize
	FnUpdate          Update
	FnRender          Render
	FnOnResize        OnResize
	FnShutdown        Shutdown
}

type Initialize func() error
type Update func(deltaTime float64) error

// Render fills in the scene, camera and lights of the frame's packet.
type Render func(packet *systems.RenderPacket, deltaTime float64) error
type OnResize func(width uint32, height uint32) error
type Shutdown func() error
