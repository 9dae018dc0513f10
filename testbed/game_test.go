package testbed

import (
	"testing"

	"github.com/spaghettifunk/umbra/engine"
	"github.com/spaghettifunk/umbra/engine/core"
	"github.com/spaghettifunk/umbra/engine/renderer/headless"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func headlessConfig(frames int) *engine.ApplicationConfig {
	config := engine.DefaultApplicationConfig()
	config.LogLevel = "error"
	config.Window.Width = 320
	config.Window.Height = 240
	config.Renderer.Backend = engine.BackendHeadless
	config.Renderer.Frames = frames
	config.Shadows.Resolution = 256
	config.Assets.Path = "../assets"
	config.Assets.Watch = false
	return config
}

func TestTestbedRunsHeadless(t *testing.T) {
	tb := NewTestGame(headlessConfig(3))
	e, err := engine.New(tb.Game)
	require.NoError(t, err)
	require.NoError(t, e.Initialize())

	state := tb.state()
	require.NotNil(t, state.root)
	require.NotNil(t, state.sun)
	assert.Len(t, state.pointLights, pointLightCount)
	for _, name := range []string{"ground", "crate", "red", "green", "blue", "glass", "bounds"} {
		assert.NotNil(t, tb.SystemManager.MaterialSystem().Get(name), name)
	}
	assert.NotNil(t, state.root.Bounds())

	require.NoError(t, e.Run())
	assert.Equal(t, uint64(3), e.FrameCount())

	b, ok := e.Backend().(*headless.Backend)
	require.True(t, ok)
	assert.Equal(t, 3, b.Frames)
	assert.NotEmpty(t, b.Draws)
	assert.NotZero(t, tb.SystemManager.RendererSystem().LastRenderListSize)

	require.NoError(t, e.Shutdown())
	assert.Nil(t, state.root)
	assert.Nil(t, state.WorldCamera)
	assert.Zero(t, b.LiveObjects())
}

func TestTestbedInput(t *testing.T) {
	tb := NewTestGame(headlessConfig(0))
	e, err := engine.New(tb.Game)
	require.NoError(t, err)
	require.NoError(t, e.Initialize())
	defer func() { require.NoError(t, e.Shutdown()) }()

	state := tb.state()
	start := state.WorldCamera.Position

	core.InputProcessKey(core.KEY_W, true)
	require.NoError(t, tb.Update(0.5))
	assert.Greater(t, state.WorldCamera.Position.Y(), start.Y())
	core.InputProcessKey(core.KEY_W, false)

	renderer := tb.SystemManager.RendererSystem().SceneRenderer()
	showBounds := renderer.ShowBounds
	core.InputProcessKey(core.KEY_B, true)
	require.NoError(t, tb.Update(0.1))
	assert.Equal(t, !showBounds, renderer.ShowBounds)

	// holding the key doesn't toggle again
	require.NoError(t, core.InputUpdate(0.1))
	require.NoError(t, tb.Update(0.1))
	assert.Equal(t, !showBounds, renderer.ShowBounds)
	core.InputProcessKey(core.KEY_B, false)

	sun := state.sun.Position
	core.InputProcessKey(core.KEY_L, true)
	require.NoError(t, tb.Update(0.5))
	assert.NotEqual(t, sun, state.sun.Position)
	core.InputProcessKey(core.KEY_L, false)
}
