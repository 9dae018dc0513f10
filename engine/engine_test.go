package engine

import (
	"testing"
	"testing/fstest"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/umbra/engine/assets"
	"github.com/spaghettifunk/umbra/engine/core"
	"github.com/spaghettifunk/umbra/engine/lighting"
	"github.com/spaghettifunk/umbra/engine/renderer/headless"
	"github.com/spaghettifunk/umbra/engine/resources"
	"github.com/spaghettifunk/umbra/engine/scene"
	"github.com/spaghettifunk/umbra/engine/systems"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const lightPassFS = `uniform sampler2D worldPos;
uniform sampler2D normal;
uniform sampler2D ambient;
uniform sampler2D diffuse;
uniform sampler2D specular;
uniform vec3 lightPos;
uniform vec3 lightCol;
uniform float radius;
uniform sampler2D shadowMap[3];
uniform mat4 shadowMat[3];
void main() {}
`

func testAssets() fstest.MapFS {
	return fstest.MapFS{
		"shaders/standard.vs":      {Data: []byte("uniform mat4 mvp;\nvoid main() {}\n")},
		"shaders/standard.fs":      {Data: []byte("uniform vec3 matColor;\nuniform float alpha;\nvoid main() {}\n")},
		"shaders/shadow.vs":        {Data: []byte("uniform mat4 mvp;\nvoid main() {}\n")},
		"shaders/shadow.fs":        {Data: []byte("void main() {}\n")},
		"shaders/geomainpass.vs":   {Data: []byte("void main() {}\n")},
		"shaders/geomainpass.fs":   {Data: []byte(lightPassFS)},
		"shaders/geopointlight.vs": {Data: []byte("uniform mat4 projection;\nvoid main() {}\n")},
		"shaders/geopointlight.fs": {Data: []byte(lightPassFS)},
	}
}

func headlessConfig(frames int) *ApplicationConfig {
	config := DefaultApplicationConfig()
	config.LogLevel = "error"
	config.Window.Width = 320
	config.Window.Height = 240
	config.Renderer.Backend = BackendHeadless
	config.Renderer.Frames = frames
	config.Renderer.ResizeDelayFrames = 2
	config.Shadows.Resolution = 256
	config.Limits.JobWorkers = 2
	return config
}

type counters struct {
	initialized int
	updates     int
	renders     int
	resizes     [][2]uint32
	shutdowns   int

	root *scene.Node
	sun  *lighting.LightSource
}

// newCountingGame builds a game with a single cube lit by a sun that counts
// its callbacks.
func newCountingGame(config *ApplicationConfig) (*Game, *counters) {
	c := &counters{}
	g := &Game{ApplicationConfig: config, State: c}
	g.FnInitialize = func() error {
		c.initialized++
		backend := g.SystemManager.RendererSystem().Backend()
		c.root = scene.NewNode("root")
		cube := resources.NewCubeMesh(backend, "cube", 1)
		cube.SetMaterial(g.SystemManager.MaterialSystem().DefaultMaterial)
		c.root.AddChildren([]*resources.Mesh{cube})
		cube.Release()
		c.sun = lighting.NewLightSource(backend, "sun", mgl32.Vec3{1, 1, 2})
		return nil
	}
	g.FnUpdate = func(deltaTime float64) error {
		c.updates++
		return nil
	}
	g.FnRender = func(packet *systems.RenderPacket, deltaTime float64) error {
		c.renders++
		packet.Scene = c.root
		packet.Sun = c.sun
		packet.View = mgl32.LookAtV(mgl32.Vec3{0, -10, 0}, mgl32.Vec3{}, mgl32.Vec3{0, 0, 1})
		return nil
	}
	g.FnOnResize = func(width, height uint32) error {
		c.resizes = append(c.resizes, [2]uint32{width, height})
		return nil
	}
	g.FnShutdown = func() error {
		c.shutdowns++
		c.root.Release()
		c.sun.Release()
		return nil
	}
	return g, c
}

func newHeadlessEngine(t *testing.T, g *Game) (*Engine, *headless.Backend) {
	t.Helper()
	am, err := assets.NewAssetManager(testAssets())
	require.NoError(t, err)
	b := headless.New()
	e, err := NewWithAssets(g, am, b)
	require.NoError(t, err)
	return e, b
}

func TestParseApplicationConfigKeepsDefaults(t *testing.T) {
	config, err := ParseApplicationConfig([]byte(`
log_level = "debug"

[window]
width = 640
height = 480

[renderer]
backend = "headless"
frames = 10
`))
	require.NoError(t, err)

	assert.Equal(t, "debug", config.LogLevel)
	assert.Equal(t, uint32(640), config.Window.Width)
	assert.Equal(t, uint32(480), config.Window.Height)
	assert.Equal(t, BackendHeadless, config.Renderer.Backend)
	assert.Equal(t, 10, config.Renderer.Frames)

	defaults := DefaultApplicationConfig()
	assert.Equal(t, defaults.Window.Name, config.Window.Name)
	assert.Equal(t, defaults.Shadows, config.Shadows)
	assert.Equal(t, defaults.Assets, config.Assets)
	assert.Equal(t, defaults.Limits, config.Limits)
}

func TestParseApplicationConfigErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
		is   error
	}{
		{name: "unknown key", data: "[window]\nwdth = 10\n"},
		{name: "wrong type", data: "[window]\nwidth = \"wide\"\n"},
		{name: "unknown backend", data: "[renderer]\nbackend = \"vulkan\"\n", is: core.ErrUnknownBackend},
		{name: "empty window", data: "[window]\nwidth = 0\n"},
		{name: "clip planes", data: "[renderer]\nnear = 10.0\nfar = 1.0\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseApplicationConfig([]byte(tt.data))
			require.Error(t, err)
			if tt.is != nil {
				assert.ErrorIs(t, err, tt.is)
			}
		})
	}
}

func TestLoadApplicationConfigMissingFile(t *testing.T) {
	_, err := LoadApplicationConfig("does/not/exist.toml")
	assert.Error(t, err)
}

func TestSystemManagerConfig(t *testing.T) {
	config := DefaultApplicationConfig()
	config.Renderer.BarrelDist = true
	sc := config.SystemManagerConfig()

	assert.Equal(t, config.Limits.JobWorkers, sc.JobWorkers)
	assert.Equal(t, config.Limits.MaxCameras, sc.Camera.MaxCameraCount)
	assert.Equal(t, config.Window.Width, sc.Renderer.Width)
	assert.True(t, sc.Renderer.BarrelDist)
	assert.Equal(t, config.Shadows.Resolution, sc.Renderer.ShadowResolution)
	assert.Equal(t, config.Shadows.Cascades, sc.Renderer.ShadowCascades)
	assert.Equal(t, "textures", sc.Texture.BasePath)
	assert.Equal(t, "shaders", sc.Shader.BasePath)
	assert.Equal(t, "standard", sc.Material.DefaultShader)
	assert.Equal(t, "shadow", sc.Material.ShadowShader)

	// the cascades are copied
	sc.Renderer.ShadowCascades[0] = 1
	assert.Equal(t, float32(10), config.Shadows.Cascades[0])
}

func TestNewRejectsUnknownBackend(t *testing.T) {
	config := headlessConfig(1)
	config.Renderer.Backend = "software"
	_, err := New(&Game{ApplicationConfig: config})
	assert.ErrorIs(t, err, core.ErrUnknownBackend)
}

func TestEngineRunsHeadlessFrames(t *testing.T) {
	g, c := newCountingGame(headlessConfig(5))
	e, b := newHeadlessEngine(t, g)

	require.NoError(t, e.Initialize())
	assert.Same(t, e.SystemManager(), g.SystemManager)
	assert.Equal(t, 1, c.initialized)
	assert.Equal(t, [][2]uint32{{320, 240}}, c.resizes)

	require.NoError(t, e.Run())
	assert.Equal(t, uint64(5), e.FrameCount())
	assert.Equal(t, 5, c.updates)
	assert.Equal(t, 5, c.renders)
	assert.Equal(t, 5, b.Frames)
	assert.NotEmpty(t, b.Draws)

	require.NoError(t, e.Shutdown())
	assert.Equal(t, 1, c.shutdowns)
	assert.Zero(t, b.LiveObjects())

	// a second shutdown is a no-op
	require.NoError(t, e.Shutdown())
	assert.Equal(t, 1, c.shutdowns)
}

func TestRunBeforeInitialize(t *testing.T) {
	g, _ := newCountingGame(headlessConfig(1))
	e, _ := newHeadlessEngine(t, g)
	assert.Error(t, e.Run())
}

func TestEscapeQuits(t *testing.T) {
	g, c := newCountingGame(headlessConfig(0))
	update := g.FnUpdate
	g.FnUpdate = func(deltaTime float64) error {
		if err := update(deltaTime); err != nil {
			return err
		}
		if c.updates == 3 {
			core.InputProcessKey(core.KEY_ESCAPE, true)
		}
		return nil
	}
	e, _ := newHeadlessEngine(t, g)
	require.NoError(t, e.Initialize())

	require.NoError(t, e.Run())
	assert.Equal(t, uint64(3), e.FrameCount())
	require.NoError(t, e.Shutdown())
}

func TestResizeSuspendsAndResumes(t *testing.T) {
	g, c := newCountingGame(headlessConfig(0))
	e, b := newHeadlessEngine(t, g)
	require.NoError(t, e.Initialize())
	defer func() { require.NoError(t, e.Shutdown()) }()

	core.EventFire(core.EventContext{
		Type: core.EVENT_CODE_RESIZED,
		Data: &core.SystemEvent{WindowWidth: 0, WindowHeight: 0},
	})
	assert.True(t, e.isSuspended)
	assert.Len(t, c.resizes, 1)

	core.EventFire(core.EventContext{
		Type: core.EVENT_CODE_RESIZED,
		Data: &core.SystemEvent{WindowWidth: 800, WindowHeight: 600},
	})
	assert.False(t, e.isSuspended)
	assert.Equal(t, [2]uint32{800, 600}, c.resizes[len(c.resizes)-1])
	width, height := e.GetFramebufferSize()
	assert.Equal(t, uint32(800), width)
	assert.Equal(t, uint32(600), height)
	assert.InDelta(t, 800.0/600.0, float64(e.Projection()[5]/e.Projection()[0]), 1e-4)

	// the backend only hears about it once the resize settled
	rs := g.SystemManager.RendererSystem()
	assert.True(t, rs.Resizing)
	require.NoError(t, e.Frame())
	require.NoError(t, e.Frame())
	assert.NotContains(t, b.Calls, "Resized 800 600")
	require.NoError(t, e.Frame())
	assert.Contains(t, b.Calls, "Resized 800 600")
	assert.False(t, rs.Resizing)
}

func TestAssetChangesAreDrained(t *testing.T) {
	fsys := testAssets()
	am, err := assets.NewAssetManager(fsys)
	require.NoError(t, err)
	g, _ := newCountingGame(headlessConfig(0))
	e, err := NewWithAssets(g, am, headless.New())
	require.NoError(t, err)
	require.NoError(t, e.Initialize())
	defer func() { require.NoError(t, e.Shutdown()) }()

	var changed []string
	id := core.EventRegister(core.EVENT_CODE_ASSET_CHANGED, func(context core.EventContext) bool {
		changed = append(changed, context.Data.(*core.AssetEvent).Path)
		return false
	})
	defer core.EventUnregister(core.EVENT_CODE_ASSET_CHANGED, id)

	standard := g.SystemManager.MaterialSystem().DefaultMaterial.Shader()
	before := standard.Program
	fsys["shaders/standard.fs"] = &fstest.MapFile{Data: []byte("uniform vec3 matColor;\nuniform float shininess;\nvoid main() {}\n")}
	am.NotifyChanged("shaders/standard.fs")

	require.NoError(t, e.Frame())
	assert.Equal(t, []string{"shaders/standard.fs"}, changed)
	assert.NotEqual(t, before, standard.Program)
}
