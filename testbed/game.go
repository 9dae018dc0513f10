package testbed

import (
	"fmt"
	stdmath "math"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/umbra/engine"
	"github.com/spaghettifunk/umbra/engine/core"
	"github.com/spaghettifunk/umbra/engine/lighting"
	"github.com/spaghettifunk/umbra/engine/math"
	"github.com/spaghettifunk/umbra/engine/renderer/components"
	"github.com/spaghettifunk/umbra/engine/renderer/metadata"
	"github.com/spaghettifunk/umbra/engine/resources"
	"github.com/spaghettifunk/umbra/engine/scene"
	"github.com/spaghettifunk/umbra/engine/systems"
	"golang.org/x/exp/rand"
)

const (
	materialLibrary = "materials/demo.mtl"
	pointLightCount = 8
	moveSpeed       = 10.0
	turnSpeed       = 1.5
)

type TestGame struct {
	*engine.Game
}

type gameState struct {
	WorldCamera *components.Camera

	width  uint32
	height uint32

	root        *scene.Node
	spinner     *scene.Node
	spin        *math.Transform
	sun         *lighting.LightSource
	pointLights []*lighting.LightSource
	sunAngle    float32
	time        float64
}

func NewTestGame(config *engine.ApplicationConfig) *TestGame {
	tg := &TestGame{
		Game: &engine.Game{
			ApplicationConfig: config,
			State:             &gameState{},
		},
	}
	tg.FnInitialize = tg.Initialize
	tg.FnUpdate = tg.Update
	tg.FnRender = tg.Render
	tg.FnOnResize = tg.OnResize
	tg.FnShutdown = tg.Shutdown
	return tg
}

func (g *TestGame) state() *gameState {
	return g.State.(*gameState)
}

func (g *TestGame) Initialize() error {
	core.LogInfo("initializing testbed...")
	state := g.state()
	sm := g.SystemManager
	backend := sm.RendererSystem().Backend()

	// decode the library's textures in parallel before parsing it
	added := sm.TextureSystem().Preload([]string{"checker.png", "crate.png"},
		metadata.TextureFilterModeLinear, metadata.TextureWrapRepeat)
	core.LogDebug("preloaded %d textures", added)

	if _, err := sm.MaterialSystem().LoadLibrary(materialLibrary); err != nil {
		return err
	}
	material := func(name string) *resources.Material {
		if m := sm.MaterialSystem().Get(name); m != nil {
			return m
		}
		return sm.MaterialSystem().DefaultMaterial
	}

	state.root = scene.NewNode("root")

	ground := resources.NewPlaneMesh(backend, "ground", 200, 200)
	ground.SetMaterial(material("ground"))
	state.root.AddChildren([]*resources.Mesh{ground})
	ground.Release()

	// a ring of crates around a spinning centre piece
	names := []string{"crate", "red", "green", "blue"}
	for i := 0; i < 12; i++ {
		angle := float64(i) / 12 * 2 * stdmath.Pi
		cube := resources.NewCubeMesh(backend, fmt.Sprintf("crate%d", i), 2)
		cube.SetMaterial(material(names[i%len(names)]))
		cube.DefaultModel = mgl32.Translate3D(float32(15*stdmath.Cos(angle)), float32(15*stdmath.Sin(angle)), 1)
		state.root.AddChildren([]*resources.Mesh{cube})
		cube.Release()
	}

	dunes := resources.NewHeightfieldMesh(backend, "dunes", 32, 40, func(x, y float32) float32 {
		return 2 + 2*float32(stdmath.Sin(float64(x)/4)*stdmath.Cos(float64(y)/5))
	})
	dunes.SetMaterial(material("green"))
	dunes.DefaultModel = mgl32.Translate3D(-50, 10, 0)
	state.root.AddChildren([]*resources.Mesh{dunes})
	dunes.Release()

	state.spinner = scene.NewNode("spinner")
	state.spin = math.TransformFromPosition(mgl32.Vec3{0, 0, 3})
	state.spinner.Position = state.spin.Local()
	centre := resources.NewCubeMesh(backend, "centre", 3)
	centre.SetMaterial(material("crate"))
	state.spinner.SetMesh(centre)
	centre.Release()
	glass := resources.NewCubeMesh(backend, "shell", 5)
	glass.SetMaterial(material("glass"))
	state.spinner.AddChildren([]*resources.Mesh{glass})
	glass.Release()
	state.root.AddChild(state.spinner)

	// level of detail: the first child in range wins
	lod := scene.NewNode("lod")
	lod.Position = mgl32.Translate3D(0, 30, 2)
	lod.FirstVisOnly = true
	for i, size := range []float32{4, 3, 2} {
		level := scene.NewNode(fmt.Sprintf("lod%d", i))
		level.MaxDist = float32(40 * (i + 1))
		mesh := resources.NewCubeMesh(backend, level.Name, size)
		mesh.SetMaterial(material(names[i+1]))
		level.SetMesh(mesh)
		mesh.Release()
		lod.AddChild(level)
		level.Release()
	}
	state.root.AddChild(lod)
	lod.Release()

	state.root.MakeBounds(backend, material("bounds"))
	state.spinner.MakeBounds(backend, material("bounds"))

	state.sun = lighting.NewLightSource(backend, "sun", mgl32.Vec3{30, 20, 60})
	state.sun.Color = mgl32.Vec3{1.0, 0.95, 0.85}

	// scatter coloured point lights over the ground
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < pointLightCount; i++ {
		position := mgl32.Vec3{rng.Float32()*60 - 30, rng.Float32()*60 - 30, 1 + rng.Float32()*4}
		light := lighting.NewLightSource(backend, fmt.Sprintf("lamp%d", i), position)
		light.Color = mgl32.Vec3{rng.Float32(), rng.Float32(), rng.Float32()}
		light.Radius = 5 + rng.Float32()*10
		state.pointLights = append(state.pointLights, light)
	}

	camera, err := sm.CameraSystem().Acquire("world")
	if err != nil {
		return err
	}
	camera.SetPosition(mgl32.Vec3{0, -40, 12})
	camera.SetEulerRotation(mgl32.Vec3{mgl32.DegToRad(-15), 0, 0})
	state.WorldCamera = camera

	return nil
}

func (g *TestGame) Update(deltaTime float64) error {
	state := g.state()
	state.time += deltaTime
	dt := float32(deltaTime)

	camera := state.WorldCamera
	if core.InputIsKeyDown(core.KEY_W) {
		camera.MoveForward(moveSpeed * dt)
	}
	if core.InputIsKeyDown(core.KEY_S) {
		camera.MoveBackward(moveSpeed * dt)
	}
	if core.InputIsKeyDown(core.KEY_A) {
		camera.MoveLeft(moveSpeed * dt)
	}
	if core.InputIsKeyDown(core.KEY_D) {
		camera.MoveRight(moveSpeed * dt)
	}
	if core.InputIsKeyDown(core.KEY_E) {
		camera.MoveUp(moveSpeed * dt)
	}
	if core.InputIsKeyDown(core.KEY_Q) {
		camera.MoveDown(moveSpeed * dt)
	}
	if core.InputIsKeyDown(core.KEY_LEFT) {
		camera.Yaw(turnSpeed * dt)
	}
	if core.InputIsKeyDown(core.KEY_RIGHT) {
		camera.Yaw(-turnSpeed * dt)
	}
	if core.InputIsKeyDown(core.KEY_UP) {
		camera.Pitch(turnSpeed * dt)
	}
	if core.InputIsKeyDown(core.KEY_DOWN) {
		camera.Pitch(-turnSpeed * dt)
	}

	if core.InputKeyPressed(core.KEY_B) {
		renderer := g.SystemManager.RendererSystem().SceneRenderer()
		renderer.ShowBounds = !renderer.ShowBounds
	}

	// L moves the sun, which makes every cascade stale
	if core.InputIsKeyDown(core.KEY_L) {
		state.sunAngle += 0.5 * dt
		state.sun.Position = mgl32.Vec3{
			60 * float32(stdmath.Cos(float64(state.sunAngle))),
			60 * float32(stdmath.Sin(float64(state.sunAngle))),
			60,
		}
		state.sun.Invalidate()
	}

	state.spin.Rotate(mgl32.QuatRotate(0.5*dt, mgl32.Vec3{0, 0, 1}))
	state.spinner.Position = state.spin.Local()
	return nil
}

func (g *TestGame) Render(packet *systems.RenderPacket, deltaTime float64) error {
	state := g.state()
	packet.Scene = state.root
	packet.View = state.WorldCamera.View()
	packet.Sun = state.sun
	packet.PointLights = state.pointLights
	return nil
}

func (g *TestGame) OnResize(width uint32, height uint32) error {
	state := g.state()
	state.width = width
	state.height = height
	return nil
}

func (g *TestGame) Shutdown() error {
	core.LogInfo("shutting down testbed...")
	state := g.state()
	if state.spinner != nil {
		state.spinner.Release()
		state.spinner = nil
	}
	if state.root != nil {
		state.root.Release()
		state.root = nil
	}
	if state.sun != nil {
		state.sun.Release()
		state.sun = nil
	}
	for _, light := range state.pointLights {
		light.Release()
	}
	state.pointLights = nil
	if state.WorldCamera != nil {
		g.SystemManager.CameraSystem().Release("world")
		state.WorldCamera = nil
	}
	return nil
}
