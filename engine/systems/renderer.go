package systems

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/umbra/engine/core"
	"github.com/spaghettifunk/umbra/engine/lighting"
	"github.com/spaghettifunk/umbra/engine/renderer"
	"github.com/spaghettifunk/umbra/engine/renderer/metadata"
	"github.com/spaghettifunk/umbra/engine/resources"
	"github.com/spaghettifunk/umbra/engine/scene"
)

type RendererSystemConfig struct {
	// Default framebuffer size. Overridden when the window reports its size.
	Width  uint32
	Height uint32
	// BarrelDist enables barrel distortion in the lighting passes.
	BarrelDist bool
	// ShadowResolution is the width and height of every shadow map.
	ShadowResolution int32
	// ShadowCascades holds the half extent covered by each sun shadow map,
	// nearest first. At most lighting.MaxShadowMaps are used.
	ShadowCascades []float32
	// ShowBounds draws node bounding boxes.
	ShowBounds bool
	// ResizeDelayFrames is how many frames a resize must settle before the
	// render targets are rebuilt.
	ResizeDelayFrames uint8
}

// RenderPacket is everything needed to draw one frame.
type RenderPacket struct {
	DeltaTime   float64
	Scene       *scene.Node
	View        mgl32.Mat4
	Projection  mgl32.Mat4
	Sun         *lighting.LightSource
	PointLights []*lighting.LightSource
}

// RendererSystem drives a frame: sun shadow maps, the geometry pass into the
// gBuffer, the directional main pass and the additive point lights.
type RendererSystem struct {
	Config *RendererSystemConfig

	backend renderer.Backend
	ctx     *renderer.Context
	gbuffer *lighting.GBuffer
	scene   *scene.Renderer

	FrameNumber uint64
	// The current window framebuffer width.
	FramebufferWidth uint32
	// The current window framebuffer height.
	FramebufferHeight uint32
	// Indicates if the window is currently being resized.
	Resizing bool
	// The current number of frames since the last resize operation.
	// Only set if resizing = true. Otherwise 0.
	FramesSinceResize uint8
	// Stats of the last drawn frame.
	LastStats renderer.FrameStats
	// Number of meshes in the last render list.
	LastRenderListSize int
}

func NewRendererSystem(config *RendererSystemConfig, backend renderer.Backend) (*RendererSystem, error) {
	if backend == nil {
		return nil, fmt.Errorf("%w: no renderer backend", core.ErrUnknownBackend)
	}
	if config.ShadowResolution <= 0 {
		config.ShadowResolution = 2048
	}
	if len(config.ShadowCascades) > lighting.MaxShadowMaps {
		core.LogWarn("only %d shadow cascades are supported, ignoring the rest", lighting.MaxShadowMaps)
		config.ShadowCascades = config.ShadowCascades[:lighting.MaxShadowMaps]
	}
	return &RendererSystem{
		Config:            config,
		backend:           backend,
		ctx:               renderer.NewContext(backend),
		FramebufferWidth:  config.Width,
		FramebufferHeight: config.Height,
	}, nil
}

// Initialize brings up the backend. Nothing may touch the GPU before this.
func (r *RendererSystem) Initialize(appName string) error {
	r.FrameNumber = 0
	r.Resizing = false
	r.FramesSinceResize = 0
	return r.backend.Initialize(appName, r.FramebufferWidth, r.FramebufferHeight)
}

// CreatePasses loads the lighting shaders and sets up the scene renderer.
func (r *RendererSystem) CreatePasses(shaderSystem *ShaderSystem, defaultMaterial *resources.Material) {
	r.gbuffer = lighting.NewGBuffer(r.backend, shaderSystem, r.Config.BarrelDist)
	r.scene = scene.NewRenderer(defaultMaterial)
	r.scene.ShowBounds = r.Config.ShowBounds
}

func (r *RendererSystem) Backend() renderer.Backend {
	return r.backend
}

func (r *RendererSystem) Context() *renderer.Context {
	return r.ctx
}

func (r *RendererSystem) GBuffer() *lighting.GBuffer {
	return r.gbuffer
}

func (r *RendererSystem) SceneRenderer() *scene.Renderer {
	return r.scene
}

func (r *RendererSystem) Shutdown() error {
	if r.gbuffer != nil {
		r.gbuffer.Destroy()
		r.gbuffer = nil
	}
	return r.backend.Shutdown()
}

func (r *RendererSystem) OnResize(width, height uint32) {
	// Flag as resizing and store the change, but wait to regenerate.
	r.Resizing = true
	r.FramebufferWidth = width
	r.FramebufferHeight = height
	// Also reset the frame count since the last resize operation.
	r.FramesSinceResize = 0
}

func (r *RendererSystem) DrawFrame(packet *RenderPacket) error {
	r.FrameNumber++

	// Make sure the window is not currently being resized by waiting a designated
	// number of frames after the last resize operation before performing the backend updates.
	if r.Resizing {
		if r.FramesSinceResize < r.Config.ResizeDelayFrames {
			r.FramesSinceResize++
			// Skip rendering the frame and try again next time.
			return nil
		}
		r.backend.Resized(r.FramebufferWidth, r.FramebufferHeight)
		r.FramesSinceResize = 0
		r.Resizing = false
	}

	if err := r.backend.BeginFrame(packet.DeltaTime); err != nil {
		return err
	}
	r.ctx.BeginFrame()

	matrices := renderer.NewMatrices()
	matrices.SetProjection(packet.Projection)
	matrices.SetView(packet.View)

	r.renderShadows(packet, matrices.EyePos())

	width, height := int32(r.FramebufferWidth), int32(r.FramebufferHeight)
	var sun resources.Light
	if packet.Sun != nil {
		sun = packet.Sun
	}

	r.ctx.ResetLastUsed()
	if r.gbuffer != nil && r.gbuffer.RenderTo(width, height) {
		r.clear(true)
		r.LastRenderListSize = r.renderScene(packet, matrices, sun)

		r.backend.FramebufferBind(0)
		r.backend.Viewport(0, 0, width, height)
		r.clear(false)

		r.gbuffer.DoMainPass(r.ctx, matrices, packet.Sun)
		r.pointLights(packet, matrices)
		r.backend.DepthMask(true)
	} else {
		// no gBuffer, light the scene directly
		r.backend.FramebufferBind(0)
		r.backend.Viewport(0, 0, width, height)
		r.clear(true)
		r.LastRenderListSize = r.renderScene(packet, matrices, sun)
	}

	r.LastStats = r.ctx.Stats()

	// End the frame. If this fails, it is likely unrecoverable.
	if err := r.backend.EndFrame(packet.DeltaTime); err != nil {
		core.LogError("backend func EndFrame failed: %s", err)
		return err
	}
	return nil
}

func (r *RendererSystem) renderShadows(packet *RenderPacket, eye mgl32.Vec3) {
	if packet.Sun == nil {
		return
	}
	var caster lighting.ShadowCaster
	if packet.Scene != nil {
		caster = packet.Scene
	}
	for i, size := range r.Config.ShadowCascades {
		packet.Sun.RenderShadowMapForSun(r.ctx, i, r.Config.ShadowResolution, size, eye, caster)
	}
	// shadow passes flip the winding
	r.backend.FrontFace(metadata.WindingCounterClockwise)
	r.backend.CullFace(metadata.FaceCullModeBack)
}

func (r *RendererSystem) renderScene(packet *RenderPacket, matrices *renderer.Matrices, sun resources.Light) int {
	if packet.Scene == nil || r.scene == nil {
		return 0
	}
	r.backend.Enable(metadata.CapabilityDepthTest)
	r.backend.DepthMask(true)
	list := r.scene.Render(r.ctx, packet.Scene, matrices, sun)
	return list.Len()
}

func (r *RendererSystem) pointLights(packet *RenderPacket, matrices *renderer.Matrices) {
	if len(packet.PointLights) == 0 {
		return
	}
	r.backend.Enable(metadata.CapabilityBlend)
	r.backend.BlendFunc(metadata.BlendOne, metadata.BlendOne)
	for _, light := range packet.PointLights {
		r.gbuffer.DoPointLight(r.ctx, matrices, light)
	}
	r.backend.Disable(metadata.CapabilityBlend)
}

func (r *RendererSystem) clear(depth bool) {
	r.backend.ClearColor(mgl32.Vec4{0.0, 0.0, 0.0, 1.0})
	mask := metadata.ClearColor
	if depth {
		r.backend.DepthMask(true)
		mask |= metadata.ClearDepth
	}
	r.backend.Clear(mask)
}
