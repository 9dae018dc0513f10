package lighting

import (
	"github.com/spaghettifunk/umbra/engine/core"
	"github.com/spaghettifunk/umbra/engine/renderer"
	"github.com/spaghettifunk/umbra/engine/renderer/metadata"
)

// GBufferTexture names one color attachment of the gBuffer.
type GBufferTexture int

const (
	GBufferPosition GBufferTexture = iota
	GBufferNormal
	GBufferAmbient
	GBufferDiffuse
	GBufferSpecular
	GBufferTextureCount
)

var gbufferLayout = [GBufferTextureCount]struct {
	format  metadata.TextureFormat
	uniform string
}{
	GBufferPosition: {metadata.TextureFormatRGBA32F, "worldPos"},
	GBufferNormal:   {metadata.TextureFormatRGBAFloat, "normal"},
	GBufferAmbient:  {metadata.TextureFormatRGBA8, "ambient"},
	GBufferDiffuse:  {metadata.TextureFormatRGBA8, "diffuse"},
	GBufferSpecular: {metadata.TextureFormatRGBA8, "specular"},
}

// Uniform is the sampler name lighting shaders read this attachment through.
func (t GBufferTexture) Uniform() string {
	if t < 0 || t >= GBufferTextureCount {
		return "unknown"
	}
	return gbufferLayout[t].uniform
}

const (
	// the main pass draws two triangles covering the screen
	mainPassVertices = 6
	// a point light is drawn as a fan around its centre
	pointLightVertices = 38
)

// Shader asset names for the lighting passes.
const (
	MainPassShader   = "geomainpass"
	PointLightShader = "geopointlight"
	// BarrelDistDefine enables barrel distortion in the lighting shaders.
	BarrelDistDefine = "barreldist"
)

// GBuffer is the multi-target framebuffer the geometry pass writes into and
// the lighting passes read from.
type GBuffer struct {
	Width  int32
	Height int32

	backend     renderer.Backend
	textures    [GBufferTextureCount]metadata.TextureHandle
	depth       metadata.TextureHandle
	framebuffer metadata.FramebufferHandle
	vao         metadata.VertexArrayHandle

	mainPass   *LightShader
	pointLight *LightShader
}

// NewGBuffer allocates the texture objects and loads both lighting shaders.
// Storage is only allocated by the first RenderTo.
func NewGBuffer(backend renderer.Backend, loader ProgramLoader, barrelDist bool) *GBuffer {
	var defines []string
	if barrelDist {
		defines = append(defines, BarrelDistDefine)
	}
	return NewGBufferWithShaders(backend,
		LoadLightShader(backend, loader, MainPassShader, defines),
		LoadLightShader(backend, loader, PointLightShader, defines))
}

// NewGBufferWithShaders builds a gBuffer around already loaded lighting
// shaders, taking ownership of them.
func NewGBufferWithShaders(backend renderer.Backend, mainPass, pointLight *LightShader) *GBuffer {
	g := &GBuffer{
		backend:    backend,
		mainPass:   mainPass,
		pointLight: pointLight,
	}
	for i := range g.textures {
		g.textures[i] = backend.TextureCreate()
	}
	g.depth = backend.TextureCreate()
	return g
}

func (g *GBuffer) Texture(t GBufferTexture) metadata.TextureHandle {
	return g.textures[t]
}

func (g *GBuffer) Depth() metadata.TextureHandle {
	return g.depth
}

func (g *GBuffer) Framebuffer() metadata.FramebufferHandle {
	return g.framebuffer
}

// RenderTo makes the gBuffer the render target at the given size, rebuilding
// the attachments only when the size changed. Returns false when the
// framebuffer is incomplete; the next call tries again.
func (g *GBuffer) RenderTo(width, height int32) bool {
	if g.framebuffer != 0 && (width != g.Width || height != g.Height) {
		g.backend.FramebufferDestroy(g.framebuffer)
		g.framebuffer = 0
	}

	if g.framebuffer == 0 {
		g.Width = width
		g.Height = height

		g.framebuffer = g.backend.FramebufferCreate()
		g.backend.FramebufferBind(g.framebuffer)

		for i, tex := range g.textures {
			g.backend.TextureUpload(tex, g.desc(gbufferLayout[i].format), nil)
			g.backend.FramebufferAttachColor(uint32(i), tex)
		}
		g.backend.TextureUpload(g.depth, g.desc(metadata.TextureFormatDepth32F), nil)
		g.backend.FramebufferAttachDepth(g.depth)

		g.backend.FramebufferDrawBuffers(uint32(GBufferTextureCount))

		if status := g.backend.FramebufferStatus(); status != metadata.FramebufferComplete {
			core.LogErrorCode(int(status), "%s", core.ErrFramebufferIncomplete)
			g.backend.FramebufferBind(0)
			g.backend.FramebufferDestroy(g.framebuffer)
			g.framebuffer = 0
			return false
		}
		core.LogInfo("Created gbuffer %d, %d", width, height)
	} else {
		g.backend.FramebufferBind(g.framebuffer)
	}

	g.backend.Viewport(0, 0, width, height)
	return true
}

func (g *GBuffer) desc(format metadata.TextureFormat) metadata.TextureDesc {
	return metadata.TextureDesc{
		Width:  g.Width,
		Height: g.Height,
		Format: format,
		Filter: metadata.TextureFilterModeNearest,
		Wrap:   metadata.TextureWrapClampToEdge,
	}
}

func (g *GBuffer) emptyVertexArray() metadata.VertexArrayHandle {
	if g.vao == 0 {
		g.vao = g.backend.VertexArrayCreate()
	}
	return g.vao
}

// DoMainPass runs the full screen directional lighting of the sun over the
// gBuffer contents into the currently bound framebuffer.
func (g *GBuffer) DoMainPass(ctx *renderer.Context, matrices *renderer.Matrices, sun *LightSource) {
	if !g.mainPass.Loaded() {
		return
	}

	g.backend.Disable(metadata.CapabilityDepthTest)
	g.backend.DepthMask(false)
	g.backend.Disable(metadata.CapabilityCullFace)
	g.backend.Disable(metadata.CapabilityBlend)

	if !g.mainPass.Select(ctx, g, matrices, sun) {
		return
	}
	ctx.DrawArrays(g.emptyVertexArray(), metadata.DrawModeTriangles, mainPassVertices)
}

// DoPointLight adds one point light. The caller sets up additive blending.
// Lights behind the camera further than their radius are skipped.
func (g *GBuffer) DoPointLight(ctx *renderer.Context, matrices *renderer.Matrices, light *LightSource) bool {
	if !g.pointLight.Loaded() {
		return false
	}
	if !g.pointLight.Select(ctx, g, matrices, light) {
		return false
	}
	if light.AdjPosition.Z() >= light.Radius {
		return false
	}
	ctx.DrawArrays(g.emptyVertexArray(), metadata.DrawModeTriangleFan, pointLightVertices)
	return true
}

// Destroy frees every GPU object owned by the gBuffer, shaders included.
func (g *GBuffer) Destroy() {
	if g.framebuffer != 0 {
		g.backend.FramebufferDestroy(g.framebuffer)
		g.framebuffer = 0
	}
	for i, tex := range g.textures {
		g.backend.TextureDestroy(tex)
		g.textures[i] = 0
	}
	g.backend.TextureDestroy(g.depth)
	g.depth = 0
	if g.vao != 0 {
		g.backend.VertexArrayDestroy(g.vao)
		g.vao = 0
	}
	g.mainPass.Destroy()
	g.pointLight.Destroy()
}

