package renderer

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/umbra/engine/renderer/metadata"
)

// Backend is the thin layer over the graphics API. Every call happens on the
// thread that owns the GL context.
type Backend interface {
	Initialize(appName string, appWidth, appHeight uint32) error
	Shutdown() error
	Resized(width, height uint32)
	BeginFrame(deltaTime float64) error
	EndFrame(deltaTime float64) error

	TextureCreate() metadata.TextureHandle
	TextureDestroy(texture metadata.TextureHandle)
	// TextureUpload (re)allocates storage for texture and fills it with pixels, which may be nil.
	TextureUpload(texture metadata.TextureHandle, desc metadata.TextureDesc, pixels []uint8)
	TextureGenerateMipmaps(texture metadata.TextureHandle, filter metadata.TextureFilter)
	TextureBind(unit uint32, texture metadata.TextureHandle)

	FramebufferCreate() metadata.FramebufferHandle
	FramebufferDestroy(framebuffer metadata.FramebufferHandle)
	FramebufferBind(framebuffer metadata.FramebufferHandle)
	FramebufferAttachColor(index uint32, texture metadata.TextureHandle)
	FramebufferAttachDepth(texture metadata.TextureHandle)
	FramebufferDrawBuffers(count uint32)
	FramebufferStatus() metadata.FramebufferStatus

	ShaderCompile(stage metadata.ShaderStage, source string) (metadata.ShaderHandle, error)
	ShaderDestroy(shader metadata.ShaderHandle)
	ProgramLink(shaders ...metadata.ShaderHandle) (metadata.ProgramHandle, error)
	ProgramDestroy(program metadata.ProgramHandle)
	ProgramUse(program metadata.ProgramHandle)
	// UniformLocation returns metadata.UniformNotFound when program doesn't declare name.
	UniformLocation(program metadata.ProgramHandle, name string) int32
	// SetUniform sets a uniform on the program in use. Accepts int32, float32,
	// mgl32.Vec3, mgl32.Vec4, mgl32.Mat3 and mgl32.Mat4.
	SetUniform(location int32, value interface{})

	GeometryCreate(vertices []metadata.Vertex, indices []uint32) (metadata.GeometryHandle, error)
	GeometryDestroy(geometry metadata.GeometryHandle)
	GeometryDraw(geometry metadata.GeometryHandle, indexCount int32)

	VertexArrayCreate() metadata.VertexArrayHandle
	VertexArrayDestroy(vao metadata.VertexArrayHandle)
	VertexArrayBind(vao metadata.VertexArrayHandle)
	DrawArrays(mode metadata.DrawMode, first, count int32)

	Viewport(x, y, width, height int32)
	Enable(capability metadata.Capability)
	Disable(capability metadata.Capability)
	CullFace(mode metadata.FaceCullMode)
	FrontFace(winding metadata.Winding)
	DepthMask(write bool)
	BlendFunc(src, dst metadata.BlendFactor)
	PolygonFill()
	ClearColor(color mgl32.Vec4)
	Clear(mask metadata.ClearMask)
}
