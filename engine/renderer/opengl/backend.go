package opengl

import (
	"fmt"
	"unsafe"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/umbra/engine/core"
	"github.com/spaghettifunk/umbra/engine/renderer"
	"github.com/spaghettifunk/umbra/engine/renderer/metadata"
)

var _ renderer.Backend = (*OpenGLRenderer)(nil)

// geometry keeps the buffers that belong to one uploaded mesh. The vertex
// array name doubles as the geometry handle.
type geometry struct {
	vao uint32
	vbo uint32
	ebo uint32
}

type OpenGLRenderer struct {
	FrameNumber uint64

	framebufferWidth  uint32
	framebufferHeight uint32

	geometries map[metadata.GeometryHandle]geometry
}

func New() *OpenGLRenderer {
	return &OpenGLRenderer{
		geometries: make(map[metadata.GeometryHandle]geometry),
	}
}

// Initialize loads the GL entry points. The platform layer must have made a
// 4.1 core context current on this thread.
func (r *OpenGLRenderer) Initialize(appName string, appWidth, appHeight uint32) error {
	if err := gl.Init(); err != nil {
		core.LogError("failed to initialize OpenGL: %s", err)
		return err
	}
	core.LogInfo("%s running on OpenGL %s (%s)", appName, gl.GoStr(gl.GetString(gl.VERSION)), gl.GoStr(gl.GetString(gl.RENDERER)))

	r.framebufferWidth = appWidth
	r.framebufferHeight = appHeight

	gl.ClearColor(0.0, 0.0, 0.0, 1.0)
	gl.Enable(gl.DEPTH_TEST)
	gl.DepthFunc(gl.LESS)
	gl.Viewport(0, 0, int32(appWidth), int32(appHeight))
	return nil
}

func (r *OpenGLRenderer) Shutdown() error {
	for handle := range r.geometries {
		r.GeometryDestroy(handle)
	}
	core.LogInfo("OpenGL renderer shut down after %d frames", r.FrameNumber)
	return nil
}

func (r *OpenGLRenderer) Resized(width, height uint32) {
	r.framebufferWidth = width
	r.framebufferHeight = height
	core.LogDebug("OpenGL renderer resized to %dx%d", width, height)
}

func (r *OpenGLRenderer) BeginFrame(deltaTime float64) error {
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
	gl.Viewport(0, 0, int32(r.framebufferWidth), int32(r.framebufferHeight))
	return nil
}

func (r *OpenGLRenderer) EndFrame(deltaTime float64) error {
	r.FrameNumber++
	if code := gl.GetError(); code != gl.NO_ERROR {
		core.LogErrorCode(int(code), "OpenGL error at end of frame %d", r.FrameNumber)
		return fmt.Errorf("opengl error 0x%x", code)
	}
	return nil
}

func (r *OpenGLRenderer) TextureCreate() metadata.TextureHandle {
	var texture uint32
	gl.GenTextures(1, &texture)
	return metadata.TextureHandle(texture)
}

func (r *OpenGLRenderer) TextureDestroy(texture metadata.TextureHandle) {
	t := uint32(texture)
	if t != 0 {
		gl.DeleteTextures(1, &t)
	}
}

func textureFormat(format metadata.TextureFormat) (internal int32, pixel uint32, kind uint32) {
	switch format {
	case metadata.TextureFormatRGBAFloat:
		return gl.RGBA, gl.RGBA, gl.FLOAT
	case metadata.TextureFormatRGBA32F:
		return gl.RGBA32F, gl.RGBA, gl.FLOAT
	case metadata.TextureFormatDepth32F:
		return gl.DEPTH_COMPONENT32F, gl.DEPTH_COMPONENT, gl.FLOAT
	}
	return gl.RGBA, gl.RGBA, gl.UNSIGNED_BYTE
}

func textureFilter(filter metadata.TextureFilter) int32 {
	switch filter {
	case metadata.TextureFilterModeNearest:
		return gl.NEAREST
	case metadata.TextureFilterModeNearestMipmapNearest:
		return gl.NEAREST_MIPMAP_NEAREST
	case metadata.TextureFilterModeLinearMipmapLinear:
		return gl.LINEAR_MIPMAP_LINEAR
	}
	return gl.LINEAR
}

func textureWrap(wrap metadata.TextureWrap) int32 {
	switch wrap {
	case metadata.TextureWrapMirroredRepeat:
		return gl.MIRRORED_REPEAT
	case metadata.TextureWrapClampToEdge:
		return gl.CLAMP_TO_EDGE
	}
	return gl.REPEAT
}

func (r *OpenGLRenderer) TextureUpload(texture metadata.TextureHandle, desc metadata.TextureDesc, pixels []uint8) {
	internal, format, kind := textureFormat(desc.Format)

	gl.ActiveTexture(gl.TEXTURE0)
	gl.BindTexture(gl.TEXTURE_2D, uint32(texture))
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, textureFilter(desc.Filter))
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, textureFilter(desc.Filter))
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, textureWrap(desc.Wrap))
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, textureWrap(desc.Wrap))

	var data unsafe.Pointer
	if len(pixels) > 0 {
		data = gl.Ptr(pixels)
	}
	gl.TexImage2D(gl.TEXTURE_2D, 0, internal, desc.Width, desc.Height, 0, format, kind, data)
}

func (r *OpenGLRenderer) TextureGenerateMipmaps(texture metadata.TextureHandle, filter metadata.TextureFilter) {
	gl.ActiveTexture(gl.TEXTURE0)
	gl.BindTexture(gl.TEXTURE_2D, uint32(texture))
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, textureFilter(filter))
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, textureFilter(filter))
	gl.GenerateMipmap(gl.TEXTURE_2D)
}

func (r *OpenGLRenderer) TextureBind(unit uint32, texture metadata.TextureHandle) {
	gl.ActiveTexture(gl.TEXTURE0 + unit)
	gl.BindTexture(gl.TEXTURE_2D, uint32(texture))
}

func (r *OpenGLRenderer) FramebufferCreate() metadata.FramebufferHandle {
	var fbo uint32
	gl.GenFramebuffers(1, &fbo)
	return metadata.FramebufferHandle(fbo)
}

func (r *OpenGLRenderer) FramebufferDestroy(framebuffer metadata.FramebufferHandle) {
	fbo := uint32(framebuffer)
	if fbo != 0 {
		gl.DeleteFramebuffers(1, &fbo)
	}
}

func (r *OpenGLRenderer) FramebufferBind(framebuffer metadata.FramebufferHandle) {
	gl.BindFramebuffer(gl.FRAMEBUFFER, uint32(framebuffer))
}

func (r *OpenGLRenderer) FramebufferAttachColor(index uint32, texture metadata.TextureHandle) {
	gl.FramebufferTexture2D(gl.FRAMEBUFFER, gl.COLOR_ATTACHMENT0+index, gl.TEXTURE_2D, uint32(texture), 0)
}

func (r *OpenGLRenderer) FramebufferAttachDepth(texture metadata.TextureHandle) {
	gl.FramebufferTexture2D(gl.FRAMEBUFFER, gl.DEPTH_ATTACHMENT, gl.TEXTURE_2D, uint32(texture), 0)
}

// FramebufferDrawBuffers routes fragment outputs 0..count-1 to the matching
// colour attachments. A count of 0 disables colour output (depth only).
func (r *OpenGLRenderer) FramebufferDrawBuffers(count uint32) {
	if count == 0 {
		gl.DrawBuffer(gl.NONE)
		gl.ReadBuffer(gl.NONE)
		return
	}
	buffers := make([]uint32, count)
	for i := range buffers {
		buffers[i] = gl.COLOR_ATTACHMENT0 + uint32(i)
	}
	gl.DrawBuffers(int32(count), &buffers[0])
}

func (r *OpenGLRenderer) FramebufferStatus() metadata.FramebufferStatus {
	return metadata.FramebufferStatus(gl.CheckFramebufferStatus(gl.FRAMEBUFFER))
}

func (r *OpenGLRenderer) GeometryCreate(vertices []metadata.Vertex, indices []uint32) (metadata.GeometryHandle, error) {
	if len(vertices) == 0 {
		return 0, fmt.Errorf("geometry without vertices")
	}

	g := geometry{}
	gl.GenVertexArrays(1, &g.vao)
	gl.BindVertexArray(g.vao)

	gl.GenBuffers(1, &g.vbo)
	gl.BindBuffer(gl.ARRAY_BUFFER, g.vbo)
	gl.BufferData(gl.ARRAY_BUFFER, len(vertices)*metadata.VertexSize, gl.Ptr(vertices), gl.STATIC_DRAW)

	gl.EnableVertexAttribArray(0)
	gl.VertexAttribPointer(0, 3, gl.FLOAT, false, metadata.VertexSize, gl.PtrOffset(0))
	gl.EnableVertexAttribArray(1)
	gl.VertexAttribPointer(1, 3, gl.FLOAT, false, metadata.VertexSize, gl.PtrOffset(3*4))
	gl.EnableVertexAttribArray(2)
	gl.VertexAttribPointer(2, 2, gl.FLOAT, false, metadata.VertexSize, gl.PtrOffset(6*4))

	if len(indices) > 0 {
		gl.GenBuffers(1, &g.ebo)
		gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, g.ebo)
		gl.BufferData(gl.ELEMENT_ARRAY_BUFFER, len(indices)*4, gl.Ptr(indices), gl.STATIC_DRAW)
	}

	gl.BindVertexArray(0)

	handle := metadata.GeometryHandle(g.vao)
	r.geometries[handle] = g
	return handle, nil
}

func (r *OpenGLRenderer) GeometryDestroy(handle metadata.GeometryHandle) {
	g, ok := r.geometries[handle]
	if !ok {
		return
	}
	if g.ebo != 0 {
		gl.DeleteBuffers(1, &g.ebo)
	}
	gl.DeleteBuffers(1, &g.vbo)
	gl.DeleteVertexArrays(1, &g.vao)
	delete(r.geometries, handle)
}

func (r *OpenGLRenderer) GeometryDraw(handle metadata.GeometryHandle, indexCount int32) {
	g, ok := r.geometries[handle]
	if !ok {
		return
	}
	gl.BindVertexArray(g.vao)
	if g.ebo != 0 {
		gl.DrawElements(gl.TRIANGLES, indexCount, gl.UNSIGNED_INT, gl.PtrOffset(0))
	} else {
		gl.DrawArrays(gl.TRIANGLES, 0, indexCount)
	}
	gl.BindVertexArray(0)
}

func (r *OpenGLRenderer) VertexArrayCreate() metadata.VertexArrayHandle {
	var vao uint32
	gl.GenVertexArrays(1, &vao)
	return metadata.VertexArrayHandle(vao)
}

func (r *OpenGLRenderer) VertexArrayDestroy(vao metadata.VertexArrayHandle) {
	v := uint32(vao)
	if v != 0 {
		gl.DeleteVertexArrays(1, &v)
	}
}

func (r *OpenGLRenderer) VertexArrayBind(vao metadata.VertexArrayHandle) {
	gl.BindVertexArray(uint32(vao))
}

func (r *OpenGLRenderer) DrawArrays(mode metadata.DrawMode, first, count int32) {
	glMode := uint32(gl.TRIANGLES)
	if mode == metadata.DrawModeTriangleFan {
		glMode = gl.TRIANGLE_FAN
	}
	gl.DrawArrays(glMode, first, count)
}

func (r *OpenGLRenderer) Viewport(x, y, width, height int32) {
	gl.Viewport(x, y, width, height)
}

func capability(c metadata.Capability) uint32 {
	switch c {
	case metadata.CapabilityCullFace:
		return gl.CULL_FACE
	case metadata.CapabilityDepthTest:
		return gl.DEPTH_TEST
	}
	return gl.BLEND
}

func (r *OpenGLRenderer) Enable(c metadata.Capability) {
	gl.Enable(capability(c))
}

func (r *OpenGLRenderer) Disable(c metadata.Capability) {
	gl.Disable(capability(c))
}

func (r *OpenGLRenderer) CullFace(mode metadata.FaceCullMode) {
	switch mode {
	case metadata.FaceCullModeFront:
		gl.CullFace(gl.FRONT)
	case metadata.FaceCullModeFrontAndBack:
		gl.CullFace(gl.FRONT_AND_BACK)
	default:
		gl.CullFace(gl.BACK)
	}
}

func (r *OpenGLRenderer) FrontFace(winding metadata.Winding) {
	if winding == metadata.WindingClockwise {
		gl.FrontFace(gl.CW)
		return
	}
	gl.FrontFace(gl.CCW)
}

func (r *OpenGLRenderer) DepthMask(write bool) {
	gl.DepthMask(write)
}

func blendFactor(f metadata.BlendFactor) uint32 {
	switch f {
	case metadata.BlendZero:
		return gl.ZERO
	case metadata.BlendSrcAlpha:
		return gl.SRC_ALPHA
	case metadata.BlendOneMinusSrcAlpha:
		return gl.ONE_MINUS_SRC_ALPHA
	}
	return gl.ONE
}

func (r *OpenGLRenderer) BlendFunc(src, dst metadata.BlendFactor) {
	gl.BlendEquation(gl.FUNC_ADD)
	gl.BlendFunc(blendFactor(src), blendFactor(dst))
}

func (r *OpenGLRenderer) PolygonFill() {
	gl.PolygonMode(gl.FRONT_AND_BACK, gl.FILL)
}

func (r *OpenGLRenderer) ClearColor(color mgl32.Vec4) {
	gl.ClearColor(color[0], color[1], color[2], color[3])
}

func (r *OpenGLRenderer) Clear(mask metadata.ClearMask) {
	var bits uint32
	if mask&metadata.ClearColor != 0 {
		bits |= gl.COLOR_BUFFER_BIT
	}
	if mask&metadata.ClearDepth != 0 {
		bits |= gl.DEPTH_BUFFER_BIT
	}
	gl.Clear(bits)
}
