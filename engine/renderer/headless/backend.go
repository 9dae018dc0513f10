// Package headless is a renderer backend that keeps every GPU object in
// memory and records what was asked of it. It runs without a window or GL
// context, for tests and for the headless renderer configuration.
package headless

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/umbra/engine/core"
	"github.com/spaghettifunk/umbra/engine/renderer/metadata"
)

// Texture is the in-memory copy of a texture object.
type Texture struct {
	Desc      metadata.TextureDesc
	Uploads   int
	Mipmapped bool
	Pixels    []uint8
}

// Framebuffer tracks attachments so completeness can be checked.
type Framebuffer struct {
	Color      map[uint32]metadata.TextureHandle
	Depth      metadata.TextureHandle
	DrawBuffer uint32
}

type shader struct {
	stage    metadata.ShaderStage
	uniforms []string
}

// Program keeps uniform locations (in declaration order) and the last value
// set for each of them.
type Program struct {
	Locations map[string]int32
	Values    map[int32]interface{}
}

// Draw is one recorded draw call together with the state it ran with.
type Draw struct {
	Program     metadata.ProgramHandle
	Framebuffer metadata.FramebufferHandle
	Geometry    metadata.GeometryHandle
	VertexArray metadata.VertexArrayHandle
	Mode        metadata.DrawMode
	Count       int32
	Blend       bool
	DepthTest   bool
	CullFace    bool
	Textures    map[uint32]metadata.TextureHandle
}

type geometry struct {
	vertices int
	indices  int
}

// Backend implements renderer.Backend without a GPU.
type Backend struct {
	// FailFramebuffers forces every framebuffer to report incomplete.
	FailFramebuffers bool
	// FailCompile makes every shader compile fail.
	FailCompile bool

	Textures     map[metadata.TextureHandle]*Texture
	Framebuffers map[metadata.FramebufferHandle]*Framebuffer
	Programs     map[metadata.ProgramHandle]*Program
	Draws        []Draw
	Calls        []string

	CurrentProgram     metadata.ProgramHandle
	CurrentFramebuffer metadata.FramebufferHandle
	CurrentVertexArray metadata.VertexArrayHandle
	Bound              map[uint32]metadata.TextureHandle
	Enabled            map[metadata.Capability]bool
	CullMode           metadata.FaceCullMode
	FrontFaceWinding   metadata.Winding
	DepthWrite         bool
	BlendSrc           metadata.BlendFactor
	BlendDst           metadata.BlendFactor
	ViewportRect       [4]int32
	Frames             int

	ids          *core.Identifiers
	shaders      map[metadata.ShaderHandle]*shader
	geometries   map[metadata.GeometryHandle]geometry
	vertexArrays map[metadata.VertexArrayHandle]bool
}

func New() *Backend {
	return &Backend{
		Textures:     make(map[metadata.TextureHandle]*Texture),
		Framebuffers: make(map[metadata.FramebufferHandle]*Framebuffer),
		Programs:     make(map[metadata.ProgramHandle]*Program),
		Bound:        make(map[uint32]metadata.TextureHandle),
		Enabled:      make(map[metadata.Capability]bool),
		DepthWrite:   true,
		ids:          core.NewIdentifiers(64),
		shaders:      make(map[metadata.ShaderHandle]*shader),
		geometries:   make(map[metadata.GeometryHandle]geometry),
		vertexArrays: make(map[metadata.VertexArrayHandle]bool),
	}
}

// acquire returns a non-zero handle; 0 is reserved for "none" like in GL.
func (b *Backend) acquire(owner string) uint32 {
	return b.ids.Acquire(owner) + 1
}

func (b *Backend) release(handle uint32) {
	if handle == 0 {
		return
	}
	if err := b.ids.Release(handle - 1); err != nil {
		core.LogWarn(err.Error())
	}
}

func (b *Backend) record(format string, args ...interface{}) {
	b.Calls = append(b.Calls, fmt.Sprintf(format, args...))
}

// LiveObjects counts every GPU object that has not been destroyed.
func (b *Backend) LiveObjects() int {
	return b.ids.InUse()
}

func (b *Backend) Initialize(appName string, appWidth, appHeight uint32) error {
	b.record("Initialize %s", appName)
	b.ViewportRect = [4]int32{0, 0, int32(appWidth), int32(appHeight)}
	return nil
}

func (b *Backend) Shutdown() error {
	b.record("Shutdown")
	return nil
}

func (b *Backend) Resized(width, height uint32) {
	b.record("Resized %d %d", width, height)
}

func (b *Backend) BeginFrame(deltaTime float64) error {
	b.record("BeginFrame")
	return nil
}

func (b *Backend) EndFrame(deltaTime float64) error {
	b.record("EndFrame")
	b.Frames++
	return nil
}

func (b *Backend) TextureCreate() metadata.TextureHandle {
	h := metadata.TextureHandle(b.acquire("texture"))
	b.Textures[h] = &Texture{}
	b.record("TextureCreate %d", h)
	return h
}

func (b *Backend) TextureDestroy(texture metadata.TextureHandle) {
	if _, ok := b.Textures[texture]; !ok {
		return
	}
	delete(b.Textures, texture)
	for unit, t := range b.Bound {
		if t == texture {
			delete(b.Bound, unit)
		}
	}
	b.release(uint32(texture))
	b.record("TextureDestroy %d", texture)
}

func (b *Backend) TextureUpload(texture metadata.TextureHandle, desc metadata.TextureDesc, pixels []uint8) {
	t, ok := b.Textures[texture]
	if !ok {
		core.LogError("TextureUpload on unknown texture %d", texture)
		return
	}
	t.Desc = desc
	t.Uploads++
	t.Mipmapped = false
	t.Pixels = append(t.Pixels[:0], pixels...)
	b.record("TextureUpload %d %dx%d %s", texture, desc.Width, desc.Height, desc.Format)
}

func (b *Backend) TextureGenerateMipmaps(texture metadata.TextureHandle, filter metadata.TextureFilter) {
	if t, ok := b.Textures[texture]; ok {
		t.Mipmapped = true
		t.Desc.Filter = filter
	}
	b.record("TextureGenerateMipmaps %d", texture)
}

func (b *Backend) TextureBind(unit uint32, texture metadata.TextureHandle) {
	if texture == 0 {
		delete(b.Bound, unit)
	} else {
		b.Bound[unit] = texture
	}
	b.record("TextureBind %d %d", unit, texture)
}

func (b *Backend) FramebufferCreate() metadata.FramebufferHandle {
	h := metadata.FramebufferHandle(b.acquire("framebuffer"))
	b.Framebuffers[h] = &Framebuffer{Color: make(map[uint32]metadata.TextureHandle)}
	b.record("FramebufferCreate %d", h)
	return h
}

func (b *Backend) FramebufferDestroy(framebuffer metadata.FramebufferHandle) {
	if _, ok := b.Framebuffers[framebuffer]; !ok {
		return
	}
	delete(b.Framebuffers, framebuffer)
	if b.CurrentFramebuffer == framebuffer {
		b.CurrentFramebuffer = 0
	}
	b.release(uint32(framebuffer))
	b.record("FramebufferDestroy %d", framebuffer)
}

func (b *Backend) FramebufferBind(framebuffer metadata.FramebufferHandle) {
	b.CurrentFramebuffer = framebuffer
	b.record("FramebufferBind %d", framebuffer)
}

func (b *Backend) current() *Framebuffer {
	return b.Framebuffers[b.CurrentFramebuffer]
}

func (b *Backend) FramebufferAttachColor(index uint32, texture metadata.TextureHandle) {
	if fb := b.current(); fb != nil {
		fb.Color[index] = texture
	}
	b.record("FramebufferAttachColor %d %d", index, texture)
}

func (b *Backend) FramebufferAttachDepth(texture metadata.TextureHandle) {
	if fb := b.current(); fb != nil {
		fb.Depth = texture
	}
	b.record("FramebufferAttachDepth %d", texture)
}

func (b *Backend) FramebufferDrawBuffers(count uint32) {
	if fb := b.current(); fb != nil {
		fb.DrawBuffer = count
	}
	b.record("FramebufferDrawBuffers %d", count)
}

// Status codes mirror the GL ones.
const (
	statusIncompleteAttachment        metadata.FramebufferStatus = 0x8CD6
	statusIncompleteMissingAttachment metadata.FramebufferStatus = 0x8CD7
	statusUnsupported                 metadata.FramebufferStatus = 0x8CDD
)

// FramebufferStatus reports incomplete when forced to, when nothing is
// attached, or when attachments are zero sized or disagree on size.
func (b *Backend) FramebufferStatus() metadata.FramebufferStatus {
	if b.FailFramebuffers {
		return statusUnsupported
	}
	fb := b.current()
	if fb == nil {
		return metadata.FramebufferComplete
	}

	attached := make([]metadata.TextureHandle, 0, len(fb.Color)+1)
	for _, t := range fb.Color {
		attached = append(attached, t)
	}
	if fb.Depth != 0 {
		attached = append(attached, fb.Depth)
	}
	if len(attached) == 0 {
		return statusIncompleteMissingAttachment
	}

	var w, h int32 = -1, -1
	for _, handle := range attached {
		t, ok := b.Textures[handle]
		if !ok || t.Desc.Width <= 0 || t.Desc.Height <= 0 {
			return statusIncompleteAttachment
		}
		if w < 0 {
			w, h = t.Desc.Width, t.Desc.Height
		} else if t.Desc.Width != w || t.Desc.Height != h {
			return statusIncompleteAttachment
		}
	}
	return metadata.FramebufferComplete
}

var uniformDecl = regexp.MustCompile(`(?m)^\s*uniform\s+\w+\s+(\w+)\s*(?:\[\s*(\d+)\s*\])?\s*;`)

// declaredUniforms lists the uniform names in source, expanding arrays to name[i].
func declaredUniforms(source string) []string {
	var names []string
	for _, m := range uniformDecl.FindAllStringSubmatch(source, -1) {
		if m[2] == "" {
			names = append(names, m[1])
			continue
		}
		n, _ := strconv.Atoi(m[2])
		for i := 0; i < n; i++ {
			names = append(names, fmt.Sprintf("%s[%d]", m[1], i))
		}
	}
	return names
}

func (b *Backend) ShaderCompile(stage metadata.ShaderStage, source string) (metadata.ShaderHandle, error) {
	if b.FailCompile || source == "" {
		return 0, fmt.Errorf("%w: %s stage", core.ErrShaderCompile, stage)
	}
	h := metadata.ShaderHandle(b.acquire("shader"))
	b.shaders[h] = &shader{stage: stage, uniforms: declaredUniforms(source)}
	b.record("ShaderCompile %d %s", h, stage)
	return h, nil
}

func (b *Backend) ShaderDestroy(s metadata.ShaderHandle) {
	if _, ok := b.shaders[s]; !ok {
		return
	}
	delete(b.shaders, s)
	b.release(uint32(s))
	b.record("ShaderDestroy %d", s)
}

func (b *Backend) ProgramLink(shaders ...metadata.ShaderHandle) (metadata.ProgramHandle, error) {
	if len(shaders) == 0 {
		return metadata.NoShader, fmt.Errorf("%w: no shaders", core.ErrProgramLink)
	}
	p := &Program{
		Locations: make(map[string]int32),
		Values:    make(map[int32]interface{}),
	}
	for _, s := range shaders {
		sh, ok := b.shaders[s]
		if !ok {
			return metadata.NoShader, fmt.Errorf("%w: unknown shader %d", core.ErrProgramLink, s)
		}
		for _, name := range sh.uniforms {
			if _, dup := p.Locations[name]; !dup {
				p.Locations[name] = int32(len(p.Locations))
			}
		}
	}
	h := metadata.ProgramHandle(b.acquire("program"))
	b.Programs[h] = p
	b.record("ProgramLink %d", h)
	return h, nil
}

func (b *Backend) ProgramDestroy(program metadata.ProgramHandle) {
	if _, ok := b.Programs[program]; !ok {
		return
	}
	delete(b.Programs, program)
	if b.CurrentProgram == program {
		b.CurrentProgram = metadata.NoShader
	}
	b.release(uint32(program))
	b.record("ProgramDestroy %d", program)
}

func (b *Backend) ProgramUse(program metadata.ProgramHandle) {
	b.CurrentProgram = program
	b.record("ProgramUse %d", program)
}

func (b *Backend) UniformLocation(program metadata.ProgramHandle, name string) int32 {
	p, ok := b.Programs[program]
	if !ok {
		return metadata.UniformNotFound
	}
	if loc, ok := p.Locations[name]; ok {
		return loc
	}
	return metadata.UniformNotFound
}

func (b *Backend) SetUniform(location int32, value interface{}) {
	p, ok := b.Programs[b.CurrentProgram]
	if !ok || location < 0 {
		return
	}
	switch value.(type) {
	case int32, float32, mgl32.Vec3, mgl32.Vec4, mgl32.Mat3, mgl32.Mat4:
		p.Values[location] = value
	default:
		core.LogError("SetUniform: unsupported type %T", value)
	}
}

// Uniform returns the last value set on program for the named uniform.
func (b *Backend) Uniform(program metadata.ProgramHandle, name string) (interface{}, bool) {
	p, ok := b.Programs[program]
	if !ok {
		return nil, false
	}
	loc, ok := p.Locations[name]
	if !ok {
		return nil, false
	}
	v, ok := p.Values[loc]
	return v, ok
}

func (b *Backend) GeometryCreate(vertices []metadata.Vertex, indices []uint32) (metadata.GeometryHandle, error) {
	if len(vertices) == 0 {
		return 0, fmt.Errorf("geometry without vertices")
	}
	h := metadata.GeometryHandle(b.acquire("geometry"))
	b.geometries[h] = geometry{vertices: len(vertices), indices: len(indices)}
	b.record("GeometryCreate %d", h)
	return h, nil
}

func (b *Backend) GeometryDestroy(g metadata.GeometryHandle) {
	if _, ok := b.geometries[g]; !ok {
		return
	}
	delete(b.geometries, g)
	b.release(uint32(g))
	b.record("GeometryDestroy %d", g)
}

func (b *Backend) GeometryDraw(g metadata.GeometryHandle, indexCount int32) {
	if _, ok := b.geometries[g]; !ok {
		core.LogError("GeometryDraw on unknown geometry %d", g)
		return
	}
	b.draw(Draw{Geometry: g, Mode: metadata.DrawModeTriangles, Count: indexCount})
}

func (b *Backend) VertexArrayCreate() metadata.VertexArrayHandle {
	h := metadata.VertexArrayHandle(b.acquire("vertexarray"))
	b.vertexArrays[h] = true
	b.record("VertexArrayCreate %d", h)
	return h
}

func (b *Backend) VertexArrayDestroy(vao metadata.VertexArrayHandle) {
	if !b.vertexArrays[vao] {
		return
	}
	delete(b.vertexArrays, vao)
	b.release(uint32(vao))
	b.record("VertexArrayDestroy %d", vao)
}

func (b *Backend) VertexArrayBind(vao metadata.VertexArrayHandle) {
	b.CurrentVertexArray = vao
}

func (b *Backend) DrawArrays(mode metadata.DrawMode, first, count int32) {
	b.draw(Draw{VertexArray: b.CurrentVertexArray, Mode: mode, Count: count})
}

func (b *Backend) draw(d Draw) {
	d.Program = b.CurrentProgram
	d.Framebuffer = b.CurrentFramebuffer
	d.Blend = b.Enabled[metadata.CapabilityBlend]
	d.DepthTest = b.Enabled[metadata.CapabilityDepthTest]
	d.CullFace = b.Enabled[metadata.CapabilityCullFace]
	d.Textures = make(map[uint32]metadata.TextureHandle, len(b.Bound))
	for unit, t := range b.Bound {
		d.Textures[unit] = t
	}
	b.Draws = append(b.Draws, d)
	b.record("Draw %d %d", d.Mode, d.Count)
}

func (b *Backend) Viewport(x, y, width, height int32) {
	b.ViewportRect = [4]int32{x, y, width, height}
	b.record("Viewport %d %d %d %d", x, y, width, height)
}

func (b *Backend) Enable(capability metadata.Capability) {
	b.Enabled[capability] = true
	b.record("Enable %d", capability)
}

func (b *Backend) Disable(capability metadata.Capability) {
	b.Enabled[capability] = false
	b.record("Disable %d", capability)
}

func (b *Backend) CullFace(mode metadata.FaceCullMode) {
	b.CullMode = mode
	b.record("CullFace %d", mode)
}

func (b *Backend) FrontFace(winding metadata.Winding) {
	b.FrontFaceWinding = winding
	b.record("FrontFace %d", winding)
}

func (b *Backend) DepthMask(write bool) {
	b.DepthWrite = write
	b.record("DepthMask %t", write)
}

func (b *Backend) BlendFunc(src, dst metadata.BlendFactor) {
	b.BlendSrc, b.BlendDst = src, dst
	b.record("BlendFunc %d %d", src, dst)
}

func (b *Backend) PolygonFill() {
	b.record("PolygonFill")
}

func (b *Backend) ClearColor(color mgl32.Vec4) {
	b.record("ClearColor %v", color)
}

func (b *Backend) Clear(mask metadata.ClearMask) {
	b.record("Clear %d", mask)
}

// Reset drops recorded calls and draws but keeps every object alive.
func (b *Backend) Reset() {
	b.Calls = b.Calls[:0]
	b.Draws = b.Draws[:0]
}
