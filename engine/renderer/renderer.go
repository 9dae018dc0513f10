package renderer

import (
	"github.com/spaghettifunk/umbra/engine/core"
	"github.com/spaghettifunk/umbra/engine/renderer/metadata"
)

// FrameStats counts the work submitted since the last BeginFrame.
type FrameStats struct {
	DrawCalls       int
	ProgramSwitches int
	TextureBinds    int
}

// Context carries the binding state that is threaded through material
// selection and scene traversal instead of living in globals.
type Context struct {
	backend Backend
	program metadata.ProgramHandle
	units   map[uint32]metadata.TextureHandle
	stats   FrameStats
}

func NewContext(backend Backend) *Context {
	if backend == nil {
		core.LogFatal("renderer context needs a backend")
	}
	return &Context{
		backend: backend,
		program: metadata.NoShader,
		units:   make(map[uint32]metadata.TextureHandle),
	}
}

func (c *Context) Backend() Backend {
	return c.backend
}

// BeginFrame clears the per-frame statistics.
func (c *Context) BeginFrame() {
	c.stats = FrameStats{}
}

func (c *Context) Stats() FrameStats {
	return c.stats
}

// UseProgram switches program unless it is already the current one.
func (c *Context) UseProgram(program metadata.ProgramHandle) {
	if program == c.program {
		return
	}
	c.backend.ProgramUse(program)
	c.program = program
	c.stats.ProgramSwitches++
}

func (c *Context) CurrentProgram() metadata.ProgramHandle {
	return c.program
}

// ResetLastUsed forgets the current program so the next UseProgram always
// reaches the backend. Needed after anything switched programs behind our back.
func (c *Context) ResetLastUsed() {
	c.program = metadata.NoShader
	for unit := range c.units {
		delete(c.units, unit)
	}
}

// BindTexture binds texture to the given unit. A zero handle unbinds.
func (c *Context) BindTexture(unit uint32, texture metadata.TextureHandle) {
	c.backend.TextureBind(unit, texture)
	c.units[unit] = texture
	c.stats.TextureBinds++
}

// BoundTexture reports what was last bound to unit through this context.
func (c *Context) BoundTexture(unit uint32) metadata.TextureHandle {
	return c.units[unit]
}

// SetUniform skips locations the program doesn't declare.
func (c *Context) SetUniform(location int32, value interface{}) {
	if location < 0 {
		return
	}
	c.backend.SetUniform(location, value)
}

func (c *Context) DrawGeometry(geometry metadata.GeometryHandle, indexCount int32) {
	c.backend.GeometryDraw(geometry, indexCount)
	c.stats.DrawCalls++
}

func (c *Context) DrawArrays(vao metadata.VertexArrayHandle, mode metadata.DrawMode, count int32) {
	c.backend.VertexArrayBind(vao)
	c.backend.DrawArrays(mode, 0, count)
	c.backend.VertexArrayBind(0)
	c.stats.DrawCalls++
}
