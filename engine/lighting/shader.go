package lighting

import (
	"fmt"

	"github.com/spaghettifunk/umbra/engine/core"
	"github.com/spaghettifunk/umbra/engine/math"
	"github.com/spaghettifunk/umbra/engine/renderer"
	"github.com/spaghettifunk/umbra/engine/renderer/metadata"
)

const (
	attenuationConstant = 0.2
	attenuationLinear   = 0.4
	attenuationExp      = 0.4
)

// ProgramLoader builds a linked program from shader assets.
type ProgramLoader interface {
	LoadProgram(name string, stages metadata.ShaderStages, defines []string) (metadata.ProgramHandle, error)
}

// LightShader is a full screen lighting program reading the gBuffer.
type LightShader struct {
	Name    string
	Program metadata.ProgramHandle

	backend     renderer.Backend
	textures    [GBufferTextureCount]int32
	projection  int32
	lightPos    int32
	lightCol    int32
	radius      int32
	attConstant int32
	attLinear   int32
	attExp      int32
	shadowMaps  [MaxShadowMaps]int32
	shadowMats  [MaxShadowMaps]int32
}

// LoadLightShader loads name.vs and name.fs through loader. A shader that
// fails to build keeps metadata.NoShader and its passes are skipped.
func LoadLightShader(backend renderer.Backend, loader ProgramLoader, name string, defines []string) *LightShader {
	stages := metadata.ShaderStages{
		Vertex:   name + ".vs",
		Fragment: name + ".fs",
	}
	program, err := loader.LoadProgram(name, stages, defines)
	if err != nil {
		core.LogError("failed to load light shader %s: %s", name, err)
		program = metadata.NoShader
	}
	return NewLightShader(backend, name, program)
}

// NewLightShader takes ownership of program and looks up its uniforms.
func NewLightShader(backend renderer.Backend, name string, program metadata.ProgramHandle) *LightShader {
	s := &LightShader{
		Name:    name,
		Program: program,
		backend: backend,
	}
	if program == metadata.NoShader {
		for i := range s.textures {
			s.textures[i] = metadata.UniformNotFound
		}
		for i := 0; i < MaxShadowMaps; i++ {
			s.shadowMaps[i] = metadata.UniformNotFound
			s.shadowMats[i] = metadata.UniformNotFound
		}
		s.projection, s.lightPos, s.lightCol = metadata.UniformNotFound, metadata.UniformNotFound, metadata.UniformNotFound
		s.radius = metadata.UniformNotFound
		s.attConstant, s.attLinear, s.attExp = metadata.UniformNotFound, metadata.UniformNotFound, metadata.UniformNotFound
		return s
	}

	for i := range s.textures {
		s.textures[i] = s.location(GBufferTexture(i).Uniform())
	}
	s.projection = s.location("projection")
	s.lightPos = s.location("lightPos")
	s.lightCol = s.location("lightCol")
	s.radius = s.location("radius")
	s.attConstant = s.location("attConstant")
	s.attLinear = s.location("attLinear")
	s.attExp = s.location("attExp")
	for i := 0; i < MaxShadowMaps; i++ {
		s.shadowMaps[i] = s.location(fmt.Sprintf("shadowMap[%d]", i))
		s.shadowMats[i] = s.location(fmt.Sprintf("shadowMat[%d]", i))
	}
	return s
}

func (s *LightShader) location(name string) int32 {
	loc := s.backend.UniformLocation(s.Program, name)
	if loc < 0 {
		core.LogInfo("Unknown uniform %s:%s", s.Name, name)
	}
	return loc
}

// Loaded reports whether the shader has a usable program.
func (s *LightShader) Loaded() bool {
	return s != nil && s.Program != metadata.NoShader
}

func (s *LightShader) Destroy() {
	if s.Program != metadata.NoShader {
		s.backend.ProgramDestroy(s.Program)
		s.Program = metadata.NoShader
	}
}

// Select makes the shader current, binds the gBuffer textures and the light's
// shadow maps to consecutive units and uploads the light uniforms. The light's
// AdjPosition is updated to its view space position.
func (s *LightShader) Select(ctx *renderer.Context, buffer *GBuffer, matrices *renderer.Matrices, light *LightSource) bool {
	if !s.Loaded() {
		return false
	}
	if light == nil {
		core.LogError("light shader %s selected without a light", s.Name)
		return false
	}

	ctx.UseProgram(s.Program)

	unit := uint32(0)
	for i, loc := range s.textures {
		if loc < 0 {
			continue
		}
		ctx.BindTexture(unit, buffer.Texture(GBufferTexture(i)))
		ctx.SetUniform(loc, int32(unit))
		unit++
	}

	ctx.SetUniform(s.projection, matrices.Projection())

	light.AdjPosition = math.TransformPoint(matrices.View(), light.Position)
	ctx.SetUniform(s.lightPos, light.AdjPosition)
	ctx.SetUniform(s.lightCol, light.Color)

	ctx.SetUniform(s.radius, light.MaxDistance())
	ctx.SetUniform(s.attConstant, float32(attenuationConstant))
	ctx.SetUniform(s.attLinear, attenuationLinear/light.Radius)
	ctx.SetUniform(s.attExp, attenuationExp/(light.Radius*light.Radius))

	invView := matrices.InverseView()
	for i := 0; i < MaxShadowMaps; i++ {
		if s.shadowMaps[i] >= 0 {
			var handle metadata.TextureHandle
			if shadowMap := light.ShadowMap(i); shadowMap != nil {
				handle = shadowMap.Handle()
			}
			ctx.BindTexture(unit, handle)
			ctx.SetUniform(s.shadowMaps[i], int32(unit))
			unit++
		}
		if s.shadowMats[i] >= 0 {
			// shadow lookups start from view space positions
			ctx.SetUniform(s.shadowMats[i], light.ShadowMatrix(i).Mul4(invView))
		}
	}
	return true
}

