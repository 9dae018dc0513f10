package resources

import (
	"github.com/spaghettifunk/umbra/engine/core"
	"github.com/spaghettifunk/umbra/engine/renderer"
	"github.com/spaghettifunk/umbra/engine/renderer/metadata"
)

// Uniform indexes the standard uniforms every material shader may declare.
type Uniform int

const (
	UniformEyePos Uniform = iota
	UniformProjection
	UniformView
	UniformModel
	UniformModelView
	UniformModelViewInverse
	UniformNormalMatrix
	UniformNormalView
	UniformMvp
	UniformLightPos
	UniformShadowMat
	UniformAlpha
	UniformAmbient
	UniformMatColor
	UniformMatSpecColor
	UniformShininess
	UniformShadowMap
	UniformTextureMap
	UniformReflectMap
	UniformBumpMap
	uniformCount
)

var uniformNames = [uniformCount]string{
	UniformEyePos:           "eyePos",
	UniformProjection:       "projection",
	UniformView:             "view",
	UniformModel:            "model",
	UniformModelView:        "modelView",
	UniformModelViewInverse: "modelViewInverse",
	UniformNormalMatrix:     "normalMatrix",
	UniformNormalView:       "normalView",
	UniformMvp:              "mvp",
	UniformLightPos:         "lightPos",
	UniformShadowMat:        "shadowMat",
	UniformAlpha:            "alpha",
	UniformAmbient:          "ambient",
	UniformMatColor:         "matColor",
	UniformMatSpecColor:     "matSpecColor",
	UniformShininess:        "shininess",
	UniformShadowMap:        "shadowMap",
	UniformTextureMap:       "textureMap",
	UniformReflectMap:       "reflectMap",
	UniformBumpMap:          "bumpMap",
}

func (u Uniform) String() string {
	if u < 0 || u >= uniformCount {
		return "unknown"
	}
	return uniformNames[u]
}

// Shader is a linked program plus the locations of the standard uniforms.
type Shader struct {
	RefCount
	Name    string
	Program metadata.ProgramHandle

	backend   renderer.Backend
	locations [uniformCount]int32
}

func NewShader(backend renderer.Backend, name string) *Shader {
	s := &Shader{
		RefCount: NewRefCount(),
		Name:     name,
		Program:  metadata.NoShader,
		backend:  backend,
	}
	s.clearLocations()
	return s
}

func (s *Shader) clearLocations() {
	for i := range s.locations {
		s.locations[i] = metadata.UniformNotFound
	}
}

// SetProgram takes ownership of program, destroying the previous one, and
// looks up the standard uniforms. Missing ones are logged, not fatal.
func (s *Shader) SetProgram(program metadata.ProgramHandle) {
	if s.Program != metadata.NoShader && s.Program != program {
		s.backend.ProgramDestroy(s.Program)
	}
	s.Program = program
	s.clearLocations()
	if program == metadata.NoShader {
		return
	}
	for u := Uniform(0); u < uniformCount; u++ {
		s.locations[u] = s.backend.UniformLocation(program, u.String())
		if s.locations[u] < 0 {
			core.LogInfo("Unknown uniform %s:%s", s.Name, u)
		}
	}
}

// Location of a standard uniform, metadata.UniformNotFound when undeclared.
func (s *Shader) Location(u Uniform) int32 {
	return s.locations[u]
}

func (s *Shader) Release() {
	if s == nil {
		core.LogError("attempted to release nil shader")
		return
	}
	if !s.Drop() {
		return
	}
	s.SetProgram(metadata.NoShader)
}
