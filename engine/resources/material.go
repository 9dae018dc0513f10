package resources

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/umbra/engine/core"
	"github.com/spaghettifunk/umbra/engine/renderer"
	"github.com/spaghettifunk/umbra/engine/renderer/metadata"
)

/**
 * @brief Everything needed to bind an object for drawing: the shaders, the
 * surface colours and the texture maps. Shaders and maps are shared and
 * retained by the material.
 */
type Material struct {
	RefCount
	Name string
	/** @brief Disables back face culling. */
	TwoSided bool
	/** @brief 1.0 is opaque; anything else is drawn in the alpha pass. */
	Alpha float32
	/** @brief Diffuse colour. */
	MatColor mgl32.Vec3
	/** @brief Specular colour. */
	MatSpecColor mgl32.Vec3
	/** @brief Specular exponent. */
	Shininess float32

	shader       *Shader
	shadowShader *Shader
	diffuseMap   *TextureMap
	reflectMap   *TextureMap
	bumpMap      *TextureMap
}

func NewMaterial(name string) *Material {
	return &Material{
		RefCount:     NewRefCount(),
		Name:         name,
		Alpha:        1.0,
		MatColor:     mgl32.Vec3{1.0, 1.0, 1.0},
		MatSpecColor: mgl32.Vec3{1.0, 1.0, 1.0},
		Shininess:    50.0,
	}
}

func (m *Material) Release() {
	if m == nil {
		core.LogError("attempted to release nil material")
		return
	}
	if !m.Drop() {
		return
	}
	m.SetShader(nil)
	m.SetShadowShader(nil)
	m.SetDiffuseMap(nil)
	m.SetReflectMap(nil)
	m.SetBumpMap(nil)
}

func swapShader(current **Shader, next *Shader) {
	if *current == next {
		return
	}
	if *current != nil {
		(*current).Release()
	}
	*current = next
	if next != nil {
		next.Retain()
	}
}

func swapTexture(current **TextureMap, next *TextureMap) {
	if *current == next {
		return
	}
	if *current != nil {
		(*current).Release()
	}
	*current = next
	if next != nil {
		next.Retain()
	}
}

func (m *Material) Shader() *Shader           { return m.shader }
func (m *Material) ShadowShader() *Shader     { return m.shadowShader }
func (m *Material) DiffuseMap() *TextureMap   { return m.diffuseMap }
func (m *Material) ReflectMap() *TextureMap   { return m.reflectMap }
func (m *Material) BumpMap() *TextureMap      { return m.bumpMap }
func (m *Material) SetShader(s *Shader)       { swapShader(&m.shader, s) }
func (m *Material) SetShadowShader(s *Shader) { swapShader(&m.shadowShader, s) }

func (m *Material) SetDiffuseMap(t *TextureMap) { swapTexture(&m.diffuseMap, t) }
func (m *Material) SetReflectMap(t *TextureMap) { swapTexture(&m.reflectMap, t) }
func (m *Material) SetBumpMap(t *TextureMap)    { swapTexture(&m.bumpMap, t) }

// Assign copies the surface description of src into m, keeping m's identity
// so everything already holding m sees the change. Shaders are only replaced
// when src has one.
func (m *Material) Assign(src *Material) {
	m.TwoSided = src.TwoSided
	m.Alpha = src.Alpha
	m.MatColor = src.MatColor
	m.MatSpecColor = src.MatSpecColor
	m.Shininess = src.Shininess
	if src.shader != nil {
		m.SetShader(src.shader)
	}
	if src.shadowShader != nil {
		m.SetShadowShader(src.shadowShader)
	}
	m.SetDiffuseMap(src.diffuseMap)
	m.SetReflectMap(src.reflectMap)
	m.SetBumpMap(src.bumpMap)
}

// Select binds the material's shader and uploads every uniform it declares.
// It returns false when there is nothing to bind: the caller should not draw.
// light may be nil, in which case the light uniforms are left alone.
func (m *Material) Select(ctx *renderer.Context, matrices *renderer.Matrices, light Light) bool {
	if m == nil {
		core.LogError("no material to select")
		return false
	}
	if m.shader == nil {
		core.LogError("no shader setup for material %s", m.Name)
		return false
	}
	if m.shader.Program == metadata.NoShader {
		core.LogError("no shader compiled for material %s", m.Name)
		return false
	}

	s := m.shader
	ctx.UseProgram(s.Program)

	backend := ctx.Backend()
	if m.TwoSided {
		backend.Disable(metadata.CapabilityCullFace)
	} else {
		backend.Enable(metadata.CapabilityCullFace)
		backend.CullFace(metadata.FaceCullModeBack)
	}

	// camera and matrices
	ctx.SetUniform(s.Location(UniformEyePos), matrices.EyePos())
	ctx.SetUniform(s.Location(UniformProjection), matrices.Projection())
	ctx.SetUniform(s.Location(UniformView), matrices.View())
	ctx.SetUniform(s.Location(UniformModel), matrices.Model())
	ctx.SetUniform(s.Location(UniformModelView), matrices.ModelView())
	ctx.SetUniform(s.Location(UniformModelViewInverse), matrices.InverseModelView())
	ctx.SetUniform(s.Location(UniformNormalMatrix), matrices.Normal())
	ctx.SetUniform(s.Location(UniformNormalView), matrices.NormalView())
	ctx.SetUniform(s.Location(UniformMvp), matrices.MVP())

	if light != nil {
		ctx.SetUniform(s.Location(UniformLightPos), light.AdjustedPosition())
		ctx.SetUniform(s.Location(UniformAmbient), light.AmbientColor())
		ctx.SetUniform(s.Location(UniformShadowMat), light.ShadowMatrix(0))
	}

	// surface
	ctx.SetUniform(s.Location(UniformAlpha), m.Alpha)
	ctx.SetUniform(s.Location(UniformMatColor), m.MatColor)
	ctx.SetUniform(s.Location(UniformMatSpecColor), m.MatSpecColor)
	ctx.SetUniform(s.Location(UniformShininess), m.Shininess)

	var shadowMap *TextureMap
	if light != nil {
		shadowMap = light.ShadowMap(0)
	}
	unit := uint32(0)
	for _, sampler := range []struct {
		uniform Uniform
		texture *TextureMap
	}{
		{UniformShadowMap, shadowMap},
		{UniformTextureMap, m.diffuseMap},
		{UniformReflectMap, m.reflectMap},
		{UniformBumpMap, m.bumpMap},
	} {
		loc := s.Location(sampler.uniform)
		if loc < 0 {
			continue
		}
		ctx.BindTexture(unit, sampler.texture.Handle())
		ctx.SetUniform(loc, int32(unit))
		unit++
	}
	return true
}

// SelectShadow binds the shadow pass program. Materials without one don't
// cast shadows, which is not an error.
func (m *Material) SelectShadow(ctx *renderer.Context, matrices *renderer.Matrices) bool {
	if m == nil || m.shadowShader == nil || m.shadowShader.Program == metadata.NoShader {
		return false
	}

	s := m.shadowShader
	ctx.UseProgram(s.Program)
	ctx.SetUniform(s.Location(UniformMvp), matrices.MVP())
	if loc := s.Location(UniformTextureMap); loc >= 0 {
		ctx.BindTexture(0, m.diffuseMap.Handle())
		ctx.SetUniform(loc, int32(0))
	}
	return true
}

// MaterialList is an ordered collection of materials, as loaded from one library.
type MaterialList []*Material

// ByName returns the named material, or nil with a warning.
func (l MaterialList) ByName(name string) *Material {
	for _, m := range l {
		if m.Name == name {
			return m
		}
	}
	core.LogWarn("couldn't find material %s", name)
	return nil
}

// Release drops the list's reference on every material.
func (l MaterialList) Release() {
	for _, m := range l {
		m.Release()
	}
}
