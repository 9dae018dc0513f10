package lighting

import (
	stdmath "math"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/umbra/engine/core"
	"github.com/spaghettifunk/umbra/engine/math"
	"github.com/spaghettifunk/umbra/engine/renderer"
	"github.com/spaghettifunk/umbra/engine/renderer/metadata"
	"github.com/spaghettifunk/umbra/engine/resources"
)

// MaxShadowMaps is the number of shadow map slots (cascades) per light.
const MaxShadowMaps = 3

const (
	// sunDistance is how far the sun is placed from the area it shadows.
	sunDistance = 10000.0
	// sunDepthRange covers any scene extent along the light direction.
	sunDepthRange = 50000.0
	// illuminationThreshold is the light level at which a point light stops contributing.
	illuminationThreshold = 0.1
)

// ShadowCaster renders the depth of everything that casts a shadow.
type ShadowCaster interface {
	RenderShadowMap(ctx *renderer.Context, matrices *renderer.Matrices)
}

type shadowSlot struct {
	dirty     bool
	lookAt    mgl32.Vec3
	shadowMap *resources.TextureMap
	matrix    mgl32.Mat4
}

// LightSource is either the sun (directional, with shadow maps) or a point
// light (with a radius of influence).
type LightSource struct {
	resources.RefCount
	Name     string
	Position mgl32.Vec3
	// AdjPosition is the position last handed to the shaders: view space in
	// the lighting passes, the repositioned sun after a shadow pass.
	AdjPosition mgl32.Vec3
	Color       mgl32.Vec3
	Ambient     mgl32.Vec3
	Radius      float32

	backend renderer.Backend
	slots   [MaxShadowMaps]shadowSlot
}

func NewLightSource(backend renderer.Backend, name string, position mgl32.Vec3) *LightSource {
	l := &LightSource{
		RefCount:    resources.NewRefCount(),
		Name:        name,
		Position:    position,
		AdjPosition: position,
		Color:       mgl32.Vec3{1.0, 1.0, 1.0},
		Ambient:     mgl32.Vec3{0.3, 0.3, 0.3},
		Radius:      100.0,
		backend:     backend,
	}
	for i := range l.slots {
		l.slots[i].dirty = true
		l.slots[i].matrix = mgl32.Ident4()
	}
	return l
}

func (l *LightSource) Release() {
	if l == nil {
		core.LogError("attempted to release nil light")
		return
	}
	if !l.Drop() {
		return
	}
	for i := range l.slots {
		if l.slots[i].shadowMap != nil {
			l.slots[i].shadowMap.Release()
			l.slots[i].shadowMap = nil
		}
	}
}

func (l *LightSource) AdjustedPosition() mgl32.Vec3 {
	return l.AdjPosition
}

func (l *LightSource) AmbientColor() mgl32.Vec3 {
	return l.Ambient
}

func (l *LightSource) ShadowMap(index int) *resources.TextureMap {
	if index < 0 || index >= MaxShadowMaps {
		return nil
	}
	return l.slots[index].shadowMap
}

func (l *LightSource) ShadowMatrix(index int) mgl32.Mat4 {
	if index < 0 || index >= MaxShadowMaps {
		return mgl32.Ident4()
	}
	return l.slots[index].matrix
}

// ShadowLookAt is the quantized point the slot's shadow map is centred on.
func (l *LightSource) ShadowLookAt(index int) mgl32.Vec3 {
	return l.slots[index].lookAt
}

// ShadowDirty reports whether the slot will be rebuilt on its next render.
func (l *LightSource) ShadowDirty(index int) bool {
	return l.slots[index].dirty
}

// Invalidate forces every shadow map to be rebuilt, for when the scene changed.
func (l *LightSource) Invalidate() {
	for i := range l.slots {
		l.slots[i].dirty = true
	}
}

// MaxDistance is how far a point light reaches before its contribution drops
// below the illumination threshold.
func (l *LightSource) MaxDistance() float32 {
	maxIllum := math.MaxComponent(l.Color)
	return l.Radius * float32(stdmath.Sqrt(float64(maxIllum/illuminationThreshold)-0.2))
}

// RenderShadowMapForSun renders shadow map slot as seen from the sun, centred
// on eye. The eye is snapped to a grid of size/100 so small camera moves
// reuse the cached map. Leaves the default framebuffer bound and the viewport
// at the shadow resolution.
func (l *LightSource) RenderShadowMapForSun(ctx *renderer.Context, slot int, resolution int32, size float32, eye mgl32.Vec3, scene ShadowCaster) {
	if slot < 0 || slot >= MaxShadowMaps {
		core.LogError("shadow map slot %d out of range for %s", slot, l.Name)
		return
	}
	s := &l.slots[slot]

	lookAt := math.SnapVec3(eye, size/100.0)
	if lookAt != s.lookAt {
		s.lookAt = lookAt
		s.dirty = true
	}
	if s.shadowMap == nil {
		s.shadowMap = resources.NewTextureMap(l.backend, "")
	}

	if !s.dirty || scene == nil {
		return
	}
	if !s.shadowMap.RenderToShadowMap(resolution, resolution) {
		return
	}

	ctx.ResetLastUsed()
	backend := ctx.Backend()
	backend.Viewport(0, 0, resolution, resolution)

	// cull front faces against shadow acne
	backend.Enable(metadata.CapabilityCullFace)
	backend.FrontFace(metadata.WindingClockwise)
	backend.CullFace(metadata.FaceCullModeFront)

	backend.Enable(metadata.CapabilityDepthTest)
	backend.DepthMask(true)
	backend.Disable(metadata.CapabilityBlend)
	backend.PolygonFill()
	backend.Clear(metadata.ClearDepth)

	matrices := renderer.NewMatrices()
	matrices.SetProjection(mgl32.Ortho(-size, size, -size, size, -sunDepthRange, sunDepthRange))

	// the sun follows the camera so the map always covers the area around it
	l.AdjPosition = l.Position.Normalize().Mul(sunDistance).Add(s.lookAt)

	// Z up: the sun is assumed to travel east to west in the X/Y plane
	matrices.SetView(mgl32.LookAtV(l.AdjPosition, s.lookAt, mgl32.Vec3{0.0, 0.0, 1.0}))
	matrices.SetEyePos(s.lookAt)

	scene.RenderShadowMap(ctx, matrices)

	s.matrix = matrices.ViewProjection()
	s.dirty = false

	backend.FramebufferBind(0)
}
