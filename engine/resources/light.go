package resources

import "github.com/go-gl/mathgl/mgl32"

// Light is what material selection needs to know about the light it is lit
// by. Implemented by lighting.LightSource.
type Light interface {
	// AdjustedPosition is the position the shaders see; for the sun it
	// follows the area covered by its shadow maps.
	AdjustedPosition() mgl32.Vec3
	AmbientColor() mgl32.Vec3
	// ShadowMap returns the map of slot index, nil when not rendered yet.
	ShadowMap(index int) *TextureMap
	ShadowMatrix(index int) mgl32.Mat4
}
