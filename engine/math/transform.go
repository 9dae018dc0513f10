package math

import "github.com/go-gl/mathgl/mgl32"

// Transform is a position, rotation and scale. The matrix is rebuilt only
// after one of them changed.
type Transform struct {
	position mgl32.Vec3
	rotation mgl32.Quat
	scale    mgl32.Vec3

	isDirty bool
	local   mgl32.Mat4
}

func NewTransform() *Transform {
	return TransformFromPositionRotationScale(mgl32.Vec3{}, mgl32.QuatIdent(), mgl32.Vec3{1, 1, 1})
}

func TransformFromPosition(position mgl32.Vec3) *Transform {
	return TransformFromPositionRotationScale(position, mgl32.QuatIdent(), mgl32.Vec3{1, 1, 1})
}

func TransformFromPositionRotationScale(position mgl32.Vec3, rotation mgl32.Quat, scale mgl32.Vec3) *Transform {
	return &Transform{
		position: position,
		rotation: rotation,
		scale:    scale,
		isDirty:  true,
	}
}

func (t *Transform) Position() mgl32.Vec3 { return t.position }
func (t *Transform) Rotation() mgl32.Quat { return t.rotation }
func (t *Transform) Scale() mgl32.Vec3    { return t.scale }

func (t *Transform) SetPosition(position mgl32.Vec3) {
	t.position = position
	t.isDirty = true
}

func (t *Transform) Translate(translation mgl32.Vec3) {
	t.position = t.position.Add(translation)
	t.isDirty = true
}

func (t *Transform) SetRotation(rotation mgl32.Quat) {
	t.rotation = rotation
	t.isDirty = true
}

// Rotate applies rotation after the current one.
func (t *Transform) Rotate(rotation mgl32.Quat) {
	t.rotation = rotation.Mul(t.rotation).Normalize()
	t.isDirty = true
}

func (t *Transform) SetScale(scale mgl32.Vec3) {
	t.scale = scale
	t.isDirty = true
}

// Local is translation * rotation * scale.
func (t *Transform) Local() mgl32.Mat4 {
	if t.isDirty {
		t.local = mgl32.Translate3D(t.position.X(), t.position.Y(), t.position.Z()).
			Mul4(t.rotation.Mat4()).
			Mul4(mgl32.Scale3D(t.scale.X(), t.scale.Y(), t.scale.Z()))
		t.isDirty = false
	}
	return t.local
}
