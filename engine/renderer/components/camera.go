package components

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/umbra/engine/math"
)

/**
 * @brief A free-flying camera in a Z-up world. Ideally these are created and
 * managed by the camera system.
 */
type Camera struct {
	/**
	 * @brief The position of this camera.
	 * NOTE: Use SetPosition so the view matrix is recalculated when needed.
	 */
	Position mgl32.Vec3
	/**
	 * @brief Pitch (around X), roll (around Y) and yaw (around Z) in radians.
	 * NOTE: Use SetEulerRotation so the view matrix is recalculated when needed.
	 */
	EulerRotation mgl32.Vec3

	isDirty    bool
	viewMatrix mgl32.Mat4
}

/** @brief The name of the default camera. */
const DefaultCameraName string = "default"

// pitchLimit is 89 degrees, short of straight up to avoid gimbal lock.
const pitchLimit = float32(1.55334306)

func NewCamera() *Camera {
	camera := &Camera{}
	camera.Reset()
	return camera
}

func (c *Camera) Reset() {
	c.EulerRotation = mgl32.Vec3{}
	c.Position = mgl32.Vec3{}
	c.isDirty = false
	c.viewMatrix = mgl32.Ident4()
}

func (c *Camera) SetPosition(position mgl32.Vec3) {
	c.Position = position
	c.isDirty = true
}

func (c *Camera) SetEulerRotation(rotation mgl32.Vec3) {
	c.EulerRotation = rotation
	c.isDirty = true
}

// World is the camera's placement: looking along +Y with Z up when unrotated.
func (c *Camera) World() mgl32.Mat4 {
	rotation := mgl32.HomogRotate3DZ(c.EulerRotation.Z()).
		Mul4(mgl32.HomogRotate3DX(c.EulerRotation.X() + mgl32.DegToRad(90))).
		Mul4(mgl32.HomogRotate3DY(c.EulerRotation.Y()))
	return mgl32.Translate3D(c.Position.X(), c.Position.Y(), c.Position.Z()).Mul4(rotation)
}

func (c *Camera) View() mgl32.Mat4 {
	if c.isDirty {
		c.viewMatrix = c.World().Inv()
		c.isDirty = false
	}
	return c.viewMatrix
}

func (c *Camera) Forward() mgl32.Vec3 {
	return c.World().Col(2).Vec3().Mul(-1).Normalize()
}

func (c *Camera) Right() mgl32.Vec3 {
	return c.World().Col(0).Vec3().Normalize()
}

func (c *Camera) MoveForward(amount float32) {
	c.SetPosition(c.Position.Add(c.Forward().Mul(amount)))
}

func (c *Camera) MoveBackward(amount float32) {
	c.MoveForward(-amount)
}

func (c *Camera) MoveRight(amount float32) {
	c.SetPosition(c.Position.Add(c.Right().Mul(amount)))
}

func (c *Camera) MoveLeft(amount float32) {
	c.MoveRight(-amount)
}

func (c *Camera) MoveUp(amount float32) {
	c.SetPosition(c.Position.Add(mgl32.Vec3{0, 0, amount}))
}

func (c *Camera) MoveDown(amount float32) {
	c.MoveUp(-amount)
}

func (c *Camera) Yaw(amount float32) {
	c.EulerRotation[2] += amount
	c.isDirty = true
}

func (c *Camera) Pitch(amount float32) {
	c.EulerRotation[0] = math.Clamp(c.EulerRotation[0]+amount, -pitchLimit, pitchLimit)
	c.isDirty = true
}
