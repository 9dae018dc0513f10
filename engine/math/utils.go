package math

import (
	stdmath "math"

	"github.com/go-gl/mathgl/mgl32"
	"golang.org/x/exp/constraints"
)

// Clamp returns the value `f` clamped to the range [low, high].
// It works for any numeric type (integers and floats).
func Clamp[T constraints.Ordered](f, low, high T) T {
	if f < low {
		return low
	}
	if f > high {
		return high
	}
	return f
}

/**
 * @brief Snaps v to the nearest multiple of step. A step <= 0 returns v unchanged.
 */
func Snap(v, step float32) float32 {
	if step <= 0 {
		return v
	}
	return float32(stdmath.Round(float64(v/step))) * step
}

/** @brief Snaps every component of v to the nearest multiple of step. */
func SnapVec3(v mgl32.Vec3, step float32) mgl32.Vec3 {
	return mgl32.Vec3{Snap(v[0], step), Snap(v[1], step), Snap(v[2], step)}
}

/** @brief Returns the largest component of v. */
func MaxComponent(v mgl32.Vec3) float32 {
	return float32(stdmath.Max(float64(v[0]), stdmath.Max(float64(v[1]), float64(v[2]))))
}

/** @brief Applies m to the point p (w = 1) and returns the transformed point. */
func TransformPoint(m mgl32.Mat4, p mgl32.Vec3) mgl32.Vec3 {
	return m.Mul4x1(p.Vec4(1.0)).Vec3()
}

/** @brief Returns the translation part of m. */
func Translation(m mgl32.Mat4) mgl32.Vec3 {
	return m.Col(3).Vec3()
}

/**
 * @brief Returns the matrix used to transform normals by m: the inverse transpose
 * of its upper 3x3. Falls back to the plain upper 3x3 when it is singular.
 */
func NormalMatrix(m mgl32.Mat4) mgl32.Mat3 {
	upper := m.Mat3()
	if upper.Det() == 0 {
		return upper
	}
	return upper.Inv().Transpose()
}
