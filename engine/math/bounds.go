package math

import "github.com/go-gl/mathgl/mgl32"

// Bounds is an axis aligned box. The zero value is empty.
type Bounds struct {
	Min   mgl32.Vec3
	Max   mgl32.Vec3
	valid bool
}

func NewBounds(min, max mgl32.Vec3) Bounds {
	b := Bounds{}
	b.Extend(min)
	b.Extend(max)
	return b
}

func (b Bounds) IsEmpty() bool {
	return !b.valid
}

// Extend grows the box to include p.
func (b *Bounds) Extend(p mgl32.Vec3) {
	if !b.valid {
		b.Min, b.Max, b.valid = p, p, true
		return
	}
	for i := 0; i < 3; i++ {
		if p[i] < b.Min[i] {
			b.Min[i] = p[i]
		}
		if p[i] > b.Max[i] {
			b.Max[i] = p[i]
		}
	}
}

// Corners lists the 8 corners, bottom face first in counter clockwise order.
func (b Bounds) Corners() [8]mgl32.Vec3 {
	return [8]mgl32.Vec3{
		{b.Min[0], b.Min[1], b.Min[2]},
		{b.Max[0], b.Min[1], b.Min[2]},
		{b.Max[0], b.Max[1], b.Min[2]},
		{b.Min[0], b.Max[1], b.Min[2]},
		{b.Max[0], b.Min[1], b.Max[2]},
		{b.Min[0], b.Min[1], b.Max[2]},
		{b.Min[0], b.Max[1], b.Max[2]},
		{b.Max[0], b.Max[1], b.Max[2]},
	}
}

func (b Bounds) Center() mgl32.Vec3 {
	return b.Min.Add(b.Max).Mul(0.5)
}

// OutsideFrustum reports whether every point lies outside the same clip plane
// once transformed by mvp. Points straddling the frustum are never rejected.
func OutsideFrustum(points []mgl32.Vec3, mvp mgl32.Mat4) bool {
	if len(points) == 0 {
		return true
	}

	var outside [6]int
	for _, p := range points {
		c := mvp.Mul4x1(p.Vec4(1.0))
		w := c[3]
		if c[0] < -w {
			outside[0]++
		}
		if c[0] > w {
			outside[1]++
		}
		if c[1] < -w {
			outside[2]++
		}
		if c[1] > w {
			outside[3]++
		}
		if c[2] < -w {
			outside[4]++
		}
		if c[2] > w {
			outside[5]++
		}
	}

	for _, n := range outside {
		if n == len(points) {
			return true
		}
	}
	return false
}
