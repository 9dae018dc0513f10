package math

import "github.com/go-gl/mathgl/mgl32"

// FaceNormal is the unit normal of the counter clockwise triangle a, b, c.
// Degenerate triangles return the zero vector.
func FaceNormal(a, b, c mgl32.Vec3) mgl32.Vec3 {
	n := b.Sub(a).Cross(c.Sub(a))
	if n.Len() == 0 {
		return mgl32.Vec3{}
	}
	return n.Normalize()
}

// GenerateNormals returns one smooth normal per position: the normalised sum
// of the area weighted normals of every triangle in indices sharing it.
// Positions not referenced by any triangle get a zero normal.
func GenerateNormals(positions []mgl32.Vec3, indices []uint32) []mgl32.Vec3 {
	normals := make([]mgl32.Vec3, len(positions))
	for i := 0; i+2 < len(indices); i += 3 {
		i0, i1, i2 := indices[i], indices[i+1], indices[i+2]
		if int(i0) >= len(positions) || int(i1) >= len(positions) || int(i2) >= len(positions) {
			continue
		}
		// the cross product's length weighs larger faces more
		n := positions[i1].Sub(positions[i0]).Cross(positions[i2].Sub(positions[i0]))
		normals[i0] = normals[i0].Add(n)
		normals[i1] = normals[i1].Add(n)
		normals[i2] = normals[i2].Add(n)
	}
	for i, n := range normals {
		if n.Len() > 0 {
			normals[i] = n.Normalize()
		}
	}
	return normals
}
