package resources

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/umbra/engine/core"
	"github.com/spaghettifunk/umbra/engine/math"
	"github.com/spaghettifunk/umbra/engine/renderer"
	"github.com/spaghettifunk/umbra/engine/renderer/metadata"
)

// Mesh is indexed triangle geometry with the material it is drawn with.
type Mesh struct {
	RefCount
	Name    string
	Visible bool
	// DefaultModel positions the mesh when a node is created for it.
	DefaultModel mgl32.Mat4

	Vertices []metadata.Vertex
	Indices  []uint32

	material   *Material
	backend    renderer.Backend
	geometry   metadata.GeometryHandle
	indexCount int32
}

func NewMesh(backend renderer.Backend, name string) *Mesh {
	return &Mesh{
		RefCount:     NewRefCount(),
		Name:         name,
		Visible:      true,
		DefaultModel: mgl32.Ident4(),
		backend:      backend,
	}
}

// AddVertex appends a vertex and returns its index.
func (m *Mesh) AddVertex(position, normal mgl32.Vec3, texcoord mgl32.Vec2) uint32 {
	m.Vertices = append(m.Vertices, metadata.Vertex{
		Position: position,
		Normal:   normal,
		Texcoord: texcoord,
	})
	return uint32(len(m.Vertices) - 1)
}

func (m *Mesh) AddFace(a, b, c uint32) {
	m.Indices = append(m.Indices, a, b, c)
}

func (m *Mesh) Material() *Material {
	return m.material
}

// SetMaterial retains the new material and releases the previous one.
func (m *Mesh) SetMaterial(material *Material) {
	if m.material == material {
		return
	}
	if m.material != nil {
		m.material.Release()
	}
	m.material = material
	if m.material != nil {
		m.material.Retain()
	}
}

func (m *Mesh) IsLoaded() bool {
	return m.geometry != 0
}

// CopyToGPU uploads the geometry, replacing any earlier upload. With
// freeData the CPU copy is dropped afterwards.
func (m *Mesh) CopyToGPU(freeData bool) bool {
	if len(m.Vertices) == 0 {
		core.LogWarn("mesh %s has no vertices to upload", m.Name)
		return false
	}
	if m.geometry != 0 {
		m.backend.GeometryDestroy(m.geometry)
		m.geometry = 0
	}
	geometry, err := m.backend.GeometryCreate(m.Vertices, m.Indices)
	if err != nil {
		core.LogError("couldn't upload mesh %s: %s", m.Name, err)
		return false
	}
	m.geometry = geometry
	m.indexCount = int32(len(m.Indices))
	if m.indexCount == 0 {
		m.indexCount = int32(len(m.Vertices))
	}
	if freeData {
		m.Vertices = nil
		m.Indices = nil
	}
	return true
}

// Render draws the mesh with whatever program is bound. Geometry is uploaded
// on first use; a failed upload hides the mesh.
func (m *Mesh) Render(ctx *renderer.Context) {
	if !m.IsLoaded() && !m.CopyToGPU(false) {
		m.Visible = false
		return
	}
	ctx.DrawGeometry(m.geometry, m.indexCount)
}

// Extend grows bounds with every vertex transformed by model.
func (m *Mesh) Extend(bounds *math.Bounds, model mgl32.Mat4) {
	for _, v := range m.Vertices {
		bounds.Extend(math.TransformPoint(model, v.Position))
	}
}

// TestVolume reports whether any part of the mesh may be inside the frustum
// described by mvp.
func (m *Mesh) TestVolume(mvp mgl32.Mat4) bool {
	points := make([]mgl32.Vec3, len(m.Vertices))
	for i, v := range m.Vertices {
		points[i] = v.Position
	}
	return !math.OutsideFrustum(points, mvp)
}

func (m *Mesh) Release() {
	if m == nil {
		core.LogError("attempted to release nil mesh")
		return
	}
	if !m.Drop() {
		return
	}
	m.SetMaterial(nil)
	if m.geometry != 0 {
		m.backend.GeometryDestroy(m.geometry)
		m.geometry = 0
	}
}

// NewBoundsMesh builds the 8 corner, 12 face box used as a bounding volume.
func NewBoundsMesh(backend renderer.Backend, name string, bounds math.Bounds) *Mesh {
	mesh := NewMesh(backend, name)
	for _, c := range bounds.Corners() {
		mesh.AddVertex(c, mgl32.Vec3{}, mgl32.Vec2{})
	}
	faces := [12][3]uint32{
		{0, 1, 2}, {0, 2, 3}, // front
		{4, 5, 6}, {4, 6, 7}, // back
		{0, 5, 4}, {1, 0, 4}, // bottom
		{2, 7, 6}, {3, 2, 6}, // top
		{6, 5, 0}, {3, 6, 0}, // left
		{1, 4, 7}, {1, 7, 2}, // right
	}
	for _, f := range faces {
		mesh.AddFace(f[0], f[1], f[2])
	}
	return mesh
}

// NewCubeMesh builds a cube of the given size centred on the origin with
// per face normals and texture coordinates.
func NewCubeMesh(backend renderer.Backend, name string, size float32) *Mesh {
	mesh := NewMesh(backend, name)
	h := size / 2.0
	sides := []struct {
		normal, u, v mgl32.Vec3
	}{
		{mgl32.Vec3{0, 0, 1}, mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 1, 0}},
		{mgl32.Vec3{0, 0, -1}, mgl32.Vec3{-1, 0, 0}, mgl32.Vec3{0, 1, 0}},
		{mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 0, -1}, mgl32.Vec3{0, 1, 0}},
		{mgl32.Vec3{-1, 0, 0}, mgl32.Vec3{0, 0, 1}, mgl32.Vec3{0, 1, 0}},
		{mgl32.Vec3{0, 1, 0}, mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 0, -1}},
		{mgl32.Vec3{0, -1, 0}, mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 0, 1}},
	}
	for _, s := range sides {
		center := s.normal.Mul(h)
		corner := func(du, dv float32) mgl32.Vec3 {
			return center.Add(s.u.Mul(du * h)).Add(s.v.Mul(dv * h))
		}
		a := mesh.AddVertex(corner(-1, -1), s.normal, mgl32.Vec2{0, 0})
		b := mesh.AddVertex(corner(1, -1), s.normal, mgl32.Vec2{1, 0})
		c := mesh.AddVertex(corner(1, 1), s.normal, mgl32.Vec2{1, 1})
		d := mesh.AddVertex(corner(-1, 1), s.normal, mgl32.Vec2{0, 1})
		mesh.AddFace(a, b, c)
		mesh.AddFace(a, c, d)
	}
	return mesh
}

// NewPlaneMesh builds a flat XY plane facing +Z with the texture repeated
// every unit.
func NewPlaneMesh(backend renderer.Backend, name string, width, height float32) *Mesh {
	mesh := NewMesh(backend, name)
	w, h := width/2.0, height/2.0
	up := mgl32.Vec3{0, 0, 1}
	a := mesh.AddVertex(mgl32.Vec3{-w, -h, 0}, up, mgl32.Vec2{0, 0})
	b := mesh.AddVertex(mgl32.Vec3{w, -h, 0}, up, mgl32.Vec2{width, 0})
	c := mesh.AddVertex(mgl32.Vec3{w, h, 0}, up, mgl32.Vec2{width, height})
	d := mesh.AddVertex(mgl32.Vec3{-w, h, 0}, up, mgl32.Vec2{0, height})
	mesh.AddFace(a, b, c)
	mesh.AddFace(a, c, d)
	return mesh
}

// GenerateNormals replaces every vertex normal with the smoothed normal of
// the faces sharing it.
func (m *Mesh) GenerateNormals() {
	positions := make([]mgl32.Vec3, len(m.Vertices))
	for i, v := range m.Vertices {
		positions[i] = v.Position
	}
	for i, n := range math.GenerateNormals(positions, m.Indices) {
		m.Vertices[i].Normal = n
	}
}

// NewHeightfieldMesh builds a size by size grid on the XY plane split into
// cells by cells quads, lifting each vertex to height(x, y). Normals are
// smoothed over the surface and the texture repeats every unit.
func NewHeightfieldMesh(backend renderer.Backend, name string, cells int, size float32, height func(x, y float32) float32) *Mesh {
	mesh := NewMesh(backend, name)
	if cells < 1 {
		cells = 1
	}
	step := size / float32(cells)
	origin := -size / 2.0
	for j := 0; j <= cells; j++ {
		for i := 0; i <= cells; i++ {
			x, y := origin+float32(i)*step, origin+float32(j)*step
			mesh.AddVertex(mgl32.Vec3{x, y, height(x, y)}, mgl32.Vec3{0, 0, 1}, mgl32.Vec2{x - origin, y - origin})
		}
	}
	row := uint32(cells + 1)
	for j := uint32(0); j < uint32(cells); j++ {
		for i := uint32(0); i < uint32(cells); i++ {
			a := j*row + i
			mesh.AddFace(a, a+1, a+row+1)
			mesh.AddFace(a, a+row+1, a+row)
		}
	}
	mesh.GenerateNormals()
	return mesh
}
