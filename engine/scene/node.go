package scene

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
	"github.com/spaghettifunk/umbra/engine/core"
	"github.com/spaghettifunk/umbra/engine/math"
	"github.com/spaghettifunk/umbra/engine/renderer"
	"github.com/spaghettifunk/umbra/engine/resources"
)

// Node is one entry in the scene hierarchy: a transform relative to its
// parent, an optional mesh, and the children that inherit the transform.
type Node struct {
	resources.RefCount
	ID      uuid.UUID
	Name    string
	Visible bool
	// Position is the transform relative to the parent.
	Position mgl32.Mat4
	// MaxDist hides the node and its subtree beyond this distance from the
	// eye. 0 means unlimited.
	MaxDist float32
	// FirstVisOnly keeps only the first visible child, for LOD chains.
	FirstVisOnly bool

	mesh     *resources.Mesh
	bounds   *resources.Mesh
	children []*Node
}

func NewNode(name string) *Node {
	return &Node{
		RefCount: resources.NewRefCount(),
		ID:       uuid.New(),
		Name:     name,
		Visible:  true,
		Position: mgl32.Ident4(),
	}
}

// NewCopyNode copies src under a new ID, sharing its mesh and bounds. Children are shared as
// well unless deep is set, in which case they are copied recursively (their
// meshes still shared).
func NewCopyNode(name string, src *Node, deep bool) *Node {
	if src == nil {
		core.LogError("attempted to copy nil node")
		return nil
	}
	n := NewNode(name)
	n.Visible = src.Visible
	n.Position = src.Position
	n.MaxDist = src.MaxDist
	n.FirstVisOnly = src.FirstVisOnly
	n.SetMesh(src.mesh)
	n.SetBounds(src.bounds)

	for _, child := range src.children {
		if deep {
			copied := NewCopyNode(child.Name, child, true)
			n.AddChild(copied)
			copied.Release()
			continue
		}
		n.AddChild(child)
	}
	return n
}

// Release drops a reference; the last one releases the mesh, the bounds and
// every child.
func (n *Node) Release() {
	if n == nil {
		core.LogError("attempted to release nil node")
		return
	}
	if !n.Drop() {
		return
	}
	core.LogDebug("releasing node %s (%s)", n.Name, n.ID)
	n.SetMesh(nil)
	n.SetBounds(nil)
	for _, child := range n.children {
		child.Release()
	}
	n.children = nil
}

func (n *Node) Mesh() *resources.Mesh {
	return n.mesh
}

// SetMesh retains mesh and releases the previous one.
func (n *Node) SetMesh(mesh *resources.Mesh) {
	if n.mesh == mesh {
		return
	}
	if n.mesh != nil {
		n.mesh.Release()
	}
	n.mesh = mesh
	if n.mesh != nil {
		n.mesh.Retain()
	}
}

func (n *Node) Bounds() *resources.Mesh {
	return n.bounds
}

func (n *Node) SetBounds(bounds *resources.Mesh) {
	if n.bounds == bounds {
		return
	}
	if n.bounds != nil {
		n.bounds.Release()
	}
	n.bounds = bounds
	if n.bounds != nil {
		n.bounds.Retain()
	}
}

func (n *Node) Children() []*Node {
	return n.children
}

// AddChild appends child and retains it.
func (n *Node) AddChild(child *Node) {
	if child == nil {
		core.LogError("attempted to add a nil node to %s", n.Name)
		return
	}
	child.Retain()
	n.children = append(n.children, child)
}

// AddChildren adds one child per mesh, placed at the mesh's default model.
func (n *Node) AddChildren(meshes []*resources.Mesh) {
	if len(meshes) == 0 {
		core.LogWarn("no meshes to add to %s", n.Name)
		return
	}
	for _, mesh := range meshes {
		child := NewNode(mesh.Name)
		child.Position = mesh.DefaultModel
		child.SetMesh(mesh)
		n.AddChild(child)
		child.Release()
	}
}

// extendBounds accumulates the subtree's vertices in the space of model. A
// node with bounds contributes its bounds only.
func (n *Node) extendBounds(bounds *math.Bounds, model mgl32.Mat4) {
	if n.bounds != nil {
		n.bounds.Extend(bounds, model)
		return
	}
	if n.mesh != nil {
		n.mesh.Extend(bounds, model)
	}
	for _, child := range n.children {
		child.extendBounds(bounds, model.Mul4(child.Position))
	}
}

// MakeBounds replaces the node's bounds with a box around everything below it.
func (n *Node) MakeBounds(backend renderer.Backend, material *resources.Material) {
	n.SetBounds(nil)

	var bounds math.Bounds
	n.extendBounds(&bounds, mgl32.Ident4())
	if bounds.IsEmpty() {
		core.LogWarn("node %s (%s) has no geometry to bound", n.Name, n.ID)
		return
	}

	box := resources.NewBoundsMesh(backend, n.Name+"_bounds", bounds)
	box.SetMaterial(material)
	n.SetBounds(box)
	box.Release()
}
