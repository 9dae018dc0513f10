package scene

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/umbra/engine/renderer"
	"github.com/spaghettifunk/umbra/engine/resources"
)

// RenderEntry is one mesh to draw this frame with its world transform.
type RenderEntry struct {
	Mesh  *resources.Mesh
	Model mgl32.Mat4
	// Z is reserved for depth sorting and always 0.
	Z float32
}

// RenderList splits a frame's entries into those drawn without blending and
// those drawn with it. Both keep traversal order.
type RenderList struct {
	Opaque []RenderEntry
	Alpha  []RenderEntry
}

func (l *RenderList) Len() int {
	return len(l.Opaque) + len(l.Alpha)
}

// VisitResult is what traversing a node reports to its parent. Visible is
// the node's own verdict and drives the FirstVisOnly cut-off; SubtreeVisible
// tells whether anything at or below it was added to the list.
type VisitResult struct {
	Visible        bool
	SubtreeVisible bool
}

// Renderer turns a node tree into render lists and draws them.
type Renderer struct {
	// ShowBounds adds bounding volumes to the alpha list.
	ShowBounds bool
	// DefaultMaterial draws meshes that carry no material.
	DefaultMaterial *resources.Material
}

func NewRenderer(defaultMaterial *resources.Material) *Renderer {
	return &Renderer{DefaultMaterial: defaultMaterial}
}

// BuildRenderList walks node and its descendants, collecting every visible
// mesh in range of the eye and inside the view frustum.
func (r *Renderer) BuildRenderList(node *Node, parent mgl32.Mat4, matrices *renderer.Matrices) *RenderList {
	list := &RenderList{}
	r.visit(list, node, parent, matrices)
	return list
}

func (r *Renderer) visit(list *RenderList, node *Node, parent mgl32.Mat4, matrices *renderer.Matrices) VisitResult {
	if node == nil || !node.Visible {
		return VisitResult{}
	}

	model := parent.Mul4(node.Position)

	if node.MaxDist > 0 {
		position := model.Col(3).Vec3()
		if position.Sub(matrices.EyePos()).Len() > node.MaxDist {
			return VisitResult{}
		}
	}

	result := VisitResult{Visible: true}

	if node.bounds != nil {
		mvp := matrices.ViewProjection().Mul4(model)
		if !node.bounds.TestVolume(mvp) {
			// in range but off screen
			return result
		}
		if r.ShowBounds {
			list.Alpha = append(list.Alpha, RenderEntry{Mesh: node.bounds, Model: model})
		}
	}

	if node.mesh != nil {
		if !node.mesh.Visible {
			return VisitResult{}
		}
		entry := RenderEntry{Mesh: node.mesh, Model: model}
		material := node.mesh.Material()
		if material == nil || material.Alpha == 1.0 {
			list.Opaque = append(list.Opaque, entry)
		} else {
			list.Alpha = append(list.Alpha, entry)
		}
		result.SubtreeVisible = true
	}

	for _, child := range node.children {
		childResult := r.visit(list, child, model, matrices)
		if childResult.SubtreeVisible {
			result.SubtreeVisible = true
		}
		if node.FirstVisOnly && childResult.Visible {
			break
		}
	}
	return result
}
