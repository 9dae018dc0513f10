package scene

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/umbra/engine/renderer"
	"github.com/spaghettifunk/umbra/engine/renderer/metadata"
	"github.com/spaghettifunk/umbra/engine/resources"
)

// Render draws root into the bound framebuffer: opaque meshes first without
// blending, then the alpha meshes blended in traversal order. A mesh whose
// material can't be selected is hidden from then on.
func (r *Renderer) Render(ctx *renderer.Context, root *Node, matrices *renderer.Matrices, sun resources.Light) *RenderList {
	list := r.BuildRenderList(root, mgl32.Ident4(), matrices)
	backend := ctx.Backend()

	backend.Disable(metadata.CapabilityBlend)
	backend.Enable(metadata.CapabilityDepthTest)
	for _, entry := range list.Opaque {
		r.draw(ctx, entry, matrices, sun)
	}

	backend.Enable(metadata.CapabilityBlend)
	backend.BlendFunc(metadata.BlendSrcAlpha, metadata.BlendOneMinusSrcAlpha)
	for _, entry := range list.Alpha {
		r.draw(ctx, entry, matrices, sun)
	}
	return list
}

func (r *Renderer) draw(ctx *renderer.Context, entry RenderEntry, matrices *renderer.Matrices, sun resources.Light) {
	matrices.SetModel(entry.Model)
	material := entry.Mesh.Material()
	if material == nil {
		material = r.DefaultMaterial
	}
	if !material.Select(ctx, matrices, sun) {
		entry.Mesh.Visible = false
		return
	}
	entry.Mesh.Render(ctx)
}

// RenderShadowMap draws the opaque meshes below n with their shadow shaders.
// Meshes whose material has no shadow shader don't cast shadows.
func (n *Node) RenderShadowMap(ctx *renderer.Context, matrices *renderer.Matrices) {
	list := (&Renderer{}).BuildRenderList(n, mgl32.Ident4(), matrices)
	for _, entry := range list.Opaque {
		material := entry.Mesh.Material()
		if material == nil {
			continue
		}
		matrices.SetModel(entry.Model)
		if material.SelectShadow(ctx, matrices) {
			entry.Mesh.Render(ctx)
		}
	}
}
