package scene

import (
	"bytes"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/umbra/engine/core"
	"github.com/spaghettifunk/umbra/engine/renderer"
	"github.com/spaghettifunk/umbra/engine/renderer/headless"
	"github.com/spaghettifunk/umbra/engine/renderer/metadata"
	"github.com/spaghettifunk/umbra/engine/resources"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const flatVS = "uniform mat4 mvp;\nvoid main() {}\n"
const flatFS = "uniform float alpha;\nvoid main() {}\n"

func compiledShader(t *testing.T, b *headless.Backend, name string) *resources.Shader {
	t.Helper()
	vs, err := b.ShaderCompile(metadata.ShaderStageVertex, flatVS)
	require.NoError(t, err)
	fs, err := b.ShaderCompile(metadata.ShaderStageFragment, flatFS)
	require.NoError(t, err)
	program, err := b.ProgramLink(vs, fs)
	require.NoError(t, err)
	s := resources.NewShader(b, name)
	s.SetProgram(program)
	return s
}

func meshNode(b *headless.Backend, name string, material *resources.Material) *Node {
	mesh := resources.NewCubeMesh(b, name, 1)
	mesh.SetMaterial(material)
	n := NewNode(name)
	n.SetMesh(mesh)
	mesh.Release()
	return n
}

func entryNames(entries []RenderEntry) []string {
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Mesh.Name)
	}
	return names
}

func TestBuildRenderListPartitionsByAlpha(t *testing.T) {
	b := headless.New()
	opaque := resources.NewMaterial("opaque")
	glass := resources.NewMaterial("glass")
	glass.Alpha = 0.5

	root := NewNode("root")
	for _, child := range []*Node{
		meshNode(b, "plain", nil),
		meshNode(b, "solid", opaque),
		meshNode(b, "window", glass),
		meshNode(b, "wall", opaque),
	} {
		root.AddChild(child)
		child.Release()
	}

	list := NewRenderer(nil).BuildRenderList(root, mgl32.Ident4(), renderer.NewMatrices())

	assert.Equal(t, []string{"plain", "solid", "wall"}, entryNames(list.Opaque))
	assert.Equal(t, []string{"window"}, entryNames(list.Alpha))
	assert.Equal(t, 4, list.Len())
	for _, e := range list.Opaque {
		assert.Zero(t, e.Z)
	}
}

func TestBuildRenderListAccumulatesTransforms(t *testing.T) {
	b := headless.New()
	root := NewNode("root")
	root.Position = mgl32.Translate3D(1, 0, 0)
	arm := NewNode("arm")
	arm.Position = mgl32.Translate3D(0, 2, 0)
	hand := meshNode(b, "hand", nil)
	hand.Position = mgl32.Translate3D(0, 0, 3)
	arm.AddChild(hand)
	root.AddChild(arm)

	list := NewRenderer(nil).BuildRenderList(root, mgl32.Translate3D(10, 0, 0), renderer.NewMatrices())

	require.Len(t, list.Opaque, 1)
	assert.Equal(t, mgl32.Vec3{11, 2, 3}, list.Opaque[0].Model.Col(3).Vec3())
}

func TestBuildRenderListMaxDistIsInclusive(t *testing.T) {
	b := headless.New()
	matrices := renderer.NewMatrices()
	r := NewRenderer(nil)

	atLimit := meshNode(b, "at", nil)
	atLimit.Position = mgl32.Translate3D(10, 0, 0)
	atLimit.MaxDist = 10
	assert.Len(t, r.BuildRenderList(atLimit, mgl32.Ident4(), matrices).Opaque, 1)

	beyond := meshNode(b, "beyond", nil)
	beyond.Position = mgl32.Translate3D(10.5, 0, 0)
	beyond.MaxDist = 10
	child := meshNode(b, "child", nil)
	beyond.AddChild(child)
	assert.Zero(t, r.BuildRenderList(beyond, mgl32.Ident4(), matrices).Len())
}

func TestBuildRenderListFirstVisibleOnly(t *testing.T) {
	b := headless.New()
	lod := NewNode("lod")
	lod.FirstVisOnly = true

	a := meshNode(b, "A", nil)
	a.Visible = false
	for _, child := range []*Node{a, meshNode(b, "B", nil), meshNode(b, "C", nil)} {
		lod.AddChild(child)
		child.Release()
	}

	list := NewRenderer(nil).BuildRenderList(lod, mgl32.Ident4(), renderer.NewMatrices())

	assert.Equal(t, []string{"B"}, entryNames(list.Opaque))
	assert.Empty(t, list.Alpha)
}

func TestBuildRenderListFirstVisibleOnlySkipsOutOfRange(t *testing.T) {
	b := headless.New()
	lod := NewNode("lod")
	lod.FirstVisOnly = true

	high := meshNode(b, "high", nil)
	high.MaxDist = 5
	high.Position = mgl32.Translate3D(0, 0, 20)
	low := meshNode(b, "low", nil)
	low.Position = mgl32.Translate3D(0, 0, 20)
	lod.AddChild(high)
	lod.AddChild(low)

	list := NewRenderer(nil).BuildRenderList(lod, mgl32.Ident4(), renderer.NewMatrices())
	assert.Equal(t, []string{"low"}, entryNames(list.Opaque))
}

func TestBuildRenderListHiddenMeshStopsDescent(t *testing.T) {
	b := headless.New()
	parent := meshNode(b, "parent", nil)
	parent.Mesh().Visible = false
	parent.AddChild(meshNode(b, "child", nil))

	list := NewRenderer(nil).BuildRenderList(parent, mgl32.Ident4(), renderer.NewMatrices())
	assert.Zero(t, list.Len())

	var nilNode *Node
	assert.Zero(t, NewRenderer(nil).BuildRenderList(nilNode, mgl32.Ident4(), renderer.NewMatrices()).Len())
}

func TestBuildRenderListBoundsCulling(t *testing.T) {
	b := headless.New()
	group := NewNode("group")
	group.AddChild(meshNode(b, "inside", nil))
	group.MakeBounds(b, nil)
	require.NotNil(t, group.Bounds())

	matrices := renderer.NewMatrices()
	matrices.SetProjection(mgl32.Ortho(-5, 5, -5, 5, -5, 5))
	r := NewRenderer(nil)

	assert.Equal(t, []string{"inside"}, entryNames(r.BuildRenderList(group, mgl32.Ident4(), matrices).Opaque))

	r.ShowBounds = true
	list := r.BuildRenderList(group, mgl32.Ident4(), matrices)
	assert.Equal(t, []string{"group_bounds"}, entryNames(list.Alpha))

	// off screen: nothing drawn, but the node still counts as visible for LOD
	lod := NewNode("lod")
	lod.FirstVisOnly = true
	lod.AddChild(group)
	lod.AddChild(meshNode(b, "fallback", nil))
	group.Position = mgl32.Translate3D(100, 0, 0)
	list = r.BuildRenderList(lod, mgl32.Ident4(), matrices)
	assert.Zero(t, list.Len())
}

func TestMakeBoundsCoversSubtree(t *testing.T) {
	b := headless.New()
	root := NewNode("root")
	left := meshNode(b, "left", nil)
	left.Position = mgl32.Translate3D(-3, 0, 0)
	right := meshNode(b, "right", nil)
	right.Position = mgl32.Translate3D(3, 1, 0)
	root.AddChild(left)
	root.AddChild(right)

	root.MakeBounds(b, nil)

	bounds := root.Bounds()
	require.NotNil(t, bounds)
	assert.Len(t, bounds.Vertices, 8)
	assert.Equal(t, mgl32.Vec3{-3.5, -0.5, -0.5}, bounds.Vertices[0].Position)
	assert.Equal(t, mgl32.Vec3{3.5, 1.5, 0.5}, bounds.Vertices[7].Position)
	assert.Equal(t, 1, bounds.RetainCount())

	empty := NewNode("empty")
	empty.MakeBounds(b, nil)
	assert.Nil(t, empty.Bounds())
}

func TestNodeReleaseCascades(t *testing.T) {
	b := headless.New()
	mesh := resources.NewCubeMesh(b, "cube", 1)
	child := NewNode("child")

	node := NewNode("node")
	node.SetMesh(mesh)
	node.AddChild(child)
	node.Retain()
	assert.Equal(t, 2, mesh.RetainCount())
	assert.Equal(t, 2, child.RetainCount())

	node.Release()
	assert.Equal(t, 1, node.RetainCount())
	assert.Equal(t, 2, mesh.RetainCount())
	assert.Equal(t, 2, child.RetainCount())

	node.Release()
	assert.Equal(t, 0, node.RetainCount())
	assert.Equal(t, 1, mesh.RetainCount())
	assert.Equal(t, 1, child.RetainCount())
	assert.Nil(t, node.Mesh())
	assert.Empty(t, node.Children())
}

func TestNewCopyNode(t *testing.T) {
	b := headless.New()
	src := meshNode(b, "src", nil)
	src.MaxDist = 42
	src.FirstVisOnly = true
	child := meshNode(b, "child", nil)
	src.AddChild(child)

	shallow := NewCopyNode("shallow", src, false)
	assert.Equal(t, "shallow", shallow.Name)
	assert.NotEqual(t, src.ID, shallow.ID)
	assert.Equal(t, float32(42), shallow.MaxDist)
	assert.True(t, shallow.FirstVisOnly)
	assert.Same(t, src.Mesh(), shallow.Mesh())
	assert.Same(t, child, shallow.Children()[0])
	assert.Equal(t, 3, child.RetainCount())

	deep := NewCopyNode("deep", src, true)
	require.Len(t, deep.Children(), 1)
	assert.NotSame(t, child, deep.Children()[0])
	assert.Same(t, child.Mesh(), deep.Children()[0].Mesh())
	assert.Equal(t, 1, deep.Children()[0].RetainCount())

	assert.Nil(t, NewCopyNode("nothing", nil, true))
}

func TestAddChildren(t *testing.T) {
	b := headless.New()
	a := resources.NewCubeMesh(b, "a", 1)
	a.DefaultModel = mgl32.Translate3D(0, 5, 0)
	c := resources.NewPlaneMesh(b, "c", 2, 2)

	root := NewNode("root")
	root.AddChildren([]*resources.Mesh{a, c})

	require.Len(t, root.Children(), 2)
	assert.Equal(t, "a", root.Children()[0].Name)
	assert.Equal(t, a.DefaultModel, root.Children()[0].Position)
	assert.Same(t, c, root.Children()[1].Mesh())
	assert.Equal(t, 1, root.Children()[0].RetainCount())
	assert.Equal(t, 2, a.RetainCount())
}

func TestRenderDrawsOpaqueBeforeAlpha(t *testing.T) {
	b := headless.New()
	ctx := renderer.NewContext(b)
	shader := compiledShader(t, b, "flat")

	solid := resources.NewMaterial("solid")
	solid.SetShader(shader)
	glass := resources.NewMaterial("glass")
	glass.SetShader(shader)
	glass.Alpha = 0.25

	root := NewNode("root")
	root.AddChild(meshNode(b, "window", glass))
	root.AddChild(meshNode(b, "wall", solid))
	root.AddChild(meshNode(b, "plain", nil))

	r := NewRenderer(solid)
	r.Render(ctx, root, renderer.NewMatrices(), nil)

	require.Len(t, b.Draws, 3)
	assert.False(t, b.Draws[0].Blend)
	assert.True(t, b.Draws[0].DepthTest)
	assert.False(t, b.Draws[1].Blend)
	assert.True(t, b.Draws[2].Blend)
	assert.Equal(t, metadata.BlendSrcAlpha, b.BlendSrc)
	assert.Equal(t, metadata.BlendOneMinusSrcAlpha, b.BlendDst)
}

func TestRenderHidesMeshWhenSelectFails(t *testing.T) {
	b := headless.New()
	ctx := renderer.NewContext(b)
	broken := resources.NewMaterial("broken")

	root := meshNode(b, "broken", broken)
	r := NewRenderer(nil)

	r.Render(ctx, root, renderer.NewMatrices(), nil)
	assert.False(t, root.Mesh().Visible)
	assert.Empty(t, b.Draws)

	// skipped from now on
	assert.Zero(t, r.BuildRenderList(root, mgl32.Ident4(), renderer.NewMatrices()).Len())
}

func TestRenderShadowMapDrawsOpaqueCasters(t *testing.T) {
	b := headless.New()
	ctx := renderer.NewContext(b)
	shadow := compiledShader(t, b, "shadow")

	caster := resources.NewMaterial("caster")
	caster.SetShadowShader(shadow)
	glass := resources.NewMaterial("glass")
	glass.SetShadowShader(shadow)
	glass.Alpha = 0.5
	receiver := resources.NewMaterial("receiver")

	root := NewNode("root")
	root.AddChild(meshNode(b, "caster", caster))
	root.AddChild(meshNode(b, "glass", glass))
	root.AddChild(meshNode(b, "receiver", receiver))
	root.AddChild(meshNode(b, "plain", nil))

	root.RenderShadowMap(ctx, renderer.NewMatrices())

	require.Len(t, b.Draws, 1)
	assert.Equal(t, shadow.Program, b.Draws[0].Program)
}

func TestNodeLogsCarryID(t *testing.T) {
	var out bytes.Buffer
	core.SetLogOutput(&out)
	defer core.SetLogOutput(nil)

	b := headless.New()
	empty := NewNode("empty")
	empty.MakeBounds(b, nil)
	assert.Nil(t, empty.Bounds())
	assert.Contains(t, out.String(), empty.ID.String())

	other := NewNode("other")
	assert.NotEqual(t, empty.ID, other.ID)
	other.Release()
	empty.Release()
}
