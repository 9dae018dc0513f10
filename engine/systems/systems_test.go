package systems

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"sync"
	"sync/atomic"
	"testing"
	"testing/fstest"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/umbra/engine/assets"
	"github.com/spaghettifunk/umbra/engine/lighting"
	"github.com/spaghettifunk/umbra/engine/renderer"
	"github.com/spaghettifunk/umbra/engine/renderer/components"
	"github.com/spaghettifunk/umbra/engine/renderer/headless"
	"github.com/spaghettifunk/umbra/engine/renderer/metadata"
	"github.com/spaghettifunk/umbra/engine/resources"
	"github.com/spaghettifunk/umbra/engine/scene"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const lightPassFS = `uniform sampler2D worldPos;
uniform sampler2D normal;
uniform sampler2D ambient;
uniform sampler2D diffuse;
uniform sampler2D specular;
uniform mat4 projection;
uniform vec3 lightPos;
uniform vec3 lightCol;
uniform float radius;
uniform float attConstant;
uniform float attLinear;
uniform float attExp;
uniform sampler2DShadow shadowMap[3];
uniform mat4 shadowMat[3];
void main() {}
`

const demoMTL = `newmtl wood
Kd 0.5 0.25 0
map_Kd wood.png
newmtl glass
d 0.5
`

func encodePNG(t *testing.T, w, h int, c color.RGBA) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func testFS(t *testing.T) fstest.MapFS {
	t.Helper()
	return fstest.MapFS{
		"shaders/common.glsl":      {Data: []byte("uniform mat4 model;\nuniform mat4 view;\n")},
		"shaders/standard.vs":      {Data: []byte("#include \"common.glsl\"\nuniform mat4 mvp;\nuniform mat4 projection;\nvoid main() {}\n")},
		"shaders/standard.fs":      {Data: []byte("uniform float alpha;\nuniform vec3 matColor;\nuniform sampler2D textureMap;\n#ifdef tint\nuniform vec3 tint;\n#endif\nvoid main() {}\n")},
		"shaders/shadow.vs":        {Data: []byte("uniform mat4 mvp;\nvoid main() {}\n")},
		"shaders/shadow.fs":        {Data: []byte("void main() {}\n")},
		"shaders/geomainpass.vs":   {Data: []byte("void main() {}\n")},
		"shaders/geomainpass.fs":   {Data: []byte(lightPassFS)},
		"shaders/geopointlight.vs": {Data: []byte("void main() {}\n")},
		"shaders/geopointlight.fs": {Data: []byte(lightPassFS)},
		"shaders/broken.vs":        {Data: []byte("void main() {}\n")},
		"shaders/broken.fs":        {Data: []byte("")},
		"textures/wood.png":        {Data: encodePNG(t, 4, 2, color.RGBA{128, 64, 0, 255})},
		"textures/stone.png":       {Data: encodePNG(t, 2, 2, color.RGBA{90, 90, 90, 255})},
		"textures/bad.png":         {Data: []byte("not a png")},
		"materials/demo.mtl":       {Data: []byte(demoMTL)},
	}
}

func newAssets(t *testing.T, fsys fstest.MapFS) *assets.AssetManager {
	t.Helper()
	am, err := assets.NewAssetManager(fsys)
	require.NoError(t, err)
	t.Cleanup(func() { _ = am.Shutdown() })
	return am
}

func newTextureSystem(t *testing.T, fsys fstest.MapFS, js *JobSystem) (*headless.Backend, *TextureSystem) {
	t.Helper()
	b := headless.New()
	ts, err := NewTextureSystem(&TextureSystemConfig{MaxTextureCount: 8, BasePath: "textures"}, js, newAssets(t, fsys), b)
	require.NoError(t, err)
	require.NoError(t, ts.Initialize())
	return b, ts
}

func newShaderSystem(t *testing.T, fsys fstest.MapFS) (*headless.Backend, *ShaderSystem) {
	t.Helper()
	b := headless.New()
	ss, err := NewShaderSystem(&ShaderSystemConfig{MaxShaderCount: 16, BasePath: "shaders"}, newAssets(t, fsys), b)
	require.NoError(t, err)
	return b, ss
}

func TestNewSystemsRejectZeroCapacity(t *testing.T) {
	_, err := NewTextureSystem(&TextureSystemConfig{}, nil, nil, headless.New())
	assert.Error(t, err)
	_, err = NewShaderSystem(&ShaderSystemConfig{}, nil, headless.New())
	assert.Error(t, err)
	_, err = NewMaterialSystem(&MaterialSystemConfig{}, nil, nil, nil)
	assert.Error(t, err)
	_, err = NewCameraSystem(&CameraSystemConfig{})
	assert.Error(t, err)
	_, err = NewRendererSystem(&RendererSystemConfig{}, nil)
	assert.Error(t, err)
}

func TestTextureSystemDefaultTexture(t *testing.T) {
	b, ts := newTextureSystem(t, testFS(t), nil)

	def := ts.Acquire(DefaultTextureName, metadata.TextureFilterModeLinear, metadata.TextureWrapClampToEdge)
	require.NotNil(t, def)
	assert.Same(t, ts.DefaultTexture, def)
	assert.Equal(t, int32(1), def.Width)
	assert.Equal(t, 0, ts.Count())

	ts.Release(DefaultTextureName, metadata.TextureFilterModeLinear, metadata.TextureWrapClampToEdge)
	require.NoError(t, ts.Shutdown())
	assert.Nil(t, ts.DefaultTexture)
	assert.Equal(t, 0, b.LiveObjects())
}

func TestTextureSystemCachesBySampling(t *testing.T) {
	b, ts := newTextureSystem(t, testFS(t), nil)

	wood := ts.Acquire("wood.png", metadata.TextureFilterModeLinear, metadata.TextureWrapRepeat)
	require.NotNil(t, wood)
	assert.Equal(t, int32(4), wood.Width)
	assert.Equal(t, int32(2), wood.Height)
	assert.Same(t, wood, ts.Acquire("wood.png", metadata.TextureFilterModeLinear, metadata.TextureWrapRepeat))
	assert.Equal(t, 1, ts.Count())

	clamped := ts.Acquire("wood.png", metadata.TextureFilterModeLinear, metadata.TextureWrapClampToEdge)
	require.NotNil(t, clamped)
	assert.NotSame(t, wood, clamped)
	assert.Equal(t, 2, ts.Count())

	mip := ts.Acquire("wood.png", metadata.TextureFilterModeLinearMipmapLinear, metadata.TextureWrapRepeat)
	require.NotNil(t, mip)
	assert.True(t, b.Textures[mip.Handle()].Mipmapped)
	assert.False(t, b.Textures[wood.Handle()].Mipmapped)

	assert.Nil(t, ts.Acquire("missing.png", metadata.TextureFilterModeLinear, metadata.TextureWrapRepeat))
	assert.Nil(t, ts.Acquire("bad.png", metadata.TextureFilterModeLinear, metadata.TextureWrapRepeat))
	assert.Equal(t, 3, ts.Count())
}

func TestTextureSystemCapacity(t *testing.T) {
	b := headless.New()
	ts, err := NewTextureSystem(&TextureSystemConfig{MaxTextureCount: 1, BasePath: "textures"}, nil, newAssets(t, testFS(t)), b)
	require.NoError(t, err)

	require.NotNil(t, ts.Acquire("wood.png", metadata.TextureFilterModeLinear, metadata.TextureWrapRepeat))
	assert.Nil(t, ts.Acquire("stone.png", metadata.TextureFilterModeLinear, metadata.TextureWrapRepeat))
	assert.Equal(t, 1, ts.Count())
}

func TestTextureSystemReleaseKeepsRetained(t *testing.T) {
	b, ts := newTextureSystem(t, testFS(t), nil)

	wood := ts.Acquire("wood.png", metadata.TextureFilterModeLinear, metadata.TextureWrapRepeat)
	require.NotNil(t, wood)
	wood.Retain()
	stone := ts.Acquire("stone.png", metadata.TextureFilterModeLinear, metadata.TextureWrapRepeat)
	require.NotNil(t, stone)
	stoneHandle := stone.Handle()

	ts.Release("wood.png", metadata.TextureFilterModeLinear, metadata.TextureWrapRepeat)
	assert.Equal(t, 1, ts.Count())
	assert.Contains(t, b.Textures, wood.Handle())
	assert.Equal(t, 1, wood.RetainCount())

	// releasing something that isn't cached only warns
	ts.Release("wood.png", metadata.TextureFilterModeLinear, metadata.TextureWrapRepeat)

	ts.ReleaseAll()
	assert.Equal(t, 0, ts.Count())
	assert.NotContains(t, b.Textures, stoneHandle)

	// a fresh acquire builds a new texture
	again := ts.Acquire("wood.png", metadata.TextureFilterModeLinear, metadata.TextureWrapRepeat)
	require.NotNil(t, again)
	assert.NotSame(t, wood, again)

	wood.Release()
	require.NoError(t, ts.Shutdown())
	assert.Equal(t, 0, b.LiveObjects())
}

func TestTextureSystemPreload(t *testing.T) {
	js, err := NewJobSystem(2, 4)
	require.NoError(t, err)
	defer js.Shutdown()

	b, ts := newTextureSystem(t, testFS(t), js)
	added := ts.Preload([]string{"wood.png", "stone.png", "missing.png", "wood.png", DefaultTextureName},
		metadata.TextureFilterModeLinear, metadata.TextureWrapRepeat)
	assert.Equal(t, 2, added)
	assert.Equal(t, 2, ts.Count())

	stone := ts.Acquire("stone.png", metadata.TextureFilterModeLinear, metadata.TextureWrapRepeat)
	require.NotNil(t, stone)
	assert.Equal(t, 1, b.Textures[stone.Handle()].Uploads)
	assert.Equal(t, 2, ts.Count())

	// already cached
	assert.Equal(t, 0, ts.Preload([]string{"stone.png"}, metadata.TextureFilterModeLinear, metadata.TextureWrapRepeat))
}

func TestTextureSystemPreloadWithoutJobs(t *testing.T) {
	_, ts := newTextureSystem(t, testFS(t), nil)
	added := ts.Preload([]string{"wood.png", "bad.png", "wood.png"}, metadata.TextureFilterModeNearest, metadata.TextureWrapRepeat)
	assert.Equal(t, 1, added)
	assert.Equal(t, 1, ts.Count())
}

func TestTextureSystemReload(t *testing.T) {
	fsys := testFS(t)
	b, ts := newTextureSystem(t, fsys, nil)

	repeat := ts.Acquire("wood.png", metadata.TextureFilterModeLinear, metadata.TextureWrapRepeat)
	clamp := ts.Acquire("wood.png", metadata.TextureFilterModeLinear, metadata.TextureWrapClampToEdge)
	stone := ts.Acquire("stone.png", metadata.TextureFilterModeLinear, metadata.TextureWrapRepeat)
	require.NotNil(t, repeat)
	require.NotNil(t, clamp)
	require.NotNil(t, stone)

	fsys["textures/wood.png"] = &fstest.MapFile{Data: encodePNG(t, 8, 8, color.RGBA{255, 0, 0, 255})}
	assert.Equal(t, 2, ts.Reload("textures/wood.png"))
	assert.Equal(t, int32(8), repeat.Width)
	assert.Equal(t, int32(8), clamp.Height)
	assert.Equal(t, 2, b.Textures[repeat.Handle()].Uploads)
	assert.Equal(t, 1, b.Textures[stone.Handle()].Uploads)

	assert.Equal(t, 0, ts.Reload("textures/unused.png"))

	fsys["textures/wood.png"] = &fstest.MapFile{Data: []byte("garbage")}
	assert.Equal(t, 0, ts.Reload("textures/wood.png"))
	assert.Equal(t, int32(8), repeat.Width)
}

func TestShaderSystemLoadProgram(t *testing.T) {
	b, ss := newShaderSystem(t, testFS(t))

	program, err := ss.LoadProgram("standard", stagesFor("standard"), nil)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, b.UniformLocation(program, "model"), int32(0))
	assert.GreaterOrEqual(t, b.UniformLocation(program, "mvp"), int32(0))
	assert.Equal(t, metadata.UniformNotFound, b.UniformLocation(program, "tint"))
	// only the program is left
	assert.Equal(t, 1, b.LiveObjects())

	_, err = ss.LoadProgram("broken", stagesFor("broken"), nil)
	assert.Error(t, err)
	assert.Equal(t, 1, b.LiveObjects())

	_, err = ss.LoadProgram("missing", stagesFor("missing"), nil)
	assert.Error(t, err)

	_, err = ss.LoadProgram("empty", metadata.ShaderStages{}, nil)
	assert.Error(t, err)
}

func TestShaderSystemAcquireCachesByDefines(t *testing.T) {
	b, ss := newShaderSystem(t, testFS(t))

	plain := ss.Acquire("standard", stagesFor("standard"), nil)
	require.NotNil(t, plain)
	require.NotEqual(t, metadata.NoShader, plain.Program)
	assert.Same(t, plain, ss.Acquire("standard", stagesFor("standard"), nil))
	assert.GreaterOrEqual(t, plain.Location(resources.UniformModel), int32(0))
	assert.Equal(t, metadata.UniformNotFound, plain.Location(resources.UniformLightPos))

	tinted := ss.Acquire("standard", stagesFor("standard"), []string{"tint"})
	require.NotNil(t, tinted)
	assert.NotSame(t, plain, tinted)
	assert.GreaterOrEqual(t, b.UniformLocation(tinted.Program, "tint"), int32(0))
	assert.Len(t, ss.Lookup, 2)

	require.NoError(t, ss.Shutdown())
	assert.Empty(t, ss.Lookup)
	assert.Equal(t, 0, b.LiveObjects())
}

func TestShaderSystemAcquireFailureHasNoProgram(t *testing.T) {
	b, ss := newShaderSystem(t, testFS(t))

	broken := ss.Acquire("broken", stagesFor("broken"), nil)
	require.NotNil(t, broken)
	assert.Equal(t, metadata.NoShader, broken.Program)
	assert.Equal(t, 0, b.LiveObjects())

	m := resources.NewMaterial("m")
	m.SetShader(broken)
	assert.False(t, m.Select(renderer.NewContext(b), renderer.NewMatrices(), nil))
	m.Release()
}

func TestShaderSystemCapacity(t *testing.T) {
	b := headless.New()
	ss, err := NewShaderSystem(&ShaderSystemConfig{MaxShaderCount: 1, BasePath: "shaders"}, newAssets(t, testFS(t)), b)
	require.NoError(t, err)

	require.NotNil(t, ss.Acquire("standard", stagesFor("standard"), nil))
	assert.Nil(t, ss.Acquire("shadow", stagesFor("shadow"), nil))
}

func TestShaderSystemReload(t *testing.T) {
	fsys := testFS(t)
	b, ss := newShaderSystem(t, fsys)

	standard := ss.Acquire("standard", stagesFor("standard"), nil)
	shadow := ss.Acquire("shadow", stagesFor("shadow"), nil)
	before := standard.Program
	shadowBefore := shadow.Program

	fsys["shaders/standard.fs"] = &fstest.MapFile{Data: []byte("uniform float alpha;\nuniform float shininess;\nvoid main() {}\n")}
	assert.Equal(t, 1, ss.Reload("shaders/standard.fs"))
	assert.NotEqual(t, before, standard.Program)
	assert.NotContains(t, b.Programs, before)
	assert.GreaterOrEqual(t, standard.Location(resources.UniformShininess), int32(0))
	assert.Equal(t, shadowBefore, shadow.Program)

	// includes reload everything
	assert.Equal(t, 2, ss.Reload("shaders/common.glsl"))

	// a broken edit keeps the last good program
	good := standard.Program
	fsys["shaders/standard.fs"] = &fstest.MapFile{Data: []byte("")}
	assert.Equal(t, 0, ss.Reload("shaders/standard.fs"))
	assert.Equal(t, good, standard.Program)
	assert.Contains(t, b.Programs, good)
}

func newMaterialSystem(t *testing.T, fsys fstest.MapFS) (*headless.Backend, *ShaderSystem, *TextureSystem, *MaterialSystem) {
	t.Helper()
	b := headless.New()
	am := newAssets(t, fsys)
	ss, err := NewShaderSystem(&ShaderSystemConfig{MaxShaderCount: 16, BasePath: "shaders"}, am, b)
	require.NoError(t, err)
	ts, err := NewTextureSystem(&TextureSystemConfig{MaxTextureCount: 16, BasePath: "textures"}, nil, am, b)
	require.NoError(t, err)
	require.NoError(t, ts.Initialize())
	ms, err := NewMaterialSystem(&MaterialSystemConfig{MaxMaterialCount: 8, DefaultShader: "standard", ShadowShader: "shadow"}, ss, ts, am)
	require.NoError(t, err)
	require.NoError(t, ms.Initialize())
	return b, ss, ts, ms
}

func TestMaterialSystemDefaultMaterial(t *testing.T) {
	_, ss, _, ms := newMaterialSystem(t, testFS(t))

	def := ms.Get(DefaultMaterialName)
	require.NotNil(t, def)
	assert.Same(t, ms.DefaultMaterial, def)
	assert.Same(t, ss.Acquire("standard", stagesFor("standard"), nil), def.Shader())
	assert.Same(t, ss.Acquire("shadow", stagesFor("shadow"), nil), def.ShadowShader())
	// the cache and the material
	assert.Equal(t, 2, def.Shader().RetainCount())
}

func TestMaterialSystemInitializeNeedsShader(t *testing.T) {
	ms, err := NewMaterialSystem(&MaterialSystemConfig{MaxMaterialCount: 1}, nil, nil, nil)
	require.NoError(t, err)
	assert.Error(t, ms.Initialize())
}

func TestMaterialSystemLoadLibrary(t *testing.T) {
	_, ss, ts, ms := newMaterialSystem(t, testFS(t))

	list, err := ms.LoadLibrary("materials/demo.mtl")
	require.NoError(t, err)
	require.Len(t, list, 2)

	wood := ms.Get("wood")
	require.NotNil(t, wood)
	assert.Equal(t, mgl32.Vec3{0.5, 0.25, 0}, wood.MatColor)
	assert.Same(t, ts.Acquire("wood.png", metadata.TextureFilterModeLinear, metadata.TextureWrapRepeat), wood.DiffuseMap())
	assert.Same(t, ss.Acquire("standard", stagesFor("standard"), nil), wood.Shader())

	glass := ms.Get("glass")
	require.NotNil(t, glass)
	assert.InDelta(t, 0.5, glass.Alpha, 1e-6)
	assert.Nil(t, glass.DiffuseMap())

	assert.Nil(t, ms.Get("velvet"))

	again, err := ms.LoadLibrary("materials/demo.mtl")
	require.NoError(t, err)
	assert.Same(t, list[0], again[0])

	_, err = ms.LoadLibrary("materials/none.mtl")
	assert.Error(t, err)
	_, err = ms.LoadLibrary("shaders/standard.vs")
	assert.Error(t, err)
}

func TestMaterialSystemCapacity(t *testing.T) {
	b := headless.New()
	am := newAssets(t, testFS(t))
	ss, err := NewShaderSystem(&ShaderSystemConfig{MaxShaderCount: 4, BasePath: "shaders"}, am, b)
	require.NoError(t, err)
	ts, err := NewTextureSystem(&TextureSystemConfig{MaxTextureCount: 4, BasePath: "textures"}, nil, am, b)
	require.NoError(t, err)
	ms, err := NewMaterialSystem(&MaterialSystemConfig{MaxMaterialCount: 1, DefaultShader: "standard"}, ss, ts, am)
	require.NoError(t, err)

	_, err = ms.LoadLibrary("materials/demo.mtl")
	assert.Error(t, err)
	assert.Nil(t, ms.Get("wood"))
}

func TestMaterialSystemReloadInPlace(t *testing.T) {
	fsys := testFS(t)
	_, _, _, ms := newMaterialSystem(t, fsys)

	_, err := ms.LoadLibrary("materials/demo.mtl")
	require.NoError(t, err)
	wood := ms.Get("wood")
	require.NotNil(t, wood)
	holder := resources.NewMesh(headless.New(), "plank")
	holder.SetMaterial(wood)

	fsys["materials/demo.mtl"] = &fstest.MapFile{Data: []byte("newmtl wood\nKd 1 0 0\nnewmtl metal\nNs 200\n")}
	assert.True(t, ms.Reload("materials/demo.mtl"))

	assert.Same(t, wood, holder.Material())
	assert.Equal(t, mgl32.Vec3{1, 0, 0}, wood.MatColor)
	assert.Nil(t, wood.DiffuseMap())
	require.NotNil(t, wood.Shader())

	metal := ms.Get("metal")
	require.NotNil(t, metal)
	assert.Equal(t, float32(200), metal.Shininess)
	assert.Equal(t, 1, metal.RetainCount())
	assert.NotNil(t, ms.Get("glass"))

	assert.False(t, ms.Reload("materials/other.mtl"))
	holder.Release()
}

func TestJobSystemRunsEveryJob(t *testing.T) {
	js, err := NewJobSystem(3, 2)
	require.NoError(t, err)

	var sum int64
	var failures int64
	var wg sync.WaitGroup
	for i := 1; i <= 10; i++ {
		wg.Add(1)
		js.Submit(metadata.JobTask{
			InputParams: i,
			OnStart: func(params interface{}, out chan<- interface{}) error {
				if params.(int)%5 == 0 {
					return assert.AnError
				}
				out <- params.(int) * 2
				return nil
			},
			OnComplete: func(r <-chan interface{}) {
				atomic.AddInt64(&sum, int64((<-r).(int)))
			},
			OnFailure: func(error) {
				atomic.AddInt64(&failures, 1)
			},
			OnCompletionCallback: wg.Done,
		})
	}
	wg.Wait()
	require.NoError(t, js.Shutdown())
	// a second shutdown is harmless
	require.NoError(t, js.Shutdown())

	assert.Equal(t, int64(2*(55-5-10)), sum)
	assert.Equal(t, int64(2), failures)
}

func TestNewJobSystemValidation(t *testing.T) {
	_, err := NewJobSystem(0, 1)
	assert.ErrorIs(t, err, ErrNoWorkers)
	_, err = NewJobSystem(1, -1)
	assert.ErrorIs(t, err, ErrNegativeChannelSize)
}

func TestCameraSystemRefCounts(t *testing.T) {
	cs, err := NewCameraSystem(&CameraSystemConfig{MaxCameraCount: 1})
	require.NoError(t, err)

	def, err := cs.Acquire(components.DefaultCameraName)
	require.NoError(t, err)
	assert.Same(t, cs.GetDefault(), def)
	cs.Release(components.DefaultCameraName)

	a, err := cs.Acquire("orbit")
	require.NoError(t, err)
	b, err := cs.Acquire("orbit")
	require.NoError(t, err)
	assert.Same(t, a, b)

	_, err = cs.Acquire("chase")
	assert.Error(t, err)

	cs.Release("orbit")
	c, err := cs.Acquire("orbit")
	require.NoError(t, err)
	assert.Same(t, a, c)

	cs.Release("orbit")
	cs.Release("orbit")
	fresh, err := cs.Acquire("orbit")
	require.NoError(t, err)
	assert.NotSame(t, a, fresh)

	require.NoError(t, cs.Shutdown())
}

func TestCameraLooksAlongY(t *testing.T) {
	c := components.NewCamera()
	forward, right := c.Forward(), c.Right()
	assert.InDeltaSlice(t, []float32{0, 1, 0}, forward[:], 1e-5)
	assert.InDeltaSlice(t, []float32{1, 0, 0}, right[:], 1e-5)

	c.MoveForward(2)
	c.MoveUp(1)
	assert.InDeltaSlice(t, []float32{0, 2, 1}, c.Position[:], 1e-5)

	// a point in front of the camera ends up on the -Z axis of view space
	p := c.View().Mul4x1(mgl32.Vec4{0, 7, 1, 1})
	assert.InDeltaSlice(t, []float32{0, 0, -5, 1}, p[:], 1e-4)

	c.Pitch(10)
	assert.InDelta(t, 1.5533, c.EulerRotation.X(), 1e-3)
}

func newManager(t *testing.T, fsys fstest.MapFS, backend *headless.Backend) *SystemManager {
	t.Helper()
	sm, err := NewSystemManager(&SystemManagerConfig{
		JobWorkers: 2,
		Camera:     CameraSystemConfig{MaxCameraCount: 4},
		Renderer: RendererSystemConfig{
			Width:            320,
			Height:           240,
			ShadowResolution: 256,
			ShadowCascades:   []float32{10, 50},
		},
		Texture:  TextureSystemConfig{MaxTextureCount: 16, BasePath: "textures"},
		Shader:   ShaderSystemConfig{MaxShaderCount: 16, BasePath: "shaders"},
		Material: MaterialSystemConfig{MaxMaterialCount: 16, DefaultShader: "standard", ShadowShader: "shadow"},
	}, newAssets(t, fsys), backend)
	require.NoError(t, err)
	require.NoError(t, sm.Initialize("test"))
	return sm
}

func demoPacket(t *testing.T, b *headless.Backend, sm *SystemManager) *RenderPacket {
	t.Helper()
	_, err := sm.MaterialSystem().LoadLibrary("materials/demo.mtl")
	require.NoError(t, err)

	root := scene.NewNode("root")
	for _, name := range []string{"wood", "glass"} {
		mesh := resources.NewCubeMesh(b, name, 1)
		mesh.SetMaterial(sm.MaterialSystem().Get(name))
		child := scene.NewNode(name)
		child.SetMesh(mesh)
		mesh.Release()
		root.AddChild(child)
		child.Release()
	}

	sun := lighting.NewLightSource(b, "sun", mgl32.Vec3{1, 1, 2})
	lamp := lighting.NewLightSource(b, "lamp", mgl32.Vec3{0, 5, 0})
	return &RenderPacket{
		DeltaTime:   1.0 / 60.0,
		Scene:       root,
		View:        mgl32.LookAtV(mgl32.Vec3{0, -10, 0}, mgl32.Vec3{}, mgl32.Vec3{0, 0, 1}),
		Projection:  mgl32.Perspective(mgl32.DegToRad(45), 4.0/3.0, 0.1, 1000),
		Sun:         sun,
		PointLights: []*lighting.LightSource{lamp},
	}
}

func releasePacket(p *RenderPacket) {
	p.Scene.Release()
	p.Sun.Release()
	for _, l := range p.PointLights {
		l.Release()
	}
}

func callIndex(calls []string, call string, from int) int {
	for i := from; i < len(calls); i++ {
		if calls[i] == call {
			return i
		}
	}
	return -1
}

func TestDrawFrameDeferredPipeline(t *testing.T) {
	b := headless.New()
	sm := newManager(t, testFS(t), b)
	packet := demoPacket(t, b, sm)
	rs := sm.RendererSystem()
	gbuffer := rs.GBuffer()
	require.NotNil(t, gbuffer)

	require.NoError(t, rs.DrawFrame(packet))
	assert.Equal(t, uint64(1), rs.FrameNumber)
	assert.Equal(t, 1, b.Frames)
	assert.Equal(t, 2, rs.LastRenderListSize)

	// both cascades rendered, in order, before anything reaches the gbuffer
	for i := 0; i < 2; i++ {
		require.NotNil(t, packet.Sun.ShadowMap(i))
		assert.False(t, packet.Sun.ShadowDirty(i))
	}
	assert.Nil(t, packet.Sun.ShadowMap(2))

	var shadowDraws, geometryDraws, mainDraws, lightDraws int
	lastPhase := 0
	for _, d := range b.Draws {
		phase := 0
		switch {
		case d.Framebuffer == packet.Sun.ShadowMap(0).Framebuffer() || d.Framebuffer == packet.Sun.ShadowMap(1).Framebuffer():
			phase = 1
			shadowDraws++
		case d.Framebuffer == gbuffer.Framebuffer():
			phase = 2
			geometryDraws++
		case d.Mode == metadata.DrawModeTriangles && d.Count == 6:
			phase = 3
			mainDraws++
			assert.False(t, d.Blend)
			assert.False(t, d.DepthTest)
		case d.Mode == metadata.DrawModeTriangleFan:
			phase = 4
			lightDraws++
			assert.True(t, d.Blend)
			assert.Equal(t, int32(38), d.Count)
		}
		require.NotZero(t, phase, "unexpected draw %+v", d)
		assert.GreaterOrEqual(t, phase, lastPhase)
		lastPhase = phase
	}
	// only the opaque wood cube casts into each cascade
	assert.Equal(t, 2, shadowDraws)
	assert.Equal(t, 2, geometryDraws)
	assert.Equal(t, 1, mainDraws)
	assert.Equal(t, 1, lightDraws)

	assert.Equal(t, metadata.WindingCounterClockwise, b.FrontFaceWinding)
	assert.Equal(t, metadata.FaceCullModeBack, b.CullMode)
	assert.True(t, b.DepthWrite)
	assert.Equal(t, metadata.FramebufferHandle(0), b.CurrentFramebuffer)
	assert.Equal(t, len(b.Draws), rs.LastStats.DrawCalls)

	// the gbuffer is cleared with depth before the geometry pass
	bind := callIndex(b.Calls, fmt.Sprintf("FramebufferBind %d", gbuffer.Framebuffer()), 0)
	require.GreaterOrEqual(t, bind, 0)
	assert.GreaterOrEqual(t, callIndex(b.Calls, "Clear 3", bind), 0)

	releasePacket(packet)
	require.NoError(t, sm.Shutdown())
	assert.Equal(t, 0, b.LiveObjects())
}

func TestDrawFrameShadowCacheHit(t *testing.T) {
	b := headless.New()
	sm := newManager(t, testFS(t), b)
	packet := demoPacket(t, b, sm)
	rs := sm.RendererSystem()

	require.NoError(t, rs.DrawFrame(packet))
	first := packet.Sun.ShadowMatrix(0)

	b.Reset()
	require.NoError(t, rs.DrawFrame(packet))
	assert.Equal(t, first, packet.Sun.ShadowMatrix(0))
	for _, d := range b.Draws {
		assert.NotEqual(t, packet.Sun.ShadowMap(0).Framebuffer(), d.Framebuffer)
	}

	releasePacket(packet)
	require.NoError(t, sm.Shutdown())
}

func TestDrawFrameForwardFallback(t *testing.T) {
	b := headless.New()
	b.FailFramebuffers = true
	sm := newManager(t, testFS(t), b)
	packet := demoPacket(t, b, sm)
	packet.Sun.Release()
	packet.Sun = nil

	rs := sm.RendererSystem()
	require.NoError(t, rs.DrawFrame(packet))
	assert.Equal(t, 2, rs.LastRenderListSize)
	require.Len(t, b.Draws, 2)
	for _, d := range b.Draws {
		assert.Equal(t, metadata.FramebufferHandle(0), d.Framebuffer)
		assert.Equal(t, metadata.DrawModeTriangles, d.Mode)
		assert.NotEqual(t, int32(6), d.Count)
	}

	packet.Scene.Release()
	for _, l := range packet.PointLights {
		l.Release()
	}
	require.NoError(t, sm.Shutdown())
}

func TestDrawFrameWithoutScene(t *testing.T) {
	b := headless.New()
	sm := newManager(t, testFS(t), b)

	rs := sm.RendererSystem()
	require.NoError(t, rs.DrawFrame(&RenderPacket{View: mgl32.Ident4(), Projection: mgl32.Ident4()}))
	assert.Equal(t, 0, rs.LastRenderListSize)
	// no sun to light the main pass with
	assert.Empty(t, b.Draws)
	assert.Equal(t, 1, b.Frames)
	require.NoError(t, sm.Shutdown())
}

func TestDrawFrameWaitsForResize(t *testing.T) {
	b := headless.New()
	sm := newManager(t, testFS(t), b)
	rs := sm.RendererSystem()
	rs.Config.ResizeDelayFrames = 2
	packet := &RenderPacket{View: mgl32.Ident4(), Projection: mgl32.Ident4()}

	rs.OnResize(640, 480)
	require.NoError(t, rs.DrawFrame(packet))
	require.NoError(t, rs.DrawFrame(packet))
	assert.Equal(t, 0, b.Frames)
	assert.True(t, rs.Resizing)

	require.NoError(t, rs.DrawFrame(packet))
	assert.False(t, rs.Resizing)
	assert.Equal(t, 1, b.Frames)
	assert.Equal(t, int32(640), rs.GBuffer().Width)
	assert.Equal(t, int32(480), rs.GBuffer().Height)
	require.NoError(t, sm.Shutdown())
}

func TestSystemManagerHandleAssetChange(t *testing.T) {
	fsys := testFS(t)
	b := headless.New()
	sm := newManager(t, fsys, b)
	_, err := sm.MaterialSystem().LoadLibrary("materials/demo.mtl")
	require.NoError(t, err)

	wood := sm.MaterialSystem().Get("wood")
	require.NotNil(t, wood)
	program := wood.Shader().Program
	tex := wood.DiffuseMap()

	fsys["shaders/standard.vs"] = &fstest.MapFile{Data: []byte("uniform mat4 mvp;\nvoid main() {}\n")}
	sm.HandleAssetChange("shaders/standard.vs")
	assert.NotEqual(t, program, wood.Shader().Program)

	fsys["textures/wood.png"] = &fstest.MapFile{Data: encodePNG(t, 16, 16, color.RGBA{0, 0, 255, 255})}
	sm.HandleAssetChange("textures/wood.png")
	assert.Equal(t, int32(16), tex.Width)

	fsys["materials/demo.mtl"] = &fstest.MapFile{Data: []byte("newmtl wood\nKd 0 1 0\nmap_Kd wood.png\n")}
	sm.HandleAssetChange("materials/demo.mtl")
	assert.Equal(t, mgl32.Vec3{0, 1, 0}, wood.MatColor)
	assert.Same(t, tex, wood.DiffuseMap())

	// unknown paths are ignored
	sm.HandleAssetChange("nothing/here.txt")

	require.NoError(t, sm.Shutdown())
	assert.Equal(t, 0, b.LiveObjects())
}
