package resources

import (
	"image"
	"image/draw"
	stdmath "math"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
	"github.com/spaghettifunk/umbra/engine/core"
	"github.com/spaghettifunk/umbra/engine/renderer"
	"github.com/spaghettifunk/umbra/engine/renderer/metadata"
)

/**
 * @brief A 2D texture, optionally keeping its pixel data on the CPU for
 * sampling, and optionally usable as a render target.
 */
type TextureMap struct {
	RefCount
	/** @brief The (file) name of the texture. */
	Name string
	/** @brief Size in pixels. */
	Width  int32
	Height int32
	Filter metadata.TextureFilter
	Wrap   metadata.TextureWrap
	Format metadata.TextureFormat

	data        []uint8
	backend     renderer.Backend
	texture     metadata.TextureHandle
	depth       metadata.TextureHandle
	framebuffer metadata.FramebufferHandle
}

// NewTextureMap creates an empty texture object. An empty name gets a
// generated one.
func NewTextureMap(backend renderer.Backend, name string) *TextureMap {
	if name == "" {
		name = uuid.NewString()
	}
	return &TextureMap{
		RefCount: NewRefCount(),
		Name:     name,
		backend:  backend,
		texture:  backend.TextureCreate(),
	}
}

func (t *TextureMap) Handle() metadata.TextureHandle {
	if t == nil {
		return 0
	}
	return t.texture
}

// Framebuffer returns the render target created by RenderToTexture or
// RenderToShadowMap, 0 when there is none.
func (t *TextureMap) Framebuffer() metadata.FramebufferHandle {
	return t.framebuffer
}

// Data returns the pixel data kept on the CPU, if any.
func (t *TextureMap) Data() []uint8 {
	return t.data
}

func (t *TextureMap) Release() {
	if t == nil {
		core.LogError("attempted to release nil texture map")
		return
	}
	if !t.Drop() {
		return
	}
	t.FreeFramebuffers()
	t.backend.TextureDestroy(t.texture)
	t.texture = 0
	t.data = nil
}

// LoadData (re)allocates the texture with the given layout. pixels may be nil
// to allocate storage only.
func (t *TextureMap) LoadData(pixels []uint8, width, height int32, filter metadata.TextureFilter, wrap metadata.TextureWrap, format metadata.TextureFormat) bool {
	if t == nil {
		return false
	}
	t.Width, t.Height = width, height
	t.Filter, t.Wrap, t.Format = filter, wrap, format
	t.backend.TextureUpload(t.texture, metadata.TextureDesc{
		Width:  width,
		Height: height,
		Format: format,
		Filter: filter,
		Wrap:   wrap,
	}, pixels)
	return true
}

// LoadImage uploads img as RGBA8. With keepData the pixels stay available for
// Pixel and Sample.
func (t *TextureMap) LoadImage(img image.Image, filter metadata.TextureFilter, wrap metadata.TextureWrap, keepData bool) bool {
	if t == nil || img == nil {
		return false
	}
	rgba, ok := img.(*image.RGBA)
	if !ok || rgba.Stride != rgba.Rect.Dx()*4 || rgba.Rect.Min != (image.Point{}) {
		bounds := img.Bounds()
		rgba = image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
		draw.Draw(rgba, rgba.Bounds(), img, bounds.Min, draw.Src)
	}

	size := rgba.Rect.Size()
	if !t.LoadData(rgba.Pix, int32(size.X), int32(size.Y), filter, wrap, metadata.TextureFormatRGBA8) {
		return false
	}
	if keepData {
		t.data = rgba.Pix
	} else {
		t.data = nil
	}
	core.LogDebug("loaded texture %s (%dx%d)", t.Name, size.X, size.Y)
	return true
}

// MakeMipMap switches to the mip-mapped variant of the current filter and
// generates the chain.
func (t *TextureMap) MakeMipMap() bool {
	if t == nil {
		return false
	}
	t.Filter = t.Filter.Mipmapped()
	t.backend.TextureGenerateMipmaps(t.texture, t.Filter)
	return true
}

// Pixel returns the texel at (x, y) normalised to [0, 1], wrapping around the
// edges. Without kept pixel data it returns opaque white.
func (t *TextureMap) Pixel(x, y int) mgl32.Vec4 {
	if !t.hasPixels() {
		return mgl32.Vec4{1.0, 1.0, 1.0, 1.0}
	}
	w, h := int(t.Width), int(t.Height)
	x %= w
	y %= h
	if x < 0 {
		x += w
	}
	if y < 0 {
		y += h
	}
	pos := (x + y*w) * 4
	return mgl32.Vec4{
		float32(t.data[pos]) / 255.0,
		float32(t.data[pos+1]) / 255.0,
		float32(t.data[pos+2]) / 255.0,
		float32(t.data[pos+3]) / 255.0,
	}
}

func (t *TextureMap) hasPixels() bool {
	return t != nil && t.Width > 0 && t.Height > 0 && len(t.data) >= int(t.Width)*int(t.Height)*4
}

// Sample bilinearly filters the kept pixel data at texture coordinate (s, t).
// Without data it returns opaque white.
func (t *TextureMap) Sample(s, tc float32) mgl32.Vec4 {
	white := mgl32.Vec4{1.0, 1.0, 1.0, 1.0}
	if t == nil {
		core.LogError("no map specified")
		return white
	}
	if !t.hasPixels() {
		core.LogError("no map data available for %s", t.Name)
		return white
	}

	xf := float64(s) * float64(t.Width)
	yf := float64(tc) * float64(t.Height)
	x := int(stdmath.Floor(xf))
	y := int(stdmath.Floor(yf))
	fx := float32(xf - float64(x))
	fy := float32(yf - float64(y))

	p1 := t.Pixel(x, y)
	p2 := t.Pixel(x+1, y)
	p3 := t.Pixel(x, y+1)
	p4 := t.Pixel(x+1, y+1)

	top := p1.Add(p2.Sub(p1).Mul(fx))
	bottom := p3.Add(p4.Sub(p3).Mul(fx))
	return top.Add(bottom.Sub(top).Mul(fy))
}

// RenderToTexture binds the texture as colour target, creating the
// framebuffer (and a depth texture when asked) on first use.
func (t *TextureMap) RenderToTexture(needDepth bool) bool {
	if t == nil {
		return false
	}
	if t.framebuffer != 0 {
		t.backend.FramebufferBind(t.framebuffer)
		return true
	}

	t.framebuffer = t.backend.FramebufferCreate()
	t.backend.FramebufferBind(t.framebuffer)
	t.backend.FramebufferAttachColor(0, t.texture)
	if needDepth && t.depth == 0 {
		t.depth = t.backend.TextureCreate()
		t.backend.TextureUpload(t.depth, metadata.TextureDesc{
			Width:  t.Width,
			Height: t.Height,
			Format: metadata.TextureFormatDepth32F,
			Filter: metadata.TextureFilterModeNearest,
			Wrap:   metadata.TextureWrapClampToEdge,
		}, nil)
		t.backend.FramebufferAttachDepth(t.depth)
	}
	t.backend.FramebufferDrawBuffers(1)
	return t.checkFramebuffer()
}

// RenderToShadowMap turns the texture into a depth-only target of the given
// size and binds it. Storage is reallocated only when the size changes.
func (t *TextureMap) RenderToShadowMap(width, height int32) bool {
	if t == nil {
		return false
	}
	if t.framebuffer != 0 && t.Width == width && t.Height == height && t.Format == metadata.TextureFormatDepth32F {
		t.backend.FramebufferBind(t.framebuffer)
		return true
	}

	t.FreeFramebuffers()
	t.LoadData(nil, width, height, metadata.TextureFilterModeLinear, metadata.TextureWrapClampToEdge, metadata.TextureFormatDepth32F)

	t.framebuffer = t.backend.FramebufferCreate()
	t.backend.FramebufferBind(t.framebuffer)
	t.backend.FramebufferAttachDepth(t.texture)
	t.backend.FramebufferDrawBuffers(0)
	return t.checkFramebuffer()
}

func (t *TextureMap) checkFramebuffer() bool {
	status := t.backend.FramebufferStatus()
	if status != metadata.FramebufferComplete {
		core.LogErrorCode(int(status), "couldn't init framebuffer for %s (errno = %d)", t.Name, status)
		t.FreeFramebuffers()
		t.backend.FramebufferBind(0)
		return false
	}
	return true
}

// FreeFramebuffers drops the render target objects, keeping the texture.
func (t *TextureMap) FreeFramebuffers() {
	if t.framebuffer != 0 {
		t.backend.FramebufferDestroy(t.framebuffer)
		t.framebuffer = 0
	}
	if t.depth != 0 {
		t.backend.TextureDestroy(t.depth)
		t.depth = 0
	}
}
