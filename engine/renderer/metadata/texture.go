package metadata

/** @brief Backend handle of a texture object. 0 means no texture. */
type TextureHandle uint32

/** @brief Backend handle of a framebuffer object. 0 is the default framebuffer. */
type FramebufferHandle uint32

/** @brief Texture filtering applied for minification and magnification. */
type TextureFilter int

const (
	/** @brief Nearest-neighbor filtering. */
	TextureFilterModeNearest TextureFilter = iota
	/** @brief Linear (i.e. bilinear) filtering.*/
	TextureFilterModeLinear
	/** @brief Nearest-neighbor filtering between nearest mip levels. */
	TextureFilterModeNearestMipmapNearest
	/** @brief Linear filtering blended between mip levels. */
	TextureFilterModeLinearMipmapLinear
)

// Mipmapped returns the mip-mapping variant of a plain filter.
func (f TextureFilter) Mipmapped() TextureFilter {
	switch f {
	case TextureFilterModeNearest:
		return TextureFilterModeNearestMipmapNearest
	case TextureFilterModeLinear:
		return TextureFilterModeLinearMipmapLinear
	}
	return f
}

/** @brief Reports whether the filter samples mip levels. */
func (f TextureFilter) IsMipmapped() bool {
	return f == TextureFilterModeNearestMipmapNearest || f == TextureFilterModeLinearMipmapLinear
}

/** @brief How texture coordinates outside [0, 1] are resolved. */
type TextureWrap int

const (
	TextureWrapRepeat TextureWrap = iota
	TextureWrapMirroredRepeat
	TextureWrapClampToEdge
)

/** @brief Storage layout of a texture: internal format + pixel format + component type. */
type TextureFormat int

const (
	/** @brief 8 bit RGBA, uploaded as unsigned bytes. */
	TextureFormatRGBA8 TextureFormat = iota
	/** @brief RGBA storage fed with float components. */
	TextureFormatRGBAFloat
	/** @brief 32 bit float RGBA. */
	TextureFormatRGBA32F
	/** @brief 32 bit float depth component. */
	TextureFormatDepth32F
)

func (f TextureFormat) String() string {
	switch f {
	case TextureFormatRGBA8:
		return "RGBA8"
	case TextureFormatRGBAFloat:
		return "RGBA/float"
	case TextureFormatRGBA32F:
		return "RGBA32F"
	case TextureFormatDepth32F:
		return "DEPTH32F"
	}
	return "unknown"
}

/**
 * @brief Describes the storage and sampling state of a 2D texture.
 */
type TextureDesc struct {
	/** @brief The texture Width. */
	Width int32
	/** @brief The texture Height. */
	Height int32
	/** @brief Storage format. */
	Format TextureFormat
	/** @brief Filter for both minification and magnification. */
	Filter TextureFilter
	/** @brief Wrap mode for S and T. */
	Wrap TextureWrap
}
