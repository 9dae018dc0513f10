package metadata

import "image"

/**
 * @brief Decoded image data, always RGBA8.
 */
type ImageResourceData struct {
	/** @brief The number of channels of the source file. */
	ChannelCount uint8
	/** @brief The width of the image. */
	Width uint32
	/** @brief The height of the image. */
	Height uint32
	/** @brief The decoded pixels, 4 bytes per pixel. */
	Image *image.RGBA
}

/** @brief Parameters used when loading an image. */
type ImageResourceParams struct {
	/** @brief Indicates if the image should be flipped on the y-axis when loaded. */
	FlipY bool
}
