package metadata

import "github.com/go-gl/mathgl/mgl32"

/** @brief Backend handle of uploaded geometry (vertex array + buffers). */
type GeometryHandle uint32

/** @brief Backend handle of a bare vertex array object. */
type VertexArrayHandle uint32

/**
 * @brief The interleaved vertex layout uploaded for every mesh.
 */
type Vertex struct {
	/** @brief The Position of the vertex */
	Position mgl32.Vec3
	/** @brief The Normal of the vertex. */
	Normal mgl32.Vec3
	/** @brief The texture coordinate of the vertex. */
	Texcoord mgl32.Vec2
}

/** @brief Size in bytes of one Vertex. */
const VertexSize = 8 * 4
