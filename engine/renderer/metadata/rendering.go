package metadata

/** @brief Pipeline switches toggled with Enable/Disable. */
type Capability int

const (
	CapabilityCullFace Capability = iota
	CapabilityDepthTest
	CapabilityBlend
)

/** @brief Determines face culling mode during rendering. */
type FaceCullMode int

const (
	/** @brief Only front faces are culled. */
	FaceCullModeFront FaceCullMode = iota
	/** @brief Only back faces are culled. */
	FaceCullModeBack
	/** @brief Both front and back faces are culled. */
	FaceCullModeFrontAndBack
)

/** @brief Winding order considered front facing. */
type Winding int

const (
	WindingCounterClockwise Winding = iota
	WindingClockwise
)

/** @brief Blend factors for the source and destination colours. */
type BlendFactor int

const (
	BlendZero BlendFactor = iota
	BlendOne
	BlendSrcAlpha
	BlendOneMinusSrcAlpha
)

/** @brief Buffers cleared by Clear. */
type ClearMask int

const (
	ClearColor ClearMask = 1 << iota
	ClearDepth
)

/** @brief Primitive assembly used by DrawArrays. */
type DrawMode int

const (
	DrawModeTriangles DrawMode = iota
	DrawModeTriangleFan
)

/** @brief Result of a framebuffer completeness check. */
type FramebufferStatus uint32

/** @brief The only status a usable framebuffer reports. Matches GL_FRAMEBUFFER_COMPLETE. */
const FramebufferComplete FramebufferStatus = 0x8CD5
