package metadata

type ResourceType int

/** @brief Pre-defined resource types. */
const (
	/** @brief Files the asset manager does not index. */
	ResourceTypeNone ResourceType = iota
	/** @brief Text resource type (configuration and plain text). */
	ResourceTypeText
	/** @brief Image resource type, decoded to RGBA8. */
	ResourceTypeImage
	/** @brief Material library (.mtl). */
	ResourceTypeMaterial
	/** @brief GLSL shader stage source. */
	ResourceTypeShader
)

func (t ResourceType) String() string {
	switch t {
	case ResourceTypeText:
		return "text"
	case ResourceTypeImage:
		return "image"
	case ResourceTypeMaterial:
		return "material"
	case ResourceTypeShader:
		return "shader"
	default:
		return "none"
	}
}

/**
 * @brief A generic structure for a resource. All resource loaders
 * load data into these.
 */
type Resource struct {
	/** @brief The name of the resource. */
	Name string
	/** @brief The path of the resource relative to the asset root. */
	FullPath string
	/** @brief The type of the resource. */
	Type ResourceType
	/** @brief The size of the resource data in bytes. */
	DataSize uint64
	/** @brief The resource data. */
	Data interface{}
}

/** @brief Parameters for loading a shader stage. */
type ShaderResourceParams struct {
	/** @brief Names tested by #ifdef and #ifndef. */
	Defines []string
}
