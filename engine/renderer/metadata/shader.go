package metadata

/** @brief Backend handle of a single compiled shader stage. */
type ShaderHandle uint32

/** @brief Backend handle of a linked shader program. */
type ProgramHandle uint32

/** @brief Sentinel for "no shader / no program". */
const NoShader ProgramHandle = 0

/** @brief Returned by uniform lookups when the program does not declare the uniform. */
const UniformNotFound int32 = -1

/** @brief The programmable stages a program can be built from. */
type ShaderStage int

const (
	ShaderStageVertex ShaderStage = iota
	ShaderStageTessControl
	ShaderStageTessEval
	ShaderStageGeometry
	ShaderStageFragment
)

func (s ShaderStage) String() string {
	switch s {
	case ShaderStageVertex:
		return "vertex"
	case ShaderStageTessControl:
		return "tess-control"
	case ShaderStageTessEval:
		return "tess-eval"
	case ShaderStageGeometry:
		return "geometry"
	case ShaderStageFragment:
		return "fragment"
	}
	return "unknown"
}

/**
 * @brief One source file per stage. Empty file names are skipped.
 */
type ShaderStages struct {
	Vertex      string
	TessControl string
	TessEval    string
	Geometry    string
	Fragment    string
}

// Each calls fn for every stage that has a file, in pipeline order.
func (s ShaderStages) Each(fn func(stage ShaderStage, file string) error) error {
	files := []struct {
		stage ShaderStage
		file  string
	}{
		{ShaderStageVertex, s.Vertex},
		{ShaderStageTessControl, s.TessControl},
		{ShaderStageTessEval, s.TessEval},
		{ShaderStageGeometry, s.Geometry},
		{ShaderStageFragment, s.Fragment},
	}
	for _, f := range files {
		if f.file == "" {
			continue
		}
		if err := fn(f.stage, f.file); err != nil {
			return err
		}
	}
	return nil
}
