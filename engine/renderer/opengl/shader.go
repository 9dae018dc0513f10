package opengl

import (
	"fmt"
	"strings"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/umbra/engine/core"
	"github.com/spaghettifunk/umbra/engine/renderer/metadata"
)

func shaderType(stage metadata.ShaderStage) uint32 {
	switch stage {
	case metadata.ShaderStageTessControl:
		return gl.TESS_CONTROL_SHADER
	case metadata.ShaderStageTessEval:
		return gl.TESS_EVALUATION_SHADER
	case metadata.ShaderStageGeometry:
		return gl.GEOMETRY_SHADER
	case metadata.ShaderStageFragment:
		return gl.FRAGMENT_SHADER
	}
	return gl.VERTEX_SHADER
}

func (r *OpenGLRenderer) ShaderCompile(stage metadata.ShaderStage, source string) (metadata.ShaderHandle, error) {
	shader := gl.CreateShader(shaderType(stage))

	csources, free := gl.Strs(source + "\x00")
	gl.ShaderSource(shader, 1, csources, nil)
	free()
	gl.CompileShader(shader)

	var status int32
	gl.GetShaderiv(shader, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetShaderiv(shader, gl.INFO_LOG_LENGTH, &logLength)

		log := strings.Repeat("\x00", int(logLength+1))
		gl.GetShaderInfoLog(shader, logLength, nil, gl.Str(log))

		gl.DeleteShader(shader)
		return 0, fmt.Errorf("%w: %s stage: %s", core.ErrShaderCompile, stage, strings.TrimRight(log, "\x00"))
	}

	return metadata.ShaderHandle(shader), nil
}

func (r *OpenGLRenderer) ShaderDestroy(shader metadata.ShaderHandle) {
	if shader != 0 {
		gl.DeleteShader(uint32(shader))
	}
}

// ProgramLink links the compiled stages. The stages stay owned by the caller.
func (r *OpenGLRenderer) ProgramLink(shaders ...metadata.ShaderHandle) (metadata.ProgramHandle, error) {
	if len(shaders) == 0 {
		return metadata.NoShader, fmt.Errorf("%w: no shaders", core.ErrProgramLink)
	}

	program := gl.CreateProgram()
	for _, s := range shaders {
		gl.AttachShader(program, uint32(s))
	}
	gl.LinkProgram(program)

	var status int32
	gl.GetProgramiv(program, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetProgramiv(program, gl.INFO_LOG_LENGTH, &logLength)

		log := strings.Repeat("\x00", int(logLength+1))
		gl.GetProgramInfoLog(program, logLength, nil, gl.Str(log))

		gl.DeleteProgram(program)
		return metadata.NoShader, fmt.Errorf("%w: %s", core.ErrProgramLink, strings.TrimRight(log, "\x00"))
	}

	for _, s := range shaders {
		gl.DetachShader(program, uint32(s))
	}
	return metadata.ProgramHandle(program), nil
}

func (r *OpenGLRenderer) ProgramDestroy(program metadata.ProgramHandle) {
	if program != metadata.NoShader {
		gl.DeleteProgram(uint32(program))
	}
}

func (r *OpenGLRenderer) ProgramUse(program metadata.ProgramHandle) {
	gl.UseProgram(uint32(program))
}

func (r *OpenGLRenderer) UniformLocation(program metadata.ProgramHandle, name string) int32 {
	return gl.GetUniformLocation(uint32(program), gl.Str(name+"\x00"))
}

func (r *OpenGLRenderer) SetUniform(location int32, value interface{}) {
	if location < 0 {
		return
	}
	switch v := value.(type) {
	case int32:
		gl.Uniform1i(location, v)
	case float32:
		gl.Uniform1f(location, v)
	case mgl32.Vec3:
		gl.Uniform3fv(location, 1, &v[0])
	case mgl32.Vec4:
		gl.Uniform4fv(location, 1, &v[0])
	case mgl32.Mat3:
		gl.UniformMatrix3fv(location, 1, false, &v[0])
	case mgl32.Mat4:
		gl.UniformMatrix4fv(location, 1, false, &v[0])
	default:
		core.LogError("unsupported uniform type %T", value)
	}
}
