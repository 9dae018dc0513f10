package systems

import (
	"fmt"
	"path"
	"strings"

	"github.com/spaghettifunk/umbra/engine/assets"
	"github.com/spaghettifunk/umbra/engine/core"
	"github.com/spaghettifunk/umbra/engine/renderer"
	"github.com/spaghettifunk/umbra/engine/renderer/metadata"
	"github.com/spaghettifunk/umbra/engine/resources"
)

/** @brief Configuration for the shader system. */
type ShaderSystemConfig struct {
	/** @brief The maximum number of shaders held in the system. */
	MaxShaderCount uint16
	/** @brief Directory, relative to the asset root, holding the shader sources. */
	BasePath string
}

type shaderEntry struct {
	shader  *resources.Shader
	stages  metadata.ShaderStages
	defines []string
}

// ShaderSystem builds programs from preprocessed shader assets and caches
// the material shaders by name and defines.
type ShaderSystem struct {
	// This system's configuration.
	Config *ShaderSystemConfig
	// A lookup table for shader name->shader
	Lookup map[string]*shaderEntry
	// sub systems
	assetManager *assets.AssetManager
	backend      renderer.Backend
}

func NewShaderSystem(config *ShaderSystemConfig, am *assets.AssetManager, backend renderer.Backend) (*ShaderSystem, error) {
	if config.MaxShaderCount == 0 {
		err := fmt.Errorf("NewShaderSystem - config.MaxShaderCount must be greater than 0")
		core.LogError(err.Error())
		return nil, err
	}
	return &ShaderSystem{
		Config:       config,
		Lookup:       make(map[string]*shaderEntry),
		assetManager: am,
		backend:      backend,
	}, nil
}

/**
 * @brief Shuts down the shader system, releasing every cached shader.
 */
func (shaderSystem *ShaderSystem) Shutdown() error {
	for key, entry := range shaderSystem.Lookup {
		delete(shaderSystem.Lookup, key)
		entry.shader.Release()
	}
	return nil
}

func shaderKey(name string, defines []string) string {
	if len(defines) == 0 {
		return name
	}
	return name + "|" + strings.Join(defines, " ")
}

// LoadProgram preprocesses, compiles and links every stage in stages. The
// stage objects are deleted once linked; the caller owns the program.
func (shaderSystem *ShaderSystem) LoadProgram(name string, stages metadata.ShaderStages, defines []string) (metadata.ProgramHandle, error) {
	var compiled []metadata.ShaderHandle
	defer func() {
		for _, s := range compiled {
			shaderSystem.backend.ShaderDestroy(s)
		}
	}()

	err := stages.Each(func(stage metadata.ShaderStage, file string) error {
		source, err := shaderSystem.assetManager.LoadShaderSource(shaderSystem.resolve(file), defines)
		if err != nil {
			return err
		}
		handle, err := shaderSystem.backend.ShaderCompile(stage, source)
		if err != nil {
			return fmt.Errorf("%s: %w", file, err)
		}
		compiled = append(compiled, handle)
		return nil
	})
	if err != nil {
		return metadata.NoShader, fmt.Errorf("shader %s: %w", name, err)
	}
	if len(compiled) == 0 {
		return metadata.NoShader, fmt.Errorf("shader %s: %w", name, core.ErrNoShader)
	}

	program, err := shaderSystem.backend.ProgramLink(compiled...)
	if err != nil {
		return metadata.NoShader, fmt.Errorf("shader %s: %w", name, err)
	}
	core.LogInfo("Loaded shader %s", name)
	return program, nil
}

func (shaderSystem *ShaderSystem) resolve(file string) string {
	if shaderSystem.Config.BasePath == "" {
		return file
	}
	return path.Join(shaderSystem.Config.BasePath, file)
}

// Acquire returns the cached shader built from stages with defines, building
// it on first use. A shader that failed to build is still returned, without a
// program, so materials using it fail to select instead of crashing. The
// cache keeps ownership; holders must Retain.
func (shaderSystem *ShaderSystem) Acquire(name string, stages metadata.ShaderStages, defines []string) *resources.Shader {
	key := shaderKey(name, defines)
	if entry, ok := shaderSystem.Lookup[key]; ok {
		return entry.shader
	}
	if len(shaderSystem.Lookup) >= int(shaderSystem.Config.MaxShaderCount) {
		core.LogError("shader system is full (%d shaders), can't load %s", shaderSystem.Config.MaxShaderCount, name)
		return nil
	}

	shader := resources.NewShader(shaderSystem.backend, name)
	program, err := shaderSystem.LoadProgram(name, stages, defines)
	if err != nil {
		core.LogError(err.Error())
	} else {
		shader.SetProgram(program)
	}
	shaderSystem.Lookup[key] = &shaderEntry{
		shader:  shader,
		stages:  stages,
		defines: append([]string(nil), defines...),
	}
	return shader
}

// Reload rebuilds every cached shader that uses file, or all of them when
// file is an include. The program is only replaced when the rebuild succeeds.
func (shaderSystem *ShaderSystem) Reload(file string) int {
	reloaded := 0
	for _, entry := range shaderSystem.Lookup {
		if !shaderSystem.uses(entry.stages, file) {
			continue
		}
		program, err := shaderSystem.LoadProgram(entry.shader.Name, entry.stages, entry.defines)
		if err != nil {
			core.LogError("keeping previous %s: %s", entry.shader.Name, err)
			continue
		}
		entry.shader.SetProgram(program)
		reloaded++
	}
	return reloaded
}

func (shaderSystem *ShaderSystem) uses(stages metadata.ShaderStages, file string) bool {
	if path.Ext(file) == ".glsl" {
		return true
	}
	found := false
	_ = stages.Each(func(_ metadata.ShaderStage, stageFile string) error {
		if shaderSystem.resolve(stageFile) == file {
			found = true
		}
		return nil
	})
	return found
}
