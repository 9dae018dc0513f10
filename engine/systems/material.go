package systems

import (
	"fmt"
	"sort"

	"github.com/spaghettifunk/umbra/engine/assets"
	"github.com/spaghettifunk/umbra/engine/core"
	"github.com/spaghettifunk/umbra/engine/renderer/metadata"
	"github.com/spaghettifunk/umbra/engine/resources"
)

/** @brief The name of the default material. */
const DefaultMaterialName string = "default"

type MaterialSystemConfig struct {
	/** @brief The maximum number of materials that can be loaded at once. */
	MaxMaterialCount uint32
	/** @brief Shader given to materials that don't name one. */
	DefaultShader string
	/** @brief Shader used to render materials into shadow maps. */
	ShadowShader string
}

// MaterialSystem loads material libraries (.mtl) and keeps them alive.
type MaterialSystem struct {
	Config          *MaterialSystemConfig
	DefaultMaterial *resources.Material
	// libraries by asset path
	libraries map[string]resources.MaterialList
	// sub systems
	shaderSystem  *ShaderSystem
	textureSystem *TextureSystem
	assetManager  *assets.AssetManager
}

func NewMaterialSystem(config *MaterialSystemConfig, ss *ShaderSystem, ts *TextureSystem, am *assets.AssetManager) (*MaterialSystem, error) {
	if config.MaxMaterialCount == 0 {
		err := fmt.Errorf("func NewMaterialSystem - config.MaxMaterialCount must be > 0")
		core.LogError(err.Error())
		return nil, err
	}
	return &MaterialSystem{
		Config:        config,
		libraries:     make(map[string]resources.MaterialList),
		shaderSystem:  ss,
		textureSystem: ts,
		assetManager:  am,
	}, nil
}

// Initialize creates the default material with the default shaders.
func (ms *MaterialSystem) Initialize() error {
	ms.DefaultMaterial = resources.NewMaterial(DefaultMaterialName)
	ms.applyShaders(ms.DefaultMaterial)
	if ms.DefaultMaterial.Shader() == nil {
		return fmt.Errorf("%w: default material", core.ErrNoShader)
	}
	return nil
}

func (ms *MaterialSystem) Shutdown() error {
	for p, list := range ms.libraries {
		delete(ms.libraries, p)
		list.Release()
	}
	if ms.DefaultMaterial != nil {
		ms.DefaultMaterial.Release()
		ms.DefaultMaterial = nil
	}
	return nil
}

func stagesFor(name string) metadata.ShaderStages {
	return metadata.ShaderStages{
		Vertex:   name + ".vs",
		Fragment: name + ".fs",
	}
}

func (ms *MaterialSystem) applyShaders(m *resources.Material) {
	if m.Shader() == nil && ms.Config.DefaultShader != "" {
		m.SetShader(ms.shaderSystem.Acquire(ms.Config.DefaultShader, stagesFor(ms.Config.DefaultShader), nil))
	}
	if m.ShadowShader() == nil && ms.Config.ShadowShader != "" {
		m.SetShadowShader(ms.shaderSystem.Acquire(ms.Config.ShadowShader, stagesFor(ms.Config.ShadowShader), nil))
	}
}

func (ms *MaterialSystem) count() int {
	total := 0
	for _, list := range ms.libraries {
		total += len(list)
	}
	return total
}

func (ms *MaterialSystem) parse(path string) (resources.MaterialList, error) {
	res, err := ms.assetManager.LoadAsset(path, nil)
	if err != nil {
		return nil, err
	}
	if res.Type != metadata.ResourceTypeMaterial {
		return nil, fmt.Errorf("%w: %s is not a material library", core.ErrUnknownAssetType, path)
	}
	list := resources.ParseMTL(res.Data.(string), ms.textureSystem)
	for _, m := range list {
		ms.applyShaders(m)
	}
	return list, nil
}

// LoadLibrary parses the material library at path. Loading the same library
// twice returns the already loaded materials. The system owns the list.
func (ms *MaterialSystem) LoadLibrary(path string) (resources.MaterialList, error) {
	if list, ok := ms.libraries[path]; ok {
		return list, nil
	}
	list, err := ms.parse(path)
	if err != nil {
		return nil, err
	}
	if uint32(ms.count()+len(list)) > ms.Config.MaxMaterialCount {
		list.Release()
		return nil, fmt.Errorf("material system is full, can't load %s", path)
	}
	core.LogInfo("Loaded %d materials from %s", len(list), path)
	ms.libraries[path] = list
	return list, nil
}

// Get finds a material by name across every loaded library, in path order.
func (ms *MaterialSystem) Get(name string) *resources.Material {
	if name == DefaultMaterialName {
		return ms.DefaultMaterial
	}
	paths := make([]string, 0, len(ms.libraries))
	for p := range ms.libraries {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	for _, p := range paths {
		for _, m := range ms.libraries[p] {
			if m.Name == name {
				return m
			}
		}
	}
	core.LogWarn("Couldn't find material %s", name)
	return nil
}

// Reload parses a loaded library again and updates its materials in place so
// meshes using them pick up the change. New materials are added; materials
// that disappeared from the file are kept as they were.
func (ms *MaterialSystem) Reload(path string) bool {
	current, ok := ms.libraries[path]
	if !ok {
		return false
	}
	fresh, err := ms.parse(path)
	if err != nil {
		core.LogError("Couldn't reload %s: %s", path, err)
		return false
	}
	defer fresh.Release()

	for _, m := range fresh {
		found := false
		for _, existing := range current {
			if existing.Name == m.Name {
				existing.Assign(m)
				found = true
				break
			}
		}
		if !found {
			m.Retain()
			current = append(current, m)
		}
	}
	ms.libraries[path] = current
	core.LogInfo("Reloaded %s", path)
	return true
}
