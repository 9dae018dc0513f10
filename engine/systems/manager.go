package systems

import (
	"github.com/spaghettifunk/umbra/engine/assets"
	"github.com/spaghettifunk/umbra/engine/core"
	"github.com/spaghettifunk/umbra/engine/renderer"
	"github.com/spaghettifunk/umbra/engine/renderer/metadata"
)

type SystemManagerConfig struct {
	JobWorkers int
	Camera     CameraSystemConfig
	Renderer   RendererSystemConfig
	Texture    TextureSystemConfig
	Shader     ShaderSystemConfig
	Material   MaterialSystemConfig
}

type SystemManager struct {
	jobSystem      *JobSystem
	cameraSystem   *CameraSystem
	rendererSystem *RendererSystem
	textureSystem  *TextureSystem
	shaderSystem   *ShaderSystem
	materialSystem *MaterialSystem
	assetManager   *assets.AssetManager
}

func NewSystemManager(config *SystemManagerConfig, am *assets.AssetManager, backend renderer.Backend) (*SystemManager, error) {
	workers := config.JobWorkers
	if workers <= 0 {
		workers = 1
	}
	js, err := NewJobSystem(workers, 64)
	if err != nil {
		return nil, err
	}
	cs, err := NewCameraSystem(&config.Camera)
	if err != nil {
		return nil, err
	}
	rs, err := NewRendererSystem(&config.Renderer, backend)
	if err != nil {
		return nil, err
	}
	ts, err := NewTextureSystem(&config.Texture, js, am, backend)
	if err != nil {
		return nil, err
	}
	ssys, err := NewShaderSystem(&config.Shader, am, backend)
	if err != nil {
		return nil, err
	}
	ms, err := NewMaterialSystem(&config.Material, ssys, ts, am)
	if err != nil {
		return nil, err
	}
	return &SystemManager{
		jobSystem:      js,
		cameraSystem:   cs,
		rendererSystem: rs,
		textureSystem:  ts,
		shaderSystem:   ssys,
		materialSystem: ms,
		assetManager:   am,
	}, nil
}

// Initialize brings the backend up first; every other system needs it.
func (sm *SystemManager) Initialize(appName string) error {
	if err := sm.rendererSystem.Initialize(appName); err != nil {
		return err
	}
	if err := sm.textureSystem.Initialize(); err != nil {
		return err
	}
	if err := sm.materialSystem.Initialize(); err != nil {
		return err
	}
	sm.rendererSystem.CreatePasses(sm.shaderSystem, sm.materialSystem.DefaultMaterial)
	return nil
}

func (sm *SystemManager) JobSystem() *JobSystem           { return sm.jobSystem }
func (sm *SystemManager) CameraSystem() *CameraSystem     { return sm.cameraSystem }
func (sm *SystemManager) RendererSystem() *RendererSystem { return sm.rendererSystem }
func (sm *SystemManager) TextureSystem() *TextureSystem   { return sm.textureSystem }
func (sm *SystemManager) ShaderSystem() *ShaderSystem     { return sm.shaderSystem }
func (sm *SystemManager) MaterialSystem() *MaterialSystem { return sm.materialSystem }

// HandleAssetChange reloads whatever was built from the changed asset.
func (sm *SystemManager) HandleAssetChange(path string) {
	info, ok := sm.assetManager.Lookup(path)
	if !ok {
		return
	}
	switch info.Type {
	case metadata.ResourceTypeShader:
		if n := sm.shaderSystem.Reload(path); n > 0 {
			core.LogInfo("reloaded %d shaders after %s changed", n, path)
		}
	case metadata.ResourceTypeImage:
		sm.textureSystem.Reload(path)
	case metadata.ResourceTypeMaterial:
		sm.materialSystem.Reload(path)
	}
}

func (sm *SystemManager) Shutdown() error {
	if err := sm.materialSystem.Shutdown(); err != nil {
		return err
	}
	if err := sm.shaderSystem.Shutdown(); err != nil {
		return err
	}
	if err := sm.textureSystem.Shutdown(); err != nil {
		return err
	}
	if err := sm.rendererSystem.Shutdown(); err != nil {
		return err
	}
	if err := sm.cameraSystem.Shutdown(); err != nil {
		return err
	}
	if err := sm.jobSystem.Shutdown(); err != nil {
		return err
	}
	return nil
}
