package engine

import (
	"bytes"
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
	"github.com/spaghettifunk/umbra/engine/core"
	"github.com/spaghettifunk/umbra/engine/systems"
)

const (
	BackendOpenGL   = "opengl"
	BackendHeadless = "headless"
)

type WindowConfig struct {
	// The application name used in windowing.
	Name string `toml:"name"`
	// Window starting position.
	X uint32 `toml:"x"`
	Y uint32 `toml:"y"`
	// Window starting size. The headless backend renders at this size.
	Width  uint32 `toml:"width"`
	Height uint32 `toml:"height"`
}

type RendererConfig struct {
	// "opengl" or "headless".
	Backend string `toml:"backend"`
	// Compile the lighting shaders with barrel distortion.
	BarrelDist bool `toml:"barrel_dist"`
	ShowBounds bool `toml:"show_bounds"`
	// Frames a resize has to settle before render targets are rebuilt.
	ResizeDelayFrames uint8 `toml:"resize_delay_frames"`
	// Number of frames the headless backend renders before quitting. 0 runs
	// until asked to quit.
	Frames int `toml:"frames"`
	// Vertical field of view in degrees, and the clip planes.
	FieldOfView float32 `toml:"fov"`
	Near        float32 `toml:"near"`
	Far         float32 `toml:"far"`
}

type ShadowConfig struct {
	Resolution int32 `toml:"resolution"`
	// Half extent of each sun cascade, nearest first. At most three.
	Cascades []float32 `toml:"cascades"`
}

type AssetConfig struct {
	// Asset root directory.
	Path  string `toml:"path"`
	Watch bool   `toml:"watch"`
	// Sub directories of the root.
	Shaders  string `toml:"shaders"`
	Textures string `toml:"textures"`
	// Shaders given to materials that don't name one.
	DefaultShader string `toml:"default_shader"`
	ShadowShader  string `toml:"shadow_shader"`
}

type LimitsConfig struct {
	JobWorkers   int    `toml:"job_workers"`
	MaxTextures  uint32 `toml:"max_textures"`
	MaxShaders   uint16 `toml:"max_shaders"`
	MaxMaterials uint32 `toml:"max_materials"`
	MaxCameras   uint16 `toml:"max_cameras"`
}

type ApplicationConfig struct {
	LogLevel string         `toml:"log_level"`
	Window   WindowConfig   `toml:"window"`
	Renderer RendererConfig `toml:"renderer"`
	Shadows  ShadowConfig   `toml:"shadows"`
	Assets   AssetConfig    `toml:"assets"`
	Limits   LimitsConfig   `toml:"limits"`
}

func DefaultApplicationConfig() *ApplicationConfig {
	return &ApplicationConfig{
		LogLevel: "info",
		Window: WindowConfig{
			Name:   "umbra",
			X:      100,
			Y:      100,
			Width:  1280,
			Height: 720,
		},
		Renderer: RendererConfig{
			Backend:           BackendOpenGL,
			ResizeDelayFrames: 30,
			FieldOfView:       45,
			Near:              0.1,
			Far:               1000,
		},
		Shadows: ShadowConfig{
			Resolution: 2048,
			Cascades:   []float32{10, 50, 200},
		},
		Assets: AssetConfig{
			Path:          "assets",
			Shaders:       "shaders",
			Textures:      "textures",
			DefaultShader: "standard",
			ShadowShader:  "shadow",
		},
		Limits: LimitsConfig{
			JobWorkers:   4,
			MaxTextures:  256,
			MaxShaders:   64,
			MaxMaterials: 512,
			MaxCameras:   8,
		},
	}
}

// LoadApplicationConfig reads a TOML file over the defaults.
func LoadApplicationConfig(path string) (*ApplicationConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseApplicationConfig(data)
}

// ParseApplicationConfig decodes TOML over the defaults. Unknown keys are
// rejected so typos don't go unnoticed.
func ParseApplicationConfig(data []byte) (*ApplicationConfig, error) {
	config := DefaultApplicationConfig()
	decoder := toml.NewDecoder(bytes.NewReader(data))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(config); err != nil {
		return nil, fmt.Errorf("application config: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func (c *ApplicationConfig) Validate() error {
	switch c.Renderer.Backend {
	case BackendOpenGL, BackendHeadless:
	default:
		return fmt.Errorf("%w: %q", core.ErrUnknownBackend, c.Renderer.Backend)
	}
	if c.Window.Width == 0 || c.Window.Height == 0 {
		return fmt.Errorf("application config: window size %dx%d", c.Window.Width, c.Window.Height)
	}
	if c.Renderer.Near <= 0 || c.Renderer.Far <= c.Renderer.Near {
		return fmt.Errorf("application config: clip planes %g, %g", c.Renderer.Near, c.Renderer.Far)
	}
	return nil
}

func (c *ApplicationConfig) SystemManagerConfig() *systems.SystemManagerConfig {
	return &systems.SystemManagerConfig{
		JobWorkers: c.Limits.JobWorkers,
		Camera: systems.CameraSystemConfig{
			MaxCameraCount: c.Limits.MaxCameras,
		},
		Renderer: systems.RendererSystemConfig{
			Width:             c.Window.Width,
			Height:            c.Window.Height,
			BarrelDist:        c.Renderer.BarrelDist,
			ShadowResolution:  c.Shadows.Resolution,
			ShadowCascades:    append([]float32(nil), c.Shadows.Cascades...),
			ShowBounds:        c.Renderer.ShowBounds,
			ResizeDelayFrames: c.Renderer.ResizeDelayFrames,
		},
		Texture: systems.TextureSystemConfig{
			MaxTextureCount: c.Limits.MaxTextures,
			BasePath:        c.Assets.Textures,
		},
		Shader: systems.ShaderSystemConfig{
			MaxShaderCount: c.Limits.MaxShaders,
			BasePath:       c.Assets.Shaders,
		},
		Material: systems.MaterialSystemConfig{
			MaxMaterialCount: c.Limits.MaxMaterials,
			DefaultShader:    c.Assets.DefaultShader,
			ShadowShader:     c.Assets.ShadowShader,
		},
	}
}
