package engine

import (
	"fmt"
	"sync/atomic"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/umbra/engine/assets"
	"github.com/spaghettifunk/umbra/engine/core"
	"github.com/spaghettifunk/umbra/engine/platform"
	"github.com/spaghettifunk/umbra/engine/renderer"
	"github.com/spaghettifunk/umbra/engine/renderer/headless"
	"github.com/spaghettifunk/umbra/engine/renderer/opengl"
	"github.com/spaghettifunk/umbra/engine/systems"
)

type Stage uint8

const (
	// Engine is in an uninitialized state
	EngineStageUninitialized Stage = iota
	// Engine is currently initializing
	EngineStageInitializing
	// Engine initialization is complete
	EngineStageInitialized
	// Engine is currently running
	EngineStageRunning
	// Engine is in the process of shutting down
	EngineStageShuttingDown
	// Engine released everything
	EngineStageShutdown
)

type Engine struct {
	currentStage  Stage
	gameInstance  *Game
	isRunning     atomic.Bool
	isSuspended   bool
	platform      *platform.Platform
	backend       renderer.Backend
	assetManager  *assets.AssetManager
	systemManager *systems.SystemManager
	width         uint32
	height        uint32
	clock         *core.Clock
	metrics       *core.Metrics
	lastTime      float64
	frameCount    uint64
	listeners     map[core.EventCode]uint32
}

// New builds the engine described by the game's configuration: the backend,
// the asset manager over the asset directory and every system.
func New(g *Game) (*Engine, error) {
	config := g.ApplicationConfig
	if config == nil {
		config = DefaultApplicationConfig()
		g.ApplicationConfig = config
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	core.SetLogLevel(core.ParseLogLevel(config.LogLevel))

	var p *platform.Platform
	var backend renderer.Backend
	switch config.Renderer.Backend {
	case BackendOpenGL:
		p = platform.New()
		backend = opengl.New()
	case BackendHeadless:
		backend = headless.New()
	default:
		return nil, fmt.Errorf("%w: %q", core.ErrUnknownBackend, config.Renderer.Backend)
	}

	am, err := assets.NewDirAssetManager(config.Assets.Path, config.Assets.Watch)
	if err != nil {
		core.LogError(err.Error())
		return nil, err
	}

	e, err := NewWithAssets(g, am, backend)
	if err != nil {
		_ = am.Shutdown()
		return nil, err
	}
	e.platform = p
	return e, nil
}

// NewWithAssets builds an engine without a window over an existing asset
// manager and backend.
func NewWithAssets(g *Game, am *assets.AssetManager, backend renderer.Backend) (*Engine, error) {
	if g.ApplicationConfig == nil {
		g.ApplicationConfig = DefaultApplicationConfig()
	}
	sm, err := systems.NewSystemManager(g.ApplicationConfig.SystemManagerConfig(), am, backend)
	if err != nil {
		core.LogError(err.Error())
		return nil, err
	}
	g.SystemManager = sm

	return &Engine{
		currentStage:  EngineStageUninitialized,
		gameInstance:  g,
		backend:       backend,
		assetManager:  am,
		systemManager: sm,
		width:         g.ApplicationConfig.Window.Width,
		height:        g.ApplicationConfig.Window.Height,
		clock:         core.NewClock(),
		metrics:       core.NewMetrics(),
		listeners:     make(map[core.EventCode]uint32),
	}, nil
}

func (e *Engine) Initialize() error {
	e.currentStage = EngineStageInitializing
	config := e.gameInstance.ApplicationConfig

	if err := core.InputInitialize(); err != nil {
		return err
	}
	if !core.EventSystemInitialize() {
		return fmt.Errorf("failed to initialize the event system")
	}
	e.listeners[core.EVENT_CODE_APPLICATION_QUIT] = core.EventRegister(core.EVENT_CODE_APPLICATION_QUIT, e.onQuit)
	e.listeners[core.EVENT_CODE_KEY_PRESSED] = core.EventRegister(core.EVENT_CODE_KEY_PRESSED, e.onKey)
	e.listeners[core.EVENT_CODE_RESIZED] = core.EventRegister(core.EVENT_CODE_RESIZED, e.onResized)

	if e.platform != nil {
		if err := e.platform.Startup(config.Window.Name, config.Window.X, config.Window.Y, config.Window.Width, config.Window.Height); err != nil {
			return err
		}
		// high DPI screens have more pixels than the window size says
		e.width, e.height = e.platform.FramebufferSize()
		e.systemManager.RendererSystem().FramebufferWidth = e.width
		e.systemManager.RendererSystem().FramebufferHeight = e.height
	}

	if err := e.systemManager.Initialize(config.Window.Name); err != nil {
		return err
	}

	if e.gameInstance.FnInitialize != nil {
		if err := e.gameInstance.FnInitialize(); err != nil {
			return err
		}
	}
	if e.gameInstance.FnOnResize != nil {
		if err := e.gameInstance.FnOnResize(e.width, e.height); err != nil {
			return err
		}
	}
	e.currentStage = EngineStageInitialized
	return nil
}

// Run loops until the window closes, Quit is called or the configured
// number of headless frames was drawn.
func (e *Engine) Run() error {
	if e.currentStage != EngineStageInitialized {
		return fmt.Errorf("engine run before initialize")
	}
	e.currentStage = EngineStageRunning
	e.isRunning.Store(true)

	e.clock.Start()
	e.clock.Update()
	e.lastTime = e.clock.Elapsed()

	maxFrames := 0
	if e.platform == nil {
		maxFrames = e.gameInstance.ApplicationConfig.Renderer.Frames
	}

	for e.isRunning.Load() {
		if e.platform != nil && !e.platform.PumpMessages() {
			e.isRunning.Store(false)
			break
		}
		if e.isSuspended {
			if e.platform != nil {
				e.platform.Sleep(10)
			}
			continue
		}
		if err := e.Frame(); err != nil {
			e.isRunning.Store(false)
			return err
		}
		if maxFrames > 0 && e.frameCount >= uint64(maxFrames) {
			e.isRunning.Store(false)
		}
	}
	core.LogInfo("Stopped after %d frames, %.1f fps", e.frameCount, e.metrics.FPS())
	return nil
}

// Frame runs one iteration: reloads changed assets, updates the game and
// draws what it put in the render packet.
func (e *Engine) Frame() error {
	e.clock.Update()
	currentTime := e.clock.Elapsed()
	delta := currentTime - e.lastTime

	e.drainAssetChanges()

	if e.gameInstance.FnUpdate != nil {
		if err := e.gameInstance.FnUpdate(delta); err != nil {
			core.LogError("Game update failed, shutting down: %s", err)
			return err
		}
	}

	packet := &systems.RenderPacket{
		DeltaTime:  delta,
		View:       mgl32.Ident4(),
		Projection: e.Projection(),
	}
	if e.gameInstance.FnRender != nil {
		if err := e.gameInstance.FnRender(packet, delta); err != nil {
			core.LogError("Game render failed, shutting down: %s", err)
			return err
		}
	}

	if err := e.systemManager.RendererSystem().DrawFrame(packet); err != nil {
		return err
	}
	if e.platform != nil {
		e.platform.SwapBuffers()
	}

	e.metrics.Update(delta)
	e.frameCount++

	// input is copied last so everything this frame saw the same state
	_ = core.InputUpdate(delta)
	e.lastTime = currentTime
	return nil
}

// Projection is the perspective projection for the current framebuffer.
func (e *Engine) Projection() mgl32.Mat4 {
	config := e.gameInstance.ApplicationConfig.Renderer
	aspect := float32(1)
	if e.height != 0 {
		aspect = float32(e.width) / float32(e.height)
	}
	return mgl32.Perspective(mgl32.DegToRad(config.FieldOfView), aspect, config.Near, config.Far)
}

func (e *Engine) drainAssetChanges() {
	for {
		select {
		case path := <-e.assetManager.Changes():
			core.LogDebug("asset changed: %s", path)
			e.systemManager.HandleAssetChange(path)
			core.EventFire(core.EventContext{
				Type: core.EVENT_CODE_ASSET_CHANGED,
				Data: &core.AssetEvent{Path: path},
			})
		default:
			return
		}
	}
}

// Quit stops the loop after the current frame. Safe to call from any goroutine.
func (e *Engine) Quit() {
	e.isRunning.Store(false)
}

func (e *Engine) FrameCount() uint64 {
	return e.frameCount
}

func (e *Engine) Metrics() *core.Metrics {
	return e.metrics
}

func (e *Engine) SystemManager() *systems.SystemManager {
	return e.systemManager
}

func (e *Engine) Backend() renderer.Backend {
	return e.backend
}

// Shutdown releases the game, the systems and the window. It must run on the
// thread that ran the frames.
func (e *Engine) Shutdown() error {
	if e.currentStage == EngineStageShutdown || e.currentStage == EngineStageShuttingDown {
		return nil
	}
	e.currentStage = EngineStageShuttingDown
	e.isRunning.Store(false)

	if e.gameInstance.FnShutdown != nil {
		if err := e.gameInstance.FnShutdown(); err != nil {
			core.LogError("game shutdown: %s", err)
		}
	}
	for code, id := range e.listeners {
		core.EventUnregister(code, id)
	}
	if err := e.systemManager.Shutdown(); err != nil {
		return err
	}
	if err := e.assetManager.Shutdown(); err != nil {
		return err
	}
	if err := core.EventSystemShutdown(); err != nil {
		return err
	}
	if err := core.InputShutdown(); err != nil {
		return err
	}
	if e.platform != nil {
		if err := e.platform.Shutdown(); err != nil {
			return err
		}
	}
	e.currentStage = EngineStageShutdown
	return nil
}

// GetFramebufferSize returns the width and height (in this order) of the
// application framebuffer.
func (e *Engine) GetFramebufferSize() (uint32, uint32) {
	return e.width, e.height
}

func (e *Engine) onQuit(context core.EventContext) bool {
	core.LogInfo("EVENT_CODE_APPLICATION_QUIT received, shutting down.")
	e.isRunning.Store(false)
	return true
}

func (e *Engine) onKey(context core.EventContext) bool {
	ke, ok := context.Data.(*core.KeyEvent)
	if !ok {
		core.LogError("wrong event associated with the event type `%d`", context.Type)
		return false
	}
	if ke.KeyCode == core.KEY_ESCAPE {
		core.EventFire(core.EventContext{Type: core.EVENT_CODE_APPLICATION_QUIT})
		return true
	}
	return false
}

func (e *Engine) onResized(context core.EventContext) bool {
	se, ok := context.Data.(*core.SystemEvent)
	if !ok {
		core.LogError("wrong event associated with the event type `%d`", context.Type)
		return false
	}
	width, height := se.WindowWidth, se.WindowHeight
	if width == e.width && height == e.height {
		return false
	}
	e.width, e.height = width, height
	core.LogDebug("Window resize: %d, %d", width, height)

	// Handle minimization
	if width == 0 || height == 0 {
		core.LogInfo("Window minimized, suspending application.")
		e.isSuspended = true
		return true
	}
	if e.isSuspended {
		core.LogInfo("Window restored, resuming application.")
		e.isSuspended = false
	}
	if e.gameInstance.FnOnResize != nil {
		if err := e.gameInstance.FnOnResize(width, height); err != nil {
			core.LogError(err.Error())
		}
	}
	e.systemManager.RendererSystem().OnResize(width, height)
	return false
}
