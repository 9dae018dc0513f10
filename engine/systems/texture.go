package systems

import (
	"fmt"
	"image"
	"image/color"
	"path"
	"sync"

	"github.com/spaghettifunk/umbra/engine/assets"
	"github.com/spaghettifunk/umbra/engine/core"
	"github.com/spaghettifunk/umbra/engine/renderer"
	"github.com/spaghettifunk/umbra/engine/renderer/metadata"
	"github.com/spaghettifunk/umbra/engine/resources"
)

/** @brief The name of the default texture. */
const DefaultTextureName string = "default"

type TextureSystemConfig struct {
	/** @brief The maximum number of textures that can be loaded at once. */
	MaxTextureCount uint32
	/** @brief Directory, relative to the asset root, that texture names are resolved against. */
	BasePath string
	/** @brief Keep decoded pixels around so textures can be sampled on the CPU. */
	KeepPixels bool
}

type textureKey struct {
	name   string
	filter metadata.TextureFilter
	wrap   metadata.TextureWrap
}

// TextureSystem caches textures loaded from image assets. The same file can
// be cached more than once with different sampling.
type TextureSystem struct {
	Config *TextureSystemConfig
	// Hashtable for texture lookups.
	RegisteredTextureTable map[textureKey]*resources.TextureMap
	DefaultTexture         *resources.TextureMap
	// sub systems
	jobSystem    *JobSystem
	assetManager *assets.AssetManager
	backend      renderer.Backend
}

func NewTextureSystem(config *TextureSystemConfig, js *JobSystem, am *assets.AssetManager, backend renderer.Backend) (*TextureSystem, error) {
	if config.MaxTextureCount == 0 {
		err := fmt.Errorf("func NewTextureSystem - config.MaxTextureCount must be > 0")
		core.LogError(err.Error())
		return nil, err
	}
	return &TextureSystem{
		Config:                 config,
		RegisteredTextureTable: make(map[textureKey]*resources.TextureMap),
		jobSystem:              js,
		assetManager:           am,
		backend:                backend,
	}, nil
}

// Initialize creates the 1x1 white default texture.
func (ts *TextureSystem) Initialize() error {
	white := image.NewRGBA(image.Rect(0, 0, 1, 1))
	white.SetRGBA(0, 0, color.RGBA{255, 255, 255, 255})

	ts.DefaultTexture = resources.NewTextureMap(ts.backend, DefaultTextureName)
	if !ts.DefaultTexture.LoadImage(white, metadata.TextureFilterModeNearest, metadata.TextureWrapRepeat, true) {
		return fmt.Errorf("failed to create the default texture")
	}
	return nil
}

func (ts *TextureSystem) Shutdown() error {
	ts.ReleaseAll()
	if ts.DefaultTexture != nil {
		ts.DefaultTexture.Release()
		ts.DefaultTexture = nil
	}
	return nil
}

// Acquire returns the cached texture for name with the given sampling,
// loading it on first use. The cache keeps ownership: callers that hold on to
// the texture must Retain it. Returns nil when the image can't be loaded.
func (ts *TextureSystem) Acquire(name string, filter metadata.TextureFilter, wrap metadata.TextureWrap) *resources.TextureMap {
	if name == DefaultTextureName {
		return ts.DefaultTexture
	}
	key := textureKey{name: name, filter: filter, wrap: wrap}
	if tmap, ok := ts.RegisteredTextureTable[key]; ok {
		return tmap
	}

	if uint32(len(ts.RegisteredTextureTable)) >= ts.Config.MaxTextureCount {
		core.LogError("texture system is full (%d textures), can't load %s", ts.Config.MaxTextureCount, name)
		return nil
	}

	img, err := ts.assetManager.LoadImage(ts.resolve(name), false)
	if err != nil {
		core.LogError("Couldn't load %s: %s", name, err)
		return nil
	}
	return ts.register(key, img)
}

func (ts *TextureSystem) register(key textureKey, img image.Image) *resources.TextureMap {
	tmap := resources.NewTextureMap(ts.backend, key.name)
	if !tmap.LoadImage(img, key.filter, key.wrap, ts.Config.KeepPixels) {
		tmap.Release()
		return nil
	}
	if key.filter.IsMipmapped() {
		tmap.MakeMipMap()
	}
	ts.RegisteredTextureTable[key] = tmap
	return tmap
}

type decodedTexture struct {
	name string
	img  image.Image
}

// Preload decodes the named images on the job system and uploads them. Names
// that are already cached are skipped. Returns how many textures were added.
func (ts *TextureSystem) Preload(names []string, filter metadata.TextureFilter, wrap metadata.TextureWrap) int {
	if ts.jobSystem == nil {
		added := 0
		for _, name := range names {
			before := len(ts.RegisteredTextureTable)
			ts.Acquire(name, filter, wrap)
			if len(ts.RegisteredTextureTable) > before {
				added++
			}
		}
		return added
	}

	seen := make(map[string]bool, len(names))
	var pending []string
	for _, name := range names {
		key := textureKey{name: name, filter: filter, wrap: wrap}
		if name == DefaultTextureName || seen[name] {
			continue
		}
		if _, ok := ts.RegisteredTextureTable[key]; ok {
			continue
		}
		seen[name] = true
		pending = append(pending, name)
	}

	results := make(chan decodedTexture, len(pending))
	var wg sync.WaitGroup
	for _, name := range pending {
		name := name
		wg.Add(1)
		ts.jobSystem.Submit(metadata.JobTask{
			InputParams: ts.resolve(name),
			OnStart: func(params interface{}, out chan<- interface{}) error {
				img, err := ts.assetManager.LoadImage(params.(string), false)
				if err != nil {
					return err
				}
				out <- img
				return nil
			},
			OnComplete: func(r <-chan interface{}) {
				results <- decodedTexture{name: name, img: (<-r).(image.Image)}
			},
			OnCompletionCallback: wg.Done,
		})
	}
	wg.Wait()
	close(results)

	// uploads stay on the calling thread
	added := 0
	for d := range results {
		if uint32(len(ts.RegisteredTextureTable)) >= ts.Config.MaxTextureCount {
			core.LogError("texture system is full (%d textures), can't load %s", ts.Config.MaxTextureCount, d.name)
			continue
		}
		if ts.register(textureKey{name: d.name, filter: filter, wrap: wrap}, d.img) != nil {
			added++
		}
	}
	return added
}

// resolve looks for name under the base path first.
func (ts *TextureSystem) resolve(name string) string {
	if ts.Config.BasePath == "" {
		return name
	}
	candidate := path.Join(ts.Config.BasePath, name)
	if _, ok := ts.assetManager.Lookup(candidate); ok {
		return candidate
	}
	return name
}

// Count reports how many textures are cached.
func (ts *TextureSystem) Count() int {
	return len(ts.RegisteredTextureTable)
}

// Release drops the cache's reference to the texture. Users that retained it
// keep it alive.
func (ts *TextureSystem) Release(name string, filter metadata.TextureFilter, wrap metadata.TextureWrap) {
	// Ignore release requests for the default texture.
	if name == DefaultTextureName {
		return
	}
	key := textureKey{name: name, filter: filter, wrap: wrap}
	tmap, ok := ts.RegisteredTextureTable[key]
	if !ok {
		core.LogWarn("texture %s is not cached", name)
		return
	}
	delete(ts.RegisteredTextureTable, key)
	tmap.Release()
}

// ReleaseAll empties the cache.
func (ts *TextureSystem) ReleaseAll() {
	for key, tmap := range ts.RegisteredTextureTable {
		delete(ts.RegisteredTextureTable, key)
		tmap.Release()
	}
}

// Reload decodes the image at assetPath again into every cached texture made
// from it. Returns how many textures were updated.
func (ts *TextureSystem) Reload(assetPath string) int {
	var img image.Image
	reloaded := 0
	for key, tmap := range ts.RegisteredTextureTable {
		if ts.resolve(key.name) != assetPath {
			continue
		}
		if img == nil {
			decoded, err := ts.assetManager.LoadImage(assetPath, false)
			if err != nil {
				core.LogError("Couldn't reload %s: %s", assetPath, err)
				return 0
			}
			img = decoded
		}
		if tmap.LoadImage(img, key.filter, key.wrap, ts.Config.KeepPixels) {
			if key.filter.IsMipmapped() {
				tmap.MakeMipMap()
			}
			reloaded++
		}
	}
	if reloaded > 0 {
		core.LogInfo("reloaded texture %s", assetPath)
	}
	return reloaded
}
