package assets

import (
	"fmt"
	"image"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spaghettifunk/umbra/engine/assets/loaders"
	"github.com/spaghettifunk/umbra/engine/core"
	"github.com/spaghettifunk/umbra/engine/renderer/metadata"
)

const changeBacklog = 64

type AssetInfo struct {
	Path       string
	Type       metadata.ResourceType
	LastLoaded time.Time
}

// AssetManager indexes the files under an asset root and loads them through
// the loader registered for their type. When built over a directory it can
// also watch it and report changed files on Changes.
type AssetManager struct {
	root    fs.FS
	dir     string
	assets  map[string]AssetInfo
	loaders map[metadata.ResourceType]Loader
	text    Loader

	mutex sync.RWMutex

	done     chan struct{}
	stopped  chan struct{}
	fsnotify *fsnotify.Watcher
	isClosed bool
	changes  chan string
}

// NewAssetManager indexes every file of root.
func NewAssetManager(root fs.FS) (*AssetManager, error) {
	am := &AssetManager{
		root:    root,
		assets:  make(map[string]AssetInfo),
		loaders: make(map[metadata.ResourceType]Loader),
		text:    &loaders.TextLoader{},
		changes: make(chan string, changeBacklog),
	}

	// Register loaders
	am.registerLoader(metadata.ResourceTypeText, am.text)
	am.registerLoader(metadata.ResourceTypeShader, &loaders.ShaderLoader{})
	am.registerLoader(metadata.ResourceTypeImage, &loaders.ImageLoader{})
	am.registerLoader(metadata.ResourceTypeMaterial, &loaders.MaterialLoader{})

	err := fs.WalkDir(root, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			am.handleFileEvent(p)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return am, nil
}

// NewDirAssetManager serves the assets under dir, watching it and all of its
// sub-directories for changes when watch is set.
func NewDirAssetManager(dir string, watch bool) (*AssetManager, error) {
	am, err := NewAssetManager(os.DirFS(dir))
	if err != nil {
		return nil, err
	}
	am.dir = dir
	if !watch {
		return am, nil
	}

	fsWatch, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	am.fsnotify = fsWatch
	am.done = make(chan struct{})
	am.stopped = make(chan struct{})
	if err := am.addRecursive(dir); err != nil {
		fsWatch.Close()
		return nil, err
	}
	go am.start()
	return am, nil
}

// Changes delivers the asset path of every file created or written while
// watching. Changes are dropped when nobody drains the channel.
func (am *AssetManager) Changes() <-chan string {
	return am.changes
}

// Register loaders for each asset type
func (am *AssetManager) registerLoader(assetType metadata.ResourceType, loader Loader) {
	am.loaders[assetType] = loader
}

// Lookup returns what the index knows about path.
func (am *AssetManager) Lookup(p string) (AssetInfo, bool) {
	am.mutex.RLock()
	defer am.mutex.RUnlock()
	info, ok := am.assets[p]
	return info, ok
}

// Assets lists the indexed paths of the given type, sorted.
func (am *AssetManager) Assets(assetType metadata.ResourceType) []string {
	am.mutex.RLock()
	defer am.mutex.RUnlock()
	var paths []string
	for p, info := range am.assets {
		if info.Type == assetType {
			paths = append(paths, p)
		}
	}
	sort.Strings(paths)
	return paths
}

// LoadAsset loads path using the loader for its type.
func (am *AssetManager) LoadAsset(p string, params interface{}) (*metadata.Resource, error) {
	p = path.Clean(p)

	am.mutex.RLock()
	asset, exists := am.assets[p]
	am.mutex.RUnlock()
	if !exists {
		// files can appear without a watcher noticing
		if _, err := fs.Stat(am.root, p); err != nil {
			return nil, fmt.Errorf("%w: %s", core.ErrAssetNotFound, p)
		}
		asset = AssetInfo{Path: p, Type: determineAssetType(p)}
	}

	loader, loaderExists := am.loaders[asset.Type]
	if !loaderExists {
		return nil, fmt.Errorf("%w: %s", core.ErrUnknownAssetType, p)
	}

	res, err := loader.Load(am.root, p, params)
	if err != nil {
		return nil, err
	}

	// Update the loaded time
	asset.LastLoaded = time.Now()
	am.mutex.Lock()
	am.assets[p] = asset
	am.mutex.Unlock()
	return res, nil
}

// ReadText reads any asset as text.
func (am *AssetManager) ReadText(p string) (string, error) {
	res, err := am.text.Load(am.root, path.Clean(p), nil)
	if err != nil {
		return "", err
	}
	return res.Data.(string), nil
}

// LoadImage decodes an image asset to RGBA8.
func (am *AssetManager) LoadImage(p string, flipY bool) (*image.RGBA, error) {
	res, err := am.LoadAsset(p, &metadata.ImageResourceParams{FlipY: flipY})
	if err != nil {
		return nil, err
	}
	data, ok := res.Data.(*metadata.ImageResourceData)
	if !ok {
		return nil, fmt.Errorf("%w: %s is a %s asset", core.ErrUnknownAssetType, p, res.Type)
	}
	return data.Image, nil
}

// LoadShaderSource loads a shader stage with includes and conditionals resolved.
func (am *AssetManager) LoadShaderSource(p string, defines []string) (string, error) {
	res, err := am.LoadAsset(p, &metadata.ShaderResourceParams{Defines: defines})
	if err != nil {
		return "", err
	}
	source, ok := res.Data.(string)
	if !ok || res.Type != metadata.ResourceTypeShader {
		return "", fmt.Errorf("%w: %s is not a shader", core.ErrUnknownAssetType, p)
	}
	return source, nil
}

func (am *AssetManager) UnloadAsset(asset *metadata.Resource) error {
	if asset == nil {
		return nil
	}
	if loader, ok := am.loaders[asset.Type]; ok {
		return loader.Unload(asset)
	}
	return nil
}

// Shutdown stops watching. Safe to call more than once.
func (am *AssetManager) Shutdown() error {
	am.mutex.Lock()
	if am.isClosed || am.fsnotify == nil {
		am.isClosed = true
		am.mutex.Unlock()
		return nil
	}
	am.isClosed = true
	am.mutex.Unlock()

	close(am.done)
	<-am.stopped
	return nil
}

func (am *AssetManager) start() {
	defer close(am.stopped)
	for {
		select {
		case e, ok := <-am.fsnotify.Events:
			if !ok {
				return
			}
			am.handleWatchEvent(e)

		case e, ok := <-am.fsnotify.Errors:
			if !ok {
				return
			}
			core.LogError(e.Error())

		case <-am.done:
			am.fsnotify.Close()
			return
		}
	}
}

func (am *AssetManager) handleWatchEvent(e fsnotify.Event) {
	s, err := os.Stat(e.Name)
	if err == nil && s != nil && s.IsDir() {
		if e.Op&fsnotify.Create != 0 {
			if err := am.watchRecursive(e.Name); err != nil {
				core.LogWarn("failed to watch %s: %s", e.Name, err)
			}
		}
		return
	}

	rel, ok := am.relative(e.Name)
	if !ok {
		return
	}

	// Handle create or modify events
	if e.Op&(fsnotify.Create|fsnotify.Write) != 0 {
		am.NotifyChanged(rel)
	}
	// Can't stat a deleted path, so try to remove it from both the index and the watch list
	if e.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
		am.removeAsset(rel)
		_ = am.fsnotify.Remove(e.Name)
	}
}

// NotifyChanged indexes p and queues it on Changes. The watcher calls it for
// every written file; trees without a watcher can call it directly.
func (am *AssetManager) NotifyChanged(p string) {
	am.handleFileEvent(p)
	select {
	case am.changes <- p:
	default:
		core.LogWarn("asset change backlog full, dropping %s", p)
	}
}

// relative turns a watched file name into a slash separated asset path.
func (am *AssetManager) relative(name string) (string, bool) {
	rel, err := filepath.Rel(am.dir, name)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", false
	}
	return filepath.ToSlash(rel), true
}

// AddRecursive starts watching the named directory and all sub-directories.
func (am *AssetManager) addRecursive(name string) error {
	if am.isClosed {
		return core.ErrWatcherClosed
	}
	return am.watchRecursive(name)
}

// watchRecursive adds all directories under the given one to the watch list.
func (am *AssetManager) watchRecursive(root string) error {
	return filepath.WalkDir(root, func(walkPath string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			if rel, ok := am.relative(walkPath); ok {
				am.handleFileEvent(rel)
			}
			return nil
		}
		return am.fsnotify.Add(walkPath)
	})
}

// Handle the creation or modification of a file
func (am *AssetManager) handleFileEvent(p string) {
	assetType := determineAssetType(p)
	if assetType == metadata.ResourceTypeNone {
		return
	}

	am.mutex.Lock()
	defer am.mutex.Unlock()
	info := am.assets[p]
	info.Path = p
	info.Type = assetType
	am.assets[p] = info
}

// Remove the asset from the index if it was deleted
func (am *AssetManager) removeAsset(p string) {
	am.mutex.Lock()
	defer am.mutex.Unlock()

	delete(am.assets, p)
}

func determineAssetType(p string) metadata.ResourceType {
	switch strings.ToLower(path.Ext(p)) {
	case ".vs", ".fs", ".gs", ".tcs", ".tes", ".glsl":
		return metadata.ResourceTypeShader
	case ".png", ".jpg", ".jpeg", ".gif", ".bmp", ".tif", ".tiff", ".webp":
		return metadata.ResourceTypeImage
	case ".mtl":
		return metadata.ResourceTypeMaterial
	case ".toml", ".txt":
		return metadata.ResourceTypeText
	default:
		return metadata.ResourceTypeNone
	}
}
