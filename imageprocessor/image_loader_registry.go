package imageprocessor

import (
	"path/filepath"
	"strings"
	"sync"

	"imagededup/imagehash"
)

// ImageLoaderRegistry maps file extensions to loaders.
type ImageLoaderRegistry struct {
	loaders       map[string]ImageLoader
	defaultLoader ImageLoader
	mutex         sync.RWMutex
}

// NewImageLoaderRegistry creates a registry with the standard loader bound
// to every supported extension.
func NewImageLoaderRegistry() *ImageLoaderRegistry {
	registry := &ImageLoaderRegistry{
		loaders: make(map[string]ImageLoader),
	}

	standardLoader := NewStandardImageLoader()
	for _, ext := range GetSupportedExtensions() {
		registry.RegisterLoader(ext, standardLoader)
	}
	registry.defaultLoader = standardLoader
	return registry
}

// RegisterLoader registers a new loader for a specific file extension,
// replacing any previous one.
func (r *ImageLoaderRegistry) RegisterLoader(ext string, loader ImageLoader) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.loaders[NormalizeExtension(ext)] = loader
}

// GetLoader returns the loader for path, falling back to the default.
func (r *ImageLoaderRegistry) GetLoader(path string) ImageLoader {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	if loader, ok := r.loaders[strings.ToLower(filepath.Ext(path))]; ok {
		return loader
	}
	return r.defaultLoader
}

// CanLoadFile checks if any registered loader can handle the given file
func (r *ImageLoaderRegistry) CanLoadFile(path string) bool {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	_, ok := r.loaders[strings.ToLower(filepath.Ext(path))]
	return ok
}

// Extensions returns the registered extensions.
func (r *ImageLoaderRegistry) Extensions() []string {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	exts := make([]string, 0, len(r.loaders))
	for ext := range r.loaders {
		exts = append(exts, ext)
	}
	return exts
}

// LoadImage loads an image using the appropriate registered loader
func (r *ImageLoaderRegistry) LoadImage(path string) (*imagehash.Image, error) {
	loader := r.GetLoader(path)
	if loader == nil {
		return nil, newImageLoadError(path, "no suitable loader found")
	}
	return loader.LoadImage(path)
}
