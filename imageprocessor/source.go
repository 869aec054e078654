package imageprocessor

import "imagededup/imagehash"

// FileSource is an image file on disk, identified by its path. It satisfies
// engine.Source.
type FileSource struct {
	Path     string
	Registry *ImageLoaderRegistry
}

// Identity returns the file path.
func (s FileSource) Identity() string { return s.Path }

// Load decodes the file through the registry.
func (s FileSource) Load() (*imagehash.Image, error) {
	return s.Registry.LoadImage(s.Path)
}

// FileSources builds one FileSource per path, in order.
func FileSources(registry *ImageLoaderRegistry, paths []string) []FileSource {
	out := make([]FileSource, len(paths))
	for i, p := range paths {
		out[i] = FileSource{Path: p, Registry: registry}
	}
	return out
}
