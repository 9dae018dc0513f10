package loaders

import (
	"io/fs"
	"path"
	"strings"

	"github.com/spaghettifunk/umbra/engine/renderer/metadata"
)

// MaterialLoader reads a Wavefront material library. Parsing needs the
// texture cache so it is left to the material system; the resource carries
// the normalised text.
type MaterialLoader struct{}

func (ml *MaterialLoader) Load(fsys fs.FS, filename string, params interface{}) (*metadata.Resource, error) {
	text, err := readText(fsys, filename)
	if err != nil {
		return nil, err
	}
	return &metadata.Resource{
		Name:     strings.TrimSuffix(path.Base(filename), path.Ext(filename)),
		FullPath: filename,
		Type:     metadata.ResourceTypeMaterial,
		DataSize: uint64(len(text)),
		Data:     text,
	}, nil
}

func (ml *MaterialLoader) Unload(*metadata.Resource) error {
	return nil
}
