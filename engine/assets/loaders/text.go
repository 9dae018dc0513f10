package loaders

import (
	"fmt"
	"io/fs"
	"strings"

	"github.com/spaghettifunk/umbra/engine/core"
	"github.com/spaghettifunk/umbra/engine/renderer/metadata"
)

// TextLoader reads a file as text with line endings normalised to \n.
type TextLoader struct{}

func (tl *TextLoader) Load(fsys fs.FS, path string, params interface{}) (*metadata.Resource, error) {
	text, err := readText(fsys, path)
	if err != nil {
		return nil, err
	}
	return &metadata.Resource{
		Name:     path,
		FullPath: path,
		Type:     metadata.ResourceTypeText,
		DataSize: uint64(len(text)),
		Data:     text,
	}, nil
}

func (tl *TextLoader) Unload(*metadata.Resource) error {
	return nil
}

func readText(fsys fs.FS, path string) (string, error) {
	data, err := fs.ReadFile(fsys, path)
	if err != nil {
		return "", fmt.Errorf("%w: %s", core.ErrAssetNotFound, path)
	}
	text := strings.ReplaceAll(string(data), "\r\n", "\n")
	return strings.ReplaceAll(text, "\r", "\n"), nil
}
