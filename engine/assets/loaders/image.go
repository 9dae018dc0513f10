package loaders

import (
	"fmt"
	"image"
	"image/draw"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io/fs"

	"github.com/spaghettifunk/umbra/engine/core"
	"github.com/spaghettifunk/umbra/engine/renderer/metadata"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

type ImageLoader struct{}

func (il *ImageLoader) Load(fsys fs.FS, path string, params interface{}) (*metadata.Resource, error) {
	flip := false
	if typedParams, ok := params.(*metadata.ImageResourceParams); ok && typedParams != nil {
		flip = typedParams.FlipY
	}

	file, err := fsys.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", core.ErrAssetNotFound, path)
	}
	defer file.Close()

	img, format, err := image.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", core.ErrTextureDecode, path, err)
	}

	rgba := toRGBA(img)
	if flip {
		flipVertical(rgba)
	}
	core.LogDebug("decoded %s image %s (%dx%d)", format, path, rgba.Rect.Dx(), rgba.Rect.Dy())

	return &metadata.Resource{
		Name:     path,
		FullPath: path,
		Type:     metadata.ResourceTypeImage,
		DataSize: uint64(len(rgba.Pix)),
		Data: &metadata.ImageResourceData{
			ChannelCount: channelCount(img),
			Width:        uint32(rgba.Rect.Dx()),
			Height:       uint32(rgba.Rect.Dy()),
			Image:        rgba,
		},
	}, nil
}

func (il *ImageLoader) Unload(res *metadata.Resource) error {
	if res != nil {
		res.Data = nil
	}
	return nil
}

// toRGBA returns img as a tightly packed RGBA image with its origin at 0,0.
func toRGBA(img image.Image) *image.RGBA {
	bounds := img.Bounds()
	if rgba, ok := img.(*image.RGBA); ok && bounds.Min == (image.Point{}) && rgba.Stride == 4*bounds.Dx() {
		return rgba
	}
	rgba := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, bounds.Min, draw.Src)
	return rgba
}

func flipVertical(img *image.RGBA) {
	h := img.Rect.Dy()
	row := make([]uint8, img.Stride)
	for y := 0; y < h/2; y++ {
		top := img.Pix[y*img.Stride : (y+1)*img.Stride]
		bottom := img.Pix[(h-1-y)*img.Stride : (h-y)*img.Stride]
		copy(row, top)
		copy(top, bottom)
		copy(bottom, row)
	}
}

func channelCount(img image.Image) uint8 {
	switch img.(type) {
	case *image.Gray, *image.Gray16:
		return 1
	case *image.YCbCr:
		return 3
	default:
		return 4
	}
}
