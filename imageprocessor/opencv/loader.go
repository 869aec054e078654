// Package opencv provides an ImageLoader backed by OpenCV. It decodes
// formats and damaged files the pure Go decoders reject, at the cost of a
// cgo dependency, so it lives apart from the default registry.
package opencv

import (
	"errors"
	"fmt"
	"image"

	"gocv.io/x/gocv"

	"imagededup/imageprocessor"
	"imagededup/imagehash"
)

// Loader reads images with gocv.IMRead in grayscale mode.
type Loader struct {
	imageprocessor.BaseImageLoader
}

// NewLoader creates an OpenCV loader for the given formats. With no formats
// it claims every supported format.
func NewLoader(formats ...imageprocessor.FormatType) *Loader {
	if len(formats) == 0 {
		for _, ext := range imageprocessor.GetSupportedExtensions() {
			formats = append(formats, imageprocessor.GetFileFormat(ext))
		}
	}
	return &Loader{BaseImageLoader: imageprocessor.BaseImageLoader{SupportedFormats: formats}}
}

// LoadImage decodes path into a grayscale raster.
func (l *Loader) LoadImage(path string) (*imagehash.Image, error) {
	mat := gocv.IMRead(path, gocv.IMReadGrayScale)
	defer mat.Close()
	if mat.Empty() {
		return nil, &imagehash.DecodeError{ID: path, Err: errors.New("opencv could not decode image")}
	}

	gray, err := matToGray(mat)
	if err != nil {
		return nil, &imagehash.DecodeError{ID: path, Err: err}
	}
	return &imagehash.Image{ID: path, Gray: gray}, nil
}

// Register binds the loader to every extension of its formats.
func (l *Loader) Register(r *imageprocessor.ImageLoaderRegistry) {
	for _, ext := range imageprocessor.GetSupportedExtensions() {
		format := imageprocessor.GetFileFormat(ext)
		for _, f := range l.SupportedFormats {
			if f == format {
				r.RegisterLoader(ext, l)
			}
		}
	}
}

func matToGray(mat gocv.Mat) (*image.Gray, error) {
	if mat.Type() != gocv.MatTypeCV8UC1 {
		return nil, fmt.Errorf("unexpected matrix type %d", mat.Type())
	}
	rows, cols := mat.Rows(), mat.Cols()
	data, err := mat.DataPtrUint8()
	if err != nil {
		return nil, err
	}
	gray := image.NewGray(image.Rect(0, 0, cols, rows))
	step := mat.Step()
	for y := 0; y < rows; y++ {
		copy(gray.Pix[y*gray.Stride:y*gray.Stride+cols], data[y*step:y*step+cols])
	}
	return gray, nil
}
