// Package imaging normalizes uploaded item photos to bounded JPEGs.
package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"net/http"

	"golang.org/x/image/draw"
	"golang.org/x/image/webp"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported image format")
	ErrTooLarge          = errors.New("image exceeds the upload limit")
)

// Options bound the accepted input and the stored output.
type Options struct {
	MaxDimension int   // longest side of the stored photo, in pixels
	Quality      int   // JPEG quality, 1-100
	MaxBytes     int64 // largest accepted upload
}

// DefaultOptions are used by Process.
var DefaultOptions = Options{
	MaxDimension: 1024,
	Quality:      85,
	MaxBytes:     10 << 20,
}

// decoders by sniffed content type. Client headers are never trusted.
var decoders = map[string]func(io.Reader) (image.Image, error){
	"image/jpeg": jpeg.Decode,
	"image/png":  png.Decode,
	"image/webp": webp.Decode,
}

// Photo is an encoded, normalized photo.
type Photo struct {
	Data        []byte
	ContentType string
	Width       int
	Height      int
}

// Process normalizes a photo with DefaultOptions.
func Process(r io.Reader) (*Photo, error) {
	return ProcessWith(r, DefaultOptions)
}

// ProcessWith sniffs the format of r, decodes it, downscales it so neither
// side exceeds opts.MaxDimension, and re-encodes it as JPEG.
func ProcessWith(r io.Reader, opts Options) (*Photo, error) {
	if opts.MaxBytes > 0 {
		r = io.LimitReader(r, opts.MaxBytes+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading image data: %w", err)
	}
	if opts.MaxBytes > 0 && int64(len(data)) > opts.MaxBytes {
		return nil, ErrTooLarge
	}

	detected := http.DetectContentType(data)
	decode, ok := decoders[detected]
	if !ok {
		return nil, fmt.Errorf("%w: %s (JPEG, PNG and WebP accepted)", ErrUnsupportedFormat, detected)
	}

	img, err := decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", detected, err)
	}

	if opts.MaxDimension > 0 {
		img = downscale(img, opts.MaxDimension)
	}

	quality := opts.Quality
	if quality <= 0 || quality > 100 {
		quality = jpeg.DefaultQuality
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("encoding JPEG: %w", err)
	}

	b := img.Bounds()
	return &Photo{
		Data:        buf.Bytes(),
		ContentType: "image/jpeg",
		Width:       b.Dx(),
		Height:      b.Dy(),
	}, nil
}

// downscale resizes img so neither side exceeds maxDim, keeping the aspect
// ratio. Smaller images are returned as is.
func downscale(img image.Image, maxDim int) image.Image {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w <= maxDim && h <= maxDim {
		return img
	}

	newW, newH := maxDim, maxDim
	if w > h {
		newH = max(1, h*maxDim/w)
	} else {
		newW = max(1, w*maxDim/h)
	}

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
	return dst
}
