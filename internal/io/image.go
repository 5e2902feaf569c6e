package ioutils

import (
	"bytes"
	"context"
	"image"
	_ "image/gif" // GIF decoder registration
	"image/jpeg"
	_ "image/png" // PNG decoder registration

	"golang.org/x/image/draw"
)

// ImageService processes album cover art before it is written next to
// the tracks.
//
// ImageService is used to:
//   - Shrink images to fit maximum dimensions
//   - Convert images to JPEG format
//
// Example usage:
//
//	svc := NewImageService()
//	jpegBytes, err := svc.PrepareCoverArt(ctx, raw, 1000, true)
type ImageService struct{}

// NewImageService creates a new ImageService.
func NewImageService() *ImageService {
	return &ImageService{}
}

// PrepareCoverArt applies the configured cover art processing.
//
// A maxSize of zero or less skips resizing. When neither resizing nor JPEG
// conversion is requested the data is returned untouched. Resizing always
// produces JPEG output.
func (s *ImageService) PrepareCoverArt(ctx context.Context, data []byte, maxSize int, toJPEG bool) ([]byte, error) {
	if maxSize > 0 {
		return s.ResizeImage(ctx, data, maxSize, maxSize)
	}
	if toJPEG {
		return s.ConvertToJPEG(ctx, data)
	}
	return data, nil
}

// ResizeImage resizes an image to fit within the specified maximum dimensions.
//
// The aspect ratio is preserved and images that already fit are only
// re-encoded. The Catmull-Rom kernel is used for scaling and the result is
// JPEG-encoded at quality 90.
//
// Example:
//
//	// A 1500x1000 image becomes 1000x667
//	resized, err := svc.ResizeImage(ctx, imageData, 1000, 1000)
func (s *ImageService) ResizeImage(ctx context.Context, data []byte, maxWidth, maxHeight int) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	if width > maxWidth || height > maxHeight {
		ratio := float64(width) / float64(height)
		if float64(maxWidth)/float64(maxHeight) > ratio {
			width = int(float64(maxHeight) * ratio)
			height = maxHeight
		} else {
			height = int(float64(maxWidth) / ratio)
			width = maxWidth
		}
	}

	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)

	return encodeJPEG(dst)
}

// ConvertToJPEG re-encodes an image (JPEG, PNG or GIF) as JPEG at quality 90.
func (s *ImageService) ConvertToJPEG(ctx context.Context, data []byte) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	return encodeJPEG(img)
}

func encodeJPEG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
