package ioutils

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"
)

func testPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 0x80, A: 0xff})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestImageService_ResizeImage(t *testing.T) {
	svc := NewImageService()

	out, err := svc.ResizeImage(context.Background(), testPNG(t, 200, 100), 50, 50)
	if err != nil {
		t.Fatalf("ResizeImage: %v", err)
	}

	cfg, err := jpeg.DecodeConfig(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("output is not JPEG: %v", err)
	}
	if cfg.Width != 50 || cfg.Height != 25 {
		t.Errorf("size = %dx%d, want 50x25", cfg.Width, cfg.Height)
	}
}

func TestImageService_PrepareCoverArt(t *testing.T) {
	svc := NewImageService()
	ctx := context.Background()
	raw := testPNG(t, 20, 20)

	same, err := svc.PrepareCoverArt(ctx, raw, 0, false)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(same, raw) {
		t.Error("PrepareCoverArt without options should return the input")
	}

	converted, err := svc.PrepareCoverArt(ctx, raw, 0, true)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := jpeg.DecodeConfig(bytes.NewReader(converted)); err != nil {
		t.Errorf("converted cover is not JPEG: %v", err)
	}

	if _, err := svc.PrepareCoverArt(ctx, []byte("not an image"), 100, false); err == nil {
		t.Error("expected decode error")
	}
}
