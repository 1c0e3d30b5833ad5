package codegrabber

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"

	"github.com/gabriel-vasile/mimetype"
	"golang.org/x/image/draw"

	"github.com/codegrabber/codegrabber/backend"
)

const (
	maxImageWidth  = 1600
	maxImagePixels = 40_000_000
	jpegQuality    = 85
	maxUploadSize  = 10 << 20 // 10MB
)

// prepareUpload reads the upload into memory, sniffs its content type and
// downscales PNG and JPEG images wider than maxImageWidth. Other files pass
// through unchanged.
func prepareUpload(up backend.Upload) (backend.Upload, error) {
	data, err := io.ReadAll(io.LimitReader(up.Body, maxUploadSize+1))
	if err != nil {
		return backend.Upload{}, fmt.Errorf("read upload: %w", err)
	}
	if len(data) > maxUploadSize {
		return backend.Upload{}, &FormError{Message: "File too large (max 10MB)."}
	}
	if len(data) == 0 {
		return backend.Upload{}, &FormError{Message: "The selected file is empty."}
	}

	mt := mimetype.Detect(data).String()
	if mt == "application/octet-stream" && up.ContentType != "" {
		mt = up.ContentType
	}

	switch mt {
	case "image/png", "image/jpeg":
		resized, err := processImage(data, mt)
		if err != nil {
			return backend.Upload{}, &FormError{Message: "Invalid image: " + err.Error(), Err: err}
		}
		data = resized
	}

	return backend.Upload{
		Name:        up.Name,
		ContentType: mt,
		Size:        int64(len(data)),
		Body:        bytes.NewReader(data),
	}, nil
}

// processImage decodes an image and, when it is wider than maxImageWidth,
// scales it down keeping its aspect ratio and format. Images that fit are
// returned as-is. Images declaring more than maxImagePixels are rejected
// before any pixel data is decoded.
func processImage(data []byte, mimeType string) ([]byte, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	if int64(cfg.Width)*int64(cfg.Height) > maxImagePixels {
		return nil, fmt.Errorf("%dx%d pixels is too large", cfg.Width, cfg.Height)
	}
	if cfg.Width <= maxImageWidth {
		return data, nil
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	bounds := img.Bounds()
	newH := bounds.Dy() * maxImageWidth / bounds.Dx()
	if newH < 1 {
		newH = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, maxImageWidth, newH))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)

	var buf bytes.Buffer
	switch mimeType {
	case "image/png":
		err = png.Encode(&buf, dst)
	default:
		err = jpeg.Encode(&buf, dst, &jpeg.Options{Quality: jpegQuality})
	}
	if err != nil {
		return nil, fmt.Errorf("encode image: %w", err)
	}
	return buf.Bytes(), nil
}
