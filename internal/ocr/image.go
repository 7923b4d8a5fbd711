package ocr

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// PrepareOptions controls how a screenshot is conditioned before OCR.
type PrepareOptions struct {
	UpscaleBelow int     // images shorter than this are upscaled x2; 0 disables
	PreviewFrom  float64 // preview keeps the image from this fraction of its height down
	Quality      int     // JPEG quality; default 92
}

// Prepared is a decoded screenshot ready for recognition and review.
type Prepared struct {
	OCRImage []byte // JPEG sent to the recognizer
	Width    int    // width of OCRImage, used for the edge margin
	Height   int
	Preview  []byte // JPEG crop of the leaderboard area for the operator
}

// Prepare decodes a screenshot, upscales short images with Catmull-Rom, and cuts the
// review preview.
func Prepare(data []byte, opts PrepareOptions) (Prepared, error) {
	if opts.Quality <= 0 {
		opts.Quality = 92
	}
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return Prepared{}, fmt.Errorf("decode image: %w", err)
	}
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return Prepared{}, fmt.Errorf("decode image: empty bounds")
	}

	from := opts.PreviewFrom
	if from < 0 || from >= 1 {
		from = 0
	}
	cropTop := b.Min.Y + int(float64(h)*from)
	crop := image.NewRGBA(image.Rect(0, 0, w, b.Max.Y-cropTop))
	draw.Copy(crop, image.Point{}, src, image.Rect(b.Min.X, cropTop, b.Max.X, b.Max.Y), draw.Src, nil)
	preview, err := encodeJPEG(crop, opts.Quality)
	if err != nil {
		return Prepared{}, err
	}

	var target image.Image = src
	if opts.UpscaleBelow > 0 && h < opts.UpscaleBelow {
		dst := image.NewRGBA(image.Rect(0, 0, w*2, h*2))
		draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Src, nil)
		target = dst
	}
	ocrImage, err := encodeJPEG(target, opts.Quality)
	if err != nil {
		return Prepared{}, err
	}

	tb := target.Bounds()
	return Prepared{
		OCRImage: ocrImage,
		Width:    tb.Dx(),
		Height:   tb.Dy(),
		Preview:  preview,
	}, nil
}

func encodeJPEG(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}
