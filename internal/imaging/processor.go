package imaging

import (
	"bytes"
	"fmt"

	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/opentype"
)

const (
	watermarkText   = "PREVIEW — SnapStage.ai"
	brandBarText    = "PREVIEW ONLY — Purchase credits to download HD at SnapStage.ai"
	previewMaxWidth = 1024

	// Watermark tiles repeat on a diagonal grid every tileStep pixels.
	tileStep       = 260
	tileAngleDeg   = -30
	brandBarHeight = 40
)

// Artifact is a processed image ready for storage.
type Artifact struct {
	Bytes  []byte
	Width  int
	Height int
}

// Processor turns raw generated images into storable artifacts. Both
// MakePreview and MakeHd are pure transforms over bytes; uploading and URL
// signing live on the blob store.
type Processor struct {
	watermarkFace font.Face
	brandBarFace  font.Face
}

func NewProcessor() (*Processor, error) {
	parsed, err := opentype.Parse(gobold.TTF)
	if err != nil {
		return nil, fmt.Errorf("failed to parse watermark font: %w", err)
	}

	watermarkFace, err := opentype.NewFace(parsed, &opentype.FaceOptions{Size: 28, DPI: 72})
	if err != nil {
		return nil, fmt.Errorf("failed to create watermark face: %w", err)
	}

	brandBarFace, err := opentype.NewFace(parsed, &opentype.FaceOptions{Size: 14, DPI: 72})
	if err != nil {
		return nil, fmt.Errorf("failed to create brand bar face: %w", err)
	}

	return &Processor{
		watermarkFace: watermarkFace,
		brandBarFace:  brandBarFace,
	}, nil
}

// MakePreview resizes the raw image to at most 1024px wide (never
// upscaling), overlays the tiled diagonal watermark plus the opaque bottom
// brand bar, and encodes the result as PNG.
func (p *Processor) MakePreview(raw []byte) (*Artifact, error) {
	img, err := imaging.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to decode source image: %w", err)
	}

	if img.Bounds().Dx() > previewMaxWidth {
		img = imaging.Resize(img, previewMaxWidth, 0, imaging.Lanczos)
	}

	width := img.Bounds().Dx()
	height := img.Bounds().Dy()

	dc := gg.NewContextForImage(img)

	// Diagonal repeating watermark text. The grid extends past the canvas
	// so rotated tiles still cover the corners.
	dc.SetFontFace(p.watermarkFace)
	for y := -height; y < height*2; y += tileStep {
		for x := -width; x < width*2; x += tileStep {
			dc.Push()
			dc.RotateAbout(gg.Radians(tileAngleDeg), float64(x), float64(y))
			dc.SetRGBA(0, 0, 0, 0.15)
			dc.DrawStringAnchored(watermarkText, float64(x)+1, float64(y)+1, 0.5, 0.5)
			dc.SetRGBA(1, 1, 1, 0.38)
			dc.DrawStringAnchored(watermarkText, float64(x), float64(y), 0.5, 0.5)
			dc.Pop()
		}
	}

	// Opaque brand bar along the bottom edge.
	dc.SetRGBA(0, 0, 0, 0.55)
	dc.DrawRectangle(0, float64(height-brandBarHeight), float64(width), brandBarHeight)
	dc.Fill()

	dc.SetFontFace(p.brandBarFace)
	dc.SetRGBA(1, 1, 1, 0.9)
	dc.DrawStringAnchored(brandBarText, float64(width)/2, float64(height)-brandBarHeight/2, 0.5, 0.5)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, dc.Image(), imaging.PNG); err != nil {
		return nil, fmt.Errorf("failed to encode preview: %w", err)
	}

	return &Artifact{Bytes: buf.Bytes(), Width: width, Height: height}, nil
}

// MakeHd re-encodes the raw image as a clean full-resolution PNG with no
// overlay.
func (p *Processor) MakeHd(raw []byte) (*Artifact, error) {
	img, err := imaging.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to decode source image: %w", err)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, fmt.Errorf("failed to encode hd image: %w", err)
	}

	return &Artifact{
		Bytes:  buf.Bytes(),
		Width:  img.Bounds().Dx(),
		Height: img.Bounds().Dy(),
	}, nil
}
