package images

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"log/slog"
	"os"
	"path/filepath"

	_ "image/gif"
	_ "image/png"

	"github.com/google/uuid"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

const (
	// MaxWidth is the widest image that is uploaded; wider images are scaled down
	MaxWidth = 800
	// Quality is the JPEG quality of the re-encoded upload
	Quality = 30
)

// ErrPermissionDenied is returned when the image file cannot be read
var ErrPermissionDenied = errors.New("permission denied: we need read access to the image file")

// Processed is a compressed image ready for upload
type Processed struct {
	URI    string // path of the compressed preview file
	Width  int
	Height int
	Base64 string // may be empty, see EncodeBase64
}

// Processor resizes and recompresses images into a cache directory
type Processor struct {
	CacheDir string
	// InlineBase64 controls whether Process fills Processed.Base64
	InlineBase64 bool
}

func NewProcessor(cacheDir string) *Processor {
	return &Processor{CacheDir: cacheDir, InlineBase64: true}
}

// ReadLocal reads an image from disk, mapping permission failures to ErrPermissionDenied
func ReadLocal(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrPermission) {
		return nil, ErrPermissionDenied
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}
	return data, nil
}

// Process decodes data, scales it down to MaxWidth keeping the aspect ratio,
// and writes it as a JPEG at Quality into the cache directory.
func (p *Processor) Process(data []byte) (*Processed, error) {
	src, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	out := resize(src, MaxWidth)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, out, &jpeg.Options{Quality: Quality}); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}

	if err := os.MkdirAll(p.CacheDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	uri := filepath.Join(p.CacheDir, uuid.NewString()+".jpg")
	if err := os.WriteFile(uri, buf.Bytes(), 0600); err != nil {
		return nil, fmt.Errorf("failed to save image: %w", err)
	}

	bounds := out.Bounds()
	result := &Processed{
		URI:    uri,
		Width:  bounds.Dx(),
		Height: bounds.Dy(),
	}
	if p.InlineBase64 {
		result.Base64 = base64.StdEncoding.EncodeToString(buf.Bytes())
	}
	slog.Debug("Image processed", "source_format", format, "width", result.Width, "height", result.Height, "bytes", buf.Len())
	return result, nil
}

// RemovePreview deletes a preview written by Process. A missing file is not an error.
func RemovePreview(uri string) error {
	if uri == "" {
		return nil
	}
	if err := os.Remove(uri); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove preview: %w", err)
	}
	return nil
}

// EncodeBase64 returns the payload of a processed image, reading the
// preview file when the processor did not supply one.
func EncodeBase64(p *Processed) (string, error) {
	if p.Base64 != "" {
		return p.Base64, nil
	}
	data, err := ReadLocal(p.URI)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

func resize(src image.Image, maxWidth int) image.Image {
	b := src.Bounds()
	if b.Dx() <= maxWidth {
		return src
	}
	height := b.Dy() * maxWidth / b.Dx()
	if height < 1 {
		height = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, maxWidth, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Over, nil)
	return dst
}
