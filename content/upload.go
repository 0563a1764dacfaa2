package content

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/image/draw"
)

const (
	maxImageWidth = 800
	jpegQuality   = 80
)

// Upload is an image ready to be stored: already resized and JPEG encoded.
type Upload struct {
	Name        string // original file name
	ContentType string
	Data        []byte
	Width       int
	Height      int
}

// ProcessImage decodes src, scales it down to at most 800px wide and
// re-encodes it as JPEG.
func ProcessImage(src io.Reader, originalName string) (*Upload, error) {
	img, _, err := image.Decode(src)
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w > maxImageWidth {
		newH := max(h*maxImageWidth/w, 1)
		dst := image.NewRGBA(image.Rect(0, 0, maxImageWidth, newH))
		draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
		img = dst
		w, h = maxImageWidth, newH
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return &Upload{
		Name:        originalName,
		ContentType: "image/jpeg",
		Data:        buf.Bytes(),
		Width:       w,
		Height:      h,
	}, nil
}

// UploadKey names an object "<prefix><unix millis>-<slug>.jpg".
func UploadKey(prefix, originalName string, now time.Time) string {
	base := Slugify(strings.TrimSuffix(originalName, filepath.Ext(originalName)))
	if base == "" {
		base = "image"
	}
	return fmt.Sprintf("%s%d-%s.jpg", prefix, now.UnixMilli(), base)
}

// Slugify converts a title to a URL-safe slug.
func Slugify(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	var b strings.Builder
	prev := false
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			prev = false
		default:
			if !prev && b.Len() > 0 {
				b.WriteByte('-')
				prev = true
			}
		}
	}
	return strings.TrimRight(b.String(), "-")
}
