// Package images generates responsive variants of post images: each source
// is decoded once, resized to the configured widths preserving aspect ratio,
// and encoded to the configured formats. Work already recorded in the cache
// is skipped, making repeated builds cheap and idempotent.
package images

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	_ "image/gif"

	"golang.org/x/image/draw"

	berrors "github.com/tverberg/blogsmith/internal/errors"
	"github.com/tverberg/blogsmith/internal/logfields"
)

// Variant is one (width, format) target.
type Variant struct {
	Width  int
	Format string // jpeg|png
}

// Output describes one generated (or cache-hit) variant file.
type Output struct {
	Variant
	Path        string // output path relative to the site root, e.g. images/chart-ab12cd34-480.jpg
	ActualWidth int    // never larger than the source width
	FromCache   bool
}

// Result is the outcome for one source image.
type Result struct {
	Source   string // source path as referenced
	Stem     string // deterministic output stem
	Variants []Output
	Copied   bool // true when the source was passed through unmodified
}

// Pipeline resizes and encodes image variants into an output directory.
type Pipeline struct {
	widths  []int
	formats []string
	quality int
	cache   *Cache
}

// NewPipeline creates an image pipeline. The cache may be nil, in which case
// every variant is regenerated on every run.
func NewPipeline(widths []int, formats []string, quality int, cache *Cache) *Pipeline {
	if quality <= 0 || quality > 100 {
		quality = 85
	}
	return &Pipeline{widths: widths, formats: formats, quality: quality, cache: cache}
}

// decodable extensions; anything else is copied through unchanged.
var decodableExt = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
}

// Process generates all variants for one source image under
// siteDir/images/. Failures to read or decode the source are recoverable
// asset errors; the caller records them as warnings and continues.
func (p *Pipeline) Process(sourcePath, relRef, siteDir string) (Result, error) {
	raw, err := os.ReadFile(sourcePath)
	if err != nil {
		return Result{}, berrors.AssetProcessingError(relRef, err)
	}

	stem := Stem(relRef)
	res := Result{Source: relRef, Stem: stem}

	imagesDir := filepath.Join(siteDir, "images")
	if err := os.MkdirAll(imagesDir, 0o755); err != nil {
		return Result{}, berrors.IOError(err, "create images dir")
	}

	ext := strings.ToLower(filepath.Ext(relRef))
	if !decodableExt[ext] {
		// SVG and friends: no raster variants, pass through.
		outRel := filepath.ToSlash(filepath.Join("images", stem+ext))
		if err := os.WriteFile(filepath.Join(siteDir, "images", stem+ext), raw, 0o644); err != nil {
			return Result{}, berrors.IOError(err, "write passthrough asset")
		}
		res.Copied = true
		res.Variants = []Output{{Variant: Variant{Format: strings.TrimPrefix(ext, ".")}, Path: outRel}}
		return res, nil
	}

	sum := sha256.Sum256(raw)
	sourceHash := hex.EncodeToString(sum[:])

	var src image.Image // decoded lazily, once
	for _, width := range p.widths {
		for _, format := range p.formats {
			outRel := filepath.ToSlash(filepath.Join("images", variantName(stem, width, format)))
			outAbs := filepath.Join(siteDir, filepath.FromSlash(outRel))

			if p.cache != nil {
				if cached, hit, err := p.cache.Lookup(sourceHash, width, format); err == nil && hit && cached == outRel {
					if _, statErr := os.Stat(outAbs); statErr == nil {
						res.Variants = append(res.Variants, Output{
							Variant: Variant{Width: width, Format: format},
							Path:    outRel, ActualWidth: width, FromCache: true,
						})
						slog.Debug("Image variant up to date",
							logfields.Image(relRef), logfields.Width(width), logfields.Format(format))
						continue
					}
				}
			}

			if src == nil {
				src, _, err = image.Decode(bytes.NewReader(raw))
				if err != nil {
					return Result{}, berrors.AssetProcessingError(relRef, fmt.Errorf("decode: %w", err))
				}
			}

			resized, actualWidth := resizeToWidth(src, width)
			encoded, err := p.encode(resized, format)
			if err != nil {
				return Result{}, berrors.AssetProcessingError(relRef, err)
			}
			if err := os.WriteFile(outAbs, encoded, 0o644); err != nil {
				return Result{}, berrors.IOError(err, fmt.Sprintf("write %s", outRel))
			}
			if p.cache != nil {
				if err := p.cache.Store(sourceHash, width, format, outRel); err != nil {
					slog.Warn("Failed to record image variant in cache", logfields.Error(err))
				}
			}

			res.Variants = append(res.Variants, Output{
				Variant: Variant{Width: width, Format: format},
				Path:    outRel, ActualWidth: actualWidth,
			})
			slog.Debug("Image variant generated",
				logfields.Image(relRef), logfields.Width(width), logfields.Format(format))
		}
	}
	return res, nil
}

// resizeToWidth scales img down to the target width preserving aspect ratio.
// Images are never upscaled.
func resizeToWidth(img image.Image, width int) (image.Image, int) {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w <= width {
		return img, w
	}
	newH := h * width / w
	if newH < 1 {
		newH = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, width, newH))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
	return dst, width
}

func (p *Pipeline) encode(img image.Image, format string) ([]byte, error) {
	var buf bytes.Buffer
	switch format {
	case "jpeg":
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: p.quality}); err != nil {
			return nil, fmt.Errorf("encode jpeg: %w", err)
		}
	case "png":
		if err := png.Encode(&buf, img); err != nil {
			return nil, fmt.Errorf("encode png: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported output format %q", format)
	}
	return buf.Bytes(), nil
}

// Stem derives a deterministic, collision-free output stem from the
// reference path: base name plus a short hash of the full reference.
func Stem(relRef string) string {
	base := strings.TrimSuffix(filepath.Base(relRef), filepath.Ext(relRef))
	base = sanitize(base)
	sum := sha256.Sum256([]byte(filepath.ToSlash(relRef)))
	return fmt.Sprintf("%s-%s", base, hex.EncodeToString(sum[:4]))
}

func variantName(stem string, width int, format string) string {
	ext := ".jpg"
	if format == "png" {
		ext = ".png"
	}
	return fmt.Sprintf("%s-%d%s", stem, width, ext)
}

func sanitize(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '-' || r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('-')
		}
	}
	return strings.Trim(b.String(), "-")
}
