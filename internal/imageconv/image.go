// Package imageconv implements the image media handler: jpg, jpeg, png, gif,
// heic and webp sources are decoded in memory and re-encoded as high-quality
// JPEG with their EXIF block carried over.
//
// Pixels are kept as stored (no auto-orientation) because the EXIF
// orientation tag travels with them. Colors are converted from the source's
// embedded ICC profile (untagged sources are read as sRGB) into the
// configured output space, whose profile is embedded in the JPEG.
package imageconv

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"io"
	"os"
	"strings"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	"github.com/jdeng/goheif"

	"github.com/backmassage/quickconv/internal/config"
	"github.com/backmassage/quickconv/internal/display"
	"github.com/backmassage/quickconv/internal/media"
)

// Handler converts image sources to JPEG. Build it with [New].
type Handler struct {
	opts config.ImageOptions
}

// New returns an image handler with fixed encode options.
func New(opts config.ImageOptions) *Handler {
	return &Handler{opts: opts}
}

func (h *Handler) Kind() media.Kind { return media.KindImage }

func (h *Handler) Extensions() []string {
	return []string{"jpg", "jpeg", "png", "gif", "heic", "webp"}
}

func (h *Handler) OutputExt() string { return "jpg" }

// Picture is the decoded form of an image file.
type Picture struct {
	Path   string
	Format string // Source extension, lowercase.
	Image  image.Image
	EXIF   []byte // TIFF-structured EXIF payload; nil when absent or unreadable.
	ICC    []byte // Embedded source profile; nil when untagged.

	space *rgbSpace // Parsed from ICC; nil when untagged or not matrix/TRC.
}

// sourceSpace is the space pixels are stored in; untagged means sRGB.
func (p *Picture) sourceSpace() *rgbSpace {
	if p.space != nil {
		return p.space
	}
	return spaceSRGB
}

// Describe returns dimensions, source format and metadata notes.
func (p *Picture) Describe() string {
	b := p.Image.Bounds()
	parts := []string{fmt.Sprintf("%dx%d %s", b.Dx(), b.Dy(), p.Format)}
	if len(p.EXIF) > 0 {
		parts = append(parts, "EXIF "+display.FormatBytes(int64(len(p.EXIF))))
	}
	switch {
	case p.space != nil && p.space.Name != "":
		parts = append(parts, "ICC "+p.space.Name)
	case p.space != nil:
		parts = append(parts, "ICC profile")
	case p.ICC != nil:
		parts = append(parts, "ICC profile not usable, read as sRGB")
	}
	return strings.Join(parts, " | ")
}

// decoders maps extensions to the library that reads them.
var decoders = map[string]func(io.Reader) (image.Image, error){
	"jpg":  decodeImaging,
	"jpeg": decodeImaging,
	"png":  decodeImaging,
	"gif":  decodeImaging,
	"webp": webp.Decode,
	"heic": decodeHEIF,
}

func decodeImaging(r io.Reader) (image.Image, error) {
	return imaging.Decode(r)
}

// decodeHEIF turns panics from the HEVC decoder on malformed input into errors.
func decodeHEIF(r io.Reader) (img image.Image, err error) {
	defer func() {
		if p := recover(); p != nil {
			img, err = nil, fmt.Errorf("heic decoder: %v", p)
		}
	}()
	return goheif.Decode(r)
}

// Decode reads path with the decoder its extension declares. EXIF is
// extracted best-effort; a missing or malformed block never fails decoding.
func (h *Handler) Decode(ctx context.Context, path string) (media.Decoded, error) {
	if err := ctx.Err(); err != nil {
		return nil, media.DecodeError(path, err)
	}
	ext := media.Ext(path)
	decode, ok := decoders[ext]
	if !ok {
		return nil, media.DecodeError(path, media.ErrUnsupportedExt)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, media.DecodeError(path, err)
	}
	img, err := decode(bytes.NewReader(data))
	if err != nil {
		return nil, media.DecodeError(path, fmt.Errorf("%s: %w", ext, err))
	}

	pic := &Picture{Path: path, Format: ext, Image: img}
	if h.opts.KeepEXIF {
		pic.EXIF = ExtractEXIF(ext, data)
	}
	if pic.ICC = ExtractICC(ext, data); pic.ICC != nil {
		if space, err := parseProfile(pic.ICC); err == nil {
			pic.space = space
		}
	}
	return pic, nil
}

// Encode writes d to dst as JPEG at the handler's quality: transparency is
// flattened onto white, colors are converted into the configured profile
// and that profile is embedded as APP2 after the EXIF APP1.
func (h *Handler) Encode(ctx context.Context, d media.Decoded, dst string) error {
	pic, ok := d.(*Picture)
	if !ok {
		return media.EncodeError(dst, fmt.Errorf("image handler cannot encode %T", d))
	}
	if err := ctx.Err(); err != nil {
		return media.EncodeError(dst, err)
	}

	img := flatten(pic.Image)
	target := targetSpace(h.opts.ColorProfile)
	tagged := !isGray(img)
	if tagged {
		var err error
		if img, err = toSpace(img, pic.sourceSpace(), target); err != nil {
			return media.EncodeError(dst, fmt.Errorf("%s to %s: %w", pic.sourceSpace().Name, target.Name, err))
		}
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(h.opts.Quality)); err != nil {
		return media.EncodeError(dst, err)
	}

	out := buf.Bytes()
	if tagged {
		var err error
		if out, err = InsertICC(out, buildProfile(target)); err != nil {
			return media.EncodeError(dst, err)
		}
	}
	if h.opts.KeepEXIF && len(pic.EXIF) > 0 {
		if withExif, err := InsertEXIF(out, pic.EXIF); err == nil {
			out = withExif
		}
	}

	if err := writeFile(dst, out); err != nil {
		return media.EncodeError(dst, err)
	}
	return nil
}

// isGray reports single-channel images, which are written as grayscale
// JPEG and carry no RGB profile.
func isGray(img image.Image) bool {
	switch img.(type) {
	case *image.Gray, *image.Gray16:
		return true
	}
	return false
}

// flatten composites images that may carry alpha onto an opaque white
// background; JPEG has no alpha channel.
func flatten(img image.Image) image.Image {
	if o, ok := img.(interface{ Opaque() bool }); ok && o.Opaque() {
		return img
	}
	b := img.Bounds()
	bg := imaging.New(b.Dx(), b.Dy(), color.White)
	return imaging.Overlay(bg, img, image.Pt(0, 0), 1.0)
}

func writeFile(path string, data []byte) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
