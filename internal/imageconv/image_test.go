package imageconv

import (
	"bytes"
	"context"
	"encoding/binary"
	"hash/crc32"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/backmassage/quickconv/internal/config"
	"github.com/backmassage/quickconv/internal/media"
)

// sampleTIFF is a minimal little-endian TIFF header with an empty IFD.
var sampleTIFF = []byte("II*\x00\x08\x00\x00\x00\x00\x00\x00\x00\x00\x00")

func newHandler() *Handler {
	cfg := config.DefaultConfig()
	return New(cfg.ImageOptions())
}

func solid(w, h int, c color.Color) *image.NRGBA {
	return imaging.New(w, h, c)
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func encodeJPEG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}))
	return buf.Bytes()
}

// withPNGChunk inserts a chunk right after IHDR.
func withPNGChunk(data []byte, typ string, payload []byte) []byte {
	const afterIHDR = 8 + 4 + 4 + 13 + 4
	chunk := binary.BigEndian.AppendUint32(nil, uint32(len(payload)))
	chunk = append(chunk, typ...)
	chunk = append(chunk, payload...)
	crc := crc32.ChecksumIEEE(append([]byte(typ), payload...))
	chunk = binary.BigEndian.AppendUint32(chunk, crc)

	out := append([]byte{}, data[:afterIHDR]...)
	out = append(out, chunk...)
	return append(out, data[afterIHDR:]...)
}

func writeTemp(t *testing.T, name string, data []byte) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, data, 0o644))
	return p
}

func convert(t *testing.T, h *Handler, src string) (image.Image, []byte) {
	t.Helper()
	d, err := h.Decode(context.Background(), src)
	require.NoError(t, err)
	dst := filepath.Join(t.TempDir(), "out.jpg")
	require.NoError(t, h.Encode(context.Background(), d, dst))

	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	img, err := jpeg.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	return img, data
}

func TestHandler_Descriptor(t *testing.T) {
	h := newHandler()
	assert.Equal(t, media.KindImage, h.Kind())
	assert.Equal(t, "jpg", h.OutputExt())
	assert.ElementsMatch(t, []string{"jpg", "jpeg", "png", "gif", "heic", "webp"}, h.Extensions())
}

func TestConvert_PNGKeepsDimensions(t *testing.T) {
	src := writeTemp(t, "shot.png", encodePNG(t, solid(40, 30, color.NRGBA{200, 10, 10, 255})))
	img, _ := convert(t, newHandler(), src)
	assert.Equal(t, 40, img.Bounds().Dx())
	assert.Equal(t, 30, img.Bounds().Dy())

	r, g, b, _ := img.At(20, 15).RGBA()
	assert.InDelta(t, 200, r>>8, 6)
	assert.InDelta(t, 10, g>>8, 6)
	assert.InDelta(t, 10, b>>8, 6)
}

func TestConvert_TransparencyFlattenedOntoWhite(t *testing.T) {
	src := writeTemp(t, "clear.png", encodePNG(t, solid(8, 8, color.NRGBA{0, 0, 0, 0})))
	img, _ := convert(t, newHandler(), src)

	r, g, b, _ := img.At(4, 4).RGBA()
	assert.Greater(t, r>>8, uint32(245))
	assert.Greater(t, g>>8, uint32(245))
	assert.Greater(t, b>>8, uint32(245))
}

func TestConvert_GIFFirstFrame(t *testing.T) {
	pal := image.NewPaletted(image.Rect(0, 0, 6, 4), color.Palette{color.Black, color.White})
	var buf bytes.Buffer
	require.NoError(t, gif.Encode(&buf, pal, nil))

	img, _ := convert(t, newHandler(), writeTemp(t, "anim.gif", buf.Bytes()))
	assert.Equal(t, image.Rect(0, 0, 6, 4), img.Bounds())
}

func TestConvert_CarriesJPEGExif(t *testing.T) {
	base := encodeJPEG(t, solid(16, 16, color.Gray{128}))
	withExif, err := InsertEXIF(base, sampleTIFF)
	require.NoError(t, err)
	src := writeTemp(t, "IMG_0001.JPG", withExif)

	d, err := newHandler().Decode(context.Background(), src)
	require.NoError(t, err)
	assert.Equal(t, sampleTIFF, d.(*Picture).EXIF)
	assert.Contains(t, d.Describe(), "EXIF")

	_, out := convert(t, newHandler(), src)
	assert.Equal(t, sampleTIFF, ExtractEXIF("jpg", out))
}

func TestConvert_CarriesPNGExif(t *testing.T) {
	data := withPNGChunk(encodePNG(t, solid(4, 4, color.White)), "eXIf", sampleTIFF)
	_, out := convert(t, newHandler(), writeTemp(t, "scan.png", data))
	assert.Equal(t, sampleTIFF, ExtractEXIF("jpg", out))
}

func TestConvert_NoExifOption(t *testing.T) {
	base := encodeJPEG(t, solid(4, 4, color.White))
	withExif, err := InsertEXIF(base, sampleTIFF)
	require.NoError(t, err)

	cfg := config.DefaultConfig()
	cfg.KeepEXIF = false
	_, out := convert(t, New(cfg.ImageOptions()), writeTemp(t, "a.jpg", withExif))
	assert.Nil(t, ExtractEXIF("jpg", out))
}

func TestConvert_QualityAffectsSize(t *testing.T) {
	noisy := image.NewNRGBA(image.Rect(0, 0, 64, 64))
	for i := range noisy.Pix {
		noisy.Pix[i] = uint8(i * 7919 % 251)
	}
	for i := 3; i < len(noisy.Pix); i += 4 {
		noisy.Pix[i] = 255
	}
	src := writeTemp(t, "noise.png", encodePNG(t, noisy))

	low := config.DefaultConfig()
	low.ImageQuality = 20
	_, small := convert(t, New(low.ImageOptions()), src)
	_, large := convert(t, newHandler(), src)
	assert.Less(t, len(small), len(large))
}

func TestDecode_CorruptFile(t *testing.T) {
	src := writeTemp(t, "broken.png", []byte("\x89PNG\r\n\x1a\nnot really"))
	_, err := newHandler().Decode(context.Background(), src)
	require.Error(t, err)
	assert.Equal(t, media.StageDecode, media.StageOf(err))
}

func TestDecode_UnsupportedExtension(t *testing.T) {
	_, err := newHandler().Decode(context.Background(), "scan.tiff")
	assert.ErrorIs(t, err, media.ErrUnsupportedExt)
}

func TestDecode_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newHandler().Decode(ctx, "a.png")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEncode_WrongDecodedType(t *testing.T) {
	err := newHandler().Encode(context.Background(), fakeDecoded{}, "x.jpg")
	assert.Equal(t, media.StageEncode, media.StageOf(err))
}

type fakeDecoded struct{}

func (fakeDecoded) Describe() string { return "" }

func TestDecode_GarbageHEIC(t *testing.T) {
	src := writeTemp(t, "photo.heic", []byte("\x00\x00\x00\x18ftypheic\x00\x00\x00\x00truncated"))
	_, err := newHandler().Decode(context.Background(), src)
	require.Error(t, err)
	assert.Equal(t, media.StageDecode, media.StageOf(err))
}

func embeddedSpace(t *testing.T, jpg []byte) *rgbSpace {
	t.Helper()
	prof := ExtractICC("jpg", jpg)
	require.NotNil(t, prof, "output carries no ICC profile")
	s, err := parseProfile(prof)
	require.NoError(t, err)
	return s
}

func assertPixel(t *testing.T, img image.Image, want color.NRGBA, delta float64) {
	t.Helper()
	r, g, b, _ := img.At(img.Bounds().Dx()/2, img.Bounds().Dy()/2).RGBA()
	assert.InDelta(t, want.R, r>>8, delta, "red")
	assert.InDelta(t, want.G, g>>8, delta, "green")
	assert.InDelta(t, want.B, b>>8, delta, "blue")
}

func TestConvert_HEICWithEXIF(t *testing.T) {
	data, err := os.ReadFile("testdata/camel_exif.heic")
	require.NoError(t, err)
	src := writeTemp(t, "IMG_4120.HEIC", data)

	d, err := newHandler().Decode(context.Background(), src)
	require.NoError(t, err)
	assert.Contains(t, d.Describe(), "1596x1064 heic")
	assert.Contains(t, d.Describe(), "EXIF")

	img, out := convert(t, newHandler(), src)
	assert.Equal(t, image.Rect(0, 0, 1596, 1064), img.Bounds())
	assert.Contains(t, string(ExtractEXIF("jpg", out)), "quickconv")
	assert.Equal(t, "sRGB", embeddedSpace(t, out).Name)
}

func TestConvert_WebPWithEXIF(t *testing.T) {
	lossless, err := webp.EncodeLosslessRGBA(solid(10, 6, color.NRGBA{30, 90, 200, 255}))
	require.NoError(t, err)
	data, err := webp.SetMetadata(lossless, sampleTIFF, "EXIF")
	require.NoError(t, err)

	img, out := convert(t, newHandler(), writeTemp(t, "sticker.webp", data))
	assert.Equal(t, image.Rect(0, 0, 10, 6), img.Bounds())
	assert.Equal(t, sampleTIFF, ExtractEXIF("jpg", out))
	assertPixel(t, img, color.NRGBA{30, 90, 200, 255}, 6)
}

func TestDecode_DescribesProfile(t *testing.T) {
	lossless, err := webp.EncodeLosslessRGBA(solid(4, 4, color.White))
	require.NoError(t, err)
	tagged, err := webp.SetMetadata(lossless, buildProfile(spaceDisplayP3), "ICCP")
	require.NoError(t, err)

	plain := encodePNG(t, solid(4, 4, color.White))
	tests := []struct {
		name string
		file string
		data []byte
		want string
	}{
		{"webp display p3", "a.webp", tagged, "ICC Display P3"},
		{"png junk profile", "b.png", pngWithProfile(t, plain, []byte("not a profile")), "ICC profile not usable, read as sRGB"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := newHandler().Decode(context.Background(), writeTemp(t, tt.file, tt.data))
			require.NoError(t, err)
			assert.Contains(t, d.Describe(), tt.want)
		})
	}

	d, err := newHandler().Decode(context.Background(), writeTemp(t, "c.png", plain))
	require.NoError(t, err)
	assert.NotContains(t, d.Describe(), "ICC")
}

func TestConvert_ColorProfileChangesOutput(t *testing.T) {
	src := writeTemp(t, "leaf.png", encodePNG(t, solid(16, 16, color.NRGBA{40, 160, 90, 255})))

	img, srgbOut := convert(t, newHandler(), src)
	assert.Equal(t, "sRGB", embeddedSpace(t, srgbOut).Name)
	assertPixel(t, img, color.NRGBA{40, 160, 90, 255}, 4)

	cfg := config.DefaultConfig()
	cfg.ImageColorProfile = config.ProfileDisplayP3
	img, p3Out := convert(t, New(cfg.ImageOptions()), src)
	assert.Equal(t, "Display P3", embeddedSpace(t, p3Out).Name)
	assertPixel(t, img, color.NRGBA{80, 158, 97, 255}, 4)

	assert.NotEqual(t, srgbOut, p3Out)
}

func TestConvert_DisplayP3SourceToSRGB(t *testing.T) {
	data := pngWithProfile(t, encodePNG(t, solid(8, 8, color.NRGBA{234, 51, 35, 255})), buildProfile(spaceDisplayP3))

	img, out := convert(t, newHandler(), writeTemp(t, "wide.png", data))
	assert.Equal(t, "sRGB", embeddedSpace(t, out).Name)
	assertPixel(t, img, color.NRGBA{255, 0, 0, 255}, 4)
}

func TestConvert_GrayHasNoProfile(t *testing.T) {
	gray := image.NewGray(image.Rect(0, 0, 8, 8))
	for i := range gray.Pix {
		gray.Pix[i] = 128
	}
	_, out := convert(t, newHandler(), writeTemp(t, "scan.png", encodePNG(t, gray)))
	assert.Nil(t, ExtractICC("jpg", out))
}
