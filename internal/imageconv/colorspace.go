package imageconv

import (
	"errors"
	"image"
	"math"

	"github.com/disintegration/imaging"

	"github.com/backmassage/quickconv/internal/config"
)

// rgbSpace is a matrix/TRC RGB color space: per-channel tone curves to
// linear light, then a matrix to D50 XYZ (rows X, Y, Z; columns R, G, B).
type rgbSpace struct {
	Name  string
	toXYZ [3][3]float64
	trc   [3]func(float64) float64

	// fromLinear is the inverse tone curve, shared by all channels. Only
	// output spaces have one.
	fromLinear func(float64) float64
}

func srgbToLinear(v float64) float64 {
	if v <= 0.04045 {
		return v / 12.92
	}
	return math.Pow((v+0.055)/1.055, 2.4)
}

func srgbFromLinear(v float64) float64 {
	if v <= 0.0031308 {
		return v * 12.92
	}
	return 1.055*math.Pow(v, 1/2.4) - 0.055
}

var srgbCurves = [3]func(float64) float64{srgbToLinear, srgbToLinear, srgbToLinear}

// Output spaces. Colorants are Bradford-adapted to D50; both use the sRGB
// tone curve.
var (
	spaceSRGB = &rgbSpace{
		Name: "sRGB",
		toXYZ: [3][3]float64{
			{0.4360747, 0.3850649, 0.1430804},
			{0.2225045, 0.7168786, 0.0606169},
			{0.0139322, 0.0971045, 0.7141733},
		},
		trc:        srgbCurves,
		fromLinear: srgbFromLinear,
	}
	spaceDisplayP3 = &rgbSpace{
		Name: "Display P3",
		toXYZ: [3][3]float64{
			{0.515121, 0.291977, 0.157104},
			{0.241196, 0.692245, 0.066574},
			{-0.001053, 0.041885, 0.784073},
		},
		trc:        srgbCurves,
		fromLinear: srgbFromLinear,
	}
)

// targetSpace returns the output space for a configured profile.
func targetSpace(p config.ColorProfile) *rgbSpace {
	if p == config.ProfileDisplayP3 {
		return spaceDisplayP3
	}
	return spaceSRGB
}

// sameSpace reports whether converting a to b would be a no-op at 8 bits.
func sameSpace(a, b *rgbSpace) bool {
	const tol = 2e-3
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			if math.Abs(a.toXYZ[r][c]-b.toXYZ[r][c]) > tol {
				return false
			}
		}
	}
	for c := 0; c < 3; c++ {
		for i := 0; i <= 10; i++ {
			v := float64(i) / 10
			if math.Abs(a.trc[c](v)-b.trc[c](v)) > tol {
				return false
			}
		}
	}
	return true
}

var errSingular = errors.New("color space matrix is not invertible")

// encSteps is the resolution of the linear-to-8-bit output table.
const encSteps = 1 << 14

// transform maps 8-bit pixels of one space into another through D50 XYZ.
type transform struct {
	lin [3][256]float64
	m   [3][3]float64
	enc []uint8
}

func newTransform(src, dst *rgbSpace) (*transform, error) {
	inv, ok := invert3(dst.toXYZ)
	if !ok {
		return nil, errSingular
	}
	t := &transform{m: mul3(inv, src.toXYZ), enc: make([]uint8, encSteps+1)}
	for c := 0; c < 3; c++ {
		for i := 0; i < 256; i++ {
			t.lin[c][i] = src.trc[c](float64(i) / 255)
		}
	}
	for i := range t.enc {
		t.enc[i] = to8(dst.fromLinear(float64(i) / encSteps))
	}
	return t, nil
}

func (t *transform) encode(v float64) uint8 {
	return t.enc[int(clamp01(v)*encSteps+0.5)]
}

// apply returns a converted copy of img. Alpha is copied unchanged.
func (t *transform) apply(img image.Image) *image.NRGBA {
	out := imaging.Clone(img)
	w := out.Rect.Dx() * 4
	for y := 0; y < out.Rect.Dy(); y++ {
		row := out.Pix[y*out.Stride : y*out.Stride+w]
		for x := 0; x < w; x += 4 {
			r, g, b := t.lin[0][row[x]], t.lin[1][row[x+1]], t.lin[2][row[x+2]]
			row[x] = t.encode(t.m[0][0]*r + t.m[0][1]*g + t.m[0][2]*b)
			row[x+1] = t.encode(t.m[1][0]*r + t.m[1][1]*g + t.m[1][2]*b)
			row[x+2] = t.encode(t.m[2][0]*r + t.m[2][1]*g + t.m[2][2]*b)
		}
	}
	return out
}

// toSpace converts img from src into dst, returning img itself when the
// spaces match.
func toSpace(img image.Image, src, dst *rgbSpace) (image.Image, error) {
	if sameSpace(src, dst) {
		return img, nil
	}
	t, err := newTransform(src, dst)
	if err != nil {
		return nil, err
	}
	return t.apply(img), nil
}

func clamp01(v float64) float64 {
	switch {
	case v < 0 || math.IsNaN(v):
		return 0
	case v > 1:
		return 1
	}
	return v
}

func to8(v float64) uint8 {
	return uint8(clamp01(v)*255 + 0.5)
}

func mul3(a, b [3][3]float64) [3][3]float64 {
	var m [3][3]float64
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			m[r][c] = a[r][0]*b[0][c] + a[r][1]*b[1][c] + a[r][2]*b[2][c]
		}
	}
	return m
}

func invert3(m [3][3]float64) ([3][3]float64, bool) {
	a, b, c := m[0][0], m[0][1], m[0][2]
	d, e, f := m[1][0], m[1][1], m[1][2]
	g, h, i := m[2][0], m[2][1], m[2][2]

	co0, co1, co2 := e*i-f*h, f*g-d*i, d*h-e*g
	det := a*co0 + b*co1 + c*co2
	if math.Abs(det) < 1e-12 {
		return [3][3]float64{}, false
	}
	return [3][3]float64{
		{co0 / det, (c*h - b*i) / det, (b*f - c*e) / det},
		{co1 / det, (a*i - c*g) / det, (c*d - a*f) / det},
		{co2 / det, (b*g - a*h) / det, (a*e - b*d) / det},
	}, true
}
