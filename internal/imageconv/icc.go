package imageconv

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"
	"unicode/utf16"
)

// maxICCSize bounds decompressed PNG profiles.
const maxICCSize = 4 << 20

// maxAPP2Payload is the profile data one APP2 segment holds after the
// "ICC_PROFILE\0" header and the sequence/count bytes.
const maxAPP2Payload = 0xFFFF - 2 - 12 - 2

var (
	errNotICC           = errors.New("not an ICC profile")
	errNotMatrixShaper  = errors.New("not an RGB matrix/TRC profile")
	errTruncatedProfile = errors.New("truncated ICC profile")
)

// ExtractICC returns the ICC profile embedded in a source file, or nil when
// the container carries none or it cannot be reassembled.
func ExtractICC(ext string, data []byte) []byte {
	switch ext {
	case "jpg", "jpeg":
		return jpegICC(data)
	case "png":
		return pngICC(data)
	case "webp":
		return riffChunk(data, "ICCP")
	case "heic":
		return heifICC(data)
	}
	return nil
}

// jpegICC joins the APP2 ICC_PROFILE segments in sequence order.
func jpegICC(data []byte) []byte {
	segs := jpegSegments(data, 0xE2, iccHeader)
	if len(segs) == 0 {
		return nil
	}
	parts := make([][]byte, len(segs))
	for _, s := range segs {
		if len(s) < 2 {
			return nil
		}
		seq, count := int(s[0]), int(s[1])
		if count != len(segs) || seq < 1 || seq > count || parts[seq-1] != nil {
			return nil
		}
		parts[seq-1] = s[2:]
	}
	return bytes.Join(parts, nil)
}

// pngICC inflates the iCCP chunk: name, NUL, method 0, zlib stream.
func pngICC(data []byte) []byte {
	chunk := pngChunk(data, "iCCP")
	i := bytes.IndexByte(chunk, 0)
	if i < 1 || i+2 > len(chunk) || chunk[i+1] != 0 {
		return nil
	}
	zr, err := zlib.NewReader(bytes.NewReader(chunk[i+2:]))
	if err != nil {
		return nil
	}
	defer zr.Close()
	b, err := io.ReadAll(io.LimitReader(zr, maxICCSize))
	if err != nil || len(b) == 0 {
		return nil
	}
	return b
}

// heifICC returns the profile of the first colr property of type prof or
// rICC. goheif does not parse colr boxes, so the item properties are
// scanned directly.
func heifICC(data []byte) []byte {
	colr := []byte("colr")
	for from := 0; ; {
		i := bytes.Index(data[from:], colr)
		if i < 0 {
			return nil
		}
		i += from
		from = i + len(colr)
		if i < 4 || i+8 > len(data) {
			continue
		}
		if t := string(data[i+4 : i+8]); t != "prof" && t != "rICC" {
			continue
		}
		end := i - 4 + int(binary.BigEndian.Uint32(data[i-4:i]))
		if end < i+8+128 || end > len(data) {
			continue
		}
		return data[i+8 : end]
	}
}

// InsertICC returns jpg with profile split across APP2 segments placed
// directly after SOI.
func InsertICC(jpg, profile []byte) ([]byte, error) {
	count := (len(profile) + maxAPP2Payload - 1) / maxAPP2Payload
	if count == 0 || count > 255 {
		return nil, fmt.Errorf("ICC profile of %d bytes cannot be embedded", len(profile))
	}
	var segs []byte
	for seq := 1; seq <= count; seq++ {
		part := profile[(seq-1)*maxAPP2Payload : min(seq*maxAPP2Payload, len(profile))]
		segs = append(segs, appSegment(0xE2, iccHeader, []byte{byte(seq), byte(count)}, part)...)
	}
	return insertAfterSOI(jpg, segs)
}

// parseProfile reads the description, colorants and tone curves of an RGB
// matrix/TRC profile. LUT-based, gray and CMYK profiles are rejected.
func parseProfile(b []byte) (*rgbSpace, error) {
	if len(b) < 132 || string(b[36:40]) != "acsp" {
		return nil, errNotICC
	}
	if string(b[16:20]) != "RGB " || string(b[20:24]) != "XYZ " {
		return nil, errNotMatrixShaper
	}
	n := int(binary.BigEndian.Uint32(b[128:132]))
	if n > (len(b)-132)/12 {
		return nil, errTruncatedProfile
	}
	tags := make(map[string][]byte, n)
	for i := 0; i < n; i++ {
		e := b[132+12*i:]
		off, size := uint64(binary.BigEndian.Uint32(e[4:8])), uint64(binary.BigEndian.Uint32(e[8:12]))
		if size < 8 || off+size > uint64(len(b)) {
			continue
		}
		tags[string(e[:4])] = b[off : off+size]
	}

	s := &rgbSpace{Name: profileDescription(tags["desc"])}
	for c, sig := range []string{"rXYZ", "gXYZ", "bXYZ"} {
		t := tags[sig]
		if len(t) < 20 || string(t[:4]) != "XYZ " {
			return nil, errNotMatrixShaper
		}
		for r := 0; r < 3; r++ {
			s.toXYZ[r][c] = s15Fixed16(t[8+4*r:])
		}
	}
	for c, sig := range []string{"rTRC", "gTRC", "bTRC"} {
		f, err := parseCurve(tags[sig])
		if err != nil {
			return nil, fmt.Errorf("%s: %w", sig, err)
		}
		s.trc[c] = f
	}
	return s, nil
}

func s15Fixed16(b []byte) float64 {
	return float64(int32(binary.BigEndian.Uint32(b))) / 65536
}

// parseCurve decodes a curv or para tone curve into an encoded-to-linear function.
func parseCurve(b []byte) (func(float64) float64, error) {
	if len(b) < 12 {
		return nil, errNotMatrixShaper
	}
	switch string(b[:4]) {
	case "curv":
		n := int(binary.BigEndian.Uint32(b[8:12]))
		if n > (len(b)-12)/2 {
			return nil, errTruncatedProfile
		}
		switch n {
		case 0:
			return func(v float64) float64 { return v }, nil
		case 1:
			g := float64(binary.BigEndian.Uint16(b[12:14])) / 256
			return func(v float64) float64 { return math.Pow(clamp01(v), g) }, nil
		}
		table := make([]float64, n)
		for i := range table {
			table[i] = float64(binary.BigEndian.Uint16(b[12+2*i:])) / 65535
		}
		return func(v float64) float64 {
			pos := clamp01(v) * float64(n-1)
			i := int(pos)
			if i >= n-1 {
				return table[n-1]
			}
			f := pos - float64(i)
			return table[i]*(1-f) + table[i+1]*f
		}, nil
	case "para":
		fn := int(binary.BigEndian.Uint16(b[8:10]))
		params := [...]int{1, 3, 4, 5, 7}
		if fn >= len(params) || len(b) < 12+4*params[fn] {
			return nil, errTruncatedProfile
		}
		var p [7]float64
		for i := 0; i < params[fn]; i++ {
			p[i] = s15Fixed16(b[12+4*i:])
		}
		return parametricCurve(fn, p), nil
	}
	return nil, errNotMatrixShaper
}

// parametricCurve evaluates the five ICC parametric curve types.
func parametricCurve(fn int, p [7]float64) func(float64) float64 {
	g, a, b, c, d, e, f := p[0], p[1], p[2], p[3], p[4], p[5], p[6]
	pow := func(x float64) float64 {
		if x <= 0 {
			return 0
		}
		return math.Pow(x, g)
	}
	switch fn {
	case 1:
		return func(x float64) float64 {
			if a*x+b >= 0 {
				return pow(a*x + b)
			}
			return 0
		}
	case 2:
		return func(x float64) float64 {
			if a*x+b >= 0 {
				return pow(a*x+b) + c
			}
			return c
		}
	case 3:
		return func(x float64) float64 {
			if x >= d {
				return pow(a*x + b)
			}
			return c * x
		}
	case 4:
		return func(x float64) float64 {
			if x >= d {
				return pow(a*x+b) + e
			}
			return c*x + f
		}
	}
	return pow
}

// profileDescription reads a v2 desc or v4 mluc tag; "" when absent.
func profileDescription(t []byte) string {
	if len(t) < 12 {
		return ""
	}
	switch string(t[:4]) {
	case "desc":
		n := int(binary.BigEndian.Uint32(t[8:12]))
		if n > len(t)-12 {
			return ""
		}
		return strings.TrimRight(string(t[12:12+n]), "\x00")
	case "mluc":
		if len(t) < 28 || binary.BigEndian.Uint32(t[8:12]) == 0 {
			return ""
		}
		n, off := int(binary.BigEndian.Uint32(t[20:24])), int(binary.BigEndian.Uint32(t[24:28]))
		if off < 0 || n < 0 || off+n > len(t) {
			return ""
		}
		u := make([]uint16, n/2)
		for i := range u {
			u[i] = binary.BigEndian.Uint16(t[off+2*i:])
		}
		return strings.TrimRight(string(utf16.Decode(u)), "\x00")
	}
	return ""
}

// buildProfile writes a minimal ICC v2.1 display profile for s: description,
// white point, colorants and a sampled tone curve shared by all channels.
func buildProfile(s *rgbSpace) []byte {
	desc := binary.BigEndian.AppendUint32([]byte("desc\x00\x00\x00\x00"), uint32(len(s.Name)+1))
	desc = append(desc, s.Name...)
	desc = append(desc, 0)
	desc = append(desc, make([]byte, 4+4+2+1+67)...) // empty Unicode and ScriptCode records

	cprt := append([]byte("text\x00\x00\x00\x00"), "No copyright, use freely\x00"...)

	xyz := func(x, y, z float64) []byte {
		b := []byte("XYZ \x00\x00\x00\x00")
		for _, v := range []float64{x, y, z} {
			b = binary.BigEndian.AppendUint32(b, uint32(int32(math.Round(v*65536))))
		}
		return b
	}

	const curvePoints = 1024
	curv := binary.BigEndian.AppendUint32([]byte("curv\x00\x00\x00\x00"), curvePoints)
	for i := 0; i < curvePoints; i++ {
		v := s.trc[0](float64(i) / (curvePoints - 1))
		curv = binary.BigEndian.AppendUint16(curv, uint16(math.Round(clamp01(v)*65535)))
	}

	type tag struct {
		sig  string
		data []byte
	}
	m := s.toXYZ
	tags := []tag{
		{"desc", desc},
		{"cprt", cprt},
		{"wtpt", xyz(0.9642, 1.0, 0.8249)},
		{"rXYZ", xyz(m[0][0], m[1][0], m[2][0])},
		{"gXYZ", xyz(m[0][1], m[1][1], m[2][1])},
		{"bXYZ", xyz(m[0][2], m[1][2], m[2][2])},
		{"rTRC", curv},
		{"gTRC", nil}, // shares rTRC
		{"bTRC", nil},
	}

	header := make([]byte, 128)
	dataStart := len(header) + 4 + 12*len(tags)
	table := binary.BigEndian.AppendUint32(nil, uint32(len(tags)))
	var body []byte
	var curvOff, curvLen int
	for _, t := range tags {
		off, size := dataStart+len(body), len(t.data)
		if t.data == nil {
			off, size = curvOff, curvLen
		} else {
			body = append(body, t.data...)
			for len(body)%4 != 0 {
				body = append(body, 0)
			}
		}
		if t.sig == "rTRC" {
			curvOff, curvLen = off, size
		}
		table = append(table, t.sig...)
		table = binary.BigEndian.AppendUint32(table, uint32(off))
		table = binary.BigEndian.AppendUint32(table, uint32(size))
	}

	total := len(header) + len(table) + len(body)
	binary.BigEndian.PutUint32(header[0:], uint32(total))
	binary.BigEndian.PutUint32(header[8:], 0x02100000)
	copy(header[12:], "mntr")
	copy(header[16:], "RGB ")
	copy(header[20:], "XYZ ")
	binary.BigEndian.PutUint16(header[24:], 2024)
	binary.BigEndian.PutUint16(header[26:], 1)
	binary.BigEndian.PutUint16(header[28:], 1)
	copy(header[36:], "acsp")
	for i, v := range []float64{0.9642, 1.0, 0.8249} {
		binary.BigEndian.PutUint32(header[68+4*i:], uint32(int32(math.Round(v*65536))))
	}

	out := make([]byte, 0, total)
	out = append(out, header...)
	out = append(out, table...)
	return append(out, body...)
}
