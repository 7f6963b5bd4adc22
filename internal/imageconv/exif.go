package imageconv

import (
	"bytes"
	"encoding/binary"
	"errors"

	"github.com/jdeng/goheif"
)

var (
	exifHeader = []byte("Exif\x00\x00")
	iccHeader  = []byte("ICC_PROFILE\x00")
	tiffLE     = []byte("II*\x00")
	tiffBE     = []byte("MM\x00*")
	pngMagic   = []byte("\x89PNG\r\n\x1a\n")
)

// maxAPP1Payload is the largest EXIF block that fits one JPEG segment: the
// 16-bit length covers itself (2) and the "Exif\0\0" header (6).
const maxAPP1Payload = 0xFFFF - 2 - 6

// ErrEXIFTooLarge is returned by InsertEXIF when the block exceeds one APP1 segment.
var ErrEXIFTooLarge = errors.New("EXIF block does not fit in a single APP1 segment")

// ExtractEXIF returns the TIFF-structured EXIF payload of a source file,
// or nil when the container carries none or it cannot be located.
func ExtractEXIF(ext string, data []byte) []byte {
	var raw []byte
	switch ext {
	case "jpg", "jpeg":
		raw = jpegSegment(data, 0xE1, exifHeader)
	case "png":
		raw = pngChunk(data, "eXIf")
	case "webp":
		raw = riffChunk(data, "EXIF")
	case "heic":
		raw = heifEXIF(data)
	}
	return normalizeEXIF(raw)
}

// heifEXIF reads the Exif item of a HEIF container. The box parser can panic
// on truncated input, which here only means no metadata.
func heifEXIF(data []byte) (b []byte) {
	defer func() {
		if recover() != nil {
			b = nil
		}
	}()
	b, err := goheif.ExtractExif(bytes.NewReader(data))
	if err != nil {
		return nil
	}
	return b
}

// normalizeEXIF strips any "Exif\0\0" prefix or leading offset so the block
// starts at the TIFF byte-order mark. Returns nil if no TIFF header is found
// near the start.
func normalizeEXIF(b []byte) []byte {
	if len(b) < 8 {
		return nil
	}
	limit := 16
	if limit > len(b)-4 {
		limit = len(b) - 4
	}
	for i := 0; i <= limit; i++ {
		if bytes.HasPrefix(b[i:], tiffLE) || bytes.HasPrefix(b[i:], tiffBE) {
			return b[i:]
		}
	}
	return nil
}

// InsertEXIF returns jpg with an APP1 EXIF segment placed directly after SOI.
func InsertEXIF(jpg, tiff []byte) ([]byte, error) {
	if len(tiff) > maxAPP1Payload {
		return nil, ErrEXIFTooLarge
	}
	return insertAfterSOI(jpg, appSegment(0xE1, exifHeader, tiff))
}

// appSegment builds one JPEG marker segment from the concatenated parts.
func appSegment(marker byte, parts ...[]byte) []byte {
	n := 0
	for _, p := range parts {
		n += len(p)
	}
	seg := make([]byte, 0, 4+n)
	seg = append(seg, 0xFF, marker)
	seg = binary.BigEndian.AppendUint16(seg, uint16(2+n))
	for _, p := range parts {
		seg = append(seg, p...)
	}
	return seg
}

func insertAfterSOI(jpg, segs []byte) ([]byte, error) {
	if len(jpg) < 2 || jpg[0] != 0xFF || jpg[1] != 0xD8 {
		return nil, errors.New("not a JPEG stream")
	}
	out := make([]byte, 0, len(jpg)+len(segs))
	out = append(out, jpg[:2]...)
	out = append(out, segs...)
	out = append(out, jpg[2:]...)
	return out, nil
}

// jpegSegment returns the payload (after header) of the first marker
// segment before SOS whose data starts with header.
func jpegSegment(data []byte, marker byte, header []byte) []byte {
	if segs := jpegSegments(data, marker, header); len(segs) > 0 {
		return segs[0]
	}
	return nil
}

// jpegSegments walks JPEG marker segments up to SOS and returns the payloads
// (after header) of every segment with the given marker whose data starts
// with header.
func jpegSegments(data []byte, marker byte, header []byte) [][]byte {
	if len(data) < 4 || data[0] != 0xFF || data[1] != 0xD8 {
		return nil
	}
	var out [][]byte
	i := 2
	for i+4 <= len(data) {
		if data[i] != 0xFF {
			return out
		}
		m := data[i+1]
		if m == 0xFF { // fill byte
			i++
			continue
		}
		if m == 0xDA || m == 0xD9 { // SOS, EOI
			return out
		}
		n := int(binary.BigEndian.Uint16(data[i+2 : i+4]))
		if n < 2 || i+2+n > len(data) {
			return out
		}
		payload := data[i+4 : i+2+n]
		if m == marker && bytes.HasPrefix(payload, header) {
			out = append(out, payload[len(header):])
		}
		i += 2 + n
	}
	return out
}

// pngChunk returns the data of the first chunk of the given type before IDAT/IEND.
func pngChunk(data []byte, typ string) []byte {
	if !bytes.HasPrefix(data, pngMagic) {
		return nil
	}
	i := len(pngMagic)
	for i+8 <= len(data) {
		n := int(binary.BigEndian.Uint32(data[i : i+4]))
		t := string(data[i+4 : i+8])
		end := i + 8 + n
		if n < 0 || end+4 > len(data) {
			return nil
		}
		if t == typ {
			return data[i+8 : end]
		}
		if t == "IEND" {
			return nil
		}
		i = end + 4 // skip CRC
	}
	return nil
}

// riffChunk returns the data of the first top-level WebP chunk with the given FourCC.
func riffChunk(data []byte, fourcc string) []byte {
	if len(data) < 12 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WEBP" {
		return nil
	}
	i := 12
	for i+8 <= len(data) {
		id := string(data[i : i+4])
		n := int(binary.LittleEndian.Uint32(data[i+4 : i+8]))
		end := i + 8 + n
		if n < 0 || end > len(data) {
			return nil
		}
		if id == fourcc {
			return data[i+8 : end]
		}
		i = end + n%2 // chunks are padded to even length
	}
	return nil
}
