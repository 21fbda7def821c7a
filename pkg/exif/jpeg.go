package exif

import (
	"bytes"
	"errors"
	"fmt"
)

var (
	// ErrNotJPEG is returned for data that does not start with a JPEG SOI marker.
	ErrNotJPEG = errors.New("not a JPEG file")
	// ErrTooLarge is returned when an encoded block does not fit in one APP1 segment.
	ErrTooLarge = errors.New("exif block exceeds APP1 segment size")
)

const (
	markerSOI  = 0xd8
	markerEOI  = 0xd9
	markerSOS  = 0xda
	markerAPP0 = 0xe0
	markerAPP1 = 0xe1

	maxSegment = 0xffff - 2
)

var exifHeader = []byte("Exif\x00\x00")

// segment is a JPEG marker segment. For markers without a payload data is nil.
type segment struct {
	marker byte
	data   []byte
}

func (s segment) isExif() bool {
	return s.marker == markerAPP1 && bytes.HasPrefix(s.data, exifHeader)
}

// standalone reports markers that carry no length field.
func standalone(m byte) bool {
	return m == markerSOI || m == markerEOI || m == 0x01 || (m >= 0xd0 && m <= 0xd7)
}

// splitJPEG splits b into the marker segments before the first SOS and the
// remainder of the file starting at the SOS marker, which is kept verbatim.
func splitJPEG(b []byte) ([]segment, []byte, error) {
	if len(b) < 4 || b[0] != 0xff || b[1] != markerSOI {
		return nil, nil, ErrNotJPEG
	}

	var segs []segment
	p := 2
	for {
		if p >= len(b) {
			return nil, nil, fmt.Errorf("no scan data: %w", ErrNotJPEG)
		}
		if b[p] != 0xff {
			return nil, nil, fmt.Errorf("expected marker at %d, found 0x%02x", p, b[p])
		}
		// skip fill bytes
		for p+1 < len(b) && b[p+1] == 0xff {
			p++
		}
		if p+1 >= len(b) {
			return nil, nil, fmt.Errorf("truncated marker at %d", p)
		}

		m := b[p+1]
		if m == markerSOS || m == markerEOI {
			return segs, b[p:], nil
		}
		if standalone(m) {
			segs = append(segs, segment{marker: m})
			p += 2
			continue
		}

		if p+4 > len(b) {
			return nil, nil, fmt.Errorf("truncated segment 0x%02x at %d", m, p)
		}
		n := int(b[p+2])<<8 | int(b[p+3])
		if n < 2 || p+2+n > len(b) {
			return nil, nil, fmt.Errorf("segment 0x%02x at %d has bad length %d", m, p, n)
		}
		segs = append(segs, segment{marker: m, data: b[p+4 : p+2+n]})
		p += 2 + n
	}
}

// findExif returns the TIFF payload of the first Exif APP1 segment in b.
func findExif(b []byte) ([]byte, bool, error) {
	segs, _, err := splitJPEG(b)
	if err != nil {
		return nil, false, err
	}
	for _, s := range segs {
		if s.isExif() {
			return s.data[len(exifHeader):], true, nil
		}
	}
	return nil, false, nil
}

// spliceExif returns a copy of the JPEG b with its Exif APP1 segments replaced
// by one holding tiff. The new segment goes where the first old one was, or
// after a leading JFIF APP0 segment.
func spliceExif(b []byte, tiff []byte) ([]byte, error) {
	if len(exifHeader)+len(tiff) > maxSegment {
		return nil, fmt.Errorf("%d bytes: %w", len(exifHeader)+len(tiff), ErrTooLarge)
	}

	segs, rest, err := splitJPEG(b)
	if err != nil {
		return nil, err
	}

	app1 := segment{marker: markerAPP1, data: append(append([]byte{}, exifHeader...), tiff...)}
	out := make([]segment, 0, len(segs)+1)
	placed := false
	for _, s := range segs {
		if s.isExif() {
			if !placed {
				out = append(out, app1)
				placed = true
			}
			continue
		}
		out = append(out, s)
	}
	if !placed {
		at := 0
		if len(out) > 0 && out[0].marker == markerAPP0 {
			at = 1
		}
		out = append(out[:at], append([]segment{app1}, out[at:]...)...)
	}

	var buf bytes.Buffer
	buf.Grow(len(b) + len(app1.data))
	buf.Write([]byte{0xff, markerSOI})
	for _, s := range out {
		buf.Write([]byte{0xff, s.marker})
		if standalone(s.marker) {
			continue
		}
		n := len(s.data) + 2
		buf.Write([]byte{byte(n >> 8), byte(n)})
		buf.Write(s.data)
	}
	buf.Write(rest)
	return buf.Bytes(), nil
}
