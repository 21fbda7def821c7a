package exif

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/go-logr/logr"
	"github.com/rwcarlsen/goexif/tiff"
)

// ErrMalformed is returned for a TIFF structure that cannot be decoded.
var ErrMalformed = errors.New("malformed exif data")

// Decode parses a TIFF-structured EXIF block (the APP1 payload without the
// "Exif\0\0" prefix). The byte order of the block is kept.
func Decode(raw []byte, log logr.Logger) (*Data, error) {
	if len(raw) < 8 {
		return nil, fmt.Errorf("%d byte header: %w", len(raw), ErrMalformed)
	}

	var order binary.ByteOrder
	switch string(raw[:2]) {
	case "II":
		order = binary.LittleEndian
	case "MM":
		order = binary.BigEndian
	default:
		return nil, fmt.Errorf("byte order mark %q: %w", raw[:2], ErrMalformed)
	}
	if order.Uint16(raw[2:]) != 42 {
		return nil, fmt.Errorf("tiff magic %d: %w", order.Uint16(raw[2:]), ErrMalformed)
	}

	d := &Data{order: order, dataType: DataTypeCompressed, log: log}

	next, err := d.readIFD(raw, IFD0, order.Uint32(raw[4:]))
	if err != nil {
		return nil, fmt.Errorf("ifd0: %w", err)
	}

	ifd0 := &d.ifds[IFD0]
	d.follow(raw, ifd0, tagExifIFDPointer, IFDExif)
	d.follow(raw, ifd0, tagGPSIFDPointer, IFDGPS)
	d.follow(raw, &d.ifds[IFDExif], tagInteropIFDPointer, IFDInterop)

	if next != 0 {
		if _, err := d.readIFD(raw, IFD1, next); err != nil {
			// a broken IFD1 only costs us the thumbnail
			log.Info("skipping ifd1", "error", err)
			d.ifds[IFD1] = Content{}
		} else {
			d.readThumbnail(raw)
		}
	}

	return d, nil
}

// readIFD decodes the directory at off into ifd and returns the offset of the
// next directory in the chain.
func (d *Data) readIFD(raw []byte, ifd IFD, off uint32) (uint32, error) {
	if off < 8 || uint64(off) >= uint64(len(raw)) {
		return 0, fmt.Errorf("offset %d outside %d byte block: %w", off, len(raw), ErrMalformed)
	}
	r := bytes.NewReader(raw)
	if _, err := r.Seek(int64(off), io.SeekStart); err != nil {
		return 0, fmt.Errorf("seek: %w", err)
	}

	dir, next, err := tiff.DecodeDir(r, d.order)
	if err == nil {
		for _, t := range dir.Tags {
			if size := Format(t.Type).Size(); size == 0 || len(t.Val) != size*int(t.Count) {
				err = fmt.Errorf("tag %#04x: %d value bytes for %d x %s", t.Id, len(t.Val), t.Count, Format(t.Type))
				break
			}
		}
	}
	if err != nil {
		// goexif rejects the whole directory for one odd entry
		d.log.V(1).Info("walking ifd entries", "ifd", ifd, "error", err)
		return d.walkIFD(raw, ifd, off)
	}

	c := &d.ifds[ifd]
	for _, t := range dir.Tags {
		val := make([]byte, len(t.Val))
		copy(val, t.Val)
		c.Add(&Entry{
			Tag:        Tag(t.Id),
			Format:     Format(t.Type),
			Components: t.Count,
			Data:       val,
		})
	}

	if next < 0 || int64(next) >= int64(len(raw)) {
		return 0, nil
	}
	return uint32(next), nil
}

// walkIFD reads the 12 byte entries of the directory at off one by one.
// Entries of an unknown format keep their 4 byte value field as is; entries
// whose value lies outside the block are dropped.
func (d *Data) walkIFD(raw []byte, ifd IFD, off uint32) (uint32, error) {
	size := uint64(len(raw))
	if uint64(off)+2 > size {
		return 0, fmt.Errorf("entry count at %d: %w", off, ErrMalformed)
	}
	n := uint64(d.order.Uint16(raw[off:]))
	end := uint64(off) + 2 + 12*n
	if end > size {
		return 0, fmt.Errorf("%d entries at %d overrun %d byte block: %w", n, off, size, ErrMalformed)
	}

	c := &d.ifds[ifd]
	for p := uint64(off) + 2; p < end; p += 12 {
		field := raw[p : p+12]
		e := &Entry{
			Tag:        Tag(d.order.Uint16(field)),
			Format:     Format(d.order.Uint16(field[2:])),
			Components: d.order.Uint32(field[4:]),
		}

		l := uint64(e.Format.Size()) * uint64(e.Components)
		switch {
		case e.Format.Size() == 0:
			e.Data = bytes.Clone(field[8:12])
		case l <= 4:
			e.Data = bytes.Clone(field[8 : 8+l])
		default:
			at := uint64(d.order.Uint32(field[8:]))
			if at+l > size {
				d.log.Info("dropping entry with value outside block", "ifd", ifd, "tag", e.Tag, "offset", at, "length", l)
				continue
			}
			e.Data = bytes.Clone(raw[at : at+l])
		}
		c.Add(e)
	}

	if end+4 > size {
		return 0, nil
	}
	next := uint64(d.order.Uint32(raw[end:]))
	if next >= size {
		return 0, nil
	}
	return uint32(next), nil
}

// follow decodes the sub-IFD referenced by pointer tag p in c and removes the
// pointer from c. A sub-IFD that cannot be decoded is recorded as lost.
func (d *Data) follow(raw []byte, c *Content, p Tag, ifd IFD) {
	e := c.Entry(p)
	if e == nil {
		return
	}
	c.Remove(p)

	if len(e.Data) < 4 {
		d.log.Info("short ifd pointer", "ifd", ifd, "size", len(e.Data))
		d.lost = append(d.lost, ifd)
		return
	}
	if _, err := d.readIFD(raw, ifd, d.order.Uint32(e.Data)); err != nil {
		d.log.Info("skipping sub-ifd", "ifd", ifd, "error", err)
		d.ifds[ifd] = Content{}
		d.lost = append(d.lost, ifd)
	}
}

// readThumbnail extracts the JPEG thumbnail referenced from IFD1.
func (d *Data) readThumbnail(raw []byte) {
	c := &d.ifds[IFD1]
	off := c.Entry(tagThumbnailOffset)
	n := c.Entry(tagThumbnailLength)
	c.Remove(tagThumbnailOffset)
	c.Remove(tagThumbnailLength)
	if off == nil || n == nil {
		return
	}

	start, ok1 := d.uint(off)
	size, ok2 := d.uint(n)
	if !ok1 || !ok2 || size == 0 || start+size > uint64(len(raw)) {
		d.log.Info("thumbnail out of bounds", "offset", start, "length", size, "block", len(raw))
		return
	}
	d.thumbnail = make([]byte, size)
	copy(d.thumbnail, raw[start:start+size])
}

// uint reads the first component of a SHORT or LONG entry.
func (d *Data) uint(e *Entry) (uint64, bool) {
	switch {
	case e.Format == FormatLong && len(e.Data) >= 4:
		return uint64(d.order.Uint32(e.Data)), true
	case e.Format == FormatShort && len(e.Data) >= 2:
		return uint64(d.order.Uint16(e.Data)), true
	}
	return 0, false
}
