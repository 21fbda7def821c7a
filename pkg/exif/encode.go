package exif

import (
	"encoding/binary"
	"fmt"
	"sort"
)

// dir is one IFD laid out for encoding.
type dir struct {
	ifd     IFD
	entries []*Entry
	offset  uint32
	next    uint32
}

func (dr *dir) size() uint32 {
	n := uint32(2 + 12*len(dr.entries) + 4)
	for _, e := range dr.entries {
		if l := uint32(len(e.Data)); l > 4 {
			n += l + l%2
		}
	}
	return n
}

// pointer returns a LONG placeholder entry for a pointer tag.
func pointer(t Tag) *Entry {
	return &Entry{Tag: t, Format: FormatLong, Components: 1, Data: make([]byte, 4)}
}

// Encode serializes the block as a TIFF structure: IFD0, then the Exif,
// Interop and GPS sub-IFDs, then IFD1 followed by the thumbnail.
func (d *Data) Encode() ([]byte, error) {
	entries := func(ifd IFD) []*Entry {
		var es []*Entry
		for _, e := range d.ifds[ifd].Entries() {
			if !encodable(e) {
				d.log.Info("dropping unencodable entry", "ifd", ifd, "tag", e.Tag, "format", e.Format, "components", e.Components, "size", len(e.Data))
				continue
			}
			es = append(es, e)
		}
		return es
	}

	ifd0 := &dir{ifd: IFD0, entries: entries(IFD0)}
	exif := &dir{ifd: IFDExif, entries: entries(IFDExif)}
	interop := &dir{ifd: IFDInterop, entries: entries(IFDInterop)}
	gps := &dir{ifd: IFDGPS, entries: entries(IFDGPS)}
	ifd1 := &dir{ifd: IFD1, entries: entries(IFD1)}

	var exifPtr, gpsPtr, interopPtr, thumbOff, thumbLen *Entry
	if len(interop.entries) > 0 {
		interopPtr = pointer(tagInteropIFDPointer)
		exif.entries = append(exif.entries, interopPtr)
	}
	if len(exif.entries) > 0 {
		exifPtr = pointer(tagExifIFDPointer)
		ifd0.entries = append(ifd0.entries, exifPtr)
	}
	if len(gps.entries) > 0 {
		gpsPtr = pointer(tagGPSIFDPointer)
		ifd0.entries = append(ifd0.entries, gpsPtr)
	}
	if len(d.thumbnail) > 0 {
		thumbOff = pointer(tagThumbnailOffset)
		thumbLen = pointer(tagThumbnailLength)
		ifd1.entries = append(ifd1.entries, thumbOff, thumbLen)
	}

	dirs := []*dir{ifd0}
	for _, dr := range []*dir{exif, interop, gps, ifd1} {
		if len(dr.entries) > 0 {
			dirs = append(dirs, dr)
		}
	}

	off := uint32(8)
	for _, dr := range dirs {
		sortEntries(dr.entries)
		dr.offset = off
		off += dr.size()
	}
	total := off + uint32(len(d.thumbnail))

	put := func(e *Entry, v uint32) {
		if e != nil {
			d.order.PutUint32(e.Data, v)
		}
	}
	put(exifPtr, exif.offset)
	put(gpsPtr, gps.offset)
	put(interopPtr, interop.offset)
	put(thumbOff, off)
	put(thumbLen, uint32(len(d.thumbnail)))
	if len(ifd1.entries) > 0 {
		ifd0.next = ifd1.offset
	}

	buf := make([]byte, total)
	if d.order == binary.LittleEndian {
		copy(buf, "II")
	} else {
		copy(buf, "MM")
	}
	d.order.PutUint16(buf[2:], 42)
	d.order.PutUint32(buf[4:], 8)

	for _, dr := range dirs {
		if err := d.writeDir(buf, dr); err != nil {
			return nil, fmt.Errorf("%s: %w", dr.ifd, err)
		}
	}
	copy(buf[off:], d.thumbnail)

	return buf, nil
}

func (d *Data) writeDir(buf []byte, dr *dir) error {
	if len(dr.entries) > 0xffff {
		return fmt.Errorf("%d entries", len(dr.entries))
	}

	p := dr.offset
	d.order.PutUint16(buf[p:], uint16(len(dr.entries)))
	p += 2
	values := dr.offset + 2 + 12*uint32(len(dr.entries)) + 4

	for _, e := range dr.entries {
		d.order.PutUint16(buf[p:], uint16(e.Tag))
		d.order.PutUint16(buf[p+2:], uint16(e.Format))
		d.order.PutUint32(buf[p+4:], e.Components)
		if l := uint32(len(e.Data)); l > 4 {
			d.order.PutUint32(buf[p+8:], values)
			copy(buf[values:], e.Data)
			values += l + l%2
		} else {
			copy(buf[p+8:p+12], e.Data)
		}
		p += 12
	}
	d.order.PutUint32(buf[p:], dr.next)
	return nil
}

// encodable reports whether e can be written. An entry of an unknown format
// is kept only as its 4 byte value field.
func encodable(e *Entry) bool {
	size := e.Format.Size()
	if size == 0 {
		return len(e.Data) == 4
	}
	return len(e.Data) > 0 && len(e.Data) == size*int(e.Components)
}

func sortEntries(es []*Entry) {
	sort.Slice(es, func(i, j int) bool {
		return es[i].Tag < es[j].Tag
	})
}
