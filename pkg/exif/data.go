package exif

import (
	"encoding/binary"
	"sort"

	"github.com/go-logr/logr"
)

// DataType describes the kind of image the block belongs to.
type DataType int

const (
	DataTypeCompressed DataType = iota
	DataTypeUncompressed
)

// Option changes how a block is maintained.
type Option int

const (
	// OptionFollowSpecification makes the block add the entries the EXIF
	// standard marks as mandatory.
	OptionFollowSpecification Option = 1 << iota
)

// Entry is a single tag value. Data holds Components values of Format,
// encoded in the byte order of the owning block.
type Entry struct {
	Tag        Tag
	Format     Format
	Components uint32
	Data       []byte
}

// Content is the list of entries of one IFD.
type Content struct {
	entries []*Entry
}

// Entry returns the entry for t, or nil.
func (c *Content) Entry(t Tag) *Entry {
	for _, e := range c.entries {
		if e.Tag == t {
			return e
		}
	}
	return nil
}

// Add attaches e, replacing any entry with the same tag.
func (c *Content) Add(e *Entry) {
	for i, o := range c.entries {
		if o.Tag == e.Tag {
			c.entries[i] = e
			return
		}
	}
	c.entries = append(c.entries, e)
}

// Remove drops the entry for t and reports whether it existed.
func (c *Content) Remove(t Tag) bool {
	for i, e := range c.entries {
		if e.Tag == t {
			c.entries = append(c.entries[:i], c.entries[i+1:]...)
			return true
		}
	}
	return false
}

// Len returns the number of entries.
func (c *Content) Len() int {
	return len(c.entries)
}

// Entries returns the entries sorted by tag.
func (c *Content) Entries() []*Entry {
	es := make([]*Entry, len(c.entries))
	copy(es, c.entries)
	sort.Slice(es, func(i, j int) bool {
		return es[i].Tag < es[j].Tag
	})
	return es
}

// Data is an in-memory EXIF block.
type Data struct {
	order     binary.ByteOrder
	dataType  DataType
	options   Option
	ifds      [ifdCount]Content
	thumbnail []byte
	log       logr.Logger

	// sub-IFDs present in the decoded block that could not be read
	lost []IFD
}

// New returns an empty, well-formed block using Intel byte order.
func New(log logr.Logger) *Data {
	d := &Data{
		order:    binary.LittleEndian,
		dataType: DataTypeCompressed,
		options:  OptionFollowSpecification,
		log:      log,
	}
	d.Fix()
	return d
}

// Lost returns the sub-IFDs that were referenced by the decoded block but
// could not be read. Encoding such a block would discard their tags.
func (d *Data) Lost() []IFD {
	return d.lost
}

// ByteOrder returns the byte order entries are encoded in.
func (d *Data) ByteOrder() binary.ByteOrder {
	return d.order
}

// SetByteOrder re-encodes every numeric entry in o.
func (d *Data) SetByteOrder(o binary.ByteOrder) {
	if o == d.order {
		return
	}
	for i := range d.ifds {
		for _, e := range d.ifds[i].entries {
			swapEntry(e)
		}
	}
	d.order = o
}

// swapEntry reverses the byte order of each numeric component of e.
func swapEntry(e *Entry) {
	width := 0
	switch e.Format {
	case FormatShort, FormatSShort:
		width = 2
	case FormatLong, FormatSLong, FormatFloat, FormatRational, FormatSRational:
		// rationals are two independent 32-bit halves
		width = 4
	case FormatDouble:
		width = 8
	default:
		return
	}
	for off := 0; off+width <= len(e.Data); off += width {
		b := e.Data[off : off+width]
		for l, r := 0, width-1; l < r; l, r = l+1, r-1 {
			b[l], b[r] = b[r], b[l]
		}
	}
}

// DataType returns the data type of the block.
func (d *Data) DataType() DataType {
	return d.dataType
}

// SetDataType sets the data type of the block.
func (d *Data) SetDataType(t DataType) {
	d.dataType = t
}

// Options returns the options set on the block.
func (d *Data) Options() Option {
	return d.options
}

// SetOption enables o.
func (d *Data) SetOption(o Option) {
	d.options |= o
}

// UnsetOption disables o.
func (d *Data) UnsetOption(o Option) {
	d.options &^= o
}

// Content returns the entries of ifd, or nil for an unknown IFD.
func (d *Data) Content(ifd IFD) *Content {
	if ifd < 0 || ifd >= ifdCount {
		return nil
	}
	return &d.ifds[ifd]
}

// Thumbnail returns the JPEG thumbnail referenced from IFD1, if any.
func (d *Data) Thumbnail() []byte {
	return d.thumbnail
}

// SetThumbnail replaces the IFD1 thumbnail. A nil slice removes it.
func (d *Data) SetThumbnail(b []byte) {
	d.thumbnail = b
}

// lookup returns the content of ifd and the entry for t, which may be nil.
func (d *Data) lookup(ifd IFD, t Tag) (*Content, *Entry) {
	c := d.Content(ifd)
	if c == nil {
		d.log.Error(nil, "unknown IFD", "ifd", ifd, "tag", t)
		return nil, nil
	}
	return c, c.Entry(t)
}

// attach adds a new entry to c, creating the GPS version entry first if the
// GPS IFD was empty.
func (d *Data) attach(ifd IFD, c *Content, e *Entry) {
	if ifd == IFDGPS && c.Len() == 0 && e.Tag != TagGPSVersionID && d.options&OptionFollowSpecification != 0 {
		c.Add(&Entry{Tag: TagGPSVersionID, Format: FormatByte, Components: 4, Data: []byte{2, 2, 0, 0}})
	}
	c.Add(e)
}

// SetRationals stores vs as a single RATIONAL entry. An existing entry with the
// same number of components is overwritten in place.
func (d *Data) SetRationals(ifd IFD, t Tag, vs []Rational) {
	c, e := d.lookup(ifd, t)
	if c == nil {
		return
	}

	size := len(vs) * FormatRational.Size()
	var buf []byte
	switch {
	case e == nil:
		e = &Entry{Tag: t}
		buf = make([]byte, size)
		d.attach(ifd, c, e)
	case int(e.Components) == len(vs) && len(e.Data) == size:
		buf = e.Data
	default:
		d.log.V(1).Info("reallocating entry", "ifd", ifd, "tag", t, "from", e.Components, "to", len(vs))
		buf = make([]byte, size)
	}

	e.Format = FormatRational
	e.Components = uint32(len(vs))
	e.Data = buf
	for i, v := range vs {
		d.order.PutUint32(buf[8*i:], v.Numerator)
		d.order.PutUint32(buf[8*i+4:], v.Denominator)
	}
}

// Rationals returns the values of a RATIONAL entry. It returns nil if the tag
// is absent or the entry is not a well-formed RATIONAL.
func (d *Data) Rationals(ifd IFD, t Tag) []Rational {
	_, e := d.lookup(ifd, t)
	if e == nil {
		return nil
	}
	if e.Format != FormatRational {
		d.log.Info("unexpected format", "ifd", ifd, "tag", t, "format", e.Format, "want", FormatRational)
		return nil
	}
	if len(e.Data) < int(e.Components)*FormatRational.Size() {
		d.log.Info("truncated entry", "ifd", ifd, "tag", t, "components", e.Components, "size", len(e.Data))
		return nil
	}

	vs := make([]Rational, 0, e.Components)
	for i := 0; i < int(e.Components); i++ {
		vs = append(vs, Rational{
			Numerator:   d.order.Uint32(e.Data[8*i:]),
			Denominator: d.order.Uint32(e.Data[8*i+4:]),
		})
	}
	return vs
}

// SetASCII stores s as an ASCII entry, appending a NUL terminator to a
// non-empty value that lacks one. An entry of the same total size is
// overwritten in place.
func (d *Data) SetASCII(ifd IFD, t Tag, s []byte) {
	size := len(s)
	if size > 0 && s[size-1] != 0 {
		size++
	}
	d.setRaw(ifd, t, FormatASCII, s, size)
}

// ASCII returns the value of an entry with one trailing NUL removed, or nil if
// the tag is absent.
func (d *Data) ASCII(ifd IFD, t Tag) []byte {
	_, e := d.lookup(ifd, t)
	if e == nil {
		return nil
	}
	b := e.Data
	if n := len(b); n > 0 && b[n-1] == 0 {
		b = b[:n-1]
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

// SetBytes stores b as a BYTE entry.
func (d *Data) SetBytes(ifd IFD, t Tag, b []byte) {
	d.setRaw(ifd, t, FormatByte, b, len(b))
}

// Bytes returns the raw value bytes of an entry, or nil if the tag is absent.
func (d *Data) Bytes(ifd IFD, t Tag) []byte {
	_, e := d.lookup(ifd, t)
	if e == nil {
		return nil
	}
	out := make([]byte, len(e.Data))
	copy(out, e.Data)
	return out
}

// setRaw stores a single-byte-component value of the given size, zero padded.
func (d *Data) setRaw(ifd IFD, t Tag, f Format, b []byte, size int) {
	c, e := d.lookup(ifd, t)
	if c == nil {
		return
	}

	switch {
	case e == nil:
		e = &Entry{Tag: t, Data: make([]byte, size)}
		d.attach(ifd, c, e)
	case len(e.Data) == size:
		// overwrite in place
	default:
		d.log.V(1).Info("reallocating entry", "ifd", ifd, "tag", t, "from", len(e.Data), "to", size)
		e.Data = make([]byte, size)
	}

	n := copy(e.Data, b)
	for i := n; i < size; i++ {
		e.Data[i] = 0
	}
	e.Format = f
	e.Components = uint32(size)
}

// Remove drops a tag and reports whether it existed.
func (d *Data) Remove(ifd IFD, t Tag) bool {
	c := d.Content(ifd)
	if c == nil {
		return false
	}
	return c.Remove(t)
}

// Fix adds the entries the EXIF standard requires and which are missing.
// It does nothing unless OptionFollowSpecification is set.
func (d *Data) Fix() {
	if d.options&OptionFollowSpecification == 0 {
		return
	}

	ifd0 := &d.ifds[IFD0]
	if ifd0.Entry(TagXResolution) == nil {
		d.SetRationals(IFD0, TagXResolution, []Rational{{72, 1}})
	}
	if ifd0.Entry(TagYResolution) == nil {
		d.SetRationals(IFD0, TagYResolution, []Rational{{72, 1}})
	}
	if ifd0.Entry(TagResolutionUnit) == nil {
		d.setShort(IFD0, TagResolutionUnit, 2)
	}
	if d.dataType == DataTypeCompressed && ifd0.Entry(TagYCbCrPositioning) == nil {
		d.setShort(IFD0, TagYCbCrPositioning, 1)
	}

	ex := &d.ifds[IFDExif]
	if ex.Entry(TagExifVersion) == nil {
		ex.Add(&Entry{Tag: TagExifVersion, Format: FormatUndefined, Components: 4, Data: []byte("0210")})
	}
	if ex.Entry(TagComponentsConfiguration) == nil {
		ex.Add(&Entry{Tag: TagComponentsConfiguration, Format: FormatUndefined, Components: 4, Data: []byte{1, 2, 3, 0}})
	}
	if ex.Entry(TagFlashpixVersion) == nil {
		ex.Add(&Entry{Tag: TagFlashpixVersion, Format: FormatUndefined, Components: 4, Data: []byte("0100")})
	}
	if ex.Entry(TagColorSpace) == nil {
		d.setShort(IFDExif, TagColorSpace, 1)
	}

	gps := &d.ifds[IFDGPS]
	if gps.Len() > 0 && gps.Entry(TagGPSVersionID) == nil {
		gps.Add(&Entry{Tag: TagGPSVersionID, Format: FormatByte, Components: 4, Data: []byte{2, 2, 0, 0}})
	}
}

func (d *Data) setShort(ifd IFD, t Tag, v uint16) {
	b := make([]byte, 2)
	d.order.PutUint16(b, v)
	d.ifds[ifd].Add(&Entry{Tag: t, Format: FormatShort, Components: 1, Data: b})
}
