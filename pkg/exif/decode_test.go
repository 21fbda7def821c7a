package exif

import (
	"bytes"
	"encoding/binary"
	"errors"
	"os"
	"testing"

	"github.com/go-logr/logr"
	"github.com/google/go-cmp/cmp"
)

const tagLensModel Tag = 0xa434

// field encodes one little-endian IFD entry with an inline value.
func field(tag Tag, f Format, count, value uint32) []byte {
	b := binary.LittleEndian.AppendUint16(nil, uint16(tag))
	b = binary.LittleEndian.AppendUint16(b, uint16(f))
	b = binary.LittleEndian.AppendUint32(b, count)
	return binary.LittleEndian.AppendUint32(b, value)
}

// ifd0Block returns an Intel TIFF block whose only directory holds fields.
func ifd0Block(fields ...[]byte) []byte {
	b := []byte("II*\x00\x08\x00\x00\x00")
	b = binary.LittleEndian.AppendUint16(b, uint16(len(fields)))
	for _, f := range fields {
		b = append(b, f...)
	}
	return binary.LittleEndian.AppendUint32(b, 0)
}

// unusualBlock returns an encoded block whose Exif IFD carries a UTF-8 entry
// and an entry of an unknown format next to DateTimeOriginal.
func unusualBlock(t *testing.T) []byte {
	t.Helper()
	d := New(logr.Discard())
	d.SetASCII(IFDExif, TagDateTimeOriginal, []byte("2021:07:08 09:10:11"))
	d.Content(IFDExif).Add(&Entry{Tag: tagLensModel, Format: FormatUTF8, Components: 9, Data: []byte("Zeiss 50\x00")})
	d.Content(IFDExif).Add(&Entry{Tag: 0xc000, Format: Format(0x99), Components: 1, Data: []byte{1, 2, 3, 4}})
	raw, err := d.Encode()
	if err != nil {
		t.Fatalf("Encode() error: %v", err)
	}
	return raw
}

func TestDecodeKeepsUnusualEntries(t *testing.T) {
	d, err := Decode(unusualBlock(t), logr.Discard())
	if err != nil {
		t.Fatalf("Decode() error: %v", err)
	}
	if len(d.Lost()) != 0 {
		t.Errorf("Lost() = %v, want none", d.Lost())
	}
	if got := string(d.ASCII(IFDExif, TagDateTimeOriginal)); got != "2021:07:08 09:10:11" {
		t.Errorf("DateTimeOriginal = %q", got)
	}

	want := []*Entry{
		{Tag: tagLensModel, Format: FormatUTF8, Components: 9, Data: []byte("Zeiss 50\x00")},
		{Tag: 0xc000, Format: Format(0x99), Components: 1, Data: []byte{1, 2, 3, 4}},
	}
	got := []*Entry{d.Content(IFDExif).Entry(tagLensModel), d.Content(IFDExif).Entry(0xc000)}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("entries mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeDropsEntryOutsideBlock(t *testing.T) {
	raw := ifd0Block(
		field(TagDateTime, FormatASCII, 20, 0xffff),
		field(tagLensModel, FormatUTF8, 4, 0x00414243),
	)
	d, err := Decode(raw, logr.Discard())
	if err != nil {
		t.Fatalf("Decode() error: %v", err)
	}
	if e := d.Content(IFD0).Entry(TagDateTime); e != nil {
		t.Errorf("DateTime kept with value outside the block: %+v", e)
	}
	if e := d.Content(IFD0).Entry(tagLensModel); e == nil {
		t.Errorf("LensModel dropped")
	}
}

func TestSaveKeepsUnusualEntries(t *testing.T) {
	path := writeJPEG(t, "lens.jpg")
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	out, err := spliceExif(b, unusualBlock(t))
	if err != nil {
		t.Fatalf("spliceExif() error: %v", err)
	}
	if err := os.WriteFile(path, out, 0o600); err != nil {
		t.Fatal(err)
	}

	f := NewFile(logr.Discard())
	if err := f.Load(path, true); err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if err := f.SetRationals(IFDGPS, TagGPSLatitude, []Rational{{50, 1}, {30, 1}, {0, 1}}); err != nil {
		t.Fatalf("SetRationals() error: %v", err)
	}
	if err := f.Save(path); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	r := NewFile(logr.Discard())
	if err := r.Load(path, false); err != nil {
		t.Fatalf("reload error: %v", err)
	}
	if got := string(r.ASCII(IFDExif, TagDateTimeOriginal)); got != "2021:07:08 09:10:11" {
		t.Errorf("DateTimeOriginal = %q after a GPS write", got)
	}
	if got := string(r.ASCII(IFDExif, tagLensModel)); got != "Zeiss 50" {
		t.Errorf("LensModel = %q after a GPS write", got)
	}
	if got := r.Rationals(IFDGPS, TagGPSLatitude); len(got) != 3 {
		t.Errorf("GPSLatitude = %v", got)
	}
}

func TestSaveRefusesLostDirectory(t *testing.T) {
	path := writeJPEG(t, "broken.jpg")
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	out, err := spliceExif(b, ifd0Block(field(tagExifIFDPointer, FormatLong, 1, 0xffff)))
	if err != nil {
		t.Fatalf("spliceExif() error: %v", err)
	}
	if err := os.WriteFile(path, out, 0o600); err != nil {
		t.Fatal(err)
	}

	f := NewFile(logr.Discard())
	if err := f.Load(path, true); err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if got := f.Data().Lost(); len(got) != 1 || got[0] != IFDExif {
		t.Errorf("Lost() = %v, want [%v]", got, IFDExif)
	}
	f.SetRationals(IFDGPS, TagGPSLatitude, []Rational{{1, 1}, {0, 1}, {0, 1}})
	if err := f.Save(path); !errors.Is(err, ErrIncomplete) {
		t.Errorf("Save() error = %v, want %v", err, ErrIncomplete)
	}

	after, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(after, out) {
		t.Errorf("file changed by a refused save")
	}
}
