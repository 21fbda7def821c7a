// Package exif reads and writes the EXIF block embedded in JPEG files.
//
// The block is kept in memory as a set of image file directories (IFDs), each
// owning a list of raw entries. Entries keep their value bytes in the byte order
// configured on the block, so values survive a load/save cycle untouched unless
// they are explicitly replaced.
package exif

import "fmt"

// IFD identifies a group of tags inside the block.
type IFD int

const (
	IFD0 IFD = iota
	IFD1
	IFDExif
	IFDGPS
	IFDInterop

	ifdCount
)

func (i IFD) String() string {
	switch i {
	case IFD0:
		return "IFD0"
	case IFD1:
		return "IFD1"
	case IFDExif:
		return "Exif"
	case IFDGPS:
		return "GPS"
	case IFDInterop:
		return "Interop"
	}
	return fmt.Sprintf("IFD(%d)", int(i))
}

// Tag is a numeric tag id, unique within an IFD.
type Tag uint16

// Tags in the GPS IFD.
const (
	TagGPSVersionID    Tag = 0x0000
	TagGPSLatitudeRef  Tag = 0x0001
	TagGPSLatitude     Tag = 0x0002
	TagGPSLongitudeRef Tag = 0x0003
	TagGPSLongitude    Tag = 0x0004
	TagGPSAltitudeRef  Tag = 0x0005
	TagGPSAltitude     Tag = 0x0006
)

// Date-time tags. TagDateTime lives in IFD0, the others in the Exif IFD.
const (
	TagDateTime          Tag = 0x0132
	TagDateTimeOriginal  Tag = 0x9003
	TagDateTimeDigitized Tag = 0x9004
)

// Tags added by Fix when the block follows the EXIF standard.
const (
	TagXResolution             Tag = 0x011a
	TagYResolution             Tag = 0x011b
	TagResolutionUnit          Tag = 0x0128
	TagYCbCrPositioning        Tag = 0x0213
	TagExifVersion             Tag = 0x9000
	TagComponentsConfiguration Tag = 0x9101
	TagFlashpixVersion         Tag = 0xa000
	TagColorSpace              Tag = 0xa001
)

// Pointer tags are owned by the encoder and never stored as entries.
const (
	tagExifIFDPointer    Tag = 0x8769
	tagGPSIFDPointer     Tag = 0x8825
	tagInteropIFDPointer Tag = 0xa005
	tagThumbnailOffset   Tag = 0x0201
	tagThumbnailLength   Tag = 0x0202
)

// Format is the TIFF field type of an entry.
type Format uint16

const (
	FormatByte      Format = 1
	FormatASCII     Format = 2
	FormatShort     Format = 3
	FormatLong      Format = 4
	FormatRational  Format = 5
	FormatSByte     Format = 6
	FormatUndefined Format = 7
	FormatSShort    Format = 8
	FormatSLong     Format = 9
	FormatSRational Format = 10
	FormatFloat     Format = 11
	FormatDouble    Format = 12
	FormatUTF8      Format = 129
)

// Size returns the size in bytes of one component, or 0 for unknown formats.
func (f Format) Size() int {
	switch f {
	case FormatByte, FormatASCII, FormatSByte, FormatUndefined, FormatUTF8:
		return 1
	case FormatShort, FormatSShort:
		return 2
	case FormatLong, FormatSLong, FormatFloat:
		return 4
	case FormatRational, FormatSRational, FormatDouble:
		return 8
	}
	return 0
}

func (f Format) String() string {
	switch f {
	case FormatByte:
		return "BYTE"
	case FormatASCII:
		return "ASCII"
	case FormatShort:
		return "SHORT"
	case FormatLong:
		return "LONG"
	case FormatRational:
		return "RATIONAL"
	case FormatSByte:
		return "SBYTE"
	case FormatUndefined:
		return "UNDEFINED"
	case FormatSShort:
		return "SSHORT"
	case FormatSLong:
		return "SLONG"
	case FormatSRational:
		return "SRATIONAL"
	case FormatFloat:
		return "FLOAT"
	case FormatDouble:
		return "DOUBLE"
	case FormatUTF8:
		return "UTF8"
	}
	return fmt.Sprintf("Format(%d)", uint16(f))
}
