package exif

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-logr/logr"
)

var (
	// ErrNoExif is returned by Load when a file has no EXIF block and none was requested.
	ErrNoExif = errors.New("no exif data")
	// ErrNotLoaded is returned by setters called before a successful Load.
	ErrNotLoaded = errors.New("no exif data loaded")
	// ErrIncomplete is returned by Save when part of the loaded block could
	// not be decoded and writing it back would lose tags.
	ErrIncomplete = errors.New("exif data partially unreadable")
)

// File loads the EXIF block of a JPEG file, gives typed access to its tags and
// writes it back. A File is not safe for concurrent use.
type File struct {
	name    string
	data    *Data
	log     logr.Logger
	lastErr string
}

// NewFile returns a File that reports diagnostics to log.
func NewFile(log logr.Logger) *File {
	return &File{log: log}
}

// LastError returns the message of the most recent failure, or "".
func (f *File) LastError() string {
	return f.lastErr
}

// fail records err as the last error and returns it.
func (f *File) fail(err error) error {
	f.lastErr = err.Error()
	f.log.Info("exif failure", "file", f.name, "error", f.lastErr)
	return err
}

// Data returns the loaded block, or nil.
func (f *File) Data() *Data {
	return f.data
}

// Load reads the EXIF block of the JPEG file at path. If the file has no
// usable block and createIfEmpty is set, an empty block is created instead.
func (f *File) Load(path string, createIfEmpty bool) error {
	f.name = path
	f.data = nil

	b, err := os.ReadFile(path)
	if err != nil {
		return f.fail(fmt.Errorf("read: %w", err))
	}

	raw, found, err := findExif(b)
	if err != nil {
		if !createIfEmpty {
			return f.fail(fmt.Errorf("%s: %w", path, err))
		}
		f.log.Info("unreadable jpeg structure, starting empty", "file", path, "error", err)
	}

	if found {
		d, err := Decode(raw, f.log.WithValues("file", path))
		switch {
		case err == nil:
			f.data = d
		case !createIfEmpty:
			return f.fail(fmt.Errorf("decode %s: %w", path, err))
		default:
			f.log.Info("malformed exif, starting empty", "file", path, "error", err)
		}
	}

	if f.data == nil {
		if !createIfEmpty {
			return f.fail(fmt.Errorf("%s: %w", path, ErrNoExif))
		}
		f.data = New(f.log.WithValues("file", path))
	}

	f.data.SetOption(OptionFollowSpecification)
	f.data.SetDataType(DataTypeCompressed)
	return nil
}

// Save encodes the block into the JPEG file at path. All other segments and
// the image data are written back unchanged. The file is replaced atomically.
func (f *File) Save(path string) error {
	if f.data == nil {
		return f.fail(ErrNotLoaded)
	}
	if lost := f.data.Lost(); len(lost) > 0 {
		return f.fail(fmt.Errorf("%s: %v: %w", path, lost, ErrIncomplete))
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return f.fail(fmt.Errorf("read: %w", err))
	}

	raw, err := f.data.Encode()
	if err != nil {
		return f.fail(fmt.Errorf("encode: %w", err))
	}

	out, err := spliceExif(b, raw)
	if err != nil {
		return f.fail(fmt.Errorf("splice %s: %w", path, err))
	}

	if err := writeAtomic(path, out); err != nil {
		return f.fail(fmt.Errorf("write %s: %w", path, err))
	}
	return nil
}

// writeAtomic writes b to a temporary file next to path and renames it over path.
func writeAtomic(path string, b []byte) error {
	mode := os.FileMode(0o644)
	if st, err := os.Stat(path); err == nil {
		mode = st.Mode().Perm()
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	name := tmp.Name()
	defer os.Remove(name)

	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close: %w", err)
	}
	if err := os.Chmod(name, mode); err != nil {
		return fmt.Errorf("chmod: %w", err)
	}
	return os.Rename(name, path)
}

// SetRationals stores vs as a RATIONAL entry of ifd.
func (f *File) SetRationals(ifd IFD, t Tag, vs []Rational) error {
	if f.data == nil {
		return f.fail(ErrNotLoaded)
	}
	f.data.SetRationals(ifd, t, vs)
	return nil
}

// Rationals returns the values of a RATIONAL entry, or nil if it is absent.
func (f *File) Rationals(ifd IFD, t Tag) []Rational {
	if f.data == nil {
		return nil
	}
	return f.data.Rationals(ifd, t)
}

// SetASCII stores s as an ASCII entry of ifd.
func (f *File) SetASCII(ifd IFD, t Tag, s []byte) error {
	if f.data == nil {
		return f.fail(ErrNotLoaded)
	}
	f.data.SetASCII(ifd, t, s)
	return nil
}

// ASCII returns the value of an ASCII entry without its terminator, or nil.
func (f *File) ASCII(ifd IFD, t Tag) []byte {
	if f.data == nil {
		return nil
	}
	return f.data.ASCII(ifd, t)
}

// SetBytes stores b as a BYTE entry of ifd.
func (f *File) SetBytes(ifd IFD, t Tag, b []byte) error {
	if f.data == nil {
		return f.fail(ErrNotLoaded)
	}
	f.data.SetBytes(ifd, t, b)
	return nil
}

// Bytes returns the raw value of an entry, or nil.
func (f *File) Bytes(ifd IFD, t Tag) []byte {
	if f.data == nil {
		return nil
	}
	return f.data.Bytes(ifd, t)
}

// Thumbnail returns the embedded JPEG thumbnail, or nil.
func (f *File) Thumbnail() []byte {
	if f.data == nil {
		return nil
	}
	return f.data.Thumbnail()
}
