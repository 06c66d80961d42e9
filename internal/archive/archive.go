// Package archive packs a package folder into a single distributable file.
package archive

import (
	"archive/tar"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zip"
	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"
)

// Format is an archive format, named by its short file extension.
type Format string

const (
	TarGzip Format = "tgz"
	TarXz   Format = "txz"
	TarZstd Format = "tzst"
	Zip     Format = "zip"
)

// ErrUnknownFormat is returned for file names no Format recognizes.
var ErrUnknownFormat = errors.New("unknown archive format")

var suffixes = []struct {
	suffix string
	format Format
}{
	{".tar.gz", TarGzip},
	{".tgz", TarGzip},
	{".tar.xz", TarXz},
	{".txz", TarXz},
	{".tar.zst", TarZstd},
	{".tzst", TarZstd},
	{".zip", Zip},
}

// FormatOf returns the format of an archive file name.
func FormatOf(name string) (Format, error) {
	lower := strings.ToLower(name)
	for _, s := range suffixes {
		if strings.HasSuffix(lower, s.suffix) {
			return s.format, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrUnknownFormat, filepath.Base(name))
}

// ParseFormat validates a format name such as "tgz".
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case TarGzip, TarXz, TarZstd, Zip:
		return f, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

// Ext returns the file extension of f, including the dot.
func (f Format) Ext() string {
	return "." + string(f)
}

// WriteFile archives the contents of dir into dest, picking the format from
// the extension of dest.
func WriteFile(dest, dir string) error {
	format, err := FormatOf(dest)
	if err != nil {
		return err
	}
	f, err := os.Create(dest)
	if err != nil {
		return err
	}
	if err := Write(f, format, dir); err != nil {
		f.Close()
		os.Remove(dest)
		return err
	}
	return f.Close()
}

// Write archives the contents of dir into w. Entry names are relative to
// dir and use forward slashes; symlinks are stored as links.
func Write(w io.Writer, format Format, dir string) error {
	switch format {
	case Zip:
		return writeZip(w, dir)
	case TarGzip:
		gw := gzip.NewWriter(w)
		if err := writeTar(gw, dir); err != nil {
			return err
		}
		return gw.Close()
	case TarXz:
		xw, err := xz.NewWriter(w)
		if err != nil {
			return err
		}
		if err := writeTar(xw, dir); err != nil {
			return err
		}
		return xw.Close()
	case TarZstd:
		zw, err := zstd.NewWriter(w)
		if err != nil {
			return err
		}
		if err := writeTar(zw, dir); err != nil {
			zw.Close()
			return err
		}
		return zw.Close()
	}
	return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
}

type entry struct {
	path string // absolute
	name string // slash separated, relative to the root
	info fs.FileInfo
	link string
}

func walk(dir string, fn func(e entry) error) error {
	return filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		e := entry{path: path, name: filepath.ToSlash(rel), info: info}
		if info.Mode()&os.ModeSymlink != 0 {
			if e.link, err = os.Readlink(path); err != nil {
				return err
			}
		}
		return fn(e)
	})
}

func writeTar(w io.Writer, dir string) error {
	tw := tar.NewWriter(w)
	err := walk(dir, func(e entry) error {
		hdr, err := tar.FileInfoHeader(e.info, e.link)
		if err != nil {
			return err
		}
		hdr.Name = e.name
		if e.info.IsDir() {
			hdr.Name += "/"
		}
		hdr.Uname, hdr.Gname = "", ""
		hdr.Uid, hdr.Gid = 0, 0
		if err := tw.WriteHeader(hdr); err != nil {
			return err
		}
		if !e.info.Mode().IsRegular() {
			return nil
		}
		return copyFrom(tw, e.path)
	})
	if err != nil {
		return err
	}
	return tw.Close()
}

func writeZip(w io.Writer, dir string) error {
	zw := zip.NewWriter(w)
	err := walk(dir, func(e entry) error {
		hdr, err := zip.FileInfoHeader(e.info)
		if err != nil {
			return err
		}
		hdr.Name = e.name
		if e.info.IsDir() {
			hdr.Name += "/"
		} else {
			hdr.Method = zip.Deflate
		}
		writer, err := zw.CreateHeader(hdr)
		if err != nil {
			return err
		}
		switch {
		case e.link != "":
			_, err = io.WriteString(writer, e.link)
			return err
		case e.info.Mode().IsRegular():
			return copyFrom(writer, e.path)
		}
		return nil
	})
	if err != nil {
		return err
	}
	return zw.Close()
}

func copyFrom(w io.Writer, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = io.Copy(w, f)
	return err
}
