/*
Copyright (c) YugabyteDB, Inc.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package decompress

import (
	"archive/tar"
	"compress/bzip2"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/bodgit/sevenzip"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	log "github.com/sirupsen/logrus"
	"github.com/xi2/xz"

	"github.com/yugabyte/yb-table-anonymizer/src/errs"
)

type format struct {
	ext       string
	isArchive bool // tar, zip or 7z container, as opposed to a single compressed stream
	open      func(io.Reader) (io.ReadCloser, error)
}

// Multi-part extensions come first so that ".tar.gz" wins over ".gz".
var formats = []format{
	{ext: ".tar.gz", isArchive: true, open: gzipReader},
	{ext: ".tgz", isArchive: true, open: gzipReader},
	{ext: ".tar.bz2", isArchive: true, open: bzip2Reader},
	{ext: ".tbz2", isArchive: true, open: bzip2Reader},
	{ext: ".tar.xz", isArchive: true, open: xzReader},
	{ext: ".txz", isArchive: true, open: xzReader},
	{ext: ".tar.zst", isArchive: true, open: zstdReader},
	{ext: ".tar.lz4", isArchive: true, open: lz4Reader},
	{ext: ".tar", isArchive: true, open: plainReader},
	{ext: ".zip", isArchive: true},
	{ext: ".7z", isArchive: true},
	{ext: ".gz", open: gzipReader},
	{ext: ".bz2", open: bzip2Reader},
	{ext: ".xz", open: xzReader},
	{ext: ".zst", open: zstdReader},
	{ext: ".lz4", open: lz4Reader},
}

// recognised as compressed so that they fail loudly instead of being read as csv
var knownUnsupportedExtensions = []string{".rar"}

func SupportedFormats() []string {
	var exts []string
	for _, f := range formats {
		exts = append(exts, f.ext)
	}
	return exts
}

func lookupFormat(path string) (format, bool) {
	name := strings.ToLower(filepath.Base(path))
	for _, f := range formats {
		if strings.HasSuffix(name, f.ext) && len(name) > len(f.ext) {
			return f, true
		}
	}
	return format{}, false
}

// IsCompressed reports whether the file or directory name carries a compression extension.
func IsCompressed(path string) bool {
	if _, ok := lookupFormat(path); ok {
		return true
	}
	name := strings.ToLower(filepath.Base(path))
	for _, ext := range knownUnsupportedExtensions {
		if strings.HasSuffix(name, ext) {
			return true
		}
	}
	return false
}

// StripCompressionSuffix turns "users.csv.gz" into "users.csv" and "logs.tgz" into "logs".
// Names without a known extension are returned unchanged.
func StripCompressionSuffix(name string) string {
	f, ok := lookupFormat(name)
	if !ok {
		return name
	}
	return name[:len(name)-len(f.ext)]
}

type Decompressor struct{}

func NewDecompressor() *Decompressor {
	return &Decompressor{}
}

// Decompress expands the compressed file at path into destDir.
// Single stream formats produce one file named after path without its compression suffix,
// archives are unpacked with their entry names relative to destDir.
func (d *Decompressor) Decompress(path string, destDir string) error {
	f, ok := lookupFormat(path)
	if !ok {
		return errs.NewUnsupportedFormatError(path, SupportedFormats())
	}
	err := os.MkdirAll(destDir, 0755)
	if err != nil {
		return errs.NewIOError("create directory", destDir, err)
	}
	log.Infof("decompressing %q (%s) into %q", path, f.ext, destDir)
	switch f.ext {
	case ".zip":
		return unzip(path, destDir)
	case ".7z":
		return un7z(path, destDir)
	}

	file, err := os.Open(path)
	if err != nil {
		return errs.NewIOError("open", path, err)
	}
	defer file.Close()
	stream, err := f.open(file)
	if err != nil {
		return fmt.Errorf("open %s stream of %q: %w", f.ext, path, err)
	}
	defer stream.Close()

	if f.isArchive {
		return untar(stream, path, destDir)
	}
	outPath := filepath.Join(destDir, StripCompressionSuffix(filepath.Base(path)))
	return writeFile(outPath, stream, 0644)
}

func untar(r io.Reader, archivePath string, destDir string) error {
	tr := tar.NewReader(r)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read tar archive %q: %w", archivePath, err)
		}
		target, err := entryPath(destDir, hdr.Name)
		if err != nil {
			return fmt.Errorf("archive %q: %w", archivePath, err)
		}
		switch hdr.Typeflag {
		case tar.TypeDir:
			err = os.MkdirAll(target, 0755)
			if err != nil {
				return errs.NewIOError("create directory", target, err)
			}
		case tar.TypeReg:
			err = writeFile(target, tr, 0644)
			if err != nil {
				return err
			}
		default:
			log.Warnf("skipping tar entry %q of type %q in %q", hdr.Name, string(hdr.Typeflag), archivePath)
		}
	}
}

func unzip(archivePath string, destDir string) error {
	zr, err := zip.OpenReader(archivePath)
	if err != nil {
		return fmt.Errorf("open zip archive %q: %w", archivePath, err)
	}
	defer zr.Close()
	for _, entry := range zr.File {
		target, err := entryPath(destDir, entry.Name)
		if err != nil {
			return fmt.Errorf("archive %q: %w", archivePath, err)
		}
		if entry.FileInfo().IsDir() {
			err = os.MkdirAll(target, 0755)
			if err != nil {
				return errs.NewIOError("create directory", target, err)
			}
			continue
		}
		rc, err := entry.Open()
		if err != nil {
			return fmt.Errorf("open zip entry %q of %q: %w", entry.Name, archivePath, err)
		}
		err = writeFile(target, rc, 0644)
		rc.Close()
		if err != nil {
			return err
		}
	}
	return nil
}

func un7z(archivePath string, destDir string) error {
	zr, err := sevenzip.OpenReader(archivePath)
	if err != nil {
		return fmt.Errorf("open 7z archive %q: %w", archivePath, err)
	}
	defer zr.Close()
	for _, entry := range zr.File {
		target, err := entryPath(destDir, entry.Name)
		if err != nil {
			return fmt.Errorf("archive %q: %w", archivePath, err)
		}
		if entry.FileInfo().IsDir() {
			err = os.MkdirAll(target, 0755)
			if err != nil {
				return errs.NewIOError("create directory", target, err)
			}
			continue
		}
		rc, err := entry.Open()
		if err != nil {
			return fmt.Errorf("open 7z entry %q of %q: %w", entry.Name, archivePath, err)
		}
		err = writeFile(target, rc, 0644)
		rc.Close()
		if err != nil {
			return err
		}
	}
	return nil
}

// entryPath rejects archive entries that would land outside destDir.
func entryPath(destDir string, name string) (string, error) {
	target := filepath.Join(destDir, name)
	cleanDest := filepath.Clean(destDir) + string(os.PathSeparator)
	if !strings.HasPrefix(target, cleanDest) {
		return "", fmt.Errorf("illegal entry path %q", name)
	}
	return target, nil
}

func writeFile(path string, r io.Reader, perm os.FileMode) error {
	err := os.MkdirAll(filepath.Dir(path), 0755)
	if err != nil {
		return errs.NewIOError("create directory", filepath.Dir(path), err)
	}
	out, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return errs.NewIOError("create", path, err)
	}
	_, err = io.Copy(out, r)
	if err != nil {
		out.Close()
		return errs.NewIOError("write", path, err)
	}
	err = out.Close()
	if err != nil {
		return errs.NewIOError("close", path, err)
	}
	return nil
}

func plainReader(r io.Reader) (io.ReadCloser, error) {
	return io.NopCloser(r), nil
}

func gzipReader(r io.Reader) (io.ReadCloser, error) {
	return gzip.NewReader(r)
}

func bzip2Reader(r io.Reader) (io.ReadCloser, error) {
	return io.NopCloser(bzip2.NewReader(r)), nil
}

func xzReader(r io.Reader) (io.ReadCloser, error) {
	xr, err := xz.NewReader(r, 0)
	if err != nil {
		return nil, err
	}
	return io.NopCloser(xr), nil
}

func zstdReader(r io.Reader) (io.ReadCloser, error) {
	dec, err := zstd.NewReader(r)
	if err != nil {
		return nil, err
	}
	return dec.IOReadCloser(), nil
}

func lz4Reader(r io.Reader) (io.ReadCloser, error) {
	return io.NopCloser(lz4.NewReader(r)), nil
}
