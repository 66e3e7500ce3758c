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
package datafile

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/davecgh/go-spew/spew"
	log "github.com/sirupsen/logrus"

	"github.com/yugabyte/yb-table-anonymizer/src/decompress"
	"github.com/yugabyte/yb-table-anonymizer/src/errs"
	"github.com/yugabyte/yb-table-anonymizer/src/utils"
)

const CSV_SUFFIX = ".csv"

// TableHandle is one logical input table.
type TableHandle struct {
	// Logical name used for rule matching.
	Name string
	// File or directory name on disk.
	StorageName string
	// Where the chunks are read from. Rebound to a decompressed copy when needed.
	StoragePath string
	// Never modified.
	OriginalPath string

	IsSliced     bool
	IsCompressed bool
	Format       Format

	// nil when the column list is not known ahead of time.
	DeclaredColumns   []string
	HasManifestSchema bool
	Schema            []*TypedColumn

	Manifest     *Manifest
	ManifestPath string // empty when the table came without a manifest
}

func (t *TableHandle) HasManifest() bool {
	return t.Manifest != nil
}

// LogicalName derives a table name from its storage name: "users.csv.gz" -> "users".
func LogicalName(storageName string) string {
	name := decompress.StripCompressionSuffix(storageName)
	if strings.HasSuffix(strings.ToLower(name), CSV_SUFFIX) && len(name) > len(CSV_SUFFIX) {
		name = name[:len(name)-len(CSV_SUFFIX)]
	}
	return name
}

func NewTableHandle(storagePath string) (*TableHandle, error) {
	info, err := os.Stat(storagePath)
	if err != nil {
		return nil, errs.NewIOError("stat", storagePath, err)
	}
	storageName := filepath.Base(storagePath)
	t := &TableHandle{
		Name:         LogicalName(storageName),
		StorageName:  storageName,
		StoragePath:  storagePath,
		OriginalPath: storagePath,
		IsSliced:     info.IsDir(),
		IsCompressed: decompress.IsCompressed(storageName),
	}

	var delimiter, enclosure, encoding string
	enclosure = DEFAULT_ENCLOSURE
	manifestPath := ManifestPath(storagePath)
	if utils.FileOrFolderExists(manifestPath) {
		t.Manifest, err = ReadManifest(manifestPath)
		if err != nil {
			return nil, fmt.Errorf("table %q: %w", storageName, err)
		}
		t.ManifestPath = manifestPath
		m := t.Manifest
		if m.Name != "" {
			t.Name = m.Name
		}
		t.IsSliced = t.IsSliced || m.IsSliced
		t.IsCompressed = t.IsCompressed || m.IsCompressed
		delimiter, encoding = m.Delimiter, m.Encoding
		if m.Enclosure != nil {
			enclosure = *m.Enclosure
		}
		switch {
		case len(m.Columns) > 0:
			t.DeclaredColumns = append([]string(nil), m.Columns...)
		case len(m.Schema) > 0:
			t.DeclaredColumns = m.SchemaColumnNames()
		}
		if len(m.Schema) > 0 {
			t.HasManifestSchema = true
			t.Schema = m.Schema
		}
	}
	t.Format, err = NewFormat(delimiter, enclosure, encoding)
	if err != nil {
		return nil, fmt.Errorf("table %q: %w", storageName, err)
	}
	if t.IsSliced && !info.IsDir() && !t.IsCompressed {
		return nil, fmt.Errorf("table %q is marked as sliced but %q is not a directory", t.Name, storagePath)
	}
	log.Debugf("table handle: %s", spew.Sdump(t))
	return t, nil
}

func isManifest(name string) bool {
	return strings.HasSuffix(name, MANIFEST_SUFFIX)
}

// DiscoverTables returns one handle per visible file or directory in dir, sorted by storage name.
// Manifest sidecars are attached to their table instead of being listed.
func DiscoverTables(dir string) ([]*TableHandle, error) {
	names, err := listEntries(dir)
	if err != nil {
		return nil, err
	}
	var tables []*TableHandle
	for _, name := range names {
		t, err := NewTableHandle(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		log.Infof("found input table %q at %q (sliced=%t, compressed=%t, manifest=%t)",
			t.Name, t.StoragePath, t.IsSliced, t.IsCompressed, t.HasManifest())
		tables = append(tables, t)
	}
	return tables, nil
}

// DiscoverFiles returns the storage names of the input files in dir.
// Input files are never anonymized, they are only reported when a rule names them.
func DiscoverFiles(dir string) ([]string, error) {
	return listEntries(dir)
}

func listEntries(dir string) ([]string, error) {
	if !utils.FileOrFolderExists(dir) {
		log.Infof("input directory %q does not exist", dir)
		return nil, nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errs.NewIOError("list", dir, err)
	}
	var names []string
	for _, entry := range entries {
		name := entry.Name()
		if utils.IsHiddenFile(name) || isManifest(name) {
			continue
		}
		if !entry.IsDir() && !entry.Type().IsRegular() {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// CopyTable copies the table's original bytes and, when present, its manifest verbatim
// into outDir. Returns the number of data bytes copied.
func CopyTable(t *TableHandle, outDir string) (int64, error) {
	dst := filepath.Join(outDir, t.StorageName)
	info, err := os.Stat(t.OriginalPath)
	if err != nil {
		return 0, errs.NewIOError("stat", t.OriginalPath, err)
	}
	var n int64
	if info.IsDir() {
		n, err = utils.CopyDir(t.OriginalPath, dst)
	} else {
		n, err = utils.CopyFile(t.OriginalPath, dst)
	}
	if err != nil {
		return n, errs.NewIOError("copy", t.OriginalPath, err)
	}
	if t.ManifestPath != "" {
		_, err = utils.CopyFile(t.ManifestPath, ManifestPath(dst))
		if err != nil {
			return n, errs.NewIOError("copy", t.ManifestPath, err)
		}
	}
	return n, nil
}
