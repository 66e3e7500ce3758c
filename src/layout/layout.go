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
package layout

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/davecgh/go-spew/spew"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"golang.org/x/exp/slices"

	"github.com/yugabyte/yb-table-anonymizer/src/datafile"
	"github.com/yugabyte/yb-table-anonymizer/src/decompress"
	"github.com/yugabyte/yb-table-anonymizer/src/errs"
	"github.com/yugabyte/yb-table-anonymizer/src/utils"
)

// Shape is the on-disk layout of a table once it has been inspected.
type Shape struct {
	Sliced     bool
	Compressed bool
	// The first row of every chunk is a header, not data.
	Headered bool
}

func (s Shape) String() string {
	return fmt.Sprintf("sliced=%t compressed=%t headered=%t", s.Sliced, s.Compressed, s.Headered)
}

type ChunkPair struct {
	InputPath  string
	OutputPath string
}

type Plan struct {
	Table *datafile.TableHandle
	Shape Shape
	Files []ChunkPair
	// Declared columns, or the columns discovered from the first chunk's header.
	Columns           []string
	ColumnsDiscovered bool
	// Output file for a single chunk table, output directory for a sliced one.
	OutputStoragePath string

	tempDirs []string
}

// Cleanup removes the temporary directories the plan decompressed into.
func (p *Plan) Cleanup() error {
	var firstErr error
	for _, dir := range p.tempDirs {
		log.Infof("removing temporary directory %q of table %q", dir, p.Table.Name)
		err := os.RemoveAll(dir)
		if err != nil && firstErr == nil {
			firstErr = errs.NewIOError("remove", dir, err)
		}
	}
	p.tempDirs = nil
	return firstErr
}

type Decompressor interface {
	Decompress(path string, destDir string) error
}

type Resolver struct {
	decompressor Decompressor
	workDir      string
	outputDir    string
}

func NewResolver(decompressor Decompressor, workDir string, outputDir string) *Resolver {
	return &Resolver{decompressor: decompressor, workDir: workDir, outputDir: outputDir}
}

// Plan inspects the table and returns the list of chunks to process with their output paths.
// A compressed table is expanded under the work directory first and its StoragePath rebound
// to the expanded copy. Callers must Cleanup the returned plan.
func (r *Resolver) Plan(t *datafile.TableHandle) (*Plan, error) {
	plan := &Plan{
		Table: t,
		Shape: Shape{
			Compressed: t.IsCompressed,
			Headered:   t.DeclaredColumns == nil,
		},
	}
	outputName := decompress.StripCompressionSuffix(t.StorageName)

	if t.IsCompressed {
		expanded, err := r.expand(plan, t)
		if err != nil {
			plan.Cleanup()
			return nil, err
		}
		t.StoragePath = expanded
	}

	info, err := os.Stat(t.StoragePath)
	if err != nil {
		plan.Cleanup()
		return nil, errs.NewIOError("stat", t.StoragePath, err)
	}
	if info.IsDir() {
		plan.Shape.Sliced = true
		plan.OutputStoragePath = filepath.Join(r.outputDir, outputName)
		chunks, err := listChunks(t.StoragePath)
		if err != nil {
			plan.Cleanup()
			return nil, err
		}
		for _, chunk := range chunks {
			plan.Files = append(plan.Files, ChunkPair{
				InputPath:  chunk,
				OutputPath: filepath.Join(plan.OutputStoragePath, decompress.StripCompressionSuffix(filepath.Base(chunk))),
			})
		}
	} else {
		plan.OutputStoragePath = filepath.Join(r.outputDir, outputName)
		plan.Files = []ChunkPair{{InputPath: t.StoragePath, OutputPath: plan.OutputStoragePath}}
	}

	if plan.Shape.Headered {
		err = discoverColumns(plan)
		if err != nil {
			plan.Cleanup()
			return nil, err
		}
	} else {
		plan.Columns = t.DeclaredColumns
	}
	log.Infof("layout of table %q: %s, %d chunk(s), columns=%v", t.Name, plan.Shape, len(plan.Files), plan.Columns)
	log.Debugf("plan for table %q: %s", t.Name, spew.Sdump(plan.Files))
	return plan, nil
}

// expand decompresses the table into a fresh directory under the work dir and returns
// the path the table should now be read from.
func (r *Resolver) expand(plan *Plan, t *datafile.TableHandle) (string, error) {
	tempDir := filepath.Join(r.workDir, fmt.Sprintf("%s-%s", t.Name, uuid.New().String()))
	err := os.MkdirAll(tempDir, 0755)
	if err != nil {
		return "", errs.NewIOError("create directory", tempDir, err)
	}
	plan.tempDirs = append(plan.tempDirs, tempDir)

	info, err := os.Stat(t.OriginalPath)
	if err != nil {
		return "", errs.NewIOError("stat", t.OriginalPath, err)
	}
	if info.IsDir() {
		chunks, err := listChunks(t.OriginalPath)
		if err != nil {
			return "", err
		}
		for _, chunk := range chunks {
			if !decompress.IsCompressed(chunk) {
				_, err = utils.CopyFile(chunk, filepath.Join(tempDir, filepath.Base(chunk)))
				if err != nil {
					return "", errs.NewIOError("copy", chunk, err)
				}
				continue
			}
			err = r.decompressor.Decompress(chunk, tempDir)
			if err != nil {
				return "", fmt.Errorf("decompress chunk of table %q: %w", t.Name, err)
			}
		}
		return tempDir, nil
	}

	err = r.decompressor.Decompress(t.OriginalPath, tempDir)
	if err != nil {
		return "", fmt.Errorf("decompress table %q: %w", t.Name, err)
	}
	return singleEntryOrDir(tempDir, t.IsSliced)
}

// singleEntryOrDir unwraps an archive that expanded to a single file (an unsliced table)
// or to a single top level directory.
func singleEntryOrDir(dir string, sliced bool) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", errs.NewIOError("list", dir, err)
	}
	if len(entries) != 1 {
		return dir, nil
	}
	only := filepath.Join(dir, entries[0].Name())
	if entries[0].IsDir() {
		return only, nil
	}
	if sliced {
		return dir, nil
	}
	return only, nil
}

func listChunks(dir string) ([]string, error) {
	files, err := utils.ListRegularFiles(dir)
	if err != nil {
		return nil, errs.NewIOError("list", dir, err)
	}
	var chunks []string
	for _, file := range files {
		if filepath.Ext(file) == datafile.MANIFEST_SUFFIX {
			continue
		}
		chunks = append(chunks, file)
	}
	return chunks, nil
}

// discoverColumns reads the header of the first chunk once and requires every sibling
// chunk to start with the same header.
func discoverColumns(plan *Plan) error {
	if len(plan.Files) == 0 {
		return nil
	}
	t := plan.Table
	first := plan.Files[0].InputPath
	header, err := datafile.ReadHeader(first, t.Format)
	if err != nil {
		return fmt.Errorf("discover columns of table %q: %w", t.Name, err)
	}
	plan.Columns = header
	plan.ColumnsDiscovered = true
	log.Infof("discovered columns %v of table %q from %q", header, t.Name, first)

	for _, chunk := range plan.Files[1:] {
		siblingHeader, err := datafile.ReadHeader(chunk.InputPath, t.Format)
		if err != nil {
			return fmt.Errorf("read header of table %q: %w", t.Name, err)
		}
		if siblingHeader == nil {
			continue
		}
		if !slices.Equal(header, siblingHeader) {
			return errs.NewInconsistentChunkError(t.Name, chunk.InputPath, header, siblingHeader)
		}
	}
	return nil
}
