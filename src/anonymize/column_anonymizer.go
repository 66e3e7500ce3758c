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
package anonymize

import (
	"context"
	"fmt"
	"io"
	"sort"

	log "github.com/sirupsen/logrus"

	"github.com/yugabyte/yb-table-anonymizer/src/anon"
	"github.com/yugabyte/yb-table-anonymizer/src/datafile"
	pbreporter "github.com/yugabyte/yb-table-anonymizer/src/reporter/pb"
)

// rows between context checks and progress updates
const ROW_BATCH_SIZE = 1024

// FileTask is one chunk of a table to rewrite.
type FileTask struct {
	TableName  string
	InputPath  string
	OutputPath string
	// Positional column names of the chunk.
	Columns            []string
	ColumnsToAnonymize []string
	Format             datafile.Format
	// The first row of the chunk is a header.
	HasHeaderRow bool
	// Copy the header row to the output instead of dropping it.
	ReemitHeader bool
	// Bytes of earlier chunks of the same table, added to progress updates.
	ProgressOffset int64
}

type FileStats struct {
	RowsRead       int64
	RowsWritten    int64
	BytesRead      int64
	HeaderConsumed bool
}

type ColumnAnonymizer struct {
	anonymizer anon.Anonymizer
}

func NewColumnAnonymizer(anonymizer anon.Anonymizer) *ColumnAnonymizer {
	return &ColumnAnonymizer{anonymizer: anonymizer}
}

// columnIndexes maps the columns to anonymize to their positions in the row.
// A column name repeated in the header yields every one of its positions.
func columnIndexes(columns []string, targets []string) []int {
	positions := make(map[string][]int, len(columns))
	for i, col := range columns {
		positions[col] = append(positions[col], i)
	}
	var indexes []int
	seen := make(map[string]bool, len(targets))
	for _, target := range targets {
		if seen[target] {
			continue
		}
		seen[target] = true
		indexes = append(indexes, positions[target]...)
	}
	sort.Ints(indexes)
	return indexes
}

// ProcessFile streams task.InputPath into task.OutputPath, replacing the values of the
// columns to anonymize. The output is created or overwritten, the input is only read.
func (c *ColumnAnonymizer) ProcessFile(ctx context.Context, task *FileTask, progress pbreporter.ProgressReporter) (stats *FileStats, err error) {
	log.Infof("anonymizing columns %v of %q into %q (header=%t, reemit header=%t)",
		task.ColumnsToAnonymize, task.InputPath, task.OutputPath, task.HasHeaderRow, task.ReemitHeader)
	indexes := columnIndexes(task.Columns, task.ColumnsToAnonymize)

	reader, err := datafile.OpenCsvReader(task.InputPath, task.Format)
	if err != nil {
		return nil, err
	}
	defer reader.Close()
	writer, err := datafile.CreateCsvWriter(task.OutputPath, task.Format)
	if err != nil {
		return nil, err
	}
	defer func() {
		closeErr := writer.Close()
		if err == nil && closeErr != nil {
			stats, err = nil, closeErr
		}
	}()

	stats = &FileStats{}
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		stats.RowsRead++

		if task.HasHeaderRow && stats.RowsRead == 1 {
			stats.HeaderConsumed = !task.ReemitHeader
			if task.ReemitHeader {
				err = writer.Write(record)
				if err != nil {
					return nil, err
				}
				stats.RowsWritten++
			}
			continue
		}

		for _, i := range indexes {
			if i >= len(record) {
				continue
			}
			record[i], err = c.anonymizer.Anonymize(record[i])
			if err != nil {
				return nil, fmt.Errorf("anonymize column %q of %q row %d: %w", task.Columns[i], task.InputPath, stats.RowsRead, err)
			}
		}
		err = writer.Write(record)
		if err != nil {
			return nil, err
		}
		stats.RowsWritten++

		if stats.RowsRead%ROW_BATCH_SIZE == 0 {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("anonymizing %q interrupted after %d rows: %w", task.InputPath, stats.RowsRead, ctx.Err())
			}
			if progress != nil {
				progress.SetCurrent(task.ProgressOffset + reader.BytesRead())
			}
		}
	}
	stats.BytesRead = reader.BytesRead()
	if progress != nil {
		progress.SetCurrent(task.ProgressOffset + stats.BytesRead)
	}
	log.Infof("anonymized %q: read %d rows, wrote %d rows", task.InputPath, stats.RowsRead, stats.RowsWritten)
	return stats, nil
}
