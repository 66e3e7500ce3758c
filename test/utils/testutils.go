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
package testutils

import (
	"database/sql"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/stretchr/testify/require"
)

// CreateTempDataDir returns a data dir with the in/ and out/ layout the anonymizer expects,
// removed when the test ends.
func CreateTempDataDir(t *testing.T) string {
	t.Helper()
	dataDir := t.TempDir()
	for _, dir := range []string{"in/tables", "in/files", "out/tables", "out/files"} {
		require.NoError(t, os.MkdirAll(filepath.Join(dataDir, dir), 0755))
	}
	return dataDir
}

func WriteFile(t *testing.T, path string, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func ReadFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func IsEmptyDir(t *testing.T, dir string) bool {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	return len(entries) == 0
}

// ReadCSVRows parses a comma separated file into its records.
func ReadCSVRows(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	require.NoError(t, err)
	return rows
}

type ColumnPropertiesSqlite struct {
	Type       string
	PrimaryKey int
	NotNull    bool
	Default    sql.NullString
}

// CheckTableExistenceSqlite verifies that exactly the expected tables exist.
func CheckTableExistenceSqlite(t *testing.T, db *sql.DB, expectedTables map[string]map[string]ColumnPropertiesSqlite) error {
	t.Helper()
	rows, err := db.Query(`SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%'`)
	if err != nil {
		return fmt.Errorf("list tables: %w", err)
	}
	defer rows.Close()
	actual := mapset.NewThreadUnsafeSet[string]()
	for rows.Next() {
		var name string
		err = rows.Scan(&name)
		if err != nil {
			return fmt.Errorf("scan table name: %w", err)
		}
		actual.Add(name)
	}
	expected := mapset.NewThreadUnsafeSet[string]()
	for name := range expectedTables {
		expected.Add(name)
	}
	if !actual.Equal(expected) {
		return fmt.Errorf("tables mismatch: missing %v, unexpected %v",
			expected.Difference(actual).ToSlice(), actual.Difference(expected).ToSlice())
	}
	return nil
}

// CheckTableStructureSqlite compares the columns of tableName against the expected properties.
func CheckTableStructureSqlite(db *sql.DB, tableName string, expectedColumns map[string]ColumnPropertiesSqlite) error {
	rows, err := db.Query(fmt.Sprintf("PRAGMA table_info(%s)", tableName))
	if err != nil {
		return fmt.Errorf("table info of %s: %w", tableName, err)
	}
	defer rows.Close()
	seen := 0
	for rows.Next() {
		var cid int
		var name, colType string
		var notNull, pk int
		var dflt sql.NullString
		err = rows.Scan(&cid, &name, &colType, &notNull, &dflt, &pk)
		if err != nil {
			return fmt.Errorf("scan table info of %s: %w", tableName, err)
		}
		expected, ok := expectedColumns[name]
		if !ok {
			return fmt.Errorf("unexpected column %s in table %s", name, tableName)
		}
		seen++
		actual := ColumnPropertiesSqlite{Type: colType, PrimaryKey: pk, NotNull: notNull == 1, Default: dflt}
		if actual != expected {
			return fmt.Errorf("column %s.%s: expected %+v, got %+v", tableName, name, expected, actual)
		}
	}
	if seen != len(expectedColumns) {
		return fmt.Errorf("table %s has %d columns, expected %d", tableName, seen, len(expectedColumns))
	}
	return rows.Err()
}
