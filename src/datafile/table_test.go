//go:build unit

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
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogicalName(t *testing.T) {
	assert.Equal(t, "users", LogicalName("users.csv"))
	assert.Equal(t, "users", LogicalName("users.csv.gz"))
	assert.Equal(t, "logs", LogicalName("logs"))
	assert.Equal(t, "logs", LogicalName("logs.tar.gz"))
	assert.Equal(t, ".csv", LogicalName(".csv"))
}

func TestDiscoverTables(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, filepath.Join(dir, "users.csv"), "id,email\n1,a@x.com\n")
	writeTestFile(t, filepath.Join(dir, "orders.csv"), "1,10\n")
	writeTestFile(t, filepath.Join(dir, "orders.csv.manifest"),
		`{"name": "orders", "columns": ["id", "amount"], "delimiter": "\t", "schema": [{"name": "amount", "data_type": {"base": {"type": "NUMERIC"}}}]}`)
	writeTestFile(t, filepath.Join(dir, "logs", "part1"), "ip\n1.1.1.1\n")
	writeTestFile(t, filepath.Join(dir, ".DS_Store"), "")

	tables, err := DiscoverTables(dir)
	require.NoError(t, err)
	require.Len(t, tables, 3)

	logs, orders, users := tables[0], tables[1], tables[2]
	assert.Equal(t, "logs", logs.Name)
	assert.True(t, logs.IsSliced)
	assert.Nil(t, logs.DeclaredColumns)

	assert.Equal(t, "orders", orders.Name)
	assert.Equal(t, []string{"id", "amount"}, orders.DeclaredColumns)
	assert.True(t, orders.HasManifestSchema)
	assert.Equal(t, '\t', orders.Format.Delimiter)
	assert.Equal(t, filepath.Join(dir, "orders.csv.manifest"), orders.ManifestPath)

	assert.Equal(t, "users", users.Name)
	assert.False(t, users.HasManifest())
	assert.False(t, users.IsSliced)
	assert.Equal(t, users.OriginalPath, users.StoragePath)
}

func TestDiscoverTablesSchemaOnlyManifest(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, filepath.Join(dir, "users.csv"), "1,a@x.com\n")
	writeTestFile(t, filepath.Join(dir, "users.csv.manifest"), `{"schema": [{"name": "id"}, {"name": "email"}]}`)

	tables, err := DiscoverTables(dir)
	require.NoError(t, err)
	require.Len(t, tables, 1)
	assert.Equal(t, []string{"id", "email"}, tables[0].DeclaredColumns)
}

func TestDiscoverMissingDirectory(t *testing.T) {
	tables, err := DiscoverTables(filepath.Join(t.TempDir(), "missing"))
	require.NoError(t, err)
	assert.Empty(t, tables)
}

func TestDiscoverFiles(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, filepath.Join(dir, "notes.csv"), "x")
	writeTestFile(t, filepath.Join(dir, "notes.csv.manifest"), "{}")
	writeTestFile(t, filepath.Join(dir, "image.png"), "x")

	names, err := DiscoverFiles(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"image.png", "notes.csv"}, names)
}

func TestCopyTableIsByteIdentical(t *testing.T) {
	inDir, outDir := t.TempDir(), t.TempDir()
	content := "id,amount\r\n1,\"10\"\n"
	manifest := `{"name":"orders","custom":{"a":1}}`
	writeTestFile(t, filepath.Join(inDir, "orders.csv"), content)
	writeTestFile(t, filepath.Join(inDir, "orders.csv.manifest"), manifest)
	writeTestFile(t, filepath.Join(inDir, "logs", "part1"), "ip\n")

	tables, err := DiscoverTables(inDir)
	require.NoError(t, err)
	for _, table := range tables {
		_, err := CopyTable(table, outDir)
		require.NoError(t, err)
	}

	data, err := os.ReadFile(filepath.Join(outDir, "orders.csv"))
	require.NoError(t, err)
	assert.Equal(t, content, string(data))
	data, err = os.ReadFile(filepath.Join(outDir, "orders.csv.manifest"))
	require.NoError(t, err)
	assert.Equal(t, manifest, string(data))
	assert.FileExists(t, filepath.Join(outDir, "logs", "part1"))
	assert.NoFileExists(t, filepath.Join(outDir, "logs.manifest"))
}
