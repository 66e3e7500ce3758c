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
package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCopyFilePreservesBytes(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "users.csv")
	content := []byte("id,email\r\n1,\"a@x.com\"\n")
	require.NoError(t, os.WriteFile(src, content, 0644))

	dst := filepath.Join(dir, "out", "nested", "users.csv")
	n, err := CopyFile(src, dst)
	require.NoError(t, err)
	assert.Equal(t, int64(len(content)), n)

	copied, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, content, copied)
}

func TestCopyDir(t *testing.T) {
	src := filepath.Join(t.TempDir(), "logs")
	require.NoError(t, os.MkdirAll(filepath.Join(src, "sub"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "part1"), []byte("ip\n1.1.1.1\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(src, "sub", "part2"), []byte("ip\n2.2.2.2\n"), 0644))

	dst := filepath.Join(t.TempDir(), "logs")
	n, err := CopyDir(src, dst)
	require.NoError(t, err)
	assert.Equal(t, int64(22), n)
	assert.FileExists(t, filepath.Join(dst, "part1"))
	assert.FileExists(t, filepath.Join(dst, "sub", "part2"))
}

func TestListRegularFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"part2", "part1", ".hidden"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "subdir"), 0755))

	files, err := ListRegularFiles(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "part1"), filepath.Join(dir, "part2")}, files)
	assert.False(t, IsDirectoryEmpty(dir))
	assert.True(t, IsDirectoryEmpty(filepath.Join(dir, "subdir")))
}

func TestCsvStringToSlice(t *testing.T) {
	assert.Equal(t, []string{"email", "phone"}, CsvStringToSlice("email, phone"))
}
