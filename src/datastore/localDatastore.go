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
package datastore

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/yugabyte/yb-table-anonymizer/src/errs"
)

type LocalDataStore struct {
	dataDir string
}

func NewLocalDataStore(dataDir string) (*LocalDataStore, error) {
	absDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, errs.NewIOError("resolve", dataDir, err)
	}
	info, err := os.Stat(absDir)
	if err != nil {
		return nil, errs.NewIOError("stat", absDir, err)
	}
	if !info.IsDir() {
		return nil, errs.NewConfigurationErrorWithReason("source-uri", dataDir, "not a directory")
	}
	return &LocalDataStore{dataDir: absDir}, nil
}

func (ds *LocalDataStore) URI() string {
	return ds.dataDir
}

func (ds *LocalDataStore) ListObjects(ctx context.Context) ([]string, error) {
	var names []string
	err := filepath.WalkDir(ds.dataDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(ds.dataDir, path)
		if err != nil {
			return err
		}
		names = append(names, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, errs.NewIOError("list", ds.dataDir, err)
	}
	return names, nil
}

func (ds *LocalDataStore) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	return os.Open(filepath.Join(ds.dataDir, filepath.FromSlash(name)))
}

func (ds *LocalDataStore) Size(ctx context.Context, name string) (int64, error) {
	info, err := os.Stat(filepath.Join(ds.dataDir, filepath.FromSlash(name)))
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}
