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
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/dustin/go-humanize"
	log "github.com/sirupsen/logrus"
	"github.com/sourcegraph/conc/pool"

	"github.com/yugabyte/yb-table-anonymizer/src/errs"
)

// Datastore is a source of input tables: a local directory or a cloud storage prefix.
type Datastore interface {
	// ListObjects returns the object names below the root, relative to it, using "/" as separator.
	ListObjects(ctx context.Context) ([]string, error)
	Open(ctx context.Context, name string) (io.ReadCloser, error)
	Size(ctx context.Context, name string) (int64, error)
	URI() string
}

func IsRemoteURI(uri string) bool {
	return strings.HasPrefix(uri, "s3://") || strings.HasPrefix(uri, "gs://") || strings.HasPrefix(uri, "https://")
}

func NewDataStore(uri string) (Datastore, error) {
	var ds Datastore
	var err error
	switch {
	case strings.HasPrefix(uri, "s3://"):
		ds, err = NewS3DataStore(uri)
	case strings.HasPrefix(uri, "gs://"):
		ds, err = NewGCSDataStore(uri)
	case strings.HasPrefix(uri, "https://"):
		ds, err = NewAzDataStore(uri)
	default:
		ds, err = NewLocalDataStore(uri)
	}
	if err != nil {
		return nil, err
	}
	return ds, nil
}

// Number of objects downloaded concurrently by Stage.
const STAGE_PARALLELISM = 4

// StageProgress is told about every staged object. It may be called from several goroutines.
type StageProgress func(done int, total int, name string)

// Stage downloads every object of ds into destDir, keeping the relative paths.
// Returns the number of bytes written. progress may be nil.
func Stage(ctx context.Context, ds Datastore, destDir string, progress StageProgress) (int64, error) {
	names, err := ds.ListObjects(ctx)
	if err != nil {
		return 0, fmt.Errorf("list objects of %q: %w", ds.URI(), err)
	}
	log.Infof("staging %d object(s) from %q into %q", len(names), ds.URI(), destDir)
	targets := make([]string, len(names))
	for i, name := range names {
		targets[i] = filepath.Join(destDir, filepath.FromSlash(name))
		if !strings.HasPrefix(targets[i], filepath.Clean(destDir)+string(os.PathSeparator)) {
			return 0, fmt.Errorf("object %q of %q escapes the staging directory", name, ds.URI())
		}
	}

	var total, done atomic.Int64
	p := pool.New().WithMaxGoroutines(STAGE_PARALLELISM).WithContext(ctx).WithCancelOnError().WithFirstError()
	for i, name := range names {
		name, target := name, targets[i]
		p.Go(func(ctx context.Context) error {
			n, err := download(ctx, ds, name, target)
			total.Add(n)
			if err != nil {
				return err
			}
			d := done.Add(1)
			if progress != nil {
				progress(int(d), len(names), name)
			}
			return nil
		})
	}
	err = p.Wait()
	if ctx.Err() != nil {
		return total.Load(), ctx.Err()
	}
	if err != nil {
		return total.Load(), err
	}
	log.Infof("staged %s from %q", humanize.IBytes(uint64(total.Load())), ds.URI())
	return total.Load(), nil
}

func download(ctx context.Context, ds Datastore, name string, target string) (int64, error) {
	size, err := ds.Size(ctx, name)
	if err != nil {
		return 0, fmt.Errorf("size of %q of %q: %w", name, ds.URI(), err)
	}
	r, err := ds.Open(ctx, name)
	if err != nil {
		return 0, fmt.Errorf("open %q of %q: %w", name, ds.URI(), err)
	}
	defer r.Close()
	err = os.MkdirAll(filepath.Dir(target), 0755)
	if err != nil {
		return 0, errs.NewIOError("create directory", filepath.Dir(target), err)
	}
	f, err := os.Create(target)
	if err != nil {
		return 0, errs.NewIOError("create", target, err)
	}
	n, err := io.Copy(f, r)
	if err != nil {
		f.Close()
		return n, errs.NewIOError("download", target, err)
	}
	err = f.Close()
	if err != nil {
		return n, errs.NewIOError("close", target, err)
	}
	if n != size {
		return n, errs.NewIOError("download", target, fmt.Errorf("got %d of %d bytes", n, size))
	}
	log.Debugf("downloaded %q (%s) to %q", name, humanize.IBytes(uint64(n)), target)
	return n, nil
}
