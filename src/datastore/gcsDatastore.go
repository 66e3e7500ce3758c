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
	"path"

	"github.com/yugabyte/yb-table-anonymizer/src/errs"
	"github.com/yugabyte/yb-table-anonymizer/src/utils/gcs"
)

type GCSDataStore struct {
	uri        string
	bucketName string
	prefix     string
}

func NewGCSDataStore(uri string) (*GCSDataStore, error) {
	bucket, prefix, err := gcs.SplitURL(uri)
	if err != nil {
		return nil, errs.NewConfigurationErrorWithReason("source-uri", uri, err.Error())
	}
	return &GCSDataStore{uri: uri, bucketName: bucket, prefix: prefix}, nil
}

func (ds *GCSDataStore) URI() string {
	return ds.uri
}

func (ds *GCSDataStore) ListObjects(ctx context.Context) ([]string, error) {
	return gcs.ListAllObjects(ctx, ds.uri)
}

func (ds *GCSDataStore) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	return gcs.NewObjectReader(ctx, ds.bucketName, path.Join(ds.prefix, name))
}

func (ds *GCSDataStore) Size(ctx context.Context, name string) (int64, error) {
	return gcs.GetObjectSize(ctx, ds.bucketName, path.Join(ds.prefix, name))
}
