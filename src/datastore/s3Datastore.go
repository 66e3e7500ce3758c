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
	"github.com/yugabyte/yb-table-anonymizer/src/utils/s3"
)

type S3DataStore struct {
	uri        string
	bucketName string
	prefix     string
}

func NewS3DataStore(uri string) (*S3DataStore, error) {
	bucket, prefix, err := s3.SplitURL(uri)
	if err != nil {
		return nil, errs.NewConfigurationErrorWithReason("source-uri", uri, err.Error())
	}
	return &S3DataStore{uri: uri, bucketName: bucket, prefix: prefix}, nil
}

func (ds *S3DataStore) URI() string {
	return ds.uri
}

func (ds *S3DataStore) ListObjects(ctx context.Context) ([]string, error) {
	return s3.ListAllObjects(ctx, ds.uri)
}

func (ds *S3DataStore) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	return s3.NewObjectReader(ctx, ds.bucketName, path.Join(ds.prefix, name))
}

func (ds *S3DataStore) Size(ctx context.Context, name string) (int64, error) {
	return s3.GetObjectSize(ctx, ds.bucketName, path.Join(ds.prefix, name))
}
