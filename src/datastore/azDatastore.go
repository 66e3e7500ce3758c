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
	"github.com/yugabyte/yb-table-anonymizer/src/utils/az"
)

type AzDataStore struct {
	uri           string
	serviceURL    string
	containerName string
	prefix        string
}

func NewAzDataStore(uri string) (*AzDataStore, error) {
	serviceURL, containerName, prefix, err := az.SplitURL(uri)
	if err != nil {
		return nil, errs.NewConfigurationErrorWithReason("source-uri", uri, err.Error())
	}
	return &AzDataStore{uri: uri, serviceURL: serviceURL, containerName: containerName, prefix: prefix}, nil
}

func (ds *AzDataStore) URI() string {
	return ds.uri
}

func (ds *AzDataStore) ListObjects(ctx context.Context) ([]string, error) {
	return az.ListAllObjects(ctx, ds.uri)
}

func (ds *AzDataStore) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	return az.NewObjectReader(ctx, ds.serviceURL, ds.containerName, path.Join(ds.prefix, name))
}

func (ds *AzDataStore) Size(ctx context.Context, name string) (int64, error) {
	return az.GetObjectSize(ctx, ds.serviceURL, ds.containerName, path.Join(ds.prefix, name))
}
