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
package gcs

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"
	"sync"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
)

var (
	client     *storage.Client
	clientOnce sync.Once
	clientErr  error
)

func createClientIfNotExists(ctx context.Context) error {
	clientOnce.Do(func() {
		// Creates a client with default credentials.
		c, err := storage.NewClient(ctx)
		if err != nil {
			clientErr = fmt.Errorf("create gcs client: %w", err)
			return
		}
		client = c
	})
	return clientErr
}

func ValidateObjectURL(uri string) error {
	u, err := url.Parse(uri)
	if err != nil {
		return fmt.Errorf("parsing the object of %q: %w", uri, err)
	}
	if u.Scheme != "gs" {
		return fmt.Errorf("not a gcs url: %v", uri)
	}
	if u.Host == "" {
		return fmt.Errorf("missing bucket in gcs url %v", uri)
	}
	return nil
}

// SplitURL returns the bucket and the object prefix of a gs://bucket/prefix url.
func SplitURL(uri string) (string, string, error) {
	err := ValidateObjectURL(uri)
	if err != nil {
		return "", "", err
	}
	u, _ := url.Parse(uri)
	return u.Host, strings.TrimPrefix(u.Path, "/"), nil
}

// ListAllObjects returns the object names under the url's prefix, relative to the prefix.
func ListAllObjects(ctx context.Context, uri string) ([]string, error) {
	err := createClientIfNotExists(ctx)
	if err != nil {
		return nil, err
	}
	bucket, prefix, err := SplitURL(uri)
	if err != nil {
		return nil, err
	}
	query := &storage.Query{Prefix: prefix}
	objectIter := client.Bucket(bucket).Objects(ctx, query)
	var objectNames []string
	for {
		attrs, err := objectIter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return objectNames, fmt.Errorf("Bucket(%q).Objects: %w", bucket, err)
		}
		objectName := attrs.Name
		if prefix != "" {
			objectName = strings.TrimPrefix(attrs.Name, prefix)
			objectName = strings.TrimPrefix(objectName, "/") //remove initial "/"
		}
		if objectName == "" || strings.HasSuffix(objectName, "/") {
			continue
		}
		objectNames = append(objectNames, objectName)
	}
	return objectNames, nil
}

func GetObjectSize(ctx context.Context, bucket string, key string) (int64, error) {
	err := createClientIfNotExists(ctx)
	if err != nil {
		return 0, err
	}
	attrs, err := client.Bucket(bucket).Object(key).Attrs(ctx)
	if err != nil {
		return 0, fmt.Errorf("get attributes of gs://%s/%s: %w", bucket, key, err)
	}
	return attrs.Size, nil
}

func NewObjectReader(ctx context.Context, bucket string, key string) (io.ReadCloser, error) {
	err := createClientIfNotExists(ctx)
	if err != nil {
		return nil, err
	}
	r, err := client.Bucket(bucket).Object(key).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("get reader for gs://%s/%s: %w", bucket, key, err)
	}
	return r, nil
}
