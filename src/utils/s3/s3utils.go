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
package s3

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"gocloud.dev/blob/s3blob"
)

var (
	client     *s3.Client
	clientOnce sync.Once
	clientErr  error
)

func createClientIfNotExists(ctx context.Context) error {
	clientOnce.Do(func() {
		cfg, err := config.LoadDefaultConfig(ctx)
		if err != nil {
			clientErr = fmt.Errorf("load s3 config: %w", err)
			return
		}
		client = s3.NewFromConfig(cfg)
	})
	return clientErr
}

func ValidateObjectURL(uri string) error {
	u, err := url.Parse(uri)
	if err != nil {
		return err
	}
	if u.Scheme != "s3" {
		return fmt.Errorf("not an s3 url: %v", uri)
	}
	if u.Host == "" {
		return fmt.Errorf("missing bucket in s3 url %v", uri)
	}
	return nil
}

// SplitURL returns the bucket and the key prefix of an s3://bucket/prefix url.
func SplitURL(uri string) (string, string, error) {
	err := ValidateObjectURL(uri)
	if err != nil {
		return "", "", err
	}
	u, _ := url.Parse(uri)
	return u.Host, strings.TrimPrefix(u.Path, "/"), nil
}

// ListAllObjects returns the keys under the url's prefix, relative to the prefix.
func ListAllObjects(ctx context.Context, uri string) ([]string, error) {
	err := createClientIfNotExists(ctx)
	if err != nil {
		return nil, err
	}
	bucket, prefix, err := SplitURL(uri)
	if err != nil {
		return nil, err
	}
	// Use paginator, default list objects API has a fetch limit.
	query := &s3.ListObjectsV2Input{Bucket: &bucket}
	if prefix != "" {
		query.Prefix = &prefix
	}
	p := s3.NewListObjectsV2Paginator(client, query)

	var i int
	var objectNames []string
	for p.HasMorePages() {
		i++
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to get page %v of %q: %w", i, uri, err)
		}
		for _, obj := range page.Contents {
			objectName := *obj.Key
			if prefix != "" {
				objectName = strings.TrimPrefix(objectName, prefix)
				objectName = strings.TrimPrefix(objectName, "/") //remove initial "/"
			}
			if objectName == "" || strings.HasSuffix(objectName, "/") {
				continue
			}
			objectNames = append(objectNames, objectName)
		}
	}
	return objectNames, nil
}

func GetObjectSize(ctx context.Context, bucket string, key string) (int64, error) {
	err := createClientIfNotExists(ctx)
	if err != nil {
		return 0, err
	}
	result, err := client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return 0, fmt.Errorf("head object s3://%s/%s: %w", bucket, key, err)
	}
	return result.ContentLength, nil
}

func NewObjectReader(ctx context.Context, bucketName string, key string) (io.ReadCloser, error) {
	err := createClientIfNotExists(ctx)
	if err != nil {
		return nil, err
	}
	bucket, err := s3blob.OpenBucketV2(ctx, client, bucketName, nil)
	if err != nil {
		return nil, fmt.Errorf("open bucket %q: %w", bucketName, err)
	}
	r, err := bucket.NewReader(ctx, key, nil)
	if err != nil {
		bucket.Close()
		return nil, fmt.Errorf("read s3://%s/%s: %w", bucketName, key, err)
	}
	return &bucketReader{ReadCloser: r, closeBucket: bucket.Close}, nil
}

// bucketReader closes the bucket along with the object reader.
type bucketReader struct {
	io.ReadCloser
	closeBucket func() error
}

func (r *bucketReader) Close() error {
	err := r.ReadCloser.Close()
	if cerr := r.closeBucket(); err == nil {
		err = cerr
	}
	return err
}
