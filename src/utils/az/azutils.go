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
package az

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/container"
	"gocloud.dev/blob/azureblob"
)

// creates a client for the account in the url with the default creds.
func newClient(serviceURL string) (*azblob.Client, error) {
	// cred represents the default Oauth token used to authenticate the account in the url.
	cred, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return nil, fmt.Errorf("create azure default credential: %w", err)
	}
	client, err := azblob.NewClient(serviceURL, cred, nil)
	if err != nil {
		return nil, fmt.Errorf("create azure blob client: %w", err)
	}
	return client, nil
}

// check if url is in format
// https://<account_name>.blob.core.windows.net/<container_name or bucket_name>
func ValidateObjectURL(uri string) error {
	u, err := url.Parse(uri)
	if err != nil {
		return fmt.Errorf("parsing the object of %q: %w", uri, err)
	}
	if u.Path == "" || u.Path == "/" {
		return fmt.Errorf("missing container in azure blob url %v", uri)
	}
	if u.Host == "" {
		return fmt.Errorf("missing service in azure blob url %v", uri)
	} else if !strings.Contains(u.Host, ".blob.") {
		return fmt.Errorf("invalid service in azure blob url %v", uri)
	}
	return nil
}

// SplitURL returns the service url, the container and the blob prefix.
func SplitURL(uri string) (string, string, string, error) {
	err := ValidateObjectURL(uri)
	if err != nil {
		return "", "", "", fmt.Errorf("invalid azure blob url %v: %w", uri, err)
	}
	u, _ := url.Parse(uri)
	blobPath := strings.TrimPrefix(u.Path, "/")
	containerName, key, _ := strings.Cut(blobPath, "/")
	return "https://" + u.Host, containerName, key, nil
}

// ListAllObjects returns the blob names under the url's prefix, relative to the prefix.
func ListAllObjects(ctx context.Context, uri string) ([]string, error) {
	serviceURL, containerName, key, err := SplitURL(uri)
	if err != nil {
		return nil, err
	}
	client, err := newClient(serviceURL)
	if err != nil {
		return nil, err
	}
	var keys []string
	options := &container.ListBlobsFlatOptions{}
	if key != "" {
		options = &container.ListBlobsFlatOptions{Prefix: &key}
	}
	pager := client.NewListBlobsFlatPager(containerName, options)
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("listing all objects of %q: %w", uri, err)
		}
		for _, blob := range page.Segment.BlobItems {
			objectName := strings.TrimPrefix(*blob.Name, key)
			objectName = strings.TrimPrefix(objectName, "/") //remove the first "/"
			if objectName == "" {
				continue
			}
			keys = append(keys, objectName)
		}
	}
	return keys, nil
}

func GetObjectSize(ctx context.Context, serviceURL string, containerName string, key string) (int64, error) {
	cred, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return 0, fmt.Errorf("create azure default credential: %w", err)
	}
	containerClient, err := container.NewClient(serviceURL+"/"+containerName, cred, nil)
	if err != nil {
		return 0, fmt.Errorf("create azure blob container client: %w", err)
	}
	// using OpenBucket API to get the attributes of the blob in the container
	bucket, err := azureblob.OpenBucket(ctx, containerClient, nil)
	if err != nil {
		return 0, fmt.Errorf("opening bucket for %q: %w", containerName, err)
	}
	defer bucket.Close()
	attrs, err := bucket.Attributes(ctx, key)
	if err != nil {
		return 0, fmt.Errorf("getting attributes of %q: %w", key, err)
	}
	return attrs.Size, nil
}

func NewObjectReader(ctx context.Context, serviceURL string, containerName string, key string) (io.ReadCloser, error) {
	client, err := newClient(serviceURL)
	if err != nil {
		return nil, err
	}
	get, err := client.DownloadStream(ctx, containerName, key, nil)
	if err != nil {
		return nil, fmt.Errorf("create download stream for %s/%s/%s: %w", serviceURL, containerName, key, err)
	}
	retryReader := get.NewRetryReader(ctx, &azblob.RetryReaderOptions{MaxRetries: 10})
	return retryReader, nil
}
