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
package anon

import (
	"crypto/md5"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"hash"
	"strings"

	"github.com/yugabyte/yb-table-anonymizer/src/errs"
)

const (
	METHOD_MD5    = "MD5"
	METHOD_SHA    = "SHA"
	METHOD_SHA256 = "SHA256"
	METHOD_SHA512 = "SHA512"

	SHA_VERSION_256 = "256"
	SHA_VERSION_512 = "512"

	DEFAULT_SHA_VERSION = SHA_VERSION_512
)

var (
	SupportedMethods     = []string{METHOD_MD5, METHOD_SHA, METHOD_SHA256, METHOD_SHA512}
	SupportedSHAVersions = []string{SHA_VERSION_256, SHA_VERSION_512}
)

// Hasher encodes a value into a fixed width lowercase hex digest.
type Hasher interface {
	Encode(value string) string
	Name() string
	// DigestLength is the number of hex characters Encode returns.
	DigestLength() int
}

type digestHasher struct {
	name    string
	newHash func() hash.Hash
	size    int
}

func (h *digestHasher) Encode(value string) string {
	d := h.newHash()
	d.Write([]byte(value)) // hash.Hash.Write never returns an error
	return hex.EncodeToString(d.Sum(nil))
}

func (h *digestHasher) Name() string {
	return h.name
}

func (h *digestHasher) DigestLength() int {
	return h.size * 2
}

func NewMD5Hasher() Hasher {
	return &digestHasher{name: METHOD_MD5, newHash: md5.New, size: md5.Size}
}

func NewSHA256Hasher() Hasher {
	return &digestHasher{name: METHOD_SHA256, newHash: sha256.New, size: sha256.Size}
}

func NewSHA512Hasher() Hasher {
	return &digestHasher{name: METHOD_SHA512, newHash: sha512.New, size: sha512.Size}
}

// NewHasher picks the hashing strategy for the configured method.
// shaVersion is only consulted for the generic "SHA" method and defaults to 512.
func NewHasher(method string, shaVersion string) (Hasher, error) {
	switch strings.ToUpper(strings.TrimSpace(method)) {
	case METHOD_MD5:
		return NewMD5Hasher(), nil
	case METHOD_SHA256:
		return NewSHA256Hasher(), nil
	case METHOD_SHA512:
		return NewSHA512Hasher(), nil
	case METHOD_SHA:
		switch strings.TrimSpace(shaVersion) {
		case "", SHA_VERSION_512:
			return NewSHA512Hasher(), nil
		case SHA_VERSION_256:
			return NewSHA256Hasher(), nil
		default:
			return nil, errs.NewConfigurationError("sha_version", shaVersion, SupportedSHAVersions)
		}
	default:
		return nil, errs.NewConfigurationError("method", method, SupportedMethods)
	}
}
