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

import "strconv"

// ValueAnonymizer replaces a cell value with the digest of the salted value.
// It is stateless apart from read-only configuration and is safe for concurrent use.
type ValueAnonymizer struct {
	hasher    Hasher
	salt      string // secret, never logged
	placement SaltPlacement
}

func NewValueAnonymizer(hasher Hasher, salt string, placement SaltPlacement) *ValueAnonymizer {
	return &ValueAnonymizer{
		hasher:    hasher,
		salt:      salt,
		placement: placement,
	}
}

func (a *ValueAnonymizer) Anonymize(value string) (string, error) {
	return a.hasher.Encode(ApplySalt(value, a.salt, a.placement)), nil
}

func (a *ValueAnonymizer) Hasher() Hasher {
	return a.hasher
}

func (a *ValueAnonymizer) String() string {
	return "ValueAnonymizer{method=" + a.hasher.Name() + ", placement=" + string(a.placement) + ", salted=" + strconv.FormatBool(a.salt != "") + "}"
}
