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
	"strings"

	"github.com/yugabyte/yb-table-anonymizer/src/errs"
)

type SaltPlacement string

const (
	SALT_PREPEND SaltPlacement = "prepend"
	SALT_APPEND  SaltPlacement = "append"
	SALT_NONE    SaltPlacement = "none"

	DEFAULT_SALT_PLACEMENT = SALT_PREPEND
)

var SupportedSaltPlacements = []string{string(SALT_PREPEND), string(SALT_APPEND), string(SALT_NONE)}

// ParseSaltPlacement validates the salt_location setting. An empty value means the default.
func ParseSaltPlacement(value string) (SaltPlacement, error) {
	switch SaltPlacement(strings.ToLower(strings.TrimSpace(value))) {
	case "":
		return DEFAULT_SALT_PLACEMENT, nil
	case SALT_PREPEND:
		return SALT_PREPEND, nil
	case SALT_APPEND:
		return SALT_APPEND, nil
	case SALT_NONE:
		return SALT_NONE, nil
	default:
		return "", errs.NewConfigurationError("salt_location", value, SupportedSaltPlacements)
	}
}

func ApplySalt(raw string, salt string, placement SaltPlacement) string {
	if salt == "" {
		return raw
	}
	switch placement {
	case SALT_PREPEND:
		return salt + raw
	case SALT_APPEND:
		return raw + salt
	default:
		return raw
	}
}
