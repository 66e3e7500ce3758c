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
package schema

import (
	mapset "github.com/deckarep/golang-set/v2"
	log "github.com/sirupsen/logrus"

	"github.com/yugabyte/yb-table-anonymizer/src/datafile"
)

// Type anonymized columns get, digests are hex strings.
const STRING_TYPE = "STRING"

// Apply returns a copy of schema in which every column named in anonymized is typed
// as STRING. Length and default of the base type are kept, backend specific types of
// those columns are dropped. Columns absent from the schema are ignored.
func Apply(schema []*datafile.TypedColumn, anonymized []string) []*datafile.TypedColumn {
	if schema == nil {
		return nil
	}
	targets := mapset.NewThreadUnsafeSet(anonymized...)
	out := make([]*datafile.TypedColumn, 0, len(schema))
	for _, col := range schema {
		col = col.Clone()
		if targets.Contains(col.Name) {
			setStringType(col)
		}
		out = append(out, col)
	}
	return out
}

func setStringType(col *datafile.TypedColumn) {
	base := &datafile.TypeSpec{Type: STRING_TYPE}
	if prev, ok := col.DataType[datafile.BASE_TYPE_KEY]; ok && prev != nil {
		base.Length = prev.Length
		base.Default = prev.Default
		log.Infof("column %q: type %q -> %q", col.Name, prev.Type, STRING_TYPE)
	}
	col.DataType = map[string]*datafile.TypeSpec{datafile.BASE_TYPE_KEY: base}
}
