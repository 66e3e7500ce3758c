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
package anonymize

import (
	mapset "github.com/deckarep/golang-set/v2"
	log "github.com/sirupsen/logrus"

	"github.com/yugabyte/yb-table-anonymizer/src/errs"
)

// ColumnPlan narrows the columns a rule asks for to the ones the table has.
type ColumnPlan struct {
	Requested []string
	// Subset of the table's columns, in requested order.
	Resolved []string
	Warnings []errs.ColumnNotFoundWarning
}

func NewColumnPlan(tableName string, requested []string, declared []string) *ColumnPlan {
	plan := &ColumnPlan{Requested: requested}
	available := mapset.NewThreadUnsafeSet(declared...)
	added := mapset.NewThreadUnsafeSet[string]()
	for _, col := range requested {
		if !available.Contains(col) {
			w := errs.ColumnNotFoundWarning{TableName: tableName, ColumnName: col, AvailableColumns: declared}
			log.Warn(w.String())
			plan.Warnings = append(plan.Warnings, w)
			continue
		}
		if added.Add(col) {
			plan.Resolved = append(plan.Resolved, col)
		}
	}
	return plan
}
