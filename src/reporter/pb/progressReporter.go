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
package pbreporter

import "github.com/vbauerster/mpb/v8"

// ProgressReporter is the part of an mpb bar the anonymizer drives, counted in bytes.
type ProgressReporter interface {
	SetTotal(total int64)
	SetCurrent(current int64)
	// Complete marks the bar done at its current value.
	Complete()
	Abort()
	IsComplete() bool
}

// NewTablePB returns a bar for one table in progressContainer, or a no-op reporter
// when progress bars are disabled or there is no container.
func NewTablePB(progressContainer *mpb.Progress, tableName string, disablePb bool) ProgressReporter {
	if disablePb || progressContainer == nil {
		return newDisablePBReporter()
	}
	return newEnablePBReporter(progressContainer, tableName)
}
