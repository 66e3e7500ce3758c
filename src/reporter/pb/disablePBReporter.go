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

// DisablePBReporter tracks progress without drawing anything.
type DisablePBReporter struct {
	Total       int64
	Current     int64
	IsCompleted bool
	IsAborted   bool
}

func newDisablePBReporter() *DisablePBReporter {
	return &DisablePBReporter{}
}

func (pbr *DisablePBReporter) SetTotal(total int64) {
	pbr.Total = total
}

func (pbr *DisablePBReporter) SetCurrent(current int64) {
	if current < 0 {
		current = 0
	}
	pbr.Current = current
	if pbr.Total < pbr.Current {
		pbr.Total = pbr.Current
	}
}

func (pbr *DisablePBReporter) Complete() {
	pbr.Total = pbr.Current
	pbr.IsCompleted = true
}

func (pbr *DisablePBReporter) Abort() {
	pbr.IsAborted = true
}

func (pbr *DisablePBReporter) IsComplete() bool {
	return pbr.IsCompleted
}
