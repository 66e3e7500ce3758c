//go:build unit

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

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDisablePBReporter(t *testing.T) {
	pbr := NewTablePB(nil, "users", false)
	assert.IsType(t, &DisablePBReporter{}, pbr)

	pbr.SetTotal(100)
	pbr.SetCurrent(40)
	assert.False(t, pbr.IsComplete())
	pbr.SetCurrent(120)
	assert.Equal(t, int64(120), pbr.(*DisablePBReporter).Total)
	pbr.Complete()
	assert.True(t, pbr.IsComplete())
}
