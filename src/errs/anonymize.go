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

package errs

import (
	"errors"
	"fmt"
	"strings"
)

// ConfigurationError is reported for invalid user configuration: unknown hash
// method, salt placement, malformed or duplicate table pattern etc.
type ConfigurationError struct {
	Field     string
	Value     string
	Supported []string
	Reason    string
}

func (e *ConfigurationError) Error() string {
	msg := fmt.Sprintf("invalid value %q for %q", e.Value, e.Field)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if len(e.Supported) > 0 {
		msg += fmt.Sprintf(", enter one from the list: %s", strings.Join(e.Supported, ", "))
	}
	return msg
}

func NewConfigurationError(field string, value string, supported []string) *ConfigurationError {
	return &ConfigurationError{
		Field:     field,
		Value:     value,
		Supported: supported,
	}
}

func NewConfigurationErrorWithReason(field string, value string, reason string) *ConfigurationError {
	return &ConfigurationError{
		Field:  field,
		Value:  value,
		Reason: reason,
	}
}

// AmbiguousRuleError means more than one configured table pattern matches the same table.
type AmbiguousRuleError struct {
	TableName string
	Patterns  []string
}

func (e *AmbiguousRuleError) Error() string {
	return fmt.Sprintf("table %q is matched by more than one anonymization rule: [%s]; make the table patterns disjoint",
		e.TableName, strings.Join(e.Patterns, ", "))
}

func NewAmbiguousRuleError(tableName string, patterns []string) *AmbiguousRuleError {
	return &AmbiguousRuleError{
		TableName: tableName,
		Patterns:  patterns,
	}
}

// ColumnNotFoundWarning is never returned as an error from a run, it is logged and
// the column is dropped from the anonymization plan.
type ColumnNotFoundWarning struct {
	TableName        string
	ColumnName       string
	AvailableColumns []string
}

func (w ColumnNotFoundWarning) String() string {
	return fmt.Sprintf("column %q is not in table %q, columns to anonymize must be one of %v",
		w.ColumnName, w.TableName, w.AvailableColumns)
}

type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %q: %s", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

func NewIOError(op string, path string, err error) *IOError {
	return &IOError{
		Op:   op,
		Path: path,
		Err:  err,
	}
}

type UnsupportedFormatError struct {
	Path      string
	Supported []string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("file %s cannot be processed: unsupported file type, supported types: %s",
		e.Path, strings.Join(e.Supported, ", "))
}

func NewUnsupportedFormatError(path string, supported []string) *UnsupportedFormatError {
	return &UnsupportedFormatError{
		Path:      path,
		Supported: supported,
	}
}

// InconsistentChunkError is returned when a slice of a headered sliced table
// does not start with the column list discovered from the first slice.
type InconsistentChunkError struct {
	TableName string
	ChunkPath string
	Expected  []string
	Found     []string
}

func (e *InconsistentChunkError) Error() string {
	return fmt.Sprintf("slice %q of table %q has header %v, expected %v as discovered from the first slice",
		e.ChunkPath, e.TableName, e.Found, e.Expected)
}

func NewInconsistentChunkError(tableName string, chunkPath string, expected []string, found []string) *InconsistentChunkError {
	return &InconsistentChunkError{
		TableName: tableName,
		ChunkPath: chunkPath,
		Expected:  expected,
		Found:     found,
	}
}

// IsUserFacing reports whether err is caused by the user's configuration or
// input data, as opposed to an unexpected internal failure.
func IsUserFacing(err error) bool {
	var configErr *ConfigurationError
	var ambiguousErr *AmbiguousRuleError
	var formatErr *UnsupportedFormatError
	var chunkErr *InconsistentChunkError
	return errors.As(err, &configErr) ||
		errors.As(err, &ambiguousErr) ||
		errors.As(err, &formatErr) ||
		errors.As(err, &chunkErr)
}
