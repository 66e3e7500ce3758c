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
package datafile

import (
	"fmt"

	"github.com/goccy/go-json"
	log "github.com/sirupsen/logrus"

	"github.com/yugabyte/yb-table-anonymizer/src/utils/jsonfile"
)

const (
	MANIFEST_SUFFIX = ".manifest"
	// key of the backend independent entry in TypedColumn.DataType
	BASE_TYPE_KEY = "base"
)

type TypeSpec struct {
	Type    string `json:"type"`
	Length  string `json:"length,omitempty"`
	Default string `json:"default,omitempty"`
}

type TypedColumn struct {
	Name string `json:"name"`
	// Keyed by backend, "base" holds the backend independent type.
	DataType    map[string]*TypeSpec `json:"data_type,omitempty"`
	Nullable    *bool                `json:"nullable,omitempty"`
	PrimaryKey  bool                 `json:"primary_key,omitempty"`
	Description string               `json:"description,omitempty"`
}

func (c *TypedColumn) Clone() *TypedColumn {
	clone := *c
	if c.DataType != nil {
		clone.DataType = make(map[string]*TypeSpec, len(c.DataType))
		for backend, spec := range c.DataType {
			if spec == nil {
				clone.DataType[backend] = nil
				continue
			}
			specCopy := *spec
			clone.DataType[backend] = &specCopy
		}
	}
	if c.Nullable != nil {
		nullable := *c.Nullable
		clone.Nullable = &nullable
	}
	return &clone
}

// Manifest is the JSON sidecar describing a table. Keys this tool does not
// interpret are kept and written back untouched.
type Manifest struct {
	Name         string         `json:"name,omitempty"`
	Columns      []string       `json:"columns,omitempty"`
	Delimiter    string         `json:"delimiter,omitempty"`
	Enclosure    *string        `json:"enclosure,omitempty"`
	Encoding     string         `json:"encoding,omitempty"`
	IsSliced     bool           `json:"is_sliced,omitempty"`
	IsCompressed bool           `json:"is_compressed,omitempty"`
	Schema       []*TypedColumn `json:"schema,omitempty"`

	extra map[string]json.RawMessage
}

var manifestKeys = []string{"name", "columns", "delimiter", "enclosure", "encoding", "is_sliced", "is_compressed", "schema"}

type manifestFields Manifest

func (m *Manifest) UnmarshalJSON(data []byte) error {
	var fields manifestFields
	err := json.Unmarshal(data, &fields)
	if err != nil {
		return err
	}
	var all map[string]json.RawMessage
	err = json.Unmarshal(data, &all)
	if err != nil {
		return err
	}
	for _, key := range manifestKeys {
		delete(all, key)
	}
	*m = Manifest(fields)
	if len(all) > 0 {
		m.extra = all
	}
	return nil
}

func (m Manifest) MarshalJSON() ([]byte, error) {
	known, err := json.Marshal(manifestFields(m))
	if err != nil {
		return nil, err
	}
	if len(m.extra) == 0 {
		return known, nil
	}
	merged := make(map[string]json.RawMessage, len(m.extra)+len(manifestKeys))
	for key, value := range m.extra {
		merged[key] = value
	}
	var knownMap map[string]json.RawMessage
	err = json.Unmarshal(known, &knownMap)
	if err != nil {
		return nil, err
	}
	for key, value := range knownMap {
		merged[key] = value
	}
	return json.Marshal(merged)
}

// ExtraKeys returns the keys preserved from the input that this tool does not interpret.
func (m *Manifest) ExtraKeys() []string {
	var keys []string
	for key := range m.extra {
		keys = append(keys, key)
	}
	return keys
}

// SchemaColumnNames returns the column names in schema order.
func (m *Manifest) SchemaColumnNames() []string {
	var names []string
	for _, col := range m.Schema {
		names = append(names, col.Name)
	}
	return names
}

// Clone returns a deep copy that can be edited for an output table.
func (m *Manifest) Clone() *Manifest {
	clone := *m
	clone.Columns = append([]string(nil), m.Columns...)
	if m.Enclosure != nil {
		enclosure := *m.Enclosure
		clone.Enclosure = &enclosure
	}
	if m.Schema != nil {
		clone.Schema = make([]*TypedColumn, len(m.Schema))
		for i, col := range m.Schema {
			clone.Schema[i] = col.Clone()
		}
	}
	if m.extra != nil {
		clone.extra = make(map[string]json.RawMessage, len(m.extra))
		for key, value := range m.extra {
			clone.extra[key] = value
		}
	}
	return &clone
}

func ManifestPath(storagePath string) string {
	return storagePath + MANIFEST_SUFFIX
}

func ReadManifest(path string) (*Manifest, error) {
	m, err := jsonfile.NewJsonFile[Manifest](path).Read()
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	log.Infof("read manifest %q: name=%q columns=%v schema=%v", path, m.Name, m.Columns, m.SchemaColumnNames())
	return m, nil
}

func WriteManifest(path string, m *Manifest) error {
	log.Infof("writing manifest %q: columns=%v", path, m.Columns)
	err := jsonfile.NewJsonFile[Manifest](path).Create(m)
	if err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return nil
}
