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
package tablematch

import (
	"path"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/yugabyte/yb-table-anonymizer/src/errs"
)

// Rule pairs a table name pattern with the columns to anonymize in matching tables.
type Rule struct {
	TablePattern string
	Columns      []string
}

// RuleSet is the read-only list of configured rules for a run.
// Patterns use path.Match semantics: case-sensitive, '*' and '?' never match '/'.
type RuleSet struct {
	rules []*Rule
}

func NewRuleSet(rules []*Rule) (*RuleSet, error) {
	seen := make(map[string]bool)
	for _, rule := range rules {
		if strings.TrimSpace(rule.TablePattern) == "" {
			return nil, errs.NewConfigurationErrorWithReason("rules.table", rule.TablePattern, "table pattern must not be empty")
		}
		if _, err := path.Match(rule.TablePattern, ""); err != nil {
			return nil, errs.NewConfigurationErrorWithReason("rules.table", rule.TablePattern, err.Error())
		}
		if seen[rule.TablePattern] {
			return nil, errs.NewConfigurationErrorWithReason("rules.table", rule.TablePattern, "table pattern is configured more than once")
		}
		seen[rule.TablePattern] = true
		if len(rule.Columns) == 0 {
			log.Warnf("rule for table pattern %q has no columns to anonymize", rule.TablePattern)
		}
	}
	return &RuleSet{rules: rules}, nil
}

func (rs *RuleSet) Rules() []*Rule {
	return rs.rules
}

// Resolve returns the only rule whose pattern matches tableName, nil if none matches.
// More than one match is an AmbiguousRuleError: precedence between rules is never implied
// by their order in the configuration.
func (rs *RuleSet) Resolve(tableName string) (*Rule, error) {
	var matched []*Rule
	for _, rule := range rs.rules {
		if Matches(rule.TablePattern, tableName) {
			matched = append(matched, rule)
		}
	}
	switch len(matched) {
	case 0:
		return nil, nil
	case 1:
		return matched[0], nil
	default:
		patterns := make([]string, 0, len(matched))
		for _, rule := range matched {
			patterns = append(patterns, rule.TablePattern)
		}
		return nil, errs.NewAmbiguousRuleError(tableName, patterns)
	}
}

// Matches reports whether name matches the glob pattern. Patterns are validated
// in NewRuleSet, so a malformed pattern here simply never matches.
func Matches(pattern string, name string) bool {
	ok, err := path.Match(pattern, name)
	return err == nil && ok
}
