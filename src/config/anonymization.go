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
package config

import (
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"

	"github.com/yugabyte/yb-table-anonymizer/src/anon"
	"github.com/yugabyte/yb-table-anonymizer/src/tablematch"
)

// Overrides the salt from the config file so that it need not be stored on disk.
const SALT_ENV_VAR = "YB_TABLE_ANONYMIZER_SALT"

type RuleConfig struct {
	Table   string   `mapstructure:"table"`
	Columns []string `mapstructure:"columns"`
}

// AnonymizationConfig is read-only for the duration of a run.
type AnonymizationConfig struct {
	Method       string       `mapstructure:"method"`
	SHAVersion   string       `mapstructure:"sha_version"`
	Salt         string       `mapstructure:"salt"`
	SaltLocation string       `mapstructure:"salt_location"`
	Rules        []RuleConfig `mapstructure:"rules"`
}

// ApplyEnvOverrides replaces the salt with the value of SALT_ENV_VAR when it is set.
func (c *AnonymizationConfig) ApplyEnvOverrides() {
	if salt, ok := os.LookupEnv(SALT_ENV_VAR); ok {
		log.Infof("using salt from environment variable %s", SALT_ENV_VAR)
		c.Salt = salt
	}
}

// Validate checks every setting before any table is touched.
func (c *AnonymizationConfig) Validate() error {
	_, err := c.NewValueAnonymizer()
	if err != nil {
		return err
	}
	_, err = c.NewRuleSet()
	return err
}

func (c *AnonymizationConfig) NewValueAnonymizer() (*anon.ValueAnonymizer, error) {
	hasher, err := anon.NewHasher(c.Method, c.SHAVersion)
	if err != nil {
		return nil, err
	}
	placement, err := anon.ParseSaltPlacement(c.SaltLocation)
	if err != nil {
		return nil, err
	}
	return anon.NewValueAnonymizer(hasher, c.Salt, placement), nil
}

func (c *AnonymizationConfig) NewRuleSet() (*tablematch.RuleSet, error) {
	rules := make([]*tablematch.Rule, 0, len(c.Rules))
	for _, rc := range c.Rules {
		rules = append(rules, &tablematch.Rule{TablePattern: rc.Table, Columns: rc.Columns})
	}
	return tablematch.NewRuleSet(rules)
}

// String is safe to log, the salt is never included.
func (c *AnonymizationConfig) String() string {
	return fmt.Sprintf("method=%s sha_version=%s salt_location=%s salted=%t rules=%d",
		c.Method, c.SHAVersion, c.SaltLocation, c.Salt != "", len(c.Rules))
}
