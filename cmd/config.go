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
package cmd

import (
	"fmt"
	"os"
	"sort"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const CONFIG_FILE_ENV_VAR = "YB_TABLE_ANONYMIZER_CONFIG_FILE"

// Keys of the anonymization model, read with viper.Unmarshal rather than bound to flags.
var allowedAnonymizationConfigKeys = mapset.NewThreadUnsafeSet[string](
	"method", "sha_version", "salt", "salt_location", "rules",
)

var allowedGlobalConfigKeys = mapset.NewThreadUnsafeSet[string](
	"data-dir", "log-level", "disable-pb", "work-dir",
).Union(allowedAnonymizationConfigKeys)

var allowedAnonymizeConfigKeys = mapset.NewThreadUnsafeSet[string](
	"data-dir", "log-level", "disable-pb", "work-dir", "source-uri",
)

var allowedConfigSections = map[string]mapset.Set[string]{
	"anonymize": allowedAnonymizeConfigKeys,
}

// ConfigFlagOverride is a CLI flag whose value came from the config file.
type ConfigFlagOverride struct {
	FlagName  string
	ConfigKey string
	Value     string
}

/*
initConfig loads the config file for cmd and binds its values to the flags the user did not set.

	Config file precedence: --config-file > YB_TABLE_ANONYMIZER_CONFIG_FILE > ~/yb-table-anonymizer-config.yaml.
	Flag precedence: CLI > <command>.<flag> in the file > <flag> at the top level of the file.
*/
func initConfig(cmd *cobra.Command) (*viper.Viper, []ConfigFlagOverride, error) {
	v := viper.New()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else if os.Getenv(CONFIG_FILE_ENV_VAR) != "" {
		v.SetConfigFile(os.Getenv(CONFIG_FILE_ENV_VAR))
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, nil, err
		}
		v.AddConfigPath(home)
		v.SetConfigName("yb-table-anonymizer-config")
		v.SetConfigType("yaml")
	}

	if err := v.ReadInConfig(); err == nil {
		fmt.Println("Using config file:", v.ConfigFileUsed())
	} else {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, nil, err
		}
	}

	err := validateConfigFile(v)
	if err != nil {
		return nil, nil, err
	}

	overrides, err := bindCobraFlagsToViper(cmd, v)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to bind cobra flags to viper: %w", err)
	}
	return v, overrides, nil
}

// validateConfigFile reports every unknown global key, unknown section and unknown key inside a section.
func validateConfigFile(v *viper.Viper) error {
	invalidGlobalKeys := mapset.NewThreadUnsafeSet[string]()
	invalidSectionKeys := make(map[string]mapset.Set[string])
	invalidSections := mapset.NewThreadUnsafeSet[string]()

	for _, key := range v.AllKeys() {
		parts := strings.Split(key, ".")
		if len(parts) == 1 {
			if !allowedGlobalConfigKeys.Contains(key) {
				invalidGlobalKeys.Add(key)
			}
			continue
		}
		// "a.b.c" -> section: "a", nestedKey: "b.c"
		section := parts[0]
		nestedKey := strings.Join(parts[1:], ".")
		allowedKeys, ok := allowedConfigSections[section]
		if !ok {
			invalidSections.Add(section)
			continue
		}
		if !allowedKeys.Contains(nestedKey) {
			if _, exists := invalidSectionKeys[section]; !exists {
				invalidSectionKeys[section] = mapset.NewThreadUnsafeSet[string]()
			}
			invalidSectionKeys[section].Add(nestedKey)
		}
	}

	if invalidGlobalKeys.Cardinality() == 0 && len(invalidSectionKeys) == 0 && invalidSections.Cardinality() == 0 {
		return nil
	}
	if invalidGlobalKeys.Cardinality() > 0 {
		fmt.Printf("%s [%s]\n", color.RedString("Invalid global config keys:"), strings.Join(sorted(invalidGlobalKeys), ", "))
	}
	for section, keys := range invalidSectionKeys {
		fmt.Printf("%s [%s]\n", color.RedString(fmt.Sprintf("Invalid keys in section '%s':", section)), strings.Join(sorted(keys), ", "))
	}
	if invalidSections.Cardinality() > 0 {
		fmt.Printf("%s [%s]\n", color.RedString("Invalid sections:"), strings.Join(sorted(invalidSections), ", "))
	}
	return fmt.Errorf("found invalid configurations in config file: %s", v.ConfigFileUsed())
}

func sorted(s mapset.Set[string]) []string {
	res := s.ToSlice()
	sort.Strings(res)
	return res
}

// bindCobraFlagsToViper sets every flag the user left unset from <command>.<flag>, falling back to the global <flag> key.
func bindCobraFlagsToViper(cmd *cobra.Command, v *viper.Viper) ([]ConfigFlagOverride, error) {
	var bindErr error
	var overrides []ConfigFlagOverride

	subCmdPath := strings.TrimPrefix(cmd.CommandPath(), cmd.Root().Name())
	subCmdPath = strings.TrimSpace(subCmdPath)
	configKeyPrefix := strings.ReplaceAll(subCmdPath, " ", "-")

	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if bindErr != nil || f.Changed {
			return
		}
		// Such keys keep their own precedence, applied when the config is unmarshalled.
		if allowedAnonymizationConfigKeys.Contains(f.Name) {
			return
		}
		var key string
		if configKeyPrefix != "" && v.IsSet(configKeyPrefix+"."+f.Name) {
			key = configKeyPrefix + "." + f.Name
		} else if allowedGlobalConfigKeys.Contains(f.Name) && v.IsSet(f.Name) {
			key = f.Name
		} else {
			return
		}
		val := v.GetString(key)
		err := cmd.Flags().Set(f.Name, val)
		if err != nil {
			bindErr = err
			return
		}
		overrides = append(overrides, ConfigFlagOverride{
			FlagName:  f.Name,
			ConfigKey: key,
			Value:     val,
		})
	})

	return overrides, bindErr
}
