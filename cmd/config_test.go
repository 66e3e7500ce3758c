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
package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yugabyte/yb-table-anonymizer/src/config"
	"github.com/yugabyte/yb-table-anonymizer/src/errs"
	"github.com/yugabyte/yb-table-anonymizer/src/utils"
)

func readTestConfig(t *testing.T, content string) *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	require.NoError(t, v.ReadConfig(strings.NewReader(content)))
	return v
}

func newTestAnonymizeCmd() *cobra.Command {
	root := &cobra.Command{Use: "yb-table-anonymizer"}
	sub := &cobra.Command{Use: "anonymize", Run: func(cmd *cobra.Command, args []string) {}}
	root.AddCommand(sub)
	sub.Flags().String("data-dir", "", "")
	sub.Flags().String("source-uri", "", "")
	sub.Flags().Bool("disable-pb", false, "")
	sub.Flags().String("salt", "", "")
	return sub
}

func TestValidateConfigFile_AcceptsKnownKeys(t *testing.T) {
	v := readTestConfig(t, `
data-dir: /tmp/data
log-level: debug
method: SHA
sha_version: "256"
salt: pepper
salt_location: append
rules:
  - table: "orders*"
    columns: [email]
anonymize:
  source-uri: s3://bucket/prefix
  disable-pb: true
`)
	assert.NoError(t, validateConfigFile(v))
}

func TestValidateConfigFile_RejectsUnknownKeys(t *testing.T) {
	v := readTestConfig(t, `
method: MD5
export-dir: /tmp/x
anonymize:
  batch-size: 10
source:
  db-host: localhost
`)
	err := validateConfigFile(v)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "found invalid configurations")
}

func TestBindCobraFlagsToViper_Precedence(t *testing.T) {
	v := readTestConfig(t, `
data-dir: /global/dir
disable-pb: true
salt: from-file
anonymize:
  source-uri: gs://bucket/prefix
  data-dir: /section/dir
`)
	cmd := newTestAnonymizeCmd()
	require.NoError(t, cmd.Flags().Set("disable-pb", "false"))

	overrides, err := bindCobraFlagsToViper(cmd, v)
	require.NoError(t, err)

	dir, _ := cmd.Flags().GetString("data-dir")
	assert.Equal(t, "/section/dir", dir)
	uri, _ := cmd.Flags().GetString("source-uri")
	assert.Equal(t, "gs://bucket/prefix", uri)
	// Set on the command line.
	pb, _ := cmd.Flags().GetBool("disable-pb")
	assert.False(t, pb)
	// Salt is never bound to the flag.
	salt, _ := cmd.Flags().GetString("salt")
	assert.Equal(t, "", salt)
	assert.False(t, cmd.Flags().Changed("salt"))

	keys := map[string]string{}
	for _, o := range overrides {
		keys[o.FlagName] = o.ConfigKey
	}
	assert.Equal(t, map[string]string{
		"data-dir":   "anonymize.data-dir",
		"source-uri": "anonymize.source-uri",
	}, keys)
}

func TestInitConfig_FromEnvVar(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "anonymizer.yaml")
	require.NoError(t, os.WriteFile(path, []byte("method: SHA256\nsalt: s\nrules:\n  - table: t\n    columns: [a]\n"), 0644))
	t.Setenv(CONFIG_FILE_ENV_VAR, path)
	cfgFile = ""

	v, _, err := initConfig(newTestAnonymizeCmd())
	require.NoError(t, err)
	assert.Equal(t, path, v.ConfigFileUsed())

	cfg := &config.AnonymizationConfig{}
	require.NoError(t, v.Unmarshal(cfg))
	assert.Equal(t, "SHA256", cfg.Method)
	require.Len(t, cfg.Rules, 1)
	assert.Equal(t, "t", cfg.Rules[0].Table)
	assert.Equal(t, []string{"a"}, cfg.Rules[0].Columns)
}

func TestInitConfig_MissingExplicitFile(t *testing.T) {
	cfgFile = filepath.Join(t.TempDir(), "missing.yaml")
	defer func() { cfgFile = "" }()
	_, _, err := initConfig(newTestAnonymizeCmd())
	assert.Error(t, err)
}

func TestLoadAnonymizationConfig_SaltPrecedence(t *testing.T) {
	defer func() { configViper = nil }()
	configViper = readTestConfig(t, "method: MD5\nsalt: from-file\n")

	cmd := newTestAnonymizeCmd()
	cfg, err := loadAnonymizationConfig(cmd)
	require.NoError(t, err)
	assert.Equal(t, "from-file", cfg.Salt)

	t.Setenv(config.SALT_ENV_VAR, "from-env")
	cfg, err = loadAnonymizationConfig(cmd)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Salt)

	defer func() { saltFlag = "" }()
	require.NoError(t, cmd.Flags().Set("salt", "ignored"))
	saltFlag = "from-flag"
	cfg, err = loadAnonymizationConfig(cmd)
	require.NoError(t, err)
	assert.Equal(t, "from-flag", cfg.Salt)
}

func TestLoadAnonymizationConfig_DecodeErrorHidesValues(t *testing.T) {
	defer func() { configViper = nil }()
	configViper = readTestConfig(t, "method: MD5\nsalt: [secret-value, other]\n")

	_, err := loadAnonymizationConfig(newTestAnonymizeCmd())
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "secret-value")
	assert.True(t, errs.IsUserFacing(err))
}

func TestRedactSaltFromArgs(t *testing.T) {
	args := []string{"yb-table-anonymizer", "anonymize", "--salt", "pepper", "--data-dir", "d", "--salt=pepper"}
	redacted := redactSaltFromArgs(args)
	assert.Equal(t, []string{"yb-table-anonymizer", "anonymize", "--salt", "XXX", "--data-dir", "d", "--salt=XXX"}, redacted)
	// The input is left untouched.
	assert.Equal(t, "pepper", args[3])
}

func TestExitCodeFor(t *testing.T) {
	assert.Equal(t, utils.EXIT_CODE_USER_ERROR, exitCodeFor(errs.NewConfigurationError("method", "ROT13", []string{"MD5"})))
	assert.Equal(t, utils.EXIT_CODE_USER_ERROR, exitCodeFor(fmt.Errorf("table t: %w", errs.NewAmbiguousRuleError("t", []string{"t*", "*"}))))
	assert.Equal(t, utils.EXIT_CODE_USER_ERROR, exitCodeFor(fmt.Errorf("processing: %w", context.Canceled)))
	assert.Equal(t, utils.EXIT_CODE_INTERNAL_FAIL, exitCodeFor(errs.NewIOError("read", "/x", os.ErrPermission)))
}

func TestStageSource_LocalDirectory(t *testing.T) {
	src := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(src, "orders"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "orders", "part-0.csv"), []byte("a,b\n1,2\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(src, "users.csv"), []byte("id\n1\n"), 0644))
	inTables := filepath.Join(t.TempDir(), "in", "tables")

	require.NoError(t, stageSource(context.Background(), src, inTables))
	assert.FileExists(t, filepath.Join(inTables, "orders", "part-0.csv"))
	assert.FileExists(t, filepath.Join(inTables, "users.csv"))

	// Staging the input directory onto itself is a no-op.
	require.NoError(t, stageSource(context.Background(), inTables, inTables))
}
