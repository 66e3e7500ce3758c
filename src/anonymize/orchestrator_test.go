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
package anonymize

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yugabyte/yb-table-anonymizer/src/config"
	"github.com/yugabyte/yb-table-anonymizer/src/datafile"
	"github.com/yugabyte/yb-table-anonymizer/src/errs"
	"github.com/yugabyte/yb-table-anonymizer/src/schema"
	testutils "github.com/yugabyte/yb-table-anonymizer/test/utils"
)

const (
	md5Email       = "743173788aa9166801df2e18f0e7ff24" // md5("a@x.com")
	md5EmailPepper = "bdd291111c309ca5339715c87d1f351d" // md5("a@x.compepper")
	md5IP1         = "e086aa137fa19f67d27b39d0eca18610" // md5("1.1.1.1")
	md5IP2         = "5b8656aafcb40bb58caf1d17ef8506a9" // md5("2.2.2.2")
)

func runAnonymizer(t *testing.T, dataDir string, cfg *config.AnonymizationConfig) (*RunSummary, error) {
	t.Helper()
	o := NewOrchestrator(cfg, NewDirs(dataDir, ""), Options{DisablePb: true})
	return o.Run(context.Background())
}

func md5Config(rules ...config.RuleConfig) *config.AnonymizationConfig {
	return &config.AnonymizationConfig{Method: "MD5", Rules: rules}
}

func inTable(dataDir string, parts ...string) string {
	return filepath.Join(append([]string{dataDir, "in", "tables"}, parts...)...)
}

func outTable(dataDir string, parts ...string) string {
	return filepath.Join(append([]string{dataDir, "out", "tables"}, parts...)...)
}

func writeGzip(t *testing.T, path string, content string) {
	t.Helper()
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	_, err := w.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	testutils.WriteFile(t, path, buf.String())
}

func tableSummary(t *testing.T, summary *RunSummary, name string) *TableSummary {
	t.Helper()
	for _, ts := range summary.Tables {
		if ts.TableName == name {
			return ts
		}
	}
	require.FailNow(t, "table not in summary", name)
	return nil
}

func TestRunSingleTableWithoutSalt(t *testing.T) {
	dataDir := testutils.CreateTempDataDir(t)
	testutils.WriteFile(t, inTable(dataDir, "users.csv"), "id,email\n1,a@x.com\n")

	summary, err := runAnonymizer(t, dataDir, md5Config(config.RuleConfig{Table: "users", Columns: []string{"email"}}))
	require.NoError(t, err)

	assert.Equal(t, [][]string{{"id", "email"}, {"1", md5Email}}, testutils.ReadCSVRows(t, outTable(dataDir, "users.csv")))
	ts := tableSummary(t, summary, "users")
	assert.Equal(t, ANONYMIZED, ts.State)
	assert.Equal(t, "users", ts.RulePattern)
	assert.Equal(t, []string{"email"}, ts.AnonymizedColumns)
	// no manifest carries the columns, so the header is kept and no row is lost
	assert.Equal(t, ts.RowsRead, ts.RowsWritten)
	assert.NoFileExists(t, outTable(dataDir, "users.csv.manifest"))
}

func TestRunAppendedSalt(t *testing.T) {
	dataDir := testutils.CreateTempDataDir(t)
	testutils.WriteFile(t, inTable(dataDir, "users.csv"), "id,email\n1,a@x.com\n")

	cfg := md5Config(config.RuleConfig{Table: "users", Columns: []string{"email"}})
	cfg.Salt, cfg.SaltLocation = "pepper", "append"
	_, err := runAnonymizer(t, dataDir, cfg)
	require.NoError(t, err)

	rows := testutils.ReadCSVRows(t, outTable(dataDir, "users.csv"))
	assert.Equal(t, []string{"1", md5EmailPepper}, rows[1])
}

func TestRunIsDeterministicAndHidesPlaintext(t *testing.T) {
	input := "id,email,name\n1,a@x.com,Ann\n2,b@x.com,Bob\n3,a@x.com,Ann\n"
	var outputs []string
	for i := 0; i < 2; i++ {
		dataDir := testutils.CreateTempDataDir(t)
		testutils.WriteFile(t, inTable(dataDir, "users.csv"), input)
		cfg := &config.AnonymizationConfig{Method: "SHA", SHAVersion: "256", Salt: "pepper",
			Rules: []config.RuleConfig{{Table: "users", Columns: []string{"email", "name"}}}}
		_, err := runAnonymizer(t, dataDir, cfg)
		require.NoError(t, err)
		outputs = append(outputs, testutils.ReadFile(t, outTable(dataDir, "users.csv")))

		inRows := testutils.ReadCSVRows(t, inTable(dataDir, "users.csv"))
		outRows := testutils.ReadCSVRows(t, outTable(dataDir, "users.csv"))
		require.Len(t, outRows, len(inRows))
		for r := 1; r < len(outRows); r++ {
			assert.Equal(t, inRows[r][0], outRows[r][0])
			for _, c := range []int{1, 2} {
				assert.NotEqual(t, inRows[r][c], outRows[r][c])
				assert.Len(t, outRows[r][c], 64)
			}
		}
		assert.Equal(t, outRows[1][1], outRows[3][1])
	}
	assert.Equal(t, outputs[0], outputs[1])
}

func TestRunSlicedTableDiscoversColumnsOnce(t *testing.T) {
	dataDir := testutils.CreateTempDataDir(t)
	testutils.WriteFile(t, inTable(dataDir, "logs", "part1"), "ts,ip\n1,1.1.1.1\n")
	// every chunk repeats the header: columns come from part1 and part2's header only has to agree
	testutils.WriteFile(t, inTable(dataDir, "logs", "part2"), "ts,ip\n2,2.2.2.2\n")
	testutils.WriteFile(t, inTable(dataDir, "logs.manifest"), `{"is_sliced": true, "custom": "kept"}`)

	summary, err := runAnonymizer(t, dataDir, md5Config(config.RuleConfig{Table: "logs", Columns: []string{"ip"}}))
	require.NoError(t, err)

	ts := tableSummary(t, summary, "logs")
	testutils.LogTestf(t, "table %s: shape %s, %d chunk(s)", ts.TableName, ts.Shape, ts.Chunks)
	assert.True(t, ts.Shape.Sliced)
	assert.True(t, ts.Shape.Headered)
	assert.Equal(t, 2, ts.Chunks)
	// headers dropped because the manifest now carries the columns
	assert.Equal(t, ts.RowsRead-2, ts.RowsWritten)
	assert.Equal(t, [][]string{{"1", md5IP1}}, testutils.ReadCSVRows(t, outTable(dataDir, "logs", "part1")))
	assert.Equal(t, [][]string{{"2", md5IP2}}, testutils.ReadCSVRows(t, outTable(dataDir, "logs", "part2")))

	m, err := datafile.ReadManifest(outTable(dataDir, "logs.manifest"))
	require.NoError(t, err)
	assert.Equal(t, []string{"ts", "ip"}, m.Columns)
	assert.True(t, m.IsSliced)
	assert.Contains(t, m.ExtraKeys(), "custom")
}

func TestRunSlicedTableWithInconsistentChunks(t *testing.T) {
	dataDir := testutils.CreateTempDataDir(t)
	testutils.WriteFile(t, inTable(dataDir, "logs", "part1"), "ts,ip\n1,1.1.1.1\n")
	testutils.WriteFile(t, inTable(dataDir, "logs", "part2"), "ip\n2.2.2.2\n")

	_, err := runAnonymizer(t, dataDir, md5Config(config.RuleConfig{Table: "logs", Columns: []string{"ip"}}))
	testutils.LogTestf(t, "run failed as expected: %v", err)
	var chunkErr *errs.InconsistentChunkError
	require.True(t, errors.As(err, &chunkErr))
	assert.True(t, errs.IsUserFacing(err))
}

func TestRunFailedTableLeavesNoOutput(t *testing.T) {
	dataDir := testutils.CreateTempDataDir(t)
	// the bad row is past the first ROW_BATCH_SIZE rows, so earlier rows have been flushed
	content := "id,email\n" + strings.Repeat("1,a@x.com\n", 5000) + "2,\"bad\"quote\n"
	testutils.WriteFile(t, inTable(dataDir, "users.csv"), content)

	_, err := runAnonymizer(t, dataDir, md5Config(config.RuleConfig{Table: "users", Columns: []string{"email"}}))
	testutils.LogTestf(t, "run failed as expected: %v", err)
	var ioErr *errs.IOError
	require.ErrorAs(t, err, &ioErr)
	assert.Contains(t, err.Error(), "line 5002")
	assert.NoFileExists(t, outTable(dataDir, "users.csv"))
	assert.NoFileExists(t, outTable(dataDir, "users.csv.manifest"))
}

func TestRunFailedSlicedTableLeavesNoOutput(t *testing.T) {
	dataDir := testutils.CreateTempDataDir(t)
	testutils.WriteFile(t, inTable(dataDir, "logs", "part1"), "ts,ip\n1,1.1.1.1\n")
	testutils.WriteFile(t, inTable(dataDir, "logs", "part2"), "ts,ip\n2,\"bad\"quote\n")
	testutils.WriteFile(t, inTable(dataDir, "logs.manifest"), `{"is_sliced": true}`)

	_, err := runAnonymizer(t, dataDir, md5Config(config.RuleConfig{Table: "logs", Columns: []string{"ip"}}))
	var ioErr *errs.IOError
	require.ErrorAs(t, err, &ioErr)
	assert.NoDirExists(t, outTable(dataDir, "logs"))
	assert.NoFileExists(t, outTable(dataDir, "logs.manifest"))
}

func TestRunPassThroughIsByteIdentical(t *testing.T) {
	dataDir := testutils.CreateTempDataDir(t)
	content := "id;amount\r\n1;\"10\"\n"
	manifest := `{"name": "orders", "delimiter": ";", "x-extra": [1, 2]}`
	testutils.WriteFile(t, inTable(dataDir, "orders.csv"), content)
	testutils.WriteFile(t, inTable(dataDir, "orders.csv.manifest"), manifest)

	summary, err := runAnonymizer(t, dataDir, md5Config(config.RuleConfig{Table: "users", Columns: []string{"email"}}))
	require.NoError(t, err)

	assert.Equal(t, PASSED_THROUGH, tableSummary(t, summary, "orders").State)
	assert.Equal(t, content, testutils.ReadFile(t, outTable(dataDir, "orders.csv")))
	assert.Equal(t, manifest, testutils.ReadFile(t, outTable(dataDir, "orders.csv.manifest")))
	assert.Equal(t, []string{"users"}, summary.UnmatchedRules)
}

func TestRunAmbiguousRulesAbortBeforeWriting(t *testing.T) {
	dataDir := testutils.CreateTempDataDir(t)
	testutils.WriteFile(t, inTable(dataDir, "addresses.csv"), "id\n1\n")
	testutils.WriteFile(t, inTable(dataDir, "orders.csv"), "id,email\n1,a@x.com\n")

	_, err := runAnonymizer(t, dataDir, md5Config(
		config.RuleConfig{Table: "ord*", Columns: []string{"email"}},
		config.RuleConfig{Table: "orders", Columns: []string{"id"}},
	))
	var ambiguous *errs.AmbiguousRuleError
	require.True(t, errors.As(err, &ambiguous))
	assert.Equal(t, "orders", ambiguous.TableName)
	assert.ElementsMatch(t, []string{"ord*", "orders"}, ambiguous.Patterns)
	assert.NoFileExists(t, outTable(dataDir, "addresses.csv"))
}

func TestRunUnsupportedMethodAbortsBeforeWriting(t *testing.T) {
	dataDir := testutils.CreateTempDataDir(t)
	testutils.WriteFile(t, inTable(dataDir, "orders.csv"), "id\n1\n")

	cfg := md5Config()
	cfg.Method = "AES"
	_, err := runAnonymizer(t, dataDir, cfg)
	var cfgErr *errs.ConfigurationError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "method", cfgErr.Field)
	assert.NoFileExists(t, outTable(dataDir, "orders.csv"))
}

func TestRunMissingColumnIsAWarning(t *testing.T) {
	dataDir := testutils.CreateTempDataDir(t)
	testutils.WriteFile(t, inTable(dataDir, "users.csv"), "id,email\n1,a@x.com\n")

	summary, err := runAnonymizer(t, dataDir, md5Config(config.RuleConfig{Table: "users", Columns: []string{"ssn", "email"}}))
	require.NoError(t, err)

	ts := tableSummary(t, summary, "users")
	assert.Equal(t, []string{"email"}, ts.AnonymizedColumns)
	require.Len(t, ts.Warnings, 1)
	assert.Equal(t, "ssn", ts.Warnings[0].ColumnName)
	assert.Equal(t, "ssn", ts.FormatWarnings())
	assert.Equal(t, []string{"1", md5Email}, testutils.ReadCSVRows(t, outTable(dataDir, "users.csv"))[1])
}

func TestRunManifestColumnsAndSchema(t *testing.T) {
	dataDir := testutils.CreateTempDataDir(t)
	testutils.WriteFile(t, inTable(dataDir, "users.csv"), "1,a@x.com\n")
	testutils.WriteFile(t, inTable(dataDir, "users.csv.manifest"), `{
		"columns": ["id", "email"],
		"schema": [
			{"name": "id", "data_type": {"base": {"type": "INTEGER"}}},
			{"name": "email", "data_type": {"base": {"type": "VARCHAR", "length": "320", "default": "n/a"}, "snowflake": {"type": "VARCHAR"}}}
		]
	}`)

	summary, err := runAnonymizer(t, dataDir, md5Config(config.RuleConfig{Table: "users", Columns: []string{"email"}}))
	require.NoError(t, err)

	ts := tableSummary(t, summary, "users")
	assert.False(t, ts.Shape.Headered)
	assert.Equal(t, ts.RowsRead, ts.RowsWritten)
	assert.Equal(t, [][]string{{"1", md5Email}}, testutils.ReadCSVRows(t, outTable(dataDir, "users.csv")))

	m, err := datafile.ReadManifest(outTable(dataDir, "users.csv.manifest"))
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "email"}, m.Columns)
	require.Len(t, m.Schema, 2)
	assert.Equal(t, "INTEGER", m.Schema[0].DataType[datafile.BASE_TYPE_KEY].Type)
	assert.Equal(t, &datafile.TypeSpec{Type: schema.STRING_TYPE, Length: "320", Default: "n/a"}, m.Schema[1].DataType[datafile.BASE_TYPE_KEY])
	assert.NotContains(t, m.Schema[1].DataType, "snowflake")
}

func TestRunCompressedTable(t *testing.T) {
	dataDir := testutils.CreateTempDataDir(t)
	writeGzip(t, inTable(dataDir, "users.csv.gz"), "id,email\n1,a@x.com\n")

	summary, err := runAnonymizer(t, dataDir, md5Config(config.RuleConfig{Table: "users", Columns: []string{"email"}}))
	require.NoError(t, err)

	ts := tableSummary(t, summary, "users")
	assert.True(t, ts.Shape.Compressed)
	assert.Equal(t, outTable(dataDir, "users.csv"), ts.OutputPath)
	assert.Equal(t, [][]string{{"id", "email"}, {"1", md5Email}}, testutils.ReadCSVRows(t, outTable(dataDir, "users.csv")))
	assert.True(t, testutils.IsEmptyDir(t, filepath.Join(dataDir, "temp")))
}

func TestRunRuleMatchingInputFileIsSkipped(t *testing.T) {
	dataDir := testutils.CreateTempDataDir(t)
	testutils.WriteFile(t, filepath.Join(dataDir, "in", "files", "contacts.csv"), "email\na@x.com\n")

	summary, err := runAnonymizer(t, dataDir, md5Config(config.RuleConfig{Table: "contacts", Columns: []string{"email"}}))
	require.NoError(t, err)

	ts := tableSummary(t, summary, "contacts.csv")
	assert.Equal(t, SKIPPED, ts.State)
	assert.Equal(t, "contacts", ts.RulePattern)
	assert.Empty(t, summary.UnmatchedRules)
	assert.Len(t, summary.TablesInState(SKIPPED), 1)
}

func TestRunCancelled(t *testing.T) {
	dataDir := testutils.CreateTempDataDir(t)
	testutils.WriteFile(t, inTable(dataDir, "users.csv"), "id\n1\n")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewOrchestrator(md5Config(), NewDirs(dataDir, ""), Options{DisablePb: true}).Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
