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
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/gosuri/uilive"
	"github.com/gosuri/uitable"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/vbauerster/mpb/v8"
	"golang.org/x/term"

	"github.com/yugabyte/yb-table-anonymizer/src/anonymize"
	"github.com/yugabyte/yb-table-anonymizer/src/config"
	"github.com/yugabyte/yb-table-anonymizer/src/datastore"
	"github.com/yugabyte/yb-table-anonymizer/src/errs"
	"github.com/yugabyte/yb-table-anonymizer/src/runstore"
	"github.com/yugabyte/yb-table-anonymizer/src/utils"
)

var (
	sourceURI string
	saltFlag  string
)

var anonymizeCmd = &cobra.Command{
	Use:   "anonymize",
	Short: "Anonymize the configured columns of the tables under <data-dir>/in/tables",
	Long: `Every table under <data-dir>/in/tables is written to <data-dir>/out/tables.
Tables matched by a rule get the rule's columns replaced by a salted hash, all other tables are copied unchanged.
The method, salt and rules are read from the config file:

  method: SHA256            # MD5, SHA (with sha_version 256 or 512), SHA256 or SHA512
  salt: "..."               # or the YB_TABLE_ANONYMIZER_SALT environment variable
  salt_location: prepend    # prepend, append or none
  rules:
    - table: "orders*"
      columns: [email, phone]`,

	Run: func(cmd *cobra.Command, args []string) {
		err := anonymizeData(cmd.Context(), cmd)
		if err != nil {
			utils.ErrExitWithCode(exitCodeFor(err), "anonymize: %v", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(anonymizeCmd)
	registerCommonGlobalFlags(anonymizeCmd)

	anonymizeCmd.Flags().StringVar(&sourceURI, "source-uri", "",
		"location to stage the input tables from before anonymizing: s3://bucket/prefix, gs://bucket/prefix, "+
			"https://<account>.blob.core.windows.net/<container>/prefix or a local directory")
	anonymizeCmd.Flags().StringVar(&saltFlag, "salt", "",
		"salt mixed into every value before hashing. Overrides the config file and "+config.SALT_ENV_VAR)
}

func anonymizeData(ctx context.Context, cmd *cobra.Command) error {
	cfg, err := loadAnonymizationConfig(cmd)
	if err != nil {
		return err
	}
	log.Infof("anonymization config: %s", cfg)

	dirs := anonymize.NewDirs(dataDir, workDir)
	if sourceURI != "" {
		err = stageSource(ctx, sourceURI, dirs.InTables)
		if err != nil {
			return err
		}
	}

	store, err := openRunStore()
	if err != nil {
		return err
	}
	defer store.Close()
	runID, err := store.StartRun(cfg.String())
	if err != nil {
		return err
	}

	progress, pbDisabled := newProgressContainer(ctx)
	orchestrator := anonymize.NewOrchestrator(cfg, dirs, anonymize.Options{
		DisablePb: pbDisabled,
		Progress:  progress,
	})
	summary, runErr := orchestrator.Run(ctx)
	if progress != nil {
		progress.Wait()
	}

	if summary != nil {
		for _, ts := range summary.Tables {
			recErr := store.RecordTable(tableRecord(runID, ts))
			if recErr != nil {
				log.Errorf("%v", recErr)
			}
		}
	}
	finishErr := store.FinishRun(runID, runErr)
	if finishErr != nil {
		log.Errorf("%v", finishErr)
	}
	if runErr != nil {
		return runErr
	}
	printSummary(summary)
	return nil
}

func loadAnonymizationConfig(cmd *cobra.Command) (*config.AnonymizationConfig, error) {
	cfg := &config.AnonymizationConfig{}
	if configViper != nil {
		err := configViper.Unmarshal(cfg)
		if err != nil {
			// The decoder error can quote the offending values, salt included.
			log.Errorf("decode anonymization settings of %q", configViper.ConfigFileUsed())
			return nil, errs.NewConfigurationErrorWithReason("config-file", configViper.ConfigFileUsed(),
				"method, sha_version, salt and salt_location must be strings and rules a list of {table, columns}")
		}
	}
	cfg.ApplyEnvOverrides()
	if cmd.Flags().Changed("salt") {
		cfg.Salt = saltFlag
	}
	return cfg, nil
}

func stageSource(ctx context.Context, uri string, inTables string) error {
	if !datastore.IsRemoteURI(uri) {
		src, err1 := filepath.Abs(uri)
		dst, err2 := filepath.Abs(inTables)
		if err1 == nil && err2 == nil && src == dst {
			log.Infof("source-uri %q is the input tables directory, nothing to stage", uri)
			return nil
		}
	}
	ds, err := datastore.NewDataStore(uri)
	if err != nil {
		return err
	}
	utils.PrintAndLog("Staging input tables from %s", uri)
	writer := uilive.New()
	writer.Start()
	var mu sync.Mutex
	n, err := datastore.Stage(ctx, ds, inTables, func(done int, total int, name string) {
		mu.Lock()
		defer mu.Unlock()
		fmt.Fprintf(writer, "Staged %d/%d: %s\n", done, total, name)
	})
	writer.Stop()
	if err != nil {
		return fmt.Errorf("stage input tables: %w", err)
	}
	utils.PrintAndLog("Staged %s into %s", humanize.IBytes(uint64(n)), inTables)
	return nil
}

func openRunStore() (*runstore.Store, error) {
	store, err := runstore.NewStore(runstore.GetRunStorePath(dataDir))
	if err != nil {
		return nil, fmt.Errorf("open run store: %w", err)
	}
	err = store.Init()
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("init run store: %w", err)
	}
	return store, nil
}

// newProgressContainer returns nil and true when progress bars are disabled.
func newProgressContainer(ctx context.Context) (*mpb.Progress, bool) {
	if disablePb || !term.IsTerminal(int(os.Stdout.Fd())) {
		return nil, true
	}
	return mpb.NewWithContext(ctx), false
}

func tableRecord(runID string, ts *anonymize.TableSummary) *runstore.TableRecord {
	return &runstore.TableRecord{
		RunID:       runID,
		TableName:   ts.TableName,
		State:       string(ts.State),
		RulePattern: ts.RulePattern,
		Columns:     strings.Join(ts.AnonymizedColumns, ","),
		Warnings:    len(ts.Warnings),
		RowsWritten: ts.RowsWritten,
		BytesRead:   ts.BytesRead,
		OutputPath:  ts.OutputPath,
	}
}

func printSummary(summary *anonymize.RunSummary) {
	uiTable := uitable.New()
	uiTable.MaxColWidth = 60
	uiTable.Wrap = true
	headerfmt := color.New(color.FgGreen, color.Underline).SprintFunc()
	uiTable.AddRow(headerfmt("TABLE"), headerfmt("STATE"), headerfmt("RULE"), headerfmt("COLUMNS"),
		headerfmt("ROWS"), headerfmt("SIZE"))
	for _, ts := range summary.Tables {
		uiTable.AddRow(ts.TableName, ts.State, ts.RulePattern, strings.Join(ts.AnonymizedColumns, ", "),
			ts.RowsWritten, humanize.IBytes(uint64(ts.BytesRead)))
	}
	fmt.Print("\n")
	fmt.Println(uiTable)
	fmt.Print("\n")

	for _, ts := range summary.Tables {
		if len(ts.Warnings) > 0 {
			color.Yellow("WARNING: columns not found in table %q: %s", ts.TableName, ts.FormatWarnings())
		}
	}
	for _, pattern := range summary.UnmatchedRules {
		color.Yellow("WARNING: rule %q did not match any table or file", pattern)
	}
	utils.PrintAndLog("Anonymized %d table(s), passed through %d, skipped %d. Output is in %s",
		len(summary.TablesInState(anonymize.ANONYMIZED)), len(summary.TablesInState(anonymize.PASSED_THROUGH)),
		len(summary.TablesInState(anonymize.SKIPPED)), filepath.Join(dataDir, "out", "tables"))
}

func exitCodeFor(err error) int {
	if errs.IsUserFacing(err) || errors.Is(err, context.Canceled) {
		return utils.EXIT_CODE_USER_ERROR
	}
	return utils.EXIT_CODE_INTERNAL_FAIL
}
