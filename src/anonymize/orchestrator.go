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
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"
	"github.com/vbauerster/mpb/v8"

	"github.com/yugabyte/yb-table-anonymizer/src/anon"
	"github.com/yugabyte/yb-table-anonymizer/src/config"
	"github.com/yugabyte/yb-table-anonymizer/src/datafile"
	"github.com/yugabyte/yb-table-anonymizer/src/decompress"
	"github.com/yugabyte/yb-table-anonymizer/src/errs"
	"github.com/yugabyte/yb-table-anonymizer/src/layout"
	pbreporter "github.com/yugabyte/yb-table-anonymizer/src/reporter/pb"
	"github.com/yugabyte/yb-table-anonymizer/src/schema"
	"github.com/yugabyte/yb-table-anonymizer/src/tablematch"
)

type TableState string

const (
	PASSED_THROUGH TableState = "PASSED_THROUGH"
	ANONYMIZED     TableState = "ANONYMIZED"
	SKIPPED        TableState = "SKIPPED"
)

type TableSummary struct {
	TableName         string
	State             TableState
	RulePattern       string
	AnonymizedColumns []string
	Warnings          []errs.ColumnNotFoundWarning
	Shape             layout.Shape
	Chunks            int
	RowsRead          int64
	RowsWritten       int64
	BytesRead         int64
	OutputPath        string
}

type RunSummary struct {
	Tables []*TableSummary
	// Patterns that matched neither an input table nor an input file.
	UnmatchedRules []string
}

func (s *RunSummary) TablesInState(state TableState) []*TableSummary {
	return lo.Filter(s.Tables, func(t *TableSummary, _ int) bool { return t.State == state })
}

// Dirs are the directories of one run.
type Dirs struct {
	InTables  string
	InFiles   string
	OutTables string
	// Parent of the temporary decompression directories.
	Work string
}

func NewDirs(dataDir string, workDir string) Dirs {
	if workDir == "" {
		workDir = filepath.Join(dataDir, "temp")
	}
	return Dirs{
		InTables:  filepath.Join(dataDir, "in", "tables"),
		InFiles:   filepath.Join(dataDir, "in", "files"),
		OutTables: filepath.Join(dataDir, "out", "tables"),
		Work:      workDir,
	}
}

type Options struct {
	DisablePb bool
	// Container for the per table progress bars, nil disables them.
	Progress *mpb.Progress
}

// Orchestrator drives one anonymization run over every input table.
type Orchestrator struct {
	cfg  *config.AnonymizationConfig
	dirs Dirs
	opts Options

	rules      *tablematch.RuleSet
	anonymizer *anon.ValueAnonymizer
	resolver   *layout.Resolver
}

func NewOrchestrator(cfg *config.AnonymizationConfig, dirs Dirs, opts Options) *Orchestrator {
	return &Orchestrator{cfg: cfg, dirs: dirs, opts: opts}
}

// Run processes every table sequentially. On error the returned summary holds the
// tables finished before the failure.
func (o *Orchestrator) Run(ctx context.Context) (*RunSummary, error) {
	summary := &RunSummary{}
	err := o.cfg.Validate()
	if err != nil {
		return summary, err
	}
	o.anonymizer, err = o.cfg.NewValueAnonymizer()
	if err != nil {
		return summary, err
	}
	o.rules, err = o.cfg.NewRuleSet()
	if err != nil {
		return summary, err
	}
	o.resolver = layout.NewResolver(decompress.NewDecompressor(), o.dirs.Work, o.dirs.OutTables)
	log.Infof("starting anonymization run: %s, anonymizer: %s", o.cfg, o.anonymizer)

	tables, err := datafile.DiscoverTables(o.dirs.InTables)
	if err != nil {
		return summary, fmt.Errorf("discover input tables: %w", err)
	}
	files, err := datafile.DiscoverFiles(o.dirs.InFiles)
	if err != nil {
		return summary, fmt.Errorf("discover input files: %w", err)
	}

	// resolve every table up front so that an ambiguous rule aborts before any output is written
	tableRules := make([]*tablematch.Rule, len(tables))
	matchedPatterns := mapset.NewThreadUnsafeSet[string]()
	for i, t := range tables {
		tableRules[i], err = o.rules.Resolve(t.Name)
		if err != nil {
			return summary, err
		}
		if tableRules[i] != nil {
			matchedPatterns.Add(tableRules[i].TablePattern)
		}
	}

	err = os.MkdirAll(o.dirs.OutTables, 0755)
	if err != nil {
		return summary, errs.NewIOError("create directory", o.dirs.OutTables, err)
	}
	for i, t := range tables {
		if ctx.Err() != nil {
			return summary, ctx.Err()
		}
		var ts *TableSummary
		if tableRules[i] == nil {
			ts, err = o.passThrough(t)
		} else {
			ts, err = o.anonymizeTable(ctx, t, tableRules[i])
		}
		if err != nil {
			return summary, fmt.Errorf("table %q: %w", t.Name, err)
		}
		summary.Tables = append(summary.Tables, ts)
	}

	for _, rule := range o.rules.Rules() {
		if matchedPatterns.Contains(rule.TablePattern) {
			continue
		}
		skipped := o.skipFiles(rule, files)
		if len(skipped) == 0 {
			log.Warnf("rule for table pattern %q matched no input table", rule.TablePattern)
			summary.UnmatchedRules = append(summary.UnmatchedRules, rule.TablePattern)
		}
		summary.Tables = append(summary.Tables, skipped...)
	}
	return summary, nil
}

func (o *Orchestrator) skipFiles(rule *tablematch.Rule, files []string) []*TableSummary {
	var skipped []*TableSummary
	for _, name := range files {
		if !tablematch.Matches(rule.TablePattern, name) && !tablematch.Matches(rule.TablePattern, datafile.LogicalName(name)) {
			continue
		}
		log.Infof("%q is an input file, not a table: skipping rule %q", name, rule.TablePattern)
		skipped = append(skipped, &TableSummary{TableName: name, State: SKIPPED, RulePattern: rule.TablePattern})
	}
	return skipped
}

func (o *Orchestrator) passThrough(t *datafile.TableHandle) (*TableSummary, error) {
	log.Infof("table %q matches no rule, copying it to the output unchanged", t.Name)
	n, err := datafile.CopyTable(t, o.dirs.OutTables)
	if err != nil {
		return nil, err
	}
	return &TableSummary{
		TableName:  t.Name,
		State:      PASSED_THROUGH,
		BytesRead:  n,
		OutputPath: filepath.Join(o.dirs.OutTables, t.StorageName),
	}, nil
}

func (o *Orchestrator) anonymizeTable(ctx context.Context, t *datafile.TableHandle, rule *tablematch.Rule) (ts *TableSummary, err error) {
	log.Infof("anonymizing table %q with rule %q, columns %v", t.Name, rule.TablePattern, rule.Columns)
	plan, err := o.resolver.Plan(t)
	if err != nil {
		return nil, err
	}
	defer func() {
		cleanupErr := plan.Cleanup()
		if cleanupErr != nil {
			log.Warnf("cleanup of table %q: %v", t.Name, cleanupErr)
		}
	}()

	defer func() {
		if err != nil {
			removePartialOutput(t.Name, plan.OutputStoragePath)
		}
	}()

	columnPlan := NewColumnPlan(t.Name, rule.Columns, plan.Columns)
	ts = &TableSummary{
		TableName:         t.Name,
		State:             ANONYMIZED,
		RulePattern:       rule.TablePattern,
		AnonymizedColumns: columnPlan.Resolved,
		Warnings:          columnPlan.Warnings,
		Shape:             plan.Shape,
		Chunks:            len(plan.Files),
		OutputPath:        plan.OutputStoragePath,
	}
	if plan.Shape.Sliced {
		err = os.MkdirAll(plan.OutputStoragePath, 0755)
		if err != nil {
			return nil, errs.NewIOError("create directory", plan.OutputStoragePath, err)
		}
	}

	// Without a manifest nothing else carries the column names, so the header stays in the data.
	reemitHeader := plan.Shape.Headered && !t.HasManifest()
	progress := pbreporter.NewTablePB(o.opts.Progress, t.Name, o.opts.DisablePb)
	progress.SetTotal(totalSize(plan))
	defer func() {
		if err != nil {
			progress.Abort()
		} else {
			progress.Complete()
		}
	}()

	columnAnonymizer := NewColumnAnonymizer(o.anonymizer)
	for _, chunk := range plan.Files {
		task := &FileTask{
			TableName:          t.Name,
			InputPath:          chunk.InputPath,
			OutputPath:         chunk.OutputPath,
			Columns:            plan.Columns,
			ColumnsToAnonymize: columnPlan.Resolved,
			Format:             t.Format,
			HasHeaderRow:       plan.Shape.Headered,
			ReemitHeader:       reemitHeader,
			ProgressOffset:     ts.BytesRead,
		}
		stats, err := columnAnonymizer.ProcessFile(ctx, task, progress)
		if err != nil {
			return nil, err
		}
		ts.RowsRead += stats.RowsRead
		ts.RowsWritten += stats.RowsWritten
		ts.BytesRead += stats.BytesRead
	}

	if t.HasManifest() {
		err = o.writeManifest(t, plan, columnPlan)
		if err != nil {
			return nil, err
		}
	}
	log.Infof("table %q anonymized: columns %v, %d rows written to %q",
		t.Name, columnPlan.Resolved, ts.RowsWritten, plan.OutputStoragePath)
	return ts, nil
}

// removePartialOutput deletes whatever a failed table left under out/tables: the output
// file or slice directory and its manifest.
func removePartialOutput(tableName string, outputPath string) {
	log.Infof("removing partial output %q of failed table %q", outputPath, tableName)
	err := os.RemoveAll(outputPath)
	if err != nil {
		log.Warnf("remove partial output %q: %v", outputPath, err)
	}
	manifestPath := datafile.ManifestPath(outputPath)
	err = os.Remove(manifestPath)
	if err != nil && !os.IsNotExist(err) {
		log.Warnf("remove partial manifest %q: %v", manifestPath, err)
	}
}

// writeManifest writes the output manifest: the column list replaces any header that
// was dropped and anonymized columns are typed as strings.
func (o *Orchestrator) writeManifest(t *datafile.TableHandle, plan *layout.Plan, columnPlan *ColumnPlan) error {
	m := t.Manifest.Clone()
	m.Columns = append([]string(nil), plan.Columns...)
	m.IsSliced = plan.Shape.Sliced
	m.IsCompressed = false
	if t.HasManifestSchema {
		m.Schema = schema.Apply(t.Schema, columnPlan.Resolved)
	}
	path := datafile.ManifestPath(plan.OutputStoragePath)
	err := datafile.WriteManifest(path, m)
	if err != nil {
		return errs.NewIOError("write", path, err)
	}
	return nil
}

func totalSize(plan *layout.Plan) int64 {
	var total int64
	for _, chunk := range plan.Files {
		info, err := os.Stat(chunk.InputPath)
		if err == nil {
			total += info.Size()
		}
	}
	return total
}

// FormatWarnings joins the warnings of a table for display.
func (ts *TableSummary) FormatWarnings() string {
	return strings.Join(lo.Map(ts.Warnings, func(w errs.ColumnNotFoundWarning, _ int) string {
		return w.ColumnName
	}), ", ")
}
