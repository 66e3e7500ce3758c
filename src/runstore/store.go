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
package runstore

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	log "github.com/sirupsen/logrus"
)

const (
	RUNS_TABLE_NAME   = "runs"
	TABLES_TABLE_NAME = "table_outcomes"

	RUN_STATUS_RUNNING = "RUNNING"
	RUN_STATUS_DONE    = "DONE"
	RUN_STATUS_FAILED  = "FAILED"
)

const SQLITE_OPTIONS = "?_txlock=exclusive&_timeout=30000"

func GetRunStorePath(dataDir string) string {
	return filepath.Join(dataDir, "metainfo", "runs.db")
}

// TableRecord is the persisted outcome of one table in a run.
type TableRecord struct {
	RunID       string
	TableName   string
	State       string
	RulePattern string
	Columns     string
	Warnings    int
	RowsWritten int64
	BytesRead   int64
	OutputPath  string
}

// Store keeps the history of anonymization runs in a sqlite database.
type Store struct {
	db *sql.DB
}

func NewStore(dbPath string) (*Store, error) {
	err := os.MkdirAll(filepath.Dir(dbPath), 0755)
	if err != nil {
		return nil, fmt.Errorf("create directory for run store: %w", err)
	}
	db, err := sql.Open("sqlite3", fmt.Sprintf("%s%s", dbPath, SQLITE_OPTIONS))
	if err != nil {
		return nil, fmt.Errorf("error while opening run store: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Init() error {
	cmds := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			run_id TEXT PRIMARY KEY,
			started_at INTEGER NOT NULL,
			finished_at INTEGER,
			status TEXT NOT NULL,
			config TEXT,
			error TEXT);`, RUNS_TABLE_NAME),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			run_id TEXT NOT NULL,
			table_name TEXT NOT NULL,
			state TEXT NOT NULL,
			rule_pattern TEXT,
			columns TEXT,
			warnings INTEGER DEFAULT 0,
			rows_written INTEGER DEFAULT 0,
			bytes_read INTEGER DEFAULT 0,
			output_path TEXT,
			PRIMARY KEY (run_id, table_name));`, TABLES_TABLE_NAME),
	}
	for _, cmd := range cmds {
		_, err := s.db.Exec(cmd)
		if err != nil {
			return fmt.Errorf("error while initializing run store: %s: %w", cmd, err)
		}
	}
	return nil
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// StartRun records a new run and returns its id. config must not contain secrets.
func (s *Store) StartRun(config string) (string, error) {
	runID := uuid.New().String()
	query := fmt.Sprintf(`INSERT INTO %s (run_id, started_at, status, config) VALUES (?, ?, ?, ?)`, RUNS_TABLE_NAME)
	_, err := s.db.Exec(query, runID, time.Now().Unix(), RUN_STATUS_RUNNING, config)
	if err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}
	log.Infof("started run %s", runID)
	return runID, nil
}

// FinishRun marks the run as done, or failed when runErr is not nil.
func (s *Store) FinishRun(runID string, runErr error) error {
	status, errText := RUN_STATUS_DONE, ""
	if runErr != nil {
		status, errText = RUN_STATUS_FAILED, runErr.Error()
	}
	query := fmt.Sprintf(`UPDATE %s SET finished_at = ?, status = ?, error = ? WHERE run_id = ?`, RUNS_TABLE_NAME)
	_, err := s.db.Exec(query, time.Now().Unix(), status, errText, runID)
	if err != nil {
		return fmt.Errorf("update run %s: %w", runID, err)
	}
	return nil
}

func (s *Store) GetRunStatus(runID string) (string, error) {
	var status string
	query := fmt.Sprintf(`SELECT status FROM %s WHERE run_id = ?`, RUNS_TABLE_NAME)
	err := s.db.QueryRow(query, runID).Scan(&status)
	if err != nil {
		return "", fmt.Errorf("get status of run %s: %w", runID, err)
	}
	return status, nil
}

func (s *Store) RecordTable(rec *TableRecord) error {
	query := fmt.Sprintf(`INSERT OR REPLACE INTO %s
		(run_id, table_name, state, rule_pattern, columns, warnings, rows_written, bytes_read, output_path)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`, TABLES_TABLE_NAME)
	_, err := s.db.Exec(query, rec.RunID, rec.TableName, rec.State, rec.RulePattern, rec.Columns,
		rec.Warnings, rec.RowsWritten, rec.BytesRead, rec.OutputPath)
	if err != nil {
		return fmt.Errorf("record outcome of table %q: %w", rec.TableName, err)
	}
	return nil
}

func (s *Store) GetTableRecords(runID string) ([]*TableRecord, error) {
	query := fmt.Sprintf(`SELECT table_name, state, rule_pattern, columns, warnings, rows_written, bytes_read, output_path
		FROM %s WHERE run_id = ? ORDER BY table_name`, TABLES_TABLE_NAME)
	rows, err := s.db.Query(query, runID)
	if err != nil {
		return nil, fmt.Errorf("query table outcomes of run %s: %w", runID, err)
	}
	defer rows.Close()
	var records []*TableRecord
	for rows.Next() {
		rec := &TableRecord{RunID: runID}
		err = rows.Scan(&rec.TableName, &rec.State, &rec.RulePattern, &rec.Columns,
			&rec.Warnings, &rec.RowsWritten, &rec.BytesRead, &rec.OutputPath)
		if err != nil {
			return nil, fmt.Errorf("scan table outcome: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
