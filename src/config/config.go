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
	"strings"

	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"

	"github.com/yugabyte/yb-table-anonymizer/src/errs"
)

const (
	TRACE = "trace"
	DEBUG = "debug"
	INFO  = "info"
	WARN  = "warn"
	ERROR = "error"
	FATAL = "fatal"
	PANIC = "panic"
)

// LogLevel is bound to --log-level (or the log-level config key).
var LogLevel = INFO

// most verbose first, the order shown in error messages
var validLogLevels = []string{TRACE, DEBUG, INFO, WARN, ERROR, FATAL, PANIC}

var logrusLevels = map[string]log.Level{
	TRACE: log.TraceLevel,
	DEBUG: log.DebugLevel,
	INFO:  log.InfoLevel,
	WARN:  log.WarnLevel,
	ERROR: log.ErrorLevel,
	FATAL: log.FatalLevel,
	PANIC: log.PanicLevel,
}

// ParseLogLevel maps a case-insensitive level name to its logrus level.
func ParseLogLevel(name string) (log.Level, error) {
	level, ok := logrusLevels[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return log.InfoLevel, errs.NewConfigurationError("log-level", name, validLogLevels)
	}
	return level, nil
}

// ValidateLogLevel rejects an unknown LogLevel and normalises a valid one to lower case.
func ValidateLogLevel() error {
	level, err := ParseLogLevel(LogLevel)
	if err != nil {
		return err
	}
	LogLevel, _ = lo.FindKey(logrusLevels, level)
	return nil
}

// Level returns the logrus level of LogLevel, info when it does not parse.
func Level() log.Level {
	level, _ := ParseLogLevel(LogLevel)
	return level
}

func IsLogLevelDebugOrBelow() bool {
	return Level() >= log.DebugLevel
}
