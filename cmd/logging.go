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
	"path/filepath"
	"strings"

	log "github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/yugabyte/yb-table-anonymizer/src/config"
)

const LOG_FILE_NAME = "yb-table-anonymizer.log"

type MyFormatter struct{}

var levelList = []string{
	"PANIC",
	"FATAL",
	"ERROR",
	"WARN",
	"INFO",
	"DEBUG",
	"TRACE",
}

func (mf *MyFormatter) Format(entry *log.Entry) ([]byte, error) {
	level := levelList[int(entry.Level)]
	fileName := "?"
	line := 0
	if entry.Caller != nil {
		fileName = filepath.Base(entry.Caller.File)
		line = entry.Caller.Line
	}
	// 2022-03-23 12:16:42 INFO main.go:27 Logging initialised.
	msg := fmt.Sprintf("%s %s %s:%d %s\n",
		entry.Time.Format("2006-01-02 15:04:05"), level,
		fileName, line, entry.Message)
	return []byte(msg), nil
}

// InitLogging sends the log to ${dataDir}/logs/yb-table-anonymizer.log.
func InitLogging(dataDir string, logLevel string) {
	logFileName := filepath.Join(dataDir, "logs", LOG_FILE_NAME)

	// lumberjack creates the "logs" folder and the file when missing.
	logRotator := &lumberjack.Logger{
		Filename:   logFileName,
		MaxSize:    200, // MB before rotation
		MaxBackups: 10,
	}
	log.SetOutput(logRotator)

	level, _ := config.ParseLogLevel(logLevel)
	log.SetLevel(level)
	log.SetReportCaller(true)
	log.SetFormatter(&MyFormatter{})
	log.Info("Logging initialised.")
	log.Infof("Args: %v", redactSaltFromArgs(os.Args))
	log.Infof("\n%s", getVersionInfo())
}

func redactSaltFromArgs(args []string) []string {
	res := make([]string, len(args))
	copy(res, args)
	for i := 0; i < len(res); i++ {
		opt := res[i]
		if opt == "--salt" && i+1 < len(res) {
			res[i+1] = "XXX"
		} else if strings.HasPrefix(opt, "--salt=") {
			res[i] = "--salt=XXX"
		}
	}
	return res
}
