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
package utils

import (
	"fmt"
	"os"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/tebeka/atexit"
)

const (
	EXIT_CODE_SUCCESS       = 0
	EXIT_CODE_USER_ERROR    = 1
	EXIT_CODE_INTERNAL_FAIL = 2
)

// ErrExit prints the formatted error and then terminates with the user error exit code.
func ErrExit(format string, args ...interface{}) {
	ErrExitWithCode(EXIT_CODE_USER_ERROR, format, args...)
}

func ErrExitWithCode(code int, format string, args ...interface{}) {
	format = strings.Replace(format, "%w", "%s", -1)
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	log.Errorf(format+"\n", args...)

	atexit.Exit(code)
}

func PrintAndLog(formatString string, args ...interface{}) {
	log.Infof(formatString, args...)
	if !strings.HasSuffix(formatString, "\n") {
		formatString = formatString + "\n"
	}
	fmt.Printf(formatString, args...)
}
