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
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/tebeka/atexit"

	"github.com/yugabyte/yb-table-anonymizer/src/config"
	"github.com/yugabyte/yb-table-anonymizer/src/lockfile"
	"github.com/yugabyte/yb-table-anonymizer/src/utils"
)

var (
	cfgFile   string
	dataDir   string
	workDir   string
	disablePb bool
	// Loaded config file, consulted by commands for keys that are not flags.
	configViper *viper.Viper
	dataDirLock *lockfile.Lockfile
)

var rootCmd = &cobra.Command{
	Use:   "yb-table-anonymizer",
	Short: "Anonymize selected columns of delimited tables with a salted one-way hash",
	Long: `Anonymize selected columns of CSV tables (single files or sliced directories, optionally compressed).
Values of the configured columns are replaced by a deterministic salted hash. Tables without a matching rule are copied through unchanged.`,

	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if cmd.Name() == "version" || cmd.Name() == "help" {
			return
		}
		var overrides []ConfigFlagOverride
		var err error
		configViper, overrides, err = initConfig(cmd)
		if err != nil {
			utils.ErrExit("failed to initialize config: %v", err)
		}
		err = config.ValidateLogLevel()
		if err != nil {
			utils.ErrExit("%v", err)
		}
		validateDataDirFlag()
		lockDataDir()
		InitLogging(dataDir, config.LogLevel)
		for _, o := range overrides {
			log.Infof("flag %q set from config key %q", o.FlagName, o.ConfigKey)
		}
		if config.IsLogLevelDebugOrBelow() {
			log.Debugf("config file %q keys: %v", configViper.ConfigFileUsed(), configViper.AllKeys())
		}
	},

	Run: func(cmd *cobra.Command, args []string) {
		if len(args) == 0 {
			cmd.Help()
			os.Exit(0)
		}
	},

	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		unlockDataDir()
	},
}

// Execute runs the root command. Cancelling ctx aborts a running anonymization.
func Execute(ctx context.Context) {
	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		utils.ErrExit("%v", err)
	}
	atexit.Exit(utils.EXIT_CODE_SUCCESS)
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.SilenceErrors = true
}

func registerCommonGlobalFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVarP(&dataDir, "data-dir", "d", "",
		"data directory holding in/tables, in/files and receiving out/tables (also holds logs and run history)")

	cmd.PersistentFlags().StringVarP(&cfgFile, "config-file", "c", "",
		"path of the config file with the anonymization method, salt and rules")

	cmd.PersistentFlags().StringVarP(&config.LogLevel, "log-level", "l", config.INFO,
		"log level for the log file. Possible values: trace, debug, info, warn, error, fatal, panic")

	cmd.PersistentFlags().BoolVar(&disablePb, "disable-pb", false,
		"disable the progress bars (they are always disabled when stdout is not a terminal)")

	cmd.PersistentFlags().StringVar(&workDir, "work-dir", "",
		"parent directory of the temporary decompression directories (default <data-dir>/temp)")
}

func validateDataDirFlag() {
	if dataDir == "" {
		utils.ErrExit(`ERROR: required flag "data-dir" not set`)
	}
	if !utils.FileOrFolderExists(dataDir) {
		utils.ErrExit("data-dir %q doesn't exists.\n", dataDir)
	} else if dataDir == "." {
		fmt.Println("Note: Using current working directory as data directory")
	} else {
		dataDir = strings.TrimRight(dataDir, "/")
	}
}

func lockDataDir() {
	var err error
	dataDirLock, err = lockfile.NewDataDirLockfile(dataDir)
	if err != nil {
		utils.ErrExit("%v", err)
	}
	err = dataDirLock.Lock()
	if errors.Is(err, lockfile.ErrDataDirBusy) {
		utils.ErrExit("Another instance of yb-table-anonymizer is running in the data-dir = %s", dataDir)
	} else if err != nil {
		utils.ErrExit("Unable to lock the data-dir: %v", err)
	}
	atexit.Register(unlockDataDir)
}

func unlockDataDir() {
	if dataDirLock == nil {
		return
	}
	err := dataDirLock.Unlock()
	dataDirLock = nil
	if err != nil {
		// Called from atexit handlers too, so only report.
		fmt.Fprintf(os.Stderr, "Unable to unlock the data-dir: %v\n", err)
		log.Errorf("unlock data-dir: %v", err)
	}
}
