// Copyright (c) 2017 Intel Corporation
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package conf

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gopkg.in/alecthomas/kingpin.v2"
)

// EnvironmentPrefix is a prefix of every environment variable read by conf.
const EnvironmentPrefix = "HERON"

var (
	app = kingpin.New("heron", "No help available")

	logLevelFlag = NewStringFlag(
		"log",
		"Log level: debug, info, warn, error, fatal, panic",
		"error",
	)
	verboseFlag = NewBoolFlag("verbose", "Verbose mode, same as --log=debug", false)

	arguments = app.Arg("args", "Positional arguments. Arguments starting with a dash go after '--'.").Strings()

	isEnvParsed = false
)

// SetHelp sets the help message for the CLI.
func SetHelp(help string) {
	app.Help = help
}

// SetAppName sets application name for CLI output.
func SetAppName(name string) {
	app.Name = name
}

// AppName returns specified app name.
func AppName() string {
	return app.Name
}

// LogLevel returns configured logLevel from input option or env variable.
// Verbose flag always wins with debug level.
// If it cannot parse the log level, it returns default value.
func LogLevel() logrus.Level {
	if verboseFlag.Value() {
		return logrus.DebugLevel
	}

	level, err := logrus.ParseLevel(logLevelFlag.Value())
	if err == nil {
		return level
	}

	level, err = logrus.ParseLevel(logLevelFlag.defaultValue)
	if err == nil {
		return level
	}

	// Programmer error.
	panic(errors.Wrap(err, "parsing log level failed"))
}

// ParseFlags parse both the command line flags of the process and
// environment variables.
func ParseFlags() error {
	return ParseArgs(os.Args[1:])
}

// ParseArgs parses given command line arguments and environment variables.
func ParseArgs(args []string) error {
	resetCumulative()
	if _, err := app.Parse(args); err != nil {
		return errors.Wrapf(err, "could not parse command line flags")
	}
	isEnvParsed = true
	return nil
}

// ParseEnv parse the environment for arguments.
func ParseEnv() error {
	resetCumulative()
	if _, err := app.Parse([]string{}); err != nil {
		return errors.Wrapf(err, "could not parse environment flags")
	}
	isEnvParsed = true
	return nil
}

// resetCumulative drops values gathered by previous parse.
// Kingpin appends to repeatable values and does not reset them between parses.
func resetCumulative() {
	*arguments = nil
	for _, f := range orderedFlags {
		if slice, ok := f.(*SliceFlag); ok {
			*slice.value = nil
		}
	}
}

// Args returns positional arguments given on the command line.
func Args() []string {
	if !isEnvParsed || arguments == nil {
		return nil
	}
	return *arguments
}

// dumpable flags are the ones that can be configured by environment.
// Flags with dash in the name are the command switches (e.g. config-dump).
func dumpable(f flagType) bool {
	return !strings.Contains(f.name(), "-")
}

// DumpConfig dumps environment based configuration with current values of flags.
func DumpConfig() string {
	return DumpConfigMap(nil)
}

// DumpConfigMap dumps environment based configuration with current values overwritten by given flagMap.
// Includes "allexport" directives for bash.
func DumpConfigMap(flagMap map[string]string) string {
	buffer := &bytes.Buffer{}

	buffer.WriteString("# Export are values.\n")
	buffer.WriteString("set -o allexport\n")

	for _, f := range orderedFlags {
		if !dumpable(f) {
			continue
		}

		fmt.Fprintf(buffer, "\n# %s\n", f.help())
		if def := f.defaultString(); def != "" {
			fmt.Fprintf(buffer, "# Default: %s\n", def)
		}

		value := f.valueString()
		if mapValue, ok := flagMap[f.name()]; ok {
			value = mapValue
		}

		fmt.Fprintf(buffer, "%s=%s\n", f.envName(), value)
	}

	buffer.WriteString("set +o allexport")
	return buffer.String()
}

// GetFlags returns flags as map with current values.
func GetFlags() map[string]string {
	flagsMap := map[string]string{}
	for _, f := range orderedFlags {
		if dumpable(f) {
			flagsMap[f.name()] = f.valueString()
		}
	}
	return flagsMap
}
