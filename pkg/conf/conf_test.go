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
	"os"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
	"github.com/sirupsen/logrus"
)

func TestEnvName(t *testing.T) {
	Convey("While using Flag struct, it should construct proper environment var name", t, func() {
		So(NewStringFlag("test_name", "", "").envName(), ShouldEqual, "HERON_TEST_NAME")
	})
}

func TestFlags(t *testing.T) {
	Convey("While using conf flags", t, func() {
		Convey("When some custom String Flag is defined", func() {
			customFlag := NewStringFlag("custom_string_arg", "help", "default")
			customFlag.clear()
			defer customFlag.clear()

			Convey("Without parse it should be default", func() {
				isEnvParsed = false
				So(customFlag.Value(), ShouldEqual, "default")
			})

			Convey("When we do not define any environment variable we should have default value after parse", func() {
				So(ParseEnv(), ShouldBeNil)
				So(customFlag.Value(), ShouldEqual, "default")
			})

			Convey("When we define custom environment variable we should have custom value after parse", func() {
				os.Setenv(customFlag.envName(), "customContent")
				So(ParseEnv(), ShouldBeNil)
				So(customFlag.Value(), ShouldEqual, "customContent")
			})

			Convey("Command line value should win over the environment", func() {
				os.Setenv(customFlag.envName(), "fromEnv")
				So(ParseArgs([]string{"--custom_string_arg=fromCli"}), ShouldBeNil)
				So(customFlag.Value(), ShouldEqual, "fromCli")
			})

			Convey("Redefinition returns the very same flag", func() {
				So(NewStringFlag("custom_string_arg", "help", "default"), ShouldEqual, customFlag)
			})

			Convey("Redefinition with other default panics", func() {
				So(func() { NewStringFlag("custom_string_arg", "help", "other") }, ShouldPanic)
			})

			Convey("Redefinition with other type panics", func() {
				So(func() { NewIntFlag("custom_string_arg", "help", 1) }, ShouldPanic)
			})
		})

		Convey("When some custom Int Flag is defined", func() {
			customFlag := NewIntFlag("custom_int_arg", "help", 23424)
			customFlag.clear()
			defer customFlag.clear()

			Convey("When we define custom environment variable we should have custom value after parse", func() {
				os.Setenv(customFlag.envName(), "12")
				So(ParseEnv(), ShouldBeNil)
				So(customFlag.Value(), ShouldEqual, 12)
			})
		})

		Convey("When some custom Duration Flag is defined", func() {
			customFlag := NewDurationFlag("custom_duration_arg", "help", time.Second)
			customFlag.clear()
			defer customFlag.clear()

			Convey("Default should be kept after parse", func() {
				So(ParseEnv(), ShouldBeNil)
				So(customFlag.Value(), ShouldEqual, time.Second)
			})

			Convey("Environment should override default", func() {
				os.Setenv(customFlag.envName(), "3m")
				So(ParseEnv(), ShouldBeNil)
				So(customFlag.Value(), ShouldEqual, 3*time.Minute)
			})
		})

		Convey("When some custom Bool Flag is defined", func() {
			customFlag := NewBoolFlag("custom_bool_arg", "help", false)
			customFlag.clear()
			defer customFlag.clear()

			Convey("Command line switch should enable it", func() {
				So(ParseArgs([]string{"--custom_bool_arg"}), ShouldBeNil)
				So(customFlag.Value(), ShouldBeTrue)
			})
		})

		Convey("When some custom Slice Flag is defined", func() {
			customFlag := NewSliceFlag("custom_slice_arg", "help")
			customFlag.clear()
			defer customFlag.clear()

			Convey("Repeated and comma separated values should be gathered", func() {
				So(ParseArgs([]string{"--custom_slice_arg=a=1", "--custom_slice_arg=b=2,c=3"}), ShouldBeNil)
				So(customFlag.Value(), ShouldResemble, []string{"a=1", "b=2", "c=3"})
			})
		})
	})
}

func TestLogLevelAndArgs(t *testing.T) {
	Convey("While using conf package", t, func() {
		logLevelFlag.clear()
		verboseFlag.clear()
		defer logLevelFlag.clear()
		defer verboseFlag.clear()

		Convey("Default log level should be error", func() {
			So(ParseEnv(), ShouldBeNil)
			So(LogLevel(), ShouldEqual, logrus.ErrorLevel)
		})

		Convey("Log level can be fetched from env", func() {
			os.Setenv(logLevelFlag.envName(), "info")
			So(ParseEnv(), ShouldBeNil)
			So(LogLevel(), ShouldEqual, logrus.InfoLevel)
		})

		Convey("Verbose flag forces debug level", func() {
			So(ParseArgs([]string{"--log=warn", "--verbose"}), ShouldBeNil)
			So(LogLevel(), ShouldEqual, logrus.DebugLevel)
		})

		Convey("Positional arguments should be available after parse", func() {
			So(ParseArgs([]string{"topology.jar", "com.example.Main", "--", "--topology-arg"}), ShouldBeNil)
			So(Args(), ShouldResemble, []string{"topology.jar", "com.example.Main", "--topology-arg"})
		})
	})
}

func TestDumpConfig(t *testing.T) {
	Convey("While dumping configuration", t, func() {
		NewStringFlag("dump_test_arg", "Dump test help", "dumped")
		NewBoolFlag("dump-switch", "Switches are not dumped", false)
		So(ParseEnv(), ShouldBeNil)

		dump := DumpConfig()

		Convey("It should be an allexport script with environment names", func() {
			So(dump, ShouldStartWith, "# Export are values.\nset -o allexport\n")
			So(dump, ShouldContainSubstring, "# Dump test help\n# Default: dumped\nHERON_DUMP_TEST_ARG=dumped\n")
			So(dump, ShouldEndWith, "set +o allexport")
		})

		Convey("Flags with dash should be skipped", func() {
			So(dump, ShouldNotContainSubstring, "DUMP-SWITCH")
			So(GetFlags(), ShouldNotContainKey, "dump-switch")
		})

		Convey("Values can be overridden by a map", func() {
			So(DumpConfigMap(map[string]string{"dump_test_arg": "other"}), ShouldContainSubstring, "HERON_DUMP_TEST_ARG=other\n")
			So(GetFlags()["dump_test_arg"], ShouldEqual, "dumped")
		})
	})
}
