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

package errutil

import (
	"os"

	"github.com/sirupsen/logrus"
)

const (
	// ExFailure is the exit code for a failed operation.
	ExFailure = 1
	// ExUsage is the exit code for invalid command line usage (sysexits.h EX_USAGE).
	ExUsage = 64
)

// Check the supplied error, log and exit if non-nil.
func Check(err error) {
	if err != nil {
		logrus.Debugf("%+v", err)
		logrus.Fatalf("%v", err)
	}
}

// CheckWithContext checks the error and exit if it is not nil. Logs additional context information.
func CheckWithContext(err error, context string) {
	CheckWithExitCode(err, context, ExFailure)
}

// CheckWithExitCode checks the error and exits with given code if it is not nil.
func CheckWithExitCode(err error, context string, code int) {
	if err != nil {
		logrus.Debugf("%s: %+v", context, err)
		logrus.Errorf("%s: %v", context, err)
		os.Exit(code)
	}
}
