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

package executor

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// ExitCodeError is returned for a task which terminated with non-zero exit code.
type ExitCodeError struct {
	Command  string
	Executor string
	ExitCode int
}

func (e *ExitCodeError) Error() string {
	return fmt.Sprintf("task %q launched on %q failed: exit code %d", e.Command, e.Executor, e.ExitCode)
}

// CheckExitCode should be called for terminated task. It returns ExitCodeError when
// the task failed and logs the task output in such case.
//
// Commands usually fail because of wrong parameters or binary that is not installed properly.
func CheckExitCode(command string, executorName string, handle TaskHandle) error {
	exitCode, err := handle.ExitCode()
	if err != nil {
		// Something really wrong happened, print error message + logs
		logrus.Errorf("task %q launched on %q failed, cannot get exit code: %s", command, executorName, err.Error())
		LogUnsucessfulExecution(command, executorName, handle)
		return errors.Wrapf(err, "task %q launched on %q failed, cannot get exit code", command, executorName)
	}

	if exitCode != 0 {
		LogUnsucessfulExecution(command, executorName, handle)
		return &ExitCodeError{Command: command, Executor: executorName, ExitCode: exitCode}
	}

	LogSuccessfulExecution(command, executorName, handle)
	return nil
}
