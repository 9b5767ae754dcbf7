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
	"context"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/ajorgensen/heron/pkg/utils/errcollection"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// DefaultStopGracePeriod is time between SIGTERM and SIGKILL when task is stopped.
const DefaultStopGracePeriod = 5 * time.Second

// LocalAddress is reported as the address of every local task.
const LocalAddress = "127.0.0.1"

// Local provisioning is responsible for providing the execution environment
// on local machine via exec.Command.
// It runs the binary directly (no shell) as current user.
type Local struct {
	outputDir       string
	stopGracePeriod time.Duration
}

// NewLocal returns a Local instance which keeps tasks' output in outputDir.
// Empty outputDir means system temporary directory.
func NewLocal(outputDir string) Local {
	return Local{
		outputDir:       outputDir,
		stopGracePeriod: DefaultStopGracePeriod,
	}
}

// WithStopGracePeriod returns a copy of Local which waits given time for a stopped
// task before killing it.
func (l Local) WithStopGracePeriod(period time.Duration) Local {
	l.stopGracePeriod = period
	return l
}

// Name returns user-friendly name of executor.
func (l Local) Name() string {
	return "Local"
}

// Execute runs the binary with given arguments.
// Returned TaskHandle is able to stop & monitor the provisioned process.
func (l Local) Execute(ctx context.Context, name string, args ...string) (TaskHandle, error) {
	command := CommandString(name, args...)

	outputDir, stdoutFile, stderrFile, err := createExecutorOutputFiles(l.outputDir, name, "local")
	if err != nil {
		return nil, err
	}

	logrus.Debug("Starting ", command)

	cmd := exec.Command(name, args...)
	// Own process group lets us signal the whole process tree, e.g. JVM and its children.
	configureProcessGroup(cmd)
	cmd.Stdout = stdoutFile
	cmd.Stderr = stderrFile

	if err := cmd.Start(); err != nil {
		stdoutFile.Close()
		stderrFile.Close()
		os.RemoveAll(outputDir)
		return nil, errors.Wrapf(err, "cannot start %q", command)
	}

	logrus.Debugf("Started %q with pid %d", command, cmd.Process.Pid)

	t := &localTaskHandle{
		command:         command,
		cmd:             cmd,
		outputDir:       outputDir,
		stdoutFile:      stdoutFile,
		stderrFile:      stderrFile,
		stopGracePeriod: l.stopGracePeriod,
		waitEndCh:       make(chan struct{}),
	}

	go t.wait()
	go t.watch(ctx)

	return t, nil
}

// localTaskHandle implements TaskHandle interface.
type localTaskHandle struct {
	command         string
	cmd             *exec.Cmd
	outputDir       string
	stdoutFile      *os.File
	stderrFile      *os.File
	stopGracePeriod time.Duration

	// waitEndCh is closed when the process has been reaped.
	waitEndCh chan struct{}
	exitCode  int

	mu          sync.Mutex
	interrupted error
}

func (t *localTaskHandle) wait() {
	// Wait() error is not interesting here, exit code is taken from process state below.
	t.cmd.Wait()
	t.exitCode = exitCode(t.cmd.ProcessState)

	logrus.Debugf("Ended %q with output in file %q with status code %d",
		t.command, t.stdoutFile.Name(), t.exitCode)
	close(t.waitEndCh)
}

// watch stops the task when ctx is done before the task terminates.
func (t *localTaskHandle) watch(ctx context.Context) {
	if ctx.Done() == nil {
		return
	}

	select {
	case <-ctx.Done():
		t.mu.Lock()
		t.interrupted = ctx.Err()
		t.mu.Unlock()

		logrus.Debugf("Stopping %q: %v", t.command, ctx.Err())
		if err := t.Stop(); err != nil {
			logrus.Errorf("Cannot stop %q: %v", t.command, err)
		}
	case <-t.waitEndCh:
	}
}

func (t *localTaskHandle) isTerminated() bool {
	select {
	case <-t.waitEndCh:
		return true
	default:
		return false
	}
}

// Stop terminates the whole process group of the task: SIGTERM first and SIGKILL
// when the task is still running after the grace period.
func (t *localTaskHandle) Stop() error {
	if t.isTerminated() {
		return nil
	}

	logrus.Debugf("Sending SIGTERM to %q (pid %d)", t.command, t.cmd.Process.Pid)
	if err := terminateProcessGroup(t.cmd); err != nil && !t.isTerminated() {
		return errors.Wrapf(err, "cannot terminate %q", t.command)
	}

	if t.Wait(t.stopGracePeriod) {
		return nil
	}

	logrus.Debugf("Sending SIGKILL to %q (pid %d)", t.command, t.cmd.Process.Pid)
	if err := killProcessGroup(t.cmd); err != nil && !t.isTerminated() {
		return errors.Wrapf(err, "cannot kill %q", t.command)
	}
	<-t.waitEndCh
	return nil
}

// Status returns a state of the task.
func (t *localTaskHandle) Status() TaskState {
	if !t.isTerminated() {
		return RUNNING
	}
	return TERMINATED
}

// ExitCode returns exit code of the terminated task. For tasks killed by a signal it is
// the negated signal number.
func (t *localTaskHandle) ExitCode() (int, error) {
	if !t.isTerminated() {
		return -1, errors.Errorf("task %q is not terminated", t.command)
	}
	return t.exitCode, nil
}

func (t *localTaskHandle) Interrupted() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.interrupted
}

func (t *localTaskHandle) StdoutFile() (*os.File, error) {
	return os.Open(t.stdoutFile.Name())
}

func (t *localTaskHandle) StderrFile() (*os.File, error) {
	return os.Open(t.stderrFile.Name())
}

// Wait blocks until process is terminated or timeout appeared.
// Returns true when process terminates before timeout, otherwise false.
func (t *localTaskHandle) Wait(timeout time.Duration) bool {
	if timeout == 0 {
		<-t.waitEndCh
		return true
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-t.waitEndCh:
		return true
	case <-timer.C:
		return false
	}
}

// Clean closes stdout and stderr files of the task.
func (t *localTaskHandle) Clean() error {
	var errs errcollection.ErrorCollection
	errs.Add(t.stdoutFile.Close())
	errs.Add(t.stderrFile.Close())
	return errs.GetErrIfAny()
}

// EraseOutput removes directory with stdout and stderr files of the task.
func (t *localTaskHandle) EraseOutput() error {
	return errors.Wrapf(os.RemoveAll(t.outputDir), "cannot remove output of %q", t.command)
}

func (t *localTaskHandle) Address() string {
	return LocalAddress
}

// CommandString returns human readable form of the command, used in logs and errors.
func CommandString(name string, args ...string) string {
	return strings.Join(append([]string{name}, args...), " ")
}
